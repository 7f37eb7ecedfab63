// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	ledgerstore "github.com/dalemusser/stratadelivery/internal/app/store/ledger"
	"github.com/dalemusser/stratadelivery/internal/app/store/organiseruns"
	"github.com/dalemusser/stratadelivery/internal/app/system/tasks"
	"github.com/dalemusser/stratadelivery/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs once after DB connections and schema/index setup are complete,
// but before the HTTP handler is built and requests are served.
//
// Returning a non-nil error will abort startup and prevent the server from
// starting.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Ping:  appCfg.TimeoutPing,
		Store: appCfg.TimeoutStore,
	})

	startTaskRunner(appCfg, deps, logger)

	return nil
}

// taskRunner is the global task runner instance, used for graceful shutdown.
var taskRunner *tasks.Runner

// startTaskRunner registers the retention jobs and starts them.
func startTaskRunner(appCfg AppConfig, deps DBDeps, logger *zap.Logger) {
	taskRunner = tasks.New(logger)

	if appCfg.OrganiseRunRetention > 0 {
		taskRunner.Register(tasks.RetentionJob("organise-run-retention",
			organiseruns.New(deps.MongoDatabase, appCfg.OrganiseRunRetention),
			appCfg.OrganiseRunRetention, appCfg.RetentionInterval, logger))
	}
	if appCfg.LedgerRetention > 0 {
		taskRunner.Register(tasks.RetentionJob("ledger-retention",
			ledgerstore.New(deps.MongoDatabase, appCfg.LedgerRetention),
			appCfg.LedgerRetention, appCfg.RetentionInterval, logger))
	}

	taskRunner.Start()
}
