// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"
	"errors"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown runs after the HTTP server has drained in-flight requests (or the
// shutdown timeout elapsed). Retention jobs stop before MongoDB disconnects.
//
// Returned errors are logged by WAFFLE; the process exits either way.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	var errs []error

	if taskRunner != nil {
		if err := taskRunner.Stop(ctx); err != nil {
			logger.Warn("retention jobs did not stop cleanly", zap.Error(err))
			errs = append(errs, err)
		}
	}

	if deps.MongoClient != nil {
		if err := deps.MongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			errs = append(errs, err)
		} else {
			logger.Info("disconnected from MongoDB")
		}
	}

	return errors.Join(errs...)
}
