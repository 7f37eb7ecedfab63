// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"time"

	healthfeature "github.com/dalemusser/stratadelivery/internal/app/features/health"
	ledgerfeature "github.com/dalemusser/stratadelivery/internal/app/features/ledger"
	"github.com/dalemusser/stratadelivery/internal/app/features/organiseapi"
	"github.com/dalemusser/stratadelivery/internal/app/features/projectsapi"
	"github.com/dalemusser/stratadelivery/internal/app/features/runfoldersapi"
	ledgerstore "github.com/dalemusser/stratadelivery/internal/app/store/ledger"
	"github.com/dalemusser/stratadelivery/internal/app/store/organiseruns"
	"github.com/dalemusser/stratadelivery/internal/app/store/projects"
	"github.com/dalemusser/stratadelivery/internal/app/store/runfolders"
	"github.com/dalemusser/stratadelivery/internal/app/store/samples"
	"github.com/dalemusser/stratadelivery/internal/app/system/fsutil"
	"github.com/dalemusser/stratadelivery/internal/app/system/ledger"
	"github.com/dalemusser/stratadelivery/internal/app/system/manifestarchive"
	"github.com/dalemusser/stratadelivery/internal/app/system/metadata"
	"github.com/dalemusser/stratadelivery/internal/app/system/metrics"
	"github.com/dalemusser/stratadelivery/internal/app/system/organise"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// requestTimeout bounds every request except organise.
const requestTimeout = 120 * time.Second

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed.
//
// Everything under /api/1.0 uses API key auth and permissive CORS, and is
// recorded in the request ledger. Health and metrics endpoints are open.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	fsys := fsutil.OS{}

	// Discovery and organisation engine
	meta := metadata.NewService(fsys)
	var checksums metadata.ChecksumStore = meta
	if !appCfg.RequireChecksumManifest {
		checksums = metadata.NewLenient(fsys, logger)
	}
	sampleStore := samples.New(fsys, checksums, logger)
	projectStore := projects.NewRunfolderStore(fsys, checksums, sampleStore, logger)
	runfolderStore := runfolders.New(appCfg.RunfolderDirectory, fsys, checksums, projectStore, meta, logger)
	organiser := organise.New(runfolderStore, projectStore, meta, fsys, logger)
	generalStore := projects.NewGeneralStore(fsys, appCfg.GeneralProjectDirectory)

	// Records
	runStore := organiseruns.New(deps.MongoDatabase, appCfg.OrganiseRunRetention)
	entryStore := ledgerstore.New(deps.MongoDatabase, appCfg.LedgerRetention)

	recorder := metrics.New()

	var archiver organiseapi.Archiver
	if appCfg.ArchiveEnabled && deps.FileStorage != nil {
		archiver = manifestarchive.New(deps.FileStorage, fsys, logger)
	}

	r := chi.NewRouter()

	// ─────────────────────────────────────────────────────────────────────────────
	// Global Middleware (applies to ALL routes)
	// ─────────────────────────────────────────────────────────────────────────────

	r.Use(chimw.Recoverer)
	r.Use(middleware.CORSFromConfig(coreCfg))
	r.Use(middleware.SecurityHeadersFromConfig(coreCfg))

	// ─────────────────────────────────────────────────────────────────────────────
	// API Routes
	// ─────────────────────────────────────────────────────────────────────────────
	r.Route("/api/1.0", func(r chi.Router) {
		r.Use(ledger.Middleware(ledger.DefaultConfig(entryStore, logger)))

		// Organise runs without a request timeout.
		organiseHandler := organiseapi.NewHandler(organiser, runStore, archiver, logger)
		organiseHandler.SetMetrics(recorder)
		r.Mount("/organise", organiseapi.Routes(organiseHandler, appCfg.APIKey, logger))

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(requestTimeout))

			runfoldersHandler := runfoldersapi.NewHandler(runfolderStore, logger)
			r.Mount("/runfolders", runfoldersapi.Routes(runfoldersHandler, appCfg.APIKey, logger))

			projectsHandler := projectsapi.NewHandler(generalStore, runfolderStore, logger)
			r.Mount("/projects", projectsapi.Routes(projectsHandler, appCfg.APIKey, logger))

			ledgerHandler := ledgerfeature.NewHandler(entryStore, logger)
			r.Mount("/ledger", ledgerfeature.Routes(ledgerHandler, appCfg.APIKey, logger))
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(requestTimeout))

		// Health check endpoints for load balancers and orchestrators
		healthHandler := healthfeature.NewHandler(deps.MongoClient, fsys, appCfg.RunfolderDirectory, logger)
		r.Mount("/health", healthfeature.Routes(healthHandler))
		healthfeature.MountRootEndpoints(r, healthHandler)

		// Prometheus scrape endpoint
		r.Handle("/metrics", recorder.Handler())
	})

	logger.Info("routes built",
		zap.String("runfolder_directory", appCfg.RunfolderDirectory),
		zap.String("general_project_directory", appCfg.GeneralProjectDirectory),
		zap.Bool("require_checksum_manifest", appCfg.RequireChecksumManifest),
		zap.Bool("archive_enabled", archiver != nil),
	)

	return r, nil
}
