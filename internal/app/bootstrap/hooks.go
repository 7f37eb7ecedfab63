// internal/app/bootstrap/hooks.go
package bootstrap

import (
	"github.com/dalemusser/waffle/app"
)

// Hooks wires this app into the WAFFLE lifecycle.
// Each function is called in order by app.Run, from configuration
// loading through DB setup, one-time startup work, HTTP handler
// construction, and finally graceful shutdown.
var Hooks = app.Hooks[AppConfig, DBDeps]{
	Name:           "stratadelivery", // used only for logging/diagnostics
	LoadConfig:     LoadConfig,       // load core + app config
	ValidateConfig: ValidateConfig,   // validate MongoDB URI and directories
	ConnectDB:      ConnectDB,        // connect to MongoDB and file storage
	EnsureSchema:   EnsureSchema,     // create collections, validators, indexes
	Startup:        Startup,          // configure timeouts, start retention jobs
	BuildHandler:   BuildHandler,     // build the HTTP router + middleware stack
	Shutdown:       Shutdown,         // stop jobs, disconnect MongoDB
}
