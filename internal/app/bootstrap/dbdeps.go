// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/waffle/pantry/storage"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database and backend dependencies for this WAFFLE app.
//
// This struct is created in ConnectDB and passed to subsequent lifecycle
// hooks: EnsureSchema, Startup, BuildHandler, and Shutdown. The Shutdown
// hook closes these connections when the application terminates.
type DBDeps struct {
	// MongoDB client and database (organise runs, request ledger)
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// FileStorage receives archived manifests; nil when archiving is off.
	FileStorage storage.Store
}
