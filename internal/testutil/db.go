// Package testutil provides fixtures for tests: MongoDB databases, runfolder
// trees on disk and API request helpers.
package testutil

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/stratadelivery/internal/app/system/indexes"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	// TestDBURI is the MongoDB server used by store tests.
	// STRATADELIVERY_TEST_MONGO_URI overrides it.
	TestDBURI = "mongodb://localhost:27017"
	// TestDBName prefixes every per-test database.
	TestDBName = "stratadelivery_test"

	// MongoDB database names are limited to 63 bytes.
	maxDBName = 63
)

var shared struct {
	once   sync.Once
	client *mongo.Client
	err    error
}

func testClient() (*mongo.Client, error) {
	shared.once.Do(func() {
		uri := os.Getenv("STRATADELIVERY_TEST_MONGO_URI")
		if uri == "" {
			uri = TestDBURI
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		pool := wafflemongo.DefaultPoolConfig()
		pool.MaxPoolSize = 50
		shared.client, shared.err = wafflemongo.ConnectWithPool(ctx, uri, TestDBName, pool)
		if shared.err == nil {
			shared.err = shared.client.Ping(ctx, nil)
		}
	})
	return shared.client, shared.err
}

// SetupTestDB returns an empty database with production indexes, named after
// the test so packages can run in parallel. It is dropped on cleanup. The
// test is skipped when no MongoDB server is reachable.
func SetupTestDB(t *testing.T) *mongo.Database {
	t.Helper()

	client, err := testClient()
	if err != nil {
		t.Skipf("MongoDB not available: %v", err)
	}

	db := client.Database(DBNameFor(t.Name()))

	ctx, cancel := TestContext()
	defer cancel()
	if err := db.Drop(ctx); err != nil {
		t.Fatalf("drop test database: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("create indexes: %v", err)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := db.Drop(ctx); err != nil {
			t.Logf("drop test database on cleanup: %v", err)
		}
	})
	return db
}

// DBNameFor maps a test name to a valid database name under TestDBName.
func DBNameFor(testName string) string {
	suffix := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, testName)

	name := TestDBName + "_" + suffix
	if len(name) > maxDBName {
		name = name[:maxDBName]
	}
	return name
}

// TestContext returns a context with a reasonable timeout for test operations.
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}
