// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/stratadelivery/internal/app/store/organiseruns"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Collection names. Kept in step with the stores.
const (
	organiseRunsCollection = organiseruns.CollectionName
	ledgerCollection       = "ledger_entries"
)

// EnsureAll creates the collections this service writes and attaches
// JSON-Schema validators where one is defined. Deployments without
// collMod support (some DocumentDB versions) skip the validator.
func EnsureAll(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	var problems []string

	ensure := func(coll string, schema bson.M) {
		if err := ensureCollection(ctx, db, coll, logger); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			if isUnsupported(err) {
				logger.Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
			return
		}
		logger.Info("validator ensured", zap.String("collection", coll))
	}

	ensure(organiseRunsCollection, organiseRunsSchema())
	ensure(ledgerCollection, ledgerSchema())

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{"name": name})
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}

// ensureCollection creates name unless it already exists.
func ensureCollection(ctx context.Context, db *mongo.Database, name string, logger *zap.Logger) error {
	if exists, err := collectionExists(ctx, db, name); err == nil && exists {
		return nil
	}
	if err := db.CreateCollection(ctx, name); err != nil {
		if isNamespaceExistsErr(err) {
			return nil
		}
		return err
	}
	logger.Info("created collection", zap.String("collection", name))
	return nil
}

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	return db.RunCommand(ctx, cmd).Err()
}

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 48 {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

// isUnsupported reports a server that lacks collMod or validators.
func isUnsupported(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || ce.Code == 115) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "no such command") ||
		strings.Contains(s, "not implemented") ||
		strings.Contains(s, "not supported")
}

func organiseRunsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"request_id", "runfolder_id", "status", "started_at"},
			"properties": bson.M{
				"request_id":   bson.M{"bsonType": "string", "minLength": 1},
				"runfolder_id": bson.M{"bsonType": "string", "minLength": 1},
				"status":       bson.M{"enum": bson.A{organiseruns.StatusCompleted, organiseruns.StatusFailed}},
				"lanes":        bson.M{"bsonType": bson.A{"array", "null"}},
				"projects":     bson.M{"bsonType": bson.A{"array", "null"}},
				"started_at":   bson.M{"bsonType": "date"},
			},
		},
	}
}

func ledgerSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"request_id", "method", "path", "status_code", "started_at"},
			"properties": bson.M{
				"request_id":  bson.M{"bsonType": "string", "minLength": 1},
				"method":      bson.M{"bsonType": "string"},
				"path":        bson.M{"bsonType": "string"},
				"status_code": bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 100, "maximum": 599},
				"started_at":  bson.M{"bsonType": "date"},
			},
		},
	}
}
