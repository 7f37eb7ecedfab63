// internal/app/store/organiseruns/store.go
package organiseruns

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName holds organise-run records.
const CollectionName = "organise_runs"

// Run status values.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ErrNotFound is returned when no run matches the lookup.
var ErrNotFound = errors.New("organise run not found")

// Run records one organise request and its outcome.
type Run struct {
	ID primitive.ObjectID `bson:"_id" json:"-"`

	RequestID   string `bson:"request_id" json:"request_id"`
	RunfolderID string `bson:"runfolder_id" json:"runfolder_id"`

	// Request parameters
	Lanes    []int    `bson:"lanes,omitempty" json:"lanes,omitempty"`
	Projects []string `bson:"projects,omitempty" json:"projects,omitempty"`
	Force    bool     `bson:"force" json:"force"`

	// Outcome
	Status       string   `bson:"status" json:"status"`
	ErrorClass   string   `bson:"error_class,omitempty" json:"error_class,omitempty"`
	ErrorMessage string   `bson:"error_message,omitempty" json:"error_message,omitempty"`
	Organised    []string `bson:"organised,omitempty" json:"organised,omitempty"`
	DurationMs   float64  `bson:"duration_ms" json:"duration_ms"`

	StartedAt   time.Time `bson:"started_at" json:"started_at"`
	CompletedAt time.Time `bson:"completed_at" json:"completed_at"`

	// TTL index removes the record once this passes. Zero keeps it forever.
	ExpiresAt *time.Time `bson:"expires_at,omitempty" json:"-"`
}

// Store persists organise runs.
type Store struct {
	c         *mongo.Collection
	retention time.Duration
}

// New creates a store whose records expire retention after completion.
// A zero retention keeps records indefinitely.
func New(db *mongo.Database, retention time.Duration) *Store {
	return &Store{c: db.Collection(CollectionName), retention: retention}
}

// Create inserts a run, assigning an ID and expiry when unset.
func (s *Store) Create(ctx context.Context, run Run) error {
	if run.ID.IsZero() {
		run.ID = primitive.NewObjectID()
	}
	if run.ExpiresAt == nil && s.retention > 0 && !run.CompletedAt.IsZero() {
		exp := run.CompletedAt.Add(s.retention)
		run.ExpiresAt = &exp
	}
	_, err := s.c.InsertOne(ctx, run)
	return err
}

// GetByRequestID retrieves a run by its request ID.
func (s *Store) GetByRequestID(ctx context.Context, requestID string) (*Run, error) {
	var run Run
	err := s.c.FindOne(ctx, bson.M{"request_id": requestID}).Decode(&run)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListFilter narrows List.
type ListFilter struct {
	RunfolderID string
	Status      string
}

// List returns the most recent runs matching filter, newest first.
func (s *Store) List(ctx context.Context, filter ListFilter, limit int) ([]Run, error) {
	if limit < 1 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	query := bson.M{}
	if filter.RunfolderID != "" {
		query["runfolder_id"] = filter.RunfolderID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "started_at", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := s.c.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	runs := []Run{}
	if err := cur.All(ctx, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

// DeleteOlderThan deletes runs started before cutoff.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.c.DeleteMany(ctx, bson.M{
		"started_at": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}
