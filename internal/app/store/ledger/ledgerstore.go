// internal/app/store/ledger/ledgerstore.go
package ledgerstore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when no entry matches the lookup.
var ErrNotFound = errors.New("ledger entry not found")

// Entry represents a single API request in the ledger.
type Entry struct {
	ID primitive.ObjectID `bson:"_id" json:"-"`

	// Request identification
	RequestID       string `bson:"request_id" json:"request_id"`                                   // Generated UUID
	ClientRequestID string `bson:"client_request_id,omitempty" json:"client_request_id,omitempty"` // From X-Request-ID header

	// HTTP request metadata
	Method   string `bson:"method" json:"method"`
	Path     string `bson:"path" json:"path"`
	Query    string `bson:"query,omitempty" json:"query,omitempty"`
	RemoteIP string `bson:"remote_ip" json:"remote_ip"`

	// Response metadata
	StatusCode   int     `bson:"status_code" json:"status_code"`
	ResponseSize int64   `bson:"response_size" json:"response_size"`
	ErrorClass   string  `bson:"error_class,omitempty" json:"error_class,omitempty"`
	ErrorMessage string  `bson:"error_message,omitempty" json:"error_message,omitempty"`
	TotalMs      float64 `bson:"total_ms" json:"total_ms"`

	StartedAt   time.Time  `bson:"started_at" json:"started_at"`
	CompletedAt time.Time  `bson:"completed_at" json:"completed_at"`
	ExpiresAt   *time.Time `bson:"expires_at,omitempty" json:"-"`
}

// Store provides ledger entry persistence.
type Store struct {
	c         *mongo.Collection
	retention time.Duration
}

// New creates a new ledger store. Entries expire retention after
// completion; zero keeps them.
func New(db *mongo.Database, retention time.Duration) *Store {
	return &Store{c: db.Collection("ledger_entries"), retention: retention}
}

// Create inserts a new ledger entry.
func (s *Store) Create(ctx context.Context, entry Entry) error {
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	if entry.ExpiresAt == nil && s.retention > 0 && !entry.CompletedAt.IsZero() {
		exp := entry.CompletedAt.Add(s.retention)
		entry.ExpiresAt = &exp
	}
	_, err := s.c.InsertOne(ctx, entry)
	return err
}

// GetByRequestID retrieves a ledger entry by request ID.
func (s *Store) GetByRequestID(ctx context.Context, requestID string) (*Entry, error) {
	var entry Entry
	err := s.c.FindOne(ctx, bson.M{"request_id": requestID}).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// RecentErrors returns the most recent entries with a 4xx or 5xx status,
// optionally restricted to one error class.
func (s *Store) RecentErrors(ctx context.Context, errorClass string, limit int) ([]Entry, error) {
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	query := bson.M{"status_code": bson.M{"$gte": 400}}
	if errorClass != "" {
		query["error_class"] = errorClass
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "started_at", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := s.c.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	entries := []Entry{}
	if err := cur.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// DeleteOlderThan deletes entries started before cutoff.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.c.DeleteMany(ctx, bson.M{
		"started_at": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}
