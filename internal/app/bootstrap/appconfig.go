// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). Framework settings such as
// ports, TLS, logging and CORS live in WAFFLE's CoreConfig.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Bearer key required on /api routes; empty rejects every API request.
	APIKey string

	// Filesystem layout
	RunfolderDirectory      string // base path scanned for runfolders
	GeneralProjectDirectory string // root of general projects
	RequireChecksumManifest bool   // false loads runfolders without MD5/checksums.md5

	// Manifest archive
	ArchiveEnabled bool

	// File storage (manifest archive backend)
	StorageType      string // "local" or "s3"
	StorageLocalPath string
	StorageLocalURL  string

	// S3/CloudFront
	StorageS3Region    string
	StorageS3Bucket    string
	StorageS3Prefix    string
	StorageCFURL       string
	StorageCFKeyPairID string
	StorageCFKeyPath   string

	// Retention of Mongo records; zero keeps them forever.
	OrganiseRunRetention time.Duration
	LedgerRetention      time.Duration
	RetentionInterval    time.Duration

	// Per-call database deadlines
	TimeoutPing  time.Duration
	TimeoutStore time.Duration
}
