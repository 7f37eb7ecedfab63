// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// EnvVarPrefix is the prefix for environment variables.
const EnvVarPrefix = "STRATADELIVERY"

// appConfigKeys defines the configuration keys for this application.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, runfolder_directory, etc.
//   - Environment variables: STRATADELIVERY_MONGO_URI, STRATADELIVERY_RUNFOLDER_DIRECTORY, etc.
//   - Command-line flags: --mongo_uri, --runfolder_directory, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "stratadelivery", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// API key configuration (Bearer token auth on /api routes)
	{Name: "api_key", Default: "", Desc: "API key for /api access (empty rejects every API request)"},

	// Filesystem layout
	{Name: "runfolder_directory", Default: "/data/runfolders", Desc: "Base directory scanned for runfolders"},
	{Name: "general_project_directory", Default: "/data/projects", Desc: "Root directory of general projects"},
	{Name: "require_checksum_manifest", Default: true, Desc: "Fail discovery of runfolders without MD5/checksums.md5"},

	// Manifest archive
	{Name: "archive_enabled", Default: false, Desc: "Upload organised manifests to file storage"},

	// File storage configuration
	{Name: "storage_type", Default: "local", Desc: "Storage backend: 'local' or 's3'"},
	{Name: "storage_local_path", Default: "./archive", Desc: "Local storage path for archived manifests"},
	{Name: "storage_local_url", Default: "/archive", Desc: "URL prefix for local archive files"},

	// S3/CloudFront configuration
	{Name: "storage_s3_region", Default: "", Desc: "AWS region for S3"},
	{Name: "storage_s3_bucket", Default: "", Desc: "S3 bucket name"},
	{Name: "storage_s3_prefix", Default: "stratadelivery/", Desc: "S3 key prefix"},
	{Name: "storage_cf_url", Default: "", Desc: "CloudFront distribution URL"},
	{Name: "storage_cf_keypair_id", Default: "", Desc: "CloudFront key pair ID"},
	{Name: "storage_cf_key_path", Default: "", Desc: "Path to CloudFront private key file"},

	// Retention
	{Name: "organise_run_retention", Default: "2160h", Desc: "How long organise run records are kept (0 keeps forever)"},
	{Name: "ledger_retention", Default: "720h", Desc: "How long request ledger entries are kept (0 keeps forever)"},
	{Name: "retention_interval", Default: "1h", Desc: "How often expired records are purged"},

	// Timeouts
	{Name: "timeout_ping", Default: "2s", Desc: "Deadline for health check database pings"},
	{Name: "timeout_store", Default: "5s", Desc: "Deadline for a single record read or write"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, STRATADELIVERY_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, EnvVarPrefix, appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		APIKey: appValues.String("api_key"),

		RunfolderDirectory:      appValues.String("runfolder_directory"),
		GeneralProjectDirectory: appValues.String("general_project_directory"),
		RequireChecksumManifest: appValues.Bool("require_checksum_manifest"),

		ArchiveEnabled: appValues.Bool("archive_enabled"),

		// File storage
		StorageType:      appValues.String("storage_type"),
		StorageLocalPath: appValues.String("storage_local_path"),
		StorageLocalURL:  appValues.String("storage_local_url"),

		// S3/CloudFront
		StorageS3Region:    appValues.String("storage_s3_region"),
		StorageS3Bucket:    appValues.String("storage_s3_bucket"),
		StorageS3Prefix:    appValues.String("storage_s3_prefix"),
		StorageCFURL:       appValues.String("storage_cf_url"),
		StorageCFKeyPairID: appValues.String("storage_cf_keypair_id"),
		StorageCFKeyPath:   appValues.String("storage_cf_key_path"),

		// Retention
		OrganiseRunRetention: appValues.Duration("organise_run_retention", 2160*time.Hour),
		LedgerRetention:      appValues.Duration("ledger_retention", 720*time.Hour),
		RetentionInterval:    appValues.Duration("retention_interval", time.Hour),

		// Timeouts
		TimeoutPing:  appValues.Duration("timeout_ping", 2*time.Second),
		TimeoutStore: appValues.Duration("timeout_store", 5*time.Second),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if strings.TrimSpace(appCfg.RunfolderDirectory) == "" {
		return errors.New("runfolder_directory must be set")
	}

	switch appCfg.StorageType {
	case "local", "", "s3":
	default:
		return fmt.Errorf("unknown storage type: %s", appCfg.StorageType)
	}
	if appCfg.ArchiveEnabled && appCfg.StorageType == "s3" && appCfg.StorageS3Bucket == "" {
		return errors.New("storage_s3_bucket must be set when archiving to s3")
	}

	if appCfg.OrganiseRunRetention < 0 || appCfg.LedgerRetention < 0 {
		return errors.New("retention must not be negative")
	}
	if appCfg.RetentionInterval <= 0 {
		return errors.New("retention_interval must be positive")
	}

	if appCfg.APIKey == "" {
		logger.Warn("api_key is empty; every /api request will be rejected")
	}

	return nil
}
