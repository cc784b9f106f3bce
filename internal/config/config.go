package config

import (
	"context"
	"os"
	"time"
)

// ListenerConfig holds the network settings for a single HTTP listener
// (main or management).
type ListenerConfig struct {
	Port              int
	ReadHeaderTimeout time.Duration
}

type contextKey struct{}

// WithContext returns a new context carrying the given Config.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, contextKey{}, cfg)
}

// FromContext retrieves the Config from the context.
func FromContext(ctx context.Context) *Config {
	cfg, _ := ctx.Value(contextKey{}).(*Config)
	return cfg
}

// Config holds all configuration for the media tagging service.
type Config struct {
	// Datastore backend type: "dynamo" or "memory".
	DatastoreType string

	// DynamoDB table names.
	MediaTableName string
	UserTableName  string

	// AWS region and optional endpoint override (LocalStack/MinIO style).
	AWSRegion   string
	AWSEndpoint string

	// Change-feed polling cadence for the DynamoDB streams consumer.
	StreamPollInterval time.Duration

	// Object store backend type: "s3" or "passthrough".
	ObjectStoreType string

	// Bucket receiving ingest uploads when the caller supplies no
	// originalURL of its own.
	UploadBucket string
	UploadPrefix string

	// Use path-style S3 addressing (required for LocalStack/MinIO).
	S3UsePathStyle bool

	// Lifetime of presigned download URLs.
	PresignExpiry time.Duration

	// Notifier backend type: "sns" or "logonly".
	NotifierType string

	// SNS topic receiving per-tag fan-out messages.
	TopicARN string

	// Detector backend type: "remote", "static", or "disabled".
	DetectorType string

	// Remote detector inference endpoint and request timeout.
	DetectorURL     string
	DetectorTimeout time.Duration

	// Minimum detection confidence forwarded to the remote detector.
	DetectorConfidence float64

	// Server
	Listener           ListenerConfig
	ManagementListener ListenerConfig
	// ManagementListenerEnabled is true when --management-port was
	// explicitly provided. When false, management endpoints are served on
	// the main port.
	ManagementListenerEnabled bool
	// ManagementAccessLog enables access logging for /health, /ready and
	// /metrics. Disabled by default to suppress probe noise.
	ManagementAccessLog bool

	// Body size limit (bytes) for JSON endpoints; ingest payloads are
	// base64 inside JSON so this also bounds upload size.
	MaxBodySize int64

	// Temporary file directory for spooling ingest uploads. Empty uses the
	// platform default temp directory.
	TempDir string

	// Graceful shutdown drain timeout (seconds).
	DrainTimeout int

	// MetricsLabels is a comma-separated list of key=value pairs added as
	// constant labels to all Prometheus metrics. Values support ${VAR}
	// expansion.
	MetricsLabels string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DatastoreType:      "dynamo",
		MediaTableName:     "mediaRecords",
		UserTableName:      "userDetails-Alert",
		StreamPollInterval: 2 * time.Second,
		ObjectStoreType:    "s3",
		UploadPrefix:       "raw_uploads",
		PresignExpiry:      time.Hour,
		NotifierType:       "sns",
		DetectorType:       "disabled",
		DetectorTimeout:    30 * time.Second,
		DetectorConfidence: 0.7,
		Listener: ListenerConfig{
			Port:              8080,
			ReadHeaderTimeout: 5 * time.Second,
		},
		ManagementListener: ListenerConfig{
			ReadHeaderTimeout: 5 * time.Second,
		},
		MaxBodySize:  32 * 1024 * 1024,
		DrainTimeout: 30,
	}
}

// ResolvedTempDir returns TempDir, or the OS temp directory when unset.
func (c *Config) ResolvedTempDir() string {
	if c == nil || c.TempDir == "" {
		return os.TempDir()
	}
	return c.TempDir
}
