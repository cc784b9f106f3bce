package serve

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v3"

	"github.com/wildtrack/mediatag-service/internal/config"
	registrydetect "github.com/wildtrack/mediatag-service/internal/registry/detect"
	registrynotify "github.com/wildtrack/mediatag-service/internal/registry/notify"
	registryobjectstore "github.com/wildtrack/mediatag-service/internal/registry/objectstore"
	registrystore "github.com/wildtrack/mediatag-service/internal/registry/store"

	// Import all plugins to trigger init() registration
	_ "github.com/wildtrack/mediatag-service/internal/plugin/detect/disabled"
	_ "github.com/wildtrack/mediatag-service/internal/plugin/detect/remote"
	_ "github.com/wildtrack/mediatag-service/internal/plugin/detect/static"
	_ "github.com/wildtrack/mediatag-service/internal/plugin/notify/logonly"
	_ "github.com/wildtrack/mediatag-service/internal/plugin/notify/sns"
	_ "github.com/wildtrack/mediatag-service/internal/plugin/objectstore/passthrough"
	_ "github.com/wildtrack/mediatag-service/internal/plugin/objectstore/s3"
	_ "github.com/wildtrack/mediatag-service/internal/plugin/route/system"
	_ "github.com/wildtrack/mediatag-service/internal/plugin/store/dynamo"
	_ "github.com/wildtrack/mediatag-service/internal/plugin/store/memory"
)

// Command returns the serve sub-command.
func Command() *cli.Command {
	cfg := config.DefaultConfig()
	var readHeaderTimeoutSecs int = 5
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the media tagging HTTP service",
		Flags: flags(&cfg, &readHeaderTimeoutSecs),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := cfg.ApplyLambdaCompatFromEnv(); err != nil {
				return err
			}
			cfg.Listener.ReadHeaderTimeout = time.Duration(readHeaderTimeoutSecs) * time.Second
			cfg.ManagementListener.ReadHeaderTimeout = cfg.Listener.ReadHeaderTimeout
			cfg.ManagementListenerEnabled = cmd.IsSet("management-port")
			return run(config.WithContext(ctx, &cfg), cfg)
		},
	}
}

func flags(cfg *config.Config, readHeaderTimeoutSecs *int) []cli.Flag {
	return []cli.Flag{

		// ── Server ────────────────────────────────────────────────
		&cli.IntFlag{
			Name:        "port",
			Category:    "Server:",
			Sources:     cli.EnvVars("MEDIATAG_PORT"),
			Destination: &cfg.Listener.Port,
			Value:       cfg.Listener.Port,
			Usage:       "HTTP server port",
		},
		&cli.IntFlag{
			Name:        "management-port",
			Category:    "Server:",
			Sources:     cli.EnvVars("MEDIATAG_MANAGEMENT_PORT"),
			Destination: &cfg.ManagementListener.Port,
			Value:       cfg.ManagementListener.Port,
			Usage:       "Dedicated port for health and metrics (0 = OS-assigned random port); when unset, served on the main port",
		},
		&cli.BoolFlag{
			Name:        "management-access-log",
			Category:    "Server:",
			Sources:     cli.EnvVars("MEDIATAG_MANAGEMENT_ACCESS_LOG"),
			Destination: &cfg.ManagementAccessLog,
			Usage:       "Enable HTTP access logging for management endpoints (/health, /ready, /metrics)",
		},
		&cli.IntFlag{
			Name:        "read-header-timeout-seconds",
			Category:    "Server:",
			Sources:     cli.EnvVars("MEDIATAG_READ_HEADER_TIMEOUT_SECONDS"),
			Destination: readHeaderTimeoutSecs,
			Value:       *readHeaderTimeoutSecs,
			Usage:       "HTTP read header timeout in seconds",
		},
		&cli.IntFlag{
			Name:        "drain-timeout-seconds",
			Category:    "Server:",
			Sources:     cli.EnvVars("MEDIATAG_DRAIN_TIMEOUT_SECONDS"),
			Destination: &cfg.DrainTimeout,
			Value:       cfg.DrainTimeout,
			Usage:       "Graceful shutdown drain timeout in seconds",
		},
		&cli.StringFlag{
			Name:        "temp-dir",
			Category:    "Server:",
			Sources:     cli.EnvVars("MEDIATAG_TEMP_DIR"),
			Destination: &cfg.TempDir,
			Usage:       "Directory for temporary files; defaults to OS temp directory",
		},
		&cli.Int64Flag{
			Name:        "max-body-size",
			Category:    "Server:",
			Sources:     cli.EnvVars("MEDIATAG_MAX_BODY_SIZE"),
			Destination: &cfg.MaxBodySize,
			Value:       cfg.MaxBodySize,
			Usage:       "Maximum request body size in bytes; bounds ingest upload size",
		},

		// ── Datastore ─────────────────────────────────────────────
		&cli.StringFlag{
			Name:        "db-kind",
			Category:    "Datastore:",
			Sources:     cli.EnvVars("MEDIATAG_DB_KIND"),
			Destination: &cfg.DatastoreType,
			Value:       cfg.DatastoreType,
			Usage:       "Backend store (" + strings.Join(registrystore.Names(), "|") + ")",
		},
		&cli.StringFlag{
			Name:        "media-table",
			Category:    "Datastore:",
			Sources:     cli.EnvVars("MEDIATAG_MEDIA_TABLE"),
			Destination: &cfg.MediaTableName,
			Value:       cfg.MediaTableName,
			Usage:       "DynamoDB table holding media records",
		},
		&cli.StringFlag{
			Name:        "user-table",
			Category:    "Datastore:",
			Sources:     cli.EnvVars("MEDIATAG_USER_TABLE"),
			Destination: &cfg.UserTableName,
			Value:       cfg.UserTableName,
			Usage:       "DynamoDB table holding user alert subscriptions",
		},
		&cli.StringFlag{
			Name:        "aws-region",
			Category:    "Datastore:",
			Sources:     cli.EnvVars("MEDIATAG_AWS_REGION"),
			Destination: &cfg.AWSRegion,
			Usage:       "AWS region for DynamoDB, S3 and SNS clients",
		},
		&cli.StringFlag{
			Name:        "aws-endpoint",
			Category:    "Datastore:",
			Sources:     cli.EnvVars("MEDIATAG_AWS_ENDPOINT"),
			Destination: &cfg.AWSEndpoint,
			Usage:       "AWS endpoint override (LocalStack/MinIO style)",
		},
		&cli.DurationFlag{
			Name:        "stream-poll-interval",
			Category:    "Datastore:",
			Sources:     cli.EnvVars("MEDIATAG_STREAM_POLL_INTERVAL"),
			Destination: &cfg.StreamPollInterval,
			Value:       cfg.StreamPollInterval,
			Usage:       "How often the DynamoDB streams change feed polls for records",
		},

		// ── Object Storage ────────────────────────────────────────
		&cli.StringFlag{
			Name:        "objectstore-kind",
			Category:    "Object Storage:",
			Sources:     cli.EnvVars("MEDIATAG_OBJECTSTORE_KIND"),
			Destination: &cfg.ObjectStoreType,
			Value:       cfg.ObjectStoreType,
			Usage:       "Object store (" + strings.Join(registryobjectstore.Names(), "|") + ")",
		},
		&cli.StringFlag{
			Name:        "upload-bucket",
			Category:    "Object Storage:",
			Sources:     cli.EnvVars("MEDIATAG_UPLOAD_BUCKET"),
			Destination: &cfg.UploadBucket,
			Usage:       "S3 bucket receiving ingest uploads",
		},
		&cli.StringFlag{
			Name:        "upload-prefix",
			Category:    "Object Storage:",
			Sources:     cli.EnvVars("MEDIATAG_UPLOAD_PREFIX"),
			Destination: &cfg.UploadPrefix,
			Value:       cfg.UploadPrefix,
			Usage:       "Key prefix for ingest uploads",
		},
		&cli.BoolFlag{
			Name:        "s3-use-path-style",
			Category:    "Object Storage:",
			Sources:     cli.EnvVars("MEDIATAG_S3_USE_PATH_STYLE"),
			Destination: &cfg.S3UsePathStyle,
			Usage:       "Use path-style S3 addressing (required for LocalStack/MinIO)",
		},
		&cli.DurationFlag{
			Name:        "presign-expiry",
			Category:    "Object Storage:",
			Sources:     cli.EnvVars("MEDIATAG_PRESIGN_EXPIRY"),
			Destination: &cfg.PresignExpiry,
			Value:       cfg.PresignExpiry,
			Usage:       "Lifetime of presigned download URLs",
		},

		// ── Notifications ─────────────────────────────────────────
		&cli.StringFlag{
			Name:        "notify-kind",
			Category:    "Notifications:",
			Sources:     cli.EnvVars("MEDIATAG_NOTIFY_KIND"),
			Destination: &cfg.NotifierType,
			Value:       cfg.NotifierType,
			Usage:       "Notifier (" + strings.Join(registrynotify.Names(), "|") + ")",
		},
		&cli.StringFlag{
			Name:        "topic-arn",
			Category:    "Notifications:",
			Sources:     cli.EnvVars("MEDIATAG_TOPIC_ARN"),
			Destination: &cfg.TopicARN,
			Usage:       "SNS topic ARN for tag alert fan-out",
		},

		// ── Detection ─────────────────────────────────────────────
		&cli.StringFlag{
			Name:        "detect-kind",
			Category:    "Detection:",
			Sources:     cli.EnvVars("MEDIATAG_DETECT_KIND"),
			Destination: &cfg.DetectorType,
			Value:       cfg.DetectorType,
			Usage:       "Detector (" + strings.Join(registrydetect.Names(), "|") + ")",
		},
		&cli.StringFlag{
			Name:        "detector-url",
			Category:    "Detection:",
			Sources:     cli.EnvVars("MEDIATAG_DETECTOR_URL"),
			Destination: &cfg.DetectorURL,
			Usage:       "Inference endpoint for the remote detector",
		},
		&cli.DurationFlag{
			Name:        "detector-timeout",
			Category:    "Detection:",
			Sources:     cli.EnvVars("MEDIATAG_DETECTOR_TIMEOUT"),
			Destination: &cfg.DetectorTimeout,
			Value:       cfg.DetectorTimeout,
			Usage:       "Request timeout for the remote detector",
		},
		&cli.Float64Flag{
			Name:        "detector-confidence",
			Category:    "Detection:",
			Sources:     cli.EnvVars("MEDIATAG_DETECTOR_CONFIDENCE"),
			Destination: &cfg.DetectorConfidence,
			Value:       cfg.DetectorConfidence,
			Usage:       "Minimum detection confidence forwarded to the remote detector",
		},

		// ── Monitoring ────────────────────────────────────────────
		&cli.StringFlag{
			Name:        "metrics-labels",
			Category:    "Monitoring:",
			Sources:     cli.EnvVars("MEDIATAG_METRICS_LABELS"),
			Destination: &cfg.MetricsLabels,
			Value:       "service=mediatag-service",
			Usage:       "Comma-separated key=value pairs added as constant labels to all Prometheus metrics. Supports ${VAR} expansion.",
		},
	}
}

func run(ctx context.Context, cfg config.Config) error {
	srv, err := StartServer(ctx, &cfg)
	if err != nil {
		return err
	}

	<-ctx.Done()
	log.Info("Shutting down...")

	drainCtx, drainCancel := context.WithTimeout(context.Background(), time.Duration(cfg.DrainTimeout)*time.Second)
	defer drainCancel()
	if err := srv.Shutdown(drainCtx); err != nil {
		log.Error("Shutdown error", "err", err)
	}
	log.Info("Server stopped")
	return nil
}

func maxBodySizeMiddleware(maxBodySize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodySize)
		c.Next()
	}
}
