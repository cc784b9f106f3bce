package tables

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/wildtrack/mediatag-service/internal/config"
	registrymigrate "github.com/wildtrack/mediatag-service/internal/registry/migrate"

	// Import plugins to trigger init() registration of their migrators.
	// Store plugins register their own migrators alongside their primary interface.
	_ "github.com/wildtrack/mediatag-service/internal/plugin/store/dynamo"
)

// Command returns the tables sub-command, which provisions the backend
// tables without starting the service.
func Command() *cli.Command {
	return &cli.Command{
		Name:  "tables",
		Usage: "Create the DynamoDB tables the service needs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "db-kind",
				Sources: cli.EnvVars("MEDIATAG_DB_KIND"),
				Usage:   "Store backend (dynamo|memory)",
				Value:   "dynamo",
			},
			&cli.StringFlag{
				Name:    "media-table",
				Sources: cli.EnvVars("MEDIATAG_MEDIA_TABLE"),
				Usage:   "DynamoDB table holding media records",
				Value:   config.DefaultConfig().MediaTableName,
			},
			&cli.StringFlag{
				Name:    "user-table",
				Sources: cli.EnvVars("MEDIATAG_USER_TABLE"),
				Usage:   "DynamoDB table holding user alert subscriptions",
				Value:   config.DefaultConfig().UserTableName,
			},
			&cli.StringFlag{
				Name:    "aws-region",
				Sources: cli.EnvVars("MEDIATAG_AWS_REGION"),
				Usage:   "AWS region",
			},
			&cli.StringFlag{
				Name:    "aws-endpoint",
				Sources: cli.EnvVars("MEDIATAG_AWS_ENDPOINT"),
				Usage:   "AWS endpoint override (LocalStack style)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := config.DefaultConfig()
			cfg.DatastoreType = cmd.String("db-kind")
			cfg.MediaTableName = cmd.String("media-table")
			cfg.UserTableName = cmd.String("user-table")
			cfg.AWSRegion = cmd.String("aws-region")
			cfg.AWSEndpoint = cmd.String("aws-endpoint")
			if err := cfg.ApplyLambdaCompatFromEnv(); err != nil {
				return err
			}
			ctx = config.WithContext(ctx, &cfg)

			log.Info("Provisioning tables...")
			if err := registrymigrate.RunAll(ctx); err != nil {
				return err
			}
			log.Info("All tables ready")
			return nil
		},
	}
}
