package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/wildtrack/mediatag-service/internal/cmd/serve"
	"github.com/wildtrack/mediatag-service/internal/cmd/tables"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "mediatag-service",
		Usage: "Media tagging and alert service",
		Commands: []*cli.Command{
			serve.Command(),
			tables.Command(),
		},
	}
	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
