// cmd/tracklift/serve.go
package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tracklift/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := buildApp(true)
		if err != nil {
			return err
		}
		defer app.close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		srv := server.New(app.cfg.Server, app.scraper, app.aggregator, app.store, app.logger, app.registry)
		return srv.Run(ctx)
	},
}
