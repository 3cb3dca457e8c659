package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/sieve/internal/cli"
	"github.com/aretw0/sieve/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP validation server",
	Long: `Serves the validation API over HTTP: schema listing and description, OpenAPI
export, validation, and a server-sent event stream of schema changes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		setup, cfg, logger, err := setupEngine(cmd)
		if err != nil {
			return err
		}
		defer setup.Close()

		tui.PrintBanner(cmd.ErrOrStderr())

		// Create a context that cancels on interrupt signal
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return cli.Serve(ctx, setup, cfg.Port, cfg.Watch, logger)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on (env SIEVE_PORT)")
	serveCmd.Flags().Bool("watch", false, "Recompile schemas when the source changes (env SIEVE_WATCH)")
	serveCmd.Flags().Bool("metrics", false, "Expose Prometheus metrics on /metrics (env SIEVE_METRICS)")
}
