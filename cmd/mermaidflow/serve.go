package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/mermaidflow/internal/app"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the editing API over HTTP",
	Long: `Starts the HTTP API. Sessions, diagram storage, export and a
Server-Sent Events stream are served under /api; Prometheus metrics under
/metrics. The configuration file, when given, is watched for changes.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if serveAddr != "" {
			cfg.Server.Addr = serveAddr
		}

		ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := app.New(ctx, cfg, app.Options{Logger: logger, Level: level})
		if err != nil {
			return err
		}
		defer func() {
			if err := a.Shutdown(); err != nil {
				logger.Warn("shutdown", zap.Error(err))
			}
		}()

		return a.Serve(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "Listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}

// commandContext returns cmd's context or Background.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
