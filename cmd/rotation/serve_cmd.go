package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"github.com/iota-uz/lead-rotation/pkg/logging"
	"github.com/iota-uz/lead-rotation/pkg/metrics"
	"github.com/iota-uz/lead-rotation/pkg/middleware"
	"github.com/iota-uz/lead-rotation/pkg/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the rotation JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx)
		},
	}
}

func runServe(ctx context.Context) error {
	rt, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	conf := rt.conf
	if conf.OpenTelemetry.Enabled {
		cleanup, err := logging.SetupTracing(ctx, conf.OpenTelemetry.ServiceName, conf.OpenTelemetry.TempoURL)
		if err != nil {
			return errors.Wrap(err, "setup tracing")
		}
		defer cleanup()
		rt.logger.Info("OpenTelemetry tracing enabled, exporting to Tempo at " + conf.OpenTelemetry.TempoURL)
	}

	rt.app.RegisterMiddleware(
		middleware.WithLogger(rt.logger, conf),
		middleware.ProvidePool(rt.pool),
		middleware.WithTenant(conf),
	)
	if conf.Prometheus.Enabled {
		rt.app.RegisterControllers(metrics.NewPrometheusController(conf.Prometheus.Path))
	}

	rt.logger.WithField("address", conf.SocketAddress).Info("rotation API listening")
	if err := server.NewHTTPServer(rt.app).Start(ctx, conf.SocketAddress); err != nil {
		return errors.Wrap(err, "serve")
	}
	return nil
}
