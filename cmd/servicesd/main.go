package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/hasbyte1/go-ircservices/account"
	"github.com/hasbyte1/go-ircservices/config"
	"github.com/hasbyte1/go-ircservices/internal/app"
)

const shutdownTimeout = 10 * time.Second

type metricsParams struct {
	fx.In
	fx.Lifecycle
	fx.Shutdowner

	Config   *config.Config
	Logger   *slog.Logger
	Registry *prometheus.Registry
}

func main() {
	path := pflag.StringP("config", "c", "", "path to the YAML configuration file")
	pflag.Parse()

	cfg, err := config.Load(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "servicesd: %v\n", err)
		os.Exit(1)
	}

	fx.New(
		fx.Supply(cfg),
		app.Module,
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger}
		}),
		fx.Invoke(
			startMetrics,
			announce,
		),
	).Run()
}

// announce forces the account service, and with it the credential stack, to
// be built before start.
func announce(lc fx.Lifecycle, _ *account.Service, cfg *config.Config, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			logger.Info("services ready",
				slog.String("scheme", cfg.Crypto.Scheme),
				slog.Any("legacy", cfg.Crypto.Legacy),
				slog.Int("workers", cfg.Crypto.Workers),
			)
			return nil
		},
	})
}

func startMetrics(params metricsParams) {
	if !params.Config.Metrics.Enabled {
		return
	}

	params.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(params.Registry, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              params.Config.Metrics.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	params.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return errors.Wrapf(err, "listen %s", srv.Addr)
			}
			params.Logger.Info("Starting metrics server", slog.String("hostPort", ln.Addr().String()))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					params.Logger.Error("Metrics server failed", slog.Any("error", err))

					// Trigger graceful shutdown to execute all OnStop hooks
					if shutdownErr := params.Shutdown(); shutdownErr != nil {
						params.Logger.Error("Failed to shutdown gracefully", slog.Any("error", shutdownErr))
						os.Exit(1)
					}
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()

			params.Logger.Info("Shutting down metrics server")

			return errors.WithStack(srv.Shutdown(shutdownCtx))
		},
	})
}
