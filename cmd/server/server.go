package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Ponesicek/s4chat/internal/config"
	"github.com/Ponesicek/s4chat/internal/infrastructure/crontab"
	"github.com/Ponesicek/s4chat/internal/infrastructure/logger"
	"github.com/Ponesicek/s4chat/internal/infrastructure/mcp"
	"github.com/Ponesicek/s4chat/internal/infrastructure/observability"
	"github.com/Ponesicek/s4chat/internal/infrastructure/worker"
	"github.com/Ponesicek/s4chat/internal/interfaces/httpserver"
)

type Application struct {
	cfg        *config.Config
	httpServer *httpserver.HttpServer
	dispatcher *worker.Dispatcher
	crontab    *crontab.Crontab
	toolPool   *mcp.Pool
}

// Start runs every long-lived component until the context is cancelled or
// one of them fails.
func (application *Application) Start(ctx context.Context) error {
	log := logger.GetLogger()

	// Warm the tool pool off the critical path; generations that arrive
	// before it settles wait on the same initialization.
	go func() {
		if err := application.toolPool.EnsureInitialized(ctx); err != nil {
			log.Warn().Err(err).Msg("tool pool initialization failed")
		}
	}()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return application.dispatcher.Start(ctx)
	})
	group.Go(func() error {
		return application.crontab.Run(ctx)
	})
	group.Go(func() error {
		return application.httpServer.Run(ctx)
	})
	group.Go(func() error {
		return runMetricsServer(ctx, application.cfg, log)
	})

	return group.Wait()
}

// runMetricsServer exposes Prometheus metrics on a separate listener so the
// scrape endpoint never shares the public port.
func runMetricsServer(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("metrics server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logger.GetLogger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	otelShutdown, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("initialize observability")
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := otelShutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("shutdown telemetry")
			}
		}()
	}

	application, err := CreateApplication()
	if err != nil {
		log.Fatal().Err(err).Msg("create application")
	}

	dataInitializer, err := CreateDataInitializer()
	if err != nil {
		log.Fatal().Err(err).Msg("create data initializer")
	}
	if err := dataInitializer.Install(ctx); err != nil {
		log.Fatal().Err(err).Msg("install data")
	}

	if err := application.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("application stopped")
	}
	log.Info().Msg("shutdown complete")
}
