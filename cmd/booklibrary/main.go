// Command booklibrary serves the book catalog API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/goliatone/go-book-catalog/config"
	"github.com/goliatone/go-book-catalog/pkg/di"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
)

var version = "dev"

func main() {
	envFiles := flag.String("env", ".env,.env.local", "Comma separated .env files to load")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, strings.Split(*envFiles, ",")); err != nil {
		fmt.Fprintf(os.Stderr, "booklibrary: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, envFiles []string) error {
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := cfg.Log.NewLogger(os.Stderr)

	tel, err := setupTelemetry(ctx, cfg.Telemetry, version)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown failed", "error", err)
		}
	}()

	container, err := di.NewContainer(cfg,
		di.WithLogger(logger),
		di.WithMeter(otel.Meter("github.com/goliatone/go-book-catalog")),
		di.WithTracer(otel.Tracer("github.com/goliatone/go-book-catalog")),
	)
	if err != nil {
		return fmt.Errorf("wire: %w", err)
	}
	defer func() {
		if err := container.Close(); err != nil {
			logger.Error("close failed", "error", err)
		}
	}()

	if err := container.Prepare(ctx); err != nil {
		return fmt.Errorf("prepare storage: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("/", container.Handler())

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			"addr", cfg.HTTP.Addr,
			"db_driver", cfg.DB.Driver,
			"cache_backend", string(cfg.Cache.Backend),
			"version", version,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
