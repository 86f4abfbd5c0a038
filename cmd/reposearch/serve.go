package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/reposearch/internal/metrics"
	chiTransport "github.com/kailas-cloud/reposearch/internal/transport/chi"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	var ensureIndex bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			if ensureIndex {
				if err := a.repo.EnsureIndex(ctx); err != nil {
					return fmt.Errorf("ensure index: %w", err)
				}
			}
			return serve(ctx, a)
		},
	}
	cmd.Flags().BoolVar(&ensureIndex, "ensure-index", true, "create the search index on startup if missing")
	return cmd
}

func newRouter(a *app) http.Handler {
	server := chiTransport.NewServer(a.search, a.recommend, a.health, a.cfg.Recommend.DefaultLimit)

	r := chi.NewRouter()
	r.Use(chiTransport.RecoverMiddleware(a.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(chiTransport.RequestLogMiddleware(a.logger))
	r.Use(chiTransport.BearerAuthMiddleware(a.cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Mount(r)
	return r
}

func serve(ctx context.Context, a *app) error {
	addr := fmt.Sprintf(":%d", a.cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      newRouter(a),
		ReadTimeout:  time.Duration(a.cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(a.cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		a.logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(a.cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Error during shutdown", zap.Error(err))
		return err
	}
	a.logger.Info("Server stopped gracefully")
	return nil
}
