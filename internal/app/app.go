// Package app wires the HTTP server and the scheduler into one supervised
// lifecycle with graceful shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// App supervises the webhook server and the maintenance scheduler.
type App struct {
	logger          *slog.Logger
	server          *http.Server
	scheduler       *Scheduler
	shutdownTimeout time.Duration
}

// New creates the application supervisor.
func New(logger *slog.Logger, server *http.Server, scheduler *Scheduler, shutdownTimeout time.Duration) *App {
	return &App{
		logger:          logger.With("component", "app"),
		server:          server,
		scheduler:       scheduler,
		shutdownTimeout: shutdownTimeout,
	}
}

// Run starts both components and blocks until the context is cancelled or a
// component fails. The HTTP server gets a bounded graceful shutdown window.
func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("Starting webhook server", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("webhook server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.logger.Info("Shutting down webhook server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("Webhook server shutdown error", "error", err)
			return fmt.Errorf("webhook server shutdown failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := a.scheduler.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()
		a.logger.Info("Shutdown signal received, stopping scheduler")
		if err := a.scheduler.Stop(); err != nil {
			a.logger.Error("Error stopping scheduler", "error", err)
		}
		return nil
	})

	a.logger.Info("Application running, waiting for shutdown signal or error")
	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Error("Application stopped due to error", "error", err)
		return err
	}

	a.logger.Info("Application stopped gracefully")
	return nil
}
