// Package app provides application lifecycle management for the refresh server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/stacklok/toolhive-refresh-server/internal/config"
)

// RefreshApp encapsulates all components needed to run the refresh API server
// It provides lifecycle management and graceful shutdown capabilities
type RefreshApp struct {
	config     *config.Config
	components *AppComponents
	httpServer *http.Server

	// Lifecycle management
	ctx        context.Context
	cancelFunc context.CancelFunc
	running    atomic.Bool
}

// Start starts the scheduler in the background and then the HTTP server.
// This method blocks until the HTTP server stops or encounters an error
func (app *RefreshApp) Start() error {
	go func() {
		app.running.Store(true)
		defer app.running.Store(false)
		if err := app.components.Scheduler.Start(app.ctx); err != nil {
			slog.Error("Refresh scheduler failed", "error", err)
		}
	}()

	slog.Info("Server listening", "address", app.httpServer.Addr)
	if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

// Stop gracefully stops the application with the given timeout.
// It stops the scheduler first so no refresh starts during HTTP shutdown.
func (app *RefreshApp) Stop(timeout time.Duration) error {
	slog.Info("Shutting down server...")

	if err := app.components.Scheduler.Stop(); err != nil {
		slog.Error("Failed to stop refresh scheduler", "error", err)
	}

	if app.cancelFunc != nil {
		app.cancelFunc()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("Server shutdown complete")
	return nil
}

// GetConfig returns the application configuration
func (app *RefreshApp) GetConfig() *config.Config {
	return app.config
}

// GetHTTPServer returns the HTTP server (useful for testing to get the actual port)
func (app *RefreshApp) GetHTTPServer() *http.Server {
	return app.httpServer
}

// Components returns the application components
func (app *RefreshApp) Components() *AppComponents {
	return app.components
}

func (app *RefreshApp) checkReadiness(context.Context) error {
	if !app.running.Load() {
		return fmt.Errorf("scheduler is not running")
	}
	return nil
}
