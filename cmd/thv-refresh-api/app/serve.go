package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	refreshapp "github.com/stacklok/toolhive-refresh-server/internal/app"
	"github.com/stacklok/toolhive-refresh-server/internal/config"
	"github.com/stacklok/toolhive-refresh-server/internal/telemetry"
)

const (
	defaultGracefulTimeout = 30 * time.Second // Kubernetes-friendly shutdown time
	telemetryFlushTimeout  = 5 * time.Second
)

// errLockHeld is returned when another instance owns the lock file
var errLockHeld = errors.New("another instance holds the lock")

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the refresh API server",
		Long: `Start the refresh API server.

The configuration file (--config) declares:
- Scheduler timings (background interval, inactivity threshold, delays)
- The dependency graph used for related refreshes
- The external trigger endpoint polled on every background tick
- The topics and the backend endpoints that refresh them

Without --config the file is searched at $XDG_CONFIG_HOME/thv-refresh/config.yaml,
and built-in defaults are used when it does not exist.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), v)
		},
	}

	cmd.Flags().String("address", ":8080", "Address to listen on")
	cmd.Flags().String("config", "", "Path to configuration file (YAML format)")
	cmd.Flags().String("lock-file", "", "Path of a lock file that prevents running two servers at once")

	for _, name := range []string{"address", "config", "lock-file"} {
		if err := v.BindPFlag(name, cmd.Flags().Lookup(name)); err != nil {
			slog.Error("Failed to bind flag", "flag", name, "error", err)
		}
	}

	return cmd
}

// loadConfig loads the configuration from path, or from the XDG config
// directory when no path is given
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadConfig(config.WithConfigPath(path))
	}
	return config.LoadConfig(config.WithXDGSearch())
}

// acquireLock takes the single-instance lock. It returns nil when path is empty.
func acquireLock(path string) (*flock.Flock, error) {
	if path == "" {
		return nil, nil
	}

	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock file %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", errLockHeld, path)
	}
	return lock, nil
}

func runServe(ctx context.Context, v *viper.Viper) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	address := v.GetString("address")
	configPath := v.GetString("config")

	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	slog.Info("Loaded configuration",
		"path", configPath,
		"topics", len(cfg.Topics),
		"external_triggers", cfg.ExternalTriggers.Endpoint != "")

	lock, err := acquireLock(v.GetString("lock-file"))
	if err != nil {
		return err
	}
	if lock != nil {
		defer func() {
			if err := lock.Unlock(); err != nil {
				slog.Error("Failed to release lock file", "path", lock.Path(), "error", err)
			}
		}()
	}

	tel, err := telemetry.New(ctx, telemetry.WithTelemetryConfig(&cfg.Telemetry))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), telemetryFlushTimeout)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shutdown telemetry", "error", err)
		}
	}()

	opts := []refreshapp.RefreshAppOptions{
		refreshapp.WithConfig(cfg),
		refreshapp.WithAddress(address),
		refreshapp.WithMeterProvider(tel.MeterProvider()),
		refreshapp.WithTracerProvider(tel.TracerProvider()),
	}
	if handler := tel.MetricsHandler(); handler != nil {
		opts = append(opts, refreshapp.WithMetricsHandler(handler))
	}

	app, err := refreshapp.NewRefreshApp(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to build refresh app: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(app.Start)
	g.Go(func() error {
		<-gctx.Done()
		return app.Stop(defaultGracefulTimeout)
	})

	return g.Wait()
}
