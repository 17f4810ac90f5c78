package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"k8s.io/utils/clock"

	"github.com/stacklok/toolhive-refresh-server/internal/activity"
	"github.com/stacklok/toolhive-refresh-server/internal/api"
	v1 "github.com/stacklok/toolhive-refresh-server/internal/api/v1"
	"github.com/stacklok/toolhive-refresh-server/internal/config"
	"github.com/stacklok/toolhive-refresh-server/internal/httpclient"
	"github.com/stacklok/toolhive-refresh-server/internal/scheduler"
	"github.com/stacklok/toolhive-refresh-server/internal/sources"
	"github.com/stacklok/toolhive-refresh-server/internal/telemetry"
	"github.com/stacklok/toolhive-refresh-server/internal/trigger"
)

const (
	defaultHTTPAddress    = ":8080"
	defaultRequestTimeout = 30 * time.Second
	defaultReadTimeout    = 10 * time.Second
	defaultWriteTimeout   = 45 * time.Second
	defaultIdleTimeout    = 60 * time.Second
)

// RefreshAppOptions is a function that configures the refresh app builder
type RefreshAppOptions func(*refreshAppConfig) error

// refreshAppConfig collects everything needed to build a RefreshApp.
// Optional overrides exist primarily for testing.
type refreshAppConfig struct {
	config *config.Config

	httpClient httpclient.Client
	clock      clock.WithTickerAndDelayedExecution

	// HTTP server options
	address        string
	middlewares    []func(http.Handler) http.Handler
	requestTimeout time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration
	idleTimeout    time.Duration

	// Telemetry components
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
	metricsHandler http.Handler
}

func baseConfig(opts ...RefreshAppOptions) (*refreshAppConfig, error) {
	cfg := &refreshAppConfig{
		address:        defaultHTTPAddress,
		requestTimeout: defaultRequestTimeout,
		readTimeout:    defaultReadTimeout,
		writeTimeout:   defaultWriteTimeout,
		idleTimeout:    defaultIdleTimeout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// NewRefreshApp builds the scheduler, its collaborators and the HTTP server
func NewRefreshApp(
	ctx context.Context,
	opts ...RefreshAppOptions,
) (*RefreshApp, error) {
	cfg, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}
	if cfg.config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.httpClient == nil {
		cfg.httpClient = httpclient.NewDefaultClient(0)
	}

	components, err := buildSchedulerComponents(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build scheduler components: %w", err)
	}

	app := &RefreshApp{
		config:     cfg.config,
		components: components,
	}

	httpServer, err := buildHTTPServer(ctx, cfg, components, app.checkReadiness)
	if err != nil {
		return nil, fmt.Errorf("failed to build HTTP server: %w", err)
	}
	app.httpServer = httpServer

	app.ctx, app.cancelFunc = context.WithCancel(ctx)
	return app, nil
}

// WithConfig sets the configuration
func WithConfig(c *config.Config) RefreshAppOptions {
	return func(cfg *refreshAppConfig) error {
		cfg.config = c
		return nil
	}
}

// WithAddress sets the HTTP server address
func WithAddress(addr string) RefreshAppOptions {
	return func(cfg *refreshAppConfig) error {
		if addr == "" {
			return fmt.Errorf("address cannot be empty")
		}

		host, port, found := strings.Cut(addr, ":")
		if !found || port == "" {
			return fmt.Errorf("address is not a valid port: %s", addr)
		}
		if host == "localhost" {
			host = "127.0.0.1"
		}
		if host == "" {
			host = "0.0.0.0"
		}

		if _, err := netip.ParseAddrPort(host + ":" + port); err != nil {
			return fmt.Errorf("address is not a valid port: %w", err)
		}

		cfg.address = addr
		return nil
	}
}

// WithMiddlewares replaces the default HTTP middlewares
func WithMiddlewares(mw ...func(http.Handler) http.Handler) RefreshAppOptions {
	return func(cfg *refreshAppConfig) error {
		cfg.middlewares = mw
		return nil
	}
}

// WithHTTPClient sets the client used for topic sources and the trigger poller
func WithHTTPClient(c httpclient.Client) RefreshAppOptions {
	return func(cfg *refreshAppConfig) error {
		cfg.httpClient = c
		return nil
	}
}

// WithClock sets the clock of the scheduler and the activity monitor (for testing)
func WithClock(c clock.WithTickerAndDelayedExecution) RefreshAppOptions {
	return func(cfg *refreshAppConfig) error {
		cfg.clock = c
		return nil
	}
}

// WithMeterProvider sets the OpenTelemetry meter provider for scheduler and HTTP metrics
func WithMeterProvider(mp metric.MeterProvider) RefreshAppOptions {
	return func(cfg *refreshAppConfig) error {
		cfg.meterProvider = mp
		return nil
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider for refresh and HTTP spans
func WithTracerProvider(tp trace.TracerProvider) RefreshAppOptions {
	return func(cfg *refreshAppConfig) error {
		cfg.tracerProvider = tp
		return nil
	}
}

// WithMetricsHandler mounts a Prometheus scrape handler at /metrics
func WithMetricsHandler(h http.Handler) RefreshAppOptions {
	return func(cfg *refreshAppConfig) error {
		cfg.metricsHandler = h
		return nil
	}
}

// buildSchedulerComponents builds the activity monitor, scheduler, poller and sources
func buildSchedulerComponents(
	_ context.Context,
	b *refreshAppConfig,
) (*AppComponents, error) {
	slog.Info("Initializing scheduler components")

	timing := b.config.Scheduler

	monitorOpts := []activity.Option{
		activity.WithInactivityThreshold(timing.GetInactivityThreshold()),
		activity.WithRecomputeInterval(timing.GetActivityRecompute()),
	}
	var schedOpts []scheduler.Option
	if b.clock != nil {
		monitorOpts = append(monitorOpts, activity.WithClock(b.clock))
		schedOpts = append(schedOpts, scheduler.WithClock(b.clock))
	}
	monitor := activity.NewMonitor(monitorOpts...)

	refreshMetrics, err := telemetry.NewRefreshMetrics(b.meterProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh metrics: %w", err)
	}
	if refreshMetrics != nil {
		schedOpts = append(schedOpts, scheduler.WithRefreshMetrics(refreshMetrics))
		slog.Info("Refresh metrics enabled")
	}
	if b.tracerProvider != nil {
		schedOpts = append(schedOpts, scheduler.WithTracerProvider(b.tracerProvider))
	}

	var poller *trigger.Poller
	if endpoint := b.config.ExternalTriggers.Endpoint; endpoint != "" {
		poller, err = trigger.NewPoller(endpoint, b.httpClient, monitor,
			trigger.WithTimeout(timing.GetExternalPollTimeout()),
			trigger.WithMetrics(refreshMetrics),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create external trigger poller: %w", err)
		}
		schedOpts = append(schedOpts, scheduler.WithExternalPoller(poller))
		slog.Info("External trigger poller enabled", "endpoint", endpoint)
	}

	sched := scheduler.New(monitor, b.config.Graph(), scheduler.Config{
		BackgroundInterval:   timing.GetBackgroundInterval(),
		InterSubscriberDelay: timing.GetInterSubscriberDelay(),
		QueueDelay:           timing.GetQueueDelay(),
	}, schedOpts...)

	topicSources, err := sources.NewSet(b.config.Topics, b.httpClient)
	if err != nil {
		return nil, err
	}
	topicSources.Register(sched)

	slog.Info("Scheduler components initialized successfully",
		"topics", topicSources.Len(),
		"graph_sources", len(sched.Graph().Sources()))

	return &AppComponents{
		Scheduler: sched,
		Monitor:   monitor,
		Poller:    poller,
		Sources:   topicSources,
	}, nil
}

// buildHTTPServer builds the HTTP server with router and middleware
//
//nolint:unparam // we prefer having a similar interface
func buildHTTPServer(
	_ context.Context,
	b *refreshAppConfig,
	components *AppComponents,
	readiness api.ReadinessChecker,
) (*http.Server, error) {
	slog.Info("Initializing HTTP server")

	if b.middlewares == nil {
		b.middlewares = []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			middleware.Timeout(b.requestTimeout),
			api.LoggingMiddleware,
		}
	}

	// Telemetry middlewares go first to capture every request
	var telemetryMiddlewares []func(http.Handler) http.Handler
	if b.tracerProvider != nil {
		telemetryMiddlewares = append(telemetryMiddlewares, telemetry.TracingMiddleware(b.tracerProvider))
	}
	httpMetrics, err := telemetry.NewHTTPMetrics(b.meterProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP metrics: %w", err)
	}
	if httpMetrics != nil {
		telemetryMiddlewares = append(telemetryMiddlewares, httpMetrics.Middleware)
		slog.Info("HTTP metrics middleware enabled")
	}
	middlewares := append(telemetryMiddlewares, b.middlewares...)

	routes := v1.NewRoutes(components.Scheduler, components.Monitor, components.Sources)
	router := api.NewServer(routes,
		api.WithMiddlewares(middlewares...),
		api.WithMetricsHandler(b.metricsHandler),
		api.WithReadinessCheck(readiness),
	)

	server := &http.Server{
		Addr:         b.address,
		Handler:      router,
		ReadTimeout:  b.readTimeout,
		WriteTimeout: b.writeTimeout,
		IdleTimeout:  b.idleTimeout,
	}

	slog.Info("HTTP server configured", "address", b.address)
	return server, nil
}
