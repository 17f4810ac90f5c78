package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// RefreshMetricsMeterName is the name used for the refresh scheduler meter
	RefreshMetricsMeterName = "github.com/stacklok/toolhive-refresh-server/refresh"
)

// RefreshMetrics holds the OpenTelemetry instruments for the refresh scheduler.
// A nil *RefreshMetrics is valid and records nothing.
type RefreshMetrics struct {
	callbackDuration metric.Float64Histogram
	ticksSkipped     metric.Int64Counter
	passes           metric.Int64Counter
	externalTriggers metric.Int64Counter
}

// NewRefreshMetrics creates a new RefreshMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewRefreshMetrics(provider metric.MeterProvider) (*RefreshMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(RefreshMetricsMeterName)

	callbackDuration, err := meter.Float64Histogram(
		"thv_refresh_callback_duration_seconds",
		metric.WithDescription("Duration of topic refresh callbacks in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30),
	)
	if err != nil {
		return nil, err
	}

	ticksSkipped, err := meter.Int64Counter(
		"thv_refresh_ticks_skipped_total",
		metric.WithDescription("Background ticks that did not start a pass"),
		metric.WithUnit("{tick}"),
	)
	if err != nil {
		return nil, err
	}

	passes, err := meter.Int64Counter(
		"thv_refresh_passes_total",
		metric.WithDescription("Completed background passes"),
		metric.WithUnit("{pass}"),
	)
	if err != nil {
		return nil, err
	}

	externalTriggers, err := meter.Int64Counter(
		"thv_refresh_external_triggers_total",
		metric.WithDescription("Server-declared triggers fanned out to topics"),
		metric.WithUnit("{trigger}"),
	)
	if err != nil {
		return nil, err
	}

	return &RefreshMetrics{
		callbackDuration: callbackDuration,
		ticksSkipped:     ticksSkipped,
		passes:           passes,
		externalTriggers: externalTriggers,
	}, nil
}

// RecordRefresh records one refresh callback invocation
func (m *RefreshMetrics) RecordRefresh(ctx context.Context, topic string, duration time.Duration, success bool) {
	if m == nil {
		return
	}
	m.callbackDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("topic", topic),
		attribute.Bool("success", success),
	))
}

// RecordTickSkipped counts a background tick that was skipped for reason
func (m *RefreshMetrics) RecordTickSkipped(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.ticksSkipped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordPass counts a finished background pass and how many callbacks it ran
func (m *RefreshMetrics) RecordPass(ctx context.Context, invoked int) {
	if m == nil {
		return
	}
	m.passes.Add(ctx, 1, metric.WithAttributes(attribute.Bool("invoked_any", invoked > 0)))
}

// RecordExternalTrigger counts a fanned-out trigger by descriptor type
func (m *RefreshMetrics) RecordExternalTrigger(ctx context.Context, triggerType string) {
	if m == nil {
		return
	}
	m.externalTriggers.Add(ctx, 1, metric.WithAttributes(attribute.String("type", triggerType)))
}
