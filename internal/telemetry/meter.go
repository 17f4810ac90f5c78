package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const (
	// DefaultMetricsInterval is the default push interval for OTLP metrics
	DefaultMetricsInterval = 60 * time.Second
)

// newMeterProvider creates a meter provider for the configured exporter, or a
// no-op provider when metrics are not enabled. When the exporter is
// Prometheus the collectors are registered with reg.
func newMeterProvider(
	ctx context.Context,
	settings providerSettings,
	mc *MetricsConfig,
	reg prometheus.Registerer,
) (metric.MeterProvider, error) {
	if mc == nil || !mc.Enabled {
		slog.Info("Metrics disabled, using no-op meter provider")
		return noop.NewMeterProvider(), nil
	}

	res, err := settings.resource(ctx)
	if err != nil {
		return nil, err
	}

	var reader sdkmetric.Reader
	switch mc.GetExporter() {
	case MetricsExporterPrometheus:
		if reg == nil {
			return nil, fmt.Errorf("prometheus exporter requires a registerer")
		}
		exporter, err := otelprom.New(otelprom.WithRegisterer(reg))
		if err != nil {
			return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
		}
		reader = exporter
	default:
		exporterOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(settings.endpoint)}
		if settings.insecure {
			exporterOpts = append(exporterOpts, otlpmetrichttp.WithInsecure())
		}
		exporter, err := otlpmetrichttp.New(ctx, exporterOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
		}
		reader = sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(DefaultMetricsInterval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp)

	slog.Info("Metrics initialized",
		"exporter", string(mc.GetExporter()),
		"endpoint", settings.endpoint,
	)
	return mp, nil
}
