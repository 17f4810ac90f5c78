package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Defaults(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	assert.Equal(t, DefaultServiceName, cfg.GetServiceName())
	assert.Equal(t, "unknown", cfg.GetServiceVersion())
	assert.Equal(t, DefaultEndpoint, cfg.GetEndpoint())

	cfg = &Config{ServiceName: "custom", ServiceVersion: "1.2.3", Endpoint: "otel:4318"}
	assert.Equal(t, "custom", cfg.GetServiceName())
	assert.Equal(t, "1.2.3", cfg.GetServiceVersion())
	assert.Equal(t, "otel:4318", cfg.GetEndpoint())

	assert.Equal(t, DefaultSampling, (&TracingConfig{}).GetSampling())
	assert.Equal(t, 0.5, (&TracingConfig{Sampling: 0.5}).GetSampling())
	assert.Equal(t, MetricsExporterOTLP, (&MetricsConfig{}).GetExporter())
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		config      *Config
		errContains string
	}{
		{
			name:   "nil config is valid",
			config: nil,
		},
		{
			name: "disabled config skips nested validation",
			config: &Config{
				Enabled: false,
				Tracing: &TracingConfig{Enabled: true, Sampling: 5},
			},
		},
		{
			name: "valid tracing and prometheus metrics",
			config: &Config{
				Enabled: true,
				Tracing: &TracingConfig{Enabled: true, Sampling: 1},
				Metrics: &MetricsConfig{Enabled: true, Exporter: MetricsExporterPrometheus},
			},
		},
		{
			name: "sampling out of range",
			config: &Config{
				Enabled: true,
				Tracing: &TracingConfig{Enabled: true, Sampling: 1.5},
			},
			errContains: "tracing: sampling must be between 0.0 and 1.0",
		},
		{
			name: "unknown exporter",
			config: &Config{
				Enabled: true,
				Metrics: &MetricsConfig{Enabled: true, Exporter: "statsd"},
			},
			errContains: `metrics: unsupported exporter "statsd"`,
		},
		{
			name: "both nested errors are joined",
			config: &Config{
				Enabled: true,
				Tracing: &TracingConfig{Enabled: true, Sampling: -1},
				Metrics: &MetricsConfig{Enabled: true, Exporter: "statsd"},
			},
			errContains: "metrics: unsupported exporter",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.config.Validate()
			if tt.errContains == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.errContains)
		})
	}
}

func TestConfig_PrometheusEnabled(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		config   *Config
		expected bool
	}{
		{name: "nil config", config: nil, expected: false},
		{name: "telemetry disabled", config: &Config{
			Metrics: &MetricsConfig{Enabled: true, Exporter: MetricsExporterPrometheus},
		}, expected: false},
		{name: "otlp exporter", config: &Config{
			Enabled: true,
			Metrics: &MetricsConfig{Enabled: true},
		}, expected: false},
		{name: "prometheus exporter", config: &Config{
			Enabled: true,
			Metrics: &MetricsConfig{Enabled: true, Exporter: MetricsExporterPrometheus},
		}, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.config.PrometheusEnabled())
		})
	}
}
