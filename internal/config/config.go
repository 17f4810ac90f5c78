// Package config provides configuration loading and management for the refresh server.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/stacklok/toolhive-refresh-server/internal/graph"
	"github.com/stacklok/toolhive-refresh-server/internal/telemetry"
)

const (
	// EnvPrefix is the prefix of every environment override
	EnvPrefix = "THV_REFRESH_"

	// DefaultConfigFile is the XDG-relative location searched when no path is given
	DefaultConfigFile = "thv-refresh/config.yaml"

	// DefaultTopicMethod is the HTTP method used to call a topic's refresh endpoint
	DefaultTopicMethod = http.MethodPost
)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path      string
	skipEnv   bool
	searchXDG bool
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		// Validate the path to prevent path traversal attacks
		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// WithoutEnv disables THV_REFRESH_* environment overrides
func WithoutEnv() Option {
	return func(cfg *loaderConfig) error {
		cfg.skipEnv = true
		return nil
	}
}

// WithXDGSearch looks for DefaultConfigFile in the XDG config directories
// when no explicit path is given
func WithXDGSearch() Option {
	return func(cfg *loaderConfig) error {
		cfg.searchXDG = true
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	Scheduler SchedulerConfig `yaml:"scheduler,omitempty" envPrefix:"SCHEDULER_"`

	// DependencyGraph maps a topic to the topics that go stale with it
	DependencyGraph map[string][]string `yaml:"dependencyGraph,omitempty"`

	// DependencyGraphFile is an optional HuJSON file merged over DependencyGraph.
	// Relative paths are resolved against the config file directory.
	DependencyGraphFile string `yaml:"dependencyGraphFile,omitempty" env:"DEPENDENCY_GRAPH_FILE"`

	ExternalTriggers ExternalTriggersConfig `yaml:"externalTriggers,omitempty" envPrefix:"EXTERNAL_TRIGGERS_"`

	Topics []TopicConfig `yaml:"topics,omitempty"`

	Telemetry telemetry.Config `yaml:"telemetry,omitempty" envPrefix:"TELEMETRY_"`
}

// SchedulerConfig holds the timing of the scheduler and the activity monitor.
// Values are Go duration strings; empty selects the built-in default.
type SchedulerConfig struct {
	BackgroundInterval   string `yaml:"backgroundInterval,omitempty" env:"BACKGROUND_INTERVAL"`
	InactivityThreshold  string `yaml:"inactivityThreshold,omitempty" env:"INACTIVITY_THRESHOLD"`
	ActivityRecompute    string `yaml:"activityRecompute,omitempty" env:"ACTIVITY_RECOMPUTE"`
	InterSubscriberDelay string `yaml:"interSubscriberDelay,omitempty" env:"INTER_SUBSCRIBER_DELAY"`
	ExternalPollTimeout  string `yaml:"externalPollTimeout,omitempty" env:"EXTERNAL_POLL_TIMEOUT"`
	QueueDelay           string `yaml:"queueDelay,omitempty" env:"QUEUE_DELAY"`
}

// ExternalTriggersConfig configures the remote trigger endpoint
type ExternalTriggersConfig struct {
	// Endpoint returns {success, triggers}. Empty disables the poller.
	Endpoint string `yaml:"endpoint,omitempty" env:"ENDPOINT"`
}

// TopicConfig declares a topic refreshed by calling a feature backend
type TopicConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`

	// Method defaults to POST
	Method string `yaml:"method,omitempty"`

	// Timeout bounds one refresh call, defaults to the HTTP client timeout
	Timeout string `yaml:"timeout,omitempty"`

	// Background controls participation in background passes, defaults to true
	Background *bool `yaml:"background,omitempty"`

	// Visible is the initial visibility, defaults to true
	Visible *bool `yaml:"visible,omitempty"`
}

// LoadConfig loads the configuration. The YAML file is read first, then
// environment overrides are applied, then the dependency graph file is merged.
// Without a file the built-in defaults are used.
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	if loaderCfg.path == "" && loaderCfg.searchXDG {
		if found, err := xdg.SearchConfigFile(DefaultConfigFile); err == nil {
			loaderCfg.path = found
		}
	}

	var config Config
	if loaderCfg.path != "" {
		data, err := os.ReadFile(loaderCfg.path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}

	if !loaderCfg.skipEnv {
		if err := env.ParseWithOptions(&config, env.Options{Prefix: EnvPrefix}); err != nil {
			return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
		}
	}

	if err := config.mergeGraphFile(filepath.Dir(loaderCfg.path)); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func (c *Config) mergeGraphFile(baseDir string) error {
	if c.DependencyGraphFile == "" {
		return nil
	}

	path := c.DependencyGraphFile
	if !filepath.IsAbs(path) && baseDir != "" {
		path = filepath.Join(baseDir, path)
	}

	fromFile, err := graph.LoadFile(path)
	if err != nil {
		return err
	}
	c.DependencyGraph = graph.New(c.DependencyGraph).Merge(fromFile).Table()
	return nil
}

// Graph returns the configured dependency graph, or the built-in graph when
// none is configured
func (c *Config) Graph() *graph.Graph {
	if len(c.DependencyGraph) == 0 {
		return graph.Default()
	}
	return graph.New(c.DependencyGraph)
}

// Validate checks the whole configuration and reports every problem found
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	var errs []error
	errs = append(errs, c.Scheduler.validate()...)

	for source, dependents := range c.DependencyGraph {
		if strings.TrimSpace(source) == "" {
			errs = append(errs, fmt.Errorf("dependencyGraph: source topic cannot be empty"))
		}
		for i, dep := range dependents {
			if strings.TrimSpace(dep) == "" {
				errs = append(errs, fmt.Errorf("dependencyGraph[%s][%d]: topic cannot be empty", source, i))
			}
		}
	}

	if c.ExternalTriggers.Endpoint != "" {
		if err := validateURL(c.ExternalTriggers.Endpoint); err != nil {
			errs = append(errs, fmt.Errorf("externalTriggers.endpoint: %w", err))
		}
	}

	names := make(map[string]bool)
	for i, topic := range c.Topics {
		if topic.Name != "" {
			if names[topic.Name] {
				errs = append(errs, fmt.Errorf("topics[%d]: duplicate topic name '%s'", i, topic.Name))
			}
			names[topic.Name] = true
		}
		if err := topic.validate(); err != nil {
			errs = append(errs, fmt.Errorf("topics[%d]: %w", i, err))
		}
	}

	if err := c.Telemetry.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("telemetry: %w", err))
	}

	return errors.Join(errs...)
}

func (s SchedulerConfig) validate() []error {
	fields := []struct {
		name  string
		value string
	}{
		{"backgroundInterval", s.BackgroundInterval},
		{"inactivityThreshold", s.InactivityThreshold},
		{"activityRecompute", s.ActivityRecompute},
		{"interSubscriberDelay", s.InterSubscriberDelay},
		{"externalPollTimeout", s.ExternalPollTimeout},
		{"queueDelay", s.QueueDelay},
	}

	var errs []error
	for _, f := range fields {
		if err := validateDuration(f.value); err != nil {
			errs = append(errs, fmt.Errorf("scheduler.%s: %w", f.name, err))
		}
	}
	return errs
}

func (t TopicConfig) validate() error {
	var errs []error
	if t.Name == "" {
		errs = append(errs, fmt.Errorf("name is required"))
	}
	if t.URL == "" {
		errs = append(errs, fmt.Errorf("url is required"))
	} else if err := validateURL(t.URL); err != nil {
		errs = append(errs, fmt.Errorf("url: %w", err))
	}

	switch t.GetMethod() {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		errs = append(errs, fmt.Errorf("unsupported method %q", t.Method))
	}

	if err := validateDuration(t.Timeout); err != nil {
		errs = append(errs, fmt.Errorf("timeout: %w", err))
	}
	return errors.Join(errs...)
}

func validateDuration(value string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("must be a valid duration (e.g., '500ms', '10m'): %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("must be positive, got %s", value)
	}
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}

// parseDuration returns zero for empty or invalid values; Validate reports the latter
func parseDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

// GetBackgroundInterval returns the background pass cadence, zero when unset
func (s SchedulerConfig) GetBackgroundInterval() time.Duration {
	return parseDuration(s.BackgroundInterval)
}

// GetInactivityThreshold returns the idle cutoff, zero when unset
func (s SchedulerConfig) GetInactivityThreshold() time.Duration {
	return parseDuration(s.InactivityThreshold)
}

// GetActivityRecompute returns the activity recompute cadence, zero when unset
func (s SchedulerConfig) GetActivityRecompute() time.Duration {
	return parseDuration(s.ActivityRecompute)
}

// GetInterSubscriberDelay returns the gap between callbacks, zero when unset
func (s SchedulerConfig) GetInterSubscriberDelay() time.Duration {
	return parseDuration(s.InterSubscriberDelay)
}

// GetExternalPollTimeout returns the trigger request timeout, zero when unset
func (s SchedulerConfig) GetExternalPollTimeout() time.Duration {
	return parseDuration(s.ExternalPollTimeout)
}

// GetQueueDelay returns the debounce window, zero when unset
func (s SchedulerConfig) GetQueueDelay() time.Duration {
	return parseDuration(s.QueueDelay)
}

// GetMethod returns the upper-cased method, using POST if not specified
func (t TopicConfig) GetMethod() string {
	if t.Method == "" {
		return DefaultTopicMethod
	}
	return strings.ToUpper(t.Method)
}

// GetTimeout returns the per-call timeout, zero when unset
func (t TopicConfig) GetTimeout() time.Duration {
	return parseDuration(t.Timeout)
}

// IsBackground reports whether the topic joins background passes
func (t TopicConfig) IsBackground() bool {
	return t.Background == nil || *t.Background
}

// IsVisible reports the initial visibility of the topic
func (t TopicConfig) IsVisible() bool {
	return t.Visible == nil || *t.Visible
}
