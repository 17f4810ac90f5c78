package helpers

import (
	"os"
	"path/filepath"

	"github.com/onsi/gomega"
	"gopkg.in/yaml.v3"

	"github.com/stacklok/toolhive-refresh-server/internal/config"
)

// TopicOptions declares one topic served by the mock backend
type TopicOptions struct {
	Name       string
	Background *bool
	Visible    *bool
}

// ConfigOptions holds the parts of the configuration the tests vary
type ConfigOptions struct {
	Scheduler        config.SchedulerConfig
	DependencyGraph  map[string][]string
	ExternalTriggers bool
	Topics           []TopicOptions
}

// BoolPtr returns a pointer to v
func BoolPtr(v bool) *bool {
	return &v
}

// FastScheduler returns timings short enough for integration tests
func FastScheduler() config.SchedulerConfig {
	return config.SchedulerConfig{
		BackgroundInterval:   "300ms",
		InactivityThreshold:  "1m",
		ActivityRecompute:    "50ms",
		InterSubscriberDelay: "10ms",
		ExternalPollTimeout:  "1s",
		QueueDelay:           "200ms",
	}
}

// WriteConfigYAML writes a configuration file whose topics point at backend
// and returns its path
func WriteConfigYAML(dir string, backend *MockBackend, opts ConfigOptions) string {
	cfg := config.Config{
		Scheduler:       opts.Scheduler,
		DependencyGraph: opts.DependencyGraph,
	}
	if opts.ExternalTriggers {
		cfg.ExternalTriggers.Endpoint = backend.TriggersURL()
	}
	for _, t := range opts.Topics {
		cfg.Topics = append(cfg.Topics, config.TopicConfig{
			Name:       t.Name,
			URL:        backend.TopicURL(t.Name),
			Timeout:    "2s",
			Background: t.Background,
			Visible:    t.Visible,
		})
	}

	data, err := yaml.Marshal(&cfg)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())

	path := filepath.Join(dir, "config.yaml")
	gomega.Expect(os.WriteFile(path, data, 0600)).To(gomega.Succeed())
	return path
}
