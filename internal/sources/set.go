package sources

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/stacklok/toolhive-refresh-server/internal/config"
	"github.com/stacklok/toolhive-refresh-server/internal/httpclient"
	"github.com/stacklok/toolhive-refresh-server/internal/subscription"
)

//go:generate mockgen -destination=mocks/mock_subscriber.go -package=mocks -source=set.go Subscriber

// Subscriber accepts topic registrations
type Subscriber interface {
	Subscribe(topic string, refresh subscription.RefreshFunc, opts ...subscription.Option)
}

// Set holds the sources of every configured topic in configuration order
type Set struct {
	sources map[string]*HTTPSource
	order   []string
}

// NewSet creates one HTTPSource per configured topic
func NewSet(topics []config.TopicConfig, client httpclient.Client) (*Set, error) {
	set := &Set{sources: make(map[string]*HTTPSource, len(topics))}

	var errs []error
	for _, topic := range topics {
		src, err := NewHTTPSource(topic, client)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := set.sources[src.Topic()]; dup {
			errs = append(errs, fmt.Errorf("duplicate topic %s", src.Topic()))
			continue
		}
		set.sources[src.Topic()] = src
		set.order = append(set.order, src.Topic())
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("failed to create topic sources: %w", err)
	}
	return set, nil
}

// Get returns the source of topic
func (s *Set) Get(topic string) (*HTTPSource, bool) {
	src, ok := s.sources[topic]
	return src, ok
}

// All returns every source in configuration order
func (s *Set) All() []*HTTPSource {
	result := make([]*HTTPSource, 0, len(s.order))
	for _, topic := range s.order {
		result = append(result, s.sources[topic])
	}
	return result
}

// Len returns the number of sources
func (s *Set) Len() int {
	return len(s.order)
}

// SetVisible updates the visibility of topic
func (s *Set) SetVisible(topic string, visible bool) error {
	src, ok := s.sources[topic]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}
	src.SetVisible(visible)
	return nil
}

// Register subscribes every source with sub
func (s *Set) Register(sub Subscriber) {
	for _, src := range s.All() {
		sub.Subscribe(src.Topic(), src.Refresh, src.SubscriptionOptions()...)
		slog.Info("Registered topic source",
			"topic", src.Topic(),
			"method", src.method,
			"url", src.url,
			"background", src.Background())
	}
}
