// Package subscription keeps track of the topics features want refreshed.
//
// A Registry maps a topic name to exactly one Subscription. Subscribing to a
// topic that is already registered replaces the previous subscription (last
// writer wins) while keeping the topic's original position, so iteration over
// Entries is always in first-registration order.
package subscription

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// RefreshFunc re-fetches the data behind a topic. It is owned by the caller
// and is only ever invoked by the scheduler.
type RefreshFunc func(ctx context.Context) error

// VisibilityFunc reports whether the component backing a topic is currently
// visible. It is polled right before a refresh and must be cheap and free of
// side effects.
type VisibilityFunc func() bool

// Subscription is one feature's registration for a topic.
type Subscription struct {
	// Topic is the unique key of the subscription
	Topic string

	// Refresh is invoked by the scheduler
	Refresh RefreshFunc

	// Background controls whether the topic takes part in background passes
	Background bool

	// Visible is consulted before background and visible-only refreshes
	Visible VisibilityFunc

	// lastRefreshedAt is only written by the registry under its lock
	lastRefreshedAt time.Time
}

// IsVisible evaluates the visibility predicate. A missing predicate means the
// topic is always visible.
func (s *Subscription) IsVisible() bool {
	if s.Visible == nil {
		return true
	}
	return s.Visible()
}

// Option configures a Subscription
type Option func(*Subscription)

// WithBackgroundRefresh sets whether the subscription participates in
// background passes. Defaults to true.
func WithBackgroundRefresh(enabled bool) Option {
	return func(s *Subscription) {
		s.Background = enabled
	}
}

// WithVisibility sets the visibility predicate. Defaults to always visible.
func WithVisibility(fn VisibilityFunc) Option {
	return func(s *Subscription) {
		s.Visible = fn
	}
}

// Registry stores subscriptions keyed by topic. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Subscription
	order   []string
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*Subscription),
	}
}

// Subscribe stores the subscription for topic, replacing any previous one.
// A nil refresh function is rejected and logged.
func (r *Registry) Subscribe(topic string, refresh RefreshFunc, opts ...Option) {
	if refresh == nil {
		slog.Error("Ignoring subscription without refresh function", "topic", topic)
		return
	}

	sub := &Subscription{
		Topic:      topic,
		Refresh:    refresh,
		Background: true,
	}
	for _, opt := range opts {
		opt(sub)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[topic]; !exists {
		r.order = append(r.order, topic)
	}
	r.entries[topic] = sub
}

// Unsubscribe removes the subscription for topic. It is a no-op if the topic
// is not registered.
func (r *Registry) Unsubscribe(topic string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[topic]; !exists {
		return
	}
	delete(r.entries, topic)
	for i, t := range r.order {
		if t == topic {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Get returns the current subscription for topic
func (r *Registry) Get(topic string) (*Subscription, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sub, ok := r.entries[topic]
	return sub, ok
}

// Entries returns a snapshot of all subscriptions in registration order.
// Later changes to the registry do not affect the returned slice.
func (r *Registry) Entries() []*Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Subscription, 0, len(r.order))
	for _, topic := range r.order {
		result = append(result, r.entries[topic])
	}
	return result
}

// Topics returns the registered topic names in registration order
func (r *Registry) Topics() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]string, len(r.order))
	copy(result, r.order)
	return result
}

// Len returns the number of registered topics
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// MarkRefreshed records a refresh attempt for sub. The timestamp is dropped
// when sub is no longer the registered subscription for its topic, so late
// completions after an unsubscribe or replacement have no effect.
func (r *Registry) MarkRefreshed(sub *Subscription, at time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.entries[sub.Topic]
	if !ok || current != sub {
		return false
	}
	current.lastRefreshedAt = at
	return true
}

// LastRefreshed returns the time of the last refresh attempt for topic. The
// zero time means the topic was never refreshed.
func (r *Registry) LastRefreshed(topic string) (time.Time, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sub, ok := r.entries[topic]
	if !ok {
		return time.Time{}, false
	}
	return sub.lastRefreshedAt, true
}

// Clear drops every subscription
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = make(map[string]*Subscription)
	r.order = nil
}
