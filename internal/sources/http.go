// Package sources provides refresh callbacks for topics declared in the
// configuration file.
//
// Each configured topic is backed by an HTTPSource that calls the feature
// backend's refresh endpoint. The scheduler treats the callback as opaque;
// a failed call is reported through the returned error and recorded in the
// topic status, never retried here.
//
// Visibility of a configured topic is a flag toggled through the HTTP API by
// the front-end that renders the topic.
package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/stacklok/toolhive-refresh-server/internal/config"
	"github.com/stacklok/toolhive-refresh-server/internal/httpclient"
	"github.com/stacklok/toolhive-refresh-server/internal/subscription"
)

// ErrUnknownTopic is returned when no source is configured for a topic
var ErrUnknownTopic = errors.New("unknown topic")

// refreshRequest is the body sent to a topic's refresh endpoint
type refreshRequest struct {
	Topic string `json:"topic"`
}

// HTTPSource refreshes one topic by calling its feature backend
type HTTPSource struct {
	topic      string
	method     string
	url        string
	timeout    time.Duration
	background bool
	client     httpclient.Client
	visible    atomic.Bool
}

// NewHTTPSource creates the source for a configured topic
func NewHTTPSource(cfg config.TopicConfig, client httpclient.Client) (*HTTPSource, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("topic name is required")
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("topic %s: url is required", cfg.Name)
	}
	if client == nil {
		return nil, fmt.Errorf("topic %s: http client is required", cfg.Name)
	}

	s := &HTTPSource{
		topic:      cfg.Name,
		method:     cfg.GetMethod(),
		url:        cfg.URL,
		timeout:    cfg.GetTimeout(),
		background: cfg.IsBackground(),
		client:     client,
	}
	s.visible.Store(cfg.IsVisible())
	return s, nil
}

// Topic returns the topic name
func (s *HTTPSource) Topic() string {
	return s.topic
}

// Background reports whether the topic joins background passes
func (s *HTTPSource) Background() bool {
	return s.background
}

// Visible reports the current visibility. It is used as the subscription's
// visibility predicate.
func (s *HTTPSource) Visible() bool {
	return s.visible.Load()
}

// SetVisible updates the visibility
func (s *HTTPSource) SetVisible(visible bool) {
	s.visible.Store(visible)
}

// Refresh calls the topic's refresh endpoint once
func (s *HTTPSource) Refresh(ctx context.Context) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var (
		data []byte
		err  error
	)
	if s.method == http.MethodGet {
		data, err = s.client.Get(ctx, s.url)
	} else {
		body, marshalErr := json.Marshal(refreshRequest{Topic: s.topic})
		if marshalErr != nil {
			return fmt.Errorf("failed to encode refresh request: %w", marshalErr)
		}
		data, err = s.client.Do(ctx, s.method, s.url, body)
	}
	if err != nil {
		return fmt.Errorf("failed to refresh topic %s: %w", s.topic, err)
	}

	slog.Debug("Topic backend refreshed",
		"topic", s.topic,
		"method", s.method,
		"response_bytes", len(data))
	return nil
}

// SubscriptionOptions returns the options matching the source's policy
func (s *HTTPSource) SubscriptionOptions() []subscription.Option {
	return []subscription.Option{
		subscription.WithBackgroundRefresh(s.background),
		subscription.WithVisibility(s.Visible),
	}
}
