// Package trigger polls a backend for server-declared refresh events and fans
// them out to the scheduler.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/tidwall/gjson"

	"github.com/stacklok/toolhive-refresh-server/internal/httpclient"
	"github.com/stacklok/toolhive-refresh-server/internal/telemetry"
)

//go:generate mockgen -destination=mocks/mock_poller.go -package=mocks -source=poller.go ActivityChecker,Target

const (
	// DefaultPollTimeout bounds a single request to the trigger endpoint
	DefaultPollTimeout = 5 * time.Second

	// ReasonPrefix is prepended to the descriptor type to form the trigger reason
	ReasonPrefix = "backend_trigger:"
)

// ErrUnsuccessful is returned when the endpoint answers with success=false
var ErrUnsuccessful = errors.New("trigger endpoint reported success=false")

// ActivityChecker reports whether the user is currently active
type ActivityChecker interface {
	IsActive() bool
}

// Target receives the topics named by a trigger descriptor and returns the
// ones it actually refreshed
type Target interface {
	TriggerImmediate(ctx context.Context, reason string, topics ...string) []string
}

// Trigger is one server-declared refresh event
type Trigger struct {
	Type       string
	Components []string
}

// Reason returns the diagnostic reason used when fanning out this trigger
func (t Trigger) Reason() string {
	return ReasonPrefix + t.Type
}

// Poller checks the remote trigger endpoint
type Poller struct {
	endpoint string
	client   httpclient.Client
	activity ActivityChecker
	timeout  time.Duration
	schema   *jsonschema.Schema
	metrics  *telemetry.RefreshMetrics
}

// Option configures a Poller
type Option func(*Poller)

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithMetrics sets the metrics used to count fanned-out triggers
func WithMetrics(m *telemetry.RefreshMetrics) Option {
	return func(p *Poller) {
		p.metrics = m
	}
}

// NewPoller creates a poller for endpoint
func NewPoller(endpoint string, client httpclient.Client, activity ActivityChecker, opts ...Option) (*Poller, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("trigger endpoint is required")
	}
	if client == nil {
		return nil, fmt.Errorf("http client is required")
	}
	if activity == nil {
		return nil, fmt.Errorf("activity checker is required")
	}

	schema, err := compileResponseSchema()
	if err != nil {
		return nil, err
	}

	p := &Poller{
		endpoint: endpoint,
		client:   client,
		activity: activity,
		timeout:  DefaultPollTimeout,
		schema:   schema,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Endpoint returns the polled URL
func (p *Poller) Endpoint() string {
	return p.endpoint
}

// CheckAndFanOut polls the endpoint and calls target once per descriptor with
// a non-empty component list. Nothing happens while the user is inactive.
// Failures are logged at debug level and discarded.
func (p *Poller) CheckAndFanOut(ctx context.Context, target Target) {
	if !p.activity.IsActive() {
		return
	}

	triggers, err := p.Check(ctx)
	if err != nil {
		slog.Debug("External trigger check failed",
			"endpoint", p.endpoint,
			"error", err)
		return
	}

	for _, t := range triggers {
		if len(t.Components) == 0 {
			continue
		}
		slog.Debug("Fanning out external trigger",
			"type", t.Type,
			"components", t.Components)
		p.metrics.RecordExternalTrigger(ctx, t.Type)
		target.TriggerImmediate(ctx, t.Reason(), t.Components...)
	}
}

// Check performs one bounded request and returns the declared triggers
func (p *Poller) Check(ctx context.Context) ([]Trigger, error) {
	pollCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	body, err := p.client.Get(pollCtx, p.endpoint)
	if err != nil {
		return nil, err
	}
	return p.parse(body)
}

func (p *Poller) parse(body []byte) ([]Trigger, error) {
	if err := validateResponse(p.schema, body); err != nil {
		return nil, err
	}

	if !gjson.GetBytes(body, "success").Bool() {
		return nil, ErrUnsuccessful
	}

	var triggers []Trigger
	gjson.GetBytes(body, "triggers").ForEach(func(_, value gjson.Result) bool {
		t := Trigger{Type: value.Get("type").String()}
		value.Get("components").ForEach(func(_, component gjson.Result) bool {
			t.Components = append(t.Components, component.String())
			return true
		})
		triggers = append(triggers, t)
		return true
	})
	return triggers, nil
}
