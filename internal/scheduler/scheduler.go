package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"k8s.io/utils/clock"

	"github.com/stacklok/toolhive-refresh-server/internal/graph"
	"github.com/stacklok/toolhive-refresh-server/internal/otel"
	"github.com/stacklok/toolhive-refresh-server/internal/status"
	"github.com/stacklok/toolhive-refresh-server/internal/subscription"
	"github.com/stacklok/toolhive-refresh-server/internal/telemetry"
	"github.com/stacklok/toolhive-refresh-server/internal/trigger"
)

//go:generate mockgen -destination=mocks/mock_scheduler.go -package=mocks -source=scheduler.go ActivityMonitor,ExternalPoller

const (
	// DefaultBackgroundInterval is the cadence of the passive loop
	DefaultBackgroundInterval = 10 * time.Minute
	// DefaultInterSubscriberDelay is the gap between callbacks within a pass
	DefaultInterSubscriberDelay = 100 * time.Millisecond
	// DefaultQueueDelay is the debounce window used by QueueRefresh
	DefaultQueueDelay = 500 * time.Millisecond
)

// ActivityMonitor gates background passes on user activity
type ActivityMonitor interface {
	IsActive() bool
	Start(ctx context.Context) error
	Stop()
}

// ExternalPoller is consulted at the start of every background pass
type ExternalPoller interface {
	CheckAndFanOut(ctx context.Context, target trigger.Target)
}

// Config holds the scheduler timing. Zero values select the defaults.
type Config struct {
	BackgroundInterval   time.Duration
	InterSubscriberDelay time.Duration
	QueueDelay           time.Duration
}

func (c Config) withDefaults() Config {
	if c.BackgroundInterval <= 0 {
		c.BackgroundInterval = DefaultBackgroundInterval
	}
	if c.InterSubscriberDelay <= 0 {
		c.InterSubscriberDelay = DefaultInterSubscriberDelay
	}
	if c.QueueDelay <= 0 {
		c.QueueDelay = DefaultQueueDelay
	}
	return c
}

// TopicInfo is a read-only view of one registered topic
type TopicInfo struct {
	Topic           string
	Background      bool
	Visible         bool
	LastRefreshedAt time.Time
	Status          status.RefreshStatus
}

// Scheduler coordinates refreshes for all registered topics
type Scheduler struct {
	cfg      Config
	clock    clock.WithTickerAndDelayedExecution
	registry *subscription.Registry
	activity ActivityMonitor
	graph    *graph.Graph
	poller   ExternalPoller
	statuses *status.Tracker
	metrics  *telemetry.RefreshMetrics
	tracer   trace.Tracer

	passRunning atomic.Bool
	inflight    singleflight.Group

	queueMu    sync.Mutex
	pending    map[string]*pendingRefresh
	generation uint64

	// Lifecycle management
	lifecycleMu sync.Mutex
	cancelFunc  context.CancelFunc
	done        chan struct{}
}

// Option is a function that configures the scheduler
type Option func(*Scheduler)

// WithClock sets the clock driving the loop, pacing and debounce timers
func WithClock(c clock.WithTickerAndDelayedExecution) Option {
	return func(s *Scheduler) {
		s.clock = c
	}
}

// WithExternalPoller sets the poller consulted before each background pass
func WithExternalPoller(p ExternalPoller) Option {
	return func(s *Scheduler) {
		s.poller = p
	}
}

// WithRefreshMetrics sets the metrics for the scheduler
func WithRefreshMetrics(m *telemetry.RefreshMetrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// WithTracerProvider enables one span per pass and per refresh callback
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Scheduler) {
		if tp != nil {
			s.tracer = tp.Tracer(otel.TracerName)
		}
	}
}

// New creates a scheduler with an empty subscription registry
func New(monitor ActivityMonitor, g *graph.Graph, cfg Config, opts ...Option) *Scheduler {
	if g == nil {
		g = graph.New(nil)
	}

	s := &Scheduler{
		cfg:      cfg.withDefaults(),
		clock:    clock.RealClock{},
		registry: subscription.NewRegistry(),
		activity: monitor,
		graph:    g,
		statuses: status.NewTracker(),
		pending:  make(map[string]*pendingRefresh),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

var _ trigger.Target = (*Scheduler)(nil)

// Graph returns the dependency graph used by TriggerRelated
func (s *Scheduler) Graph() *graph.Graph {
	return s.graph
}

// Config returns the effective timing configuration
func (s *Scheduler) Config() Config {
	return s.cfg
}

// Subscribe registers refresh for topic, replacing any previous subscription
// and resetting the status history of the replaced one.
func (s *Scheduler) Subscribe(topic string, refresh subscription.RefreshFunc, opts ...subscription.Option) {
	previous, existed := s.registry.Get(topic)
	s.registry.Subscribe(topic, refresh, opts...)

	current, ok := s.registry.Get(topic)
	if !ok {
		return
	}
	if existed && current != previous {
		s.statuses.Remove(topic)
	}
	s.statuses.Ensure(topic)
	slog.Debug("Topic subscribed", "topic", topic, "replaced", existed)
}

// Unsubscribe removes topic. Queued refreshes for it become no-ops.
func (s *Scheduler) Unsubscribe(topic string) {
	s.registry.Unsubscribe(topic)
	s.statuses.Remove(topic)
	slog.Debug("Topic unsubscribed", "topic", topic)
}

// Topics returns a view of every registered topic in registration order
func (s *Scheduler) Topics() []TopicInfo {
	entries := s.registry.Entries()
	result := make([]TopicInfo, 0, len(entries))
	for _, sub := range entries {
		info := TopicInfo{
			Topic:      sub.Topic,
			Background: sub.Background,
			Visible:    sub.IsVisible(),
		}
		info.LastRefreshedAt, _ = s.registry.LastRefreshed(sub.Topic)
		if st, err := s.statuses.Get(sub.Topic); err == nil {
			info.Status = st
		}
		result = append(result, info)
	}
	return result
}

// Statuses returns a snapshot of the refresh status of every topic
func (s *Scheduler) Statuses() []status.RefreshStatus {
	return s.statuses.Snapshot()
}

// Start runs the background loop until ctx is cancelled or Stop is called.
// It also drives the activity monitor's recompute loop.
func (s *Scheduler) Start(ctx context.Context) error {
	slog.Info("Starting refresh scheduler",
		"background_interval", s.cfg.BackgroundInterval,
		"inter_subscriber_delay", s.cfg.InterSubscriberDelay,
		"external_poller", s.poller != nil)

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	s.lifecycleMu.Lock()
	s.cancelFunc = cancel
	s.done = done
	s.lifecycleMu.Unlock()

	defer func() {
		close(done)
		slog.Info("Refresh scheduler shutting down")
	}()

	g, gctx := errgroup.WithContext(loopCtx)
	g.Go(func() error {
		return s.activity.Start(gctx)
	})

	ticker := s.clock.NewTicker(s.cfg.BackgroundInterval)
	defer ticker.Stop()

	var passes sync.WaitGroup
	defer passes.Wait()

	for {
		select {
		case <-ticker.C():
			passes.Go(func() {
				s.Tick(gctx)
			})
		case <-gctx.Done():
			cancel()
			s.activity.Stop()
			return g.Wait()
		}
	}
}

// Stop ends the background loop, drops pending queued refreshes and clears
// every subscription. In-flight callbacks are not interrupted, and their
// completion no longer has any effect.
func (s *Scheduler) Stop() error {
	s.lifecycleMu.Lock()
	cancel, done := s.cancelFunc, s.done
	s.cancelFunc = nil
	s.lifecycleMu.Unlock()

	if cancel != nil {
		slog.Info("Stopping refresh scheduler")
		cancel()
		<-done
	}

	dropped := s.cancelPending()
	s.registry.Clear()
	s.statuses.Reset()

	slog.Info("Refresh scheduler stopped", "dropped_queued_refreshes", dropped)
	return nil
}

// Tick is the background timer handler. It skips when the user is inactive
// or a pass is already running, otherwise it runs one pass.
func (s *Scheduler) Tick(ctx context.Context) PassResult {
	if !s.activity.IsActive() {
		return s.skip(ctx, ReasonUserInactive)
	}

	if !s.passRunning.CompareAndSwap(false, true) {
		return s.skip(ctx, ReasonPassInProgress)
	}
	defer s.passRunning.Store(false)

	result := s.RunBackgroundPass(ctx)
	s.metrics.RecordPass(ctx, len(result.Invoked))
	return result
}

func (s *Scheduler) skip(ctx context.Context, reason SkipReason) PassResult {
	slog.Debug("Skipping background refresh tick", "reason", reason.String())
	s.metrics.RecordTickSkipped(ctx, reason.String())
	return PassResult{Skipped: reason}
}

// RunBackgroundPass consults the external poller, then refreshes every
// eligible topic sequentially in registration order. Callers normally go
// through Tick, which adds the activity gate and the overlap guard.
func (s *Scheduler) RunBackgroundPass(ctx context.Context) PassResult {
	start := s.clock.Now()
	result := PassResult{ID: uuid.NewString()}

	ctx, span := otel.StartSpan(ctx, s.tracer, "refresh.background_pass",
		trace.WithAttributes(otel.AttrPassID.String(result.ID)))
	defer span.End()

	if s.poller != nil {
		s.poller.CheckAndFanOut(ctx, s)
	}

	for _, topic := range s.registry.Topics() {
		sub, ok := s.eligibleForBackground(topic)
		if !ok {
			continue
		}

		if len(result.Invoked) > 0 {
			if err := s.wait(ctx, s.cfg.InterSubscriberDelay); err != nil {
				slog.Debug("Background pass interrupted", "pass_id", result.ID, "error", err)
				break
			}
			// the topic may have changed while waiting
			if sub, ok = s.eligibleForBackground(topic); !ok {
				continue
			}
		}

		result.Invoked = append(result.Invoked, topic)
		if err := s.safeRefresh(ctx, sub, ReasonBackground); err != nil {
			result.Failed = append(result.Failed, topic)
		}
	}

	result.Duration = s.clock.Since(start)
	span.SetAttributes(otel.AttrInvokedCount.Int(len(result.Invoked)))

	slog.Info("Background refresh pass completed",
		"pass_id", result.ID,
		"invoked", len(result.Invoked),
		"failed", len(result.Failed),
		"duration", result.Duration)
	return result
}

func (s *Scheduler) eligibleForBackground(topic string) (*subscription.Subscription, bool) {
	sub, ok := s.registry.Get(topic)
	if !ok || !sub.Background || !sub.IsVisible() {
		return nil, false
	}
	return sub, true
}

func (s *Scheduler) wait(ctx context.Context, d time.Duration) error {
	timer := s.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
