package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/stacklok/toolhive-refresh-server/internal/graph"
	"github.com/stacklok/toolhive-refresh-server/internal/scheduler/mocks"
	"github.com/stacklok/toolhive-refresh-server/internal/status"
	"github.com/stacklok/toolhive-refresh-server/internal/subscription"
	"github.com/stacklok/toolhive-refresh-server/internal/trigger"
)

// callLog records refresh invocations across goroutines
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) refresh(topic string, err error) subscription.RefreshFunc {
	return func(context.Context) error {
		l.record(topic)
		return err
	}
}

func (l *callLog) record(topic string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, topic)
}

func (l *callLog) Calls() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	result := make([]string, len(l.calls))
	copy(result, l.calls)
	return result
}

func (l *callLog) Count(topic string) int {
	n := 0
	for _, c := range l.Calls() {
		if c == topic {
			n++
		}
	}
	return n
}

func newMonitor(t *testing.T, active bool) *mocks.MockActivityMonitor {
	t.Helper()
	ctrl := gomock.NewController(t)
	monitor := mocks.NewMockActivityMonitor(ctrl)
	monitor.EXPECT().IsActive().Return(active).AnyTimes()
	return monitor
}

var fastConfig = Config{InterSubscriberDelay: time.Millisecond}

func TestConfig_Defaults(t *testing.T) {
	t.Parallel()

	s := New(newMonitor(t, true), nil, Config{})
	cfg := s.Config()
	assert.Equal(t, DefaultBackgroundInterval, cfg.BackgroundInterval)
	assert.Equal(t, DefaultInterSubscriberDelay, cfg.InterSubscriberDelay)
	assert.Equal(t, DefaultQueueDelay, cfg.QueueDelay)
	assert.Empty(t, s.Graph().Sources())
}

func TestScheduler_LastWriteWins(t *testing.T) {
	t.Parallel()

	s := New(newMonitor(t, true), nil, fastConfig)
	first, second := &callLog{}, &callLog{}

	s.Subscribe("indicators", first.refresh("indicators", nil))
	s.Subscribe("indicators", second.refresh("indicators", nil))

	refreshed := s.TriggerImmediate(context.Background(), "manual", "indicators")

	assert.Equal(t, []string{"indicators"}, refreshed)
	assert.Empty(t, first.Calls())
	assert.Equal(t, []string{"indicators"}, second.Calls())
	require.Len(t, s.Topics(), 1)
}

func TestScheduler_TriggerImmediate(t *testing.T) {
	t.Parallel()

	t.Run("unknown topic is a no-op", func(t *testing.T) {
		t.Parallel()

		s := New(newMonitor(t, true), nil, fastConfig)
		var refreshed []string
		assert.NotPanics(t, func() {
			refreshed = s.TriggerImmediate(context.Background(), "manual", "missing")
		})
		assert.Empty(t, refreshed)
	})

	t.Run("mixed known and unknown topics keep order and skip duplicates", func(t *testing.T) {
		t.Parallel()

		s := New(newMonitor(t, true), nil, fastConfig)
		log := &callLog{}
		s.Subscribe("a", log.refresh("a", nil))
		s.Subscribe("b", log.refresh("b", nil))

		refreshed := s.TriggerImmediate(context.Background(), "manual", "b", "missing", "a", "b")

		assert.Equal(t, []string{"b", "a"}, refreshed)
		assert.Equal(t, []string{"b", "a"}, log.Calls())
	})

	t.Run("updates last refreshed time", func(t *testing.T) {
		t.Parallel()

		fc := clocktesting.NewFakeClock(time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC))
		s := New(newMonitor(t, true), nil, fastConfig, WithClock(fc))
		s.Subscribe("a", (&callLog{}).refresh("a", nil))

		s.TriggerImmediate(context.Background(), "manual", "a")

		topics := s.Topics()
		require.Len(t, topics, 1)
		assert.Equal(t, fc.Now(), topics[0].LastRefreshedAt)
		assert.Equal(t, status.RefreshPhaseComplete, topics[0].Status.Phase)
		assert.Equal(t, "manual", topics[0].Status.LastReason)
	})
}

func TestScheduler_TriggerRelated(t *testing.T) {
	t.Parallel()

	g := graph.New(map[string][]string{
		"feeds": {"indicators", "dashboard"},
	})
	s := New(newMonitor(t, true), g, fastConfig)
	log := &callLog{}
	for _, topic := range []string{"feeds", "indicators", "dashboard", "assets"} {
		s.Subscribe(topic, log.refresh(topic, nil))
	}

	refreshed := s.TriggerRelated(context.Background(), "feeds", "feed_saved")

	assert.Equal(t, []string{"indicators", "dashboard"}, refreshed)
	assert.Equal(t, []string{"indicators", "dashboard"}, log.Calls())

	refreshed = s.TriggerRelated(context.Background(), "assets", "no_entry")
	assert.Empty(t, refreshed)
	assert.Len(t, log.Calls(), 2)
}

func TestScheduler_TriggerRelated_OnlyRegisteredDependents(t *testing.T) {
	t.Parallel()

	s := New(newMonitor(t, true), graph.Default(), fastConfig)
	log := &callLog{}
	s.Subscribe("dashboard", log.refresh("dashboard", nil))
	s.Subscribe("users", log.refresh("users", nil))

	refreshed := s.TriggerRelated(context.Background(), "threat-feeds", "feed_saved")

	assert.Equal(t, []string{"dashboard"}, refreshed)
	assert.Equal(t, []string{"dashboard"}, log.Calls())
}

func TestScheduler_Tick_InactiveDoesNothing(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	poller := mocks.NewMockExternalPoller(ctrl)
	// no CheckAndFanOut expectation: any call fails the test

	s := New(newMonitor(t, false), nil, fastConfig, WithExternalPoller(poller))
	log := &callLog{}
	s.Subscribe("a", log.refresh("a", nil))
	s.Subscribe("b", log.refresh("b", nil))

	result := s.Tick(context.Background())

	assert.False(t, result.Ran())
	assert.Equal(t, ReasonUserInactive, result.Skipped)
	assert.Empty(t, result.ID)
	assert.Empty(t, log.Calls())
}

func TestScheduler_Tick_FailingSubscriberIsIsolated(t *testing.T) {
	t.Parallel()

	s := New(newMonitor(t, true), nil, fastConfig)
	log := &callLog{}
	s.Subscribe("a", log.refresh("a", nil))
	s.Subscribe("b", log.refresh("b", errors.New("backend unavailable")))
	s.Subscribe("c", log.refresh("c", nil))

	result := s.Tick(context.Background())

	require.True(t, result.Ran())
	assert.NotEmpty(t, result.ID)
	assert.Equal(t, []string{"a", "b", "c"}, log.Calls())
	assert.Equal(t, []string{"a", "b", "c"}, result.Invoked)
	assert.Equal(t, []string{"b"}, result.Failed)
}

func TestScheduler_Tick_PanicIsAbsorbed(t *testing.T) {
	t.Parallel()

	s := New(newMonitor(t, true), nil, fastConfig)
	log := &callLog{}
	s.Subscribe("a", func(context.Context) error {
		panic("nil map write")
	})
	s.Subscribe("b", log.refresh("b", nil))

	var result PassResult
	require.NotPanics(t, func() { result = s.Tick(context.Background()) })

	assert.Equal(t, []string{"a"}, result.Failed)
	assert.Equal(t, []string{"b"}, log.Calls())

	statuses := s.Statuses()
	require.Len(t, statuses, 2)
	assert.Equal(t, "a", statuses[0].Topic)
	assert.Equal(t, status.RefreshPhaseFailed, statuses[0].Phase)
	assert.Contains(t, statuses[0].Message, "refresh callback panicked: nil map write")
}

func TestScheduler_Tick_OverlappingTickIsSkipped(t *testing.T) {
	t.Parallel()

	s := New(newMonitor(t, true), nil, fastConfig)
	log := &callLog{}
	started := make(chan struct{})
	release := make(chan struct{})

	s.Subscribe("a", func(context.Context) error {
		log.record("a")
		close(started)
		<-release
		return nil
	})
	s.Subscribe("b", log.refresh("b", nil))

	firstDone := make(chan PassResult, 1)
	go func() { firstDone <- s.Tick(context.Background()) }()

	<-started
	second := s.Tick(context.Background())
	assert.Equal(t, ReasonPassInProgress, second.Skipped)

	close(release)
	first := <-firstDone

	assert.True(t, first.Ran())
	assert.Equal(t, 1, log.Count("a"))
	assert.Equal(t, 1, log.Count("b"))

	// the guard is released once the pass completes
	third := s.Tick(context.Background())
	assert.True(t, third.Ran())
}

func TestScheduler_Tick_UnsubscribeBeforeTurn(t *testing.T) {
	t.Parallel()

	s := New(newMonitor(t, true), nil, fastConfig)
	log := &callLog{}
	s.Subscribe("a", func(context.Context) error {
		log.record("a")
		s.Unsubscribe("c")
		return nil
	})
	s.Subscribe("b", log.refresh("b", nil))
	s.Subscribe("c", log.refresh("c", nil))

	result := s.Tick(context.Background())

	assert.Equal(t, []string{"a", "b"}, log.Calls())
	assert.Equal(t, []string{"a", "b"}, result.Invoked)
}

func TestScheduler_Tick_BackgroundAndVisibilityFilters(t *testing.T) {
	t.Parallel()

	s := New(newMonitor(t, true), nil, fastConfig)
	log := &callLog{}
	s.Subscribe("A", log.refresh("A", nil))
	s.Subscribe("B", log.refresh("B", nil), subscription.WithBackgroundRefresh(false))
	s.Subscribe("C", log.refresh("C", nil), subscription.WithVisibility(func() bool { return false }))

	result := s.Tick(context.Background())

	assert.Equal(t, 1, log.Count("A"))
	assert.Equal(t, 0, log.Count("B"))
	assert.Equal(t, 0, log.Count("C"))
	assert.Equal(t, []string{"A"}, result.Invoked)
}

func TestScheduler_RunBackgroundPass_PollsFirst(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	poller := mocks.NewMockExternalPoller(ctrl)

	s := New(newMonitor(t, true), nil, fastConfig, WithExternalPoller(poller))
	log := &callLog{}
	s.Subscribe("a", log.refresh("a", nil))
	s.Subscribe("b", log.refresh("b", nil), subscription.WithBackgroundRefresh(false))

	poller.EXPECT().CheckAndFanOut(gomock.Any(), s).DoAndReturn(
		func(ctx context.Context, target trigger.Target) {
			target.TriggerImmediate(ctx, "backend_trigger:feed_update", "b")
		})

	result := s.RunBackgroundPass(context.Background())

	assert.Equal(t, []string{"b", "a"}, log.Calls())
	assert.Equal(t, []string{"a"}, result.Invoked)

	st, err := statusOf(s, "b")
	require.NoError(t, err)
	assert.Equal(t, "backend_trigger:feed_update", st.LastReason)
}

func TestScheduler_RunBackgroundPass_StopsOnCancel(t *testing.T) {
	t.Parallel()

	s := New(newMonitor(t, true), nil, Config{InterSubscriberDelay: time.Hour})
	log := &callLog{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Subscribe("a", func(context.Context) error {
		log.record("a")
		cancel()
		return nil
	})
	s.Subscribe("b", log.refresh("b", nil))

	result := s.RunBackgroundPass(ctx)

	assert.Equal(t, []string{"a"}, log.Calls())
	assert.Equal(t, []string{"a"}, result.Invoked)
}

func TestScheduler_RefreshAllVisible(t *testing.T) {
	t.Parallel()

	s := New(newMonitor(t, false), nil, fastConfig)
	log := &callLog{}
	s.Subscribe("a", log.refresh("a", nil), subscription.WithBackgroundRefresh(false))
	s.Subscribe("b", log.refresh("b", nil), subscription.WithVisibility(func() bool { return false }))
	s.Subscribe("c", log.refresh("c", nil))

	refreshed := s.RefreshAllVisible(context.Background(), "tab_focus")

	assert.Equal(t, []string{"a", "c"}, refreshed)
	assert.Equal(t, []string{"a", "c"}, log.Calls())
}

func TestScheduler_StatusTracksConsecutiveFailures(t *testing.T) {
	t.Parallel()

	s := New(newMonitor(t, true), nil, fastConfig)
	fail := true
	s.Subscribe("a", func(context.Context) error {
		if fail {
			return errors.New("timeout")
		}
		return nil
	})

	s.TriggerImmediate(context.Background(), "r1", "a")
	s.TriggerImmediate(context.Background(), "r2", "a")

	st, err := statusOf(s, "a")
	require.NoError(t, err)
	assert.Equal(t, status.RefreshPhaseFailed, st.Phase)
	assert.Equal(t, 2, st.ConsecutiveFailures)

	fail = false
	s.TriggerImmediate(context.Background(), "r3", "a")

	st, err = statusOf(s, "a")
	require.NoError(t, err)
	assert.Equal(t, status.RefreshPhaseComplete, st.Phase)
	assert.Equal(t, 0, st.ConsecutiveFailures)
	assert.Equal(t, 3, st.RefreshCount)
}

func TestScheduler_CompletionAfterUnsubscribeHasNoEffect(t *testing.T) {
	t.Parallel()

	s := New(newMonitor(t, true), nil, fastConfig)
	s.Subscribe("a", func(context.Context) error {
		s.Unsubscribe("a")
		return nil
	})

	refreshed := s.TriggerImmediate(context.Background(), "manual", "a")

	assert.Equal(t, []string{"a"}, refreshed)
	assert.Empty(t, s.Topics())
	assert.Empty(t, s.Statuses())
}

func TestScheduler_SubscribeNilRefreshIgnored(t *testing.T) {
	t.Parallel()

	s := New(newMonitor(t, true), nil, fastConfig)
	s.Subscribe("a", nil)

	assert.Empty(t, s.Topics())
	assert.Empty(t, s.Statuses())
}

func statusOf(s *Scheduler, topic string) (status.RefreshStatus, error) {
	return s.statuses.Get(topic)
}

func TestScheduler_ConcurrentTriggersShareInvocation(t *testing.T) {
	t.Parallel()

	s := New(newMonitor(t, true), nil, fastConfig)
	log := &callLog{}
	started := make(chan struct{})
	release := make(chan struct{})

	s.Subscribe("a", func(context.Context) error {
		log.record("a")
		close(started)
		<-release
		return nil
	})

	results := make(chan []string, 2)
	go func() { results <- s.TriggerImmediate(context.Background(), "first", "a") }()
	<-started
	go func() { results <- s.TriggerImmediate(context.Background(), "second", "a") }()

	// give the second caller time to join the running call
	time.Sleep(100 * time.Millisecond)
	close(release)

	for range 2 {
		select {
		case refreshed := <-results:
			assert.Equal(t, []string{"a"}, refreshed)
		case <-time.After(time.Second):
			t.Fatal("trigger did not return")
		}
	}

	assert.Equal(t, 1, log.Count("a"))
	st, err := statusOf(s, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, st.RefreshCount)
	assert.Equal(t, status.RefreshPhaseComplete, st.Phase)
}

func TestScheduler_ResubscribeDuringRefresh(t *testing.T) {
	t.Parallel()

	s := New(newMonitor(t, true), nil, fastConfig)
	old, replacement := &callLog{}, &callLog{}
	started := make(chan struct{})
	release := make(chan struct{})

	s.Subscribe("x", func(context.Context) error {
		old.record("x")
		close(started)
		<-release
		return errors.New("stale")
	})

	oldDone := make(chan []string, 1)
	go func() { oldDone <- s.TriggerImmediate(context.Background(), "first", "x") }()
	<-started

	s.Subscribe("x", replacement.refresh("x", nil))
	refreshed := s.TriggerImmediate(context.Background(), "second", "x")

	assert.Equal(t, []string{"x"}, refreshed)
	assert.Equal(t, 1, replacement.Count("x"))

	topics := s.Topics()
	require.Len(t, topics, 1)
	assert.False(t, topics[0].LastRefreshedAt.IsZero())

	close(release)
	select {
	case <-oldDone:
	case <-time.After(time.Second):
		t.Fatal("first trigger did not return")
	}
	assert.Equal(t, 1, old.Count("x"))

	// the replaced callback's failure is not recorded against the new subscription
	st, err := statusOf(s, "x")
	require.NoError(t, err)
	assert.Equal(t, status.RefreshPhaseComplete, st.Phase)
	assert.Equal(t, 0, st.ConsecutiveFailures)
	assert.Equal(t, 1, st.RefreshCount)
}

func TestScheduler_SharedRefreshIgnoresCallerCancellation(t *testing.T) {
	t.Parallel()

	s := New(newMonitor(t, true), nil, fastConfig)
	started := make(chan struct{})
	release := make(chan struct{})

	s.Subscribe("a", func(ctx context.Context) error {
		close(started)
		<-release
		return ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan []string, 1)
	go func() { done <- s.TriggerImmediate(ctx, "api_refresh", "a") }()

	<-started
	cancel()
	close(release)

	select {
	case refreshed := <-done:
		assert.Equal(t, []string{"a"}, refreshed)
	case <-time.After(time.Second):
		t.Fatal("trigger did not return")
	}

	st, err := statusOf(s, "a")
	require.NoError(t, err)
	assert.Equal(t, status.RefreshPhaseComplete, st.Phase)
	assert.Equal(t, 0, st.ConsecutiveFailures)
}

func TestScheduler_ResubscribeResetsStatus(t *testing.T) {
	t.Parallel()

	s := New(newMonitor(t, true), nil, fastConfig)
	s.Subscribe("a", (&callLog{}).refresh("a", errors.New("backend down")))
	s.TriggerImmediate(context.Background(), "manual", "a")

	st, err := statusOf(s, "a")
	require.NoError(t, err)
	require.Equal(t, status.RefreshPhaseFailed, st.Phase)
	require.Equal(t, 1, st.ConsecutiveFailures)

	s.Subscribe("a", (&callLog{}).refresh("a", nil))

	st, err = statusOf(s, "a")
	require.NoError(t, err)
	assert.Equal(t, status.RefreshPhasePending, st.Phase)
	assert.Equal(t, 0, st.ConsecutiveFailures)
	assert.Equal(t, 0, st.RefreshCount)
	assert.Empty(t, st.Message)

	// a rejected subscription keeps the current one and its history
	s.TriggerImmediate(context.Background(), "manual", "a")
	s.Subscribe("a", nil)
	st, err = statusOf(s, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, st.RefreshCount)
}
