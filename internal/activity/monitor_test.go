package activity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"
)

var epoch = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func TestNewMonitor_StartsActive(t *testing.T) {
	t.Parallel()

	fc := clocktesting.NewFakeClock(epoch)
	m := NewMonitor(WithClock(fc))

	assert.True(t, m.IsActive())
	assert.Equal(t, epoch, m.LastActivity())
	assert.Equal(t, DefaultInactivityThreshold, m.Threshold())
}

func TestMonitor_Recompute(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		elapsed time.Duration
		active  bool
	}{
		{name: "just touched", elapsed: 0, active: true},
		{name: "below threshold", elapsed: 4*time.Minute + 59*time.Second, active: true},
		{name: "exactly at threshold", elapsed: 5 * time.Minute, active: false},
		{name: "well past threshold", elapsed: time.Hour, active: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fc := clocktesting.NewFakeClock(epoch)
			m := NewMonitor(WithClock(fc))

			fc.Step(tt.elapsed)
			assert.Equal(t, tt.active, m.Recompute())
			assert.Equal(t, tt.active, m.IsActive())
		})
	}
}

func TestMonitor_IsActiveIsPureRead(t *testing.T) {
	t.Parallel()

	fc := clocktesting.NewFakeClock(epoch)
	m := NewMonitor(WithClock(fc))

	fc.Step(time.Hour)
	// no recompute yet, the cached state is still active
	assert.True(t, m.IsActive())
}

func TestMonitor_TouchReactivates(t *testing.T) {
	t.Parallel()

	fc := clocktesting.NewFakeClock(epoch)
	m := NewMonitor(WithClock(fc), WithInactivityThreshold(time.Minute))

	fc.Step(2 * time.Minute)
	require.False(t, m.Recompute())

	m.Touch(SignalScroll)
	assert.True(t, m.IsActive())
	assert.Equal(t, epoch.Add(2*time.Minute), m.LastActivity())

	m.Touch(Signal("gamepad"))
	assert.True(t, m.IsActive())
}

func TestSignal_IsKnown(t *testing.T) {
	t.Parallel()

	for _, s := range []Signal{SignalPointer, SignalKey, SignalScroll, SignalTouch} {
		assert.True(t, s.IsKnown(), string(s))
	}
	assert.False(t, Signal("wheel").IsKnown())
}

func TestMonitor_StartRecomputesOnCadence(t *testing.T) {
	t.Parallel()

	fc := clocktesting.NewFakeClock(epoch)
	m := NewMonitor(
		WithClock(fc),
		WithInactivityThreshold(90*time.Second),
		WithRecomputeInterval(time.Minute),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- m.Start(ctx) }()

	require.Eventually(t, fc.HasWaiters, time.Second, time.Millisecond)

	fc.Step(time.Minute)
	assert.True(t, m.IsActive())

	fc.Step(time.Minute)
	assert.Eventually(t, func() bool { return !m.IsActive() }, time.Second, time.Millisecond)

	m.Stop()
	assert.NoError(t, <-errCh)
}

func TestMonitor_StopBeforeStart(t *testing.T) {
	t.Parallel()

	m := NewMonitor()
	assert.NotPanics(t, m.Stop)
}
