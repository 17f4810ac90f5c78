// Package activity tracks whether the end user is currently interacting with
// the front-end.
//
// Interaction signals only bump a timestamp. Whether the user counts as
// active is recomputed on a fixed cadence, so inactivity is detected even
// when no further signal arrives.
package activity

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"k8s.io/utils/clock"
)

const (
	// DefaultInactivityThreshold is the idle cutoff after which the user is inactive
	DefaultInactivityThreshold = 5 * time.Minute
	// DefaultRecomputeInterval is the cadence of the idle-state recomputation
	DefaultRecomputeInterval = time.Minute
)

// Signal is a raw interaction signal reported by a front-end
type Signal string

const (
	// SignalPointer is a mouse or pen movement
	SignalPointer Signal = "pointer"
	// SignalKey is a key press
	SignalKey Signal = "key"
	// SignalScroll is a scroll event
	SignalScroll Signal = "scroll"
	// SignalTouch is a touch start
	SignalTouch Signal = "touch"
)

// IsKnown reports whether s is one of the documented signals
func (s Signal) IsKnown() bool {
	switch s {
	case SignalPointer, SignalKey, SignalScroll, SignalTouch:
		return true
	default:
		return false
	}
}

// Monitor holds the process-wide activity state
type Monitor struct {
	clock     clock.WithTicker
	threshold time.Duration
	interval  time.Duration

	mu             sync.RWMutex
	lastActivityAt time.Time
	active         bool

	lifecycleMu sync.Mutex
	cancelFunc  context.CancelFunc
	done        chan struct{}
}

// Option configures a Monitor
type Option func(*Monitor)

// WithClock sets the clock used for timestamps and the recompute ticker
func WithClock(c clock.WithTicker) Option {
	return func(m *Monitor) {
		m.clock = c
	}
}

// WithInactivityThreshold sets the idle cutoff
func WithInactivityThreshold(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.threshold = d
		}
	}
}

// WithRecomputeInterval sets how often the active flag is recomputed
func WithRecomputeInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// NewMonitor creates a monitor that starts out active, with the construction
// time as the last activity.
func NewMonitor(opts ...Option) *Monitor {
	m := &Monitor{
		clock:     clock.RealClock{},
		threshold: DefaultInactivityThreshold,
		interval:  DefaultRecomputeInterval,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.lastActivityAt = m.clock.Now()
	m.active = true
	return m
}

// Touch records an interaction signal. Unknown signals still count as activity.
func (m *Monitor) Touch(signal Signal) {
	now := m.clock.Now()

	m.mu.Lock()
	m.lastActivityAt = now
	m.active = true
	m.mu.Unlock()

	if !signal.IsKnown() {
		slog.Debug("Recorded unknown activity signal", "signal", string(signal))
	}
}

// IsActive returns the last computed activity state
func (m *Monitor) IsActive() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active
}

// LastActivity returns the time of the most recent signal
func (m *Monitor) LastActivity() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastActivityAt
}

// Threshold returns the configured idle cutoff
func (m *Monitor) Threshold() time.Duration {
	return m.threshold
}

// Recompute derives the active flag from the time elapsed since the last signal
func (m *Monitor) Recompute() bool {
	now := m.clock.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	wasActive := m.active
	m.active = now.Sub(m.lastActivityAt) < m.threshold
	if wasActive != m.active {
		slog.Debug("User activity state changed",
			"active", m.active,
			"last_activity", m.lastActivityAt)
	}
	return m.active
}

// Start runs the recompute loop until ctx is cancelled or Stop is called
func (m *Monitor) Start(ctx context.Context) error {
	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	m.lifecycleMu.Lock()
	m.cancelFunc = cancel
	m.done = done
	m.lifecycleMu.Unlock()
	defer close(done)

	ticker := m.clock.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C():
			m.Recompute()
		case <-loopCtx.Done():
			return nil
		}
	}
}

// Stop ends the recompute loop and waits for it to exit
func (m *Monitor) Stop() {
	m.lifecycleMu.Lock()
	cancel, done := m.cancelFunc, m.done
	m.cancelFunc = nil
	m.lifecycleMu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}
