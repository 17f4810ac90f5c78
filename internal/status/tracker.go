package status

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Tracker keeps the in-memory refresh status of every topic. It is safe for
// concurrent use.
type Tracker struct {
	mu       sync.RWMutex
	statuses map[string]*RefreshStatus
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{
		statuses: make(map[string]*RefreshStatus),
	}
}

// Ensure registers topic in the Pending phase if it is not tracked yet
func (t *Tracker) Ensure(topic string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.getOrCreate(topic)
}

// Begin marks the start of a refresh attempt
func (t *Tracker) Begin(topic, reason string, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.getOrCreate(topic)
	st.Phase = RefreshPhaseRefreshing
	st.LastReason = reason
	st.LastAttempt = &at
	st.RefreshCount++
}

// Complete records the outcome of a refresh attempt. A nil err resets the
// consecutive failure count.
func (t *Tracker) Complete(topic string, at time.Time, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.getOrCreate(topic)
	if err != nil {
		st.Phase = RefreshPhaseFailed
		st.Message = err.Error()
		st.ConsecutiveFailures++
		return
	}

	st.Phase = RefreshPhaseComplete
	st.Message = "Refresh completed successfully"
	st.LastRefreshTime = &at
	st.ConsecutiveFailures = 0
}

// Remove stops tracking topic
func (t *Tracker) Remove(topic string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.statuses, topic)
}

// Reset drops every tracked topic
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.statuses = make(map[string]*RefreshStatus)
}

// Get returns a copy of the status of topic
func (t *Tracker) Get(topic string) (RefreshStatus, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	st, ok := t.statuses[topic]
	if !ok {
		return RefreshStatus{}, fmt.Errorf("topic %s is not tracked", topic)
	}
	return st.clone(), nil
}

// Snapshot returns copies of all statuses sorted by topic
func (t *Tracker) Snapshot() []RefreshStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make([]RefreshStatus, 0, len(t.statuses))
	for _, st := range t.statuses {
		result = append(result, st.clone())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Topic < result[j].Topic
	})
	return result
}

func (t *Tracker) getOrCreate(topic string) *RefreshStatus {
	st, ok := t.statuses[topic]
	if !ok {
		st = &RefreshStatus{Topic: topic, Phase: RefreshPhasePending}
		t.statuses[topic] = st
	}
	return st
}

func (s *RefreshStatus) clone() RefreshStatus {
	c := *s
	if s.LastAttempt != nil {
		at := *s.LastAttempt
		c.LastAttempt = &at
	}
	if s.LastRefreshTime != nil {
		at := *s.LastRefreshTime
		c.LastRefreshTime = &at
	}
	return c
}
