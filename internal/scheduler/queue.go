package scheduler

import (
	"context"
	"log/slog"
	"time"

	"k8s.io/utils/clock"
)

type pendingRefresh struct {
	generation uint64
	timer      clock.Timer
}

// QueueRefresh schedules a debounced refresh of topic after delay and returns
// the effective delay. A later call for the same topic replaces the earlier
// one, so a burst of calls results in a single refresh. A delay <= 0 uses the
// configured queue delay.
func (s *Scheduler) QueueRefresh(topic string, delay time.Duration) time.Duration {
	if delay <= 0 {
		delay = s.cfg.QueueDelay
	}

	s.queueMu.Lock()
	defer s.queueMu.Unlock()

	if prev, ok := s.pending[topic]; ok {
		prev.timer.Stop()
	}

	s.generation++
	generation := s.generation
	// Timer callbacks must not block; a fake clock runs them while holding its lock.
	timer := s.clock.AfterFunc(delay, func() {
		go s.fireQueued(topic, generation)
	})
	s.pending[topic] = &pendingRefresh{generation: generation, timer: timer}

	return delay
}

// PendingTopics returns the number of topics waiting for a queued refresh
func (s *Scheduler) PendingTopics() int {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	return len(s.pending)
}

func (s *Scheduler) fireQueued(topic string, generation uint64) {
	s.queueMu.Lock()
	p, ok := s.pending[topic]
	if !ok || p.generation != generation {
		s.queueMu.Unlock()
		return
	}
	delete(s.pending, topic)
	s.queueMu.Unlock()

	slog.Debug("Running queued refresh", "topic", topic)
	s.TriggerImmediate(context.Background(), ReasonQueued, topic)
}

func (s *Scheduler) cancelPending() int {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()

	dropped := len(s.pending)
	for topic, p := range s.pending {
		p.timer.Stop()
		delete(s.pending, topic)
	}
	return dropped
}
