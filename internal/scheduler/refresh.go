package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/toolhive-refresh-server/internal/otel"
	"github.com/stacklok/toolhive-refresh-server/internal/subscription"
)

// TriggerImmediate refreshes each registered topic in order and returns the
// topics that were refreshed. Unknown topics are ignored. reason is only used
// for diagnostics.
func (s *Scheduler) TriggerImmediate(ctx context.Context, reason string, topics ...string) []string {
	refreshed := make([]string, 0, len(topics))
	seen := make(map[string]struct{}, len(topics))

	for _, topic := range topics {
		if _, dup := seen[topic]; dup {
			continue
		}
		seen[topic] = struct{}{}

		sub, ok := s.registry.Get(topic)
		if !ok {
			slog.Debug("Ignoring trigger for topic without subscriber",
				"topic", topic,
				"reason", reason)
			continue
		}

		_ = s.safeRefresh(ctx, sub, reason)
		refreshed = append(refreshed, topic)
	}
	return refreshed
}

// TriggerRelated refreshes the dependents of source. It is a no-op when the
// graph has no entry for source.
func (s *Scheduler) TriggerRelated(ctx context.Context, source, reason string) []string {
	related := s.graph.RelatedTopics(source)
	if len(related) == 0 {
		slog.Debug("No related topics", "source", source)
		return []string{}
	}
	return s.TriggerImmediate(ctx, reason, related...)
}

// RefreshAllVisible refreshes every topic whose visibility predicate is
// currently true, regardless of its background flag.
func (s *Scheduler) RefreshAllVisible(ctx context.Context, reason string) []string {
	var visible []string
	for _, sub := range s.registry.Entries() {
		if sub.IsVisible() {
			visible = append(visible, sub.Topic)
		}
	}
	return s.TriggerImmediate(ctx, reason, visible...)
}

// safeRefresh runs the callback of sub and absorbs any failure. Concurrent
// calls for the same subscription share a single invocation, which runs
// detached from the cancellation of whichever caller started it. The returned
// error is for the scheduler's own bookkeeping and is never surfaced to callers.
func (s *Scheduler) safeRefresh(ctx context.Context, sub *subscription.Subscription, reason string) error {
	callCtx := context.WithoutCancel(ctx)
	_, err, shared := s.inflight.Do(inflightKey(sub), func() (any, error) {
		return nil, s.invoke(callCtx, sub, reason)
	})
	if shared {
		slog.Debug("Joined in-flight refresh", "topic", sub.Topic, "reason", reason)
	}
	return err
}

// inflightKey identifies one subscription. A replacement for the same topic
// gets its own key so it never joins a call of the subscription it replaced.
func inflightKey(sub *subscription.Subscription) string {
	return fmt.Sprintf("%s/%p", sub.Topic, sub)
}

func (s *Scheduler) invoke(ctx context.Context, sub *subscription.Subscription, reason string) (err error) {
	ctx, span := otel.StartSpan(ctx, s.tracer, "refresh.topic",
		trace.WithAttributes(
			otel.AttrTopic.String(sub.Topic),
			otel.AttrReason.String(reason),
		))
	defer span.End()

	start := s.clock.Now()
	s.statuses.Begin(sub.Topic, reason, start)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("refresh callback panicked: %v", r)
		}

		end := s.clock.Now()
		s.metrics.RecordRefresh(ctx, sub.Topic, end.Sub(start), err == nil)

		if s.registry.MarkRefreshed(sub, end) {
			s.statuses.Complete(sub.Topic, end, err)
		} else if _, registered := s.registry.Get(sub.Topic); !registered {
			s.statuses.Remove(sub.Topic)
		}

		if err != nil {
			otel.RecordError(span, err)
			slog.Warn("Refresh callback failed",
				"topic", sub.Topic,
				"reason", reason,
				"error", err)
		}
	}()

	return sub.Refresh(ctx)
}
