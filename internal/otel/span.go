// Package otel provides OpenTelemetry helpers shared by the refresh scheduler.
package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation name of the scheduler tracer
const TracerName = "github.com/stacklok/toolhive-refresh-server/scheduler"

// Attribute keys used on scheduler spans
const (
	AttrTopic        = attribute.Key("refresh.topic")
	AttrReason       = attribute.Key("refresh.reason")
	AttrPassID       = attribute.Key("refresh.pass_id")
	AttrTopicCount   = attribute.Key("refresh.topic_count")
	AttrInvokedCount = attribute.Key("refresh.invoked_count")
)

// StartSpan starts a new span if the tracer is non-nil, otherwise returns the
// span already carried by ctx (a no-op span when there is none).
func StartSpan(
	ctx context.Context,
	tracer trace.Tracer,
	name string,
	opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, name, opts...)
}

// RecordError records err on span and marks the span as failed. The status
// description stays generic; details live in the error event.
func RecordError(span trace.Span, err error) {
	if err != nil && span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "refresh failed")
	}
}
