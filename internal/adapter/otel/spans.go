package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "standardhub"

// StartFeedbackSpan starts a span for a command applied to a feedback item.
func StartFeedbackSpan(ctx context.Context, op string, feedbackID int64) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "feedback."+op,
		trace.WithAttributes(
			attribute.Int64("feedback.id", feedbackID),
		),
	)
}

// StartMergeSpan starts a span covering Stage-2 validation and the merge
// strategy for one item.
func StartMergeSpan(ctx context.Context, feedbackID int64, targetType, feedbackType string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "feedback.merge",
		trace.WithAttributes(
			attribute.Int64("feedback.id", feedbackID),
			attribute.String("feedback.target_type", targetType),
			attribute.String("feedback.type", feedbackType),
		),
	)
}
