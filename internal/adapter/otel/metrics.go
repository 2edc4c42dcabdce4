package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "standardhub"

// Metrics holds all feedback queue metric instruments.
type Metrics struct {
	FeedbackCreated  metric.Int64Counter
	FeedbackRejected metric.Int64Counter
	Transitions      metric.Int64Counter
	Merges           metric.Int64Counter
	MergeFailures    metric.Int64Counter
	MergeDuration    metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.FeedbackCreated, err = meter.Int64Counter("standardhub.feedback.created",
		metric.WithDescription("Number of feedback items accepted at intake"))
	if err != nil {
		return nil, err
	}

	m.FeedbackRejected, err = meter.Int64Counter("standardhub.feedback.intake_rejected",
		metric.WithDescription("Number of feedback submissions rejected by payload validation"))
	if err != nil {
		return nil, err
	}

	m.Transitions, err = meter.Int64Counter("standardhub.feedback.transitions",
		metric.WithDescription("Number of committed status transitions"))
	if err != nil {
		return nil, err
	}

	m.Merges, err = meter.Int64Counter("standardhub.feedback.merges",
		metric.WithDescription("Number of feedback items merged into the catalogue"))
	if err != nil {
		return nil, err
	}

	m.MergeFailures, err = meter.Int64Counter("standardhub.feedback.merge_failures",
		metric.WithDescription("Number of merge attempts rolled back"))
	if err != nil {
		return nil, err
	}

	m.MergeDuration, err = meter.Float64Histogram("standardhub.feedback.merge.duration_seconds",
		metric.WithDescription("Merge duration in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
