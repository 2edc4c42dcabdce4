package messagequeue

import "time"

// FeedbackEventPayload is the schema shared by all feedback.* messages.
// From and Action are empty on feedback.created; TargetID is the merged
// entity on feedback.merged.
type FeedbackEventPayload struct {
	EventID      string    `json:"event_id"`
	FeedbackID   int64     `json:"feedback_id"`
	TargetType   string    `json:"target_type"`
	TargetID     *int64    `json:"target_id,omitempty"`
	FeedbackType string    `json:"feedback_type"`
	RiskLevel    string    `json:"risk_level"`
	Action       string    `json:"action,omitempty"`
	From         string    `json:"from,omitempty"`
	To           string    `json:"to"`
	RequestID    string    `json:"request_id,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}
