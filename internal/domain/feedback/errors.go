package feedback

import (
	"errors"
	"fmt"

	"github.com/Strob0t/standardhub/internal/domain"
)

// ErrNotRegistered is returned when no validator or strategy is wired for a
// target type. It indicates a wiring bug, not bad input.
var ErrNotRegistered = errors.New("feedback: no handler registered for target type")

// InvalidPayloadError is a Stage-1 (intake) rejection: the payload is
// malformed or references an entity that does not exist.
type InvalidPayloadError struct {
	TargetType   TargetType
	FeedbackType Type
	Reason       string
}

// NewInvalidPayload builds an InvalidPayloadError with a formatted reason.
func NewInvalidPayload(tt TargetType, ft Type, format string, args ...any) *InvalidPayloadError {
	return &InvalidPayloadError{TargetType: tt, FeedbackType: ft, Reason: fmt.Sprintf(format, args...)}
}

func (e *InvalidPayloadError) Error() string {
	return fmt.Sprintf("invalid %s %s payload: %s", e.TargetType, e.FeedbackType, e.Reason)
}

func (e *InvalidPayloadError) Unwrap() error { return domain.ErrValidation }

// MergeValidationError is a Stage-2 (merge time) rejection. The item keeps
// its status so the merge can be retried or the item rejected.
type MergeValidationError struct {
	FeedbackID   int64
	TargetType   TargetType
	FeedbackType Type
	Reason       string
}

// NewMergeValidation builds a MergeValidationError for item.
func NewMergeValidation(it *Item, format string, args ...any) *MergeValidationError {
	return &MergeValidationError{
		FeedbackID:   it.ID,
		TargetType:   it.TargetType,
		FeedbackType: it.FeedbackType,
		Reason:       fmt.Sprintf(format, args...),
	}
}

func (e *MergeValidationError) Error() string {
	return fmt.Sprintf("feedback %d: cannot merge %s %s: %s", e.FeedbackID, e.TargetType, e.FeedbackType, e.Reason)
}

// InvalidTransitionError reports an action that is not legal for the item's
// current status and risk level.
type InvalidTransitionError struct {
	FeedbackID int64
	From       Status
	RiskLevel  RiskLevel
	Action     Action
	Reason     string
}

func (e *InvalidTransitionError) Error() string {
	msg := fmt.Sprintf("feedback %d: %s not allowed from %s", e.FeedbackID, e.Action, e.From)
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

// NotFoundError reports an unknown feedback id.
type NotFoundError struct {
	FeedbackID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("feedback %d not found", e.FeedbackID)
}

func (e *NotFoundError) Unwrap() error { return domain.ErrNotFound }
