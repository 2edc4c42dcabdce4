// Package feedbacktarget implements the intake validators, merge validators
// and merge strategies for every catalogue entity that feedback can target.
package feedbacktarget

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Strob0t/standardhub/internal/domain"
	"github.com/Strob0t/standardhub/internal/domain/feedback"
	"github.com/Strob0t/standardhub/internal/port/feedbackqueue"
)

// Clock returns the current time. Strategies stamp entities with it.
type Clock func() time.Time

// NewRegistries builds the three lookup tables from the static list of
// supported targets and verifies that every target type is covered.
func NewRegistries(clock Clock) (feedbackqueue.Registries, error) {
	if clock == nil {
		clock = time.Now
	}

	payload, err := feedbackqueue.NewRegistry[feedbackqueue.PayloadValidator]("payload validator",
		codingRuleIntake{}, ruleExampleIntake{}, classTemplateIntake{}, checklistItemIntake{}, archUnitTestIntake{})
	if err != nil {
		return feedbackqueue.Registries{}, err
	}
	merge, err := feedbackqueue.NewRegistry[feedbackqueue.MergeValidator]("merge validator",
		codingRuleMergeCheck{}, ruleExampleMergeCheck{}, classTemplateMergeCheck{}, checklistItemMergeCheck{}, archUnitTestMergeCheck{})
	if err != nil {
		return feedbackqueue.Registries{}, err
	}
	strategy, err := feedbackqueue.NewRegistry[feedbackqueue.MergeStrategy]("merge strategy",
		codingRuleStrategy{now: clock}, ruleExampleStrategy{now: clock}, classTemplateStrategy{now: clock},
		checklistItemStrategy{now: clock}, archUnitTestStrategy{now: clock})
	if err != nil {
		return feedbackqueue.Registries{}, err
	}

	regs := feedbackqueue.Registries{Payload: payload, Merge: merge, Strategy: strategy}
	if err := regs.Check(); err != nil {
		return feedbackqueue.Registries{}, err
	}
	return regs, nil
}

// validatable is a request type with a Validate method on its pointer.
type validatable[T any] interface {
	*T
	Validate() error
}

// decode strictly unmarshals raw into a T and runs its Validate method.
func decode[T any, P validatable[T]](raw json.RawMessage) (*T, error) {
	var v T
	if len(raw) == 0 {
		raw = json.RawMessage(`{}`)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("payload does not match the expected shape: %w", err)
	}
	if err := P(&v).Validate(); err != nil {
		return nil, err
	}
	return &v, nil
}

// reason turns a validation error into a human readable reason without the
// sentinel suffix.
func reason(err error) string {
	msg := err.Error()
	if errors.Is(err, domain.ErrValidation) {
		msg = strings.TrimSuffix(msg, ": "+domain.ErrValidation.Error())
	}
	return msg
}

type existsFunc func(ctx context.Context, id int64) (bool, error)

func invalid(cmd feedback.CreateCommand, err error) error {
	return feedback.NewInvalidPayload(cmd.TargetType, cmd.FeedbackType, "%s", reason(err))
}

// intakeTarget returns the target id of a MODIFY/DELETE command.
func intakeTarget(cmd feedback.CreateCommand) (int64, error) {
	if cmd.TargetID == nil {
		return 0, feedback.NewInvalidPayload(cmd.TargetType, cmd.FeedbackType, "target_id is required")
	}
	return *cmd.TargetID, nil
}

// intakeExists fails with an InvalidPayloadError when id does not name a live
// entity.
func intakeExists(ctx context.Context, cmd feedback.CreateCommand, exists existsFunc, what string, id int64) error {
	ok, err := exists(ctx, id)
	if err != nil {
		return fmt.Errorf("check %s %d: %w", what, id, err)
	}
	if !ok {
		return feedback.NewInvalidPayload(cmd.TargetType, cmd.FeedbackType, "%s %d does not exist", what, id)
	}
	return nil
}

// mergeTarget returns the target id of a MODIFY/DELETE item.
func mergeTarget(it *feedback.Item) (int64, error) {
	if it.TargetID == nil {
		return 0, feedback.NewMergeValidation(it, "target_id is missing")
	}
	return *it.TargetID, nil
}

// mergeExists fails with a MergeValidationError when id no longer names a
// live entity.
func mergeExists(ctx context.Context, it *feedback.Item, exists existsFunc, what string, id int64) error {
	ok, err := exists(ctx, id)
	if err != nil {
		return fmt.Errorf("check %s %d: %w", what, id, err)
	}
	if !ok {
		return feedback.NewMergeValidation(it, "%s %d no longer exists", what, id)
	}
	return nil
}

func unsupported(ft feedback.Type) error {
	return fmt.Errorf("unsupported feedback type %q: %w", ft, domain.ErrValidation)
}

// loadTarget fetches the entity a MODIFY/DELETE item points at.
func loadTarget[T any](ctx context.Context, it *feedback.Item, get func(context.Context, int64) (*T, error)) (*T, error) {
	id, err := mergeTarget(it)
	if err != nil {
		return nil, err
	}
	return get(ctx, id)
}
