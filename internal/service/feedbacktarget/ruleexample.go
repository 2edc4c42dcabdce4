package feedbacktarget

import (
	"context"
	"fmt"

	"github.com/Strob0t/standardhub/internal/domain/feedback"
	"github.com/Strob0t/standardhub/internal/domain/ruleexample"
	"github.com/Strob0t/standardhub/internal/port/database"
)

type ruleExampleIntake struct{}

func (ruleExampleIntake) SupportedType() feedback.TargetType { return feedback.TargetRuleExample }

func (ruleExampleIntake) Validate(ctx context.Context, cat database.Catalog, cmd feedback.CreateCommand) error {
	switch cmd.FeedbackType {
	case feedback.TypeAdd:
		req, err := decode[ruleexample.CreateRequest](cmd.Payload)
		if err != nil {
			return invalid(cmd, err)
		}
		return intakeExists(ctx, cmd, cat.CodingRuleExists, "coding rule", req.RuleID)
	case feedback.TypeModify:
		id, err := intakeTarget(cmd)
		if err != nil {
			return err
		}
		if _, err := decode[ruleexample.UpdateRequest](cmd.Payload); err != nil {
			return invalid(cmd, err)
		}
		return intakeExists(ctx, cmd, cat.RuleExampleExists, "rule example", id)
	case feedback.TypeDelete:
		id, err := intakeTarget(cmd)
		if err != nil {
			return err
		}
		return intakeExists(ctx, cmd, cat.RuleExampleExists, "rule example", id)
	}
	return invalid(cmd, unsupported(cmd.FeedbackType))
}

type ruleExampleMergeCheck struct{}

func (ruleExampleMergeCheck) SupportedType() feedback.TargetType { return feedback.TargetRuleExample }

func (ruleExampleMergeCheck) Validate(ctx context.Context, cat database.Catalog, it *feedback.Item) error {
	if it.FeedbackType == feedback.TypeAdd {
		req, err := decode[ruleexample.CreateRequest](it.Payload)
		if err != nil {
			return feedback.NewMergeValidation(it, "%s", reason(err))
		}
		return mergeExists(ctx, it, cat.CodingRuleExists, "coding rule", req.RuleID)
	}
	id, err := mergeTarget(it)
	if err != nil {
		return err
	}
	return mergeExists(ctx, it, cat.RuleExampleExists, "rule example", id)
}

// ruleExampleStrategy records the originating feedback id on examples it
// creates.
type ruleExampleStrategy struct {
	now Clock
}

func (ruleExampleStrategy) SupportedType() feedback.TargetType { return feedback.TargetRuleExample }

func (s ruleExampleStrategy) Merge(ctx context.Context, cat database.Catalog, it *feedback.Item) (int64, error) {
	switch it.FeedbackType {
	case feedback.TypeAdd:
		req, err := decode[ruleexample.CreateRequest](it.Payload)
		if err != nil {
			return 0, err
		}
		ex, err := ruleexample.NewFromFeedback(*req, it.ID, s.now())
		if err != nil {
			return 0, err
		}
		if err := cat.SaveRuleExample(ctx, ex); err != nil {
			return 0, fmt.Errorf("save rule example: %w", err)
		}
		return ex.ID, nil

	case feedback.TypeModify:
		ex, err := loadTarget(ctx, it, cat.GetRuleExample)
		if err != nil {
			return 0, err
		}
		upd, err := decode[ruleexample.UpdateRequest](it.Payload)
		if err != nil {
			return 0, err
		}
		if err := ex.Update(*upd, s.now()); err != nil {
			return 0, err
		}
		if err := cat.SaveRuleExample(ctx, ex); err != nil {
			return 0, fmt.Errorf("save rule example %d: %w", ex.ID, err)
		}
		return ex.ID, nil

	case feedback.TypeDelete:
		ex, err := loadTarget(ctx, it, cat.GetRuleExample)
		if err != nil {
			return 0, err
		}
		ex.Delete(s.now())
		if err := cat.SaveRuleExample(ctx, ex); err != nil {
			return 0, fmt.Errorf("delete rule example %d: %w", ex.ID, err)
		}
		return ex.ID, nil
	}
	return 0, unsupported(it.FeedbackType)
}
