package feedbacktarget

import (
	"context"
	"fmt"

	"github.com/Strob0t/standardhub/internal/domain/codingrule"
	"github.com/Strob0t/standardhub/internal/domain/feedback"
	"github.com/Strob0t/standardhub/internal/port/database"
)

// Coding rules hang off a convention and may be scoped to a package structure.

type codingRuleIntake struct{}

func (codingRuleIntake) SupportedType() feedback.TargetType { return feedback.TargetCodingRule }

func (codingRuleIntake) Validate(ctx context.Context, cat database.Catalog, cmd feedback.CreateCommand) error {
	switch cmd.FeedbackType {
	case feedback.TypeAdd:
		req, err := decode[codingrule.CreateRequest](cmd.Payload)
		if err != nil {
			return invalid(cmd, err)
		}
		if err := intakeExists(ctx, cmd, cat.ConventionExists, "convention", req.ConventionID); err != nil {
			return err
		}
		if req.StructureID != nil {
			return intakeExists(ctx, cmd, cat.PackageStructureExists, "package structure", *req.StructureID)
		}
		return nil
	case feedback.TypeModify:
		id, err := intakeTarget(cmd)
		if err != nil {
			return err
		}
		upd, err := decode[codingrule.UpdateRequest](cmd.Payload)
		if err != nil {
			return invalid(cmd, err)
		}
		if err := intakeExists(ctx, cmd, cat.CodingRuleExists, "coding rule", id); err != nil {
			return err
		}
		if upd.StructureID != nil {
			return intakeExists(ctx, cmd, cat.PackageStructureExists, "package structure", *upd.StructureID)
		}
		return nil
	case feedback.TypeDelete:
		id, err := intakeTarget(cmd)
		if err != nil {
			return err
		}
		return intakeExists(ctx, cmd, cat.CodingRuleExists, "coding rule", id)
	}
	return invalid(cmd, unsupported(cmd.FeedbackType))
}

type codingRuleMergeCheck struct{}

func (codingRuleMergeCheck) SupportedType() feedback.TargetType { return feedback.TargetCodingRule }

func (codingRuleMergeCheck) Validate(ctx context.Context, cat database.Catalog, it *feedback.Item) error {
	if it.FeedbackType == feedback.TypeAdd {
		req, err := decode[codingrule.CreateRequest](it.Payload)
		if err != nil {
			return feedback.NewMergeValidation(it, "%s", reason(err))
		}
		if err := mergeExists(ctx, it, cat.ConventionExists, "convention", req.ConventionID); err != nil {
			return err
		}
		if req.StructureID != nil {
			return mergeExists(ctx, it, cat.PackageStructureExists, "package structure", *req.StructureID)
		}
		return nil
	}
	id, err := mergeTarget(it)
	if err != nil {
		return err
	}
	if err := mergeExists(ctx, it, cat.CodingRuleExists, "coding rule", id); err != nil {
		return err
	}
	if it.FeedbackType != feedback.TypeModify {
		return nil
	}
	upd, err := decode[codingrule.UpdateRequest](it.Payload)
	if err != nil {
		return feedback.NewMergeValidation(it, "%s", reason(err))
	}
	if upd.StructureID != nil {
		return mergeExists(ctx, it, cat.PackageStructureExists, "package structure", *upd.StructureID)
	}
	return nil
}

type codingRuleStrategy struct {
	now Clock
}

func (codingRuleStrategy) SupportedType() feedback.TargetType { return feedback.TargetCodingRule }

func (s codingRuleStrategy) Merge(ctx context.Context, cat database.Catalog, it *feedback.Item) (int64, error) {
	switch it.FeedbackType {
	case feedback.TypeAdd:
		req, err := decode[codingrule.CreateRequest](it.Payload)
		if err != nil {
			return 0, err
		}
		rule, err := codingrule.New(*req, s.now())
		if err != nil {
			return 0, err
		}
		if err := cat.SaveCodingRule(ctx, rule); err != nil {
			return 0, fmt.Errorf("save coding rule: %w", err)
		}
		return rule.ID, nil

	case feedback.TypeModify:
		rule, err := loadTarget(ctx, it, cat.GetCodingRule)
		if err != nil {
			return 0, err
		}
		upd, err := decode[codingrule.UpdateRequest](it.Payload)
		if err != nil {
			return 0, err
		}
		if err := rule.Update(*upd, s.now()); err != nil {
			return 0, err
		}
		if err := cat.SaveCodingRule(ctx, rule); err != nil {
			return 0, fmt.Errorf("save coding rule %d: %w", rule.ID, err)
		}
		return rule.ID, nil

	case feedback.TypeDelete:
		rule, err := loadTarget(ctx, it, cat.GetCodingRule)
		if err != nil {
			return 0, err
		}
		rule.Delete(s.now())
		if err := cat.SaveCodingRule(ctx, rule); err != nil {
			return 0, fmt.Errorf("delete coding rule %d: %w", rule.ID, err)
		}
		return rule.ID, nil
	}
	return 0, unsupported(it.FeedbackType)
}
