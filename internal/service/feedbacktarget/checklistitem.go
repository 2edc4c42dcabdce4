package feedbacktarget

import (
	"context"
	"fmt"

	"github.com/Strob0t/standardhub/internal/domain/checklistitem"
	"github.com/Strob0t/standardhub/internal/domain/feedback"
	"github.com/Strob0t/standardhub/internal/port/database"
)

type checklistItemIntake struct{}

func (checklistItemIntake) SupportedType() feedback.TargetType { return feedback.TargetChecklistItem }

func (checklistItemIntake) Validate(ctx context.Context, cat database.Catalog, cmd feedback.CreateCommand) error {
	switch cmd.FeedbackType {
	case feedback.TypeAdd:
		req, err := decode[checklistitem.CreateRequest](cmd.Payload)
		if err != nil {
			return invalid(cmd, err)
		}
		return intakeExists(ctx, cmd, cat.CodingRuleExists, "coding rule", req.RuleID)
	case feedback.TypeModify:
		id, err := intakeTarget(cmd)
		if err != nil {
			return err
		}
		if _, err := decode[checklistitem.UpdateRequest](cmd.Payload); err != nil {
			return invalid(cmd, err)
		}
		return intakeExists(ctx, cmd, cat.ChecklistItemExists, "checklist item", id)
	case feedback.TypeDelete:
		id, err := intakeTarget(cmd)
		if err != nil {
			return err
		}
		return intakeExists(ctx, cmd, cat.ChecklistItemExists, "checklist item", id)
	}
	return invalid(cmd, unsupported(cmd.FeedbackType))
}

type checklistItemMergeCheck struct{}

func (checklistItemMergeCheck) SupportedType() feedback.TargetType {
	return feedback.TargetChecklistItem
}

func (checklistItemMergeCheck) Validate(ctx context.Context, cat database.Catalog, it *feedback.Item) error {
	if it.FeedbackType == feedback.TypeAdd {
		req, err := decode[checklistitem.CreateRequest](it.Payload)
		if err != nil {
			return feedback.NewMergeValidation(it, "%s", reason(err))
		}
		return mergeExists(ctx, it, cat.CodingRuleExists, "coding rule", req.RuleID)
	}
	id, err := mergeTarget(it)
	if err != nil {
		return err
	}
	return mergeExists(ctx, it, cat.ChecklistItemExists, "checklist item", id)
}

type checklistItemStrategy struct {
	now Clock
}

func (checklistItemStrategy) SupportedType() feedback.TargetType { return feedback.TargetChecklistItem }

func (s checklistItemStrategy) Merge(ctx context.Context, cat database.Catalog, it *feedback.Item) (int64, error) {
	switch it.FeedbackType {
	case feedback.TypeAdd:
		req, err := decode[checklistitem.CreateRequest](it.Payload)
		if err != nil {
			return 0, err
		}
		item, err := checklistitem.NewFromFeedback(*req, it.ID, s.now())
		if err != nil {
			return 0, err
		}
		if err := cat.SaveChecklistItem(ctx, item); err != nil {
			return 0, fmt.Errorf("save checklist item: %w", err)
		}
		return item.ID, nil

	case feedback.TypeModify:
		item, err := loadTarget(ctx, it, cat.GetChecklistItem)
		if err != nil {
			return 0, err
		}
		upd, err := decode[checklistitem.UpdateRequest](it.Payload)
		if err != nil {
			return 0, err
		}
		if err := item.Update(*upd, s.now()); err != nil {
			return 0, err
		}
		if err := cat.SaveChecklistItem(ctx, item); err != nil {
			return 0, fmt.Errorf("save checklist item %d: %w", item.ID, err)
		}
		return item.ID, nil

	case feedback.TypeDelete:
		item, err := loadTarget(ctx, it, cat.GetChecklistItem)
		if err != nil {
			return 0, err
		}
		item.Delete(s.now())
		if err := cat.SaveChecklistItem(ctx, item); err != nil {
			return 0, fmt.Errorf("delete checklist item %d: %w", item.ID, err)
		}
		return item.ID, nil
	}
	return 0, unsupported(it.FeedbackType)
}
