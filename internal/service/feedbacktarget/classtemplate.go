package feedbacktarget

import (
	"context"
	"fmt"

	"github.com/Strob0t/standardhub/internal/domain/classtemplate"
	"github.com/Strob0t/standardhub/internal/domain/feedback"
	"github.com/Strob0t/standardhub/internal/port/database"
)

type classTemplateIntake struct{}

func (classTemplateIntake) SupportedType() feedback.TargetType { return feedback.TargetClassTemplate }

func (classTemplateIntake) Validate(ctx context.Context, cat database.Catalog, cmd feedback.CreateCommand) error {
	switch cmd.FeedbackType {
	case feedback.TypeAdd:
		req, err := decode[classtemplate.CreateRequest](cmd.Payload)
		if err != nil {
			return invalid(cmd, err)
		}
		return intakeExists(ctx, cmd, cat.PackageStructureExists, "package structure", req.StructureID)
	case feedback.TypeModify:
		id, err := intakeTarget(cmd)
		if err != nil {
			return err
		}
		if _, err := decode[classtemplate.UpdateRequest](cmd.Payload); err != nil {
			return invalid(cmd, err)
		}
		return intakeExists(ctx, cmd, cat.ClassTemplateExists, "class template", id)
	case feedback.TypeDelete:
		id, err := intakeTarget(cmd)
		if err != nil {
			return err
		}
		return intakeExists(ctx, cmd, cat.ClassTemplateExists, "class template", id)
	}
	return invalid(cmd, unsupported(cmd.FeedbackType))
}

type classTemplateMergeCheck struct{}

func (classTemplateMergeCheck) SupportedType() feedback.TargetType {
	return feedback.TargetClassTemplate
}

func (classTemplateMergeCheck) Validate(ctx context.Context, cat database.Catalog, it *feedback.Item) error {
	if it.FeedbackType == feedback.TypeAdd {
		req, err := decode[classtemplate.CreateRequest](it.Payload)
		if err != nil {
			return feedback.NewMergeValidation(it, "%s", reason(err))
		}
		return mergeExists(ctx, it, cat.PackageStructureExists, "package structure", req.StructureID)
	}
	id, err := mergeTarget(it)
	if err != nil {
		return err
	}
	return mergeExists(ctx, it, cat.ClassTemplateExists, "class template", id)
}

type classTemplateStrategy struct {
	now Clock
}

func (classTemplateStrategy) SupportedType() feedback.TargetType { return feedback.TargetClassTemplate }

func (s classTemplateStrategy) Merge(ctx context.Context, cat database.Catalog, it *feedback.Item) (int64, error) {
	switch it.FeedbackType {
	case feedback.TypeAdd:
		req, err := decode[classtemplate.CreateRequest](it.Payload)
		if err != nil {
			return 0, err
		}
		tpl, err := classtemplate.New(*req, s.now())
		if err != nil {
			return 0, err
		}
		if err := cat.SaveClassTemplate(ctx, tpl); err != nil {
			return 0, fmt.Errorf("save class template: %w", err)
		}
		return tpl.ID, nil

	case feedback.TypeModify:
		tpl, err := loadTarget(ctx, it, cat.GetClassTemplate)
		if err != nil {
			return 0, err
		}
		upd, err := decode[classtemplate.UpdateRequest](it.Payload)
		if err != nil {
			return 0, err
		}
		if err := tpl.Update(*upd, s.now()); err != nil {
			return 0, err
		}
		if err := cat.SaveClassTemplate(ctx, tpl); err != nil {
			return 0, fmt.Errorf("save class template %d: %w", tpl.ID, err)
		}
		return tpl.ID, nil

	case feedback.TypeDelete:
		tpl, err := loadTarget(ctx, it, cat.GetClassTemplate)
		if err != nil {
			return 0, err
		}
		tpl.Delete(s.now())
		if err := cat.SaveClassTemplate(ctx, tpl); err != nil {
			return 0, fmt.Errorf("delete class template %d: %w", tpl.ID, err)
		}
		return tpl.ID, nil
	}
	return 0, unsupported(it.FeedbackType)
}
