package feedbacktarget

import (
	"context"
	"fmt"

	"github.com/Strob0t/standardhub/internal/domain/archunittest"
	"github.com/Strob0t/standardhub/internal/domain/feedback"
	"github.com/Strob0t/standardhub/internal/port/database"
)

type archUnitTestIntake struct{}

func (archUnitTestIntake) SupportedType() feedback.TargetType { return feedback.TargetArchUnitTest }

func (archUnitTestIntake) Validate(ctx context.Context, cat database.Catalog, cmd feedback.CreateCommand) error {
	switch cmd.FeedbackType {
	case feedback.TypeAdd:
		req, err := decode[archunittest.CreateRequest](cmd.Payload)
		if err != nil {
			return invalid(cmd, err)
		}
		return intakeExists(ctx, cmd, cat.PackageStructureExists, "package structure", req.StructureID)
	case feedback.TypeModify:
		id, err := intakeTarget(cmd)
		if err != nil {
			return err
		}
		if _, err := decode[archunittest.UpdateRequest](cmd.Payload); err != nil {
			return invalid(cmd, err)
		}
		return intakeExists(ctx, cmd, cat.ArchUnitTestExists, "archunit test", id)
	case feedback.TypeDelete:
		id, err := intakeTarget(cmd)
		if err != nil {
			return err
		}
		return intakeExists(ctx, cmd, cat.ArchUnitTestExists, "archunit test", id)
	}
	return invalid(cmd, unsupported(cmd.FeedbackType))
}

type archUnitTestMergeCheck struct{}

func (archUnitTestMergeCheck) SupportedType() feedback.TargetType { return feedback.TargetArchUnitTest }

func (archUnitTestMergeCheck) Validate(ctx context.Context, cat database.Catalog, it *feedback.Item) error {
	if it.FeedbackType == feedback.TypeAdd {
		req, err := decode[archunittest.CreateRequest](it.Payload)
		if err != nil {
			return feedback.NewMergeValidation(it, "%s", reason(err))
		}
		return mergeExists(ctx, it, cat.PackageStructureExists, "package structure", req.StructureID)
	}
	id, err := mergeTarget(it)
	if err != nil {
		return err
	}
	return mergeExists(ctx, it, cat.ArchUnitTestExists, "archunit test", id)
}

type archUnitTestStrategy struct {
	now Clock
}

func (archUnitTestStrategy) SupportedType() feedback.TargetType { return feedback.TargetArchUnitTest }

func (s archUnitTestStrategy) Merge(ctx context.Context, cat database.Catalog, it *feedback.Item) (int64, error) {
	switch it.FeedbackType {
	case feedback.TypeAdd:
		req, err := decode[archunittest.CreateRequest](it.Payload)
		if err != nil {
			return 0, err
		}
		test, err := archunittest.New(*req, s.now())
		if err != nil {
			return 0, err
		}
		if err := cat.SaveArchUnitTest(ctx, test); err != nil {
			return 0, fmt.Errorf("save archunit test: %w", err)
		}
		return test.ID, nil

	case feedback.TypeModify:
		test, err := loadTarget(ctx, it, cat.GetArchUnitTest)
		if err != nil {
			return 0, err
		}
		upd, err := decode[archunittest.UpdateRequest](it.Payload)
		if err != nil {
			return 0, err
		}
		if err := test.Update(*upd, s.now()); err != nil {
			return 0, err
		}
		if err := cat.SaveArchUnitTest(ctx, test); err != nil {
			return 0, fmt.Errorf("save archunit test %d: %w", test.ID, err)
		}
		return test.ID, nil

	case feedback.TypeDelete:
		test, err := loadTarget(ctx, it, cat.GetArchUnitTest)
		if err != nil {
			return 0, err
		}
		test.Delete(s.now())
		if err := cat.SaveArchUnitTest(ctx, test); err != nil {
			return 0, fmt.Errorf("delete archunit test %d: %w", test.ID, err)
		}
		return test.ID, nil
	}
	return 0, unsupported(it.FeedbackType)
}
