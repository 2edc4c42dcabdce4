// Package feedbackqueue defines the per-target-type extension points of the
// feedback queue: intake validators, merge validators and merge strategies.
package feedbackqueue

import (
	"context"

	"github.com/Strob0t/standardhub/internal/domain/feedback"
	"github.com/Strob0t/standardhub/internal/port/database"
)

// Handler is implemented by every per-target extension.
type Handler interface {
	SupportedType() feedback.TargetType
}

// PayloadValidator checks a create command before anything is persisted.
// Failures are *feedback.InvalidPayloadError.
type PayloadValidator interface {
	Handler
	Validate(ctx context.Context, cat database.Catalog, cmd feedback.CreateCommand) error
}

// MergeValidator re-checks referential integrity right before a merge.
// Failures are *feedback.MergeValidationError.
type MergeValidator interface {
	Handler
	Validate(ctx context.Context, cat database.Catalog, it *feedback.Item) error
}

// MergeStrategy applies an approved item to the target entity store and
// returns the id of the created or changed entity.
type MergeStrategy interface {
	Handler
	Merge(ctx context.Context, cat database.Catalog, it *feedback.Item) (int64, error)
}
