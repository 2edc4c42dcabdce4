// Package database defines the database store port (interface).
package database

import (
	"context"

	"github.com/Strob0t/standardhub/internal/domain/archunittest"
	"github.com/Strob0t/standardhub/internal/domain/checklistitem"
	"github.com/Strob0t/standardhub/internal/domain/classtemplate"
	"github.com/Strob0t/standardhub/internal/domain/codingrule"
	"github.com/Strob0t/standardhub/internal/domain/feedback"
	"github.com/Strob0t/standardhub/internal/domain/ruleexample"
)

// Store is the port interface for database operations.
type Store interface {
	FeedbackStore
	Catalog

	// InTx runs fn against a Store bound to a single transaction. The
	// transaction commits if fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(tx Store) error) error
}

// FeedbackStore persists feedback queue items.
type FeedbackStore interface {
	// CreateFeedback inserts it and fills in ID, Version and timestamps.
	CreateFeedback(ctx context.Context, it *feedback.Item) error
	GetFeedback(ctx context.Context, id int64) (*feedback.Item, error)
	ListFeedback(ctx context.Context, filter feedback.ListFilter) ([]feedback.Item, error)
	// UpdateFeedback writes status, notes and target id if the stored version
	// still equals it.Version, then bumps it.Version. A stale version yields
	// domain.ErrConflict.
	UpdateFeedback(ctx context.Context, it *feedback.Item) error
}

// Catalog is the persistence port of the catalogue entities that feedback
// can target. Exists methods treat soft-deleted rows as absent. Save inserts
// entities with a zero ID and updates the rest with an optimistic version
// check; soft deletion is a Save of an entity whose DeletedAt is set.
type Catalog interface {
	// Parents
	ConventionExists(ctx context.Context, id int64) (bool, error)
	PackageStructureExists(ctx context.Context, id int64) (bool, error)

	// Coding rules
	GetCodingRule(ctx context.Context, id int64) (*codingrule.CodingRule, error)
	CodingRuleExists(ctx context.Context, id int64) (bool, error)
	SaveCodingRule(ctx context.Context, r *codingrule.CodingRule) error

	// Rule examples
	GetRuleExample(ctx context.Context, id int64) (*ruleexample.RuleExample, error)
	RuleExampleExists(ctx context.Context, id int64) (bool, error)
	SaveRuleExample(ctx context.Context, e *ruleexample.RuleExample) error

	// Class templates
	GetClassTemplate(ctx context.Context, id int64) (*classtemplate.ClassTemplate, error)
	ClassTemplateExists(ctx context.Context, id int64) (bool, error)
	SaveClassTemplate(ctx context.Context, t *classtemplate.ClassTemplate) error

	// Checklist items
	GetChecklistItem(ctx context.Context, id int64) (*checklistitem.ChecklistItem, error)
	ChecklistItemExists(ctx context.Context, id int64) (bool, error)
	SaveChecklistItem(ctx context.Context, c *checklistitem.ChecklistItem) error

	// ArchUnit tests
	GetArchUnitTest(ctx context.Context, id int64) (*archunittest.ArchUnitTest, error)
	ArchUnitTestExists(ctx context.Context, id int64) (bool, error)
	SaveArchUnitTest(ctx context.Context, a *archunittest.ArchUnitTest) error
}
