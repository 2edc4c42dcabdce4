package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Strob0t/standardhub/internal/domain"
	"github.com/Strob0t/standardhub/internal/domain/archunittest"
	"github.com/Strob0t/standardhub/internal/domain/checklistitem"
	"github.com/Strob0t/standardhub/internal/domain/classtemplate"
	"github.com/Strob0t/standardhub/internal/domain/codingrule"
	"github.com/Strob0t/standardhub/internal/domain/ruleexample"
)

// Catalogue reads skip soft-deleted rows. Saves insert when the id is zero and
// otherwise update with an optimistic version check.

func (s *Store) liveExists(ctx context.Context, table string, id int64) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = $1 AND deleted_at IS NULL)`, id, table)
}

// finishUpdate maps the outcome of a versioned UPDATE.
func finishUpdate(row pgx.Row, version *int, what string, id int64) error {
	if err := versionedUpdate(row, version); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return fmt.Errorf("update %s %d: stale version: %w", what, id, err)
		}
		return writeErr(err, "update %s %d", what, id)
	}
	return nil
}

// --- Coding rules ---

const codingRuleColumns = `id, convention_id, structure_id, code, name, severity, category, description,
	rationale, applies_to, sdk_constraint, version, deleted_at, created_at, updated_at`

func scanCodingRule(row scannable) (codingrule.CodingRule, error) {
	var r codingrule.CodingRule
	err := row.Scan(&r.ID, &r.ConventionID, &r.StructureID, &r.Code, &r.Name, &r.Severity, &r.Category,
		&r.Description, &r.Rationale, &r.AppliesTo, &r.SDKConstraint, &r.Version, &r.DeletedAt, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func (s *Store) GetCodingRule(ctx context.Context, id int64) (*codingrule.CodingRule, error) {
	row := s.q.QueryRow(ctx, `SELECT `+codingRuleColumns+` FROM coding_rules WHERE id = $1 AND deleted_at IS NULL`, id)
	r, err := scanCodingRule(row)
	if err != nil {
		return nil, notFoundWrap(err, "get coding rule %d", id)
	}
	return &r, nil
}

func (s *Store) CodingRuleExists(ctx context.Context, id int64) (bool, error) {
	return s.liveExists(ctx, "coding_rules", id)
}

func (s *Store) SaveCodingRule(ctx context.Context, r *codingrule.CodingRule) error {
	if r.ID == 0 {
		err := s.q.QueryRow(ctx, `
			INSERT INTO coding_rules (convention_id, structure_id, code, name, severity, category, description,
				rationale, applies_to, sdk_constraint, deleted_at, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			RETURNING id, version`,
			r.ConventionID, r.StructureID, r.Code, r.Name, string(r.Severity), string(r.Category), r.Description,
			r.Rationale, orEmpty(r.AppliesTo), r.SDKConstraint, r.DeletedAt, r.CreatedAt, r.UpdatedAt,
		).Scan(&r.ID, &r.Version)
		if err != nil {
			return writeErr(err, "insert coding rule")
		}
		return nil
	}

	row := s.q.QueryRow(ctx, `
		UPDATE coding_rules
		SET structure_id = $2, code = $3, name = $4, severity = $5, category = $6, description = $7,
			rationale = $8, applies_to = $9, sdk_constraint = $10, deleted_at = $11, updated_at = $12,
			version = version + 1
		WHERE id = $1 AND version = $13
		RETURNING version`,
		r.ID, r.StructureID, r.Code, r.Name, string(r.Severity), string(r.Category), r.Description,
		r.Rationale, orEmpty(r.AppliesTo), r.SDKConstraint, r.DeletedAt, r.UpdatedAt, r.Version)
	return finishUpdate(row, &r.Version, "coding rule", r.ID)
}

// --- Rule examples ---

const ruleExampleColumns = `id, rule_id, example_type, code, language, explanation, highlight_lines,
	source, feedback_id, version, deleted_at, created_at, updated_at`

func scanRuleExample(row scannable) (ruleexample.RuleExample, error) {
	var e ruleexample.RuleExample
	err := row.Scan(&e.ID, &e.RuleID, &e.ExampleType, &e.Code, &e.Language, &e.Explanation, &e.HighlightLines,
		&e.Source, &e.FeedbackID, &e.Version, &e.DeletedAt, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func (s *Store) GetRuleExample(ctx context.Context, id int64) (*ruleexample.RuleExample, error) {
	row := s.q.QueryRow(ctx, `SELECT `+ruleExampleColumns+` FROM rule_examples WHERE id = $1 AND deleted_at IS NULL`, id)
	e, err := scanRuleExample(row)
	if err != nil {
		return nil, notFoundWrap(err, "get rule example %d", id)
	}
	return &e, nil
}

func (s *Store) RuleExampleExists(ctx context.Context, id int64) (bool, error) {
	return s.liveExists(ctx, "rule_examples", id)
}

func (s *Store) SaveRuleExample(ctx context.Context, e *ruleexample.RuleExample) error {
	if e.ID == 0 {
		err := s.q.QueryRow(ctx, `
			INSERT INTO rule_examples (rule_id, example_type, code, language, explanation, highlight_lines,
				source, feedback_id, deleted_at, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING id, version`,
			e.RuleID, string(e.ExampleType), e.Code, e.Language, e.Explanation, orEmpty(e.HighlightLines),
			string(e.Source), e.FeedbackID, e.DeletedAt, e.CreatedAt, e.UpdatedAt,
		).Scan(&e.ID, &e.Version)
		if err != nil {
			return writeErr(err, "insert rule example")
		}
		return nil
	}

	row := s.q.QueryRow(ctx, `
		UPDATE rule_examples
		SET example_type = $2, code = $3, language = $4, explanation = $5, highlight_lines = $6,
			deleted_at = $7, updated_at = $8, version = version + 1
		WHERE id = $1 AND version = $9
		RETURNING version`,
		e.ID, string(e.ExampleType), e.Code, e.Language, e.Explanation, orEmpty(e.HighlightLines),
		e.DeletedAt, e.UpdatedAt, e.Version)
	return finishUpdate(row, &e.Version, "rule example", e.ID)
}

// --- Class templates ---

const classTemplateColumns = `id, structure_id, class_type, template_code, naming_pattern, description,
	required_annotations, forbidden_annotations, required_interfaces, forbidden_inheritance, required_methods,
	version, deleted_at, created_at, updated_at`

func scanClassTemplate(row scannable) (classtemplate.ClassTemplate, error) {
	var t classtemplate.ClassTemplate
	err := row.Scan(&t.ID, &t.StructureID, &t.ClassType, &t.TemplateCode, &t.NamingPattern, &t.Description,
		&t.RequiredAnnotations, &t.ForbiddenAnnotations, &t.RequiredInterfaces, &t.ForbiddenInheritance,
		&t.RequiredMethods, &t.Version, &t.DeletedAt, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (s *Store) GetClassTemplate(ctx context.Context, id int64) (*classtemplate.ClassTemplate, error) {
	row := s.q.QueryRow(ctx, `SELECT `+classTemplateColumns+` FROM class_templates WHERE id = $1 AND deleted_at IS NULL`, id)
	t, err := scanClassTemplate(row)
	if err != nil {
		return nil, notFoundWrap(err, "get class template %d", id)
	}
	return &t, nil
}

func (s *Store) ClassTemplateExists(ctx context.Context, id int64) (bool, error) {
	return s.liveExists(ctx, "class_templates", id)
}

func (s *Store) SaveClassTemplate(ctx context.Context, t *classtemplate.ClassTemplate) error {
	if t.ID == 0 {
		err := s.q.QueryRow(ctx, `
			INSERT INTO class_templates (structure_id, class_type, template_code, naming_pattern, description,
				required_annotations, forbidden_annotations, required_interfaces, forbidden_inheritance,
				required_methods, deleted_at, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			RETURNING id, version`,
			t.StructureID, t.ClassType, t.TemplateCode, t.NamingPattern, t.Description,
			orEmpty(t.RequiredAnnotations), orEmpty(t.ForbiddenAnnotations), orEmpty(t.RequiredInterfaces),
			orEmpty(t.ForbiddenInheritance), orEmpty(t.RequiredMethods), t.DeletedAt, t.CreatedAt, t.UpdatedAt,
		).Scan(&t.ID, &t.Version)
		if err != nil {
			return writeErr(err, "insert class template")
		}
		return nil
	}

	row := s.q.QueryRow(ctx, `
		UPDATE class_templates
		SET class_type = $2, template_code = $3, naming_pattern = $4, description = $5,
			required_annotations = $6, forbidden_annotations = $7, required_interfaces = $8,
			forbidden_inheritance = $9, required_methods = $10, deleted_at = $11, updated_at = $12,
			version = version + 1
		WHERE id = $1 AND version = $13
		RETURNING version`,
		t.ID, t.ClassType, t.TemplateCode, t.NamingPattern, t.Description,
		orEmpty(t.RequiredAnnotations), orEmpty(t.ForbiddenAnnotations), orEmpty(t.RequiredInterfaces),
		orEmpty(t.ForbiddenInheritance), orEmpty(t.RequiredMethods), t.DeletedAt, t.UpdatedAt, t.Version)
	return finishUpdate(row, &t.Version, "class template", t.ID)
}

// --- Checklist items ---

const checklistItemColumns = `id, rule_id, sequence_order, check_description, check_type, automation_tool,
	automation_rule_id, critical, source, feedback_id, version, deleted_at, created_at, updated_at`

func scanChecklistItem(row scannable) (checklistitem.ChecklistItem, error) {
	var c checklistitem.ChecklistItem
	err := row.Scan(&c.ID, &c.RuleID, &c.SequenceOrder, &c.CheckDescription, &c.CheckType, &c.AutomationTool,
		&c.AutomationRuleID, &c.Critical, &c.Source, &c.FeedbackID, &c.Version, &c.DeletedAt, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (s *Store) GetChecklistItem(ctx context.Context, id int64) (*checklistitem.ChecklistItem, error) {
	row := s.q.QueryRow(ctx, `SELECT `+checklistItemColumns+` FROM checklist_items WHERE id = $1 AND deleted_at IS NULL`, id)
	c, err := scanChecklistItem(row)
	if err != nil {
		return nil, notFoundWrap(err, "get checklist item %d", id)
	}
	return &c, nil
}

func (s *Store) ChecklistItemExists(ctx context.Context, id int64) (bool, error) {
	return s.liveExists(ctx, "checklist_items", id)
}

func (s *Store) SaveChecklistItem(ctx context.Context, c *checklistitem.ChecklistItem) error {
	if c.ID == 0 {
		err := s.q.QueryRow(ctx, `
			INSERT INTO checklist_items (rule_id, sequence_order, check_description, check_type, automation_tool,
				automation_rule_id, critical, source, feedback_id, deleted_at, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING id, version`,
			c.RuleID, c.SequenceOrder, c.CheckDescription, string(c.CheckType), c.AutomationTool,
			c.AutomationRuleID, c.Critical, string(c.Source), c.FeedbackID, c.DeletedAt, c.CreatedAt, c.UpdatedAt,
		).Scan(&c.ID, &c.Version)
		if err != nil {
			return writeErr(err, "insert checklist item")
		}
		return nil
	}

	row := s.q.QueryRow(ctx, `
		UPDATE checklist_items
		SET sequence_order = $2, check_description = $3, check_type = $4, automation_tool = $5,
			automation_rule_id = $6, critical = $7, deleted_at = $8, updated_at = $9, version = version + 1
		WHERE id = $1 AND version = $10
		RETURNING version`,
		c.ID, c.SequenceOrder, c.CheckDescription, string(c.CheckType), c.AutomationTool,
		c.AutomationRuleID, c.Critical, c.DeletedAt, c.UpdatedAt, c.Version)
	return finishUpdate(row, &c.Version, "checklist item", c.ID)
}

// --- ArchUnit tests ---

const archUnitTestColumns = `id, structure_id, code, name, description, test_class_name, test_method_name,
	test_code, severity, version, deleted_at, created_at, updated_at`

func scanArchUnitTest(row scannable) (archunittest.ArchUnitTest, error) {
	var a archunittest.ArchUnitTest
	err := row.Scan(&a.ID, &a.StructureID, &a.Code, &a.Name, &a.Description, &a.TestClassName, &a.TestMethodName,
		&a.TestCode, &a.Severity, &a.Version, &a.DeletedAt, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (s *Store) GetArchUnitTest(ctx context.Context, id int64) (*archunittest.ArchUnitTest, error) {
	row := s.q.QueryRow(ctx, `SELECT `+archUnitTestColumns+` FROM arch_unit_tests WHERE id = $1 AND deleted_at IS NULL`, id)
	a, err := scanArchUnitTest(row)
	if err != nil {
		return nil, notFoundWrap(err, "get archunit test %d", id)
	}
	return &a, nil
}

func (s *Store) ArchUnitTestExists(ctx context.Context, id int64) (bool, error) {
	return s.liveExists(ctx, "arch_unit_tests", id)
}

func (s *Store) SaveArchUnitTest(ctx context.Context, a *archunittest.ArchUnitTest) error {
	if a.ID == 0 {
		err := s.q.QueryRow(ctx, `
			INSERT INTO arch_unit_tests (structure_id, code, name, description, test_class_name, test_method_name,
				test_code, severity, deleted_at, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING id, version`,
			a.StructureID, a.Code, a.Name, a.Description, a.TestClassName, a.TestMethodName,
			a.TestCode, string(a.Severity), a.DeletedAt, a.CreatedAt, a.UpdatedAt,
		).Scan(&a.ID, &a.Version)
		if err != nil {
			return writeErr(err, "insert archunit test")
		}
		return nil
	}

	row := s.q.QueryRow(ctx, `
		UPDATE arch_unit_tests
		SET code = $2, name = $3, description = $4, test_class_name = $5, test_method_name = $6,
			test_code = $7, severity = $8, deleted_at = $9, updated_at = $10, version = version + 1
		WHERE id = $1 AND version = $11
		RETURNING version`,
		a.ID, a.Code, a.Name, a.Description, a.TestClassName, a.TestMethodName,
		a.TestCode, string(a.Severity), a.DeletedAt, a.UpdatedAt, a.Version)
	return finishUpdate(row, &a.Version, "archunit test", a.ID)
}
