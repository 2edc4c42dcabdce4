package memory

import (
	"context"
	"fmt"

	"github.com/Strob0t/standardhub/internal/domain"
	"github.com/Strob0t/standardhub/internal/domain/archunittest"
	"github.com/Strob0t/standardhub/internal/domain/checklistitem"
	"github.com/Strob0t/standardhub/internal/domain/classtemplate"
	"github.com/Strob0t/standardhub/internal/domain/codingrule"
	"github.com/Strob0t/standardhub/internal/domain/ruleexample"
)

// entity lists the catalogue row types kept by the store.
type entity interface {
	codingrule.CodingRule | ruleexample.RuleExample | classtemplate.ClassTemplate |
		checklistitem.ChecklistItem | archunittest.ArchUnitTest
}

func get[T entity](table map[int64]T, id int64, what string, deleted func(*T) bool) (*T, error) {
	v, ok := table[id]
	if !ok || deleted(&v) {
		return nil, fmt.Errorf("get %s %d: %w", what, id, domain.ErrNotFound)
	}
	return &v, nil
}

func exists[T entity](table map[int64]T, id int64, deleted func(*T) bool) bool {
	v, ok := table[id]
	return ok && !deleted(&v)
}

// rowMeta points at the id and version fields of the row being saved.
type rowMeta struct {
	id      *int64
	version *int
}

// save inserts (zero id) or version-checked updates v. conflict reports a
// clash with another live row, mirroring the unique indexes of the SQL schema.
func save[T entity](st *state, table map[int64]T, v *T, m rowMeta, what string, conflict func(other *T) bool) error {
	for id, other := range table {
		if id == *m.id {
			continue
		}
		if conflict(&other) {
			return fmt.Errorf("save %s: duplicate key: %w", what, domain.ErrConflict)
		}
	}

	if *m.id == 0 {
		*m.id = st.id()
		*m.version = 1
		table[*m.id] = *v
		return nil
	}

	cur, ok := table[*m.id]
	if !ok {
		return fmt.Errorf("save %s %d: %w", what, *m.id, domain.ErrNotFound)
	}
	if curVersion(&cur) != *m.version {
		return fmt.Errorf("save %s %d: %w", what, *m.id, domain.ErrConflict)
	}
	*m.version++
	table[*m.id] = *v
	return nil
}

func curVersion[T entity](v *T) int {
	switch e := any(v).(type) {
	case *codingrule.CodingRule:
		return e.Version
	case *ruleexample.RuleExample:
		return e.Version
	case *classtemplate.ClassTemplate:
		return e.Version
	case *checklistitem.ChecklistItem:
		return e.Version
	case *archunittest.ArchUnitTest:
		return e.Version
	}
	return 0
}

// --- Coding rules ---

func (s *Store) GetCodingRule(_ context.Context, id int64) (*codingrule.CodingRule, error) {
	defer s.lock()()
	return get(s.data.rules, id, "coding rule", (*codingrule.CodingRule).IsDeleted)
}

func (s *Store) CodingRuleExists(_ context.Context, id int64) (bool, error) {
	defer s.lock()()
	return exists(s.data.rules, id, (*codingrule.CodingRule).IsDeleted), nil
}

func (s *Store) SaveCodingRule(_ context.Context, r *codingrule.CodingRule) error {
	defer s.lock()()
	m := rowMeta{&r.ID, &r.Version}
	return save(s.data, s.data.rules, r, m, "coding rule", func(o *codingrule.CodingRule) bool {
		return !r.IsDeleted() && !o.IsDeleted() && o.ConventionID == r.ConventionID && o.Code == r.Code
	})
}

// --- Rule examples ---

func (s *Store) GetRuleExample(_ context.Context, id int64) (*ruleexample.RuleExample, error) {
	defer s.lock()()
	return get(s.data.examples, id, "rule example", (*ruleexample.RuleExample).IsDeleted)
}

func (s *Store) RuleExampleExists(_ context.Context, id int64) (bool, error) {
	defer s.lock()()
	return exists(s.data.examples, id, (*ruleexample.RuleExample).IsDeleted), nil
}

func (s *Store) SaveRuleExample(_ context.Context, e *ruleexample.RuleExample) error {
	defer s.lock()()
	m := rowMeta{&e.ID, &e.Version}
	return save(s.data, s.data.examples, e, m, "rule example", func(*ruleexample.RuleExample) bool { return false })
}

// --- Class templates ---

func (s *Store) GetClassTemplate(_ context.Context, id int64) (*classtemplate.ClassTemplate, error) {
	defer s.lock()()
	return get(s.data.templates, id, "class template", (*classtemplate.ClassTemplate).IsDeleted)
}

func (s *Store) ClassTemplateExists(_ context.Context, id int64) (bool, error) {
	defer s.lock()()
	return exists(s.data.templates, id, (*classtemplate.ClassTemplate).IsDeleted), nil
}

func (s *Store) SaveClassTemplate(_ context.Context, t *classtemplate.ClassTemplate) error {
	defer s.lock()()
	m := rowMeta{&t.ID, &t.Version}
	return save(s.data, s.data.templates, t, m, "class template", func(o *classtemplate.ClassTemplate) bool {
		return !t.IsDeleted() && !o.IsDeleted() && o.StructureID == t.StructureID && o.ClassType == t.ClassType
	})
}

// --- Checklist items ---

func (s *Store) GetChecklistItem(_ context.Context, id int64) (*checklistitem.ChecklistItem, error) {
	defer s.lock()()
	return get(s.data.checklist, id, "checklist item", (*checklistitem.ChecklistItem).IsDeleted)
}

func (s *Store) ChecklistItemExists(_ context.Context, id int64) (bool, error) {
	defer s.lock()()
	return exists(s.data.checklist, id, (*checklistitem.ChecklistItem).IsDeleted), nil
}

func (s *Store) SaveChecklistItem(_ context.Context, c *checklistitem.ChecklistItem) error {
	defer s.lock()()
	m := rowMeta{&c.ID, &c.Version}
	return save(s.data, s.data.checklist, c, m, "checklist item", func(*checklistitem.ChecklistItem) bool { return false })
}

// --- ArchUnit tests ---

func (s *Store) GetArchUnitTest(_ context.Context, id int64) (*archunittest.ArchUnitTest, error) {
	defer s.lock()()
	return get(s.data.archtests, id, "archunit test", (*archunittest.ArchUnitTest).IsDeleted)
}

func (s *Store) ArchUnitTestExists(_ context.Context, id int64) (bool, error) {
	defer s.lock()()
	return exists(s.data.archtests, id, (*archunittest.ArchUnitTest).IsDeleted), nil
}

func (s *Store) SaveArchUnitTest(_ context.Context, a *archunittest.ArchUnitTest) error {
	defer s.lock()()
	m := rowMeta{&a.ID, &a.Version}
	return save(s.data, s.data.archtests, a, m, "archunit test", func(o *archunittest.ArchUnitTest) bool {
		return !a.IsDeleted() && !o.IsDeleted() && o.StructureID == a.StructureID && o.Code == a.Code
	})
}
