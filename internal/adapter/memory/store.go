// Package memory implements database.Store in process memory. It backs the
// "memory" storage driver used for local runs and the service tests.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/Strob0t/standardhub/internal/domain"
	"github.com/Strob0t/standardhub/internal/domain/archunittest"
	"github.com/Strob0t/standardhub/internal/domain/checklistitem"
	"github.com/Strob0t/standardhub/internal/domain/classtemplate"
	"github.com/Strob0t/standardhub/internal/domain/codingrule"
	"github.com/Strob0t/standardhub/internal/domain/feedback"
	"github.com/Strob0t/standardhub/internal/domain/ruleexample"
	"github.com/Strob0t/standardhub/internal/port/database"
)

var _ database.Store = (*Store)(nil)

type state struct {
	nextID      int64
	conventions map[int64]bool
	structures  map[int64]bool
	feedback    map[int64]feedback.Item
	rules       map[int64]codingrule.CodingRule
	examples    map[int64]ruleexample.RuleExample
	templates   map[int64]classtemplate.ClassTemplate
	checklist   map[int64]checklistitem.ChecklistItem
	archtests   map[int64]archunittest.ArchUnitTest
}

func newState() *state {
	return &state{
		conventions: map[int64]bool{},
		structures:  map[int64]bool{},
		feedback:    map[int64]feedback.Item{},
		rules:       map[int64]codingrule.CodingRule{},
		examples:    map[int64]ruleexample.RuleExample{},
		templates:   map[int64]classtemplate.ClassTemplate{},
		checklist:   map[int64]checklistitem.ChecklistItem{},
		archtests:   map[int64]archunittest.ArchUnitTest{},
	}
}

func (st *state) clone() *state {
	return &state{
		nextID:      st.nextID,
		conventions: maps.Clone(st.conventions),
		structures:  maps.Clone(st.structures),
		feedback:    maps.Clone(st.feedback),
		rules:       maps.Clone(st.rules),
		examples:    maps.Clone(st.examples),
		templates:   maps.Clone(st.templates),
		checklist:   maps.Clone(st.checklist),
		archtests:   maps.Clone(st.archtests),
	}
}

func (st *state) id() int64 {
	st.nextID++
	return st.nextID
}

// Store is an in-memory database.Store. Transactions run serialized against
// a copy of the state that replaces the original on commit.
type Store struct {
	mu   *sync.Mutex
	data *state
	tx   bool
	now  func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{mu: &sync.Mutex{}, data: newState(), now: time.Now}
}

func (s *Store) lock() func() {
	if s.tx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// InTx runs fn against a snapshot and publishes it only if fn succeeds.
func (s *Store) InTx(ctx context.Context, fn func(tx database.Store) error) error {
	if s.tx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	tx := &Store{mu: s.mu, data: snapshot, tx: true, now: s.now}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.data = snapshot
	return nil
}

// AddConvention registers a convention id so coding rules can reference it.
func (s *Store) AddConvention(id int64) {
	defer s.lock()()
	s.data.conventions[id] = true
}

// AddPackageStructure registers a package structure id.
func (s *Store) AddPackageStructure(id int64) {
	defer s.lock()()
	s.data.structures[id] = true
}

// --- Feedback ---

func (s *Store) CreateFeedback(_ context.Context, it *feedback.Item) error {
	defer s.lock()()
	now := s.now()
	it.ID = s.data.id()
	it.Version = 1
	it.CreatedAt, it.UpdatedAt = now, now
	s.data.feedback[it.ID] = *it
	return nil
}

func (s *Store) GetFeedback(_ context.Context, id int64) (*feedback.Item, error) {
	defer s.lock()()
	it, ok := s.data.feedback[id]
	if !ok {
		return nil, fmt.Errorf("get feedback %d: %w", id, domain.ErrNotFound)
	}
	return &it, nil
}

func (s *Store) ListFeedback(_ context.Context, f feedback.ListFilter) ([]feedback.Item, error) {
	defer s.lock()()
	ids := slices.Sorted(maps.Keys(s.data.feedback))
	if !f.OldestFirst {
		slices.Reverse(ids)
	}

	out := []feedback.Item{}
	for _, id := range ids {
		if f.AfterID > 0 && ((f.OldestFirst && id <= f.AfterID) || (!f.OldestFirst && id >= f.AfterID)) {
			continue
		}
		it := s.data.feedback[id]
		if !matches(it, f) {
			continue
		}
		out = append(out, it)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func matches(it feedback.Item, f feedback.ListFilter) bool {
	switch {
	case f.Status != "" && it.Status != f.Status:
		return false
	case f.TargetType != "" && it.TargetType != f.TargetType:
		return false
	case f.RiskLevel != "" && it.RiskLevel != f.RiskLevel:
		return false
	case f.FeedbackType != "" && it.FeedbackType != f.FeedbackType:
		return false
	case f.HumanReview && !(it.Status == feedback.StatusLLMApproved && it.RiskLevel.RequiresHumanApproval()):
		return false
	}
	return true
}

func (s *Store) UpdateFeedback(_ context.Context, it *feedback.Item) error {
	defer s.lock()()
	cur, ok := s.data.feedback[it.ID]
	if !ok {
		return fmt.Errorf("update feedback %d: %w", it.ID, domain.ErrNotFound)
	}
	if cur.Version != it.Version {
		return fmt.Errorf("update feedback %d: %w", it.ID, domain.ErrConflict)
	}
	cur.Status = it.Status
	cur.ReviewNotes = it.ReviewNotes
	cur.TargetID = it.TargetID
	cur.Version++
	cur.UpdatedAt = s.now()
	s.data.feedback[it.ID] = cur

	it.Version = cur.Version
	it.UpdatedAt = cur.UpdatedAt
	return nil
}

// --- Parents ---

func (s *Store) ConventionExists(_ context.Context, id int64) (bool, error) {
	defer s.lock()()
	return s.data.conventions[id], nil
}

func (s *Store) PackageStructureExists(_ context.Context, id int64) (bool, error) {
	defer s.lock()()
	return s.data.structures[id], nil
}
