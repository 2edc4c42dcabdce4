package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Strob0t/standardhub/internal/adapter/memory"
	"github.com/Strob0t/standardhub/internal/domain"
	"github.com/Strob0t/standardhub/internal/domain/codingrule"
	"github.com/Strob0t/standardhub/internal/domain/feedback"
	"github.com/Strob0t/standardhub/internal/domain/ruleexample"
	"github.com/Strob0t/standardhub/internal/port/database"
	"github.com/Strob0t/standardhub/internal/port/feedbackqueue"
	"github.com/Strob0t/standardhub/internal/port/messagequeue"
	"github.com/Strob0t/standardhub/internal/resilience"
	"github.com/Strob0t/standardhub/internal/service"
	"github.com/Strob0t/standardhub/internal/service/feedbacktarget"
)

const rulePayload = `{"convention_id":1,"code":"DOM-010","name":"ids are value objects","severity":"MAJOR","category":"STRUCTURE","description":"wrap raw ids"}`

type fixture struct {
	store *memory.Store
	regs  feedbackqueue.Registries
	svc   *service.FeedbackService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	store.AddConvention(1)
	store.AddPackageStructure(2)
	regs, err := feedbacktarget.NewRegistries(nil)
	require.NoError(t, err)
	return &fixture{store: store, regs: regs, svc: service.NewFeedbackService(store, regs, nil)}
}

func (f *fixture) seedRule(t *testing.T, code string) *codingrule.CodingRule {
	t.Helper()
	r, err := codingrule.New(codingrule.CreateRequest{
		ConventionID: 1, Code: code, Name: "n", Severity: codingrule.SeverityMinor,
		Category: codingrule.CategoryNaming, Description: "d",
	}, time.Now())
	require.NoError(t, err)
	require.NoError(t, f.store.SaveCodingRule(context.Background(), r))
	return r
}

func (f *fixture) submitRule(t *testing.T, risk feedback.RiskLevel) *feedback.Item {
	t.Helper()
	it, err := f.svc.Create(context.Background(), feedback.CreateCommand{
		TargetType:   feedback.TargetCodingRule,
		FeedbackType: feedback.TypeAdd,
		Payload:      json.RawMessage(rulePayload),
		RiskLevel:    risk,
	})
	require.NoError(t, err)
	return it
}

func ptr(v int64) *int64 { return &v }

func TestScenarioA_LowRiskAutoMerge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	it := f.submitRule(t, feedback.RiskLow)
	assert.Equal(t, feedback.StatusPending, it.Status)
	assert.Nil(t, it.TargetID)

	got, err := f.svc.Process(ctx, feedback.ProcessCommand{FeedbackID: it.ID, Action: feedback.ActionLLMApprove})
	require.NoError(t, err)
	assert.Equal(t, feedback.StatusMerged, got.Status)
	require.NotNil(t, got.TargetID)

	rule, err := f.store.GetCodingRule(ctx, *got.TargetID)
	require.NoError(t, err)
	assert.Equal(t, "DOM-010", rule.Code)

	stored, err := f.svc.Get(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, feedback.StatusMerged, stored.Status)
	assert.Equal(t, got.TargetID, stored.TargetID)
}

func TestScenarioB_MediumRiskNeedsHuman(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rule := f.seedRule(t, "DOM-001")
	ex, err := ruleexample.New(ruleexample.CreateRequest{RuleID: rule.ID, ExampleType: ruleexample.TypeGood, Code: "class A {}"}, time.Now())
	require.NoError(t, err)
	require.NoError(t, f.store.SaveRuleExample(ctx, ex))

	it, err := f.svc.Create(ctx, feedback.CreateCommand{
		TargetType:   feedback.TargetRuleExample,
		TargetID:     ptr(ex.ID),
		FeedbackType: feedback.TypeModify,
		Payload:      json.RawMessage(`{"explanation":"records are preferred"}`),
		RiskLevel:    feedback.RiskMedium,
	})
	require.NoError(t, err)

	got, err := f.svc.Process(ctx, feedback.ProcessCommand{FeedbackID: it.ID, Action: feedback.ActionLLMApprove})
	require.NoError(t, err)
	assert.Equal(t, feedback.StatusLLMApproved, got.Status)

	unchanged, err := f.store.GetRuleExample(ctx, ex.ID)
	require.NoError(t, err)
	assert.Empty(t, unchanged.Explanation)

	got, err = f.svc.Process(ctx, feedback.ProcessCommand{FeedbackID: it.ID, Action: feedback.ActionHumanApprove})
	require.NoError(t, err)
	assert.Equal(t, feedback.StatusMerged, got.Status)
	assert.Equal(t, ex.ID, *got.TargetID)

	merged, err := f.store.GetRuleExample(ctx, ex.ID)
	require.NoError(t, err)
	assert.Equal(t, "records are preferred", merged.Explanation)
}

func TestScenarioC_UnknownTargetRejectedAtIntake(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, feedback.CreateCommand{
		TargetType:   feedback.TargetRuleExample,
		TargetID:     ptr(999),
		FeedbackType: feedback.TypeModify,
		Payload:      json.RawMessage(`{"explanation":"x"}`),
	})
	var invalid *feedback.InvalidPayloadError
	require.ErrorAs(t, err, &invalid)
	assert.ErrorIs(t, err, domain.ErrValidation)

	items, err := f.svc.List(ctx, feedback.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestScenarioD_TerminalStateRejectsAction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	it := f.submitRule(t, feedback.RiskMedium)

	_, err := f.svc.Process(ctx, feedback.ProcessCommand{FeedbackID: it.ID, Action: feedback.ActionLLMReject, ReviewNotes: "duplicate"})
	require.NoError(t, err)

	_, err = f.svc.Process(ctx, feedback.ProcessCommand{FeedbackID: it.ID, Action: feedback.ActionHumanApprove})
	var te *feedback.InvalidTransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, it.ID, te.FeedbackID)

	stored, err := f.svc.Get(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, feedback.StatusLLMRejected, stored.Status)
	assert.Equal(t, "duplicate", stored.ReviewNotes)
}

func TestScenarioE_UniqueViolationKeepsPreMergeStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	it := f.submitRule(t, feedback.RiskLow)
	clash := f.seedRule(t, "DOM-010")

	_, err := f.svc.Process(ctx, feedback.ProcessCommand{FeedbackID: it.ID, Action: feedback.ActionLLMApprove})
	require.ErrorIs(t, err, domain.ErrConflict)

	stored, err := f.svc.Get(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, feedback.StatusPending, stored.Status)
	assert.Nil(t, stored.TargetID)

	// retryable once the clash is gone
	clash.Delete(time.Now())
	require.NoError(t, f.store.SaveCodingRule(ctx, clash))
	got, err := f.svc.Process(ctx, feedback.ProcessCommand{FeedbackID: it.ID, Action: feedback.ActionLLMApprove})
	require.NoError(t, err)
	assert.Equal(t, feedback.StatusMerged, got.Status)
}

func TestCreateAppliesDefaultRisk(t *testing.T) {
	f := newFixture(t)
	it := f.submitRule(t, "")
	assert.Equal(t, feedback.RiskMedium, it.RiskLevel)

	svc := service.NewFeedbackService(f.store, f.regs, map[feedback.TargetType]feedback.RiskLevel{
		feedback.TargetCodingRule: feedback.RiskHigh,
	})
	it, err := svc.Create(context.Background(), feedback.CreateCommand{
		TargetType: feedback.TargetCodingRule, FeedbackType: feedback.TypeAdd, Payload: json.RawMessage(rulePayload),
	})
	require.NoError(t, err)
	assert.Equal(t, feedback.RiskHigh, it.RiskLevel)
}

func TestCreateRejectsTargetIDOnAdd(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), feedback.CreateCommand{
		TargetType: feedback.TargetCodingRule, TargetID: ptr(1), FeedbackType: feedback.TypeAdd, Payload: json.RawMessage(rulePayload),
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestMergeIsAtMostOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	it := f.submitRule(t, feedback.RiskLow)

	_, err := f.svc.Process(ctx, feedback.ProcessCommand{FeedbackID: it.ID, Action: feedback.ActionLLMApprove})
	require.NoError(t, err)

	_, err = f.svc.Merge(ctx, it.ID)
	var te *feedback.InvalidTransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, feedback.StatusMerged, te.From)
}

func TestMergeFromMergeableRestingState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	it := f.submitRule(t, feedback.RiskLow)

	// an LLM_APPROVED low-risk row left behind by an earlier writer
	it.Status = feedback.StatusLLMApproved
	require.NoError(t, f.store.UpdateFeedback(ctx, it))

	got, err := f.svc.Merge(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, feedback.StatusMerged, got.Status)
	assert.NotNil(t, got.TargetID)
}

func TestMergeFromPendingIsIllegal(t *testing.T) {
	f := newFixture(t)
	it := f.submitRule(t, feedback.RiskLow)

	_, err := f.svc.Merge(context.Background(), it.ID)
	var te *feedback.InvalidTransitionError
	assert.ErrorAs(t, err, &te)
}

type failingStrategy struct {
	feedbackqueue.MergeStrategy
	created int64
}

func (s *failingStrategy) Merge(ctx context.Context, cat database.Catalog, it *feedback.Item) (int64, error) {
	id, err := s.MergeStrategy.Merge(ctx, cat, it)
	if err != nil {
		return 0, err
	}
	s.created = id
	return 0, errors.New("disk full")
}

func TestMergeRollsBackOnStrategyFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	real, err := f.regs.Strategy.Resolve(feedback.TargetCodingRule)
	require.NoError(t, err)
	failing := &failingStrategy{MergeStrategy: real}
	strategies, err := feedbackqueue.NewRegistry[feedbackqueue.MergeStrategy]("merge strategy", failing)
	require.NoError(t, err)
	regs := f.regs
	regs.Strategy = strategies
	svc := service.NewFeedbackService(f.store, regs, nil)

	it, err := svc.Create(ctx, feedback.CreateCommand{
		TargetType: feedback.TargetCodingRule, FeedbackType: feedback.TypeAdd,
		Payload: json.RawMessage(rulePayload), RiskLevel: feedback.RiskLow,
	})
	require.NoError(t, err)

	_, err = svc.Process(ctx, feedback.ProcessCommand{FeedbackID: it.ID, Action: feedback.ActionLLMApprove})
	require.EqualError(t, err, "disk full")
	require.NotZero(t, failing.created)

	ok, err := f.store.CodingRuleExists(ctx, failing.created)
	require.NoError(t, err)
	assert.False(t, ok, "entity write must roll back with the failed merge")

	stored, err := svc.Get(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, feedback.StatusPending, stored.Status)
	assert.Equal(t, it.Version, stored.Version)
}

func TestMergeValidationFailureKeepsStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rule := f.seedRule(t, "DOM-002")

	it, err := f.svc.Create(ctx, feedback.CreateCommand{
		TargetType: feedback.TargetCodingRule, TargetID: ptr(rule.ID), FeedbackType: feedback.TypeModify,
		Payload: json.RawMessage(`{"name":"renamed"}`), RiskLevel: feedback.RiskLow,
	})
	require.NoError(t, err)

	rule.Delete(time.Now())
	require.NoError(t, f.store.SaveCodingRule(ctx, rule))

	_, err = f.svc.Process(ctx, feedback.ProcessCommand{FeedbackID: it.ID, Action: feedback.ActionLLMApprove})
	var mv *feedback.MergeValidationError
	require.ErrorAs(t, err, &mv)
	assert.Equal(t, it.ID, mv.FeedbackID)

	stored, err := f.svc.Get(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, feedback.StatusPending, stored.Status)
}

func TestConcurrentApprovalsMergeOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	it := f.submitRule(t, feedback.RiskLow)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Process(ctx, feedback.ProcessCommand{FeedbackID: it.ID, Action: feedback.ActionLLMApprove})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			var te *feedback.InvalidTransitionError
			if !errors.As(err, &te) && !errors.Is(err, domain.ErrConflict) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	stored, err := f.svc.Get(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, feedback.StatusMerged, stored.Status)
}

func TestReject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pending := f.submitRule(t, feedback.RiskHigh)
	got, err := f.svc.Reject(ctx, pending.ID, "out of scope")
	require.NoError(t, err)
	assert.Equal(t, feedback.StatusLLMRejected, got.Status)

	approved := f.submitRule(t, feedback.RiskHigh)
	_, err = f.svc.Process(ctx, feedback.ProcessCommand{FeedbackID: approved.ID, Action: feedback.ActionLLMApprove})
	require.NoError(t, err)
	got, err = f.svc.Reject(ctx, approved.ID, "conflicts with DOM-001")
	require.NoError(t, err)
	assert.Equal(t, feedback.StatusHumanRejected, got.Status)
	assert.Equal(t, "conflicts with DOM-001", got.ReviewNotes)

	blank := f.submitRule(t, feedback.RiskHigh)
	_, err = f.svc.Reject(ctx, blank.ID, "  ")
	var te *feedback.InvalidTransitionError
	require.ErrorAs(t, err, &te)

	_, err = f.svc.Reject(ctx, got.ID, "again")
	require.ErrorAs(t, err, &te)
}

func TestProcessUnknownID(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Process(context.Background(), feedback.ProcessCommand{FeedbackID: 404, Action: feedback.ActionLLMApprove})
	var nf *feedback.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProcessRejectsNonReviewAction(t *testing.T) {
	f := newFixture(t)
	it := f.submitRule(t, feedback.RiskLow)
	_, err := f.svc.Process(context.Background(), feedback.ProcessCommand{FeedbackID: it.ID, Action: feedback.ActionMerge})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestQueues(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.submitRule(t, feedback.RiskHigh)
	second := f.submitRule(t, feedback.RiskMedium)
	f.submitRule(t, feedback.RiskHigh)

	_, err := f.svc.Process(ctx, feedback.ProcessCommand{FeedbackID: second.ID, Action: feedback.ActionLLMApprove})
	require.NoError(t, err)

	pending, err := f.svc.Pending(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID)

	next, err := f.svc.Pending(ctx, first.ID, 1)
	require.NoError(t, err)
	require.Len(t, next, 1)
	assert.Greater(t, next[0].ID, first.ID)

	review, err := f.svc.AwaitingHumanReview(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, review, 1)
	assert.Equal(t, second.ID, review[0].ID)

	_, err = f.svc.List(ctx, feedback.ListFilter{Status: "BOGUS"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

type recordingQueue struct {
	mu       sync.Mutex
	subjects []string
	fail     bool
}

func (q *recordingQueue) Publish(_ context.Context, subject string, data []byte) error {
	if err := messagequeue.Validate(subject, data); err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.fail {
		return errors.New("nats: no responders")
	}
	q.subjects = append(q.subjects, subject)
	return nil
}

func (q *recordingQueue) Subscribe(context.Context, string, messagequeue.Handler) (func(), error) {
	return func() {}, nil
}
func (q *recordingQueue) Drain() error      { return nil }
func (q *recordingQueue) Close() error      { return nil }
func (q *recordingQueue) IsConnected() bool { return true }

func TestEventsPublished(t *testing.T) {
	f := newFixture(t)
	q := &recordingQueue{}
	f.svc.SetQueue(q, resilience.NewBreaker("events", 3, time.Minute))

	it := f.submitRule(t, feedback.RiskLow)
	_, err := f.svc.Process(context.Background(), feedback.ProcessCommand{FeedbackID: it.ID, Action: feedback.ActionLLMApprove})
	require.NoError(t, err)

	assert.Equal(t, []string{
		messagequeue.SubjectFeedbackCreated,
		messagequeue.SubjectFeedbackTransitioned,
		messagequeue.SubjectFeedbackMerged,
	}, q.subjects)
}

func TestPublishFailureDoesNotFailCommand(t *testing.T) {
	f := newFixture(t)
	f.svc.SetQueue(&recordingQueue{fail: true}, resilience.NewBreaker("events", 1, time.Minute))

	it := f.submitRule(t, feedback.RiskLow)
	got, err := f.svc.Process(context.Background(), feedback.ProcessCommand{FeedbackID: it.ID, Action: feedback.ActionLLMApprove})
	require.NoError(t, err)
	assert.Equal(t, feedback.StatusMerged, got.Status)
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []messagequeue.FeedbackEventPayload
	types  []string
}

func (b *recordingBroadcaster) BroadcastEvent(_ context.Context, eventType string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.types = append(b.types, eventType)
	b.events = append(b.events, payload.(messagequeue.FeedbackEventPayload))
}

func TestEventsBroadcastWithoutQueue(t *testing.T) {
	f := newFixture(t)
	b := &recordingBroadcaster{}
	f.svc.SetBroadcaster(b)

	it := f.submitRule(t, feedback.RiskMedium)
	_, err := f.svc.Process(context.Background(), feedback.ProcessCommand{FeedbackID: it.ID, Action: feedback.ActionLLMApprove})
	require.NoError(t, err)

	require.Equal(t, []string{messagequeue.SubjectFeedbackCreated, messagequeue.SubjectFeedbackTransitioned}, b.types)
	last := b.events[1]
	assert.Equal(t, it.ID, last.FeedbackID)
	assert.Equal(t, string(feedback.StatusPending), last.From)
	assert.Equal(t, string(feedback.StatusLLMApproved), last.To)
	assert.Equal(t, string(feedback.ActionLLMApprove), last.Action)
	assert.NotEmpty(t, last.EventID)
}
