package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Strob0t/standardhub/internal/domain"
	"github.com/Strob0t/standardhub/internal/domain/codingrule"
	"github.com/Strob0t/standardhub/internal/domain/feedback"
	"github.com/Strob0t/standardhub/internal/port/database"
)

func newItem(t *testing.T, tt feedback.TargetType, risk feedback.RiskLevel) *feedback.Item {
	t.Helper()
	it, err := feedback.ForNew(tt, nil, feedback.TypeAdd, nil, risk, time.Now())
	require.NoError(t, err)
	return it
}

func TestFeedbackCAS(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	it := newItem(t, feedback.TargetCodingRule, feedback.RiskLow)
	require.NoError(t, s.CreateFeedback(ctx, it))
	assert.Equal(t, int64(1), it.ID)
	assert.Equal(t, 1, it.Version)

	a, err := s.GetFeedback(ctx, it.ID)
	require.NoError(t, err)
	b, err := s.GetFeedback(ctx, it.ID)
	require.NoError(t, err)

	a.Status = feedback.StatusLLMRejected
	require.NoError(t, s.UpdateFeedback(ctx, a))
	assert.Equal(t, 2, a.Version)

	b.Status = feedback.StatusMerged
	require.ErrorIs(t, s.UpdateFeedback(ctx, b), domain.ErrConflict)

	got, err := s.GetFeedback(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, feedback.StatusLLMRejected, got.Status)

	_, err = s.GetFeedback(ctx, 99)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListFeedback(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	for _, tc := range []struct {
		tt   feedback.TargetType
		risk feedback.RiskLevel
	}{
		{feedback.TargetCodingRule, feedback.RiskLow},
		{feedback.TargetRuleExample, feedback.RiskHigh},
		{feedback.TargetCodingRule, feedback.RiskMedium},
		{feedback.TargetArchUnitTest, feedback.RiskHigh},
	} {
		require.NoError(t, s.CreateFeedback(ctx, newItem(t, tc.tt, tc.risk)))
	}

	all, err := s.ListFeedback(ctx, feedback.ListFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, int64(4), all[0].ID)

	page, err := s.ListFeedback(ctx, feedback.ListFilter{Limit: 2, AfterID: 3})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, []int64{2, 1}, []int64{page[0].ID, page[1].ID})

	oldest, err := s.ListFeedback(ctx, feedback.ListFilter{Limit: 2, OldestFirst: true, AfterID: 1})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, []int64{oldest[0].ID, oldest[1].ID})

	rules, err := s.ListFeedback(ctx, feedback.ListFilter{TargetType: feedback.TargetCodingRule})
	require.NoError(t, err)
	assert.Len(t, rules, 2)

	approved, err := s.GetFeedback(ctx, 2)
	require.NoError(t, err)
	approved.Status = feedback.StatusLLMApproved
	require.NoError(t, s.UpdateFeedback(ctx, approved))

	review, err := s.ListFeedback(ctx, feedback.ListFilter{HumanReview: true})
	require.NoError(t, err)
	require.Len(t, review, 1)
	assert.Equal(t, int64(2), review[0].ID)
}

func TestInTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	s.AddConvention(1)

	boom := errors.New("boom")
	err := s.InTx(ctx, func(tx database.Store) error {
		rule, err := codingrule.New(codingrule.CreateRequest{
			ConventionID: 1, Code: "R-1", Name: "n", Severity: codingrule.SeverityInfo,
			Category: codingrule.CategoryNaming, Description: "d",
		}, time.Now())
		require.NoError(t, err)
		require.NoError(t, tx.SaveCodingRule(ctx, rule))
		ok, err := tx.CodingRuleExists(ctx, rule.ID)
		require.NoError(t, err)
		require.True(t, ok)
		return boom
	})
	require.ErrorIs(t, err, boom)

	ok, err := s.CodingRuleExists(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSaveCodingRuleUniqueAndSoftDelete(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	req := codingrule.CreateRequest{
		ConventionID: 1, Code: "R-1", Name: "n", Severity: codingrule.SeverityInfo,
		Category: codingrule.CategoryNaming, Description: "d",
	}

	first, err := codingrule.New(req, time.Now())
	require.NoError(t, err)
	require.NoError(t, s.SaveCodingRule(ctx, first))

	dup, err := codingrule.New(req, time.Now())
	require.NoError(t, err)
	require.ErrorIs(t, s.SaveCodingRule(ctx, dup), domain.ErrConflict)

	first.Delete(time.Now())
	require.NoError(t, s.SaveCodingRule(ctx, first))
	_, err = s.GetCodingRule(ctx, first.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.SaveCodingRule(ctx, dup))
}
