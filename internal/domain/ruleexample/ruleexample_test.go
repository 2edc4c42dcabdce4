package ruleexample

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Strob0t/standardhub/internal/domain"
)

func TestNewDefaults(t *testing.T) {
	e, err := New(CreateRequest{RuleID: 3, ExampleType: TypeBad, Code: "@Data class Order {}"}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, DefaultLanguage, e.Language)
	assert.Equal(t, SourceManual, e.Source)
	assert.Nil(t, e.FeedbackID)
	assert.Empty(t, e.HighlightLines)
}

func TestNewFromFeedback(t *testing.T) {
	e, err := NewFromFeedback(CreateRequest{RuleID: 3, ExampleType: TypeGood, Code: "class Order {}", Language: "kotlin"}, 77, time.Now())
	require.NoError(t, err)
	assert.Equal(t, SourceAgentFeedback, e.Source)
	require.NotNil(t, e.FeedbackID)
	assert.Equal(t, int64(77), *e.FeedbackID)
	assert.Equal(t, "KOTLIN", e.Language)
}

func TestCreateRequestValidate(t *testing.T) {
	tests := []struct {
		name string
		req  CreateRequest
	}{
		{"missing rule", CreateRequest{ExampleType: TypeGood, Code: "x"}},
		{"bad type", CreateRequest{RuleID: 1, ExampleType: "UGLY", Code: "x"}},
		{"blank code", CreateRequest{RuleID: 1, ExampleType: TypeGood, Code: " "}},
		{"bad line", CreateRequest{RuleID: 1, ExampleType: TypeGood, Code: "x", HighlightLines: []int{0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, tt.req.Validate(), domain.ErrValidation)
		})
	}
}

func TestUpdate(t *testing.T) {
	e, err := New(CreateRequest{RuleID: 3, ExampleType: TypeBad, Code: "old"}, time.Now())
	require.NoError(t, err)

	code := "new"
	require.NoError(t, e.Update(UpdateRequest{Code: &code, HighlightLines: []int{1, 2}}, time.Now()))
	assert.Equal(t, "new", e.Code)
	assert.Equal(t, []int{1, 2}, e.HighlightLines)

	e.Delete(time.Now())
	assert.True(t, e.IsDeleted())
	assert.Error(t, e.Update(UpdateRequest{Code: &code}, time.Now()))
}
