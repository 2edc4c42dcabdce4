// Package ruleexample defines the RuleExample entity: a good or bad code
// sample illustrating a coding rule.
package ruleexample

import (
	"fmt"
	"strings"
	"time"

	"github.com/Strob0t/standardhub/internal/domain"
)

// ExampleType says whether the sample follows or violates the rule.
type ExampleType string

const (
	TypeGood ExampleType = "GOOD"
	TypeBad  ExampleType = "BAD"
)

// Source records how an example entered the catalogue.
type Source string

const (
	SourceManual        Source = "MANUAL"
	SourceAgentFeedback Source = "AGENT_FEEDBACK"
)

// DefaultLanguage is used when a request leaves the language empty.
const DefaultLanguage = "JAVA"

// RuleExample is a code sample attached to a coding rule.
type RuleExample struct {
	ID             int64       `json:"id"`
	RuleID         int64       `json:"rule_id"`
	ExampleType    ExampleType `json:"example_type"`
	Code           string      `json:"code"`
	Language       string      `json:"language"`
	Explanation    string      `json:"explanation,omitempty"`
	HighlightLines []int       `json:"highlight_lines"`
	Source         Source      `json:"source"`
	FeedbackID     *int64      `json:"feedback_id,omitempty"`
	Version        int         `json:"version"`
	DeletedAt      *time.Time  `json:"deleted_at,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// CreateRequest holds the fields needed to create an example.
type CreateRequest struct {
	RuleID         int64       `json:"rule_id"`
	ExampleType    ExampleType `json:"example_type"`
	Code           string      `json:"code"`
	Language       string      `json:"language,omitempty"`
	Explanation    string      `json:"explanation,omitempty"`
	HighlightLines []int       `json:"highlight_lines,omitempty"`
}

// Validate checks the create request.
func (r *CreateRequest) Validate() error {
	if r.RuleID <= 0 {
		return fmt.Errorf("rule_id is required: %w", domain.ErrValidation)
	}
	if r.ExampleType != TypeGood && r.ExampleType != TypeBad {
		return fmt.Errorf("invalid example_type %q: %w", r.ExampleType, domain.ErrValidation)
	}
	if strings.TrimSpace(r.Code) == "" {
		return fmt.Errorf("code is required: %w", domain.ErrValidation)
	}
	return validateLines(r.HighlightLines)
}

func validateLines(lines []int) error {
	for _, l := range lines {
		if l < 1 {
			return fmt.Errorf("highlight line %d must be positive: %w", l, domain.ErrValidation)
		}
	}
	return nil
}

// New builds a manually authored example.
func New(req CreateRequest, now time.Time) (*RuleExample, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	lang := strings.ToUpper(strings.TrimSpace(req.Language))
	if lang == "" {
		lang = DefaultLanguage
	}
	lines := req.HighlightLines
	if lines == nil {
		lines = []int{}
	}
	return &RuleExample{
		RuleID:         req.RuleID,
		ExampleType:    req.ExampleType,
		Code:           req.Code,
		Language:       lang,
		Explanation:    req.Explanation,
		HighlightLines: lines,
		Source:         SourceManual,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// NewFromFeedback builds an example promoted from an accepted feedback item.
func NewFromFeedback(req CreateRequest, feedbackID int64, now time.Time) (*RuleExample, error) {
	e, err := New(req, now)
	if err != nil {
		return nil, err
	}
	e.Source = SourceAgentFeedback
	e.FeedbackID = &feedbackID
	return e, nil
}

// UpdateRequest holds a partial update. Nil fields are left untouched.
type UpdateRequest struct {
	ExampleType    *ExampleType `json:"example_type,omitempty"`
	Code           *string      `json:"code,omitempty"`
	Language       *string      `json:"language,omitempty"`
	Explanation    *string      `json:"explanation,omitempty"`
	HighlightLines []int        `json:"highlight_lines,omitempty"`
}

// Validate checks the fields present in the update.
func (u *UpdateRequest) Validate() error {
	if u.ExampleType != nil && *u.ExampleType != TypeGood && *u.ExampleType != TypeBad {
		return fmt.Errorf("invalid example_type %q: %w", *u.ExampleType, domain.ErrValidation)
	}
	if u.Code != nil && strings.TrimSpace(*u.Code) == "" {
		return fmt.Errorf("code must not be blank: %w", domain.ErrValidation)
	}
	return validateLines(u.HighlightLines)
}

// Update applies u to the example.
func (e *RuleExample) Update(u UpdateRequest, now time.Time) error {
	if e.IsDeleted() {
		return fmt.Errorf("rule example %d is deleted: %w", e.ID, domain.ErrValidation)
	}
	if err := u.Validate(); err != nil {
		return err
	}
	if u.ExampleType != nil {
		e.ExampleType = *u.ExampleType
	}
	if u.Code != nil {
		e.Code = *u.Code
	}
	if u.Language != nil && strings.TrimSpace(*u.Language) != "" {
		e.Language = strings.ToUpper(strings.TrimSpace(*u.Language))
	}
	if u.Explanation != nil {
		e.Explanation = *u.Explanation
	}
	if u.HighlightLines != nil {
		e.HighlightLines = u.HighlightLines
	}
	e.UpdatedAt = now
	return nil
}

// Delete marks the example as deleted.
func (e *RuleExample) Delete(now time.Time) {
	if e.DeletedAt != nil {
		return
	}
	e.DeletedAt = &now
	e.UpdatedAt = now
}

// IsDeleted reports whether the example has been soft-deleted.
func (e *RuleExample) IsDeleted() bool { return e.DeletedAt != nil }
