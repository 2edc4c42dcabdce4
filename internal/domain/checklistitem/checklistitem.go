// Package checklistitem defines the ChecklistItem entity: one review check
// derived from a coding rule.
package checklistitem

import (
	"fmt"
	"strings"
	"time"

	"github.com/Strob0t/standardhub/internal/domain"
)

// CheckType says how the check is carried out.
type CheckType string

const (
	CheckAutomated     CheckType = "AUTOMATED"
	CheckManual        CheckType = "MANUAL"
	CheckSemiAutomated CheckType = "SEMI_AUTOMATED"
)

// Valid reports whether c is a known check type.
func (c CheckType) Valid() bool {
	return c == CheckAutomated || c == CheckManual || c == CheckSemiAutomated
}

// Source records how an item entered the catalogue.
type Source string

const (
	SourceManual        Source = "MANUAL"
	SourceAgentFeedback Source = "AGENT_FEEDBACK"
)

// ChecklistItem is a single check attached to a coding rule.
type ChecklistItem struct {
	ID               int64      `json:"id"`
	RuleID           int64      `json:"rule_id"`
	SequenceOrder    int        `json:"sequence_order"`
	CheckDescription string     `json:"check_description"`
	CheckType        CheckType  `json:"check_type"`
	AutomationTool   string     `json:"automation_tool,omitempty"`
	AutomationRuleID string     `json:"automation_rule_id,omitempty"`
	Critical         bool       `json:"critical"`
	Source           Source     `json:"source"`
	FeedbackID       *int64     `json:"feedback_id,omitempty"`
	Version          int        `json:"version"`
	DeletedAt        *time.Time `json:"deleted_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// CreateRequest holds the fields needed to create an item.
type CreateRequest struct {
	RuleID           int64     `json:"rule_id"`
	SequenceOrder    int       `json:"sequence_order"`
	CheckDescription string    `json:"check_description"`
	CheckType        CheckType `json:"check_type"`
	AutomationTool   string    `json:"automation_tool,omitempty"`
	AutomationRuleID string    `json:"automation_rule_id,omitempty"`
	Critical         bool      `json:"critical,omitempty"`
}

// Validate checks the create request.
func (r *CreateRequest) Validate() error {
	if r.RuleID <= 0 {
		return fmt.Errorf("rule_id is required: %w", domain.ErrValidation)
	}
	if r.SequenceOrder < 1 {
		return fmt.Errorf("sequence_order must be at least 1: %w", domain.ErrValidation)
	}
	if strings.TrimSpace(r.CheckDescription) == "" {
		return fmt.Errorf("check_description is required: %w", domain.ErrValidation)
	}
	if !r.CheckType.Valid() {
		return fmt.Errorf("invalid check_type %q: %w", r.CheckType, domain.ErrValidation)
	}
	return checkAutomation(r.CheckType, r.AutomationTool)
}

func checkAutomation(ct CheckType, tool string) error {
	if ct == CheckAutomated && strings.TrimSpace(tool) == "" {
		return fmt.Errorf("automation_tool is required for AUTOMATED checks: %w", domain.ErrValidation)
	}
	return nil
}

// New builds a manually authored item.
func New(req CreateRequest, now time.Time) (*ChecklistItem, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &ChecklistItem{
		RuleID:           req.RuleID,
		SequenceOrder:    req.SequenceOrder,
		CheckDescription: req.CheckDescription,
		CheckType:        req.CheckType,
		AutomationTool:   strings.ToUpper(strings.TrimSpace(req.AutomationTool)),
		AutomationRuleID: req.AutomationRuleID,
		Critical:         req.Critical,
		Source:           SourceManual,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// NewFromFeedback builds an item promoted from an accepted feedback item.
func NewFromFeedback(req CreateRequest, feedbackID int64, now time.Time) (*ChecklistItem, error) {
	c, err := New(req, now)
	if err != nil {
		return nil, err
	}
	c.Source = SourceAgentFeedback
	c.FeedbackID = &feedbackID
	return c, nil
}

// UpdateRequest holds a partial update. Nil fields are left untouched.
type UpdateRequest struct {
	SequenceOrder    *int       `json:"sequence_order,omitempty"`
	CheckDescription *string    `json:"check_description,omitempty"`
	CheckType        *CheckType `json:"check_type,omitempty"`
	AutomationTool   *string    `json:"automation_tool,omitempty"`
	AutomationRuleID *string    `json:"automation_rule_id,omitempty"`
	Critical         *bool      `json:"critical,omitempty"`
}

// Validate checks the fields present in the update.
func (u *UpdateRequest) Validate() error {
	if u.SequenceOrder != nil && *u.SequenceOrder < 1 {
		return fmt.Errorf("sequence_order must be at least 1: %w", domain.ErrValidation)
	}
	if u.CheckDescription != nil && strings.TrimSpace(*u.CheckDescription) == "" {
		return fmt.Errorf("check_description must not be blank: %w", domain.ErrValidation)
	}
	if u.CheckType != nil && !u.CheckType.Valid() {
		return fmt.Errorf("invalid check_type %q: %w", *u.CheckType, domain.ErrValidation)
	}
	return nil
}

// Update applies u to the item.
func (c *ChecklistItem) Update(u UpdateRequest, now time.Time) error {
	if c.IsDeleted() {
		return fmt.Errorf("checklist item %d is deleted: %w", c.ID, domain.ErrValidation)
	}
	if err := u.Validate(); err != nil {
		return err
	}
	ct, tool := c.CheckType, c.AutomationTool
	if u.CheckType != nil {
		ct = *u.CheckType
	}
	if u.AutomationTool != nil {
		tool = strings.ToUpper(strings.TrimSpace(*u.AutomationTool))
	}
	if err := checkAutomation(ct, tool); err != nil {
		return err
	}

	c.CheckType, c.AutomationTool = ct, tool
	if u.SequenceOrder != nil {
		c.SequenceOrder = *u.SequenceOrder
	}
	if u.CheckDescription != nil {
		c.CheckDescription = *u.CheckDescription
	}
	if u.AutomationRuleID != nil {
		c.AutomationRuleID = *u.AutomationRuleID
	}
	if u.Critical != nil {
		c.Critical = *u.Critical
	}
	c.UpdatedAt = now
	return nil
}

// Delete marks the item as deleted.
func (c *ChecklistItem) Delete(now time.Time) {
	if c.DeletedAt != nil {
		return
	}
	c.DeletedAt = &now
	c.UpdatedAt = now
}

// IsDeleted reports whether the item has been soft-deleted.
func (c *ChecklistItem) IsDeleted() bool { return c.DeletedAt != nil }
