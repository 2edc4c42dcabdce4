// Package feedback provides the domain model for the feedback queue: proposed
// changes to catalogue entities that move through LLM and human review before
// being merged into the target entity store.
package feedback

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Strob0t/standardhub/internal/domain"
)

// TargetType identifies the catalogue entity a feedback item proposes to change.
type TargetType string

const (
	TargetRuleExample   TargetType = "RULE_EXAMPLE"
	TargetClassTemplate TargetType = "CLASS_TEMPLATE"
	TargetCodingRule    TargetType = "CODING_RULE"
	TargetChecklistItem TargetType = "CHECKLIST_ITEM"
	TargetArchUnitTest  TargetType = "ARCH_UNIT_TEST"
)

// TargetTypes lists every supported target type.
var TargetTypes = []TargetType{
	TargetRuleExample,
	TargetClassTemplate,
	TargetCodingRule,
	TargetChecklistItem,
	TargetArchUnitTest,
}

// Valid reports whether t is a known target type.
func (t TargetType) Valid() bool {
	for _, known := range TargetTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Type is the kind of change a feedback item proposes.
type Type string

const (
	TypeAdd    Type = "ADD"
	TypeModify Type = "MODIFY"
	TypeDelete Type = "DELETE"
)

// typeAliases maps the verbs MCP clients send to the canonical feedback types.
var typeAliases = map[string]Type{
	"ADD":    TypeAdd,
	"CREATE": TypeAdd,
	"MODIFY": TypeModify,
	"UPDATE": TypeModify,
	"DELETE": TypeDelete,
}

// ParseType resolves s (case-insensitive, CREATE/UPDATE accepted as aliases)
// to a feedback Type.
func ParseType(s string) (Type, error) {
	t, ok := typeAliases[strings.ToUpper(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("invalid feedback_type %q: %w", s, domain.ErrValidation)
	}
	return t, nil
}

// Valid reports whether t is a canonical feedback type.
func (t Type) Valid() bool {
	return t == TypeAdd || t == TypeModify || t == TypeDelete
}

// RiskLevel classifies how much human oversight a change requires.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// RiskLevels lists every risk level.
var RiskLevels = []RiskLevel{RiskLow, RiskMedium, RiskHigh}

// Valid reports whether r is a known risk level.
func (r RiskLevel) Valid() bool {
	return r == RiskLow || r == RiskMedium || r == RiskHigh
}

// RequiresHumanApproval reports whether LLM approval alone is insufficient.
func (r RiskLevel) RequiresHumanApproval() bool {
	return r == RiskMedium || r == RiskHigh
}

// Status is the lifecycle state of a feedback item.
type Status string

const (
	StatusPending       Status = "PENDING"
	StatusLLMApproved   Status = "LLM_APPROVED"
	StatusLLMRejected   Status = "LLM_REJECTED"
	StatusHumanApproved Status = "HUMAN_APPROVED"
	StatusHumanRejected Status = "HUMAN_REJECTED"
	StatusMerged        Status = "MERGED"
)

// Statuses lists every status.
var Statuses = []Status{
	StatusPending,
	StatusLLMApproved,
	StatusLLMRejected,
	StatusHumanApproved,
	StatusHumanRejected,
	StatusMerged,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible from s.
func (s Status) IsTerminal() bool {
	return s == StatusLLMRejected || s == StatusHumanRejected || s == StatusMerged
}

// Item is a single proposed change and its review state.
type Item struct {
	ID           int64           `json:"id"`
	TargetType   TargetType      `json:"target_type"`
	TargetID     *int64          `json:"target_id,omitempty"`
	FeedbackType Type            `json:"feedback_type"`
	Payload      json.RawMessage `json:"payload"`
	RiskLevel    RiskLevel       `json:"risk_level"`
	Status       Status          `json:"status"`
	ReviewNotes  string          `json:"review_notes,omitempty"`
	Version      int             `json:"version"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// ForNew builds a PENDING item. targetID must be nil for ADD and set for
// MODIFY/DELETE. An empty payload is stored as an empty JSON object.
func ForNew(targetType TargetType, targetID *int64, feedbackType Type, payload json.RawMessage, risk RiskLevel, now time.Time) (*Item, error) {
	if !targetType.Valid() {
		return nil, fmt.Errorf("invalid target_type %q: %w", targetType, domain.ErrValidation)
	}
	if !feedbackType.Valid() {
		return nil, fmt.Errorf("invalid feedback_type %q: %w", feedbackType, domain.ErrValidation)
	}
	if !risk.Valid() {
		return nil, fmt.Errorf("invalid risk_level %q: %w", risk, domain.ErrValidation)
	}
	if err := checkTargetID(feedbackType, targetID); err != nil {
		return nil, err
	}

	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	if !json.Valid(payload) {
		return nil, fmt.Errorf("payload is not valid JSON: %w", domain.ErrValidation)
	}

	return &Item{
		TargetType:   targetType,
		TargetID:     targetID,
		FeedbackType: feedbackType,
		Payload:      payload,
		RiskLevel:    risk,
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func checkTargetID(feedbackType Type, targetID *int64) error {
	switch {
	case feedbackType == TypeAdd && targetID != nil:
		return fmt.Errorf("target_id must be empty for ADD feedback: %w", domain.ErrValidation)
	case feedbackType != TypeAdd && targetID == nil:
		return fmt.Errorf("target_id is required for %s feedback: %w", feedbackType, domain.ErrValidation)
	}
	return nil
}

// Apply moves the item along the transition table. Rejections require
// non-blank notes, which become the item's review notes; approvals ignore notes.
// On error the item is left untouched.
func (it *Item) Apply(action Action, notes string, now time.Time) (Status, error) {
	next, err := NextState(it.Status, it.RiskLevel, action)
	if err != nil {
		var te *InvalidTransitionError
		if errors.As(err, &te) {
			te.FeedbackID = it.ID
		}
		return it.Status, err
	}

	if action.IsRejection() {
		if strings.TrimSpace(notes) == "" {
			return it.Status, &InvalidTransitionError{
				FeedbackID: it.ID,
				From:       it.Status,
				RiskLevel:  it.RiskLevel,
				Action:     action,
				Reason:     "review notes are required to reject",
			}
		}
		it.ReviewNotes = notes
	}

	it.Status = next
	it.UpdatedAt = now
	return next, nil
}

// IsMergeable reports whether applying action would land the item in MERGED.
func (it *Item) IsMergeable(action Action) bool {
	next, err := NextState(it.Status, it.RiskLevel, action)
	return err == nil && next == StatusMerged
}

// RecordTarget stores the id of the entity produced by the merge.
func (it *Item) RecordTarget(id int64) {
	it.TargetID = &id
}

// Validate checks the fields of a create request before any lookup.
func (c *CreateCommand) Validate() error {
	if !c.TargetType.Valid() {
		return fmt.Errorf("invalid target_type %q: %w", c.TargetType, domain.ErrValidation)
	}
	if !c.FeedbackType.Valid() {
		return fmt.Errorf("invalid feedback_type %q: %w", c.FeedbackType, domain.ErrValidation)
	}
	if c.RiskLevel != "" && !c.RiskLevel.Valid() {
		return fmt.Errorf("invalid risk_level %q: %w", c.RiskLevel, domain.ErrValidation)
	}
	return checkTargetID(c.FeedbackType, c.TargetID)
}

// CreateCommand proposes a new change. RiskLevel may be empty, in which case
// the per-target default applies.
type CreateCommand struct {
	TargetType   TargetType      `json:"target_type"`
	TargetID     *int64          `json:"target_id,omitempty"`
	FeedbackType Type            `json:"feedback_type"`
	Payload      json.RawMessage `json:"payload"`
	RiskLevel    RiskLevel       `json:"risk_level,omitempty"`
}

// ProcessCommand applies a review action to an item.
type ProcessCommand struct {
	FeedbackID  int64  `json:"feedback_id"`
	Action      Action `json:"action"`
	ReviewNotes string `json:"review_notes,omitempty"`
}

// ListFilter narrows a feedback listing. Zero values mean "any".
type ListFilter struct {
	Status       Status     `json:"status,omitempty"`
	TargetType   TargetType `json:"target_type,omitempty"`
	RiskLevel    RiskLevel  `json:"risk_level,omitempty"`
	FeedbackType Type       `json:"feedback_type,omitempty"`
	HumanReview  bool       `json:"human_review,omitempty"`
	AfterID      int64      `json:"after_id,omitempty"`
	Limit        int        `json:"limit,omitempty"`
	OldestFirst  bool       `json:"oldest_first,omitempty"`
}

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Normalize clamps the limit and validates enum filters.
func (f *ListFilter) Normalize() error {
	if f.Status != "" && !f.Status.Valid() {
		return fmt.Errorf("invalid status %q: %w", f.Status, domain.ErrValidation)
	}
	if f.TargetType != "" && !f.TargetType.Valid() {
		return fmt.Errorf("invalid target_type %q: %w", f.TargetType, domain.ErrValidation)
	}
	if f.RiskLevel != "" && !f.RiskLevel.Valid() {
		return fmt.Errorf("invalid risk_level %q: %w", f.RiskLevel, domain.ErrValidation)
	}
	if f.FeedbackType != "" && !f.FeedbackType.Valid() {
		return fmt.Errorf("invalid feedback_type %q: %w", f.FeedbackType, domain.ErrValidation)
	}
	switch {
	case f.Limit <= 0:
		f.Limit = DefaultListLimit
	case f.Limit > MaxListLimit:
		f.Limit = MaxListLimit
	}
	return nil
}

// ParseCreateCommand builds a CreateCommand from loosely typed transport
// input: enum names are case-insensitive and feedback type aliases are
// accepted. An empty risk leaves the per-target default to the service.
func ParseCreateCommand(targetType string, targetID *int64, feedbackType string, payload json.RawMessage, risk string) (CreateCommand, error) {
	ft, err := ParseType(feedbackType)
	if err != nil {
		return CreateCommand{}, err
	}
	cmd := CreateCommand{
		TargetType:   TargetType(strings.ToUpper(strings.TrimSpace(targetType))),
		TargetID:     targetID,
		FeedbackType: ft,
		Payload:      payload,
		RiskLevel:    RiskLevel(strings.ToUpper(strings.TrimSpace(risk))),
	}
	if err := cmd.Validate(); err != nil {
		return CreateCommand{}, err
	}
	return cmd, nil
}
