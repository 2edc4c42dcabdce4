// Package codingrule defines the CodingRule catalogue entity: a single rule
// belonging to a convention, optionally scoped to a package structure.
package codingrule

import (
	"fmt"
	"strings"
	"time"

	"github.com/Strob0t/standardhub/internal/domain"
)

// Severity ranks how serious a violation of the rule is.
type Severity string

const (
	SeverityBlocker  Severity = "BLOCKER"
	SeverityCritical Severity = "CRITICAL"
	SeverityMajor    Severity = "MAJOR"
	SeverityMinor    Severity = "MINOR"
	SeverityInfo     Severity = "INFO"
)

var validSeverities = map[Severity]bool{
	SeverityBlocker:  true,
	SeverityCritical: true,
	SeverityMajor:    true,
	SeverityMinor:    true,
	SeverityInfo:     true,
}

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool { return validSeverities[s] }

// Category groups rules by the aspect of the code they constrain.
type Category string

const (
	CategoryNaming      Category = "NAMING"
	CategoryStructure   Category = "STRUCTURE"
	CategoryDependency  Category = "DEPENDENCY"
	CategoryBehavior    Category = "BEHAVIOR"
	CategoryAnnotation  Category = "ANNOTATION"
	CategorySecurity    Category = "SECURITY"
	CategoryPerformance Category = "PERFORMANCE"
)

var validCategories = map[Category]bool{
	CategoryNaming:      true,
	CategoryStructure:   true,
	CategoryDependency:  true,
	CategoryBehavior:    true,
	CategoryAnnotation:  true,
	CategorySecurity:    true,
	CategoryPerformance: true,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool { return validCategories[c] }

const maxCodeLen = 20

// CodingRule is a rule within a convention.
type CodingRule struct {
	ID            int64      `json:"id"`
	ConventionID  int64      `json:"convention_id"`
	StructureID   *int64     `json:"structure_id,omitempty"`
	Code          string     `json:"code"`
	Name          string     `json:"name"`
	Severity      Severity   `json:"severity"`
	Category      Category   `json:"category"`
	Description   string     `json:"description"`
	Rationale     string     `json:"rationale,omitempty"`
	AppliesTo     []string   `json:"applies_to"`
	SDKConstraint string     `json:"sdk_constraint,omitempty"`
	Version       int        `json:"version"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// CreateRequest holds the fields needed to create a coding rule.
type CreateRequest struct {
	ConventionID  int64    `json:"convention_id"`
	StructureID   *int64   `json:"structure_id,omitempty"`
	Code          string   `json:"code"`
	Name          string   `json:"name"`
	Severity      Severity `json:"severity"`
	Category      Category `json:"category"`
	Description   string   `json:"description"`
	Rationale     string   `json:"rationale,omitempty"`
	AppliesTo     []string `json:"applies_to,omitempty"`
	SDKConstraint string   `json:"sdk_constraint,omitempty"`
}

// Validate checks the create request.
func (r *CreateRequest) Validate() error {
	if r.ConventionID <= 0 {
		return fmt.Errorf("convention_id is required: %w", domain.ErrValidation)
	}
	if err := validateCode(r.Code); err != nil {
		return err
	}
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("name is required: %w", domain.ErrValidation)
	}
	if !r.Severity.Valid() {
		return fmt.Errorf("invalid severity %q: %w", r.Severity, domain.ErrValidation)
	}
	if !r.Category.Valid() {
		return fmt.Errorf("invalid category %q: %w", r.Category, domain.ErrValidation)
	}
	if strings.TrimSpace(r.Description) == "" {
		return fmt.Errorf("description is required: %w", domain.ErrValidation)
	}
	return nil
}

func validateCode(code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return fmt.Errorf("code is required: %w", domain.ErrValidation)
	}
	if len(code) > maxCodeLen {
		return fmt.Errorf("code must be at most %d characters: %w", maxCodeLen, domain.ErrValidation)
	}
	return nil
}

// New builds a coding rule from a validated request.
func New(req CreateRequest, now time.Time) (*CodingRule, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	appliesTo := req.AppliesTo
	if appliesTo == nil {
		appliesTo = []string{}
	}
	return &CodingRule{
		ConventionID:  req.ConventionID,
		StructureID:   req.StructureID,
		Code:          strings.TrimSpace(req.Code),
		Name:          strings.TrimSpace(req.Name),
		Severity:      req.Severity,
		Category:      req.Category,
		Description:   req.Description,
		Rationale:     req.Rationale,
		AppliesTo:     appliesTo,
		SDKConstraint: req.SDKConstraint,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// UpdateRequest holds a partial update. Nil fields are left untouched.
type UpdateRequest struct {
	StructureID   *int64    `json:"structure_id,omitempty"`
	Code          *string   `json:"code,omitempty"`
	Name          *string   `json:"name,omitempty"`
	Severity      *Severity `json:"severity,omitempty"`
	Category      *Category `json:"category,omitempty"`
	Description   *string   `json:"description,omitempty"`
	Rationale     *string   `json:"rationale,omitempty"`
	AppliesTo     []string  `json:"applies_to,omitempty"`
	SDKConstraint *string   `json:"sdk_constraint,omitempty"`
}

// Validate checks the fields present in the update.
func (u *UpdateRequest) Validate() error {
	if u.Code != nil {
		if err := validateCode(*u.Code); err != nil {
			return err
		}
	}
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return fmt.Errorf("name must not be blank: %w", domain.ErrValidation)
	}
	if u.Severity != nil && !u.Severity.Valid() {
		return fmt.Errorf("invalid severity %q: %w", *u.Severity, domain.ErrValidation)
	}
	if u.Category != nil && !u.Category.Valid() {
		return fmt.Errorf("invalid category %q: %w", *u.Category, domain.ErrValidation)
	}
	if u.Description != nil && strings.TrimSpace(*u.Description) == "" {
		return fmt.Errorf("description must not be blank: %w", domain.ErrValidation)
	}
	return nil
}

// Update applies u to the rule.
func (r *CodingRule) Update(u UpdateRequest, now time.Time) error {
	if r.IsDeleted() {
		return fmt.Errorf("coding rule %d is deleted: %w", r.ID, domain.ErrValidation)
	}
	if err := u.Validate(); err != nil {
		return err
	}
	if u.StructureID != nil {
		r.StructureID = u.StructureID
	}
	if u.Code != nil {
		r.Code = strings.TrimSpace(*u.Code)
	}
	if u.Name != nil {
		r.Name = strings.TrimSpace(*u.Name)
	}
	if u.Severity != nil {
		r.Severity = *u.Severity
	}
	if u.Category != nil {
		r.Category = *u.Category
	}
	if u.Description != nil {
		r.Description = *u.Description
	}
	if u.Rationale != nil {
		r.Rationale = *u.Rationale
	}
	if u.AppliesTo != nil {
		r.AppliesTo = u.AppliesTo
	}
	if u.SDKConstraint != nil {
		r.SDKConstraint = *u.SDKConstraint
	}
	r.UpdatedAt = now
	return nil
}

// Delete marks the rule as deleted.
func (r *CodingRule) Delete(now time.Time) {
	if r.DeletedAt != nil {
		return
	}
	r.DeletedAt = &now
	r.UpdatedAt = now
}

// IsDeleted reports whether the rule has been soft-deleted.
func (r *CodingRule) IsDeleted() bool { return r.DeletedAt != nil }
