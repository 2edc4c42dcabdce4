// Package archunittest defines the ArchUnitTest entity: an executable
// architecture test bound to a package structure.
package archunittest

import (
	"fmt"
	"strings"
	"time"

	"github.com/Strob0t/standardhub/internal/domain"
	"github.com/Strob0t/standardhub/internal/domain/codingrule"
)

// ArchUnitTest is an architecture test attached to a package structure.
type ArchUnitTest struct {
	ID             int64               `json:"id"`
	StructureID    int64               `json:"structure_id"`
	Code           string              `json:"code"`
	Name           string              `json:"name"`
	Description    string              `json:"description,omitempty"`
	TestClassName  string              `json:"test_class_name,omitempty"`
	TestMethodName string              `json:"test_method_name,omitempty"`
	TestCode       string              `json:"test_code"`
	Severity       codingrule.Severity `json:"severity,omitempty"`
	Version        int                 `json:"version"`
	DeletedAt      *time.Time          `json:"deleted_at,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// CreateRequest holds the fields needed to create a test.
type CreateRequest struct {
	StructureID    int64               `json:"structure_id"`
	Code           string              `json:"code"`
	Name           string              `json:"name"`
	Description    string              `json:"description,omitempty"`
	TestClassName  string              `json:"test_class_name,omitempty"`
	TestMethodName string              `json:"test_method_name,omitempty"`
	TestCode       string              `json:"test_code"`
	Severity       codingrule.Severity `json:"severity,omitempty"`
}

// Validate checks the create request.
func (r *CreateRequest) Validate() error {
	if r.StructureID <= 0 {
		return fmt.Errorf("structure_id is required: %w", domain.ErrValidation)
	}
	if strings.TrimSpace(r.Code) == "" {
		return fmt.Errorf("code is required: %w", domain.ErrValidation)
	}
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("name is required: %w", domain.ErrValidation)
	}
	if strings.TrimSpace(r.TestCode) == "" {
		return fmt.Errorf("test_code is required: %w", domain.ErrValidation)
	}
	if r.Severity != "" && !r.Severity.Valid() {
		return fmt.Errorf("invalid severity %q: %w", r.Severity, domain.ErrValidation)
	}
	return nil
}

// New builds a test from a validated request.
func New(req CreateRequest, now time.Time) (*ArchUnitTest, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &ArchUnitTest{
		StructureID:    req.StructureID,
		Code:           strings.TrimSpace(req.Code),
		Name:           strings.TrimSpace(req.Name),
		Description:    req.Description,
		TestClassName:  req.TestClassName,
		TestMethodName: req.TestMethodName,
		TestCode:       req.TestCode,
		Severity:       req.Severity,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// UpdateRequest holds a partial update. Nil fields are left untouched.
type UpdateRequest struct {
	Code           *string              `json:"code,omitempty"`
	Name           *string              `json:"name,omitempty"`
	Description    *string              `json:"description,omitempty"`
	TestClassName  *string              `json:"test_class_name,omitempty"`
	TestMethodName *string              `json:"test_method_name,omitempty"`
	TestCode       *string              `json:"test_code,omitempty"`
	Severity       *codingrule.Severity `json:"severity,omitempty"`
}

// Validate checks the fields present in the update.
func (u *UpdateRequest) Validate() error {
	for field, v := range map[string]*string{"code": u.Code, "name": u.Name, "test_code": u.TestCode} {
		if v != nil && strings.TrimSpace(*v) == "" {
			return fmt.Errorf("%s must not be blank: %w", field, domain.ErrValidation)
		}
	}
	if u.Severity != nil && !u.Severity.Valid() {
		return fmt.Errorf("invalid severity %q: %w", *u.Severity, domain.ErrValidation)
	}
	return nil
}

// Update applies u to the test.
func (a *ArchUnitTest) Update(u UpdateRequest, now time.Time) error {
	if a.IsDeleted() {
		return fmt.Errorf("archunit test %d is deleted: %w", a.ID, domain.ErrValidation)
	}
	if err := u.Validate(); err != nil {
		return err
	}
	if u.Code != nil {
		a.Code = strings.TrimSpace(*u.Code)
	}
	if u.Name != nil {
		a.Name = strings.TrimSpace(*u.Name)
	}
	if u.Description != nil {
		a.Description = *u.Description
	}
	if u.TestClassName != nil {
		a.TestClassName = *u.TestClassName
	}
	if u.TestMethodName != nil {
		a.TestMethodName = *u.TestMethodName
	}
	if u.TestCode != nil {
		a.TestCode = *u.TestCode
	}
	if u.Severity != nil {
		a.Severity = *u.Severity
	}
	a.UpdatedAt = now
	return nil
}

// Delete marks the test as deleted.
func (a *ArchUnitTest) Delete(now time.Time) {
	if a.DeletedAt != nil {
		return
	}
	a.DeletedAt = &now
	a.UpdatedAt = now
}

// IsDeleted reports whether the test has been soft-deleted.
func (a *ArchUnitTest) IsDeleted() bool { return a.DeletedAt != nil }
