// Package classtemplate defines the ClassTemplate entity: the code skeleton
// and structural constraints for one class type inside a package structure.
package classtemplate

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Strob0t/standardhub/internal/domain"
)

// ClassTemplate describes how classes of one type are shaped.
type ClassTemplate struct {
	ID                   int64      `json:"id"`
	StructureID          int64      `json:"structure_id"`
	ClassType            string     `json:"class_type"`
	TemplateCode         string     `json:"template_code"`
	NamingPattern        string     `json:"naming_pattern,omitempty"`
	Description          string     `json:"description,omitempty"`
	RequiredAnnotations  []string   `json:"required_annotations"`
	ForbiddenAnnotations []string   `json:"forbidden_annotations"`
	RequiredInterfaces   []string   `json:"required_interfaces"`
	ForbiddenInheritance []string   `json:"forbidden_inheritance"`
	RequiredMethods      []string   `json:"required_methods"`
	Version              int        `json:"version"`
	DeletedAt            *time.Time `json:"deleted_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// CreateRequest holds the fields needed to create a template.
type CreateRequest struct {
	StructureID          int64    `json:"structure_id"`
	ClassType            string   `json:"class_type"`
	TemplateCode         string   `json:"template_code"`
	NamingPattern        string   `json:"naming_pattern,omitempty"`
	Description          string   `json:"description,omitempty"`
	RequiredAnnotations  []string `json:"required_annotations,omitempty"`
	ForbiddenAnnotations []string `json:"forbidden_annotations,omitempty"`
	RequiredInterfaces   []string `json:"required_interfaces,omitempty"`
	ForbiddenInheritance []string `json:"forbidden_inheritance,omitempty"`
	RequiredMethods      []string `json:"required_methods,omitempty"`
}

// Validate checks the create request.
func (r *CreateRequest) Validate() error {
	if r.StructureID <= 0 {
		return fmt.Errorf("structure_id is required: %w", domain.ErrValidation)
	}
	if strings.TrimSpace(r.ClassType) == "" {
		return fmt.Errorf("class_type is required: %w", domain.ErrValidation)
	}
	if strings.TrimSpace(r.TemplateCode) == "" {
		return fmt.Errorf("template_code is required: %w", domain.ErrValidation)
	}
	if err := validatePattern(r.NamingPattern); err != nil {
		return err
	}
	return checkAnnotationOverlap(r.RequiredAnnotations, r.ForbiddenAnnotations)
}

func validatePattern(p string) error {
	if p == "" {
		return nil
	}
	if _, err := regexp.Compile(p); err != nil {
		return fmt.Errorf("naming_pattern %q is not a valid regular expression: %w", p, domain.ErrValidation)
	}
	return nil
}

func checkAnnotationOverlap(required, forbidden []string) error {
	seen := make(map[string]bool, len(required))
	for _, a := range required {
		seen[a] = true
	}
	for _, a := range forbidden {
		if seen[a] {
			return fmt.Errorf("annotation %s is both required and forbidden: %w", a, domain.ErrValidation)
		}
	}
	return nil
}

// New builds a template from a validated request.
func New(req CreateRequest, now time.Time) (*ClassTemplate, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &ClassTemplate{
		StructureID:          req.StructureID,
		ClassType:            strings.ToUpper(strings.TrimSpace(req.ClassType)),
		TemplateCode:         req.TemplateCode,
		NamingPattern:        req.NamingPattern,
		Description:          req.Description,
		RequiredAnnotations:  orEmpty(req.RequiredAnnotations),
		ForbiddenAnnotations: orEmpty(req.ForbiddenAnnotations),
		RequiredInterfaces:   orEmpty(req.RequiredInterfaces),
		ForbiddenInheritance: orEmpty(req.ForbiddenInheritance),
		RequiredMethods:      orEmpty(req.RequiredMethods),
		CreatedAt:            now,
		UpdatedAt:            now,
	}, nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// UpdateRequest holds a partial update. Nil fields are left untouched.
type UpdateRequest struct {
	ClassType            *string  `json:"class_type,omitempty"`
	TemplateCode         *string  `json:"template_code,omitempty"`
	NamingPattern        *string  `json:"naming_pattern,omitempty"`
	Description          *string  `json:"description,omitempty"`
	RequiredAnnotations  []string `json:"required_annotations,omitempty"`
	ForbiddenAnnotations []string `json:"forbidden_annotations,omitempty"`
	RequiredInterfaces   []string `json:"required_interfaces,omitempty"`
	ForbiddenInheritance []string `json:"forbidden_inheritance,omitempty"`
	RequiredMethods      []string `json:"required_methods,omitempty"`
}

// Validate checks the fields present in the update.
func (u *UpdateRequest) Validate() error {
	if u.ClassType != nil && strings.TrimSpace(*u.ClassType) == "" {
		return fmt.Errorf("class_type must not be blank: %w", domain.ErrValidation)
	}
	if u.TemplateCode != nil && strings.TrimSpace(*u.TemplateCode) == "" {
		return fmt.Errorf("template_code must not be blank: %w", domain.ErrValidation)
	}
	if u.NamingPattern != nil {
		return validatePattern(*u.NamingPattern)
	}
	return nil
}

// Update applies u to the template.
func (t *ClassTemplate) Update(u UpdateRequest, now time.Time) error {
	if t.IsDeleted() {
		return fmt.Errorf("class template %d is deleted: %w", t.ID, domain.ErrValidation)
	}
	if err := u.Validate(); err != nil {
		return err
	}
	required, forbidden := t.RequiredAnnotations, t.ForbiddenAnnotations
	if u.RequiredAnnotations != nil {
		required = u.RequiredAnnotations
	}
	if u.ForbiddenAnnotations != nil {
		forbidden = u.ForbiddenAnnotations
	}
	if err := checkAnnotationOverlap(required, forbidden); err != nil {
		return err
	}

	if u.ClassType != nil {
		t.ClassType = strings.ToUpper(strings.TrimSpace(*u.ClassType))
	}
	if u.TemplateCode != nil {
		t.TemplateCode = *u.TemplateCode
	}
	if u.NamingPattern != nil {
		t.NamingPattern = *u.NamingPattern
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	t.RequiredAnnotations = required
	t.ForbiddenAnnotations = forbidden
	if u.RequiredInterfaces != nil {
		t.RequiredInterfaces = u.RequiredInterfaces
	}
	if u.ForbiddenInheritance != nil {
		t.ForbiddenInheritance = u.ForbiddenInheritance
	}
	if u.RequiredMethods != nil {
		t.RequiredMethods = u.RequiredMethods
	}
	t.UpdatedAt = now
	return nil
}

// Delete marks the template as deleted.
func (t *ClassTemplate) Delete(now time.Time) {
	if t.DeletedAt != nil {
		return
	}
	t.DeletedAt = &now
	t.UpdatedAt = now
}

// IsDeleted reports whether the template has been soft-deleted.
func (t *ClassTemplate) IsDeleted() bool { return t.DeletedAt != nil }
