package codingrule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Strob0t/standardhub/internal/domain"
)

func validRequest() CreateRequest {
	return CreateRequest{
		ConventionID: 1,
		Code:         "DOM-001",
		Name:         "No Lombok in domain",
		Severity:     SeverityBlocker,
		Category:     CategoryAnnotation,
		Description:  "Domain classes must not use Lombok.",
	}
}

func TestNew(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	r, err := New(validRequest(), now)
	require.NoError(t, err)
	assert.Equal(t, "DOM-001", r.Code)
	assert.Equal(t, now, r.CreatedAt)
	assert.NotNil(t, r.AppliesTo)
	assert.False(t, r.IsDeleted())
}

func TestNewRejectsInvalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateRequest)
	}{
		{"missing convention", func(r *CreateRequest) { r.ConventionID = 0 }},
		{"blank code", func(r *CreateRequest) { r.Code = "  " }},
		{"long code", func(r *CreateRequest) { r.Code = "ABCDEFGHIJKLMNOPQRSTUVWXYZ" }},
		{"blank name", func(r *CreateRequest) { r.Name = "" }},
		{"bad severity", func(r *CreateRequest) { r.Severity = "FATAL" }},
		{"bad category", func(r *CreateRequest) { r.Category = "STYLE" }},
		{"blank description", func(r *CreateRequest) { r.Description = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			_, err := New(req, time.Now())
			require.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestUpdateAndDelete(t *testing.T) {
	r, err := New(validRequest(), time.Now())
	require.NoError(t, err)

	name := "Renamed"
	sev := SeverityMinor
	later := r.UpdatedAt.Add(time.Minute)
	require.NoError(t, r.Update(UpdateRequest{Name: &name, Severity: &sev}, later))
	assert.Equal(t, "Renamed", r.Name)
	assert.Equal(t, SeverityMinor, r.Severity)
	assert.Equal(t, "DOM-001", r.Code)
	assert.Equal(t, later, r.UpdatedAt)

	bad := Severity("NOPE")
	require.ErrorIs(t, r.Update(UpdateRequest{Severity: &bad}, later), domain.ErrValidation)

	r.Delete(later)
	assert.True(t, r.IsDeleted())
	require.Error(t, r.Update(UpdateRequest{Name: &name}, later))
}
