package archunittest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Strob0t/standardhub/internal/domain"
	"github.com/Strob0t/standardhub/internal/domain/codingrule"
)

func TestNewAndUpdate(t *testing.T) {
	a, err := New(CreateRequest{
		StructureID: 2,
		Code:        " ARCH-001 ",
		Name:        "domain has no spring deps",
		TestCode:    "noClasses().should()...",
		Severity:    codingrule.SeverityBlocker,
	}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "ARCH-001", a.Code)

	blank := ""
	require.ErrorIs(t, a.Update(UpdateRequest{TestCode: &blank}, time.Now()), domain.ErrValidation)

	name := "domain isolation"
	require.NoError(t, a.Update(UpdateRequest{Name: &name}, time.Now()))
	assert.Equal(t, "domain isolation", a.Name)

	a.Delete(time.Now())
	assert.True(t, a.IsDeleted())
}

func TestCreateRequestValidate(t *testing.T) {
	_, err := New(CreateRequest{StructureID: 2, Code: "A", Name: "n", TestCode: "t", Severity: "LOUD"}, time.Now())
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = New(CreateRequest{Code: "A", Name: "n", TestCode: "t"}, time.Now())
	require.ErrorIs(t, err, domain.ErrValidation)
}
