package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Name         string `json:"name" validate:"required"`
	AcademicYear string `json:"academic_year" validate:"required,academic_year"`
	Semester     int    `json:"semester" validate:"min=1,max=12"`
}

func TestTranslateUsesJSONNames(t *testing.T) {
	err := New().Struct(sampleRequest{AcademicYear: "2024/25", Semester: 0})
	require.Error(t, err)

	fields := Translate(err)
	assert.Contains(t, fields, "name")
	assert.Equal(t, "academic_year must look like 2024-2025", fields["academic_year"])
	assert.Contains(t, fields, "semester")
}

func TestValidRequestPasses(t *testing.T) {
	err := New().Struct(sampleRequest{Name: "CSE A", AcademicYear: "2024-2025", Semester: 3})
	assert.NoError(t, err)
}

func TestErrorCarriesDetails(t *testing.T) {
	appErr := Error(errors.New("unexpected EOF"))
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	assert.Equal(t, map[string]string{"detail": "unexpected EOF"}, appErr.Details)
}
