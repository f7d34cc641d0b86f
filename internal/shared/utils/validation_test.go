package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cityinfra/trafficcontrol/internal/shared/errors"
)

type reportOptions struct {
	Month  int    `flag:"month" validate:"omitempty,min=1,max=12"`
	Year   int    `flag:"year" validate:"omitempty,gte=2000"`
	Format string `json:"format" validate:"oneof=csv xlsx"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name    string
		in      reportOptions
		wantErr string
	}{
		{"valid", reportOptions{Month: 3, Year: 2026, Format: "csv"}, ""},
		{"month out of range", reportOptions{Month: 13, Year: 2026, Format: "csv"}, "--month must be at most 12"},
		{"bad format", reportOptions{Format: "pdf"}, "format must be one of [csv xlsx]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.in)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			appErr := errors.GetAppError(err)
			require.NotNil(t, appErr)
			assert.Contains(t, appErr.Details, tt.wantErr)
		})
	}
}

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("user@example.com"))
	assert.False(t, IsValidEmail(""))
	assert.False(t, IsValidEmail("not-an-email"))
	assert.False(t, IsValidEmail("user@example.com\r\nBcc: x@y.z"))
}
