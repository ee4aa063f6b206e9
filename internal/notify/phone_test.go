package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatSriLankanPhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"+94771234567", "+94771234567"},
		{"0771234567", "+94771234567"},
		{"94771234567", "+94771234567"},
		{"0094771234567", "+94771234567"},
		{"771234567", "+94771234567"},
		{"077 123-4567", "+94771234567"},
		{"(077) 123 4567", "+94771234567"},
		{"094771234567", "+94771234567"},
		{"094 77 123 4567", "+94771234567"},
		{"941234567", "+94941234567"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatSriLankanPhone(tt.in), "input %q", tt.in)
	}
}

func TestFormatSriLankanPhoneIdempotent(t *testing.T) {
	for _, in := range []string{"0771234567", "94771234567", "+94112345678", "771234567", "094771234567"} {
		once := FormatSriLankanPhone(in)
		assert.Equal(t, once, FormatSriLankanPhone(once))
	}
}

func TestValidateSriLankanPhone(t *testing.T) {
	valid := []string{
		"+94771234567",
		"94771234567",
		"0094771234567",
		"771234567",
		"0771234567",
		"011 234 5678",
		"077-123-4567",
		"094771234567",
	}
	for _, p := range valid {
		assert.True(t, ValidateSriLankanPhone(p), "expected %q to be valid", p)
	}

	invalid := []string{
		"",
		"12345",
		"+9477123456789",
		"+44771234567",
		"07712345ab",
	}
	for _, p := range invalid {
		assert.False(t, ValidateSriLankanPhone(p), "expected %q to be invalid", p)
	}
}
