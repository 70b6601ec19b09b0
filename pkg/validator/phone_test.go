package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhoneValidator_Validate(t *testing.T) {
	v := NewPhoneValidator()

	tests := []struct {
		name     string
		input    string
		expected string
		err      error
	}{
		{name: "E.164", input: "+4712345678", expected: "+4712345678"},
		{name: "With spaces", input: "+47 123 45 678", expected: "+4712345678"},
		{name: "Double zero prefix", input: "0047-1234-5678", expected: "+4712345678"},
		{name: "Parentheses", input: "+1 (415) 555-0100", expected: "+14155550100"},
		{name: "Empty", input: "  ", err: ErrEmptyPhone},
		{name: "National format", input: "0771234567", err: ErrMissingCountryCode},
		{name: "Letters", input: "+47abc45678", err: ErrInvalidFormat},
		{name: "Too short", input: "+47123", err: ErrInvalidLength},
		{name: "Too long", input: "+1234567890123456", err: ErrInvalidLength},
		{name: "Zero after plus", input: "+0771234567", err: ErrMissingCountryCode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.Validate(tt.input)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				assert.Empty(t, got)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestPhoneValidator_Mask(t *testing.T) {
	v := NewPhoneValidator()
	assert.Equal(t, "********678", v.Mask("+4712345678"))
	assert.Equal(t, "12", v.Mask("12"))
}
