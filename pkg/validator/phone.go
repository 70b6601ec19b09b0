package validator

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrEmptyPhone indicates phone number is empty
	ErrEmptyPhone = errors.New("phone number cannot be empty")

	// ErrMissingCountryCode indicates the number is not in international form
	ErrMissingCountryCode = errors.New("phone number must include a country code (+CC or 00CC)")

	// ErrInvalidFormat indicates phone number contains invalid characters
	ErrInvalidFormat = errors.New("phone number can only contain digits and separators")

	// ErrInvalidLength indicates the number has too few or too many digits for E.164
	ErrInvalidLength = errors.New("phone number must have between 8 and 15 digits")
)

var (
	separatorReplacer = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "", "/", "")
	digitsRegex       = regexp.MustCompile(`^\d+$`)
)

// PhoneValidator normalizes guest phone numbers to E.164 (+CCNNNN...)
type PhoneValidator struct{}

// NewPhoneValidator creates a new phone validator instance
func NewPhoneValidator() *PhoneValidator {
	return &PhoneValidator{}
}

// Validate returns the E.164 form of phone.
// Accepts "+47 123 45 678", "0047-12345678" and "+4712345678".
func (v *PhoneValidator) Validate(phone string) (string, error) {
	if strings.TrimSpace(phone) == "" {
		return "", ErrEmptyPhone
	}

	sanitized := v.Sanitize(phone)

	var digits string
	switch {
	case strings.HasPrefix(sanitized, "+"):
		digits = sanitized[1:]
	case strings.HasPrefix(sanitized, "00"):
		digits = sanitized[2:]
	default:
		if digitsRegex.MatchString(sanitized) {
			return "", ErrMissingCountryCode
		}
		return "", ErrInvalidFormat
	}

	if !digitsRegex.MatchString(digits) {
		return "", ErrInvalidFormat
	}
	if strings.HasPrefix(digits, "0") {
		return "", ErrMissingCountryCode
	}
	if len(digits) < 8 || len(digits) > 15 {
		return "", ErrInvalidLength
	}

	return "+" + digits, nil
}

// Sanitize removes common separators (spaces, dashes, parentheses, dots)
func (v *PhoneValidator) Sanitize(phone string) string {
	return separatorReplacer.Replace(strings.TrimSpace(phone))
}

// Mask hides all but the last three digits, for logs
func (v *PhoneValidator) Mask(phone string) string {
	if len(phone) <= 3 {
		return phone
	}
	return strings.Repeat("*", len(phone)-3) + phone[len(phone)-3:]
}
