package util

import (
	"regexp"

	"github.com/google/uuid"
)

var (
	deviceCodeRegex = regexp.MustCompile(`^[A-Z0-9][A-Z0-9-]{2,31}$`)
	pinRegex        = regexp.MustCompile(`^[0-9]{6}$`)
)

func IsValidUUID(s string) bool {
	if s == "" {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// IsValidDeviceCode accepts codes like "ABC-1234": uppercase alphanumerics
// and dashes, 3 to 32 characters, human-unique per tenant.
func IsValidDeviceCode(s string) bool {
	return deviceCodeRegex.MatchString(s)
}

func IsValidPin(s string) bool {
	return pinRegex.MatchString(s)
}

func IsValidEnum(value string, validValues []string) bool {
	if value == "" {
		return true
	}
	for _, v := range validValues {
		if value == v {
			return true
		}
	}
	return false
}
