package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidUUID(t *testing.T) {
	assert.True(t, IsValidUUID("a1b2c3d4-e5f6-7890-abcd-ef1234567890"))
	assert.False(t, IsValidUUID(""))
	assert.False(t, IsValidUUID("not-a-uuid"))
}

func TestIsValidDeviceCode(t *testing.T) {
	tests := []struct {
		code  string
		valid bool
	}{
		{"STORE-042-ENTRANCE", true},
		{"ABC", true},
		{"A1-2", true},
		{"ab-lowercase", false},
		{"-LEADING-DASH", false},
		{"AB", false},
		{"THIS-CODE-IS-WAY-TOO-LONG-TO-BE-A-DEVICE-CODE", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.valid, IsValidDeviceCode(tt.code), tt.code)
	}
}

func TestIsValidPin(t *testing.T) {
	assert.True(t, IsValidPin("042917"))
	assert.False(t, IsValidPin("12345"))
	assert.False(t, IsValidPin("1234567"))
	assert.False(t, IsValidPin("12a456"))
}

func TestIsValidEnum(t *testing.T) {
	valid := []string{"PLAYING", "STANDBY", "ERROR"}
	assert.True(t, IsValidEnum("PLAYING", valid))
	assert.True(t, IsValidEnum("", valid), "empty value passes, optional fields")
	assert.False(t, IsValidEnum("playing", valid))
}
