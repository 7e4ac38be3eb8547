package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePassword(t *testing.T) {
	assert.True(t, ValidatePassword("Str0ng!pw"))
	assert.False(t, ValidatePassword("short1!"))
	assert.False(t, ValidatePassword("alllower1!"))
	assert.False(t, ValidatePassword("NoDigits!!"))
	assert.False(t, ValidatePassword("NoSpecial12"))
}

func TestValidateUsername(t *testing.T) {
	assert.True(t, ValidateUsername("alice.w"))
	assert.False(t, ValidateUsername("ab"))
	assert.False(t, ValidateUsername("has space"))
}

func TestValidateCurrency(t *testing.T) {
	assert.True(t, ValidateCurrency("INR"))
	assert.True(t, ValidateCurrency("USDT"))
	assert.False(t, ValidateCurrency("usd"))
	assert.False(t, ValidateCurrency("US"))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "a@x.com", NormalizeEmail("  A@X.com "))
	assert.True(t, ValidateEmail("a@x.com"))
	assert.False(t, ValidateEmail("not-an-email"))
}
