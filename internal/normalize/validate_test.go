package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("a@b.com"))
	assert.True(t, IsValidEmail("  Ana.Lopez@ACME.fr "))
	assert.False(t, IsValidEmail("not-an-email"))
	assert.False(t, IsValidEmail(""))
	assert.False(t, IsValidEmail("a@"))
}

func TestIsValidPhone(t *testing.T) {
	assert.True(t, IsValidPhone("+352 123 456"))
	assert.True(t, IsValidPhone("06 12 34 56 78"))
	assert.False(t, IsValidPhone("abc"))
	assert.False(t, IsValidPhone(""))
	assert.False(t, IsValidPhone("12345"))
	assert.False(t, IsValidPhone("+1234567890123456"))
}
