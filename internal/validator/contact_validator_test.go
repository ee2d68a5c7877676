package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateContact(t *testing.T) {
	cases := []struct {
		email, phone string
		want         error
	}{
		{"ana@example.com", "+503 7000-0000", nil},
		{"", "", nil},
		{"ana@example", "", ErrInvalidEmail},
		{"ana example.com", "", ErrInvalidEmail},
		{strings.Repeat("a", 250) + "@x.com", "", ErrTooLong},
		{"", "12ab", ErrInvalidPhone},
		{"", "(503) 2222 3333", nil},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ValidateContact(tc.email, tc.phone), "%q %q", tc.email, tc.phone)
	}
}

func TestMaxLen(t *testing.T) {
	assert.NoError(t, MaxLen("  abc  ", 3))
	assert.ErrorIs(t, MaxLen("abcd", 3), ErrTooLong)
}
