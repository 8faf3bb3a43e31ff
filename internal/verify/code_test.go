package verify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomCodeIssuerRange(t *testing.T) {
	issuer := RandomCodeIssuer{}
	for i := 0; i < 1000; i++ {
		code, err := issuer.Issue()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, code, 100000)
		assert.LessOrEqual(t, code, 999999)
	}
}

func TestParseCode(t *testing.T) {
	tests := []struct {
		text string
		code int
		ok   bool
	}{
		{"123456", 123456, true},
		{"999999", 999999, true},
		{"100000", 100000, true},
		{"12345", 0, false},     // too short
		{"1234567", 0, false},   // too long
		{"12345a", 0, false},    // not all digits
		{"12 456", 0, false},    // embedded space
		{"", 0, false},
		{"a@x.com", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			code, ok := ParseCode(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.code, code)
		})
	}
}
