package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeUserCode(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"ABCD-1234", "ABCD1234"},
		{"abcd-1234", "ABCD1234"},
		{" ab cd-12 34 ", "ABCD1234"},
		{"ABCD1234", "ABCD1234"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeUserCode(tt.input), "input %q", tt.input)
	}

	assert.Equal(t, NormalizeUserCode("ABCD1234"), NormalizeUserCode("abcd-1234"))
}

func TestFormatUserCode(t *testing.T) {
	assert.Equal(t, "ABCD-1234", FormatUserCode("abcd1234"))
	assert.Equal(t, "ABCD-1234", FormatUserCode("ABCD-1234"))
	assert.Equal(t, "XYZ", FormatUserCode("x-y-z"))
}

func TestVerificationURL(t *testing.T) {
	s := &Session{UserCode: "ABCD-1234"}
	assert.Equal(t, "http://localhost:3005/device?user_code=ABCD-1234", VerificationURL(s, "http://localhost:3005/"))

	s.VerificationURIComplete = "https://id.example.com/activate?code=ABCD-1234"
	assert.Equal(t, s.VerificationURIComplete, VerificationURL(s, "http://localhost:3005"))
}
