package mask

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"somchai@mail.com", "s*****i@mail.com"},
		{"ab@mail.com", "**@mail.com"},
		{"a@mail.com", "*@mail.com"},
		{"no-at-sign", "**********"},
		{"", ""},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, Email(tt.in), "mask %q", tt.in)
	}
}
