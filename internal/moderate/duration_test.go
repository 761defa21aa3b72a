package moderate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTime(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"1h30m", 5400},
		{"2d", 172800},
		{"", 0},
		{"10m", 600},
		{"1w", 604800},
		{"90s", 90},
		{"1d12h", 129600},
		{"soon", 0},
		{"5m later", 300},
		{"5x", 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseTime(tt.in), "ParseTime(%q)", tt.in)
	}
}

func TestIsDuration(t *testing.T) {
	assert.True(t, IsDuration("1h30m"))
	assert.True(t, IsDuration("10m"))
	assert.False(t, IsDuration(""))
	assert.False(t, IsDuration("for"))
	assert.False(t, IsDuration("1h30"))
	assert.False(t, IsDuration("flooding"))
}
