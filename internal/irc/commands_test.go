package irc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitTargetDuration(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		marker   string
		target   string
		duration string
		rest     []string
	}{
		{
			name:   "target only",
			args:   []string{"evil"},
			marker: "for",
			target: "evil",
			rest:   []string{},
		},
		{
			name:     "with marker and duration",
			args:     []string{"evil", "for", "10m"},
			marker:   "for",
			target:   "evil",
			duration: "10m",
			rest:     []string{},
		},
		{
			name:     "duration without marker",
			args:     []string{"evil", "1h30m"},
			marker:   "for",
			target:   "evil",
			duration: "1h30m",
			rest:     []string{},
		},
		{
			name:     "split duration tokens concatenate",
			args:     []string{"evil", "for", "1h", "30m"},
			marker:   "for",
			target:   "evil",
			duration: "1h30m",
			rest:     []string{},
		},
		{
			name:     "trailing reason survives",
			args:     []string{"evil", "for", "10m", "flooding", "the", "channel"},
			marker:   "for",
			target:   "evil",
			duration: "10m",
			rest:     []string{"flooding", "the", "channel"},
		},
		{
			name:   "reason that is not a duration",
			args:   []string{"evil", "flooding"},
			marker: "for",
			target: "evil",
			rest:   []string{"flooding"},
		},
		{
			name:     "unban delay marker",
			args:     []string{"*!*@host", "in", "2d"},
			marker:   "in",
			target:   "*!*@host",
			duration: "2d",
			rest:     []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, duration, rest := splitTargetDuration(tt.args, tt.marker)
			assert.Equal(t, tt.target, target)
			assert.Equal(t, tt.duration, duration)
			assert.Equal(t, tt.rest, rest)
		})
	}
}

func TestCommandTableAliases(t *testing.T) {
	table := commandTable()

	require.Contains(t, table, "quiet")
	assert.Same(t, table["quiet"], table["mute"])
	assert.Same(t, table["unquiet"], table["unmute"])
	assert.Same(t, table["voice"], table["hat"])
	assert.Same(t, table["devoice"], table["unhat"])

	for name, cmd := range table {
		if name == "help" || name == "version" {
			assert.Empty(t, cmd.perm, "%s should not need a permission", name)
			continue
		}
		assert.NotEmpty(t, cmd.perm, "%s must require a permission", name)
	}
}
