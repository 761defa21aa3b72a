package topic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitJoinRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		topic string
		want  string
	}{
		{name: "canonical separators", topic: "welcome | rules: be nice | meeting at 8", want: "welcome | rules: be nice | meeting at 8"},
		{name: "sloppy whitespace is normalized", topic: "welcome |rules: be nice|  meeting at 8", want: "welcome | rules: be nice | meeting at 8"},
		{name: "single segment", topic: "welcome", want: "welcome"},
		{name: "empty topic", topic: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Join(Split(tt.topic)))
		})
	}
}

func TestAppend(t *testing.T) {
	assert.Equal(t, "a | b | c", Append("a | b", "c"))
	assert.Equal(t, " | first", Append("", "first"))
}

func TestInsert(t *testing.T) {
	assert.Equal(t, "x | a | b", Insert("a | b", 0, "x"))
	assert.Equal(t, "a | x | b", Insert("a | b", 1, "x"))
	assert.Equal(t, "a | x | b", Insert("a | b", -1, "x"))
	// Out-of-range positions clamp instead of failing.
	assert.Equal(t, "a | b | x", Insert("a | b", 99, "x"))
	assert.Equal(t, "x | a | b", Insert("a | b", -99, "x"))
}

func TestReplace(t *testing.T) {
	got, err := Replace("a | b | c", 1, "x")
	require.NoError(t, err)
	assert.Equal(t, "a | x | c", got)

	got, err = Replace("a | b | c", -1, "x")
	require.NoError(t, err)
	assert.Equal(t, "a | b | x", got)

	_, err = Replace("a | b | c", 3, "x")
	var ie *IndexError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, 3, ie.Count)
}

func TestRemove(t *testing.T) {
	got, err := Remove("a | b | c", 0)
	require.NoError(t, err)
	assert.Equal(t, "b | c", got)

	got, err = Remove("a | b | c", -2)
	require.NoError(t, err)
	assert.Equal(t, "a | c", got)

	_, err = Remove("a | b | c", -4)
	assert.Error(t, err)
}

func TestPop(t *testing.T) {
	got, err := Pop("a | b | c")
	require.NoError(t, err)
	assert.Equal(t, "a | b", got)

	got, err = Pop("a")
	require.NoError(t, err)
	assert.Equal(t, "", got)
}
