package irc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseModeChanges(t *testing.T) {
	tests := []struct {
		name  string
		modes string
		args  []string
		want  []modeChange
	}{
		{
			name:  "single quiet",
			modes: "+q",
			args:  []string{"*!*@lamer.example.net"},
			want:  []modeChange{{mode: "q", set: true, param: "*!*@lamer.example.net"}},
		},
		{
			name:  "ban with deop in one line",
			modes: "+b-o",
			args:  []string{"*!*@lamer.example.net", "chanop"},
			want: []modeChange{
				{mode: "b", set: true, param: "*!*@lamer.example.net"},
				{mode: "o", set: false, param: "chanop"},
			},
		},
		{
			name:  "manual unban",
			modes: "-b",
			args:  []string{"*!*@lamer.example.net"},
			want:  []modeChange{{mode: "b", set: false, param: "*!*@lamer.example.net"}},
		},
		{
			name:  "paramless modes mixed in",
			modes: "+mnb",
			args:  []string{"*!*@x"},
			want: []modeChange{
				{mode: "m", set: true},
				{mode: "n", set: true},
				{mode: "b", set: true, param: "*!*@x"},
			},
		},
		{
			name:  "limit takes a param only when set",
			modes: "+l",
			args:  []string{"50"},
			want:  []modeChange{{mode: "l", set: true, param: "50"}},
		},
		{
			name:  "limit unset takes none",
			modes: "-l",
			args:  nil,
			want:  []modeChange{{mode: "l", set: false}},
		},
		{
			name:  "missing args tolerated",
			modes: "+bb",
			args:  []string{"*!*@only-one"},
			want: []modeChange{
				{mode: "b", set: true, param: "*!*@only-one"},
				{mode: "b", set: true},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseModeChanges(tt.modes, tt.args))
		})
	}
}
