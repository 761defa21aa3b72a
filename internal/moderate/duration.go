package moderate

import "regexp"

var durationComponent = regexp.MustCompile(`(\d+)([smhdw])`)
var durationToken = regexp.MustCompile(`^(\d+[smhdw])+$`)

var unitSeconds = map[string]int64{
	"s": 1,
	"m": 60,
	"h": 60 * 60,
	"d": 60 * 60 * 24,
	"w": 60 * 60 * 24 * 7,
}

// ParseTime sums the seconds of every <integer><unit> component in s,
// where unit is one of s/m/h/d/w. Text that doesn't match a component
// contributes nothing; an empty string is zero.
func ParseTime(s string) int64 {
	var total int64
	for _, m := range durationComponent.FindAllStringSubmatch(s, -1) {
		var n int64
		for _, c := range m[1] {
			n = n*10 + int64(c-'0')
		}
		total += n * unitSeconds[m[2]]
	}
	return total
}

// IsDuration reports whether s consists entirely of duration components,
// e.g. "1h30m". Used by the command grammar to tell a duration argument
// apart from a trailing reason.
func IsDuration(s string) bool {
	return durationToken.MatchString(s)
}
