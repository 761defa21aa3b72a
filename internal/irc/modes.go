package irc

type modeChange struct {
	mode  string
	set   bool
	param string
}

// takesParam reports whether a channel mode consumes an argument in a
// MODE line. List modes and prefix modes always do; +l only when set.
func takesParam(mode byte, set bool) bool {
	switch mode {
	case 'b', 'q', 'e', 'I', 'o', 'v', 'h', 'a', 'k':
		return true
	case 'l':
		return set
	}
	return false
}

// parseModeChanges flattens a MODE line ("+q-b mask1 mask2") into one
// change per mode character, pairing arguments in order.
func parseModeChanges(modes string, args []string) []modeChange {
	var changes []modeChange
	set := true
	argi := 0

	for i := 0; i < len(modes); i++ {
		switch modes[i] {
		case '+':
			set = true
		case '-':
			set = false
		default:
			var param string
			if takesParam(modes[i], set) && argi < len(args) {
				param = args[argi]
				argi++
			}
			changes = append(changes, modeChange{
				mode:  string(modes[i]),
				set:   set,
				param: param,
			})
		}
	}
	return changes
}
