package topic

import (
	"errors"
	"fmt"
	"strings"
)

// Separator joins topic segments on the wire.
const Separator = " | "

// ErrNoHistory means an undo was requested without enough remembered
// topics to revert to.
var ErrNoHistory = errors.New("no topic history")

// IndexError reports a positional edit beyond the current segment count.
type IndexError struct {
	Count int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("there are only %d topic parts, indexes start at 0", e.Count)
}

// Split breaks a topic into trimmed segments. The delimiter is a bare
// "|"; surrounding whitespace belongs to the separator, not the segment.
func Split(topic string) []string {
	raw := strings.Split(strings.TrimSpace(topic), "|")
	parts := make([]string, len(raw))
	for i, p := range raw {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// Join reassembles segments into a topic string.
func Join(parts []string) string {
	return strings.Join(parts, Separator)
}

// Append adds text as a new trailing segment.
func Append(topic, text string) string {
	return Join(append(Split(topic), text))
}

// Insert places text at pos, counting from zero. Negative positions
// count from the end; positions beyond either end clamp rather than
// fail, matching list-insert semantics.
func Insert(topic string, pos int, text string) string {
	parts := Split(topic)
	if pos < 0 {
		pos += len(parts)
		if pos < 0 {
			pos = 0
		}
	}
	if pos > len(parts) {
		pos = len(parts)
	}
	parts = append(parts[:pos], append([]string{text}, parts[pos:]...)...)
	return Join(parts)
}

// Replace substitutes the segment at pos with text.
func Replace(topic string, pos int, text string) (string, error) {
	parts := Split(topic)
	i, err := index(pos, len(parts))
	if err != nil {
		return "", err
	}
	parts[i] = text
	return Join(parts), nil
}

// Remove deletes the segment at pos.
func Remove(topic string, pos int) (string, error) {
	parts := Split(topic)
	i, err := index(pos, len(parts))
	if err != nil {
		return "", err
	}
	parts = append(parts[:i], parts[i+1:]...)
	return Join(parts), nil
}

// Pop deletes the last segment.
func Pop(topic string) (string, error) {
	return Remove(topic, -1)
}

func index(pos, count int) (int, error) {
	if pos < 0 {
		pos += count
	}
	if pos < 0 || pos >= count {
		return 0, &IndexError{Count: count}
	}
	return pos, nil
}
