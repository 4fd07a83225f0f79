package wizard

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrQuit is returned by ParseSelection when the user enters "q".
var ErrQuit = errors.New("selection cancelled")

// Selection is the parsed answer to the gauge prompt. Indices are 1-based,
// deduplicated, and in order of first mention. Invalid holds numbers, or
// range endpoints, outside 1..n.
type Selection struct {
	Indices []int
	Invalid []int
}

// ParseSelection parses "1,3,5", "1-3", mixtures of the two, "all", or "q"
// against a list of n entries.
func ParseSelection(input string, n int) (Selection, error) {
	input = strings.ToLower(strings.TrimSpace(input))
	switch input {
	case "q":
		return Selection{}, ErrQuit
	case "all":
		sel := Selection{Indices: make([]int, n)}
		for i := range n {
			sel.Indices[i] = i + 1
		}
		return sel, nil
	case "":
		return Selection{}, errors.New("empty selection")
	}

	var sel Selection
	seen := make(map[int]bool)
	add := func(i int) {
		if i < 1 || i > n {
			sel.Invalid = append(sel.Invalid, i)
			return
		}
		if !seen[i] {
			seen[i] = true
			sel.Indices = append(sel.Indices, i)
		}
	}

	for _, part := range strings.Split(input, ",") {
		part = strings.TrimSpace(part)
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			start, err := strconv.Atoi(strings.TrimSpace(lo))
			if err != nil {
				return Selection{}, fmt.Errorf("invalid range %q", part)
			}
			end, err := strconv.Atoi(strings.TrimSpace(hi))
			if err != nil {
				return Selection{}, fmt.Errorf("invalid range %q", part)
			}
			if start > end {
				continue
			}
			// Only the endpoints can fall outside 1..n; the loop is clamped.
			if start < 1 || start > n {
				sel.Invalid = append(sel.Invalid, start)
			}
			if end != start && (end < 1 || end > n) {
				sel.Invalid = append(sel.Invalid, end)
			}
			for i := max(start, 1); i <= min(end, n); i++ {
				add(i)
			}
			continue
		}
		i, err := strconv.Atoi(part)
		if err != nil {
			return Selection{}, fmt.Errorf("invalid number %q", part)
		}
		add(i)
	}
	return sel, nil
}
