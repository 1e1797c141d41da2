package episodes

import "strconv"

type numberState uint8

const (
	stateUnset numberState = iota
	statePlaceholder
	stateSet
)

// Number is an episode number that may be absent or waiting for the next
// renumbering pass. Unset entries are skipped by renumbering and never advance
// the counter; placeholders are renumbered like any concrete value.
type Number struct {
	value int
	state numberState
}

var (
	Unset       = Number{}
	Placeholder = Number{state: statePlaceholder}
)

// Num returns a concrete episode number.
func Num(v int) Number {
	return Number{value: v, state: stateSet}
}

// Value returns the concrete number, if any.
func (n Number) Value() (int, bool) {
	return n.value, n.state == stateSet
}

// Or returns the concrete number or def.
func (n Number) Or(def int) int {
	if n.state == stateSet {
		return n.value
	}
	return def
}

func (n Number) IsSet() bool         { return n.state == stateSet }
func (n Number) IsUnset() bool       { return n.state == stateUnset }
func (n Number) IsPlaceholder() bool { return n.state == statePlaceholder }

func (n Number) String() string {
	switch n.state {
	case stateSet:
		return strconv.Itoa(n.value)
	case statePlaceholder:
		return "?"
	default:
		return "-"
	}
}
