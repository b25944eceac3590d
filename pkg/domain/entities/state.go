package entities

import (
	"fmt"
	"strings"
)

// State is the physical storage/transport condition of product
type State uint8

const (
	Ambient State = iota
	Frozen
	Thawed
)

// AllStates lists every state in a stable order
var AllStates = []State{Ambient, Frozen, Thawed}

// String method for State enum
func (s State) String() string {
	switch s {
	case Ambient:
		return "ambient"
	case Frozen:
		return "frozen"
	case Thawed:
		return "thawed"
	default:
		return "unknown"
	}
}

// Consumable reports whether demand may be served from this state
func (s State) Consumable() bool {
	return s == Ambient || s == Thawed
}

// ParseState converts a textual state into a State
func ParseState(s string) (State, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ambient", "a":
		return Ambient, nil
	case "frozen", "f":
		return Frozen, nil
	case "thawed", "t":
		return Thawed, nil
	default:
		return Ambient, fmt.Errorf("unknown state %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *State) UnmarshalText(text []byte) error {
	parsed, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// StateSet is a set of states stored as a bitmask
type StateSet uint8

// NewStateSet builds a set from the given states
func NewStateSet(states ...State) StateSet {
	var set StateSet
	for _, s := range states {
		set = set.With(s)
	}
	return set
}

// With returns the set with s added
func (set StateSet) With(s State) StateSet {
	return set | 1<<s
}

// Has reports whether s is in the set
func (set StateSet) Has(s State) bool {
	return set&(1<<s) != 0
}

// Empty reports whether the set holds no state
func (set StateSet) Empty() bool {
	return set == 0
}

// States returns the members in AllStates order
func (set StateSet) States() []State {
	var out []State
	for _, s := range AllStates {
		if set.Has(s) {
			out = append(out, s)
		}
	}
	return out
}

func (set StateSet) String() string {
	names := make([]string, 0, 3)
	for _, s := range set.States() {
		names = append(names, s.String())
	}
	return "{" + strings.Join(names, ",") + "}"
}
