package toolenv

import (
	"fmt"
)

// Mode controls the visibility of build and run output.
type Mode int

const (
	ModeNormal Mode = iota
	ModeQuiet
	ModeTraced
)

// ResolveMode applies Traced > Quiet.
func ResolveMode(traced, quiet bool) Mode {
	switch {
	case traced:
		return ModeTraced
	case quiet:
		return ModeQuiet
	default:
		return ModeNormal
	}
}

// Quieted returns the mode for a scoped quiet region. Traced is kept.
func (m Mode) Quieted() Mode {
	if m == ModeTraced {
		return m
	}
	return ModeQuiet
}

// Traced reports whether every command must be visible.
func (m Mode) Traced() bool {
	return m == ModeTraced
}

func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeQuiet:
		return "quiet"
	case ModeTraced:
		return "traced"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}
