package model

import (
	"fmt"
	"strings"
)

// FocusMode is the active camera tracking mode.
type FocusMode int

const (
	ModeFree FocusMode = iota
	ModeTrackISS
	ModeTrackSun
	ModeTrackMoon
	ModeTrackEarth
)

// Modes lists every focus mode.
var Modes = []FocusMode{ModeFree, ModeTrackISS, ModeTrackSun, ModeTrackMoon, ModeTrackEarth}

func (m FocusMode) String() string {
	switch m {
	case ModeFree:
		return "free"
	case ModeTrackISS:
		return "track_iss"
	case ModeTrackSun:
		return "track_sun"
	case ModeTrackMoon:
		return "track_moon"
	case ModeTrackEarth:
		return "track_earth"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Valid reports whether m is one of the known modes.
func (m FocusMode) Valid() bool {
	return m >= ModeFree && m <= ModeTrackEarth
}

// Body returns the body a tracking mode locks onto, or BodyNone for Free.
func (m FocusMode) Body() BodyID {
	switch m {
	case ModeTrackISS:
		return BodyISS
	case ModeTrackSun:
		return BodySun
	case ModeTrackMoon:
		return BodyMoon
	case ModeTrackEarth:
		return BodyEarth
	default:
		return BodyNone
	}
}

// ModeForBody returns the tracking mode for b, or ModeFree for BodyNone.
func ModeForBody(b BodyID) FocusMode {
	switch b {
	case BodyISS:
		return ModeTrackISS
	case BodySun:
		return ModeTrackSun
	case BodyMoon:
		return ModeTrackMoon
	case BodyEarth:
		return ModeTrackEarth
	default:
		return ModeFree
	}
}

// ParseFocusMode accepts "free" or a body name ("iss", "sun", ...), with an
// optional "track_" prefix.
func ParseFocusMode(s string) (FocusMode, error) {
	name := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "track_")
	if name == "free" || name == "" {
		return ModeFree, nil
	}
	body, err := ParseBodyID(name)
	if err != nil {
		return ModeFree, fmt.Errorf("unknown focus mode %q", s)
	}
	return ModeForBody(body), nil
}

// FocusState is the state owned by the focus controller. Exactly one mode is
// active; in Free the lock fields are cleared (LockedTarget == BodyNone and
// LockedDistance == 0).
type FocusState struct {
	Mode           FocusMode
	LockedTarget   BodyID
	LockedDistance float64

	ControlsEnabled bool
	EnableRotate    bool
	EnablePan       bool
	EnableZoom      bool
	MinDistance     float64
	MaxDistance     float64
}

// Locked reports whether a target is currently locked.
func (s FocusState) Locked() bool {
	return s.LockedTarget != BodyNone
}
