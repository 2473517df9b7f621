package model

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// BodyID identifies one of the celestial bodies in the scene.
type BodyID int

const (
	BodyNone BodyID = iota
	BodySun
	BodyEarth
	BodyMoon
	BodyISS
)

// Bodies lists every trackable body in a stable order.
var Bodies = []BodyID{BodySun, BodyEarth, BodyMoon, BodyISS}

func (b BodyID) String() string {
	switch b {
	case BodySun:
		return "sun"
	case BodyEarth:
		return "earth"
	case BodyMoon:
		return "moon"
	case BodyISS:
		return "iss"
	default:
		return "none"
	}
}

// ParseBodyID maps a case-insensitive body name to its BodyID.
func ParseBodyID(name string) (BodyID, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sun":
		return BodySun, nil
	case "earth":
		return BodyEarth, nil
	case "moon":
		return BodyMoon, nil
	case "iss":
		return BodyISS, nil
	default:
		return BodyNone, fmt.Errorf("unknown body %q", name)
	}
}

// CelestialBody is a body's world transform. Bodies are created once per
// session and updated in place every tick.
type CelestialBody struct {
	ID          BodyID
	Name        string
	Position    mgl64.Vec3
	Orientation mgl64.Quat
}
