package core

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	satellite "github.com/joshuaferrara/go-satellite"
)

// ISSMotion places the ISS on its orbit for a given simulation time.
// Implementations return the position relative to Earth's centre and the
// unit tangent (direction of travel) at that instant.
type ISSMotion interface {
	Position(simTime float64) (pos, tangent mgl64.Vec3)
}

// CircularISSMotion is the analytic inclined circular orbit.
type CircularISSMotion struct {
	Radius      float64
	Inclination float64 // radians
	Period      float64 // seconds
}

// NewCircularISSMotion returns the default ISS orbit.
func NewCircularISSMotion() *CircularISSMotion {
	return &CircularISSMotion{
		Radius:      ISSOrbitRadius,
		Inclination: mgl64.DegToRad(ISSInclinationDeg),
		Period:      ISSOrbitPeriod,
	}
}

// Phase returns the orbit phase angle at simTime.
func (m *CircularISSMotion) Phase(simTime float64) float64 {
	return simTime * 2 * math.Pi / m.Period
}

// Position evaluates the orbit and its first derivative at simTime.
func (m *CircularISSMotion) Position(simTime float64) (mgl64.Vec3, mgl64.Vec3) {
	theta := m.Phase(simTime)
	sinI, cosI := math.Sincos(m.Inclination)
	sinT, cosT := math.Sincos(theta)

	pos := mgl64.Vec3{
		m.Radius * cosT,
		m.Radius * sinT * sinI,
		m.Radius * sinT * cosI,
	}
	// d/dθ of the unit orbit; already unit length since sin²i + cos²i = 1.
	tangent := mgl64.Vec3{-sinT, cosT * sinI, cosT * cosI}
	return pos, tangent
}

// SGP4ISSMotion propagates the real ISS from a TLE and projects the result
// onto the scene's orbit radius, so only the phase and plane come from SGP4.
type SGP4ISSMotion struct {
	sat    satellite.Satellite
	epoch  time.Time
	radius float64
}

// ErrInvalidTLE reports a two-line element set go-satellite cannot parse.
var ErrInvalidTLE = errors.New("invalid TLE")

// tleLineLength is the fixed width of both element lines, checksum included.
const tleLineLength = 69

// tleField is one fixed-column field as go-satellite slices and parses it.
type tleField struct {
	name    string
	parse   func(line string) string
	integer bool
}

func tleColumns(from, to int) func(string) string {
	return func(l string) string { return strings.Replace(l[from:to], " ", "", 2) }
}

// tleExponent joins a sign column, implied-decimal mantissa and exponent.
func tleExponent(sign, mant, exp int) func(string) string {
	return func(l string) string {
		return strings.Replace(l[sign:mant]+"."+l[mant:exp]+"e"+l[exp:exp+2], " ", "", 2)
	}
}

var tleLine1Fields = []tleField{
	{name: "catalog number", parse: func(l string) string { return strings.TrimSpace(l[2:7]) }, integer: true},
	{name: "epoch year", parse: func(l string) string { return l[18:20] }, integer: true},
	{name: "epoch day", parse: func(l string) string { return l[20:32] }},
	{name: "mean motion derivative", parse: tleColumns(33, 43)},
	{name: "mean motion second derivative", parse: tleExponent(44, 45, 50)},
	{name: "bstar", parse: tleExponent(53, 54, 59)},
}

var tleLine2Fields = []tleField{
	{name: "inclination", parse: tleColumns(8, 16)},
	{name: "right ascension", parse: tleColumns(17, 25)},
	{name: "eccentricity", parse: func(l string) string { return "." + l[26:33] }},
	{name: "argument of perigee", parse: tleColumns(34, 42)},
	{name: "mean anomaly", parse: tleColumns(43, 51)},
	{name: "mean motion", parse: tleColumns(52, 63)},
}

// ValidateTLE checks that both lines have the layout and numeric fields
// go-satellite expects. Its parser panics on short lines and exits the
// process on bad numbers, so lines must pass here before TLEToSat.
func ValidateTLE(line1, line2 string) error {
	if err := validateTLELine(1, line1, tleLine1Fields); err != nil {
		return err
	}
	if err := validateTLELine(2, line2, tleLine2Fields); err != nil {
		return err
	}
	if line1[2:7] != line2[2:7] {
		return fmt.Errorf("%w: catalog numbers differ (%q vs %q)", ErrInvalidTLE, line1[2:7], line2[2:7])
	}
	return nil
}

func validateTLELine(n int, line string, fields []tleField) error {
	if len(line) != tleLineLength {
		return fmt.Errorf("%w: line %d is %d characters, want %d", ErrInvalidTLE, n, len(line), tleLineLength)
	}
	if prefix := strconv.Itoa(n) + " "; !strings.HasPrefix(line, prefix) {
		return fmt.Errorf("%w: line %d must start with %q", ErrInvalidTLE, n, prefix)
	}
	for _, f := range fields {
		raw := f.parse(line)
		var err error
		if f.integer {
			_, err = strconv.ParseInt(raw, 10, 0)
		} else {
			_, err = strconv.ParseFloat(raw, 64)
		}
		if err != nil {
			return fmt.Errorf("%w: line %d %s %q", ErrInvalidTLE, n, f.name, raw)
		}
	}
	return nil
}

// NewSGP4ISSMotionFromTLE builds an SGP4 model. simTime 0 maps to epoch.
// Surrounding whitespace on the lines is ignored.
func NewSGP4ISSMotionFromTLE(line1, line2 string, epoch time.Time) (*SGP4ISSMotion, error) {
	line1, line2 = strings.TrimSpace(line1), strings.TrimSpace(line2)
	if err := ValidateTLE(line1, line2); err != nil {
		return nil, fmt.Errorf("sgp4 motion: %w", err)
	}
	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS72)
	return &SGP4ISSMotion{sat: sat, epoch: epoch.UTC(), radius: ISSOrbitRadius}, nil
}

// Position propagates to epoch+simTime. go-satellite works in an Earth
// centred inertial frame with Z up; the scene uses Y up. Propagate only
// takes whole seconds, so the fractional second is stepped along the
// velocity vector.
func (m *SGP4ISSMotion) Position(simTime float64) (mgl64.Vec3, mgl64.Vec3) {
	t := m.epoch.Add(time.Duration(simTime * float64(time.Second)))
	whole := t.Truncate(time.Second)
	frac := t.Sub(whole).Seconds()
	year, month, day := whole.Date()
	hour, min, sec := whole.Clock()

	posECI, velECI := satellite.Propagate(m.sat, year, int(month), day, hour, min, sec)
	pos := eciToScene(posECI).Add(eciToScene(velECI).Mul(frac))

	dir, err := Normalize(pos)
	if err != nil {
		// Propagation failed (decayed satellite); park on +X.
		return mgl64.Vec3{m.radius, 0, 0}, mgl64.Vec3{0, 0, 1}
	}
	tangent, err := Normalize(eciToScene(velECI))
	if err != nil {
		tangent = mgl64.Vec3{0, 0, 1}
	}
	return dir.Mul(m.radius), tangent
}

func eciToScene(v satellite.Vector3) mgl64.Vec3 {
	return mgl64.Vec3{v.X, v.Z, -v.Y}
}
