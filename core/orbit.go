package core

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/rrosmaninho/ICG-ISS/model"
)

// Scene distance units are thousands of kilometres, shrunk by SceneScale
// for Earth, the ISS and the Sun.
const (
	SceneScale = 0.8

	EarthRadius     = 6.378 * SceneScale
	EarthAxialTilt  = 23.5         // degrees
	EarthDayPeriod  = 24 * 60 * 60 // seconds
	MoonRadius      = 1.737
	MoonOrbitRadius = 384.4
	MoonOrbitPeriod = 27.3 * 24 * 60 * 60 // seconds
	SunRadius       = 695.5 * SceneScale
	SunDistance     = 149597.871 * SceneScale

	ISSAltitude       = 0.408
	ISSOrbitRadius    = (6.378 + ISSAltitude) * SceneScale
	ISSInclinationDeg = 51.6
	ISSOrbitPeriod    = 92.68 * 60 // seconds
)

// Positions is the state of every body at one simulation instant.
type Positions struct {
	SimTime          float64
	Sun              mgl64.Vec3
	Earth            mgl64.Vec3
	EarthOrientation mgl64.Quat
	Moon             mgl64.Vec3
	ISS              mgl64.Vec3
	ISSOrientation   mgl64.Quat
}

// Of returns the world position of body b.
func (p Positions) Of(b model.BodyID) (mgl64.Vec3, bool) {
	switch b {
	case model.BodySun:
		return p.Sun, true
	case model.BodyEarth:
		return p.Earth, true
	case model.BodyMoon:
		return p.Moon, true
	case model.BodyISS:
		return p.ISS, true
	default:
		return mgl64.Vec3{}, false
	}
}

// WorldPosition implements the focus controller's position source so a
// Positions snapshot can be tracked directly.
func (p Positions) WorldPosition(b model.BodyID) (mgl64.Vec3, error) {
	v, ok := p.Of(b)
	if !ok {
		return mgl64.Vec3{}, fmt.Errorf("world position of %s: %w", b, model.ErrBodyNotFound)
	}
	return v, nil
}

// Bodies expands p into one CelestialBody per body.
func (p Positions) Bodies() []model.CelestialBody {
	return []model.CelestialBody{
		{ID: model.BodySun, Name: "Sun", Position: p.Sun, Orientation: mgl64.QuatIdent()},
		{ID: model.BodyEarth, Name: "Earth", Position: p.Earth, Orientation: p.EarthOrientation},
		{ID: model.BodyMoon, Name: "Moon", Position: p.Moon, Orientation: mgl64.QuatIdent()},
		{ID: model.BodyISS, Name: "ISS", Position: p.ISS, Orientation: p.ISSOrientation},
	}
}

// OrbitalStateModel computes body transforms as a pure function of
// simulation time (seconds). It holds configuration only.
type OrbitalStateModel struct {
	iss ISSMotion

	earthTilt mgl64.Quat
}

// OrbitOption customises an OrbitalStateModel.
type OrbitOption func(*OrbitalStateModel)

// WithISSMotion replaces the default circular ISS orbit.
func WithISSMotion(m ISSMotion) OrbitOption {
	return func(o *OrbitalStateModel) {
		if m != nil {
			o.iss = m
		}
	}
}

// NewOrbitalStateModel constructs the model with the analytic ISS orbit
// unless overridden.
func NewOrbitalStateModel(opts ...OrbitOption) *OrbitalStateModel {
	o := &OrbitalStateModel{
		iss:       NewCircularISSMotion(),
		earthTilt: mgl64.QuatRotate(mgl64.DegToRad(EarthAxialTilt), mgl64.Vec3{0, 0, 1}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Advance evaluates every body at simTime. The ISS motion model is
// evaluated once per call.
func (o *OrbitalStateModel) Advance(simTime float64) Positions {
	earth := mgl64.Vec3{0, 0, 0}
	issOffset, issTangent := o.iss.Position(simTime)

	return Positions{
		SimTime:          simTime,
		Sun:              mgl64.Vec3{SunDistance, 0, 0},
		Earth:            earth,
		EarthOrientation: o.EarthOrientation(simTime),
		Moon:             earth.Add(MoonOffset(simTime)),
		ISS:              earth.Add(issOffset),
		ISSOrientation:   alongTrack(issTangent),
	}
}

// EarthOrientation spins Earth about its own axis, which is tilted from
// the scene's vertical.
func (o *OrbitalStateModel) EarthOrientation(simTime float64) mgl64.Quat {
	spin := mgl64.QuatRotate(simTime*2*math.Pi/EarthDayPeriod, mgl64.Vec3{0, 1, 0})
	return o.earthTilt.Mul(spin).Normalize()
}

// MoonOffset is the Moon's position relative to Earth.
func MoonOffset(simTime float64) mgl64.Vec3 {
	phase := simTime * 2 * math.Pi / MoonOrbitPeriod
	sin, cos := math.Sincos(phase)
	return mgl64.Vec3{MoonOrbitRadius * cos, 0, MoonOrbitRadius * sin}
}

// alongTrack turns the station's +X axis onto its direction of travel.
func alongTrack(tangent mgl64.Vec3) mgl64.Quat {
	dir, err := Normalize(tangent)
	if err != nil {
		return mgl64.QuatIdent()
	}
	return fromUnitVectors(mgl64.Vec3{1, 0, 0}, dir)
}

// fromUnitVectors is the shortest-arc rotation taking unit vector from onto
// unit vector to. Antiparallel inputs rotate half a turn about any
// perpendicular axis.
func fromUnitVectors(from, to mgl64.Vec3) mgl64.Quat {
	r := from.Dot(to) + 1
	if r < 1e-9 {
		axis := mgl64.Vec3{0, 0, 1}.Cross(from)
		if axis.Len() < 1e-6 {
			axis = mgl64.Vec3{0, 1, 0}.Cross(from)
		}
		return mgl64.QuatRotate(math.Pi, axis.Normalize())
	}
	return mgl64.Quat{W: r, V: from.Cross(to)}.Normalize()
}
