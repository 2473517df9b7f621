package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// NightEmissiveScale caps the night-lights layer intensity.
const NightEmissiveScale = 0.8

// DirectionalLight is the Sun's parallel-ray light.
type DirectionalLight struct {
	Position mgl64.Vec3
	Target   mgl64.Vec3
}

// Lighting is the per-tick output of the LightingModel.
type Lighting struct {
	Sun                    DirectionalLight
	NightSideVisibility    float64
	NightEmissiveIntensity float64
	CoronaViewVector       mgl64.Vec3
	ISSSunlit              bool
}

// LightingModel derives terminator and light parameters from body
// positions. The directional light sits at the Sun and is re-aimed at Earth
// every tick.
type LightingModel struct {
	light DirectionalLight
}

// NewLightingModel returns a model with the light parked at the Sun.
func NewLightingModel() *LightingModel {
	return &LightingModel{
		light: DirectionalLight{Position: mgl64.Vec3{SunDistance, 0, 0}},
	}
}

// Light returns the current directional light.
func (l *LightingModel) Light() DirectionalLight {
	return l.light
}

// AimPrimaryLight points the directional light at Earth.
func (l *LightingModel) AimPrimaryLight(earthPos mgl64.Vec3) {
	l.light.Target = earthPos
}

// Update recomputes lighting for the given positions and camera location.
func (l *LightingModel) Update(p Positions, cameraPos mgl64.Vec3) Lighting {
	l.light.Position = p.Sun
	l.AimPrimaryLight(p.Earth)

	vis := NightSideVisibility(p.Sun, p.Earth, cameraPos)
	return Lighting{
		Sun:                    l.light,
		NightSideVisibility:    vis,
		NightEmissiveIntensity: vis * NightEmissiveScale,
		CoronaViewVector:       cameraPos.Sub(p.Sun),
		ISSSunlit:              SegmentClearsSphere(p.ISS, p.Sun, p.Earth, EarthRadius),
	}
}

// NightSideVisibility returns how much of body's night side faces the
// camera: 0 on the day side and at the terminator, rising smoothly to 1
// at the anti-solar point. Degenerate directions yield 0.
func NightSideVisibility(sunPos, bodyPos, cameraPos mgl64.Vec3) float64 {
	sunDir, err := Direction(bodyPos, sunPos)
	if err != nil {
		return 0
	}
	camDir, err := Direction(bodyPos, cameraPos)
	if err != nil {
		return 0
	}
	raw := math.Max(0, -sunDir.Dot(camDir))
	if raw > 1 {
		raw = 1
	}
	return raw * raw
}
