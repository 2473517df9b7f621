package controls

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/rrosmaninho/ICG-ISS/core"
	"github.com/rrosmaninho/ICG-ISS/model"
)

// maxElevation keeps the camera off the poles where the up vector flips.
const maxElevation = math.Pi/2 - 0.01

// Constraints mirror the enable flags and distance bounds of a pointer
// orbit-control widget.
type Constraints struct {
	Enabled      bool
	EnableRotate bool
	EnablePan    bool
	EnableZoom   bool
	MinDistance  float64
	MaxDistance  float64
}

// ConstraintsFrom extracts the control constraints from a focus state.
func ConstraintsFrom(s model.FocusState) Constraints {
	return Constraints{
		Enabled:      s.ControlsEnabled,
		EnableRotate: s.EnableRotate,
		EnablePan:    s.EnablePan,
		EnableZoom:   s.EnableZoom,
		MinDistance:  s.MinDistance,
		MaxDistance:  s.MaxDistance,
	}
}

// OrbitControls applies user rotate/zoom/pan deltas to a camera around its
// target. It owns no positional state: position and target live in the
// shared CameraState.
type OrbitControls struct {
	camera *model.CameraState
	limits Constraints

	rotateSpeed float64
	zoomSpeed   float64
	panSpeed    float64

	interacting bool
	interacted  bool
}

// Option configures OrbitControls.
type Option func(*OrbitControls)

// Default gesture sensitivities.
const (
	DefaultRotateSpeed = 1.0
	DefaultZoomSpeed   = 0.5
	DefaultPanSpeed    = 1.0
)

// WithRotateSpeed scales rotation deltas (radians per unit input).
// Non-positive values keep the default.
func WithRotateSpeed(s float64) Option {
	return func(o *OrbitControls) {
		if s > 0 {
			o.rotateSpeed = s
		}
	}
}

// WithZoomSpeed scales zoom steps. It must stay below 10 so a step never
// collapses the distance; other values keep the default.
func WithZoomSpeed(s float64) Option {
	return func(o *OrbitControls) {
		if s > 0 && s < 10 {
			o.zoomSpeed = s
		}
	}
}

// WithPanSpeed scales pan deltas (world units per unit input).
func WithPanSpeed(s float64) Option {
	return func(o *OrbitControls) {
		if s > 0 {
			o.panSpeed = s
		}
	}
}

// New attaches controls to camera with free-roam defaults.
func New(camera *model.CameraState, options ...Option) *OrbitControls {
	o := &OrbitControls{
		camera: camera,
		limits: Constraints{
			Enabled:      true,
			EnableRotate: true,
			EnablePan:    true,
			EnableZoom:   true,
			MinDistance:  10,
			MaxDistance:  100,
		},
		rotateSpeed: DefaultRotateSpeed,
		zoomSpeed:   DefaultZoomSpeed,
		panSpeed:    DefaultPanSpeed,
	}
	for _, option := range options {
		option(o)
	}
	return o
}

// SetConstraints replaces the enable flags and distance bounds.
func (o *OrbitControls) SetConstraints(c Constraints) {
	o.limits = c
}

// Constraints returns the active constraints.
func (o *OrbitControls) Constraints() Constraints {
	return o.limits
}

// BeginInteraction marks the start of a pointer drag or wheel gesture.
func (o *OrbitControls) BeginInteraction() {
	o.interacting = true
	o.interacted = true
}

// EndInteraction marks the end of a gesture.
func (o *OrbitControls) EndInteraction() {
	o.interacting = false
}

// Interacting reports whether a gesture is in progress.
func (o *OrbitControls) Interacting() bool {
	return o.interacting
}

// ConsumeInteraction reports whether the user touched the controls since
// the previous call, and clears the flag unless a gesture is still active.
func (o *OrbitControls) ConsumeInteraction() bool {
	v := o.interacted
	o.interacted = o.interacting
	return v
}

// Distance returns the camera-to-target distance.
func (o *OrbitControls) Distance() float64 {
	return o.camera.Position.Sub(o.camera.Target).Len()
}

// Rotate orbits the camera around its target by azimuth/elevation deltas
// (radians, scaled by the rotate speed). It reports whether the camera
// moved.
func (o *OrbitControls) Rotate(dAzimuth, dElevation float64) bool {
	if !o.limits.Enabled || !o.limits.EnableRotate {
		return false
	}
	offset := o.camera.Position.Sub(o.camera.Target)
	radius := offset.Len()
	if radius == 0 || !core.IsFinite(offset) {
		return false
	}

	azimuth := math.Atan2(offset[0], offset[2]) + dAzimuth*o.rotateSpeed
	elevation := math.Asin(mgl64.Clamp(offset[1]/radius, -1, 1)) + dElevation*o.rotateSpeed
	elevation = mgl64.Clamp(elevation, -maxElevation, maxElevation)

	o.camera.Position = o.camera.Target.Add(spherical(radius, azimuth, elevation))
	o.interacted = true
	return true
}

// Zoom dollies the camera toward (steps > 0) or away from (steps < 0) the
// target. Each step scales the distance by (1 - zoomSpeed/10); the result
// is clamped to the distance bounds.
func (o *OrbitControls) Zoom(steps float64) bool {
	if !o.limits.Enabled || !o.limits.EnableZoom {
		return false
	}
	scale := math.Pow(1-o.zoomSpeed/10, steps)
	if !o.SetDistance(o.Distance() * scale) {
		return false
	}
	o.interacted = true
	return true
}

// SetDistance places the camera at d from the target along the current
// viewing direction, clamped to the distance bounds.
func (o *OrbitControls) SetDistance(d float64) bool {
	dir, err := core.Direction(o.camera.Target, o.camera.Position)
	if err != nil || math.IsNaN(d) {
		return false
	}
	d = o.clampDistance(d)
	o.camera.Position = o.camera.Target.Add(dir.Mul(d))
	return true
}

// Pan translates camera and target together along the camera's local
// right and up axes.
func (o *OrbitControls) Pan(dx, dy float64) bool {
	if !o.limits.Enabled || !o.limits.EnablePan {
		return false
	}
	right, up, ok := o.localAxes()
	if !ok {
		return false
	}
	shift := right.Mul(dx * o.panSpeed).Add(up.Mul(dy * o.panSpeed))
	o.camera.Position = o.camera.Position.Add(shift)
	o.camera.Target = o.camera.Target.Add(shift)
	o.interacted = true
	return true
}

func (o *OrbitControls) clampDistance(d float64) float64 {
	lo, hi := o.limits.MinDistance, o.limits.MaxDistance
	if lo > 0 && d < lo {
		d = lo
	}
	if hi > 0 && d > hi {
		d = hi
	}
	return d
}

// localAxes returns the camera's right and up vectors consistent with a
// look-at matrix using world up (0, 1, 0).
func (o *OrbitControls) localAxes() (right, up mgl64.Vec3, ok bool) {
	backward, err := core.Direction(o.camera.Target, o.camera.Position)
	if err != nil {
		return right, up, false
	}
	right, err = core.Normalize(mgl64.Vec3{0, 1, 0}.Cross(backward))
	if err != nil {
		return right, up, false
	}
	up = backward.Cross(right)
	return right, up, true
}

func spherical(radius, azimuth, elevation float64) mgl64.Vec3 {
	sinE, cosE := math.Sincos(elevation)
	sinA, cosA := math.Sincos(azimuth)
	return mgl64.Vec3{
		radius * cosE * sinA,
		radius * sinE,
		radius * cosE * cosA,
	}
}
