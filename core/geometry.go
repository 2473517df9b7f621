package core

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ErrDegenerateGeometry is returned when a direction cannot be derived
// because a vector is zero-length or not finite.
var ErrDegenerateGeometry = errors.New("degenerate geometry")

// minDirectionLength is the shortest vector Normalize will accept.
const minDirectionLength = 1e-12

// IsFinite reports whether every component of v is neither NaN nor ±Inf.
func IsFinite(v mgl64.Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Normalize returns v scaled to unit length. It fails with
// ErrDegenerateGeometry instead of producing NaN components.
func Normalize(v mgl64.Vec3) (mgl64.Vec3, error) {
	if !IsFinite(v) {
		return mgl64.Vec3{}, ErrDegenerateGeometry
	}
	l := v.Len()
	if l < minDirectionLength {
		return mgl64.Vec3{}, ErrDegenerateGeometry
	}
	return v.Mul(1 / l), nil
}

// Direction returns the unit vector pointing from `from` to `to`.
func Direction(from, to mgl64.Vec3) (mgl64.Vec3, error) {
	return Normalize(to.Sub(from))
}

// Lerp linearly interpolates between a and b.
func Lerp(a, b mgl64.Vec3, t float64) mgl64.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}

// SegmentClearsSphere reports whether the straight segment p1→p2 stays
// outside the sphere at center with the given radius.
func SegmentClearsSphere(p1, p2, center mgl64.Vec3, radius float64) bool {
	a0 := p1.Sub(center)
	v := p2.Sub(p1)
	a := v.Dot(v)
	r2 := radius * radius
	if a == 0 {
		// Same point: clear only when it lies outside the sphere.
		return a0.Dot(a0) > r2
	}

	// t* minimises |a0 + t v|^2, clamped to the segment.
	t := mgl64.Clamp(-a0.Dot(v)/a, 0, 1)
	closest := a0.Add(v.Mul(t))
	return closest.Dot(closest) > r2
}
