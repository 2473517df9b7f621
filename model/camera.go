package model

import "github.com/go-gl/mathgl/mgl64"

// Pose is a camera position paired with the point it looks at.
type Pose struct {
	Position mgl64.Vec3
	Target   mgl64.Vec3
}

// Distance returns the camera-to-target distance.
func (p Pose) Distance() float64 {
	return p.Position.Sub(p.Target).Len()
}

// CameraState is the shared camera transform read by the renderer.
//
// Only the focus controller and the transition animator write to it, and
// never within the same tick.
type CameraState struct {
	Position    mgl64.Vec3
	Target      mgl64.Vec3
	AspectRatio float64
	FovDegrees  float64
}

// Pose returns the position/target pair of the camera.
func (c CameraState) Pose() Pose {
	return Pose{Position: c.Position, Target: c.Target}
}

// SetPose copies position and target from p.
func (c *CameraState) SetPose(p Pose) {
	c.Position = p.Position
	c.Target = p.Target
}
