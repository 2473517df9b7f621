package focus

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/rrosmaninho/ICG-ISS/model"
)

// Profile holds the per-body tracking parameters.
type Profile struct {
	Body            model.BodyID
	InitialDistance float64
	EnableRotate    bool
	MinDistance     float64
	MaxDistance     float64
	// StickThreshold is the distance change, in scene units, above which a
	// user zoom replaces the locked distance.
	StickThreshold float64
}

// DefaultProfiles returns the tracking profiles for every trackable body.
func DefaultProfiles() map[model.BodyID]Profile {
	return map[model.BodyID]Profile{
		model.BodyISS: {
			Body:            model.BodyISS,
			InitialDistance: 0.2,
			EnableRotate:    false,
			MinDistance:     0.1,
			MaxDistance:     2,
			StickThreshold:  0.01,
		},
		model.BodySun: {
			Body:            model.BodySun,
			InitialDistance: 1200,
			EnableRotate:    true,
			MinDistance:     600,
			MaxDistance:     5000,
			StickThreshold:  0.5,
		},
		model.BodyMoon: {
			Body:            model.BodyMoon,
			InitialDistance: 12,
			EnableRotate:    true,
			MinDistance:     3,
			MaxDistance:     100,
			StickThreshold:  0.1,
		},
		model.BodyEarth: {
			Body:            model.BodyEarth,
			InitialDistance: 12,
			EnableRotate:    true,
			MinDistance:     6,
			MaxDistance:     200,
			StickThreshold:  0.1,
		},
	}
}

// Config controls the focus controller.
type Config struct {
	// DefaultPose is where RequestFree and ResetAll send the camera.
	DefaultPose model.Pose

	FreeMinDistance float64
	FreeMaxDistance float64

	// ConvergenceFactor is the fraction of the remaining distance error
	// closed per tick, in (0, 1].
	ConvergenceFactor float64

	Profiles map[model.BodyID]Profile
}

// DefaultPose is the overview camera pose.
func DefaultPose() model.Pose {
	return model.Pose{
		Position: mgl64.Vec3{500, 200, 500},
		Target:   mgl64.Vec3{0, 0, 0},
	}
}

// DefaultConfig returns the standard controller configuration.
func DefaultConfig() Config {
	return Config{
		DefaultPose:       DefaultPose(),
		FreeMinDistance:   10,
		FreeMaxDistance:   500000,
		ConvergenceFactor: 0.1,
		Profiles:          DefaultProfiles(),
	}
}
