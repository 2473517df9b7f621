package scene

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rrosmaninho/ICG-ISS/core"
	"github.com/rrosmaninho/ICG-ISS/internal/controls"
	"github.com/rrosmaninho/ICG-ISS/internal/focus"
	"github.com/rrosmaninho/ICG-ISS/model"
)

// ISS motion sources.
const (
	ISSSourceCircular = "circular"
	ISSSourceTLE      = "tle"
)

// Reference ISS elements used when the TLE source is selected without
// explicit lines.
const (
	DefaultTLELine1 = "1 25544U 98067A   21275.59097222  .00000204  00000-0  10270-4 0  9990"
	DefaultTLELine2 = "2 25544  51.6459 115.9059 0001817  61.3028  35.9198 15.49370953257760"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid scene config")

// Config holds the tunables of a Session.
type Config struct {
	// SpeedMultiplier scales simulated time against wall time.
	SpeedMultiplier float64
	// FrameInterval is the tick period used by the driving loop.
	FrameInterval time.Duration
	// StartTime is the initial simulation time in seconds.
	StartTime float64

	EntryTransition time.Duration
	ResetTransition time.Duration

	ConvergenceFactor float64
	DefaultPose       model.Pose
	FovDegrees        float64
	AspectRatio       float64

	// Gesture sensitivities handed to the orbit controls.
	RotateSpeed float64
	ZoomSpeed   float64
	PanSpeed    float64

	ISSSource string
	TLELine1  string
	TLELine2  string
	// TLEEpoch is the wall-clock instant simulation time 0 maps to.
	TLEEpoch time.Time
}

// DefaultConfig returns the standard scene configuration.
func DefaultConfig() Config {
	return Config{
		SpeedMultiplier:   1,
		FrameInterval:     time.Second / 60,
		EntryTransition:   1500 * time.Millisecond,
		ResetTransition:   2000 * time.Millisecond,
		ConvergenceFactor: focus.DefaultConfig().ConvergenceFactor,
		DefaultPose:       focus.DefaultPose(),
		FovDegrees:        75,
		AspectRatio:       16.0 / 9.0,
		RotateSpeed:       controls.DefaultRotateSpeed,
		ZoomSpeed:         controls.DefaultZoomSpeed,
		PanSpeed:          controls.DefaultPanSpeed,
		ISSSource:         ISSSourceCircular,
	}
}

// ConfigFromEnv overlays SOLARSIM_* environment variables on the defaults.
// Unparseable values are ignored.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if v, ok := envFloat("SOLARSIM_SPEED"); ok {
		cfg.SpeedMultiplier = v
	}
	if v, ok := envDuration("SOLARSIM_FRAME_INTERVAL"); ok {
		cfg.FrameInterval = v
	}
	if v, ok := envFloat("SOLARSIM_START_TIME"); ok {
		cfg.StartTime = v
	}
	if v, ok := envDuration("SOLARSIM_ENTRY_TRANSITION"); ok {
		cfg.EntryTransition = v
	}
	if v, ok := envDuration("SOLARSIM_RESET_TRANSITION"); ok {
		cfg.ResetTransition = v
	}
	if v, ok := envFloat("SOLARSIM_CONVERGENCE"); ok {
		cfg.ConvergenceFactor = v
	}
	if v, ok := envFloat("SOLARSIM_FOV"); ok {
		cfg.FovDegrees = v
	}
	if v, ok := envFloat("SOLARSIM_ASPECT"); ok {
		cfg.AspectRatio = v
	}
	if v, ok := envFloat("SOLARSIM_ROTATE_SPEED"); ok {
		cfg.RotateSpeed = v
	}
	if v, ok := envFloat("SOLARSIM_ZOOM_SPEED"); ok {
		cfg.ZoomSpeed = v
	}
	if v, ok := envFloat("SOLARSIM_PAN_SPEED"); ok {
		cfg.PanSpeed = v
	}
	if v := strings.ToLower(os.Getenv("SOLARSIM_ISS_SOURCE")); v != "" {
		cfg.ISSSource = v
	}
	cfg.TLELine1 = os.Getenv("SOLARSIM_TLE1")
	cfg.TLELine2 = os.Getenv("SOLARSIM_TLE2")
	if raw := os.Getenv("SOLARSIM_TLE_EPOCH"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			cfg.TLEEpoch = t
		}
	}
	return cfg
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case !positiveFinite(c.SpeedMultiplier):
		return fmt.Errorf("%w: speed multiplier must be positive, got %v", ErrInvalidConfig, c.SpeedMultiplier)
	case c.FrameInterval <= 0:
		return fmt.Errorf("%w: frame interval must be positive, got %s", ErrInvalidConfig, c.FrameInterval)
	case c.EntryTransition < 0 || c.ResetTransition < 0:
		return fmt.Errorf("%w: transition durations must not be negative", ErrInvalidConfig)
	case !(c.ConvergenceFactor > 0 && c.ConvergenceFactor <= 1):
		return fmt.Errorf("%w: convergence factor must be in (0,1], got %v", ErrInvalidConfig, c.ConvergenceFactor)
	case !(c.FovDegrees > 0 && c.FovDegrees < 180):
		return fmt.Errorf("%w: field of view must be in (0,180), got %v", ErrInvalidConfig, c.FovDegrees)
	case !(c.AspectRatio > 0) || math.IsInf(c.AspectRatio, 0):
		return fmt.Errorf("%w: aspect ratio must be positive, got %v", ErrInvalidConfig, c.AspectRatio)
	case math.IsNaN(c.StartTime) || math.IsInf(c.StartTime, 0):
		return fmt.Errorf("%w: start time must be finite", ErrInvalidConfig)
	case !core.IsFinite(c.DefaultPose.Position) || !core.IsFinite(c.DefaultPose.Target):
		return fmt.Errorf("%w: default pose must be finite", ErrInvalidConfig)
	case !positiveFinite(c.RotateSpeed) || !positiveFinite(c.PanSpeed):
		return fmt.Errorf("%w: rotate and pan speeds must be positive", ErrInvalidConfig)
	case !(c.ZoomSpeed > 0 && c.ZoomSpeed < 10):
		return fmt.Errorf("%w: zoom speed must be in (0,10), got %v", ErrInvalidConfig, c.ZoomSpeed)
	}
	switch c.ISSSource {
	case ISSSourceCircular:
	case ISSSourceTLE:
		l1, l2 := c.tleLines()
		if err := core.ValidateTLE(l1, l2); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	default:
		return fmt.Errorf("%w: unknown ISS source %q", ErrInvalidConfig, c.ISSSource)
	}
	return nil
}

// tleLines returns the configured element set, or the reference ISS set
// when neither line is given.
func (c Config) tleLines() (string, string) {
	l1, l2 := strings.TrimSpace(c.TLELine1), strings.TrimSpace(c.TLELine2)
	if l1 == "" && l2 == "" {
		return DefaultTLELine1, DefaultTLELine2
	}
	return l1, l2
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

func envFloat(key string) (float64, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func envDuration(key string) (time.Duration, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}
