package scene

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rrosmaninho/ICG-ISS/core"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"zero speed":         func(c *Config) { c.SpeedMultiplier = 0 },
		"nan speed":          func(c *Config) { c.SpeedMultiplier = math.NaN() },
		"zero frame":         func(c *Config) { c.FrameInterval = 0 },
		"negative entry":     func(c *Config) { c.EntryTransition = -time.Second },
		"convergence over 1": func(c *Config) { c.ConvergenceFactor = 1.5 },
		"zero convergence":   func(c *Config) { c.ConvergenceFactor = 0 },
		"fov":                func(c *Config) { c.FovDegrees = 180 },
		"aspect":             func(c *Config) { c.AspectRatio = -1 },
		"start time":         func(c *Config) { c.StartTime = math.Inf(1) },
		"pose":               func(c *Config) { c.DefaultPose.Position[0] = math.NaN() },
		"iss source":         func(c *Config) { c.ISSSource = "horizons" },
		"inf speed":          func(c *Config) { c.SpeedMultiplier = math.Inf(1) },
		"zoom speed":         func(c *Config) { c.ZoomSpeed = 10 },
		"rotate speed":       func(c *Config) { c.RotateSpeed = 0 },
		"pan speed":          func(c *Config) { c.PanSpeed = math.Inf(1) },
	}
	for name, mutate := range cases {
		cfg := DefaultConfig()
		mutate(&cfg)
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("%s: Validate() = %v, want ErrInvalidConfig", name, err)
		}
	}
}

func TestValidateChecksTLE(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ISSSource = ISSSourceTLE
	if err := cfg.Validate(); err != nil {
		t.Fatalf("reference TLE: Validate() = %v", err)
	}

	cases := map[string][2]string{
		"one line only": {DefaultTLELine1, ""},
		"truncated":     {"1 25544U", "2 25544"},
		"not numeric":   {DefaultTLELine1[:20] + "xxxxxxxxxxxx" + DefaultTLELine1[32:], DefaultTLELine2},
	}
	for name, lines := range cases {
		cfg.TLELine1, cfg.TLELine2 = lines[0], lines[1]
		err := cfg.Validate()
		if !errors.Is(err, ErrInvalidConfig) || !errors.Is(err, core.ErrInvalidTLE) {
			t.Fatalf("%s: Validate() = %v, want ErrInvalidConfig wrapping ErrInvalidTLE", name, err)
		}
		if _, err := NewSession(context.Background(), cfg); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("%s: NewSession err = %v, want ErrInvalidConfig", name, err)
		}
	}

	// Circular source ignores the TLE fields.
	cfg.ISSSource = ISSSourceCircular
	if err := cfg.Validate(); err != nil {
		t.Fatalf("circular source: Validate() = %v", err)
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("SOLARSIM_SPEED", "60")
	t.Setenv("SOLARSIM_FRAME_INTERVAL", "33ms")
	t.Setenv("SOLARSIM_START_TIME", "3600")
	t.Setenv("SOLARSIM_ENTRY_TRANSITION", "750ms")
	t.Setenv("SOLARSIM_RESET_TRANSITION", "10s")
	t.Setenv("SOLARSIM_CONVERGENCE", "0.25")
	t.Setenv("SOLARSIM_FOV", "45")
	t.Setenv("SOLARSIM_ASPECT", "1.5")
	t.Setenv("SOLARSIM_ZOOM_SPEED", "1.5")
	t.Setenv("SOLARSIM_ISS_SOURCE", "TLE")
	t.Setenv("SOLARSIM_TLE1", "line1")
	t.Setenv("SOLARSIM_TLE2", "line2")
	t.Setenv("SOLARSIM_TLE_EPOCH", "2021-10-02T14:00:00Z")

	cfg := ConfigFromEnv()

	if cfg.SpeedMultiplier != 60 || cfg.FrameInterval != 33*time.Millisecond || cfg.StartTime != 3600 {
		t.Fatalf("timing = %+v", cfg)
	}
	if cfg.EntryTransition != 750*time.Millisecond || cfg.ResetTransition != 10*time.Second {
		t.Fatalf("transitions = %v/%v", cfg.EntryTransition, cfg.ResetTransition)
	}
	if cfg.ConvergenceFactor != 0.25 || cfg.FovDegrees != 45 || cfg.AspectRatio != 1.5 {
		t.Fatalf("camera = %+v", cfg)
	}
	if cfg.ZoomSpeed != 1.5 || cfg.RotateSpeed != DefaultConfig().RotateSpeed {
		t.Fatalf("gesture speeds = %v/%v", cfg.ZoomSpeed, cfg.RotateSpeed)
	}
	if cfg.ISSSource != ISSSourceTLE || cfg.TLELine1 != "line1" || cfg.TLELine2 != "line2" {
		t.Fatalf("iss = %q %q %q", cfg.ISSSource, cfg.TLELine1, cfg.TLELine2)
	}
	if !cfg.TLEEpoch.Equal(time.Date(2021, 10, 2, 14, 0, 0, 0, time.UTC)) {
		t.Fatalf("epoch = %v", cfg.TLEEpoch)
	}
}

func TestConfigFromEnvIgnoresGarbage(t *testing.T) {
	t.Setenv("SOLARSIM_SPEED", "fast")
	t.Setenv("SOLARSIM_FRAME_INTERVAL", "soon")
	t.Setenv("SOLARSIM_TLE_EPOCH", "yesterday")

	cfg := ConfigFromEnv()
	def := DefaultConfig()
	if cfg.SpeedMultiplier != def.SpeedMultiplier || cfg.FrameInterval != def.FrameInterval || !cfg.TLEEpoch.IsZero() {
		t.Fatalf("garbage env changed config: %+v", cfg)
	}
}
