// Package focus implements the camera focus-mode state machine: mutually
// exclusive tracking modes that keep the camera locked at a user-adjustable
// distance from a moving body.
package focus

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/rrosmaninho/ICG-ISS/core"
	"github.com/rrosmaninho/ICG-ISS/internal/logging"
	"github.com/rrosmaninho/ICG-ISS/model"
)

// ErrInvalidMode is returned for focus modes the controller does not know.
var ErrInvalidMode = errors.New("invalid focus mode")

// convergenceEpsilon is the residual distance error below which the camera
// is placed exactly at the locked distance.
const convergenceEpsilon = 1e-9

// PositionSource resolves the live world position of a body.
type PositionSource interface {
	WorldPosition(id model.BodyID) (mgl64.Vec3, error)
}

// Placement is the camera destination produced by a mode change. When
// Follow is set the destination moves with the locked body and should be
// refreshed through FollowPose while a transition plays.
type Placement struct {
	Mode   model.FocusMode
	Pose   model.Pose
	Follow bool
}

// TickResult describes what a Tick did to the camera.
type TickResult struct {
	// Updated is set when the camera transform was written.
	Updated bool
	// Reanchored is set when the locked distance adopted the current
	// camera distance.
	Reanchored bool
	// Fallback is set when the locked body could not be resolved and the
	// controller dropped back to Free.
	Fallback bool
	// Degenerate is set when the frame was skipped because no direction
	// could be derived.
	Degenerate bool

	Target   mgl64.Vec3
	Distance float64
	Err      error
}

// Controller owns the FocusState. It is driven from a single goroutine.
type Controller struct {
	cfg Config
	log logging.Logger

	state model.FocusState

	// lastTarget is the locked body position seen on the previous tick;
	// the camera is carried along by the body's displacement.
	lastTarget mgl64.Vec3
	hasLast    bool
	// followDir is the unit offset from target to camera used while the
	// entry transition follows the body.
	followDir mgl64.Vec3
}

// NewController returns a controller in Free mode. A nil logger discards
// output.
func NewController(cfg Config, log logging.Logger) *Controller {
	if log == nil {
		log = logging.Noop()
	}
	if cfg.Profiles == nil {
		cfg.Profiles = DefaultProfiles()
	}
	if cfg.ConvergenceFactor <= 0 || cfg.ConvergenceFactor > 1 {
		cfg.ConvergenceFactor = DefaultConfig().ConvergenceFactor
	}
	c := &Controller{cfg: cfg, log: log}
	c.reset()
	return c
}

// State returns a copy of the current focus state.
func (c *Controller) State() model.FocusState {
	return c.state
}

// Config returns the controller configuration.
func (c *Controller) Config() Config {
	return c.cfg
}

// RequestMode switches to mode. Requesting the active tracking mode
// toggles back to Free. On entry the camera is placed at the mode's initial
// distance from the body, on the side it is currently viewed from.
//
// If the body cannot be resolved the controller stays in Free and the
// returned error wraps model.ErrBodyNotFound.
func (c *Controller) RequestMode(ctx context.Context, mode model.FocusMode, camera model.Pose, src PositionSource) (Placement, error) {
	if !mode.Valid() {
		return Placement{}, fmt.Errorf("%w: %d", ErrInvalidMode, int(mode))
	}
	if mode == model.ModeFree {
		return c.RequestFree(ctx), nil
	}
	if mode == c.state.Mode {
		c.log.Info(ctx, "focus mode toggled off", logging.Mode("mode", mode))
		return c.RequestFree(ctx), nil
	}
	return c.enter(ctx, mode, camera, src)
}

// RequestFree clears any lock, restores free-roam constraints, and returns
// the default pose as the destination.
func (c *Controller) RequestFree(ctx context.Context) Placement {
	prev := c.state.Mode
	c.reset()
	if prev != model.ModeFree {
		c.log.Info(ctx, "focus mode changed",
			logging.Mode("from", prev),
			logging.Mode("to", model.ModeFree),
		)
	}
	return Placement{Mode: model.ModeFree, Pose: c.cfg.DefaultPose}
}

// ResetAll returns every tracker to its initial state and the camera to
// the default pose.
func (c *Controller) ResetAll(ctx context.Context) Placement {
	c.log.Debug(ctx, "focus reset", logging.Mode("mode", c.state.Mode))
	return c.RequestFree(ctx)
}

// ReleaseLock drops to Free without moving the camera.
func (c *Controller) ReleaseLock(ctx context.Context) model.FocusState {
	if c.state.Mode != model.ModeFree {
		c.log.Info(ctx, "focus lock released", logging.Mode("mode", c.state.Mode))
	}
	c.reset()
	return c.state
}

// FollowPose returns the entry destination for the body's current position.
// ok is false in Free mode or when the body cannot be resolved.
func (c *Controller) FollowPose(src PositionSource) (model.Pose, bool) {
	if !c.state.Locked() {
		return model.Pose{}, false
	}
	target, err := resolve(src, c.state.LockedTarget)
	if err != nil {
		return model.Pose{}, false
	}
	c.lastTarget = target
	c.hasLast = true
	return model.Pose{
		Position: target.Add(c.followDir.Mul(c.state.LockedDistance)),
		Target:   target,
	}, true
}

// Tick reconciles the camera with the locked body. The camera is first
// carried along by the body's displacement since the previous tick, then
// its distance is compared with the locked distance: a change beyond the
// body's stick threshold is adopted as the new locked distance, anything
// smaller converges back toward it. When userDidInteract is set the
// convergence step is skipped so the camera does not fight the user.
func (c *Controller) Tick(ctx context.Context, camera *model.CameraState, src PositionSource, userDidInteract bool) TickResult {
	if c.state.Mode == model.ModeFree || camera == nil {
		return TickResult{}
	}
	body := c.state.LockedTarget

	target, err := resolve(src, body)
	if err != nil {
		mode := c.state.Mode
		c.reset()
		c.log.Warn(ctx, "locked body unavailable, falling back to free",
			logging.Mode("mode", mode),
			logging.Body(body),
			logging.Err(err),
		)
		return TickResult{Fallback: true, Err: err}
	}

	position := camera.Position
	if c.hasLast {
		position = position.Add(target.Sub(c.lastTarget))
	}

	dir, err := core.Direction(target, position)
	if err != nil {
		c.log.Debug(ctx, "camera update skipped",
			logging.Body(body),
			logging.Err(err),
		)
		return TickResult{Degenerate: true, Target: target, Err: err}
	}
	c.lastTarget = target
	c.hasLast = true

	current := position.Sub(target).Len()
	res := TickResult{Updated: true, Target: target}

	profile := c.cfg.Profiles[body]
	switch {
	case math.Abs(current-c.state.LockedDistance) > profile.StickThreshold:
		c.state.LockedDistance = current
		res.Reanchored = true
	case !userDidInteract:
		remaining := c.state.LockedDistance - current
		if math.Abs(remaining) < convergenceEpsilon {
			current = c.state.LockedDistance
		} else {
			current += remaining * c.cfg.ConvergenceFactor
		}
		position = target.Add(dir.Mul(current))
	}

	camera.Position = position
	camera.Target = target
	res.Distance = current
	return res
}

func (c *Controller) enter(ctx context.Context, mode model.FocusMode, camera model.Pose, src PositionSource) (Placement, error) {
	prev := c.state.Mode
	c.reset()

	body := mode.Body()
	profile, ok := c.cfg.Profiles[body]
	if !ok {
		return Placement{Mode: model.ModeFree, Pose: camera}, fmt.Errorf("%w: no profile for %s", ErrInvalidMode, mode)
	}
	target, err := resolve(src, body)
	if err != nil {
		c.log.Warn(ctx, "cannot enter focus mode, staying free",
			logging.Mode("mode", mode),
			logging.Err(err),
		)
		return Placement{Mode: model.ModeFree, Pose: camera}, fmt.Errorf("enter %s: %w", mode, err)
	}

	dir := c.placementDirection(camera.Position, target)
	c.followDir = dir
	c.lastTarget = target
	c.hasLast = true
	c.state = model.FocusState{
		Mode:            mode,
		LockedTarget:    body,
		LockedDistance:  profile.InitialDistance,
		ControlsEnabled: true,
		EnableRotate:    profile.EnableRotate,
		EnablePan:       false,
		EnableZoom:      true,
		MinDistance:     profile.MinDistance,
		MaxDistance:     profile.MaxDistance,
	}

	c.log.Info(ctx, "focus mode changed",
		logging.Mode("from", prev),
		logging.Mode("to", mode),
		logging.Float("locked_distance", profile.InitialDistance),
	)
	return Placement{
		Mode: mode,
		Pose: model.Pose{
			Position: target.Add(dir.Mul(profile.InitialDistance)),
			Target:   target,
		},
		Follow: true,
	}, nil
}

// placementDirection picks the unit offset from target to the new camera
// position: the current viewing side, else the default pose's, else +Z.
func (c *Controller) placementDirection(camera, target mgl64.Vec3) mgl64.Vec3 {
	if dir, err := core.Direction(target, camera); err == nil {
		return dir
	}
	if dir, err := core.Direction(c.cfg.DefaultPose.Target, c.cfg.DefaultPose.Position); err == nil {
		return dir
	}
	return mgl64.Vec3{0, 0, 1}
}

// reset is the single routine that clears tracking state back to Free.
func (c *Controller) reset() {
	c.state = model.FocusState{
		Mode:            model.ModeFree,
		LockedTarget:    model.BodyNone,
		ControlsEnabled: true,
		EnableRotate:    true,
		EnablePan:       true,
		EnableZoom:      true,
		MinDistance:     c.cfg.FreeMinDistance,
		MaxDistance:     c.cfg.FreeMaxDistance,
	}
	c.lastTarget = mgl64.Vec3{}
	c.hasLast = false
	c.followDir = mgl64.Vec3{}
}

func resolve(src PositionSource, body model.BodyID) (mgl64.Vec3, error) {
	if src == nil {
		return mgl64.Vec3{}, fmt.Errorf("%s: %w", body, model.ErrBodyNotFound)
	}
	pos, err := src.WorldPosition(body)
	if err != nil {
		return mgl64.Vec3{}, err
	}
	if !core.IsFinite(pos) {
		return mgl64.Vec3{}, fmt.Errorf("%s position not finite: %w", body, model.ErrBodyNotFound)
	}
	return pos, nil
}
