// Package transition eases the camera between two poses over time.
package transition

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/rrosmaninho/ICG-ISS/core"
	"github.com/rrosmaninho/ICG-ISS/model"
)

// State is an in-flight transition. It is discarded once progress reaches 1.
type State struct {
	StartPosition mgl64.Vec3
	StartTarget   mgl64.Vec3
	EndPosition   mgl64.Vec3
	EndTarget     mgl64.Vec3
	StartTime     time.Time
	Duration      time.Duration
}

// Progress returns the clamped linear progress at now.
func (s State) Progress(now time.Time) float64 {
	if s.Duration <= 0 {
		return 1
	}
	return mgl64.Clamp(float64(now.Sub(s.StartTime))/float64(s.Duration), 0, 1)
}

// Sample returns the eased pose at now.
func (s State) Sample(now time.Time) model.Pose {
	eased := EaseOutCubic(s.Progress(now))
	return model.Pose{
		Position: core.Lerp(s.StartPosition, s.EndPosition, eased),
		Target:   core.Lerp(s.StartTarget, s.EndTarget, eased),
	}
}

// EaseOutCubic maps linear progress p in [0,1] to 1 − (1 − p)³.
func EaseOutCubic(p float64) float64 {
	inv := 1 - p
	return 1 - inv*inv*inv
}

// Animator holds at most one transition. Starting a new one overwrites the
// old, continuing from wherever the camera currently is.
type Animator struct {
	state  State
	active bool
}

// NewAnimator returns an idle animator.
func NewAnimator() *Animator {
	return &Animator{}
}

// Active reports whether a transition is in flight.
func (a *Animator) Active() bool {
	return a.active
}

// State returns the in-flight transition, if any.
func (a *Animator) State() (State, bool) {
	return a.state, a.active
}

// Begin starts a transition from `from` to `to` lasting d. If another
// transition is active its current interpolated pose replaces `from`, so
// the camera never teleports.
func (a *Animator) Begin(now time.Time, from, to model.Pose, d time.Duration) {
	if a.active {
		from = a.state.Sample(now)
	}
	a.state = State{
		StartPosition: from.Position,
		StartTarget:   from.Target,
		EndPosition:   to.Position,
		EndTarget:     to.Target,
		StartTime:     now,
		Duration:      d,
	}
	a.active = true
}

// Retarget moves the end pose of the active transition without
// restarting it. It is a no-op when idle.
func (a *Animator) Retarget(to model.Pose) {
	if !a.active {
		return
	}
	a.state.EndPosition = to.Position
	a.state.EndTarget = to.Target
}

// Cancel drops the active transition and returns the pose it had reached
// at now. ok is false when nothing was in flight.
func (a *Animator) Cancel(now time.Time) (pose model.Pose, ok bool) {
	if !a.active {
		return model.Pose{}, false
	}
	pose = a.state.Sample(now)
	a.state = State{}
	a.active = false
	return pose, true
}

// Tick samples the transition at now. done is true once progress reaches
// 1, at which point the transition is discarded. Ticking an idle animator
// returns done with a zero pose.
func (a *Animator) Tick(now time.Time) (pose model.Pose, done bool) {
	if !a.active {
		return model.Pose{}, true
	}
	if a.state.Progress(now) >= 1 {
		pose = model.Pose{Position: a.state.EndPosition, Target: a.state.EndTarget}
		a.state = State{}
		a.active = false
		return pose, true
	}
	return a.state.Sample(now), false
}
