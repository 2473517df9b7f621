// Package scene owns one interactive solar-system session: the simulation
// clock, body registry, lighting, focus controller and camera animator,
// advanced together by a single tick function.
package scene

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/rrosmaninho/ICG-ISS/core"
	"github.com/rrosmaninho/ICG-ISS/internal/controls"
	"github.com/rrosmaninho/ICG-ISS/internal/focus"
	"github.com/rrosmaninho/ICG-ISS/internal/logging"
	"github.com/rrosmaninho/ICG-ISS/internal/observability"
	"github.com/rrosmaninho/ICG-ISS/internal/transition"
	"github.com/rrosmaninho/ICG-ISS/kb"
	"github.com/rrosmaninho/ICG-ISS/model"
	"github.com/rrosmaninho/ICG-ISS/timectrl"
)

const tracerName = "github.com/rrosmaninho/ICG-ISS/internal/scene"

// MetricsRecorder receives per-frame and per-event measurements. It is
// satisfied by *observability.SceneCollector.
type MetricsRecorder interface {
	ObserveFrame(d time.Duration)
	IncModeSwitch(mode string)
	IncFallback(reason string)
	IncTransition(outcome string)
	IncDegenerateFrame()
	IncAssetLoadFailure(asset string)
	SetFrameState(simTime, lockedDistance, nightVisibility float64)
}

type noopMetrics struct{}

func (noopMetrics) ObserveFrame(time.Duration)              {}
func (noopMetrics) IncModeSwitch(string)                    {}
func (noopMetrics) IncFallback(string)                      {}
func (noopMetrics) IncTransition(string)                    {}
func (noopMetrics) IncDegenerateFrame()                     {}
func (noopMetrics) IncAssetLoadFailure(string)              {}
func (noopMetrics) SetFrameState(float64, float64, float64) {}

var _ MetricsRecorder = (*observability.SceneCollector)(nil)

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger. Without it the session uses the
// logger stored on the NewSession context, if any.
func WithLogger(l logging.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetricsRecorder wires a metrics recorder into the session.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(s *Session) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithNow overrides the wall clock used to time transitions.
func WithNow(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// WithAssetLoader enables background material loading.
func WithAssetLoader(l AssetLoader) Option {
	return func(s *Session) { s.loader = l }
}

// WithISSMotion replaces the ISS motion model chosen by the config.
func WithISSMotion(m core.ISSMotion) Option {
	return func(s *Session) { s.issMotion = m }
}

// Frame is the observable outcome of one tick.
type Frame struct {
	SimTime       float64
	Positions     core.Positions
	Lighting      core.Lighting
	Camera        model.CameraState
	Focus         model.FocusState
	Transitioning bool
}

// Session is not safe for concurrent use; drive it from one goroutine.
type Session struct {
	cfg     Config
	log     logging.Logger
	metrics MetricsRecorder
	tracer  trace.Tracer
	now     func() time.Time

	issMotion core.ISSMotion
	loader    AssetLoader

	clock    *timectrl.SimulationClock
	orbit    *core.OrbitalStateModel
	lighting *core.LightingModel
	registry *kb.BodyRegistry
	focus    *focus.Controller
	animator *transition.Animator
	controls *controls.OrbitControls
	assets   *AssetTracker

	camera    model.CameraState
	positions core.Positions
	light     core.Lighting
	// following is set while the active transition tracks the locked body.
	following bool
}

// NewSession builds a session in Free mode with the camera at the default
// pose and every body registered.
func NewSession(ctx context.Context, cfg Config, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Session{
		cfg:     cfg,
		log:     logging.LoggerFromContext(ctx),
		metrics: noopMetrics{},
		tracer:  observability.Tracer(tracerName),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.issMotion == nil {
		m, err := issMotionFromConfig(cfg)
		if err != nil {
			return nil, err
		}
		s.issMotion = m
	}

	s.clock = timectrl.NewSimulationClock(cfg.StartTime)
	s.orbit = core.NewOrbitalStateModel(core.WithISSMotion(s.issMotion))
	s.lighting = core.NewLightingModel()
	s.registry = kb.NewBodyRegistry()
	s.animator = transition.NewAnimator()

	fc := focus.DefaultConfig()
	fc.DefaultPose = cfg.DefaultPose
	fc.ConvergenceFactor = cfg.ConvergenceFactor
	s.focus = focus.NewController(fc, s.log)

	s.camera = model.CameraState{
		Position:    cfg.DefaultPose.Position,
		Target:      cfg.DefaultPose.Target,
		AspectRatio: cfg.AspectRatio,
		FovDegrees:  cfg.FovDegrees,
	}
	s.controls = controls.New(&s.camera,
		controls.WithRotateSpeed(cfg.RotateSpeed),
		controls.WithZoomSpeed(cfg.ZoomSpeed),
		controls.WithPanSpeed(cfg.PanSpeed),
	)
	s.applyConstraints()

	s.positions = s.orbit.Advance(s.clock.Now())
	if err := kb.Seed(s.registry, s.positions); err != nil {
		return nil, fmt.Errorf("seed body registry: %w", err)
	}
	s.light = s.lighting.Update(s.positions, s.camera.Position)

	s.assets = NewAssetTracker(s.loader, s.log, s.metrics)
	s.assets.Request(ctx, DefaultSlots...)

	s.log.Info(ctx, "scene session ready",
		logging.String("iss_source", cfg.ISSSource),
		logging.Float("speed", cfg.SpeedMultiplier),
		logging.SimTime(s.clock.Now()),
	)
	return s, nil
}

func issMotionFromConfig(cfg Config) (core.ISSMotion, error) {
	switch cfg.ISSSource {
	case ISSSourceTLE:
		l1, l2 := cfg.tleLines()
		epoch := cfg.TLEEpoch
		if epoch.IsZero() {
			epoch = time.Now().UTC()
		}
		m, err := core.NewSGP4ISSMotionFromTLE(l1, l2, epoch)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		return m, nil
	default:
		return core.NewCircularISSMotion(), nil
	}
}

// Close stops background asset loads.
func (s *Session) Close() {
	s.assets.Close()
}

// Advance runs one tick: apply finished asset loads, advance the clock by
// realDelta × speedMultiplier, recompute body positions and lighting, then
// either step the active transition or let the focus controller reconcile
// the camera.
func (s *Session) Advance(ctx context.Context, realDelta time.Duration, speedMultiplier float64) Frame {
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, observability.SpanFrame)
	defer span.End()

	s.assets.Drain(ctx)

	simTime := s.clock.Advance(realDelta, speedMultiplier)
	s.positions = s.orbit.Advance(simTime)
	if err := s.registry.Apply(s.positions); err != nil {
		s.log.Warn(ctx, "body registry update failed", logging.Err(err))
	}
	s.light = s.lighting.Update(s.positions, s.camera.Position)

	if s.animator.Active() {
		s.stepTransition(ctx)
	} else {
		s.stepFocus(ctx)
	}

	st := s.focus.State()
	s.metrics.SetFrameState(simTime, st.LockedDistance, s.light.NightSideVisibility)
	s.metrics.ObserveFrame(time.Since(started))
	span.SetAttributes(observability.FrameAttributes(simTime, st, s.animator.Active())...)
	return s.frame()
}

func (s *Session) stepTransition(ctx context.Context) {
	if s.following {
		pose, ok := s.focus.FollowPose(s.registry)
		if !ok {
			s.fallBack(ctx, "body_not_found", model.ErrBodyNotFound)
			return
		}
		s.animator.Retarget(pose)
	}
	pose, done := s.animator.Tick(s.now())
	s.camera.SetPose(pose)
	if done {
		s.following = false
		s.metrics.IncTransition("completed")
		// Input that arrived while the animation owned the camera is
		// discarded.
		s.controls.ConsumeInteraction()
	}
}

func (s *Session) stepFocus(ctx context.Context) {
	res := s.focus.Tick(ctx, &s.camera, s.registry, s.controls.ConsumeInteraction())
	switch {
	case res.Fallback:
		reason := fallbackReason(res.Err)
		s.applyConstraints()
		s.metrics.IncFallback(reason)
		s.metrics.IncModeSwitch(model.ModeFree.String())
		observability.RecordFallback(trace.SpanFromContext(ctx), reason, res.Err)
	case res.Degenerate:
		s.metrics.IncDegenerateFrame()
	}
}

// fallBack drops to Free without animating, keeping the camera where the
// in-flight transition left it.
func (s *Session) fallBack(ctx context.Context, reason string, err error) {
	if pose, ok := s.animator.Cancel(s.now()); ok {
		s.camera.SetPose(pose)
		s.metrics.IncTransition("cancelled")
	}
	s.following = false
	s.focus.ReleaseLock(ctx)
	s.applyConstraints()
	s.metrics.IncFallback(reason)
	s.metrics.IncModeSwitch(model.ModeFree.String())
	observability.RecordFallback(trace.SpanFromContext(ctx), reason, err)
	s.log.Warn(ctx, "focus fell back to free", logging.String("reason", reason), logging.Err(err))
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, model.ErrBodyNotFound):
		return "body_not_found"
	case errors.Is(err, core.ErrDegenerateGeometry):
		return "degenerate_geometry"
	default:
		return "unknown"
	}
}

// RequestMode dispatches a focus mode request. Requesting the active mode
// toggles back to Free. The camera animates to its new placement; when the
// locked body cannot be resolved the session stays in Free without
// animating and the error wraps model.ErrBodyNotFound.
func (s *Session) RequestMode(ctx context.Context, mode model.FocusMode) error {
	ctx, span := s.tracer.Start(ctx, observability.SpanRequestMode,
		trace.WithAttributes(observability.FocusAttributes(mode)...))
	defer span.End()

	placement, err := s.focus.RequestMode(ctx, mode, s.camera.Pose(), s.registry)
	if err != nil {
		observability.RecordFailure(span, err)
		if errors.Is(err, focus.ErrInvalidMode) {
			return err
		}
		s.fallBack(ctx, fallbackReason(err), err)
		return err
	}
	s.applyPlacement(ctx, placement)
	return nil
}

// RequestFree leaves any tracking mode and animates to the default pose.
func (s *Session) RequestFree(ctx context.Context) {
	ctx, span := s.tracer.Start(ctx, observability.SpanRequestFree)
	defer span.End()
	s.applyPlacement(ctx, s.focus.RequestFree(ctx))
}

// ResetAll clears every tracker and animates to the default pose.
func (s *Session) ResetAll(ctx context.Context) {
	ctx, span := s.tracer.Start(ctx, observability.SpanResetAll)
	defer span.End()
	s.applyPlacement(ctx, s.focus.ResetAll(ctx))
}

// ReleaseLock leaves any tracking mode without moving the camera.
func (s *Session) ReleaseLock(ctx context.Context) {
	if s.following {
		if pose, ok := s.animator.Cancel(s.now()); ok {
			s.camera.SetPose(pose)
			s.metrics.IncTransition("cancelled")
		}
		s.following = false
	}
	if s.focus.State().Mode != model.ModeFree {
		s.metrics.IncModeSwitch(model.ModeFree.String())
	}
	s.focus.ReleaseLock(ctx)
	s.applyConstraints()
}

// FocusSelected resets tracking and then tracks body. Unlike RequestMode
// it never toggles off.
func (s *Session) FocusSelected(ctx context.Context, body model.BodyID) error {
	mode := model.ModeForBody(body)
	ctx, span := s.tracer.Start(ctx, observability.SpanFocusSelected,
		trace.WithAttributes(observability.FocusAttributes(mode)...))
	defer span.End()
	if mode == model.ModeFree {
		err := fmt.Errorf("%w: cannot focus %s", focus.ErrInvalidMode, body)
		observability.RecordFailure(span, err)
		return err
	}
	s.ReleaseLock(ctx)
	return s.RequestMode(ctx, mode)
}

func (s *Session) applyPlacement(ctx context.Context, p focus.Placement) {
	s.applyConstraints()
	s.metrics.IncModeSwitch(p.Mode.String())

	d := s.cfg.EntryTransition
	if p.Mode == model.ModeFree {
		d = s.cfg.ResetTransition
	}
	if s.animator.Active() {
		s.metrics.IncTransition("cancelled")
	}
	s.animator.Begin(s.now(), s.camera.Pose(), p.Pose, d)
	s.following = p.Follow
	s.metrics.IncTransition("started")
	s.log.Debug(ctx, "camera transition started",
		logging.Mode("mode", p.Mode),
		logging.Duration("duration", d),
	)
}

func (s *Session) applyConstraints() {
	s.controls.SetConstraints(controls.ConstraintsFrom(s.focus.State()))
}

// Resize updates the aspect ratio and cancels any transition. A transition
// that was following a body is completed at once so the camera lands at the
// lock distance; otherwise the camera stays at its interpolated pose.
func (s *Session) Resize(ctx context.Context, aspect float64) error {
	if !positiveFinite(aspect) {
		return fmt.Errorf("%w: aspect ratio must be positive, got %v", ErrInvalidConfig, aspect)
	}
	s.camera.AspectRatio = aspect
	pose, ok := s.animator.Cancel(s.now())
	if !ok {
		return nil
	}
	if s.following {
		if follow, ok := s.focus.FollowPose(s.registry); ok {
			pose = follow
		}
		s.following = false
	}
	s.camera.SetPose(pose)
	s.metrics.IncTransition("cancelled")
	s.log.Debug(ctx, "transition cancelled by resize", logging.Float("aspect", aspect))
	return nil
}

// Pause freezes simulation time. The camera keeps responding.
func (s *Session) Pause() { s.clock.Pause() }

// Resume restarts simulation time.
func (s *Session) Resume() { s.clock.Resume() }

// TogglePause flips the pause state and reports whether the clock is now
// paused.
func (s *Session) TogglePause() bool { return s.clock.TogglePause() }

// Paused reports whether simulation time is frozen.
func (s *Session) Paused() bool { return s.clock.Paused() }

// CameraState returns the current camera transform.
func (s *Session) CameraState() model.CameraState { return s.camera }

// Controls returns the user input surface bound to the session camera.
func (s *Session) Controls() *controls.OrbitControls { return s.controls }

// FocusState returns the current focus state.
func (s *Session) FocusState() model.FocusState { return s.focus.State() }

// Lighting returns the lighting computed on the last tick.
func (s *Session) Lighting() core.Lighting { return s.light }

// Positions returns the body positions computed on the last tick.
func (s *Session) Positions() core.Positions { return s.positions }

// SimTime returns the current simulation time in seconds.
func (s *Session) SimTime() float64 { return s.clock.Now() }

// Transitioning reports whether a camera transition is in flight.
func (s *Session) Transitioning() bool { return s.animator.Active() }

// Registry exposes the body registry for subscribers.
func (s *Session) Registry() *kb.BodyRegistry { return s.registry }

// Assets returns the material tracker.
func (s *Session) Assets() *AssetTracker { return s.assets }

func (s *Session) frame() Frame {
	return Frame{
		SimTime:       s.clock.Now(),
		Positions:     s.positions,
		Lighting:      s.light,
		Camera:        s.camera,
		Focus:         s.focus.State(),
		Transitioning: s.animator.Active(),
	}
}
