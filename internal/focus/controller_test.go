package focus

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/rrosmaninho/ICG-ISS/model"
)

type fakeSource map[model.BodyID]mgl64.Vec3

func (f fakeSource) WorldPosition(id model.BodyID) (mgl64.Vec3, error) {
	p, ok := f[id]
	if !ok {
		return mgl64.Vec3{}, fmt.Errorf("%s: %w", id, model.ErrBodyNotFound)
	}
	return p, nil
}

func near(a, b mgl64.Vec3, eps float64) bool {
	return a.Sub(b).Len() <= eps
}

func newSource() fakeSource {
	return fakeSource{
		model.BodyEarth: {0, 0, 0},
		model.BodyMoon:  {384.4, 0, 0},
		model.BodySun:   {119678.2968, 0, 0},
		model.BodyISS:   {5.4288, 0, 0},
	}
}

func enter(t *testing.T, c *Controller, mode model.FocusMode, camera model.Pose, src PositionSource) Placement {
	t.Helper()
	p, err := c.RequestMode(context.Background(), mode, camera, src)
	if err != nil {
		t.Fatalf("RequestMode(%s): %v", mode, err)
	}
	return p
}

func TestRequestModePlacesCameraAtInitialDistance(t *testing.T) {
	c := NewController(DefaultConfig(), nil)
	src := newSource()

	p := enter(t, c, model.ModeTrackEarth, model.Pose{Position: mgl64.Vec3{0, 0, 100}}, src)

	if p.Mode != model.ModeTrackEarth || !p.Follow {
		t.Fatalf("placement = %+v, want TrackEarth following", p)
	}
	if !near(p.Pose.Position, mgl64.Vec3{0, 0, 12}, 1e-9) || !near(p.Pose.Target, mgl64.Vec3{}, 1e-12) {
		t.Fatalf("placement pose = %+v, want camera at (0,0,12) looking at origin", p.Pose)
	}

	s := c.State()
	if s.Mode != model.ModeTrackEarth || s.LockedTarget != model.BodyEarth || s.LockedDistance != 12 {
		t.Fatalf("state = %+v", s)
	}
	if s.EnablePan || !s.EnableRotate || !s.EnableZoom || s.MinDistance != 6 || s.MaxDistance != 200 {
		t.Fatalf("constraints = %+v, want pan off, rotate on, bounds 6..200", s)
	}
}

func TestRequestModeInitialDistances(t *testing.T) {
	src := newSource()
	cases := []struct {
		mode   model.FocusMode
		dist   float64
		rotate bool
	}{
		{model.ModeTrackISS, 0.2, false},
		{model.ModeTrackSun, 1200, true},
		{model.ModeTrackMoon, 12, true},
		{model.ModeTrackEarth, 12, true},
	}
	for _, tc := range cases {
		c := NewController(DefaultConfig(), nil)
		p := enter(t, c, tc.mode, DefaultPose(), src)
		target, _ := src.WorldPosition(tc.mode.Body())
		if got := p.Pose.Distance(); math.Abs(got-tc.dist) > 1e-9 {
			t.Fatalf("%s initial distance = %v, want %v", tc.mode, got, tc.dist)
		}
		if p.Pose.Target != target {
			t.Fatalf("%s target = %v, want %v", tc.mode, p.Pose.Target, target)
		}
		if s := c.State(); s.EnableRotate != tc.rotate || s.EnablePan {
			t.Fatalf("%s constraints = %+v", tc.mode, s)
		}
	}
}

func TestRequestSameModeTogglesToFree(t *testing.T) {
	c := NewController(DefaultConfig(), nil)
	src := newSource()
	enter(t, c, model.ModeTrackMoon, DefaultPose(), src)

	p := enter(t, c, model.ModeTrackMoon, DefaultPose(), src)

	if p.Mode != model.ModeFree || p.Follow {
		t.Fatalf("toggle placement = %+v, want Free", p)
	}
	if p.Pose != DefaultPose() {
		t.Fatalf("toggle pose = %+v, want default pose", p.Pose)
	}
	s := c.State()
	if s.Mode != model.ModeFree || s.Locked() || s.LockedDistance != 0 {
		t.Fatalf("state after toggle = %+v, want cleared Free", s)
	}
	if !s.EnablePan || !s.EnableRotate || !s.EnableZoom || s.MinDistance != 10 || s.MaxDistance != 500000 {
		t.Fatalf("free constraints = %+v", s)
	}
}

func TestSwitchingModesResetsPreviousState(t *testing.T) {
	c := NewController(DefaultConfig(), nil)
	src := newSource()
	enter(t, c, model.ModeTrackISS, DefaultPose(), src)
	enter(t, c, model.ModeTrackSun, DefaultPose(), src)

	s := c.State()
	if s.Mode != model.ModeTrackSun || s.LockedTarget != model.BodySun {
		t.Fatalf("state = %+v, want only TrackSun active", s)
	}
	if s.LockedDistance != 1200 || s.MinDistance != 600 || s.MaxDistance != 5000 || !s.EnableRotate {
		t.Fatalf("state carries ISS fields: %+v", s)
	}
}

func TestRequestInvalidMode(t *testing.T) {
	c := NewController(DefaultConfig(), nil)
	_, err := c.RequestMode(context.Background(), model.FocusMode(42), DefaultPose(), newSource())
	if !errors.Is(err, ErrInvalidMode) {
		t.Fatalf("err = %v, want ErrInvalidMode", err)
	}
}

func TestRequestModeMissingBodyStaysFree(t *testing.T) {
	c := NewController(DefaultConfig(), nil)
	src := newSource()
	delete(src, model.BodyMoon)

	_, err := c.RequestMode(context.Background(), model.ModeTrackMoon, DefaultPose(), src)
	if !errors.Is(err, model.ErrBodyNotFound) {
		t.Fatalf("err = %v, want ErrBodyNotFound", err)
	}
	if s := c.State(); s.Mode != model.ModeFree || s.Locked() {
		t.Fatalf("state = %+v, want Free", s)
	}
}

func TestPlacementFallsBackToDefaultDirection(t *testing.T) {
	c := NewController(DefaultConfig(), nil)
	src := newSource()

	p := enter(t, c, model.ModeTrackEarth, model.Pose{}, src)

	want := mgl64.Vec3{500, 200, 500}.Normalize().Mul(12)
	if !near(p.Pose.Position, want, 1e-9) {
		t.Fatalf("fallback placement = %v, want %v", p.Pose.Position, want)
	}
}

func TestPlacementFallsBackToPlusZ(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DefaultPose = model.Pose{}
	c := NewController(cfg, nil)

	p := enter(t, c, model.ModeTrackEarth, model.Pose{}, newSource())

	if !near(p.Pose.Position, mgl64.Vec3{0, 0, 12}, 1e-12) {
		t.Fatalf("fallback placement = %v, want (0,0,12)", p.Pose.Position)
	}
}

func TestTickAdoptsUserZoomBeyondThreshold(t *testing.T) {
	c := NewController(DefaultConfig(), nil)
	src := newSource()
	p := enter(t, c, model.ModeTrackEarth, DefaultPose(), src)

	cam := &model.CameraState{Target: p.Pose.Target}
	cam.Position = p.Pose.Position.Normalize().Mul(20)
	res := c.Tick(context.Background(), cam, src, true)

	if !res.Updated || !res.Reanchored {
		t.Fatalf("tick result = %+v, want reanchored update", res)
	}
	if got := c.State().LockedDistance; math.Abs(got-20) > 1e-9 {
		t.Fatalf("locked distance = %v, want 20", got)
	}
	if got := cam.Pose().Distance(); math.Abs(got-20) > 1e-9 {
		t.Fatalf("camera distance = %v, want 20", got)
	}
}

func TestTickConvergesSmallDrift(t *testing.T) {
	c := NewController(DefaultConfig(), nil)
	src := newSource()
	enter(t, c, model.ModeTrackEarth, model.Pose{Position: mgl64.Vec3{0, 0, 100}}, src)

	cam := &model.CameraState{Position: mgl64.Vec3{0, 0, 12.05}}
	res := c.Tick(context.Background(), cam, src, false)

	if res.Reanchored {
		t.Fatalf("drift within threshold must not reanchor")
	}
	if got := cam.Position[2]; math.Abs(got-12.045) > 1e-12 {
		t.Fatalf("camera z after one tick = %v, want 12.045", got)
	}
	for i := 0; i < 500; i++ {
		c.Tick(context.Background(), cam, src, false)
	}
	if got := cam.Pose().Distance(); math.Abs(got-12) > 1e-12 {
		t.Fatalf("camera distance after convergence = %v, want 12", got)
	}
	if got := c.State().LockedDistance; got != 12 {
		t.Fatalf("locked distance = %v, want 12", got)
	}
}

func TestTickSkipsConvergenceWhileUserInteracts(t *testing.T) {
	c := NewController(DefaultConfig(), nil)
	src := newSource()
	enter(t, c, model.ModeTrackEarth, model.Pose{Position: mgl64.Vec3{0, 0, 100}}, src)

	cam := &model.CameraState{Position: mgl64.Vec3{0, 0, 12.05}}
	c.Tick(context.Background(), cam, src, true)

	if got := cam.Position[2]; got != 12.05 {
		t.Fatalf("camera z = %v, want 12.05 untouched", got)
	}
}

func TestTickCarriesCameraWithMovingBody(t *testing.T) {
	c := NewController(DefaultConfig(), nil)
	src := newSource()
	p := enter(t, c, model.ModeTrackMoon, model.Pose{Position: mgl64.Vec3{384.4, 0, 100}}, src)
	cam := &model.CameraState{Position: p.Pose.Position, Target: p.Pose.Target}

	for i := 1; i <= 10; i++ {
		src[model.BodyMoon] = mgl64.Vec3{384.4, 0, float64(i) * 5}
		res := c.Tick(context.Background(), cam, src, false)
		if res.Reanchored {
			t.Fatalf("tick %d: body motion treated as user zoom", i)
		}
		if cam.Target != src[model.BodyMoon] {
			t.Fatalf("tick %d: target = %v, want %v", i, cam.Target, src[model.BodyMoon])
		}
		if got := cam.Pose().Distance(); math.Abs(got-12) > 1e-9 {
			t.Fatalf("tick %d: distance = %v, want 12", i, got)
		}
	}
}

func TestTickFallsBackWhenBodyMissing(t *testing.T) {
	c := NewController(DefaultConfig(), nil)
	src := newSource()
	enter(t, c, model.ModeTrackISS, DefaultPose(), src)
	delete(src, model.BodyISS)

	cam := &model.CameraState{Position: mgl64.Vec3{1, 2, 3}}
	res := c.Tick(context.Background(), cam, src, false)

	if !res.Fallback || !errors.Is(res.Err, model.ErrBodyNotFound) {
		t.Fatalf("tick result = %+v, want fallback with ErrBodyNotFound", res)
	}
	if c.State().Mode != model.ModeFree {
		t.Fatalf("mode = %s, want free", c.State().Mode)
	}
	if cam.Position != (mgl64.Vec3{1, 2, 3}) {
		t.Fatalf("camera moved on fallback: %v", cam.Position)
	}
}

func TestTickFallsBackOnNaNPosition(t *testing.T) {
	c := NewController(DefaultConfig(), nil)
	src := newSource()
	enter(t, c, model.ModeTrackMoon, DefaultPose(), src)
	src[model.BodyMoon] = mgl64.Vec3{math.NaN(), 0, 0}

	cam := &model.CameraState{Position: mgl64.Vec3{1, 2, 3}}
	res := c.Tick(context.Background(), cam, src, false)

	if !res.Fallback {
		t.Fatalf("tick result = %+v, want fallback", res)
	}
	if cam.Position != (mgl64.Vec3{1, 2, 3}) || cam.Target != (mgl64.Vec3{}) {
		t.Fatalf("NaN leaked into camera: %+v", cam)
	}
}

func TestTickSkipsDegenerateFrame(t *testing.T) {
	c := NewController(DefaultConfig(), nil)
	src := newSource()
	enter(t, c, model.ModeTrackEarth, model.Pose{Position: mgl64.Vec3{0, 0, 100}}, src)

	cam := &model.CameraState{Position: mgl64.Vec3{}, Target: mgl64.Vec3{9, 9, 9}}
	res := c.Tick(context.Background(), cam, src, false)

	if !res.Degenerate || res.Updated {
		t.Fatalf("tick result = %+v, want degenerate skip", res)
	}
	if cam.Target != (mgl64.Vec3{9, 9, 9}) {
		t.Fatalf("camera target changed on degenerate frame: %v", cam.Target)
	}
	if c.State().Mode != model.ModeTrackEarth {
		t.Fatalf("degenerate frame must not drop the lock")
	}
}

func TestTickInFreeModeIsNoop(t *testing.T) {
	c := NewController(DefaultConfig(), nil)
	cam := &model.CameraState{Position: mgl64.Vec3{1, 2, 3}}
	if res := c.Tick(context.Background(), cam, newSource(), false); res.Updated {
		t.Fatalf("free tick updated camera: %+v", res)
	}
}

func TestFollowPoseTracksBody(t *testing.T) {
	c := NewController(DefaultConfig(), nil)
	src := newSource()
	enter(t, c, model.ModeTrackMoon, model.Pose{Position: mgl64.Vec3{384.4, 0, 100}}, src)

	src[model.BodyMoon] = mgl64.Vec3{0, 0, 384.4}
	pose, ok := c.FollowPose(src)
	if !ok {
		t.Fatalf("FollowPose not ok")
	}
	if !near(pose.Position, mgl64.Vec3{0, 0, 396.4}, 1e-9) || pose.Target != src[model.BodyMoon] {
		t.Fatalf("follow pose = %+v", pose)
	}

	c.ReleaseLock(context.Background())
	if _, ok := c.FollowPose(src); ok {
		t.Fatalf("FollowPose ok after ReleaseLock")
	}
}

func TestResetAllClearsLock(t *testing.T) {
	c := NewController(DefaultConfig(), nil)
	enter(t, c, model.ModeTrackSun, DefaultPose(), newSource())

	p := c.ResetAll(context.Background())
	if p.Mode != model.ModeFree || p.Pose != DefaultPose() {
		t.Fatalf("ResetAll placement = %+v", p)
	}
	if c.State().Locked() {
		t.Fatalf("lock survived ResetAll")
	}
}
