package core

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/rrosmaninho/ICG-ISS/model"
)

const orbitEps = 1e-9

func sampleTimes() []float64 {
	return []float64{0, 1, 59.5, 3600, ISSOrbitPeriod / 3, ISSOrbitPeriod, EarthDayPeriod, MoonOrbitPeriod * 0.75, 1e7, -250}
}

func TestOrbitRadiiHoldForAllSampleTimes(t *testing.T) {
	om := NewOrbitalStateModel()
	for _, simTime := range sampleTimes() {
		p := om.Advance(simTime)
		for _, v := range []mgl64.Vec3{p.Sun, p.Earth, p.Moon, p.ISS} {
			if !IsFinite(v) {
				t.Fatalf("t=%v: non-finite position %v", simTime, v)
			}
		}
		if got := p.ISS.Sub(p.Earth).Len(); math.Abs(got-ISSOrbitRadius) > orbitEps {
			t.Fatalf("t=%v: |iss| = %v, want %v", simTime, got, ISSOrbitRadius)
		}
		if got := p.Moon.Sub(p.Earth).Len(); math.Abs(got-MoonOrbitRadius) > 1e-9 {
			t.Fatalf("t=%v: |moon| = %v, want %v", simTime, got, MoonOrbitRadius)
		}
		if p.Moon[1] != 0 {
			t.Fatalf("t=%v: moon left the X-Z plane: %v", simTime, p.Moon)
		}
	}
}

func TestAdvanceIsDeterministic(t *testing.T) {
	a := NewOrbitalStateModel()
	b := NewOrbitalStateModel()
	for _, simTime := range sampleTimes() {
		pa := a.Advance(simTime)
		// Evaluate out of order on purpose: no hidden state.
		_ = a.Advance(simTime * 3)
		if pb := b.Advance(simTime); pa != pb {
			t.Fatalf("t=%v: Advance not deterministic: %+v vs %+v", simTime, pa, pb)
		}
		if again := a.Advance(simTime); again != pa {
			t.Fatalf("t=%v: repeated Advance differs", simTime)
		}
	}
}

func TestISSOrbitIsPeriodic(t *testing.T) {
	om := NewOrbitalStateModel()
	start := om.Advance(100).ISS
	end := om.Advance(100 + ISSOrbitPeriod).ISS
	if !near(start, end, 1e-9) {
		t.Fatalf("ISS after one period = %v, want %v", end, start)
	}
	half := om.Advance(100 + ISSOrbitPeriod/2).ISS
	if !near(half, start.Mul(-1), 1e-9) {
		t.Fatalf("ISS after half period = %v, want antipode of %v", half, start)
	}
}

func TestISSOrbitInclination(t *testing.T) {
	om := NewOrbitalStateModel()
	// Quarter period puts the station at the top of its inclined orbit.
	p := om.Advance(ISSOrbitPeriod / 4)
	elev := math.Asin(p.ISS[1]/p.ISS.Len()) * 180 / math.Pi
	if math.Abs(elev-ISSInclinationDeg) > 1e-9 {
		t.Fatalf("max latitude = %v°, want %v°", elev, ISSInclinationDeg)
	}
}

func TestISSOrientationFacesDirectionOfTravel(t *testing.T) {
	om := NewOrbitalStateModel()
	for _, simTime := range sampleTimes() {
		p := om.Advance(simTime)
		forward := p.ISSOrientation.Rotate(mgl64.Vec3{1, 0, 0})

		// Finite-difference velocity.
		const h = 1e-3
		ahead := om.Advance(simTime + h).ISS
		behind := om.Advance(simTime - h).ISS
		vel, err := Normalize(ahead.Sub(behind))
		if err != nil {
			t.Fatalf("t=%v: degenerate velocity", simTime)
		}
		if d := forward.Dot(vel); d < 1-1e-6 {
			t.Fatalf("t=%v: forward·velocity = %v, want ≈1", simTime, d)
		}
	}
}

type countingMotion struct {
	calls int
}

func (m *countingMotion) Position(simTime float64) (mgl64.Vec3, mgl64.Vec3) {
	m.calls++
	return mgl64.Vec3{ISSOrbitRadius, 0, 0}, mgl64.Vec3{0, 0, 1}
}

func TestAdvanceEvaluatesISSMotionOnce(t *testing.T) {
	m := &countingMotion{}
	om := NewOrbitalStateModel(WithISSMotion(m))
	p := om.Advance(42)
	if m.calls != 1 {
		t.Fatalf("ISS motion evaluated %d times, want 1", m.calls)
	}
	if got := p.ISSOrientation.Rotate(mgl64.Vec3{1, 0, 0}); !near(got, mgl64.Vec3{0, 0, 1}, 1e-12) {
		t.Fatalf("forward = %v, want +Z", got)
	}
}

func TestEarthOrientationTiltAndSpin(t *testing.T) {
	om := NewOrbitalStateModel()
	axis := om.Advance(0).EarthOrientation.Rotate(mgl64.Vec3{0, 1, 0})
	tilt := math.Acos(axis.Dot(mgl64.Vec3{0, 1, 0})) * 180 / math.Pi
	if math.Abs(tilt-EarthAxialTilt) > 1e-9 {
		t.Fatalf("axial tilt = %v°, want %v°", tilt, EarthAxialTilt)
	}

	// The spin axis stays fixed while the planet turns.
	later := om.Advance(EarthDayPeriod / 3).EarthOrientation
	if got := later.Rotate(mgl64.Vec3{0, 1, 0}); !near(got, axis, 1e-9) {
		t.Fatalf("spin axis moved: %v vs %v", got, axis)
	}

	// A full day returns the meridian to its start.
	x0 := om.Advance(0).EarthOrientation.Rotate(mgl64.Vec3{1, 0, 0})
	x1 := om.Advance(EarthDayPeriod).EarthOrientation.Rotate(mgl64.Vec3{1, 0, 0})
	if !near(x0, x1, 1e-9) {
		t.Fatalf("meridian after one day = %v, want %v", x1, x0)
	}
	quarter := om.Advance(EarthDayPeriod / 4).EarthOrientation.Rotate(mgl64.Vec3{1, 0, 0})
	if math.Abs(quarter.Dot(x0)) > 1e-9 {
		t.Fatalf("meridian after a quarter day should be perpendicular, dot = %v", quarter.Dot(x0))
	}
}

func TestMoonPhaseRate(t *testing.T) {
	if got := MoonOffset(0); !near(got, mgl64.Vec3{MoonOrbitRadius, 0, 0}, 1e-9) {
		t.Fatalf("moon at t=0 = %v", got)
	}
	got := MoonOffset(MoonOrbitPeriod / 4)
	if !near(got, mgl64.Vec3{0, 0, MoonOrbitRadius}, 1e-9) {
		t.Fatalf("moon at quarter period = %v, want (0, 0, %v)", got, MoonOrbitRadius)
	}
}

func TestPositionsOf(t *testing.T) {
	p := NewOrbitalStateModel().Advance(42)
	for _, b := range model.Bodies {
		if _, ok := p.Of(b); !ok {
			t.Fatalf("Of(%v) missing", b)
		}
	}
	if _, ok := p.Of(model.BodyNone); ok {
		t.Fatalf("Of(BodyNone) should report missing")
	}
	if got, _ := p.Of(model.BodyISS); got != p.ISS {
		t.Fatalf("Of(ISS) = %v, want %v", got, p.ISS)
	}
	if n := len(p.Bodies()); n != 4 {
		t.Fatalf("Bodies() returned %d bodies, want 4", n)
	}
}

func TestFromUnitVectorsAntiparallel(t *testing.T) {
	q := fromUnitVectors(mgl64.Vec3{1, 0, 0}, mgl64.Vec3{-1, 0, 0})
	if got := q.Rotate(mgl64.Vec3{1, 0, 0}); !near(got, mgl64.Vec3{-1, 0, 0}, 1e-12) {
		t.Fatalf("rotated +X = %v, want -X", got)
	}
}
