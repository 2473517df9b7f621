package observability

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/rrosmaninho/ICG-ISS/model"
)

// Span names emitted by the scene session.
const (
	SpanFrame         = "scene.Advance"
	SpanRequestMode   = "scene.RequestMode"
	SpanRequestFree   = "scene.RequestFree"
	SpanResetAll      = "scene.ResetAll"
	SpanFocusSelected = "scene.FocusSelected"

	EventFallback = "focus.fallback"
)

// Scene attribute keys.
const (
	AttrSimTime        = attribute.Key("solarsim.sim_time")
	AttrFocusMode      = attribute.Key("solarsim.focus_mode")
	AttrBody           = attribute.Key("solarsim.body")
	AttrLockedDistance = attribute.Key("solarsim.locked_distance")
	AttrTransitioning  = attribute.Key("solarsim.transitioning")
	AttrFallback       = attribute.Key("solarsim.fallback_reason")
	AttrISSSource      = attribute.Key("solarsim.iss_source")
	AttrSpeed          = attribute.Key("solarsim.speed_multiplier")
)

// SceneResource describes a run for TracingConfig.Scene.
func SceneResource(issSource string, speed float64) []attribute.KeyValue {
	return []attribute.KeyValue{AttrISSSource.String(issSource), AttrSpeed.Float64(speed)}
}

// FrameAttributes summarise the state a tick left behind.
func FrameAttributes(simTime float64, focus model.FocusState, transitioning bool) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		AttrSimTime.Float64(simTime),
		AttrFocusMode.String(focus.Mode.String()),
		AttrTransitioning.Bool(transitioning),
	}
	if focus.Locked() {
		attrs = append(attrs,
			AttrBody.String(focus.LockedTarget.String()),
			AttrLockedDistance.Float64(focus.LockedDistance),
		)
	}
	return attrs
}

// FocusAttributes tag a focus request with the requested mode and its body.
func FocusAttributes(mode model.FocusMode) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrFocusMode.String(mode.String()),
		AttrBody.String(mode.Body().String()),
	}
}

// RecordFallback adds a fallback event to span.
func RecordFallback(span trace.Span, reason string, err error) {
	span.AddEvent(EventFallback, trace.WithAttributes(AttrFallback.String(reason)))
	if err != nil {
		span.RecordError(err)
	}
}

// RecordFailure records err and marks the span failed.
func RecordFailure(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// sceneSampler always keeps focus request spans and ratio-samples the
// per-frame span, which fires at the tick rate.
type sceneSampler struct {
	frames sdktrace.Sampler
}

// NewSceneSampler returns a parent-based sampler whose root decision keeps
// every non-frame span and frameRatio of frame spans.
func NewSceneSampler(frameRatio float64) sdktrace.Sampler {
	return sdktrace.ParentBased(sceneSampler{frames: sdktrace.TraceIDRatioBased(frameRatio)})
}

func (s sceneSampler) ShouldSample(p sdktrace.SamplingParameters) sdktrace.SamplingResult {
	if p.Name == SpanFrame {
		return s.frames.ShouldSample(p)
	}
	return sdktrace.AlwaysSample().ShouldSample(p)
}

func (s sceneSampler) Description() string {
	return fmt.Sprintf("SceneSampler{frames:%s}", s.frames.Description())
}
