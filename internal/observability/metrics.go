package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SceneCollector bundles Prometheus metrics for the camera tracking loop.
// All methods are safe to call on a nil collector.
type SceneCollector struct {
	gatherer prometheus.Gatherer

	FramesTotal       prometheus.Counter
	FrameDuration     prometheus.Histogram
	ModeSwitches      *prometheus.CounterVec
	Fallbacks         *prometheus.CounterVec
	Transitions       *prometheus.CounterVec
	DegenerateFrames  prometheus.Counter
	AssetLoadFailures *prometheus.CounterVec

	LockedDistance  prometheus.Gauge
	SimTime         prometheus.Gauge
	NightVisibility prometheus.Gauge
}

// NewSceneCollector registers scene metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
// Registering twice against the same registry reuses the existing
// collectors.
func NewSceneCollector(reg prometheus.Registerer) (*SceneCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &SceneCollector{gatherer: gatherer}
	var err error

	if c.FramesTotal, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "solarsim_frames_total",
		Help: "Total number of simulation ticks processed.",
	}), "solarsim_frames_total"); err != nil {
		return nil, err
	}
	if c.FrameDuration, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "solarsim_frame_duration_seconds",
		Help:    "Wall-clock time spent computing one tick.",
		Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
	}), "solarsim_frame_duration_seconds"); err != nil {
		return nil, err
	}
	if c.ModeSwitches, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "solarsim_focus_mode_switches_total",
		Help: "Focus mode changes, labeled by the mode entered.",
	}, []string{"mode"}), "solarsim_focus_mode_switches_total"); err != nil {
		return nil, err
	}
	if c.Fallbacks, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "solarsim_focus_fallbacks_total",
		Help: "Forced returns to free mode, labeled by reason.",
	}, []string{"reason"}), "solarsim_focus_fallbacks_total"); err != nil {
		return nil, err
	}
	if c.Transitions, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "solarsim_camera_transitions_total",
		Help: "Camera transitions, labeled by outcome (started, completed, cancelled).",
	}, []string{"outcome"}), "solarsim_camera_transitions_total"); err != nil {
		return nil, err
	}
	if c.DegenerateFrames, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "solarsim_degenerate_frames_total",
		Help: "Ticks whose camera update was skipped because of degenerate geometry.",
	}), "solarsim_degenerate_frames_total"); err != nil {
		return nil, err
	}
	if c.AssetLoadFailures, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "solarsim_asset_load_failures_total",
		Help: "Material assets that failed to load, labeled by asset.",
	}, []string{"asset"}), "solarsim_asset_load_failures_total"); err != nil {
		return nil, err
	}
	if c.LockedDistance, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "solarsim_locked_distance",
		Help: "Current locked camera distance in scene units; 0 in free mode.",
	}), "solarsim_locked_distance"); err != nil {
		return nil, err
	}
	if c.SimTime, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "solarsim_sim_time_seconds",
		Help: "Current simulation time in simulated seconds.",
	}), "solarsim_sim_time_seconds"); err != nil {
		return nil, err
	}
	if c.NightVisibility, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "solarsim_night_side_visibility",
		Help: "Earth night-side visibility factor seen from the camera, in [0,1].",
	}), "solarsim_night_side_visibility"); err != nil {
		return nil, err
	}
	return c, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SceneCollector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *SceneCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObserveFrame counts one tick and records how long it took.
func (c *SceneCollector) ObserveFrame(d time.Duration) {
	if c == nil {
		return
	}
	c.FramesTotal.Inc()
	c.FrameDuration.Observe(d.Seconds())
}

// IncModeSwitch counts a focus mode change.
func (c *SceneCollector) IncModeSwitch(mode string) {
	if c == nil {
		return
	}
	c.ModeSwitches.WithLabelValues(mode).Inc()
}

// IncFallback counts a forced return to free mode.
func (c *SceneCollector) IncFallback(reason string) {
	if c == nil {
		return
	}
	c.Fallbacks.WithLabelValues(reason).Inc()
}

// IncTransition counts a transition lifecycle event.
func (c *SceneCollector) IncTransition(outcome string) {
	if c == nil {
		return
	}
	c.Transitions.WithLabelValues(outcome).Inc()
}

// IncDegenerateFrame counts a skipped camera update.
func (c *SceneCollector) IncDegenerateFrame() {
	if c == nil {
		return
	}
	c.DegenerateFrames.Inc()
}

// IncAssetLoadFailure counts a failed material load.
func (c *SceneCollector) IncAssetLoadFailure(asset string) {
	if c == nil {
		return
	}
	c.AssetLoadFailures.WithLabelValues(asset).Inc()
}

// SetFrameState updates the per-frame gauges.
func (c *SceneCollector) SetFrameState(simTime, lockedDistance, nightVisibility float64) {
	if c == nil {
		return
	}
	c.SimTime.Set(simTime)
	c.LockedDistance.Set(lockedDistance)
	if nightVisibility < 0 {
		nightVisibility = 0
	}
	if nightVisibility > 1 {
		nightVisibility = 1
	}
	c.NightVisibility.Set(nightVisibility)
}

// register adds collector to reg, returning the already-registered
// instance when an identical collector exists.
func register[T prometheus.Collector](reg prometheus.Registerer, collector T, name string) (T, error) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			var zero T
			return zero, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		var zero T
		return zero, err
	}
	return collector, nil
}
