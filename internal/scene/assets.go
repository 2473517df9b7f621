package scene

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rrosmaninho/ICG-ISS/internal/logging"
)

// Material slots the renderer binds textures and models to.
const (
	SlotSunSurface  = "sun_surface"
	SlotEarthDay    = "earth_day"
	SlotEarthNight  = "earth_night"
	SlotEarthClouds = "earth_clouds"
	SlotMoonSurface = "moon_surface"
	SlotISSModel    = "iss_model"
)

// DefaultSlots lists every slot requested at session start.
var DefaultSlots = []string{
	SlotSunSurface,
	SlotEarthDay,
	SlotEarthNight,
	SlotEarthClouds,
	SlotMoonSurface,
	SlotISSModel,
}

// placeholderColors are the flat colours shown until a slot resolves.
var placeholderColors = map[string][3]float64{
	SlotSunSurface:  {1, 0.8, 0.3},
	SlotEarthDay:    {0.2, 0.4, 0.8},
	SlotEarthNight:  {0.02, 0.02, 0.05},
	SlotEarthClouds: {1, 1, 1},
	SlotMoonSurface: {0.6, 0.6, 0.6},
	SlotISSModel:    {0.8, 0.8, 0.8},
}

// Material is what a slot currently renders with.
type Material struct {
	Slot        string
	Color       [3]float64
	Placeholder bool
	Source      string
	Size        int
}

// AssetLoader fetches the asset for a slot. Implementations are called from
// their own goroutine.
type AssetLoader interface {
	Load(ctx context.Context, slot string) (Material, error)
}

// FileAssetLoader resolves slots to files in Dir.
type FileAssetLoader struct {
	Dir   string
	Files map[string]string
}

// NewFileAssetLoader maps every default slot to "<slot>.jpg" in dir, with
// the ISS model as "iss_model.glb".
func NewFileAssetLoader(dir string) *FileAssetLoader {
	files := make(map[string]string, len(DefaultSlots))
	for _, slot := range DefaultSlots {
		files[slot] = slot + ".jpg"
	}
	files[SlotISSModel] = SlotISSModel + ".glb"
	return &FileAssetLoader{Dir: dir, Files: files}
}

// Load reads the slot's file.
func (l *FileAssetLoader) Load(ctx context.Context, slot string) (Material, error) {
	name, ok := l.Files[slot]
	if !ok {
		return Material{}, fmt.Errorf("no file mapped for slot %q", slot)
	}
	if err := ctx.Err(); err != nil {
		return Material{}, err
	}
	path := filepath.Join(l.Dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return Material{}, fmt.Errorf("load %s: %w", slot, err)
	}
	return Material{Slot: slot, Color: [3]float64{1, 1, 1}, Source: path, Size: len(data)}, nil
}

type assetResult struct {
	slot     string
	material Material
	err      error
}

// AssetTracker runs loads in the background and applies their results on
// the tick goroutine. Until a slot resolves it renders with a flat colour
// placeholder; failures keep the placeholder and are reported once.
type AssetTracker struct {
	loader  AssetLoader
	log     logging.Logger
	metrics MetricsRecorder

	results chan assetResult
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc

	materials map[string]Material
	pending   map[string]bool
	failed    map[string]error
}

// NewAssetTracker returns a tracker with every default slot on its
// placeholder. A nil loader never resolves anything.
func NewAssetTracker(loader AssetLoader, log logging.Logger, metrics MetricsRecorder) *AssetTracker {
	if log == nil {
		log = logging.Noop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	a := &AssetTracker{
		ctx:       ctx,
		cancel:    cancel,
		loader:    loader,
		log:       log,
		metrics:   metrics,
		results:   make(chan assetResult, len(DefaultSlots)),
		materials: make(map[string]Material, len(DefaultSlots)),
		pending:   make(map[string]bool),
		failed:    make(map[string]error),
	}
	for _, slot := range DefaultSlots {
		a.materials[slot] = placeholder(slot)
	}
	return a
}

func placeholder(slot string) Material {
	c, ok := placeholderColors[slot]
	if !ok {
		c = [3]float64{0.5, 0.5, 0.5}
	}
	return Material{Slot: slot, Color: c, Placeholder: true}
}

// Request starts loading slots that are neither resolved nor in flight.
// Loads outlive ctx; they stop when the tracker is closed.
func (a *AssetTracker) Request(ctx context.Context, slots ...string) {
	if a.loader == nil {
		return
	}
	var todo []string
	for _, slot := range slots {
		if a.pending[slot] {
			continue
		}
		if m, ok := a.materials[slot]; ok && !m.Placeholder {
			continue
		}
		if _, ok := a.failed[slot]; ok {
			continue
		}
		if _, ok := a.materials[slot]; !ok {
			a.materials[slot] = placeholder(slot)
		}
		a.pending[slot] = true
		todo = append(todo, slot)
	}
	if len(todo) == 0 {
		return
	}

	for _, slot := range todo {
		a.wg.Add(1)
		go func(slot string) {
			defer a.wg.Done()
			m, err := a.loader.Load(a.ctx, slot)
			select {
			case a.results <- assetResult{slot: slot, material: m, err: err}:
			case <-a.ctx.Done():
			}
		}(slot)
	}
	a.log.Debug(ctx, "asset loads started", logging.Int("count", len(todo)))
}

// Close cancels in-flight loads and waits for their goroutines.
func (a *AssetTracker) Close() {
	a.cancel()
	a.wg.Wait()
}

// Drain applies every completed load without blocking and returns how
// many were applied.
func (a *AssetTracker) Drain(ctx context.Context) int {
	n := 0
	for len(a.pending) > 0 {
		select {
		case r := <-a.results:
			a.apply(ctx, r)
			n++
		default:
			return n
		}
	}
	return n
}

// Wait blocks until every in-flight load has been applied or ctx ends.
func (a *AssetTracker) Wait(ctx context.Context) error {
	for len(a.pending) > 0 {
		select {
		case r := <-a.results:
			a.apply(ctx, r)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (a *AssetTracker) apply(ctx context.Context, r assetResult) {
	delete(a.pending, r.slot)
	if r.err != nil {
		if _, seen := a.failed[r.slot]; !seen {
			a.failed[r.slot] = r.err
			a.log.Warn(ctx, "asset load failed, keeping placeholder",
				logging.String("slot", r.slot),
				logging.Err(r.err),
			)
			if a.metrics != nil {
				a.metrics.IncAssetLoadFailure(r.slot)
			}
		}
		return
	}
	m := r.material
	m.Slot = r.slot
	m.Placeholder = false
	a.materials[r.slot] = m
	a.log.Debug(ctx, "asset loaded", logging.String("slot", r.slot), logging.String("source", m.Source))
}

// Material returns what slot currently renders with.
func (a *AssetTracker) Material(slot string) Material {
	if m, ok := a.materials[slot]; ok {
		return m
	}
	return placeholder(slot)
}

// Pending returns the number of loads still in flight.
func (a *AssetTracker) Pending() int {
	return len(a.pending)
}

// Failed returns the load error recorded for slot, if any.
func (a *AssetTracker) Failed(slot string) error {
	return a.failed[slot]
}
