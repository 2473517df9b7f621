package kb

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/rrosmaninho/ICG-ISS/core"
	"github.com/rrosmaninho/ICG-ISS/model"
)

var (
	// ErrBodyExists indicates a body is already registered.
	ErrBodyExists = errors.New("body already exists")
	// ErrBodyNotFound indicates a requested body is not registered.
	ErrBodyNotFound = model.ErrBodyNotFound
)

// EventType indicates what kind of change happened in the registry.
type EventType int

const (
	EventBodyUpdated EventType = iota
)

// Event is emitted to subscribers when a body moves.
type Event struct {
	Type EventType
	Body model.CelestialBody
}

// BodyRegistry is the scene-graph stand-in: a thread-safe store of body
// transforms that answers world-position queries.
type BodyRegistry struct {
	mu sync.RWMutex

	bodies map[model.BodyID]*model.CelestialBody

	subs map[int]func(Event)
	next int
}

// NewBodyRegistry constructs an empty registry.
func NewBodyRegistry() *BodyRegistry {
	return &BodyRegistry{
		bodies: make(map[model.BodyID]*model.CelestialBody),
		subs:   make(map[int]func(Event)),
	}
}

// AddBody registers a body. It returns ErrBodyExists if the ID is taken.
func (r *BodyRegistry) AddBody(b model.CelestialBody) error {
	if b.ID == model.BodyNone {
		return fmt.Errorf("add body: %w: %v", ErrBodyNotFound, b.ID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bodies[b.ID]; exists {
		return fmt.Errorf("add body %s: %w", b.ID, ErrBodyExists)
	}
	stored := b
	r.bodies[b.ID] = &stored
	return nil
}

// RemoveBody unregisters a body. Removing an unknown body is an error.
func (r *BodyRegistry) RemoveBody(id model.BodyID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bodies[id]; !ok {
		return fmt.Errorf("remove body %s: %w", id, ErrBodyNotFound)
	}
	delete(r.bodies, id)
	return nil
}

// GetBody returns a copy of the body with the given ID.
func (r *BodyRegistry) GetBody(id model.BodyID) (model.CelestialBody, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bodies[id]
	if !ok {
		return model.CelestialBody{}, false
	}
	return *b, true
}

// ListBodies returns a snapshot of every body in model.Bodies order.
func (r *BodyRegistry) ListBodies() []model.CelestialBody {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := make([]model.CelestialBody, 0, len(r.bodies))
	for _, id := range model.Bodies {
		if b, ok := r.bodies[id]; ok {
			res = append(res, *b)
		}
	}
	return res
}

// WorldPosition returns the world position of a registered body.
func (r *BodyRegistry) WorldPosition(id model.BodyID) (mgl64.Vec3, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bodies[id]
	if !ok {
		return mgl64.Vec3{}, fmt.Errorf("world position of %s: %w", id, ErrBodyNotFound)
	}
	return b.Position, nil
}

// UpdateBody replaces a body's transform and notifies subscribers.
func (r *BodyRegistry) UpdateBody(id model.BodyID, pos mgl64.Vec3, orientation mgl64.Quat) error {
	r.mu.Lock()
	b, ok := r.bodies[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("update body %s: %w", id, ErrBodyNotFound)
	}
	b.Position = pos
	b.Orientation = orientation
	event := Event{
		Type: EventBodyUpdated,
		Body: *b, // copy for safety
	}
	subs := make([]func(Event), 0, len(r.subs))
	for i := 0; i < r.next; i++ {
		if fn, ok := r.subs[i]; ok {
			subs = append(subs, fn)
		}
	}
	r.mu.Unlock()

	// Notify subscribers outside the lock to avoid deadlocks.
	for _, sub := range subs {
		sub(event)
	}
	return nil
}

// Apply pushes every body transform from p into the registry, skipping
// bodies that are not registered.
func (r *BodyRegistry) Apply(p core.Positions) error {
	var errs []error
	for _, b := range p.Bodies() {
		if err := r.UpdateBody(b.ID, b.Position, b.Orientation); err != nil && !errors.Is(err, ErrBodyNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Subscribe registers a callback for registry events. It returns an
// unsubscribe function.
func (r *BodyRegistry) Subscribe(fn func(Event)) (unsubscribe func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.next
	r.next++
	r.subs[id] = fn

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.subs, id)
	}
}

// Seed registers every body from p.
func Seed(r *BodyRegistry, p core.Positions) error {
	for _, b := range p.Bodies() {
		if err := r.AddBody(b); err != nil {
			return err
		}
	}
	return nil
}
