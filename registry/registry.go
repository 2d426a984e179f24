package registry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/signalsfoundry/orrery/model"
)

var (
	// ErrBodyNotFound indicates a lookup by an unknown body name.
	ErrBodyNotFound = errors.New("body not found")
	// ErrBodyExists indicates a body with the same name is already registered.
	ErrBodyExists = errors.New("body already exists")
	// ErrBodyInvalid indicates a body record failed validation.
	ErrBodyInvalid = errors.New("invalid body")
	// ErrBeltExists indicates a belt with the same name is already configured.
	ErrBeltExists = errors.New("belt already exists")
)

// EventType indicates what kind of change happened in the registry.
type EventType int

const (
	EventBodyAdded EventType = iota
)

// Event is emitted to subscribers when the registry changes.
type Event struct {
	Type EventType
	Body model.Body
}

// Registry is an in-memory, thread-safe store of orbiting bodies and the
// scene-wide static records (star, belts, overlay metadata).
type Registry struct {
	mu sync.RWMutex

	bodies map[string]*model.Body
	order  []string
	info   map[string]model.BodyInfo

	star  *model.Star
	belts []model.Belt

	subs   map[int]func(Event)
	nextID int
}

// New constructs an empty registry.
func New() *Registry {
	return &Registry{
		bodies: make(map[string]*model.Body),
		info:   make(map[string]model.BodyInfo),
		subs:   make(map[int]func(Event)),
	}
}

// Add registers a body. It returns ErrBodyExists if the name is taken and
// ErrBodyInvalid if the record is malformed.
func (r *Registry) Add(b *model.Body) error {
	if err := Validate(b); err != nil {
		return err
	}

	r.mu.Lock()
	if _, exists := r.bodies[b.Name]; exists {
		r.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrBodyExists, b.Name)
	}
	cp := cloneBody(b)
	r.bodies[b.Name] = cp
	r.order = append(r.order, b.Name)
	event := Event{Type: EventBodyAdded, Body: *cloneBody(cp)}
	subs := r.subscribersLocked()
	r.mu.Unlock()

	// Notify outside the lock so subscribers may call back into the registry.
	for _, sub := range subs {
		sub(event)
	}
	return nil
}

// Get returns a copy of the body with the given name, or ErrBodyNotFound.
func (r *Registry) Get(name string) (*model.Body, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bodies[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBodyNotFound, name)
	}
	return cloneBody(b), nil
}

// MustGet is Get for names that come from the registry itself. An unknown
// name there is a programming error.
func (r *Registry) MustGet(name string) *model.Body {
	b, err := r.Get(name)
	if err != nil {
		panic(err)
	}
	return b
}

// List returns copies of the bodies in registration order.
func (r *Registry) List() []*model.Body {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := make([]*model.Body, 0, len(r.order))
	for _, name := range r.order {
		res = append(res, cloneBody(r.bodies[name]))
	}
	return res
}

// Len returns the number of registered bodies.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// SetInfo stores overlay metadata for a body name.
func (r *Registry) SetInfo(name string, info model.BodyInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.info[name] = info
}

// Info returns overlay metadata for a registered body. Bodies without
// metadata get an empty record.
func (r *Registry) Info(name string) (model.BodyInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.bodies[name]; !ok {
		return model.BodyInfo{}, fmt.Errorf("%w: %q", ErrBodyNotFound, name)
	}
	return r.info[name], nil
}

// SetStar replaces the central star.
func (r *Registry) SetStar(s model.Star) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.star = &s
}

// Star returns the central star, if one is configured.
func (r *Registry) Star() (model.Star, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.star == nil {
		return model.Star{}, false
	}
	return *r.star, true
}

// AddBelt appends an asteroid belt. Belt names are unique; a repeat
// returns ErrBeltExists.
func (r *Registry) AddBelt(b model.Belt) error {
	if err := ValidateBelt(b); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.belts {
		if existing.Name == b.Name {
			return fmt.Errorf("%w: %q", ErrBeltExists, b.Name)
		}
	}
	r.belts = append(r.belts, b)
	return nil
}

// ValidateBelt checks a belt's count and radii.
func ValidateBelt(b model.Belt) error {
	if b.Count < 0 || b.MinRadius < 0 || b.MaxRadius < b.MinRadius {
		return fmt.Errorf("%w: belt %q radii [%v, %v] count %d", ErrBodyInvalid, b.Name, b.MinRadius, b.MaxRadius, b.Count)
	}
	return nil
}

// Belts returns a copy of the configured belts.
func (r *Registry) Belts() []model.Belt {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]model.Belt(nil), r.belts...)
}

// Subscribe registers a callback for registry events. It returns an
// unsubscribe function.
func (r *Registry) Subscribe(fn func(Event)) (unsubscribe func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	r.subs[id] = fn

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.subs, id)
	}
}

func (r *Registry) subscribersLocked() []func(Event) {
	subs := make([]func(Event), 0, len(r.subs))
	for id := 0; id < r.nextID; id++ {
		if fn, ok := r.subs[id]; ok {
			subs = append(subs, fn)
		}
	}
	return subs
}

// Validate checks the structural constraints of a body record.
func Validate(b *model.Body) error {
	switch {
	case b == nil:
		return fmt.Errorf("%w: nil body", ErrBodyInvalid)
	case b.Name == "":
		return fmt.Errorf("%w: empty name", ErrBodyInvalid)
	case b.Radius <= 0:
		return fmt.Errorf("%w: %q radius must be positive", ErrBodyInvalid, b.Name)
	case b.BaseOrbitDistance < 0:
		return fmt.Errorf("%w: %q orbit distance must not be negative", ErrBodyInvalid, b.Name)
	case b.CameraOffset < 0:
		return fmt.Errorf("%w: %q camera offset must not be negative", ErrBodyInvalid, b.Name)
	}
	if b.Ring != nil && (b.Ring.InnerRadius <= 0 || b.Ring.InnerRadius >= b.Ring.OuterRadius) {
		return fmt.Errorf("%w: %q ring radii [%v, %v]", ErrBodyInvalid, b.Name, b.Ring.InnerRadius, b.Ring.OuterRadius)
	}
	if b.Atmosphere != nil && b.Atmosphere.Radius <= b.Radius {
		return fmt.Errorf("%w: %q atmosphere radius %v must exceed body radius %v", ErrBodyInvalid, b.Name, b.Atmosphere.Radius, b.Radius)
	}
	for i, s := range b.Satellites {
		if s.Size <= 0 || s.OrbitRadius <= 0 {
			return fmt.Errorf("%w: %q satellite %d needs positive size and orbit radius", ErrBodyInvalid, b.Name, i)
		}
	}
	return nil
}

// cloneBody copies b deeply enough that no pointer or slice is shared
// with the stored record.
func cloneBody(b *model.Body) *model.Body {
	cp := *b
	if b.Ring != nil {
		ring := *b.Ring
		cp.Ring = &ring
	}
	if b.Atmosphere != nil {
		atmo := *b.Atmosphere
		cp.Atmosphere = &atmo
	}
	if b.Satellites != nil {
		cp.Satellites = make([]model.Satellite, len(b.Satellites))
		for i, sat := range b.Satellites {
			if sat.TiltDegrees != nil {
				tilt := *sat.TiltDegrees
				sat.TiltDegrees = &tilt
			}
			if sat.TLE != nil {
				tle := *sat.TLE
				sat.TLE = &tle
			}
			cp.Satellites[i] = sat
		}
	}
	return &cp
}
