package light

import (
	"fmt"
	"sort"
	"strconv"
	"sync"
)

// Logger defines the logging interface used by the light package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry owns every light known to the bridge.
//
// Get hands out the live *Light so drivers can update its cached state;
// callers look lights up by ID on every operation instead of keeping the
// pointer, because Replace may swap an entry at any moment.
//
// All public methods are thread-safe.
type Registry struct {
	mu     sync.RWMutex
	lights map[string]*Light
	logger Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		lights: make(map[string]*Light),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// Get returns the light with the given ID.
func (r *Registry) Get(id string) (*Light, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.lights[id]
	return l, ok
}

// Add registers a new light. Returns ErrLightExists if the ID is taken and
// ErrInvalidLight if the light fails validation.
func (r *Registry) Add(l *Light) error {
	if err := Validate(l.Definition()); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.lights[l.ID]; exists {
		return fmt.Errorf("%w: %s", ErrLightExists, l.ID)
	}
	r.lights[l.ID] = l
	r.logger.Debug("light added", "light_id", l.ID, "protocol", l.Protocol)
	return nil
}

// Replace inserts or swaps the light with l's ID. Holders of the previous
// *Light keep a detached copy; its state is no longer visible through the
// registry.
func (r *Registry) Replace(l *Light) error {
	if err := Validate(l.Definition()); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.lights[l.ID] = l
	r.logger.Debug("light replaced", "light_id", l.ID, "protocol", l.Protocol)
	return nil
}

// Remove deletes the light with the given ID and reports whether it existed.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.lights[id]
	delete(r.lights, id)
	return ok
}

// Load replaces the registry's contents with lights.
func (r *Registry) Load(lights []*Light) {
	next := make(map[string]*Light, len(lights))
	for _, l := range lights {
		next[l.ID] = l
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.lights = next
	r.logger.Info("lights loaded", "count", len(next))
}

// List returns every light ordered by ID, numerically where IDs are numbers.
func (r *Registry) List() []*Light {
	r.mu.RLock()
	out := make([]*Light, 0, len(r.lights))
	for _, l := range r.lights {
		out = append(out, l)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return lessID(out[i].ID, out[j].ID) })
	return out
}

// Len returns the number of registered lights.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.lights)
}

func lessID(a, b string) bool {
	ai, aErr := strconv.Atoi(a)
	bi, bErr := strconv.Atoi(b)
	switch {
	case aErr == nil && bErr == nil:
		return ai < bi
	case aErr == nil:
		return true
	case bErr == nil:
		return false
	default:
		return a < b
	}
}
