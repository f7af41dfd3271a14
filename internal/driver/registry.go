package driver

import (
	"context"
	"fmt"
	"sync"

	"github.com/nerrad567/graylight/internal/light"
)

// Advertiser is told about state changes made with SetOptions.Advertise.
type Advertiser func(ctx context.Context, lightID string, state light.State, source string)

// Registry maps protocol tags to drivers. It is filled at startup; lookups
// never match on driver names at runtime.
//
// All public methods are thread-safe.
type Registry struct {
	mu        sync.RWMutex
	drivers   map[light.Protocol]Setter
	advertise Advertiser
}

// NewRegistry creates an empty driver registry.
func NewRegistry() *Registry {
	return &Registry{drivers: make(map[light.Protocol]Setter)}
}

// Register binds a driver to a protocol, replacing any previous binding.
func (r *Registry) Register(protocol light.Protocol, d Setter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drivers[protocol] = d
}

// SetAdvertiser sets the hook called after advertised state changes.
func (r *Registry) SetAdvertiser(a Advertiser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.advertise = a
}

// Setter returns the driver for protocol.
func (r *Registry) Setter(protocol light.Protocol) (Setter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.drivers[protocol]
	return d, ok
}

// Reader returns the driver for protocol if it can be queried.
func (r *Registry) Reader(protocol light.Protocol) (StateReader, bool) {
	d, ok := r.Setter(protocol)
	if !ok {
		return nil, false
	}
	sr, ok := d.(StateReader)
	return sr, ok
}

// Protocols lists the registered protocol tags.
func (r *Registry) Protocols() []light.Protocol {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]light.Protocol, 0, len(r.drivers))
	for p := range r.drivers {
		out = append(out, p)
	}
	return out
}

// SetState applies delta to l through its protocol's driver and, when
// opts.Advertise is set and the driver succeeded, advertises the result.
func (r *Registry) SetState(ctx context.Context, l *light.Light, delta light.State, opts SetOptions) error {
	d, ok := r.Setter(l.Protocol)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoDriver, l.Protocol)
	}
	if err := d.SetState(ctx, l, delta, opts); err != nil {
		return err
	}

	if opts.Advertise {
		r.mu.RLock()
		adv := r.advertise
		r.mu.RUnlock()
		if adv != nil {
			adv(ctx, l.ID, l.State(), light.HistorySourceApply)
		}
	}
	return nil
}
