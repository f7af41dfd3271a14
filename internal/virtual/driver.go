package virtual

import (
	"context"
	"errors"

	"github.com/nerrad567/graylight/internal/driver"
	"github.com/nerrad567/graylight/internal/light"
)

// Driver serves the virtual protocol, so a virtual light can be the child
// of another. The chain of virtual lights walked so far travels in the
// context; reaching one twice yields ErrCycleDetected.
type Driver struct {
	forwarder  *Forwarder
	aggregator *Aggregator
}

// NewDriver creates the virtual protocol driver.
func NewDriver(forwarder *Forwarder, aggregator *Aggregator) *Driver {
	return &Driver{forwarder: forwarder, aggregator: aggregator}
}

// SetState applies delta to the virtual light l and its children.
func (d *Driver) SetState(ctx context.Context, l *light.Light, delta light.State, _ driver.SetOptions) error {
	return d.forwarder.Apply(ctx, l.ID, delta).Err
}

// GetState resolves the virtual light l from its children. A light with
// no children configured reports its last known state.
func (d *Driver) GetState(ctx context.Context, l *light.Light) (light.State, error) {
	res := d.aggregator.Resolve(ctx, l.ID)
	if res.Err != nil && !errors.Is(res.Err, ErrNoChildrenConfigured) {
		return nil, res.Err
	}
	return res.State, nil
}

var (
	_ driver.Setter      = (*Driver)(nil)
	_ driver.StateReader = (*Driver)(nil)
)
