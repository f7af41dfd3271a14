package endpoint

import (
	"fmt"

	"github.com/nerrad567/graylight/internal/light"
)

// ChannelPayload is one child light's share of an endpoint request.
type ChannelPayload struct {
	LightID string
	Channel int

	// Payload is the state to write. Unused for reads.
	Payload light.State
}

// Batch is every channel addressed on a single endpoint.
type Batch struct {
	Address  string
	Channels []ChannelPayload
}

// Payloads returns the per-channel body for a write. When two lights share
// a channel the later one wins.
func (b Batch) Payloads() map[int]light.State {
	out := make(map[int]light.State, len(b.Channels))
	for _, cp := range b.Channels {
		out[cp.Channel] = cp.Payload
	}
	return out
}

// LightIDs lists the lights in the batch in insertion order.
func (b Batch) LightIDs() []string {
	ids := make([]string, len(b.Channels))
	for i, cp := range b.Channels {
		ids[i] = cp.LightID
	}
	return ids
}

// Batcher groups child lights by the endpoint that hosts them so each
// endpoint is contacted once per operation.
//
// Batches come out in the order their address was first seen, channels in
// the order they were added. A Batcher is not safe for concurrent use; it
// lives for one apply or resolve call.
type Batcher struct {
	order   []string
	batches map[string]*Batch
}

// NewBatcher creates an empty Batcher.
func NewBatcher() *Batcher {
	return &Batcher{batches: make(map[string]*Batch)}
}

// Add queues l on its endpoint with the given payload (nil for reads).
//
// A light whose protocol config lacks an address or channel is excluded:
// it is not queued and the returned error wraps light.ErrNoEndpoint or
// light.ErrInvalidConfig.
func (b *Batcher) Add(l *light.Light, payload light.State) error {
	ep, err := light.DecodeEndpointConfig(l.ProtocolConfig)
	if err != nil {
		return fmt.Errorf("light %s: %w", l.ID, err)
	}

	batch, ok := b.batches[ep.Address]
	if !ok {
		batch = &Batch{Address: ep.Address}
		b.batches[ep.Address] = batch
		b.order = append(b.order, ep.Address)
	}
	batch.Channels = append(batch.Channels, ChannelPayload{
		LightID: l.ID,
		Channel: ep.Channel,
		Payload: payload,
	})
	return nil
}

// Batches returns the queued batches in first-seen address order.
func (b *Batcher) Batches() []Batch {
	out := make([]Batch, 0, len(b.order))
	for _, addr := range b.order {
		out = append(out, *b.batches[addr])
	}
	return out
}

// Len returns the number of distinct endpoints queued.
func (b *Batcher) Len() int {
	return len(b.order)
}
