package driver

import (
	"context"
	"fmt"

	"github.com/nerrad567/graylight/internal/endpoint"
	"github.com/nerrad567/graylight/internal/light"
)

// EndpointClient is the subset of endpoint.Client the driver needs.
type EndpointClient interface {
	Write(ctx context.Context, address string, channels map[int]light.State) error
	Read(ctx context.Context, address string) (map[int]light.State, error)
}

// NativeMultiDriver addresses a single light on a multi-channel endpoint.
// Composite lights batch their endpoint children themselves; this driver
// serves lights commanded on their own.
type NativeMultiDriver struct {
	client EndpointClient
}

// NewNativeMultiDriver creates a driver using client for endpoint requests.
func NewNativeMultiDriver(client EndpointClient) *NativeMultiDriver {
	return &NativeMultiDriver{client: client}
}

// SetState writes the class-relevant fields of delta to the light's channel.
func (d *NativeMultiDriver) SetState(ctx context.Context, l *light.Light, delta light.State, _ SetOptions) error {
	ep, err := light.DecodeEndpointConfig(l.ProtocolConfig)
	if err != nil {
		l.SetReachable(false)
		return fmt.Errorf("light %s: %w", l.ID, err)
	}

	payload := commandFields(l, delta)
	if err := d.client.Write(ctx, ep.Address, map[int]light.State{ep.Channel: payload}); err != nil {
		l.SetReachable(false)
		return err
	}

	payload[light.FieldReachable] = true
	l.MergeState(payload)
	return nil
}

// GetState reads the endpoint and returns the recognised fields of this
// light's channel. A channel missing from the response yields ErrNoState.
func (d *NativeMultiDriver) GetState(ctx context.Context, l *light.Light) (light.State, error) {
	ep, err := light.DecodeEndpointConfig(l.ProtocolConfig)
	if err != nil {
		return nil, fmt.Errorf("light %s: %w", l.ID, err)
	}

	channels, err := d.client.Read(ctx, ep.Address)
	if err != nil {
		return nil, err
	}
	st, ok := channels[ep.Channel]
	if !ok {
		return nil, fmt.Errorf("%w: channel %d on %s", ErrNoState, ep.Channel, ep.Address)
	}
	return st.Filter(light.RecognisedFields()), nil
}

var _ EndpointClient = (*endpoint.Client)(nil)
