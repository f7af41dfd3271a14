package virtual

import (
	"context"

	"github.com/nerrad567/graylight/internal/light"
)

// Registry looks lights up by ID. Implemented by *light.Registry.
type Registry interface {
	Get(id string) (*light.Light, bool)
}

// Children is a virtual light's resolved child set.
type Children struct {
	// Lights are the children present in the registry, in configured order.
	Lights []*light.Light

	// Unresolved are configured IDs with no registered light.
	Unresolved []string
}

// Resolver turns a virtual light's linked_lights into registered lights.
type Resolver struct {
	lights Registry
}

// NewResolver creates a resolver over lights.
func NewResolver(lights Registry) *Resolver {
	return &Resolver{lights: lights}
}

// Children returns parent's children in configured order.
//
// Returns ErrNoChildrenConfigured when parent has no linked_lights key.
// An empty result for a non-empty list is not an error.
func (r *Resolver) Children(_ context.Context, parent *light.Light) (Children, error) {
	cfg, err := light.DecodeVirtualConfig(parent.ProtocolConfig)
	if err != nil {
		return Children{}, err
	}

	var out Children
	for _, id := range cfg.LinkedLights {
		child, ok := r.lights.Get(id)
		if !ok {
			out.Unresolved = append(out.Unresolved, id)
			continue
		}
		out.Lights = append(out.Lights, child)
	}
	return out, nil
}

// endpointHosted reports whether l is addressed through a multi-channel
// endpoint and so goes through the batcher.
func endpointHosted(l *light.Light) bool {
	return l.Protocol == light.ProtocolNativeMulti
}
