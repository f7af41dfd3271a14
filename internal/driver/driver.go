package driver

import (
	"context"

	"github.com/nerrad567/graylight/internal/light"
)

// SetOptions tunes a single SetState call.
type SetOptions struct {
	// Advertise announces the resulting state to observers (history,
	// telemetry). Composite lights forward to their children with
	// Advertise false and announce the aggregate themselves.
	Advertise bool
}

// Setter applies a state delta to a light through its protocol.
//
// Implementations update the light's cached state to reflect what was
// sent, and set reachable to false when the device could not be reached.
type Setter interface {
	SetState(ctx context.Context, l *light.Light, delta light.State, opts SetOptions) error
}

// StateReader queries a light's authoritative state from the device.
// Drivers whose protocol cannot be queried do not implement it.
type StateReader interface {
	GetState(ctx context.Context, l *light.Light) (light.State, error)
}

// Logger defines the logging interface used by drivers.
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

// commandFields filters a delta down to what a light of l's class accepts.
func commandFields(l *light.Light, delta light.State) light.State {
	return delta.Filter(l.Type.Fields())
}
