package driver

import (
	"context"

	"github.com/nerrad567/graylight/internal/light"
)

// MemoryDriver keeps state only in the light's cache. It backs lights
// whose devices accept commands but cannot be queried, and is handy in
// tests. It has no StateReader.
type MemoryDriver struct{}

// SetState merges the class-relevant fields of delta into the cache and
// marks the light reachable.
func (MemoryDriver) SetState(_ context.Context, l *light.Light, delta light.State, _ SetOptions) error {
	patch := commandFields(l, delta)
	patch[light.FieldReachable] = true
	l.MergeState(patch)
	return nil
}
