package virtual

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// DefaultMaxDepth bounds virtual-of-virtual nesting.
const DefaultMaxDepth = 8

type pathKey struct{}

// enter records id on the chain of virtual lights being walked in ctx.
// It fails when id is already on the chain or the chain is maxDepth long.
func enter(ctx context.Context, id string, maxDepth int) (context.Context, error) {
	path, _ := ctx.Value(pathKey{}).([]string)
	if slices.Contains(path, id) {
		return ctx, fmt.Errorf("%w: %s -> %s", ErrCycleDetected, strings.Join(path, " -> "), id)
	}
	if len(path) >= maxDepth {
		return ctx, fmt.Errorf("%w: nesting deeper than %d at %s", ErrCycleDetected, maxDepth, id)
	}
	next := make([]string, len(path), len(path)+1)
	copy(next, path)
	return context.WithValue(ctx, pathKey{}, append(next, id)), nil
}
