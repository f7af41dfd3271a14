package virtual

import (
	"errors"

	"github.com/nerrad567/graylight/internal/light"
)

// Errors returned in Result.Err and ChildStatus.Err, checked with errors.Is().
var (
	// ErrNoChildrenConfigured is returned when a virtual light has no
	// linked_lights key. It is the same value as light.ErrNoChildrenConfigured.
	ErrNoChildrenConfigured = light.ErrNoChildrenConfigured

	// ErrCycleDetected is returned when a virtual light is reached again
	// through its own descendants, or nesting exceeds the depth limit.
	ErrCycleDetected = errors.New("virtual: cycle detected")
)
