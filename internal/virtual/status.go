package virtual

import (
	"errors"

	"github.com/nerrad567/graylight/internal/endpoint"
	"github.com/nerrad567/graylight/internal/light"
)

// ErrorKind classifies why a child did not take part in an operation.
type ErrorKind string

// Error kinds. An empty kind means the child was handled.
const (
	KindConfig     ErrorKind = "config"
	KindUnresolved ErrorKind = "unresolved"
	KindDriver     ErrorKind = "driver"
	KindEndpoint   ErrorKind = "endpoint"
	KindCycle      ErrorKind = "cycle"
)

// Operation names used in results, logs and metrics.
const (
	OpApply   = "apply"
	OpResolve = "resolve"
)

// ChildStatus is the outcome of an operation for one child light.
type ChildStatus struct {
	LightID string `json:"light_id"`

	// Address is the endpoint the child is hosted on, if any.
	Address string `json:"address,omitempty"`

	// Reachable is the child's reachable flag after the operation.
	Reachable bool `json:"reachable"`

	Kind ErrorKind `json:"kind,omitempty"`
	Err  error     `json:"-"`
}

// OK reports whether the child was handled without error.
func (s ChildStatus) OK() bool {
	return s.Kind == ""
}

// Result is the outcome of an apply or resolve on a virtual light.
type Result struct {
	LightID string `json:"light_id"`
	Op      string `json:"op"`

	// State is the virtual light's cached state after the operation.
	State light.State `json:"state"`

	Children []ChildStatus `json:"children"`

	// Err is set when the operation could not start: unknown light, no
	// children configured, or a cycle. Child failures never set it.
	Err error `json:"-"`
}

// Failed returns the children that did not take part.
func (r Result) Failed() []ChildStatus {
	var out []ChildStatus
	for _, c := range r.Children {
		if !c.OK() {
			out = append(out, c)
		}
	}
	return out
}

// Count returns how many children were considered, resolved or not.
func (r Result) Count() int {
	return len(r.Children)
}

// kindOf maps an error to the kind recorded against a child.
func kindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCycleDetected):
		return KindCycle
	case errors.Is(err, light.ErrNoChildrenConfigured),
		errors.Is(err, light.ErrNoEndpoint),
		errors.Is(err, light.ErrInvalidConfig):
		return KindConfig
	case errors.Is(err, endpoint.ErrRequestFailed),
		errors.Is(err, endpoint.ErrBadStatus),
		errors.Is(err, endpoint.ErrMalformedResponse):
		return KindEndpoint
	default:
		return KindDriver
	}
}
