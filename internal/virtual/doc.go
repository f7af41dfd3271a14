// Package virtual implements composite lights: a virtual light has no
// device of its own and stands for a set of linked child lights.
//
// Forwarder.Apply fans a state change out to every child. Children hosted
// on the same multi-channel endpoint are written in a single request;
// other children go through their protocol driver.
//
// Aggregator.Resolve fans back in. Each child's state is read (endpoint
// request, driver query, cached state, or a default) and collapsed into
// the virtual light's own on, bri and reachable.
//
// Neither operation fails because of a child. Each returns a Result with
// a ChildStatus per child, classified by ErrorKind:
//
//	res := forwarder.Apply(ctx, "10", light.State{"on": true, "bri": 180})
//	for _, c := range res.Failed() {
//	    log.Warn("child failed", "child_id", c.LightID, "kind", c.Kind)
//	}
//
// Register Driver under light.ProtocolVirtual to allow virtual lights as
// children of other virtual lights. Cycles are detected through the
// context and reported as ErrCycleDetected.
package virtual
