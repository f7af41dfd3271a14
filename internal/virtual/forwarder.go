package virtual

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/graylight/internal/driver"
	"github.com/nerrad567/graylight/internal/endpoint"
	"github.com/nerrad567/graylight/internal/light"
)

// Forwarder fans a state change on a virtual light out to its children.
//
// Children on multi-channel endpoints are written in one request per
// endpoint. Every other child goes through its protocol driver.
//
// Thread Safety: Apply is safe for concurrent use.
type Forwarder struct {
	core
}

// NewForwarder creates a forwarder.
//
// Parameters:
//   - lights: Registry the virtual light and its children are looked up in
//   - drivers: Protocol drivers for children not hosted on an endpoint
//   - endpoints: Client for batched endpoint writes
//   - cfg: Concurrency and nesting limits (zero values get defaults)
//   - logger: Logger instance (may be nil)
func NewForwarder(lights Registry, drivers Drivers, endpoints EndpointClient, cfg Config, logger Logger) *Forwarder {
	return &Forwarder{core: newCore(lights, drivers, endpoints, cfg, logger)}
}

// SetMetrics attaches Prometheus metrics.
func (f *Forwarder) SetMetrics(m *Metrics) { f.metrics = m }

// SetRecorder attaches a sink for completed results.
func (f *Forwarder) SetRecorder(r Recorder) { f.recorder = r }

// Apply propagates delta to every child of the virtual light id.
//
// Once its children are known, the virtual light is marked unreachable and
// ends up reachable if any directly driven child reported itself reachable
// or any endpoint write succeeded. A light with no children configured is
// left untouched.
// Apply never fails as a whole because of a child; per-child outcomes are
// in Result.Children. Result.Err is set only when the light is unknown,
// has no children configured, or sits on a cycle.
func (f *Forwarder) Apply(ctx context.Context, id string, delta light.State) Result {
	started := time.Now()
	res := Result{LightID: id, Op: OpApply}

	ctx, parent := f.begin(ctx, &res)
	if parent == nil {
		return f.finish(ctx, res, started)
	}

	children, err := f.resolver.Children(ctx, parent)
	if err != nil {
		res.Err = err
		res.State = parent.State()
		if errors.Is(err, ErrNoChildrenConfigured) {
			f.logger.Warn("virtual light has no children configured", "light_id", id)
		} else {
			f.logger.Error("virtual light config invalid", "light_id", id, "kind", KindConfig, "error", err)
		}
		return f.finish(ctx, res, started)
	}
	res.Children = f.unresolved(children.Unresolved, OpApply, id)
	parent.SetReachable(false)

	batcher := endpoint.NewBatcher()
	anyReachable := false

	for _, child := range children.Lights {
		if endpointHosted(child) {
			payload := delta.Filter(child.Type.Fields())
			if err := batcher.Add(child, payload); err != nil {
				child.SetReachable(false)
				st := ChildStatus{LightID: child.ID, Kind: KindConfig, Err: err}
				f.childFailed(OpApply, id, st)
				res.Children = append(res.Children, st)
			}
			continue
		}

		st := f.applyDirect(ctx, child, delta)
		if !st.OK() {
			f.childFailed(OpApply, id, st)
		}
		anyReachable = anyReachable || st.Reachable
		res.Children = append(res.Children, st)
	}

	flushed, anyWritten := f.flush(ctx, id, batcher.Batches())
	res.Children = append(res.Children, flushed...)

	parent.SetReachable(anyReachable || anyWritten)
	res.State = parent.State()

	f.logger.Debug("virtual light applied",
		"light_id", id,
		"children", len(res.Children),
		"failed", len(res.Failed()),
		"endpoints", batcher.Len(),
		"reachable", anyReachable || anyWritten,
	)
	return f.finish(ctx, res, started)
}

// applyDirect sends delta to a child through its protocol driver.
func (f *Forwarder) applyDirect(ctx context.Context, child *light.Light, delta light.State) ChildStatus {
	setter, ok := f.drivers.Setter(child.Protocol)
	if !ok {
		child.SetReachable(false)
		return ChildStatus{
			LightID: child.ID,
			Kind:    KindDriver,
			Err:       fmt.Errorf("%w: %s", driver.ErrNoDriver, child.Protocol),
		}
	}

	if err := setter.SetState(ctx, child, delta, driver.SetOptions{Advertise: false}); err != nil {
		child.SetReachable(false)
		return ChildStatus{LightID: child.ID, Kind: kindOf(err), Err: err}
	}
	// Only a reachable flag the driver actually reported counts.
	return ChildStatus{LightID: child.ID, Reachable: child.ReportedReachable()}
}

// flush writes every batch concurrently, one request per endpoint, and
// updates the reachable flag of each child accordingly. It reports whether
// any write succeeded.
func (f *Forwarder) flush(ctx context.Context, parentID string, batches []endpoint.Batch) ([]ChildStatus, bool) {
	if len(batches) == 0 {
		return nil, false
	}

	errs := make([]error, len(batches))
	var g errgroup.Group
	g.SetLimit(f.cfg.MaxConcurrency)
	for i, b := range batches {
		g.Go(func() error {
			errs[i] = f.endpoints.Write(ctx, b.Address, b.Payloads())
			return nil
		})
	}
	_ = g.Wait()

	var out []ChildStatus
	anyWritten := false
	for i, b := range batches {
		ok := errs[i] == nil
		if ok {
			anyWritten = true
		} else {
			f.logger.Warn("endpoint write failed",
				"light_id", parentID,
				"address", b.Address,
				"child_ids", b.LightIDs(),
				"kind", KindEndpoint,
				"error", errs[i],
			)
		}

		for _, cp := range b.Channels {
			if child, found := f.lights.Get(cp.LightID); found {
				child.SetReachable(ok)
			}
			st := ChildStatus{LightID: cp.LightID, Address: b.Address, Reachable: ok}
			if !ok {
				st.Kind = KindEndpoint
				st.Err = errs[i]
			}
			out = append(out, st)
		}
	}
	return out, anyWritten
}
