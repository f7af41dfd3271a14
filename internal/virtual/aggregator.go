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

// defaultBri is reported when no child has a usable brightness.
const defaultBri = 1

// fallbackState stands in for a child with no reader and no cached state.
func fallbackState() light.State {
	return light.State{
		light.FieldOn:        true,
		light.FieldBri:       254,
		light.FieldReachable: true,
	}
}

// Aggregator reads the state of a virtual light's children back and
// collapses it into the virtual light's own state.
//
// Thread Safety: Resolve is safe for concurrent use.
type Aggregator struct {
	core
}

// NewAggregator creates an aggregator. Parameters match NewForwarder.
func NewAggregator(lights Registry, drivers Drivers, endpoints EndpointClient, cfg Config, logger Logger) *Aggregator {
	return &Aggregator{core: newCore(lights, drivers, endpoints, cfg, logger)}
}

// SetMetrics attaches Prometheus metrics.
func (a *Aggregator) SetMetrics(m *Metrics) { a.metrics = m }

// SetRecorder attaches a sink for completed results.
func (a *Aggregator) SetRecorder(r Recorder) { a.recorder = r }

// Resolve refreshes the virtual light id from its children.
//
// Endpoint-hosted children are read with one request per endpoint. Other
// children are queried through their driver, falling back to their cached
// state, then to {on: true, bri: 254, reachable: true}.
//
// The aggregate is on if any child is on, bri is the floored mean of the
// children's valid brightness values (1 if none), and reachable if any
// child is reachable. These three keys are written to the virtual light's
// cached state. With no children configured, or none registered, the
// last known state is returned unchanged.
func (a *Aggregator) Resolve(ctx context.Context, id string) Result {
	started := time.Now()
	res := Result{LightID: id, Op: OpResolve}

	ctx, parent := a.begin(ctx, &res)
	if parent == nil {
		return a.finish(ctx, res, started)
	}

	children, err := a.resolver.Children(ctx, parent)
	if err != nil {
		res.State = parent.State()
		if !errors.Is(err, ErrNoChildrenConfigured) {
			res.Err = err
			a.logger.Error("virtual light config invalid", "light_id", id, "kind", KindConfig, "error", err)
		}
		return a.finish(ctx, res, started)
	}
	res.Children = a.unresolved(children.Unresolved, OpResolve, id)

	if len(children.Lights) == 0 {
		res.State = parent.State()
		return a.finish(ctx, res, started)
	}

	parent.SetReachable(false)

	batcher := endpoint.NewBatcher()
	var direct []*light.Light
	for _, child := range children.Lights {
		if !endpointHosted(child) {
			direct = append(direct, child)
			continue
		}
		if err := batcher.Add(child, nil); err != nil {
			child.SetReachable(false)
			st := ChildStatus{LightID: child.ID, Kind: KindConfig, Err: err}
			a.childFailed(OpResolve, id, st)
			res.Children = append(res.Children, st)
		}
	}
	batches := batcher.Batches()

	// Slots are filled concurrently and reduced after Wait.
	reads := make([]readResult, len(batches))
	directStates := make([]light.State, len(direct))
	directStatus := make([]ChildStatus, len(direct))

	var g errgroup.Group
	g.SetLimit(a.cfg.MaxConcurrency)
	for i, b := range batches {
		g.Go(func() error {
			reads[i].channels, reads[i].err = a.endpoints.Read(ctx, b.Address)
			return nil
		})
	}
	for i, child := range direct {
		g.Go(func() error {
			directStates[i], directStatus[i] = a.readDirect(ctx, child)
			return nil
		})
	}
	_ = g.Wait()

	var states []light.State
	for i, b := range batches {
		st, statuses := a.applyRead(id, b, reads[i])
		states = append(states, st...)
		res.Children = append(res.Children, statuses...)
	}
	for i := range direct {
		if !directStatus[i].OK() {
			a.childFailed(OpResolve, id, directStatus[i])
		}
		states = append(states, directStates[i])
		res.Children = append(res.Children, directStatus[i])
	}

	parent.MergeState(Aggregate(states))
	res.State = parent.State()

	a.logger.Debug("virtual light resolved",
		"light_id", id,
		"children", len(res.Children),
		"failed", len(res.Failed()),
		"endpoints", len(batches),
	)
	return a.finish(ctx, res, started)
}

type readResult struct {
	channels map[int]light.State
	err      error
}

// applyRead copies an endpoint read into the children of batch b and
// returns their states.
func (a *Aggregator) applyRead(parentID string, b endpoint.Batch, r readResult) ([]light.State, []ChildStatus) {
	if r.err != nil {
		a.logger.Warn("endpoint read failed",
			"light_id", parentID,
			"address", b.Address,
			"child_ids", b.LightIDs(),
			"kind", KindEndpoint,
			"error", r.err,
		)
	}

	var states []light.State
	var statuses []ChildStatus
	for _, cp := range b.Channels {
		child, found := a.lights.Get(cp.LightID)
		if !found {
			statuses = append(statuses, ChildStatus{LightID: cp.LightID, Address: b.Address, Kind: KindUnresolved, Err: light.ErrLightNotFound})
			continue
		}

		st := ChildStatus{LightID: cp.LightID, Address: b.Address}
		switch reported, ok := r.channels[cp.Channel]; {
		case r.err != nil:
			child.SetReachable(false)
			st.Kind, st.Err = KindEndpoint, r.err
		case !ok:
			child.SetReachable(false)
			st.Kind = KindEndpoint
			st.Err = fmt.Errorf("%w: channel %d on %s", driver.ErrNoState, cp.Channel, b.Address)
			a.childFailed(OpResolve, parentID, st)
		default:
			patch := reported.Filter(light.RecognisedFields())
			if _, has := patch[light.FieldReachable]; !has {
				patch[light.FieldReachable] = true
			}
			child.MergeState(patch)
		}

		cached := child.State()
		st.Reachable = cached.Reachable()
		states = append(states, cached)
		statuses = append(statuses, st)
	}
	return states, statuses
}

// readDirect queries a child through its driver, falling back to its
// cached state and then to fallbackState.
func (a *Aggregator) readDirect(ctx context.Context, child *light.Light) (light.State, ChildStatus) {
	st := ChildStatus{LightID: child.ID}

	if reader, ok := a.drivers.Reader(child.Protocol); ok {
		reported, err := reader.GetState(ctx, child)
		switch {
		case err != nil:
			st.Kind, st.Err = kindOf(err), err
		case len(reported) > 0:
			child.MergeState(reported)
		}
		if err == nil && len(reported) > 0 {
			state := child.State()
			st.Reachable = state.Reachable()
			return state, st
		}
	}

	state := child.State()
	if len(state) == 0 {
		state = fallbackState()
	}
	st.Reachable = state.Reachable()
	return state, st
}

// Aggregate collapses child states into a virtual light's on, bri and
// reachable. Brightness counts every child with a valid value, whether on
// or off.
func Aggregate(states []light.State) light.State {
	on, reachable := false, false
	sum, n := 0, 0
	for _, st := range states {
		if v, _ := st.On(); v {
			on = true
		}
		if bri, ok := st.Bri(); ok {
			sum += bri
			n++
		}
		if st.Reachable() {
			reachable = true
		}
	}

	bri := defaultBri
	if n > 0 {
		bri = sum / n
	}
	return light.State{
		light.FieldOn:        on,
		light.FieldBri:       bri,
		light.FieldReachable: reachable,
	}
}
