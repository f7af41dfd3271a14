package virtual

import (
	"context"
	"time"

	"github.com/nerrad567/graylight/internal/driver"
	"github.com/nerrad567/graylight/internal/light"
)

// Drivers looks up protocol drivers. Implemented by *driver.Registry.
type Drivers interface {
	Setter(protocol light.Protocol) (driver.Setter, bool)
	Reader(protocol light.Protocol) (driver.StateReader, bool)
}

// EndpointClient performs batched endpoint requests. Implemented by
// *endpoint.Client.
type EndpointClient interface {
	Write(ctx context.Context, address string, channels map[int]light.State) error
	Read(ctx context.Context, address string) (map[int]light.State, error)
}

// Recorder receives the result of every completed apply and resolve.
type Recorder interface {
	Record(ctx context.Context, res Result)
}

// Logger defines the logging interface used by the virtual package.
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

// Config tunes fan-out and fan-in.
type Config struct {
	// MaxConcurrency limits concurrent child requests in one operation.
	MaxConcurrency int

	// MaxDepth bounds virtual-of-virtual nesting.
	MaxDepth int
}

func (c Config) withDefaults() Config {
	if c.MaxConcurrency < 1 {
		c.MaxConcurrency = 8
	}
	if c.MaxDepth < 1 {
		c.MaxDepth = DefaultMaxDepth
	}
	return c
}

// core holds what the forwarder and aggregator share.
type core struct {
	lights    Registry
	resolver  *Resolver
	drivers   Drivers
	endpoints EndpointClient
	cfg       Config
	logger    Logger
	metrics   *Metrics
	recorder  Recorder
}

func newCore(lights Registry, drivers Drivers, endpoints EndpointClient, cfg Config, logger Logger) core {
	if logger == nil {
		logger = noopLogger{}
	}
	return core{
		lights:    lights,
		resolver:  NewResolver(lights),
		drivers:   drivers,
		endpoints: endpoints,
		cfg:       cfg.withDefaults(),
		logger:    logger,
	}
}

// begin looks up the virtual light id and enters it on the cycle chain.
// On failure res.Err is set and the returned light is nil.
func (c *core) begin(ctx context.Context, res *Result) (context.Context, *light.Light) {
	parent, ok := c.lights.Get(res.LightID)
	if !ok {
		res.Err = light.ErrLightNotFound
		return ctx, nil
	}
	ctx, err := enter(ctx, res.LightID, c.cfg.MaxDepth)
	if err != nil {
		res.Err = err
		res.State = parent.State()
		c.logger.Error("virtual light cycle",
			"light_id", res.LightID,
			"op", res.Op,
			"kind", KindCycle,
			"error", err,
		)
		return ctx, nil
	}
	return ctx, parent
}

// finish records metrics and hands a completed result to the recorder.
func (c *core) finish(ctx context.Context, res Result, started time.Time) Result {
	c.metrics.observe(res, started)
	if c.recorder != nil && res.Err == nil {
		c.recorder.Record(ctx, res)
	}
	return res
}

func (c *core) unresolved(ids []string, op, parentID string) []ChildStatus {
	out := make([]ChildStatus, 0, len(ids))
	for _, id := range ids {
		c.logger.Debug("child light not found",
			"light_id", parentID,
			"child_id", id,
			"op", op,
			"kind", KindUnresolved,
		)
		out = append(out, ChildStatus{LightID: id, Kind: KindUnresolved, Err: light.ErrLightNotFound})
	}
	return out
}

func (c *core) childFailed(op, parentID string, st ChildStatus) {
	c.logger.Warn("child light failed",
		"light_id", parentID,
		"child_id", st.LightID,
		"address", st.Address,
		"op", op,
		"kind", st.Kind,
		"error", st.Err,
	)
}
