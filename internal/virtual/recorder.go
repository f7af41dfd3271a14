package virtual

import (
	"context"
	"time"

	"github.com/nerrad567/graylight/internal/infrastructure/influxdb"
	"github.com/nerrad567/graylight/internal/light"
)

// TelemetryWriter queues light samples. Implemented by *influxdb.Client.
type TelemetryWriter interface {
	WriteLightState(s influxdb.LightSample)
}

// HistoryRecorder stores every completed result in the state history and,
// when configured, as telemetry. Either sink may be nil.
type HistoryRecorder struct {
	history   light.HistoryRepository
	telemetry TelemetryWriter
	logger    Logger
}

// NewHistoryRecorder creates a recorder writing to history and telemetry.
func NewHistoryRecorder(history light.HistoryRepository, telemetry TelemetryWriter, logger Logger) *HistoryRecorder {
	if logger == nil {
		logger = noopLogger{}
	}
	return &HistoryRecorder{history: history, telemetry: telemetry, logger: logger}
}

// Record stores res. Storage failures are logged, not returned.
func (r *HistoryRecorder) Record(ctx context.Context, res Result) {
	source := light.HistorySourceResolve
	if res.Op == OpApply {
		source = light.HistorySourceApply
	}
	r.store(ctx, res.LightID, res.State, source)

	if r.telemetry == nil {
		return
	}
	on, _ := res.State.On()
	bri, _ := res.State.Bri()
	r.telemetry.WriteLightState(influxdb.LightSample{
		LightID:   res.LightID,
		Source:    source,
		On:        on,
		Bri:       bri,
		Reachable: res.State.Reachable(),
		Children:  res.Count(),
		Failed:    len(res.Failed()),
		Time:      time.Now().UTC(),
	})
}

// Advertise stores a state change made on a single light. Its signature
// matches driver.Advertiser.
func (r *HistoryRecorder) Advertise(ctx context.Context, lightID string, state light.State, source string) {
	r.store(ctx, lightID, state, source)
}

func (r *HistoryRecorder) store(ctx context.Context, lightID string, state light.State, source string) {
	if r.history == nil {
		return
	}
	if err := r.history.Record(ctx, lightID, state, source); err != nil {
		r.logger.Error("failed to record light state",
			"light_id", lightID,
			"source", source,
			"error", err,
		)
	}
}
