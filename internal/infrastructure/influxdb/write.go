package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MeasurementLightState is the measurement light snapshots are written to.
const MeasurementLightState = "light_state"

// LightSample is one observation of a light's aggregate state.
type LightSample struct {
	LightID   string
	Source    string // "resolve" or "apply"
	On        bool
	Bri       int
	Reachable bool

	// Children is how many child lights contributed; Failed how many of
	// those reported an error.
	Children int
	Failed   int

	Time time.Time
}

// WriteLightState queues s for writing. Points are dropped silently while
// disconnected.
func (c *Client) WriteLightState(s LightSample) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(lightStatePoint(s))
}

func lightStatePoint(s LightSample) *write.Point {
	ts := s.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	return write.NewPoint(
		MeasurementLightState,
		map[string]string{
			"light_id": s.LightID,
			"source":   s.Source,
		},
		map[string]any{
			"on":        s.On,
			"bri":       s.Bri,
			"reachable": s.Reachable,
			"children":  s.Children,
			"failed":    s.Failed,
		},
		ts,
	)
}
