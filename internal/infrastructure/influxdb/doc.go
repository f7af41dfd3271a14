// Package influxdb records light telemetry in InfluxDB v2.
//
// Every time a virtual light is resolved or commanded, the resulting
// on/bri/reachable triple is written as a light_state point tagged with the
// light ID, so dashboards can chart how the composite behaved over time.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // telemetry is optional
//	}
//	defer client.Close()
//
//	client.WriteLightState(influxdb.LightSample{LightID: "10", On: true, Bri: 118})
//
// # Error Handling
//
// Writes are non-blocking and batched (batch_size, flush_interval). Batch
// failures are delivered to the SetOnError callback wrapped in
// ErrWriteFailed. Connection and health check errors are returned directly.
package influxdb
