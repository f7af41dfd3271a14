// Package mqtt connects graylight to an MQTT broker so child lights paired
// through zigbee2mqtt can be commanded and observed.
//
// This package manages:
//   - Connection with auto-reconnect and subscription replay
//   - Publishing with QoS and context-bounded waits
//   - Wildcard subscriptions with panic-safe handlers
//   - A retained online/offline status with Last Will
//
// # Topics
//
// zigbee2mqtt publishes device state on <base>/<friendly_name> and accepts
// commands on <base>/<friendly_name>/set. Delivery failures are reported on
// <base>/bridge/log. Topics builds these names:
//
//	t := mqtt.Topics{Base: cfg.MQTT.BaseTopic}
//	err := client.Publish(ctx, t.DeviceSet("hallway_bulb"), payload, client.QoS(), false)
//
// # Usage
//
//	client, err := mqtt.Connect(ctx, cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(ctx, t.AllDeviceStates(), 1,
//	    func(topic string, payload []byte) error {
//	        name, ok := t.FriendlyName(topic)
//	        ...
//	    })
package mqtt
