package mqtt

import "strings"

// StatusTopic carries graylight's own online/offline status (retained, and
// used as the Last Will topic).
const StatusTopic = "graylight/system/status"

// Topics builds zigbee2mqtt topic names under a configurable base topic.
//
//	t := mqtt.Topics{Base: "zigbee2mqtt"}
//	t.DeviceSet("hallway_bulb") // "zigbee2mqtt/hallway_bulb/set"
type Topics struct {
	Base string
}

func (t Topics) base() string {
	if t.Base == "" {
		return "zigbee2mqtt"
	}
	return strings.TrimSuffix(t.Base, "/")
}

// DeviceState is the topic zigbee2mqtt publishes a device's state on.
func (t Topics) DeviceState(friendlyName string) string {
	return t.base() + "/" + friendlyName
}

// DeviceSet is the topic a device listens on for commands.
func (t Topics) DeviceSet(friendlyName string) string {
	return t.base() + "/" + friendlyName + "/set"
}

// DeviceGet asks zigbee2mqtt to publish a fresh state for the device.
func (t Topics) DeviceGet(friendlyName string) string {
	return t.base() + "/" + friendlyName + "/get"
}

// AllDeviceStates matches every device state topic. Bridge topics also
// match and must be filtered by the subscriber.
func (t Topics) AllDeviceStates() string {
	return t.base() + "/+"
}

// BridgeLog is where zigbee2mqtt reports delivery failures.
func (t Topics) BridgeLog() string {
	return t.base() + "/bridge/log"
}

// FriendlyName extracts the device name from a state topic. ok is false
// for bridge topics and anything outside the base topic.
func (t Topics) FriendlyName(topic string) (name string, ok bool) {
	rest, found := strings.CutPrefix(topic, t.base()+"/")
	if !found || rest == "" || strings.Contains(rest, "/") || rest == "bridge" {
		return "", false
	}
	return rest, true
}
