package mqtt

import "testing"

func TestTopics(t *testing.T) {
	tp := Topics{Base: "z2m/"}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"device state", tp.DeviceState("hall"), "z2m/hall"},
		{"device set", tp.DeviceSet("hall"), "z2m/hall/set"},
		{"device get", tp.DeviceGet("hall"), "z2m/hall/get"},
		{"all states", tp.AllDeviceStates(), "z2m/+"},
		{"bridge log", tp.BridgeLog(), "z2m/bridge/log"},
		{"default base", Topics{}.DeviceSet("x"), "zigbee2mqtt/x/set"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestTopics_FriendlyName(t *testing.T) {
	tp := Topics{Base: "zigbee2mqtt"}

	tests := []struct {
		topic  string
		want   string
		wantOK bool
	}{
		{"zigbee2mqtt/hallway_bulb", "hallway_bulb", true},
		{"zigbee2mqtt/bridge", "", false},
		{"zigbee2mqtt/bridge/log", "", false},
		{"zigbee2mqtt/hallway_bulb/set", "", false},
		{"zigbee2mqtt/", "", false},
		{"other/hallway_bulb", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			got, ok := tp.FriendlyName(tt.topic)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("FriendlyName(%q) = (%q, %v), want (%q, %v)", tt.topic, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
