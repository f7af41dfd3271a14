package driver

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nerrad567/graylight/internal/infrastructure/mqtt"
	"github.com/nerrad567/graylight/internal/light"
)

type published struct {
	topic   string
	payload []byte
}

// mockBroker implements Publisher and Subscriber.
type mockBroker struct {
	published []published
	handlers  map[string]mqtt.MessageHandler
	err       error
}

func (b *mockBroker) Publish(_ context.Context, topic string, payload []byte, _ byte, _ bool) error {
	if b.err != nil {
		return b.err
	}
	b.published = append(b.published, published{topic: topic, payload: payload})
	return nil
}

func (b *mockBroker) QoS() byte { return 1 }

func (b *mockBroker) Subscribe(_ context.Context, topic string, _ byte, handler mqtt.MessageHandler) error {
	if b.handlers == nil {
		b.handlers = make(map[string]mqtt.MessageHandler)
	}
	b.handlers[topic] = handler
	return nil
}

type lightList []*light.Light

func (l lightList) List() []*light.Light { return l }

func mqttLight(id, name string, cfg map[string]any) *light.Light {
	return light.New(light.Definition{
		ID:             id,
		Name:           name,
		Protocol:       light.ProtocolMQTT,
		ProtocolConfig: cfg,
	})
}

func TestMQTTDriver_SetState(t *testing.T) {
	tests := []struct {
		name      string
		cfg       map[string]any
		delta     light.State
		wantTopic string
		want      map[string]any
	}{
		{
			name:      "default topic",
			cfg:       map[string]any{"friendly_name": "hall"},
			delta:     light.State{"on": true, "bri": 128},
			wantTopic: "zigbee2mqtt/hall/set",
			want:      map[string]any{"state": "ON", "brightness": float64(128)},
		},
		{
			name:      "command topic override",
			cfg:       map[string]any{"command_topic": "z2m/custom/set"},
			delta:     light.State{"on": false},
			wantTopic: "z2m/custom/set",
			want:      map[string]any{"state": "OFF"},
		},
		{
			name:      "name fallback",
			cfg:       nil,
			delta:     light.State{"ct": 350},
			wantTopic: "zigbee2mqtt/Desk/set",
			want:      map[string]any{"color_temp": float64(350)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			broker := &mockBroker{}
			d := NewMQTTDriver(broker, mqtt.Topics{Base: "zigbee2mqtt"}, lightList{})
			l := mqttLight("1", "Desk", tt.cfg)

			if err := d.SetState(context.Background(), l, tt.delta, SetOptions{}); err != nil {
				t.Fatalf("SetState() error = %v", err)
			}
			if len(broker.published) != 1 {
				t.Fatalf("published %d messages, want 1", len(broker.published))
			}
			msg := broker.published[0]
			if msg.topic != tt.wantTopic {
				t.Errorf("topic = %q, want %q", msg.topic, tt.wantTopic)
			}

			var got map[string]any
			if err := json.Unmarshal(msg.payload, &got); err != nil {
				t.Fatalf("payload not JSON: %v", err)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("payload[%q] = %v, want %v", k, got[k], v)
				}
			}
			if len(got) != len(tt.want) {
				t.Errorf("payload = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMQTTDriver_SetState_PublishFailure(t *testing.T) {
	broker := &mockBroker{err: mqtt.ErrNotConnected}
	d := NewMQTTDriver(broker, mqtt.Topics{}, lightList{})
	l := mqttLight("1", "hall", nil)

	err := d.SetState(context.Background(), l, light.State{"on": true}, SetOptions{})
	if !errors.Is(err, mqtt.ErrNotConnected) {
		t.Errorf("SetState() error = %v, want ErrNotConnected", err)
	}
	if l.Reachable() {
		t.Error("light reachable after failed publish")
	}
}

func TestCommandPayload_Color(t *testing.T) {
	got := commandPayload(light.State{"xy": []any{0.3, 0.4}, "hue": 32768, "sat": 254})
	color, ok := got["color"].(map[string]any)
	if !ok {
		t.Fatalf("color = %v, want map", got["color"])
	}
	if color["x"] != 0.3 || color["y"] != 0.4 {
		t.Errorf("xy = (%v, %v), want (0.3, 0.4)", color["x"], color["y"])
	}
	if color["hue"] != float64(180) {
		t.Errorf("hue = %v, want 180", color["hue"])
	}
	if color["saturation"] != float64(100) {
		t.Errorf("saturation = %v, want 100", color["saturation"])
	}
}

func TestMQTTDriver_Start_HandlesMessages(t *testing.T) {
	broker := &mockBroker{}
	hall := mqttLight("1", "hall", nil)
	other := mqttLight("2", "porch", map[string]any{"friendly_name": "porch_bulb"})
	d := NewMQTTDriver(broker, mqtt.Topics{Base: "zigbee2mqtt"}, lightList{hall, other})

	if err := d.Start(context.Background(), broker); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	stateHandler := broker.handlers["zigbee2mqtt/+"]
	logHandler := broker.handlers["zigbee2mqtt/bridge/log"]
	if stateHandler == nil || logHandler == nil {
		t.Fatalf("handlers = %v, want state and bridge log", broker.handlers)
	}

	t.Run("state message", func(t *testing.T) {
		if err := stateHandler("zigbee2mqtt/porch_bulb", []byte(`{"state":"ON","brightness":77,"linkquality":90}`)); err != nil {
			t.Fatalf("handler error = %v", err)
		}
		st := other.State()
		if on, _ := st.On(); !on {
			t.Error("on = false, want true")
		}
		if bri, _ := st.Bri(); bri != 77 {
			t.Errorf("bri = %d, want 77", bri)
		}
		if !st.Reachable() {
			t.Error("reachable = false, want true")
		}
	})

	t.Run("unknown device ignored", func(t *testing.T) {
		if err := stateHandler("zigbee2mqtt/garage", []byte(`{"state":"ON"}`)); err != nil {
			t.Errorf("handler error = %v, want nil", err)
		}
	})

	t.Run("malformed state", func(t *testing.T) {
		if err := stateHandler("zigbee2mqtt/hall", []byte(`{`)); err == nil {
			t.Error("handler error = nil, want decode error")
		}
	})

	t.Run("publish error marks unreachable", func(t *testing.T) {
		msg := `{"type":"zigbee_publish_error","message":"no response","meta":{"friendly_name":"hall"}}`
		if err := logHandler("zigbee2mqtt/bridge/log", []byte(msg)); err != nil {
			t.Fatalf("handler error = %v", err)
		}
		if hall.Reachable() {
			t.Error("hall reachable after publish error")
		}
	})

	t.Run("device announce restores state", func(t *testing.T) {
		before := len(broker.published)
		msg := `{"type":"device_announced","message":"announce","meta":{"friendly_name":"porch_bulb"}}`
		if err := logHandler("zigbee2mqtt/bridge/log", []byte(msg)); err != nil {
			t.Fatalf("handler error = %v", err)
		}
		if len(broker.published) != before+1 {
			t.Fatalf("published %d, want %d", len(broker.published), before+1)
		}
		last := broker.published[len(broker.published)-1]
		if last.topic != "zigbee2mqtt/porch_bulb/set" || string(last.payload) != `{"state":"ON"}` {
			t.Errorf("restore = %s %s", last.topic, last.payload)
		}
	})
}
