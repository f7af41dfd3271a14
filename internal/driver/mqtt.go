package driver

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/graylight/internal/infrastructure/mqtt"
	"github.com/nerrad567/graylight/internal/light"
)

// zigbee2mqtt bridge log message types the driver reacts to.
const (
	bridgeLogPublishError   = "zigbee_publish_error"
	bridgeLogDeviceAnnounce = "device_announced"
)

const mqttRestoreTimeout = 5 * time.Second

// Publisher sends MQTT messages. Implemented by *mqtt.Client.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte, qos byte, retained bool) error
	QoS() byte
}

// Subscriber registers MQTT handlers. Implemented by *mqtt.Client.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string, qos byte, handler mqtt.MessageHandler) error
}

// LightLister enumerates registered lights. Implemented by *light.Registry.
type LightLister interface {
	List() []*light.Light
}

// MQTTDriver drives zigbee2mqtt lights.
//
// Commands go to the light's command_topic, or <base>/<friendly_name>/set.
// zigbee2mqtt cannot be queried synchronously, so the driver has no
// StateReader: Start subscribes to device state topics and keeps each
// light's cached state current instead.
type MQTTDriver struct {
	pub    Publisher
	topics mqtt.Topics
	lights LightLister
	logger Logger
}

// NewMQTTDriver creates a zigbee2mqtt driver publishing through pub.
func NewMQTTDriver(pub Publisher, topics mqtt.Topics, lights LightLister) *MQTTDriver {
	return &MQTTDriver{
		pub:    pub,
		topics: topics,
		lights: lights,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the driver.
func (d *MQTTDriver) SetLogger(logger Logger) {
	if logger != nil {
		d.logger = logger
	}
}

// SetState publishes the class-relevant fields of delta as a zigbee2mqtt
// command. A failed publish marks the light unreachable.
func (d *MQTTDriver) SetState(ctx context.Context, l *light.Light, delta light.State, _ SetOptions) error {
	topic, err := d.commandTopic(l)
	if err != nil {
		l.SetReachable(false)
		return err
	}

	fields := commandFields(l, delta)
	payload, err := json.Marshal(commandPayload(fields))
	if err != nil {
		return fmt.Errorf("encoding command for light %s: %w", l.ID, err)
	}

	commandID := uuid.NewString()
	if err := d.pub.Publish(ctx, topic, payload, d.pub.QoS(), false); err != nil {
		l.SetReachable(false)
		d.logger.Warn("mqtt command failed",
			"light_id", l.ID,
			"topic", topic,
			"command_id", commandID,
			"error", err,
		)
		return err
	}

	d.logger.Debug("mqtt command published",
		"light_id", l.ID,
		"topic", topic,
		"command_id", commandID,
	)
	l.MergeState(fields)
	return nil
}

// Start subscribes to device state and bridge log topics. Subscriptions
// survive reconnects; call once after the MQTT client connects.
func (d *MQTTDriver) Start(ctx context.Context, sub Subscriber) error {
	if err := sub.Subscribe(ctx, d.topics.AllDeviceStates(), d.pub.QoS(), d.HandleState); err != nil {
		return fmt.Errorf("subscribing to device states: %w", err)
	}
	if err := sub.Subscribe(ctx, d.topics.BridgeLog(), d.pub.QoS(), d.HandleBridgeLog); err != nil {
		return fmt.Errorf("subscribing to bridge log: %w", err)
	}
	return nil
}

// HandleState merges a device state message into the matching light.
// Messages for unknown devices are ignored.
func (d *MQTTDriver) HandleState(topic string, payload []byte) error {
	name, ok := d.topics.FriendlyName(topic)
	if !ok {
		return nil
	}
	l := d.findByName(name)
	if l == nil {
		return nil
	}

	var msg map[string]any
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("decoding state for %s: %w", name, err)
	}

	l.MergeState(stateFromDevice(msg))
	return nil
}

// bridgeLogMessage is the subset of a zigbee2mqtt bridge/log message used.
type bridgeLogMessage struct {
	Type    string `json:"type"`
	Message any    `json:"message"`
	Meta    struct {
		FriendlyName string `json:"friendly_name"`
	} `json:"meta"`
}

// HandleBridgeLog marks lights unreachable on publish errors and restores
// the last on/off state of a light whose device re-announces itself after
// a power cut.
func (d *MQTTDriver) HandleBridgeLog(_ string, payload []byte) error {
	var msg bridgeLogMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("decoding bridge log: %w", err)
	}
	if msg.Meta.FriendlyName == "" {
		return nil
	}
	l := d.findByName(msg.Meta.FriendlyName)
	if l == nil {
		return nil
	}

	switch msg.Type {
	case bridgeLogPublishError:
		d.logger.Warn("zigbee publish error", "light_id", l.ID, "friendly_name", msg.Meta.FriendlyName)
		l.SetReachable(false)
	case bridgeLogDeviceAnnounce:
		on, ok := l.State().On()
		if !ok {
			return nil
		}
		topic, err := d.commandTopic(l)
		if err != nil {
			return err
		}
		body, err := json.Marshal(commandPayload(light.State{light.FieldOn: on}))
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), mqttRestoreTimeout)
		defer cancel()
		d.logger.Info("restoring state after device announce", "light_id", l.ID, "on", on)
		return d.pub.Publish(ctx, topic, body, d.pub.QoS(), false)
	}
	return nil
}

func (d *MQTTDriver) commandTopic(l *light.Light) (string, error) {
	cfg, err := light.DecodeMQTTConfig(l.ProtocolConfig)
	if err != nil {
		return "", fmt.Errorf("light %s: %w", l.ID, err)
	}
	if cfg.CommandTopic != "" {
		return cfg.CommandTopic, nil
	}
	return d.topics.DeviceSet(friendlyName(l, cfg)), nil
}

func (d *MQTTDriver) findByName(name string) *light.Light {
	for _, l := range d.lights.List() {
		if l.Protocol != light.ProtocolMQTT {
			continue
		}
		cfg, err := light.DecodeMQTTConfig(l.ProtocolConfig)
		if err != nil {
			continue
		}
		if friendlyName(l, cfg) == name {
			return l
		}
	}
	return nil
}

func friendlyName(l *light.Light, cfg light.MQTTConfig) string {
	if cfg.FriendlyName != "" {
		return cfg.FriendlyName
	}
	return l.Name
}

// commandPayload converts bridge state fields to a zigbee2mqtt set payload.
func commandPayload(fields light.State) map[string]any {
	out := make(map[string]any, len(fields))
	if on, ok := fields.On(); ok {
		if on {
			out["state"] = "ON"
		} else {
			out["state"] = "OFF"
		}
	}
	if bri, ok := fields.Bri(); ok {
		out["brightness"] = bri
	}
	if ct, ok := toFloat(fields[light.FieldCT]); ok {
		out["color_temp"] = int(ct)
	}

	color := map[string]any{}
	if x, y, ok := toXY(fields[light.FieldXY]); ok {
		color["x"] = x
		color["y"] = y
	}
	if hue, ok := toFloat(fields[light.FieldHue]); ok {
		color["hue"] = math.Round(hue * 360 / 65536)
	}
	if sat, ok := toFloat(fields[light.FieldSat]); ok {
		color["saturation"] = math.Round(sat * 100 / 254)
	}
	if len(color) > 0 {
		out["color"] = color
	}
	return out
}

// stateFromDevice converts a zigbee2mqtt state message to bridge fields.
// A device that publishes is reachable.
func stateFromDevice(msg map[string]any) light.State {
	st := light.State{light.FieldReachable: true}
	if s, ok := msg["state"].(string); ok {
		st[light.FieldOn] = s == "ON"
	}
	if b, ok := toFloat(msg["brightness"]); ok {
		st[light.FieldBri] = int(b)
	}
	if ct, ok := toFloat(msg["color_temp"]); ok {
		st[light.FieldCT] = int(ct)
	}
	if c, ok := msg["color"].(map[string]any); ok {
		x, xok := toFloat(c["x"])
		y, yok := toFloat(c["y"])
		if xok && yok {
			st[light.FieldXY] = []any{x, y}
		}
	}
	switch msg["color_mode"] {
	case "color_temp":
		st[light.FieldColorMode] = "ct"
	case "xy":
		st[light.FieldColorMode] = "xy"
	case "hs":
		st[light.FieldColorMode] = "hs"
	}
	return st
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func toXY(v any) (x, y float64, ok bool) {
	switch xy := v.(type) {
	case []float64:
		if len(xy) == 2 {
			return xy[0], xy[1], true
		}
	case []any:
		if len(xy) == 2 {
			x, xok := toFloat(xy[0])
			y, yok := toFloat(xy[1])
			return x, y, xok && yok
		}
	}
	return 0, 0, false
}
