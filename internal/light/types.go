package light

import (
	"math"
	"sync"
)

// Light is a logical light known to the bridge.
//
// Identity and protocol fields are fixed once the light is registered;
// only the cached state changes, and it is guarded by the light's own
// mutex. Callers must not hold a *Light across operations: the registry
// may swap entries at any time, so resolve by ID each time.
type Light struct {
	ID       string
	Name     string
	Protocol Protocol
	Type     Type

	// ProtocolConfig holds protocol-specific settings, e.g.
	//
	//	virtual:      {"linked_lights": ["3", "4", "5"]}
	//	native_multi: {"ip": "192.168.1.50", "light_nr": 2}
	//	mqtt:         {"command_topic": "zigbee2mqtt/hall/set", "friendly_name": "hall"}
	ProtocolConfig map[string]any

	mu    sync.RWMutex
	state State
}

// New builds a Light from its definition. Config and state maps are copied.
func New(def Definition) *Light {
	return &Light{
		ID:             def.ID,
		Name:           def.Name,
		Protocol:       def.Protocol,
		Type:           def.Type,
		ProtocolConfig: deepCopyMap(def.ProtocolConfig),
		state:          State(deepCopyMap(def.State)),
	}
}

// State returns a deep copy of the cached state.
func (l *Light) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return State(deepCopyMap(l.state))
}

// MergeState copies every key of patch into the cached state.
func (l *Light) MergeState(patch State) {
	if len(patch) == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == nil {
		l.state = make(State, len(patch))
	}
	for k, v := range patch {
		l.state[k] = deepCopyValue(v)
	}
}

// SetReachable sets the cached reachable flag without touching other keys.
func (l *Light) SetReachable(reachable bool) {
	l.MergeState(State{FieldReachable: reachable})
}

// Reachable reports the cached reachable flag. A light that has never
// reported one is treated as reachable.
func (l *Light) Reachable() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Reachable()
}

// ReportedReachable reports the cached reachable flag, treating a light
// that has never reported one as unreachable.
func (l *Light) ReportedReachable() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.ReportedReachable()
}

// IsVirtual reports whether the light is a composite of other lights.
func (l *Light) IsVirtual() bool {
	return l.Protocol == ProtocolVirtual
}

// Definition returns the light's current definition, including a copy of
// its cached state.
func (l *Light) Definition() Definition {
	return Definition{
		ID:             l.ID,
		Name:           l.Name,
		Protocol:       l.Protocol,
		Type:           l.Type,
		ProtocolConfig: deepCopyMap(l.ProtocolConfig),
		State:          l.State(),
	}
}

// Definition is the serialisable form of a light, as found in the lights
// file and returned by the API.
type Definition struct {
	ID             string         `yaml:"id" json:"id"`
	Name           string         `yaml:"name" json:"name"`
	Protocol       Protocol       `yaml:"protocol" json:"protocol"`
	Type           Type           `yaml:"type,omitempty" json:"type,omitempty"`
	ProtocolConfig map[string]any `yaml:"protocol_cfg,omitempty" json:"protocol_cfg,omitempty"`
	State          State          `yaml:"state,omitempty" json:"state"`
}

// Protocol tags which driver handles a light.
type Protocol string

// Protocol constants.
const (
	ProtocolVirtual     Protocol = "virtual"
	ProtocolNativeMulti Protocol = "native_multi"
	ProtocolMQTT        Protocol = "mqtt"
	ProtocolMemory      Protocol = "memory"
)

// Recognised state keys.
const (
	FieldOn        = "on"
	FieldBri       = "bri"
	FieldHue       = "hue"
	FieldSat       = "sat"
	FieldXY        = "xy"
	FieldCT        = "ct"
	FieldColorMode = "colormode"
	FieldReachable = "reachable"
)

// RecognisedFields lists every state key the bridge understands.
func RecognisedFields() []string {
	return []string{FieldOn, FieldBri, FieldHue, FieldSat, FieldXY, FieldCT, FieldColorMode, FieldReachable}
}

// Type is a light's device class.
type Type string

// Device classes.
const (
	TypeOnOff            Type = "on_off"
	TypeDimmable         Type = "dimmable"
	TypeColorTemperature Type = "color_temperature"
	TypeColor            Type = "color"
	TypeExtendedColor    Type = "extended_color"
)

// Fields names the command fields meaningful to this device class. An
// empty or unknown class accepts every recognised field.
func (t Type) Fields() []string {
	switch t {
	case TypeOnOff:
		return []string{FieldOn}
	case TypeDimmable:
		return []string{FieldOn, FieldBri}
	case TypeColorTemperature:
		return []string{FieldOn, FieldBri, FieldCT, FieldColorMode}
	case TypeColor:
		return []string{FieldOn, FieldBri, FieldHue, FieldSat, FieldXY, FieldColorMode}
	default:
		return []string{FieldOn, FieldBri, FieldHue, FieldSat, FieldXY, FieldCT, FieldColorMode}
	}
}

// State is a light's state as a loose map, e.g. {"on": true, "bri": 200}.
type State map[string]any

// On returns the "on" flag and whether it was present as a bool.
func (s State) On() (on, ok bool) {
	on, ok = s[FieldOn].(bool)
	return on, ok
}

// maxBri bounds accepted brightness values so sums over many children
// cannot overflow.
const maxBri = math.MaxInt32

// Bri returns the brightness if it is a whole number in [0, maxBri]. JSON
// numbers decode as float64, so integral floats are accepted.
func (s State) Bri() (int, bool) {
	switch v := s[FieldBri].(type) {
	case int:
		return briInRange(int64(v))
	case int64:
		return briInRange(v)
	case int32:
		return briInRange(int64(v))
	case uint8:
		return int(v), true
	case uint:
		if v > maxBri {
			return 0, false
		}
		return int(v), true
	case float64:
		if v < 0 || v != math.Trunc(v) || v > maxBri {
			return 0, false
		}
		return int(v), true
	default:
		return 0, false
	}
}

func briInRange(v int64) (int, bool) {
	if v < 0 || v > maxBri {
		return 0, false
	}
	return int(v), true
}

// Reachable returns the "reachable" flag, treating an absent or non-bool
// value as reachable.
func (s State) Reachable() bool {
	r, ok := s[FieldReachable].(bool)
	return !ok || r
}

// ReportedReachable returns the "reachable" flag only when it is present as
// a bool; absent or malformed values count as unreachable.
func (s State) ReportedReachable() bool {
	r, ok := s[FieldReachable].(bool)
	return ok && r
}

// Filter returns a copy of s holding only the given keys.
func (s State) Filter(keys []string) State {
	out := make(State, len(keys))
	for _, k := range keys {
		if v, ok := s[k]; ok {
			out[k] = deepCopyValue(v)
		}
	}
	return out
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	return State(deepCopyMap(s))
}

func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cpy := make(map[string]any, len(m))
	for k, v := range m {
		cpy[k] = deepCopyValue(v)
	}
	return cpy
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case State:
		return State(deepCopyMap(val))
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = deepCopyValue(elem)
		}
		return cpy
	case []float64:
		return append([]float64(nil), val...)
	default:
		return v
	}
}
