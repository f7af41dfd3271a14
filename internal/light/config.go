package light

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Protocol config keys.
const (
	ConfigLinkedLights = "linked_lights"
	ConfigAddress      = "ip"
	ConfigChannel      = "light_nr"
)

// VirtualConfig is the protocol config of a virtual light.
type VirtualConfig struct {
	// LinkedLights is the ordered list of child light IDs.
	LinkedLights []string `mapstructure:"linked_lights"`
}

// EndpointConfig locates a light on a multi-channel network endpoint.
type EndpointConfig struct {
	// Address is the endpoint's host (IP or host:port).
	Address string `mapstructure:"ip"`

	// Channel is the light's index on the endpoint.
	Channel int `mapstructure:"light_nr"`
}

// MQTTConfig is the protocol config of a zigbee2mqtt light.
type MQTTConfig struct {
	// FriendlyName is the device's zigbee2mqtt name.
	FriendlyName string `mapstructure:"friendly_name"`

	// CommandTopic overrides <base>/<friendly_name>/set.
	CommandTopic string `mapstructure:"command_topic"`
}

// DecodeVirtualConfig reads linked_lights from cfg. Numeric IDs are
// accepted and converted to strings.
//
// Returns ErrNoChildrenConfigured when the key is absent.
func DecodeVirtualConfig(cfg map[string]any) (VirtualConfig, error) {
	var out VirtualConfig
	if _, ok := cfg[ConfigLinkedLights]; !ok {
		return out, ErrNoChildrenConfigured
	}
	if err := decode(cfg, &out); err != nil {
		return out, err
	}
	return out, nil
}

// DecodeEndpointConfig reads the endpoint address and channel from cfg.
// The channel may be given as a number or a numeric string.
//
// Returns ErrNoEndpoint when either key is absent or the address is empty.
func DecodeEndpointConfig(cfg map[string]any) (EndpointConfig, error) {
	var out EndpointConfig
	if _, ok := cfg[ConfigAddress]; !ok {
		return out, ErrNoEndpoint
	}
	if _, ok := cfg[ConfigChannel]; !ok {
		return out, ErrNoEndpoint
	}
	if err := decode(cfg, &out); err != nil {
		return out, err
	}
	out.Address = strings.TrimSpace(out.Address)
	if out.Address == "" {
		return out, ErrNoEndpoint
	}
	return out, nil
}

// DecodeMQTTConfig reads the zigbee2mqtt settings from cfg. A missing
// friendly_name falls back to the light's name at the call site.
func DecodeMQTTConfig(cfg map[string]any) (MQTTConfig, error) {
	var out MQTTConfig
	if err := decode(cfg, &out); err != nil {
		return out, err
	}
	return out, nil
}

func decode(input map[string]any, output any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           output,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := dec.Decode(input); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
