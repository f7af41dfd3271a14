package light

import (
	"errors"
	"reflect"
	"testing"
)

func TestDecodeVirtualConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     map[string]any
		want    []string
		wantErr error
	}{
		{
			name: "string ids",
			cfg:  map[string]any{"linked_lights": []any{"3", "4", "5"}},
			want: []string{"3", "4", "5"},
		},
		{
			name: "numeric ids",
			cfg:  map[string]any{"linked_lights": []any{3, 4}},
			want: []string{"3", "4"},
		},
		{
			name: "empty list",
			cfg:  map[string]any{"linked_lights": []any{}},
			want: []string{},
		},
		{
			name:    "absent key",
			cfg:     map[string]any{"ip": "10.0.0.1"},
			wantErr: ErrNoChildrenConfigured,
		},
		{
			name:    "nil config",
			cfg:     nil,
			wantErr: ErrNoChildrenConfigured,
		},
		{
			name:    "wrong shape",
			cfg:     map[string]any{"linked_lights": map[string]any{"a": 1}},
			wantErr: ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeVirtualConfig(tt.cfg)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got.LinkedLights) != len(tt.want) || (len(tt.want) > 0 && !reflect.DeepEqual(got.LinkedLights, tt.want)) {
				t.Errorf("LinkedLights = %v, want %v", got.LinkedLights, tt.want)
			}
		})
	}
}

func TestDecodeEndpointConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     map[string]any
		want    EndpointConfig
		wantErr error
	}{
		{
			name: "int channel",
			cfg:  map[string]any{"ip": "192.168.1.50", "light_nr": 2},
			want: EndpointConfig{Address: "192.168.1.50", Channel: 2},
		},
		{
			name: "string channel",
			cfg:  map[string]any{"ip": "192.168.1.50", "light_nr": "2"},
			want: EndpointConfig{Address: "192.168.1.50", Channel: 2},
		},
		{
			name: "float channel",
			cfg:  map[string]any{"ip": "192.168.1.50:8080", "light_nr": 2.0},
			want: EndpointConfig{Address: "192.168.1.50:8080", Channel: 2},
		},
		{
			name:    "missing channel",
			cfg:     map[string]any{"ip": "192.168.1.50"},
			wantErr: ErrNoEndpoint,
		},
		{
			name:    "missing address",
			cfg:     map[string]any{"light_nr": 1},
			wantErr: ErrNoEndpoint,
		},
		{
			name:    "blank address",
			cfg:     map[string]any{"ip": "  ", "light_nr": 1},
			wantErr: ErrNoEndpoint,
		},
		{
			name:    "non-numeric channel",
			cfg:     map[string]any{"ip": "192.168.1.50", "light_nr": "two"},
			wantErr: ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeEndpointConfig(tt.cfg)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDecodeMQTTConfig(t *testing.T) {
	got, err := DecodeMQTTConfig(map[string]any{
		"friendly_name": "hall_bulb",
		"command_topic": "zigbee2mqtt/hall_bulb/set",
		"unrelated":     1,
	})
	if err != nil {
		t.Fatalf("DecodeMQTTConfig() error = %v", err)
	}
	if got.FriendlyName != "hall_bulb" || got.CommandTopic != "zigbee2mqtt/hall_bulb/set" {
		t.Errorf("got %+v", got)
	}
}
