package light

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the layout of the lights file:
//
//	lights:
//	  - id: "10"
//	    name: Kitchen group
//	    protocol: virtual
//	    protocol_cfg:
//	      linked_lights: ["11", "12"]
//	  - id: "11"
//	    name: Kitchen left
//	    protocol: native_multi
//	    type: dimmable
//	    protocol_cfg: {ip: 192.168.1.50, light_nr: 1}
type File struct {
	Lights []Definition `yaml:"lights"`
}

// LoadFile reads and validates the lights file at path.
func LoadFile(path string) ([]*Light, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading lights file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates lights YAML. IDs must be unique.
func Parse(data []byte) ([]*Light, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing lights file: %w", err)
	}

	seen := make(map[string]struct{}, len(f.Lights))
	lights := make([]*Light, 0, len(f.Lights))
	for i, def := range f.Lights {
		if err := Validate(def); err != nil {
			return nil, fmt.Errorf("light %d: %w", i, err)
		}
		if _, dup := seen[def.ID]; dup {
			return nil, fmt.Errorf("light %d: %w: %s", i, ErrLightExists, def.ID)
		}
		seen[def.ID] = struct{}{}
		lights = append(lights, New(def))
	}
	return lights, nil
}
