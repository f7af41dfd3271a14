package light

import (
	"fmt"
	"slices"
)

const maxNameLength = 100

// Validate checks a light definition for the fields every protocol needs.
// Protocol-specific config is checked lazily by the code that uses it, so a
// misconfigured child degrades that child only.
func Validate(def Definition) error {
	if def.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidLight)
	}
	if len(def.Name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidLight, maxNameLength)
	}
	if def.Protocol == "" {
		return fmt.Errorf("%w: protocol is required for %s", ErrInvalidLight, def.ID)
	}
	if def.Type != "" && !slices.Contains(AllTypes(), def.Type) {
		return fmt.Errorf("%w: unknown type %q for %s", ErrInvalidLight, def.Type, def.ID)
	}
	if def.Protocol == ProtocolVirtual {
		vc, err := DecodeVirtualConfig(def.ProtocolConfig)
		if err == nil && slices.Contains(vc.LinkedLights, def.ID) {
			return fmt.Errorf("%w: virtual light %s links to itself", ErrInvalidLight, def.ID)
		}
	}
	return nil
}

// AllTypes returns every device class.
func AllTypes() []Type {
	return []Type{TypeOnOff, TypeDimmable, TypeColorTemperature, TypeColor, TypeExtendedColor}
}
