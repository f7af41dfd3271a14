package light

import "errors"

// Domain errors for the light package.
//
//	if errors.Is(err, light.ErrNoChildrenConfigured) {
//	    // not a composite, or not set up yet
//	}
var (
	// ErrLightNotFound is returned when a light ID does not exist.
	ErrLightNotFound = errors.New("light: not found")

	// ErrLightExists is returned when adding a light whose ID is taken.
	ErrLightExists = errors.New("light: already exists")

	// ErrInvalidLight is returned when a light definition fails validation.
	ErrInvalidLight = errors.New("light: invalid")

	// ErrNoChildrenConfigured is returned when a virtual light has no
	// linked_lights key in its protocol config.
	ErrNoChildrenConfigured = errors.New("light: no children configured")

	// ErrNoEndpoint is returned when a light's protocol config lacks the
	// endpoint address or channel.
	ErrNoEndpoint = errors.New("light: no endpoint address or channel")

	// ErrInvalidConfig is returned when protocol config is present but
	// cannot be decoded.
	ErrInvalidConfig = errors.New("light: invalid protocol config")
)
