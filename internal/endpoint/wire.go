package endpoint

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/nerrad567/graylight/internal/light"
)

// StatePath is the resource every multi-channel endpoint serves.
const StatePath = "/state"

// Body is the JSON document exchanged with an endpoint, in both
// directions:
//
//	{"lights": {"1": {"on": true, "bri": 200}, "2": {"on": false}}}
//
// Channel keys are decimal integers encoded as strings.
type Body struct {
	Lights map[string]light.State `json:"lights"`
}

// encodeBody builds the wire document for per-channel payloads.
func encodeBody(channels map[int]light.State) ([]byte, error) {
	body := Body{Lights: make(map[string]light.State, len(channels))}
	for ch, st := range channels {
		body.Lights[strconv.Itoa(ch)] = st
	}
	return json.Marshal(body)
}

// decodeBody parses a read response into per-channel states. Channel keys
// that are not integers make the whole response malformed.
func decodeBody(data []byte) (map[int]light.State, error) {
	var body Body
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if body.Lights == nil {
		return nil, fmt.Errorf("%w: missing lights object", ErrMalformedResponse)
	}

	out := make(map[int]light.State, len(body.Lights))
	for key, st := range body.Lights {
		ch, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("%w: channel key %q", ErrMalformedResponse, key)
		}
		out[ch] = st
	}
	return out, nil
}
