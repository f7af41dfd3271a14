package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/graylight/internal/driver"
	"github.com/nerrad567/graylight/internal/light"
	"github.com/nerrad567/graylight/internal/virtual"
)

// ChildStatusResponse is one child's outcome in a state response.
type ChildStatusResponse struct {
	LightID   string            `json:"light_id"`
	Address   string            `json:"address,omitempty"`
	Reachable bool              `json:"reachable"`
	Kind      virtual.ErrorKind `json:"kind,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// StateResponse is returned by the state endpoints.
type StateResponse struct {
	LightID  string                `json:"light_id"`
	State    light.State           `json:"state"`
	Children []ChildStatusResponse `json:"children,omitempty"`
	Warning  string                `json:"warning,omitempty"`
}

func newStateResponse(res virtual.Result) StateResponse {
	out := StateResponse{
		LightID:  res.LightID,
		State:    res.State,
		Children: make([]ChildStatusResponse, 0, len(res.Children)),
	}
	for _, c := range res.Children {
		cs := ChildStatusResponse{
			LightID:   c.LightID,
			Address:   c.Address,
			Reachable: c.Reachable,
			Kind:      c.Kind,
		}
		if c.Err != nil {
			cs.Error = c.Err.Error()
		}
		out.Children = append(out.Children, cs)
	}
	return out
}

// handleListLights returns all lights.
//
// Query parameters:
//   - protocol: filter by protocol (virtual, native_multi, mqtt, memory)
func (s *Server) handleListLights(w http.ResponseWriter, r *http.Request) {
	protocol := light.Protocol(r.URL.Query().Get("protocol"))

	defs := make([]light.Definition, 0, s.lights.Len())
	for _, l := range s.lights.List() {
		if protocol != "" && l.Protocol != protocol {
			continue
		}
		defs = append(defs, l.Definition())
	}

	writeJSON(w, http.StatusOK, map[string]any{"lights": defs, "count": len(defs)})
}

// handleGetLight returns a single light's definition and cached state.
func (s *Server) handleGetLight(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	l, ok := s.lights.Get(id)
	if !ok {
		lightNotFound(w, id)
		return
	}
	writeJSON(w, http.StatusOK, l.Definition())
}

// handleGetLightState returns a light's current state.
//
// Virtual lights are resolved from their children. Other lights are read
// through their driver when it can be queried; on failure the cached state
// is returned with a warning.
func (s *Server) handleGetLightState(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	l, ok := s.lights.Get(id)
	if !ok {
		lightNotFound(w, id)
		return
	}

	if l.IsVirtual() {
		res := s.aggregator.Resolve(r.Context(), id)
		resp := newStateResponse(res)
		if res.Err != nil {
			resp.Warning = res.Err.Error()
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	resp := StateResponse{LightID: id}
	if reader, found := s.drivers.Reader(l.Protocol); found {
		st, err := reader.GetState(r.Context(), l)
		if err != nil {
			s.logger.Warn("state read failed", "light_id", id, "error", err)
			resp.Warning = err.Error()
		} else {
			l.MergeState(st)
		}
	}
	resp.State = l.State()
	writeJSON(w, http.StatusOK, resp)
}

// handleSetLightState applies a state change to a light.
//
// The body is a partial state, e.g. {"on": true, "bri": 200}. Unknown keys
// are rejected. Virtual lights fan the change out to their children and
// always answer 200 with per-child outcomes; other lights answer 502 when
// their device could not be reached.
func (s *Server) handleSetLightState(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	l, ok := s.lights.Get(id)
	if !ok {
		lightNotFound(w, id)
		return
	}

	var delta light.State
	if err := json.NewDecoder(r.Body).Decode(&delta); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if msg := validateDelta(delta); msg != "" {
		invalidState(w, id, msg)
		return
	}

	if l.IsVirtual() {
		res := s.forwarder.Apply(r.Context(), id, delta)
		if res.Err != nil {
			lightConflict(w, id, res.Err)
			return
		}
		writeJSON(w, http.StatusOK, newStateResponse(res))
		return
	}

	err := s.drivers.SetState(r.Context(), l, delta, driver.SetOptions{Advertise: true})
	switch {
	case errors.Is(err, driver.ErrNoDriver):
		lightConflict(w, id, err)
		return
	case err != nil:
		s.logger.Warn("light command failed", "light_id", id, "error", err)
		deviceFailed(w, id, err)
		return
	}

	writeJSON(w, http.StatusOK, StateResponse{LightID: id, State: l.State()})
}

// validateDelta returns a message describing what is wrong with delta, or
// "" if it is acceptable.
func validateDelta(delta light.State) string {
	if len(delta) == 0 {
		return "state must contain at least one field"
	}
	settable := light.Type("").Fields()
	for k := range delta {
		if !slices.Contains(settable, k) {
			return "unsupported field: " + k
		}
	}
	if _, present := delta[light.FieldOn]; present {
		if _, ok := delta.On(); !ok {
			return "on must be a boolean"
		}
	}
	if _, present := delta[light.FieldBri]; present {
		if _, ok := delta.Bri(); !ok {
			return "bri must be a non-negative integer"
		}
	}
	return ""
}
