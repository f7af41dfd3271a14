package api

import (
	"encoding/json"
	"net/http"
)

// Error is the body of every non-2xx response. LightID is set when the
// failure concerns a specific light.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
	LightID string `json:"light_id,omitempty"`
}

// Error codes.
const (
	ErrCodeBadRequest  = "bad_request"
	ErrCodeNotFound    = "not_found"
	ErrCodeConflict    = "conflict"
	ErrCodeInternal    = "internal_error"
	ErrCodeValidation  = "validation_error"
	ErrCodeDevice      = "device_error"
	ErrCodeUnavailable = "service_unavailable"
)

// writeJSON writes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, e Error) {
	writeJSON(w, e.Status, e)
}

// lightNotFound answers 404 for an unknown light ID.
func lightNotFound(w http.ResponseWriter, id string) {
	writeError(w, Error{Status: http.StatusNotFound, Code: ErrCodeNotFound, Message: "light not found", LightID: id})
}

func badRequest(w http.ResponseWriter, message string) {
	writeError(w, Error{Status: http.StatusBadRequest, Code: ErrCodeBadRequest, Message: message})
}

// invalidState answers 422 for a state body that parsed but cannot be applied.
func invalidState(w http.ResponseWriter, id, message string) {
	writeError(w, Error{Status: http.StatusUnprocessableEntity, Code: ErrCodeValidation, Message: message, LightID: id})
}

// lightConflict answers 409 when the light cannot take commands in its
// current configuration (no children, cycle, no driver).
func lightConflict(w http.ResponseWriter, id string, err error) {
	writeError(w, Error{Status: http.StatusConflict, Code: ErrCodeConflict, Message: err.Error(), LightID: id})
}

// deviceFailed answers 502 when the light's device rejected or missed a command.
func deviceFailed(w http.ResponseWriter, id string, err error) {
	writeError(w, Error{Status: http.StatusBadGateway, Code: ErrCodeDevice, Message: err.Error(), LightID: id})
}

func unavailable(w http.ResponseWriter, message string) {
	writeError(w, Error{Status: http.StatusServiceUnavailable, Code: ErrCodeUnavailable, Message: message})
}

func internalError(w http.ResponseWriter, message string) {
	writeError(w, Error{Status: http.StatusInternalServerError, Code: ErrCodeInternal, Message: message})
}
