package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// handleGetLightHistory returns recorded state snapshots for a light,
// newest first.
func (s *Server) handleGetLightHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	limit, err := parseHistoryLimit(r.URL.Query().Get("limit"))
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	if _, ok := s.lights.Get(id); !ok {
		lightNotFound(w, id)
		return
	}

	if s.history == nil {
		unavailable(w, "state history unavailable")
		return
	}

	entries, err := s.history.History(r.Context(), id, limit)
	if err != nil {
		s.logger.Error("failed to load light history", "light_id", id, "error", err)
		internalError(w, "failed to load light history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"light_id": id,
		"history":  entries,
		"count":    len(entries),
	})
}

// parseHistoryLimit parses the limit query parameter with bounds enforcement.
func parseHistoryLimit(raw string) (int, error) {
	if raw == "" {
		return defaultHistoryLimit, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("invalid limit")
	}
	if limit > maxHistoryLimit {
		return 0, fmt.Errorf("limit exceeds maximum")
	}

	return limit, nil
}
