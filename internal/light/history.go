package light

import (
	"context"
	"time"
)

// History sources.
const (
	HistorySourceResolve = "resolve"
	HistorySourceApply   = "apply"
)

// HistoryEntry is one recorded snapshot of a light's state.
type HistoryEntry struct {
	ID        int64     `json:"id"`
	LightID   string    `json:"light_id"`
	State     State     `json:"state"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryRepository stores light state snapshots.
//
// Implementations must be thread-safe and use UTC timestamps.
type HistoryRepository interface {
	// Record stores a snapshot of state for lightID.
	Record(ctx context.Context, lightID string, state State, source string) error

	// History returns up to limit entries for lightID, newest first.
	History(ctx context.Context, lightID string, limit int) ([]HistoryEntry, error)
}
