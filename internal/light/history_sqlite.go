package light

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200

	// historyTimeFormat is fixed-width so created_at sorts as text.
	historyTimeFormat = "2006-01-02T15:04:05.000000Z"
)

// SQLiteHistoryRepository implements HistoryRepository on the
// light_state_history table.
type SQLiteHistoryRepository struct {
	db *sql.DB
}

// NewSQLiteHistoryRepository wraps an open database that has had the
// light_state_history migration applied.
func NewSQLiteHistoryRepository(db *sql.DB) *SQLiteHistoryRepository {
	return &SQLiteHistoryRepository{db: db}
}

// Record inserts a snapshot. The state is stored as JSON.
func (r *SQLiteHistoryRepository) Record(ctx context.Context, lightID string, state State, source string) error {
	if lightID == "" {
		return fmt.Errorf("light id is required")
	}
	if source == "" {
		source = HistorySourceResolve
	}
	if state == nil {
		state = State{}
	}

	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshalling state: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		"INSERT INTO light_state_history (light_id, state, source, created_at) VALUES (?, ?, ?, ?)",
		lightID, string(stateJSON), source, time.Now().UTC().Format(historyTimeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting state history: %w", err)
	}
	return nil
}

// History returns recent snapshots for lightID, newest first. limit
// defaults to 50 and is capped at 200.
func (r *SQLiteHistoryRepository) History(ctx context.Context, lightID string, limit int) ([]HistoryEntry, error) {
	if lightID == "" {
		return nil, fmt.Errorf("light id is required")
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	limit = min(limit, maxHistoryLimit)

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, light_id, state, source, created_at
		 FROM light_state_history
		 WHERE light_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		lightID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying state history: %w", err)
	}
	defer rows.Close()

	entries := make([]HistoryEntry, 0, limit)
	for rows.Next() {
		var e HistoryEntry
		var stateJSON, createdAt string
		if err := rows.Scan(&e.ID, &e.LightID, &stateJSON, &e.Source, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning state history: %w", err)
		}
		if err := json.Unmarshal([]byte(stateJSON), &e.State); err != nil {
			return nil, fmt.Errorf("unmarshalling state: %w", err)
		}
		if e.CreatedAt, err = parseHistoryTime(createdAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating state history: %w", err)
	}
	return entries, nil
}

// Prune deletes snapshots older than olderThan and returns how many went.
func (r *SQLiteHistoryRepository) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}

	cutoff := time.Now().UTC().Add(-olderThan).Format(historyTimeFormat)
	res, err := r.db.ExecContext(ctx, "DELETE FROM light_state_history WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting state history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return n, nil
}

// parseHistoryTime accepts our own format and the second-resolution
// column default.
func parseHistoryTime(v string) (time.Time, error) {
	if t, err := time.Parse(historyTimeFormat, v); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing created_at: %w", err)
	}
	return t, nil
}
