package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ActivityEntry is one recorded automation run.
type ActivityEntry struct {
	ID        string          `json:"id"`
	RunID     string          `json:"run_id"`
	Action    string          `json:"action"`
	Success   bool            `json:"success"`
	Message   string          `json:"message,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// RecordActivity appends an entry to the activity log. ID and CreatedAt
// are filled in when zero.
func (s *Store) RecordActivity(ctx context.Context, entry ActivityEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	var metadata sql.NullString
	if len(entry.Metadata) > 0 {
		metadata = sql.NullString{String: string(entry.Metadata), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO activity (id, run_id, action, success, message, metadata, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.RunID, entry.Action, entry.Success, entry.Message, metadata, entry.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}
	return nil
}

// ListActivity returns the most recent entries, newest first. A limit of
// zero or less defaults to 50.
func (s *Store) ListActivity(ctx context.Context, limit int) ([]ActivityEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, action, success, message, metadata, created_at FROM activity ORDER BY created_at DESC, id LIMIT ?`,
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []ActivityEntry
	for rows.Next() {
		var e ActivityEntry
		var metadata sql.NullString
		var created int64
		if err := rows.Scan(&e.ID, &e.RunID, &e.Action, &e.Success, &e.Message, &metadata, &created); err != nil {
			return nil, err
		}
		if metadata.Valid && metadata.String != "" {
			e.Metadata = json.RawMessage(metadata.String)
		}
		e.CreatedAt = time.Unix(created, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
