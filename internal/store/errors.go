package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrorEntry is one captured error or panic.
type ErrorEntry struct {
	ID         string    `json:"id"`
	Level      string    `json:"level"`
	Module     string    `json:"module"`
	Message    string    `json:"message"`
	Stacktrace string    `json:"stacktrace,omitempty"`
	Context    string    `json:"context,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// RecordError appends an entry to the error log. ID and CreatedAt are
// filled in when zero.
func (s *Store) RecordError(ctx context.Context, entry ErrorEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	stack := sql.NullString{String: entry.Stacktrace, Valid: entry.Stacktrace != ""}
	errCtx := sql.NullString{String: entry.Context, Valid: entry.Context != ""}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO error_logs (id, level, module, message, stacktrace, context, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Level, entry.Module, entry.Message, stack, errCtx, entry.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to record error: %w", err)
	}
	return nil
}

// ListErrors returns the most recent entries, newest first. A limit of
// zero or less defaults to 50.
func (s *Store) ListErrors(ctx context.Context, limit int) ([]ErrorEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, level, module, message, stacktrace, context, created_at FROM error_logs ORDER BY created_at DESC, id LIMIT ?`,
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []ErrorEntry
	for rows.Next() {
		var e ErrorEntry
		var stack, errCtx sql.NullString
		var created int64
		if err := rows.Scan(&e.ID, &e.Level, &e.Module, &e.Message, &stack, &errCtx, &created); err != nil {
			return nil, err
		}
		e.Stacktrace = stack.String
		e.Context = errCtx.String
		e.CreatedAt = time.Unix(created, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
