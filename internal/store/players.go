package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Player is a locally tracked player and its mapping to the dashboard's
// athlete record. RemoteID is empty until the first successful resolution.
type Player struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	RemoteID  string    `json:"remote_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const playerColumns = `id, name, email, remote_id, created_at, updated_at`

func scanPlayer(row interface{ Scan(...any) error }) (*Player, error) {
	var p Player
	var created, updated int64
	if err := row.Scan(&p.ID, &p.Name, &p.Email, &p.RemoteID, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	p.CreatedAt = time.Unix(created, 0)
	p.UpdatedAt = time.Unix(updated, 0)
	return &p, nil
}

// GetPlayer returns the player with the given local id.
func (s *Store) GetPlayer(ctx context.Context, id string) (*Player, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+playerColumns+` FROM players WHERE id = ?`, id)
	return scanPlayer(row)
}

// FindPlayerByName returns the first player matching name, ignoring case.
func (s *Store) FindPlayerByName(ctx context.Context, name string) (*Player, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+playerColumns+` FROM players WHERE name = ? COLLATE NOCASE ORDER BY created_at LIMIT 1`, name)
	return scanPlayer(row)
}

// CreatePlayer inserts a new player row and returns it.
func (s *Store) CreatePlayer(ctx context.Context, name, email string) (*Player, error) {
	id := uuid.New().String()
	now := time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO players (id, name, email, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, name, email, now.Unix(), now.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to create player: %w", err)
	}
	return &Player{ID: id, Name: name, Email: email, CreatedAt: now, UpdatedAt: now}, nil
}

// GetOrCreatePlayer returns an existing player by name or creates one.
// An existing row's email is left untouched even when a different email
// is supplied.
func (s *Store) GetOrCreatePlayer(ctx context.Context, name, email string) (*Player, error) {
	p, err := s.FindPlayerByName(ctx, name)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return s.CreatePlayer(ctx, name, email)
}

// SetRemoteID records the dashboard athlete id for a local player.
func (s *Store) SetRemoteID(ctx context.Context, id, remoteID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE players SET remote_id = ?, updated_at = unixepoch() WHERE id = ?`,
		remoteID, id)
	if err != nil {
		return fmt.Errorf("failed to set remote id: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: player %s", ErrNotFound, id)
	}
	return nil
}

// ListPlayers returns all players, newest first.
func (s *Store) ListPlayers(ctx context.Context) ([]Player, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+playerColumns+` FROM players ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, *p)
	}
	return players, rows.Err()
}
