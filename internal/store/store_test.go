package store

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/loftside/swingbridge/internal/logging"
)

func init() {
	logging.Disable()
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "swingbridge.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetOrCreatePlayer(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first, err := s.GetOrCreatePlayer(ctx, "Jordan Alvarez", "jordan@example.com")
	if err != nil {
		t.Fatalf("GetOrCreatePlayer failed: %v", err)
	}
	if first.ID == "" || first.Name != "Jordan Alvarez" {
		t.Errorf("unexpected player: %+v", first)
	}

	// Same name, different case and email: must return the existing row.
	again, err := s.GetOrCreatePlayer(ctx, "jordan alvarez", "other@example.com")
	if err != nil {
		t.Fatalf("GetOrCreatePlayer failed: %v", err)
	}
	if again.ID != first.ID {
		t.Errorf("expected existing player %s, got %s", first.ID, again.ID)
	}
	if again.Email != "jordan@example.com" {
		t.Errorf("existing email must be preserved, got %q", again.Email)
	}

	players, err := s.ListPlayers(ctx)
	if err != nil {
		t.Fatalf("ListPlayers failed: %v", err)
	}
	if len(players) != 1 {
		t.Errorf("expected a single player row, got %d", len(players))
	}
}

func TestGetPlayerNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetPlayer(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSetRemoteID(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	p, err := s.CreatePlayer(ctx, "Sam Ryu", "")
	if err != nil {
		t.Fatalf("CreatePlayer failed: %v", err)
	}

	if err := s.SetRemoteID(ctx, p.ID, "abc-123"); err != nil {
		t.Fatalf("SetRemoteID failed: %v", err)
	}
	got, err := s.GetPlayer(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPlayer failed: %v", err)
	}
	if got.RemoteID != "abc-123" {
		t.Errorf("expected remote id abc-123, got %q", got.RemoteID)
	}

	if err := s.SetRemoteID(ctx, "missing-id", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown player, got %v", err)
	}
}

func TestActivityLog(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	base := time.Now().Add(-time.Hour).Truncate(time.Second)
	entries := []ActivityEntry{
		{RunID: "run-1", Action: "test_login", Success: true, Message: "ok", CreatedAt: base},
		{RunID: "run-2", Action: "upload_video", Success: false, Message: "marker timeout",
			Metadata: json.RawMessage(`{"jobId":"job-777"}`), CreatedAt: base.Add(time.Minute)},
		{RunID: "run-3", Action: "full_pipeline", Success: true, CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, e := range entries {
		if err := s.RecordActivity(ctx, e); err != nil {
			t.Fatalf("RecordActivity failed: %v", err)
		}
	}

	got, err := s.ListActivity(ctx, 0)
	if err != nil {
		t.Fatalf("ListActivity failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	if got[0].RunID != "run-3" || got[2].RunID != "run-1" {
		t.Errorf("entries must be newest first: %+v", got)
	}
	if got[1].Success || got[1].Message != "marker timeout" {
		t.Errorf("unexpected entry: %+v", got[1])
	}
	if string(got[1].Metadata) != `{"jobId":"job-777"}` {
		t.Errorf("metadata did not round-trip: %s", got[1].Metadata)
	}
	if got[0].ID == "" {
		t.Error("entry id must be generated when omitted")
	}

	limited, err := s.ListActivity(ctx, 2)
	if err != nil {
		t.Fatalf("ListActivity failed: %v", err)
	}
	if len(limited) != 2 || limited[0].RunID != "run-3" || limited[1].RunID != "run-2" {
		t.Errorf("unexpected limited listing: %+v", limited)
	}
}
