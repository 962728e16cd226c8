package schedule

import (
	"context"
	"testing"

	"github.com/loftside/swingbridge/internal/config"
	"github.com/loftside/swingbridge/internal/logging"
	"github.com/loftside/swingbridge/internal/pipeline"
	"github.com/loftside/swingbridge/internal/store"
)

func init() {
	logging.Disable()
}

type fakeLister struct {
	players []store.Player
	err     error
}

func (f *fakeLister) ListPlayers(ctx context.Context) ([]store.Player, error) {
	return f.players, f.err
}

type fakeRunner struct {
	requests []pipeline.Request
	fail     map[string]bool
}

func (f *fakeRunner) Run(ctx context.Context, req pipeline.Request) *pipeline.Result {
	f.requests = append(f.requests, req)
	res := &pipeline.Result{RunID: "run-1", Action: req.Action, Success: true}
	if f.fail[req.PlayerID] {
		res.Success = false
		res.Message = "pull failed"
	}
	return res
}

func TestPullAllSkipsUnmappedPlayers(t *testing.T) {
	lister := &fakeLister{players: []store.Player{
		{ID: "p1", Name: "Jordan Alvarez", RemoteID: "abc-123"},
		{ID: "p2", Name: "No Mapping Yet"},
		{ID: "p3", Name: "Sam Whitfield", RemoteID: "def-456"},
	}}
	runner := &fakeRunner{}

	s := New(config.ScheduleConfig{}, lister, runner)
	ran, failed := s.PullAll(context.Background())

	if ran != 2 || failed != 0 {
		t.Fatalf("ran=%d failed=%d, want 2/0", ran, failed)
	}
	if len(runner.requests) != 2 {
		t.Fatalf("runner saw %d requests, want 2", len(runner.requests))
	}
	for _, req := range runner.requests {
		if req.Action != pipeline.ActionPullReports {
			t.Fatalf("action = %s, want %s", req.Action, pipeline.ActionPullReports)
		}
	}
	if runner.requests[0].PlayerID != "p1" || runner.requests[1].PlayerID != "p3" {
		t.Fatalf("pulled %s and %s, want p1 and p3",
			runner.requests[0].PlayerID, runner.requests[1].PlayerID)
	}
}

func TestPullAllCountsFailures(t *testing.T) {
	lister := &fakeLister{players: []store.Player{
		{ID: "p1", Name: "Jordan Alvarez", RemoteID: "abc-123"},
		{ID: "p2", Name: "Sam Whitfield", RemoteID: "def-456"},
	}}
	runner := &fakeRunner{fail: map[string]bool{"p2": true}}

	s := New(config.ScheduleConfig{}, lister, runner)
	ran, failed := s.PullAll(context.Background())

	if ran != 2 || failed != 1 {
		t.Fatalf("ran=%d failed=%d, want 2/1", ran, failed)
	}
}

func TestDefaultExpressionApplied(t *testing.T) {
	s := New(config.ScheduleConfig{}, &fakeLister{}, &fakeRunner{})
	if s.spec != defaultReportPull {
		t.Fatalf("spec = %q, want %q", s.spec, defaultReportPull)
	}
}

func TestStartRejectsBadExpression(t *testing.T) {
	s := New(config.ScheduleConfig{ReportPull: "not a cron line"}, &fakeLister{}, &fakeRunner{})
	if err := s.Start(); err == nil {
		t.Fatal("Start accepted a malformed expression")
	}
}
