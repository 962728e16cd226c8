// Package pipeline sequences one automation run against the dashboard:
// lease a browser, log in, do the requested work, and always hand back a
// result plus the session lease, no matter which step gave out.
package pipeline

import (
	"context"
	"fmt"

	"github.com/loftside/swingbridge/internal/dashboard"
	"github.com/loftside/swingbridge/internal/provider"
	"github.com/loftside/swingbridge/internal/store"
)

// Action selects what a run does.
type Action string

const (
	ActionUploadVideo  Action = "upload_video"
	ActionCreatePlayer Action = "create_player"
	ActionDownloadData Action = "download_data"
	ActionFullPipeline Action = "full_pipeline"
	ActionTestLogin    Action = "test_login"
	ActionFindPlayer   Action = "find_player"
	ActionPullReports  Action = "pull_reports"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionUploadVideo, ActionCreatePlayer, ActionDownloadData,
		ActionFullPipeline, ActionTestLogin, ActionFindPlayer, ActionPullReports:
		return true
	}
	return false
}

// Request is one inbound automation run.
type Request struct {
	Action         Action `json:"action"`
	PlayerID       string `json:"playerId,omitempty"`
	PlayerName     string `json:"playerName,omitempty"`
	PlayerEmail    string `json:"playerEmail,omitempty"`
	RemotePlayerID string `json:"remotePlayerId,omitempty"`
	VideoURL       string `json:"videoUrl,omitempty"`
	SessionID      string `json:"sessionId,omitempty"`
	CallbackURL    string `json:"callbackUrl,omitempty"`
}

func (r Request) hasPlayerIdentity() bool {
	return r.RemotePlayerID != "" || r.PlayerID != "" || r.PlayerName != ""
}

func (r Request) validate() error {
	if !r.Action.Valid() {
		return fmt.Errorf("unknown action %q", r.Action)
	}
	switch r.Action {
	case ActionUploadVideo, ActionFullPipeline:
		if r.VideoURL == "" {
			return fmt.Errorf("videoUrl is required for %s", r.Action)
		}
		if !r.hasPlayerIdentity() {
			return fmt.Errorf("player identity is required for %s", r.Action)
		}
	case ActionCreatePlayer, ActionFindPlayer:
		if r.PlayerName == "" {
			return fmt.Errorf("playerName is required for %s", r.Action)
		}
	case ActionPullReports:
		if !r.hasPlayerIdentity() {
			return fmt.Errorf("player identity is required for %s", r.Action)
		}
	case ActionDownloadData:
		if r.SessionID == "" {
			return fmt.Errorf("sessionId is required for %s", r.Action)
		}
	}
	return nil
}

// Result is the uniform envelope every run produces, success or not.
// ReplayURL is set whenever a browser session was actually leased so a
// failed run can be replayed by an operator.
type Result struct {
	RunID     string         `json:"runId"`
	Action    Action         `json:"action"`
	Success   bool           `json:"success"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	Errors    []string       `json:"errors,omitempty"`
	ReplayURL string         `json:"replayUrl,omitempty"`
}

func (r *Result) fail(msg string) {
	r.Success = false
	r.Message = msg
	r.Errors = append(r.Errors, msg)
}

func (r *Result) succeed(msg string) {
	r.Success = true
	r.Message = msg
}

// SessionProvider leases remote browser sessions. Release must be safe to
// call on every exit path; the provider implementation makes it idempotent.
type SessionProvider interface {
	Acquire(ctx context.Context) (*provider.Session, error)
	Release(ctx context.Context, sess *provider.Session)
}

// PlayerDirectory is the local player store the orchestrator persists
// dashboard mappings into.
type PlayerDirectory interface {
	GetPlayer(ctx context.Context, id string) (*store.Player, error)
	GetOrCreatePlayer(ctx context.Context, name, email string) (*store.Player, error)
	SetRemoteID(ctx context.Context, id, remoteID string) error
}

// ActivityLog records one row per run for the operator audit trail.
type ActivityLog interface {
	RecordActivity(ctx context.Context, entry store.ActivityEntry) error
}

// Automation is the authenticated dashboard surface a run drives.
type Automation interface {
	Login(ctx context.Context) (dashboard.LoginResult, error)
	FindPlayer(ctx context.Context, name string) (dashboard.PlayerMatch, error)
	ResolvePlayer(ctx context.Context, name, email string) (dashboard.PlayerMatch, bool, error)
	UploadVideo(ctx context.Context, remoteID, videoURL string) (dashboard.UploadOutcome, error)
	WaitForProcessing(ctx context.Context, jobID string) (dashboard.ProcessingOutcome, error)
	ExportCSV(ctx context.Context, jobID string) (string, error)
	PullReports(ctx context.Context, remoteID string) ([]dashboard.SessionRow, error)
}

// ConnectFunc opens the automation surface for a leased session. The
// returned func tears down the underlying transport.
type ConnectFunc func(ctx context.Context, sess *provider.Session) (Automation, func(), error)
