package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/loftside/swingbridge/internal/analysis"
	"github.com/loftside/swingbridge/internal/crashlog"
	"github.com/loftside/swingbridge/internal/dashboard"
	"github.com/loftside/swingbridge/internal/logging"
	"github.com/loftside/swingbridge/internal/notify"
	"github.com/loftside/swingbridge/internal/store"
)

// Deps are the pipeline's collaborators. All of them are interfaces so
// runs can be exercised without a real browser or provider.
type Deps struct {
	Sessions SessionProvider
	Players  PlayerDirectory
	Analysis analysis.Service
	Notifier notify.Notifier
	Activity ActivityLog
	Connect  ConnectFunc
}

// Pipeline executes automation runs one at a time per call. Each Run owns
// exactly one browser session; concurrent Runs never share state.
type Pipeline struct {
	sessions SessionProvider
	players  PlayerDirectory
	analysis analysis.Service
	notifier notify.Notifier
	activity ActivityLog
	connect  ConnectFunc
}

func New(deps Deps) *Pipeline {
	return &Pipeline{
		sessions: deps.Sessions,
		players:  deps.Players,
		analysis: deps.Analysis,
		notifier: deps.Notifier,
		activity: deps.Activity,
		connect:  deps.Connect,
	}
}

// Run executes one automation request. It never returns an error: every
// outcome, including validation failures and panics inside a step, is
// folded into the Result, and every run lands in the activity log.
func (p *Pipeline) Run(ctx context.Context, req Request) *Result {
	return p.run(ctx, uuid.New().String(), req)
}

// RunAsync executes the request in the background and returns the run id
// immediately. The outcome reaches the caller through the callback URL
// and the activity log.
func (p *Pipeline) RunAsync(req Request) string {
	runID := uuid.New().String()
	go p.run(context.Background(), runID, req)
	return runID
}

func (p *Pipeline) run(ctx context.Context, runID string, req Request) *Result {
	result := &Result{
		RunID:  runID,
		Action: req.Action,
		Data:   map[string]any{},
	}
	if req.SessionID != "" {
		result.Data["sessionId"] = req.SessionID
	}

	if err := req.validate(); err != nil {
		result.fail("Invalid request: " + err.Error())
	} else {
		logging.Infof("pipeline: run %s starting action %s", result.RunID, req.Action)
		p.execute(ctx, req, result)
	}

	if req.CallbackURL != "" {
		// Outcome delivery is best-effort: a dead callback must not flip
		// the run's result.
		err := p.notifier.Send(context.WithoutCancel(ctx), req.CallbackURL, notify.Event{
			RunID:     result.RunID,
			Action:    string(req.Action),
			Success:   result.Success,
			Message:   result.Message,
			Data:      result.Data,
			ReplayURL: result.ReplayURL,
		})
		if err != nil {
			logging.Warnf("pipeline: callback delivery failed for run %s: %v", result.RunID, err)
			result.Errors = append(result.Errors, "callback delivery failed: "+err.Error())
		}
	}

	p.recordActivity(context.WithoutCancel(ctx), req, result)
	logging.Infof("pipeline: run %s finished, success=%v: %s", result.RunID, result.Success, result.Message)
	return result
}

func (p *Pipeline) execute(ctx context.Context, req Request, result *Result) {
	defer func() {
		if r := recover(); r != nil {
			crashlog.LogPanic("pipeline", r, map[string]string{
				"run_id": result.RunID,
				"action": string(req.Action),
			})
			result.fail(fmt.Sprintf("Unexpected failure: %v", r))
		}
	}()

	sess, err := p.sessions.Acquire(ctx)
	if err != nil {
		result.fail("Browser provisioning failed: " + err.Error())
		return
	}
	result.ReplayURL = sess.ReplayURL
	// The lease must go back on every path out of this function, panics
	// included; leaked sessions bill until the provider's keep-alive fires.
	defer p.sessions.Release(context.WithoutCancel(ctx), sess)

	auto, done, err := p.connect(ctx, sess)
	if err != nil {
		result.fail("Browser connection failed: " + err.Error())
		return
	}
	defer done()

	login, err := auto.Login(ctx)
	if err != nil {
		result.fail("Login failed: " + err.Error())
		return
	}
	if !login.Authenticated {
		result.fail(login.Message)
		return
	}

	switch req.Action {
	case ActionTestLogin:
		result.succeed(login.Message)

	case ActionFindPlayer:
		p.runFindPlayer(ctx, auto, req, result)

	case ActionCreatePlayer:
		if remoteID, ok := p.resolvePlayer(ctx, auto, req, result, true); ok {
			result.succeed(fmt.Sprintf("Player ready (remote id %s)", remoteID))
		}

	case ActionPullReports:
		p.runPullReports(ctx, auto, req, result)

	case ActionDownloadData:
		p.runDownload(ctx, auto, req, result)

	case ActionUploadVideo:
		if remoteID, ok := p.resolvePlayer(ctx, auto, req, result, true); ok {
			if p.runUploadFlow(ctx, auto, req, result, remoteID) {
				result.succeed("Upload processed and exported")
			}
		}

	case ActionFullPipeline:
		p.runFullPipeline(ctx, auto, req, result)
	}
}

// resolvePlayer turns the request's player identity into a dashboard
// athlete id. Precedence: explicit remote id hint, then the stored
// mapping, then a dashboard search (and creation when allowCreate).
// Newly resolved ids are persisted so later runs skip this step.
func (p *Pipeline) resolvePlayer(ctx context.Context, auto Automation, req Request, result *Result, allowCreate bool) (string, bool) {
	if req.RemotePlayerID != "" {
		result.Data["remotePlayerId"] = req.RemotePlayerID
		return req.RemotePlayerID, true
	}

	var local *store.Player
	var err error
	switch {
	case req.PlayerID != "":
		local, err = p.players.GetPlayer(ctx, req.PlayerID)
		if errors.Is(err, store.ErrNotFound) {
			result.fail("Player not found: " + req.PlayerID)
			return "", false
		}
	case req.PlayerName != "":
		local, err = p.players.GetOrCreatePlayer(ctx, req.PlayerName, req.PlayerEmail)
	default:
		result.fail("Player identity required")
		return "", false
	}
	if err != nil {
		result.fail("Player lookup failed: " + err.Error())
		return "", false
	}
	result.Data["playerId"] = local.ID

	if local.RemoteID != "" {
		result.Data["remotePlayerId"] = local.RemoteID
		return local.RemoteID, true
	}

	name := req.PlayerName
	if name == "" {
		name = local.Name
	}
	email := req.PlayerEmail
	if email == "" {
		email = local.Email
	}

	var match dashboard.PlayerMatch
	var created bool
	if allowCreate {
		match, created, err = auto.ResolvePlayer(ctx, name, email)
	} else {
		match, err = auto.FindPlayer(ctx, name)
		if err == nil && !match.Found {
			result.fail(fmt.Sprintf("Player %q not found on dashboard", name))
			return "", false
		}
	}
	if err != nil {
		if errors.Is(err, dashboard.ErrPlayerResolution) {
			result.fail(fmt.Sprintf("Player %q could not be found or created", name))
		} else {
			result.fail("Player resolution failed: " + err.Error())
		}
		return "", false
	}

	result.Data["remotePlayerId"] = match.RemoteID
	if created {
		result.Data["createdPlayer"] = true
	}
	if err := p.players.SetRemoteID(ctx, local.ID, match.RemoteID); err != nil {
		// The run can still proceed on the resolved id; only the
		// short-circuit for future runs is lost.
		logging.Warnf("pipeline: persisting remote id for player %s failed: %v", local.ID, err)
		result.Errors = append(result.Errors, "persist player mapping failed: "+err.Error())
	}
	return match.RemoteID, true
}

func (p *Pipeline) runFindPlayer(ctx context.Context, auto Automation, req Request, result *Result) {
	match, err := auto.FindPlayer(ctx, req.PlayerName)
	if err != nil {
		result.fail("Player search failed: " + err.Error())
		return
	}
	result.Data["found"] = match.Found
	if match.Found {
		result.Data["remotePlayerId"] = match.RemoteID
		result.succeed(fmt.Sprintf("Player %q found", req.PlayerName))
		return
	}
	result.succeed(fmt.Sprintf("Player %q not found", req.PlayerName))
}

func (p *Pipeline) runPullReports(ctx context.Context, auto Automation, req Request, result *Result) {
	remoteID, ok := p.resolvePlayer(ctx, auto, req, result, false)
	if !ok {
		return
	}
	rows, err := auto.PullReports(ctx, remoteID)
	if err != nil {
		if errors.Is(err, dashboard.ErrNoSessionData) {
			result.fail("No session data found for player")
		} else {
			result.fail("Report extraction failed: " + err.Error())
		}
		return
	}
	result.Data["rows"] = rows
	result.Data["rowCount"] = len(rows)
	result.succeed(fmt.Sprintf("Pulled %d session rows", len(rows)))
}

func (p *Pipeline) runDownload(ctx context.Context, auto Automation, req Request, result *Result) {
	ref, err := auto.ExportCSV(ctx, req.SessionID)
	if err != nil {
		if errors.Is(err, dashboard.ErrNoExport) {
			result.fail("Export produced no download reference")
		} else {
			result.fail("Export failed: " + err.Error())
		}
		return
	}
	result.Data["downloadUrl"] = ref
	result.succeed("Session data exported")
}

// runUploadFlow pushes the video through upload, processing, and export.
// It reports false once the result has been failed.
func (p *Pipeline) runUploadFlow(ctx context.Context, auto Automation, req Request, result *Result, remoteID string) bool {
	upload, err := auto.UploadVideo(ctx, remoteID, req.VideoURL)
	if err != nil {
		result.fail("Upload failed: " + err.Error())
		return false
	}
	if !upload.Completed {
		result.fail(upload.Message)
		return false
	}
	result.Data["jobId"] = upload.JobID

	processing, err := auto.WaitForProcessing(ctx, upload.JobID)
	if err != nil {
		result.fail("Processing poll failed: " + err.Error())
		return false
	}
	result.Data["processingStatus"] = string(processing.Status)
	result.Data["processingAttempts"] = processing.Attempts
	if processing.Status != dashboard.StatusComplete {
		result.fail(processing.Message)
		return false
	}

	ref, err := auto.ExportCSV(ctx, upload.JobID)
	if err != nil {
		result.fail("Export failed: " + err.Error())
		return false
	}
	result.Data["downloadUrl"] = ref
	return true
}

func (p *Pipeline) runFullPipeline(ctx context.Context, auto Automation, req Request, result *Result) {
	remoteID, ok := p.resolvePlayer(ctx, auto, req, result, true)
	if !ok {
		return
	}
	if !p.runUploadFlow(ctx, auto, req, result, remoteID) {
		return
	}

	scores, err := p.analysis.Submit(ctx, analysis.Submission{
		PlayerID:       stringData(result.Data, "playerId"),
		PlayerName:     req.PlayerName,
		RemotePlayerID: remoteID,
		JobID:          stringData(result.Data, "jobId"),
		CSVURL:         stringData(result.Data, "downloadUrl"),
		ReplayURL:      result.ReplayURL,
	})
	if err != nil {
		result.fail("Analysis handoff failed: " + err.Error())
		return
	}
	if scores != nil {
		result.Data["scores"] = scores
	}
	result.succeed("Pipeline complete")
}

func (p *Pipeline) recordActivity(ctx context.Context, req Request, result *Result) {
	metadata := map[string]any{}
	if len(result.Data) > 0 {
		metadata["data"] = result.Data
	}
	if len(result.Errors) > 0 {
		metadata["errors"] = result.Errors
	}
	if result.ReplayURL != "" {
		metadata["replayUrl"] = result.ReplayURL
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		raw = nil
	}

	entry := store.ActivityEntry{
		RunID:    result.RunID,
		Action:   string(req.Action),
		Success:  result.Success,
		Message:  result.Message,
		Metadata: raw,
	}
	if err := p.activity.RecordActivity(ctx, entry); err != nil {
		logging.Errorf("pipeline: recording activity for run %s failed: %v", result.RunID, err)
	}
}

func stringData(data map[string]any, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}
