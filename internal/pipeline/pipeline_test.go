package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/loftside/swingbridge/internal/analysis"
	"github.com/loftside/swingbridge/internal/dashboard"
	"github.com/loftside/swingbridge/internal/logging"
	"github.com/loftside/swingbridge/internal/notify"
	"github.com/loftside/swingbridge/internal/provider"
	"github.com/loftside/swingbridge/internal/store"
)

func init() {
	logging.Disable()
}

// fakeSessions leases fake provider sessions and counts releases so tests
// can assert the exactly-once teardown invariant.
type fakeSessions struct {
	mu         sync.Mutex
	acquireErr error
	acquired   int
	released   int
}

func (f *fakeSessions) Acquire(ctx context.Context) (*provider.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.acquireErr != nil {
		return nil, f.acquireErr
	}
	f.acquired++
	return &provider.Session{
		ID:         fmt.Sprintf("sess-%d", f.acquired),
		Status:     provider.StatusRunning,
		ConnectURL: "ws://browser.example/devtools/browser/1",
		ReplayURL:  "https://replay.example/sess-1",
	}, nil
}

func (f *fakeSessions) Release(ctx context.Context, sess *provider.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released++
}

func (f *fakeSessions) releases() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.released
}

// fakeDirectory is an in-memory PlayerDirectory.
type fakeDirectory struct {
	players        map[string]*store.Player
	nextID         int
	setRemoteCalls []string
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{players: make(map[string]*store.Player)}
}

func (f *fakeDirectory) GetPlayer(ctx context.Context, id string) (*store.Player, error) {
	if p, ok := f.players[id]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeDirectory) GetOrCreatePlayer(ctx context.Context, name, email string) (*store.Player, error) {
	for _, p := range f.players {
		if strings.EqualFold(p.Name, name) {
			copied := *p
			return &copied, nil
		}
	}
	f.nextID++
	p := &store.Player{ID: fmt.Sprintf("local-%d", f.nextID), Name: name, Email: email}
	f.players[p.ID] = p
	copied := *p
	return &copied, nil
}

func (f *fakeDirectory) SetRemoteID(ctx context.Context, id, remoteID string) error {
	f.setRemoteCalls = append(f.setRemoteCalls, id+"="+remoteID)
	p, ok := f.players[id]
	if !ok {
		return store.ErrNotFound
	}
	p.RemoteID = remoteID
	return nil
}

type fakeAnalysis struct {
	submissions []analysis.Submission
	scores      *analysis.Scores
	err         error
}

func (f *fakeAnalysis) Submit(ctx context.Context, sub analysis.Submission) (*analysis.Scores, error) {
	f.submissions = append(f.submissions, sub)
	if f.err != nil {
		return nil, f.err
	}
	return f.scores, nil
}

type fakeNotifier struct {
	urls   []string
	events []notify.Event
	err    error
}

func (f *fakeNotifier) Send(ctx context.Context, callbackURL string, event notify.Event) error {
	f.urls = append(f.urls, callbackURL)
	f.events = append(f.events, event)
	return f.err
}

type fakeActivity struct {
	entries []store.ActivityEntry
}

func (f *fakeActivity) RecordActivity(ctx context.Context, entry store.ActivityEntry) error {
	f.entries = append(f.entries, entry)
	return nil
}

// fakeAutomation scripts the dashboard surface per test. Calls a test did
// not script fail the run with a recognizable error.
type fakeAutomation struct {
	login      func() (dashboard.LoginResult, error)
	find       func(name string) (dashboard.PlayerMatch, error)
	resolve    func(name, email string) (dashboard.PlayerMatch, bool, error)
	upload     func(remoteID, videoURL string) (dashboard.UploadOutcome, error)
	processing func(jobID string) (dashboard.ProcessingOutcome, error)
	export     func(jobID string) (string, error)
	reports    func(remoteID string) ([]dashboard.SessionRow, error)

	findCalls    int
	resolveCalls int
	uploadCalls  int
	exportCalls  int
}

func (f *fakeAutomation) Login(ctx context.Context) (dashboard.LoginResult, error) {
	if f.login == nil {
		return dashboard.LoginResult{Authenticated: true, FormDetected: true, Message: "Authenticated"}, nil
	}
	return f.login()
}

func (f *fakeAutomation) FindPlayer(ctx context.Context, name string) (dashboard.PlayerMatch, error) {
	f.findCalls++
	if f.find == nil {
		return dashboard.PlayerMatch{}, fmt.Errorf("unscripted FindPlayer call")
	}
	return f.find(name)
}

func (f *fakeAutomation) ResolvePlayer(ctx context.Context, name, email string) (dashboard.PlayerMatch, bool, error) {
	f.resolveCalls++
	if f.resolve == nil {
		return dashboard.PlayerMatch{}, false, fmt.Errorf("unscripted ResolvePlayer call")
	}
	return f.resolve(name, email)
}

func (f *fakeAutomation) UploadVideo(ctx context.Context, remoteID, videoURL string) (dashboard.UploadOutcome, error) {
	f.uploadCalls++
	if f.upload == nil {
		return dashboard.UploadOutcome{}, fmt.Errorf("unscripted UploadVideo call")
	}
	return f.upload(remoteID, videoURL)
}

func (f *fakeAutomation) WaitForProcessing(ctx context.Context, jobID string) (dashboard.ProcessingOutcome, error) {
	if f.processing == nil {
		return dashboard.ProcessingOutcome{}, fmt.Errorf("unscripted WaitForProcessing call")
	}
	return f.processing(jobID)
}

func (f *fakeAutomation) ExportCSV(ctx context.Context, jobID string) (string, error) {
	f.exportCalls++
	if f.export == nil {
		return "", fmt.Errorf("unscripted ExportCSV call")
	}
	return f.export(jobID)
}

func (f *fakeAutomation) PullReports(ctx context.Context, remoteID string) ([]dashboard.SessionRow, error) {
	if f.reports == nil {
		return nil, fmt.Errorf("unscripted PullReports call")
	}
	return f.reports(remoteID)
}

// fixture wires a pipeline out of fakes; tests adjust the fakes they care
// about before calling run.
type fixture struct {
	sessions *fakeSessions
	players  *fakeDirectory
	analysis *fakeAnalysis
	notifier *fakeNotifier
	activity *fakeActivity
	auto     *fakeAutomation

	connectErr error
	closes     int
}

func newFixture() *fixture {
	return &fixture{
		sessions: &fakeSessions{},
		players:  newFakeDirectory(),
		analysis: &fakeAnalysis{},
		notifier: &fakeNotifier{},
		activity: &fakeActivity{},
		auto:     &fakeAutomation{},
	}
}

func (fx *fixture) pipeline() *Pipeline {
	return New(Deps{
		Sessions: fx.sessions,
		Players:  fx.players,
		Analysis: fx.analysis,
		Notifier: fx.notifier,
		Activity: fx.activity,
		Connect: func(ctx context.Context, sess *provider.Session) (Automation, func(), error) {
			if fx.connectErr != nil {
				return nil, nil, fx.connectErr
			}
			return fx.auto, func() { fx.closes++ }, nil
		},
	})
}

func (fx *fixture) run(req Request) *Result {
	return fx.pipeline().Run(context.Background(), req)
}
