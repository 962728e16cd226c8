package dashboard

import (
	"context"
	"errors"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/mailru/easyjson"

	"github.com/loftside/swingbridge/internal/config"
	"github.com/loftside/swingbridge/internal/page"
)

var (
	// ErrPlayerResolution means a player was neither found nor creatable.
	ErrPlayerResolution = errors.New("player could not be resolved")
	// ErrNoSessionData means a scrape produced no usable session rows.
	ErrNoSessionData = errors.New("no session data extracted")
	// ErrNoExport means the export UI produced no download reference.
	ErrNoExport = errors.New("no export reference produced")
)

// Browser is the slice of page automation the flows run on.
type Browser interface {
	Navigate(ctx context.Context, url string, opts page.NavigateOptions) error
	Evaluate(expr string) (easyjson.RawMessage, error)
	EvaluateInto(expr string, out any) error
	WaitFor(ctx context.Context, selector string, timeout time.Duration) bool
	FirstMatch(candidates ...string) (string, bool)
	Fill(selector, value string) error
	FillFirst(candidates []string, value string) (string, error)
	Click(selector string) error
	Press(selector, key string) error
	Text(selector string) (string, bool, error)
	CurrentURL() (string, error)
	Sleep(ctx context.Context, d time.Duration) error
}

// Selector candidates for the dashboard's SPA markup, in priority order.
// The markup drifts between releases; chains keep the flows working across
// the variants seen so far.
var (
	emailSelectors = []string{
		`input[type="email"]`,
		`input[name="email"]`,
		`input[name="username"]`,
		`input[autocomplete="username"]`,
	}
	passwordSelectors = []string{
		`input[type="password"]`,
		`input[name="password"]`,
	}
	submitSelectors = []string{
		`button[type="submit"]`,
		`form button:last-of-type`,
	}
	searchSelectors = []string{
		`input[type="search"]`,
		`input[placeholder*="Search" i]`,
		`input[name="q"]`,
	}
	nameFieldSelectors = []string{
		`input[name="name"]`,
		`input[name="fullName"]`,
		`input[placeholder*="Name" i]`,
	}
	emailFieldSelectors = []string{
		`input[type="email"]`,
		`input[name="email"]`,
	}
	fileInputSelectors = []string{
		`input[type="file"]`,
		`.dropzone input`,
		`[data-testid="upload-input"]`,
	}
	exportSelectors = []string{
		`button[data-export]`,
		`button.export`,
		`[aria-label="Export"]`,
	}
	csvOptionSelectors = []string{
		`[data-format="csv"]`,
		`li[data-value="csv"]`,
		`button.export-csv`,
	}
)

const (
	// uploadCompleteMarker is a selector list; any one terminal marker ends
	// the upload wait.
	uploadCompleteMarker = `.upload-complete, [data-upload-state="complete"], .upload-success`
	// statusSelector is where the dashboard renders a processing job's state.
	statusSelector = `.processing-status, [data-job-status], .status-badge`

	athletesPath   = "/athletes"
	newAthletePath = "/athletes/new"
)

var (
	athleteIDPattern = regexp.MustCompile(`/athletes/([A-Za-z0-9-]+)`)
	jobIDPattern     = regexp.MustCompile(`/(?:sessions|jobs|swings)/([A-Za-z0-9-]+)`)
)

// Dashboard drives the remote swing dashboard through page primitives.
type Dashboard struct {
	browser Browser

	baseURL   string
	loginPath string
	email     string
	password  string
	settle    time.Duration

	formWait     time.Duration
	uploadWait   time.Duration
	pollInterval time.Duration
	pollAttempts int
	filterSettle time.Duration
}

// Option adjusts flow timing, mainly for tests.
type Option func(*Dashboard)

// WithFormWait overrides how long login and upload forms get to render.
func WithFormWait(d time.Duration) Option {
	return func(dash *Dashboard) {
		if d > 0 {
			dash.formWait = d
		}
	}
}

// WithUploadWait overrides the upload completion window.
func WithUploadWait(d time.Duration) Option {
	return func(dash *Dashboard) {
		if d > 0 {
			dash.uploadWait = d
		}
	}
}

// WithProcessingPoll overrides the processing poll cadence and bound.
func WithProcessingPoll(interval time.Duration, attempts int) Option {
	return func(dash *Dashboard) {
		if interval > 0 {
			dash.pollInterval = interval
		}
		if attempts > 0 {
			dash.pollAttempts = attempts
		}
	}
}

// WithFilterSettle overrides the wait after typing into a search box.
func WithFilterSettle(d time.Duration) Option {
	return func(dash *Dashboard) {
		if d >= 0 {
			dash.filterSettle = d
		}
	}
}

// New binds page primitives to the dashboard configuration.
func New(browser Browser, cfg config.DashboardConfig, opts ...Option) *Dashboard {
	loginPath := cfg.LoginPath
	if loginPath == "" {
		loginPath = "/login"
	}
	dash := &Dashboard{
		browser:      browser,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		loginPath:    loginPath,
		email:        cfg.Email,
		password:     cfg.Password,
		settle:       cfg.SettleDelay(),
		formWait:     10 * time.Second,
		uploadWait:   2 * time.Minute,
		pollInterval: 10 * time.Second,
		pollAttempts: 30,
		filterSettle: 1500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(dash)
	}
	return dash
}

func (d *Dashboard) url(path string) string {
	return d.baseURL + path
}

// firstMatchWait polls the candidate chain until one matches or the window
// closes. FirstMatch itself is a single pass; forms on this dashboard
// render asynchronously.
func (d *Dashboard) firstMatchWait(ctx context.Context, candidates []string, timeout time.Duration) (string, bool) {
	deadline := time.Now().Add(timeout)
	for {
		if selector, ok := d.browser.FirstMatch(candidates...); ok {
			return selector, true
		}
		if !time.Now().Before(deadline) {
			return "", false
		}
		if err := d.browser.Sleep(ctx, 500*time.Millisecond); err != nil {
			return "", false
		}
	}
}

// waitURLPattern polls the current location until it matches or the window
// closes, returning the first capture group. Captures listed in reject are
// treated as not-yet-matched; the creation flow sits on /athletes/new until
// the dashboard assigns a real id.
func (d *Dashboard) waitURLPattern(ctx context.Context, pattern *regexp.Regexp, timeout time.Duration, reject ...string) (string, bool) {
	deadline := time.Now().Add(timeout)
	for {
		if href, err := d.browser.CurrentURL(); err == nil {
			if m := pattern.FindStringSubmatch(href); len(m) > 1 && !slices.Contains(reject, m[1]) {
				return m[1], true
			}
		}
		if !time.Now().Before(deadline) {
			return "", false
		}
		if err := d.browser.Sleep(ctx, 500*time.Millisecond); err != nil {
			return "", false
		}
	}
}
