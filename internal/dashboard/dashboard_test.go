package dashboard

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mailru/easyjson"

	"github.com/loftside/swingbridge/internal/config"
	"github.com/loftside/swingbridge/internal/logging"
	"github.com/loftside/swingbridge/internal/page"
)

func init() {
	logging.Disable()
}

// fakeBrowser scripts the page primitives per test. Sleeps are recorded
// and shortened so attempt-bounded loops run instantly.
type fakeBrowser struct {
	mu sync.Mutex

	navigated []string
	filled    map[string]string
	clicked   []string
	pressed   []string
	sleeps    []time.Duration

	currentURL   func() string
	onFirstMatch func(candidates []string) (string, bool)
	onEvaluate   func(expr string) (any, error)
	onWaitFor    func(selector string, timeout time.Duration) bool
	onText       func(selector string) (string, bool, error)
	onFill       func(selector, value string) error
}

func newFakeBrowser() *fakeBrowser {
	return &fakeBrowser{filled: make(map[string]string)}
}

func (f *fakeBrowser) Navigate(ctx context.Context, url string, opts page.NavigateOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.navigated = append(f.navigated, url)
	return nil
}

func (f *fakeBrowser) Evaluate(expr string) (easyjson.RawMessage, error) {
	if f.onEvaluate == nil {
		return easyjson.RawMessage("null"), nil
	}
	v, err := f.onEvaluate(expr)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(v)
	return raw, err
}

func (f *fakeBrowser) EvaluateInto(expr string, out any) error {
	raw, err := f.Evaluate(expr)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func (f *fakeBrowser) WaitFor(ctx context.Context, selector string, timeout time.Duration) bool {
	if f.onWaitFor == nil {
		return false
	}
	return f.onWaitFor(selector, timeout)
}

func (f *fakeBrowser) FirstMatch(candidates ...string) (string, bool) {
	if f.onFirstMatch == nil {
		return "", false
	}
	return f.onFirstMatch(candidates)
}

func (f *fakeBrowser) Fill(selector, value string) error {
	if f.onFill != nil {
		if err := f.onFill(selector, value); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filled[selector] = value
	return nil
}

func (f *fakeBrowser) FillFirst(candidates []string, value string) (string, error) {
	selector, ok := f.FirstMatch(candidates...)
	if !ok {
		return "", errNoCandidate
	}
	return selector, f.Fill(selector, value)
}

func (f *fakeBrowser) Click(selector string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clicked = append(f.clicked, selector)
	return nil
}

func (f *fakeBrowser) Press(selector, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pressed = append(f.pressed, selector+":"+key)
	return nil
}

func (f *fakeBrowser) Text(selector string) (string, bool, error) {
	if f.onText == nil {
		return "", false, nil
	}
	return f.onText(selector)
}

func (f *fakeBrowser) CurrentURL() (string, error) {
	if f.currentURL == nil {
		return "", nil
	}
	return f.currentURL(), nil
}

func (f *fakeBrowser) Sleep(ctx context.Context, d time.Duration) error {
	f.mu.Lock()
	f.sleeps = append(f.sleeps, d)
	f.mu.Unlock()
	time.Sleep(100 * time.Microsecond)
	return ctx.Err()
}

var errNoCandidate = &candidateError{}

type candidateError struct{}

func (*candidateError) Error() string { return "no candidate selector matched" }

func testDashboard(f *fakeBrowser, opts ...Option) *Dashboard {
	cfg := config.DashboardConfig{
		BaseURL:       "https://dash.example",
		LoginPath:     "/login",
		Email:         "coach@example.com",
		Password:      "hunter2",
		SettleDelayMs: 1,
	}
	base := []Option{
		WithFormWait(40 * time.Millisecond),
		WithFilterSettle(0),
		WithUploadWait(40 * time.Millisecond),
		WithProcessingPoll(time.Millisecond, 30),
	}
	return New(f, cfg, append(base, opts...)...)
}

// matchFirst returns a FirstMatch stub matching whole candidate chains by
// their leading selector.
func matchFirst(matches map[string]string) func([]string) (string, bool) {
	return func(candidates []string) (string, bool) {
		if len(candidates) == 0 {
			return "", false
		}
		if selector, ok := matches[candidates[0]]; ok {
			return selector, true
		}
		return "", false
	}
}

func assertNavigated(t *testing.T, f *fakeBrowser, substr string) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, url := range f.navigated {
		if strings.Contains(url, substr) {
			return
		}
	}
	t.Errorf("no navigation to %q, saw %v", substr, f.navigated)
}
