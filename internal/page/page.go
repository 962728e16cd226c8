package page

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/mailru/easyjson"

	"github.com/loftside/swingbridge/internal/logging"
)

// pollInterval is the selector polling cadence for WaitFor.
const pollInterval = 500 * time.Millisecond

// Commander is the slice of the protocol connection the primitives need.
type Commander interface {
	Send(method string, params any) (easyjson.RawMessage, error)
}

// EvalError is a script expression that threw inside the page. The page's
// own exception description is preserved.
type EvalError struct {
	Detail string
}

func (e *EvalError) Error() string {
	return "page evaluation failed: " + e.Detail
}

// Option adjusts page behavior.
type Option func(*Page)

// WithSettleDelay overrides the fixed post-navigation settle delay.
func WithSettleDelay(d time.Duration) Option {
	return func(p *Page) {
		if d >= 0 {
			p.settle = d
		}
	}
}

// Page exposes automation primitives over one attached page target.
type Page struct {
	conn   Commander
	settle time.Duration
}

// New wraps a protocol connection in page primitives.
func New(conn Commander, opts ...Option) *Page {
	p := &Page{
		conn:   conn,
		settle: 3 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NavigateOptions tune a single navigation.
type NavigateOptions struct {
	// ExtraWait extends the settle delay for pages known to render slowly.
	ExtraWait time.Duration
}

// Navigate loads a URL and then sleeps the settle delay plus ExtraWait.
// The target dashboard renders client-side with no reliable readiness
// signal over this transport, so the fixed delay is the contract: proceed
// after the wait, never block indefinitely.
func (p *Page) Navigate(ctx context.Context, url string, opts NavigateOptions) error {
	raw, err := p.conn.Send("Page.navigate", cdppage.NavigateParams{URL: url})
	if err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	var result cdppage.NavigateReturns
	if err := json.Unmarshal(raw, &result); err == nil && result.ErrorText != "" {
		return fmt.Errorf("navigate %s: %s", url, result.ErrorText)
	}
	logging.Debugf("page: navigated to %s", url)
	return p.Sleep(ctx, p.settle+opts.ExtraWait)
}

// Evaluate runs an expression in the page, awaiting promises and returning
// by value. A page-side exception comes back as *EvalError.
func (p *Page) Evaluate(expr string) (easyjson.RawMessage, error) {
	raw, err := p.conn.Send("Runtime.evaluate", runtime.EvaluateParams{
		Expression:    expr,
		ReturnByValue: true,
		AwaitPromise:  true,
	})
	if err != nil {
		return nil, err
	}
	var result runtime.EvaluateReturns
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode evaluate result: %w", err)
	}
	if result.ExceptionDetails != nil {
		detail := result.ExceptionDetails.Text
		if exc := result.ExceptionDetails.Exception; exc != nil && exc.Description != "" {
			detail = exc.Description
		}
		return nil, &EvalError{Detail: detail}
	}
	if result.Result == nil {
		return nil, nil
	}
	return result.Result.Value, nil
}

// EvaluateInto runs an expression and decodes its value into out.
func (p *Page) EvaluateInto(expr string, out any) error {
	value, err := p.Evaluate(expr)
	if err != nil {
		return err
	}
	if len(value) == 0 {
		return nil
	}
	return json.Unmarshal(value, out)
}

// Exists reports whether a selector currently matches.
func (p *Page) Exists(selector string) (bool, error) {
	var found bool
	if err := p.EvaluateInto(scriptExists(selector), &found); err != nil {
		return false, err
	}
	return found, nil
}

// WaitFor polls for a selector until it appears or the timeout elapses.
// Absence is a boolean, not an error, so callers can branch without
// exception-driven control flow. Evaluation errors during the window count
// as not-found-yet; navigations in flight make them routine. Context
// cancellation ends the wait early as not-found.
func (p *Page) WaitFor(ctx context.Context, selector string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		found, err := p.Exists(selector)
		if err == nil && found {
			return true
		}
		if !time.Now().Before(deadline) {
			return false
		}
		if err := p.Sleep(ctx, pollInterval); err != nil {
			return false
		}
	}
}

// FirstMatch returns the first selector in candidates that matches, in
// candidate order. It collapses selector fallback chains into one call.
func (p *Page) FirstMatch(candidates ...string) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}
	var match *string
	if err := p.EvaluateInto(scriptFirstMatch(candidates), &match); err != nil {
		return "", false
	}
	if match == nil || *match == "" {
		return "", false
	}
	return *match, true
}

// Fill sets an input's value through the native property setter and fires
// synthetic input/change events so reactive frameworks observe it. A
// missing element is an error so callers can try the next candidate.
func (p *Page) Fill(selector, value string) error {
	var ok bool
	if err := p.EvaluateInto(scriptFill(selector, value), &ok); err != nil {
		return fmt.Errorf("fill %s: %w", selector, err)
	}
	if !ok {
		return fmt.Errorf("fill %s: no matching element", selector)
	}
	return nil
}

// FillFirst fills the first matching candidate selector and returns the
// one used.
func (p *Page) FillFirst(candidates []string, value string) (string, error) {
	selector, ok := p.FirstMatch(candidates...)
	if !ok {
		return "", fmt.Errorf("fill: no candidate selector matched (%d tried)", len(candidates))
	}
	if err := p.Fill(selector, value); err != nil {
		return "", err
	}
	return selector, nil
}

// Click clicks the selector when present. A missing element is a silent
// no-op at this layer; the calling flow decides whether that is fatal.
func (p *Page) Click(selector string) error {
	var clicked bool
	if err := p.EvaluateInto(scriptClick(selector), &clicked); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	if !clicked {
		logging.Debugf("page: click target %s not present, skipped", selector)
	}
	return nil
}

// Press dispatches synthetic key events on the selector.
func (p *Page) Press(selector, key string) error {
	var ok bool
	if err := p.EvaluateInto(scriptPress(selector, key), &ok); err != nil {
		return fmt.Errorf("press %s on %s: %w", key, selector, err)
	}
	if !ok {
		return fmt.Errorf("press %s: no matching element", selector)
	}
	return nil
}

// Text returns the innerText of the selector when present.
func (p *Page) Text(selector string) (string, bool, error) {
	var text *string
	if err := p.EvaluateInto(scriptText(selector), &text); err != nil {
		return "", false, err
	}
	if text == nil {
		return "", false, nil
	}
	return *text, true, nil
}

// CurrentURL returns the page's current location.
func (p *Page) CurrentURL() (string, error) {
	var href string
	if err := p.EvaluateInto("window.location.href", &href); err != nil {
		return "", err
	}
	return href, nil
}

// Title returns the current document title.
func (p *Page) Title() (string, error) {
	var title string
	if err := p.EvaluateInto("document.title", &title); err != nil {
		return "", err
	}
	return title, nil
}

// Sleep pauses the calling flow for fixed settle waits between dashboard
// interactions, returning early with the context error on cancellation.
func (p *Page) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
