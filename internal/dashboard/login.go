package dashboard

import (
	"context"
	"fmt"
	"strings"

	"github.com/loftside/swingbridge/internal/logging"
	"github.com/loftside/swingbridge/internal/page"
)

// LoginResult reports the authentication attempt. Expected failure modes
// are values here, never errors; the transport erroring out is the only
// thing that raises.
type LoginResult struct {
	Authenticated bool   `json:"authenticated"`
	FormDetected  bool   `json:"formDetected"`
	Message       string `json:"message"`
	URL           string `json:"url"`
}

// Login authenticates against the dashboard. When no login form renders
// within the form window, the current URL decides: off the login path means
// an existing session is still valid, on it means a detected failure.
func (d *Dashboard) Login(ctx context.Context) (LoginResult, error) {
	if err := d.browser.Navigate(ctx, d.url(d.loginPath), page.NavigateOptions{}); err != nil {
		return LoginResult{}, fmt.Errorf("open login page: %w", err)
	}

	emailSelector, formFound := d.firstMatchWait(ctx, emailSelectors, d.formWait)
	if !formFound {
		href, err := d.browser.CurrentURL()
		if err != nil {
			return LoginResult{}, fmt.Errorf("check location after login wait: %w", err)
		}
		if !strings.Contains(href, d.loginPath) {
			logging.Infof("dashboard: already authenticated, landed on %s", href)
			return LoginResult{Authenticated: true, Message: "Existing session reused", URL: href}, nil
		}
		return LoginResult{Message: "Login form not detected", URL: href}, nil
	}

	if err := d.browser.Fill(emailSelector, d.email); err != nil {
		return LoginResult{}, fmt.Errorf("fill email: %w", err)
	}
	passwordSelector, err := d.browser.FillFirst(passwordSelectors, d.password)
	if err != nil {
		return LoginResult{}, fmt.Errorf("fill password: %w", err)
	}

	// Submit: button chain first, Enter on the password field as the last
	// resort for forms without a reachable button.
	if submit, ok := d.browser.FirstMatch(submitSelectors...); ok {
		if err := d.browser.Click(submit); err != nil {
			return LoginResult{}, fmt.Errorf("submit login: %w", err)
		}
	} else if err := d.browser.Press(passwordSelector, "Enter"); err != nil {
		return LoginResult{}, fmt.Errorf("submit login via keypress: %w", err)
	}

	if err := d.browser.Sleep(ctx, d.settle); err != nil {
		return LoginResult{}, err
	}

	href, err := d.browser.CurrentURL()
	if err != nil {
		return LoginResult{}, fmt.Errorf("check location after submit: %w", err)
	}
	if strings.Contains(href, d.loginPath) {
		return LoginResult{
			FormDetected: true,
			Message:      "Authentication failed: still on login page after submit",
			URL:          href,
		}, nil
	}
	logging.Infof("dashboard: authenticated as %s", d.email)
	return LoginResult{Authenticated: true, FormDetected: true, Message: "Authenticated", URL: href}, nil
}
