package dashboard

import (
	"context"
	"fmt"
	"strings"

	"github.com/loftside/swingbridge/internal/logging"
	"github.com/loftside/swingbridge/internal/page"
)

// PlayerMatch is the outcome of a search or creation attempt against the
// dashboard's athlete records.
type PlayerMatch struct {
	Found    bool   `json:"found"`
	RemoteID string `json:"remoteId,omitempty"`
	Name     string `json:"name"`
	Href     string `json:"href,omitempty"`
}

type athleteLink struct {
	Href string `json:"href"`
	Text string `json:"text"`
}

// FindPlayer searches the athletes listing for a name. The listing filters
// client-side, so a search box (when present) narrows it before scanning
// anchor text.
func (d *Dashboard) FindPlayer(ctx context.Context, name string) (PlayerMatch, error) {
	if err := d.browser.Navigate(ctx, d.url(athletesPath), page.NavigateOptions{}); err != nil {
		return PlayerMatch{Name: name}, fmt.Errorf("open athletes listing: %w", err)
	}

	if search, ok := d.browser.FirstMatch(searchSelectors...); ok {
		if err := d.browser.Fill(search, name); err == nil {
			if err := d.browser.Sleep(ctx, d.filterSettle); err != nil {
				return PlayerMatch{Name: name}, err
			}
		}
	}

	var links []athleteLink
	if err := d.browser.EvaluateInto(scriptAthleteLinks(name), &links); err != nil {
		return PlayerMatch{Name: name}, fmt.Errorf("scan athlete links: %w", err)
	}
	for _, link := range links {
		if m := athleteIDPattern.FindStringSubmatch(link.Href); len(m) > 1 {
			logging.Infof("dashboard: found athlete %q as %s", name, m[1])
			return PlayerMatch{Found: true, RemoteID: m[1], Name: name, Href: link.Href}, nil
		}
	}
	return PlayerMatch{Name: name}, nil
}

// CreatePlayer registers a new athlete and extracts the assigned remote id
// from the post-submit URL. Missing optional fields on the form are
// tolerated; a missing name field is not.
func (d *Dashboard) CreatePlayer(ctx context.Context, name, email string) (PlayerMatch, error) {
	if err := d.browser.Navigate(ctx, d.url(newAthletePath), page.NavigateOptions{}); err != nil {
		return PlayerMatch{Name: name}, fmt.Errorf("open new athlete form: %w", err)
	}

	nameSelector, ok := d.firstMatchWait(ctx, nameFieldSelectors, d.formWait)
	if !ok {
		return PlayerMatch{Name: name}, fmt.Errorf("new athlete form: name field never rendered")
	}
	if err := d.browser.Fill(nameSelector, name); err != nil {
		return PlayerMatch{Name: name}, fmt.Errorf("fill athlete name: %w", err)
	}
	if email != "" {
		if _, err := d.browser.FillFirst(emailFieldSelectors, email); err != nil {
			logging.Debugf("dashboard: athlete form has no email field, skipping: %v", err)
		}
	}

	submit, ok := d.browser.FirstMatch(submitSelectors...)
	if !ok {
		return PlayerMatch{Name: name}, fmt.Errorf("new athlete form: no submit control")
	}
	if err := d.browser.Click(submit); err != nil {
		return PlayerMatch{Name: name}, fmt.Errorf("submit new athlete: %w", err)
	}

	if err := d.browser.Sleep(ctx, d.settle); err != nil {
		return PlayerMatch{Name: name}, err
	}
	// Creation failures leave the URL on /athletes/new; only a real record
	// id counts.
	remoteID, ok := d.waitURLPattern(ctx, athleteIDPattern, d.formWait, "new")
	if !ok {
		return PlayerMatch{Name: name}, nil
	}
	logging.Infof("dashboard: created athlete %q as %s", name, remoteID)
	return PlayerMatch{Found: true, RemoteID: remoteID, Name: name}, nil
}

// ResolvePlayer finds an athlete, creating the record when the search comes
// up empty. Search-then-create keeps the operation idempotent: a rerun
// finds the record the previous run created.
func (d *Dashboard) ResolvePlayer(ctx context.Context, name, email string) (PlayerMatch, bool, error) {
	match, err := d.FindPlayer(ctx, name)
	if err != nil {
		return match, false, err
	}
	if match.Found {
		return match, false, nil
	}
	created, err := d.CreatePlayer(ctx, name, email)
	if err != nil {
		return created, false, err
	}
	if !created.Found {
		return created, false, fmt.Errorf("%w: %q not found and creation yielded no id", ErrPlayerResolution, name)
	}
	return created, true, nil
}

// normalizeName lowercases and trims for the case-insensitive contains
// matching the listing scan uses.
func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
