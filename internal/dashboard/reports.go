package dashboard

import (
	"context"
	"fmt"

	"github.com/loftside/swingbridge/internal/logging"
	"github.com/loftside/swingbridge/internal/page"
)

// SessionRow is one scraped entry from a player's session listing. Rows
// carry at least a date or a session id; anything without either is
// dropped during extraction.
type SessionRow struct {
	Date      string `json:"date,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Href      string `json:"href,omitempty"`
	Title     string `json:"title,omitempty"`
}

// PullReports scrapes a player's existing session rows without uploading
// anything. This is the read-back path for callers that only need the
// dashboard's current state.
func (d *Dashboard) PullReports(ctx context.Context, remoteID string) ([]SessionRow, error) {
	listURL := d.url(fmt.Sprintf("%s/%s/sessions", athletesPath, remoteID))
	if err := d.browser.Navigate(ctx, listURL, page.NavigateOptions{}); err != nil {
		return nil, fmt.Errorf("open session listing: %w", err)
	}

	var rows []SessionRow
	if err := d.browser.EvaluateInto(scriptSessionRows(), &rows); err != nil {
		return nil, fmt.Errorf("scrape session rows: %w", err)
	}

	usable := rows[:0]
	for _, row := range rows {
		if row.Date != "" || row.SessionID != "" {
			usable = append(usable, row)
		}
	}
	if len(usable) == 0 {
		return nil, fmt.Errorf("%w: athlete %s listing had no rows", ErrNoSessionData, remoteID)
	}
	logging.Infof("dashboard: pulled %d session rows for athlete %s", len(usable), remoteID)
	return usable, nil
}
