package pipeline

import (
	"context"

	"github.com/loftside/swingbridge/internal/cdp"
	"github.com/loftside/swingbridge/internal/config"
	"github.com/loftside/swingbridge/internal/dashboard"
	"github.com/loftside/swingbridge/internal/page"
	"github.com/loftside/swingbridge/internal/provider"
)

// DashboardConnector dials a leased session's control endpoint and builds
// the dashboard automation on top of it. This is the production ConnectFunc.
func DashboardConnector(cfg config.DashboardConfig) ConnectFunc {
	return func(ctx context.Context, sess *provider.Session) (Automation, func(), error) {
		conn, err := cdp.Dial(ctx, sess.ConnectURL)
		if err != nil {
			return nil, nil, err
		}
		pg := page.New(conn, page.WithSettleDelay(cfg.SettleDelay()))
		return dashboard.New(pg, cfg), func() { conn.Close() }, nil
	}
}
