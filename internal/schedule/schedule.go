package schedule

import (
	"context"
	"fmt"

	cronlib "github.com/robfig/cron/v3"

	"github.com/loftside/swingbridge/internal/config"
	"github.com/loftside/swingbridge/internal/logging"
	"github.com/loftside/swingbridge/internal/pipeline"
	"github.com/loftside/swingbridge/internal/store"
)

// Expressions use six fields, seconds first.
const defaultReportPull = "0 0 3 * * *"

// Runner executes one automation request.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) *pipeline.Result
}

// PlayerLister returns the known player roster.
type PlayerLister interface {
	ListPlayers(ctx context.Context) ([]store.Player, error)
}

// Scheduler fires the recurring report pull across every player with a
// dashboard mapping. One browser session is used per player, sequentially.
type Scheduler struct {
	cron    *cronlib.Cron
	spec    string
	players PlayerLister
	runner  Runner
}

func New(cfg config.ScheduleConfig, players PlayerLister, runner Runner) *Scheduler {
	spec := cfg.ReportPull
	if spec == "" {
		spec = defaultReportPull
	}
	return &Scheduler{
		cron:    cronlib.New(cronlib.WithSeconds()),
		spec:    spec,
		players: players,
		runner:  runner,
	}
}

// Start registers the pull job and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, func() {
		s.PullAll(context.Background())
	}); err != nil {
		return fmt.Errorf("schedule report pull %q: %w", s.spec, err)
	}
	s.cron.Start()
	logging.Infof("schedule: report pull registered (%s)", s.spec)
	return nil
}

// Stop halts the cron loop and waits for an in-flight pull to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// PullAll runs pull_reports for each mapped player and returns how many
// ran and how many failed. The pull-reports CLI command calls this
// directly, outside the cron loop.
func (s *Scheduler) PullAll(ctx context.Context) (ran, failed int) {
	players, err := s.players.ListPlayers(ctx)
	if err != nil {
		logging.Errorf("schedule: list players: %v", err)
		return 0, 0
	}

	for _, p := range players {
		if p.RemoteID == "" {
			continue
		}
		ran++
		result := s.runner.Run(ctx, pipeline.Request{
			Action:   pipeline.ActionPullReports,
			PlayerID: p.ID,
		})
		if !result.Success {
			failed++
			logging.Warnf("schedule: report pull for %s failed: %s", p.Name, result.Message)
		}
	}

	logging.Infof("schedule: report pull finished, %d players, %d failures", ran, failed)
	return ran, failed
}
