package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loftside/swingbridge/internal/schedule"
	"github.com/loftside/swingbridge/internal/svc"
)

// PullReportsCmd runs the report pull once, outside the cron schedule.
func PullReportsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pull-reports",
		Short: "Pull session reports for every mapped player now",
		RunE: func(cmd *cobra.Command, args []string) error {
			svcCtx, err := svc.NewServiceContext(cfg, Version)
			if err != nil {
				return err
			}
			defer svcCtx.Close()

			sched := schedule.New(cfg.Schedule, svcCtx.Store, svcCtx.Pipeline)
			ran, failed := sched.PullAll(context.Background())

			fmt.Printf("Pulled reports for %d players (%d failures)\n", ran, failed)
			if failed > 0 {
				os.Exit(1)
			}
			return nil
		},
	}
}
