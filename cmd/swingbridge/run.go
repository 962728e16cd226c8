package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/loftside/swingbridge/internal/logging"
	"github.com/loftside/swingbridge/internal/pipeline"
	"github.com/loftside/swingbridge/internal/svc"
)

// RunCmd creates the run command for one-shot automation actions.
func RunCmd() *cobra.Command {
	var (
		action         string
		playerID       string
		playerName     string
		playerEmail    string
		remotePlayerID string
		videoURL       string
		sessionID      string
		callbackURL    string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one automation action and print the result",
		Long: `Execute a single automation action against the dashboard and print
the run result as JSON. Exits non-zero when the run fails.

Examples:
  swingbridge run --action test_login
  swingbridge run --action full_pipeline --player-name "Jordan Alvarez" \
      --video https://videos.example/swing-1.mp4
  swingbridge run --action pull_reports --player-id 4f1c...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := pipeline.Request{
				Action:         pipeline.Action(action),
				PlayerID:       playerID,
				PlayerName:     playerName,
				PlayerEmail:    playerEmail,
				RemotePlayerID: remotePlayerID,
				VideoURL:       videoURL,
				SessionID:      sessionID,
				CallbackURL:    callbackURL,
			}
			return runOnce(req)
		},
	}

	cmd.Flags().StringVar(&action, "action", "", "action to run (upload_video, create_player, download_data, full_pipeline, test_login, find_player, pull_reports)")
	cmd.Flags().StringVar(&playerID, "player-id", "", "local player id")
	cmd.Flags().StringVar(&playerName, "player-name", "", "player display name")
	cmd.Flags().StringVar(&playerEmail, "player-email", "", "player email for profile creation")
	cmd.Flags().StringVar(&remotePlayerID, "remote-player-id", "", "dashboard player id, skips resolution")
	cmd.Flags().StringVar(&videoURL, "video", "", "video URL to upload")
	cmd.Flags().StringVar(&sessionID, "session", "", "processing session id (for download_data)")
	cmd.Flags().StringVar(&callbackURL, "callback", "", "webhook URL for the outcome event")
	cmd.MarkFlagRequired("action")

	return cmd
}

func runOnce(req pipeline.Request) error {
	// Keep stdout clean for the result JSON.
	if !cfg.Verbose {
		logging.Disable()
	}

	svcCtx, err := svc.NewServiceContext(cfg, Version)
	if err != nil {
		return err
	}
	defer svcCtx.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nInterrupted - releasing browser session...")
		cancel()
	}()

	result := svcCtx.Pipeline.Run(ctx, req)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return err
	}
	if !result.Success {
		os.Exit(1)
	}
	return nil
}
