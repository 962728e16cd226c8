package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/loftside/swingbridge/internal/server"
)

// ServeCmd creates the serve command (explicit form of the default action)
func ServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the automation API server",
		Long:  `Start the swingbridge HTTP API and, when enabled, the nightly report pull scheduler.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Printf("\nReceived signal: %v - shutting down...\n", sig)
		cancel()
	}()

	return server.Run(ctx, cfg, server.ServerOptions{Version: Version})
}
