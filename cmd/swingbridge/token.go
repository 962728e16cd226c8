package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/loftside/swingbridge/internal/middleware"
)

// TokenCmd mints a bearer token for the API.
func TokenCmd() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an API bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Server.AuthSecret == "" {
				return errors.New("server.auth_secret is not configured")
			}
			token, err := middleware.NewToken(cfg.Server.AuthSecret, subject, ttl)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "cli", "token subject, shows up in request context")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")

	return cmd
}
