package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/loftside/swingbridge/internal/config"
	"github.com/loftside/swingbridge/internal/keyring"
	"github.com/loftside/swingbridge/internal/logging"
)

// Version is stamped by the release build; "dev" otherwise.
var Version = "dev"

// Shared CLI flags (used across multiple command files)
var (
	cfgFile string
	verbose bool
)

// cfg holds the loaded configuration (set by the root PersistentPreRunE)
var cfg config.Config

// SetupRootCmd configures the root command with all subcommands and flags
func SetupRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "swingbridge",
		Short: "Swingbridge - swing dashboard automation bridge",
		Long: `Swingbridge drives a cloud browser against the swing lab dashboard:
it uploads training videos, resolves player profiles, waits out processing,
exports session data, and hands results to the analysis service.

Just type 'swingbridge' to start the API server.
Use 'swingbridge run' for one-shot actions from the command line.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			path := cfgFile
			if path == "" {
				if _, err := os.Stat("swingbridge.yaml"); err == nil {
					path = "swingbridge.yaml"
				}
			}
			c, err := config.Load(path)
			if err != nil {
				return err
			}
			if verbose {
				c.Verbose = true
			}
			logging.SetVerbose(c.Verbose)

			// Fall back to the OS keychain for the dashboard password when
			// neither the config file nor the environment supplied one.
			if c.Dashboard.Password == "" && keyring.Available() {
				if secret, err := keyring.GetDashboardPassword(); err == nil {
					c.Dashboard.Password = secret
				}
			}

			cfg = c
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./swingbridge.yaml if present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Add commands
	rootCmd.AddCommand(ServeCmd())
	rootCmd.AddCommand(RunCmd())
	rootCmd.AddCommand(PullReportsCmd())
	rootCmd.AddCommand(PlayersCmd())
	rootCmd.AddCommand(TokenCmd())
	rootCmd.AddCommand(SecretCmd())
	rootCmd.AddCommand(DoctorCmd())

	return rootCmd
}
