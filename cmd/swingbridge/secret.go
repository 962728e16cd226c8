package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/loftside/swingbridge/internal/keyring"
)

// SecretCmd manages the dashboard password in the OS keychain.
func SecretCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage the dashboard password in the OS keychain",
		Long: `Store the dashboard password in the OS keychain instead of the config
file. When the config file and environment leave dashboard.password empty,
swingbridge reads it from the keychain.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set",
		Short: "Store the dashboard password (read from stdin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !keyring.Available() {
				return errors.New("OS keychain is not available")
			}
			fmt.Fprint(os.Stderr, "Dashboard password: ")
			reader := bufio.NewReader(os.Stdin)
			line, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			secret := strings.TrimRight(line, "\r\n")
			if secret == "" {
				return errors.New("password is empty")
			}
			if err := keyring.SetDashboardPassword(secret); err != nil {
				return err
			}
			fmt.Println("Dashboard password stored in keychain.")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove the dashboard password from the keychain",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := keyring.DeleteDashboardPassword(); err != nil {
				return err
			}
			fmt.Println("Dashboard password removed from keychain.")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Report whether a keychain password is present",
		Run: func(cmd *cobra.Command, args []string) {
			if !keyring.Available() {
				fmt.Println("OS keychain is not available.")
				return
			}
			if _, err := keyring.GetDashboardPassword(); err != nil {
				fmt.Println("No dashboard password stored.")
				return
			}
			fmt.Println("Dashboard password is stored in the keychain.")
		},
	})

	return cmd
}
