package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/loftside/swingbridge/internal/provider"
	"github.com/loftside/swingbridge/internal/store"
)

// DoctorCmd creates the doctor command for health checks
func DoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration and connectivity",
		Long: `Run diagnostics on the swingbridge installation.

Checks:
  - Required configuration fields
  - Local database
  - Browser provider API
  - Dashboard reachability
  - Analysis service configuration`,
		Run: func(cmd *cobra.Command, args []string) {
			runDoctor()
		},
	}
}

type checkResult struct {
	name    string
	status  string // "ok", "warn", "error"
	message string
}

func runDoctor() {
	fmt.Println("Swingbridge Doctor")
	fmt.Println("==================")
	fmt.Println()

	results := []checkResult{
		checkConfig(),
		checkDatabase(),
		checkProvider(),
		checkDashboard(),
		checkAnalysis(),
	}

	errorCount := 0
	for _, r := range results {
		switch r.status {
		case "ok":
			fmt.Printf("\033[32m✓\033[0m %s: %s\n", r.name, r.message)
		case "warn":
			fmt.Printf("\033[33m⚠\033[0m %s: %s\n", r.name, r.message)
		case "error":
			fmt.Printf("\033[31m✗\033[0m %s: %s\n", r.name, r.message)
			errorCount++
		}
	}

	fmt.Println()
	if errorCount > 0 {
		fmt.Printf("%d problem(s) found.\n", errorCount)
		os.Exit(1)
	}
	fmt.Println("All checks passed.")
}

func checkConfig() checkResult {
	if err := cfg.Validate(); err != nil {
		return checkResult{"Config", "error", err.Error()}
	}
	return checkResult{"Config", "ok", "all required fields set"}
}

func checkDatabase() checkResult {
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return checkResult{"Database", "error", err.Error()}
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := st.Ping(ctx); err != nil {
		return checkResult{"Database", "error", err.Error()}
	}

	players, err := st.ListPlayers(ctx)
	if err != nil {
		return checkResult{"Database", "error", err.Error()}
	}
	return checkResult{"Database", "ok", fmt.Sprintf("%s (%d players)", cfg.Database.Path, len(players))}
}

func checkProvider() checkResult {
	if cfg.Provider.APIKey == "" {
		return checkResult{"Provider", "warn", "skipped - api_key not set"}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := provider.NewClient(cfg.Provider).Health(ctx); err != nil {
		return checkResult{"Provider", "error", err.Error()}
	}
	return checkResult{"Provider", "ok", cfg.Provider.BaseURL}
}

func checkDashboard() checkResult {
	if cfg.Dashboard.BaseURL == "" {
		return checkResult{"Dashboard", "error", "base_url not set"}
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(cfg.Dashboard.BaseURL)
	if err != nil {
		return checkResult{"Dashboard", "error", err.Error()}
	}
	resp.Body.Close()
	return checkResult{"Dashboard", "ok", fmt.Sprintf("reachable (HTTP %d)", resp.StatusCode)}
}

func checkAnalysis() checkResult {
	if cfg.Analysis.BaseURL == "" {
		return checkResult{"Analysis", "warn", "not configured - score handoff disabled"}
	}
	return checkResult{"Analysis", "ok", cfg.Analysis.BaseURL}
}
