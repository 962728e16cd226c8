package keyring

import (
	"fmt"
	"os"

	zkr "github.com/zalando/go-keyring"
)

const (
	serviceName     = "swingbridge"
	passwordAccount = "dashboard-password"
)

// GetDashboardPassword retrieves the dashboard password from the OS keychain.
func GetDashboardPassword() (string, error) {
	secret, err := zkr.Get(serviceName, passwordAccount)
	if err != nil {
		return "", fmt.Errorf("keychain get: %w", err)
	}
	return secret, nil
}

// SetDashboardPassword stores the dashboard password in the OS keychain.
func SetDashboardPassword(secret string) error {
	return zkr.Set(serviceName, passwordAccount, secret)
}

// DeleteDashboardPassword removes the dashboard password from the OS keychain.
func DeleteDashboardPassword() error {
	return zkr.Delete(serviceName, passwordAccount)
}

// Available returns true if the OS keychain is functional.
// Returns false if SWINGBRIDGE_KEYRING_DISABLED=1 is set (for headless/CI/Docker).
// Otherwise probes the keychain with a test write/delete cycle.
func Available() bool {
	if os.Getenv("SWINGBRIDGE_KEYRING_DISABLED") == "1" {
		return false
	}
	testService := "swingbridge-keyring-probe"
	testAccount := "probe"
	if err := zkr.Set(testService, testAccount, "ok"); err != nil {
		return false
	}
	_ = zkr.Delete(testService, testAccount)
	return true
}
