package testutil

import (
	"os"
	"testing"
)

// RequireIntegration skips the test unless INTEGRATION=1 and -short is off.
// Integration tests start containers and need a Docker daemon.
func RequireIntegration(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in -short mode")
	}
	if os.Getenv("INTEGRATION") != "1" {
		t.Skip("set INTEGRATION=1 to run integration tests")
	}
}
