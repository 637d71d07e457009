// Package testutil holds helpers for tests that depend on external services.
package testutil

import (
	"os"
	"testing"
)

// dockerSocket is where testcontainers looks for the daemon when DOCKER_HOST is unset.
var dockerSocket = "/var/run/docker.sock"

// RequireIntegration skips container-backed tests in -short mode, on CI unless
// INTEGRATION_TESTS is set, and wherever no Docker daemon is reachable.
func RequireIntegration(t testing.TB) {
	t.Helper()
	if reason, skip := integrationSkipReason(testing.Short(), os.Getenv); skip {
		t.Skip(reason)
	}
}

func integrationSkipReason(short bool, getenv func(string) string) (string, bool) {
	if short {
		return "skipping integration test in short mode", true
	}
	if getenv("INTEGRATION_TESTS") == "" && getenv("CI") != "" {
		return "skipping integration test (set INTEGRATION_TESTS=1 to run)", true
	}
	if getenv("DOCKER_HOST") == "" {
		if _, err := os.Stat(dockerSocket); err != nil {
			return "skipping integration test: no Docker daemon (set DOCKER_HOST)", true
		}
	}
	return "", false
}
