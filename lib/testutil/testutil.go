package testutil

import (
	"testing"

	"certifyhub-backend/lib/telemetry"
)

// Setup initializes logging and telemetry once for a package's tests
// and returns a scratch directory for dataset files. A missing
// telemetry config is fine, spans just go nowhere.
func Setup(t testing.TB, name string) string {
	cleanup := telemetry.SetupForTesting("test:" + name)
	t.Cleanup(cleanup)
	return t.TempDir()
}
