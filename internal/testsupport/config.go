package testsupport

import (
	"path/filepath"
	"testing"

	"tally/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Daemon.PartitionWaitSeconds = 0

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithHeartbeat overrides the liveness window on the test config.
func WithHeartbeat(intervalSeconds, expirySeconds int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Heartbeat.IntervalSeconds = intervalSeconds
		cfg.Heartbeat.ExpirySeconds = expirySeconds
	}
}
