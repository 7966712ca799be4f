// Package testsupport provides shared builders for package tests.
package testsupport

import (
	"path/filepath"
	"testing"
	"time"

	"symsync/internal/config"
	"symsync/internal/store"
)

// ConfigOption customizes the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithRescanInterval overrides the default reconciliation interval.
func WithRescanInterval(interval time.Duration) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Engine.RescanIntervalSeconds = int(interval / time.Second)
	}
}

// WithRescanTick overrides the reconciliation loop tick.
func WithRescanTick(tick time.Duration) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Engine.RescanTickMillis = int(tick / time.Millisecond)
	}
}

// MustOpenStore opens the configuration database for cfg and closes it when
// the test finishes.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()
	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}
