package testutil

import (
	"io"
	"path/filepath"
	"testing"

	"liveness-playground/internal/platform/config"
	"liveness-playground/internal/platform/logging"
)

// Config returns the default configuration with every path inside a temp
// dir and a loopback listener.
func Config(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Server.IP = "127.0.0.1"
	cfg.Server.StaticDir = ""
	cfg.Log.Level = "DEBUG"
	cfg.Log.Dir = filepath.Join(dir, "logs")
	cfg.Log.File = "test.log"
	cfg.Registry.SQLite.DSN = filepath.Join(dir, "endpoints.db")
	return cfg
}

// Logger writes to a temp log file and keeps the console quiet. It is closed
// when the test ends.
func Logger(t *testing.T) *logging.Logger {
	t.Helper()
	cfg := Config(t)

	logger, err := logging.New(logging.Config{
		Level:    cfg.Log.Level,
		Dir:      cfg.Log.Dir,
		Filename: cfg.Log.File,
		Console:  io.Discard,
	})
	if err != nil {
		t.Fatalf("failed to create test logger: %v", err)
	}
	t.Cleanup(func() { _ = logger.Close() })
	return logger
}
