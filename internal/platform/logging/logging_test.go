package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T, level string) (*Logger, string, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	console := &bytes.Buffer{}
	logger, err := New(Config{Level: level, Dir: dir, Filename: "test.log", Console: console})
	require.NoError(t, err)
	t.Cleanup(func() { _ = logger.Close() })
	return logger, filepath.Join(dir, "test.log"), console
}

func TestLogger_WritesFileAndConsole(t *testing.T) {
	logger, path, console := newTestLogger(t, "info")

	logger.InfoTag("SDK", "evaluated %d images", 3)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "[SDK] evaluated 3 images")
	assert.Contains(t, console.String(), "[SDK] evaluated 3 images")
}

func TestLogger_RespectsLevel(t *testing.T) {
	logger, path, _ := newTestLogger(t, "warn")

	logger.Info("hidden info")
	logger.Debug("hidden debug")
	logger.Warn("visible warning")

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "hidden")
	assert.Contains(t, string(content), "visible warning")
}

func TestLogger_StructuredArgs(t *testing.T) {
	logger, path, _ := newTestLogger(t, "debug")

	logger.Debug("batch finished", "images", 2)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"images":2`)
}

func TestLogger_CloseTwice(t *testing.T) {
	logger, _, _ := newTestLogger(t, "info")
	assert.NoError(t, logger.Close())
	assert.NoError(t, logger.Close())
}

func TestLogger_CleanOldLogs(t *testing.T) {
	logger, path, _ := newTestLogger(t, "info")
	dir := filepath.Dir(path)

	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	old := filepath.Join(dir, "test-2026-03-01.log")
	recent := filepath.Join(dir, "test-2026-03-18.log")
	require.NoError(t, os.WriteFile(old, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(recent, []byte("x"), 0o644))

	logger.cleanOldLogs(now)

	assert.NoFileExists(t, old)
	assert.FileExists(t, recent)
}

func TestFormatLog(t *testing.T) {
	assert.Equal(t, "[HTTP] started", FormatLog("HTTP", "started"))
	assert.Equal(t, "[X] kept", FormatLog("HTTP", "[X] kept"))
	assert.Equal(t, "plain", FormatLog("", "plain"))
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	logger.ErrorTag("any", "dropped")
	assert.NotNil(t, logger.Slog())
	assert.NoError(t, logger.Close())
}
