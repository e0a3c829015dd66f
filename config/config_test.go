package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"github.com/nlimpid/sqlstream/record"
)

func TestDefault(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "duckdb", cfg.Database.Driver)
	assert.Equal(t, 30*time.Second, cfg.Timeouts.Connect)
	assert.Equal(t, 30*time.Second, cfg.Timeouts.Read)
	assert.Equal(t, 10*time.Second, cfg.Timeouts.Close)
	assert.Equal(t, record.PolicyFirst, cfg.RecordOptions().DefaultPolicy)
	lvl, err := cfg.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, lvl)
}

func TestRead(t *testing.T) {
	cfg, err := Read(strings.NewReader(`
database:
  driver: pgx
  dsn: postgres://localhost/app
timeouts:
  connect: 2s
  read: 500ms
record:
  ambiguous_policy: last
stream:
  expected_size: 64
log:
  level: debug
`))
	require.NoError(t, err)

	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.Equal(t, "postgres://localhost/app", cfg.Database.DSN)
	ts := cfg.StreamTimeouts()
	assert.Equal(t, 2*time.Second, ts.Connect)
	assert.Equal(t, 500*time.Millisecond, ts.Read)
	assert.Equal(t, 10*time.Second, ts.Close, "unset keys keep their default")
	assert.Equal(t, record.PolicyLast, cfg.RecordOptions().DefaultPolicy)
	assert.Equal(t, 64, cfg.Stream.ExpectedSize)
	assert.Len(t, cfg.StreamOptions(nil), 4)

	var buf bytes.Buffer
	cfg.Logger(&buf).Debug("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sqlstream.yaml")
	require.NoError(t, os.WriteFile(path, []byte("record:\n  ambiguous_policy: error\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, record.PolicyError, cfg.RecordOptions().DefaultPolicy)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("SQLSTREAM_TIMEOUTS_READ", "7s")
	t.Setenv("SQLSTREAM_RECORD_AMBIGUOUS_POLICY", "last")

	cfg, err := Default()
	require.NoError(t, err)
	assert.Equal(t, 7*time.Second, cfg.Timeouts.Read)
	assert.Equal(t, record.PolicyLast, cfg.RecordOptions().DefaultPolicy)
}

func TestInvalidValues(t *testing.T) {
	_, err := Read(strings.NewReader("record:\n  ambiguous_policy: middle\n"))
	assert.Error(t, err)

	_, err = Read(strings.NewReader("log:\n  level: loud\n"))
	assert.Error(t, err)
}

func TestLoggerFiltersBelowLevel(t *testing.T) {
	cfg, err := Read(strings.NewReader("log:\n  level: warn\n"))
	require.NoError(t, err)

	var buf bytes.Buffer
	l := cfg.Logger(&buf)
	l.Info("hidden")
	l.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
