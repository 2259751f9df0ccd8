package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_PassesValidation(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	assert.NoError(t, Validate(&cfg))
}

func TestValidate_RejectsBadLogLevel(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Logging.Level = "VERBOSE"
	assert.Error(t, Validate(&cfg))
}

func TestValidate_RejectsZeroMaxClients(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.ClientRegistry.MaxClients = 0
	assert.Error(t, Validate(&cfg))
}

func TestLoad_FallsBackToDefaultsWhenFileMissing(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), *cfg)
}

func TestLoad_ReadsYAMLFileAndAppliesOverrides(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	contents := `
logging:
  level: DEBUG
  format: json
  output: stdout
client_registry:
  max_clients: 1024
io_threads:
  watchdog_seconds: 5
  idle_time: 30s
  max_count: 8
  limit: [4, 2, 1, 1]
  cleanup_disconnected_reqs: false
  stall_event_thresholds: [3, 3, 3, 3]
  stall_window_seconds: 60
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.EqualValues(t, 1024, cfg.ClientRegistry.MaxClients)
	assert.Equal(t, 5, cfg.IOThreads.WatchdogSeconds)
	assert.False(t, cfg.IOThreads.CleanupDisconnectedReqs)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: INFO\n  format: text\n  output: stdout\n"), 0o600))

	t.Setenv("IOCORE_LOGGING_LEVEL", "ERROR")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ERROR", cfg.Logging.Level)
}

func TestSave_RoundTripsThroughYAML(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Logging.Level = "WARN"
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	require.NoError(t, Save(&cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "WARN", loaded.Logging.Level)
}
