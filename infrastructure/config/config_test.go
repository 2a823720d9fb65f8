package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ServerAddress)
	assert.Equal(t, "development", cfg.Environment)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "http://localhost:9400", cfg.QueryBackend.BaseURL)
	assert.Equal(t, 60*time.Second, cfg.QueryBackend.Timeout)
	assert.Equal(t, 4, cfg.Session.ExpansionBurst)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("SERVER_ADDRESS", ":9999")
	t.Setenv("SESSION_QUERY_TIMEOUT", "5s")
	t.Setenv("QUERY_BREAKER_FAILURE_THRESHOLD", "0.5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.ServerAddress)
	assert.Equal(t, 5*time.Second, cfg.Session.QueryTimeout)
	assert.Equal(t, 0.5, cfg.QueryBackend.BreakerFailureThreshold)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.QueryBackend.BaseURL = ""
	assert.Error(t, cfg.Validate())

	cfg, _ = Load()
	cfg.QueryBackend.BreakerFailureThreshold = 1.5
	assert.Error(t, cfg.Validate())

	cfg, _ = Load()
	cfg.Environment = "production"
	cfg.QueryBackend.APIKey = ""
	assert.Error(t, cfg.Validate())
}

func writeTuningFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestTuningWatcherLoadsInitialFile(t *testing.T) {
	path := writeTuningFile(t, `
simulation:
  cooldownTicks: 50
  cooldownTimeMs: 8000
limits:
  maxNodesPerGraph: 2000
  expansionRate: 1
  expansionBurst: 2
metadata:
  version: "2"
`)

	w, err := NewTuningWatcher(path, zap.NewNop())
	require.NoError(t, err)
	defer w.Stop()

	tuning := w.Current()
	assert.Equal(t, 50, tuning.Simulation.CooldownTicks)
	assert.Equal(t, 8000, tuning.Simulation.CooldownTimeMs)
	assert.Equal(t, 2000, tuning.Limits.MaxNodesPerGraph)
	assert.Equal(t, "2", tuning.Metadata.Version)
}

func TestTuningWatcherRejectsInvalidInitialFile(t *testing.T) {
	path := writeTuningFile(t, `
limits:
  maxNodesPerGraph: -1
`)

	_, err := NewTuningWatcher(path, zap.NewNop())
	assert.Error(t, err)
}

func TestTuningWatcherReloadsOnChange(t *testing.T) {
	path := writeTuningFile(t, `
simulation:
  cooldownTicks: 50
`)

	w, err := NewTuningWatcher(path, zap.NewNop())
	require.NoError(t, err)
	defer w.Stop()

	changed := make(chan *Tuning, 1)
	w.OnChange(func(tu *Tuning) {
		select {
		case changed <- tu:
		default:
		}
	})
	w.Start()

	require.NoError(t, os.WriteFile(path, []byte(`
simulation:
  cooldownTicks: 75
`), 0o644))

	select {
	case tuning := <-changed:
		assert.Equal(t, 75, tuning.Simulation.CooldownTicks)
		assert.Equal(t, 75, w.Current().Simulation.CooldownTicks)
	case <-time.After(3 * time.Second):
		t.Fatal("tuning reload was not observed")
	}
}

func TestTuningWatcherKeepsCurrentOnInvalidReload(t *testing.T) {
	path := writeTuningFile(t, `
simulation:
  cooldownTicks: 50
`)

	w, err := NewTuningWatcher(path, zap.NewNop())
	require.NoError(t, err)
	defer w.Stop()
	w.Start()

	require.NoError(t, os.WriteFile(path, []byte(`
limits:
  expansionBurst: 0
`), 0o644))

	// The invalid revision never becomes current.
	time.Sleep(500 * time.Millisecond)
	assert.Equal(t, 50, w.Current().Simulation.CooldownTicks)
}

func TestDefaultTuningIsValid(t *testing.T) {
	assert.NoError(t, validateTuning(DefaultTuning()))
}
