package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, int32(8190), cfg.HTTP.Port)
	assert.Equal(t, DefaultDataDir, cfg.Storage.DataDir)
	assert.Equal(t, 30*time.Second, cfg.Remote.Timeout)
	assert.Equal(t, 2, cfg.Tasks.Workers)
	assert.Equal(t, "30 3 * * *", cfg.OrphanSweep.Schedule)
}

func TestNewConfig_Environment(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DATA_DIR", "/tmp/library")
	t.Setenv("REMOTE_URL", "https://books.example.com")
	t.Setenv("REMOTE_TIMEOUT", "5s")
	t.Setenv("TASKS_ENABLED", "false")

	cfg := NewConfig()

	assert.Equal(t, int32(9000), cfg.HTTP.Port)
	assert.Equal(t, "/tmp/library", cfg.Storage.DataDir)
	assert.Equal(t, "https://books.example.com", cfg.Remote.URL)
	assert.Equal(t, 5*time.Second, cfg.Remote.Timeout)
	assert.False(t, cfg.Tasks.Enabled)
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("FOXTALES_TEST_REMOTE=http://from-file\nFOXTALES_TEST_KEPT=file\n"), 0600))

	t.Setenv("FOXTALES_TEST_KEPT", "process")
	t.Cleanup(func() { os.Unsetenv("FOXTALES_TEST_REMOTE") })

	require.NoError(t, LoadEnvFiles(filepath.Join(dir, "missing.env"), path))

	assert.Equal(t, "http://from-file", os.Getenv("FOXTALES_TEST_REMOTE"))
	assert.Equal(t, "process", os.Getenv("FOXTALES_TEST_KEPT"), "existing variables win")
}
