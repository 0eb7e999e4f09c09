package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "/tasks", cfg.CollectionRoot)
	assert.True(t, cfg.PullOnStart)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("REMOTE_BASE_URL", "https://example.test/v1/tasks")
	t.Setenv("STORE_DRIVER", "Memory")
	t.Setenv("SYNC_PULL_ON_START", "false")
	t.Setenv("PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://example.test/v1/tasks", cfg.RemoteBaseURL)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.False(t, cfg.PullOnStart)
	assert.Equal(t, "9090", cfg.Port)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	body := "store_driver: postgres\nsqlite_path: /var/lib/tasks.db\nhttp_user_agent: phone/2\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tasksync.yaml"), []byte(body), 0o644))

	t.Setenv("HTTP_USER_AGENT", "laptop/3")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Equal(t, "/var/lib/tasks.db", cfg.SQLitePath)
	assert.Equal(t, "laptop/3", cfg.UserAgent, "env wins over file")
}

func TestLoad_MissingFileIsFine(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
}

func TestLoad_UnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mongo")

	_, err := Load()
	assert.Error(t, err)
}
