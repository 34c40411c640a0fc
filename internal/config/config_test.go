package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenNoFileAndNoEnv(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 10*time.Second, cfg.PingInterval)
	assert.Equal(t, 30*time.Second, cfg.PongTimeout)
}

func TestLoad_MissingFileIsNotAnError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.NoError(t, err)
}

func TestLoad_FileValuesApply(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listenAddr: :9090\noriginSuffix: .igoserver.example\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, ".igoserver.example", cfg.OriginSuffix)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("databaseURL: postgres://file-value\n"), 0o600))

	t.Setenv("DATABASE_URL", "postgres://env-value")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://env-value", cfg.DatabaseURL)
}

func TestLoad_EnvTimeoutsParseAsSeconds(t *testing.T) {
	t.Setenv("PING_INTERVAL_SECONDS", "5")
	t.Setenv("PONG_TIMEOUT_SECONDS", "15")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.PingInterval)
	assert.Equal(t, 15*time.Second, cfg.PongTimeout)
}

func TestLoad_RunMigrationsFlagParsing(t *testing.T) {
	t.Setenv("RUN_MIGRATIONS", "true")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.RunMigrations)
}
