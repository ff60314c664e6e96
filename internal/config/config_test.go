package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "authdesk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
base_url: https://auth.example.com/api/
cache_dir: `+dir+`
request_timeout: 3s
log_level: debug
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://auth.example.com/api", cfg.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, filepath.Join(dir, "authdesk.db"), cfg.DBPath)
	assert.Equal(t, filepath.Join(dir, "debug.log"), cfg.LogPath)
	assert.Equal(t, Default().SessionCheckInterval, cfg.SessionCheckInterval)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "authdesk.yaml")
	require.NoError(t, os.WriteFile(path, []byte("base_url: http://file.local/api\n"), 0o600))

	t.Setenv("AUTHDESK_BASE_URL", "http://env.local:9000/api")
	t.Setenv("AUTHDESK_SESSION_CHECK_INTERVAL", "15s")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://env.local:9000/api", cfg.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.SessionCheckInterval)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.BaseURL = "localhost:8000"
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.BaseURL = "ftp://example.com/api"
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.RequestTimeout = 0
	assert.Error(t, bad.Validate())
}
