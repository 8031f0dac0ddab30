package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the user config dir at a temp dir so a developer's own
// config never leaks into tests.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	return dir
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 500*time.Millisecond, cfg.NoteDebounce)
	assert.Equal(t, 20*time.Second, cfg.Remote.Timeout)
	assert.False(t, cfg.SyncEnabled())
	assert.Equal(t, 1600, cfg.Images.MaxDimension)
	assert.Equal(t, 0.82, cfg.Images.Quality)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, ":3000", cfg.Server.Addr)

	dir, err := Dir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "hard75.db"), cfg.DBPath)
	assert.Equal(t, filepath.Join(dir, "hard75-server.db"), cfg.Server.DBPath)
	assert.Equal(t, filepath.Join(dir, "hard75.log"), cfg.Log.File)
}

func TestLoadFile(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
db_path: /tmp/x.db
note_debounce: 250ms
remote:
  enabled: true
  url: http://localhost:3000
  timeout: 5s
images:
  max_dimension: 800
  quality: 0.6
server:
  public_url: https://hard75.example
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.db", cfg.DBPath)
	assert.Equal(t, 250*time.Millisecond, cfg.NoteDebounce)
	assert.True(t, cfg.SyncEnabled())
	assert.Equal(t, 5*time.Second, cfg.Remote.Timeout)
	assert.Equal(t, 800, cfg.ImageOptions().MaxDimension)
	assert.Equal(t, 0.6, cfg.ImageOptions().Quality)
	assert.Equal(t, "https://hard75.example", cfg.Server.PublicURL)
}

func TestLoadDefaultLocation(t *testing.T) {
	isolate(t)
	dir, err := Dir()
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log:\n  level: debug\n"), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("HARD75_REMOTE_ENABLED", "true")
	t.Setenv("HARD75_REMOTE_URL", "https://sync.example")
	t.Setenv("HARD75_SERVER_ADDR", ":8080")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.SyncEnabled())
	assert.Equal(t, "https://sync.example", cfg.Remote.URL)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestSyncNeedsURL(t *testing.T) {
	isolate(t)
	t.Setenv("HARD75_REMOTE_ENABLED", "true")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.False(t, cfg.SyncEnabled())
}

func TestLoadErrors(t *testing.T) {
	isolate(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "images:\n  quality: 1.5\n"))
	assert.ErrorContains(t, err, "images.quality")

	_, err = Load(writeConfig(t, "images: [unclosed"))
	assert.Error(t, err)
}
