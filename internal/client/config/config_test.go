package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withHome(t *testing.T, dir string) {
	t.Helper()
	orig := userHomeDir
	userHomeDir = func() (string, error) { return dir, nil }
	t.Cleanup(func() { userHomeDir = orig })
}

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	withHome(t, home)

	var c Config
	c.LoadDefaults()

	assert.Equal(t, "http://localhost:8000", c.ServerURL)
	assert.Equal(t, filepath.Join(home, ".nibble", "nibble.db"), c.DBPath)
	_, err := uuid.Parse(c.DeviceID)
	assert.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".nibble", "config.toml"), DefaultPath())
}

func TestLoad_MissingFileIsCreatedAndStable(t *testing.T) {
	withHome(t, t.TempDir())
	path := filepath.Join(t.TempDir(), "sub", "config.toml")

	first, err := Load(path)
	require.NoError(t, err)
	require.FileExists(t, path)

	second, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestLoad_DefaultPath(t *testing.T) {
	home := t.TempDir()
	withHome(t, home)

	_, err := Load("")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(home, ".nibble", "config.toml"))
}

func TestLoad_OverridesAndFillsMissing(t *testing.T) {
	withHome(t, t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
server_url = "https://sync.example.com"
device_id = "phone-1"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://sync.example.com", cfg.ServerURL)
	assert.Equal(t, "phone-1", cfg.DeviceID)
	assert.NotEmpty(t, cfg.DBPath)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "db_path")
}

func TestLoad_BadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("server_url = "), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse "+path)
}
