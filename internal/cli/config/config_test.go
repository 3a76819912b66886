package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, DefaultServerURL, cfg.Server.URL)
	assert.Empty(t, cfg.Auth.Token)

	got, err := cfg.Path()
	require.NoError(t, err)
	assert.Equal(t, path, got)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  url: http://file:3000\nauth:\n  token: from-file\n"), 0600))

	t.Setenv("MESA_SERVER_URL", "http://env:4000/")

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, "http://env:4000", cfg.Server.URL)
	assert.Equal(t, "from-file", cfg.Auth.Token)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	cfg.Server.URL = "http://mesa.local:3000"
	cfg.Auth.Token = "session"
	cfg.Auth.Username = "cocina"
	cfg.Auth.Role = "kitchen"
	require.NoError(t, cfg.Save())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Server, loaded.Server)
	assert.Equal(t, cfg.Auth, loaded.Auth)
}
