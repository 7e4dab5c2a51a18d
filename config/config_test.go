package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	t.Setenv(EnvPlugin, "")
	l := NewLoaderForPath(filepath.Join(t.TempDir(), "config.yaml"))

	cfg, err := l.Load()
	require.NoError(t, err)

	path, explicit := cfg.Plugin()
	assert.Empty(t, path)
	assert.False(t, explicit)
}

func TestLoadPluginPath(t *testing.T) {
	t.Setenv(EnvPlugin, "")
	file := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte("plugin_path: /opt/driver.ycpl\n"), 0o644))

	cfg, err := NewLoaderForPath(file).Load()
	require.NoError(t, err)

	path, explicit := cfg.Plugin()
	assert.Equal(t, "/opt/driver.ycpl", path)
	assert.True(t, explicit)
}

func TestEnvOverridesFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte("plugin_path: a.ycpl\n"), 0o644))
	t.Setenv(EnvPlugin, "b.ycpl")

	cfg, err := NewLoaderForPath(file).Load()
	require.NoError(t, err)
	assert.Equal(t, "b.ycpl", cfg.PluginPath)
}

func TestLoadInvalidYAML(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte("plugin_path: [unterminated\n"), 0o644))

	_, err := NewLoaderForPath(file).Load()
	assert.Error(t, err)
}

func TestSaveThenLoad(t *testing.T) {
	t.Setenv(EnvPlugin, "")
	file := filepath.Join(t.TempDir(), "nested", "config.yaml")
	l := NewLoaderForPath(file)

	require.NoError(t, l.Save(&Config{PluginPath: "remote.ycpl"}))

	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, "remote.ycpl", cfg.PluginPath)
}

func TestNewLoaderHonoursEnv(t *testing.T) {
	t.Setenv(EnvConfig, "/etc/yclass.yaml")
	assert.Equal(t, "/etc/yclass.yaml", NewLoader().Path())
}

func TestNilConfigPlugin(t *testing.T) {
	var cfg *Config
	path, explicit := cfg.Plugin()
	assert.Empty(t, path)
	assert.False(t, explicit)
}
