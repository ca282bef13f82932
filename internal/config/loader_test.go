package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir switches into dir for the duration of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func isolate(t *testing.T) {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "xdg"))
	chdir(t, tmp)
}

func TestNewLoader(t *testing.T) {
	loader := NewLoader()
	require.NotNil(t, loader)
	assert.Same(t, viper.GetViper(), loader.Viper())
}

func TestLoadWithNoConfigFile(t *testing.T) {
	isolate(t)

	cfg, err := NewLoaderWith(viper.New()).Load()
	require.NoError(t, err)
	assert.Equal(t, infoLevel, cfg.LogLevel)
	assert.Equal(t, 100*time.Millisecond, cfg.Player.PollInterval)
	assert.True(t, cfg.Batch.Recursive)
}

func TestLoadWithValidYAMLFile(t *testing.T) {
	isolate(t)
	yamlContent := `
log_level: debug
container: sprite-pak
palette_file: game.pal
decoders:
  disabled: [pdf, video]
limits:
  max_dimension: 1024
player:
  poll_interval: 20ms
  max_attempts: 3
output:
  format: json
batch:
  workers: 2
  include: ["*.spr", "*.wav"]
`
	require.NoError(t, os.WriteFile("datpeek.yaml", []byte(yamlContent), 0o600))

	loader := NewLoaderWith(viper.New())
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "sprite-pak", cfg.Container)
	assert.Equal(t, "game.pal", cfg.PaletteFile)
	assert.Equal(t, []string{"pdf", "video"}, cfg.Decoders.Disabled)
	assert.Equal(t, 1024, cfg.Limits.MaxDimension)
	assert.Equal(t, 20*time.Millisecond, cfg.Player.PollInterval)
	assert.Equal(t, 3, cfg.Player.MaxAttempts)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.Equal(t, 2, cfg.Batch.Workers)
	assert.Equal(t, []string{"*.spr", "*.wav"}, cfg.Batch.Include)
	assert.Equal(t, 20, cfg.Limits.MaxPDFPages, "unset keys keep defaults")
	assert.Contains(t, loader.ConfigFileUsed(), "datpeek.yaml")
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("DATPEEK_LOG_LEVEL", "warn")
	t.Setenv("DATPEEK_LIMITS_MAX_DIMENSION", "640")
	t.Setenv("DATPEEK_OUTPUT_FORMAT", "csv")

	cfg, err := NewLoaderWith(viper.New()).Load()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 640, cfg.Limits.MaxDimension)
	assert.Equal(t, "csv", cfg.Output.Format)
}

func TestLoadInvalidConfig(t *testing.T) {
	isolate(t)
	require.NoError(t, os.WriteFile("datpeek.yaml", []byte("output:\n  format: xml\n"), 0o600))

	_, err := NewLoaderWith(viper.New()).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid output format")
}

func TestLoadWithFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("thumbnail:\n  size: 64\n"), 0o600))

	cfg, err := NewLoaderWith(viper.New()).LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Thumbnail.Size)

	_, err = NewLoaderWith(viper.New()).LoadWithFile(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("log_level: [broken"), 0o600))
	_, err = NewLoaderWith(viper.New()).LoadWithFile(path)
	require.Error(t, err)
}

func TestGenerateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "datpeek.yaml")
	require.NoError(t, GenerateDefaultConfigFile(path))

	cfg, err := NewLoaderWith(viper.New()).LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Limits, cfg.Limits)
	assert.Equal(t, DefaultConfig().Player.PollInterval, cfg.Player.PollInterval)

	require.Error(t, GenerateDefaultConfigFile(path), "existing files are not overwritten")
}

func TestGetConfigSearchPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	paths := GetConfigSearchPaths()
	assert.Equal(t, ".", paths[0])
	assert.Contains(t, paths, filepath.Join("/xdg", "datpeek"))
	assert.Equal(t, "/etc/datpeek", paths[len(paths)-1])
}
