package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/datpeek/internal/testutil"
)

// isolate keeps stray config files out of the test.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

// run executes a fresh command tree and returns stdout and stderr.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCommand()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--force-capability", "audio,midi,video"}, args...))
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootCommand(t *testing.T) {
	root := NewRootCommand()
	assert.Equal(t, "datpeek", root.Use)
	assert.NotEmpty(t, root.Short)
	assert.NotEmpty(t, root.Long)

	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, expected := range []string{"identify", "decode", "scan", "formats", "config"} {
		assert.Contains(t, names, expected)
	}
}

func TestRootCommandHelp(t *testing.T) {
	isolate(t)
	out, _, err := run(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "Available Commands:")
	assert.Contains(t, out, "game data archives")
}

func TestRootCommandVersion(t *testing.T) {
	isolate(t)
	out, _, err := run(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "datpeek dev")
}

func TestRootCommandInvalidFlag(t *testing.T) {
	isolate(t)
	_, _, err := run(t, "--no-such-flag")
	require.Error(t, err)
}

func TestRootCommandInvalidConfig(t *testing.T) {
	dir := isolate(t)
	path := testutil.WriteEntry(t, dir, "bad.yaml", []byte("log_level: loud\n"))
	_, _, err := run(t, "--config", path, "formats")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestCommandsCanRunRepeatedly(t *testing.T) {
	isolate(t)
	for range 2 {
		out, _, err := run(t, "formats", "--format", "json")
		require.NoError(t, err)
		assert.Contains(t, out, `"id": "sprite"`)
	}
}

func TestVerboseLogsToStderr(t *testing.T) {
	dir := isolate(t)
	path := testutil.WriteEntry(t, dir, "notes.txt", []byte("hello"))
	out, errOut, err := run(t, "-v", "identify", path)
	require.NoError(t, err)
	assert.Contains(t, out, "# "+path)
	assert.Contains(t, errOut, `"msg":"capabilities probed"`)
}
