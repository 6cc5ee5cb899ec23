package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/browsekit/browsekit/internal/driver"
)

// Integration tests drive the root command through cmd.SetArgs + Execute so
// Cobra parses the global flags. The shared resolved struct is rebuilt by the
// persistent pre-run on every execution.

// writeTestConfig writes a config with a file_system provider rooted at a
// fresh directory and returns the config path plus the provider home.
func writeTestConfig(t *testing.T) (cfgPath, home string) {
	t.Helper()

	dir := t.TempDir()
	home = filepath.Join(dir, "home")
	require.NoError(t, os.Mkdir(home, 0o700))

	cfgPath = filepath.Join(dir, "config.toml")
	cfg := `[tokens]
backend = "memory"

[providers.file_system]
home = "` + home + `"
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))

	return cfgPath, home
}

// execute runs the root command with args, capturing stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()

	return out.String(), err
}

func TestProvidersCommand(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)

	out, err := execute(t, "--config", cfgPath, "providers")
	require.NoError(t, err)

	assert.Contains(t, out, "file_system")
	assert.Contains(t, out, "File System")
	assert.Contains(t, out, "authorized")
}

func TestLsCommand(t *testing.T) {
	cfgPath, home := writeTestConfig(t)

	require.NoError(t, os.WriteFile(filepath.Join(home, "report.txt"), []byte("hi"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(home, "docs"), 0o700))

	out, err := execute(t, "--config", cfgPath, "ls", "file_system")
	require.NoError(t, err)

	assert.Contains(t, out, "docs/")
	assert.Contains(t, out, "report.txt")
}

func TestLsCommand_Long(t *testing.T) {
	cfgPath, home := writeTestConfig(t)

	require.NoError(t, os.WriteFile(filepath.Join(home, "report.txt"), []byte("hello"), 0o600))

	out, err := execute(t, "--config", cfgPath, "ls", "--long", "file_system")
	require.NoError(t, err)

	assert.Contains(t, out, "file_system:report.txt")
	assert.Contains(t, out, "5")
}

func TestLsCommand_UnknownProvider(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)

	_, err := execute(t, "--config", cfgPath, "ls", "gopher_drive")
	require.Error(t, err)
	assert.ErrorIs(t, err, driver.ErrInit)
}

func TestGetCommand(t *testing.T) {
	cfgPath, home := writeTestConfig(t)

	require.NoError(t, os.WriteFile(filepath.Join(home, "payload.bin"), []byte("payload bytes"), 0o600))

	target := filepath.Join(t.TempDir(), "out.bin")

	out, err := execute(t, "--config", cfgPath, "get", "file_system", "payload.bin", target)
	require.NoError(t, err)
	assert.Contains(t, out, target)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "payload bytes", string(data))
}

func TestMissingConfigFile(t *testing.T) {
	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "absent.toml"), "providers")
	require.Error(t, err)
}

func TestConfigWithoutProviders(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("[tokens]\nbackend = \"memory\"\n"), 0o600))

	_, err := execute(t, "--config", cfgPath, "providers")
	require.Error(t, err)
	assert.ErrorIs(t, err, driver.ErrInit)
}
