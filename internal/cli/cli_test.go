package cli

import (
	"bytes"
	"context"
	"fsblock/internal/app"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCLI(t *testing.T) (*CLI, *bytes.Buffer) {
	t.Helper()
	for _, key := range []string{"FSBLOCK_CONFIG", "FSBLOCK_PATH", "FSBLOCK_WATCH", "FSBLOCK_COMMAND", "FSBLOCK_VERBOSE"} {
		unsetEnv(t, key)
	}
	stdout := &bytes.Buffer{}
	return NewCLI(app.Streams{Stdout: stdout, Stderr: &bytes.Buffer{}}), stdout
}

// unsetEnv removes key for the duration of the test.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestCLI_MissingPath(t *testing.T) {
	c, _ := newTestCLI(t)

	err := c.Run(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, app.ExitConfig, app.ExitCode(err))
	assert.Contains(t, err.Error(), "path")
}

func TestCLI_PathDoesNotExist(t *testing.T) {
	c, _ := newTestCLI(t)
	missing := filepath.Join(t.TempDir(), "nope")

	err := c.Run(context.Background(), []string{"-p", missing})
	assert.Equal(t, app.ExitConfig, app.ExitCode(err))
	assert.EqualError(t, err, "path "+missing+" does not exist")
}

func TestCLI_UnknownFlag(t *testing.T) {
	c, _ := newTestCLI(t)

	err := c.Run(context.Background(), []string{"--bogus"})
	assert.Equal(t, app.ExitConfig, app.ExitCode(err))
}

func TestCLI_Completion(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			c, stdout := newTestCLI(t)

			require.NoError(t, c.Run(context.Background(), []string{"completion", shell}))
			assert.Contains(t, stdout.String(), "fsblock")
		})
	}

	c, _ := newTestCLI(t)
	assert.Error(t, c.Run(context.Background(), []string{"completion", "tcsh"}))
}

func TestCLI_FlagsOverrideEnvironment(t *testing.T) {
	c, _ := newTestCLI(t)
	envRoot := t.TempDir()
	flagRoot := t.TempDir()
	t.Setenv("FSBLOCK_PATH", envRoot)
	t.Setenv("FSBLOCK_WATCH", "true")
	t.Setenv("FSBLOCK_COMMAND", "make build")

	require.NoError(t, c.rootCmd.ParseFlags([]string{
		"-p", flagRoot,
		"-w=false",
		"-i", "a b",
		"-i", "c",
	}))
	cfg, err := c.loadConfig(c.rootCmd)
	require.NoError(t, err)

	assert.Equal(t, flagRoot, cfg.Path)
	assert.False(t, cfg.Watch)
	assert.Equal(t, "make build", cfg.Command)
	assert.Equal(t, []string{"a", "b", "c"}, cfg.IgnorePaths)
}

func TestCLI_ConfigFile(t *testing.T) {
	c, _ := newTestCLI(t)
	root := t.TempDir()
	file := filepath.Join(t.TempDir(), "fsblock.yaml")
	require.NoError(t, os.WriteFile(file, []byte("path: "+root+"\nverbose: true\n"), 0o644))

	require.NoError(t, c.rootCmd.ParseFlags([]string{"--config", file}))
	cfg, err := c.loadConfig(c.rootCmd)
	require.NoError(t, err)

	assert.Equal(t, root, cfg.Path)
	assert.True(t, cfg.Verbose)
}

func TestCLI_SingleChange(t *testing.T) {
	c, stdout := newTestCLI(t)
	root := t.TempDir()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, []string{"-p", root}) }()

	// The watch is set up asynchronously; keep touching until it is seen.
	path := filepath.Join(root, "a.txt")
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case err := <-done:
			require.NoError(t, err)
			out := strings.TrimSpace(stdout.String())
			assert.True(t,
				out == `Created:"`+path+`"` || out == `Modified:"`+path+`"`,
				"unexpected output %q", out)
			return
		case <-ticker.C:
			require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
		}
	}
}
