package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("FSBLOCK_PATH", "/srv/data")
	t.Setenv("FSBLOCK_WATCH", "true")
	t.Setenv("FSBLOCK_IGNORE", "/srv/data/tmp /srv/data/.git")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, EnvLocal, cfg.Env)
	assert.Equal(t, "/srv/data", cfg.Path)
	assert.True(t, cfg.Watch)
	assert.False(t, cfg.Verbose)
	assert.Equal(t, []string{"/srv/data/tmp", "/srv/data/.git"}, cfg.IgnorePaths)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "fsblock.yaml")
	content := `
env: prod
path: /var/www
watch: true
command: "make build"
forward: true
ignore:
  - /var/www/cache
`
	require.NoError(t, os.WriteFile(file, []byte(content), 0644))

	cfg, err := Load(file)
	require.NoError(t, err)

	assert.Equal(t, EnvProd, cfg.Env)
	assert.Equal(t, "/var/www", cfg.Path)
	assert.True(t, cfg.Watch)
	assert.Equal(t, "make build", cfg.Command)
	assert.True(t, cfg.ForwardFileName)
	assert.Equal(t, []string{"/var/www/cache"}, cfg.IgnorePaths)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
