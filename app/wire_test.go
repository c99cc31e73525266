package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compress-service/ddd/infrastructure/notify"
	"compress-service/pkg/config"
)

func TestCleanupWorkDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stale_a.mp4"), []byte("x"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "b.mp4"), []byte("x"), 0o644))

	removed, err := cleanupWorkDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	missing := filepath.Join(t.TempDir(), "new-work")
	removed, err = cleanupWorkDir(missing)
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.DirExists(t, missing)
}

func TestResolveConfigPath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("CONFIG_ENV", "")
	assert.Equal(t, "configs/config.dev.yaml", resolveConfigPath())

	t.Setenv("CONFIG_ENV", "production")
	assert.Equal(t, "configs/config_prod.yaml", resolveConfigPath())

	t.Setenv("CONFIG_ENV", "staging")
	assert.Equal(t, "configs/config.staging.yaml", resolveConfigPath())

	t.Setenv("CONFIG_PATH", "/etc/compress.yaml")
	assert.Equal(t, "/etc/compress.yaml", resolveConfigPath())
}

func TestBuildWithoutExternalResources(t *testing.T) {
	cfg := &config.Config{}
	cfg.Notify.MinInterval = time.Second

	n := buildNotifier(cfg)
	_, ok := n.(*notify.Throttled)
	assert.True(t, ok)

	history, err := buildHistory(cfg)
	require.NoError(t, err)
	assert.Nil(t, history)
}
