package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assetd.toml")
	src := `
[registry]
url_prefix = "https://cdn.example.com/game"
toc = "toc.hcl"

[loader]
concurrency = 2
timeout = "5s"

[database]
enabled = true

[logging]
level = "debug"
format = "json"
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/game", cfg.Registry.URLPrefix)
	assert.Equal(t, "toc.hcl", cfg.Registry.TOC)
	assert.True(t, cfg.Registry.Preload)
	assert.Equal(t, 2, cfg.Loader.Concurrency)
	assert.Equal(t, 5*time.Second, cfg.Loader.Timeout)
	assert.Equal(t, "data/files", cfg.Loader.Root)
	assert.True(t, cfg.Database.Enabled)
	assert.Equal(t, 30*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[loader\nroot = 1"), 0o600))
	_, err = Load(path)
	require.Error(t, err)
}
