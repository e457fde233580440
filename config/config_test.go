package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssforge/ssforge/config"
)

func TestConfigLoadDefaults(t *testing.T) {
	config.ConfigFile = filepath.Join(t.TempDir(), "missing.yaml")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig, cfg)
}

func TestConfigLoadOverrides(t *testing.T) {
	config.ConfigFile = filepath.Join(t.TempDir(), "config.yaml")
	data := `
package: shadowsocks-rust
backup_keep: 3
settle_seconds: 2
`
	require.NoError(t, os.WriteFile(config.ConfigFile, []byte(data), 0644))

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "shadowsocks-rust", cfg.Package)
	assert.Equal(t, 3, cfg.BackupKeep)
	assert.Equal(t, 2, cfg.SettleSeconds)
	// Everything else keeps its default.
	assert.Equal(t, config.DefaultConfig.UnitName, cfg.UnitName)
	assert.Equal(t, config.DefaultConfig.ServerConfigPath, cfg.ServerConfigPath)
}

func TestConfigStore(t *testing.T) {
	config.ConfigFile = filepath.Join(t.TempDir(), "ssforge", "config.yaml")

	cfg := &config.Config{}
	*cfg = *config.DefaultConfig
	cfg.BackupKeep = 5

	require.NoError(t, config.Store(cfg))

	readBackCfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, cfg, readBackCfg)
}
