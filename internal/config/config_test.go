// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "resfile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv(EnvConfig, "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFile(t *testing.T) {
	t.Setenv("GAME_DIR", "/games/nfs")
	path := writeConfig(t, `
search_path:
  - ${GAME_DIR}/data
  - ./mods
verify:
  workers: 4
  extensions: [fsh, msh]
log:
  level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"/games/nfs/data", "./mods"}, cfg.SearchPath)
	assert.Equal(t, 4, cfg.Verify.Workers)
	assert.Equal(t, []string{"fsh", "msh"}, cfg.Verify.Extensions)
	assert.Equal(t, "debug", cfg.Log.Level)

	t.Setenv(EnvConfig, path)
	fromEnv, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, cfg, fromEnv)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "verify: [1"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "verify:\n  workers: -1\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "log:\n  level: loud\n"))
	assert.Error(t, err)
}

func TestApplyFlags(t *testing.T) {
	cfg, err := Load(writeConfig(t, "verify:\n  workers: 4\n  manifest: a.yaml\n"))
	require.NoError(t, err)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--workers", "2", "--search-path", "base,mod", "--dev"}))
	require.NoError(t, cfg.ApplyFlags(fs))

	assert.Equal(t, 2, cfg.Verify.Workers)
	assert.Equal(t, "a.yaml", cfg.Verify.Manifest)
	assert.Equal(t, []string{"base", "mod"}, cfg.SearchPath)
	assert.True(t, cfg.Log.Development)

	bad := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(bad)
	require.NoError(t, bad.Parse([]string{"--log-level", "loud"}))
	assert.Error(t, Default().ApplyFlags(bad))
}

func TestLogger(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "warn"
	logger, err := cfg.Logger()
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(-1))
	assert.True(t, logger.Core().Enabled(1))
}
