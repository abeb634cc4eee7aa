// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

// Package config holds the settings of the resfile command.
//
// Settings come from an optional YAML file, named by the --config flag or
// the RESFILE_CONFIG environment variable. Command-line flags that are set
// explicitly override the file.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// EnvConfig names the environment variable holding the config file path.
const EnvConfig = "RESFILE_CONFIG"

// Config is the resfile command configuration.
type Config struct {
	// SearchPath lists resource directories in order of increasing
	// priority. Relative names are resolved against it.
	SearchPath []string `yaml:"search_path"`

	// Verify configures the verify command.
	Verify VerifyConfig `yaml:"verify"`

	// Log configures diagnostics.
	Log LogConfig `yaml:"log"`
}

// VerifyConfig configures batch verification.
type VerifyConfig struct {
	// Workers bounds parallel verification. 0 uses one worker per CPU.
	Workers int `yaml:"workers"`

	// Manifest is where the failure manifest is written.
	// Default: resfile-verify.yaml beside the first input
	Manifest string `yaml:"manifest"`

	// Extensions restricts directory walks to these suffixes.
	Extensions []string `yaml:"extensions"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info"},
	}
}

// Load reads the YAML file at path over the defaults. Environment
// variables in the file are expanded. An empty path falls back to
// RESFILE_CONFIG, and without either the defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path == "" {
		return cfg, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(b))), cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Verify.Workers < 0 {
		return errors.New("verify.workers must not be negative")
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

const (
	flagSearchPath = "search-path"
	flagWorkers    = "workers"
	flagManifest   = "manifest"
	flagExt        = "ext"
	flagLogLevel   = "log-level"
	flagDev        = "dev"
)

// RegisterFlags defines the flags that ApplyFlags reads.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.StringSlice(flagSearchPath, d.SearchPath, "resource directories, lowest priority first")
	fs.Int(flagWorkers, d.Verify.Workers, "parallel verify workers (0 = one per CPU)")
	fs.String(flagManifest, d.Verify.Manifest, "path of the verify manifest")
	fs.StringSlice(flagExt, d.Verify.Extensions, "only verify files with these extensions")
	fs.String(flagLogLevel, d.Log.Level, "log level (debug, info, warn, error)")
	fs.Bool(flagDev, d.Log.Development, "human readable development logging")
}

// ApplyFlags copies every explicitly set flag into c.
func (c *Config) ApplyFlags(fs *pflag.FlagSet) error {
	var err error
	set := func(name string, apply func() error) {
		if err == nil && fs.Changed(name) {
			err = apply()
		}
	}
	set(flagSearchPath, func() (e error) { c.SearchPath, e = fs.GetStringSlice(flagSearchPath); return })
	set(flagWorkers, func() (e error) { c.Verify.Workers, e = fs.GetInt(flagWorkers); return })
	set(flagManifest, func() (e error) { c.Verify.Manifest, e = fs.GetString(flagManifest); return })
	set(flagExt, func() (e error) { c.Verify.Extensions, e = fs.GetStringSlice(flagExt); return })
	set(flagLogLevel, func() (e error) { c.Log.Level, e = fs.GetString(flagLogLevel); return })
	set(flagDev, func() (e error) { c.Log.Development, e = fs.GetBool(flagDev); return })
	if err != nil {
		return fmt.Errorf("apply flags: %w", err)
	}
	return c.Validate()
}

// Logger builds the configured logger.
func (c *Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
