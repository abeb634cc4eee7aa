// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

// resfile inspects, edits and verifies binary game resources.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/suprsokr/go-resfile"
	"github.com/suprsokr/go-resfile/internal/config"
)

const (
	cliName        = "resfile"
	cliDescription = "inspect, edit and verify binary game resources"
)

// app carries what every sub-command needs once flags are parsed.
type app struct {
	configPath string
	cfg        *config.Config
	logger     *zap.Logger
	cache      *resfile.Cache
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if err := cfg.ApplyFlags(cmd.Flags()); err != nil {
		return err
	}
	logger, err := cfg.Logger()
	if err != nil {
		return err
	}
	a.cfg, a.logger = cfg, logger
	a.cache = resfile.NewCache(logger, resfile.WithSearchPath(cfg.SearchPath...))
	return nil
}

func newRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          cliName,
		Short:        cliDescription,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML config file (default $"+config.EnvConfig+")")
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		newProbeCommand(a),
		newSchemaCommand(a),
		newGetCommand(a),
		newSetCommand(a),
		newVerifyCommand(a),
	)
	return root
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s error: %s\n", cliName, err)
		os.Exit(1)
	}
}
