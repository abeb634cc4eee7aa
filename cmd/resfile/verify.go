// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/suprsokr/go-resfile"
)

// errVerifyFailed makes the command exit non-zero after the manifest is
// written.
var errVerifyFailed = errors.New("some files did not round-trip")

func newVerifyCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify PATH...",
		Short: "round-trip files and write a failure manifest",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := resfile.Files(args, a.cfg.Verify.Extensions)
			if err != nil {
				return err
			}
			m, err := resfile.Verify(cmd.Context(), files, resfile.VerifyOptions{
				Workers: a.cfg.Verify.Workers,
				Logger:  a.logger,
			})
			if err != nil {
				return err
			}

			manifest := a.cfg.Verify.Manifest
			if manifest == "" {
				manifest = defaultManifest(args[0])
			}
			if err := m.WriteFile(manifest); err != nil {
				return err
			}

			t := newTable(cmd)
			t.AppendHeader(table.Row{"Run", "Files", "Passed", "Failed", "Manifest"})
			t.AppendRow(table.Row{m.RunID, m.Files, m.Passed, len(m.Failures), manifest})
			t.Render()

			if len(m.Failures) > 0 {
				ft := newTable(cmd)
				ft.AppendHeader(table.Row{"File", "Type", "Stage", "Offset", "Error"})
				for _, f := range m.Failures {
					ft.AppendRow(table.Row{f.Path, f.Type, f.Stage, f.Offset, f.Error})
				}
				ft.Render()
				return fmt.Errorf("%w: %d of %d", errVerifyFailed, len(m.Failures), m.Files)
			}
			return nil
		},
	}
}

// defaultManifest places the manifest beside the first input.
func defaultManifest(first string) string {
	dir := first
	if info, err := os.Stat(first); err == nil && !info.IsDir() {
		dir = filepath.Dir(first)
	}
	return filepath.Join(dir, resfile.DefaultManifestName)
}
