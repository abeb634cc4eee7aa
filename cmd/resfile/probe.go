// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/suprsokr/go-resfile"
	"github.com/suprsokr/go-resfile/probe"
)

func newProbeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "probe FILE...",
		Short: "identify the resource type of files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t := newTable(cmd)
			t.AppendHeader(table.Row{"File", "Type", "Size"})
			t.SetColumnConfigs([]table.ColumnConfig{
				{Number: 3, Align: text.AlignRight},
			})
			for _, path := range args {
				typ, size, err := probeFile(path)
				if err != nil {
					return err
				}
				t.AppendRow(table.Row{path, typ, size})
			}
			t.Render()
			return nil
		},
	}
}

// probeFile reads only the head of path.
func probeFile(path string) (probe.Type, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return probe.Unknown, 0, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return probe.Unknown, 0, fmt.Errorf("stat file: %w", err)
	}

	head := make([]byte, 8)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return probe.Unknown, 0, fmt.Errorf("read file: %w", err)
	}
	typ, err := resfile.Identify(head[:n], path)
	if errors.Is(err, probe.ErrNotImplemented) {
		return probe.Unknown, info.Size(), nil
	}
	return typ, info.Size(), err
}

func newTable(cmd *cobra.Command) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	return t
}
