// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package main

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/suprsokr/go-resfile/archive"
	"github.com/suprsokr/go-resfile/block"
)

// previewLen bounds how much of a long value get prints.
const previewLen = 16

func newGetCommand(a *app) *cobra.Command {
	var depth int
	cmd := &cobra.Command{
		Use:   "get FILE [PATH]",
		Short: "print decoded values of a resource",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := a.cache.Load(args[0])
			if err != nil {
				return err
			}
			v, path := root, ""
			if len(args) == 2 {
				path = strings.Trim(args[1], "/")
				var ok bool
				if v, ok = root.Get(path); !ok {
					return fmt.Errorf("no value at %q", args[1])
				}
			}

			t := newTable(cmd)
			t.AppendHeader(table.Row{"Path", "Offset", "Size", "Value"})
			t.SetColumnConfigs([]table.ColumnConfig{
				{Number: 2, Align: text.AlignRight},
				{Number: 3, Align: text.AlignRight},
			})
			valueRows(t, path, v, depth)
			t.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&depth, "depth", 3, "levels of nested values to print")
	return cmd
}

func newSetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set FILE PATH VALUE",
		Short: "change one value of a resource and save it",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := a.cache.Load(args[0])
			if err != nil {
				return err
			}
			v, ok := root.Get(strings.Trim(args[1], "/"))
			if !ok {
				return fmt.Errorf("no value at %q", args[1])
			}
			v = v.Unwrap()
			data, err := parseLike(v.Data(), args[2])
			if err != nil {
				return fmt.Errorf("set %s: %w", args[1], err)
			}
			v.Set(data)
			if err := a.cache.Save(args[0], root); err != nil {
				// Keep the cache consistent with the file on disk.
				a.cache.Invalidate(args[0])
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s = %s\n", args[0], args[1], args[2])
			return nil
		},
	}
}

// parseLike parses s into the type of the current data.
func parseLike(current any, s string) (any, error) {
	switch current.(type) {
	case int64:
		return strconv.ParseInt(s, 0, 64)
	case float64:
		return strconv.ParseFloat(s, 64)
	case string:
		return s, nil
	case []byte:
		return hex.DecodeString(s)
	}
	return nil, fmt.Errorf("cannot set %T from text", current)
}

// valueRows appends v and, up to depth levels, its children.
func valueRows(t table.Writer, path string, v *block.Value, depth int) {
	label := path
	if label == "" {
		label = "/"
	}
	if v == nil {
		t.AppendRow(table.Row{label, "", "", "null"})
		return
	}
	u := v.Unwrap()
	t.AppendRow(table.Row{label, u.Offset(), u.Size(), preview(u.Data())})
	childRows(t, path, u, depth)
}

func childRows(t table.Writer, path string, u *block.Value, depth int) {
	if depth <= 0 {
		return
	}
	join := func(name string) string {
		if path == "" {
			return name
		}
		return path + "/" + name
	}
	switch d := u.Data().(type) {
	case *block.Fields:
		for el := d.Front(); el != nil; el = el.Next() {
			valueRows(t, join(el.Key), el.Value, depth-1)
		}
	case []*block.Value:
		for i, item := range d {
			valueRows(t, join(block.Index(i)), item, depth-1)
		}
	case *block.Sealed:
		// Paths pass through a compressed payload.
		if d.Inner != nil {
			childRows(t, path, d.Inner.Unwrap(), depth)
		}
	case *archive.Archive:
		for i, it := range d.Items {
			name := it.Alias
			if name == "" {
				name = block.Index(i)
			}
			child, _ := d.Resolve(i)
			valueRows(t, join(name), child, depth-1)
		}
	}
}

func preview(data any) string {
	switch d := data.(type) {
	case nil:
		return "-"
	case *block.Fields:
		return fmt.Sprintf("{%d fields}", d.Len())
	case []*block.Value:
		return fmt.Sprintf("[%d items]", len(d))
	case *archive.Archive:
		return fmt.Sprintf("archive of %d items", len(d.Items))
	case *block.Sealed:
		return fmt.Sprintf("compressed, %d bytes stored", len(d.Raw))
	case *block.Failure:
		return "error: " + d.Error()
	case []byte:
		if len(d) > previewLen {
			return fmt.Sprintf("%s... (%d bytes)", hex.EncodeToString(d[:previewLen]), len(d))
		}
		return hex.EncodeToString(d)
	case []int64:
		if len(d) > previewLen {
			return fmt.Sprintf("%v... (%d values)", d[:previewLen], len(d))
		}
		return fmt.Sprint(d)
	case []float64:
		if len(d) > previewLen {
			return fmt.Sprintf("%v... (%d values)", d[:previewLen], len(d))
		}
		return fmt.Sprint(d)
	case string:
		return strconv.Quote(d)
	}
	return fmt.Sprint(data)
}
