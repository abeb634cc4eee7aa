// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package main

import (
	"sort"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/suprsokr/go-resfile/block"
	"github.com/suprsokr/go-resfile/format"
	"github.com/suprsokr/go-resfile/probe"
)

func newSchemaCommand(a *app) *cobra.Command {
	var asYAML bool
	cmd := &cobra.Command{
		Use:   "schema TYPE",
		Short: "describe the layout of a resource type",
		Long:  "describe the layout of a resource type; known types: " + typeList(),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			typ, err := probe.Parse(args[0])
			if err != nil {
				return err
			}
			b, err := format.For(typ)
			if err != nil {
				return err
			}
			s := block.Document(b)
			if s.Name == "" {
				s.Name = typ.String()
			}

			if asYAML {
				out, err := yaml.Marshal(s)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(out)
				return err
			}

			t := newTable(cmd)
			t.AppendHeader(table.Row{"Field", "Type", "Size", "Formulas", "Description"})
			schemaRows(t, s, 0)
			t.Render()
			return nil
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print the full schema as YAML")
	return cmd
}

func typeList() string {
	names := make([]string, 0, len(probe.Types()))
	for _, t := range probe.Types() {
		names = append(names, t.String())
	}
	return strings.Join(names, ", ")
}

// schemaRows appends s and its nested fields, indented by depth.
func schemaRows(t table.Writer, s block.Schema, depth int) {
	name := s.Name
	if s.Optional {
		name += "?"
	}
	typ := s.Type
	if s.Computed {
		typ += " (computed)"
	}
	t.AppendRow(table.Row{strings.Repeat("  ", depth) + name, typ, sizeText(s), formulaText(s.Formulas), s.Description})

	for _, f := range s.Fields {
		schemaRows(t, f, depth+1)
	}
	if s.Element != nil {
		el := *s.Element
		el.Name = "[]"
		schemaRows(t, el, depth+1)
	}
	for i, v := range s.Variants {
		if v.Name == "" {
			v.Name = "|" + strconv.Itoa(i)
		}
		schemaRows(t, v, depth+1)
	}
}

func sizeText(s block.Schema) string {
	if s.StaticSize >= 0 {
		return strconv.Itoa(s.StaticSize)
	}
	if s.MaxSize < 0 {
		return strconv.Itoa(s.MinSize) + "+"
	}
	return strconv.Itoa(s.MinSize) + ".." + strconv.Itoa(s.MaxSize)
}

func formulaText(formulas map[string]string) string {
	keys := make([]string, 0, len(formulas))
	for k := range formulas {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + formulas[k]
	}
	return strings.Join(parts, "\n")
}
