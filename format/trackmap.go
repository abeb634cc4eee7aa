// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package format

import (
	"golang.org/x/text/encoding/charmap"

	"github.com/suprsokr/go-resfile/block"
)

// CellKind is the type code of a track map cell.
var CellKind = &block.Enum{Entries: []block.EnumEntry{
	{Value: 0, Name: "empty"},
	{Value: 1, Name: "road"},
	{Value: 2, Name: "scenery"},
	{Value: 3, Name: "checkpoint"},
}}

var cell = &block.Compound{Fields: []block.Field{
	{Name: "kind", Block: CellKind},
	{Name: "payload", Block: &block.EnumLookup{
		Field: "../kind",
		Variants: []block.Block{
			&block.Skip{},
			&block.Compound{Fields: []block.Field{
				{Name: "heading", Block: block.U8()},
				{Name: "lanes", Block: block.U8()},
			}},
			&block.Compound{Fields: []block.Field{
				{Name: "model", Block: block.U16()},
			}},
			&block.Compound{Fields: []block.Field{
				{Name: "index", Block: block.U8()},
			}},
		},
	}},
}}

var mapObject = &block.Compound{Fields: []block.Field{
	{Name: "model", Block: block.U8()},
	{Name: "x", Block: block.Fixed8_8()},
	{Name: "y", Block: block.Fixed8_8()},
}}

// cellCount is the number of cells of the grid.
var cellCount = block.MustCEL("w * h", map[string]string{"w": "width", "h": "height"})

// TrackMap is the grid format found in .map files. It has no signature.
var TrackMap = block.Describe(&block.Compound{
	Fields: []block.Field{
		{Name: "name", Block: &block.String{Length: block.Const(24), Encoding: charmap.Windows1252}},
		{Name: "tile_size", Block: block.Describe(block.Fixed8_8(), "tile edge in world units")},
		{Name: "width", Block: block.U16()},
		{Name: "height", Block: block.U16()},
		{Name: "cells", Block: &block.Array{Elem: cell, Count: block.Param("cells"), Limit: 1 << 20}},
		{Name: "objects", Block: &block.Array{Elem: mapObject, Limit: 4096}},
	},
	Hooks: []block.Hook{
		{Point: block.AfterField, Field: "height", Name: "cell count", Fn: func(c *block.Context) error {
			n, err := block.EvalInt(cellCount, c)
			if err != nil {
				return err
			}
			c.SetParam("cells", n)
			return nil
		}},
	},
}, "track map")
