// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package format

import (
	"github.com/suprsokr/go-resfile/block"
)

// MeshFlags names the bits of the mesh header flag byte.
var MeshFlags = &block.Flags{Names: [8]string{"textured", "smooth", "double_sided", "transparent", "shadow", "", "", "lod"}}

var meshPart = &block.Compound{Fields: []block.Field{
	{Name: "name", Block: block.Str(8)},
	{Name: "first", Block: block.Describe(block.U16(), "first triangle")},
	{Name: "count", Block: block.Describe(block.U16(), "triangle count")},
}}

func countOf(path string, per int) func(c *block.Context) (any, error) {
	return func(c *block.Context) (any, error) {
		v, ok := c.Lookup(path)
		if !ok {
			return nil, c.Errorf(block.ErrSerialization, "%s missing", path)
		}
		var n int
		switch d := v.Unwrap().Data().(type) {
		case []float64:
			n = len(d)
		case []int64:
			n = len(d)
		case []*block.Value:
			n = len(d)
		default:
			return nil, c.Errorf(block.ErrSerialization, "%s is %T", path, d)
		}
		if n%per != 0 {
			return nil, c.Errorf(block.ErrSerialization, "%s has %d values, not a multiple of %d", path, n, per)
		}
		return int64(n / per), nil
	}
}

// seekData moves the cursor to the start of the vertex data. The area
// between the header and the data is zero filled on write.
func seekData(c *block.Context) error {
	off, ok := c.Data("data_offset")
	if !ok {
		return c.Errorf(block.ErrBlockDefinition, "data offset not decoded")
	}
	n, _ := off.(int64)
	target := c.Start() + int(n)
	if target < c.Pos() {
		return c.Errorf(block.ErrDataIntegrity, "vertex data at %d overlaps the header ending at %d", n, c.Consumed())
	}
	return c.Seek(target)
}

// Mesh is the geometry format found in .msh files. It has no signature.
var Mesh = block.Describe(&block.Compound{
	Fields: []block.Field{
		{Name: "flags", Block: MeshFlags},
		{Name: "version", Block: block.U8()},
		{Name: "part_count", Block: block.U16(), Compute: countOf("../parts", 1)},
		{Name: "vertex_count", Block: block.U32(), Compute: countOf("../positions", 3)},
		{Name: "triangle_count", Block: block.U32(), Compute: countOf("../triangles", 3)},
		{Name: "texture", Block: &FileLink{Length: block.Const(16)}},
		{Name: "data_offset", Block: block.Describe(block.U32(), "offset of the bounds from the mesh start")},
		{Name: "bounds", Block: block.Describe(block.Of(block.Fixed16_16(), block.Const(6)), "min x, y, z then max x, y, z")},
		{Name: "positions", Block: block.Of(block.Fixed16_16(), block.Mul(block.Path("../vertex_count"), block.Const(3)))},
		{Name: "triangles", Block: block.Of(block.U16(), block.Mul(block.Path("../triangle_count"), block.Const(3)))},
		{Name: "parts", Block: block.Of(meshPart, block.Path("../part_count"))},
		{Name: "crc", Block: block.Describe(block.U32(), "CRC-32 of everything before it"), Compute: block.Checksum(block.CRC32), Verify: true},
	},
	Hooks: []block.Hook{
		{Point: block.BeforeField, Field: "bounds", Name: "seek to data", Fn: seekData},
	},
}, "mesh")
