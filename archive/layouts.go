// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package archive

import (
	"fmt"
	"strconv"

	"github.com/suprsokr/go-resfile/block"
)

// SHPI is the name-tagged layout: a directory id followed by entries of a
// four character name and an offset relative to the container start.
var SHPI Layout = shpiLayout{}

var shpiEntry = &block.Compound{Fields: []block.Field{
	{Name: "name", Block: block.Str(4)},
	{Name: "offset", Block: block.U32()},
}}

var shpiHeader = &block.Compound{Fields: []block.Field{
	{Name: "magic", Block: block.Magic("SHPI")},
	{Name: "length", Block: block.Describe(block.U32(), "container length including this header")},
	{Name: "count", Block: block.U32()},
	{Name: "directory", Block: block.Describe(&block.String{Length: block.Const(4), Keep: true}, "directory id, e.g. GIMX")},
	{Name: "entries", Block: &block.Array{Elem: shpiEntry, Count: block.Path("../count"), Limit: 1 << 16}},
}}

type shpiLayout struct{}

func (shpiLayout) Name() string         { return "shpi" }
func (shpiLayout) Header() block.Block { return shpiHeader }

func (shpiLayout) NewHeader() *block.Value {
	return block.MustBuild(shpiHeader, map[string]any{
		"magic":     "SHPI",
		"length":    0,
		"count":     0,
		"directory": "GIMX",
		"entries":   []any{},
	})
}

func (shpiLayout) Offsets(c *block.Context, start int, header *block.Value) ([]Descriptor, error) {
	entries, ok := header.Get("entries")
	if !ok {
		return nil, c.Errorf(block.ErrBlockDefinition, "shpi header without entries")
	}
	items, _ := entries.Items()
	out := make([]Descriptor, len(items))
	for i, e := range items {
		name, _ := e.Get("name")
		off, _ := e.Get("offset")
		alias, _ := name.Str()
		n, _ := off.Int()
		out[i] = Descriptor{Alias: alias, Offset: start + int(n), Length: -1, Null: n == 0}
	}
	return out, nil
}

func (shpiLayout) Generate(c *block.Context, header *block.Value, items []Placed, total int) error {
	entries := make([]*block.Value, len(items))
	for i, p := range items {
		alias := p.Alias
		if len(alias) > 4 {
			return c.Errorf(block.ErrSerialization, "shpi entry name %q longer than 4 bytes", alias)
		}
		off := p.Offset
		if p.Null {
			off = 0
		}
		v, err := block.Build(shpiEntry, map[string]any{"name": alias, "offset": off})
		if err != nil {
			return c.Wrapf(block.ErrSerialization, err, "shpi entry %d", i)
		}
		entries[i] = v
	}
	for name, data := range map[string]any{
		"entries": entries,
		"count":   int64(len(items)),
		"length":  int64(total),
	} {
		if err := setField(header, name, data); err != nil {
			return c.Wrapf(block.ErrSerialization, err, "shpi header")
		}
	}
	return nil
}

func (shpiLayout) TotalLength(header *block.Value) (int, bool) {
	n, err := fieldInt(header, "length")
	return n, err == nil && n > 0
}

// WWWW is the pointer-only layout: a count and offsets relative to the
// container start. A zero offset points back at the container and is a
// null entry. Child lengths are inferred from the next offset.
var WWWW Layout = wwwwLayout{}

var wwwwHeader = &block.Compound{Fields: []block.Field{
	{Name: "magic", Block: block.Magic("wwww")},
	{Name: "count", Block: block.U32()},
	{Name: "offsets", Block: &block.Array{Elem: block.U32(), Count: block.Path("../count"), Limit: 1 << 16}},
}}

type wwwwLayout struct{}

func (wwwwLayout) Name() string         { return "wwww" }
func (wwwwLayout) Header() block.Block { return wwwwHeader }

func (wwwwLayout) NewHeader() *block.Value {
	return block.MustBuild(wwwwHeader, map[string]any{"magic": "wwww", "count": 0, "offsets": []int64{}})
}

func (wwwwLayout) Offsets(c *block.Context, start int, header *block.Value) ([]Descriptor, error) {
	offs, err := fieldInts(header, "offsets")
	if err != nil {
		return nil, c.Wrapf(block.ErrBlockDefinition, err, "wwww header")
	}
	out := make([]Descriptor, len(offs))
	for i, n := range offs {
		out[i] = Descriptor{Alias: strconv.Itoa(i), Offset: start + int(n), Length: -1, Null: n == 0}
	}
	return out, nil
}

func (wwwwLayout) Generate(c *block.Context, header *block.Value, items []Placed, _ int) error {
	offs := make([]int64, len(items))
	for i, p := range items {
		if !p.Null {
			offs[i] = int64(p.Offset)
		}
	}
	if err := setField(header, "offsets", offs); err != nil {
		return c.Wrapf(block.ErrSerialization, err, "wwww header")
	}
	if err := setField(header, "count", int64(len(items))); err != nil {
		return c.Wrapf(block.ErrSerialization, err, "wwww header")
	}
	return nil
}

func (wwwwLayout) TotalLength(*block.Value) (int, bool) { return 0, false }

// BNKL is the slotted layout: a fixed number of slots, each a pointer
// relative to the pointer's own position. Empty slots hold zero.
var BNKL Layout = bnklLayout{}

const bnklFixed = 12

var bnklHeader = &block.Compound{Fields: []block.Field{
	{Name: "magic", Block: block.Magic("BNKl")},
	{Name: "version", Block: block.U16()},
	{Name: "slots", Block: block.U16()},
	{Name: "size", Block: block.Describe(block.U32(), "bank length including this header")},
	{Name: "pointers", Block: &block.Array{Elem: block.U32(), Count: block.Path("../slots")}},
}}

type bnklLayout struct{}

func (bnklLayout) Name() string         { return "bnkl" }
func (bnklLayout) Header() block.Block { return bnklHeader }

func (bnklLayout) NewHeader() *block.Value {
	return block.MustBuild(bnklHeader, map[string]any{
		"magic": "BNKl", "version": 1, "slots": 0, "size": 0, "pointers": []int64{},
	})
}

func (bnklLayout) Offsets(c *block.Context, start int, header *block.Value) ([]Descriptor, error) {
	ptrs, err := fieldInts(header, "pointers")
	if err != nil {
		return nil, c.Wrapf(block.ErrBlockDefinition, err, "bnkl header")
	}
	out := make([]Descriptor, len(ptrs))
	for i, n := range ptrs {
		at := start + bnklFixed + 4*i
		out[i] = Descriptor{Alias: strconv.Itoa(i), Offset: at + int(n), Length: -1, Null: n == 0}
	}
	return out, nil
}

func (bnklLayout) Generate(c *block.Context, header *block.Value, items []Placed, total int) error {
	ptrs := make([]int64, len(items))
	for i, p := range items {
		if p.Null || total == 0 {
			continue
		}
		rel := p.Offset - (bnklFixed + 4*i)
		if rel <= 0 {
			return c.Errorf(block.ErrSerialization, "bnkl slot %d placed at %d, before its pointer", i, p.Offset)
		}
		ptrs[i] = int64(rel)
	}
	if len(items) > 0xFFFF {
		return c.Errorf(block.ErrSerialization, "bnkl with %d slots", len(items))
	}
	for name, data := range map[string]any{
		"pointers": ptrs,
		"slots":    int64(len(items)),
		"size":     int64(total),
	} {
		if err := setField(header, name, data); err != nil {
			return c.Wrapf(block.ErrSerialization, err, "bnkl header")
		}
	}
	return nil
}

func (bnklLayout) TotalLength(header *block.Value) (int, bool) {
	n, err := fieldInt(header, "size")
	return n, err == nil && n > 0
}

// ByName returns a layout by its name.
func ByName(name string) (Layout, error) {
	for _, l := range []Layout{SHPI, WWWW, BNKL} {
		if l.Name() == name {
			return l, nil
		}
	}
	return nil, fmt.Errorf("layout %q: unknown", name)
}
