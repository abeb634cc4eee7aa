// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package format

import (
	"fmt"
	"image/color"

	"github.com/suprsokr/go-resfile/archive"
	"github.com/suprsokr/go-resfile/block"
)

// PaletteSource tells which step of the fallback chain supplied a palette.
type PaletteSource uint8

const (
	FromChain PaletteSource = iota
	FromExtra
	FromNamed
	FromFirst
	FromGrayscale
)

func (s PaletteSource) String() string {
	switch s {
	case FromChain:
		return "chained"
	case FromExtra:
		return "inline"
	case FromNamed:
		return "!pal"
	case FromFirst:
		return "first"
	}
	return "grayscale"
}

// SharedPalette is the alias of the archive-wide palette entry.
const SharedPalette = "!pal"

// Colors converts a decoded palette record to colours.
func Colors(rec *block.Value) (color.Palette, error) {
	kind := Kind(rec)
	ev, ok := rec.Get("body/entries")
	if !ok || !IsPalette(kind) {
		return nil, fmt.Errorf("colors: %q is not a palette record", kind)
	}
	vals, ok := ev.Data().([]int64)
	if !ok {
		return nil, fmt.Errorf("colors: entries are %T", ev.Data())
	}
	var out color.Palette
	switch kind {
	case KindPalette6:
		for i := 0; i+2 < len(vals); i += 3 {
			out = append(out, color.NRGBA{uint8(vals[i]), uint8(vals[i+1]), uint8(vals[i+2]), 0xFF})
		}
	case KindPalette888:
		for _, v := range vals {
			out = append(out, color.NRGBA{uint8(v >> 16), uint8(v >> 8), uint8(v), 0xFF})
		}
	case KindPalette8888:
		for _, v := range vals {
			out = append(out, color.NRGBA{uint8(v >> 16), uint8(v >> 8), uint8(v), uint8(v >> 24)})
		}
	case KindPalette1555:
		for _, v := range vals {
			a := uint8(0)
			if v&0x8000 != 0 {
				a = 0xFF
			}
			out = append(out, color.NRGBA{expand5(v >> 10), expand5(v >> 5), expand5(v), a})
		}
	}
	return out, nil
}

func expand5(v int64) uint8 {
	x := uint8(v & 0x1F)
	return x<<3 | x>>2
}

// Grayscale is the last resort palette: a 256 step ramp.
func Grayscale() color.Palette {
	out := make(color.Palette, 256)
	for i := range out {
		out[i] = color.NRGBA{uint8(i), uint8(i), uint8(i), 0xFF}
	}
	return out
}

// PaletteFor picks the palette of the 8-bit bitmap at item i. The chain is
// fixed: a palette chained to the bitmap record, then an inline palette
// stored right after it, then the archive's "!pal" entry, then the first
// palette in the archive, then a grayscale ramp.
func PaletteFor(a *archive.Archive, i int) (color.Palette, PaletteSource) {
	if rec, ok := a.Resolve(i); ok {
		for _, r := range Chained(rec) {
			if p, err := Colors(r); err == nil {
				return p, FromChain
			}
		}
	}
	if i >= 0 && i < len(a.Items) && a.Items[i].Extra != nil {
		if p, err := Colors(a.Items[i].Extra); err == nil {
			return p, FromExtra
		}
	}
	if rec, ok := a.Child(SharedPalette); ok {
		if p, err := Colors(rec); err == nil {
			return p, FromNamed
		}
	}
	for _, j := range a.Order {
		rec, ok := a.Resolve(j)
		if !ok {
			continue
		}
		if p, err := Colors(rec); err == nil {
			return p, FromFirst
		}
	}
	return Grayscale(), FromGrayscale
}

// InlinePalette finds the un-indexed palette record that may follow an
// 8-bit bitmap inside a SHPI archive.
func InlinePalette(c *block.Context, it *archive.Item, limit int) block.Block {
	if it.Value == nil || Kind(it.Value) != KindBitmap8 {
		return nil
	}
	if limit-c.Pos() < Record.MinSize() {
		return nil
	}
	head := c.Peek(1)
	if len(head) == 0 {
		return nil
	}
	if name, ok := RecordID.Name(int64(head[0])); ok && IsPalette(name) {
		return Record
	}
	return nil
}
