// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

// Package format declares the schemas of the concrete resource formats and
// the blocks that choose between them at decode time.
package format

import (
	"golang.org/x/text/encoding/charmap"

	"github.com/suprsokr/go-resfile/block"
)

// Record kinds, in the order of the record body variants.
const (
	KindBitmap8     = "bitmap8"
	KindBitmap4     = "bitmap4"
	KindBitmap565   = "bitmap565"
	KindBitmap1555  = "bitmap1555"
	KindBitmap4444  = "bitmap4444"
	KindBitmap888   = "bitmap888"
	KindBitmap8888  = "bitmap8888"
	KindPalette6    = "palette6"
	KindPalette888  = "palette888"
	KindPalette8888 = "palette8888"
	KindPalette1555 = "palette1555"
	KindName        = "name"
	KindText        = "text"
)

// recordHeaderSize is the id byte plus the 24-bit next offset.
const recordHeaderSize = 4

var pixelCount = block.Mul(block.Path("../width"), block.Path("../height"))

func bitmap(text string, pixels block.Block) block.Block {
	return block.Describe(&block.Compound{Fields: []block.Field{
		{Name: "width", Block: block.U16()},
		{Name: "height", Block: block.U16()},
		{Name: "center_x", Block: block.U16()},
		{Name: "center_y", Block: block.U16()},
		{Name: "x", Block: block.U16()},
		{Name: "y", Block: block.U16()},
		{Name: "pixels", Block: pixels},
	}}, text)
}

func palette(text string, entries block.Block) block.Block {
	return block.Describe(&block.Compound{Fields: []block.Field{
		{Name: "count", Block: block.Describe(block.U16(), "number of colours")},
		{Name: "height", Block: block.U16()},
		{Name: "unknown", Block: block.Raw(4)},
		{Name: "entries", Block: entries},
	}}, text)
}

// expand6 widens a 6-bit colour component to 8 bits.
func expand6(v uint8) int64 { return int64(v<<2 | v>>4) }

func reduce6(v int64) uint8 { return uint8(v >> 2) }

var textBody = &block.Compound{Fields: []block.Field{
	{Name: "length", Block: block.U32(), Compute: func(c *block.Context) (any, error) {
		v, ok := c.Lookup("../text")
		if !ok {
			return nil, c.Errorf(block.ErrSerialization, "text record without text")
		}
		s, _ := v.Str()
		enc, err := charmap.Windows1252.NewEncoder().String(s)
		if err != nil {
			return nil, c.Wrapf(block.ErrSerialization, err, "encode text")
		}
		return int64(len(enc)), nil
	}},
	{Name: "text", Block: &block.String{Length: block.Path("../length"), Keep: true, Encoding: charmap.Windows1252}},
}}

var recordKinds = []struct {
	id   int64
	name string
	body block.Block
}{
	{0x7B, KindBitmap8, bitmap("8-bit palette indexed bitmap", block.Of(block.U8(), pixelCount))},
	{0x7A, KindBitmap4, bitmap("4-bit palette indexed bitmap", &block.SubByteArray{Bits: 4, Count: pixelCount})},
	{0x78, KindBitmap565, bitmap("16-bit 565 bitmap", block.Of(block.U16(), pixelCount))},
	{0x7E, KindBitmap1555, bitmap("16-bit 1555 bitmap", block.Of(block.U16(), pixelCount))},
	{0x6D, KindBitmap4444, bitmap("16-bit 4444 bitmap", block.Of(block.U16(), pixelCount))},
	{0x7F, KindBitmap888, bitmap("24-bit bitmap", block.Of(block.U24(), pixelCount))},
	{0x7D, KindBitmap8888, bitmap("32-bit bitmap", block.Of(block.U32(), pixelCount))},
	{0x22, KindPalette6, palette("6-bit packed palette", &block.SubByteArray{
		Bits:      6,
		Count:     block.Mul(block.Path("../count"), block.Const(3)),
		Transform: expand6,
		Inverse:   reduce6,
	})},
	{0x24, KindPalette888, palette("24-bit palette", block.Of(block.U24(), block.Path("../count")))},
	{0x2A, KindPalette8888, palette("32-bit palette", block.Of(block.U32(), block.Path("../count")))},
	{0x2D, KindPalette1555, palette("16-bit 1555 palette", block.Of(block.U16(), block.Path("../count")))},
	{0x70, KindName, block.Describe(&block.String{Terminated: true, Encoding: charmap.Windows1252}, "entry name")},
	{0x6F, KindText, block.Describe(textBody, "text attachment")},
}

// RecordID is the one byte record type code.
var RecordID = func() *block.Enum {
	e := &block.Enum{}
	for _, k := range recordKinds {
		e.Entries = append(e.Entries, block.EnumEntry{Value: k.id, Name: k.name})
	}
	return e
}()

// Record is a SHPI entry: a typed body that may chain further records,
// such as the palette or name belonging to a bitmap.
var Record = &block.Compound{}

func init() {
	bodies := make([]block.Block, 0, len(recordKinds)+1)
	for _, k := range recordKinds {
		bodies = append(bodies, k.body)
	}
	raw := block.Describe(&block.Bytes{Length: block.Func("next - 4, or the rest", rawLength)}, "unknown record body")
	bodies = append(bodies, raw)

	Record.Description = "archive entry record"
	Record.Fields = []block.Field{
		{Name: "id", Block: RecordID},
		{Name: "next", Block: block.Describe(block.U24(), "offset of the chained record, 0 if none"), Compute: nextOffset},
		{Name: "body", Block: &block.EnumLookup{Field: "../id", Variants: bodies, Default: len(bodies) - 1}},
		{Name: "pad", Block: &block.Bytes{Length: block.Func("next - size(id, next, body)", padLength)}},
		{Name: "chain", Optional: true, Block: &block.Delegate{
			Variants: []block.Block{&block.Skip{}, Record},
			Choose:   block.Func("next != 0", hasChain),
		}},
	}
}

func nextOf(c *block.Context) (int, error) {
	d, ok := c.Data("../next")
	if !ok {
		return 0, c.Errorf(block.ErrBlockDefinition, "record next offset not decoded")
	}
	v, ok := d.(int64)
	if !ok {
		return 0, c.Errorf(block.ErrBlockDefinition, "record next offset is %T", d)
	}
	return int(v), nil
}

func rawLength(c *block.Context) (any, error) {
	next, err := nextOf(c)
	if err != nil {
		return nil, err
	}
	if next == 0 {
		return c.Remaining(), nil
	}
	return next - recordHeaderSize, nil
}

func padLength(c *block.Context) (any, error) {
	next, err := nextOf(c)
	if err != nil {
		return nil, err
	}
	if next == 0 {
		return 0, nil
	}
	n := c.Parent().Start() + next - c.Start()
	if n < 0 {
		return nil, c.Errorf(block.ErrDataIntegrity, "chained record at %d inside the body", next)
	}
	return n, nil
}

func hasChain(c *block.Context) (any, error) {
	next, err := nextOf(c)
	if err != nil {
		return nil, err
	}
	if next == 0 {
		return 0, nil
	}
	return 1, nil
}

// nextOffset places the chained record right after the body and padding.
func nextOffset(c *block.Context) (any, error) {
	chain, ok := c.Lookup("../chain")
	if !ok || chain.Unwrap().Data() == nil {
		return int64(0), nil
	}
	body, ok := c.Lookup("../body")
	if !ok {
		return nil, c.Errorf(block.ErrSerialization, "record without body")
	}
	n, err := c.Parent().Measure("body", body)
	if err != nil {
		return nil, err
	}
	if p, ok := c.Lookup("../pad"); ok {
		b, _ := p.Bytes()
		n += len(b)
	}
	if recordHeaderSize+n > 0xFFFFFF {
		return nil, c.Errorf(block.ErrSerialization, "record body of %d bytes", n)
	}
	return int64(recordHeaderSize + n), nil
}

// Kind returns the record kind name of a decoded record.
func Kind(rec *block.Value) string {
	v, ok := rec.Get("id")
	if !ok {
		return ""
	}
	s, _ := v.Str()
	return s
}

// Chained returns the records chained after rec, in order.
func Chained(rec *block.Value) []*block.Value {
	var out []*block.Value
	for cur := rec; ; {
		next, ok := cur.Get("chain")
		if !ok || next.Unwrap().Data() == nil {
			return out
		}
		cur = next.Unwrap()
		out = append(out, cur)
	}
}

// IsBitmap reports whether kind names a bitmap record.
func IsBitmap(kind string) bool {
	switch kind {
	case KindBitmap8, KindBitmap4, KindBitmap565, KindBitmap1555, KindBitmap4444, KindBitmap888, KindBitmap8888:
		return true
	}
	return false
}

// IsPalette reports whether kind names a palette record.
func IsPalette(kind string) bool {
	switch kind {
	case KindPalette6, KindPalette888, KindPalette8888, KindPalette1555:
		return true
	}
	return false
}
