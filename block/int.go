// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package block

import (
	"math"
)

// intLayout is the wire shape shared by Int and Fixed.
type intLayout struct {
	width     int
	signed    bool
	bigEndian bool
}

func (l intLayout) valid() bool {
	switch l.width {
	case 1, 2, 3, 4, 8:
		return true
	}
	return false
}

func (l intLayout) get(p []byte) int64 {
	var u uint64
	if l.bigEndian {
		for _, b := range p[:l.width] {
			u = u<<8 | uint64(b)
		}
	} else {
		for i := l.width - 1; i >= 0; i-- {
			u = u<<8 | uint64(p[i])
		}
	}
	if l.signed && l.width < 8 {
		shift := uint(64 - 8*l.width)
		return int64(u<<shift) >> shift
	}
	return int64(u)
}

func (l intLayout) put(p []byte, v int64) {
	u := uint64(v)
	if l.bigEndian {
		for i := l.width - 1; i >= 0; i-- {
			p[i] = byte(u)
			u >>= 8
		}
	} else {
		for i := 0; i < l.width; i++ {
			p[i] = byte(u)
			u >>= 8
		}
	}
}

func (l intLayout) bounds() (int64, int64) {
	if l.width >= 8 {
		if l.signed {
			return math.MinInt64, math.MaxInt64
		}
		return 0, math.MaxInt64
	}
	bits := uint(8 * l.width)
	if l.signed {
		return -(1 << (bits - 1)), 1<<(bits-1) - 1
	}
	return 0, 1<<bits - 1
}

// Int is a fixed-width two's complement integer. Decoded data is int64;
// unsigned 64-bit values keep their bit pattern.
type Int struct {
	Base
	Width     int
	Signed    bool
	BigEndian bool
}

func (b *Int) layout() intLayout {
	return intLayout{width: b.Width, signed: b.Signed, bigEndian: b.BigEndian}
}

// U8 is an unsigned byte.
func U8() *Int { return &Int{Width: 1} }

// S8 is a signed byte.
func S8() *Int { return &Int{Width: 1, Signed: true} }

// U16 is an unsigned little-endian 16-bit integer.
func U16() *Int { return &Int{Width: 2} }

// S16 is a signed little-endian 16-bit integer.
func S16() *Int { return &Int{Width: 2, Signed: true} }

// U24 is an unsigned little-endian 24-bit integer.
func U24() *Int { return &Int{Width: 3} }

// U32 is an unsigned little-endian 32-bit integer.
func U32() *Int { return &Int{Width: 4} }

// S32 is a signed little-endian 32-bit integer.
func S32() *Int { return &Int{Width: 4, Signed: true} }

// U64 is an unsigned little-endian 64-bit integer.
func U64() *Int { return &Int{Width: 8} }

// S64 is a signed little-endian 64-bit integer.
func S64() *Int { return &Int{Width: 8, Signed: true} }

// U16BE is an unsigned big-endian 16-bit integer.
func U16BE() *Int { return &Int{Width: 2, BigEndian: true} }

// U24BE is an unsigned big-endian 24-bit integer.
func U24BE() *Int { return &Int{Width: 3, BigEndian: true} }

// U32BE is an unsigned big-endian 32-bit integer.
func U32BE() *Int { return &Int{Width: 4, BigEndian: true} }

// Decode reads Width bytes and sign-extends them when Signed.
func (b *Int) Decode(c *Context) (any, error) {
	l := b.layout()
	if !l.valid() {
		return nil, c.Errorf(ErrBlockDefinition, "unsupported integer width %d", b.Width)
	}
	p, err := c.ReadBytes(l.width)
	if err != nil {
		return nil, err
	}
	return l.get(p), nil
}

// Encode writes data, rejecting values outside the width's range.
func (b *Int) Encode(c *Context, data any) error {
	p, err := b.encodeOne(c, data)
	if err != nil {
		return err
	}
	return c.WriteBytes(p)
}

func (b *Int) encodeOne(c *Context, data any) ([]byte, error) {
	l := b.layout()
	if !l.valid() {
		return nil, c.Errorf(ErrBlockDefinition, "unsupported integer width %d", b.Width)
	}
	v, ok := toInt64(data)
	if !ok {
		return nil, c.Errorf(ErrSerialization, "%T is not an integer", data)
	}
	if lo, hi := l.bounds(); l.width < 8 && (v < lo || v > hi) {
		return nil, c.Errorf(ErrSerialization, "%d out of range [%d, %d]", v, lo, hi)
	}
	p := make([]byte, l.width)
	l.put(p, v)
	return p, nil
}

// MinSize is the field width.
func (b *Int) MinSize() int { return b.Width }

// Schema reports the width and the representable range.
func (b *Int) Schema(*Context) Schema {
	s := fixedSchema("int", b.Width)
	lo, hi := b.layout().bounds()
	s.Range = &Range{Min: float64(lo), Max: float64(hi), Step: 1}
	return s
}

func (b *Int) bulkWidth() int { return b.Width }

func (b *Int) decodeBulk(raw []byte, n int) any {
	l := b.layout()
	out := make([]int64, n)
	for i := range out {
		out[i] = l.get(raw[i*l.width:])
	}
	return out
}

func (b *Int) encodeBulk(c *Context, data any) ([]byte, error) {
	vals, ok := data.([]int64)
	if !ok {
		return nil, c.Errorf(ErrSerialization, "%T is not []int64", data)
	}
	l := b.layout()
	lo, hi := l.bounds()
	out := make([]byte, len(vals)*l.width)
	for i, v := range vals {
		if l.width < 8 && (v < lo || v > hi) {
			return nil, c.Errorf(ErrSerialization, "element %d: %d out of range [%d, %d]", i, v, lo, hi)
		}
		l.put(out[i*l.width:], v)
	}
	return out, nil
}

// Fixed is a fixed-point real stored as an integer scaled by 2^FracBits.
// Encoding rounds and saturates at the integer range.
type Fixed struct {
	Base
	Width     int
	Signed    bool
	BigEndian bool
	FracBits  int
}

// Fixed16_16 is a signed little-endian 32-bit 16.16 number.
func Fixed16_16() *Fixed { return &Fixed{Width: 4, Signed: true, FracBits: 16} }

// Fixed8_8 is a signed little-endian 16-bit 8.8 number.
func Fixed8_8() *Fixed { return &Fixed{Width: 2, Signed: true, FracBits: 8} }

func (b *Fixed) layout() intLayout {
	return intLayout{width: b.Width, signed: b.Signed, bigEndian: b.BigEndian}
}

func (b *Fixed) scale() float64 { return math.Ldexp(1, b.FracBits) }

// Decode reads the scaled integer and returns it as float64.
func (b *Fixed) Decode(c *Context) (any, error) {
	l := b.layout()
	if !l.valid() {
		return nil, c.Errorf(ErrBlockDefinition, "unsupported fixed-point width %d", b.Width)
	}
	p, err := c.ReadBytes(l.width)
	if err != nil {
		return nil, err
	}
	return float64(l.get(p)) / b.scale(), nil
}

// Encode rounds data to the nearest step and saturates at the range.
func (b *Fixed) Encode(c *Context, data any) error {
	f, ok := toFloat64(data)
	if !ok {
		return c.Errorf(ErrSerialization, "%T is not a number", data)
	}
	l := b.layout()
	if !l.valid() {
		return c.Errorf(ErrBlockDefinition, "unsupported fixed-point width %d", b.Width)
	}
	p := make([]byte, l.width)
	l.put(p, b.toRaw(f))
	return c.WriteBytes(p)
}

func (b *Fixed) toRaw(f float64) int64 {
	lo, hi := b.layout().bounds()
	r := math.Round(f * b.scale())
	switch {
	case math.IsNaN(r):
		return 0
	case r <= float64(lo):
		return lo
	case r >= float64(hi):
		return hi
	}
	return int64(r)
}

// MinSize is the field width.
func (b *Fixed) MinSize() int { return b.Width }

// Schema reports the width, the real range and the step.
func (b *Fixed) Schema(*Context) Schema {
	s := fixedSchema("fixed", b.Width)
	lo, hi := b.layout().bounds()
	s.Range = &Range{Min: float64(lo) / b.scale(), Max: float64(hi) / b.scale(), Step: 1 / b.scale()}
	return s
}

func (b *Fixed) bulkWidth() int { return b.Width }

func (b *Fixed) decodeBulk(raw []byte, n int) any {
	l := b.layout()
	k := b.scale()
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(l.get(raw[i*l.width:])) / k
	}
	return out
}

func (b *Fixed) encodeBulk(c *Context, data any) ([]byte, error) {
	vals, ok := data.([]float64)
	if !ok {
		return nil, c.Errorf(ErrSerialization, "%T is not []float64", data)
	}
	l := b.layout()
	out := make([]byte, len(vals)*l.width)
	for i, f := range vals {
		l.put(out[i*l.width:], b.toRaw(f))
	}
	return out, nil
}
