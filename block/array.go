// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package block

import (
	"errors"
	"strconv"
)

// bulkCodec is implemented by fixed-width numeric blocks so arrays of them
// decode in one pass into []int64 or []float64.
type bulkCodec interface {
	bulkWidth() int
	decodeBulk(raw []byte, n int) any
	encodeBulk(c *Context, data any) ([]byte, error)
}

// Array repeats Elem. With a Count the array has exactly that many
// elements; without one it reads elements while bytes remain, stopping
// before an element that would overrun the budget, or after Limit
// elements when Limit is positive.
type Array struct {
	Base
	Elem  Block
	Count Expr
	Limit int
}

// Of is an array of n elements.
func Of(elem Block, n Expr) *Array { return &Array{Elem: elem, Count: n} }

// Available is an array read until the budget is exhausted.
func Available(elem Block) *Array { return &Array{Elem: elem} }

func (b *Array) bulk() (bulkCodec, bool) {
	bc, ok := b.Elem.(bulkCodec)
	if !ok || bc.bulkWidth() <= 0 {
		return nil, false
	}
	if bb, ok := b.Elem.(based); ok && (bb.base().Expect != nil || bb.base().OnError != Raise) {
		return nil, false
	}
	return bc, true
}

func (b *Array) count(c *Context) (int, error) {
	if b.Count == nil {
		return -1, nil
	}
	n, err := EvalInt(b.Count, c)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, c.Errorf(ErrDataIntegrity, "negative element count %d", n)
	}
	if b.Limit > 0 && n > b.Limit {
		return 0, c.Errorf(ErrDataIntegrity, "element count %d exceeds limit %d", n, b.Limit)
	}
	return n, nil
}

func (b *Array) Decode(c *Context) (any, error) {
	n, err := b.count(c)
	if err != nil {
		return nil, err
	}
	if bc, ok := b.bulk(); ok {
		w := bc.bulkWidth()
		if n < 0 {
			n = c.Remaining() / w
			if b.Limit > 0 && n > b.Limit {
				n = b.Limit
			}
		}
		raw, err := c.ReadBytes(n * w)
		if err != nil {
			return nil, err
		}
		return bc.decodeBulk(raw, n), nil
	}
	items := make([]*Value, 0, max(n, 0))
	for i := 0; n < 0 || i < n; i++ {
		if n < 0 && (c.Remaining() == 0 || (b.Limit > 0 && i >= b.Limit)) {
			break
		}
		at := c.Pos()
		v, err := c.ReadChild(strconv.Itoa(i), b.Elem, -1)
		if err != nil {
			if n < 0 && errors.Is(err, ErrEndOfBuffer) {
				if serr := c.Seek(at); serr != nil {
					return nil, serr
				}
				break
			}
			return nil, err
		}
		if n < 0 && v.size == 0 {
			break
		}
		items = append(items, v)
		c.value.data = items
	}
	return items, nil
}

func (b *Array) Encode(c *Context, data any) error {
	var size int
	switch d := data.(type) {
	case []*Value:
		size = len(d)
	case []int64:
		size = len(d)
	case []float64:
		size = len(d)
	case []any:
		size = len(d)
	default:
		return c.Errorf(ErrSerialization, "%T is not an array", data)
	}
	if b.Count != nil {
		n, err := EvalInt(b.Count, c)
		if err != nil {
			return err
		}
		if n != size {
			return c.Errorf(ErrSerialization, "array of %d elements, count says %d", size, n)
		}
	}
	if b.Limit > 0 && size > b.Limit {
		return c.Errorf(ErrSerialization, "array of %d elements exceeds limit %d", size, b.Limit)
	}
	switch d := data.(type) {
	case []*Value:
		for i, v := range d {
			if err := c.WriteValue(strconv.Itoa(i), v); err != nil {
				return err
			}
		}
	case []any:
		for i, v := range d {
			if err := c.WriteData(strconv.Itoa(i), b.Elem, v); err != nil {
				return err
			}
		}
	default:
		bc, ok := b.Elem.(bulkCodec)
		if !ok {
			return c.Errorf(ErrSerialization, "%T elements need a numeric element block", data)
		}
		raw, err := bc.encodeBulk(c, data)
		if err != nil {
			return err
		}
		return c.WriteBytes(raw)
	}
	return nil
}

func (b *Array) MinSize() int {
	if n, ok := staticInt(b.Count); ok {
		return n * b.Elem.MinSize()
	}
	return 0
}

func (b *Array) Schema(c *Context) Schema {
	elem := c.Describe("[]", b.Elem)
	s := dynamicSchema("array", b.MinSize())
	s.Element = &elem
	if n, ok := staticInt(b.Count); ok && elem.StaticSize >= 0 {
		s.StaticSize = n * elem.StaticSize
		s.MaxSize = s.StaticSize
	}
	switch {
	case b.Count != nil:
		s.Formulas = map[string]string{"count": formula(c, b.Count)}
	case b.Limit > 0:
		s.Formulas = map[string]string{"count": "available, at most " + strconv.Itoa(b.Limit)}
	default:
		s.Formulas = map[string]string{"count": "available"}
	}
	return s
}

// SubByteArray packs Count values of Bits bits each, most significant bit
// first, padding the last byte with zero bits. Transform maps each raw
// value on decode and Inverse maps it back on encode.
type SubByteArray struct {
	Base
	Bits      int
	Count     Expr
	Transform func(raw uint8) int64
	Inverse   func(v int64) uint8
}

func (b *SubByteArray) count(c *Context) (int, error) {
	if b.Count == nil {
		return c.Remaining() * 8 / b.Bits, nil
	}
	n, err := EvalInt(b.Count, c)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, c.Errorf(ErrDataIntegrity, "negative element count %d", n)
	}
	return n, nil
}

func (b *SubByteArray) Decode(c *Context) (any, error) {
	if b.Bits < 1 || b.Bits > 8 {
		return nil, c.Errorf(ErrBlockDefinition, "unsupported bit width %d", b.Bits)
	}
	n, err := b.count(c)
	if err != nil {
		return nil, err
	}
	raw, err := c.ReadBytes((n*b.Bits + 7) / 8)
	if err != nil {
		return nil, err
	}
	out := make([]int64, n)
	mask := uint32(1)<<b.Bits - 1
	var acc uint32
	have := 0
	pos := 0
	for i := range out {
		for have < b.Bits {
			acc = acc<<8 | uint32(raw[pos])
			pos++
			have += 8
		}
		have -= b.Bits
		v := uint8(acc >> have & mask)
		if b.Transform != nil {
			out[i] = b.Transform(v)
		} else {
			out[i] = int64(v)
		}
	}
	return out, nil
}

func (b *SubByteArray) Encode(c *Context, data any) error {
	if b.Bits < 1 || b.Bits > 8 {
		return c.Errorf(ErrBlockDefinition, "unsupported bit width %d", b.Bits)
	}
	vals, ok := data.([]int64)
	if !ok {
		return c.Errorf(ErrSerialization, "%T is not []int64", data)
	}
	if b.Count != nil {
		n, err := EvalInt(b.Count, c)
		if err != nil {
			return err
		}
		if n != len(vals) {
			return c.Errorf(ErrSerialization, "%d values, count says %d", len(vals), n)
		}
	}
	out := make([]byte, 0, (len(vals)*b.Bits+7)/8)
	mask := uint32(1)<<b.Bits - 1
	var acc uint32
	have := 0
	for i, v := range vals {
		var raw uint8
		if b.Inverse != nil {
			raw = b.Inverse(v)
		} else {
			if v < 0 || uint32(v) > mask {
				return c.Errorf(ErrSerialization, "value %d at %d does not fit in %d bits", v, i, b.Bits)
			}
			raw = uint8(v)
		}
		acc = acc<<b.Bits | uint32(raw)&mask
		have += b.Bits
		for have >= 8 {
			have -= 8
			out = append(out, byte(acc>>have))
		}
	}
	if have > 0 {
		out = append(out, byte(acc<<(8-have)))
	}
	return c.WriteBytes(out)
}

func (b *SubByteArray) MinSize() int {
	if n, ok := staticInt(b.Count); ok {
		return (n*b.Bits + 7) / 8
	}
	return 0
}

func (b *SubByteArray) Schema(c *Context) Schema {
	if n, ok := staticInt(b.Count); ok {
		s := fixedSchema("bits", (n*b.Bits+7)/8)
		s.Formulas = map[string]string{"bits": strconv.Itoa(b.Bits)}
		return s
	}
	s := dynamicSchema("bits", 0)
	s.Formulas = map[string]string{"bits": strconv.Itoa(b.Bits)}
	if b.Count != nil {
		s.Formulas["count"] = formula(c, b.Count)
	}
	return s
}
