// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package block

import (
	"strconv"
)

// Delegate forwards to one of its variants. Choose selects the variant
// from the context; without it the fixed Index is used.
//
// The decoded data is the chosen variant's *Value, which shares the
// delegate's context.
type Delegate struct {
	Base
	Variants []Block
	Index    int
	Choose   Expr
}

func (b *Delegate) choose(c *Context) (int, error) {
	i := b.Index
	if b.Choose != nil {
		var err error
		if i, err = EvalInt(b.Choose, c); err != nil {
			return 0, err
		}
	}
	if i < 0 || i >= len(b.Variants) {
		return 0, c.Errorf(ErrBlockDefinition, "variant %d of %d", i, len(b.Variants))
	}
	return i, nil
}

func (b *Delegate) Decode(c *Context) (any, error) {
	i, err := b.choose(c)
	if err != nil {
		return nil, err
	}
	return DecodeVariant(c, b.Variants[i])
}

func (b *Delegate) Encode(c *Context, data any) error {
	if v, ok := data.(*Value); ok {
		return EncodeVariant(c, v)
	}
	i, err := b.choose(c)
	if err != nil {
		return err
	}
	return EncodeVariant(c, NewValue(b.Variants[i], data))
}

func (b *Delegate) MinSize() int { return minVariant(b.Variants) }

func (b *Delegate) Schema(c *Context) Schema {
	s := unionSchema(c, "delegate", b.Variants)
	if b.Choose != nil {
		s.Formulas = map[string]string{"variant": formula(c, b.Choose)}
	} else {
		s.Formulas = map[string]string{"variant": strconv.Itoa(b.Index)}
	}
	return s
}

// EnumLookup chooses its variant by the table position of the current
// name of a sibling Enum field. Names missing from the table, and fields
// that are not decoded yet, select Default; a negative Default fails.
type EnumLookup struct {
	Base
	Variants []Block
	Field    string
	Default  int
}

func (b *EnumLookup) choose(c *Context) (int, error) {
	fb, err := c.RelativeBlock(b.Field)
	if err != nil {
		return 0, err
	}
	enum, ok := fb.(*Enum)
	if !ok {
		return 0, c.Errorf(ErrBlockDefinition, "%q is a %T, not an enum", b.Field, fb)
	}
	i := -1
	if data, ok := c.Data(b.Field); ok {
		if name, ok := data.(string); ok {
			i = enum.Index(name)
		} else if n, ok := toInt64(data); ok {
			if name, ok := enum.Name(n); ok {
				i = enum.Index(name)
			}
		}
	}
	if i < 0 || i >= len(b.Variants) {
		i = b.Default
	}
	if i < 0 || i >= len(b.Variants) {
		return 0, c.Errorf(ErrDataIntegrity, "no variant for %s", b.Field)
	}
	return i, nil
}

func (b *EnumLookup) Decode(c *Context) (any, error) {
	i, err := b.choose(c)
	if err != nil {
		return nil, err
	}
	return DecodeVariant(c, b.Variants[i])
}

func (b *EnumLookup) Encode(c *Context, data any) error {
	if v, ok := data.(*Value); ok {
		return EncodeVariant(c, v)
	}
	i, err := b.choose(c)
	if err != nil {
		return err
	}
	return EncodeVariant(c, NewValue(b.Variants[i], data))
}

func (b *EnumLookup) MinSize() int { return minVariant(b.Variants) }

func (b *EnumLookup) Schema(c *Context) Schema {
	s := unionSchema(c, "enum lookup", b.Variants)
	s.Formulas = map[string]string{
		"variant": "position of " + b.Field + " in its enum table",
		"default": strconv.Itoa(b.Default),
	}
	return s
}

// DecodeVariant decodes variant in the context of a union block. The
// variant sees the union's context as its own, so its fields resolve
// paths exactly as if it stood in the union's place.
func DecodeVariant(c *Context, variant Block) (any, error) {
	inner := &Value{block: variant, ctx: c, name: c.name, offset: c.Pos()}
	outer, ob := c.value, c.block
	c.value, c.block = inner, variant
	data, err := variant.Decode(c)
	if err == nil {
		err = checkExpected(c, variant, data)
	}
	c.value, c.block = outer, ob
	if err != nil {
		return nil, err
	}
	inner.data = data
	inner.size = c.Pos() - inner.offset
	return inner, nil
}

// EncodeVariant encodes a variant value in the context of a union block.
func EncodeVariant(c *Context, v *Value) error {
	if f, ok := v.data.(*Failure); ok {
		return c.Wrapf(ErrSerialization, f.Err, "variant recorded a decode failure")
	}
	outer, ob := c.value, c.block
	c.value, c.block = v, v.block
	err := v.block.Encode(c, v.data)
	c.value, c.block = outer, ob
	return err
}

func minVariant(variants []Block) int {
	if len(variants) == 0 {
		return 0
	}
	n := variants[0].MinSize()
	for _, v := range variants[1:] {
		if m := v.MinSize(); m < n {
			n = m
		}
	}
	return n
}

func unionSchema(c *Context, typ string, variants []Block) Schema {
	s := Schema{Type: typ, StaticSize: -1, MaxSize: -1}
	for i, v := range variants {
		vs := c.Describe(strconv.Itoa(i), v)
		s.Variants = append(s.Variants, vs)
		if i == 0 || vs.MinSize < s.MinSize {
			s.MinSize = vs.MinSize
		}
	}
	if len(s.Variants) > 0 {
		static := s.Variants[0].StaticSize
		max := 0
		for _, vs := range s.Variants {
			if vs.StaticSize != static {
				static = -1
			}
			if max >= 0 {
				if vs.MaxSize < 0 {
					max = -1
				} else if vs.MaxSize > max {
					max = vs.MaxSize
				}
			}
		}
		s.StaticSize = static
		s.MaxSize = max
	}
	return s
}
