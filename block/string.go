// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package block

import (
	"bytes"

	"golang.org/x/text/encoding"
)

// String is a text field. With a Length the field occupies exactly that
// many bytes and is right-trimmed of Pad on decode unless Keep is set.
// Bytes before the padding, embedded NULs included, are kept so the field
// writes back unchanged. Without a Length the string is NUL-terminated
// when Terminated is set, otherwise it takes the rest of the budget.
//
// Encoding selects a legacy code page; nil means the bytes are UTF-8.
type String struct {
	Base
	Length     Expr
	Terminated bool
	Pad        byte
	Keep       bool
	Encoding   encoding.Encoding
}

// Str is a fixed-size, NUL padded string.
func Str(n int) *String { return &String{Length: Const(n)} }

// CString is a NUL-terminated string.
func CString() *String { return &String{Terminated: true} }

// Magic is a fixed tag that must read back as s.
func Magic(s string) *String {
	return &String{Base: Base{Expect: s}, Length: Const(len(s)), Keep: true}
}

func (b *String) Decode(c *Context) (any, error) {
	var raw []byte
	switch {
	case b.Length != nil:
		n, err := EvalInt(b.Length, c)
		if err != nil {
			return nil, err
		}
		if raw, err = c.ReadBytes(n); err != nil {
			return nil, err
		}
		if !b.Keep {
			raw = bytes.TrimRight(raw, string([]byte{b.Pad}))
		}
	case b.Terminated:
		rest := c.Peek(c.Remaining())
		i := bytes.IndexByte(rest, 0)
		if i < 0 {
			return nil, c.Errorf(ErrEndOfBuffer, "unterminated string")
		}
		raw, _ = c.ReadBytes(i + 1)
		raw = raw[:i]
	default:
		raw, _ = c.ReadBytes(c.Remaining())
	}
	if b.Encoding == nil {
		return string(raw), nil
	}
	s, err := b.Encoding.NewDecoder().Bytes(raw)
	if err != nil {
		return nil, c.Wrapf(ErrDataIntegrity, err, "decode text")
	}
	return string(s), nil
}

func (b *String) Encode(c *Context, data any) error {
	var raw []byte
	switch s := data.(type) {
	case string:
		raw = []byte(s)
	case []byte:
		raw = s
	default:
		return c.Errorf(ErrSerialization, "%T is not a string", data)
	}
	if b.Encoding != nil {
		enc, err := b.Encoding.NewEncoder().Bytes(raw)
		if err != nil {
			return c.Wrapf(ErrSerialization, err, "encode text")
		}
		raw = enc
	}
	switch {
	case b.Length != nil:
		n, err := EvalInt(b.Length, c)
		if err != nil {
			return err
		}
		if len(raw) > n {
			return c.Errorf(ErrSerialization, "string of %d bytes exceeds field of %d", len(raw), n)
		}
		padded := make([]byte, n)
		copy(padded, raw)
		for i := len(raw); i < n; i++ {
			padded[i] = b.Pad
		}
		return c.WriteBytes(padded)
	case b.Terminated:
		return c.WriteBytes(append(append([]byte(nil), raw...), 0))
	}
	return c.WriteBytes(raw)
}

func (b *String) MinSize() int {
	if n, ok := staticInt(b.Length); ok {
		return n
	}
	if b.Terminated {
		return 1
	}
	return 0
}

func (b *String) Schema(c *Context) Schema {
	if n, ok := staticInt(b.Length); ok {
		return fixedSchema("string", n)
	}
	s := dynamicSchema("string", b.MinSize())
	if b.Length != nil {
		s.Formulas = map[string]string{"length": formula(c, b.Length)}
	}
	return s
}

// Bytes is an opaque byte run. A nil Length takes the rest of the budget.
// A negative length moves the cursor back by that many bytes without
// consuming anything; the data is then empty.
type Bytes struct {
	Base
	Length Expr
}

// Raw is a byte run of fixed size.
func Raw(n int) *Bytes { return &Bytes{Length: Const(n)} }

// Rest is a byte run taking the rest of the budget.
func Rest() *Bytes { return &Bytes{} }

type rewind int

func (b *Bytes) Decode(c *Context) (any, error) {
	n := c.Remaining()
	if b.Length != nil {
		var err error
		if n, err = EvalInt(b.Length, c); err != nil {
			return nil, err
		}
	}
	if n < 0 {
		if err := c.Seek(c.Pos() + n); err != nil {
			return nil, err
		}
		return rewind(-n), nil
	}
	p, err := c.ReadBytes(n)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), p...), nil
}

func (b *Bytes) Encode(c *Context, data any) error {
	switch d := data.(type) {
	case rewind:
		return c.Seek(c.Pos() - int(d))
	case []byte:
		if n, ok := staticInt(b.Length); ok && n != len(d) {
			return c.Errorf(ErrSerialization, "%d bytes for a field of %d", len(d), n)
		}
		return c.WriteBytes(d)
	case string:
		return c.WriteBytes([]byte(d))
	case nil:
		return nil
	}
	return c.Errorf(ErrSerialization, "%T is not a byte slice", data)
}

func (b *Bytes) MinSize() int {
	if n, ok := staticInt(b.Length); ok && n > 0 {
		return n
	}
	return 0
}

func (b *Bytes) Schema(c *Context) Schema {
	if n, ok := staticInt(b.Length); ok && n >= 0 {
		return fixedSchema("bytes", n)
	}
	s := dynamicSchema("bytes", 0)
	if b.Length != nil {
		s.Formulas = map[string]string{"length": formula(c, b.Length)}
	} else {
		s.Formulas = map[string]string{"length": "remaining"}
	}
	return s
}

// Skip stands for "no data present". It occupies no bytes.
type Skip struct {
	Base
}

func (*Skip) Decode(*Context) (any, error) { return nil, nil }

func (*Skip) Encode(c *Context, data any) error {
	if data != nil {
		return c.Errorf(ErrSerialization, "skip cannot hold %T", data)
	}
	return nil
}

func (*Skip) MinSize() int            { return 0 }
func (*Skip) Schema(*Context) Schema { return fixedSchema("skip", 0) }
