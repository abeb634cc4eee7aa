// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package block

import (
	"strconv"
)

// Flags is one byte decoded into eight booleans; element i is bit 1<<i.
type Flags struct {
	Base
	Names [8]string
}

// Decode reads one byte as eight booleans.
func (b *Flags) Decode(c *Context) (any, error) {
	p, err := c.ReadBytes(1)
	if err != nil {
		return nil, err
	}
	var out [8]bool
	for i := range out {
		out[i] = p[0]&(1<<i) != 0
	}
	return out, nil
}

// Encode packs [8]bool data into one byte.
func (b *Flags) Encode(c *Context, data any) error {
	bits, ok := data.([8]bool)
	if !ok {
		return c.Errorf(ErrSerialization, "%T is not [8]bool", data)
	}
	var v byte
	for i, set := range bits {
		if set {
			v |= 1 << i
		}
	}
	return c.WriteBytes([]byte{v})
}

// Flag returns the named bit of decoded flags data.
func (b *Flags) Flag(data any, name string) bool {
	bits, _ := data.([8]bool)
	for i, n := range b.Names {
		if n == name {
			return bits[i]
		}
	}
	return false
}

// MinSize is one byte.
func (*Flags) MinSize() int { return 1 }

// Schema lists the bit names.
func (b *Flags) Schema(*Context) Schema {
	s := fixedSchema("flags", 1)
	for _, n := range b.Names {
		s.Names = append(s.Names, n)
	}
	return s
}

// EnumEntry maps one stored value to its name.
type EnumEntry struct {
	Value int64
	Name  string
}

// Enum is a one byte code decoded through a sparse value to name table.
// Unmapped values decode to their decimal string unless Strict is set.
type Enum struct {
	Base
	Entries []EnumEntry
	Strict  bool
}

// Name returns the name for a stored value.
func (b *Enum) Name(v int64) (string, bool) {
	for _, e := range b.Entries {
		if e.Value == v {
			return e.Name, true
		}
	}
	return "", false
}

// Value returns the stored value for a name or a decimal string.
func (b *Enum) Value(name string) (int64, bool) {
	for _, e := range b.Entries {
		if e.Name == name {
			return e.Value, true
		}
	}
	if n, err := strconv.ParseInt(name, 10, 64); err == nil && !b.Strict {
		return n, true
	}
	return 0, false
}

// Index returns the table position of a name, -1 if unmapped.
func (b *Enum) Index(name string) int {
	for i, e := range b.Entries {
		if e.Name == name {
			return i
		}
	}
	return -1
}

// Decode returns the entry name of the byte read, or its decimal text when
// unmapped and not Strict.
func (b *Enum) Decode(c *Context) (any, error) {
	p, err := c.ReadBytes(1)
	if err != nil {
		return nil, err
	}
	v := int64(p[0])
	if name, ok := b.Name(v); ok {
		return name, nil
	}
	if b.Strict {
		return nil, c.Errorf(ErrDataIntegrity, "unmapped enum value 0x%02x", v)
	}
	return strconv.FormatInt(v, 10), nil
}

// Encode accepts an entry name or a raw integer value.
func (b *Enum) Encode(c *Context, data any) error {
	var v int64
	switch d := data.(type) {
	case string:
		n, ok := b.Value(d)
		if !ok {
			return c.Errorf(ErrSerialization, "unknown enum name %q", d)
		}
		v = n
	default:
		n, ok := toInt64(data)
		if !ok {
			return c.Errorf(ErrSerialization, "%T is not an enum value", data)
		}
		v = n
	}
	if v < 0 || v > 0xFF {
		return c.Errorf(ErrSerialization, "enum value %d out of byte range", v)
	}
	return c.WriteBytes([]byte{byte(v)})
}

// MinSize is one byte.
func (*Enum) MinSize() int { return 1 }

// Schema lists the entries as name=value.
func (b *Enum) Schema(*Context) Schema {
	s := fixedSchema("enum", 1)
	for _, e := range b.Entries {
		s.Names = append(s.Names, e.Name+"="+strconv.FormatInt(e.Value, 10))
	}
	return s
}
