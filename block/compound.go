// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package block

import (
	"go.uber.org/zap"
)

// Field is one named member of a Compound.
type Field struct {
	Name  string
	Block Block

	// Optional fields are skipped on decode when fewer bytes remain than
	// the block's minimum size, and on encode when the value is absent.
	Optional bool

	// Compute derives the field at encode time from its siblings. The
	// context passed in is the field's own, so "../x" names a sibling.
	Compute func(c *Context) (any, error)

	// Verify re-runs Compute after decoding and fails on a mismatch.
	Verify bool
}

// HookPoint is where a Hook runs in the field loop.
type HookPoint uint8

const (
	BeforeField HookPoint = iota
	AfterField
)

func (p HookPoint) String() string {
	if p == BeforeField {
		return "before"
	}
	return "after"
}

// Hook runs Fn on the compound's context around the named field, in every
// traversal mode except documentation.
type Hook struct {
	Point HookPoint
	Field string
	Name  string
	Fn    func(c *Context) error
}

// Compound is an ordered list of named fields.
type Compound struct {
	Base
	Fields []Field
	Hooks  []Hook
}

// FieldBlock returns the block bound to a field name.
func (b *Compound) FieldBlock(name string) (Block, bool) {
	for _, f := range b.Fields {
		if f.Name == name {
			return f.Block, true
		}
	}
	return nil, false
}

func (b *Compound) runHooks(c *Context, p HookPoint, field string) error {
	for _, h := range b.Hooks {
		if h.Point != p || h.Field != field {
			continue
		}
		if err := h.Fn(c); err != nil {
			return c.Wrapf(ErrBlockDefinition, err, "%s %s hook %q", p, field, h.Name)
		}
	}
	return nil
}

func (b *Compound) Decode(c *Context) (any, error) {
	m := NewFields()
	c.value.data = m
	for _, f := range b.Fields {
		if err := b.runHooks(c, BeforeField, f.Name); err != nil {
			return nil, err
		}
		if f.Optional {
			if rem := c.Remaining(); rem == 0 || rem < f.Block.MinSize() {
				c.Logger().Debug("optional field absent",
					zap.String("path", c.Path()), zap.String("field", f.Name))
				continue
			}
		}
		v, err := c.ReadChild(f.Name, f.Block, -1)
		if err != nil {
			return nil, err
		}
		m.Set(f.Name, v)
		if f.Compute != nil && f.Verify {
			want, err := f.Compute(v.ctx)
			if err != nil {
				return nil, err
			}
			if _, failed := v.Failure(); !failed && !sameData(want, v.Unwrap().data) {
				return nil, v.ctx.Errorf(ErrDataIntegrity, "%s is %v, computed %v", f.Name, v.Unwrap().data, want)
			}
		}
		if err := b.runHooks(c, AfterField, f.Name); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (b *Compound) Encode(c *Context, data any) error {
	m, ok := data.(*Fields)
	if !ok {
		return c.Errorf(ErrSerialization, "%T is not a field map", data)
	}
	for _, f := range b.Fields {
		if err := b.runHooks(c, BeforeField, f.Name); err != nil {
			return err
		}
		v, present := m.Get(f.Name)
		if f.Compute != nil {
			got, err := f.Compute(c.Child(f.Name))
			if err != nil {
				return err
			}
			if present {
				v.Unwrap().Set(got)
			} else {
				v = NewValue(f.Block, got)
				m.Set(f.Name, v)
				present = true
			}
		}
		if !present {
			if f.Optional {
				continue
			}
			return c.Errorf(ErrSerialization, "missing field %q", f.Name)
		}
		if err := c.WriteValue(f.Name, v); err != nil {
			return err
		}
		if err := b.runHooks(c, AfterField, f.Name); err != nil {
			return err
		}
	}
	return nil
}

func (b *Compound) MinSize() int {
	n := 0
	for _, f := range b.Fields {
		if !f.Optional {
			n += f.Block.MinSize()
		}
	}
	return n
}

func (b *Compound) Schema(c *Context) Schema {
	s := Schema{Type: "compound"}
	static := true
	for _, f := range b.Fields {
		fs := c.Describe(f.Name, f.Block)
		fs.Optional = f.Optional
		fs.Computed = f.Compute != nil
		s.Fields = append(s.Fields, fs)
		if fs.StaticSize < 0 || f.Optional {
			static = false
		}
		if !f.Optional {
			s.MinSize += fs.MinSize
		}
		if s.MaxSize >= 0 {
			if fs.MaxSize < 0 {
				s.MaxSize = -1
			} else {
				s.MaxSize += fs.MaxSize
			}
		}
	}
	s.StaticSize = -1
	if static {
		s.StaticSize = s.MinSize
	}
	for _, h := range b.Hooks {
		if s.Formulas == nil {
			s.Formulas = make(map[string]string)
		}
		s.Formulas[h.Point.String()+" "+h.Field] = h.Name
	}
	return s
}

// Get returns the data of a field in a decoded compound.
func Get(m *Fields, name string) any {
	v, ok := m.Get(name)
	if !ok {
		return nil
	}
	return v.Unwrap().data
}
