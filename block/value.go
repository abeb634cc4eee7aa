// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package block

import (
	"strconv"

	"github.com/elliotchance/orderedmap/v3"
)

// Fields is the decoded form of a Compound.
type Fields = orderedmap.OrderedMap[string, *Value]

// NewFields returns an empty field map.
func NewFields() *Fields {
	return orderedmap.NewOrderedMap[string, *Value]()
}

// Value is the result of decoding one block. It keeps the block and the
// context that produced it, so it can be encoded again without the caller
// supplying the schema.
type Value struct {
	block  Block
	ctx    *Context
	name   string
	offset int
	size   int
	data   any
}

// NewValue binds data to b. Use it to build values for encoding.
func NewValue(b Block, data any) *Value {
	return &Value{block: b, data: data}
}

// Block returns the block that produced the value.
func (v *Value) Block() Block { return v.block }

// Context returns the read context, nil for constructed values.
func (v *Value) Context() *Context { return v.ctx }

// Name returns the field name.
func (v *Value) Name() string { return v.name }

// Offset returns the absolute offset the value was read from.
func (v *Value) Offset() int { return v.offset }

// Size returns the bytes consumed when the value was read.
func (v *Value) Size() int { return v.size }

// Data returns the decoded data.
func (v *Value) Data() any { return v.data }

// Set replaces the decoded data.
func (v *Value) Set(data any) { v.data = data }

// Failure returns the recorded decode failure, if any.
func (v *Value) Failure() (*Failure, bool) {
	f, ok := v.data.(*Failure)
	return f, ok
}

// Unwrap follows union values down to the chosen variant.
func (v *Value) Unwrap() *Value {
	for {
		inner, ok := v.data.(*Value)
		if !ok {
			return v
		}
		v = inner
	}
}

// Int returns integer data.
func (v *Value) Int() (int64, bool) {
	return toInt64(v.Unwrap().data)
}

// Float returns numeric data as float64.
func (v *Value) Float() (float64, bool) {
	return toFloat64(v.Unwrap().data)
}

// Str returns string data.
func (v *Value) Str() (string, bool) {
	s, ok := v.Unwrap().data.(string)
	return s, ok
}

// Bytes returns byte data.
func (v *Value) Bytes() ([]byte, bool) {
	b, ok := v.Unwrap().data.([]byte)
	return b, ok
}

// Fields returns compound data.
func (v *Value) Fields() (*Fields, bool) {
	m, ok := v.Unwrap().data.(*Fields)
	return m, ok
}

// Items returns array data decoded element by element.
func (v *Value) Items() ([]*Value, bool) {
	items, ok := v.Unwrap().data.([]*Value)
	return items, ok
}

// Container is implemented by data types that hold named children, such
// as archives.
type Container interface {
	Child(name string) (*Value, bool)
}

// Child returns a named or indexed child of the value.
func (v *Value) Child(name string) (*Value, bool) {
	switch d := v.Unwrap().data.(type) {
	case *Fields:
		return d.Get(name)
	case []*Value:
		i, err := strconv.Atoi(name)
		if err != nil || i < 0 || i >= len(d) {
			return nil, false
		}
		return d[i], true
	case *Sealed:
		if d.Inner == nil {
			return nil, false
		}
		return d.Inner.Child(name)
	case Container:
		return d.Child(name)
	}
	return nil, false
}

// Get resolves a slash separated path below v.
func (v *Value) Get(path string) (*Value, bool) {
	cur := v
	for _, seg := range splitPath(path) {
		next, ok := cur.Child(seg)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// Interface converts the value tree to plain Go data: maps keep field
// order through orderedmap, arrays become slices.
func (v *Value) Interface() any {
	switch d := v.Unwrap().data.(type) {
	case *Fields:
		out := orderedmap.NewOrderedMapWithCapacity[string, any](d.Len())
		for el := d.Front(); el != nil; el = el.Next() {
			out.Set(el.Key, el.Value.Interface())
		}
		return out
	case []*Value:
		out := make([]any, len(d))
		for i, item := range d {
			out[i] = item.Interface()
		}
		return out
	case *Sealed:
		if d.Inner == nil {
			return nil
		}
		return d.Inner.Interface()
	case *Failure:
		return d.Error()
	default:
		return d
	}
}
