// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package block

import (
	"fmt"
	"strconv"

	"github.com/elliotchance/orderedmap/v3"
)

// Build turns plain Go data into a value tree for b, ready for Encode.
// Compounds take map[string]any or an ordered map of any; arrays take
// []any or numeric slices; detached blocks take their element's data.
// Union blocks keep the data as is and choose their variant on encode.
func Build(b Block, data any) (*Value, error) {
	if v, ok := data.(*Value); ok {
		return v, nil
	}
	switch bb := b.(type) {
	case *Compound:
		m := NewFields()
		for _, f := range bb.Fields {
			d, ok := lookupField(data, f.Name)
			if !ok {
				continue
			}
			v, err := Build(f.Block, d)
			if err != nil {
				return nil, fmt.Errorf("build %s: %w", f.Name, err)
			}
			m.Set(f.Name, v)
		}
		return NewValue(b, m), nil
	case *Array:
		items, ok := data.([]any)
		if !ok {
			return NewValue(b, normalize(data)), nil
		}
		out := make([]*Value, len(items))
		for i, d := range items {
			v, err := Build(bb.Elem, d)
			if err != nil {
				return nil, fmt.Errorf("build [%d]: %w", i, err)
			}
			out[i] = v
		}
		return NewValue(b, out), nil
	case *Detached:
		if s, ok := data.(*Sealed); ok {
			return NewValue(b, s), nil
		}
		inner, err := Build(bb.Elem, data)
		if err != nil {
			return nil, err
		}
		return NewValue(b, Seal(inner)), nil
	}
	return NewValue(b, normalize(data)), nil
}

func lookupField(data any, name string) (any, bool) {
	switch m := data.(type) {
	case map[string]any:
		d, ok := m[name]
		return d, ok
	case *orderedmap.OrderedMap[string, any]:
		return m.Get(name)
	case *Fields:
		v, ok := m.Get(name)
		if !ok {
			return nil, false
		}
		return v, true
	}
	return nil, false
}

func normalize(data any) any {
	switch d := data.(type) {
	case int, int8, int16, int32, uint, uint8, uint16, uint32, uint64:
		n, _ := toInt64(d)
		return n
	case float32:
		return float64(d)
	case []int:
		out := make([]int64, len(d))
		for i, n := range d {
			out[i] = int64(n)
		}
		return out
	}
	return data
}

// MustBuild is Build for literals in tests and fixtures.
func MustBuild(b Block, data any) *Value {
	v, err := Build(b, data)
	if err != nil {
		panic(err)
	}
	return v
}

// Names lists the field names of a decoded compound in order.
func Names(m *Fields) []string {
	out := make([]string, 0, m.Len())
	for k := range m.Keys() {
		out = append(out, k)
	}
	return out
}

// Index is the child name of array element i.
func Index(i int) string { return strconv.Itoa(i) }
