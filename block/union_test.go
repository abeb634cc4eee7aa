// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package block

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelegateByExpression(t *testing.T) {
	b := &Compound{Fields: []Field{
		{Name: "kind", Block: U8()},
		{Name: "body", Block: &Delegate{Variants: []Block{U8(), U16()}, Choose: Path("../kind")}},
	}}
	v := roundTrip(t, b, []byte{1, 0x34, 0x12})
	body, _ := v.Get("body")
	n, ok := body.Int()
	require.True(t, ok)
	assert.Equal(t, int64(0x1234), n)
	assert.Equal(t, U16().Width, body.Unwrap().Block().MinSize())

	_, err := Decode(b, []byte{2, 0})
	assert.ErrorIs(t, err, ErrBlockDefinition)
}

func TestDelegateFixedIndex(t *testing.T) {
	b := &Delegate{Variants: []Block{&Skip{}, U8()}, Index: 1}
	v := roundTrip(t, b, []byte{9})
	n, _ := v.Int()
	assert.Equal(t, int64(9), n)
	assert.Equal(t, 0, b.MinSize())
}

func taggedBody(def int) *Compound {
	id := &Enum{Entries: []EnumEntry{{0x10, "small"}, {0x20, "big"}}}
	return &Compound{Fields: []Field{
		{Name: "id", Block: id},
		{Name: "body", Block: &EnumLookup{
			Variants: []Block{U8(), U16()},
			Field:    "../id",
			Default:  def,
		}},
	}}
}

func TestEnumLookup(t *testing.T) {
	v := roundTrip(t, taggedBody(-1), []byte{0x20, 1, 2})
	body, _ := v.Get("body")
	n, _ := body.Int()
	assert.Equal(t, int64(0x0201), n)

	v = roundTrip(t, taggedBody(-1), []byte{0x10, 7})
	body, _ = v.Get("body")
	n, _ = body.Int()
	assert.Equal(t, int64(7), n)
}

func TestEnumLookupDefault(t *testing.T) {
	_, err := Decode(taggedBody(-1), []byte{0x30, 1})
	assert.ErrorIs(t, err, ErrDataIntegrity)

	v := roundTrip(t, taggedBody(0), []byte{0x30, 1})
	body, _ := v.Get("body")
	assert.Equal(t, 1, body.Size())
}

func TestEnumLookupEncodeChoosesVariant(t *testing.T) {
	v := MustBuild(taggedBody(-1), map[string]any{"id": "big", "body": 0x0102})
	out, err := Encode(v)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x20, 0x02, 0x01}, out)
}

func TestUnionVariantSeesSiblings(t *testing.T) {
	inner := &Compound{Fields: []Field{
		{Name: "n", Block: U8()},
		{Name: "items", Block: Of(U8(), Path("../n"))},
	}}
	b := &Delegate{Variants: []Block{inner}}
	v := roundTrip(t, b, []byte{2, 5, 6})
	items, ok := v.Get("items")
	require.True(t, ok)
	assert.Equal(t, []int64{5, 6}, items.Data())
}

type xorTransform byte

func (x xorTransform) Name() string { return "xor" }

func (x xorTransform) apply(p []byte) []byte {
	out := make([]byte, len(p))
	for i, b := range p {
		out[i] = b ^ byte(x)
	}
	return out
}

func (x xorTransform) Unwrap(stored []byte) ([]byte, error) { return x.apply(stored), nil }
func (x xorTransform) Wrap(plain []byte) ([]byte, error)    { return x.apply(plain), nil }

func TestDetached(t *testing.T) {
	b := &Detached{
		Transform: xorTransform(0xFF),
		Elem:      &Compound{Fields: []Field{{Name: "a", Block: U16()}}},
	}
	v := roundTrip(t, b, []byte{0xFE, 0xFF, 0xAA})

	a, ok := v.Get("a")
	require.True(t, ok)
	n, _ := a.Int()
	assert.Equal(t, int64(1), n)

	s := v.Data().(*Sealed)
	assert.Equal(t, []byte{0x55}, s.Tail)

	a.Set(int64(2))
	out, err := Encode(v)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFD, 0xFF, 0xAA}, out)
}

func TestDetachedBuild(t *testing.T) {
	b := &Detached{Transform: xorTransform(1), Elem: U8()}
	out, err := Encode(MustBuild(b, 4))
	require.NoError(t, err)
	assert.Equal(t, []byte{5}, out)
}

func TestCELExpression(t *testing.T) {
	b := &Compound{Fields: []Field{
		{Name: "w", Block: U8()},
		{Name: "h", Block: U8()},
		{Name: "cells", Block: Of(U8(), MustCEL("w * h", map[string]string{"w": "../w", "h": "../h"}))},
	}}
	v := roundTrip(t, b, []byte{2, 3, 1, 2, 3, 4, 5, 6})
	cells, _ := v.Get("cells")
	assert.Len(t, cells.Data(), 6)

	_, err := CEL("w *", map[string]string{"w": "../w"})
	assert.Error(t, err)
}

func TestForwardReferenceUnresolved(t *testing.T) {
	b := &Compound{Fields: []Field{
		{Name: "items", Block: Of(U8(), Path("../count"))},
		{Name: "count", Block: U8()},
	}}
	_, err := Decode(b, []byte{1, 1})
	assert.ErrorIs(t, err, ErrBlockDefinition)
}

func TestDocument(t *testing.T) {
	s := Document(countedList())
	assert.Equal(t, "compound", s.Type)
	assert.Equal(t, -1, s.StaticSize)
	assert.Equal(t, 1, s.MinSize)
	require.Len(t, s.Fields, 2)
	assert.True(t, s.Fields[0].Computed)
	assert.Equal(t, "../count", s.Fields[1].Formulas["count"])
	require.NotNil(t, s.Fields[1].Element)
	assert.Equal(t, 2, s.Fields[1].Element.StaticSize)
	require.NotNil(t, s.Fields[0].Range)
	assert.Equal(t, 255.0, s.Fields[0].Range.Max)

	fixed := Document(&Compound{Fields: []Field{{Name: "a", Block: U16()}, {Name: "b", Block: U32()}}})
	assert.Equal(t, 6, fixed.StaticSize)

	area := Document(Of(U8(), Mul(Path("../w"), Const(2))))
	assert.Equal(t, "(../w * 2)", area.Formulas["count"])

	cel := Document(Of(U8(), MustCEL("w * h", map[string]string{"w": "../w", "h": "../h"})))
	assert.Equal(t, "w * h; h=../h; w=../w", cel.Formulas["count"])
}

func TestDocumentRecursive(t *testing.T) {
	node := &Compound{}
	node.Fields = []Field{
		{Name: "value", Block: U8()},
		{Name: "next", Block: node, Optional: true},
	}
	s := Document(node)
	require.Len(t, s.Fields, 2)
	assert.Equal(t, "recursive", s.Fields[1].Type)

	v := roundTrip(t, node, []byte{1, 2, 3})
	last, ok := v.Get("next/next/value")
	require.True(t, ok)
	n, _ := last.Int()
	assert.Equal(t, int64(3), n)
}

func TestValueInterface(t *testing.T) {
	v, err := Decode(countedList(), []byte{1, 5, 0})
	require.NoError(t, err)
	plain := v.Interface()
	m, ok := plain.(interface{ Len() int })
	require.True(t, ok)
	assert.Equal(t, 2, m.Len())
}
