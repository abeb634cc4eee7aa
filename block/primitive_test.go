// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package block

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func roundTrip(t *testing.T, b Block, buf []byte) *Value {
	t.Helper()
	v, err := Decode(b, buf)
	require.NoError(t, err)
	assert.Equal(t, len(buf), v.Size(), "consumed size")
	out, err := Encode(v)
	require.NoError(t, err)
	assert.Equal(t, buf, out, "re-encoded bytes")
	return v
}

func TestIntDecode(t *testing.T) {
	cases := []struct {
		name  string
		block *Int
		in    []byte
		want  int64
	}{
		{"u16", U16(), []byte{0x1F, 0x00}, 31},
		{"u16 big endian", U16BE(), []byte{0x00, 0x1F}, 31},
		{"s8", S8(), []byte{0xFF}, -1},
		{"u24", U24(), []byte{0x01, 0x02, 0x03}, 0x030201},
		{"u24 big endian", U24BE(), []byte{0x01, 0x02, 0x03}, 0x010203},
		{"s32", S32(), []byte{0xFE, 0xFF, 0xFF, 0xFF}, -2},
		{"u64", U64(), []byte{1, 0, 0, 0, 0, 0, 0, 0}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := roundTrip(t, tc.block, tc.in)
			n, ok := v.Int()
			require.True(t, ok)
			assert.Equal(t, tc.want, n)
		})
	}
}

func TestIntEncode(t *testing.T) {
	out, err := Encode(NewValue(U16(), int64(31)))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x1F, 0x00}, out)

	_, err = Encode(NewValue(U8(), 256))
	assert.ErrorIs(t, err, ErrSerialization)

	_, err = Encode(NewValue(S8(), -129))
	assert.ErrorIs(t, err, ErrSerialization)
}

func TestIntShortBuffer(t *testing.T) {
	_, err := Decode(U32(), []byte{1, 2})
	require.ErrorIs(t, err, ErrEndOfBuffer)

	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, "$/root", e.Path)
	assert.Equal(t, 0, e.Offset)
}

func TestIntRequired(t *testing.T) {
	b := Require(U8(), 7)
	_, err := Decode(b, []byte{7})
	require.NoError(t, err)
	_, err = Decode(b, []byte{8})
	assert.ErrorIs(t, err, ErrDataIntegrity)
}

func TestFixed(t *testing.T) {
	v := roundTrip(t, Fixed16_16(), []byte{0x00, 0x80, 0x01, 0x00})
	f, ok := v.Float()
	require.True(t, ok)
	assert.Equal(t, 1.5, f)

	out, err := Encode(NewValue(Fixed16_16(), 1.5))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x80, 0x01, 0x00}, out)
}

func TestFixedSaturates(t *testing.T) {
	out, err := Encode(NewValue(Fixed8_8(), 1000.0))
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0x7F}, out)

	out, err = Encode(NewValue(Fixed8_8(), -1000.0))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x80}, out)
}

func TestString(t *testing.T) {
	v, err := Decode(Str(8), []byte("abc\x00\x00\x00\x00\x00"))
	require.NoError(t, err)
	s, _ := v.Str()
	assert.Equal(t, "abc", s)
	assert.Equal(t, 8, v.Size())

	out, err := Encode(v)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc\x00\x00\x00\x00\x00"), out)

	_, err = Encode(NewValue(Str(2), "abc"))
	assert.ErrorIs(t, err, ErrSerialization)
}

func TestStringKeepsBytesAfterNUL(t *testing.T) {
	v := roundTrip(t, Str(4), []byte{'a', 'b', 0, 'c'})
	s, _ := v.Str()
	assert.Equal(t, "ab\x00c", s)

	v = roundTrip(t, Str(6), []byte("ab\x00c\x00\x00"))
	s, _ = v.Str()
	assert.Equal(t, "ab\x00c", s)
}

func TestStringPadding(t *testing.T) {
	b := &String{Length: Const(6), Pad: ' '}
	v := roundTrip(t, b, []byte("hi    "))
	s, _ := v.Str()
	assert.Equal(t, "hi", s)
}

func TestCString(t *testing.T) {
	b := &Compound{Fields: []Field{
		{Name: "name", Block: CString()},
		{Name: "n", Block: U8()},
	}}
	v := roundTrip(t, b, []byte("road\x00\x09"))
	name, _ := v.Get("name")
	s, _ := name.Str()
	assert.Equal(t, "road", s)

	_, err := Decode(CString(), []byte("road"))
	assert.ErrorIs(t, err, ErrEndOfBuffer)
}

func TestStringCodePage(t *testing.T) {
	b := &String{Length: Const(4), Encoding: charmap.Windows1252}
	v := roundTrip(t, b, []byte{'c', 'a', 'f', 0xE9})
	s, _ := v.Str()
	assert.Equal(t, "café", s)
}

func TestMagic(t *testing.T) {
	roundTrip(t, Magic("SHPI"), []byte("SHPI"))
	_, err := Decode(Magic("SHPI"), []byte("SHPX"))
	assert.ErrorIs(t, err, ErrDataIntegrity)
}

func TestBytes(t *testing.T) {
	v := roundTrip(t, Raw(3), []byte{1, 2, 3})
	p, _ := v.Bytes()
	assert.Equal(t, []byte{1, 2, 3}, p)

	v = roundTrip(t, Rest(), []byte{9, 8, 7, 6})
	p, _ = v.Bytes()
	assert.Len(t, p, 4)
}

func TestBytesNegativeLengthSeeksBack(t *testing.T) {
	b := &Compound{Fields: []Field{
		{Name: "peek", Block: U16()},
		{Name: "back", Block: &Bytes{Length: Const(-2)}},
		{Name: "value", Block: U16()},
	}}
	v := roundTrip(t, b, []byte{0x34, 0x12})
	peek, _ := v.Get("peek")
	value, _ := v.Get("value")
	pn, _ := peek.Int()
	vn, _ := value.Int()
	assert.Equal(t, int64(0x1234), pn)
	assert.Equal(t, pn, vn)
}

func TestSkip(t *testing.T) {
	v, err := Decode(&Skip{}, []byte{1, 2})
	require.NoError(t, err)
	assert.Nil(t, v.Data())
	assert.Equal(t, 0, v.Size())
}

func TestFlags(t *testing.T) {
	b := &Flags{Names: [8]string{"textured", "lit", "shaded"}}
	v := roundTrip(t, b, []byte{0x05})
	assert.Equal(t, [8]bool{true, false, true}, v.Data())
	assert.True(t, b.Flag(v.Data(), "shaded"))
	assert.False(t, b.Flag(v.Data(), "lit"))
}

func TestEnum(t *testing.T) {
	b := &Enum{Entries: []EnumEntry{{1, "small"}, {5, "big"}}}

	v := roundTrip(t, b, []byte{5})
	assert.Equal(t, "big", v.Data())

	v = roundTrip(t, b, []byte{7})
	assert.Equal(t, "7", v.Data())

	strict := &Enum{Entries: b.Entries, Strict: true}
	_, err := Decode(strict, []byte{7})
	assert.ErrorIs(t, err, ErrDataIntegrity)

	_, err = Encode(NewValue(b, "huge"))
	assert.ErrorIs(t, err, ErrSerialization)
	assert.Equal(t, 1, b.Index("big"))
	assert.Equal(t, -1, b.Index("7"))
}

func TestCRC32(t *testing.T) {
	assert.Equal(t, uint32(0xCBF43926), CRC32([]byte("123456789")))
}
