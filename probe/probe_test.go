// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package probe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suprsokr/go-resfile/compression"
)

func TestProbe(t *testing.T) {
	cases := []struct {
		name string
		head []byte
		file string
		want Type
	}{
		{"shpi", []byte("SHPI\x10\x00\x00\x00"), "", SHPI},
		{"wwww", []byte("wwww\x02\x00"), "", WWWW},
		{"bnkl", []byte("BNKl\x01\x00"), "", BNKL},
		{"sound", []byte("PT\x00\x00\x01"), "", Sound},
		{"refpack", []byte{0x10, 0xFB, 0, 0, 4}, "", RefPack},
		{"refpack large", []byte{0x91, 0xFB, 0, 0, 0, 4}, "", RefPack},
		{"btree", []byte{0x46, 0xFB}, "", BTree},
		{"huffman", []byte{0x31, 0xFB}, "", Huffman},
		{"huffman delta", []byte{0x32, 0xFB}, "", Huffman},
		{"huffman double delta", []byte{0xB4, 0xFB}, "", Huffman},
		{"bitmap", []byte{0x7B, 0x00, 0x00, 0x00}, "", Bitmap8},
		{"palette", []byte{0x2D}, "", Palette},
		{"mesh by suffix", []byte("SHPI"), "car.MSH", Mesh},
		{"map by suffix", nil, "tracks/alpine.map", TrackMap},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Probe(tc.head, tc.file)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestProbeRestricted(t *testing.T) {
	got, err := Probe([]byte("SHPI"), "car.msh", SHPI, RefPack)
	require.NoError(t, err)
	assert.Equal(t, SHPI, got)

	_, err = Probe([]byte{0x7B, 0, 0, 0}, "", SHPI, RefPack)
	assert.ErrorIs(t, err, ErrNotImplemented)

	for _, head := range [][]byte{[]byte("SHPI"), {0x10, 0xFB}, {0x7B}, []byte("wwww")} {
		got, err := Probe(head, "", Bitmap8, WWWW)
		if err == nil {
			assert.Contains(t, []Type{Bitmap8, WWWW}, got)
		}
	}
}

func TestProbeUnknown(t *testing.T) {
	_, err := Probe([]byte{0x01, 0x02}, "")
	assert.ErrorIs(t, err, ErrNotImplemented)
	_, err = Probe(nil, "")
	assert.ErrorIs(t, err, ErrNotImplemented)
}

func TestProbeAgreesWithCodecs(t *testing.T) {
	for b0 := 0; b0 < 256; b0++ {
		head := []byte{byte(b0), 0xFB}
		m, ok := compression.Identify(head)
		got, err := Probe(head, "", RefPack, BTree, Huffman)
		if !ok {
			assert.Error(t, err, "0x%02X", b0)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, m.String(), got.String())
	}
}

func TestParse(t *testing.T) {
	for _, typ := range Types() {
		got, err := Parse(typ.String())
		require.NoError(t, err)
		assert.Equal(t, typ, got)
	}
	_, err := Parse("gif")
	assert.ErrorIs(t, err, ErrNotImplemented)
	assert.True(t, RefPack.Compressed())
	assert.True(t, BNKL.Container())
	assert.True(t, Palette.Record())
	assert.False(t, Sound.Record())
}
