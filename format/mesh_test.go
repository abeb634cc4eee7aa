// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package format

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suprsokr/go-resfile/block"
)

func fixed(f float64) []byte { return le32(uint32(int32(f * 65536))) }

func meshFixture() []byte {
	texture := make([]byte, 16)
	copy(texture, `tex\car.tex`)
	body := cat(
		[]byte{0x01, 1}, le16(1), le32(1), le32(1), texture, le32(36),
		[]byte{0, 0, 0, 0},
		fixed(-1), fixed(-1), fixed(-1), fixed(1), fixed(1), fixed(1),
		fixed(0.5), fixed(1.5), fixed(-2),
		le16(0), le16(0), le16(0),
		[]byte("body\x00\x00\x00\x00"), le16(0), le16(1),
	)
	return cat(body, le32(block.CRC32(body)))
}

func TestMeshRoundTrip(t *testing.T) {
	buf := meshFixture()
	v, err := block.Decode(Mesh, buf, block.WithFileName(filepath.Join("models", "car.msh")))
	require.NoError(t, err)
	assert.Equal(t, len(buf), v.Size())

	flags, _ := v.Get("flags")
	assert.True(t, MeshFlags.Flag(flags.Data(), "textured"))
	assert.False(t, MeshFlags.Flag(flags.Data(), "smooth"))

	tex, _ := v.Get("texture")
	link := tex.Data().(Link)
	assert.Equal(t, `tex\car.tex`, link.Name)
	assert.Equal(t, filepath.Join("models", "tex", "car.tex"), link.Path)

	pos, _ := v.Get("positions")
	assert.Equal(t, []float64{0.5, 1.5, -2}, pos.Data())

	out, err := block.Encode(v)
	require.NoError(t, err)
	assert.Equal(t, buf, out)
}

func TestMeshComputedCounts(t *testing.T) {
	v, err := block.Decode(Mesh, meshFixture())
	require.NoError(t, err)

	pos, _ := v.Get("positions")
	pos.Set([]float64{0.5, 1.5, -2, 3, 3, 3})
	out, err := block.Encode(v)
	require.NoError(t, err)

	v2, err := block.Decode(Mesh, out)
	require.NoError(t, err)
	n, _ := v2.Get("vertex_count")
	got, _ := n.Int()
	assert.EqualValues(t, 2, got)
	assert.Len(t, out, len(meshFixture())+12)
}

func TestMeshChecksumMismatch(t *testing.T) {
	buf := meshFixture()
	buf[70] ^= 0xFF
	_, err := block.Decode(Mesh, buf)
	assert.ErrorIs(t, err, block.ErrDataIntegrity)
}

func TestMeshDataOffsetInsideHeader(t *testing.T) {
	buf := meshFixture()
	copy(buf[28:], le32(8))
	_, err := block.Decode(Mesh, buf)
	assert.ErrorIs(t, err, block.ErrDataIntegrity)
}

func TestMeshSchema(t *testing.T) {
	s := block.Document(Mesh)
	assert.Equal(t, "mesh", s.Description)
	assert.Equal(t, "seek to data", s.Formulas["before bounds"])
	var positions block.Schema
	for _, f := range s.Fields {
		if f.Name == "positions" {
			positions = f
		}
	}
	assert.Equal(t, "(../vertex_count * 3)", positions.Formulas["count"])
}
