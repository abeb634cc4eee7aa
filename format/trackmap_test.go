// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suprsokr/go-resfile/block"
)

func trackFixture(cells ...[]byte) []byte {
	name := make([]byte, 24)
	copy(name, "Alpine \xe9t\xe9")
	return cat(
		name, []byte{0x80, 0x01}, le16(2), le16(1),
		cat(cells...),
		[]byte{3, 0x00, 0x02, 0x80, 0x00},
	)
}

func TestTrackMapRoundTrip(t *testing.T) {
	buf := trackFixture([]byte{1, 90, 2}, []byte{0})
	v, err := block.Decode(TrackMap, buf)
	require.NoError(t, err)
	assert.Equal(t, len(buf), v.Size())

	name, _ := v.Get("name")
	s, _ := name.Str()
	assert.Equal(t, "Alpine été", s)
	tile, _ := v.Get("tile_size")
	f, _ := tile.Float()
	assert.Equal(t, 1.5, f)

	cells, _ := v.Get("cells")
	items, _ := cells.Items()
	require.Len(t, items, 2)
	lanes, ok := v.Get("cells/0/payload/lanes")
	require.True(t, ok)
	n, _ := lanes.Int()
	assert.EqualValues(t, 2, n)

	objects, _ := v.Get("objects")
	objs, _ := objects.Items()
	require.Len(t, objs, 1)
	x, _ := v.Get("objects/0/x")
	xf, _ := x.Float()
	assert.Equal(t, 2.0, xf)

	out, err := block.Encode(v)
	require.NoError(t, err)
	assert.Equal(t, buf, out)
}

func TestTrackMapUnknownCellKind(t *testing.T) {
	buf := trackFixture([]byte{9}, []byte{2, 0x34, 0x12})
	v, err := block.Decode(TrackMap, buf)
	require.NoError(t, err)

	kind, _ := v.Get("cells/0/kind")
	s, _ := kind.Str()
	assert.Equal(t, "9", s)
	model, _ := v.Get("cells/1/payload/model")
	m, _ := model.Int()
	assert.EqualValues(t, 0x1234, m)

	out, err := block.Encode(v)
	require.NoError(t, err)
	assert.Equal(t, buf, out)
}

func TestTrackMapCellCountMismatch(t *testing.T) {
	v, err := block.Decode(TrackMap, trackFixture([]byte{0}, []byte{0}))
	require.NoError(t, err)
	w, _ := v.Get("width")
	w.Set(int64(3))
	_, err = block.Encode(v)
	assert.ErrorIs(t, err, block.ErrSerialization)
}

func TestTrackMapSchema(t *testing.T) {
	s := block.Document(TrackMap)
	assert.Equal(t, "cell count", s.Formulas["after height"])
	var cells block.Schema
	for _, f := range s.Fields {
		if f.Name == "cells" {
			cells = f
		}
	}
	assert.Equal(t, "$cells", cells.Formulas["count"])
	assert.Equal(t, "w * h; h=height; w=width", cellCount.String())
}
