// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package resfile

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suprsokr/go-resfile/probe"
)

// soundFile builds an 8-bit stereo sample with two frames.
func soundFile(rate uint32) []byte {
	buf := []byte("PT\x00\x00")
	buf = append(buf, 1, 2)
	buf = binary.LittleEndian.AppendUint32(buf, rate)
	buf = binary.LittleEndian.AppendUint32(buf, 2)
	return append(buf, 1, 2, 3, 4)
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, data, 0644))
}

func rateOf(t *testing.T, c *Cache, name string) int64 {
	t.Helper()
	v, err := c.Load(name)
	require.NoError(t, err)
	rate, ok := v.Get("rate")
	require.True(t, ok)
	n, ok := rate.Int()
	require.True(t, ok)
	return n
}

func TestIdentify(t *testing.T) {
	typ, err := Identify(soundFile(22050), "")
	require.NoError(t, err)
	assert.Equal(t, probe.Sound, typ)

	_, err = Identify([]byte{0x01}, "blob.bin")
	assert.ErrorIs(t, err, probe.ErrNotImplemented)
}

func TestDecodeEncode(t *testing.T) {
	buf := soundFile(22050)
	v, err := Decode(buf, "horn.snd", nil)
	require.NoError(t, err)
	assert.Equal(t, len(buf), v.Size())

	out, err := Encode(v, nil)
	require.NoError(t, err)
	assert.Equal(t, buf, out)

	v, err = DecodeAs(probe.Sound, buf, "horn.snd", nil)
	require.NoError(t, err)
	rate, _ := v.Get("rate")
	n, _ := rate.Int()
	assert.EqualValues(t, 22050, n)

	_, err = DecodeAs(probe.Mesh, buf, "horn.snd", nil)
	assert.Error(t, err)
}

func TestCacheSharesLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "horn.snd")
	writeFile(t, path, soundFile(22050))
	c := NewCache(nil)

	var wg sync.WaitGroup
	values := make([]any, 8)
	for i := range values {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.Load(path)
			assert.NoError(t, err)
			values[i] = v
		}(i)
	}
	wg.Wait()
	for _, v := range values[1:] {
		assert.Same(t, values[0], v)
	}
	assert.Equal(t, 1, c.Len())

	_, ok := c.Digest(path)
	assert.True(t, ok)
	c.Invalidate(path)
	assert.Equal(t, 0, c.Len())
	_, ok = c.Digest(path)
	assert.False(t, ok)
}

func TestCacheSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "horn.snd")
	writeFile(t, path, soundFile(22050))
	c := NewCache(nil)

	v, err := c.Load(path)
	require.NoError(t, err)
	before, _ := c.Digest(path)

	// Saving unedited data leaves the entry alone.
	require.NoError(t, c.Save(path, v))
	assert.Equal(t, 1, c.Len())

	rate, _ := v.Get("rate")
	rate.Set(int64(44100))
	require.NoError(t, c.Save(path, v))
	assert.Equal(t, 0, c.Len())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, soundFile(44100), data)
	assert.EqualValues(t, 44100, rateOf(t, c, path))

	after, _ := c.Digest(path)
	assert.NotEqual(t, before, after)

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(path), "resfile_*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestCacheSaveDuringLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "horn.snd")
	writeFile(t, path, soundFile(22050))
	c := NewCache(nil)
	key := c.key(path)

	// A load reads the old bytes, then a save lands before it is stored.
	gen := c.generation(key)
	old, err := c.read(path)
	require.NoError(t, err)

	v, err := Decode(soundFile(44100), path, nil)
	require.NoError(t, err)
	require.NoError(t, c.Save(path, v))

	assert.False(t, c.store(key, gen, old))
	assert.Equal(t, 0, c.Len())
	assert.EqualValues(t, 44100, rateOf(t, c, path))
}

func TestCacheSearchPath(t *testing.T) {
	base, mod := t.TempDir(), t.TempDir()
	writeFile(t, filepath.Join(base, "sounds", "horn.snd"), soundFile(22050))
	writeFile(t, filepath.Join(base, "sounds", "skid.snd"), soundFile(11025))
	writeFile(t, filepath.Join(mod, "Sounds", "Horn.snd"), soundFile(44100))

	c := NewCache(nil, WithSearchPath(base, mod))
	assert.EqualValues(t, 44100, rateOf(t, c, `sounds\horn.snd`))
	assert.EqualValues(t, 11025, rateOf(t, c, "sounds/skid.snd"))

	// The same name with other spelling hits the cached entry.
	assert.EqualValues(t, 44100, rateOf(t, c, "SOUNDS/HORN.SND"))
	assert.Equal(t, 2, c.Len())

	_, err := c.Load("sounds/none.snd")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCacheSaveGoesToTopDirectory(t *testing.T) {
	base, mod := t.TempDir(), t.TempDir()
	writeFile(t, filepath.Join(base, "sounds", "skid.snd"), soundFile(11025))
	writeFile(t, filepath.Join(mod, "Sounds", "Horn.snd"), soundFile(44100))
	c := NewCache(nil, WithSearchPath(base, mod))

	v, err := c.Load("sounds/skid.snd")
	require.NoError(t, err)
	rate, _ := v.Get("rate")
	rate.Set(int64(8000))
	require.NoError(t, c.Save("sounds/skid.snd", v))

	data, err := os.ReadFile(filepath.Join(base, "sounds", "skid.snd"))
	require.NoError(t, err)
	assert.Equal(t, soundFile(11025), data)
	assert.EqualValues(t, 8000, rateOf(t, c, "sounds/skid.snd"))

	// An existing file in the top directory keeps its spelling.
	v, err = c.Load("sounds/horn.snd")
	require.NoError(t, err)
	rate, _ = v.Get("rate")
	rate.Set(int64(48000))
	require.NoError(t, c.Save("sounds/horn.snd", v))
	data, err = os.ReadFile(filepath.Join(mod, "Sounds", "Horn.snd"))
	require.NoError(t, err)
	assert.Equal(t, soundFile(48000), data)
}
