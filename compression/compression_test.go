// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package compression

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samples() map[string][]byte {
	rng := rand.New(rand.NewSource(1))
	random := make([]byte, 5000)
	rng.Read(random)

	text := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog. "), 200)

	var bitmap []byte
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			bitmap = append(bitmap, byte((x/8+y/8)%4))
		}
	}
	all := make([]byte, 512)
	for i := range all {
		all[i] = byte(i)
	}
	return map[string][]byte{
		"empty":      {},
		"one byte":   {0x42},
		"three":      {1, 2, 3},
		"text":       text,
		"bitmap":     bitmap,
		"random":     random,
		"all values": all,
		"zeros":      make([]byte, 70000),
	}
}

func TestRoundTrip(t *testing.T) {
	for _, m := range []Method{RefPack, BTree, Huffman} {
		for name, plain := range samples() {
			t.Run(m.String()+"/"+name, func(t *testing.T) {
				packed, err := Compress(m, plain)
				require.NoError(t, err)

				got, ok := Identify(packed)
				require.True(t, ok)
				assert.Equal(t, m, got)

				out, err := Decompress(packed)
				require.NoError(t, err)
				assert.Equal(t, len(plain), len(out))
				assert.True(t, bytes.Equal(plain, out))
			})
		}
	}
}

func TestCompressionShrinksRedundantData(t *testing.T) {
	text := samples()["text"]
	for _, m := range []Method{RefPack, BTree, Huffman} {
		packed, err := Compress(m, text)
		require.NoError(t, err)
		assert.Less(t, len(packed), len(text), m.String())
	}
}

func TestHeader(t *testing.T) {
	cases := []struct {
		name string
		in   []byte
		want Header
	}{
		{"refpack 3-byte", []byte{0x10, 0xFB, 0x00, 0x01, 0x00}, Header{Method: RefPack, ID: 0x10, Size: 256, CompressedSize: -1, Len: 5}},
		{"refpack compressed size", []byte{0x11, 0xFB, 0x00, 0x00, 0x09, 0x00, 0x00, 0x20}, Header{Method: RefPack, ID: 0x11, Size: 32, CompressedSize: 9, Len: 8}},
		{"refpack 4-byte", []byte{0x90, 0xFB, 0x01, 0x00, 0x00, 0x00}, Header{Method: RefPack, ID: 0x90, Size: 1 << 24, CompressedSize: -1, Len: 6}},
		{"btree", []byte{0x46, 0xFB, 0x00, 0x00, 0x04}, Header{Method: BTree, ID: 0x46, Size: 4, CompressedSize: -1, Len: 5}},
		{"huffman", []byte{0x30, 0xFB, 0x00, 0x00, 0x04}, Header{Method: Huffman, ID: 0x30, Size: 4, CompressedSize: -1, Len: 5}},
		{"huffman delta", []byte{0x32, 0xFB, 0x00, 0x00, 0x04}, Header{Method: Huffman, ID: 0x32, Size: 4, CompressedSize: -1, Len: 5, Delta: 1}},
		{"huffman double delta", []byte{0x34, 0xFB, 0x00, 0x00, 0x04}, Header{Method: Huffman, ID: 0x34, Size: 4, CompressedSize: -1, Len: 5, Delta: 2}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, err := ParseHeader(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, h)
			assert.Equal(t, tc.in, h.Append(nil))
		})
	}

	_, err := ParseHeader([]byte{0x22, 0xFB, 0, 0, 0})
	assert.ErrorIs(t, err, ErrUnknownMethod)
	_, err = ParseHeader([]byte{0x10, 0xFB, 0})
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestRefPackZeroProgress(t *testing.T) {
	_, err := Decompress([]byte{0x10, 0xFB, 0, 0, 10, 0xE0})
	assert.ErrorIs(t, err, ErrCorrupt)
	assert.Contains(t, err.Error(), "no forward progress")
}

func TestRefPackControlCodes(t *testing.T) {
	// A literal run, then each back-reference code shape, then the stop
	// code carrying one literal.
	stream := []byte{
		0xE0, 'a', 'b', 'c', 'd', // literal run of 4
		0x04, 0x01, // 2-byte: len 4, off 2
		0x80, 0x00, 0x07, // 3-byte: len 4, off 8
		0xC0, 0x00, 0x0B, 0x00, // 4-byte: len 5, off 12
		0xFD, 'z', // stop, one literal
	}
	src := append([]byte{0x10, 0xFB, 0, 0, 18}, stream...)
	out, err := Decompress(src)
	require.NoError(t, err)
	assert.Equal(t, "abcdcdcdabcdabcdcz", string(out))
}

func TestRefPackLengthMismatch(t *testing.T) {
	_, err := Decompress([]byte{0x10, 0xFB, 0, 0, 5, 0xFD, 'a'})
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestRefPackBadBackReference(t *testing.T) {
	_, err := Decompress([]byte{0x10, 0xFB, 0, 0, 5, 0x00, 0x05})
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestBTreeNodes(t *testing.T) {
	// clue 0xFF, node 0x80 -> "ab", node 0x81 -> 0x80 0x80.
	src := []byte{0x46, 0xFB, 0, 0, 6, 0xFF, 2, 0x80, 'a', 'b', 0x81, 0x80, 0x80, 0x81, 0xFF, 0x80, 'c'}
	out, err := Decompress(src)
	require.NoError(t, err)
	assert.Equal(t, []byte{'a', 'b', 'a', 'b', 0x80, 'c'}, out)
}

func TestBTreeRunawayRecursion(t *testing.T) {
	src := []byte{0x46, 0xFB, 0, 0x10, 0, 0x00, 1, 0x80, 0x80, 0x80, 0x80}
	_, err := Decompress(src)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestHuffmanBackReference(t *testing.T) {
	w := &bitWriter{}
	w.write(1, huffmanLenBits)
	w.write(2, huffmanCountBits)
	w.write('a', huffmanSymBits)
	w.write(256, huffmanSymBits)
	w.write(0, 1) // 'a'
	w.write(1, 1) // match, length 3
	w.write(0, 4) // offset width 0: offset 1
	src := append([]byte{0x30, 0xFB, 0, 0, 4}, w.bytes()...)

	out, err := Decompress(src)
	require.NoError(t, err)
	assert.Equal(t, "aaaa", string(out))
}

// deltas replaces p with the differences between neighbouring bytes.
func deltas(p []byte) []byte {
	out := make([]byte, len(p))
	var prev byte
	for i, b := range p {
		out[i] = b - prev
		prev = b
	}
	return out
}

func TestHuffmanDelta(t *testing.T) {
	plain := samples()["bitmap"]
	for id, passes := range map[byte]int{0x32: 1, 0x34: 2} {
		stored := plain
		for i := 0; i < passes; i++ {
			stored = deltas(stored)
		}
		packed, err := Compress(Huffman, stored)
		require.NoError(t, err)
		packed[0] = id

		m, ok := Identify(packed)
		require.True(t, ok)
		assert.Equal(t, Huffman, m)
		out, err := Decompress(packed)
		require.NoError(t, err)
		assert.Equal(t, plain, out, "id %02X", id)
	}
}

func TestHuffmanOverrun(t *testing.T) {
	packed, err := Compress(Huffman, []byte("hello, world"))
	require.NoError(t, err)
	packed[4] += 40
	_, err = Decompress(packed)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestCodeLengthsLimited(t *testing.T) {
	freq := make([]int, 256)
	a, b := 1, 1
	for i := 0; i < 40; i++ {
		freq[i] = a
		a, b = b, a+b
		if a > 1<<40 {
			break
		}
	}
	lens := codeLengths(freq)
	for s, n := range lens {
		assert.LessOrEqual(t, n, huffmanMaxLen, "symbol %d", s)
	}
}

func TestCodec(t *testing.T) {
	c := Codec{}
	assert.Equal(t, "compressed", c.Name())
	stored, err := c.Wrap([]byte("payload payload payload"))
	require.NoError(t, err)
	m, _ := Identify(stored)
	assert.Equal(t, RefPack, m)
	plain, err := c.Unwrap(stored)
	require.NoError(t, err)
	assert.Equal(t, "payload payload payload", string(plain))
}

func FuzzDecompress(f *testing.F) {
	for _, plain := range samples() {
		for _, m := range []Method{RefPack, BTree, Huffman} {
			packed, err := Compress(m, plain)
			if err == nil && len(packed) < 4096 {
				f.Add(packed)
			}
		}
	}
	f.Fuzz(func(t *testing.T, data []byte) {
		if h, err := ParseHeader(data); err != nil || h.Size > 1<<20 {
			return
		}
		out, err := Decompress(data)
		if err == nil {
			h, _ := ParseHeader(data)
			if len(out) != h.Size {
				t.Fatalf("decoded %d bytes, header says %d", len(out), h.Size)
			}
		}
	})
}
