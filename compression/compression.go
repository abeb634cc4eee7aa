// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

// Package compression implements the three stream codecs found in the
// resource files: RefPack (LZ77 control codes), BTree (byte pair
// dictionary) and Huffman (canonical, bit-packed).
//
// Every stream starts with a two byte id, b0 and 0xFB, followed by big-endian
// sizes. Bit 0x80 of b0 selects 4-byte sizes instead of 3-byte ones; bit 0x01
// says a compressed size precedes the decompressed size. The remaining bits
// of b0 select the method.
package compression

import (
	"errors"
	"fmt"
)

var (
	// ErrCorrupt reports a stream that cannot be decoded, including one
	// whose output length disagrees with its header.
	ErrCorrupt = errors.New("corrupt compressed stream")

	// ErrUnknownMethod reports an id that names no supported codec.
	ErrUnknownMethod = errors.New("unknown compression method")
)

// Method is a codec family.
type Method uint8

const (
	RefPack Method = iota + 1
	BTree
	Huffman
)

func (m Method) String() string {
	switch m {
	case RefPack:
		return "refpack"
	case BTree:
		return "btree"
	case Huffman:
		return "huffman"
	}
	return fmt.Sprintf("method(%d)", uint8(m))
}

// Method ids with the size flags masked out. The Huffman family has two
// more ids whose output is stored as byte deltas, one or two passes deep.
const (
	idRefPack       = 0x10
	idBTree         = 0x46
	idHuffman       = 0x30
	idHuffmanDelta  = 0x32
	idHuffmanDelta2 = 0x34
	idMarker        = 0xFB

	flagLargeSizes     = 0x80
	flagCompressedSize = 0x01
	methodMask         = 0x7E
)

// Identify reports the method of a stream from its first two bytes.
func Identify(p []byte) (Method, bool) {
	if len(p) < 2 || p[1] != idMarker {
		return 0, false
	}
	switch p[0] & methodMask {
	case idRefPack:
		return RefPack, true
	case idBTree:
		return BTree, true
	case idHuffman, idHuffmanDelta, idHuffmanDelta2:
		return Huffman, true
	}
	return 0, false
}

// Header is the parsed stream prefix.
type Header struct {
	Method Method
	ID     byte

	// Size is the decompressed length.
	Size int

	// CompressedSize is -1 when the stream does not carry it.
	CompressedSize int

	// Len is the number of header bytes.
	Len int

	// Delta is the number of running-sum passes applied after decoding.
	Delta int
}

// ParseHeader parses the stream prefix.
func ParseHeader(p []byte) (Header, error) {
	m, ok := Identify(p)
	if !ok {
		if len(p) < 2 {
			return Header{}, fmt.Errorf("%w: %d byte stream", ErrCorrupt, len(p))
		}
		return Header{}, fmt.Errorf("%w: id %02X %02X", ErrUnknownMethod, p[0], p[1])
	}
	h := Header{Method: m, ID: p[0], CompressedSize: -1, Len: 2}
	if m == Huffman {
		h.Delta = int(p[0]&methodMask-idHuffman) / 2
	}
	width := 3
	if p[0]&flagLargeSizes != 0 {
		width = 4
	}
	readSize := func() (int, error) {
		if len(p) < h.Len+width {
			return 0, fmt.Errorf("%w: truncated header", ErrCorrupt)
		}
		n := 0
		for _, b := range p[h.Len : h.Len+width] {
			n = n<<8 | int(b)
		}
		h.Len += width
		return n, nil
	}
	if p[0]&flagCompressedSize != 0 {
		n, err := readSize()
		if err != nil {
			return Header{}, err
		}
		h.CompressedSize = n
	}
	n, err := readSize()
	if err != nil {
		return Header{}, err
	}
	h.Size = n
	return h, nil
}

// Append writes the header to dst.
func (h Header) Append(dst []byte) []byte {
	width := 3
	if h.ID&flagLargeSizes != 0 {
		width = 4
	}
	put := func(n int) {
		for i := width - 1; i >= 0; i-- {
			dst = append(dst, byte(n>>(8*i)))
		}
	}
	dst = append(dst, h.ID, idMarker)
	if h.ID&flagCompressedSize != 0 {
		put(h.CompressedSize)
	}
	put(h.Size)
	return dst
}

func newHeader(m Method, size int) Header {
	var id byte
	switch m {
	case RefPack:
		id = idRefPack
	case BTree:
		id = idBTree
	case Huffman:
		id = idHuffman
	}
	if size > 0xFFFFFF {
		id |= flagLargeSizes
	}
	return Header{Method: m, ID: id, Size: size, CompressedSize: -1}
}

// Decompress decodes a complete stream, header included.
func Decompress(p []byte) ([]byte, error) {
	h, err := ParseHeader(p)
	if err != nil {
		return nil, err
	}
	body := p[h.Len:]
	var out []byte
	switch h.Method {
	case RefPack:
		out, err = decodeRefPack(body, h.Size)
	case BTree:
		out, err = decodeBTree(body, h.Size)
	case Huffman:
		if out, err = decodeHuffman(body, h.Size); err == nil {
			undelta(out, h.Delta)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%s decompress: %w", h.Method, err)
	}
	if len(out) != h.Size {
		return nil, fmt.Errorf("%w: %s produced %d bytes, header says %d", ErrCorrupt, h.Method, len(out), h.Size)
	}
	return out, nil
}

// Compress encodes plain with method m, header included.
func Compress(m Method, plain []byte) ([]byte, error) {
	var body []byte
	switch m {
	case RefPack:
		body = encodeRefPack(plain)
	case BTree:
		body = encodeBTree(plain)
	case Huffman:
		var err error
		if body, err = encodeHuffman(plain); err != nil {
			return nil, fmt.Errorf("huffman compress: %w", err)
		}
	default:
		return nil, fmt.Errorf("compress: %w: %s", ErrUnknownMethod, m)
	}
	out := newHeader(m, len(plain)).Append(make([]byte, 0, len(body)+10))
	return append(out, body...), nil
}

// Codec adapts the package to a stored/plain transform. Unwrap accepts
// any method; Wrap compresses with Method, RefPack when unset.
type Codec struct {
	Method Method
}

func (c Codec) Name() string {
	if c.Method == 0 {
		return "compressed"
	}
	return c.Method.String()
}

func (c Codec) Unwrap(stored []byte) ([]byte, error) { return Decompress(stored) }

func (c Codec) Wrap(plain []byte) ([]byte, error) {
	m := c.Method
	if m == 0 {
		m = RefPack
	}
	return Compress(m, plain)
}
