// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package compression

import (
	"container/heap"
	"fmt"
	"sort"
)

// Huffman stream layout, after the header, as big-endian 16-bit words read
// most significant bit first:
//
//	5 bits    longest code length L
//	L x 9     number of codes of each length 1..L
//	n x 9     symbols in canonical order
//	...       codes until the declared size is produced
//
// Symbols 0..255 are literals. Symbol 256+k copies a back-reference: the
// length is k+3 for k < 14, 17 plus 4 extra bits for k = 14, and 33 plus 8
// extra bits for k = 15. The offset follows as a 4-bit width w and w bits
// v, giving 1<<w + v.
const (
	huffmanSymbols   = 256 + 16
	huffmanMaxLen    = 16
	huffmanLenBits   = 5
	huffmanCountBits = 9
	huffmanSymBits   = 9
)

// bitReader is a 32-bit accumulator refilled 16 bits at a time. Bits sit at
// the top of acc.
type bitReader struct {
	src  []byte
	pos  int
	acc  uint32
	n    uint
	used int
}

func (r *bitReader) refill() {
	for r.n <= 16 {
		var w uint32
		if r.pos < len(r.src) {
			w = uint32(r.src[r.pos]) << 8
		}
		if r.pos+1 < len(r.src) {
			w |= uint32(r.src[r.pos+1])
		}
		r.pos += 2
		r.acc |= w << (16 - r.n)
		r.n += 16
	}
}

func (r *bitReader) read(k uint) (uint32, error) {
	if k == 0 {
		return 0, nil
	}
	r.used += int(k)
	if r.used > 8*len(r.src) {
		return 0, fmt.Errorf("%w: bit stream overrun", ErrCorrupt)
	}
	r.refill()
	v := r.acc >> (32 - k)
	r.acc <<= k
	r.n -= k
	return v, nil
}

// huffmanDecoder holds the canonical code tables of one stream.
type huffmanDecoder struct {
	maxLen  int
	count   [huffmanMaxLen + 1]int
	first   [huffmanMaxLen + 1]int
	index   [huffmanMaxLen + 1]int
	symbols []int
}

func (d *huffmanDecoder) readTable(r *bitReader) error {
	l, err := r.read(huffmanLenBits)
	if err != nil {
		return err
	}
	if l > huffmanMaxLen {
		return fmt.Errorf("%w: code length %d", ErrCorrupt, l)
	}
	d.maxLen = int(l)
	total := 0
	for n := 1; n <= d.maxLen; n++ {
		c, err := r.read(huffmanCountBits)
		if err != nil {
			return err
		}
		d.count[n] = int(c)
		total += int(c)
	}
	if total > huffmanSymbols {
		return fmt.Errorf("%w: %d symbols", ErrCorrupt, total)
	}
	d.symbols = make([]int, total)
	for i := range d.symbols {
		s, err := r.read(huffmanSymBits)
		if err != nil {
			return err
		}
		if s >= huffmanSymbols {
			return fmt.Errorf("%w: symbol %d", ErrCorrupt, s)
		}
		d.symbols[i] = int(s)
	}
	code, idx := 0, 0
	for n := 1; n <= d.maxLen; n++ {
		d.first[n] = code
		d.index[n] = idx
		code = (code + d.count[n]) << 1
		idx += d.count[n]
	}
	return nil
}

func (d *huffmanDecoder) symbol(r *bitReader) (int, error) {
	code := 0
	for n := 1; n <= d.maxLen; n++ {
		b, err := r.read(1)
		if err != nil {
			return 0, err
		}
		code = code<<1 | int(b)
		if k := code - d.first[n]; k >= 0 && k < d.count[n] {
			return d.symbols[d.index[n]+k], nil
		}
	}
	return 0, fmt.Errorf("%w: invalid code", ErrCorrupt)
}

func (d *huffmanDecoder) matchLength(r *bitReader, k int) (int, error) {
	switch {
	case k < 14:
		return k + 3, nil
	case k == 14:
		x, err := r.read(4)
		return 17 + int(x), err
	default:
		x, err := r.read(8)
		return 33 + int(x), err
	}
}

func decodeHuffman(src []byte, size int) ([]byte, error) {
	r := &bitReader{src: src}
	var d huffmanDecoder
	if err := d.readTable(r); err != nil {
		return nil, err
	}
	out := make([]byte, 0, min(size, 1<<20))
	for len(out) < size {
		s, err := d.symbol(r)
		if err != nil {
			return nil, err
		}
		if s < 256 {
			out = append(out, byte(s))
			continue
		}
		n, err := d.matchLength(r, s-256)
		if err != nil {
			return nil, err
		}
		w, err := r.read(4)
		if err != nil {
			return nil, err
		}
		v, err := r.read(uint(w))
		if err != nil {
			return nil, err
		}
		off := 1<<w + int(v)
		if off > len(out) {
			return nil, fmt.Errorf("%w: back-reference %d before start of output %d", ErrCorrupt, off, len(out))
		}
		n = min(n, size-len(out))
		from := len(out) - off
		for k := 0; k < n; k++ {
			out = append(out, out[from+k])
		}
	}
	return out, nil
}

// undelta replaces p with its running sum, passes times.
func undelta(p []byte, passes int) {
	for ; passes > 0; passes-- {
		var sum byte
		for i, b := range p {
			sum += b
			p[i] = sum
		}
	}
}

type bitWriter struct {
	out []byte
	acc uint64
	n   uint
}

func (w *bitWriter) write(v uint32, k uint) {
	w.acc = w.acc<<k | uint64(v)&(1<<k-1)
	w.n += k
	for w.n >= 8 {
		w.n -= 8
		w.out = append(w.out, byte(w.acc>>w.n))
	}
}

// bytes flushes to a whole number of 16-bit words.
func (w *bitWriter) bytes() []byte {
	if w.n > 0 {
		w.out = append(w.out, byte(w.acc<<(8-w.n)))
		w.n = 0
	}
	if len(w.out)%2 != 0 {
		w.out = append(w.out, 0)
	}
	return w.out
}

type huffNode struct {
	freq  int
	sym   int
	left  *huffNode
	right *huffNode
}

type huffHeap []*huffNode

func (h huffHeap) Len() int { return len(h) }
func (h huffHeap) Less(i, j int) bool {
	if h[i].freq != h[j].freq {
		return h[i].freq < h[j].freq
	}
	return h[i].sym < h[j].sym
}
func (h huffHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *huffHeap) Push(x any)   { *h = append(*h, x.(*huffNode)) }
func (h *huffHeap) Pop() any {
	old := *h
	n := old[len(old)-1]
	*h = old[:len(old)-1]
	return n
}

// codeLengths builds Huffman code lengths, halving the frequencies until
// no code is longer than huffmanMaxLen.
func codeLengths(freq []int) []int {
	f := append([]int(nil), freq...)
	for {
		lens := make([]int, len(f))
		h := &huffHeap{}
		for s, n := range f {
			if n > 0 {
				*h = append(*h, &huffNode{freq: n, sym: s})
			}
		}
		switch h.Len() {
		case 0:
			return lens
		case 1:
			lens[(*h)[0].sym] = 1
			return lens
		}
		heap.Init(h)
		next := len(f)
		for h.Len() > 1 {
			a := heap.Pop(h).(*huffNode)
			b := heap.Pop(h).(*huffNode)
			heap.Push(h, &huffNode{freq: a.freq + b.freq, sym: next, left: a, right: b})
			next++
		}
		longest := 0
		var walk func(n *huffNode, depth int)
		walk = func(n *huffNode, depth int) {
			if n.left == nil {
				lens[n.sym] = depth
				longest = max(longest, depth)
				return
			}
			walk(n.left, depth+1)
			walk(n.right, depth+1)
		}
		walk(heap.Pop(h).(*huffNode), 0)
		if longest <= huffmanMaxLen {
			return lens
		}
		for s := range f {
			if f[s] > 0 {
				f[s] = (f[s] + 1) / 2
			}
		}
	}
}

// encodeHuffman writes a literal-only canonical Huffman stream.
func encodeHuffman(src []byte) ([]byte, error) {
	freq := make([]int, 256)
	for _, b := range src {
		freq[b]++
	}
	lens := codeLengths(freq)

	type entry struct{ sym, n int }
	var order []entry
	maxLen := 0
	for s, n := range lens {
		if n > 0 {
			order = append(order, entry{s, n})
			maxLen = max(maxLen, n)
		}
	}
	if maxLen > huffmanMaxLen {
		return nil, fmt.Errorf("code length %d exceeds %d", maxLen, huffmanMaxLen)
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].n != order[j].n {
			return order[i].n < order[j].n
		}
		return order[i].sym < order[j].sym
	})

	w := &bitWriter{}
	w.write(uint32(maxLen), huffmanLenBits)
	var count [huffmanMaxLen + 1]int
	for _, e := range order {
		count[e.n]++
	}
	for n := 1; n <= maxLen; n++ {
		w.write(uint32(count[n]), huffmanCountBits)
	}
	for _, e := range order {
		w.write(uint32(e.sym), huffmanSymBits)
	}

	codes := make([]uint32, 256)
	code, prev := 0, 0
	for i, e := range order {
		if i > 0 {
			code++
		}
		code <<= e.n - prev
		prev = e.n
		codes[e.sym] = uint32(code)
	}
	for _, b := range src {
		w.write(codes[b], uint(lens[b]))
	}
	return w.bytes(), nil
}
