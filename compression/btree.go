// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package compression

import (
	"fmt"
)

const btreeMaxDepth = 256

// btreeTable maps node bytes to the pair they expand to.
type btreeTable struct {
	isNode [256]bool
	left   [256]byte
	right  [256]byte
}

// decodeBTree reads the clue byte and node table, then replays the token
// stream. The clue escapes the following byte as a literal; node bytes
// expand recursively to their pair; every other byte is itself.
func decodeBTree(src []byte, size int) ([]byte, error) {
	if len(src) < 2 {
		return nil, fmt.Errorf("%w: truncated node table", ErrCorrupt)
	}
	clue := src[0]
	count := int(src[1])
	i := 2
	if len(src) < i+3*count {
		return nil, fmt.Errorf("%w: truncated node table", ErrCorrupt)
	}
	var t btreeTable
	for k := 0; k < count; k++ {
		node := src[i]
		t.isNode[node] = true
		t.left[node] = src[i+1]
		t.right[node] = src[i+2]
		i += 3
	}

	out := make([]byte, 0, min(size, 1<<20))
	var expand func(b byte, depth int) error
	expand = func(b byte, depth int) error {
		if len(out) >= size {
			return fmt.Errorf("%w: output exceeds %d bytes", ErrCorrupt, size)
		}
		if !t.isNode[b] {
			out = append(out, b)
			return nil
		}
		if depth >= btreeMaxDepth {
			return fmt.Errorf("%w: node 0x%02X nests deeper than %d", ErrCorrupt, b, btreeMaxDepth)
		}
		if err := expand(t.left[b], depth+1); err != nil {
			return err
		}
		return expand(t.right[b], depth+1)
	}

	for i < len(src) {
		b := src[i]
		i++
		if b == clue {
			if i >= len(src) {
				return nil, fmt.Errorf("%w: escape at end of stream", ErrCorrupt)
			}
			if len(out) >= size {
				return nil, fmt.Errorf("%w: output exceeds %d bytes", ErrCorrupt, size)
			}
			out = append(out, src[i])
			i++
			continue
		}
		if err := expand(b, 0); err != nil {
			return nil, err
		}
	}
	return out, nil
}

const btreeMinPairs = 3

// encodeBTree substitutes the most frequent byte pair with an unused byte
// value until no pair repeats often enough or no byte value is free.
func encodeBTree(src []byte) []byte {
	var used [256]bool
	for _, b := range src {
		used[b] = true
	}
	var free []byte
	for v := 255; v >= 0; v-- {
		if !used[v] {
			free = append(free, byte(v))
		}
	}
	clue := byte(0)
	if len(free) > 0 {
		clue, free = free[0], free[1:]
	}

	data := append([]byte(nil), src...)
	var nodes [][3]byte
	counts := make([]int, 1<<16)
	for len(free) > 0 {
		clear(counts)
		best, bestN := 0, 0
		for k := 0; k+1 < len(data); k++ {
			pair := int(data[k])<<8 | int(data[k+1])
			counts[pair]++
			if counts[pair] > bestN {
				best, bestN = pair, counts[pair]
			}
		}
		if bestN < btreeMinPairs {
			break
		}
		node := free[0]
		free = free[1:]
		a, b := byte(best>>8), byte(best)
		nodes = append(nodes, [3]byte{node, a, b})

		w := 0
		for k := 0; k < len(data); {
			if k+1 < len(data) && data[k] == a && data[k+1] == b {
				data[w] = node
				k += 2
			} else {
				data[w] = data[k]
				k++
			}
			w++
		}
		data = data[:w]
	}

	out := make([]byte, 0, 2+3*len(nodes)+len(data)+len(data)/8)
	out = append(out, clue, byte(len(nodes)))
	for _, n := range nodes {
		out = append(out, n[0], n[1], n[2])
	}
	for _, b := range data {
		if b == clue {
			out = append(out, clue)
		}
		out = append(out, b)
	}
	return out
}
