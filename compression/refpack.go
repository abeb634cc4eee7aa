// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package compression

import (
	"fmt"
)

// decodeRefPack replays a RefPack control stream. Each control code copies
// up to three literals from the stream and then a back-reference; long
// literal runs and the stop code carry literals only.
func decodeRefPack(src []byte, size int) ([]byte, error) {
	out := make([]byte, 0, min(size, 1<<20))
	i := 0
	for i < len(src) {
		before := len(out)
		b0 := int(src[i])
		var lit, n, off int
		stop := false
		switch {
		case b0 < 0x80:
			if i+2 > len(src) {
				return nil, fmt.Errorf("%w: truncated control code at %d", ErrCorrupt, i)
			}
			b1 := int(src[i+1])
			lit = b0 & 0x03
			n = (b0>>2)&0x07 + 3
			off = (b0&0x60)<<3 + b1 + 1
			i += 2
		case b0 < 0xC0:
			if i+3 > len(src) {
				return nil, fmt.Errorf("%w: truncated control code at %d", ErrCorrupt, i)
			}
			b1, b2 := int(src[i+1]), int(src[i+2])
			lit = b1 >> 6 & 0x03
			n = b0&0x3F + 4
			off = (b1&0x3F)<<8 + b2 + 1
			i += 3
		case b0 < 0xE0:
			if i+4 > len(src) {
				return nil, fmt.Errorf("%w: truncated control code at %d", ErrCorrupt, i)
			}
			b1, b2, b3 := int(src[i+1]), int(src[i+2]), int(src[i+3])
			lit = b0 & 0x03
			n = (b0&0x0C)<<6 + b3 + 5
			off = (b0&0x10)<<12 + b1<<8 + b2 + 1
			i += 4
		case b0 < 0xFC:
			lit = (b0&0x1F + 1) * 4
			i++
		default:
			lit = b0 & 0x03
			stop = true
			i++
		}

		lit = min(lit, len(src)-i, size-len(out))
		out = append(out, src[i:i+lit]...)
		i += lit

		if n > 0 {
			if off > len(out) {
				return nil, fmt.Errorf("%w: back-reference %d before start of output %d", ErrCorrupt, off, len(out))
			}
			n = min(n, size-len(out))
			from := len(out) - off
			for k := 0; k < n; k++ {
				out = append(out, out[from+k])
			}
		}
		if stop {
			break
		}
		if len(out) == before {
			return nil, fmt.Errorf("%w: no forward progress at %d", ErrCorrupt, i)
		}
	}
	return out, nil
}

const (
	refpackWindow   = 131072
	refpackMaxMatch = 1028
	refpackMaxRun   = 112
	refpackHashBits = 16
)

// encodeRefPack is a greedy single-candidate matcher. It favours the
// shortest control code that fits each match.
func encodeRefPack(src []byte) []byte {
	out := make([]byte, 0, len(src)+len(src)/refpackMaxRun+4)
	var head [1 << refpackHashBits]int32
	for i := range head {
		head[i] = -1
	}
	hash := func(p int) uint32 {
		v := uint32(src[p])<<16 | uint32(src[p+1])<<8 | uint32(src[p+2])
		return (v * 2654435761) >> (32 - refpackHashBits)
	}

	anchor := 0
	flush := func(upto int) {
		for upto-anchor >= 4 {
			run := min((upto-anchor)&^3, refpackMaxRun)
			out = append(out, byte(0xE0+run/4-1))
			out = append(out, src[anchor:anchor+run]...)
			anchor += run
		}
	}

	p := 0
	for p+3 <= len(src) {
		h := hash(p)
		cand := int(head[h])
		head[h] = int32(p)
		if cand < 0 || p-cand > refpackWindow {
			p++
			continue
		}
		n := 0
		for p+n < len(src) && n < refpackMaxMatch && src[cand+n] == src[p+n] {
			n++
		}
		off := p - cand
		if !refpackFits(n, off) {
			p++
			continue
		}

		flush(p)
		lit := p - anchor
		o := off - 1
		switch {
		case n <= 10 && off <= 1024:
			out = append(out, byte(o>>3&0x60|(n-3)<<2|lit), byte(o))
		case n <= 67 && off <= 16384:
			out = append(out, byte(0x80|(n-4)), byte(lit<<6|o>>8), byte(o))
		default:
			out = append(out, byte(0xC0|(o>>16)<<4|((n-5)>>8)<<2|lit), byte(o>>8), byte(o), byte(n-5))
		}
		out = append(out, src[anchor:p]...)
		p += n
		anchor = p
	}

	flush(len(src))
	tail := len(src) - anchor
	out = append(out, byte(0xFC|tail))
	return append(out, src[anchor:]...)
}

func refpackFits(n, off int) bool {
	switch {
	case n >= 3 && n <= 10 && off <= 1024:
		return true
	case n >= 4 && n <= 67 && off <= 16384:
		return true
	case n >= 5 && off <= refpackWindow:
		return true
	}
	return false
}
