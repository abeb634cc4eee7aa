// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package block

var crc32Table = func() [256]uint32 {
	var table [256]uint32
	const poly = 0xEDB88320
	for i := range table {
		crc := uint32(i)
		for j := 0; j < 8; j++ {
			if crc&1 == 1 {
				crc = crc>>1 ^ poly
			} else {
				crc >>= 1
			}
		}
		table[i] = crc
	}
	return table
}()

// CRC32 is the reflected IEEE CRC-32 used by checksum trailers.
func CRC32(data []byte) uint32 {
	crc := uint32(0xFFFFFFFF)
	for _, v := range data {
		crc = crc32Table[byte(crc)^v] ^ crc>>8
	}
	return ^crc
}

// Checksum is a computed field over the bytes a compound has encoded so far:
// from the compound's start to the cursor. On decode it verifies the stored
// value against the bytes read.
func Checksum(sum func([]byte) uint32) func(c *Context) (any, error) {
	return func(c *Context) (any, error) {
		parent := c.Parent()
		if parent == nil {
			return nil, c.Errorf(ErrBlockDefinition, "checksum outside a compound")
		}
		return int64(sum(c.Slice(parent.Start(), c.Start()))), nil
	}
}
