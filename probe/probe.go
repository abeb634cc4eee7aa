// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

// Package probe classifies resource bytes by signature.
package probe

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrNotImplemented reports bytes that match no known signature.
var ErrNotImplemented = errors.New("resource type not implemented")

// Type is a concrete resource type.
type Type uint8

const (
	Unknown Type = iota
	SHPI
	WWWW
	BNKL
	Sound
	RefPack
	BTree
	Huffman
	Mesh
	TrackMap
	Bitmap8
	Bitmap4
	Bitmap565
	Bitmap1555
	Bitmap4444
	Bitmap888
	Bitmap8888
	Palette
	Name
	Text
)

var typeNames = [...]string{
	Unknown:    "unknown",
	SHPI:       "shpi",
	WWWW:       "wwww",
	BNKL:       "bnkl",
	Sound:      "sound",
	RefPack:    "refpack",
	BTree:      "btree",
	Huffman:    "huffman",
	Mesh:       "mesh",
	TrackMap:   "trackmap",
	Bitmap8:    "bitmap8",
	Bitmap4:    "bitmap4",
	Bitmap565:  "bitmap565",
	Bitmap1555: "bitmap1555",
	Bitmap4444: "bitmap4444",
	Bitmap888:  "bitmap888",
	Bitmap8888: "bitmap8888",
	Palette:    "palette",
	Name:       "name",
	Text:       "text",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// Parse returns the type with the given name.
func Parse(name string) (Type, error) {
	for i, n := range typeNames {
		if n == strings.ToLower(name) {
			return Type(i), nil
		}
	}
	return Unknown, fmt.Errorf("parse type %q: %w", name, ErrNotImplemented)
}

// Types lists every known type except Unknown.
func Types() []Type {
	out := make([]Type, 0, len(typeNames)-1)
	for i := 1; i < len(typeNames); i++ {
		out = append(out, Type(i))
	}
	return out
}

// Compressed reports whether t is a compressed stream.
func (t Type) Compressed() bool { return t == RefPack || t == BTree || t == Huffman }

// Container reports whether t is an archive container.
func (t Type) Container() bool { return t == SHPI || t == WWWW || t == BNKL }

// Record reports whether t is an archive entry record.
func (t Type) Record() bool { return t >= Bitmap8 && t <= Text }

// suffixes are consulted first: these formats carry no signature.
var suffixes = map[string]Type{
	".msh": Mesh,
	".map": TrackMap,
}

type signature struct {
	mask  []byte
	value []byte
	typ   Type
}

func exact(s string, t Type) signature {
	mask := make([]byte, len(s))
	for i := range mask {
		mask[i] = 0xFF
	}
	return signature{mask: mask, value: []byte(s), typ: t}
}

// signatures is ordered: 4-byte magics, masked 2-byte codec ids ignoring
// the size flag bits, then single leading record codes.
var signatures = []signature{
	exact("SHPI", SHPI),
	exact("wwww", WWWW),
	exact("BNKl", BNKL),
	exact("PT\x00\x00", Sound),

	{mask: []byte{0x7E, 0xFF}, value: []byte{0x10, 0xFB}, typ: RefPack},
	{mask: []byte{0x7E, 0xFF}, value: []byte{0x46, 0xFB}, typ: BTree},
	{mask: []byte{0x7E, 0xFF}, value: []byte{0x30, 0xFB}, typ: Huffman},
	{mask: []byte{0x7E, 0xFF}, value: []byte{0x32, 0xFB}, typ: Huffman},
	{mask: []byte{0x7E, 0xFF}, value: []byte{0x34, 0xFB}, typ: Huffman},

	exact("\x7B", Bitmap8),
	exact("\x7A", Bitmap4),
	exact("\x78", Bitmap565),
	exact("\x7E", Bitmap1555),
	exact("\x6D", Bitmap4444),
	exact("\x7F", Bitmap888),
	exact("\x7D", Bitmap8888),
	exact("\x22", Palette),
	exact("\x24", Palette),
	exact("\x2A", Palette),
	exact("\x2D", Palette),
	exact("\x70", Name),
	exact("\x6F", Text),
}

func (s signature) match(head []byte) bool {
	if len(head) < len(s.value) {
		return false
	}
	for i, v := range s.value {
		if head[i]&s.mask[i] != v {
			return false
		}
	}
	return true
}

// Probe classifies a resource from its leading bytes and, for formats
// without a signature, the suffix of its file name. When restrict is not
// empty only those types are considered.
func Probe(head []byte, name string, restrict ...Type) (Type, error) {
	allowed := func(t Type) bool {
		if len(restrict) == 0 {
			return true
		}
		for _, r := range restrict {
			if r == t {
				return true
			}
		}
		return false
	}
	if t, ok := suffixes[strings.ToLower(path.Ext(name))]; ok && allowed(t) {
		return t, nil
	}
	for _, s := range signatures {
		if s.match(head) && allowed(s.typ) {
			return s.typ, nil
		}
	}
	return Unknown, fmt.Errorf("probe % X: %w", head[:min(len(head), 4)], ErrNotImplemented)
}
