// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package format

import (
	"errors"
	"fmt"
	"sync"

	"github.com/suprsokr/go-resfile/archive"
	"github.com/suprsokr/go-resfile/block"
	"github.com/suprsokr/go-resfile/compression"
	"github.com/suprsokr/go-resfile/probe"
)

// probeLen is how many leading bytes signatures inspect.
const probeLen = 8

var registry map[probe.Type]block.Block

// Any decodes a whole resource file of any known type, keeping
// unrecognised files as raw bytes.
var Any = &AutoDetect{Fallback: block.Rest()}

func init() {
	entries := &AutoDetect{
		Candidates: []probe.Type{
			probe.SHPI, probe.RefPack, probe.BTree, probe.Huffman,
			probe.Bitmap8, probe.Bitmap4, probe.Bitmap565, probe.Bitmap1555,
			probe.Bitmap4444, probe.Bitmap888, probe.Bitmap8888,
			probe.Palette, probe.Name, probe.Text,
		},
		Fallback: block.Rest(),
	}
	samples := &AutoDetect{
		Candidates: []probe.Type{probe.Sound, probe.RefPack, probe.BTree, probe.Huffman},
		Fallback:   block.Rest(),
	}
	registry = map[probe.Type]block.Block{
		probe.SHPI:     &archive.Container{Layout: archive.SHPI, Child: entries, Extra: InlinePalette},
		probe.WWWW:     &archive.Container{Layout: archive.WWWW, Child: Any},
		probe.BNKL:     &archive.Container{Layout: archive.BNKL, Child: samples},
		probe.Sound:    Sound,
		probe.RefPack:  Compressed(compression.RefPack, Any),
		probe.BTree:    Compressed(compression.BTree, Any),
		probe.Huffman:  Compressed(compression.Huffman, Any),
		probe.Mesh:     Mesh,
		probe.TrackMap: TrackMap,
	}
	for _, t := range probe.Types() {
		if t.Record() {
			registry[t] = Record
		}
	}
}

// For returns the block that decodes resources of type t.
func For(t probe.Type) (block.Block, error) {
	b, ok := registry[t]
	if !ok {
		return nil, fmt.Errorf("block for %s: %w", t, probe.ErrNotImplemented)
	}
	return b, nil
}

// Compressed stores elem compressed with m. Unedited payloads are written
// back byte for byte.
func Compressed(m compression.Method, elem block.Block) *block.Detached {
	return block.Describe(&block.Detached{
		Transform: compression.Codec{Method: m},
		Elem:      elem,
	}, m.String()+" compressed payload")
}

// AutoDetect chooses its variant by probing the upcoming bytes, and the
// file name suffix, against the candidate types. Without candidates every
// type is considered. When nothing matches Fallback is used, or Skip.
//
// The decoded data is the chosen variant's *Value.
type AutoDetect struct {
	block.Base
	Candidates []probe.Type
	Fallback   block.Block
}

func (b *AutoDetect) fallback() block.Block {
	if b.Fallback == nil {
		return &block.Skip{}
	}
	return b.Fallback
}

func (b *AutoDetect) resolve(c *block.Context) (block.Block, error) {
	t, err := probe.Probe(c.Peek(probeLen), c.FileName(), b.Candidates...)
	if errors.Is(err, probe.ErrNotImplemented) {
		return b.fallback(), nil
	}
	if err != nil {
		return nil, err
	}
	v, err := For(t)
	if err != nil {
		return nil, c.Wrapf(block.ErrBlockDefinition, err, "probe")
	}
	return v, nil
}

func (b *AutoDetect) Decode(c *block.Context) (any, error) {
	v, err := b.resolve(c)
	if err != nil {
		return nil, err
	}
	return block.DecodeVariant(c, v)
}

func (b *AutoDetect) Encode(c *block.Context, data any) error {
	if v, ok := data.(*block.Value); ok {
		return block.EncodeVariant(c, v)
	}
	return block.EncodeVariant(c, block.NewValue(b.fallback(), data))
}

func (b *AutoDetect) MinSize() int { return 0 }

func (b *AutoDetect) Schema(c *block.Context) block.Schema {
	s := block.Schema{Type: "auto detect", StaticSize: -1, MaxSize: -1}
	cands := b.Candidates
	if len(cands) == 0 {
		cands = probe.Types()
	}
	seen := make(map[block.Block]bool)
	for _, t := range cands {
		v, err := For(t)
		if err != nil || seen[v] {
			continue
		}
		seen[v] = true
		s.Variants = append(s.Variants, c.Describe(t.String(), v))
	}
	s.Variants = append(s.Variants, c.Describe("fallback", b.fallback()))
	s.Formulas = map[string]string{"variant": "signature of the next bytes"}
	return s
}

// Literal is the older form of AutoDetect: it probes once, on the first
// decode, and keeps that variant for every later use.
type Literal struct {
	block.Base
	Candidates []probe.Type

	mu    sync.Mutex
	done  bool
	bound block.Block
	err   error
}

// Bind probes head and fixes the variant. Later calls return the first
// result.
func (b *Literal) Bind(head []byte, name string) (block.Block, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.done {
		b.done = true
		t, err := probe.Probe(head, name, b.Candidates...)
		if err != nil {
			b.err = fmt.Errorf("bind literal: %w", err)
		} else {
			b.bound, b.err = For(t)
		}
	}
	return b.bound, b.err
}

// Bound returns the variant fixed by the first Bind, or nil.
func (b *Literal) Bound() block.Block {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bound
}

func (b *Literal) Decode(c *block.Context) (any, error) {
	v, err := b.Bind(c.Peek(probeLen), c.FileName())
	if err != nil {
		return nil, c.Wrapf(block.ErrBlockDefinition, err, "literal")
	}
	return block.DecodeVariant(c, v)
}

func (b *Literal) Encode(c *block.Context, data any) error {
	if v, ok := data.(*block.Value); ok {
		return block.EncodeVariant(c, v)
	}
	return c.Errorf(block.ErrSerialization, "literal holds %T, not a decoded value", data)
}

func (b *Literal) MinSize() int { return 0 }

func (b *Literal) Schema(c *block.Context) block.Schema {
	s := block.Schema{Type: "literal", StaticSize: -1, MaxSize: -1}
	if bound := b.Bound(); bound != nil {
		s.Variants = []block.Schema{c.Describe("bound", bound)}
	}
	return s
}
