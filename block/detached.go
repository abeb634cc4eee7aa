// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package block

import (
	"github.com/zeebo/blake3"
)

// Transform converts between the stored bytes of a Detached block and the
// plain bytes its element is decoded from, e.g. a compression codec.
type Transform interface {
	Name() string
	Unwrap(stored []byte) ([]byte, error)
	Wrap(plain []byte) ([]byte, error)
}

// Sealed is the data of a Detached block.
type Sealed struct {
	// Raw holds the stored bytes as read.
	Raw []byte

	// Digest is the BLAKE3 hash of the plain bytes as read.
	Digest [32]byte

	Inner *Value

	// Tail holds plain bytes the element did not consume.
	Tail []byte
}

// Seal wraps a value for encoding through a Detached block.
func Seal(inner *Value) *Sealed { return &Sealed{Inner: inner} }

// Detached stores Elem in a transformed side buffer. Length bounds the
// stored bytes; nil takes the rest of the budget.
//
// Encoding re-emits the stored bytes unchanged when the element encodes
// back to the same plain bytes, so unedited payloads round trip exactly
// even when the transform is not canonical.
type Detached struct {
	Base
	Transform Transform
	Elem      Block
	Length    Expr
}

func (b *Detached) Decode(c *Context) (any, error) {
	n := c.Remaining()
	if b.Length != nil {
		var err error
		if n, err = EvalInt(b.Length, c); err != nil {
			return nil, err
		}
	}
	stored, err := c.ReadBytes(n)
	if err != nil {
		return nil, err
	}
	stored = append([]byte(nil), stored...)
	plain, err := b.Transform.Unwrap(stored)
	if err != nil {
		return nil, c.Wrapf(ErrDataIntegrity, err, "%s", b.Transform.Name())
	}
	inner, err := c.ReadDetached("data", b.Elem, plain)
	if err != nil {
		return nil, err
	}
	s := &Sealed{Raw: stored, Digest: blake3.Sum256(plain), Inner: inner}
	if inner.size < len(plain) {
		s.Tail = append([]byte(nil), plain[inner.size:]...)
	}
	return s, nil
}

func (b *Detached) Encode(c *Context, data any) error {
	s, ok := data.(*Sealed)
	if !ok {
		return c.Errorf(ErrSerialization, "%T is not sealed data", data)
	}
	plain, err := c.EncodeDetached("data", s.Inner)
	if err != nil {
		return err
	}
	plain = append(plain, s.Tail...)
	if s.Raw != nil && blake3.Sum256(plain) == s.Digest {
		return c.WriteBytes(s.Raw)
	}
	stored, err := b.Transform.Wrap(plain)
	if err != nil {
		return c.Wrapf(ErrSerialization, err, "%s", b.Transform.Name())
	}
	return c.WriteBytes(stored)
}

func (b *Detached) MinSize() int { return 0 }

func (b *Detached) Schema(c *Context) Schema {
	elem := c.Describe("data", b.Elem)
	s := dynamicSchema("detached", 0)
	s.Element = &elem
	s.Formulas = map[string]string{"transform": b.Transform.Name()}
	if b.Length != nil {
		s.Formulas["length"] = formula(c, b.Length)
	}
	return s
}
