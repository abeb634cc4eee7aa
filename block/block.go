// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package block

import (
	"bytes"
	"fmt"
)

// Block is a schema node describing how one piece of binary layout is
// decoded and encoded. Blocks are stateless; decoded data lives in Values.
type Block interface {
	// Decode reads the block at the cursor of c and returns its data.
	Decode(c *Context) (any, error)

	// Encode writes data at the cursor of c.
	Encode(c *Context, data any) error

	// MinSize returns the fewest bytes the block can occupy.
	MinSize() int

	// Schema documents the block. c is a documentation context.
	Schema(c *Context) Schema
}

// Policy selects what happens when a block fails to decode.
type Policy uint8

const (
	// Raise returns the error, aborting the enclosing read.
	Raise Policy = iota

	// Return stores a *Failure in the field and lets decoding continue.
	Return
)

// Base carries the attributes shared by every block.
type Base struct {
	Description string
	OnError     Policy
	Expect      any
}

func (b *Base) base() *Base { return b }

type based interface {
	base() *Base
}

// Describe sets the description of b.
func Describe[T based](b T, text string) T {
	b.base().Description = text
	return b
}

// Tolerant switches b to the Return policy.
func Tolerant[T based](b T) T {
	b.base().OnError = Return
	return b
}

// Require makes decoding b fail with ErrDataIntegrity unless it yields v.
func Require[T based](b T, v any) T {
	b.base().Expect = v
	return b
}

func policyOf(b Block) Policy {
	if bb, ok := b.(based); ok {
		return bb.base().OnError
	}
	return Raise
}

func describe(b Block) string {
	if bb, ok := b.(based); ok {
		return bb.base().Description
	}
	return ""
}

func checkExpected(c *Context, b Block, data any) error {
	bb, ok := b.(based)
	if !ok || bb.base().Expect == nil {
		return nil
	}
	want := bb.base().Expect
	if !sameData(want, data) {
		return c.Errorf(ErrDataIntegrity, "expected %v, got %v", want, data)
	}
	return nil
}

func sameData(a, b any) bool {
	if x, ok := toInt64(a); ok {
		y, ok := toInt64(b)
		return ok && x == y
	}
	switch x := a.(type) {
	case string:
		switch y := b.(type) {
		case string:
			return x == y
		case []byte:
			return x == string(y)
		}
	case []byte:
		switch y := b.(type) {
		case string:
			return string(x) == y
		case []byte:
			return bytes.Equal(x, y)
		}
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

// Decode decodes buf with b. The whole buffer is the byte budget.
func Decode(b Block, buf []byte, opts ...Option) (*Value, error) {
	return DecodeAt(b, buf, 0, len(buf), opts...)
}

// DecodeAt decodes b at offset with the given byte budget. Offsets inside
// the decoded data stay absolute to buf.
func DecodeAt(b Block, buf []byte, offset, budget int, opts ...Option) (*Value, error) {
	e := newEnv(opts)
	root := newRoot(ModeRead, &stream{buf: buf, pos: offset}, offset, budget, e)
	if offset < 0 || offset > len(buf) {
		return nil, root.Errorf(ErrEndOfBuffer, "offset %d outside buffer of %d bytes", offset, len(buf))
	}
	return root.ReadChild(rootName(e), b, budget)
}

// Encode serialises v with the block that produced it.
func Encode(v *Value, opts ...Option) ([]byte, error) {
	e := newEnv(opts)
	root := newRoot(ModeWrite, &stream{}, 0, -1, e)
	if err := root.WriteValue(rootName(e), v); err != nil {
		return nil, err
	}
	return root.s.buf, nil
}

// Document returns the schema of b, with dynamic sizes and choices
// rendered as formulas.
func Document(b Block) Schema {
	root := newRoot(ModeDoc, &stream{}, 0, -1, newEnv(nil))
	return root.Describe("", b)
}

func rootName(e *env) string {
	if e.fileName != "" {
		return e.fileName
	}
	return "root"
}
