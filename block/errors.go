// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package block

import (
	"errors"
	"fmt"
)

// Error kinds. Every error produced by the engine wraps exactly one of these,
// so callers can classify failures with errors.Is.
var (
	// ErrEndOfBuffer reports fewer bytes than a block needs.
	ErrEndOfBuffer = errors.New("end of buffer")

	// ErrDataIntegrity reports input that decodes but is inconsistent:
	// a required value or checksum mismatch, a bad decompressed length,
	// a compressed stream that stops making progress.
	ErrDataIntegrity = errors.New("data integrity")

	// ErrBlockDefinition reports a schema authoring error, such as a
	// length that was never supplied or a union with no usable variant.
	ErrBlockDefinition = errors.New("block definition")

	// ErrSerialization reports a value that cannot be encoded, including
	// values that recorded a decode failure.
	ErrSerialization = errors.New("serialization")
)

// Error is a positional engine error.
type Error struct {
	Kind   error
	Path   string
	Offset int
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	s := fmt.Sprintf("%v at %s (offset %d): %s", e.Kind, e.Path, e.Offset, e.Msg)
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

// Unwrap exposes both the kind and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Failure is stored in place of a value whose block uses the Return
// policy and failed to decode.
type Failure struct {
	Err error
}

func (f *Failure) Error() string {
	return "decode failure: " + f.Err.Error()
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Errorf builds an Error of the given kind positioned at the cursor of c.
func (c *Context) Errorf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Path: c.Path(), Offset: c.Pos(), Msg: fmt.Sprintf(format, args...)}
}

// Wrapf is Errorf with an underlying cause.
func (c *Context) Wrapf(kind error, err error, format string, args ...any) error {
	return &Error{Kind: kind, Path: c.Path(), Offset: c.Pos(), Msg: fmt.Sprintf(format, args...), Err: err}
}
