// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package resfile

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/suprsokr/go-resfile/block"
	"github.com/suprsokr/go-resfile/format"
	"github.com/suprsokr/go-resfile/probe"
)

// headLen is how many leading bytes Identify passes to the probe.
const headLen = 8

// Identify returns the resource type of buf. The name supplies the file
// suffix for formats without a signature.
func Identify(buf []byte, name string) (probe.Type, error) {
	head := buf
	if len(head) > headLen {
		head = head[:headLen]
	}
	return probe.Probe(head, name)
}

// Decode decodes buf as whatever resource it holds. Unknown data decodes to
// a raw byte value so that it still round-trips.
func Decode(buf []byte, name string, logger *zap.Logger) (*block.Value, error) {
	v, err := block.Decode(format.Any, buf, options(name, logger)...)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return v, nil
}

// DecodeAs decodes buf with the schema registered for t.
func DecodeAs(t probe.Type, buf []byte, name string, logger *zap.Logger) (*block.Value, error) {
	b, err := format.For(t)
	if err != nil {
		return nil, err
	}
	v, err := block.Decode(b, buf, options(name, logger)...)
	if err != nil {
		return nil, fmt.Errorf("decode %s as %s: %w", name, t, err)
	}
	return v, nil
}

// Encode serialises v back to bytes.
func Encode(v *block.Value, logger *zap.Logger) ([]byte, error) {
	buf, err := block.Encode(v, options("", logger)...)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", v.Name(), err)
	}
	return buf, nil
}

func options(name string, logger *zap.Logger) []block.Option {
	opts := make([]block.Option, 0, 2)
	if name != "" {
		opts = append(opts, block.WithFileName(name))
	}
	if logger != nil {
		opts = append(opts, block.WithLogger(logger))
	}
	return opts
}
