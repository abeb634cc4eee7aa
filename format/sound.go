// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package format

import (
	"github.com/suprsokr/go-resfile/block"
)

// SoundCodec is the sample encoding code of a sound header.
var SoundCodec = &block.Enum{Entries: []block.EnumEntry{
	{Value: 0, Name: "pcm16"},
	{Value: 1, Name: "pcm8"},
	{Value: 7, Name: "xa"},
}}

var sampleCount = block.Mul(block.Path("../frames"), block.Path("../channels"))

// Sound is a sample introduced by "PT\0\0". PCM samples decode to numbers;
// other codecs are kept opaque.
var Sound = block.Describe(&block.Compound{Fields: []block.Field{
	{Name: "magic", Block: block.Magic("PT\x00\x00")},
	{Name: "codec", Block: SoundCodec},
	{Name: "channels", Block: block.U8()},
	{Name: "rate", Block: block.Describe(block.U32(), "samples per second")},
	{Name: "frames", Block: block.U32()},
	{Name: "samples", Block: &block.EnumLookup{
		Field: "../codec",
		Variants: []block.Block{
			block.Of(block.S16(), sampleCount),
			block.Of(block.U8(), sampleCount),
			block.Rest(),
		},
		Default: 2,
	}},
}}, "sound sample")
