// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package format

import (
	"path/filepath"
	"strings"

	"github.com/suprsokr/go-resfile/block"
)

// Link is the data of a FileLink.
type Link struct {
	// Name is the stored reference.
	Name string

	// Path is Name resolved against the directory of the decoded file.
	Path string
}

// FileLink is a stored reference to another resource file, such as the
// texture of a mesh. Length fixes the stored size; nil means the name is
// NUL-terminated.
type FileLink struct {
	block.Base
	Length block.Expr
}

func (b *FileLink) text() *block.String {
	return &block.String{Length: b.Length, Terminated: b.Length == nil}
}

// Resolve joins a stored name to the directory of file. Stored names use
// either slash.
func Resolve(file, name string) string {
	if name == "" {
		return ""
	}
	name = filepath.FromSlash(strings.ReplaceAll(name, `\`, "/"))
	if file == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(filepath.Dir(file), name)
}

func (b *FileLink) Decode(c *block.Context) (any, error) {
	d, err := b.text().Decode(c)
	if err != nil {
		return nil, err
	}
	name, _ := d.(string)
	return Link{Name: name, Path: Resolve(c.FileName(), name)}, nil
}

func (b *FileLink) Encode(c *block.Context, data any) error {
	switch d := data.(type) {
	case Link:
		return b.text().Encode(c, d.Name)
	case string:
		return b.text().Encode(c, d)
	}
	return c.Errorf(block.ErrSerialization, "%T is not a file link", data)
}

func (b *FileLink) MinSize() int { return b.text().MinSize() }

func (b *FileLink) Schema(c *block.Context) block.Schema {
	s := b.text().Schema(c)
	s.Type = "file link"
	return s
}
