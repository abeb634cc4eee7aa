// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package resfile

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

// benchDirs creates n directories that each hold the same files.
func benchDirs(b *testing.B, n, files int) []string {
	root := b.TempDir()
	var dirs []string
	for i := 0; i < n; i++ {
		dir := filepath.Join(root, "dir_"+strconv.Itoa(i))
		for j := 0; j < files; j++ {
			path := filepath.Join(dir, "data", "file_"+strconv.Itoa(j)+".snd")
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				b.Fatal(err)
			}
			if err := os.WriteFile(path, soundFile(uint32(i)), 0644); err != nil {
				b.Fatal(err)
			}
		}
		dirs = append(dirs, dir)
	}
	return dirs
}

// BenchmarkSearchPathFind benchmarks lookups through the name index.
func BenchmarkSearchPathFind(b *testing.B) {
	p := NewSearchPath(benchDirs(b, 5, 20)...)
	p.Refresh()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		p.Find(`Data\File_0.snd`)
		p.Find(`Data\File_9.snd`)
		p.Find(`Data\File_19.snd`)
		p.Find(`Data\NonExistent.snd`)
	}
}

// BenchmarkSearchPathLinear benchmarks the fallback without the index.
func BenchmarkSearchPathLinear(b *testing.B) {
	p := NewSearchPath(benchDirs(b, 5, 20)...)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		p.findLinear("data/file_0.snd")
		p.findLinear("data/file_9.snd")
		p.findLinear("data/file_19.snd")
		p.findLinear("data/nonexistent.snd")
	}
}

// BenchmarkCacheLoad benchmarks cached loads through a search path.
func BenchmarkCacheLoad(b *testing.B) {
	c := NewCache(nil, WithSearchPath(benchDirs(b, 3, 10)...))
	if _, err := c.Load("data/file_0.snd"); err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := c.Load(`DATA\FILE_0.SND`); err != nil {
			b.Fatal(err)
		}
	}
}
