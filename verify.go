// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package resfile

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/suprsokr/go-resfile/block"
)

// DefaultManifestName is the file name used for a verify manifest written
// beside the verified files.
const DefaultManifestName = "resfile-verify.yaml"

// Stage names the step at which a file failed verification.
type Stage string

const (
	StageRead    Stage = "read"
	StageDecode  Stage = "decode"
	StageEncode  Stage = "encode"
	StageCompare Stage = "compare"
)

// FileFailure describes one file that did not round-trip.
type FileFailure struct {
	Path   string `yaml:"path"`
	Type   string `yaml:"type,omitempty"`
	Stage  Stage  `yaml:"stage"`
	Error  string `yaml:"error"`
	Block  string `yaml:"block,omitempty"`
	Offset int    `yaml:"offset"`
	Want   string `yaml:"want_digest,omitempty"`
	Got    string `yaml:"got_digest,omitempty"`
}

// Manifest is the outcome of a Verify run.
type Manifest struct {
	RunID    string        `yaml:"run_id"`
	Started  time.Time     `yaml:"started"`
	Finished time.Time     `yaml:"finished"`
	Files    int           `yaml:"files"`
	Passed   int           `yaml:"passed"`
	Failures []FileFailure `yaml:"failures,omitempty"`
}

// OK reports whether every file round-tripped.
func (m *Manifest) OK() bool { return len(m.Failures) == 0 }

// WriteFile writes the manifest as YAML.
func (m *Manifest) WriteFile(path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// ReadManifest loads a manifest written by WriteFile.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

// VerifyOptions configures Verify.
type VerifyOptions struct {
	// Workers bounds the number of files processed at once.
	// Default: runtime.NumCPU()
	Workers int
	Logger  *zap.Logger
}

// Verify decodes and re-encodes each file and checks that the output
// matches the input byte for byte. A failing file is recorded in the
// manifest and does not stop the run; only cancellation of ctx does.
func Verify(ctx context.Context, files []string, opts VerifyOptions) (*Manifest, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	m := &Manifest{RunID: uuid.New().String(), Started: time.Now().UTC(), Files: len(files)}
	sugar := logger.Sugar().With("run", m.RunID)
	sugar.Infow("verify started", "files", len(files), "workers", workers)

	results := make([]*FileFailure, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = verifyFile(path, logger)
			if f := results[i]; f != nil {
				sugar.Warnw("verify failed", "path", path, "stage", f.Stage, "error", f.Error)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}

	for _, f := range results {
		if f == nil {
			m.Passed++
			continue
		}
		m.Failures = append(m.Failures, *f)
	}
	m.Finished = time.Now().UTC()
	sugar.Infow("verify finished", "passed", m.Passed, "failed", len(m.Failures))
	return m, nil
}

// verifyFile round-trips one file and returns nil on success.
func verifyFile(path string, logger *zap.Logger) *FileFailure {
	buf, err := os.ReadFile(path)
	if err != nil {
		return &FileFailure{Path: path, Stage: StageRead, Error: err.Error()}
	}
	f := &FileFailure{Path: path}
	if t, err := Identify(buf, path); err == nil {
		f.Type = t.String()
	}

	v, err := Decode(buf, path, logger)
	if err != nil {
		f.Stage = StageDecode
		f.fromError(err)
		return f
	}
	out, err := Encode(v, logger)
	if err != nil {
		f.Stage = StageEncode
		f.fromError(err)
		return f
	}
	if bytes.Equal(buf, out) {
		return nil
	}

	f.Stage = StageCompare
	f.Offset = firstDifference(buf, out)
	f.Error = fmt.Sprintf("re-encoded %d bytes, expected %d", len(out), len(buf))
	want, got := blake3.Sum256(buf), blake3.Sum256(out)
	f.Want = hex.EncodeToString(want[:])
	f.Got = hex.EncodeToString(got[:])
	return f
}

func (f *FileFailure) fromError(err error) {
	f.Error = err.Error()
	var be *block.Error
	if errors.As(err, &be) {
		f.Block = be.Path
		f.Offset = be.Offset
	}
}

func firstDifference(a, b []byte) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

// Files expands roots into the regular files below them, in lexical order.
// A root may itself be a file. When exts is not empty only names with one of
// those suffixes are returned; case is ignored.
func Files(roots []string, exts []string) ([]string, error) {
	var files []string
	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !d.Type().IsRegular() {
				return nil
			}
			if d.Name() == DefaultManifestName {
				return nil
			}
			if len(exts) > 0 && !hasExt(path, exts) {
				return nil
			}
			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}
	return files, nil
}

func hasExt(path string, exts []string) bool {
	ext := filepath.Ext(path)
	for _, e := range exts {
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}
