// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package resfile

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func verifyFixture(t *testing.T) string {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "good.snd"), soundFile(22050))
	writeFile(t, filepath.Join(dir, "sub", "bad.snd"), soundFile(22050)[:5])
	writeFile(t, filepath.Join(dir, "blob.bin"), []byte{0x01, 0x02, 0x03})
	return dir
}

func TestFiles(t *testing.T) {
	dir := verifyFixture(t)
	writeFile(t, filepath.Join(dir, DefaultManifestName), nil)

	files, err := Files([]string{dir}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "blob.bin"),
		filepath.Join(dir, "good.snd"),
		filepath.Join(dir, "sub", "bad.snd"),
	}, files)

	files, err = Files([]string{dir}, []string{"SND"})
	require.NoError(t, err)
	assert.Len(t, files, 2)

	files, err = Files([]string{filepath.Join(dir, "good.snd")}, []string{".snd"})
	require.NoError(t, err)
	assert.Len(t, files, 1)

	_, err = Files([]string{filepath.Join(dir, "missing")}, nil)
	assert.Error(t, err)
}

func TestVerify(t *testing.T) {
	dir := verifyFixture(t)
	files, err := Files([]string{dir}, nil)
	require.NoError(t, err)

	m, err := Verify(context.Background(), files, VerifyOptions{Workers: 2, Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	_, err = uuid.Parse(m.RunID)
	require.NoError(t, err)
	assert.Equal(t, 3, m.Files)
	assert.Equal(t, 2, m.Passed)
	assert.False(t, m.OK())

	require.Len(t, m.Failures, 1)
	f := m.Failures[0]
	assert.Equal(t, filepath.Join(dir, "sub", "bad.snd"), f.Path)
	assert.Equal(t, "sound", f.Type)
	assert.Equal(t, StageDecode, f.Stage)
	assert.NotEmpty(t, f.Block)
	assert.NotEmpty(t, f.Error)

	path := filepath.Join(dir, DefaultManifestName)
	require.NoError(t, m.WriteFile(path))
	back, err := ReadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, m.RunID, back.RunID)
	assert.Equal(t, m.Failures, back.Failures)
	assert.True(t, m.Started.Equal(back.Started))
}

func TestVerifyMissingFile(t *testing.T) {
	m, err := Verify(context.Background(), []string{filepath.Join(t.TempDir(), "none.snd")}, VerifyOptions{})
	require.NoError(t, err)
	require.Len(t, m.Failures, 1)
	assert.Equal(t, StageRead, m.Failures[0].Stage)
}

func TestVerifyCancelled(t *testing.T) {
	files, err := Files([]string{verifyFixture(t)}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Verify(ctx, files, VerifyOptions{Workers: 1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFirstDifference(t *testing.T) {
	assert.Equal(t, 2, firstDifference([]byte("abc"), []byte("abd")))
	assert.Equal(t, 3, firstDifference([]byte("abc"), []byte("abcd")))
	assert.Equal(t, 0, firstDifference(nil, []byte("a")))
}
