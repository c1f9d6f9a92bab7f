package fsutil

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert"
)

func TestPathHelpers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.txt")

	assert.False(t, PathExists(path))
	assert.False(t, FileExists(path))
	assert.Equal(t, int64(-1), FileSize(path))

	err := os.WriteFile(path, []byte("hello"), 0644)
	assert.NoError(t, err)

	assert.True(t, PathExists(path))
	assert.True(t, FileExists(path))
	assert.False(t, DirExists(path))
	assert.True(t, DirExists(dir))
	assert.Equal(t, int64(5), FileSize(path))
}

func TestEnsureDir(t *testing.T) {
	dir := t.TempDir()

	sub := filepath.Join(dir, "a", "b", "c")
	err := EnsureDir(sub)
	assert.NoError(t, err)
	assert.True(t, DirExists(sub))

	// idempotent
	err = EnsureDir(sub)
	assert.NoError(t, err)

	// a file in place of the dir is an error
	path := filepath.Join(dir, "file")
	err = os.WriteFile(path, []byte("x"), 0644)
	assert.NoError(t, err)
	err = EnsureDir(path)
	assert.Error(t, err)

	// empty and "." are no-ops
	assert.NoError(t, EnsureDir(""))
	assert.NoError(t, EnsureDir("."))
}

func TestIsWritable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "w.txt")

	// missing file is considered writable
	assert.True(t, IsWritable(path))

	err := os.WriteFile(path, []byte("x"), 0644)
	assert.NoError(t, err)
	assert.True(t, IsWritable(path))

	err = os.Chmod(path, 0444)
	assert.NoError(t, err)
	if os.Getuid() == 0 {
		// root can write read-only files, nothing to verify
		t.Skip("running as root")
	}
	assert.False(t, IsWritable(path))
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "sub", "dst.bin")

	d := []byte("some content\nwith lines\n")
	err := os.WriteFile(src, d, 0644)
	assert.NoError(t, err)

	err = CopyFile(dst, src)
	assert.NoError(t, err)

	got, err := os.ReadFile(dst)
	assert.NoError(t, err)
	assert.Equal(t, d, got)

	// missing source
	err = CopyFile(filepath.Join(dir, "dst2"), filepath.Join(dir, "no-such"))
	assert.Error(t, err)
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "data.bin")

	d := []byte("atomic write content")
	n, err := WriteFileAtomic(path, bytes.NewReader(d))
	assert.NoError(t, err)
	assert.Equal(t, int64(len(d)), n)

	got, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.Equal(t, d, got)

	// overwrite keeps either old or new content, never partial
	d2 := []byte("v2")
	err = WriteFileAtomicData(path, d2)
	assert.NoError(t, err)
	got, err = os.ReadFile(path)
	assert.NoError(t, err)
	assert.Equal(t, d2, got)

	// failed write must not leave the destination or temp files behind
	_, err = WriteFileAtomic(filepath.Join(dir, "bad", "f"), failingReader{})
	assert.Error(t, err)
	assert.False(t, PathExists(filepath.Join(dir, "bad", "f")))
	ents, err := os.ReadDir(filepath.Join(dir, "bad"))
	assert.NoError(t, err)
	assert.Equal(t, 0, len(ents))
}

type failingReader struct{}

func (failingReader) Read(p []byte) (int, error) {
	return 0, io.ErrUnexpectedEOF
}

func TestRemoveIfExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f")

	// missing file is not an error
	assert.NoError(t, RemoveIfExists(path))

	err := os.WriteFile(path, []byte("x"), 0644)
	assert.NoError(t, err)
	assert.NoError(t, RemoveIfExists(path))
	assert.False(t, PathExists(path))
}
