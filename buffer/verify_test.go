package buffer

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert"

	"filebuf/codec"
	"filebuf/compress"
)

func TestVerifyClean(t *testing.T) {
	b := newTestBuffer(t)
	assert.NoError(t, b.AddAll("a", "b", "c"))

	res, err := Verify(b.DataPath(), b.IndexPath(), compress.Gzip)
	assert.NoError(t, err)
	assert.Equal(t, uint64(3), res.Elements)
	assert.Equal(t, int64(3*indexEntryWidth), res.IndexBytes)
	assert.True(t, res.DataBytes > 0)
	assert.Equal(t, int64(0), res.OrphanedDataBytes)
	assert.Equal(t, int64(0), res.IndexTailBytes)
}

func TestVerifyMissingFiles(t *testing.T) {
	dir := t.TempDir()
	res, err := Verify(filepath.Join(dir, "none.buf"), filepath.Join(dir, "none.index"), compress.Gzip)
	assert.NoError(t, err)
	assert.Equal(t, uint64(0), res.Elements)
}

func TestVerifyTails(t *testing.T) {
	b := newTestBuffer(t)
	assert.NoError(t, b.AddAll("a", "b"))

	// an interrupted append leaves a frame without an index entry and
	// possibly a partial index entry
	appendBytes(t, b.DataPath(), []byte{0, 0, 0, 2, 7, 7})
	appendBytes(t, b.IndexPath(), []byte{1, 2, 3})

	res, err := Verify(b.DataPath(), b.IndexPath(), compress.Gzip)
	assert.NoError(t, err)
	assert.Equal(t, uint64(2), res.Elements)
	assert.Equal(t, int64(6), res.OrphanedDataBytes)
	assert.Equal(t, int64(3), res.IndexTailBytes)
}

func TestVerifyCorruptFrame(t *testing.T) {
	b := newTestBuffer(t)
	assert.NoError(t, b.AddAll("a", "b", "c"))
	corruptFrame(t, b, 1)

	_, err := Verify(b.DataPath(), b.IndexPath(), compress.Gzip)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrDecode))
}

func TestVerifyWrongMethod(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.buf")
	b, err := OpenFile[string](path, codec.String{}, WithCompression(compress.Snappy))
	assert.NoError(t, err)
	assert.NoError(t, b.Add("a"))

	_, err = Verify(b.DataPath(), b.IndexPath(), compress.Zstd)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrDecode))
}

func TestVerifyBrokenChain(t *testing.T) {
	b := newTestBuffer(t)
	assert.NoError(t, b.AddAll("a", "b"))

	// point entry 1 past entry 0's frame end
	idx, err := os.ReadFile(b.IndexPath())
	assert.NoError(t, err)
	binary.BigEndian.PutUint64(idx[indexEntryWidth:], binary.BigEndian.Uint64(idx[indexEntryWidth:])+1)
	assert.NoError(t, os.WriteFile(b.IndexPath(), idx, 0644))

	_, err = Verify(b.DataPath(), b.IndexPath(), compress.Gzip)
	assert.Error(t, err)
}

func appendBytes(t *testing.T, path string, d []byte) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		t.Fatalf("opening '%s' failed with '%s'", path, err)
	}
	if _, err = f.Write(d); err != nil {
		t.Fatalf("appending to '%s' failed with '%s'", path, err)
	}
	if err = f.Close(); err != nil {
		t.Fatalf("closing '%s' failed with '%s'", path, err)
	}
}
