package fsutil

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
)

// WriteFileAtomic writes everything from r to path so that the file
// either ends up fully written or doesn't end up at all.
//
// It writes to a temp file in the same directory, syncs it and renames
// it over path. If anything fails the temp file is removed and path is
// left untouched. The parent directory is created if missing.
func WriteFileAtomic(path string, r io.Reader) (int64, error) {
	dir, name := filepath.Split(path)
	if err := EnsureDir(dir); err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(dir, name+".tmp*")
	if err != nil {
		return 0, err
	}
	tmpPath := tmp.Name()

	n, err := io.Copy(tmp, r)
	if err == nil {
		// https://www.joeshaw.org/dont-defer-close-on-writable-files/
		err = tmp.Sync()
	}
	errClose := tmp.Close()
	if err == nil {
		err = errClose
	}
	if err == nil {
		err = os.Rename(tmpPath, path)
	}
	if err != nil {
		os.Remove(tmpPath)
		return 0, err
	}

	// sync directory after rename for extra protection against crashes,
	// ignore errors as those are a nice to have, not must have
	if fdir, err2 := os.Open(filepath.Dir(path)); err2 == nil {
		_ = fdir.Sync()
		_ = fdir.Close()
	}
	return n, nil
}

// WriteFileAtomicData is WriteFileAtomic for in-memory data.
func WriteFileAtomicData(path string, data []byte) error {
	_, err := WriteFileAtomic(path, bytes.NewReader(data))
	return err
}
