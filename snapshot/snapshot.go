// Package snapshot copies a buffer's data/index file pair to off-host
// storage and back.
//
// A snapshot is two objects under a common id: <prefix>/<id>/data and
// <prefix>/<id>/index. Push captures them under the buffer's read lock,
// so the pair is always mutually consistent even while other goroutines
// keep appending.
package snapshot

import (
	"bytes"
	"context"
	"io"
	"os"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"filebuf/fsutil"
)

// Target is a place snapshots are stored: a local directory, an S3
// bucket or an SFTP host. Object names use '/' separators on every
// target.
type Target interface {
	// Put stores size bytes from r under name, replacing any previous
	// object with that name.
	Put(ctx context.Context, name string, r io.Reader, size int64) error
	// Get opens the object stored under name.
	Get(ctx context.Context, name string) (io.ReadCloser, error)
	// List returns the names of stored objects starting with prefix,
	// sorted.
	List(ctx context.Context, prefix string) ([]string, error)
	// Delete removes the object stored under name. Deleting a missing
	// object is not an error.
	Delete(ctx context.Context, name string) error
}

// Source is the buffer side of Push: anything that can expose a
// consistent view of its data and index files. *buffer.FileBuffer
// implements it.
type Source interface {
	Snapshot(fn func(dataPath, indexPath string) error) error
}

// Info describes one pushed snapshot.
type Info struct {
	ID         string
	DataBytes  int64
	IndexBytes int64
	CreatedAt  time.Time
}

// newID builds a snapshot id: a UTC timestamp so ids sort by creation
// time, plus a uuid for uniqueness.
func newID(now time.Time) string {
	return now.UTC().Format("20060102-150405") + "-" + uuid.NewString()
}

// Push copies src's file pair to t under prefix, holding src's read
// lock for the duration so no append or reset runs mid-copy. The two
// objects are uploaded concurrently. An empty buffer (no files yet) is
// stored as two empty objects.
func Push(ctx context.Context, src Source, t Target, prefix string) (*Info, error) {
	now := time.Now()
	info := &Info{
		ID:        newID(now),
		CreatedAt: now.UTC(),
	}
	err := src.Snapshot(func(dataPath, indexPath string) error {
		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			n, err := putFile(ctx, t, path.Join(prefix, info.ID, "data"), dataPath)
			info.DataBytes = n
			return err
		})
		g.Go(func() error {
			n, err := putFile(ctx, t, path.Join(prefix, info.ID, "index"), indexPath)
			info.IndexBytes = n
			return err
		})
		return g.Wait()
	})
	if err != nil {
		return nil, errors.Wrap(err, "snapshot push failed")
	}
	return info, nil
}

// Restore downloads snapshot id from t into dataPath and indexPath. If
// the snapshot was pushed with a prefix, id must include it
// (path.Join(prefix, info.ID)). Each file is written atomically, so a
// failed download never leaves a truncated file behind.
//
// Restore into a live buffer's files is not supported; restore first,
// then open a buffer on the paths.
func Restore(ctx context.Context, t Target, id, dataPath, indexPath string) error {
	if err := fetchFile(ctx, t, path.Join(id, "data"), dataPath); err != nil {
		return errors.Wrapf(err, "can't restore data file of snapshot '%s'", id)
	}
	if err := fetchFile(ctx, t, path.Join(id, "index"), indexPath); err != nil {
		return errors.Wrapf(err, "can't restore index file of snapshot '%s'", id)
	}
	return nil
}

func putFile(ctx context.Context, t Target, name, filePath string) (int64, error) {
	f, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, t.Put(ctx, name, bytes.NewReader(nil), 0)
		}
		return 0, err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return 0, err
	}
	if err := t.Put(ctx, name, f, st.Size()); err != nil {
		return 0, err
	}
	return st.Size(), nil
}

func fetchFile(ctx context.Context, t Target, name, dst string) error {
	rc, err := t.Get(ctx, name)
	if err != nil {
		return err
	}
	defer rc.Close()
	_, err = fsutil.WriteFileAtomic(dst, rc)
	return err
}
