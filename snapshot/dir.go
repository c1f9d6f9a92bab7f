package snapshot

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"filebuf/fsutil"
)

// Dir stores objects as files under a root directory, one file per
// object, written atomically. It is the target to use for snapshots to
// a local disk or an already-mounted network share.
type Dir struct {
	root string
}

var _ Target = (*Dir)(nil)

// NewDir returns a directory target rooted at root, creating it if
// missing.
func NewDir(root string) (*Dir, error) {
	if root == "" {
		return nil, errors.New("must provide a root directory")
	}
	if err := fsutil.EnsureDir(root); err != nil {
		return nil, err
	}
	return &Dir{root: root}, nil
}

// filePath maps an object name to a path under the root. Cleaning the
// name as rooted keeps "../" from escaping it.
func (d *Dir) filePath(name string) (string, error) {
	name = path.Clean("/" + name)[1:]
	if name == "" {
		return "", errors.Errorf("invalid object name '%s'", name)
	}
	return filepath.Join(d.root, filepath.FromSlash(name)), nil
}

func (d *Dir) Put(ctx context.Context, name string, r io.Reader, size int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := d.filePath(name)
	if err != nil {
		return err
	}
	_, err = fsutil.WriteFileAtomic(p, r)
	return err
}

func (d *Dir) Get(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := d.filePath(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (d *Dir) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var names []string
	err := filepath.WalkDir(d.root, func(p string, de fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if de.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(d.root, p)
		if err != nil {
			return err
		}
		if name := filepath.ToSlash(rel); strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

func (d *Dir) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := d.filePath(name)
	if err != nil {
		return err
	}
	return fsutil.RemoveIfExists(p)
}
