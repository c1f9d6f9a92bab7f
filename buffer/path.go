package buffer

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"filebuf/fsutil"
)

// IndexExtension is appended to a data file's name (minus its extension)
// to derive the default index file name.
const IndexExtension = ".index"

// IndexPathFor derives the default index-file path for dataPath: the
// data file's name with its extension replaced by ".index", in the same
// directory. The extension is the text after the last '.' in the name;
// a leading dot (as in ".config") is not treated as an extension.
func IndexPathFor(dataPath string) string {
	dir, name := filepath.Split(dataPath)
	if dot := strings.LastIndex(name, "."); dot > 0 {
		name = name[:dot]
	}
	return filepath.Join(dir, name+IndexExtension)
}

// prepareFilePath makes sure path can be used as a buffer file: its
// parent directory exists (created if missing) and, if the file already
// exists, it is writable. Failures here are construction-time fatal.
func prepareFilePath(path string) error {
	if err := fsutil.EnsureDir(filepath.Dir(path)); err != nil {
		return errors.Wrapf(err, "can't prepare directory for '%s'", path)
	}
	if fsutil.FileExists(path) && !fsutil.IsWritable(path) {
		return errors.Errorf("'%s' is not writable", path)
	}
	return nil
}
