package buffer

import (
	"os"

	"github.com/pkg/errors"

	"filebuf/compress"
)

// VerifyResult summarizes a structural check of a buffer file pair.
type VerifyResult struct {
	// Elements is the number of complete index entries checked.
	Elements uint64
	// DataBytes and IndexBytes are the current file sizes.
	DataBytes  int64
	IndexBytes int64
	// OrphanedDataBytes counts data-file bytes past the end of the last
	// indexed frame. A crash between writing a frame and its index entry
	// leaves them behind; the next append overwrites them.
	OrphanedDataBytes int64
	// IndexTailBytes counts trailing index bytes that don't form a
	// complete entry. Reads ignore them and the next append overwrites
	// them.
	IndexTailBytes int64
}

// Verify walks a file pair and checks that it is structurally sound:
// index entries must chain frames contiguously from offset 0, every
// frame must lie inside the data file and every payload must decompress
// with method. It stops at the first corrupt entry.
//
// A missing pair verifies clean as an empty buffer. Verify reads the
// files directly and is not synchronized with live buffers on the same
// paths.
func Verify(dataPath, indexPath string, method compress.Method) (*VerifyResult, error) {
	res := &VerifyResult{}
	idx, err := os.Open(indexPath)
	if err != nil {
		if os.IsNotExist(err) {
			return res, nil
		}
		return nil, errors.Wrap(err, "can't open index file")
	}
	defer idx.Close()

	st, err := idx.Stat()
	if err != nil {
		return nil, err
	}
	res.IndexBytes = st.Size()
	res.IndexTailBytes = st.Size() % indexEntryWidth
	n := uint64(st.Size()) / indexEntryWidth
	if n == 0 {
		return res, nil
	}

	data, err := os.Open(dataPath)
	if err != nil {
		return nil, errors.Wrap(err, "can't open data file")
	}
	defer data.Close()
	dst, err := data.Stat()
	if err != nil {
		return nil, err
	}
	res.DataBytes = dst.Size()

	var next uint64
	for i := uint64(0); i < n; i++ {
		off, err := readOffsetAt(idx, i)
		if err != nil {
			return nil, errors.Wrapf(err, "entry %d", i)
		}
		if off != next {
			return nil, errors.Errorf("entry %d points at offset %d, want %d", i, off, next)
		}
		_, frameSize, err := readFrame(data, off, method)
		if err != nil {
			return nil, errors.Wrapf(err, "entry %d", i)
		}
		next = off + frameSize
		res.Elements++
	}
	res.OrphanedDataBytes = res.DataBytes - int64(next)
	return res, nil
}
