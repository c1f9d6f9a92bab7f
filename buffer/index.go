package buffer

import (
	"encoding/binary"
	"os"

	"github.com/pkg/errors"
)

// Index file layout: a dense array of 8-byte big-endian offsets into the
// data file, entry i at bytes [8i, 8i+8). No header. The element count
// is the file length divided by 8; trailing partial bytes are ignored.
const indexEntryWidth = 8

// indexCount returns the number of complete index entries in f.
func indexCount(f *os.File) (uint64, error) {
	st, err := f.Stat()
	if err != nil {
		return 0, err
	}
	if !st.Mode().IsRegular() {
		return 0, errors.Errorf("%s is not a regular file", f.Name())
	}
	return uint64(st.Size()) / indexEntryWidth, nil
}

// readOffsetAt returns the data-file offset recorded for element pos.
// Returns ErrOutOfRange if the index file is too short to hold entry pos.
func readOffsetAt(f *os.File, pos uint64) (uint64, error) {
	st, err := f.Stat()
	if err != nil {
		return 0, err
	}
	if pos >= uint64(st.Size())/indexEntryWidth {
		return 0, errors.Wrapf(ErrOutOfRange, "index entry %d (file holds %d)", pos, uint64(st.Size())/indexEntryWidth)
	}
	var buf [indexEntryWidth]byte
	if _, err := f.ReadAt(buf[:], int64(pos*indexEntryWidth)); err != nil {
		return 0, errors.Wrapf(err, "can't read index entry %d", pos)
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

// writeOffsetAt records offset as index entry pos. Entries must be
// written contiguously: pos may extend the file by exactly one entry or
// overwrite an existing one, but never leave a gap.
func writeOffsetAt(f *os.File, pos uint64, offset uint64) error {
	st, err := f.Stat()
	if err != nil {
		return err
	}
	at := pos * indexEntryWidth
	if at > uint64(st.Size()) {
		return errors.Errorf("index entry %d at byte %d would leave a gap (file is %d bytes)", pos, at, st.Size())
	}
	var buf [indexEntryWidth]byte
	binary.BigEndian.PutUint64(buf[:], offset)
	if _, err := f.WriteAt(buf[:], int64(at)); err != nil {
		return errors.Wrapf(err, "can't write index entry %d", pos)
	}
	return nil
}
