package buffer

import (
	"encoding/binary"
	"math"
	"os"

	"github.com/pkg/errors"

	"filebuf/compress"
)

// Data file layout: a flat sequence of frames with no padding between
// them. Each frame is a 4-byte big-endian length N followed by N bytes
// of compressed payload, so the frame after offset o starts at o+4+N.
const frameLenWidth = 4

// readFrameLength returns the length field of the frame at off without
// touching payload bytes.
func readFrameLength(f *os.File, off uint64) (uint32, error) {
	st, err := f.Stat()
	if err != nil {
		return 0, err
	}
	size := uint64(st.Size())
	if off > size || size-off < frameLenWidth {
		return 0, errors.Wrapf(ErrOutOfRange, "no frame length at offset %d (file is %d bytes)", off, size)
	}
	var buf [frameLenWidth]byte
	if _, err := f.ReadAt(buf[:], int64(off)); err != nil {
		return 0, errors.Wrapf(err, "can't read frame length at offset %d", off)
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

// readFrame reads and decompresses the frame at off. It returns the
// payload and the on-disk frame size (length field plus compressed
// bytes). Bounds violations surface as ErrOutOfRange, decompression
// failures as ErrDecode.
func readFrame(f *os.File, off uint64, method compress.Method) ([]byte, uint64, error) {
	frameLen, err := readFrameLength(f, off)
	if err != nil {
		return nil, 0, err
	}
	st, err := f.Stat()
	if err != nil {
		return nil, 0, err
	}
	size := uint64(st.Size())
	if size-off-frameLenWidth < uint64(frameLen) {
		return nil, 0, errors.Wrapf(ErrOutOfRange, "frame at offset %d claims %d bytes (file is %d bytes)", off, frameLen, size)
	}
	buf := make([]byte, frameLen)
	if _, err := f.ReadAt(buf, int64(off+frameLenWidth)); err != nil {
		return nil, 0, errors.Wrapf(err, "can't read frame at offset %d", off)
	}
	payload, err := method.Decompress(buf)
	if err != nil {
		return nil, 0, errors.Wrapf(ErrDecode, "can't decompress frame at offset %d: %v", off, err)
	}
	return payload, frameLenWidth + uint64(frameLen), nil
}

// writeFrame compresses payload and writes it as a frame at off. It
// returns the on-disk frame size so the caller can compute the next
// offset. Every frame is compressed; none are stored raw.
func writeFrame(f *os.File, off uint64, payload []byte, method compress.Method) (uint64, error) {
	compressed, err := method.Compress(payload)
	if err != nil {
		return 0, errors.Wrap(err, "can't compress frame")
	}
	if uint64(len(compressed)) > math.MaxUint32 {
		return 0, errors.Errorf("compressed frame of %d bytes exceeds the 4-byte length field", len(compressed))
	}
	buf := make([]byte, frameLenWidth+len(compressed))
	binary.BigEndian.PutUint32(buf[:frameLenWidth], uint32(len(compressed)))
	copy(buf[frameLenWidth:], compressed)
	if _, err := f.WriteAt(buf, int64(off)); err != nil {
		return 0, errors.Wrapf(err, "can't write frame at offset %d", off)
	}
	return uint64(len(buf)), nil
}
