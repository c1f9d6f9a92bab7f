package buffer

import "errors"

var (
	// ErrOutOfRange means a requested index, offset or length exceeds
	// recorded file bounds. On the read path it degrades to an absent
	// result; the write path treats it as a corruption signal.
	ErrOutOfRange = errors.New("out of range")

	// ErrDecode means stored bytes couldn't be decompressed or decoded
	// back into an element.
	ErrDecode = errors.New("decode failed")
)
