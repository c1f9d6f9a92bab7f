package buffer

import "iter"

// Buffer is the read surface of a buffer.
type Buffer[E any] interface {
	// Size returns the number of stored elements.
	Size() uint64
	// Get returns the element at index, or (zero, false) if index is out
	// of range or the element can't be read.
	Get(index uint64) (E, bool)
	// All returns an iterator over index/element pairs in [0, Size()).
	All() iter.Seq2[uint64, E]
}

// Appender is the write surface of a buffer.
type Appender[E any] interface {
	// Add appends one element at the logical end.
	Add(e E) error
	// AddAll appends elements in order. Empty input is a no-op.
	AddAll(elements ...E) error
	// IsFull reports whether the buffer can't take more elements.
	IsFull() bool
}

// Resetter empties a buffer.
type Resetter interface {
	Reset() error
}
