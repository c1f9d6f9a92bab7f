package buffer

import (
	"iter"
	"os"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"filebuf/codec"
	"filebuf/compress"
	"filebuf/fsutil"
)

// FileBuffer is a persistent append-only buffer of elements of type E,
// stored across a data file and an index file. See the package doc for
// the on-disk layout and the concurrency model.
type FileBuffer[E any] struct {
	dataPath  string
	indexPath string
	codec     codec.Codec[E]
	method    compress.Method
	syncWrite bool
	log       *zap.Logger

	mu sync.RWMutex
	counters
}

var (
	// ensure we implement the buffer interfaces
	_ Buffer[string]   = (*FileBuffer[string])(nil)
	_ Appender[string] = (*FileBuffer[string])(nil)
	_ Resetter         = (*FileBuffer[string])(nil)
)

type options struct {
	indexPath  string
	method     compress.Method
	logger     *zap.Logger
	syncWrites bool
}

// Option configures a FileBuffer at open time.
type Option func(*options)

// WithIndexPath overrides the index-file path derived by IndexPathFor.
func WithIndexPath(path string) Option {
	return func(o *options) {
		o.indexPath = path
	}
}

// WithCompression selects the frame compression method. The default is
// compress.Gzip. The files carry no header recording the method, so
// every open of the same files must pass the same one.
func WithCompression(m compress.Method) Option {
	return func(o *options) {
		o.method = m
	}
}

// WithLogger sets the logger. The default is zap.NewNop().
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithSyncWrites makes Add and AddAll fsync the data file before index
// entries are written and the index file before returning. Much slower,
// but appended elements survive an OS crash.
func WithSyncWrites(sync bool) Option {
	return func(o *options) {
		o.syncWrites = sync
	}
}

// OpenFile opens a persistent buffer backed by the file pair rooted at
// dataPath. The index path defaults to IndexPathFor(dataPath). Parent
// directories are created if missing; the files themselves are created
// lazily by the first append.
//
// Construction fails hard if a parent directory can't be created or an
// existing data/index file is not writable.
func OpenFile[E any](dataPath string, c codec.Codec[E], opts ...Option) (*FileBuffer[E], error) {
	if dataPath == "" {
		return nil, errors.New("data file path is empty")
	}
	if c == nil {
		return nil, errors.New("must provide a codec")
	}
	opt := options{
		method: compress.Gzip,
		logger: zap.NewNop(),
	}
	for _, o := range opts {
		o(&opt)
	}
	indexPath := opt.indexPath
	if indexPath == "" {
		indexPath = IndexPathFor(dataPath)
	}
	if err := prepareFilePath(dataPath); err != nil {
		return nil, err
	}
	if err := prepareFilePath(indexPath); err != nil {
		return nil, err
	}
	b := &FileBuffer[E]{
		dataPath:  dataPath,
		indexPath: indexPath,
		codec:     c,
		method:    opt.method,
		syncWrite: opt.syncWrites,
		log:       opt.logger,
	}
	b.log.Debug("buffer opened",
		zap.String("dataPath", dataPath),
		zap.String("indexPath", indexPath),
		zap.Stringer("compression", opt.method))
	return b, nil
}

// DataPath returns the path of the data file.
func (b *FileBuffer[E]) DataPath() string { return b.dataPath }

// IndexPath returns the path of the index file.
func (b *FileBuffer[E]) IndexPath() string { return b.indexPath }

// Size returns the number of stored elements: the index file length
// divided by the entry width. A missing or unreadable index yields 0.
func (b *FileBuffer[E]) Size() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.sizeLocked()
}

func (b *FileBuffer[E]) sizeLocked() uint64 {
	f, err := os.Open(b.indexPath)
	if err != nil {
		if !os.IsNotExist(err) {
			b.log.Debug("couldn't open index file", zap.String("path", b.indexPath), zap.Error(err))
		}
		return 0
	}
	defer closeQuietly(f, b.log)
	n, err := indexCount(f)
	if err != nil {
		b.log.Debug("couldn't read element count", zap.String("path", b.indexPath), zap.Error(err))
		return 0
	}
	return n
}

// Get returns the element at index. The read path is failure-soft:
// out-of-range indexes, unreadable files, bounds violations and decode
// failures all return (zero, false) with a log line, never a panic.
func (b *FileBuffer[E]) Get(index uint64) (E, bool) {
	var zero E
	b.mu.RLock()
	defer b.mu.RUnlock()

	idx, err := os.Open(b.indexPath)
	if err != nil {
		b.readMisses.Add(1)
		if !os.IsNotExist(err) {
			b.log.Warn("couldn't open index file", zap.String("path", b.indexPath), zap.Error(err))
		}
		return zero, false
	}
	defer closeQuietly(idx, b.log)

	data, err := os.Open(b.dataPath)
	if err != nil {
		b.readMisses.Add(1)
		if !os.IsNotExist(err) {
			b.log.Warn("couldn't open data file", zap.String("path", b.dataPath), zap.Error(err))
		}
		return zero, false
	}
	defer closeQuietly(data, b.log)

	n, err := indexCount(idx)
	if err != nil {
		b.readMisses.Add(1)
		b.log.Warn("couldn't read element count", zap.String("path", b.indexPath), zap.Error(err))
		return zero, false
	}
	if index >= n {
		b.readMisses.Add(1)
		b.log.Info("index out of range", zap.Uint64("index", index), zap.Uint64("size", n))
		return zero, false
	}
	off, err := readOffsetAt(idx, index)
	if err != nil {
		b.readMisses.Add(1)
		b.log.Warn("couldn't read offset of element", zap.Uint64("index", index), zap.Error(err))
		return zero, false
	}
	payload, frameSize, err := readFrame(data, off, b.method)
	if err != nil {
		b.readMisses.Add(1)
		b.log.Warn("couldn't read element", zap.Uint64("index", index), zap.Uint64("offset", off), zap.Error(err))
		return zero, false
	}
	e, err := b.codec.Decode(payload)
	if err != nil {
		b.readMisses.Add(1)
		b.log.Warn("couldn't decode element", zap.Uint64("index", index),
			zap.Error(errors.Wrapf(ErrDecode, "element %d: %v", index, err)))
		return zero, false
	}
	b.reads.Add(1)
	b.bytesRead.Add(frameSize)
	return e, true
}

// Add appends one element at the logical end. The frame is written to
// the data file before its index entry, so a crash mid-append can at
// worst orphan an unindexed frame at the data file's tail, never record
// an index entry pointing past its end. Failures are logged and
// returned; the buffer stays usable.
func (b *FileBuffer[E]) Add(e E) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx, data, err := b.openForWrite()
	if err != nil {
		return b.failAppend(err, "couldn't open buffer files")
	}
	defer closeQuietly(idx, b.log)
	defer closeQuietly(data, b.log)

	n, err := indexCount(idx)
	if err != nil {
		return b.failAppend(err, "couldn't read element count")
	}
	off, err := nextOffset(idx, data, n)
	if err != nil {
		return b.failAppend(err, "couldn't compute append offset")
	}
	payload, err := b.codec.Encode(e)
	if err != nil {
		return b.failAppend(err, "couldn't encode element")
	}
	frameSize, err := writeFrame(data, off, payload, b.method)
	if err != nil {
		return b.failAppend(err, "couldn't write frame")
	}
	if b.syncWrite {
		if err := data.Sync(); err != nil {
			return b.failAppend(err, "couldn't sync data file")
		}
	}
	if err := writeOffsetAt(idx, n, off); err != nil {
		return b.failAppend(err, "couldn't write index entry")
	}
	if b.syncWrite {
		if err := idx.Sync(); err != nil {
			return b.failAppend(err, "couldn't sync index file")
		}
	}
	b.appends.Add(1)
	b.bytesWritten.Add(frameSize)
	b.log.Debug("element appended", zap.Uint64("index", n), zap.Uint64("offset", off), zap.Uint64("frameBytes", frameSize))
	return nil
}

// AddAll appends elements in order under a single lock acquisition, so
// the batch is atomic with respect to other writers and readers in this
// process. All frames are written first, then the index entries in
// order, which confines data/index divergence to "frames written,
// entries not yet appended". A failure between index appends can leave
// the batch partially indexed; the indexed prefix stays readable.
//
// Empty input is a no-op.
func (b *FileBuffer[E]) AddAll(elements ...E) error {
	if len(elements) == 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	idx, data, err := b.openForWrite()
	if err != nil {
		return b.failAppend(err, "couldn't open buffer files")
	}
	defer closeQuietly(idx, b.log)
	defer closeQuietly(data, b.log)

	n, err := indexCount(idx)
	if err != nil {
		return b.failAppend(err, "couldn't read element count")
	}
	off, err := nextOffset(idx, data, n)
	if err != nil {
		return b.failAppend(err, "couldn't compute append offset")
	}

	var written uint64
	offsets := make([]uint64, len(elements))
	for i, e := range elements {
		offsets[i] = off
		payload, err := b.codec.Encode(e)
		if err != nil {
			return b.failAppend(err, "couldn't encode element")
		}
		frameSize, err := writeFrame(data, off, payload, b.method)
		if err != nil {
			return b.failAppend(err, "couldn't write frame")
		}
		off += frameSize
		written += frameSize
	}
	if b.syncWrite {
		if err := data.Sync(); err != nil {
			return b.failAppend(err, "couldn't sync data file")
		}
	}
	for i, curOff := range offsets {
		if err := writeOffsetAt(idx, n+uint64(i), curOff); err != nil {
			return b.failAppend(err, "couldn't write index entry")
		}
	}
	if b.syncWrite {
		if err := idx.Sync(); err != nil {
			return b.failAppend(err, "couldn't sync index file")
		}
	}
	b.appends.Add(uint64(len(elements)))
	b.bytesWritten.Add(written)
	b.log.Info("batch appended", zap.Int("count", len(elements)), zap.Uint64("size", n+uint64(len(elements))))
	return nil
}

// Reset deletes the data file, then the index file, returning the
// buffer to the empty state. Missing files are fine; other unlink
// failures are logged and the first one returned. The next Add
// recreates the files. Resetting an empty buffer is a no-op.
func (b *FileBuffer[E]) Reset() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var first error
	if err := fsutil.RemoveIfExists(b.dataPath); err != nil {
		b.log.Warn("couldn't delete data file", zap.String("path", b.dataPath), zap.Error(err))
		first = err
	}
	if err := fsutil.RemoveIfExists(b.indexPath); err != nil {
		b.log.Warn("couldn't delete index file", zap.String("path", b.indexPath), zap.Error(err))
		if first == nil {
			first = err
		}
	}
	return first
}

// IsFull always returns false: the buffer does no disk-space accounting.
func (b *FileBuffer[E]) IsFull() bool {
	return false
}

// All returns an iterator over index/element pairs in [0, Size()). The
// size is re-read before every step, so elements appended while
// iterating become visible; elements that can't be read are skipped.
// Restart by calling All again.
func (b *FileBuffer[E]) All() iter.Seq2[uint64, E] {
	return iterate[E](b)
}

// Iterator returns a cursor positioned before the first element.
func (b *FileBuffer[E]) Iterator() *Iterator[E] {
	return NewIterator[E](b)
}

// Stats returns a snapshot of the buffer's operation counters.
func (b *FileBuffer[E]) Stats() Stats {
	return b.collect()
}

// Snapshot runs fn with the buffer's file paths while holding the read
// lock, so fn sees a consistent view of the pair (no append or reset
// can run concurrently). fn must only read the files; calling back into
// the buffer's write operations would deadlock.
func (b *FileBuffer[E]) Snapshot(fn func(dataPath, indexPath string) error) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return fn(b.dataPath, b.indexPath)
}

// nextOffset computes where the next frame starts: 0 for an empty
// buffer, otherwise the end of element n-1's frame.
func nextOffset(idx, data *os.File, n uint64) (uint64, error) {
	if n == 0 {
		return 0, nil
	}
	prev, err := readOffsetAt(idx, n-1)
	if err != nil {
		return 0, err
	}
	frameLen, err := readFrameLength(data, prev)
	if err != nil {
		return 0, err
	}
	return prev + frameLenWidth + uint64(frameLen), nil
}

func (b *FileBuffer[E]) openForWrite() (idx, data *os.File, err error) {
	idx, err = os.OpenFile(b.indexPath, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, nil, err
	}
	data, err = os.OpenFile(b.dataPath, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		idx.Close()
		return nil, nil, err
	}
	return idx, data, nil
}

func (b *FileBuffer[E]) failAppend(err error, msg string) error {
	b.appendErrors.Add(1)
	b.log.Warn(msg, zap.Error(err))
	return errors.WithMessage(err, msg)
}

func closeQuietly(f *os.File, log *zap.Logger) {
	if f == nil {
		return
	}
	if err := f.Close(); err != nil {
		log.Debug("close failed", zap.String("path", f.Name()), zap.Error(err))
	}
}
