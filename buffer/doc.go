// Package buffer provides persistent, append-only buffers of serialized
// elements.
//
// # File layout
//
// A FileBuffer stores an ordered sequence of elements across two files:
//   - A data file: a flat sequence of frames, each a 4-byte big-endian
//     length followed by that many bytes of compressed, encoded payload.
//   - An index file: a flat, headerless array of 8-byte big-endian
//     offsets. Entry i is the byte offset of element i's frame in the
//     data file.
//
// Neither file has a header, magic number or version field. The element
// count is the index file length divided by 8. Elements are only ever
// appended; there is no update or delete of an individual element, only
// a whole-buffer Reset.
//
// # Concurrency and failure model
//
// Every operation takes a per-buffer reader/writer lock, opens the file
// handle(s) it needs, and closes them before releasing the lock. Handles
// are never cached across operations. One buffer instance is safe for
// concurrent use by many goroutines; multiple instances (in the same or
// different processes) on the same files are not supported.
//
// Read operations are failure-soft: Size returns 0 and Get returns
// (zero, false) on any I/O, bounds or decode failure, with a log line
// instead of an error. Write operations log and return the error. A
// frame is written before its index entry, so a crash mid-append can at
// worst leave an orphaned, unindexed frame at the tail of the data file,
// never an index entry pointing past its end.
//
// # Basic usage
//
//	buf, err := buffer.OpenFile("events.dat", codec.JSON[Event]{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	err = buf.Add(Event{Name: "started"})
//	// ...
//	for i, e := range buf.All() {
//	    // ...
//	}
//
// The package also provides Ring, an in-memory overwriting circular
// buffer with the same read surface.
package buffer
