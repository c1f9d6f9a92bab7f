package buffer

import "sync/atomic"

// Stats is a snapshot of a buffer's operation counters.
type Stats struct {
	// Reads is the number of Get calls that returned an element.
	Reads uint64
	// ReadMisses is the number of Get calls that returned absent
	// (out of range, unreadable files, or decode failures).
	ReadMisses uint64
	// Appends is the number of elements successfully appended.
	Appends uint64
	// AppendErrors is the number of failed Add/AddAll operations.
	AppendErrors uint64
	// BytesRead and BytesWritten count on-disk frame bytes (length
	// prefix plus compressed payload), not decoded element bytes.
	BytesRead    uint64
	BytesWritten uint64
}

// counters hold per-buffer totals, updated without taking the buffer lock.
type counters struct {
	reads        atomic.Uint64
	readMisses   atomic.Uint64
	appends      atomic.Uint64
	appendErrors atomic.Uint64
	bytesRead    atomic.Uint64
	bytesWritten atomic.Uint64
}

func (c *counters) collect() Stats {
	return Stats{
		Reads:        c.reads.Load(),
		ReadMisses:   c.readMisses.Load(),
		Appends:      c.appends.Load(),
		AppendErrors: c.appendErrors.Load(),
		BytesRead:    c.bytesRead.Load(),
		BytesWritten: c.bytesWritten.Load(),
	}
}
