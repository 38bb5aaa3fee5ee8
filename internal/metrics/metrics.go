// Package metrics holds the process-local counters spec section 7 calls
// for ("incremented but not exported"). There is no exporter here by
// design; Snapshot exists for logging and tests.
package metrics

import "sync/atomic"

// Counters tallies recoverable-error and pressure events across every
// reader and the buffer. Safe for concurrent use.
type Counters struct {
	lateFrames       uint64
	duplicateFrames  uint64
	invalidChecksums uint64
	resyncEvents     uint64
	bufferWarnings   uint64
}

func (c *Counters) IncLate()             { atomic.AddUint64(&c.lateFrames, 1) }
func (c *Counters) IncDuplicate()        { atomic.AddUint64(&c.duplicateFrames, 1) }
func (c *Counters) IncInvalidChecksum()  { atomic.AddUint64(&c.invalidChecksums, 1) }
func (c *Counters) IncResyncEvent()      { atomic.AddUint64(&c.resyncEvents, 1) }
func (c *Counters) IncBufferWarning()    { atomic.AddUint64(&c.bufferWarnings, 1) }

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	LateFrames       uint64
	DuplicateFrames  uint64
	InvalidChecksums uint64
	ResyncEvents     uint64
	BufferWarnings   uint64
}

func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		LateFrames:       atomic.LoadUint64(&c.lateFrames),
		DuplicateFrames:  atomic.LoadUint64(&c.duplicateFrames),
		InvalidChecksums: atomic.LoadUint64(&c.invalidChecksums),
		ResyncEvents:     atomic.LoadUint64(&c.resyncEvents),
		BufferWarnings:   atomic.LoadUint64(&c.bufferWarnings),
	}
}
