// Package buffer implements the CircularFrameBuffer: the single ordering
// and deduplication point for frames arriving from every redundant reader
// (spec 4.3). The original's two-table hash-indexed "run" buffer is
// replaced by a balanced ordered map (github.com/emirpasic/gods'
// red-black-tree-backed treemap, the same ordered-container family
// go-ethereum reaches for in this retrieval pack) keyed by OrderingKey,
// exactly the substitution spec section 9 calls for.
package buffer

import (
	"context"
	"sync"
	"time"

	"github.com/emirpasic/gods/maps/treemap"

	"github.com/Unidata/LDM-sub002/internal/metrics"
	"github.com/Unidata/LDM-sub002/internal/nbs"
)

// Result classifies the outcome of Add.
type Result int

const (
	Accepted Result = iota
	Duplicate
	Late
)

func (r Result) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case Duplicate:
		return "duplicate"
	case Late:
		return "late"
	default:
		return "unknown"
	}
}

// DefaultWarnThreshold is the depth at which CircularFrameBuffer starts
// warning about back-pressure (spec 4.3 "Size and pressure"); it has no
// hard meaning, only a signal that timeout outpaces consumption.
const DefaultWarnThreshold = 4096

func keyComparator(a, b interface{}) int {
	return nbs.Compare(a.(nbs.OrderingKey), b.(nbs.OrderingKey))
}

// CircularFrameBuffer is the temporally sorted map of pending frames
// described in spec 4.3. Zero value is not usable; construct with New.
type CircularFrameBuffer struct {
	timeout       time.Duration
	warnThreshold int
	counters      *metrics.Counters
	warnFn        func(depth int)

	mu                sync.Mutex
	tree              *treemap.Map
	lastEmittedKey    nbs.OrderingKey
	firstEmissionDone bool
	uplink            nbs.UplinkTracker
	wake              chan struct{}
	warned            bool
}

// New creates an empty buffer. warnFn, if non-nil, is invoked (outside the
// lock) the first time the buffer's depth exceeds warnThreshold, and again
// each time it re-crosses the threshold after recovering — the "re-arming"
// supplement described in SPEC_FULL.md.
func New(timeout time.Duration, warnThreshold int, counters *metrics.Counters, warnFn func(depth int)) *CircularFrameBuffer {
	if warnThreshold <= 0 {
		warnThreshold = DefaultWarnThreshold
	}
	return &CircularFrameBuffer{
		timeout:       timeout,
		warnThreshold: warnThreshold,
		counters:      counters,
		warnFn:        warnFn,
		tree:          treemap.NewWith(keyComparator),
		wake:          make(chan struct{}),
	}
}

// notifyLocked wakes every goroutine blocked in GetOldest. Must hold mu.
func (b *CircularFrameBuffer) notifyLocked() {
	close(b.wake)
	b.wake = make(chan struct{})
}

// Add inserts a decoded frame, stamping its uplink id and reveal time, and
// reports whether it was accepted, a duplicate, or arrived late (spec 4.3).
func (b *CircularFrameBuffer) Add(now time.Time, fh nbs.FrameHeader, pdh nbs.ProductDefinitionHeader, raw []byte) (Result, nbs.OrderingKey) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := nbs.OrderingKey{
		UplinkID:       b.uplink.Observe(fh.Source),
		Source:         fh.Source,
		SequenceNumber: fh.SequenceNumber,
		ProductSeq:     pdh.ProductSequenceNumber,
		BlockNumber:    pdh.BlockNumber,
	}

	// Compare and Get both ignore RevealTime, so the key used for
	// dedup/ordering lookups and the key finally stored are the same
	// value, stamped with its reveal time before insertion.
	if _, found := b.tree.Get(key); found {
		b.counters.IncDuplicate()
		return Duplicate, key
	}
	if b.firstEmissionDone && nbs.Compare(key, b.lastEmittedKey) <= 0 {
		b.counters.IncLate()
		return Late, key
	}

	key.RevealTime = now.Add(b.timeout).UnixNano()
	frame := &nbs.Frame{FH: fh, PDH: pdh, Bytes: raw, Key: key}
	b.tree.Put(key, frame)
	b.notifyLocked()

	depth := b.tree.Size()
	if depth > b.warnThreshold {
		if !b.warned {
			b.warned = true
			b.counters.IncBufferWarning()
			if b.warnFn != nil {
				go b.warnFn(depth)
			}
		}
	} else {
		b.warned = false
	}

	return Accepted, key
}

// GetOldest blocks until a frame is ready to emit or ctx is cancelled,
// following spec 4.3's fast-path/slow-path rule: the immediate successor
// of last_emitted_key is returned right away; anything else waits until
// its reveal_time, a smaller key arrives, or it becomes the successor.
func (b *CircularFrameBuffer) GetOldest(ctx context.Context) (*nbs.Frame, bool) {
	for {
		b.mu.Lock()
		if b.tree.Empty() {
			wake := b.wake
			b.mu.Unlock()
			select {
			case <-wake:
				continue
			case <-ctx.Done():
				return nil, false
			}
		}

		minKey, minVal := b.tree.Min()
		frame := minVal.(*nbs.Frame)
		key := minKey.(nbs.OrderingKey)

		if !b.firstEmissionDone || nbs.IsImmediateSuccessor(b.lastEmittedKey, key) {
			b.tree.Remove(minKey)
			b.lastEmittedKey = key
			b.firstEmissionDone = true
			b.mu.Unlock()
			return frame, true
		}

		deadline := time.Unix(0, key.RevealTime)
		wake := b.wake
		b.mu.Unlock()

		timer := time.NewTimer(time.Until(deadline))
		select {
		case <-wake:
			timer.Stop()
			continue
		case <-ctx.Done():
			timer.Stop()
			return nil, false
		case <-timer.C:
			b.mu.Lock()
			// Re-peek: the entry may have been superseded by a smaller
			// key, or already drained, while the timer was armed.
			if b.tree.Empty() {
				b.mu.Unlock()
				continue
			}
			mk2, mv2 := b.tree.Min()
			k2 := mk2.(nbs.OrderingKey)
			if time.Until(time.Unix(0, k2.RevealTime)) > 0 {
				// wake and timer.C fired in the same instant; the min was
				// replaced by a freshly Add-ed key whose reveal_time
				// hasn't actually elapsed yet. Loop and re-arm instead of
				// emitting it early.
				b.mu.Unlock()
				continue
			}
			f2 := mv2.(*nbs.Frame)
			b.tree.Remove(mk2)
			b.lastEmittedKey = k2
			b.firstEmissionDone = true
			b.mu.Unlock()
			return f2, true
		}
	}
}

// Depth returns the current number of pending frames, for diagnostics.
func (b *CircularFrameBuffer) Depth() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tree.Size()
}
