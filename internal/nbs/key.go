package nbs

// UplinkTracker stamps a monotonically increasing uplink id on frames,
// advancing it every time FrameHeader.Source changes from the previously
// observed value. It holds no lock of its own and is not safe for
// concurrent use by itself; the buffer is the only place uplink ids are actually minted, guarded by its
// own mutex (spec 5, "uplink_id counter is process-global but updated only
// inside the buffer under its mutex") — this type supplies the arithmetic,
// the buffer supplies the lock.
type UplinkTracker struct {
	have    bool
	current byte
	id      uint64
}

// Observe advances the tracker's id if source differs from the previously
// seen source, and returns the uplink id to stamp on the incoming frame.
// A reverting source value still advances the counter.
func (t *UplinkTracker) Observe(source byte) uint64 {
	if !t.have || source != t.current {
		if t.have {
			t.id++
		}
		t.current = source
		t.have = true
	}
	return t.id
}

// OrderingKey is the total order over frames spanning uplink, MGS, and
// data-server changes (spec 4.2).
type OrderingKey struct {
	UplinkID       uint64
	Source         byte
	SequenceNumber uint32 // FH.sequence_number
	ProductSeq     uint32 // PDH.product_sequence_number
	BlockNumber    uint16 // PDH.block_number
	RevealTime     int64  // unix nanos; not part of the dedup/order key
}

// WithoutRevealTime returns a copy suitable for equality-based dedup
// comparisons (invariant 1: dedup key excludes reveal_time).
func (k OrderingKey) WithoutRevealTime() OrderingKey {
	k.RevealTime = 0
	return k
}

// modularCmp32 and modularCmp16 compare two values of a given bit width the way spec 4.2
// requires: if the raw difference exceeds half the modulus, the larger
// raw value is actually "before" the smaller one (wraparound).
func modularCmp32(a, b uint32) int {
	if a == b {
		return 0
	}
	d := a - b // wrapping subtraction
	if d == 0 {
		return 0
	}
	if d > (1 << 31) {
		return -1
	}
	return 1
}

func modularCmp16(a, b uint16) int {
	if a == b {
		return 0
	}
	d := a - b
	if d > (1 << 15) {
		return -1
	}
	return 1
}

func cmpUplink(a, b uint64) int {
	switch {
	case a == b:
		return 0
	case a < b:
		return -1
	default:
		return 1
	}
}

// Compare implements the total order of spec 4.2. It returns a negative
// number if l is ordered before r, 0 if the keys are equal (duplicates),
// and a positive number if l is ordered after r.
func Compare(l, r OrderingKey) int {
	u := cmpUplink(l.UplinkID, r.UplinkID)
	if u != 0 {
		// Rule 2: u < 0 means the left key's uplink predates the right's,
		// unconditionally — an NCF change is assumed to dwarf any gap a
		// sequence/product/block comparison could otherwise express.
		return u
	}

	p := modularCmp32(l.ProductSeq, r.ProductSeq)
	b := modularCmp16(l.BlockNumber, r.BlockNumber)
	f := modularCmp32(l.SequenceNumber, r.SequenceNumber)

	// Rule 3: data-server switch. product_sequence_number only ever resets
	// backward when the data server itself changed (MGS switches leave it
	// incrementing normally), so p and f disagreeing in sign is itself the
	// signal; fh_seq is the one of the two that keeps counting normally
	// across that boundary, so it wins. Checked before rule 1 so the order
	// stays antisymmetric: evaluating the pair in either direction flips
	// the sign of both p and f together, so the same branch fires both
	// ways and agrees on which side is smaller.
	if p != 0 && f != 0 && (p < 0) != (f < 0) {
		return f
	}
	// Rule 1: normal stream order (also covers MGS switches, which ignore f
	// entirely whenever product_seq and fh_seq agree in sign).
	if p < 0 || (p == 0 && b < 0) {
		return -1
	}
	if p > 0 || (p == 0 && b > 0) {
		return 1
	}
	return 0
}

// Less reports l < r under the total order.
func Less(l, r OrderingKey) bool {
	return Compare(l, r) < 0
}

// Equal reports whether l and r denote the same frame for deduplication,
// ignoring RevealTime (invariant 1).
func Equal(l, r OrderingKey) bool {
	return Compare(l.WithoutRevealTime(), r.WithoutRevealTime()) == 0
}

// IsImmediateSuccessor reports whether next is the conservative immediate
// successor of last (spec 4.3): same uplink and either the next block of
// the same product, or block 0 of the next product. Implementations may
// treat only these two cases as immediate; anything else falls back to the
// reveal-time wait, which only costs latency, never correctness.
func IsImmediateSuccessor(last, next OrderingKey) bool {
	if next.UplinkID != last.UplinkID {
		return false
	}
	sameProduct := modularCmp32(next.ProductSeq, last.ProductSeq) == 0
	if sameProduct && modularCmp16(next.BlockNumber, last.BlockNumber+1) == 0 {
		return true
	}
	nextProduct := modularCmp32(next.ProductSeq, last.ProductSeq+1) == 0
	if nextProduct && next.BlockNumber == 0 {
		return true
	}
	return false
}
