package nbs

import "testing"

func TestUplinkTrackerAdvancesOnSourceChange(t *testing.T) {
	var tr UplinkTracker
	if id := tr.Observe(1); id != 0 {
		t.Fatalf("first observation should be id 0, got %d", id)
	}
	if id := tr.Observe(1); id != 0 {
		t.Fatalf("same source should not advance id, got %d", id)
	}
	if id := tr.Observe(2); id != 1 {
		t.Fatalf("new source should advance id, got %d", id)
	}
	if id := tr.Observe(1); id != 2 {
		t.Fatalf("reverting source should still advance id, got %d", id)
	}
}

func key(uplink uint64, product uint32, block uint16, seq uint32) OrderingKey {
	return OrderingKey{UplinkID: uplink, ProductSeq: product, BlockNumber: block, SequenceNumber: seq}
}

func TestCompareNormalStreamOrder(t *testing.T) {
	// Scenario: single product, blocks delivered out of order by two readers.
	k0 := key(0, 1, 0, 100)
	k1 := key(0, 1, 1, 101)
	k3 := key(0, 1, 3, 103)
	if !Less(k0, k1) {
		t.Fatalf("block 0 should sort before block 1")
	}
	if !Less(k1, k3) {
		t.Fatalf("block 1 should sort before block 3")
	}
	if Less(k1, k0) {
		t.Fatalf("comparison must be antisymmetric")
	}
}

func TestCompareDuplicateIsEqual(t *testing.T) {
	a := key(0, 1, 2, 100)
	b := a
	b.RevealTime = 12345
	if !Equal(a, b) {
		t.Fatalf("keys differing only in RevealTime must compare equal")
	}
}

func TestCompareUplinkChangeDominates(t *testing.T) {
	// Scenario 4: NCF switch. New uplink, even with a "smaller" product/seq,
	// always sorts after the old uplink's frames.
	old := key(0, 500, 9, 900)
	newer := key(1, 1, 0, 1)
	if !Less(old, newer) {
		t.Fatalf("frames from a newer uplink must sort after older-uplink frames")
	}
	if Less(newer, old) {
		t.Fatalf("comparison must be antisymmetric across an uplink change")
	}
}

func TestCompareDataServerSwitchTrustsSequenceNumber(t *testing.T) {
	// Scenario 5: same uplink, FH.seqno continues 1001->1002, product_seq
	// resets 50->1 between them. Expected: key(1002) > key(1001), i.e. the
	// frame carrying the reset product_seq still sorts after.
	k1001 := key(0, 50, 0, 1001)
	k1002 := key(0, 1, 0, 1002)
	if !Less(k1001, k1002) {
		t.Fatalf("expected key(1001) < key(1002) across a product_seq reset")
	}
	if Less(k1002, k1001) {
		t.Fatalf("comparison must be antisymmetric across a product_seq reset")
	}
}

func TestCompareTotalOrderIsTransitiveAcrossReset(t *testing.T) {
	a := key(0, 48, 0, 1000)
	b := key(0, 50, 0, 1001)
	c := key(0, 1, 0, 1002)
	if !(Less(a, b) && Less(b, c) && Less(a, c)) {
		t.Fatalf("expected a < b < c with a < c, got cmp(a,b)=%d cmp(b,c)=%d cmp(a,c)=%d",
			Compare(a, b), Compare(b, c), Compare(a, c))
	}
}

func TestIsImmediateSuccessorNextBlock(t *testing.T) {
	last := key(0, 10, 4, 1000)
	next := key(0, 10, 5, 1001)
	if !IsImmediateSuccessor(last, next) {
		t.Fatalf("expected next block of the same product to be an immediate successor")
	}
}

func TestIsImmediateSuccessorNextProductBlockZero(t *testing.T) {
	last := key(0, 10, 9, 1009)
	next := key(0, 11, 0, 1010)
	if !IsImmediateSuccessor(last, next) {
		t.Fatalf("expected block 0 of the next product to be an immediate successor")
	}
}

func TestIsImmediateSuccessorFalseOnGap(t *testing.T) {
	last := key(0, 10, 4, 1000)
	next := key(0, 10, 6, 1002)
	if IsImmediateSuccessor(last, next) {
		t.Fatalf("a skipped block must not be treated as an immediate successor")
	}
}

func TestIsImmediateSuccessorFalseAcrossUplinkChange(t *testing.T) {
	last := key(0, 10, 9, 1009)
	next := key(1, 0, 0, 1)
	if IsImmediateSuccessor(last, next) {
		t.Fatalf("a different uplink must never be treated as an immediate successor")
	}
}
