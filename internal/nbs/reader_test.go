package nbs

import (
	"context"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/Unidata/LDM-sub002/internal/logx"
	"github.com/Unidata/LDM-sub002/internal/metrics"
)

func testLogger(t *testing.T) *logx.Logger {
	t.Helper()
	log, err := logx.Open("-", logx.LevelDebug)
	if err != nil {
		t.Fatalf("logx.Open: %v", err)
	}
	t.Cleanup(func() { log.Close() })
	return log
}

// encodeFrame builds one on-the-wire FH+PDH+data frame, checksum included.
func encodeFrame(source byte, seq uint32, productSeq uint32, block uint16, data []byte) []byte {
	fh := make([]byte, fhSize)
	fh[0] = HDLCBroadcast
	fh[2] = 1
	fh[3] = fhSize
	fh[5] = CommandData
	fh[7] = source
	binary.BigEndian.PutUint32(fh[8:12], seq)
	binary.BigEndian.PutUint16(fh[14:16], checksumFH(fh))

	pdh := make([]byte, pdhMinSize)
	pdh[0] = pdhMinSize
	binary.BigEndian.PutUint16(pdh[4:6], pdhMinSize)
	binary.BigEndian.PutUint16(pdh[6:8], block)
	binary.BigEndian.PutUint16(pdh[10:12], uint16(len(data)))
	binary.BigEndian.PutUint32(pdh[12:16], productSeq)

	out := append([]byte{}, fh...)
	out = append(out, pdh...)
	out = append(out, data...)
	return out
}

func TestFrameReaderReadLoopDecodesFrames(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	var got []FrameHeader
	r := &FrameReader{
		Addr: "test",
		Submit: func(fh FrameHeader, pdh ProductDefinitionHeader, raw []byte) {
			got = append(got, fh)
		},
		Counters: &metrics.Counters{},
		Log:      testLogger(t),
	}

	frames := [][]byte{
		encodeFrame(1, 100, 1, 0, []byte("hello")),
		encodeFrame(1, 101, 1, 1, []byte("world")),
	}

	done := make(chan error, 1)
	go func() { done <- r.readLoop(context.Background(), clientConn) }()

	go func() {
		for _, f := range frames {
			serverConn.Write(f)
		}
		time.Sleep(20 * time.Millisecond)
		serverConn.Close()
	}()

	<-done

	if len(got) != 2 {
		t.Fatalf("expected 2 frames decoded, got %d", len(got))
	}
	if got[0].SequenceNumber != 100 || got[1].SequenceNumber != 101 {
		t.Fatalf("unexpected sequence numbers: %+v", got)
	}
}

func TestFrameReaderResyncsAfterGarbage(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	var got []FrameHeader
	r := &FrameReader{
		Addr: "test",
		Submit: func(fh FrameHeader, pdh ProductDefinitionHeader, raw []byte) {
			got = append(got, fh)
		},
		Counters: &metrics.Counters{},
		Log:      testLogger(t),
	}

	good := encodeFrame(1, 200, 1, 0, []byte("payload"))

	// A sync-byte-led header whose checksum field is deliberately wrong, so
	// syncAndReadFH has to slide its window byte-by-byte past it (and count
	// an invalid checksum) before it locks back onto good's real FH.
	badFH := make([]byte, fhSize)
	badFH[0] = HDLCBroadcast
	binary.BigEndian.PutUint16(badFH[14:16], checksumFH(badFH)+1)

	done := make(chan error, 1)
	go func() { done <- r.readLoop(context.Background(), clientConn) }()

	go func() {
		serverConn.Write(badFH)
		serverConn.Write(good)
		time.Sleep(20 * time.Millisecond)
		serverConn.Close()
	}()

	<-done

	if len(got) != 1 {
		t.Fatalf("expected to resync and decode exactly 1 frame, got %d", len(got))
	}
	if got[0].SequenceNumber != 200 {
		t.Fatalf("unexpected sequence number: %+v", got[0])
	}
	if r.Counters.Snapshot().InvalidChecksums == 0 {
		t.Fatalf("expected at least one invalid-checksum count from the garbage prefix")
	}
}
