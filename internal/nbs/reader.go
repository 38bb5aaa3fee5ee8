package nbs

import (
	"bufio"
	"context"
	"io"
	"net"
	"time"

	"github.com/Unidata/LDM-sub002/internal/logx"
	"github.com/Unidata/LDM-sub002/internal/metrics"
)

// ReconnectDelay is how long a FrameReader sleeps before redialing a
// fanout server after losing the connection (spec 4.1 reconnect_policy).
const ReconnectDelay = 60 * time.Second

// FrameSubmitFunc receives a fully validated frame's decoded headers and
// its raw wire bytes. Implemented by the shared buffer's Add in the
// blender package; kept as a function type here so this package never
// needs to import the buffer package.
type FrameSubmitFunc func(fh FrameHeader, pdh ProductDefinitionHeader, raw []byte)

// FrameReader owns one TCP connection to one upstream fanout server and
// feeds validated frames to Submit (spec 4.1).
type FrameReader struct {
	Addr     string
	Submit   FrameSubmitFunc
	Counters *metrics.Counters
	Log      *logx.Logger
	Dialer   net.Dialer

	desyncActive bool
}

// NewFrameReader builds a reader for one upstream endpoint.
func NewFrameReader(addr string, submit FrameSubmitFunc, counters *metrics.Counters, log *logx.Logger) *FrameReader {
	return &FrameReader{Addr: addr, Submit: submit, Counters: counters, Log: log}
}

// Run dials Addr and decodes frames from it until ctx is cancelled. On any
// connection loss it waits ReconnectDelay and redials indefinitely — this
// method returns only when ctx is done; it never gives up on its upstream.
func (r *FrameReader) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		conn, err := r.Dialer.DialContext(ctx, "tcp", r.Addr)
		if err != nil {
			r.Log.Warnf("%s: dial failed: %v", r.Addr, err)
			if !sleepCtx(ctx, ReconnectDelay) {
				return
			}
			continue
		}
		r.Log.Infof("%s: connected", r.Addr)

		done := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				conn.Close()
			case <-done:
			}
		}()

		err = r.readLoop(ctx, conn)
		close(done)
		conn.Close()
		if ctx.Err() != nil {
			return
		}
		r.Log.Warnf("%s: connection lost: %v", r.Addr, err)
		if !sleepCtx(ctx, ReconnectDelay) {
			return
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// noteDesync logs at most one "synchronizing" notice per desync episode
// (spec 4.1 step 1) and marks the episode active.
func (r *FrameReader) noteDesync() {
	if !r.desyncActive {
		r.desyncActive = true
		r.Log.Warnf("%s: synchronizing", r.Addr)
	}
}

// noteResynced closes out a desync episode, counting it exactly once.
func (r *FrameReader) noteResynced() {
	if r.desyncActive {
		r.desyncActive = false
		r.Counters.IncResyncEvent()
	}
}

// readLoop runs the spec 4.1 framing algorithm against one connection
// until a read fails or ctx is cancelled.
func (r *FrameReader) readLoop(ctx context.Context, conn net.Conn) error {
	br := bufio.NewReaderSize(conn, 64*1024)
	for {
		if ctx.Err() != nil {
			return nil
		}
		fhBuf, err := r.syncAndReadFH(br)
		if err != nil {
			return err
		}
		fh := decodeFrameHeader(fhBuf)

		pdhBuf, err := r.readPDHPrefix(br)
		if err != nil {
			return err
		}
		pdh, decErr := decodePDH(pdhBuf)
		if decErr != nil {
			r.noteDesync()
			continue
		}
		if int(pdh.Size) > 16 {
			extra := make([]byte, int(pdh.Size)-16)
			if _, err := io.ReadFull(br, extra); err != nil {
				return err
			}
			pdhBuf = append(pdhBuf, extra...)
		}

		var psh []byte
		wantsOption := pdh.HasOptionHeader()
		hasExtra := pdh.TotalSize > uint16(pdh.Size)
		switch {
		case wantsOption && hasExtra:
			psh = make([]byte, pdh.PSHLen())
			if _, err := io.ReadFull(br, psh); err != nil {
				return err
			}
		case wantsOption != hasExtra:
			r.Log.Warnf("%s: PDH option-header bit/total_size mismatch, skipping", r.Addr)
		}

		total := len(fhBuf) + len(pdhBuf) + len(psh) + int(pdh.DataBlockSize)
		if total > MaxFrame {
			r.Log.Warnf("%s: frame would exceed %d bytes, rejecting", r.Addr, MaxFrame)
			r.noteDesync()
			continue
		}

		data := make([]byte, pdh.DataBlockSize)
		if _, err := io.ReadFull(br, data); err != nil {
			return err
		}

		raw := make([]byte, 0, total)
		raw = append(raw, fhBuf...)
		raw = append(raw, pdhBuf...)
		raw = append(raw, psh...)
		raw = append(raw, data...)

		r.noteResynced()
		r.Submit(fh, pdh, raw)
	}
}

// syncAndReadFH locates the 0xFF sync byte and returns a validated,
// checksummed 16-byte FH buffer, sliding the window one byte at a time on
// checksum failure per spec 4.1 steps 1-2.
func (r *FrameReader) syncAndReadFH(br *bufio.Reader) ([]byte, error) {
	buf := make([]byte, 0, fhSize)
	for {
		b, err := br.ReadByte()
		if err != nil {
			return nil, err
		}
		if b != HDLCBroadcast {
			r.noteDesync()
			continue
		}
		buf = append(buf[:0], b)
		break
	}
	for {
		for len(buf) < fhSize {
			b, err := br.ReadByte()
			if err != nil {
				return nil, err
			}
			buf = append(buf, b)
		}
		if validChecksum(buf) && buf[0] == HDLCBroadcast {
			return buf, nil
		}
		r.Counters.IncInvalidChecksum()
		r.noteDesync()
		copy(buf, buf[1:])
		buf = buf[:fhSize-1]
	}
}

// readPDHPrefix reads the fixed 16-byte PDH prefix carrying Size,
// TransferType, TotalSize and the rest of the fields decodePDH interprets.
func (r *FrameReader) readPDHPrefix(br *bufio.Reader) ([]byte, error) {
	buf := make([]byte, pdhMinSize)
	if _, err := io.ReadFull(br, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
