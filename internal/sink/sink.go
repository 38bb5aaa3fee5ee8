// Package sink implements the blender's downstream interface (spec 6): a
// POSIX named pipe opened write-only, or standard output.
package sink

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Sink accepts a frame's wire bytes and reports a hard write failure.
// Write failures are fatal to the process per spec 4.4 — there is no
// partial/torn frame output, so a Sink never partially writes.
type Sink interface {
	Write(b []byte) error
	Close() error
}

// DefaultPipePath is the default FIFO path (spec 6).
const DefaultPipePath = "/tmp/noaaportIngesterPipe"

// fileSink writes whole frames back-to-back to an *os.File, used for both
// the FIFO and the stdout sink.
type fileSink struct {
	f io.WriteCloser
}

func (s *fileSink) Write(b []byte) error {
	n, err := s.f.Write(b)
	if err != nil {
		return errors.Wrap(err, "sink: write")
	}
	if n != len(b) {
		return errors.Errorf("sink: short write: wrote %d of %d bytes", n, len(b))
	}
	return nil
}

func (s *fileSink) Close() error {
	return s.f.Close()
}

// OpenFIFO creates path as a POSIX FIFO if it does not already exist, then
// opens it write-only with mode 0644, per spec section 6. Opening a FIFO
// write-only blocks until a reader attaches; this is the intended
// behavior — the downstream ingester is expected to already be reading.
func OpenFIFO(path string) (Sink, error) {
	if err := unix.Mkfifo(path, 0644); err != nil && !os.IsExist(err) {
		return nil, errors.Wrapf(err, "sink: mkfifo %q", path)
	}
	f, err := os.OpenFile(path, os.O_WRONLY, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "sink: open %q", path)
	}
	return &fileSink{f: f}, nil
}

// OpenStdout wires the sink to the process's standard output, for the
// stdout-configured mode (the -stdout flag) mentioned in spec section 6.
func OpenStdout() Sink {
	return &fileSink{f: os.Stdout}
}
