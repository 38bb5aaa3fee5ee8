package blender

import (
	"context"
	"runtime"

	"github.com/pkg/errors"

	"github.com/Unidata/LDM-sub002/internal/buffer"
	"github.com/Unidata/LDM-sub002/internal/logx"
	"github.com/Unidata/LDM-sub002/internal/sink"
)

// Writer drains the shared buffer in key order and writes each frame to
// the downstream sink (spec 4.4). Any sink write failure is fatal; Run
// returns that error so the caller can exit the process non-zero.
type Writer struct {
	Buffer *buffer.CircularFrameBuffer
	Sink   sink.Sink
	Log    *logx.Logger
}

// Run elevates its own scheduling priority, then loops
// frame <- buffer.GetOldest(); sink.Write(frame) until ctx is cancelled or
// a write fails.
func (w *Writer) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	if err := elevatePriority(priorityWriter); err != nil {
		w.Log.Warnf("writer: priority elevation failed: %v", err)
	}

	for {
		frame, ok := w.Buffer.GetOldest(ctx)
		if !ok {
			return nil
		}
		if err := w.Sink.Write(frame.Bytes); err != nil {
			return errors.Wrap(err, "writer: sink write failed")
		}
	}
}
