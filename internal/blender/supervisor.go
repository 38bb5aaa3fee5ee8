package blender

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"github.com/Unidata/LDM-sub002/internal/buffer"
	"github.com/Unidata/LDM-sub002/internal/logx"
	"github.com/Unidata/LDM-sub002/internal/metrics"
	"github.com/Unidata/LDM-sub002/internal/nbs"
	"github.com/Unidata/LDM-sub002/internal/sink"
)

// minSnapshotInterval guards against a misconfigured tiny positive
// SnmpInterval flooding the filesystem with rotation churn.
const minSnapshotInterval = 1 * time.Second

// shutdownGrace bounds how long the Writer is allowed to keep draining
// already-reveal-eligible frames after a termination signal arrives,
// before the sink is closed out from under it (SPEC_FULL.md supplement 3:
// "graceful drain on shutdown").
const shutdownGrace = 2 * time.Second

// BlenderSupervisor owns process lifetime: it starts one FrameReader per
// upstream plus one Writer, and coordinates shutdown (spec 4.5).
type BlenderSupervisor struct {
	Config   Config
	Log      *logx.Logger
	Counters *metrics.Counters
	Sink     sink.Sink
	Buffer   *buffer.CircularFrameBuffer
	Writer   *Writer
	Readers  []*nbs.FrameReader
}

// New builds a supervisor from cfg: opens the sink, creates the buffer
// with the configured timeout, and builds one FrameReader per upstream
// endpoint (spec 4.5 steps 2-6).
func New(cfg Config, log *logx.Logger) (*BlenderSupervisor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var s sink.Sink
	var err error
	if cfg.UseStdout {
		s = sink.OpenStdout()
	} else {
		s, err = sink.OpenFIFO(cfg.PipePath)
		if err != nil {
			return nil, errors.Wrap(err, "supervisor: open sink")
		}
	}

	counters := &metrics.Counters{}
	sup := &BlenderSupervisor{
		Config:   cfg,
		Log:      log,
		Counters: counters,
		Sink:     s,
	}
	sup.Buffer = buffer.New(cfg.Timeout, buffer.DefaultWarnThreshold, counters, func(depth int) {
		log.Warnf("buffer depth %d exceeds warn threshold; frame latency timeout may be too high for downstream throughput", depth)
	})
	sup.Writer = &Writer{Buffer: sup.Buffer, Sink: s, Log: log}

	for _, addr := range cfg.Upstreams {
		r := nbs.NewFrameReader(addr, func(fh nbs.FrameHeader, pdh nbs.ProductDefinitionHeader, raw []byte) {
			result, key := sup.Buffer.Add(time.Now(), fh, pdh, raw)
			if log.Level() >= logx.LevelDebug {
				log.Debugf("%s: %s frame source=%d seq=%d product=%d block=%d uplink=%d", addr, result, fh.Source, fh.SequenceNumber, pdh.ProductSequenceNumber, pdh.BlockNumber, key.UplinkID)
			}
		}, counters, log)
		sup.Readers = append(sup.Readers, r)
	}

	return sup, nil
}

// Run starts every reader and the writer, blocks until a termination
// signal or a fatal writer error, drains what it can, and returns the
// fatal error (if any) for main to translate into a process exit code.
func (s *BlenderSupervisor) Run(parentCtx context.Context) error {
	readersCtx, cancelReaders := context.WithCancel(parentCtx)
	defer cancelReaders()
	writerCtx, cancelWriter := context.WithCancel(parentCtx)
	defer cancelWriter()

	var wg sync.WaitGroup
	var fatalErr error
	var fatalOnce sync.Once
	fatalDone := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.Writer.Run(writerCtx); err != nil {
			s.Log.Errorf("writer: %+v", err)
			fatalOnce.Do(func() {
				fatalErr = err
				close(fatalDone)
			})
			cancelReaders()
			cancelWriter()
		}
	}()

	for _, r := range s.Readers {
		r := r
		wg.Add(1)
		go func() {
			defer wg.Done()
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			if err := elevatePriority(priorityReader); err != nil {
				s.Log.Warnf("%s: priority elevation failed: %v", r.Addr, err)
			}
			r.Run(readersCtx)
		}()
	}

	if s.Config.SnmpPath != "" && s.Config.SnmpInterval >= minSnapshotInterval {
		snap := &metrics.SnapshotWriter{Path: s.Config.SnmpPath, Interval: s.Config.SnmpInterval, Counters: s.Counters}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := snap.Run(readersCtx); err != nil {
				s.Log.Warnf("counter snapshot writer: %v", err)
			}
		}()
	}

	watchLogLevelSignals(s.Log)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, os.Interrupt)
	defer signal.Stop(sigCh)

	select {
	case <-sigCh:
		s.Log.Info("received termination signal, shutting down")
	case <-parentCtx.Done():
	case <-fatalDone:
	}

	cancelReaders()
	s.drain(writerCtx, cancelWriter)

	wg.Wait()
	if err := s.Sink.Close(); err != nil {
		s.Log.Warnf("sink close: %v", err)
	}

	// wg.Wait has already joined the writer goroutine, so any write to
	// fatalErr happens-before this read; no separate lock is needed.
	return fatalErr
}

// drain gives the Writer up to shutdownGrace to empty the buffer before
// its context is cancelled, so a clean shutdown loses as few
// already-ready frames as possible.
func (s *BlenderSupervisor) drain(writerCtx context.Context, cancelWriter context.CancelFunc) {
	if writerCtx.Err() != nil {
		return
	}
	deadline := time.NewTimer(shutdownGrace)
	defer deadline.Stop()
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-deadline.C:
			cancelWriter()
			return
		case <-ticker.C:
			if s.Buffer.Depth() == 0 {
				cancelWriter()
				return
			}
		}
	}
}
