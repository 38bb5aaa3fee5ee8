package metrics

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// SnapshotWriter periodically appends a Counters snapshot to a CSV file,
// rotating the filename through time.Format the way the teacher's SNMP
// logger rotates its own CSV dump. Operators who want a trend line for
// late/duplicate/resync rates without standing up a metrics endpoint can
// point this at a timestamp-templated path (e.g. "blender-2006-01-02.csv").
type SnapshotWriter struct {
	Path     string
	Interval time.Duration
	Counters *Counters
}

// Run blocks, writing one row every Interval until ctx is cancelled. A
// zero Path or Interval disables the writer entirely, matching the
// teacher's "path == '' || interval == 0" early return.
func (s *SnapshotWriter) Run(ctx context.Context) error {
	if s.Path == "" || s.Interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	header := []string{"unix", "late", "duplicate", "invalid_checksum", "resync", "buffer_warning"}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.writeRow(header); err != nil {
				return err
			}
		}
	}
}

func (s *SnapshotWriter) writeRow(header []string) error {
	dir, name := filepath.Split(s.Path)
	path := filepath.Join(dir, time.Now().Format(name))

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if stat, err := f.Stat(); err == nil && stat.Size() == 0 {
		if err := w.Write(header); err != nil {
			return err
		}
	}

	snap := s.Counters.Snapshot()
	row := []string{
		fmt.Sprint(time.Now().Unix()),
		fmt.Sprint(snap.LateFrames),
		fmt.Sprint(snap.DuplicateFrames),
		fmt.Sprint(snap.InvalidChecksums),
		fmt.Sprint(snap.ResyncEvents),
		fmt.Sprint(snap.BufferWarnings),
	}
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}
