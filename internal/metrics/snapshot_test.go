package metrics

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSnapshotWriterWritesHeaderAndRow(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "counters.csv")

	c := &Counters{}
	c.IncLate()
	c.IncDuplicate()
	c.IncDuplicate()

	w := &SnapshotWriter{Path: path, Interval: 10 * time.Millisecond, Counters: c}
	ctx, cancel := context.WithTimeout(context.Background(), 35*time.Millisecond)
	defer cancel()
	if err := w.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) < 2 {
		t.Fatalf("expected a header row plus at least one data row, got %d rows", len(rows))
	}
	if rows[0][0] != "unix" {
		t.Fatalf("expected header row, got %v", rows[0])
	}
	if rows[1][1] != "1" || rows[1][2] != "2" {
		t.Fatalf("expected late=1 duplicate=2 in first data row, got %v", rows[1])
	}
}

func TestSnapshotWriterDisabledByZeroPath(t *testing.T) {
	w := &SnapshotWriter{Path: "", Interval: time.Millisecond, Counters: &Counters{}}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	if err := w.Run(ctx); err != nil {
		t.Fatalf("expected no error when disabled, got %v", err)
	}
}

func TestSnapshotWriterDisabledByZeroInterval(t *testing.T) {
	w := &SnapshotWriter{Path: filepath.Join(t.TempDir(), "x.csv"), Interval: 0, Counters: &Counters{}}
	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("expected no error when disabled, got %v", err)
	}
}
