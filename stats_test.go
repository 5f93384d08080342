package tcpclient

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStatsSnapshotIsAtomicCopy(t *testing.T) {
	var s Stats
	s.addBytesSent(10)
	s.addBytesRecv(20)
	s.addDataEvent()
	s.addDisconnect(ReasonRemote)
	s.addRRResult(false, false)

	snap := s.snapshot()
	if snap.BytesSent != 10 || snap.BytesRecv != 20 || snap.DataEvents != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.Disconnects != 1 || snap.DisconnectsRemote != 1 {
		t.Fatalf("unexpected disconnect counters: %+v", snap)
	}
	if snap.RRCompleted != 1 {
		t.Fatalf("unexpected RR counters: %+v", snap)
	}
}

func TestStatsAddRRResultClassification(t *testing.T) {
	var s Stats
	s.addRRResult(true, false)
	s.addRRResult(false, true)
	s.addRRResult(false, false)
	snap := s.snapshot()
	if snap.RRTimedOut != 1 || snap.RRErrored != 1 || snap.RRCompleted != 1 {
		t.Fatalf("unexpected classification: %+v", snap)
	}
}

func TestStatsLoggerWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.csv")
	l := &StatsLogger{Path: path, Interval: time.Millisecond}

	var s Stats
	s.addBytesSent(5)
	if err := l.writeRow(s.snapshot()); err != nil {
		t.Fatalf("writeRow failed: %v", err)
	}
	s.addBytesSent(7)
	if err := l.writeRow(s.snapshot()); err != nil {
		t.Fatalf("writeRow failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("csv read failed: %v", err)
	}
	if len(rows) != 3 { // header + 2 data rows
		t.Fatalf("expected 3 rows (header + 2), got %d: %v", len(rows), rows)
	}
	if rows[0][0] != "Unix" {
		t.Fatalf("expected header row to start with Unix, got %v", rows[0])
	}
}

func TestStatsLoggerRunStopsOnSignal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.csv")
	l := &StatsLogger{Path: path, Interval: 10 * time.Millisecond}
	c := NewClient(nil)

	stop := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- l.Run(c, stop) }()

	time.Sleep(35 * time.Millisecond)
	close(stop)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Run did not stop after stop was closed")
	}
}

func TestStatsLoggerNoopWithoutPathOrInterval(t *testing.T) {
	l := &StatsLogger{}
	c := NewClient(nil)
	if err := l.Run(c, make(chan struct{})); err != nil {
		t.Fatalf("expected nil error for a disabled logger, got %v", err)
	}
}
