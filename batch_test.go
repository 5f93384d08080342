package tcpclient

import (
	"bytes"
	"sync"
	"testing"
	"time"
)

func TestEventBatcherFlushesAfterMergeWindow(t *testing.T) {
	var mu sync.Mutex
	var got [][]byte
	b := newEventBatcher(4096, func(p []byte) {
		mu.Lock()
		got = append(got, p)
		mu.Unlock()
	})

	b.append([]byte("hello"))

	mu.Lock()
	if len(got) != 0 {
		mu.Unlock()
		t.Fatalf("expected no emit before the merge window elapses")
	}
	mu.Unlock()

	time.Sleep(mergeWindow + 20*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || !bytes.Equal(got[0], []byte("hello")) {
		t.Fatalf("expected one emitted chunk %q, got %v", "hello", got)
	}
}

func TestEventBatcherFlushesImmediatelyAtCap(t *testing.T) {
	var mu sync.Mutex
	emitted := 0
	b := newEventBatcher(mergeCap, func(p []byte) {
		mu.Lock()
		emitted += len(p)
		mu.Unlock()
	})

	b.append(bytes.Repeat([]byte{'x'}, mergeCap))

	mu.Lock()
	defer mu.Unlock()
	if emitted != mergeCap {
		t.Fatalf("expected immediate flush of %d bytes at cap, got %d", mergeCap, emitted)
	}
}

func TestEventBatcherSlicesByChunkSize(t *testing.T) {
	var got [][]byte
	b := newEventBatcher(4, func(p []byte) {
		got = append(got, append([]byte(nil), p...))
	})

	b.append([]byte("0123456789"))
	b.flushNow()

	want := [][]byte{[]byte("0123"), []byte("4567"), []byte("89")}
	if len(got) != len(want) {
		t.Fatalf("expected %d chunks, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if !bytes.Equal(got[i], want[i]) {
			t.Fatalf("chunk %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestEventBatcherFlushNowOnEmptyBufferIsNoop(t *testing.T) {
	calls := 0
	b := newEventBatcher(4096, func(p []byte) { calls++ })
	b.flushNow()
	if calls != 0 {
		t.Fatalf("expected no emit on an empty batcher")
	}
}

func TestEventBatcherResetClearsPendingData(t *testing.T) {
	calls := 0
	b := newEventBatcher(4096, func(p []byte) { calls++ })
	b.append([]byte("pending"))
	b.reset(2048)
	time.Sleep(mergeWindow + 20*time.Millisecond)
	if calls != 0 {
		t.Fatalf("expected reset to discard the pending buffer and cancel its timer")
	}
	if b.chunkSize != 2048 {
		t.Fatalf("expected reset to update chunkSize, got %d", b.chunkSize)
	}
}
