package tcpclient

import (
	"net"
	"sync"
	"testing"
	"time"
)

func pairedSockets(t *testing.T) (*socketHandle, net.Conn, func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port

	serverConns := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err == nil {
			serverConns <- c
		}
	}()

	h, err := dialSocket(ConnectParams{Host: "127.0.0.1", Port: port, Timeout: time.Second})
	if err != nil {
		t.Fatalf("dialSocket: %v", err)
	}
	server := <-serverConns
	ln.Close()

	return h, server, func() {
		h.close()
		server.Close()
	}
}

func TestStreamReaderFeedsBatcher(t *testing.T) {
	h, server, cleanup := pairedSockets(t)
	defer cleanup()

	var mu sync.Mutex
	var got []byte
	batcher := newEventBatcher(4096, func(p []byte) {
		mu.Lock()
		got = append(got, p...)
		mu.Unlock()
	})

	terminated := make(chan DisconnectReason, 1)
	r := newStreamReader(h, batcher, 20*time.Millisecond, func(reason DisconnectReason, err error) {
		terminated <- reason
	})
	r.start()
	defer r.stop()

	if _, err := server.Write([]byte("hello")); err != nil {
		t.Fatalf("server write: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n >= 5 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	batcher.flushNow()

	mu.Lock()
	defer mu.Unlock()
	if string(got) != "hello" {
		t.Fatalf("expected batcher to receive %q, got %q", "hello", got)
	}
}

func TestStreamReaderTerminatesOnPeerEOF(t *testing.T) {
	h, server, cleanup := pairedSockets(t)
	defer cleanup()

	batcher := newEventBatcher(4096, func([]byte) {})
	terminated := make(chan DisconnectReason, 1)
	r := newStreamReader(h, batcher, 20*time.Millisecond, func(reason DisconnectReason, err error) {
		terminated <- reason
	})
	r.start()

	server.Close()

	select {
	case reason := <-terminated:
		if reason != ReasonRemote {
			t.Fatalf("expected ReasonRemote, got %v", reason)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for onTerminate")
	}
}

func TestStreamReaderStopDoesNotCallOnTerminate(t *testing.T) {
	h, _, cleanup := pairedSockets(t)
	defer cleanup()

	batcher := newEventBatcher(4096, func([]byte) {})
	called := false
	r := newStreamReader(h, batcher, 20*time.Millisecond, func(reason DisconnectReason, err error) {
		called = true
	})
	r.start()
	r.stop()

	if called {
		t.Fatalf("expected stop() to never invoke onTerminate")
	}
}

func TestStreamReaderIdleTickClampsAndDefaults(t *testing.T) {
	r := &streamReader{}
	r.setReadTimeout(0)
	// a zero timeout falls back to DefaultReadTimeout (1s), which is itself
	// clamped to pollStep.
	if got := r.idleTick(); got != pollStep {
		t.Fatalf("expected default idle tick clamped to pollStep %v, got %v", pollStep, got)
	}
	r.setReadTimeout(time.Hour)
	if got := r.idleTick(); got != pollStep {
		t.Fatalf("expected idle tick clamped to pollStep %v, got %v", pollStep, got)
	}
}
