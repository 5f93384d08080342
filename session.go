// The MIT License (MIT)
//
// # Copyright (c) 2016 xtaci
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package tcpclient

import (
	"sync"
	"sync/atomic"
	"time"
)

// sessionState mirrors the state machine of spec.md §4.5.
type sessionState int32

const (
	stateOpen sessionState = iota
	stateClosing
	stateClosed
)

// session is created on a successful Connect and destroyed exactly once,
// with a single Disconnect notification (spec.md §3 "Session").
type session struct {
	sock *socketHandle

	state int32 // sessionState, accessed atomically

	writeMu sync.Mutex // shared between Write and the RR write phase (invariant 7)

	readerActive int32 // 1 while the Stream Reader goroutine is draining the socket
	rrInFlight   int32 // CAS-guarded: at most one RR at a time (invariant 3)

	batchMu     sync.Mutex // guards chunkSize/readTimeout/reader below
	chunkSize   int
	readTimeout time.Duration
	batcher     *eventBatcher
	reader      *streamReader

	// idleSamples is only ever touched from within a single in-flight RR
	// call (guarded by rrInFlight's CAS), so it needs no separate lock:
	// the atomic CAS acquire/release of rrInFlight is itself the
	// happens-before edge between successive RR calls.
	idleSamples []time.Duration

	teardownOnce sync.Once
	closed       chan struct{} // closed once teardown begins; unblocks pending RR waits
}

func newSession(sock *socketHandle, chunkSize int, readTimeout time.Duration) *session {
	return &session{
		sock:        sock,
		chunkSize:   chunkSize,
		readTimeout: readTimeout,
		closed:      make(chan struct{}),
	}
}

func (s *session) isOpen() bool {
	return sessionState(atomic.LoadInt32(&s.state)) == stateOpen
}

func (s *session) isReaderActive() bool {
	return atomic.LoadInt32(&s.readerActive) == 1
}

// Client is the public façade described in spec.md §4.5: it owns at most
// one Session, enforces the invariants in §3, and fans out events to the
// caller-supplied listener.
type Client struct {
	listener EventListener
	logger   *clientLogger

	connectMu sync.Mutex // single-flight: overlapping connects are serialized

	mu   sync.Mutex // guards sess below
	sess *session

	stats Stats
}

// NewClient constructs a Client that reports events to listener (may be
// nil, in which case events are simply dropped).
func NewClient(listener EventListener) *Client {
	return &Client{
		listener: listener,
		logger:   newClientLogger(nil, false),
	}
}

// SetLogOutput redirects the client's diagnostic log, mirroring kcptun's
// own "-log" flag (client/main.go: `log.SetOutput(f)`). Pass nil to
// restore the default (stderr).
func (c *Client) SetLogOutput(w logWriter, quiet bool) {
	c.logger = newClientLogger(w, quiet)
}

func (c *Client) currentSession() *session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess
}

// Connect tears down any prior session (emitting Manual only if one
// existed) and dials a new one. Overlapping Connect calls are serialized.
func (c *Client) Connect(params ConnectParams) error {
	c.connectMu.Lock()
	defer c.connectMu.Unlock()

	if prior := c.currentSession(); prior != nil {
		c.teardown(prior, ReasonManual, nil)
	}

	p := params.withDefaults()
	sock, err := dialSocket(p)
	if err != nil {
		// Connect timeouts/failures never emit a Disconnect: no session
		// ever existed (spec.md §7, §8 boundary behaviors).
		return err
	}

	sess := newSession(sock, DefaultChunkSize, DefaultReadTimeout)
	atomic.StoreInt32(&sess.state, int32(stateOpen))
	sess.batcher = newEventBatcher(sess.chunkSize, func(b []byte) {
		c.stats.addBytesRecv(len(b))
		c.stats.addDataEvent()
		if c.listener != nil {
			c.listener.OnData(DataEvent{Data: b})
		}
	})

	c.mu.Lock()
	c.sess = sess
	c.mu.Unlock()

	c.logger.Printf("connected to %s:%d", p.Host, p.Port)
	return nil
}

// Disconnect is idempotent: it stops the reader, flushes the batcher,
// closes the socket, and emits Manual iff a session existed.
func (c *Client) Disconnect() {
	sess := c.currentSession()
	if sess == nil {
		return
	}
	c.teardown(sess, ReasonManual, nil)
}

// IsConnected uses the health probe of spec.md §4.1 and may itself
// trigger a Disconnect if it observes peer EOF or a fatal error.
func (c *Client) IsConnected() bool {
	sess := c.currentSession()
	if sess == nil || !sess.isOpen() {
		return false
	}
	if sess.isReaderActive() || atomic.LoadInt32(&sess.rrInFlight) == 1 {
		return true
	}

	n, err := sess.sock.peek()
	switch {
	case err == errWouldBlock:
		return true
	case err == nil && n == 0:
		c.teardown(sess, ReasonRemote, nil)
		return false
	case err == nil:
		return true
	default:
		c.teardown(sess, ReasonError, err)
		return false
	}
}

// IsReading reports whether the Stream Reader is active on an open
// session.
func (c *Client) IsReading() bool {
	sess := c.currentSession()
	return sess != nil && sess.isOpen() && sess.isReaderActive()
}

// Write sends bytes under the shared write lock; it fails fast with
// NotConnected/Busy rather than racing the RR write phase.
func (c *Client) Write(data []byte) (int, error) {
	sess := c.currentSession()
	if sess == nil || !sess.isOpen() {
		return 0, errNotConnected
	}
	if atomic.LoadInt32(&sess.rrInFlight) == 1 {
		return 0, errBusy
	}

	sess.writeMu.Lock()
	defer sess.writeMu.Unlock()

	deadline := time.Now().Add(30 * time.Second)
	n, err := sess.sock.write(data, deadline)
	if err != nil {
		kind := KindIOError
		if err == errPeerReset {
			c.teardown(sess, ReasonRemote, nil)
		} else {
			c.teardown(sess, ReasonError, err)
		}
		return n, wrapErr(kind, "write", err)
	}
	c.stats.addBytesSent(n)
	return n, nil
}

// StartRead is idempotent: a second call returns the already-active
// status without reconfiguring (spec.md §4.3/§8).
func (c *Client) StartRead(params StartReadParams) (bool, error) {
	sess := c.currentSession()
	if sess == nil || !sess.isOpen() {
		return false, errNotConnected
	}
	if sess.isReaderActive() {
		return true, nil
	}

	p := params.withDefaults()

	sess.batchMu.Lock()
	sess.chunkSize = p.ChunkSize
	sess.readTimeout = p.ReadTimeout
	sess.batcher.reset(p.ChunkSize)
	sess.batchMu.Unlock()

	c.startReaderLocked(sess)
	return true, nil
}

// startReaderLocked launches the Stream Reader goroutine. Caller must not
// hold sess.batchMu: this acquires it itself while reading the batcher
// settings and storing sess.reader. sess.reader/readerActive are only ever
// mutated from the Coordinator (never from the reader goroutine itself).
func (c *Client) startReaderLocked(sess *session) {
	sess.batchMu.Lock()
	rt := sess.readTimeout
	batcher := sess.batcher
	sess.batchMu.Unlock()

	r := newStreamReader(sess.sock, batcher, rt, func(reason DisconnectReason, err error) {
		c.teardown(sess, reason, err)
	})
	sess.batchMu.Lock()
	sess.reader = r
	sess.batchMu.Unlock()
	atomic.StoreInt32(&sess.readerActive, 1)
	r.start()
}

// StopRead is idempotent; it flushes any pending batch before returning.
func (c *Client) StopRead() bool {
	sess := c.currentSession()
	if sess == nil {
		return true
	}
	c.stopReaderAndFlush(sess)
	return true
}

func (c *Client) stopReaderAndFlush(sess *session) {
	sess.batchMu.Lock()
	r := sess.reader
	sess.reader = nil
	batcher := sess.batcher
	sess.batchMu.Unlock()

	if r != nil {
		r.stop()
	}
	atomic.StoreInt32(&sess.readerActive, 0)
	if batcher != nil {
		batcher.flushNow()
	}
}

// SetReadTimeout updates the Stream Reader's idle tick for future
// iterations only (spec.md §5).
func (c *Client) SetReadTimeout(d time.Duration) {
	sess := c.currentSession()
	if sess == nil {
		return
	}
	sess.batchMu.Lock()
	sess.readTimeout = d
	if sess.reader != nil {
		sess.reader.setReadTimeout(d)
	}
	sess.batchMu.Unlock()
}

// Stats returns a point-in-time snapshot of cumulative counters
// (spec.md supplement: not a named operation, read-only, no contract
// impact on any operation above).
func (c *Client) Stats() Stats {
	return c.stats.snapshot()
}

// teardown runs the one-shot close sequence for sess: stop the reader,
// flush the batcher, close the socket, and emit exactly one Disconnect
// event. Safe to call concurrently and redundantly (e.g. the reader and
// an in-flight RR both observing EOF): only the first caller does work.
func (c *Client) teardown(sess *session, reason DisconnectReason, cause error) {
	sess.teardownOnce.Do(func() {
		atomic.StoreInt32(&sess.state, int32(stateClosing))
		close(sess.closed)

		c.stopReaderAndFlush(sess)
		sess.sock.close()

		atomic.StoreInt32(&sess.state, int32(stateClosed))

		c.mu.Lock()
		if c.sess == sess {
			c.sess = nil
		}
		c.mu.Unlock()

		c.stats.addDisconnect(reason)
		if reason == ReasonError {
			c.logger.Printf("disconnected: %s (%v)", reason, cause)
		} else {
			c.logger.Printf("disconnected: %s", reason)
		}
		if c.listener != nil {
			c.listener.OnDisconnect(DisconnectEvent{Reason: reason, Err: cause})
		}
	})
}
