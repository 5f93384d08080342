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

// readBufSize is the reusable scratch buffer size for one read() call;
// a fresh copy is handed to the Event Batcher so the reused buffer can
// be overwritten by the next iteration (spec.md §4.3: "forward a fresh
// copy").
const readBufSize = 4096

// streamReader drains a socketHandle into an eventBatcher while active,
// the same single-goroutine-per-concern shape as smux's recvLoop: one
// loop, one reusable buffer, termination on EOF/fatal-error/cancel, and
// a sync.Once-guarded stop so cancelling twice is harmless.
type streamReader struct {
	sock    *socketHandle
	batcher *eventBatcher

	readTimeout int64 // time.Duration, accessed atomically (advisory idle tick)

	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once

	// onTerminate fires at most once, only when the reader itself
	// observes EOF or a fatal error (never on an explicit stop()).
	onTerminate func(DisconnectReason, error)
}

func newStreamReader(sock *socketHandle, batcher *eventBatcher, readTimeout time.Duration, onTerminate func(DisconnectReason, error)) *streamReader {
	r := &streamReader{
		sock:        sock,
		batcher:     batcher,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
		onTerminate: onTerminate,
	}
	atomic.StoreInt64(&r.readTimeout, int64(readTimeout))
	return r
}

func (r *streamReader) setReadTimeout(d time.Duration) {
	atomic.StoreInt64(&r.readTimeout, int64(d))
}

func (r *streamReader) idleTick() time.Duration {
	d := time.Duration(atomic.LoadInt64(&r.readTimeout))
	if d <= 0 {
		d = DefaultReadTimeout
	}
	if d > pollStep {
		d = pollStep
	}
	return d
}

func (r *streamReader) start() {
	go r.loop()
}

// stop cancels the reader and waits for its goroutine to exit. It never
// itself calls onTerminate: a manual stop (via StopRead or teardown) is
// not a disconnect-worthy event.
func (r *streamReader) stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	<-r.doneCh
}

func (r *streamReader) loop() {
	defer close(r.doneCh)

	buf := make([]byte, readBufSize)
	for {
		select {
		case <-r.stopCh:
			return
		default:
		}

		n, err := r.sock.read(buf, r.idleTick())
		switch {
		case err == nil && n > 0:
			fresh := make([]byte, n)
			copy(fresh, buf[:n])
			r.batcher.append(fresh)
		case err == nil && n == 0:
			// peer EOF: flush is handled by the Coordinator's teardown
			// sequence, which always flushes before emitting Disconnect.
			r.terminate(ReasonRemote, nil)
			return
		case err == errWouldBlock:
			// nothing arrived within this tick; loop and check stopCh again
		case err == errPeerReset:
			r.terminate(ReasonRemote, nil)
			return
		default:
			r.terminate(ReasonError, err)
			return
		}
	}
}

// terminate hands off to onTerminate on its own goroutine rather than
// calling it inline. onTerminate typically runs the Coordinator's
// teardown sequence, which calls stop() on this very reader and blocks
// on doneCh; calling it synchronously from loop() would therefore wait
// on a channel only loop() itself can close, deadlocking the reader (and,
// transitively, every other caller serialized behind the session's
// teardown sync.Once). Running it on a fresh goroutine lets loop() return
// and close doneCh independently of whatever onTerminate does.
func (r *streamReader) terminate(reason DisconnectReason, err error) {
	if r.onTerminate == nil {
		return
	}
	go r.onTerminate(reason, err)
}
