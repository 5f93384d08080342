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
	"time"
)

// mergeWindow and mergeCap are the debounce window and size cap from
// spec.md §3/§4.2 ("Batch Buffer").
const (
	mergeWindow = 10 * time.Millisecond
	mergeCap    = 16 * 1024
)

// eventBatcher accumulates bytes handed to it by the Stream Reader and
// emits them as coalesced Data events, sliced to at most chunkSize bytes
// each, on a debounce window or a size cap (spec.md §4.2). Every flush is
// synchronous with respect to the caller: by the time append/flushNow
// returns, any emit() calls it triggered have already happened, which is
// what lets the Coordinator guarantee a pending batch is flushed before
// a Disconnect event is delivered (spec.md invariant 4/ordering law).
type eventBatcher struct {
	mu        sync.Mutex
	buf       []byte
	chunkSize int
	timer     *time.Timer
	emit      func([]byte)
}

func newEventBatcher(chunkSize int, emit func([]byte)) *eventBatcher {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &eventBatcher{chunkSize: chunkSize, emit: emit}
}

// reset clears buffered bytes and stops any pending timer; used by
// start_read to give each streaming session a clean batcher (spec.md §8:
// "start_read; start_read ⇒ second returns reading:true without
// reinitialization" — reset is only ever called on a fresh start, never
// on the idempotent second call).
func (b *eventBatcher) reset(chunkSize int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if chunkSize > 0 {
		b.chunkSize = chunkSize
	}
	b.buf = b.buf[:0]
	b.stopTimerLocked()
}

// append schedules a flush after mergeWindow if nothing is already
// pending, and flushes immediately once mergeCap is reached.
func (b *eventBatcher) append(p []byte) {
	if len(p) == 0 {
		return
	}
	b.mu.Lock()
	b.buf = append(b.buf, p...)
	if len(b.buf) >= mergeCap {
		b.flushLocked()
		b.mu.Unlock()
		return
	}
	if b.timer == nil {
		b.timer = time.AfterFunc(mergeWindow, b.onTimer)
	}
	b.mu.Unlock()
}

func (b *eventBatcher) onTimer() {
	b.mu.Lock()
	b.timer = nil
	b.flushLocked()
	b.mu.Unlock()
}

// flushNow drains the buffer synchronously, slicing it into chunkSize
// pieces and emitting each as a separate Data event in order.
func (b *eventBatcher) flushNow() {
	b.mu.Lock()
	b.flushLocked()
	b.mu.Unlock()
}

func (b *eventBatcher) flushLocked() {
	b.stopTimerLocked()
	if len(b.buf) == 0 {
		return
	}
	data := b.buf
	b.buf = nil
	for len(data) > 0 {
		n := len(data)
		if n > b.chunkSize {
			n = b.chunkSize
		}
		slice := make([]byte, n)
		copy(slice, data[:n])
		data = data[n:]
		b.emit(slice)
	}
}

func (b *eventBatcher) stopTimerLocked() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}
