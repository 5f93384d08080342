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
	"sort"
	"sync/atomic"
	"time"
)

const (
	// rrWriteStep bounds each WouldBlock retry during the RR write phase
	// (spec.md §4.4 step 2: "≤10ms steps").
	rrWriteStep = 10 * time.Millisecond

	// rrReadChunk is the per-iteration read size cap in the receive loop
	// (spec.md §4.4: "read up to min(4096, cap - used) bytes").
	rrReadChunk = 4096

	// maxRRResponseBytes is the hard ceiling spec.md §4.4 alludes to with
	// "cap = min(max_bytes, cap)": maxBytes is a caller-chosen budget,
	// but the accumulator never grows past this regardless of what the
	// caller asks for.
	maxRRResponseBytes = 1 << 20

	idleDefault = 50 * time.Millisecond
	idleMin     = 50 * time.Millisecond
	idleMax     = 200 * time.Millisecond
	matchStep   = 200 * time.Millisecond
)

// WriteAndRead runs the Request/Response Engine of spec.md §4.4: a
// serialized write of the full payload, then a receive loop that exits
// on pattern match, byte cap, adaptive idle, or deadline.
func (c *Client) WriteAndRead(params WriteAndReadParams) (WriteAndReadResult, error) {
	if len(params.Data) == 0 {
		return WriteAndReadResult{}, errMissingData
	}

	sess := c.currentSession()
	if sess == nil || !sess.isOpen() {
		return WriteAndReadResult{}, errNotConnected
	}
	if !atomic.CompareAndSwapInt32(&sess.rrInFlight, 0, 1) {
		return WriteAndReadResult{}, errBusy
	}
	defer atomic.StoreInt32(&sess.rrInFlight, 0)

	p := params.withDefaults()

	wasReaderActive := false
	if p.SuspendStreamDuringRR && sess.isReaderActive() {
		wasReaderActive = true
		c.stopReaderAndFlush(sess)
	}
	defer func() {
		if wasReaderActive && sess.isOpen() {
			c.startReaderLocked(sess)
		}
	}()

	deadline := time.Now().Add(p.Timeout)

	sess.writeMu.Lock()
	sent, werr := sess.sock.write(p.Data, deadline)
	sess.writeMu.Unlock()

	if sent > 0 {
		c.stats.addBytesSent(sent)
	}

	if werr != nil {
		switch werr {
		case errTimeoutDial:
			// the write phase alone exhausted the RR deadline; the socket
			// itself is still healthy, so no teardown (spec.md §7: a
			// request that can't even be fully sent in time is a Timeout,
			// not a connection fault).
			c.stats.addRRResult(true, false)
			return WriteAndReadResult{BytesSent: sent}, newErr(KindTimeout, "write phase timed out")
		case errPeerReset:
			c.teardown(sess, ReasonRemote, nil)
			c.stats.addRRResult(false, true)
			return WriteAndReadResult{BytesSent: sent}, wrapErr(KindClosed, "write", werr)
		default:
			select {
			case <-sess.closed:
				// the write failed because a concurrent Disconnect/teardown
				// already closed the socket, not a genuine I/O fault.
				c.stats.addRRResult(false, true)
				return WriteAndReadResult{BytesSent: sent}, wrapErr(KindClosed, "write", werr)
			default:
			}
			c.teardown(sess, ReasonError, werr)
			c.stats.addRRResult(false, true)
			return WriteAndReadResult{BytesSent: sent}, wrapErr(KindIOError, "write", werr)
		}
	}

	cap := p.MaxBytes
	if cap > maxRRResponseBytes {
		cap = maxRRResponseBytes
	}

	result, err := c.rrReceive(sess, cap, p.Expect, deadline)
	result.BytesSent = sent
	result.BytesRead = len(result.Data)
	if len(result.Data) > 0 {
		c.stats.addBytesRecv(len(result.Data))
	}
	if err != nil {
		timedOut := IsKind(err, KindTimeout)
		c.stats.addRRResult(timedOut, !timedOut)
	} else {
		c.stats.addRRResult(false, false)
	}
	return result, err
}

// rrReceive implements the receive loop of spec.md §4.4.
func (c *Client) rrReceive(sess *session, cap int, pattern []byte, deadline time.Time) (WriteAndReadResult, error) {
	buf := make([]byte, 0, cap)
	hasPattern := len(pattern) > 0
	lastArrival := time.Time{}

	for {
		select {
		case <-sess.closed:
			// a concurrent Disconnect/teardown closed the session out from
			// under this call (spec.md §5: "disconnect... causes any
			// pending RR waits to unblock ... and terminate with Closed").
			return WriteAndReadResult{Data: buf}, wrapErr(KindClosed, "read", nil)
		default:
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return c.rrDeadlineOutcome(buf)
		}

		step := c.rrStepDuration(sess, hasPattern, len(buf) > 0, remaining)

		toRead := rrReadChunk
		if room := cap - len(buf); room < toRead {
			toRead = room
		}
		if toRead <= 0 {
			return WriteAndReadResult{Data: buf, Matched: false}, nil
		}

		tmp := make([]byte, toRead)
		n, err := sess.sock.read(tmp, step)

		switch {
		case err == errWouldBlock:
			if hasPattern {
				continue // keep waiting until deadline
			}
			if len(buf) > 0 && time.Since(lastArrival) >= idleThreshold(sess) {
				return WriteAndReadResult{Data: buf, Matched: false}, nil
			}
			continue

		case err == nil && n == 0:
			c.teardown(sess, ReasonRemote, nil)
			return WriteAndReadResult{Data: buf}, wrapErr(KindClosed, "read", nil)

		case err == errPeerReset:
			c.teardown(sess, ReasonRemote, nil)
			return WriteAndReadResult{Data: buf}, wrapErr(KindClosed, "read", err)

		case err == nil && n > 0:
			now := time.Now()
			if !lastArrival.IsZero() {
				pushIdleSample(sess, now.Sub(lastArrival))
			}
			lastArrival = now
			buf = append(buf, tmp[:n]...)

			if hasPattern && containsPattern(buf, pattern) {
				return WriteAndReadResult{Data: buf, Matched: true}, nil
			}
			if len(buf) >= cap {
				return WriteAndReadResult{Data: buf, Matched: false}, nil
			}
			continue

		default:
			select {
			case <-sess.closed:
				// the read failed because the session was torn down
				// concurrently (e.g. "use of closed network connection"),
				// not because of a genuine I/O fault; report Closed.
				return WriteAndReadResult{Data: buf}, wrapErr(KindClosed, "read", err)
			default:
			}
			c.teardown(sess, ReasonError, err)
			return WriteAndReadResult{Data: buf}, wrapErr(KindIOError, "read", err)
		}
	}
}

// rrDeadlineOutcome implements spec.md §4.4's deadline policy: partial
// success if any bytes were collected, otherwise a Timeout error (the
// caller fills in BytesSent after this returns).
func (c *Client) rrDeadlineOutcome(buf []byte) (WriteAndReadResult, error) {
	if len(buf) > 0 {
		return WriteAndReadResult{Data: buf, Matched: false}, nil
	}
	return WriteAndReadResult{}, newErr(KindTimeout, "request/response timed out")
}

// rrStepDuration picks the wait step for one receive-loop iteration
// (spec.md §4.4 "receive loop" bullet on step duration).
func (c *Client) rrStepDuration(sess *session, hasPattern, haveBytes bool, remaining time.Duration) time.Duration {
	var step time.Duration
	if hasPattern || !haveBytes {
		step = matchStep
	} else {
		step = idleThreshold(sess)
	}
	if step > remaining {
		step = remaining
	}
	if step <= 0 {
		step = time.Millisecond
	}
	return step
}

// idleThreshold computes clamp(median(last ≤5 gaps) × 1.75, 50ms, 200ms);
// 50ms when no samples exist (spec.md §4.4).
func idleThreshold(sess *session) time.Duration {
	samples := sess.idleSamples
	if len(samples) == 0 {
		return idleDefault
	}
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var med time.Duration
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		med = sorted[mid]
	} else {
		med = (sorted[mid-1] + sorted[mid]) / 2
	}

	th := time.Duration(float64(med) * 1.75)
	if th < idleMin {
		th = idleMin
	}
	if th > idleMax {
		th = idleMax
	}
	return th
}

// pushIdleSample appends gap to sess.idleSamples, keeping only the last
// five (spec.md §3: "bounded ring of the last five inter-arrival times").
// Only ever called from within the single in-flight RR call (guarded by
// sess.rrInFlight's CAS), so no additional synchronization is needed.
func pushIdleSample(sess *session, gap time.Duration) {
	sess.idleSamples = append(sess.idleSamples, gap)
	if len(sess.idleSamples) > 5 {
		sess.idleSamples = sess.idleSamples[len(sess.idleSamples)-5:]
	}
}
