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

// Package tcpclient implements the concurrency, timing and state-machine
// core of a single-connection, line-oriented TCP client: a lifecycle
// (connect/disconnect/status), a streaming read path that batches inbound
// bytes into Data events, and a request/response path that writes a
// request and collects a bounded reply under a deadline.
package tcpclient

import (
	"io"
	"net"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// pollStep bounds every individual readiness wait, per spec.md §5
// ("every wait is bounded, ≤200ms step").
const pollStep = 200 * time.Millisecond

// socketHandle wraps one net.TCPConn and emulates the non-blocking I/O
// model of spec.md §4.1 on top of Go's deadline-based net.Conn: a read or
// write attempted with a short deadline that expires before any bytes
// move is treated as WouldBlock, exactly like a non-blocking syscall
// returning EAGAIN.
type socketHandle struct {
	conn *net.TCPConn
}

// errWouldBlock signals that an operation did not complete within its
// requested slice of time and should be retried; it is never surfaced to
// callers of the public API.
var errWouldBlock = errors.New("operation would block")

// dialSocket resolves host:port to candidate addresses (numeric first,
// DNS fallback) and connects to the first one that succeeds within the
// single, global deadline shared across all candidates (spec.md §4.1).
func dialSocket(params ConnectParams) (*socketHandle, error) {
	if params.Host == "" {
		return nil, errMissingHost
	}
	if params.Port < 1 || params.Port > 65535 {
		return nil, errInvalidPort
	}

	deadline := time.Now().Add(params.Timeout)

	addrs, err := candidateAddrs(params.Host)
	if err != nil {
		return nil, wrapErr(KindIOError, "resolve "+params.Host, err)
	}

	dialer := net.Dialer{Deadline: deadline}
	var lastErr error
	for _, host := range addrs {
		if time.Now().After(deadline) {
			lastErr = errTimeoutDial
			break
		}
		addr := net.JoinHostPort(host, strconv.Itoa(params.Port))
		c, err := dialer.Dial("tcp", addr)
		if err != nil {
			lastErr = err
			continue
		}
		tc := c.(*net.TCPConn)
		if err := tc.SetNoDelay(params.NoDelay); err != nil {
			tc.Close()
			return nil, wrapErr(KindIOError, "set no-delay", err)
		}
		if err := tc.SetKeepAlive(params.KeepAlive); err != nil {
			tc.Close()
			return nil, wrapErr(KindIOError, "set keepalive", err)
		}
		return &socketHandle{conn: tc}, nil
	}

	if lastErr == nil {
		lastErr = errTimeoutDial
	}
	if ne, ok := lastErr.(net.Error); lastErr == errTimeoutDial || (ok && ne.Timeout()) {
		return nil, wrapErr(KindTimeout, "connect", lastErr)
	}
	return nil, wrapErr(KindIOError, "connect", lastErr)
}

var errTimeoutDial = errors.New("timeout")

// candidateAddrs returns the numeric address first when the host is
// already an IP literal, otherwise falls back to DNS resolution so that
// every A/AAAA record becomes a candidate.
func candidateAddrs(host string) ([]string, error) {
	if ip := net.ParseIP(host); ip != nil {
		return []string{host}, nil
	}
	ips, err := net.LookupHost(host)
	if err != nil {
		return nil, err
	}
	if len(ips) == 0 {
		return nil, errors.Errorf("no addresses found for %s", host)
	}
	return ips, nil
}

// read attempts a single read within budget. It returns:
//   - (n>0, nil) for data
//   - (0, nil) for peer EOF
//   - (0, errWouldBlock) if nothing arrived before budget elapsed
//   - (0, err) for any other fatal error
func (h *socketHandle) read(buf []byte, budget time.Duration) (int, error) {
	if budget <= 0 {
		budget = time.Millisecond
	}
	if budget > pollStep {
		budget = pollStep
	}
	if err := h.conn.SetReadDeadline(time.Now().Add(budget)); err != nil {
		return 0, err
	}
	n, err := h.conn.Read(buf)
	if err == nil {
		return n, nil
	}
	if err == io.EOF {
		return 0, nil
	}
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return 0, errWouldBlock
	}
	if isBrokenPipe(err) {
		return 0, errPeerReset
	}
	return 0, err
}

var errPeerReset = errors.New("connection reset by peer")

// write sends the entire payload, looping through partial writes and
// WouldBlock within the caller-supplied deadline (spec.md §4.1/§4.4 step 2).
func (h *socketHandle) write(b []byte, deadline time.Time) (int, error) {
	total := 0
	for len(b) > 0 {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return total, errTimeoutDial
		}
		budget := remaining
		if budget > pollStep {
			budget = pollStep
		}
		if err := h.conn.SetWriteDeadline(time.Now().Add(budget)); err != nil {
			return total, err
		}
		n, err := h.conn.Write(b)
		total += n
		b = b[n:]
		if err == nil {
			continue
		}
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			continue // WouldBlock: loop around and retry with remaining budget
		}
		if isBrokenPipe(err) {
			return total, errPeerReset
		}
		return total, err
	}
	return total, nil
}

// close tears the socket down; there is no separate shutdown (half-close)
// step. The Coordinator calls it once per session, from inside the
// session's sync.Once teardown.
func (h *socketHandle) close() error {
	return h.conn.Close()
}

func (h *socketHandle) localAddr() net.Addr  { return h.conn.LocalAddr() }
func (h *socketHandle) remoteAddr() net.Addr { return h.conn.RemoteAddr() }
