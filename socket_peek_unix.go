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

//go:build aix || darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris

package tcpclient

import (
	"net"
	"syscall"
	"time"
)

// peekDeadline bounds the probe so an idle-but-healthy peer (nothing to
// peek) returns quickly instead of blocking forever on raw.Read.
const peekDeadline = 5 * time.Millisecond

// peek performs the non-consuming one-byte probe of spec.md §4.1: peek
// 0 bytes means peer EOF, peek >0 bytes means healthy (the byte stays in
// the socket's receive queue), WouldBlock means healthy, anything else
// is fatal. It mirrors the raw syscall.Read pattern kcptun's
// generic/rawcopy_unix.go uses to touch a *net.TCPConn's file descriptor
// directly, substituting MSG_PEEK so the byte is never consumed.
func (h *socketHandle) peek() (n int, err error) {
	raw, err := h.conn.SyscallConn()
	if err != nil {
		return 0, err
	}
	if err := h.conn.SetReadDeadline(time.Now().Add(peekDeadline)); err != nil {
		return 0, err
	}

	var buf [1]byte
	var sysErr error
	var peeked int
	readErr := raw.Read(func(fd uintptr) bool {
		peeked, _, sysErr = syscall.Recvfrom(int(fd), buf[:], syscall.MSG_PEEK)
		if sysErr == syscall.EAGAIN {
			return false // not ready; let the runtime re-arm and retry
		}
		return true
	})
	if readErr != nil {
		if ne, ok := readErr.(net.Error); ok && ne.Timeout() {
			return 0, errWouldBlock
		}
		return 0, readErr
	}
	if sysErr == syscall.EAGAIN {
		return 0, errWouldBlock
	}
	if sysErr != nil {
		return 0, sysErr
	}
	return peeked, nil
}
