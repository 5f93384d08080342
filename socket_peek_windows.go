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

//go:build windows

package tcpclient

import (
	"net"
	"syscall"
	"time"
)

const peekDeadline = 5 * time.Millisecond

// peek mirrors socket_peek_unix.go's contract, using WSARecv with
// MSG_PEEK the way kcptun's generic/rawcopy_windows.go uses WSARecv to
// read a *net.TCPConn's underlying handle directly.
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
	var peeked uint32
	readErr := raw.Read(func(fd uintptr) bool {
		var flags uint32 = syscall.MSG_PEEK
		var wsabuf syscall.WSABuf
		wsabuf.Buf = &buf[0]
		wsabuf.Len = uint32(len(buf))
		var read uint32
		sysErr = syscall.WSARecv(syscall.Handle(fd), &wsabuf, 1, &read, &flags, nil, nil)
		peeked = read
		return sysErr != syscall.WSAEWOULDBLOCK
	})
	if readErr != nil {
		if ne, ok := readErr.(net.Error); ok && ne.Timeout() {
			return 0, errWouldBlock
		}
		return 0, readErr
	}
	if sysErr == syscall.WSAEWOULDBLOCK {
		return 0, errWouldBlock
	}
	if sysErr != nil {
		return 0, sysErr
	}
	return int(peeked), nil
}
