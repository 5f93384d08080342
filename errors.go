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
	"github.com/pkg/errors"
)

// Kind classifies an error returned by a Client operation.
type Kind int

const (
	// KindNotConnected is returned when an operation requires an open
	// session but none exists.
	KindNotConnected Kind = iota
	// KindBusy is returned when a request/response operation is already
	// in flight.
	KindBusy
	// KindTimeout is returned when a deadline elapsed with no usable result.
	KindTimeout
	// KindClosed is returned when the peer closed its send direction
	// (read of 0 bytes) during an operation.
	KindClosed
	// KindInvalidArgument is returned for malformed caller input, before
	// any I/O is attempted.
	KindInvalidArgument
	// KindIOError wraps any other OS-level failure.
	KindIOError
)

func (k Kind) String() string {
	switch k {
	case KindNotConnected:
		return "not_connected"
	case KindBusy:
		return "busy"
	case KindTimeout:
		return "timeout"
	case KindClosed:
		return "closed"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindIOError:
		return "io_error"
	default:
		return "unknown"
	}
}

// ClientError is the error type returned across the public boundary.
// Callers switch on Kind; Error() renders a short, human readable message.
// The original cause (with its pkg/errors stack, when wrapped) stays
// reachable via Unwrap/Cause for logging.
type ClientError struct {
	Kind Kind
	msg  string
	err  error
}

func (e *ClientError) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

// Unwrap exposes the underlying cause for errors.Is/errors.As.
func (e *ClientError) Unwrap() error { return e.err }

// Cause exposes the underlying cause for github.com/pkg/errors callers.
func (e *ClientError) Cause() error { return e.err }

func newErr(kind Kind, msg string) *ClientError {
	return &ClientError{Kind: kind, msg: msg}
}

func wrapErr(kind Kind, msg string, cause error) *ClientError {
	if cause == nil {
		return newErr(kind, msg)
	}
	return &ClientError{Kind: kind, msg: msg, err: errors.WithStack(cause)}
}

var (
	errNotConnected     = newErr(KindNotConnected, "not connected")
	errBusy             = newErr(KindBusy, "request/response already in flight")
	errInvalidPort      = newErr(KindInvalidArgument, "port must be in 1..65535")
	errInvalidHex       = newErr(KindInvalidArgument, "expect: malformed hex string")
	errMissingData      = newErr(KindInvalidArgument, "data must not be empty")
	errMissingHost      = newErr(KindInvalidArgument, "host is required")
	errAllCandidatesFailed = newErr(KindIOError, "connect: all candidates failed")
)

// IsKind reports whether err is a *ClientError of the given Kind.
func IsKind(err error, kind Kind) bool {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.Kind == kind
	}
	return false
}
