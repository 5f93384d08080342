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
	"strings"
	"time"
)

// Default option values, per spec.md §6.
const (
	DefaultPort             = 9100
	DefaultConnectTimeoutMS = 3000
	DefaultNoDelay          = true
	DefaultKeepAlive        = true

	DefaultChunkSize   = 4096
	DefaultReadTimeout = 1000 * time.Millisecond

	DefaultRRTimeoutMS  = 1000
	DefaultMaxBytes     = 4096
	DefaultSuspendRead  = true
	minConnectTimeoutMS = 1 // connect deadline 0ms is clamped to 1ms
)

// ConnectParams configures Client.Connect. Immutable for the duration of
// one connect attempt.
type ConnectParams struct {
	Host      string
	Port      int           // default 9100
	Timeout   time.Duration // connect deadline; zero or negative clamps to 1ms (DefaultConnectTimeoutMS is not applied here)
	NoDelay   bool          // disable Nagle when true; the zero value (false) is used as given, DefaultNoDelay is not applied
	KeepAlive bool          // enable keepalive when true; the zero value (false) is used as given, DefaultKeepAlive is not applied
}

func (p *ConnectParams) withDefaults() ConnectParams {
	out := *p
	if out.Port == 0 {
		out.Port = DefaultPort
	}
	if out.Timeout <= 0 {
		out.Timeout = minConnectTimeoutMS * time.Millisecond
	}
	return out
}

// StartReadParams configures Client.StartRead.
type StartReadParams struct {
	ChunkSize   int           // max bytes per Data event slice; default 4096
	ReadTimeout time.Duration // reader idle tick; default 1000ms
}

func (p *StartReadParams) withDefaults() StartReadParams {
	out := *p
	if out.ChunkSize <= 0 {
		out.ChunkSize = DefaultChunkSize
	}
	if out.ReadTimeout <= 0 {
		out.ReadTimeout = DefaultReadTimeout
	}
	return out
}

// WriteAndReadParams configures Client.WriteAndRead.
type WriteAndReadParams struct {
	Data                   []byte
	Timeout                time.Duration // global RR deadline; default 1000ms
	MaxBytes               int           // response cap; default 4096
	Expect                 []byte        // optional literal byte pattern
	SuspendStreamDuringRR  bool          // default true; see WithSuspendStreamDuringRR
	suspendStreamSet       bool
}

// WithSuspendStreamDuringRR lets callers explicitly request
// suspend-stream=false, since the zero value of bool is indistinguishable
// from "not set" and the spec default is true.
func (p WriteAndReadParams) WithSuspendStreamDuringRR(v bool) WriteAndReadParams {
	p.SuspendStreamDuringRR = v
	p.suspendStreamSet = true
	return p
}

func (p *WriteAndReadParams) withDefaults() WriteAndReadParams {
	out := *p
	if out.Timeout <= 0 {
		out.Timeout = DefaultRRTimeoutMS * time.Millisecond
	}
	if out.MaxBytes <= 0 {
		out.MaxBytes = DefaultMaxBytes
	}
	if !out.suspendStreamSet {
		out.SuspendStreamDuringRR = DefaultSuspendRead
	}
	return out
}

// WriteAndReadResult is the outcome of a Client.WriteAndRead call.
type WriteAndReadResult struct {
	BytesSent int
	BytesRead int
	Data      []byte
	Matched   bool
}

// ParseExpect normalizes the `expect` option (spec.md §6): it accepts a
// byte sequence directly, or normalizes a hex string (whitespace and
// optional "0x"/"0X" prefixes ignored, case-insensitive). An empty or
// odd-length hex string is invalid. Returns (nil, nil) for "no pattern".
func ParseExpect(raw []byte, hex string) ([]byte, error) {
	if raw != nil {
		return raw, nil
	}
	if hex == "" {
		return nil, nil
	}
	return parseHexPattern(hex)
}

func parseHexPattern(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")
	var cleaned strings.Builder
	cleaned.Grow(len(s))
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			cleaned.WriteRune(r)
		}
	}
	hexDigits := cleaned.String()
	if len(hexDigits) == 0 || len(hexDigits)%2 != 0 {
		return nil, errInvalidHex
	}

	out := make([]byte, len(hexDigits)/2)
	for i := range out {
		hi, ok := hexNibble(hexDigits[2*i])
		if !ok {
			return nil, errInvalidHex
		}
		lo, ok := hexNibble(hexDigits[2*i+1])
		if !ok {
			return nil, errInvalidHex
		}
		out[i] = hi<<4 | lo
	}
	return out, nil
}

func hexNibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}
