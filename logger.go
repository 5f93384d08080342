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
	"io"
	"log"
	"os"
)

// logWriter is the subset of io.Writer the client's logger needs; kept as
// its own name so callers don't have to import "io" just to pass os.Stderr
// or a *os.File through SetLogOutput.
type logWriter = io.Writer

// clientLogger wraps a *log.Logger the same way kcptun's client/main.go
// uses the stdlib "log" package directly: plain Printf-style operational
// lines, no structured logging library, redirectable to a file, and
// silenced by a Quiet flag.
type clientLogger struct {
	l     *log.Logger
	quiet bool
}

func newClientLogger(w io.Writer, quiet bool) *clientLogger {
	if w == nil {
		w = os.Stderr
	}
	return &clientLogger{l: log.New(w, "", log.LstdFlags), quiet: quiet}
}

func (c *clientLogger) Printf(format string, args ...interface{}) {
	if c == nil || c.quiet {
		return
	}
	c.l.Printf(format, args...)
}
