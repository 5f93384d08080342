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
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"
)

// Stats is a cumulative counter snapshot (SPEC_FULL.md §4 supplement).
// It is not a spec.md operation; it changes no named operation's
// contract and exists purely for observability, the same role kcptun's
// vendored KCP SNMP counters play for that project.
type Stats struct {
	BytesSent          uint64
	BytesRecv          uint64
	DataEvents         uint64
	Disconnects        uint64
	DisconnectsManual  uint64
	DisconnectsRemote  uint64
	DisconnectsError   uint64
	RRCompleted        uint64
	RRTimedOut         uint64
	RRErrored          uint64
}

func (s *Stats) addBytesSent(n int) { atomic.AddUint64(&s.BytesSent, uint64(n)) }
func (s *Stats) addBytesRecv(n int) { atomic.AddUint64(&s.BytesRecv, uint64(n)) }
func (s *Stats) addDataEvent()      { atomic.AddUint64(&s.DataEvents, 1) }

func (s *Stats) addDisconnect(reason DisconnectReason) {
	atomic.AddUint64(&s.Disconnects, 1)
	switch reason {
	case ReasonManual:
		atomic.AddUint64(&s.DisconnectsManual, 1)
	case ReasonRemote:
		atomic.AddUint64(&s.DisconnectsRemote, 1)
	case ReasonError:
		atomic.AddUint64(&s.DisconnectsError, 1)
	}
}

func (s *Stats) addRRResult(timedOut bool, erroredNotTimeout bool) {
	switch {
	case timedOut:
		atomic.AddUint64(&s.RRTimedOut, 1)
	case erroredNotTimeout:
		atomic.AddUint64(&s.RRErrored, 1)
	default:
		atomic.AddUint64(&s.RRCompleted, 1)
	}
}

// snapshot copies every counter with an atomic load, avoiding torn reads
// under concurrent writers.
func (s *Stats) snapshot() Stats {
	return Stats{
		BytesSent:         atomic.LoadUint64(&s.BytesSent),
		BytesRecv:         atomic.LoadUint64(&s.BytesRecv),
		DataEvents:        atomic.LoadUint64(&s.DataEvents),
		Disconnects:       atomic.LoadUint64(&s.Disconnects),
		DisconnectsManual: atomic.LoadUint64(&s.DisconnectsManual),
		DisconnectsRemote: atomic.LoadUint64(&s.DisconnectsRemote),
		DisconnectsError:  atomic.LoadUint64(&s.DisconnectsError),
		RRCompleted:       atomic.LoadUint64(&s.RRCompleted),
		RRTimedOut:        atomic.LoadUint64(&s.RRTimedOut),
		RRErrored:         atomic.LoadUint64(&s.RRErrored),
	}
}

func (s Stats) header() []string {
	return []string{
		"BytesSent", "BytesRecv", "DataEvents",
		"Disconnects", "DisconnectsManual", "DisconnectsRemote", "DisconnectsError",
		"RRCompleted", "RRTimedOut", "RRErrored",
	}
}

func (s Stats) toSlice() []string {
	return []string{
		fmt.Sprint(s.BytesSent), fmt.Sprint(s.BytesRecv), fmt.Sprint(s.DataEvents),
		fmt.Sprint(s.Disconnects), fmt.Sprint(s.DisconnectsManual), fmt.Sprint(s.DisconnectsRemote), fmt.Sprint(s.DisconnectsError),
		fmt.Sprint(s.RRCompleted), fmt.Sprint(s.RRTimedOut), fmt.Sprint(s.RRErrored),
	}
}

// StatsLogger periodically appends a Client's Stats snapshot to a CSV
// file, one row per tick, the same shape as kcptun's std/snmp.go
// SnmpLogger: a ticker, a CSV writer, a header written once into an
// empty file. Off by default; callers run it in their own goroutine and
// stop it by closing the stop channel passed to Run.
type StatsLogger struct {
	Path     string
	Interval time.Duration
}

// Run blocks, writing one row to Path every Interval until stop is
// closed. Callers typically do `go logger.Run(client, stop)`.
func (l *StatsLogger) Run(client *Client, stop <-chan struct{}) error {
	if l.Path == "" || l.Interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(l.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return nil
		case <-ticker.C:
			if err := l.writeRow(client.Stats()); err != nil {
				return err
			}
		}
	}
}

func (l *StatsLogger) writeRow(s Stats) error {
	dir, name := filepath.Split(l.Path)
	path := dir + time.Now().Format(name)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if stat, err := f.Stat(); err == nil && stat.Size() == 0 {
		if err := w.Write(append([]string{"Unix"}, s.header()...)); err != nil {
			return err
		}
	}
	if err := w.Write(append([]string{fmt.Sprint(time.Now().Unix())}, s.toSlice()...)); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}
