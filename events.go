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

// DisconnectReason tags why a session ended. Exactly one is reported per
// session that reached Open.
type DisconnectReason int

const (
	// ReasonManual is reported when the caller invoked Disconnect.
	ReasonManual DisconnectReason = iota
	// ReasonRemote is reported when the peer closed its send direction.
	ReasonRemote
	// ReasonError is reported for any fatal I/O or protocol failure.
	ReasonError
)

func (r DisconnectReason) String() string {
	switch r {
	case ReasonManual:
		return "manual"
	case ReasonRemote:
		return "remote"
	case ReasonError:
		return "error"
	default:
		return "unknown"
	}
}

// DataEvent carries a contiguous, order-preserving slice of bytes received
// from the peer. Data is never empty and never longer than the chunk size
// configured on StartRead.
type DataEvent struct {
	Data []byte
}

// DisconnectEvent is delivered at most once per session.
type DisconnectEvent struct {
	Reason DisconnectReason
	Err    error // non-nil only when Reason == ReasonError
}

// EventListener receives the two event streams produced by a Client.
// There is no single delivery goroutine: OnData runs on the batcher's
// timer goroutine, on the stream reader's goroutine (size-cap flush), or on
// the goroutine calling StopRead/Disconnect/WriteAndRead, always with the
// batcher's lock held; OnDisconnect runs inside the session's one-shot
// teardown. Implementations must not block for long or call back into the
// Client synchronously (doing so can deadlock on those held locks).
type EventListener interface {
	OnData(DataEvent)
	OnDisconnect(DisconnectEvent)
}

// ListenerFuncs is a convenience EventListener built from two func values,
// mirroring the "pair of typed event channels/callbacks" design note: the
// original delegate/callback inheritance becomes two callback slots here,
// with no base class required.
type ListenerFuncs struct {
	Data       func(DataEvent)
	Disconnect func(DisconnectEvent)
}

func (l ListenerFuncs) OnData(e DataEvent) {
	if l.Data != nil {
		l.Data(e)
	}
}

func (l ListenerFuncs) OnDisconnect(e DisconnectEvent) {
	if l.Disconnect != nil {
		l.Disconnect(e)
	}
}
