package tcpclient

import (
	"testing"

	"github.com/pkg/errors"
)

func TestClientErrorMessage(t *testing.T) {
	e := newErr(KindBusy, "request/response already in flight")
	if e.Error() != "request/response already in flight" {
		t.Fatalf("unexpected message: %q", e.Error())
	}
	if e.Cause() != nil {
		t.Fatalf("expected nil cause, got %v", e.Cause())
	}
}

func TestWrapErrIncludesCause(t *testing.T) {
	cause := errors.New("connection reset by peer")
	e := wrapErr(KindIOError, "read", cause)
	if e.Error() != "read: connection reset by peer" {
		t.Fatalf("unexpected message: %q", e.Error())
	}
	if errors.Cause(e) != cause {
		t.Fatalf("expected Cause() to unwrap to the original error")
	}
}

func TestWrapErrNilCauseBehavesLikeNewErr(t *testing.T) {
	e := wrapErr(KindTimeout, "deadline exceeded", nil)
	if e.Error() != "deadline exceeded" {
		t.Fatalf("unexpected message: %q", e.Error())
	}
}

func TestIsKind(t *testing.T) {
	var err error = errBusy
	if !IsKind(err, KindBusy) {
		t.Fatalf("expected IsKind(err, KindBusy) to be true")
	}
	if IsKind(err, KindTimeout) {
		t.Fatalf("expected IsKind(err, KindTimeout) to be false")
	}
	if IsKind(errors.New("plain error"), KindBusy) {
		t.Fatalf("expected IsKind to be false for a non-ClientError")
	}
}

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		KindNotConnected:    "not_connected",
		KindBusy:            "busy",
		KindTimeout:         "timeout",
		KindClosed:          "closed",
		KindInvalidArgument: "invalid_argument",
		KindIOError:         "io_error",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Fatalf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}
