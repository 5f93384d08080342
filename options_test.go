package tcpclient

import (
	"bytes"
	"testing"
	"time"
)

func TestParseExpectRawBytesPassThrough(t *testing.T) {
	got, err := ParseExpect([]byte{0xDE, 0xAD}, "ignored")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, []byte{0xDE, 0xAD}) {
		t.Fatalf("expected raw bytes to pass through unchanged, got %x", got)
	}
}

func TestParseExpectEmpty(t *testing.T) {
	got, err := ParseExpect(nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil pattern for empty input, got %x", got)
	}
}

func TestParseExpectHex(t *testing.T) {
	cases := []struct {
		in   string
		want []byte
	}{
		{"0a", []byte{0x0a}},
		{"0x0a", []byte{0x0a}},
		{"0X0A0D", []byte{0x0a, 0x0d}},
		{"DE AD be ef", []byte{0xde, 0xad, 0xbe, 0xef}},
		{"0x  de\tad\n", []byte{0xde, 0xad}},
	}
	for _, c := range cases {
		got, err := ParseExpect(nil, c.in)
		if err != nil {
			t.Fatalf("ParseExpect(%q) returned error: %v", c.in, err)
		}
		if !bytes.Equal(got, c.want) {
			t.Fatalf("ParseExpect(%q) = %x, want %x", c.in, got, c.want)
		}
	}
}

func TestParseExpectInvalidHex(t *testing.T) {
	cases := []string{"0", "zz", "0xg1", "123"}
	for _, in := range cases {
		if _, err := ParseExpect(nil, in); err == nil {
			t.Fatalf("ParseExpect(%q) expected an error", in)
		} else if !IsKind(err, KindInvalidArgument) {
			t.Fatalf("ParseExpect(%q) expected KindInvalidArgument, got %v", in, err)
		}
	}
}

func TestConnectParamsDefaults(t *testing.T) {
	p := ConnectParams{Host: "127.0.0.1"}
	out := p.withDefaults()
	if out.Port != DefaultPort {
		t.Fatalf("expected default port %d, got %d", DefaultPort, out.Port)
	}
	if out.Timeout != minConnectTimeoutMS*time.Millisecond {
		t.Fatalf("expected clamped timeout, got %v", out.Timeout)
	}
}

func TestConnectParamsPreservesExplicitValues(t *testing.T) {
	p := ConnectParams{Host: "127.0.0.1", Port: 4000, Timeout: 5 * time.Second}
	out := p.withDefaults()
	if out.Port != 4000 || out.Timeout != 5*time.Second {
		t.Fatalf("withDefaults clobbered explicit values: %+v", out)
	}
}

func TestStartReadParamsDefaults(t *testing.T) {
	p := StartReadParams{}
	out := p.withDefaults()
	if out.ChunkSize != DefaultChunkSize {
		t.Fatalf("expected default chunk size %d, got %d", DefaultChunkSize, out.ChunkSize)
	}
	if out.ReadTimeout != DefaultReadTimeout {
		t.Fatalf("expected default read timeout %v, got %v", DefaultReadTimeout, out.ReadTimeout)
	}
}

func TestWriteAndReadParamsDefaults(t *testing.T) {
	p := WriteAndReadParams{Data: []byte("ping")}
	out := p.withDefaults()
	if out.Timeout != DefaultRRTimeoutMS*time.Millisecond {
		t.Fatalf("expected default RR timeout, got %v", out.Timeout)
	}
	if out.MaxBytes != DefaultMaxBytes {
		t.Fatalf("expected default max bytes %d, got %d", DefaultMaxBytes, out.MaxBytes)
	}
	if !out.SuspendStreamDuringRR {
		t.Fatalf("expected SuspendStreamDuringRR to default true")
	}
}

func TestWriteAndReadParamsExplicitFalseSuspend(t *testing.T) {
	p := WriteAndReadParams{Data: []byte("ping")}.WithSuspendStreamDuringRR(false)
	out := p.withDefaults()
	if out.SuspendStreamDuringRR {
		t.Fatalf("expected explicit false to survive withDefaults")
	}
}
