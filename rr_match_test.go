package tcpclient

import "testing"

func TestContainsPatternNaiveShortPattern(t *testing.T) {
	if !containsPattern([]byte("hello\r\n"), []byte("\r\n")) {
		t.Fatalf("expected short pattern to be found")
	}
	if containsPattern([]byte("hello"), []byte("\r\n")) {
		t.Fatalf("expected short pattern to be absent")
	}
}

func TestContainsPatternBMHLongPattern(t *testing.T) {
	pattern := []byte("END-OF-RESPONSE")
	buf := []byte("some leading noise then END-OF-RESPONSE and trailing junk")
	if !containsPattern(buf, pattern) {
		t.Fatalf("expected long pattern to be found via BMH path")
	}
	if containsPattern([]byte("no match here at all, long enough"), pattern) {
		t.Fatalf("expected long pattern to be absent")
	}
}

func TestContainsPatternEmptyPattern(t *testing.T) {
	if containsPattern([]byte("anything"), nil) {
		t.Fatalf("empty pattern should never match")
	}
}

func TestContainsPatternPatternLongerThanBuffer(t *testing.T) {
	if containsPattern([]byte("hi"), []byte("hello world this is long")) {
		t.Fatalf("pattern longer than buffer should never match")
	}
}

func TestContainsPatternAtBoundaries(t *testing.T) {
	buf := []byte("0123456789ABCDEF")
	if !containsPattern(buf, []byte("0123")) {
		t.Fatalf("expected match at start")
	}
	if !containsPattern(buf, []byte("CDEF")) {
		t.Fatalf("expected match at end")
	}
}

func TestNaiveIndexAndBMHIndexAgree(t *testing.T) {
	buf := []byte("abababababcababababababcxyz")
	pattern := []byte("abcxyz")
	n := naiveIndex(buf, pattern)
	b := bmhIndex(buf, pattern)
	if n != b {
		t.Fatalf("naiveIndex=%d bmhIndex=%d disagree", n, b)
	}
	if n < 0 {
		t.Fatalf("expected a match to exist")
	}
}

func TestBMHIndexNoMatch(t *testing.T) {
	if bmhIndex([]byte("aaaaaaaaaaaaaaaaaaaaa"), []byte("aaaaaaab")) != -1 {
		t.Fatalf("expected no match")
	}
}
