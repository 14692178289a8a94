package cas

import "testing"

func TestBlake3HashHex(t *testing.T) {
	a := Blake3HashHex([]byte("hello"))
	if len(a) != 64 {
		t.Errorf("digest length = %d, want 64 hex chars", len(a))
	}
	if a != Blake3HashHex([]byte("hello")) {
		t.Error("hash should be deterministic")
	}
	if a == Blake3HashHex([]byte("hello!")) {
		t.Error("different inputs should hash differently")
	}
	if Blake3HashHex(nil) == "" {
		t.Error("empty input still hashes")
	}
}

func TestNowMs(t *testing.T) {
	if NowMs() <= 0 {
		t.Error("NowMs should be positive")
	}
}
