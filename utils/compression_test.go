package utils

import (
	"bytes"
	"strings"
	"testing"
)

func TestCompressRoundTrip(t *testing.T) {
	payload := []byte(strings.Repeat("the quick brown fox ", 100))

	compressed, err := CompressData(payload)
	if err != nil {
		t.Fatalf("CompressData: %v", err)
	}
	if len(compressed) >= len(payload) {
		t.Errorf("compressed %d bytes into %d", len(payload), len(compressed))
	}

	out, err := DecompressData(compressed)
	if err != nil {
		t.Fatalf("DecompressData: %v", err)
	}
	if !bytes.Equal(out, payload) {
		t.Fatal("round trip mismatch")
	}
}

func TestSmallPayloadPassesThrough(t *testing.T) {
	payload := []byte("small")

	compressed, err := CompressData(payload)
	if err != nil {
		t.Fatalf("CompressData: %v", err)
	}
	if !bytes.Equal(compressed, payload) {
		t.Errorf("small payload was compressed")
	}

	out, err := DecompressData(compressed)
	if err != nil {
		t.Fatalf("DecompressData: %v", err)
	}
	if !bytes.Equal(out, payload) {
		t.Fatal("pass-through mismatch")
	}
}

func TestHashKeySeparatesParts(t *testing.T) {
	if HashKey("ab", "c") == HashKey("a", "bc") {
		t.Error("part boundaries should affect the key")
	}
	if HashKey("q", "5", "a,b") != HashKey("q", "5", "a,b") {
		t.Error("key should be stable")
	}
}
