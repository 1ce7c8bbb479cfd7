package lz4

import (
	"bytes"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	cases := map[string][]byte{
		"empty":      {},
		"one byte":   {0x41},
		"repetitive": bytes.Repeat([]byte{0x00}, 10000),
		"text":       []byte("the quick brown fox jumps over the lazy dog, the quick brown fox jumps again"),
		"binary-ish": {0, 1, 2, 3, 255, 254, 253, 0, 1, 2, 3, 255, 254, 253, 10, 20, 30},
		"multiblock": bytes.Repeat([]byte("0123456789"), maxCompressedBlockSize/5),
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			dst := make([]byte, len(src)*2+4096)
			n, err := Compress(dst, src, Options{})
			if err != nil {
				t.Fatalf("compress: %v", err)
			}
			out := make([]byte, len(src)+64)
			m, err := Decompress(out, dst[:n])
			if err != nil {
				t.Fatalf("decompress: %v", err)
			}
			if !bytes.Equal(out[:m], src) {
				t.Fatalf("round trip mismatch: got %d bytes, want %d", m, len(src))
			}
		})
	}
}

func TestEmptyFrameDecodesToNothing(t *testing.T) {
	dst := make([]byte, 64)
	n, err := Compress(dst, nil, Options{})
	if err != nil {
		t.Fatal(err)
	}
	out := make([]byte, 16)
	m, err := Decompress(out, dst[:n])
	if err != nil {
		t.Fatal(err)
	}
	if m != 0 {
		t.Fatalf("expected 0 decompressed bytes, got %d", m)
	}
}

func TestSkippableFrameIsSkipped(t *testing.T) {
	var stream []byte
	skippable := []byte{0x50, 0x2A, 0x4D, 0x18, 0x04, 0x00, 0x00, 0x00, 0xAA, 0xBB, 0xCC, 0xDD}
	stream = append(stream, skippable...)

	dst := make([]byte, 64)
	n, err := Compress(dst, []byte("payload"), Options{})
	if err != nil {
		t.Fatal(err)
	}
	stream = append(stream, dst[:n]...)

	out := make([]byte, 64)
	m, err := Decompress(out, stream)
	if err != nil {
		t.Fatal(err)
	}
	if string(out[:m]) != "payload" {
		t.Fatalf("got %q, want %q", out[:m], "payload")
	}
}

func TestConcatenatedFrames(t *testing.T) {
	var stream []byte
	for _, s := range []string{"first frame ", "second frame"} {
		dst := make([]byte, 128)
		n, err := Compress(dst, []byte(s), Options{})
		if err != nil {
			t.Fatal(err)
		}
		stream = append(stream, dst[:n]...)
	}
	out := make([]byte, 64)
	m, err := Decompress(out, stream)
	if err != nil {
		t.Fatal(err)
	}
	if string(out[:m]) != "first frame second frame" {
		t.Fatalf("got %q", out[:m])
	}
}
