package deflate

import (
	"bytes"
	"testing"
)

func TestGzipRoundTrip(t *testing.T) {
	cases := map[string][]byte{
		"empty":      {},
		"one byte":   {0x41},
		"repetitive": bytes.Repeat([]byte{0x00}, 10000),
		"text":       []byte("the quick brown fox jumps over the lazy dog, the quick brown fox jumps again"),
		"binary-ish": {0, 1, 2, 3, 255, 254, 253, 0, 1, 2, 3, 255, 254, 253, 10, 20, 30},
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			dst := make([]byte, len(src)*2+4096)
			n, err := CompressGzip(dst, src, Options{})
			if err != nil {
				t.Fatalf("compress: %v", err)
			}
			out := make([]byte, len(src)+64)
			m, err := DecompressGzip(out, dst[:n])
			if err != nil {
				t.Fatalf("decompress: %v", err)
			}
			if !bytes.Equal(out[:m], src) {
				t.Fatalf("round trip mismatch: got %d bytes, want %d", m, len(src))
			}
		})
	}
}

func TestEmptyGzipIsTwentyBytes(t *testing.T) {
	dst := make([]byte, 64)
	n, err := CompressGzip(dst, nil, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if n != 20 {
		t.Fatalf("empty gzip stream: got %d bytes, want 20", n)
	}
}

func TestDisableDynamicHuffman(t *testing.T) {
	src := bytes.Repeat([]byte("abcabcabcabc"), 500)
	dst := make([]byte, len(src)*2+4096)
	n, err := CompressGzip(dst, src, Options{DisableDynamicHuffman: true})
	if err != nil {
		t.Fatal(err)
	}
	out := make([]byte, len(src)+64)
	m, err := DecompressGzip(out, dst[:n])
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out[:m], src) {
		t.Fatal("round trip mismatch with dynamic huffman disabled")
	}
}
