package main

import (
	"testing"

	"github.com/relaycore/tinyzzz/internal/codec"
)

func TestPickFormatRequiresExactlyOne(t *testing.T) {
	if _, err := pickFormat(false, false, false, false, false, false); err == nil {
		t.Fatal("expected an error when no format flag is set")
	}
	if _, err := pickFormat(true, true, false, false, false, false); err == nil {
		t.Fatal("expected an error when two format flags are set")
	}
}

func TestPickFormatLpaq8Rejected(t *testing.T) {
	_, err := pickFormat(false, false, false, false, true, false)
	if codec.KindOf(err) != codec.Unsupported {
		t.Fatalf("got %v, want Unsupported", err)
	}
}

func TestPickFormatSelectsRequestedFormat(t *testing.T) {
	f, err := pickFormat(false, false, false, true, false, false)
	if err != nil {
		t.Fatal(err)
	}
	if f != formatLZMA {
		t.Fatalf("got %v, want formatLZMA", f)
	}
}

func TestOutputNameCompressAppendsSuffix(t *testing.T) {
	got := outputName("/tmp/data.bin", formatGzip, true)
	want := "/tmp/data.bin.gzip"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestOutputNameDecompressStripsSuffix(t *testing.T) {
	got := outputName("/tmp/data.bin.lzma", formatLZMA, false)
	want := "/tmp/data.bin"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestOutputNameDecompressWithoutSuffix(t *testing.T) {
	got := outputName("/tmp/data.bin", formatLZMA, false)
	want := "/tmp/data.bin.out"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestCompressRoundTripThroughCache(t *testing.T) {
	src := []byte("the quick brown fox jumps over the lazy dog, repeatedly, for padding")
	compressed, err := compressBytes(formatGzip, src)
	if err != nil {
		t.Fatal(err)
	}
	// second call should hit the cache and return the identical bytes
	again, err := compressBytes(formatGzip, src)
	if err != nil {
		t.Fatal(err)
	}
	if string(compressed) != string(again) {
		t.Fatal("cached compress result differs from the original")
	}

	out, err := decompressBytes(formatGzip, compressed, len(src))
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != string(src) {
		t.Fatalf("got %q, want %q", out, src)
	}
}
