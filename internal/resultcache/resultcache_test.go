package resultcache

import (
	"bytes"
	"testing"
)

func TestCacheMissThenHit(t *testing.T) {
	c := New(8)

	src := []byte("hello world")
	if _, ok := c.Get(CodecDeflate, src); ok {
		t.Fatal("expected a miss before any Put")
	}

	result := []byte("compressed bytes")
	c.Put(CodecDeflate, src, result)

	got, ok := c.Get(CodecDeflate, src)
	if !ok {
		t.Fatal("expected a hit after Put")
	}
	if !bytes.Equal(got, result) {
		t.Fatalf("got %q, want %q", got, result)
	}
}

func TestCacheDistinguishesCodec(t *testing.T) {
	c := New(8)
	src := []byte("same input")

	c.Put(CodecDeflate, src, []byte("deflate result"))
	c.Put(CodecLZMA, src, []byte("lzma result"))

	got, ok := c.Get(CodecLZMA, src)
	if !ok || string(got) != "lzma result" {
		t.Fatalf("got %q, %v, want %q, true", got, ok, "lzma result")
	}

	got, ok = c.Get(CodecDeflate, src)
	if !ok || string(got) != "deflate result" {
		t.Fatalf("got %q, %v, want %q, true", got, ok, "deflate result")
	}
}

func TestCacheDistinguishesInput(t *testing.T) {
	c := New(8)

	c.Put(CodecGzip, []byte("input one"), []byte("result one"))
	c.Put(CodecGzip, []byte("input two"), []byte("result two"))

	got, ok := c.Get(CodecGzip, []byte("input one"))
	if !ok || string(got) != "result one" {
		t.Fatalf("got %q, %v", got, ok)
	}
}

func TestCachePutCopiesResult(t *testing.T) {
	c := New(8)
	src := []byte("x")
	result := []byte{1, 2, 3}
	c.Put(CodecLZ4, src, result)

	result[0] = 0xFF

	got, ok := c.Get(CodecLZ4, src)
	if !ok {
		t.Fatal("expected a hit")
	}
	if got[0] != 1 {
		t.Fatalf("cached result was mutated by the caller's slice: got %v", got)
	}
}
