package lzma

import (
	"bytes"
	"testing"

	"github.com/relaycore/tinyzzz/internal/codec"
)

func TestRoundTrip(t *testing.T) {
	cases := map[string][]byte{
		"empty":          {},
		"one byte":       {0x41},
		"repetitive":     bytes.Repeat([]byte{0x00}, 10000),
		"text":           []byte("the quick brown fox jumps over the lazy dog, the quick brown fox jumps again"),
		"binary-ish":     {0, 1, 2, 3, 255, 254, 253, 0, 1, 2, 3, 255, 254, 253, 10, 20, 30},
		"short reps":     bytes.Repeat([]byte("ab"), 200),
		"long distances": append(bytes.Repeat([]byte{0x37}, 70000), []byte("tail")...),
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

func TestOneByteStreamIsThirteenBytePlusPayload(t *testing.T) {
	dst := make([]byte, 64)
	n, err := Compress(dst, []byte{0x41}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if n <= headerLen {
		t.Fatalf("expected more than the bare header, got %d bytes", n)
	}
	if dst[0] != (Options{}).withDefaults().lclppbByte() {
		t.Fatalf("unexpected lclppb byte %#x", dst[0])
	}
}

func TestRawRoundTrip(t *testing.T) {
	src := []byte("raw stream with no file header, embedded in a zip entry")
	opts := Options{LC: 3, LP: 0, PB: 2}
	dst := make([]byte, len(src)*2+4096)
	n, err := CompressRaw(dst, src, opts)
	if err != nil {
		t.Fatal(err)
	}
	out := make([]byte, len(src)+64)
	m, err := DecompressRaw(out, dst[:n], opts)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out[:m], src) {
		t.Fatal("raw round trip mismatch")
	}
}

func TestZipLZMAPropertyRoundTrip(t *testing.T) {
	opts := Options{LC: 4, LP: 0, PB: 3}
	buf := make([]byte, zipPropLen)
	pos := 0
	if err := WriteZipLZMAProperty(buf, &pos, opts); err != nil {
		t.Fatal(err)
	}
	got, err := ParseZipLZMAProperty(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got != opts {
		t.Fatalf("got %+v, want %+v", got, opts)
	}
}

func TestDeclaredLengthLongerThanPayloadFails(t *testing.T) {
	src := []byte("short payload")
	dst := make([]byte, len(src)*2+64)
	n, err := Compress(dst, src, Options{})
	if err != nil {
		t.Fatal(err)
	}
	// Lie about the uncompressed length in the header.
	stream := make([]byte, n)
	copy(stream, dst[:n])
	stream[5] = byte(len(src) + 100)

	out := make([]byte, len(src)+200)
	_, err = Decompress(out, stream)
	if codec.KindOf(err) != codec.OutputLenMismatch {
		t.Fatalf("got %v, want OutputLenMismatch", err)
	}
}

func TestStateStaysInBounds(t *testing.T) {
	for s := 0; s < numStates; s++ {
		for _, p := range []packet{pktLit, pktMatch, pktShortRep, pktRep0, pktRep1, pktRep2, pktRep3} {
			next := stateTransition(s, p)
			if next < 0 || next >= numStates {
				t.Fatalf("state %d + packet %d transitioned out of bounds to %d", s, p, next)
			}
		}
	}
}

func TestLCLPPBByteRoundTrip(t *testing.T) {
	for lc := 0; lc <= 4; lc++ {
		for lp := 0; lp <= 2; lp++ {
			for pb := 0; pb <= 4; pb++ {
				o := Options{LC: lc, LP: lp, PB: pb}
				got := decodeLCLPPB(o.lclppbByte())
				if got != o {
					t.Fatalf("lclppb round trip: got %+v, want %+v", got, o)
				}
			}
		}
	}
}
