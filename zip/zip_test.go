package zip

import (
	"bytes"
	"testing"

	"github.com/relaycore/tinyzzz/internal/codec"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	cases := []struct {
		name   string
		data   []byte
		method uint16
	}{
		{"store.bin", []byte("stored as-is"), MethodStore},
		{"deflate.txt", bytes.Repeat([]byte("the quick brown fox "), 50), MethodDeflate},
		{"lzma.txt", bytes.Repeat([]byte("lzma payload data "), 50), MethodLZMA},
		{"empty.txt", []byte{}, MethodDeflate},
	}

	w := NewWriter()
	for _, c := range cases {
		if err := w.WriteFile(c.name, c.data, c.method); err != nil {
			t.Fatalf("WriteFile(%s): %v", c.name, err)
		}
	}
	archive, err := w.Close()
	if err != nil {
		t.Fatal(err)
	}

	r, err := NewReader(archive)
	if err != nil {
		t.Fatal(err)
	}

	entries := r.Entries()
	if len(entries) != len(cases) {
		t.Fatalf("got %d entries, want %d", len(entries), len(cases))
	}

	for _, c := range cases {
		got, err := r.ReadFile(c.name)
		if err != nil {
			t.Fatalf("ReadFile(%s): %v", c.name, err)
		}
		if !bytes.Equal(got, c.data) {
			t.Fatalf("ReadFile(%s): got %q, want %q", c.name, got, c.data)
		}
	}
}

func TestReadFileMissingEntry(t *testing.T) {
	w := NewWriter()
	if err := w.WriteFile("a.txt", []byte("hello"), MethodStore); err != nil {
		t.Fatal(err)
	}
	archive, err := w.Close()
	if err != nil {
		t.Fatal(err)
	}

	r, err := NewReader(archive)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.ReadFile("missing.txt"); err == nil {
		t.Fatal("expected an error for a missing entry")
	}
}

func TestCorruptedPayloadFailsChecksum(t *testing.T) {
	w := NewWriter()
	if err := w.WriteFile("a.txt", []byte("hello world"), MethodStore); err != nil {
		t.Fatal(err)
	}
	archive, err := w.Close()
	if err != nil {
		t.Fatal(err)
	}

	// Flip a byte inside the stored payload (right after the 30-byte
	// local header plus the 5-byte name) without touching any header field.
	archive[30+5] ^= 0xFF

	r, err := NewReader(archive)
	if err != nil {
		t.Fatal(err)
	}
	_, err = r.ReadFile("a.txt")
	if codec.KindOf(err) != codec.Corrupt {
		t.Fatalf("got %v, want Corrupt", err)
	}
}

func TestNotAZipFile(t *testing.T) {
	if _, err := NewReader([]byte("not a zip file at all")); err == nil {
		t.Fatal("expected an error")
	}
}
