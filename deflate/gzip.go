package deflate

import (
	"hash/crc32"

	"github.com/relaycore/tinyzzz/internal/codec"
)

// gzip header/trailer per §4.4: a fixed 10-byte header (magic, method 8,
// no flags, zero mtime, then the extra-flags byte 03 and the OS byte 04
// that the original source hard-codes), followed by the DEFLATE payload, followed by CRC-32 and
// length mod 2^32, both little-endian. CRC-32 uses the standard
// library's hash/crc32 — the teacher's own internal/zip/checksum.go
// does the same rather than hand-rolling the nibble-table algorithm
// gzipC.c uses, and no third-party CRC-32 implementation appears
// anywhere in the example pack.
var gzipHeader = [10]byte{0x1F, 0x8B, 0x08, 0x00, 0x00, 0x00, 0x00, 0x00, 0x03, 0x04}

// CompressGzip wraps Compress in a gzip envelope.
func CompressGzip(dst, src []byte, opts Options) (int, error) {
	if len(dst) < 10 {
		return 0, codec.New(codec.DstOverflow, "gzip: destination too small for header")
	}
	copy(dst[:10], gzipHeader[:])

	n, err := Compress(dst[10:], src, opts)
	if err != nil {
		return 0, err
	}
	pos := 10 + n

	if pos+8 > len(dst) {
		return 0, codec.New(codec.DstOverflow, "gzip: destination too small for trailer")
	}
	sum := crc32.ChecksumIEEE(src)
	putLE32(dst[pos:], sum)
	putLE32(dst[pos+4:], uint32(len(src)))
	return pos + 8, nil
}

func putLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func getLE32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// DecompressGzip reverses CompressGzip, verifying the header tag bytes,
// the CRC-32, and the declared length.
func DecompressGzip(dst, src []byte) (int, error) {
	if len(src) < 18 {
		return 0, codec.New(codec.SrcOverflow, "gzip: stream too short")
	}
	if src[0] != 0x1F || src[1] != 0x8B || src[2] != 0x08 {
		return 0, codec.New(codec.Data, "gzip: bad magic/method bytes")
	}
	body := src[10 : len(src)-8]
	n, err := Decompress(dst, body)
	if err != nil {
		return 0, err
	}
	trailer := src[len(src)-8:]
	wantCRC := getLE32(trailer[0:4])
	wantLen := getLE32(trailer[4:8])
	if gotLen := uint32(n); gotLen != wantLen {
		return n, codec.New(codec.OutputLenMismatch, "gzip: declared length %d != decoded length %d", wantLen, gotLen)
	}
	if gotCRC := crc32.ChecksumIEEE(dst[:n]); gotCRC != wantCRC {
		return n, codec.New(codec.Data, "gzip: crc32 mismatch")
	}
	return n, nil
}
