// Package zstd implements a Zstandard frame decoder: FSE and Huffman
// entropy decoding, sequence execution, and frame/block parsing.
// Encoding and dictionary-assisted frames are not implemented. Grounded
// directly on TinyZstdDecompress.c's decode_frame/decompress_blocks_in_frame
// control flow.
package zstd

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/relaycore/tinyzzz/internal/codec"
)

const (
	magicFrame       = 0xFD2FB528
	skippableMagicLo = 0x184D2A50
	skippableMagicHi = 0x184D2A5F

	blockSizeMax    = 128 * 1024
	maxLiteralsSize = blockSizeMax
)

// Decompress decodes every concatenated frame in src into dst (skippable
// frames are consumed and ignored) and returns the total bytes written.
func Decompress(dst, src []byte) (int, error) {
	pos := 0
	written := 0
	for pos < len(src) {
		if pos+4 > len(src) {
			return written, codec.New(codec.SrcOverflow, "zstd: truncated frame magic")
		}
		magic := binary.LittleEndian.Uint32(src[pos:])

		if magic >= skippableMagicLo && magic <= skippableMagicHi {
			if pos+8 > len(src) {
				return written, codec.New(codec.SrcOverflow, "zstd: truncated skippable frame header")
			}
			size := binary.LittleEndian.Uint32(src[pos+4:])
			pos += 8 + int(size)
			if pos > len(src) {
				return written, codec.New(codec.SrcOverflow, "zstd: skippable frame overruns input")
			}
			continue
		}

		if magic != magicFrame {
			return written, codec.New(codec.Data, "zstd: bad frame magic %#x", magic)
		}

		n, consumed, err := decodeFrame(dst[written:], src[pos:])
		if err != nil {
			return written, err
		}
		written += n
		pos += consumed
	}
	return written, nil
}

func checksumMatches(data []byte, want uint32) bool {
	return uint32(xxhash.Sum64(data)) == want
}
