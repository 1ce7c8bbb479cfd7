package lzma

import "github.com/relaycore/tinyzzz/internal/codec"

const (
	headerLen     = 13
	dicMin        = 4096
	dicLenConst   = 0x40000000 // max(LZ_DIST_MAX_PLUS1, LZMA_DIC_MIN); the distance bound dominates
	zipPropLen    = 9
)

// writeHeader emits the 13-byte ".lzma" header: LCLPPB byte, 4-byte
// little-endian dictionary length (always the constant dicLenConst,
// regardless of actual input size, matching the source exactly), and
// an 8-byte uncompressed length (all-0xFF means "unknown, decode until
// dst is full").
func writeHeader(dst []byte, pos *int, opts Options, uncompressedLen uint64, lenKnown bool) error {
	if *pos+headerLen > len(dst) {
		return codec.New(codec.DstOverflow, "lzma: destination full")
	}
	dst[*pos] = opts.lclppbByte()
	*pos++
	for i := 0; i < 4; i++ {
		dst[*pos] = byte(uint32(dicLenConst) >> (8 * uint(i)))
		*pos++
	}
	for i := 0; i < 8; i++ {
		if lenKnown {
			dst[*pos] = byte(uncompressedLen)
			uncompressedLen >>= 8
		} else {
			dst[*pos] = 0xFF
		}
		*pos++
	}
	return nil
}

type parsedHeader struct {
	opts            Options
	uncompressedLen uint64
	lenKnown        bool
}

func parseHeader(src []byte) (parsedHeader, error) {
	if len(src) < headerLen {
		return parsedHeader{}, codec.New(codec.SrcOverflow, "lzma: truncated header")
	}
	opts := decodeLCLPPB(src[0])
	if err := opts.validate(); err != nil {
		return parsedHeader{}, err
	}

	allFF := true
	for i := 5; i < 13; i++ {
		if src[i] != 0xFF {
			allFF = false
			break
		}
	}
	h := parsedHeader{opts: opts}
	if allFF {
		h.lenKnown = false
	} else {
		h.lenKnown = true
		var v uint64
		for i := 0; i < 8; i++ {
			v |= uint64(src[5+i]) << (8 * uint(i))
		}
		h.uncompressedLen = v
	}
	return h, nil
}

// WriteZipLZMAProperty emits the 9-byte LZMA property record ZIP
// method-14 entries carry ahead of the compressed payload.
func WriteZipLZMAProperty(dst []byte, pos *int, opts Options) error {
	if *pos+zipPropLen > len(dst) {
		return codec.New(codec.DstOverflow, "lzma: destination full")
	}
	dst[*pos+0] = 0x10
	dst[*pos+1] = 0x02
	dst[*pos+2] = 0x05
	dst[*pos+3] = 0x00
	dst[*pos+4] = opts.lclppbByte()
	for i := 0; i < 4; i++ {
		dst[*pos+5+i] = byte(uint32(dicLenConst) >> (8 * uint(i)))
	}
	*pos += zipPropLen
	return nil
}

// ParseZipLZMAProperty reads the LCLPPB byte back out of the 9-byte
// ZIP property record; the remaining fields are fixed/uninterpreted.
func ParseZipLZMAProperty(src []byte) (Options, error) {
	if len(src) < zipPropLen {
		return Options{}, codec.New(codec.SrcOverflow, "lzma: truncated zip lzma property")
	}
	opts := decodeLCLPPB(src[4])
	if err := opts.validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}
