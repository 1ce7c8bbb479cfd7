package lz4

import "github.com/relaycore/tinyzzz/internal/codec"

// Frame magic numbers, per lz4D.c/lz4C.c.
const (
	magicModern          = 0x184D2204
	magicLegacy          = 0x184C2102
	skippableMagicLo     = 0x184D2A50
	skippableMagicHi     = 0x184D2A5F
	maxCompressedBlockSize = 4 * 1024 * 1024
	legacyBlockSize      = 8 * 1024 * 1024
)

// prologue is the fixed 7-byte frame start this writer always emits:
// the modern-frame magic, then a descriptor of version 1, no block
// checksum, no content size, no content checksum, no dictionary ID,
// block-max-size index 7 (4 MiB), plus its HC byte.
var prologue = [7]byte{0x04, 0x22, 0x4D, 0x18, 0x60, 0x70, 0x73}

func putLE32At(dst []byte, pos int, v uint32) {
	dst[pos] = byte(v)
	dst[pos+1] = byte(v >> 8)
	dst[pos+2] = byte(v >> 16)
	dst[pos+3] = byte(v >> 24)
}

// Compress writes src as a modern LZ4 frame (magic, descriptor,
// size-prefixed blocks chunked to maxCompressedBlockSize, end marker).
func Compress(dst, src []byte, opts Options) (int, error) {
	opts = opts.withDefaults()
	pos := 0
	if pos+len(prologue) > len(dst) {
		return 0, codec.New(codec.DstOverflow, "lz4: destination full")
	}
	copy(dst[pos:], prologue[:])
	pos += len(prologue)

	if len(src) == 0 {
		if err := compressOrCopyBlockWithSize(dst, &pos, src, opts.MaxOffset); err != nil {
			return 0, err
		}
	}
	for off := 0; off < len(src); {
		end := off + maxCompressedBlockSize
		if end > len(src) {
			end = len(src)
		}
		if err := compressOrCopyBlockWithSize(dst, &pos, src[off:end], opts.MaxOffset); err != nil {
			return 0, err
		}
		off = end
	}

	if pos+4 > len(dst) {
		return 0, codec.New(codec.DstOverflow, "lz4: destination full")
	}
	putLE32At(dst, pos, 0)
	pos += 4
	return pos, nil
}

// frameDescriptor reports the fields of a modern frame descriptor that
// parseFrameDescriptor validated, per LZ4_parse_frame_descriptor in lz4D.c.
type frameDescriptor struct {
	blockChecksum  bool
	contentSize    bool
	contentChecksum bool
	dictID         bool
}

func parseFrameDescriptor(src []byte, pos *int) (frameDescriptor, error) {
	var fd frameDescriptor
	if *pos+2 > len(src) {
		return fd, codec.New(codec.SrcOverflow, "lz4: truncated frame descriptor")
	}
	bdFlg := uint32(src[*pos]) | uint32(src[*pos+1])<<8
	*pos += 2

	version := (bdFlg >> 6) & 3
	if version != 1 {
		return fd, codec.New(codec.Unsupported, "lz4: unsupported frame version %d", version)
	}
	if (bdFlg>>1)&1 != 0 {
		return fd, codec.New(codec.Unsupported, "lz4: reserved descriptor bit set")
	}
	if (bdFlg>>8)&0xF != 0 {
		return fd, codec.New(codec.Unsupported, "lz4: reserved descriptor bit set")
	}
	if (bdFlg>>15)&1 != 0 {
		return fd, codec.New(codec.Unsupported, "lz4: reserved descriptor bit set")
	}
	blockMaxIdx := (bdFlg >> 12) & 7
	if blockMaxIdx < 4 {
		return fd, codec.New(codec.Unsupported, "lz4: invalid block-max-size index %d", blockMaxIdx)
	}

	fd.dictID = bdFlg&1 != 0
	fd.contentChecksum = (bdFlg>>2)&1 != 0
	fd.contentSize = (bdFlg>>3)&1 != 0
	fd.blockChecksum = (bdFlg>>4)&1 != 0

	if fd.contentSize {
		if *pos+8 > len(src) {
			return fd, codec.New(codec.SrcOverflow, "lz4: truncated content size field")
		}
		*pos += 8
	}
	if fd.dictID {
		return fd, codec.New(codec.Unsupported, "lz4: dictionary frames are not supported")
	}
	if *pos+1 > len(src) {
		return fd, codec.New(codec.SrcOverflow, "lz4: truncated HC byte")
	}
	*pos++ // header checksum, not verified
	return fd, nil
}

func decompressModernFrame(dst []byte, pos *int, src []byte, p *int) (err error) {
	descStart, outStart := *p, *pos
	fd, err := parseFrameDescriptor(src, p)
	if err != nil {
		return err
	}
	if fd.contentSize {
		// the 8-byte content size follows the 2-byte FLG/BD pair
		declared := uint64(getLE32(src[descStart+2:])) | uint64(getLE32(src[descStart+6:]))<<32
		defer func() {
			if err == nil && uint64(*pos-outStart) != declared {
				err = codec.New(codec.OutputLenMismatch, "lz4: declared content size %d != decoded %d", declared, *pos-outStart)
			}
		}()
	}
	for {
		if *p+4 > len(src) {
			return codec.New(codec.SrcOverflow, "lz4: truncated block size")
		}
		bsize := getLE32(src[*p:])
		*p += 4
		if bsize == 0 {
			break // end marker
		}
		stored := bsize&0x80000000 != 0
		csize := int(bsize &^ 0x80000000)
		if *p+csize > len(src) {
			return codec.New(codec.SrcOverflow, "lz4: truncated block body")
		}
		block := src[*p : *p+csize]
		*p += csize
		if fd.blockChecksum {
			if *p+4 > len(src) {
				return codec.New(codec.SrcOverflow, "lz4: truncated block checksum")
			}
			*p += 4 // not verified; Non-goal per §1
		}
		if stored {
			if err := copyInto(dst, pos, block); err != nil {
				return err
			}
		} else {
			if err := decompressBlock(dst, pos, block); err != nil {
				return err
			}
		}
	}
	if fd.contentChecksum {
		if *p+4 > len(src) {
			return codec.New(codec.SrcOverflow, "lz4: truncated content checksum")
		}
		*p += 4
	}
	return nil
}

func decompressLegacyFrame(dst []byte, pos *int, src []byte, p *int) error {
	*p += 4 // legacy magic
	for *p+4 <= len(src) {
		v := getLE32(src[*p:])
		if v == magicModern || v == magicLegacy || (v >= skippableMagicLo && v <= skippableMagicHi) {
			break // the next frame starts here; the outer loop picks it up
		}
		csize := int(v)
		*p += 4
		if *p+csize > len(src) {
			return codec.New(codec.SrcOverflow, "lz4: truncated legacy block body")
		}
		block := src[*p : *p+csize]
		*p += csize
		if err := decompressBlock(dst, pos, block); err != nil {
			return err
		}
	}
	return nil
}

func skipSkippableFrame(src []byte, p *int) error {
	*p += 4
	if *p+4 > len(src) {
		return codec.New(codec.SrcOverflow, "lz4: truncated skippable frame size")
	}
	size := int(getLE32(src[*p:]))
	*p += 4
	if *p+size > len(src) {
		return codec.New(codec.SrcOverflow, "lz4: truncated skippable frame body")
	}
	*p += size
	return nil
}

// Decompress recognizes modern, legacy, and skippable frames, in any
// concatenation, and writes the decompressed concatenation of all
// modern/legacy frame payloads into dst.
func Decompress(dst, src []byte) (int, error) {
	out := 0
	p := 0
	for p < len(src) {
		if p+4 > len(src) {
			return out, codec.New(codec.SrcOverflow, "lz4: truncated frame magic")
		}
		magic := getLE32(src[p:])
		switch {
		case magic == magicModern:
			p += 4
			if err := decompressModernFrame(dst, &out, src, &p); err != nil {
				return out, err
			}
		case magic == magicLegacy:
			if err := decompressLegacyFrame(dst, &out, src, &p); err != nil {
				return out, err
			}
		case magic >= skippableMagicLo && magic <= skippableMagicHi:
			if err := skipSkippableFrame(src, &p); err != nil {
				return out, err
			}
		default:
			return out, codec.New(codec.Data, "lz4: unrecognized frame magic 0x%08x", magic)
		}
	}
	return out, nil
}
