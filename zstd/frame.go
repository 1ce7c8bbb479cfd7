package zstd

import (
	"github.com/relaycore/tinyzzz/internal/bitio"
	"github.com/relaycore/tinyzzz/internal/codec"
)

// frameContext carries the state shared across the blocks of a single
// frame: window size, the three repeat-offset registers, and whichever
// Huffman/FSE tables are currently valid for "reuse from previous
// block" references.
type frameContext struct {
	nBytesDecoded    int
	windowSize       int
	frameContentSize uint64
	contentChecksum  bool
	singleSegment    bool

	literalsTable *hufTable
	llTable       *fseTable
	mlTable       *fseTable
	ofTable       *fseTable

	prevOffsets [3]uint64
}

// parseFrameHeader reads the descriptor byte, optional window
// descriptor, and optional frame-content-size field, per the published
// frame-header layout.
func parseFrameHeader(r *bitio.Reader) (*frameContext, error) {
	dictIDFlag, err := r.ReadBits(2)
	if err != nil {
		return nil, err
	}
	checksumFlag, err := r.ReadBits(1)
	if err != nil {
		return nil, err
	}
	reserved, err := r.ReadBits(1)
	if err != nil {
		return nil, err
	}
	if reserved != 0 {
		return nil, codec.New(codec.Corrupt, "zstd: reserved frame header bit set")
	}
	if _, err := r.ReadBits(1); err != nil { // unused bit
		return nil, err
	}
	singleSegment, err := r.ReadBits(1)
	if err != nil {
		return nil, err
	}
	fcsFlag, err := r.ReadBits(2)
	if err != nil {
		return nil, err
	}

	if dictIDFlag != 0 {
		return nil, codec.New(codec.Unsupported, "zstd: dictionary-assisted frames are not supported")
	}

	ctx := &frameContext{
		contentChecksum: checksumFlag != 0,
		singleSegment:   singleSegment != 0,
		prevOffsets:     [3]uint64{1, 4, 8},
	}

	if singleSegment == 0 {
		mantissa, err := r.ReadBits(3)
		if err != nil {
			return nil, err
		}
		exponent, err := r.ReadBits(5)
		if err != nil {
			return nil, err
		}
		base := uint64(1) << (10 + exponent)
		ctx.windowSize = int(base + (base>>3)*mantissa)
	}

	if singleSegment != 0 || fcsFlag != 0 {
		nbytes := [4]uint{1, 2, 4, 8}[fcsFlag]
		v, err := r.ReadBits(nbytes * 8)
		if err != nil {
			return nil, err
		}
		if nbytes == 2 {
			v += 256
		}
		ctx.frameContentSize = v
	}

	if singleSegment != 0 {
		ctx.windowSize = int(ctx.frameContentSize)
	}

	return ctx, nil
}

// decodeFrame decodes one complete frame (magic already identified by
// the caller) starting at src[0] and returns the decompressed byte
// count plus the number of input bytes the frame consumed, so the
// caller can advance past it to find a following concatenated frame.
func decodeFrame(dst, src []byte) (int, int, error) {
	r := bitio.NewReader(src)
	if _, err := r.ReadBits(32); err != nil { // magic, already validated by caller
		return 0, 0, err
	}

	ctx, err := parseFrameHeader(r)
	if err != nil {
		return 0, 0, err
	}

	if ctx.frameContentSize != 0 && uint64(len(dst)) < ctx.frameContentSize {
		return 0, 0, codec.New(codec.DstOverflow, "zstd: destination too small for frame content size %d", ctx.frameContentSize)
	}

	n, err := decompressBlocks(r, dst, ctx)
	if err != nil {
		return n, 0, err
	}

	if ctx.contentChecksum {
		digest, err := r.ReadBits(32)
		if err != nil {
			return n, 0, err
		}
		if !checksumMatches(dst[:n], uint32(digest)) {
			return n, 0, codec.New(codec.Corrupt, "zstd: content checksum mismatch")
		}
	}

	return n, r.BitsConsumed() / 8, nil
}

// decompressBlocks walks the block list until the last-block flag is
// set, dispatching each block by type.
func decompressBlocks(r *bitio.Reader, dst []byte, ctx *frameContext) (int, error) {
	pos := 0
	for {
		last, err := r.ReadBits(1)
		if err != nil {
			return pos, err
		}
		blockType, err := r.ReadBits(2)
		if err != nil {
			return pos, err
		}
		blockLen, err := r.ReadBits(21)
		if err != nil {
			return pos, err
		}

		switch blockType {
		case 0: // raw
			sub, err := r.ForkSubstream(int(blockLen))
			if err != nil {
				return pos, err
			}
			raw := sub.RemainingBytes()
			if pos+len(raw) > len(dst) {
				return pos, codec.New(codec.DstOverflow, "zstd: output buffer too small")
			}
			copy(dst[pos:], raw)
			pos += len(raw)
			ctx.nBytesDecoded += len(raw)

		case 1: // rle
			sub, err := r.ForkSubstream(1)
			if err != nil {
				return pos, err
			}
			b := sub.RemainingBytes()[0]
			if pos+int(blockLen) > len(dst) {
				return pos, codec.New(codec.DstOverflow, "zstd: output buffer too small")
			}
			for i := 0; i < int(blockLen); i++ {
				dst[pos+i] = b
			}
			pos += int(blockLen)
			ctx.nBytesDecoded += int(blockLen)

		case 2: // compressed
			sub, err := r.ForkSubstream(int(blockLen))
			if err != nil {
				return pos, err
			}
			n, err := decompressCompressedBlock(sub, dst[pos:], ctx)
			if err != nil {
				return pos, err
			}
			pos += n

		default: // reserved
			return pos, codec.New(codec.Corrupt, "zstd: reserved block type")
		}

		if last != 0 {
			break
		}
	}
	return pos, nil
}

// decompressCompressedBlock decodes a type-2 block: the literals
// section, the sequence count and per-field compression modes, and
// then the sequences themselves.
func decompressCompressedBlock(blk *bitio.Reader, dst []byte, ctx *frameContext) (int, error) {
	literalsType, err := blk.ReadBits(2)
	if err != nil {
		return 0, err
	}

	var literals []byte
	if literalsType <= 1 {
		literals, err = decodeLiteralsSimple(blk, int(literalsType))
	} else {
		literals, err = decodeLiteralsCompressed(blk, ctx, int(literalsType))
	}
	if err != nil {
		return 0, err
	}

	hbyte, err := blk.ReadBits(8)
	if err != nil {
		return 0, err
	}
	var nSeq int
	switch {
	case hbyte < 128:
		nSeq = int(hbyte)
	case hbyte < 255:
		b, err := blk.ReadBits(8)
		if err != nil {
			return 0, err
		}
		nSeq = (int(hbyte)-128)<<8 + int(b)
	default:
		b, err := blk.ReadBits(16)
		if err != nil {
			return 0, err
		}
		nSeq = int(b) + 0x7F00
	}

	var litLens, matLens, offsets []uint64
	if nSeq > 0 {
		litLens = make([]uint64, nSeq)
		matLens = make([]uint64, nSeq)
		offsets = make([]uint64, nSeq)
		if err := decompressSequences(blk, litLens, matLens, offsets, ctx); err != nil {
			return 0, err
		}
	}

	return executeSequences(dst, literals, litLens, matLens, offsets, ctx)
}
