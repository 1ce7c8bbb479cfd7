package zstd

import (
	"github.com/relaycore/tinyzzz/internal/bitio"
	"github.com/relaycore/tinyzzz/internal/codec"
)

// decodeLiteralsSimple decodes a raw or RLE literals section: the
// 2-bit size format determines whether the regenerated size is 5, 12,
// or 20 bits wide, with the 5-bit form folding one size bit into the
// format field itself.
func decodeLiteralsSimple(r *bitio.Reader, blockType int) ([]byte, error) {
	sizeFormat, err := r.ReadBits(2)
	if err != nil {
		return nil, err
	}

	var size uint64
	switch sizeFormat {
	case 0, 2:
		v, err := r.ReadBits(4)
		if err != nil {
			return nil, err
		}
		size = (v << 1) + (sizeFormat >> 1)
	case 1:
		size, err = r.ReadBits(12)
	default:
		size, err = r.ReadBits(20)
	}
	if err != nil {
		return nil, err
	}
	if size > maxLiteralsSize {
		return nil, codec.New(codec.Corrupt, "zstd: literals size too large")
	}

	out := make([]byte, size)
	switch blockType {
	case 0: // raw
		sub, err := r.ForkSubstream(int(size))
		if err != nil {
			return nil, err
		}
		copy(out, sub.RemainingBytes())
	default: // rle
		b, err := r.ReadBits(8)
		if err != nil {
			return nil, err
		}
		for i := range out {
			out[i] = byte(b)
		}
	}
	return out, nil
}

// decodeLiteralsCompressed decodes a Huffman-compressed literals
// section, building (or reusing) the table as directed by blockType
// before running the 1-stream or 4-stream backward decode.
func decodeLiteralsCompressed(r *bitio.Reader, ctx *frameContext, blockType int) ([]byte, error) {
	sizeFormat, err := r.ReadBits(2)
	if err != nil {
		return nil, err
	}

	streams1 := sizeFormat == 0
	var sizeBits uint
	switch sizeFormat {
	case 0, 1:
		sizeBits = 10
	case 2:
		sizeBits = 14
	default:
		sizeBits = 18
	}

	regeneratedSize, err := r.ReadBits(sizeBits)
	if err != nil {
		return nil, err
	}
	compressedSize, err := r.ReadBits(sizeBits)
	if err != nil {
		return nil, err
	}
	if regeneratedSize > maxLiteralsSize {
		return nil, codec.New(codec.Corrupt, "zstd: literals size too large")
	}

	sub, err := r.ForkSubstream(int(compressedSize))
	if err != nil {
		return nil, err
	}

	if blockType == 2 {
		t, err := decodeHufTable(sub)
		if err != nil {
			return nil, err
		}
		ctx.literalsTable = t
	} else if ctx.literalsTable == nil {
		return nil, codec.New(codec.Corrupt, "zstd: huffman table reuse requested with no prior table")
	}

	out := make([]byte, regeneratedSize)
	var n int
	if streams1 {
		n, err = hufDecompress1Stream(sub.RemainingBytes(), out, ctx.literalsTable)
	} else {
		n, err = hufDecompress4Stream(sub, out, ctx.literalsTable)
	}
	if err != nil {
		return nil, err
	}
	if uint64(n) != regeneratedSize {
		return nil, codec.New(codec.Corrupt, "zstd: huffman literal count mismatch")
	}
	return out, nil
}
