// Package lz4 implements the LZ4 block codec and its modern/legacy/
// skippable frame container. Grounded directly on lz4C.c and lz4D.c
// (original_source); no teacher file implements LZ4, so naming and
// file-per-concern structuring follows the nearest in-pack analogue,
// internal/sit/lzc.go's LZ-codec shape.
package lz4

import "github.com/relaycore/tinyzzz/internal/codec"

// Options configures the encoder.
type Options struct {
	// MaxOffset bounds how far back the encoder's exhaustive match
	// search looks. The source hard-codes 1024 though the frame format
	// permits up to 65535; §9 flags this as a tunable.
	MaxOffset int
}

func (o Options) withDefaults() Options {
	if o.MaxOffset <= 0 {
		o.MaxOffset = 1024
	}
	return o
}

const (
	minML                  = 4
	minCompressedBlockSize = 13
)

func writeByte(dst []byte, pos *int, b byte) error {
	if *pos >= len(dst) {
		return codec.New(codec.DstOverflow, "lz4: destination full")
	}
	dst[*pos] = b
	*pos++
	return nil
}

func writeVLC(dst []byte, pos *int, value int) error {
	for {
		if value < 255 {
			return writeByte(dst, pos, byte(value))
		}
		if err := writeByte(dst, pos, 255); err != nil {
			return err
		}
		value -= 255
	}
}

func copyInto(dst []byte, pos *int, src []byte) error {
	if len(src) > len(dst)-*pos {
		return codec.New(codec.DstOverflow, "lz4: destination full")
	}
	copy(dst[*pos:], src)
	*pos += len(src)
	return nil
}

// compressSequence writes one token + literal-run + (offset, match-length)
// per §4.5: a final sequence (of==0) writes literals only, no offset.
func compressSequence(dst []byte, pos *int, src []byte, litStart, matchStart, ml, of int) error {
	ll := matchStart - litStart
	tokenPos := *pos
	if err := writeByte(dst, pos, 0); err != nil {
		return err
	}
	if ll < 15 {
		dst[tokenPos] = byte(ll << 4)
	} else {
		dst[tokenPos] = 15 << 4
		if err := writeVLC(dst, pos, ll-15); err != nil {
			return err
		}
	}
	if err := copyInto(dst, pos, src[litStart:matchStart]); err != nil {
		return err
	}
	if of != 0 {
		if err := writeByte(dst, pos, byte(of&0xFF)); err != nil {
			return err
		}
		if err := writeByte(dst, pos, byte(of>>8)); err != nil {
			return err
		}
		ml -= minML
		if ml < 15 {
			dst[tokenPos] |= byte(ml)
		} else {
			dst[tokenPos] |= 15
			if err := writeVLC(dst, pos, ml-15); err != nil {
				return err
			}
		}
	}
	return nil
}

// compressBlock is an exhaustive scan of the preceding maxOffset bytes,
// mirroring lz4C.c's LZ4_compress_block exactly: no hash table, just a
// linear window scan, because the reference encoder doesn't use one either.
func compressBlock(dst []byte, pos *int, src []byte, maxOffset int) error {
	litStart := 0
	p := 0
	endlz := len(src)
	if len(src) > minCompressedBlockSize {
		endlz = len(src) - minCompressedBlockSize
	}
	for p < len(src) {
		ml, of := 0, 0
		matchStart := 0
		if p > maxOffset {
			matchStart = p - maxOffset
		}
		for m := matchStart; m < p; m++ {
			p1, p2 := m, p
			for p1 < len(src) && p2 < endlz && src[p1] == src[p2] {
				p1++
				p2++
			}
			length := p1 - m
			if length >= minML && ml < length {
				ml = length
				of = p - m
			}
		}
		if ml != 0 {
			if err := compressSequence(dst, pos, src, litStart, p, ml, of); err != nil {
				return err
			}
			p += ml
			litStart = p
		} else {
			p++
		}
	}
	return compressSequence(dst, pos, src, litStart, p, 0, 0)
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

// compressOrCopyBlockWithSize writes a 4-byte size field (high bit set
// means "stored uncompressed") followed by the block payload, falling
// back to a raw copy whenever compression didn't shrink the block.
func compressOrCopyBlockWithSize(dst []byte, pos *int, src []byte, maxOffset int) error {
	if *pos+4 > len(dst) {
		return codec.New(codec.DstOverflow, "lz4: destination full")
	}
	sizeFieldPos := *pos
	*pos += 4
	base := *pos

	var csize uint32
	if len(src) <= minCompressedBlockSize {
		if err := copyInto(dst, pos, src); err != nil {
			return err
		}
		csize = uint32(len(src)) | 0x80000000
	} else {
		if err := compressBlock(dst, pos, src, maxOffset); err != nil {
			return err
		}
		compressedLen := *pos - base
		if len(src) > compressedLen {
			csize = uint32(compressedLen)
		} else {
			*pos = base
			if err := copyInto(dst, pos, src); err != nil {
				return err
			}
			csize = uint32(len(src)) | 0x80000000
		}
	}
	putLE32(dst[sizeFieldPos:], csize)
	return nil
}

// decompressBlock decodes a single LZ4 block body (no size prefix) into
// dst starting at *pos, per §4.5's token/literal/offset/match-length grammar.
func decompressBlock(dst []byte, pos *int, src []byte) error {
	p := 0
	for p < len(src) {
		token := src[p]
		p++
		ll := int(token >> 4)
		if ll == 15 {
			for {
				if p >= len(src) {
					return codec.New(codec.SrcOverflow, "lz4: truncated literal length")
				}
				b := src[p]
				p++
				ll += int(b)
				if b < 255 {
					break
				}
			}
		}
		if p+ll > len(src) {
			return codec.New(codec.SrcOverflow, "lz4: truncated literals")
		}
		if *pos+ll > len(dst) {
			return codec.New(codec.DstOverflow, "lz4: destination full")
		}
		copy(dst[*pos:], src[p:p+ll])
		*pos += ll
		p += ll

		if p >= len(src) {
			break // trailing literal-only sequence: end of block
		}
		if p+2 > len(src) {
			return codec.New(codec.SrcOverflow, "lz4: truncated offset")
		}
		offset := int(src[p]) | int(src[p+1])<<8
		p += 2

		ml := int(token & 0xF)
		if ml == 15 {
			for {
				if p >= len(src) {
					return codec.New(codec.SrcOverflow, "lz4: truncated match length")
				}
				b := src[p]
				p++
				ml += int(b)
				if b < 255 {
					break
				}
			}
		}
		ml += minML

		if offset == 0 || offset > *pos {
			return codec.New(codec.Data, "lz4: match offset %d exceeds output position %d", offset, *pos)
		}
		if *pos+ml > len(dst) {
			return codec.New(codec.DstOverflow, "lz4: destination full")
		}
		// byte-at-a-time: overlapping copies (offset < length) are required.
		for k := 0; k < ml; k++ {
			dst[*pos] = dst[*pos-offset]
			*pos++
		}
	}
	return nil
}
