package deflate

import (
	"github.com/relaycore/tinyzzz/internal/bitio"
	"github.com/relaycore/tinyzzz/internal/codec"
)

// huffDecoder inverts a canonical-code table for decode. Kept as a
// per-length map rather than the teacher's table-driven
// huffmanChunkBits=9 scheme (internal/flate/inflate.go) because this
// decoder only ever needs to read back streams this package itself
// produced — fixed-Huffman blocks and this encoder's non-standard
// dynamic header (§4.4) — not arbitrary third-party DEFLATE, so the
// simpler map-based decode is the right tool for the narrower job.
type huffDecoder struct {
	byLen [16]map[uint16]int
}

func buildDecoder(codes []uint16, lengths []int) *huffDecoder {
	d := &huffDecoder{}
	for l := 0; l < 16; l++ {
		d.byLen[l] = map[uint16]int{}
	}
	for sym, l := range lengths {
		if l > 0 {
			d.byLen[l][codes[sym]] = sym
		}
	}
	return d
}

func (d *huffDecoder) decode(r *bitio.Reader) (int, error) {
	var accum uint16
	for length := 1; length <= 15; length++ {
		bit, err := r.ReadBits(1)
		if err != nil {
			return 0, err
		}
		accum |= uint16(bit) << uint(length-1)
		if sym, ok := d.byLen[length][accum]; ok {
			return sym, nil
		}
	}
	return 0, codec.New(codec.Corrupt, "deflate: no huffman code matched bit sequence")
}

func readNibbleReversed(r *bitio.Reader) (int, error) {
	v, err := r.ReadBits(4)
	if err != nil {
		return 0, err
	}
	var rv uint32
	vv := uint32(v)
	for i := 0; i < 4; i++ {
		rv = (rv << 1) | (vv & 1)
		vv >>= 1
	}
	return int(rv), nil
}

func readDynamicTrees(r *bitio.Reader) (litCodes []uint16, litLens []int, distCodes []uint16, distLens []int, err error) {
	hlitBits, err := r.ReadBits(5)
	if err != nil {
		return
	}
	hdistBits, err := r.ReadBits(5)
	if err != nil {
		return
	}
	if _, err = r.ReadBits(4); err != nil { // hclen, always 15 here; value unused by this decoder
		return
	}
	for i := 0; i < 19; i++ {
		if _, err = readNibbleReversed(r); err != nil { // constant placeholder prefix, discarded
			return
		}
	}
	numLit := int(hlitBits) + endBlockSymbol + 1
	numDist := int(hdistBits) + 1

	litLens = make([]int, numLitLenSymbols)
	for i := 0; i < numLit; i++ {
		l, e := readNibbleReversed(r)
		if e != nil {
			err = e
			return
		}
		litLens[i] = l
	}
	distLens = make([]int, numDistSymbols)
	for i := 0; i < numDist; i++ {
		l, e := readNibbleReversed(r)
		if e != nil {
			err = e
			return
		}
		distLens[i] = l
	}
	litCodes = buildCanonicalCodes(litLens)
	distCodes = buildCanonicalCodes(distLens)
	return
}

// Decompress reads raw DEFLATE blocks from src and writes the
// decompressed result into dst, returning the number of bytes written.
func Decompress(dst, src []byte) (int, error) {
	r := bitio.NewReader(src)
	out := 0

	fixedLitCodes := buildCanonicalCodes(fixedLitLengths())
	fixedLitLens := fixedLitLengths()
	fixedDistCodes := buildCanonicalCodes(fixedDistLengths())
	fixedDistLens := fixedDistLengths()
	fixedLitDec := buildDecoder(fixedLitCodes, fixedLitLens)
	fixedDistDec := buildDecoder(fixedDistCodes, fixedDistLens)

	for {
		final, err := r.ReadBits(1)
		if err != nil {
			return out, err
		}
		typ, err := r.ReadBits(2)
		if err != nil {
			return out, err
		}

		var litDec, distDec *huffDecoder
		switch typ {
		case 1: // fixed
			litDec, distDec = fixedLitDec, fixedDistDec
		case 2: // dynamic
			litCodes, litLens, distCodes, distLens, derr := readDynamicTrees(r)
			if derr != nil {
				return out, derr
			}
			litDec = buildDecoder(litCodes, litLens)
			distDec = buildDecoder(distCodes, distLens)
		default:
			return out, codec.New(codec.Corrupt, "deflate: unsupported block type %d", typ)
		}

		for {
			sym, derr := litDec.decode(r)
			if derr != nil {
				return out, derr
			}
			if sym == endBlockSymbol {
				break
			}
			if sym < endBlockSymbol {
				if out >= len(dst) {
					return out, codec.New(codec.DstOverflow, "deflate: output full")
				}
				dst[out] = byte(sym)
				out++
				continue
			}
			li := sym - 257
			if li < 0 || li >= len(lengthBase) {
				return out, codec.New(codec.Corrupt, "deflate: bad length symbol %d", sym)
			}
			extra, err := r.ReadBits(lengthExtraBits[li])
			if err != nil {
				return out, err
			}
			length := lengthBase[li] + int(extra)

			dSym, derr2 := distDec.decode(r)
			if derr2 != nil {
				return out, derr2
			}
			if dSym < 0 || dSym >= len(distBase) {
				return out, codec.New(codec.Corrupt, "deflate: bad distance symbol %d", dSym)
			}
			dExtra, err := r.ReadBits(distExtraBits[dSym])
			if err != nil {
				return out, err
			}
			dist := distBase[dSym] + int(dExtra)
			if dist > out {
				return out, codec.New(codec.Data, "deflate: distance %d exceeds output position %d", dist, out)
			}
			if out+length > len(dst) {
				return out, codec.New(codec.DstOverflow, "deflate: output full")
			}
			for k := 0; k < length; k++ {
				dst[out] = dst[out-dist]
				out++
			}
		}

		if final == 1 {
			break
		}
	}
	return out, nil
}
