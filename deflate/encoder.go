// Package deflate implements the DEFLATE/gzip encoder: LZ77 parsing
// over a single-level hash table, package-merge-flavored canonical
// Huffman construction, and the gzip envelope. Grounded throughout on
// gzipC.c (original_source): buildHuffmanLen, buildHuffmanBits,
// deflateBlockFixedHuffman, deflateBlockDynamicHuffman, deflateEncode, gzipC.
package deflate

import (
	"github.com/relaycore/tinyzzz/internal/bitio"
	"github.com/relaycore/tinyzzz/internal/lzmatch"
)

// Options configures the encoder. DisableDynamicHuffman forces
// fixed-Huffman-only blocks and raises the block size ceiling from
// 32 KiB to 16 MiB, per §6's build-time configuration note.
type Options struct {
	DisableDynamicHuffman bool
}

const (
	maxBlockDynamic = 32768
	maxBlockFixed   = 16 * 1024 * 1024
	hashTableSize   = (1 << 15) - 7
	maxMatchLen     = 258
	maxMatchDist    = 32768
)

type lzSymbol struct {
	isMatch bool
	lit     byte
	length  int
	dist    int
}

func parseLZ77Range(data []byte, matcher *lzmatch.SingleLevel, start, end int) []lzSymbol {
	var syms []lzSymbol
	pos := start
	for pos < end {
		if pos+2 < len(data) {
			maxLen := maxMatchLen
			if end-pos < maxLen {
				maxLen = end - pos
			}
			if l, d, ok := matcher.SearchMatch(data, pos, maxLen, maxMatchDist); ok {
				syms = append(syms, lzSymbol{isMatch: true, length: l, dist: d})
				for k := 1; k < l; k++ {
					p := pos + k
					if p+2 < len(data) {
						matcher.Update(p, matcher.Hash(data, p))
					}
				}
				pos += l
				continue
			}
		}
		syms = append(syms, lzSymbol{lit: data[pos]})
		pos++
	}
	return syms
}

func countFreq(syms []lzSymbol) (litFreq, distFreq []int) {
	litFreq = make([]int, numLitLenSymbols)
	distFreq = make([]int, numDistSymbols)
	litFreq[endBlockSymbol] = 1
	for _, s := range syms {
		if s.isMatch {
			symIdx, _, _ := lengthToSymbol(s.length)
			litFreq[symIdx]++
			dSym, _, _ := distToSymbol(s.dist)
			distFreq[dSym]++
		} else {
			litFreq[s.lit]++
		}
	}
	return litFreq, distFreq
}

// buildDynamicTrees pads any zero-frequency symbol inside the
// transmitted range up to 1 so every transmitted code length is >= 1 —
// required because this encoder's non-standard header (§4.4) writes
// code lengths as raw 4-bit fields with no escape for "unused".
func buildDynamicTrees(litFreq, distFreq []int) (litLens, distLens []int, hlit, hdist int) {
	maxLit := endBlockSymbol
	for i := numLitLenSymbols - 1; i > maxLit; i-- {
		if litFreq[i] > 0 {
			maxLit = i
			break
		}
	}
	litFreqPadded := make([]int, maxLit+1)
	copy(litFreqPadded, litFreq[:maxLit+1])
	for i := range litFreqPadded {
		if litFreqPadded[i] == 0 {
			litFreqPadded[i] = 1
		}
	}
	litLens = make([]int, numLitLenSymbols)
	copy(litLens, buildHuffmanLen(litFreqPadded, 20, 15))

	maxDist := -1
	for i := numDistSymbols - 1; i >= 0; i-- {
		if distFreq[i] > 0 {
			maxDist = i
			break
		}
	}
	if maxDist < 0 {
		maxDist = 0
	}
	distFreqPadded := make([]int, maxDist+1)
	copy(distFreqPadded, distFreq[:maxDist+1])
	for i := range distFreqPadded {
		if distFreqPadded[i] == 0 {
			distFreqPadded[i] = 1
		}
	}
	distLens = make([]int, numDistSymbols)
	copy(distLens, buildHuffmanLen(distFreqPadded, 7, 15))

	return litLens, distLens, maxLit - endBlockSymbol, maxDist
}

// clcLengthsConst is the constant code-length-code-length prefix this
// encoder always emits: §4.4's [0,0,0,4,4,...,4].
var clcLengthsConst = [19]int{0, 0, 0, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4}

func reverseNibble(v uint32) uint32 {
	var r uint32
	for i := 0; i < 4; i++ {
		r = (r << 1) | (v & 1)
		v >>= 1
	}
	return r
}

func writeDynamicHeader(w *bitio.Writer, hlit, hdist int, litLens, distLens []int) error {
	if err := w.Append(uint32(hlit), 5); err != nil {
		return err
	}
	if err := w.Append(uint32(hdist), 5); err != nil {
		return err
	}
	if err := w.Append(15, 4); err != nil {
		return err
	}
	for _, l := range clcLengthsConst {
		if err := w.Append(reverseNibble(uint32(l)), 4); err != nil {
			return err
		}
	}
	for i := 0; i <= hlit+endBlockSymbol; i++ {
		if err := w.Append(reverseNibble(uint32(litLens[i])), 4); err != nil {
			return err
		}
	}
	for i := 0; i <= hdist; i++ {
		if err := w.Append(reverseNibble(uint32(distLens[i])), 4); err != nil {
			return err
		}
	}
	return nil
}

func writeSymbols(w *bitio.Writer, syms []lzSymbol, litCodes []uint16, litLens []int, distCodes []uint16, distLens []int) error {
	for _, s := range syms {
		if s.isMatch {
			symIdx, extra, extraBits := lengthToSymbol(s.length)
			if err := w.Append(uint32(litCodes[symIdx]), uint(litLens[symIdx])); err != nil {
				return err
			}
			if extraBits > 0 {
				if err := w.Append(extra, extraBits); err != nil {
					return err
				}
			}
			dSym, dExtra, dExtraBits := distToSymbol(s.dist)
			if err := w.Append(uint32(distCodes[dSym]), uint(distLens[dSym])); err != nil {
				return err
			}
			if dExtraBits > 0 {
				if err := w.Append(dExtra, dExtraBits); err != nil {
					return err
				}
			}
		} else {
			if err := w.Append(uint32(litCodes[s.lit]), uint(litLens[s.lit])); err != nil {
				return err
			}
		}
	}
	return w.Append(uint32(litCodes[endBlockSymbol]), uint(litLens[endBlockSymbol]))
}

func emitFixed(w *bitio.Writer, syms []lzSymbol) error {
	litLens := fixedLitLengths()
	distLens := fixedDistLengths()
	litCodes := buildCanonicalCodes(litLens)
	distCodes := buildCanonicalCodes(distLens)
	return writeSymbols(w, syms, litCodes, litLens, distCodes, distLens)
}

func boolBit(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// encodeBlock tries both fixed and dynamic Huffman (unless disabled)
// and keeps whichever produced fewer bits, favoring fixed on a tie.
func encodeBlock(w *bitio.Writer, syms []lzSymbol, final, disableDynamic bool) error {
	if err := w.Append(boolBit(final), 1); err != nil {
		return err
	}
	if disableDynamic {
		if err := w.Append(1, 2); err != nil {
			return err
		}
		return emitFixed(w, syms)
	}

	start := w.Snapshot()
	if err := w.Append(1, 2); err != nil {
		return err
	}
	if err := emitFixed(w, syms); err != nil {
		return err
	}
	fixedBits := w.Snapshot().Bits() - start.Bits()

	w.Restore(start)
	dynErr := func() error {
		if err := w.Append(2, 2); err != nil {
			return err
		}
		litFreq, distFreq := countFreq(syms)
		litLens, distLens, hlit, hdist := buildDynamicTrees(litFreq, distFreq)
		litCodes := buildCanonicalCodes(litLens)
		distCodes := buildCanonicalCodes(distLens)
		if err := writeDynamicHeader(w, hlit, hdist, litLens, distLens); err != nil {
			return err
		}
		return writeSymbols(w, syms, litCodes, litLens, distCodes, distLens)
	}()
	dynamicBits := w.Snapshot().Bits() - start.Bits()

	// A dynamic trial that ran out of destination space loses to the
	// fixed block, which already fit.
	if dynErr != nil || fixedBits <= dynamicBits {
		w.Restore(start)
		if err := w.Append(1, 2); err != nil {
			return err
		}
		return emitFixed(w, syms)
	}
	return nil
}

// Compress encodes src as a sequence of raw DEFLATE blocks into dst,
// returning the number of bytes written.
func Compress(dst, src []byte, opts Options) (int, error) {
	w := bitio.NewWriter(dst)
	blockMax := maxBlockDynamic
	if opts.DisableDynamicHuffman {
		blockMax = maxBlockFixed
	}
	if len(src) == 0 {
		if err := encodeBlock(w, nil, true, opts.DisableDynamicHuffman); err != nil {
			return 0, err
		}
		if err := w.AlignToByte(); err != nil {
			return 0, err
		}
		return w.Len(), nil
	}

	matcher := lzmatch.NewSingleLevel(hashTableSize)
	pos := 0
	for pos < len(src) {
		end := pos + blockMax
		if end > len(src) {
			end = len(src)
		}
		syms := parseLZ77Range(src, matcher, pos, end)
		final := end >= len(src)
		if err := encodeBlock(w, syms, final, opts.DisableDynamicHuffman); err != nil {
			return 0, err
		}
		pos = end
	}
	if err := w.AlignToByte(); err != nil {
		return 0, err
	}
	return w.Len(), nil
}
