package zstd

import (
	"github.com/relaycore/tinyzzz/internal/bitio"
	"github.com/relaycore/tinyzzz/internal/codec"
)

const (
	hufMaxBits  = 16
	hufMaxSymbs = 256
)

// hufTable is a flat canonical-Huffman decode table indexed by the next
// max_bits bits of the backward stream.
type hufTable struct {
	symbols []byte
	numBits []byte
	maxBits int
}

// initHufTable builds canonical Huffman codes from per-symbol bit
// depths: codes within a depth are allocated in symbol order, and each
// table entry spans every value of the bits below its own depth.
func initHufTable(bitsPerSymbol []byte) (*hufTable, error) {
	if len(bitsPerSymbol) > hufMaxSymbs {
		return nil, codec.New(codec.Unsupported, "zstd: too many huffman symbols")
	}

	var maxBits int
	var rankCount [hufMaxBits + 1]int
	for _, b := range bitsPerSymbol {
		if int(b) > hufMaxBits {
			return nil, codec.New(codec.Corrupt, "zstd: huffman table depth too large")
		}
		rankCount[b]++
		if int(b) > maxBits {
			maxBits = int(b)
		}
	}

	t := &hufTable{
		symbols: make([]byte, 1<<uint(maxBits)),
		numBits: make([]byte, 1<<uint(maxBits)),
		maxBits: maxBits,
	}

	var rankIdx [hufMaxBits + 1]int
	rankIdx[maxBits] = 0
	for i := maxBits; i >= 1; i-- {
		rankIdx[i-1] = rankIdx[i] + rankCount[i]*(1<<uint(maxBits-i))
		for j := rankIdx[i]; j < rankIdx[i-1]; j++ {
			t.numBits[j] = byte(i)
		}
	}
	if rankIdx[0] != 1<<uint(maxBits) {
		return nil, codec.New(codec.Corrupt, "zstd: huffman rank table does not cover the full range")
	}

	for i, b := range bitsPerSymbol {
		if b == 0 {
			continue
		}
		code := rankIdx[b]
		length := 1 << uint(maxBits-int(b))
		for j := 0; j < length; j++ {
			t.symbols[code+j] = byte(i)
		}
		rankIdx[b] += length
	}

	return t, nil
}

// convertHufWeightsToBits derives the untransmitted last symbol's
// weight from the requirement that Σ 2^(weight-1) over every symbol
// (including the implied last one) equal the next power of two, then
// converts weights to canonical bit depths.
func convertHufWeightsToBits(weights []byte) ([]byte, error) {
	if len(weights)+1 > hufMaxSymbs {
		return nil, codec.New(codec.Unsupported, "zstd: too many huffman symbols")
	}

	var weightSum uint64
	for _, w := range weights {
		if w > hufMaxBits {
			return nil, codec.New(codec.Corrupt, "zstd: huffman weight out of range")
		}
		if w > 0 {
			weightSum += uint64(1) << (w - 1)
		}
	}

	maxBits := bitio.HighestSetBit(uint32(weightSum)) + 1
	leftOver := (uint64(1) << uint(maxBits)) - weightSum
	if leftOver&(leftOver-1) != 0 {
		return nil, codec.New(codec.Corrupt, "zstd: huffman weights do not sum to a power of two")
	}
	lastWeight := bitio.HighestSetBit(uint32(leftOver)) + 1

	bits := make([]byte, len(weights)+1)
	for i, w := range weights {
		if w > 0 {
			bits[i] = byte(maxBits + 1 - int(w))
		}
	}
	bits[len(weights)] = byte(maxBits + 1 - lastWeight)
	return bits, nil
}

// decodeHufTable reads a Huffman table description: either a direct
// 4-bit-per-weight array (header byte >= 128) or FSE-compressed
// weights, then builds the canonical decode table from the result.
func decodeHufTable(r *bitio.Reader) (*hufTable, error) {
	hbyte, err := r.ReadBits(8)
	if err != nil {
		return nil, err
	}

	var weights [hufMaxSymbs]byte
	var numSymbs int

	if hbyte >= 128 {
		numSymbs = int(hbyte) - 127
		sub, err := r.ForkSubstream((numSymbs + 1) / 2)
		if err != nil {
			return nil, err
		}
		raw := sub.RemainingBytes()
		for i := 0; i < numSymbs; i++ {
			if i%2 == 0 {
				weights[i] = raw[i/2] >> 4
			} else {
				weights[i] = raw[i/2] & 0xf
			}
		}
	} else {
		fseSub, err := r.ForkSubstream(int(hbyte))
		if err != nil {
			return nil, err
		}
		fseTbl, err := decodeFSEHeader(fseSub, 7)
		if err != nil {
			return nil, err
		}
		br, err := bitio.NewBackwardReader(fseSub.RemainingBytes())
		if err != nil {
			return nil, err
		}
		n, err := fseDecodeInterleaved2(br, weights[:], fseTbl)
		if err != nil {
			return nil, err
		}
		numSymbs = n
	}

	bits, err := convertHufWeightsToBits(weights[:numSymbs])
	if err != nil {
		return nil, err
	}
	return initHufTable(bits)
}

// hufDecompress1Stream decodes a single backward-coded Huffman stream,
// feeding a max_bits-wide shift register and emitting one symbol per
// table lookup until the stream runs dry.
func hufDecompress1Stream(in []byte, out []byte, t *hufTable) (int, error) {
	br, err := bitio.NewBackwardReader(in)
	if err != nil {
		return 0, err
	}

	shiftBits := br.ReadMove(uint(t.maxBits))
	mask := uint64(1)<<uint(t.maxBits) - 1
	n := 0
	for br.Offset() >= -t.maxBits {
		if n >= len(out) {
			return n, codec.New(codec.DstOverflow, "zstd: huffman literal output overflow")
		}
		out[n] = t.symbols[shiftBits]
		n++
		bits := t.numBits[shiftBits]
		rest := br.ReadMove(uint(bits))
		shiftBits = ((shiftBits << bits) + rest) & mask
	}
	if br.Offset() != -t.maxBits-1 {
		return n, codec.New(codec.Corrupt, "zstd: huffman stream misaligned")
	}
	return n, nil
}

// hufDecompress4Stream splits the payload into four independently
// backward-decoded streams: the first three are prefixed by 2-byte
// little-endian sizes, and the fourth runs to the end of the input.
func hufDecompress4Stream(r *bitio.Reader, out []byte, t *hufTable) (int, error) {
	csize1, err := r.ReadBits(16)
	if err != nil {
		return 0, err
	}
	csize2, err := r.ReadBits(16)
	if err != nil {
		return 0, err
	}
	csize3, err := r.ReadBits(16)
	if err != nil {
		return 0, err
	}

	sub1, err := r.ForkSubstream(int(csize1))
	if err != nil {
		return 0, err
	}
	sub2, err := r.ForkSubstream(int(csize2))
	if err != nil {
		return 0, err
	}
	sub3, err := r.ForkSubstream(int(csize3))
	if err != nil {
		return 0, err
	}
	sub4, err := r.ForkSubstream(r.Remaining())
	if err != nil {
		return 0, err
	}

	pos := 0
	for _, sub := range []*bitio.Reader{sub1, sub2, sub3, sub4} {
		n, err := hufDecompress1Stream(sub.RemainingBytes(), out[pos:], t)
		if err != nil {
			return pos, err
		}
		pos += n
	}
	return pos, nil
}
