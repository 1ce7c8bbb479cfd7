package zstd

import (
	"github.com/relaycore/tinyzzz/internal/bitio"
	"github.com/relaycore/tinyzzz/internal/codec"
)

const (
	maxCodeLitLen = 35
	maxCodeMatLen = 52
)

// The predefined FSE distribution tables for Predefined_Mode.
var (
	seqLiteralLengthDefaultDist = []int32{4, 3, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 1, 1, 1, 2, 2, 2, 2, 2, 2, 2, 2, 2, 3, 2, 1, 1, 1, 1, 1, -1, -1, -1, -1}
	seqOffsetDefaultDist        = []int32{1, 1, 1, 1, 1, 1, 2, 2, 2, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, -1, -1, -1, -1, -1}
	seqMatchLengthDefaultDist   = []int32{
		1, 4, 3, 2, 2, 2, 2, 2, 2, 1, 1, 1, 1, 1, 1, 1, 1, 1,
		1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
		1, 1, 1, 1, 1, 1, 1, 1, 1, 1, -1, -1, -1, -1, -1, -1, -1,
	}
)

// Baselines and extra-bit counts for the literal-length and
// match-length codes, per the sequence codes table.
var (
	seqLiteralLengthBaselines = []uint64{
		0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11,
		12, 13, 14, 15, 16, 18, 20, 22, 24, 28, 32, 40,
		48, 64, 128, 256, 512, 1024, 2048, 4096, 8192, 16384, 32768, 65536,
	}
	seqLiteralLengthExtraBits = []byte{
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1, 1,
		1, 1, 2, 2, 3, 3, 4, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16,
	}

	seqMatchLengthBaselines = []uint64{
		3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16,
		17, 18, 19, 20, 21, 22, 23, 24, 25, 26, 27, 28, 29, 30,
		31, 32, 33, 34, 35, 37, 39, 41, 43, 47, 51, 59, 67, 83,
		99, 131, 259, 515, 1027, 2051, 4099, 8195, 16387, 32771, 65539,
	}
	seqMatchLengthExtraBits = []byte{
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 1, 1,
		2, 2, 3, 3, 4, 4, 5, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16,
	}
)

type seqPart int

const (
	seqPartLiteralLength seqPart = iota
	seqPartOffset
	seqPartMatchLength
)

// decodeSeqTable builds (or, for Repeat_Mode, reuses) the decode table
// for one of the three sequence fields according to its 2-bit
// compression mode.
func decodeSeqTable(r *bitio.Reader, table **fseTable, part seqPart, mode int) error {
	defaultDists := [3][]int32{seqLiteralLengthDefaultDist, seqOffsetDefaultDist, seqMatchLengthDefaultDist}
	defaultAccuracies := [3]int{6, 5, 6}
	maxAccuracies := [3]int{9, 8, 9}

	switch mode {
	case 0: // Predefined_Mode
		dist := defaultDists[part]
		t, err := initFSETable(dist, len(dist), defaultAccuracies[part])
		if err != nil {
			return err
		}
		*table = t
	case 1: // RLE_Mode
		sub, err := r.ForkSubstream(1)
		if err != nil {
			return err
		}
		*table = newRLEFSETable(sub.RemainingBytes()[0])
	case 2: // FSE_Compressed_Mode
		t, err := decodeFSEHeader(r, maxAccuracies[part])
		if err != nil {
			return err
		}
		*table = t
	default: // Repeat_Mode
		if *table == nil {
			return codec.New(codec.Corrupt, "zstd: repeat mode requested with no prior table")
		}
	}
	return nil
}

// decompressSequences reads the three field compression modes, builds
// their tables, then backward-decodes n_seq triplets using interleaved
// FSE state updates. Initial states are read in order
// LL, OF, ML; subsequent refills read LL, ML, OF.
func decompressSequences(r *bitio.Reader, litLens, matLens, offsets []uint64, ctx *frameContext) error {
	modes, err := r.ReadBits(8)
	if err != nil {
		return err
	}
	if modes&3 != 0 {
		return codec.New(codec.Corrupt, "zstd: reserved sequence compression-mode bits set")
	}

	if err := decodeSeqTable(r, &ctx.llTable, seqPartLiteralLength, int((modes>>6)&3)); err != nil {
		return err
	}
	if err := decodeSeqTable(r, &ctx.ofTable, seqPartOffset, int((modes>>4)&3)); err != nil {
		return err
	}
	if err := decodeSeqTable(r, &ctx.mlTable, seqPartMatchLength, int((modes>>2)&3)); err != nil {
		return err
	}

	br, err := bitio.NewBackwardReader(r.RemainingBytes())
	if err != nil {
		return err
	}

	var llState, ofState, mlState int
	for i := range litLens {
		if i == 0 {
			llState = int(br.ReadMove(uint(ctx.llTable.accuracyLog)))
			ofState = int(br.ReadMove(uint(ctx.ofTable.accuracyLog)))
			mlState = int(br.ReadMove(uint(ctx.mlTable.accuracyLog)))
		} else {
			llState = int(ctx.llTable.newStateBase[llState]) + int(br.ReadMove(uint(ctx.llTable.numBits[llState])))
			mlState = int(ctx.mlTable.newStateBase[mlState]) + int(br.ReadMove(uint(ctx.mlTable.numBits[mlState])))
			ofState = int(ctx.ofTable.newStateBase[ofState]) + int(br.ReadMove(uint(ctx.ofTable.numBits[ofState])))
		}

		llCode := ctx.llTable.symbols[llState]
		ofCode := ctx.ofTable.symbols[ofState]
		mlCode := ctx.mlTable.symbols[mlState]

		if int(llCode) > maxCodeLitLen || int(mlCode) > maxCodeMatLen {
			return codec.New(codec.Corrupt, "zstd: sequence code out of range")
		}

		offsets[i] = (uint64(1) << ofCode) + br.ReadMove(uint(ofCode))
		matLens[i] = seqMatchLengthBaselines[mlCode] + br.ReadMove(uint(seqMatchLengthExtraBits[mlCode]))
		litLens[i] = seqLiteralLengthBaselines[llCode] + br.ReadMove(uint(seqLiteralLengthExtraBits[llCode]))
	}

	return br.CheckEnded()
}

// parseOffset resolves a raw sequence offset into an absolute
// back-reference distance. Values above 3 are absolute offsets plus
// 3; values 1-3 are repeat-offset references, modulated by whether the
// preceding literal run was empty, with the registers rotating as each
// reference is consumed.
func parseOffset(raw uint64, prevOffsets *[3]uint64, litLen uint64) uint64 {
	if raw > 3 {
		prevOffsets[2] = prevOffsets[1]
		prevOffsets[1] = prevOffsets[0]
		prevOffsets[0] = raw - 3
		return prevOffsets[0]
	}

	offset := raw
	if litLen != 0 {
		offset--
	}
	if offset == 0 {
		return prevOffsets[0]
	}

	var realOffset uint64
	if offset < 3 {
		realOffset = prevOffsets[offset]
	} else {
		realOffset = prevOffsets[0] - 1
	}
	if offset > 1 {
		prevOffsets[2] = prevOffsets[1]
	}
	prevOffsets[1] = prevOffsets[0]
	prevOffsets[0] = realOffset
	return realOffset
}

// executeSequences replays each (literal_length, match_length, offset)
// triplet against the output buffer, copying literals then an
// overlap-safe byte-at-a-time match, and finally any leftover literals.
func executeSequences(dst, literals []byte, litLens, matLens, offsets []uint64, ctx *frameContext) (int, error) {
	pos := 0
	litPos := 0
	nLit := len(literals)

	for i := range litLens {
		ll := int(litLens[i])
		ml := int(matLens[i])

		if litPos+ll > nLit {
			return pos, codec.New(codec.Corrupt, "zstd: sequence consumes more literals than available")
		}
		if pos+ll > len(dst) {
			return pos, codec.New(codec.DstOverflow, "zstd: output buffer too small")
		}
		copy(dst[pos:], literals[litPos:litPos+ll])
		pos += ll
		litPos += ll
		ctx.nBytesDecoded += ll

		offset := parseOffset(offsets[i], &ctx.prevOffsets, litLens[i])

		maxOffset := ctx.nBytesDecoded
		if maxOffset > ctx.windowSize {
			maxOffset = ctx.windowSize
		}
		if int(offset) > maxOffset {
			return pos, codec.New(codec.Corrupt, "zstd: match offset exceeds window")
		}

		if pos+ml > len(dst) {
			return pos, codec.New(codec.DstOverflow, "zstd: output buffer too small")
		}
		ctx.nBytesDecoded += ml
		for k := 0; k < ml; k++ {
			dst[pos] = dst[pos-int(offset)]
			pos++
		}
	}

	remaining := nLit - litPos
	if remaining > 0 {
		if pos+remaining > len(dst) {
			return pos, codec.New(codec.DstOverflow, "zstd: output buffer too small")
		}
		copy(dst[pos:], literals[litPos:])
		pos += remaining
		ctx.nBytesDecoded += remaining
	}

	return pos, nil
}
