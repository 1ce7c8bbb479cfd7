package zstd

import (
	"github.com/relaycore/tinyzzz/internal/bitio"
	"github.com/relaycore/tinyzzz/internal/codec"
)

const (
	fseMaxAccuracyLog = 15
	fseMaxSymbs       = 256
)

// fseTable is a symbol-indexed decode table of size 2^accuracyLog; each
// cell holds the symbol it decodes to, how many bits to read to find
// the next state, and the baseline that read is added to.
type fseTable struct {
	symbols      []byte
	numBits      []byte
	newStateBase []int32
	accuracyLog  int
}

// initFSETable places "less than 1" (-1) symbols as single cells at the
// table's top, spreads the remaining symbols by the fixed stepping
// sequence, then derives each cell's bit count and state baseline from
// a running per-symbol state descriptor.
func initFSETable(normFreqs []int32, numSymbs, accuracyLog int) (*fseTable, error) {
	if accuracyLog > fseMaxAccuracyLog {
		return nil, codec.New(codec.Corrupt, "zstd: fse accuracy too large")
	}
	if numSymbs > fseMaxSymbs {
		return nil, codec.New(codec.Corrupt, "zstd: too many fse symbols")
	}

	size := 1 << uint(accuracyLog)
	t := &fseTable{
		symbols:      make([]byte, size),
		numBits:      make([]byte, size),
		newStateBase: make([]int32, size),
		accuracyLog:  accuracyLog,
	}

	var stateDesc [fseMaxSymbs]int32

	highThreshold := size
	for s := 0; s < numSymbs; s++ {
		if normFreqs[s] == -1 {
			highThreshold--
			t.symbols[highThreshold] = byte(s)
			stateDesc[s] = 1
		}
	}

	step := (size >> 1) + (size >> 3) + 3
	mask := size - 1
	pos := 0
	for s := 0; s < numSymbs; s++ {
		if normFreqs[s] <= 0 {
			continue
		}
		stateDesc[s] = normFreqs[s]
		for i := int32(0); i < normFreqs[s]; i++ {
			t.symbols[pos] = byte(s)
			for {
				pos = (pos + step) & mask
				if pos < highThreshold {
					break
				}
			}
		}
	}
	if pos != 0 {
		return nil, codec.New(codec.Corrupt, "zstd: fse table placement did not return to the origin")
	}

	for i := 0; i < size; i++ {
		symbol := t.symbols[i]
		nextStateDesc := stateDesc[symbol]
		stateDesc[symbol]++
		nb := accuracyLog - bitio.HighestSetBit(uint32(nextStateDesc))
		t.numBits[i] = byte(nb)
		t.newStateBase[i] = (nextStateDesc << uint(nb)) - int32(size)
	}

	return t, nil
}

// newRLEFSETable builds the degenerate single-state table used for
// RLE_Mode sequence fields: always symbol symb, never consumes a bit.
func newRLEFSETable(symb byte) *fseTable {
	return &fseTable{
		symbols:      []byte{symb},
		numBits:      []byte{0},
		newStateBase: []int32{0},
		accuracyLog:  0,
	}
}

// decodeFSEHeader reads a normalized frequency distribution and builds
// the decode table from it. The variable-width value encoding and the
// "less than 1" sentinel and zero-run-length conventions follow the
// published FSE table-description format.
func decodeFSEHeader(r *bitio.Reader, maxAccuracyLog int) (*fseTable, error) {
	if maxAccuracyLog > fseMaxAccuracyLog {
		return nil, codec.New(codec.Corrupt, "zstd: fse accuracy too large")
	}

	accBits, err := r.ReadBits(4)
	if err != nil {
		return nil, err
	}
	accuracyLog := 5 + int(accBits)
	if accuracyLog > maxAccuracyLog {
		return nil, codec.New(codec.Corrupt, "zstd: fse accuracy exceeds maximum for this field")
	}

	remaining := 1 + (1 << uint(accuracyLog))
	var freqs [fseMaxSymbs]int32
	symb := 0

	for remaining > 1 && symb < fseMaxSymbs {
		bits := bitio.HighestSetBit(uint32(remaining))
		val, err := r.ReadBits(uint(bits))
		if err != nil {
			return nil, err
		}
		thresh := (1 << uint(bits+1)) - 1 - remaining
		if int(val) >= thresh {
			extra, err := r.ReadBits(1)
			if err != nil {
				return nil, err
			}
			if extra != 0 {
				val |= 1 << uint(bits)
				val -= uint64(thresh)
			}
		}

		proba := int32(val) - 1
		if proba < 0 {
			remaining -= int(-proba)
		} else {
			remaining -= int(proba)
		}
		freqs[symb] = proba
		symb++

		if proba == 0 {
			repeatBits, err := r.ReadBits(2)
			if err != nil {
				return nil, err
			}
			repeat := int(repeatBits)
			for {
				for i := 0; i < repeat && symb < fseMaxSymbs; i++ {
					freqs[symb] = 0
					symb++
				}
				if repeat != 3 {
					break
				}
				repeatBits, err = r.ReadBits(2)
				if err != nil {
					return nil, err
				}
				repeat = int(repeatBits)
			}
		}
	}

	r.Align()

	if remaining != 1 || symb >= fseMaxSymbs {
		return nil, codec.New(codec.Corrupt, "zstd: fse distribution does not sum correctly")
	}

	return initFSETable(freqs[:symb], symb, accuracyLog)
}

// fseDecodeInterleaved2 runs the two-state interleaved FSE decode loop,
// writing decoded symbols into out until the backward stream is
// exhausted; the last symbol comes from whichever state is still valid.
func fseDecodeInterleaved2(br *bitio.BackwardReader, out []byte, t *fseTable) (int, error) {
	state1 := int(br.ReadMove(uint(t.accuracyLog)))
	state2 := int(br.ReadMove(uint(t.accuracyLog)))

	n := 0
	write := func(s int) error {
		if n >= len(out) {
			return codec.New(codec.DstOverflow, "zstd: fse output overflow")
		}
		out[n] = t.symbols[s]
		n++
		return nil
	}

	for {
		if err := write(state1); err != nil {
			return n, err
		}
		state1 = int(t.newStateBase[state1]) + int(br.ReadMove(uint(t.numBits[state1])))
		if br.Offset() < -1 {
			if err := write(state2); err != nil {
				return n, err
			}
			return n, nil
		}

		if err := write(state2); err != nil {
			return n, err
		}
		state2 = int(t.newStateBase[state2]) + int(br.ReadMove(uint(t.numBits[state2])))
		if br.Offset() < -1 {
			if err := write(state1); err != nil {
				return n, err
			}
			return n, nil
		}
	}
}
