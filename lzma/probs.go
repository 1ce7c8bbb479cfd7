package lzma

import "github.com/relaycore/tinyzzz/internal/rangecoder"

// probTables holds every adaptive probability array the packet/state
// machine mutates, sized from the stream's actual lc/lp/pb rather than
// the original source's worst-case compile-time constants (lzmaD.c
// always allocates N_POS_STATES=1<<MAX_PB=16 and 1<<MAX_LP=16 slots
// regardless of the stream's real pb/lp; sizing to the real values
// here avoids that waste since Go makes a dynamic size trivial).
type probTables struct {
	isMatch     [][]uint16 // [state][posState]
	isRep       []uint16   // [state]
	isRep0      []uint16
	isRep0Long  [][]uint16 // [state][posState]
	isRep1      []uint16
	isRep2      []uint16
	literal     [][][]uint16 // [litPosState][lcMsbs][0x300]
	distSlot    [4][]uint16  // [lenMin5Minus2][1<<6]
	distSpecial [10][]uint16 // [distSlot-4][1<<5]
	distAlign   []uint16     // [1<<4]
	lenChoice   [2]uint16
	lenChoice2  [2]uint16
	lenLow      [2][][]uint16 // [isRep][posState][1<<3]
	lenMid      [2][][]uint16 // [isRep][posState][1<<3]
	lenHigh     [2][]uint16   // [isRep][1<<8]
}

func newProbTables(opts Options) *probTables {
	nPosStates := 1 << uint(opts.PB)
	nLitPosStates := 1 << uint(opts.LP)
	nLcMsbs := 1 << uint(opts.LC)

	t := &probTables{
		isRep:      rangecoder.NewProbs(numStates),
		isRep0:     rangecoder.NewProbs(numStates),
		isRep1:     rangecoder.NewProbs(numStates),
		isRep2:     rangecoder.NewProbs(numStates),
		distAlign:  rangecoder.NewProbs(1 << 4),
		lenChoice:  [2]uint16{rangecoder.ProbInitial, rangecoder.ProbInitial},
		lenChoice2: [2]uint16{rangecoder.ProbInitial, rangecoder.ProbInitial},
	}

	t.isMatch = make([][]uint16, numStates)
	t.isRep0Long = make([][]uint16, numStates)
	for s := 0; s < numStates; s++ {
		t.isMatch[s] = rangecoder.NewProbs(nPosStates)
		t.isRep0Long[s] = rangecoder.NewProbs(nPosStates)
	}

	t.literal = make([][][]uint16, nLitPosStates)
	for i := range t.literal {
		t.literal[i] = make([][]uint16, nLcMsbs)
		for j := range t.literal[i] {
			t.literal[i][j] = rangecoder.NewProbs(3 * 256)
		}
	}

	for i := range t.distSlot {
		t.distSlot[i] = rangecoder.NewProbs(1 << 6)
	}
	for i := range t.distSpecial {
		t.distSpecial[i] = rangecoder.NewProbs(1 << 5)
	}

	for r := 0; r < 2; r++ {
		t.lenLow[r] = make([][]uint16, nPosStates)
		t.lenMid[r] = make([][]uint16, nPosStates)
		for p := 0; p < nPosStates; p++ {
			t.lenLow[r][p] = rangecoder.NewProbs(1 << 3)
			t.lenMid[r][p] = rangecoder.NewProbs(1 << 3)
		}
		t.lenHigh[r] = rangecoder.NewProbs(1 << 8)
	}

	return t
}

// lenMin5Minus2 selects which of the four dist_slot submodels a match's
// length steers towards, per lzmaC.c: min(len,5)-2.
func lenMin5Minus2(length int) int {
	if length > 5 {
		return 3
	}
	return length - 2
}

func boolIdx(isRep bool) int {
	if isRep {
		return 1
	}
	return 0
}
