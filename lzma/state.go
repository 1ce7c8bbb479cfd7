// Package lzma implements the LZMA range-coded codec: raw Compress/
// Decompress, the 13-byte ".lzma" file header, and the 9-byte ZIP LZMA
// property record. Grounded throughout on lzmaC.c/lzmaD.c
// (original_source); no teacher file implements an arithmetic-coded LZ
// scheme, so the packet/state-machine naming follows the original
// source directly while the engine plumbing (internal/rangecoder,
// internal/lzmatch) follows the teacher's internal/sit bit-level style.
package lzma

import "github.com/relaycore/tinyzzz/internal/codec"

// packet identifies which of LZMA's seven instruction shapes a given
// position in the stream encodes.
type packet int

const (
	pktLit packet = iota
	pktMatch
	pktShortRep
	pktRep0
	pktRep1
	pktRep2
	pktRep3
)

const (
	numStates   = 12
	numLitStates = 7
)

// stateTransitionTable mirrors lzmaC.c/lzmaD.c's stateTransition switch
// exactly, one row per state, columns {lit, match, shortrep, longrep}.
var stateTransitionTable = [12][4]int{
	{0, 7, 9, 8},
	{0, 7, 9, 8},
	{0, 7, 9, 8},
	{0, 7, 9, 8},
	{1, 7, 9, 8},
	{2, 7, 9, 8},
	{3, 7, 9, 8},
	{4, 10, 11, 11},
	{5, 10, 11, 11},
	{6, 10, 11, 11},
	{4, 10, 11, 11},
	{5, 10, 11, 11},
}

// stateTransition advances the 12-state machine.
func stateTransition(state int, p packet) int {
	var col int
	switch p {
	case pktLit:
		col = 0
	case pktMatch:
		col = 1
	case pktShortRep:
		col = 2
	default: // pktRep0..pktRep3 (long rep)
		col = 3
	}
	return stateTransitionTable[state][col]
}

// Options configures lc (literal context bits), lp (literal position
// bits), and pb (position bits). Defaults 4/0/3 match the original
// source's hard-coded encoder constants.
type Options struct {
	LC int
	LP int
	PB int
}

func (o Options) withDefaults() Options {
	if o.LC == 0 && o.LP == 0 && o.PB == 0 {
		o.LC, o.LP, o.PB = 4, 0, 3
	}
	return o
}

func (o Options) validate() error {
	if o.LC < 0 || o.LC > 8 {
		return codec.New(codec.Unsupported, "lzma: lc %d out of range 0..8", o.LC)
	}
	if o.LP < 0 || o.LP > 4 {
		return codec.New(codec.Unsupported, "lzma: lp %d out of range 0..4", o.LP)
	}
	if o.PB < 0 || o.PB > 4 {
		return codec.New(codec.Unsupported, "lzma: pb %d out of range 0..4", o.PB)
	}
	return nil
}

// lclppbByte packs {lc,lp,pb} into the single byte the header format
// uses, per LCLPPB_BYTE = (pb*5+lp)*9+lc.
func (o Options) lclppbByte() byte {
	return byte((o.PB*5+o.LP)*9 + o.LC)
}

func decodeLCLPPB(b byte) Options {
	lc := int(b % 9)
	b /= 9
	lp := int(b % 5)
	pb := int(b / 5)
	return Options{LC: lc, LP: lp, PB: pb}
}
