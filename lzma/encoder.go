package lzma

import (
	"github.com/relaycore/tinyzzz/internal/lzmatch"
	"github.com/relaycore/tinyzzz/internal/rangecoder"
)

const (
	hashLevel  = 16
	hashBits   = 21
	hashSize   = 1 << hashBits
	lzLenMax   = 273
)

// lzSearch mirrors lzSearch in lzmaC.c: it runs both the repeat-offset
// search and the general hash-table match search and keeps whichever
// scores higher, rep winning ties.
func lzSearch(data []byte, pos int, rep [4]uint32, matcher *lzmatch.MultiLevel, maxLen int) (length int, dist uint32) {
	rlen, ridx, rok := lzmatch.SearchRep(data, pos, rep, maxLen)
	var rdist uint32
	if rok {
		rdist = rep[ridx]
	}
	var mlen int
	var mdist uint32
	if pos+2 < len(data) {
		mlen, mdist, _ = matcher.SearchMatch(data, pos, maxLen, dicLenConst, rep)
	}

	rscore := score(rlen, rdist, rep)
	mscore := score(mlen, mdist, rep)
	if rscore >= mscore {
		return rlen, rdist
	}
	return mlen, mdist
}

// score mirrors lenDistScore in lzmaC.c/lzmaD.c exactly (not
// lzmatch.lenDistScore's encoder-agnostic approximation): a repeat
// offset always scores 5 regardless of length, a fresh match's score
// depends on a 5-level distance threshold table, and lengths below 2
// score as "no match" (8+5, matching the C source's sentinel).
const scoreD = 12

var scoreThresholds = [5]uint32{
	scoreD * scoreD * scoreD * scoreD * scoreD * 5,
	scoreD * scoreD * scoreD * scoreD * 4,
	scoreD * scoreD * scoreD * 3,
	scoreD * scoreD * 2,
	scoreD,
}

func score(length int, dist uint32, rep [4]uint32) uint32 {
	isRep := dist == rep[0] || dist == rep[1] || dist == rep[2] || dist == rep[3]
	var s uint32
	if isRep {
		s = 5
	} else {
		for s = 4; s > 0; s-- {
			if dist <= scoreThresholds[s] {
				break
			}
		}
	}
	switch {
	case length < 2:
		return 8 + 5
	case length == 2:
		return 8 + s + 1
	default:
		return 8 + s + uint32(length)
	}
}

func countBit(v uint32) uint {
	var c uint
	for ; v != 0; v >>= 1 {
		c++
	}
	return c
}

// CompressRaw encodes src as a bare range-coded LZMA stream (no
// ".lzma" file header), terminated by an end-marker packet, for
// embedding inside the ZIP LZMA container.
func CompressRaw(dst, src []byte, opts Options) (int, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return 0, err
	}

	e := rangecoder.NewEncoder(dst)
	t := newProbTables(opts)
	matcher := lzmatch.NewMultiLevel(hashSize, hashLevel)

	lcShift := uint(8 - opts.LC)
	lcMask := uint32(1<<uint(opts.LC)) - 1
	lpMask := (1 << uint(opts.LP)) - 1
	pbMask := (1 << uint(opts.PB)) - 1

	state := 0
	rep := [4]uint32{1, 1, 1, 1}
	pos := 0
	var lenBypass, distBypass int
	var nBypass int
	withEndMark := true

	for {
		litPosState := pos & lpMask
		posState := pos & pbMask

		var currByte, matchByte byte
		var prevLcMsbs uint32
		if pos < len(src) {
			currByte = src[pos]
		}
		if pos > 0 {
			matchByte = src[pos-int(rep[0])]
			prevLcMsbs = (uint32(src[pos-1]) >> lcShift) & lcMask
		}

		var typ packet
		var length int
		var dist uint32

		if pos >= len(src) {
			if !withEndMark {
				break
			}
			withEndMark = false
			typ = pktMatch
			length = 2
			dist = 0 // dist-1 == 0xFFFFFFFF, the end-marker sentinel
		} else {
			maxLen := lzLenMax
			if len(src)-pos < maxLen {
				maxLen = len(src) - pos
			}
			switch {
			case nBypass > 0:
				length, dist = 0, 0
				nBypass--
			case lenBypass > 0:
				length, dist = lenBypass, uint32(distBypass)
				lenBypass, distBypass = 0, 0
			default:
				length, dist = lzSearch(src, pos, rep, matcher, maxLen)

				if len(src)-pos > 8 && length >= 2 {
					score0 := score(length, dist, rep)
					len1, dist1 := lzSearch(src, pos+1, rep, matcher, maxLen)
					score1 := score(len1, dist1, rep)
					var len2, dist2 int
					var score2 uint32
					if length >= 3 {
						maxLen2 := lzLenMax
						if len(src)-(pos+2) < maxLen2 {
							maxLen2 = len(src) - (pos + 2)
						}
						l2, d2 := lzSearch(src, pos+2, rep, matcher, maxLen2)
						len2, dist2 = l2, int(d2)
						score2 = score(len2, uint32(dist2), rep) - 1
					}

					if score2 > score0 && score2 > score1 {
						rl, ridx, rok := lzmatch.SearchRep(src, pos, rep, 2)
						length, dist = 0, 0
						if rok {
							length = rl
							dist = rep[ridx]
						}
						lenBypass, distBypass = len2, dist2
						if length < 2 {
							nBypass = 1
						} else {
							nBypass = 0
						}
					} else if score1 > score0 {
						length, dist = 0, 0
						lenBypass, distBypass = len1, int(dist1)
						nBypass = 0
					}
				}
			}

			switch {
			case length < 2:
				if lzmatch.IsShortRep(src, pos, rep[0]) {
					typ = pktShortRep
				} else {
					typ = pktLit
				}
			case dist == rep[0]:
				typ = pktRep0
			case dist == rep[1]:
				typ = pktRep1
				rep[1], rep[0] = rep[0], dist
			case dist == rep[2]:
				typ = pktRep2
				rep[2], rep[1], rep[0] = rep[1], rep[0], dist
			case dist == rep[3]:
				typ = pktRep3
				rep[3], rep[2], rep[1], rep[0] = rep[2], rep[1], rep[0], dist
			default:
				typ = pktMatch
				rep[3], rep[2], rep[1], rep[0] = rep[2], rep[1], rep[0], dist
			}

			advanceTo := pos + 1
			if typ != pktLit && typ != pktShortRep {
				advanceTo = pos + length
			}
			for ; pos < advanceTo; pos++ {
				if pos+2 < len(src) {
					matcher.Update(pos, matcher.Hash(src, pos))
				}
			}
		}

		if err := emitPacket(e, t, typ, state, posState, litPosState, prevLcMsbs, currByte, matchByte, length, dist); err != nil {
			return 0, err
		}
		state = stateTransition(state, typ)
	}

	if err := e.Terminate(); err != nil {
		return 0, err
	}
	return e.Len(), nil
}

func emitPacket(e *rangecoder.Encoder, t *probTables, typ packet, state, posState, litPosState int, prevLcMsbs uint32, currByte, matchByte byte, length int, dist uint32) error {
	switch typ {
	case pktLit:
		if err := e.EncodeBit(&t.isMatch[state][posState], 0); err != nil {
			return err
		}
	case pktMatch:
		if err := e.EncodeBit(&t.isMatch[state][posState], 1); err != nil {
			return err
		}
		if err := e.EncodeBit(&t.isRep[state], 0); err != nil {
			return err
		}
	case pktShortRep:
		if err := encodeBit3(e, &t.isMatch[state][posState], 1, &t.isRep[state], 1, &t.isRep0[state], 0); err != nil {
			return err
		}
		// short rep's length (1) and distance (rep0) are both implicit;
		// no length or distance field follows.
		return e.EncodeBit(&t.isRep0Long[state][posState], 0)
	case pktRep0:
		if err := encodeBit3(e, &t.isMatch[state][posState], 1, &t.isRep[state], 1, &t.isRep0[state], 0); err != nil {
			return err
		}
		if err := e.EncodeBit(&t.isRep0Long[state][posState], 1); err != nil {
			return err
		}
	case pktRep1:
		if err := encodeBit3(e, &t.isMatch[state][posState], 1, &t.isRep[state], 1, &t.isRep0[state], 1); err != nil {
			return err
		}
		if err := e.EncodeBit(&t.isRep1[state], 0); err != nil {
			return err
		}
	case pktRep2:
		if err := encodeBit3(e, &t.isMatch[state][posState], 1, &t.isRep[state], 1, &t.isRep0[state], 1); err != nil {
			return err
		}
		if err := e.EncodeBit(&t.isRep1[state], 1); err != nil {
			return err
		}
		if err := e.EncodeBit(&t.isRep2[state], 0); err != nil {
			return err
		}
	default: // pktRep3
		if err := encodeBit3(e, &t.isMatch[state][posState], 1, &t.isRep[state], 1, &t.isRep0[state], 1); err != nil {
			return err
		}
		if err := e.EncodeBit(&t.isRep1[state], 1); err != nil {
			return err
		}
		if err := e.EncodeBit(&t.isRep2[state], 1); err != nil {
			return err
		}
	}

	if typ == pktLit {
		probs := t.literal[litPosState][prevLcMsbs]
		if state < numLitStates {
			if err := e.EncodeTree(probs, uint32(currByte), 8); err != nil {
				return err
			}
		} else {
			if err := e.EncodeMatchedByte(probs, currByte, matchByte); err != nil {
				return err
			}
		}
		return nil
	}

	isRep := typ != pktMatch
	ri := boolIdx(isRep)
	switch {
	case length < 10:
		if err := e.EncodeBit(&t.lenChoice[ri], 0); err != nil {
			return err
		}
		if err := e.EncodeTree(t.lenLow[ri][posState], uint32(length-2), 3); err != nil {
			return err
		}
	case length < 18:
		if err := e.EncodeBit(&t.lenChoice[ri], 1); err != nil {
			return err
		}
		if err := e.EncodeBit(&t.lenChoice2[ri], 0); err != nil {
			return err
		}
		if err := e.EncodeTree(t.lenMid[ri][posState], uint32(length-10), 3); err != nil {
			return err
		}
	default:
		if err := e.EncodeBit(&t.lenChoice[ri], 1); err != nil {
			return err
		}
		if err := e.EncodeBit(&t.lenChoice2[ri], 1); err != nil {
			return err
		}
		if err := e.EncodeTree(t.lenHigh[ri], uint32(length-18), 8); err != nil {
			return err
		}
	}

	if typ == pktMatch {
		lenSel := lenMin5Minus2(length)
		d := dist - 1
		var distSlot uint32
		if d < 4 {
			distSlot = d
		} else {
			nb := countBit(d) - 1
			distSlot = (uint32(nb) << 1) | ((d >> (nb - 1)) & 1)
		}
		if err := e.EncodeTree(t.distSlot[lenSel], distSlot, 6); err != nil {
			return err
		}
		bcnt := int(distSlot>>1) - 1
		switch {
		case distSlot >= 14:
			bcnt -= 4
			bits := (d >> 4) & ((1 << uint(bcnt)) - 1)
			if err := e.EncodeDirectBits(bits, uint(bcnt)); err != nil {
				return err
			}
			if err := e.EncodeTreeReverse(t.distAlign, d&0xF, 4); err != nil {
				return err
			}
		case distSlot >= 4:
			bits := d & ((1 << uint(bcnt)) - 1)
			if err := e.EncodeTreeReverse(t.distSpecial[distSlot-4], bits, uint(bcnt)); err != nil {
				return err
			}
		}
	}
	return nil
}

func encodeBit3(e *rangecoder.Encoder, p1 *uint16, b1 int, p2 *uint16, b2 int, p3 *uint16, b3 int) error {
	if err := e.EncodeBit(p1, b1); err != nil {
		return err
	}
	if err := e.EncodeBit(p2, b2); err != nil {
		return err
	}
	return e.EncodeBit(p3, b3)
}

// Compress writes src as a complete ".lzma" file: the 13-byte header
// followed by CompressRaw's range-coded payload with an end marker.
func Compress(dst, src []byte, opts Options) (int, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return 0, err
	}
	pos := 0
	if err := writeHeader(dst, &pos, opts, uint64(len(src)), true); err != nil {
		return 0, err
	}
	n, err := CompressRaw(dst[pos:], src, opts)
	if err != nil {
		return 0, err
	}
	return pos + n, nil
}
