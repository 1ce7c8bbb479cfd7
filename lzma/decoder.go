package lzma

import (
	"github.com/relaycore/tinyzzz/internal/codec"
	"github.com/relaycore/tinyzzz/internal/rangecoder"
)

// decodeLength mirrors the 3-tier length field emitPacket writes: a
// choice bit selects low (0..7), a second choice bit selects mid
// (8..15), and the high tier covers 16..271, each offset by the base 2.
func decodeLength(d *rangecoder.Decoder, t *probTables, ri, posState int) (int, error) {
	choice, err := d.DecodeBit(&t.lenChoice[ri])
	if err != nil {
		return 0, err
	}
	if choice == 0 {
		v, err := d.DecodeTree(t.lenLow[ri][posState], 3)
		if err != nil {
			return 0, err
		}
		return int(v) + 2, nil
	}
	choice2, err := d.DecodeBit(&t.lenChoice2[ri])
	if err != nil {
		return 0, err
	}
	if choice2 == 0 {
		v, err := d.DecodeTree(t.lenMid[ri][posState], 3)
		if err != nil {
			return 0, err
		}
		return int(v) + 10, nil
	}
	v, err := d.DecodeTree(t.lenHigh[ri], 8)
	if err != nil {
		return 0, err
	}
	return int(v) + 18, nil
}

// decodeDist mirrors the dist_slot/special/align scheme emitPacket
// writes for MATCH packets: a 6-bit tree keyed by length selects a
// slot; slots 0..3 are the literal value; slots 4..13 reverse-decode a
// variable-width "special" submodel; slots >=14 read direct bits
// followed by a 4-bit reverse-decoded "align" submodel. The result is
// dist-1; 0xFFFFFFFF (all slot 6 bits set, all direct/align bits set)
// is the end-of-stream marker.
func decodeDist(d *rangecoder.Decoder, t *probTables, length int) (uint32, error) {
	lenSel := lenMin5Minus2(length)
	slot, err := d.DecodeTree(t.distSlot[lenSel], 6)
	if err != nil {
		return 0, err
	}
	if slot < 4 {
		return slot, nil
	}
	bcnt := int(slot>>1) - 1
	base := (2 | (slot & 1)) << uint(bcnt)
	if slot < 14 {
		bits, err := d.DecodeTreeReverse(t.distSpecial[slot-4], uint(bcnt))
		if err != nil {
			return 0, err
		}
		return uint32(base) + bits, nil
	}
	bcnt -= 4
	direct, err := d.DecodeDirectBits(uint(bcnt))
	if err != nil {
		return 0, err
	}
	align, err := d.DecodeTreeReverse(t.distAlign, 4)
	if err != nil {
		return 0, err
	}
	return uint32(base) + (direct << 4) + align, nil
}

// copyMatch appends length bytes read back from dist before *pos,
// byte-at-a-time since dist can be shorter than length.
func copyMatch(dst []byte, pos *int, dist uint32, length int) error {
	if dist == 0 || int(dist) > *pos {
		return codec.New(codec.Data, "lzma: match distance %d exceeds output position %d", dist, *pos)
	}
	if *pos+length > len(dst) {
		return codec.New(codec.DstOverflow, "lzma: destination full")
	}
	for k := 0; k < length; k++ {
		dst[*pos] = dst[*pos-int(dist)]
		*pos++
	}
	return nil
}

// DecompressRaw decodes a bare range-coded LZMA stream (no ".lzma" file
// header, lc/lp/pb supplied by the caller) terminated by either an
// end-marker packet or dst filling up, for ZIP LZMA entries.
func DecompressRaw(dst, src []byte, opts Options) (int, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return 0, err
	}

	d, err := rangecoder.NewDecoder(src)
	if err != nil {
		return 0, err
	}
	t := newProbTables(opts)

	lcShift := uint(8 - opts.LC)
	lcMask := uint32(1<<uint(opts.LC)) - 1
	lpMask := (1 << uint(opts.LP)) - 1
	pbMask := (1 << uint(opts.PB)) - 1

	state := 0
	rep := [4]uint32{1, 1, 1, 1}
	pos := 0

	for pos < len(dst) {
		litPosState := pos & lpMask
		posState := pos & pbMask

		isMatch, err := d.DecodeBit(&t.isMatch[state][posState])
		if err != nil {
			return pos, err
		}
		if isMatch == 0 {
			var prevLcMsbs uint32
			if pos > 0 {
				prevLcMsbs = (uint32(dst[pos-1]) >> lcShift) & lcMask
			}
			probs := t.literal[litPosState][prevLcMsbs]
			var sym byte
			if state < numLitStates {
				v, err := d.DecodeTree(probs, 8)
				if err != nil {
					return pos, err
				}
				sym = byte(v)
			} else {
				matchByte := dst[pos-int(rep[0])]
				sym, err = d.DecodeMatchedByte(probs, matchByte)
				if err != nil {
					return pos, err
				}
			}
			dst[pos] = sym
			pos++
			state = stateTransition(state, pktLit)
			continue
		}

		isRep, err := d.DecodeBit(&t.isRep[state])
		if err != nil {
			return pos, err
		}
		if isRep == 0 {
			length, err := decodeLength(d, t, 0, posState)
			if err != nil {
				return pos, err
			}
			distMinus1, err := decodeDist(d, t, length)
			if err != nil {
				return pos, err
			}
			if distMinus1 == 0xFFFFFFFF {
				return pos, nil
			}
			rep[3], rep[2], rep[1], rep[0] = rep[2], rep[1], rep[0], distMinus1+1
			state = stateTransition(state, pktMatch)
			if err := copyMatch(dst, &pos, rep[0], length); err != nil {
				return pos, err
			}
			continue
		}

		isRep0, err := d.DecodeBit(&t.isRep0[state])
		if err != nil {
			return pos, err
		}
		if isRep0 == 0 {
			isRep0Long, err := d.DecodeBit(&t.isRep0Long[state][posState])
			if err != nil {
				return pos, err
			}
			if isRep0Long == 0 {
				state = stateTransition(state, pktShortRep)
				if err := copyMatch(dst, &pos, rep[0], 1); err != nil {
					return pos, err
				}
				continue
			}
			length, err := decodeLength(d, t, 1, posState)
			if err != nil {
				return pos, err
			}
			state = stateTransition(state, pktRep0)
			if err := copyMatch(dst, &pos, rep[0], length); err != nil {
				return pos, err
			}
			continue
		}

		isRep1, err := d.DecodeBit(&t.isRep1[state])
		if err != nil {
			return pos, err
		}
		var typ packet
		if isRep1 == 0 {
			rep[1], rep[0] = rep[0], rep[1]
			typ = pktRep1
		} else {
			isRep2, err := d.DecodeBit(&t.isRep2[state])
			if err != nil {
				return pos, err
			}
			if isRep2 == 0 {
				dist := rep[2]
				rep[2], rep[1], rep[0] = rep[1], rep[0], dist
				typ = pktRep2
			} else {
				dist := rep[3]
				rep[3], rep[2], rep[1], rep[0] = rep[2], rep[1], rep[0], dist
				typ = pktRep3
			}
		}
		length, err := decodeLength(d, t, 1, posState)
		if err != nil {
			return pos, err
		}
		state = stateTransition(state, typ)
		if err := copyMatch(dst, &pos, rep[0], length); err != nil {
			return pos, err
		}
	}

	return pos, nil
}

// Decompress parses the 13-byte ".lzma" file header and decodes the
// payload that follows. When the header declares a known uncompressed
// length, dst must be at least that large; decoding stops as soon as
// that many bytes are produced (an end-marker packet, if present, is
// not required to be consumed). When the length is unknown (all-0xFF),
// decoding runs as in DecompressRaw, until an end-marker packet appears
// or dst is full; a dst that fills before the end marker is not an
// error, and only a match running past the end of dst yields
// DstOverflow.
func Decompress(dst, src []byte) (int, error) {
	h, err := parseHeader(src)
	if err != nil {
		return 0, err
	}
	body := src[headerLen:]

	if h.lenKnown {
		if uint64(len(dst)) < h.uncompressedLen {
			return 0, codec.New(codec.DstOverflow, "lzma: destination too small for declared length %d", h.uncompressedLen)
		}
		n, err := decompressKnownLength(dst, body, h.opts, int(h.uncompressedLen))
		if err != nil {
			return 0, err
		}
		if uint64(n) != h.uncompressedLen {
			return 0, codec.New(codec.OutputLenMismatch, "lzma: decoded %d bytes, header declared %d", n, h.uncompressedLen)
		}
		return n, nil
	}
	return DecompressRaw(dst, body, h.opts)
}

// decompressKnownLength is DecompressRaw's loop bounded to exactly n
// output bytes instead of len(dst), so a dst larger than the declared
// length doesn't absorb trailing garbage as if it were valid payload.
func decompressKnownLength(dst, src []byte, opts Options, n int) (int, error) {
	return DecompressRaw(dst[:n], src, opts)
}
