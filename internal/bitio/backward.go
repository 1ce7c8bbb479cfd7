package bitio

import "github.com/relaycore/tinyzzz/internal/codec"

// BackwardReader reads bits from the tail of a buffer toward its base,
// the convention TinyZstdDecompress.c's istream_t uses for FSE and
// Huffman substreams. The top set bit of
// the final byte is a sentinel, not data; the first bit actually
// consumed is the one immediately below it.
//
// Read(n) returns the n bits starting at the current position with the
// earliest-consumed bit (closest to the sentinel) as the result's most
// significant bit, matching the interleaved-state FSE/Huffman decode
// loops in §4.7 that treat each extracted field as a plain MSB-first
// integer.
type BackwardReader struct {
	src    []byte
	nextBit int // absolute bit address of the next bit to consume; negative once reads pass the base
}

// bitAddr(i, j) is byte i's bit j (0 = LSB .. 7 = MSB) as an absolute
// address increasing with byte index and with bit significance.
func bitAddr(byteIdx, bit int) int { return byteIdx*8 + bit }

// NewBackwardReader locates the sentinel bit and positions the cursor
// just below it. Returns Corrupt if the buffer is empty or the final
// byte is zero (no sentinel present).
func NewBackwardReader(src []byte) (*BackwardReader, error) {
	if len(src) == 0 {
		return nil, codec.New(codec.Corrupt, "backward reader: empty stream")
	}
	last := src[len(src)-1]
	if last == 0 {
		return nil, codec.New(codec.Corrupt, "backward reader: missing sentinel bit")
	}
	top := HighestSetBit(uint32(last))
	sentinel := bitAddr(len(src)-1, top)
	return &BackwardReader{src: src, nextBit: sentinel - 1}, nil
}

// Load is a no-op in this byte-indexed implementation; it exists to
// name the refill point the spec describes, kept for callers that want
// to mirror the reference control flow explicitly.
func (r *BackwardReader) Load() {}

func (r *BackwardReader) bitAt(addr int) uint64 {
	byteIdx := addr / 8
	bit := addr % 8
	return uint64((r.src[byteIdx] >> uint(bit)) & 1)
}

// Read returns the next n bits without advancing the cursor.
func (r *BackwardReader) Read(n uint) uint64 {
	var v uint64
	addr := r.nextBit
	for i := uint(0); i < n; i++ {
		v <<= 1
		if addr >= 0 {
			v |= r.bitAt(addr)
		}
		addr--
	}
	return v
}

// ReadMove reads n bits and advances the cursor past them.
func (r *BackwardReader) ReadMove(n uint) uint64 {
	v := r.Read(n)
	r.nextBit -= int(n)
	return v
}

// Ended reports whether the cursor has run past the base of the buffer.
func (r *BackwardReader) Ended() bool { return r.nextBit < 0 }

// Offset reports the current absolute bit cursor position (nextBit).
// It is one less than TinyZstdDecompress.c's bit offset, so a C loop
// condition such as "offset > -maxBits" reads Offset() >= -maxBits.
func (r *BackwardReader) Offset() int { return r.nextBit }

// CheckEnded verifies that consumption finished exactly at the base
// with no leftover bits; anything else is Corrupt.
func (r *BackwardReader) CheckEnded() error {
	if r.nextBit != -1 {
		return codec.New(codec.Corrupt, "backward reader: %d bits left over", r.nextBit+1)
	}
	return nil
}
