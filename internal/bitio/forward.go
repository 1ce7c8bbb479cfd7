// Package bitio implements the three bit-stream shapes shared by every
// codec engine in this module: a forward LSB-first bit writer, a forward
// LSB-first bit reader, and a backward bit reader used by the FSE and
// Huffman substreams in the Zstandard decoder. The refill discipline
// mirrors internal/sit/bitreader.go's FillLittleEndian, generalized from
// a read-only stream to all three shapes this spec calls for.
package bitio

import (
	"math/bits"

	"github.com/relaycore/tinyzzz/internal/codec"
)

// Writer accumulates bits LSB-first into a caller-supplied destination
// buffer. Mirrors gzipC.c's StreamWriter_t.
type Writer struct {
	dst    []byte
	pos    int
	cur    uint32 // bits not yet committed to dst, right-aligned
	nbits  uint   // number of valid bits in cur, < 8
}

// NewWriter wraps dst; writes fail with codec.ErrDstOverflow once pos
// would exceed len(dst).
func NewWriter(dst []byte) *Writer {
	return &Writer{dst: dst}
}

// Append emits the low count bits of bits, LSB first. count must be <= 32.
func (w *Writer) Append(value uint32, count uint) error {
	if count > 32 {
		panic("bitio: Append count > 32")
	}
	if count > 24 {
		// cur holds up to 7 pending bits; split so nothing shifts past bit 31.
		if err := w.Append(value, 16); err != nil {
			return err
		}
		return w.Append(value>>16, count-16)
	}
	w.cur |= (value & ((1 << count) - 1)) << w.nbits
	w.nbits += count
	for w.nbits >= 8 {
		if w.pos >= len(w.dst) {
			return codec.New(codec.DstOverflow, "forward writer: out of space")
		}
		w.dst[w.pos] = byte(w.cur)
		w.pos++
		w.cur >>= 8
		w.nbits -= 8
	}
	return nil
}

// AlignToByte flushes any partial byte, padding the high bits with zero.
func (w *Writer) AlignToByte() error {
	if w.nbits == 0 {
		return nil
	}
	if w.pos >= len(w.dst) {
		return codec.New(codec.DstOverflow, "forward writer: out of space")
	}
	w.dst[w.pos] = byte(w.cur)
	w.pos++
	w.cur = 0
	w.nbits = 0
	return nil
}

// WriteLE writes value as an nBytes-wide little-endian integer. The
// stream must already be byte-aligned.
func (w *Writer) WriteLE(value uint64, nBytes int) error {
	if w.nbits != 0 {
		panic("bitio: WriteLE on unaligned stream")
	}
	if w.pos+nBytes > len(w.dst) {
		return codec.New(codec.DstOverflow, "forward writer: out of space")
	}
	for i := 0; i < nBytes; i++ {
		w.dst[w.pos+i] = byte(value >> (8 * uint(i)))
	}
	w.pos += nBytes
	return nil
}

// Len reports the number of whole bytes committed so far.
func (w *Writer) Len() int { return w.pos }

// Bytes returns the written prefix of the destination buffer.
func (w *Writer) Bytes() []byte { return w.dst[:w.pos] }

// Snapshot captures enough state to Restore to this exact point, used by
// the DEFLATE encoder to try both fixed and dynamic Huffman blocks from
// the same starting point.
type Snapshot struct {
	pos   int
	cur   uint32
	nbits uint
}

func (w *Writer) Snapshot() Snapshot {
	return Snapshot{pos: w.pos, cur: w.cur, nbits: w.nbits}
}

func (w *Writer) Restore(s Snapshot) {
	w.pos, w.cur, w.nbits = s.pos, s.cur, s.nbits
}

// Bits reports the total bit offset a snapshot was taken at, so callers
// can compare two snapshots to measure how many bits a trial emission used.
func (s Snapshot) Bits() int { return s.pos*8 + int(s.nbits) }

// Reader reads bits LSB-first from a source buffer.
type Reader struct {
	src  []byte
	pos  int
	cur  uint64
	nbits uint
}

// NewReader wraps src.
func NewReader(src []byte) *Reader {
	return &Reader{src: src}
}

func (r *Reader) fill(need uint) error {
	for r.nbits < need {
		if r.pos >= len(r.src) {
			return codec.New(codec.SrcOverflow, "forward reader: out of input")
		}
		r.cur |= uint64(r.src[r.pos]) << r.nbits
		r.pos++
		r.nbits += 8
	}
	return nil
}

// ReadBits reads and consumes the next n bits (n <= 64), LSB first.
func (r *Reader) ReadBits(n uint) (uint64, error) {
	if n > 64 {
		panic("bitio: ReadBits n > 64")
	}
	if n == 0 {
		return 0, nil
	}
	if n > 56 {
		// cur holds up to 7 leftover bits; split so fill never shifts past bit 63.
		lo, err := r.ReadBits(32)
		if err != nil {
			return 0, err
		}
		hi, err := r.ReadBits(n - 32)
		if err != nil {
			return 0, err
		}
		return lo | hi<<32, nil
	}
	if err := r.fill(n); err != nil {
		return 0, err
	}
	var mask uint64
	if n == 64 {
		mask = ^uint64(0)
	} else {
		mask = (uint64(1) << n) - 1
	}
	v := r.cur & mask
	r.cur >>= n
	r.nbits -= n
	return v, nil
}

// ReadBytesLE reads a byte-aligned n-byte little-endian unsigned integer.
func (r *Reader) ReadBytesLE(n int) (uint64, error) {
	r.Align()
	if r.pos+n > len(r.src) {
		return 0, codec.New(codec.SrcOverflow, "forward reader: out of input")
	}
	var v uint64
	for i := 0; i < n; i++ {
		v |= uint64(r.src[r.pos+i]) << (8 * uint(i))
	}
	r.pos += n
	return v, nil
}

// Align discards any fractional bits left in the current byte.
func (r *Reader) Align() {
	drop := r.nbits % 8
	r.cur >>= drop
	r.nbits -= drop
}

// Skip advances n whole bytes past the current (already byte-aligned)
// position.
func (r *Reader) Skip(n int) error {
	r.Align()
	for r.nbits > 0 && n > 0 {
		r.cur >>= 8
		r.nbits -= 8
		n--
	}
	if r.pos+n > len(r.src) {
		return codec.New(codec.SrcOverflow, "forward reader: skip past end")
	}
	r.pos += n
	return nil
}

// ForkSubstream returns a new Reader over the next length bytes and
// advances the parent past them. The stream must be byte-aligned.
func (r *Reader) ForkSubstream(length int) (*Reader, error) {
	r.Align()
	if r.pos+length > len(r.src) {
		return nil, codec.New(codec.SrcOverflow, "forward reader: fork past end")
	}
	sub := NewReader(r.src[r.pos : r.pos+length])
	r.pos += length
	return sub, nil
}

// Remaining reports the number of whole unconsumed bytes, not counting
// any bits buffered in cur.
func (r *Reader) Remaining() int { return len(r.src) - r.pos }

// RemainingBytes aligns to a byte boundary and returns the raw
// unconsumed tail of src without advancing further. Zstandard's FSE and
// Huffman substreams hand their post-header remainder to a
// BackwardReader this way: the same memory region that forward header
// parsing walked in from the front is where backward symbol decode
// walks in from the back.
func (r *Reader) RemainingBytes() []byte {
	r.Align()
	return r.src[r.pos:]
}

// BitsConsumed reports the total number of bits consumed so far,
// useful for computing byte offsets in callers that interleave reads.
func (r *Reader) BitsConsumed() int { return r.pos*8 - int(r.nbits) }

// highestSetBit returns the 0-based index of the highest set bit, or -1
// for zero. Shared by the Zstandard FSE table builder.
func highestSetBit(x uint32) int {
	if x == 0 {
		return -1
	}
	return bits.Len32(x) - 1
}

// HighestSetBit exports highestSetBit for use by zstd's FSE table
// construction (internal/bitio is the narrow waist for all bit tricks,
// per the teacher's own bitreader.go use of math/bits).
func HighestSetBit(x uint32) int { return highestSetBit(x) }
