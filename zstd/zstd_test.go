package zstd

import (
	"bytes"
	"testing"

	"github.com/relaycore/tinyzzz/internal/codec"
)

// frameBytes assembles a minimal single-segment frame (no window
// descriptor, a 1-byte frame content size, checksum optional) wrapping
// a single block whose header and payload the caller supplies.
func frameBytes(checksum bool, contentSize byte, block []byte, trailer []byte) []byte {
	descriptor := byte(0x20) // single_segment_flag set, everything else clear
	if checksum {
		descriptor |= 0x04 // content_checksum_flag
	}
	b := []byte{0x28, 0xB5, 0x2F, 0xFD, descriptor, contentSize}
	b = append(b, block...)
	b = append(b, trailer...)
	return b
}

// rawBlockHeader packs the 1-bit last / 2-bit type / 21-bit len block
// header into its 3-byte little-endian form.
func rawBlockHeader(last, typ, length uint32) []byte {
	v := last | (typ << 1) | (length << 3)
	return []byte{byte(v), byte(v >> 8), byte(v >> 16)}
}

func TestRawBlockFrameRoundTrip(t *testing.T) {
	payload := []byte("hello")
	block := append(rawBlockHeader(1, 0, uint32(len(payload))), payload...)
	src := frameBytes(false, byte(len(payload)), block, nil)

	dst := make([]byte, 64)
	n, err := Decompress(dst, src)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dst[:n], payload) {
		t.Fatalf("got %q, want %q", dst[:n], payload)
	}
}

func TestRLEBlockFrameRoundTrip(t *testing.T) {
	block := append(rawBlockHeader(1, 1, 6), 0x78)
	src := frameBytes(false, 6, block, nil)

	dst := make([]byte, 64)
	n, err := Decompress(dst, src)
	if err != nil {
		t.Fatal(err)
	}
	if string(dst[:n]) != "xxxxxx" {
		t.Fatalf("got %q, want %q", dst[:n], "xxxxxx")
	}
}

// compressedBlockRawLiterals builds a type-2 block whose literals
// section is raw (no entropy coding) and which declares zero
// sequences, exercising the compressed-block dispatch and the leftover
// literal copy path without needing a Huffman or FSE table.
func compressedBlockRawLiterals(literals []byte) []byte {
	// literals_block_type=0 (raw), size_format=1 (12-bit size field):
	// 2+2+12 = 16 bits, packed LSB-first into 2 little-endian bytes.
	v := uint32(0) | (1 << 2) | (uint32(len(literals)) << 4)
	inBlk := []byte{byte(v), byte(v >> 8)}
	inBlk = append(inBlk, literals...)
	inBlk = append(inBlk, 0x00) // n_sequences byte0 < 128 => 0 sequences

	return append(rawBlockHeader(1, 2, uint32(len(inBlk))), inBlk...)
}

func TestCompressedBlockRawLiteralsNoSequences(t *testing.T) {
	literals := []byte("abc")
	block := compressedBlockRawLiterals(literals)
	src := frameBytes(false, byte(len(literals)), block, nil)

	dst := make([]byte, 64)
	n, err := Decompress(dst, src)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dst[:n], literals) {
		t.Fatalf("got %q, want %q", dst[:n], literals)
	}
}

func TestContentChecksumMismatchIsCorrupt(t *testing.T) {
	literals := []byte("abc")
	block := compressedBlockRawLiterals(literals)
	src := frameBytes(true, byte(len(literals)), block, []byte{0, 0, 0, 0})

	dst := make([]byte, 64)
	_, err := Decompress(dst, src)
	if codec.KindOf(err) != codec.Corrupt {
		t.Fatalf("got %v, want Corrupt", err)
	}
}

func TestReservedBlockTypeIsCorrupt(t *testing.T) {
	block := rawBlockHeader(1, 3, 0)
	src := frameBytes(false, 0, block, nil)

	dst := make([]byte, 16)
	_, err := Decompress(dst, src)
	if codec.KindOf(err) != codec.Corrupt {
		t.Fatalf("got %v, want Corrupt", err)
	}
}

func TestDictionaryFrameIsUnsupported(t *testing.T) {
	src := []byte{0x28, 0xB5, 0x2F, 0xFD, 0x21} // dictionary_id_flag=1, single_segment=1
	dst := make([]byte, 16)
	_, err := Decompress(dst, src)
	if codec.KindOf(err) != codec.Unsupported {
		t.Fatalf("got %v, want Unsupported", err)
	}
}

func TestConcatenatedFrames(t *testing.T) {
	var src []byte
	for _, s := range []string{"first", "second"} {
		payload := []byte(s)
		block := append(rawBlockHeader(1, 0, uint32(len(payload))), payload...)
		src = append(src, frameBytes(false, byte(len(payload)), block, nil)...)
	}

	dst := make([]byte, 64)
	n, err := Decompress(dst, src)
	if err != nil {
		t.Fatal(err)
	}
	if string(dst[:n]) != "firstsecond" {
		t.Fatalf("got %q", dst[:n])
	}
}

func TestSkippableFrameIsSkipped(t *testing.T) {
	skippable := []byte{0x50, 0x2A, 0x4D, 0x18, 0x03, 0x00, 0x00, 0x00, 0xAA, 0xBB, 0xCC}

	payload := []byte("hello")
	block := append(rawBlockHeader(1, 0, uint32(len(payload))), payload...)
	real := frameBytes(false, byte(len(payload)), block, nil)

	src := append(skippable, real...)
	dst := make([]byte, 64)
	n, err := Decompress(dst, src)
	if err != nil {
		t.Fatal(err)
	}
	if string(dst[:n]) != "hello" {
		t.Fatalf("got %q", dst[:n])
	}
}

func TestInitFSETable(t *testing.T) {
	table, err := initFSETable([]int32{2, 2}, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	wantSymbols := []byte{0, 0, 1, 1}
	wantNumBits := []byte{1, 1, 1, 1}
	wantBase := []int32{0, 2, 0, 2}

	if !bytes.Equal(table.symbols, wantSymbols) {
		t.Fatalf("symbols: got %v, want %v", table.symbols, wantSymbols)
	}
	if !bytes.Equal(table.numBits, wantNumBits) {
		t.Fatalf("numBits: got %v, want %v", table.numBits, wantNumBits)
	}
	for i, want := range wantBase {
		if table.newStateBase[i] != want {
			t.Fatalf("newStateBase[%d]: got %d, want %d", i, table.newStateBase[i], want)
		}
	}
}

func TestConvertHufWeightsToBits(t *testing.T) {
	bits, err := convertHufWeightsToBits([]byte{1, 1})
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{2, 2, 1}
	if !bytes.Equal(bits, want) {
		t.Fatalf("got %v, want %v", bits, want)
	}
}

func TestInitHufTable(t *testing.T) {
	table, err := initHufTable([]byte{2, 2, 1})
	if err != nil {
		t.Fatal(err)
	}
	if table.maxBits != 2 {
		t.Fatalf("maxBits: got %d, want 2", table.maxBits)
	}
	wantSymbols := []byte{0, 1, 2, 2}
	wantNumBits := []byte{2, 2, 1, 1}
	if !bytes.Equal(table.symbols, wantSymbols) {
		t.Fatalf("symbols: got %v, want %v", table.symbols, wantSymbols)
	}
	if !bytes.Equal(table.numBits, wantNumBits) {
		t.Fatalf("numBits: got %v, want %v", table.numBits, wantNumBits)
	}
}

func TestParseOffsetAbsolute(t *testing.T) {
	prev := [3]uint64{1, 4, 8}
	got := parseOffset(5, &prev, 3)
	if got != 2 {
		t.Fatalf("got %d, want 2", got)
	}
	if prev != [3]uint64{2, 1, 4} {
		t.Fatalf("prevOffsets after rotation: %v", prev)
	}
}

func TestParseOffsetRepeatWithLiterals(t *testing.T) {
	prev := [3]uint64{1, 4, 8}
	got := parseOffset(1, &prev, 5)
	if got != 1 {
		t.Fatalf("got %d, want 1", got)
	}
	if prev != [3]uint64{1, 4, 8} {
		t.Fatalf("prevOffsets should be untouched by the litLen!=0, raw==1 case: %v", prev)
	}
}

func TestParseOffsetRepeatNoLiterals(t *testing.T) {
	prev := [3]uint64{1, 4, 8}
	got := parseOffset(1, &prev, 0)
	if got != 4 {
		t.Fatalf("got %d, want 4", got)
	}
	if prev != [3]uint64{4, 1, 8} {
		t.Fatalf("prevOffsets after rotation: %v", prev)
	}
}

func TestParseOffsetThirdRepeat(t *testing.T) {
	prev := [3]uint64{1, 4, 8}
	got := parseOffset(3, &prev, 0)
	if got != 0 {
		t.Fatalf("got %d, want 0", got)
	}
	if prev != [3]uint64{0, 1, 4} {
		t.Fatalf("prevOffsets after rotation: %v", prev)
	}
}
