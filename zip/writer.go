package zip

import (
	"encoding/binary"
	"hash/crc32"
	"path"
	"strings"

	"github.com/relaycore/tinyzzz/deflate"
	"github.com/relaycore/tinyzzz/internal/codec"
	"github.com/relaycore/tinyzzz/lzma"
)

type writtenEntry struct {
	name             string
	method           uint16
	crc32            uint32
	compressedSize   uint32
	uncompressedSize uint32
	offset           uint32
}

// Writer accumulates entries into an in-memory ZIP archive. Call
// WriteFile for each entry, then Close to append the central directory
// and End-of-Central-Directory record and retrieve the finished bytes.
type Writer struct {
	buf     []byte
	entries []writtenEntry
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

func sanitizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimPrefix(name, "/")
	return path.Base(name)
}

func putLE16(b []byte, v uint16) { binary.LittleEndian.PutUint16(b, v) }
func putLE32(b []byte, v uint32) { binary.LittleEndian.PutUint32(b, v) }

// WriteFile compresses data with the given method (MethodStore,
// MethodDeflate, or MethodLZMA) and appends a Local File Header plus
// payload to the archive. Uncompressed and compressed sizes must fit
// in 32 bits.
func (w *Writer) WriteFile(name string, data []byte, method uint16) error {
	if len(data) > 0xFFFFFFFF {
		return codec.New(codec.Unsupported, "zip: entry too large for a non-ZIP64 archive")
	}
	name = sanitizeName(name)

	var propRecord []byte
	var payload []byte
	switch method {
	case MethodStore:
		payload = data
	case MethodDeflate:
		dst := make([]byte, len(data)*2+4096)
		n, err := deflate.Compress(dst, data, deflate.Options{})
		if err != nil {
			return err
		}
		payload = dst[:n]
	case MethodLZMA:
		opts := lzma.Options{LC: 4, LP: 0, PB: 3} // matches CompressRaw's own default, spelled out since WriteZipLZMAProperty does not apply it
		propRecord = make([]byte, 9)
		pos := 0
		if err := lzma.WriteZipLZMAProperty(propRecord, &pos, opts); err != nil {
			return err
		}
		dst := make([]byte, len(data)*2+4096)
		n, err := lzma.CompressRaw(dst, data, opts)
		if err != nil {
			return err
		}
		payload = dst[:n]
	default:
		return codec.New(codec.Unsupported, "zip: unsupported compression method %d", method)
	}
	if len(propRecord)+len(payload) > 0xFFFFFFFF {
		return codec.New(codec.Unsupported, "zip: compressed entry too large for a non-ZIP64 archive")
	}

	offset := uint32(len(w.buf))
	crc := crc32.ChecksumIEEE(data)
	compressedSize := uint32(len(propRecord) + len(payload))

	lfh := make([]byte, 30+len(name))
	putLE32(lfh[0:], sigLocalHeader)
	putLE16(lfh[4:], 20) // version needed to extract
	// bits[6:] flags left at 0: no data descriptor, no UTF-8 bit needed for plain ASCII names
	putLE16(lfh[8:], method)
	// dostime/dosdate left at 0: no mtime is tracked for generated archives
	putLE32(lfh[14:], crc)
	putLE32(lfh[18:], compressedSize)
	putLE32(lfh[22:], uint32(len(data)))
	putLE16(lfh[26:], uint16(len(name)))
	copy(lfh[30:], name)

	w.buf = append(w.buf, lfh...)
	w.buf = append(w.buf, propRecord...)
	w.buf = append(w.buf, payload...)

	w.entries = append(w.entries, writtenEntry{
		name:             name,
		method:           method,
		crc32:            crc,
		compressedSize:   compressedSize,
		uncompressedSize: uint32(len(data)),
		offset:           offset,
	})
	return nil
}

// Close appends the Central Directory and End-of-Central-Directory
// Record and returns the complete archive bytes.
func (w *Writer) Close() ([]byte, error) {
	centralStart := len(w.buf)

	for _, e := range w.entries {
		cdfh := make([]byte, 46+len(e.name))
		putLE32(cdfh[0:], sigCentralHeader)
		putLE16(cdfh[4:], 20)  // version made by
		putLE16(cdfh[6:], 20)  // version needed to extract
		putLE16(cdfh[10:], e.method)
		putLE32(cdfh[16:], e.crc32)
		putLE32(cdfh[20:], e.compressedSize)
		putLE32(cdfh[24:], e.uncompressedSize)
		putLE16(cdfh[28:], uint16(len(e.name)))
		putLE32(cdfh[42:], e.offset)
		copy(cdfh[46:], e.name)
		w.buf = append(w.buf, cdfh...)
	}

	centralSize := uint32(len(w.buf) - centralStart)

	eocd := make([]byte, 22)
	putLE32(eocd[0:], sigEOCD)
	putLE16(eocd[8:], uint16(len(w.entries)))
	putLE16(eocd[10:], uint16(len(w.entries)))
	putLE32(eocd[12:], centralSize)
	putLE32(eocd[16:], uint32(centralStart))
	w.buf = append(w.buf, eocd...)

	return w.buf, nil
}
