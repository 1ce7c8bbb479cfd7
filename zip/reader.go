package zip

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/relaycore/tinyzzz/deflate"
	"github.com/relaycore/tinyzzz/internal/codec"
	"github.com/relaycore/tinyzzz/lzma"
)

// Entry describes one file stored in the archive, without decompressing it.
type Entry struct {
	Name             string
	Method           uint16
	UncompressedSize uint32
}

type centralEntry struct {
	Entry
	crc32          uint32
	compressedSize uint32
	localOffset    uint32
}

// Reader parses the central directory of an in-memory ZIP archive and
// extracts entries on demand.
type Reader struct {
	src     []byte
	entries []centralEntry
}

// NewReader locates the End-of-Central-Directory record, reads the
// central directory it points to, and parses every entry header.
// Spanned and ZIP64 archives are not supported.
func NewReader(src []byte) (*Reader, error) {
	eocdOff := findEOCD(src)
	if eocdOff < 0 {
		return nil, ErrFormat
	}
	eocd := src[eocdOff:]

	diskNum := binary.LittleEndian.Uint16(eocd[4:])
	centralDisk := binary.LittleEndian.Uint16(eocd[6:])
	if diskNum != 0 || centralDisk != 0 {
		return nil, codec.New(codec.Unsupported, "zip: spanned archives are not supported")
	}
	recordCount := binary.LittleEndian.Uint16(eocd[10:])
	centralSize := int64(binary.LittleEndian.Uint32(eocd[12:]))
	centralOffset := int64(binary.LittleEndian.Uint32(eocd[16:]))

	if centralOffset < 0 || centralOffset+centralSize > int64(eocdOff) {
		return nil, ErrFormat
	}
	dir := src[centralOffset : centralOffset+centralSize]

	r := &Reader{src: src}
	for i := 0; i < int(recordCount); i++ {
		if len(dir) < 46 || binary.LittleEndian.Uint32(dir) != sigCentralHeader {
			return nil, ErrFormat
		}
		method := binary.LittleEndian.Uint16(dir[10:])
		crc := binary.LittleEndian.Uint32(dir[16:])
		compressedSize := binary.LittleEndian.Uint32(dir[20:])
		uncompressedSize := binary.LittleEndian.Uint32(dir[24:])
		namelen := int(binary.LittleEndian.Uint16(dir[28:]))
		extralen := int(binary.LittleEndian.Uint16(dir[30:]))
		commentlen := int(binary.LittleEndian.Uint16(dir[32:]))
		offset := binary.LittleEndian.Uint32(dir[42:])

		if len(dir) < 46+namelen+extralen+commentlen {
			return nil, ErrFormat
		}
		name := string(dir[46 : 46+namelen])
		dir = dir[46+namelen+extralen+commentlen:]

		r.entries = append(r.entries, centralEntry{
			Entry: Entry{
				Name:             name,
				Method:           method,
				UncompressedSize: uncompressedSize,
			},
			crc32:          crc,
			compressedSize: compressedSize,
			localOffset:    offset,
		})
	}
	return r, nil
}

// Entries lists every file the archive contains.
func (r *Reader) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Entry
	}
	return out
}

// ReadFile decompresses the named entry and verifies its CRC-32.
func (r *Reader) ReadFile(name string) ([]byte, error) {
	for _, e := range r.entries {
		if e.Name == name {
			return r.readEntry(e)
		}
	}
	return nil, codec.New(codec.Data, "zip: no such entry %q", name)
}

func (r *Reader) readEntry(e centralEntry) ([]byte, error) {
	lfh := r.src[e.localOffset:]
	if len(lfh) < 30 || binary.LittleEndian.Uint32(lfh) != sigLocalHeader {
		return nil, ErrFormat
	}
	namelen := int(binary.LittleEndian.Uint16(lfh[26:]))
	extralen := int(binary.LittleEndian.Uint16(lfh[28:]))
	payload := lfh[30+namelen+extralen:]
	if len(payload) < int(e.compressedSize) {
		return nil, ErrFormat
	}
	payload = payload[:e.compressedSize]

	var uncompressed []byte
	switch e.Method {
	case MethodStore:
		uncompressed = append([]byte(nil), payload...)
	case MethodDeflate:
		uncompressed = make([]byte, e.UncompressedSize)
		n, err := deflate.Decompress(uncompressed, payload)
		if err != nil {
			return nil, err
		}
		uncompressed = uncompressed[:n]
	case MethodLZMA:
		opts, err := lzma.ParseZipLZMAProperty(payload)
		if err != nil {
			return nil, err
		}
		uncompressed = make([]byte, e.UncompressedSize)
		n, err := lzma.DecompressRaw(uncompressed, payload[9:], opts)
		if err != nil {
			return nil, err
		}
		uncompressed = uncompressed[:n]
	default:
		return nil, ErrAlgorithm
	}

	rc := newChecksumReader(bytes.NewReader(uncompressed), int64(len(uncompressed)), e.crc32)
	defer rc.Close()
	verified, err := io.ReadAll(rc)
	if err != nil {
		return nil, ErrChecksum
	}
	return verified, nil
}

// findEOCD scans backward from the end of src for the
// End-of-Central-Directory signature, accounting for the variable-length
// comment field that may follow it.
func findEOCD(src []byte) int {
	if len(src) < 22 {
		return -1
	}
	maxBack := len(src) - 22
	if maxBack > 65535 {
		maxBack = 65535
	}
	for back := 0; back <= maxBack; back++ {
		off := len(src) - 22 - back
		if binary.LittleEndian.Uint32(src[off:]) == sigEOCD {
			commentLen := int(binary.LittleEndian.Uint16(src[off+20:]))
			if off+22+commentLen == len(src) {
				return off
			}
		}
	}
	return -1
}
