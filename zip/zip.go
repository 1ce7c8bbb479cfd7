// Package zip writes and reads a minimal ZIP container: Local File
// Header, optional 9-byte LZMA property record, compressed payload,
// Central Directory File Header, and End-of-Central-Directory Record.
// No ZIP64, no spanning, no streaming; every entry's full content is
// held in memory at once. Grounded on internal/zip's central-directory
// scan, generalized from a read-only fs.FS view to a writer/reader pair
// that also understands method 14 (LZMA) alongside method 8 (DEFLATE).
package zip

import (
	"github.com/relaycore/tinyzzz/internal/codec"
)

const (
	MethodStore   = 0
	MethodDeflate = 8
	MethodLZMA    = 14
)

const (
	sigLocalHeader   = 0x04034b50
	sigCentralHeader = 0x02014b50
	sigEOCD          = 0x06054b50
)

var (
	ErrFormat    = codec.New(codec.Corrupt, "zip: not a valid zip file")
	ErrAlgorithm = codec.New(codec.Unsupported, "zip: unsupported compression method")
	ErrChecksum  = codec.New(codec.Corrupt, "zip: checksum error")
)
