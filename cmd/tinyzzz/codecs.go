package main

import (
	"fmt"

	"github.com/relaycore/tinyzzz/deflate"
	"github.com/relaycore/tinyzzz/internal/codec"
	"github.com/relaycore/tinyzzz/internal/resultcache"
	"github.com/relaycore/tinyzzz/lz4"
	"github.com/relaycore/tinyzzz/lzma"
	"github.com/relaycore/tinyzzz/zstd"
)

// cache memoizes codec results across the files a single --glob batch
// run touches, so a duplicated file in the corpus costs one codec call
// instead of one per match.
var cache = resultcache.New(256)

func resultcacheCodecFor(f format) resultcache.Codec {
	switch f {
	case formatGzip:
		return resultcache.CodecGzip
	case formatLZ4:
		return resultcache.CodecLZ4
	case formatZstd:
		return resultcache.CodecZstdDecompress
	case formatLZMA:
		return resultcache.CodecLZMA
	default:
		return resultcache.CodecDeflate
	}
}

// format names one of the codecs tinyzzz can drive, independent of
// direction; some (zstd, xz) only support one direction.
type format int

const (
	formatGzip format = iota
	formatLZ4
	formatZstd
	formatLZMA
	formatXZ
)

func pickFormat(gzip, lz4f, zstdf, lzmaf, lpaq8, xz bool) (format, error) {
	n := 0
	for _, b := range []bool{gzip, lz4f, zstdf, lzmaf, lpaq8, xz} {
		if b {
			n++
		}
	}
	if n != 1 {
		return 0, fmt.Errorf("exactly one format flag is required")
	}
	switch {
	case lpaq8:
		return 0, codec.New(codec.Unsupported, "lpaq8: no implementation present")
	case gzip:
		return formatGzip, nil
	case lz4f:
		return formatLZ4, nil
	case zstdf:
		return formatZstd, nil
	case lzmaf:
		return formatLZMA, nil
	case xz:
		return formatXZ, nil
	}
	panic("unreachable")
}

// scratchSize guesses a destination buffer large enough for either
// direction of any of this module's codecs: compression can expand
// incompressible input by a small constant factor plus header
// overhead, and decompression of a well-formed stream never needs more
// than the declared uncompressed size, which callers already know for
// gzip/lzma/lz4 headers. Used only where the real output size isn't
// available up front.
func scratchSize(n int) int {
	return n*2 + 4096
}

func compressBytes(f format, src []byte) ([]byte, error) {
	cacheCodec := resultcacheCodecFor(f)
	if got, ok := cache.Get(cacheCodec, src); ok {
		return got, nil
	}
	out, err := compressBytesUncached(f, src)
	if err != nil {
		return nil, err
	}
	cache.Put(cacheCodec, src, out)
	return out, nil
}

func compressBytesUncached(f format, src []byte) ([]byte, error) {
	switch f {
	case formatGzip:
		dst := make([]byte, scratchSize(len(src)))
		n, err := deflate.CompressGzip(dst, src, deflate.Options{})
		if err != nil {
			return nil, err
		}
		return dst[:n], nil
	case formatLZ4:
		dst := make([]byte, scratchSize(len(src)))
		n, err := lz4.Compress(dst, src, lz4.Options{})
		if err != nil {
			return nil, err
		}
		return dst[:n], nil
	case formatLZMA:
		dst := make([]byte, scratchSize(len(src)))
		n, err := lzma.Compress(dst, src, lzma.Options{})
		if err != nil {
			return nil, err
		}
		return dst[:n], nil
	case formatZstd, formatXZ:
		return nil, codec.New(codec.Unsupported, "%s: encoding is not implemented", formatName(f))
	default:
		return nil, codec.New(codec.Unsupported, "unknown format")
	}
}

func decompressBytes(f format, src []byte, hint int) ([]byte, error) {
	cacheCodec := resultcacheCodecFor(f)
	if got, ok := cache.Get(cacheCodec, src); ok {
		return got, nil
	}
	out, err := decompressBytesUncached(f, src, hint)
	if err != nil {
		return nil, err
	}
	cache.Put(cacheCodec, src, out)
	return out, nil
}

func decompressBytesUncached(f format, src []byte, hint int) ([]byte, error) {
	switch f {
	case formatGzip:
		dst := make([]byte, max(hint, scratchSize(len(src))))
		n, err := deflate.DecompressGzip(dst, src)
		if err != nil {
			return nil, err
		}
		return dst[:n], nil
	case formatLZ4:
		dst := make([]byte, max(hint, scratchSize(len(src))))
		n, err := lz4.Decompress(dst, src)
		if err != nil {
			return nil, err
		}
		return dst[:n], nil
	case formatLZMA:
		dst := make([]byte, max(hint, scratchSize(len(src))))
		n, err := lzma.Decompress(dst, src)
		if err != nil {
			return nil, err
		}
		return dst[:n], nil
	case formatZstd:
		dst := make([]byte, max(hint, scratchSize(len(src))))
		n, err := zstd.Decompress(dst, src)
		if err != nil {
			return nil, err
		}
		return dst[:n], nil
	case formatXZ:
		return decompressXZ(src)
	default:
		return nil, codec.New(codec.Unsupported, "unknown format")
	}
}

func formatName(f format) string {
	switch f {
	case formatGzip:
		return "gzip"
	case formatLZ4:
		return "lz4"
	case formatZstd:
		return "zstd"
	case formatLZMA:
		return "lzma"
	case formatXZ:
		return "xz"
	default:
		return "unknown"
	}
}
