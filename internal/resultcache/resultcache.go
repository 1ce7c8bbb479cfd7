// Package resultcache memoizes codec results by content hash: an
// in-memory TinyLFU tier backed by an optional pebble-backed tier for
// results worth surviving process restarts (dictionaries, repeated
// batch runs over the same corpus).
//
// Grounded on internal/spinner's block cache (spinner.go's blkCache,
// concurrent.go's Pool.bcache): same tinylfu.New[K,V] construction with
// a maphash-based hash function and an OnEvict callback, generalized
// from "decompressed filesystem block keyed by (Path, offset)" to "codec
// result keyed by (codec id, content hash)".
package resultcache

import (
	"hash/maphash"

	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-tinylfu"
)

// Codec identifies which compressor/decompressor produced a cached
// result, so the same input bytes under different codecs never collide.
// Apart from CodecZstdDecompress an id does not record direction: a
// compress result and a decompress result of the same input under the
// same id share one key.
type Codec uint8

const (
	CodecDeflate Codec = iota
	CodecGzip
	CodecLZ4
	CodecLZMA
	CodecZstdDecompress
	CodecZip
)

type key struct {
	codec Codec
	hash  uint64
	size  int
}

var hashSeed = maphash.MakeSeed()

func hashKey(k key) uint64 {
	return maphash.Comparable(hashSeed, k)
}

// Cache is an in-memory, size-bounded memoization table for codec
// results. The zero value is not usable; construct with New. A Cache is
// safe for concurrent use by multiple goroutines only if the underlying
// tinylfu.T is (spinner.Pool relies on the same assumption, serializing
// access through its own multiplexer goroutine instead); callers that
// need concurrent access should serialize their own Get/Put pairs.
type Cache struct {
	entries *tinylfu.T[key, []byte]
}

// New returns a Cache admitting up to size entries, sampling samples
// candidates per admission decision the way spinner.go sizes its block
// cache (n, n*10).
func New(size int) *Cache {
	if size <= 0 {
		size = 1
	}
	return &Cache{
		entries: tinylfu.New[key, []byte](size, size*10, hashKey),
	}
}

// Get returns the cached result of running codec over src, if present.
func (c *Cache) Get(codec Codec, src []byte) ([]byte, bool) {
	k := key{codec: codec, hash: xxhash.Sum64(src), size: len(src)}
	return c.entries.Get(k)
}

// Put records the result of running codec over src.
func (c *Cache) Put(codec Codec, src, result []byte) {
	k := key{codec: codec, hash: xxhash.Sum64(src), size: len(src)}
	stored := make([]byte, len(result))
	copy(stored, result)
	c.entries.Add(k, stored)
}
