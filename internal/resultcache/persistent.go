package resultcache

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/pebble/v2"
)

// Persistent is an on-disk memoization tier for codec results, meant to
// sit behind a Cache: check Cache first, fall back to Persistent, and
// populate both on a miss. No example in the retrieved corpus calls
// cockroachdb/pebble directly (it only appears in go.mod manifests), so
// this is wired straight against pebble's own documented Open/Set/Get
// API rather than an in-pack call site.
type Persistent struct {
	db *pebble.DB
}

// OpenPersistent opens (creating if necessary) a pebble store at dir.
func OpenPersistent(dir string) (*Persistent, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &Persistent{db: db}, nil
}

// Close releases the underlying pebble store.
func (p *Persistent) Close() error {
	return p.db.Close()
}

func encodeKey(codec Codec, src []byte) []byte {
	k := make([]byte, 9)
	k[0] = byte(codec)
	binary.BigEndian.PutUint64(k[1:], xxhash.Sum64(src))
	return k
}

// Get returns the cached result of running codec over src, if present.
func (p *Persistent) Get(codec Codec, src []byte) ([]byte, bool) {
	v, closer, err := p.db.Get(encodeKey(codec, src))
	if err != nil {
		return nil, false
	}
	out := make([]byte, len(v))
	copy(out, v)
	closer.Close()
	return out, true
}

// Put records the result of running codec over src.
func (p *Persistent) Put(codec Codec, src, result []byte) error {
	return p.db.Set(encodeKey(codec, src), result, pebble.Sync)
}
