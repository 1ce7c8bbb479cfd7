// Copyright Elliot Nunn. Portions copyright 2010 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zip

import (
	"hash"
	"hash/crc32"
	"io"
)

// newChecksumReader wraps an io.Reader and fails the final Read once
// all size bytes have passed through if the running CRC-32 doesn't
// match checksum.
func newChecksumReader(r io.Reader, size int64, checksum uint32) io.ReadCloser {
	rc, ok := r.(io.ReadCloser)
	if !ok {
		rc = io.NopCloser(r)
	}
	return &checksumReader{rc: rc, remain: size, sum: checksum, hash: crc32.NewIEEE()}
}

type checksumReader struct {
	rc     io.ReadCloser
	remain int64
	sum    uint32
	hash   hash.Hash32 // nil means the hash check failed
}

func (r *checksumReader) Read(b []byte) (n int, err error) {
	if r.hash == nil {
		return 0, ErrChecksum
	}
	n, err = r.rc.Read(b)
	r.hash.Write(b[:n])
	r.remain -= int64(n)
	if r.remain == 0 && r.sum != 0 && r.hash.Sum32() != r.sum {
		r.hash = nil
		return n, ErrChecksum
	}
	return
}

func (r *checksumReader) Close() error { return r.rc.Close() }
