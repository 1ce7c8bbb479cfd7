package main

import (
	"bytes"
	"io"

	"github.com/therootcompany/xz"
)

// decompressXZ is a decode-only bridge for differential testing: feed
// it a corpus compressed with a real xz encoder and compare the result
// against what this module's own lzma/deflate encoders produce from the
// same source, without needing a second hand-written LZMA-family
// decoder just to read test fixtures.
func decompressXZ(src []byte) ([]byte, error) {
	r, err := xz.NewReader(bytes.NewReader(src), 0)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}
