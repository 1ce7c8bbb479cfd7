package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/relaycore/tinyzzz/internal/codec"
	tzip "github.com/relaycore/tinyzzz/zip"
)

func zipMethodFor(f format) (uint16, error) {
	switch f {
	case formatGzip:
		return tzip.MethodDeflate, nil
	case formatLZMA:
		return tzip.MethodLZMA, nil
	default:
		return 0, codec.New(codec.Unsupported, "%s: no ZIP method mapping", formatName(f))
	}
}

func runOne(src, dst string, f format, compress bool, zipName string) error {
	in, err := os.ReadFile(src)
	if err != nil {
		return err
	}

	var out []byte
	switch {
	case compress && zipName != "":
		method, err := zipMethodFor(f)
		if err != nil {
			return err
		}
		w := tzip.NewWriter()
		if err := w.WriteFile(zipName, in, method); err != nil {
			return err
		}
		out, err = w.Close()
		if err != nil {
			return err
		}
	case compress:
		out, err = compressBytes(f, in)
		if err != nil {
			return err
		}
	case !compress && zipName != "":
		r, err := tzip.NewReader(in)
		if err != nil {
			return err
		}
		out, err = r.ReadFile(zipName)
		if err != nil {
			return err
		}
	default:
		out, err = decompressBytes(f, in, len(in)*4+4096)
		if err != nil {
			return err
		}
	}

	return os.WriteFile(dst, out, 0o644)
}

// runGlob treats src as a directory root and expands pattern against it
// with doublestar (supporting "**" the way the teacher's directory
// walks do), running every match through runOne into a sibling file
// beside the match, named by outputName.
func runGlob(srcDir, pattern string, f format, compress bool, zipName string, memLimitMB int) {
	matches, err := doublestar.Glob(os.DirFS(srcDir), pattern)
	if err != nil {
		fmt.Fprintln(os.Stderr, "tinyzzz:", err)
		os.Exit(2)
	}

	applyMemLimit(memLimitMB)

	failed := 0
	for _, rel := range matches {
		src := filepath.Join(srcDir, rel)
		info, err := os.Stat(src)
		if err != nil || info.IsDir() {
			continue
		}
		dst := outputName(src, f, compress)
		if err := runOne(src, dst, f, compress, zipName); err != nil {
			fmt.Fprintf(os.Stderr, "tinyzzz: %s: %v\n", rel, err)
			failed++
			continue
		}
		fmt.Println(rel, "->", filepath.Base(dst))
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func outputName(src string, f format, compress bool) string {
	if compress {
		return src + "." + formatName(f)
	}
	ext := "." + formatName(f)
	if filepath.Ext(src) == ext {
		return src[:len(src)-len(ext)]
	}
	return src + ".out"
}
