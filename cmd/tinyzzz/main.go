// Command tinyzzz is a thin CLI wrapper over the codec packages: pick a
// format with a flag, pick a direction with -c/-d, and it reads one
// file and writes another. It exists to exercise the library end to
// end, not to be a feature-complete compression tool.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/relaycore/tinyzzz/internal/codec"
)

func usage() {
	fmt.Fprintln(os.Stderr, `usage: tinyzzz (-c|-d) --FORMAT [options] <src> <dst>

formats: --gzip --lz4 --zstd --lzma --lpaq8 --xz

  -c              compress src into dst
  -d              decompress src into dst
  -0 .. -9        compression level (accepted, currently a no-op outside lpaq8)
  --zip NAME      wrap/unwrap the payload in a ZIP entry named NAME instead of a bare stream
  --glob PATTERN  treat src as a directory (no dst argument); PATTERN selects files under src,
                  and each result is written beside its source file
  --memlimit MiB  soft cap on the LZMA encoder's working set (default 512)`)
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("tinyzzz: ")

	var (
		compress   = flag.Bool("c", false, "compress")
		decompress = flag.Bool("d", false, "decompress")
		gzipFlag   = flag.Bool("gzip", false, "gzip format")
		lz4Flag    = flag.Bool("lz4", false, "lz4 format")
		zstdFlag   = flag.Bool("zstd", false, "zstd format")
		lzmaFlag   = flag.Bool("lzma", false, "lzma format")
		lpaq8Flag  = flag.Bool("lpaq8", false, "lpaq8 format (rejected: unsupported)")
		xzFlag     = flag.Bool("xz", false, "xz format (decode-only)")
		zipName    = flag.String("zip", "", "wrap/unwrap payload as a ZIP entry with this name")
		globPat    = flag.String("glob", "", "batch mode: doublestar pattern under src")
		memLimitMB = flag.Int("memlimit", 512, "soft memory cap in MiB before the LZMA encoder runs")
	)
	for level := 0; level <= 9; level++ {
		flag.Bool(fmt.Sprint(level), false, "compression level (accepted, currently a no-op outside lpaq8)")
	}
	flag.Usage = usage
	flag.Parse()

	if *compress == *decompress {
		usage()
		os.Exit(2)
	}
	format, err := pickFormat(*gzipFlag, *lz4Flag, *zstdFlag, *lzmaFlag, *lpaq8Flag, *xzFlag)
	if err != nil {
		log.Println(err)
		os.Exit(2)
	}
	args := flag.Args()
	if *globPat != "" {
		if len(args) != 1 {
			usage()
			os.Exit(2)
		}
		runGlob(args[0], *globPat, format, *compress, *zipName, *memLimitMB)
		return
	}
	if len(args) != 2 {
		usage()
		os.Exit(2)
	}

	applyMemLimit(*memLimitMB)

	src, dst := args[0], args[1]
	if err := runOne(src, dst, format, *compress, *zipName); err != nil {
		log.Println(err)
		os.Exit(exitCodeFor(err))
	}
}

func exitCodeFor(err error) int {
	switch codec.KindOf(err) {
	case codec.Ok:
		return 0
	case codec.MemoryRunout:
		return 3
	case codec.Unsupported:
		return 4
	default:
		return 1
	}
}
