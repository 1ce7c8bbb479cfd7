//go:build unix

package main

import (
	"log"

	"golang.org/x/sys/unix"
)

// applyMemLimit sets a soft RLIMIT_AS cap before running the LZMA
// encoder, whose multi-level hash table is the single largest
// allocation this module ever makes. Adapted from the teacher's own
// memlimit.go (an env-var-configured byte budget checked by callers
// before a big allocation); here the budget is enforced by the kernel
// itself via setrlimit instead of a package-level variable callers have
// to remember to consult, so an oversized run fails fast with a
// MemoryRunout-shaped message instead of an OS-level OOM kill.
func applyMemLimit(megabytes int) {
	if megabytes <= 0 {
		return
	}
	limit := uint64(megabytes) * 1024 * 1024

	var rlim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_AS, &rlim); err != nil {
		log.Printf("warning: could not read RLIMIT_AS, memory cap not applied: %v", err)
		return
	}
	if rlim.Max != unix.RLIM_INFINITY && limit > rlim.Max {
		limit = rlim.Max
	}
	rlim.Cur = limit
	if err := unix.Setrlimit(unix.RLIMIT_AS, &rlim); err != nil {
		log.Printf("warning: could not apply RLIMIT_AS cap: %v", err)
	}
}
