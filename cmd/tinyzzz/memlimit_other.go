//go:build !unix

package main

// applyMemLimit is a no-op outside unix platforms: RLIMIT_AS has no
// portable equivalent, and this module isn't in the business of
// reimplementing one.
func applyMemLimit(megabytes int) {}
