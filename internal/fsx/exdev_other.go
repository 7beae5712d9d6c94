//go:build !unix

package fsx

// Renames across volumes fail with platform specific errors here; they are
// reported to the caller unchanged.
func isEXDEV(error) bool { return false }
