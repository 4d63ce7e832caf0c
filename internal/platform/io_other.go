//go:build !linux

package platform

import "os"

// Preallocate is a no-op on non-Linux platforms (fallocate is Linux-only).
func Preallocate(_ *os.File, _ int64) {}

// AdviseSequential is a no-op on non-Linux platforms.
func AdviseSequential(_ *os.File) {}
