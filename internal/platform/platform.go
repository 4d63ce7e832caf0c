// Package platform holds OS-specific I/O hints for the copy loop. Every
// helper is advisory: failures are ignored and the copy proceeds without
// the hint.
package platform
