package engine

import (
	"errors"
	"fmt"
)

// Planning errors. Fatal to the Expand call that returns them.
var (
	ErrNoSources      = errors.New("no sources")
	ErrNoDestinations = errors.New("no destinations")
)

// Per-unit errors. These never abort sibling units; the scheduler collects them.
var (
	ErrSourceNotFound       = errors.New("source not found")
	ErrDestinationDirCreate = errors.New("create destination directory")
	ErrCopyFailed           = errors.New("copy failed")
	ErrVerificationMismatch = errors.New("verification mismatch")
	ErrCancelled            = errors.New("cancelled")
)

// Hasher errors.
var (
	ErrCannotOpenSource = errors.New("cannot open source")
	ErrReadFailure      = errors.New("read failure")
)

// MismatchError reports differing digests for a source/destination pair.
// It matches ErrVerificationMismatch under errors.Is.
type MismatchError struct {
	Source      string
	Destination string
	Expected    string
	Actual      string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s: %s -> %s: expected %s, got %s",
		ErrVerificationMismatch, e.Source, e.Destination, e.Expected, e.Actual)
}

func (e *MismatchError) Is(target error) bool {
	return target == ErrVerificationMismatch
}
