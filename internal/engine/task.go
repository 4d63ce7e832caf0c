package engine

import "github.com/bamsammich/checksum/internal/filter"

// DefaultBufferSize is the copy chunk size when CopyOptions.BufferSize is unset.
const DefaultBufferSize = 8 << 20 // 8 MiB

// CopyOptions configures a clone. It is shared read-only by every unit.
type CopyOptions struct {
	Overwrite          bool
	BufferSize         int
	PreserveTimestamps bool
	FollowSymlinks     bool
	Algorithm          Algorithm
	Filter             *filter.Chain // optional, applied while planning
}

// DefaultCopyOptions returns the options used when the caller sets nothing.
func DefaultCopyOptions() CopyOptions {
	return CopyOptions{
		BufferSize:         DefaultBufferSize,
		PreserveTimestamps: true,
		Algorithm:          MD5,
	}
}

func (o CopyOptions) bufferSize() int {
	if o.BufferSize <= 0 {
		return DefaultBufferSize
	}
	return o.BufferSize
}

// CloneRequest is a batch of sources to copy onto every destination root.
type CloneRequest struct {
	Sources      []string
	Destinations []string
	Options      CopyOptions
}

// CopyTask is one source file fanned out to one path under each destination root.
type CopyTask struct {
	SourceFile       string
	DestinationFiles []string
	RelPath          string // path appended to each destination root
	Size             int64  // source size at planning time, 0 if unknown
}

// Unit is a single (source file, destination file) copy.
type Unit struct {
	Source      string
	Destination string
	Size        int64
}

// VerificationResult records one verified destination.
type VerificationResult struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Digest      string `json:"digest"`
	Algorithm   string `json:"algorithm"`
	Bytes       int64  `json:"bytes"`
	Copied      bool   `json:"copied"` // false when the destination was already identical
}

// Flatten expands tasks into units, task order first then destination order.
func Flatten(tasks []CopyTask) []Unit {
	var units []Unit
	for _, t := range tasks {
		for _, dst := range t.DestinationFiles {
			units = append(units, Unit{Source: t.SourceFile, Destination: dst, Size: t.Size})
		}
	}
	return units
}

// TotalBytes sums the planned sizes of units.
func TotalBytes(units []Unit) int64 {
	var total int64
	for _, u := range units {
		total += u.Size
	}
	return total
}
