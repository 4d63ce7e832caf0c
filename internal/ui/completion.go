package ui

import (
	"fmt"

	"github.com/bamsammich/checksum/internal/stats"
)

// CompletionSummary builds a final summary line from a snapshot.
// Format: done ✓  files 48,917  identical 12  size 2.1 GiB  avg 641 MB/s  time 3m 17s  errors 0
func CompletionSummary(snap stats.Snapshot) string {
	avgSpeed := 0.0
	if snap.Elapsed.Seconds() > 0 {
		avgSpeed = float64(snap.BytesCopied) / snap.Elapsed.Seconds()
	}

	icon := "✓"
	if snap.FilesFailed > 0 || snap.FilesCancelled > 0 {
		icon = "✗"
	}

	base := fmt.Sprintf("done %s  files %s", icon, FormatCount(snap.FilesCopied))
	if snap.FilesIdentical > 0 {
		base += fmt.Sprintf("  identical %s", FormatCount(snap.FilesIdentical))
	}
	base += fmt.Sprintf("  size %s  avg %s  time %s",
		FormatBytes(snap.BytesCopied),
		FormatRate(avgSpeed),
		FormatDuration(snap.Elapsed),
	)
	if snap.FilesCancelled > 0 {
		base += fmt.Sprintf("  cancelled %s", FormatCount(snap.FilesCancelled))
	}
	base += fmt.Sprintf("  errors %d", snap.FilesFailed)

	return base
}
