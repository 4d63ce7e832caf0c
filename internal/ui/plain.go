package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/bamsammich/checksum/internal/stats"
)

// plainPresenter writes one line per finished unit to w and, when progress
// is enabled, a periodic progress line to errW.
type plainPresenter struct {
	w        io.Writer
	errW     io.Writer
	stats    *stats.Collector
	progress bool
	interval time.Duration // 0 means 5s
}

func (p *plainPresenter) Run(events <-chan Event) error {
	interval := p.interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			p.handleEvent(ev)
		case <-ticker.C:
			if p.progress {
				p.printProgress()
			}
		}
	}
}

func (p *plainPresenter) handleEvent(ev Event) {
	switch ev.Type {
	case FileCompleted, FileIdentical:
		fmt.Fprintf(p.w, "OK %s -> %s\n", ev.Path, ev.Dest)
	case FileFailed:
		errMsg := "error"
		if ev.Error != nil {
			errMsg = ev.Error.Error()
		}
		fmt.Fprintf(p.w, "FAILED %s -> %s: %s\n", ev.Path, ev.Dest, errMsg)
	case FileCancelled:
		fmt.Fprintf(p.w, "CANCELLED %s -> %s\n", ev.Path, ev.Dest)
	}
}

func (p *plainPresenter) printProgress() {
	snap := p.stats.Snapshot()
	if snap.BytesTotal <= 0 {
		fmt.Fprintf(p.errW, "progress: %s/%s files %s\n",
			FormatCount(snap.FilesDone()), FormatCount(snap.FilesTotal),
			FormatClock(snap.Elapsed, p.stats.ETA()))
		return
	}
	pct := float64(snap.BytesDone) / float64(snap.BytesTotal) * 100
	fmt.Fprintf(p.errW, "progress: %.0f%% %s/%s %s/%s files %s %s\n",
		pct,
		FormatBytes(snap.BytesDone), FormatBytes(snap.BytesTotal),
		FormatCount(snap.FilesDone()), FormatCount(snap.FilesTotal),
		FormatRate(p.stats.RollingSpeed(10)),
		FormatClock(snap.Elapsed, p.stats.ETA()),
	)
}

func (p *plainPresenter) Summary() string {
	return CompletionSummary(p.stats.Snapshot())
}
