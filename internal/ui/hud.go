package ui

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/bamsammich/checksum/internal/stats"
)

// ANSI escape sequences.
const (
	ansiDim   = "\033[2m"
	ansiReset = "\033[0m"
)

const (
	rateThreshHigh   = 200.0
	rateThreshLow    = 100.0
	sparklineWidth   = 20
	progressBarWidth = 20
	rootBarWidth     = 12
	hudMinInterval   = 50 * time.Millisecond // don't redraw faster than this
)

// hudPresenter provides a rich TTY display with a scrolling feed of finished
// files and a HUD that redraws in place: throughput, overall progress with
// elapsed and remaining time, and one bar per destination root when cloning
// to more than one.
type hudPresenter struct {
	w       io.Writer
	stats   *stats.Collector
	roots   []string
	workers int
	width   int

	// Per-root progress. Every root receives every task, so each root's
	// planned total is the batch total divided by the number of roots.
	rootTotal   int64
	rootSettled map[string]int64 // bytes of units that reached a terminal state
	inflight    map[string]int64 // destination -> bytes written so far
	planned     map[string]int64 // destination -> planned size

	hudDrawn     bool
	hudLineCount int
	rateMode     bool
	rateSwitched bool
	busyWorkers  map[int]bool
	lastHUDDraw  time.Time
}

func newHUDPresenter(cfg Config) *hudPresenter {
	width := cfg.Width
	if width <= 0 {
		width = 80
	}
	return &hudPresenter{
		w:           cfg.ErrWriter, // HUD renders to stderr (the TTY)
		stats:       cfg.Stats,
		roots:       cfg.DstRoots,
		workers:     cfg.Workers,
		width:       width,
		rootSettled: make(map[string]int64),
		inflight:    make(map[string]int64),
		planned:     make(map[string]int64),
		busyWorkers: make(map[int]bool),
	}
}

func (p *hudPresenter) Run(events <-chan Event) error {
	// Fire first tick quickly to seed the ring buffer with initial speed data,
	// then switch to 1s interval.
	secTicker := time.NewTicker(250 * time.Millisecond)
	defer secTicker.Stop()
	firstTickDone := false

	// Redraw ticker for when no events are flowing (e.g., large file copy).
	redrawTicker := time.NewTicker(100 * time.Millisecond)
	defer redrawTicker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				p.clearHUD()
				return nil
			}
			p.handleEvent(ev)
			p.maybeDrawHUD()

		case <-redrawTicker.C:
			p.maybeSwitch()
			p.drawHUD()

		case <-secTicker.C:
			p.stats.Tick()
			if !firstTickDone {
				firstTickDone = true
				secTicker.Reset(1 * time.Second)
			}
		}
	}
}

func (p *hudPresenter) handleEvent(ev Event) {
	switch ev.Type {
	case PlanComplete:
		if n := int64(len(p.roots)); n > 0 {
			p.rootTotal = ev.TotalSize / n
		}

	case FileStarted:
		p.busyWorkers[ev.WorkerID] = true
		p.planned[ev.Dest] = ev.Size

	case FileProgress:
		p.inflight[ev.Dest] = ev.Size

	case FileCompleted, FileIdentical, FileFailed, FileCancelled:
		delete(p.busyWorkers, ev.WorkerID)
		p.settle(ev.Dest)
		if p.rateMode && ev.Type != FileFailed {
			return
		}
		p.clearHUD()
		p.printFeedLine(ev)
		p.drawHUD() // always redraw HUD after feed line
	}
}

func (p *hudPresenter) settle(dest string) {
	if root := rootOf(p.roots, dest); root != "" {
		p.rootSettled[root] += max(p.planned[dest], p.inflight[dest])
	}
	delete(p.planned, dest)
	delete(p.inflight, dest)
}

// rootProgress returns the fraction of root's planned bytes accounted for.
func (p *hudPresenter) rootProgress(root string) float64 {
	if p.rootTotal <= 0 {
		return 0
	}
	done := p.rootSettled[root]
	for dest, n := range p.inflight {
		if rootOf(p.roots, dest) == root {
			done += n
		}
	}
	return clamp01(float64(done) / float64(p.rootTotal))
}

func (p *hudPresenter) printFeedLine(ev Event) {
	path := p.styledPath(ev.Dest)
	switch ev.Type {
	case FileCompleted:
		line := fmt.Sprintf("%s  %s  %s", styleIconDone.Render("✓"), path,
			styleFileSize.Render(fmt.Sprintf("%10s", FormatBytes(ev.Size))))
		if speed := p.stats.RollingSpeed(5); speed > 0 {
			line += "  " + styleFileSpeed.Render(FormatRate(speed))
		}
		fmt.Fprintln(p.w, line)
	case FileIdentical:
		fmt.Fprintf(p.w, "%s  %s  %s\n", styleIconIdentical.Render("="), path,
			styleFileSize.Render("identical"))
	case FileFailed:
		errMsg := "error"
		if ev.Error != nil {
			errMsg = ev.Error.Error()
		}
		fmt.Fprintf(p.w, "%s  %s  %s\n", styleIconFailed.Render("✗"), path, styleError.Render(errMsg))
	case FileCancelled:
		fmt.Fprintf(p.w, "%s  %s  %s\n", styleIconFailed.Render("–"), path, styleStatus.Render("cancelled"))
	}
}

func (p *hudPresenter) maybeSwitch() {
	fps := p.stats.RollingFilesPerSec(2)

	if !p.rateMode && fps > rateThreshHigh {
		p.rateMode = true
		if !p.rateSwitched {
			p.rateSwitched = true
			p.clearHUD()
			fmt.Fprintln(p.w, styleStatus.Render(fmt.Sprintf(
				"↯ rate view (%s files/s, failures still listed)", FormatCount(int64(fps)))))
		}
	} else if p.rateMode && fps < rateThreshLow {
		p.rateMode = false
	}
}

// maybeDrawHUD redraws the HUD if enough time has passed since the last draw.
func (p *hudPresenter) maybeDrawHUD() {
	if time.Since(p.lastHUDDraw) < hudMinInterval {
		return
	}
	p.drawHUD()
}

func (p *hudPresenter) drawHUD() {
	snap := p.stats.Snapshot()
	p.clearHUD()

	var pct float64
	if snap.BytesTotal > 0 {
		pct = float64(snap.BytesDone) / float64(snap.BytesTotal)
	}
	speed := p.stats.RollingSpeed(10)
	spark := styleSparkline.Render(Sparkline(p.stats.SparklineData(sparklineWidth), sparklineWidth))

	lines := 0

	if p.rateMode {
		fmt.Fprintf(p.w, "files/s  %s/s   %s / %s done\n",
			FormatCount(int64(p.stats.RollingFilesPerSec(5))),
			FormatCount(snap.FilesDone()), FormatCount(snap.FilesTotal))
		lines++
	}

	// Line 1: throughput sparkline + speed + byte totals + workers.
	fmt.Fprintf(p.w, "       %s   %s   %s / %s   %s\n",
		spark, FormatRate(speed),
		FormatBytes(snap.BytesDone), FormatBytes(snap.BytesTotal),
		styleWorkerBusy.Render(WorkerIndicator(len(p.busyWorkers), p.workers)))
	lines++

	// Line 2: progress bar + files + clock.
	fmt.Fprintf(p.w, " %3.0f%%  %s   %s / %s files   %s\n",
		pct*100, styledProgressBar(pct, progressBarWidth),
		FormatCount(snap.FilesDone()), FormatCount(snap.FilesTotal),
		styleClock.Render(FormatClock(snap.Elapsed, p.stats.ETA())))
	lines++

	// One line per destination root when fanning out.
	if len(p.roots) > 1 {
		labelWidth := max(p.width-rootBarWidth-10, 10)
		for _, root := range p.roots {
			rp := p.rootProgress(root)
			fmt.Fprintf(p.w, "   %s %3.0f%%  %s\n",
				styledProgressBar(rp, rootBarWidth), rp*100,
				styleRootLabel.Render(truncPath(root, labelWidth)))
			lines++
		}
	}

	p.hudDrawn = true
	p.hudLineCount = lines
	p.lastHUDDraw = time.Now()
}

func (p *hudPresenter) clearHUD() {
	if !p.hudDrawn {
		return
	}
	lines := p.hudLineCount
	if lines == 0 {
		lines = 2 // fallback
	}
	// Move cursor up N lines and clear to end of screen.
	fmt.Fprintf(p.w, "\033[%dA\033[J", lines)
	p.hudDrawn = false
}

func (p *hudPresenter) Summary() string {
	return CompletionSummary(p.stats.Snapshot())
}

// styledPath shows dest relative to its root, with the directory portion
// dimmed so the filename stands out. With several roots the root's base
// name is prefixed so identical relative paths stay distinguishable.
func (p *hudPresenter) styledPath(dest string) string {
	root := rootOf(p.roots, dest)
	path := StripRoot(root, dest)
	if root != "" && len(p.roots) > 1 {
		path = filepath.Join(filepath.Base(root), path)
	}
	path = truncPath(path, max(p.width-30, 20))

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	if dir == "." || dir == "" {
		return base
	}
	return fmt.Sprintf("%s%s/%s%s", ansiDim, dir, ansiReset, base)
}

// truncPath shortens a path to fit within maxLen characters.
func truncPath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}
	if maxLen <= 3 {
		return path[:maxLen]
	}
	return "..." + path[len(path)-maxLen+3:]
}
