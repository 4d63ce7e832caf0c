package ui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/checksum/internal/stats"
)

func newTestHUD(out *bytes.Buffer, roots ...string) *hudPresenter {
	collector := stats.NewCollector()
	collector.SetTotals(10, 10240)
	return newHUDPresenter(Config{
		ErrWriter: out,
		Stats:     collector,
		DstRoots:  roots,
		Workers:   4,
		Width:     80,
	})
}

func TestHudPresenterFileCompleted(t *testing.T) {
	var out bytes.Buffer
	p := newTestHUD(&out, "/dst")

	events := make(chan Event, 10)
	events <- Event{Type: PlanComplete, Total: 10, TotalSize: 10240}
	events <- Event{Type: FileCompleted, Path: "/src/test/file.txt", Dest: "/dst/test/file.txt", Size: 1024}
	close(events)

	require.NoError(t, p.Run(events))
	assert.Contains(t, out.String(), "file.txt")
	assert.Contains(t, out.String(), "✓")
	// Destination root is stripped from the feed line.
	assert.NotContains(t, out.String(), "/dst/test")
}

func TestHudPresenterIdenticalAndFailed(t *testing.T) {
	var out bytes.Buffer
	p := newTestHUD(&out, "/dst")

	events := make(chan Event, 10)
	events <- Event{Type: FileIdentical, Dest: "/dst/same.txt"}
	events <- Event{Type: FileFailed, Dest: "/dst/bad.txt", Error: assert.AnError}
	events <- Event{Type: FileCancelled, Dest: "/dst/later.txt"}
	close(events)

	require.NoError(t, p.Run(events))
	output := out.String()
	assert.Contains(t, output, "same.txt")
	assert.Contains(t, output, "identical")
	assert.Contains(t, output, "✗")
	assert.Contains(t, output, assert.AnError.Error())
	assert.Contains(t, output, "cancelled")
}

func TestHudPresenterSummary(t *testing.T) {
	collector := stats.NewCollector()
	collector.AddFilesCopied(500)
	collector.AddFilesIdentical(20)
	collector.AddBytesCopied(1024 * 1024 * 100)

	p := &hudPresenter{stats: collector, workers: 4}
	s := p.Summary()
	assert.Contains(t, s, "done ✓")
	assert.Contains(t, s, "files 500")
	assert.Contains(t, s, "identical 20")
	assert.Contains(t, s, "errors 0")
}

func TestTruncPath(t *testing.T) {
	assert.Equal(t, "short.txt", truncPath("short.txt", 20))
	assert.Equal(t, "...ry/long/path.txt", truncPath("a/very/long/directory/long/path.txt", 19))
	assert.Equal(t, "ab", truncPath("abcdef", 2))
}

func TestStyledPath(t *testing.T) {
	p := newHUDPresenter(Config{DstRoots: []string{"/home/user/backup"}, Width: 80})

	styled := p.styledPath("/home/user/backup/photos/img.jpg")
	assert.NotContains(t, styled, "/home/user/backup")
	assert.Equal(t, ansiDim+"photos/"+ansiReset+"img.jpg", styled)

	// File directly in root.
	assert.Equal(t, "file.txt", p.styledPath("/home/user/backup/file.txt"))
}

func TestStyledPathMultipleRoots(t *testing.T) {
	p := newHUDPresenter(Config{DstRoots: []string{"/mnt/a", "/mnt/b"}, Width: 80})

	assert.Equal(t, ansiDim+"b/sub/"+ansiReset+"f.txt", p.styledPath("/mnt/b/sub/f.txt"))
	assert.Equal(t, ansiDim+"a/"+ansiReset+"f.txt", p.styledPath("/mnt/a/f.txt"))
}

func TestHudClearHUDSequence(t *testing.T) {
	var out bytes.Buffer
	p := newTestHUD(&out, "/dst")

	p.drawHUD()
	assert.True(t, p.hudDrawn)
	assert.Equal(t, 2, p.hudLineCount) // single root: no per-root lines

	out.Reset()
	p.clearHUD()
	assert.Contains(t, out.String(), "\033[2A")
	assert.False(t, p.hudDrawn)
}

func TestHudClearHUDRateMode(t *testing.T) {
	var out bytes.Buffer
	p := newTestHUD(&out, "/dst")
	p.rateMode = true

	p.drawHUD()
	assert.Equal(t, 3, p.hudLineCount)

	out.Reset()
	p.clearHUD()
	assert.Contains(t, out.String(), "\033[3A")
}

func TestHudPerRootLines(t *testing.T) {
	var out bytes.Buffer
	p := newTestHUD(&out, "/mnt/a", "/mnt/b")

	p.handleEvent(Event{Type: PlanComplete, Total: 4, TotalSize: 400})
	assert.Equal(t, int64(200), p.rootTotal)

	p.drawHUD()
	assert.Equal(t, 4, p.hudLineCount)
	assert.Contains(t, out.String(), "/mnt/a")
	assert.Contains(t, out.String(), "/mnt/b")
	assert.Contains(t, out.String(), "Elapsed: ")
	assert.Contains(t, out.String(), "Remaining: ")
}

func TestHudRootProgress(t *testing.T) {
	var out bytes.Buffer
	p := newTestHUD(&out, "/mnt/a", "/mnt/b")
	p.handleEvent(Event{Type: PlanComplete, Total: 4, TotalSize: 400})

	p.handleEvent(Event{Type: FileStarted, Dest: "/mnt/a/x", Size: 100, WorkerID: 1})
	p.handleEvent(Event{Type: FileProgress, Dest: "/mnt/a/x", Size: 50, WorkerID: 1})
	assert.InDelta(t, 0.25, p.rootProgress("/mnt/a"), 1e-9)
	assert.Zero(t, p.rootProgress("/mnt/b"))
	assert.True(t, p.busyWorkers[1])

	p.handleEvent(Event{Type: FileCompleted, Dest: "/mnt/a/x", Size: 100, WorkerID: 1})
	assert.InDelta(t, 0.5, p.rootProgress("/mnt/a"), 1e-9)
	assert.False(t, p.busyWorkers[1])

	// A failed unit still settles its planned bytes.
	p.handleEvent(Event{Type: FileStarted, Dest: "/mnt/b/y", Size: 100, WorkerID: 2})
	p.handleEvent(Event{Type: FileFailed, Dest: "/mnt/b/y", WorkerID: 2})
	assert.InDelta(t, 0.5, p.rootProgress("/mnt/b"), 1e-9)
}

func TestHudAlwaysRedrawsAfterFeedLine(t *testing.T) {
	var out bytes.Buffer
	p := newTestHUD(&out, "/dst")

	events := make(chan Event, 10)
	events <- Event{Type: PlanComplete, Total: 10, TotalSize: 10240}
	events <- Event{Type: FileCompleted, Dest: "/dst/a.txt", Size: 100}
	events <- Event{Type: FileCompleted, Dest: "/dst/b.txt", Size: 200, WorkerID: 1}
	close(events)

	require.NoError(t, p.Run(events))
	output := out.String()
	assert.Contains(t, output, "a.txt")
	assert.Contains(t, output, "b.txt")
	assert.Contains(t, output, "□") // progress bar drawn
}

func TestNewPresenterSelection(t *testing.T) {
	c := stats.NewCollector()
	assert.IsType(t, &jsonPresenter{}, NewPresenter(Config{JSON: true, Quiet: true, Stats: c}))
	assert.IsType(t, &quietPresenter{}, NewPresenter(Config{Quiet: true, Stats: c}))
	assert.IsType(t, &plainPresenter{}, NewPresenter(Config{IsTTY: false, Stats: c}))
	assert.IsType(t, &plainPresenter{}, NewPresenter(Config{IsTTY: true, NoProgress: true, Stats: c}))
	assert.IsType(t, &hudPresenter{}, NewPresenter(Config{IsTTY: true, Stats: c}))
}

func TestCompletionSummaryFailures(t *testing.T) {
	s := CompletionSummary(stats.Snapshot{FilesCopied: 2, FilesFailed: 1, FilesCancelled: 3})
	assert.Contains(t, s, "done ✗")
	assert.Contains(t, s, "cancelled 3")
	assert.Contains(t, s, "errors 1")
	assert.NotContains(t, s, "identical")
}
