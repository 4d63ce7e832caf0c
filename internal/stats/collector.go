package stats

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const ringSize = 60

// Collector tracks clone statistics. Counters are atomic so workers can
// update them without coordination.
type Collector struct {
	filesTotal     atomic.Int64
	bytesTotal     atomic.Int64
	filesCopied    atomic.Int64
	filesIdentical atomic.Int64
	filesFailed    atomic.Int64
	filesCancelled atomic.Int64
	bytesCopied    atomic.Int64
	bytesSettled   atomic.Int64 // planned bytes accounted for without being written
	startTime      time.Time
	est            *Estimator

	// Ring buffer, written only by the presenter's Tick.
	mu          sync.Mutex
	throughput  [ringSize]int64
	filesPerSec [ringSize]int64
	ringIdx     int
	ringCount   int
	lastBytes   int64
	lastFiles   int64
}

// NewCollector creates a Collector whose clock starts now.
func NewCollector() *Collector {
	return NewCollectorAt(time.Now())
}

// NewCollectorAt creates a Collector whose clock starts at start.
func NewCollectorAt(start time.Time) *Collector {
	return &Collector{startTime: start, est: NewEstimator(start)}
}

// SetTotals records the planned unit count and byte total.
func (c *Collector) SetTotals(files, bytes int64) {
	c.filesTotal.Store(files)
	c.bytesTotal.Store(bytes)
}

func (c *Collector) AddFilesCopied(n int64)    { c.filesCopied.Add(n) }
func (c *Collector) AddFilesIdentical(n int64) { c.filesIdentical.Add(n) }
func (c *Collector) AddFilesFailed(n int64)    { c.filesFailed.Add(n) }
func (c *Collector) AddFilesCancelled(n int64) { c.filesCancelled.Add(n) }
func (c *Collector) AddBytesCopied(n int64)    { c.bytesCopied.Add(n) }

// AddBytesSettled accounts for planned bytes that will never be written,
// e.g. an already-identical destination or the unread tail of a failed copy.
func (c *Collector) AddBytesSettled(n int64) {
	if n > 0 {
		c.bytesSettled.Add(n)
	}
}

// BytesDone is the progress numerator against the planned byte total.
func (c *Collector) BytesDone() int64 {
	return c.bytesCopied.Load() + c.bytesSettled.Load()
}

// ObserveProgress feeds the current batch-wide progress into the estimator.
func (c *Collector) ObserveProgress() {
	if c.est == nil {
		return
	}
	c.est.Observe(c.BytesDone(), c.bytesTotal.Load())
}

// Estimator returns the collector's ETA estimator.
func (c *Collector) Estimator() *Estimator {
	return c.est
}

// Snapshot is a point-in-time read of all counters.
type Snapshot struct {
	FilesTotal     int64
	FilesCopied    int64
	FilesIdentical int64
	FilesFailed    int64
	FilesCancelled int64
	BytesTotal     int64
	BytesCopied    int64
	BytesDone      int64
	Elapsed        time.Duration
}

// FilesVerified counts destinations whose digest matched the source.
func (s Snapshot) FilesVerified() int64 { return s.FilesCopied + s.FilesIdentical }

// FilesDone counts units that reached a terminal state.
func (s Snapshot) FilesDone() int64 {
	return s.FilesCopied + s.FilesIdentical + s.FilesFailed + s.FilesCancelled
}

// Snapshot returns a point-in-time read of all counters.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		FilesTotal:     c.filesTotal.Load(),
		FilesCopied:    c.filesCopied.Load(),
		FilesIdentical: c.filesIdentical.Load(),
		FilesFailed:    c.filesFailed.Load(),
		FilesCancelled: c.filesCancelled.Load(),
		BytesTotal:     c.bytesTotal.Load(),
		BytesCopied:    c.bytesCopied.Load(),
		BytesDone:      c.BytesDone(),
		Elapsed:        c.Elapsed(),
	}
}

// Tick snapshots byte/file deltas into the ring buffer. Called 1/sec by the presenter.
func (c *Collector) Tick() {
	currentBytes := c.bytesCopied.Load()
	currentFiles := c.filesCopied.Load() + c.filesIdentical.Load()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.throughput[c.ringIdx] = currentBytes - c.lastBytes
	c.filesPerSec[c.ringIdx] = currentFiles - c.lastFiles
	c.lastBytes = currentBytes
	c.lastFiles = currentFiles

	c.ringIdx = (c.ringIdx + 1) % ringSize
	if c.ringCount < ringSize {
		c.ringCount++
	}
}

// RollingSpeed returns average bytes/sec over the last n ticks.
func (c *Collector) RollingSpeed(seconds int) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rollingAvg(c.throughput[:], seconds)
}

// RollingFilesPerSec returns average verified files/sec over the last n ticks.
func (c *Collector) RollingFilesPerSec(seconds int) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rollingAvg(c.filesPerSec[:], seconds)
}

func (c *Collector) rollingAvg(buf []int64, n int) float64 {
	count := min(n, c.ringCount)
	if count <= 0 {
		return 0
	}
	var sum int64
	for i := range count {
		idx := (c.ringIdx - 1 - i + ringSize) % ringSize
		sum += buf[idx]
	}
	return float64(sum) / float64(count)
}

// SparklineData returns the last n bytes/sec samples, oldest first.
func (c *Collector) SparklineData(n int) []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := min(n, c.ringCount)
	if count <= 0 {
		return nil
	}
	data := make([]float64, count)
	for i := range count {
		idx := (c.ringIdx - count + i + ringSize) % ringSize
		data[i] = float64(c.throughput[idx])
	}
	return data
}

// ETA is the estimator's smoothed remaining time, 0 when unknown.
func (c *Collector) ETA() time.Duration {
	if c.est == nil {
		return 0
	}
	return c.est.Remaining()
}

// Elapsed returns time since the collector's start.
func (c *Collector) Elapsed() time.Duration {
	return time.Since(c.startTime)
}

func (s Snapshot) String() string {
	return fmt.Sprintf(
		"total=%d copied=%d identical=%d failed=%d cancelled=%d bytes=%d",
		s.FilesTotal, s.FilesCopied, s.FilesIdentical, s.FilesFailed,
		s.FilesCancelled, s.BytesCopied,
	)
}

// FormatBytes returns a human-readable byte count.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
