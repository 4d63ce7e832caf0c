package stats

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorConcurrent(t *testing.T) {
	c := NewCollector()
	const goroutines = 100
	const opsPerGoroutine = 1000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for range goroutines {
		go func() {
			defer wg.Done()
			for range opsPerGoroutine {
				c.AddFilesCopied(1)
				c.AddFilesIdentical(1)
				c.AddFilesFailed(1)
				c.AddFilesCancelled(1)
				c.AddBytesCopied(256)
				c.AddBytesSettled(16)
			}
		}()
	}
	wg.Wait()

	s := c.Snapshot()
	expected := int64(goroutines * opsPerGoroutine)
	assert.Equal(t, expected, s.FilesCopied)
	assert.Equal(t, expected, s.FilesIdentical)
	assert.Equal(t, expected, s.FilesFailed)
	assert.Equal(t, expected, s.FilesCancelled)
	assert.Equal(t, expected*256, s.BytesCopied)
	assert.Equal(t, expected*(256+16), s.BytesDone)
	assert.Equal(t, expected*4, s.FilesDone())
	assert.Equal(t, expected*2, s.FilesVerified())
}

func TestSnapshotString(t *testing.T) {
	s := Snapshot{
		FilesTotal:     10,
		FilesCopied:    6,
		FilesIdentical: 2,
		FilesFailed:    1,
		FilesCancelled: 1,
		BytesCopied:    4096,
	}
	expected := "total=10 copied=6 identical=2 failed=1 cancelled=1 bytes=4096"
	assert.Equal(t, expected, s.String())
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		input    int64
		expected string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{1048576, "1.0 MiB"},
		{1073741824, "1.0 GiB"},
	}
	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			require.Equal(t, tt.expected, FormatBytes(tt.input))
		})
	}
}

func TestNewCollector(t *testing.T) {
	c := NewCollector()
	assert.NotNil(t, c.Estimator())
	assert.Less(t, c.Elapsed(), time.Second)
	assert.Equal(t, Snapshot{}, zeroElapsed(c.Snapshot()))
}

func zeroElapsed(s Snapshot) Snapshot {
	s.Elapsed = 0
	return s
}

func TestSetTotals(t *testing.T) {
	c := NewCollector()
	c.SetTotals(42, 1<<20)
	s := c.Snapshot()
	assert.Equal(t, int64(42), s.FilesTotal)
	assert.Equal(t, int64(1<<20), s.BytesTotal)
}

func TestAddBytesSettledIgnoresNonPositive(t *testing.T) {
	c := NewCollector()
	c.AddBytesSettled(-5)
	c.AddBytesSettled(0)
	assert.Equal(t, int64(0), c.BytesDone())
}

func TestTickAndRollingSpeed(t *testing.T) {
	c := NewCollector()

	c.AddBytesCopied(1000)
	c.AddFilesCopied(2)
	c.Tick()
	c.AddBytesCopied(3000)
	c.AddFilesIdentical(2)
	c.Tick()

	assert.InDelta(t, 2000.0, c.RollingSpeed(2), 0.001)
	assert.InDelta(t, 3000.0, c.RollingSpeed(1), 0.001)
	assert.InDelta(t, 2.0, c.RollingFilesPerSec(2), 0.001)
}

func TestRollingSpeedPartialWindow(t *testing.T) {
	c := NewCollector()
	c.AddBytesCopied(500)
	c.Tick()
	// Window larger than samples collected averages over what exists.
	assert.InDelta(t, 500.0, c.RollingSpeed(10), 0.001)
}

func TestRollingSpeedNoTicks(t *testing.T) {
	c := NewCollector()
	assert.Zero(t, c.RollingSpeed(5))
	assert.Nil(t, c.SparklineData(5))
}

func TestSparklineData(t *testing.T) {
	c := NewCollector()
	for i := 1; i <= 5; i++ {
		c.AddBytesCopied(int64(i * 100))
		c.Tick()
	}
	assert.Equal(t, []float64{300, 400, 500}, c.SparklineData(3))
	assert.Equal(t, []float64{100, 200, 300, 400, 500}, c.SparklineData(10))
}

func TestRingWraparound(t *testing.T) {
	c := NewCollector()
	for range ringSize + 10 {
		c.AddBytesCopied(10)
		c.Tick()
	}
	data := c.SparklineData(ringSize)
	require.Len(t, data, ringSize)
	for _, v := range data {
		assert.InDelta(t, 10.0, v, 0.001)
	}
}

func TestObserveProgressFeedsEstimator(t *testing.T) {
	start := time.Now().Add(-2 * time.Second)
	c := NewCollectorAt(start)
	c.SetTotals(1, 1000)
	c.AddBytesCopied(500)
	c.ObserveProgress()

	assert.Greater(t, c.Estimator().Throughput(), 0.0)
	assert.Greater(t, c.ETA(), time.Duration(0))
}

func TestETAZeroBeforeProgress(t *testing.T) {
	c := NewCollector()
	c.SetTotals(1, 1000)
	assert.Zero(t, c.ETA())
}
