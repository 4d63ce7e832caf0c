package engine

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// NewBWLimiter creates a rate.Limiter that caps aggregate write throughput
// to bytesPerSec across every worker sharing it. The burst is 1 MiB so
// ordinary chunk writes pass without needless blocking.
func NewBWLimiter(bytesPerSec int64) *rate.Limiter {
	burst := 1 << 20 // 1 MiB
	if bytesPerSec < int64(burst) {
		burst = int(bytesPerSec)
	}
	return rate.NewLimiter(rate.Limit(bytesPerSec), burst)
}

// rateLimitedWriter wraps an io.Writer and enforces a shared rate limit.
// cancelled, when non-nil, is polled between waits so a cancel flag set
// outside ctx still ends a throttled write within one burst.
type rateLimitedWriter struct {
	w         io.Writer
	limiter   *rate.Limiter
	ctx       context.Context
	cancelled func() bool
}

func newRateLimitedWriter(
	ctx context.Context,
	w io.Writer,
	limiter *rate.Limiter,
	cancelled func() bool,
) *rateLimitedWriter {
	return &rateLimitedWriter{w: w, limiter: limiter, ctx: ctx, cancelled: cancelled}
}

// Write waits for tokens in burst-sized pieces; WaitN rejects any request
// larger than the limiter's burst.
func (rw *rateLimitedWriter) Write(p []byte) (int, error) {
	burst := rw.limiter.Burst()
	for remaining := len(p); remaining > 0; {
		if rw.cancelled != nil && rw.cancelled() {
			return 0, ErrCancelled
		}
		n := min(remaining, burst)
		if err := rw.limiter.WaitN(rw.ctx, n); err != nil {
			return 0, err
		}
		remaining -= n
	}
	return rw.w.Write(p)
}
