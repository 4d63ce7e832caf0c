package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bamsammich/checksum/internal/event"
	"github.com/bamsammich/checksum/internal/stats"
)

// DefaultConcurrency leaves one CPU for the presenter.
func DefaultConcurrency() int {
	return max(runtime.NumCPU()-1, 1)
}

// CancelFlag is a one-way cancellation signal shared by every worker.
type CancelFlag struct {
	set atomic.Bool
}

// Cancel sets the flag. It cannot be cleared.
func (c *CancelFlag) Cancel() { c.set.Store(true) }

// IsSet reports whether Cancel has been called.
func (c *CancelFlag) IsSet() bool { return c.set.Load() }

// SchedulerConfig controls a Run.
type SchedulerConfig struct {
	MaxConcurrency int                // <= 0 means DefaultConcurrency
	Options        CopyOptions
	Verifier       *Verifier          // nil means NewVerifier()
	Events         chan<- event.Event // optional; must be drained while Run executes
	Stats          *stats.Collector   // nil means a fresh collector
	Cancel         *CancelFlag        // nil means a private flag

	// Sinks invoked from worker goroutines; they must be safe for concurrent use.
	OnResult  func(VerificationResult)
	OnFailure func(Failure)
}

// Failure is one unit that did not verify.
type Failure struct {
	Source      string
	Destination string
	Err         error
}

func (f Failure) Error() string {
	return f.Err.Error()
}

func (f Failure) Unwrap() error {
	return f.Err
}

// Summary is the outcome of a Run.
type Summary struct {
	Results  []VerificationResult // completion order
	Failures []Failure            // completion order
	Partials []string             // destinations left by failed or cancelled units
	Stats    stats.Snapshot
	Elapsed  time.Duration
}

// OK reports whether every unit verified.
func (s Summary) OK() bool {
	return len(s.Failures) == 0
}

// Cancelled reports whether any unit was cancelled.
func (s Summary) Cancelled() bool {
	for _, f := range s.Failures {
		if errors.Is(f.Err, ErrCancelled) {
			return true
		}
	}
	return false
}

// Err returns the first failure, annotated with the number of others, or nil.
func (s Summary) Err() error {
	if len(s.Failures) == 0 {
		return nil
	}
	err := s.Failures[0].Err
	if len(s.Failures) > 1 {
		err = fmt.Errorf("%w (and %d more errors)", err, len(s.Failures)-1)
	}
	return err
}

// Run copies and verifies every unit with a fixed pool of workers and blocks
// until all units reach a terminal state. One unit's failure never stops
// its siblings; cancellation (ctx or cfg.Cancel) fails the remaining units
// with ErrCancelled without touching disk.
func Run(ctx context.Context, cfg SchedulerConfig, units []Unit) Summary {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = DefaultConcurrency()
	}
	if cfg.Verifier == nil {
		cfg.Verifier = NewVerifier()
	}
	if cfg.Stats == nil {
		cfg.Stats = stats.NewCollector()
	}
	if cfg.Cancel == nil {
		cfg.Cancel = &CancelFlag{}
	}

	start := time.Now()
	totalBytes := TotalBytes(units)
	cfg.Stats.SetTotals(int64(len(units)), totalBytes)
	sendEvent(cfg.Events, event.Event{
		Type:      event.PlanComplete,
		Timestamp: start,
		Total:     int64(len(units)),
		TotalSize: totalBytes,
	})

	stop := context.AfterFunc(ctx, cfg.Cancel.Cancel)
	defer stop()

	queue := make(chan Unit, len(units))
	for _, u := range units {
		queue <- u
	}
	close(queue)

	s := &scheduler{cfg: cfg}
	var g errgroup.Group
	for id := range min(cfg.MaxConcurrency, max(len(units), 1)) {
		g.Go(func() error {
			for u := range queue {
				s.process(ctx, id, u)
			}
			return nil
		})
	}
	_ = g.Wait()

	return Summary{
		Results:  s.results,
		Failures: s.failures,
		Partials: cfg.Verifier.Partials(),
		Stats:    cfg.Stats.Snapshot(),
		Elapsed:  time.Since(start),
	}
}

type scheduler struct {
	cfg      SchedulerConfig
	mu       sync.Mutex
	results  []VerificationResult
	failures []Failure
}

func (s *scheduler) process(ctx context.Context, workerID int, u Unit) {
	collector := s.cfg.Stats

	if s.cfg.Cancel.IsSet() {
		s.fail(workerID, u, 0, fmt.Errorf("%w: %s", ErrCancelled, u.Source))
		return
	}

	sendEvent(s.cfg.Events, event.Event{
		Type:      event.FileStarted,
		Timestamp: time.Now(),
		Path:      u.Source,
		Dest:      u.Destination,
		Size:      u.Size,
		WorkerID:  workerID,
	})

	var streamed int64
	hooks := Hooks{
		IsCancelled: s.cfg.Cancel.IsSet,
		OnProgress: func(done, total int64) {
			collector.AddBytesCopied(done - streamed)
			streamed = done
			collector.ObserveProgress()
			emitEvent(s.cfg.Events, event.Event{
				Type:      event.FileProgress,
				Timestamp: time.Now(),
				Path:      u.Source,
				Dest:      u.Destination,
				Size:      done,
				Total:     total,
				WorkerID:  workerID,
			})
		},
	}

	res, err := s.cfg.Verifier.CopyAndVerify(ctx, u.Source, u.Destination, s.cfg.Options, hooks)
	if err != nil {
		s.fail(workerID, u, streamed, err)
		return
	}

	typ := event.FileCompleted
	if res.Copied {
		collector.AddFilesCopied(1)
	} else {
		typ = event.FileIdentical
		collector.AddFilesIdentical(1)
	}
	collector.AddBytesSettled(u.Size - streamed)
	collector.ObserveProgress()

	s.mu.Lock()
	s.results = append(s.results, res)
	s.mu.Unlock()
	if s.cfg.OnResult != nil {
		s.cfg.OnResult(res)
	}

	slog.Debug("verified", "source", res.Source, "destination", res.Destination,
		"digest", res.Digest, "copied", res.Copied, "worker", workerID)
	sendEvent(s.cfg.Events, event.Event{
		Type:      typ,
		Timestamp: time.Now(),
		Path:      u.Source,
		Dest:      u.Destination,
		Size:      res.Bytes,
		Digest:    res.Digest,
		WorkerID:  workerID,
	})
}

func (s *scheduler) fail(workerID int, u Unit, streamed int64, err error) {
	collector := s.cfg.Stats
	typ := event.FileFailed
	if errors.Is(err, ErrCancelled) {
		typ = event.FileCancelled
		collector.AddFilesCancelled(1)
	} else {
		collector.AddFilesFailed(1)
	}
	collector.AddBytesSettled(u.Size - streamed)
	collector.ObserveProgress()

	f := Failure{Source: u.Source, Destination: u.Destination, Err: err}
	s.mu.Lock()
	s.failures = append(s.failures, f)
	s.mu.Unlock()
	if s.cfg.OnFailure != nil {
		s.cfg.OnFailure(f)
	}

	slog.Debug("unit failed", "source", u.Source, "destination", u.Destination,
		"error", err, "worker", workerID)
	sendEvent(s.cfg.Events, event.Event{
		Type:      typ,
		Timestamp: time.Now(),
		Path:      u.Source,
		Dest:      u.Destination,
		Error:     err,
		WorkerID:  workerID,
	})
}

// emitEvent sends a progress event without blocking; a slow consumer
// drops progress rather than stalling the copy loop.
func emitEvent(ch chan<- event.Event, ev event.Event) {
	if ch == nil {
		return
	}
	select {
	case ch <- ev:
	default:
	}
}

// sendEvent delivers a lifecycle event (plan, start, terminal). These are
// never dropped, so the consumer must drain the channel while Run executes.
func sendEvent(ch chan<- event.Event, ev event.Event) {
	if ch == nil {
		return
	}
	ch <- ev
}
