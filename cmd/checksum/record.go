package main

import (
	"context"
	"log/slog"

	"github.com/bamsammich/checksum/internal/engine"
	"github.com/bamsammich/checksum/internal/history"
)

// recorder receives every terminal unit from the scheduler and writes it to
// the --log file and the job history. Either sink may be nil.
type recorder struct {
	log   *slog.Logger
	store *history.Store
	jobID string
}

// openJob opens the default history store and creates a queued job.
func openJob(sources, destinations []string) (*history.Store, history.Job, error) {
	store, err := history.Open(history.DefaultPath())
	if err != nil {
		return nil, history.Job{}, err
	}
	job, err := store.CreateJob(sources, destinations)
	if err != nil {
		store.Close()
		return nil, history.Job{}, err
	}
	return store, job, nil
}

func (r *recorder) result(res engine.VerificationResult) {
	if r.log != nil {
		r.log.LogAttrs(context.Background(), slog.LevelInfo, "checksum.verified",
			slog.String("source", res.Source),
			slog.String("destination", res.Destination),
			slog.String("digest", res.Digest),
			slog.String("algorithm", res.Algorithm),
			slog.Int64("bytes", res.Bytes),
			slog.Bool("copied", res.Copied),
		)
	}
	if r.store != nil {
		if err := r.store.RecordResult(r.jobID, res.Source, res.Destination, res.Digest); err != nil {
			slog.Warn("record history", "error", err)
		}
	}
}

func (r *recorder) failure(f engine.Failure) {
	if r.log != nil {
		r.log.LogAttrs(context.Background(), slog.LevelError, "checksum.failed",
			slog.String("source", f.Source),
			slog.String("destination", f.Destination),
			slog.String("error", f.Err.Error()),
		)
	}
	if r.store != nil {
		if err := r.store.RecordFailure(r.jobID, f.Source, f.Destination, f.Err); err != nil {
			slog.Warn("record history", "error", err)
		}
	}
}

// finish moves the job to its terminal status.
func (r *recorder) finish(status history.Status, cause error) {
	if r.store == nil {
		return
	}
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	if err := r.store.FinishJob(r.jobID, status, msg); err != nil {
		slog.Warn("record history", "error", err)
	}
}
