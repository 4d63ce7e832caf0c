// Package history persists clone jobs and their per-file outcomes in SQLite.
package history

import (
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
	_ "modernc.org/sqlite"
)

// Status is a job's lifecycle state: queued, running, then one terminal state.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Outcome kinds of a file record.
const (
	KindOK    = "file_ok"
	KindError = "file_error"
)

var (
	ErrJobNotFound  = errors.New("job not found")
	ErrAmbiguousJob = errors.New("ambiguous job id")
)

// Job is one recorded clone invocation.
type Job struct {
	ID           string
	Fingerprint  string // stable across re-runs of the same sources and destinations
	Sources      []string
	Destinations []string
	Status       Status
	Error        string
	CreatedAt    time.Time
	StartedAt    time.Time
	FinishedAt   time.Time
	FilesOK      int64
	FilesFailed  int64
}

// FileRecord is one unit's outcome within a job.
type FileRecord struct {
	JobID       string
	Kind        string
	Source      string
	Destination string
	Digest      string
	Error       string
	At          time.Time
}

// Store is a SQLite-backed job log. File records are buffered and written
// in batches; Flush or Close persists anything pending.
type Store struct {
	db   *sql.DB
	path string

	mu      sync.Mutex
	batch   []FileRecord
	done    chan struct{}
	stopped bool
}

// DefaultPath returns $XDG_DATA_HOME/checksum/history.db, falling back to
// ~/.local/share.
func DefaultPath() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "checksum-history.db")
		}
		dir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dir, "checksum", "history.db")
}

// Open opens (or creates) the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	s := &Store{db: db, path: path, done: make(chan struct{})}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}

	go s.flushLoop()
	return s, nil
}

func (s *Store) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS jobs (
			id           TEXT PRIMARY KEY,
			fingerprint  TEXT NOT NULL,
			sources      TEXT NOT NULL,
			destinations TEXT NOT NULL,
			status       TEXT NOT NULL,
			error        TEXT NOT NULL DEFAULT '',
			created_at   INTEGER NOT NULL,
			started_at   INTEGER NOT NULL DEFAULT 0,
			finished_at  INTEGER NOT NULL DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS files (
			job_id      TEXT NOT NULL REFERENCES jobs(id),
			kind        TEXT NOT NULL,
			source      TEXT NOT NULL,
			destination TEXT NOT NULL,
			digest      TEXT NOT NULL DEFAULT '',
			error       TEXT NOT NULL DEFAULT '',
			at          INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS files_job ON files(job_id);
	`)
	if err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

// CreateJob records a new queued job.
func (s *Store) CreateJob(sources, destinations []string) (Job, error) {
	job := Job{
		ID:           uuid.NewString(),
		Fingerprint:  Fingerprint(sources, destinations),
		Sources:      sources,
		Destinations: destinations,
		Status:       StatusQueued,
		CreatedAt:    time.Now(),
	}

	srcJSON, err := json.Marshal(sources)
	if err != nil {
		return Job{}, fmt.Errorf("encode sources: %w", err)
	}
	dstJSON, err := json.Marshal(destinations)
	if err != nil {
		return Job{}, fmt.Errorf("encode destinations: %w", err)
	}

	_, err = s.db.Exec(
		"INSERT INTO jobs (id, fingerprint, sources, destinations, status, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		job.ID, job.Fingerprint, string(srcJSON), string(dstJSON), string(job.Status), job.CreatedAt.UnixNano(),
	)
	if err != nil {
		return Job{}, fmt.Errorf("insert job: %w", err)
	}
	return job, nil
}

// StartJob moves a job to running.
func (s *Store) StartJob(id string) error {
	res, err := s.db.Exec(
		"UPDATE jobs SET status = ?, started_at = ? WHERE id = ?",
		string(StatusRunning), time.Now().UnixNano(), id,
	)
	if err != nil {
		return fmt.Errorf("start job %s: %w", id, err)
	}
	return requireRow(res, id)
}

// FinishJob flushes pending file records and moves the job to a terminal status.
func (s *Store) FinishJob(id string, status Status, errMsg string) error {
	if err := s.Flush(); err != nil {
		return err
	}
	res, err := s.db.Exec(
		"UPDATE jobs SET status = ?, error = ?, finished_at = ? WHERE id = ?",
		string(status), errMsg, time.Now().UnixNano(), id,
	)
	if err != nil {
		return fmt.Errorf("finish job %s: %w", id, err)
	}
	return requireRow(res, id)
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return nil
}

// RecordResult buffers a verified file for jobID.
func (s *Store) RecordResult(jobID, source, destination, digest string) error {
	return s.add(FileRecord{
		JobID:       jobID,
		Kind:        KindOK,
		Source:      source,
		Destination: destination,
		Digest:      digest,
		At:          time.Now(),
	})
}

// RecordFailure buffers a failed file for jobID.
func (s *Store) RecordFailure(jobID, source, destination string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return s.add(FileRecord{
		JobID:       jobID,
		Kind:        KindError,
		Source:      source,
		Destination: destination,
		Error:       msg,
		At:          time.Now(),
	})
}

func (s *Store) add(rec FileRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.batch = append(s.batch, rec)
	if len(s.batch) >= 100 {
		return s.flushLocked()
	}
	return nil
}

// Flush writes any pending file records to the database.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

func (s *Store) flushLocked() error {
	if len(s.batch) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	stmt, err := tx.Prepare(
		"INSERT INTO files (job_id, kind, source, destination, digest, error, at) VALUES (?, ?, ?, ?, ?, ?, ?)",
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range s.batch {
		if _, err := stmt.Exec(r.JobID, r.Kind, r.Source, r.Destination, r.Digest, r.Error, r.At.UnixNano()); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert %s: %w", r.Destination, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.batch = s.batch[:0]
	return nil
}

func (s *Store) flushLoop() {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			_ = s.flushLocked()
			s.mu.Unlock()
		}
	}
}

const jobColumns = `j.id, j.fingerprint, j.sources, j.destinations, j.status, j.error,
	j.created_at, j.started_at, j.finished_at,
	(SELECT COUNT(*) FROM files f WHERE f.job_id = j.id AND f.kind = 'file_ok'),
	(SELECT COUNT(*) FROM files f WHERE f.job_id = j.id AND f.kind = 'file_error')`

// ListJobs returns up to limit jobs, newest first. limit <= 0 means all.
func (s *Store) ListJobs(limit int) ([]Job, error) {
	if err := s.Flush(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(
		"SELECT "+jobColumns+" FROM jobs j ORDER BY j.created_at DESC, j.rowid DESC LIMIT ?", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

// Job looks up a job by its full ID or a unique ID prefix.
func (s *Store) Job(idOrPrefix string) (Job, error) {
	if err := s.Flush(); err != nil {
		return Job{}, err
	}
	if idOrPrefix == "" {
		return Job{}, fmt.Errorf("%w: empty id", ErrJobNotFound)
	}
	rows, err := s.db.Query(
		"SELECT "+jobColumns+` FROM jobs j WHERE j.id = ? OR j.id LIKE ? ESCAPE '\' LIMIT 2`,
		idOrPrefix, likeEscaper.Replace(idOrPrefix)+"%",
	)
	if err != nil {
		return Job{}, fmt.Errorf("get job %s: %w", idOrPrefix, err)
	}
	defer rows.Close()

	var found []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return Job{}, err
		}
		if job.ID == idOrPrefix {
			return job, nil
		}
		found = append(found, job)
	}
	if err := rows.Err(); err != nil {
		return Job{}, fmt.Errorf("get job %s: %w", idOrPrefix, err)
	}

	switch len(found) {
	case 0:
		return Job{}, fmt.Errorf("%w: %s", ErrJobNotFound, idOrPrefix)
	case 1:
		return found[0], nil
	default:
		return Job{}, fmt.Errorf("%w: %s", ErrAmbiguousJob, idOrPrefix)
	}
}

// likeEscaper makes LIKE wildcards in a user-supplied prefix match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (Job, error) {
	var (
		job                        Job
		srcJSON, dstJSON, status   string
		created, started, finished int64
	)
	err := row.Scan(&job.ID, &job.Fingerprint, &srcJSON, &dstJSON, &status, &job.Error,
		&created, &started, &finished, &job.FilesOK, &job.FilesFailed)
	if err != nil {
		return Job{}, fmt.Errorf("scan job: %w", err)
	}
	if err := json.Unmarshal([]byte(srcJSON), &job.Sources); err != nil {
		return Job{}, fmt.Errorf("decode sources of %s: %w", job.ID, err)
	}
	if err := json.Unmarshal([]byte(dstJSON), &job.Destinations); err != nil {
		return Job{}, fmt.Errorf("decode destinations of %s: %w", job.ID, err)
	}
	job.Status = Status(status)
	job.CreatedAt = fromNanos(created)
	job.StartedAt = fromNanos(started)
	job.FinishedAt = fromNanos(finished)
	return job, nil
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// JobFiles returns the file records of a job in the order they were recorded.
func (s *Store) JobFiles(jobID string) ([]FileRecord, error) {
	if err := s.Flush(); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(
		"SELECT job_id, kind, source, destination, digest, error, at FROM files WHERE job_id = ? ORDER BY rowid",
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("job files %s: %w", jobID, err)
	}
	defer rows.Close()

	var recs []FileRecord
	for rows.Next() {
		var r FileRecord
		var at int64
		if err := rows.Scan(&r.JobID, &r.Kind, &r.Source, &r.Destination, &r.Digest, &r.Error, &at); err != nil {
			return nil, fmt.Errorf("scan file record: %w", err)
		}
		r.At = fromNanos(at)
		recs = append(recs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("job files %s: %w", jobID, err)
	}
	return recs, nil
}

// Close flushes any pending writes and closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		close(s.done)
	}
	_ = s.flushLocked()
	s.mu.Unlock()
	return s.db.Close()
}

// Path returns the path to the history database file.
func (s *Store) Path() string {
	return s.path
}

// Fingerprint computes a deterministic identifier for a set of sources and
// destinations, so re-runs of the same clone can be grouped.
func Fingerprint(sources, destinations []string) string {
	h := blake3.New()
	for _, src := range sources {
		h.Write([]byte(src))
		h.Write([]byte{0})
	}
	h.Write([]byte{1})
	for _, dst := range destinations {
		h.Write([]byte(dst))
		h.Write([]byte{0})
	}
	digest := h.Sum(nil)
	return hex.EncodeToString(digest[:8])
}
