package history

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenCreatesFile(t *testing.T) {
	s := openTestStore(t)
	assert.FileExists(t, s.Path())
}

func TestJobLifecycle(t *testing.T) {
	s := openTestStore(t)

	job, err := s.CreateJob([]string{"/src/a", "/src/b"}, []string{"/dst"})
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, job.Status)
	assert.Len(t, job.ID, 36)

	require.NoError(t, s.StartJob(job.ID))
	require.NoError(t, s.RecordResult(job.ID, "/src/a", "/dst/a", "abc"))
	require.NoError(t, s.RecordFailure(job.ID, "/src/b", "/dst/b", errors.New("source not found")))
	require.NoError(t, s.FinishJob(job.ID, StatusFailed, "1 of 2 failed"))

	got, err := s.Job(job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "1 of 2 failed", got.Error)
	assert.Equal(t, []string{"/src/a", "/src/b"}, got.Sources)
	assert.Equal(t, []string{"/dst"}, got.Destinations)
	assert.Equal(t, int64(1), got.FilesOK)
	assert.Equal(t, int64(1), got.FilesFailed)
	assert.False(t, got.StartedAt.IsZero())
	assert.False(t, got.FinishedAt.IsZero())
	assert.Equal(t, job.Fingerprint, got.Fingerprint)

	files, err := s.JobFiles(job.ID)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, KindOK, files[0].Kind)
	assert.Equal(t, "abc", files[0].Digest)
	assert.Equal(t, KindError, files[1].Kind)
	assert.Equal(t, "source not found", files[1].Error)
	assert.Equal(t, "/dst/b", files[1].Destination)
}

func TestRecordsVisibleBeforeFinish(t *testing.T) {
	s := openTestStore(t)
	job, err := s.CreateJob([]string{"/s"}, []string{"/d"})
	require.NoError(t, err)

	require.NoError(t, s.RecordResult(job.ID, "/s", "/d/s", "ff"))
	files, err := s.JobFiles(job.ID)
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestBatchFlushAtThreshold(t *testing.T) {
	s := openTestStore(t)
	job, err := s.CreateJob([]string{"/s"}, []string{"/d"})
	require.NoError(t, err)

	for range 250 {
		require.NoError(t, s.RecordResult(job.ID, "/s", "/d", "00"))
	}
	files, err := s.JobFiles(job.ID)
	require.NoError(t, err)
	assert.Len(t, files, 250)
}

func TestListJobsNewestFirst(t *testing.T) {
	s := openTestStore(t)
	first, err := s.CreateJob([]string{"/a"}, []string{"/x"})
	require.NoError(t, err)
	second, err := s.CreateJob([]string{"/b"}, []string{"/y"})
	require.NoError(t, err)

	jobs, err := s.ListJobs(0)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, second.ID, jobs[0].ID)
	assert.Equal(t, first.ID, jobs[1].ID)

	jobs, err = s.ListJobs(1)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}

func TestJobByPrefix(t *testing.T) {
	s := openTestStore(t)
	job, err := s.CreateJob([]string{"/a"}, []string{"/x"})
	require.NoError(t, err)

	got, err := s.Job(job.ID[:8])
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
}

func TestJobPrefixWildcardsAreLiteral(t *testing.T) {
	s := openTestStore(t)
	_, err := s.CreateJob([]string{"/a"}, []string{"/x"})
	require.NoError(t, err)

	for _, id := range []string{"%", "_", "________", `\`, ""} {
		_, err := s.Job(id)
		require.ErrorIs(t, err, ErrJobNotFound, "id %q", id)
	}
}

func TestJobNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Job("does-not-exist")
	require.ErrorIs(t, err, ErrJobNotFound)

	require.ErrorIs(t, s.StartJob("does-not-exist"), ErrJobNotFound)
}

func TestReopenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "h.db")
	s, err := Open(path)
	require.NoError(t, err)
	job, err := s.CreateJob([]string{"/a"}, []string{"/x"})
	require.NoError(t, err)
	require.NoError(t, s.RecordResult(job.ID, "/a", "/x/a", "d1"))
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	files, err := s2.JobFiles(job.ID)
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint([]string{"/src"}, []string{"/dst"})
	assert.Len(t, a, 16)
	assert.Equal(t, a, Fingerprint([]string{"/src"}, []string{"/dst"}))
	assert.NotEqual(t, a, Fingerprint([]string{"/dst"}, []string{"/src"}))
	assert.NotEqual(t, a, Fingerprint([]string{"/src", "/dst"}, nil))
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")
	assert.Equal(t, filepath.Join("/data", "checksum", "history.db"), DefaultPath())
}
