package engine

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// writeFile creates dir/rel with data, making parent directories.
func writeFile(t *testing.T, dir, rel string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

// createTestTree populates root with:
//
//	a.txt
//	sub/b.txt
//	sub/deep/c.txt
//	.hidden
//	.git/config
func createTestTree(t *testing.T, root string) {
	t.Helper()
	writeFile(t, root, "a.txt", []byte("alpha"))
	writeFile(t, root, filepath.Join("sub", "b.txt"), []byte("bravo bravo"))
	writeFile(t, root, filepath.Join("sub", "deep", "c.txt"), []byte("charlie charlie charlie"))
	writeFile(t, root, ".hidden", []byte("hidden"))
	writeFile(t, root, filepath.Join(".git", "config"), []byte("[core]"))
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

// spyWriter counts bytes passed to Write across every wrapped writer.
type spyWriter struct {
	w       io.Writer
	counter *atomic.Int64
}

func (s *spyWriter) Write(p []byte) (int, error) {
	s.counter.Add(int64(len(p)))
	return s.w.Write(p)
}

func spyWrapper(counter *atomic.Int64) func(io.Writer) io.Writer {
	return func(w io.Writer) io.Writer {
		return &spyWriter{w: w, counter: counter}
	}
}

// corruptingWriter flips the first byte of every write before passing it on.
type corruptingWriter struct {
	w io.Writer
}

func (c *corruptingWriter) Write(p []byte) (int, error) {
	if len(p) > 0 {
		p[0] ^= 0xff
	}
	return c.w.Write(p)
}

// shortWriter writes at most max bytes per call.
type shortWriter struct {
	w   io.Writer
	max int
}

func (s *shortWriter) Write(p []byte) (int, error) {
	if len(p) > s.max {
		p = p[:s.max]
	}
	return s.w.Write(p)
}

// concurrencyTracker records the peak number of writers active at once.
type concurrencyTracker struct {
	mu     sync.Mutex
	active int
	peak   int
}

func (c *concurrencyTracker) wrap(w io.Writer) io.Writer {
	return writerFunc(func(p []byte) (int, error) {
		c.mu.Lock()
		c.active++
		c.peak = max(c.peak, c.active)
		c.mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		c.mu.Lock()
		c.active--
		c.mu.Unlock()
		return w.Write(p)
	})
}

func (c *concurrencyTracker) Peak() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peak
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }
