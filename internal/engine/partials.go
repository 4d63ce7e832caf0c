package engine

import (
	"os"
	"slices"
	"sync"
)

// partialRegistry tracks destinations opened for streaming that have not
// yet verified. Entries left behind belong to failed or cancelled copies.
type partialRegistry struct {
	mu    sync.Mutex
	paths map[string]struct{}
}

func (r *partialRegistry) register(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.paths == nil {
		r.paths = make(map[string]struct{})
	}
	r.paths[path] = struct{}{}
}

func (r *partialRegistry) deregister(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.paths, path)
}

func (r *partialRegistry) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	paths := make([]string, 0, len(r.paths))
	for p := range r.paths {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

// cleanup removes every registered file and returns the ones it removed.
func (r *partialRegistry) cleanup() []string {
	r.mu.Lock()
	paths := make([]string, 0, len(r.paths))
	for p := range r.paths {
		paths = append(paths, p)
	}
	r.paths = nil
	r.mu.Unlock()

	slices.Sort(paths)
	removed := paths[:0]
	for _, p := range paths {
		if err := os.Remove(p); err == nil || os.IsNotExist(err) {
			removed = append(removed, p)
		}
	}
	return removed
}
