package engine

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Expand turns a clone request into copy tasks, one per source file, each
// fanned out to every destination root. Directory sources are walked and
// their contents merged under each root; file sources land at root/basename.
//
// Missing sources are not a planning error: they become a task that fails
// with ErrSourceNotFound when executed.
func Expand(req CloneRequest) ([]CopyTask, error) {
	if len(req.Sources) == 0 {
		return nil, ErrNoSources
	}
	if len(req.Destinations) == 0 {
		return nil, ErrNoDestinations
	}

	var tasks []CopyTask
	for _, src := range req.Sources {
		src = filepath.Clean(src)
		info, err := os.Stat(src)
		if err != nil || !info.IsDir() {
			var size int64
			if err == nil {
				size = info.Size()
			}
			rel := filepath.Base(src)
			tasks = append(tasks, newTask(src, rel, size, req.Destinations))
			continue
		}

		w := &walker{
			root:    src,
			opts:    req.Options,
			visited: make(map[string]struct{}),
		}
		if real, err := filepath.EvalSymlinks(src); err == nil {
			w.visited[real] = struct{}{}
		}
		if err := w.walk(src); err != nil {
			return nil, fmt.Errorf("walk %s: %w", src, err)
		}
		slices.SortFunc(w.files, func(a, b walkedFile) int {
			return strings.Compare(a.rel, b.rel)
		})
		for _, f := range w.files {
			tasks = append(tasks, newTask(f.path, f.rel, f.size, req.Destinations))
		}
	}
	return tasks, nil
}

func newTask(src, rel string, size int64, roots []string) CopyTask {
	dsts := make([]string, len(roots))
	for i, root := range roots {
		dsts[i] = filepath.Join(root, rel)
	}
	return CopyTask{
		SourceFile:       src,
		DestinationFiles: dsts,
		RelPath:          rel,
		Size:             size,
	}
}

type walkedFile struct {
	path string
	rel  string
	size int64
}

type walker struct {
	root    string
	opts    CopyOptions
	visited map[string]struct{} // resolved directories already descended
	files   []walkedFile
}

func (w *walker) walk(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("readdir %s: %w", dir, err)
	}

	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		p := filepath.Join(dir, entry.Name())
		rel := relativePath(w.root, p)

		info, err := entry.Info()
		if err != nil {
			slog.Debug("skipping unreadable entry", "path", p, "error", err)
			continue
		}

		if info.Mode()&fs.ModeSymlink != 0 {
			if !w.opts.FollowSymlinks {
				continue
			}
			resolved, err := filepath.EvalSymlinks(p)
			if err != nil {
				slog.Debug("skipping dangling symlink", "path", p, "error", err)
				continue
			}
			info, err = os.Stat(resolved)
			if err != nil {
				continue
			}
			if info.IsDir() {
				if err := w.descend(p, resolved, rel); err != nil {
					return err
				}
				continue
			}
		}

		switch {
		case info.IsDir():
			real, err := filepath.EvalSymlinks(p)
			if err != nil {
				real = p
			}
			if err := w.descend(p, real, rel); err != nil {
				return err
			}
		case info.Mode().IsRegular():
			if !w.opts.Filter.MatchFile(rel, info.Size()) {
				continue
			}
			w.files = append(w.files, walkedFile{path: p, rel: rel, size: info.Size()})
		}
	}
	return nil
}

func (w *walker) descend(p, resolved, rel string) error {
	if !w.opts.Filter.MatchDir(rel) {
		return nil
	}
	if _, seen := w.visited[resolved]; seen {
		slog.Debug("skipping directory cycle", "path", p, "target", resolved)
		return nil
	}
	w.visited[resolved] = struct{}{}
	return w.walk(p)
}

// relativePath returns p relative to root. Both are cleaned first, so
// roots such as "./src" or "src/." strip the same prefix as "src".
func relativePath(root, p string) string {
	if rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(p)); err == nil {
		return rel
	}
	rel := strings.TrimPrefix(p, root)
	return strings.TrimLeft(rel, string(filepath.Separator))
}
