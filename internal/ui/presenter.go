package ui

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/bamsammich/checksum/internal/stats"
)

// Presenter consumes events and displays progress.
type Presenter interface {
	// Run consumes events until the channel closes. Blocks until done.
	Run(events <-chan Event) error
	// Summary returns the final summary line.
	Summary() string
}

// Config configures a Presenter.
type Config struct {
	Writer     io.Writer // per-file result lines
	ErrWriter  io.Writer // progress display
	Stats      *stats.Collector
	DstRoots   []string
	Algorithm  string
	Workers    int
	Width      int
	IsTTY      bool
	Quiet      bool
	JSON       bool
	NoProgress bool
}

// NewPresenter creates the appropriate presenter based on configuration.
//
//nolint:ireturn // factory function returns interface by design
func NewPresenter(cfg Config) Presenter {
	switch {
	case cfg.JSON:
		return &jsonPresenter{w: cfg.Writer, stats: cfg.Stats, algorithm: cfg.Algorithm}
	case cfg.Quiet:
		return &quietPresenter{}
	case !cfg.IsTTY || cfg.NoProgress:
		return &plainPresenter{
			w:        cfg.Writer,
			errW:     cfg.ErrWriter,
			stats:    cfg.Stats,
			progress: !cfg.NoProgress,
		}
	default:
		return newHUDPresenter(cfg)
	}
}

// StripRoot removes a root prefix from a path, returning a clean relative path.
func StripRoot(root, path string) string {
	if root == "" {
		return path
	}
	root = filepath.Clean(root)
	if !strings.HasSuffix(root, string(filepath.Separator)) {
		root += string(filepath.Separator)
	}
	if strings.HasPrefix(path, root) {
		return path[len(root):]
	}
	return path
}

// rootOf returns the longest root that contains path, or "".
func rootOf(roots []string, path string) string {
	best := ""
	for _, r := range roots {
		if StripRoot(r, path) != path && len(r) > len(best) {
			best = r
		}
	}
	return best
}
