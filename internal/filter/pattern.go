package filter

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// pattern is a glob rule matched against slash-separated relative paths.
//
// A leading "/" or any inner "/" anchors the glob to the clone root;
// otherwise it is tested against the last path element only. A trailing "/"
// restricts the rule to directories.
type pattern struct {
	glob     string
	original string
	anchored bool
	dirOnly  bool
}

func compilePattern(raw string) (*pattern, error) {
	p := &pattern{original: raw}
	glob := raw

	if strings.HasSuffix(glob, "/") {
		p.dirOnly = true
		glob = strings.TrimSuffix(glob, "/")
	}
	if strings.HasPrefix(glob, "/") {
		p.anchored = true
		glob = strings.TrimPrefix(glob, "/")
	} else if strings.Contains(glob, "/") {
		p.anchored = true
	}

	if glob == "" {
		return nil, fmt.Errorf("empty filter pattern %q", raw)
	}
	if !doublestar.ValidatePattern(glob) {
		return nil, fmt.Errorf("invalid filter pattern %q", raw)
	}
	p.glob = glob
	return p, nil
}

func (p *pattern) match(relPath string, isDir bool) bool {
	if p.dirOnly && !isDir {
		return false
	}
	subject := relPath
	if !p.anchored {
		subject = path.Base(relPath)
	}
	ok, err := doublestar.Match(p.glob, subject)
	return err == nil && ok
}

func (p *pattern) String() string {
	return p.original
}
