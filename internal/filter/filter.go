package filter

import "path/filepath"

// Rule is one include or exclude pattern.
type Rule struct {
	pattern *pattern
	Include bool
}

// Pattern returns the rule's pattern as written by the user.
func (r Rule) Pattern() string { return r.pattern.String() }

// Chain is an ordered rule list plus optional size bounds. The first rule
// matching a path decides; paths no rule matches are included.
type Chain struct {
	rules   []Rule
	minSize int64
	maxSize int64
}

// NewChain creates an empty chain.
func NewChain() *Chain {
	return &Chain{}
}

// AddExclude appends an exclude rule.
func (c *Chain) AddExclude(raw string) error {
	return c.add(raw, false)
}

// AddInclude appends an include rule.
func (c *Chain) AddInclude(raw string) error {
	return c.add(raw, true)
}

func (c *Chain) add(raw string, include bool) error {
	p, err := compilePattern(raw)
	if err != nil {
		return err
	}
	c.rules = append(c.rules, Rule{pattern: p, Include: include})
	return nil
}

// Rules returns the rules in evaluation order.
func (c *Chain) Rules() []Rule {
	return append([]Rule(nil), c.rules...)
}

// SetMinSize skips files smaller than n bytes. Zero disables the bound.
func (c *Chain) SetMinSize(n int64) { c.minSize = n }

// SetMaxSize skips files larger than n bytes. Zero disables the bound.
func (c *Chain) SetMaxSize(n int64) { c.maxSize = n }

// Empty reports whether the chain would include everything.
func (c *Chain) Empty() bool {
	return c == nil || (len(c.rules) == 0 && c.minSize == 0 && c.maxSize == 0)
}

// Match reports whether relPath should be kept. Size bounds only apply to
// files. relPath may use the OS separator.
func (c *Chain) Match(relPath string, isDir bool, size int64) bool {
	if c == nil {
		return true
	}
	if !isDir {
		if c.minSize > 0 && size < c.minSize {
			return false
		}
		if c.maxSize > 0 && size > c.maxSize {
			return false
		}
	}

	slashed := filepath.ToSlash(relPath)
	for _, r := range c.rules {
		if r.pattern.match(slashed, isDir) {
			return r.Include
		}
	}
	return true
}

// MatchFile is Match for a regular file.
func (c *Chain) MatchFile(relPath string, size int64) bool {
	return c.Match(relPath, false, size)
}

// MatchDir reports whether the planner should descend into relPath.
func (c *Chain) MatchDir(relPath string) bool {
	return c.Match(relPath, true, 0)
}
