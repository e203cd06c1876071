package watcher

import (
	"fmt"
	"path/filepath"
	"strings"
)

// IgnoreSet is an ordered list of absolute path fragments excluded from
// processing. It is resolved once at startup and read-only afterwards.
type IgnoreSet []string

// NewIgnoreSet resolves every entry to its absolute form. Blank entries are
// dropped since an empty fragment would match every path.
func NewIgnoreSet(paths []string) (IgnoreSet, error) {
	set := make(IgnoreSet, 0, len(paths))
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("%w: ignore path %q: %v", ErrInvalidPath, p, err)
		}
		set = append(set, abs)
	}
	return set, nil
}

// IsExcluded reports whether the absolute form of candidate contains any
// entry as a substring.
//
// Matching is plain substring containment, not path-segment aware: ignoring
// /a/b also excludes /a/bc and /x/a/b.
func (s IgnoreSet) IsExcluded(candidate string) bool {
	if len(s) == 0 {
		return false
	}
	if !filepath.IsAbs(candidate) {
		abs, err := filepath.Abs(candidate)
		if err == nil {
			candidate = abs
		}
	}
	for _, entry := range s {
		if strings.Contains(candidate, entry) {
			return true
		}
	}
	return false
}
