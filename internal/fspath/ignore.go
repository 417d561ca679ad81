package fspath

import "strings"

// DefaultIgnoreDirs are directory names never descended into while scanning a
// source tree.
var DefaultIgnoreDirs = []string{"node_modules", ".git", "__pycache__", "venv", "env", "dist", "build", ".next", "public"}

// IgnoreSet is a set of directory names to prune. Hidden directories are
// always pruned.
type IgnoreSet map[string]struct{}

// NewIgnoreSet builds a set from names. An empty call yields DefaultIgnoreDirs.
func NewIgnoreSet(names ...string) IgnoreSet {
	if len(names) == 0 {
		names = DefaultIgnoreDirs
	}
	s := make(IgnoreSet, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			s[n] = struct{}{}
		}
	}
	return s
}

// Skip reports whether a directory called name should be pruned.
func (s IgnoreSet) Skip(name string) bool {
	if strings.HasPrefix(name, ".") && name != "." && name != ".." {
		return true
	}
	_, ok := s[name]
	return ok
}
