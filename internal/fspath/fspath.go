// Package fspath decodes and normalises the hand-authored path expressions
// found in project documents: file:// URIs, percent-encoded paths and remote
// URLs.
package fspath

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

const fileScheme = "file://"

// IsFileURI reports whether s uses the file:// scheme (case-insensitive).
func IsFileURI(s string) bool {
	return len(s) >= len(fileScheme) && strings.EqualFold(s[:len(fileScheme)], fileScheme)
}

// DecodeFileURI converts a file:// URI to a local path. The second result is
// false when s is not a file URI.
func DecodeFileURI(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if !IsFileURI(s) {
		return "", false
	}
	if u, err := url.Parse(s); err == nil && u.Path != "" {
		return filepath.FromSlash(u.Path), true
	}
	// Malformed escapes: fall back to stripping the scheme.
	rest := s[len(fileScheme):]
	if strings.HasPrefix(strings.ToLower(rest), "localhost/") {
		rest = rest[len("localhost"):]
	}
	return filepath.FromSlash(Unescape(rest)), true
}

// Unescape percent-decodes s, returning s unchanged if it is not valid.
func Unescape(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	if d, err := url.PathUnescape(s); err == nil {
		return d
	}
	return s
}

// IsRemoteURL reports whether s is an absolute http, https or ftp URL.
func IsRemoteURL(s string) bool {
	l := strings.ToLower(strings.TrimSpace(s))
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://") || strings.HasPrefix(l, "ftp://")
}

// Normalize canonicalises a path expression for equality lookups: file://
// stripped, percent-decoded, trailing separators removed.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if p, ok := DecodeFileURI(s); ok {
		s = p
	} else {
		s = Unescape(s)
	}
	s = filepath.ToSlash(s)
	for len(s) > 1 && strings.HasSuffix(s, "/") {
		s = strings.TrimSuffix(s, "/")
	}
	return s
}

// localRoots are top-level directories that only ever name a location on a
// machine, never a site path.
var localRoots = map[string]struct{}{
	"Applications": {}, "Library": {}, "Network": {}, "System": {}, "Users": {}, "Volumes": {},
	"cygdrive": {}, "etc": {}, "home": {}, "media": {}, "mnt": {}, "opt": {}, "private": {},
	"root": {}, "srv": {}, "tmp": {}, "usr": {}, "var": {},
}

// IsLocalPath reports whether s is an absolute filesystem location on the
// build machine: a Windows drive or UNC path, a POSIX path below a well-known
// root, or any absolute path that exists. Site-relative URLs such as
// "/projects/alpha" are not local paths.
func IsLocalPath(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) >= 3 && s[1] == ':' && (s[2] == '\\' || s[2] == '/') &&
		(s[0] >= 'a' && s[0] <= 'z' || s[0] >= 'A' && s[0] <= 'Z') {
		return true
	}
	if strings.HasPrefix(s, `\\`) {
		return true
	}
	if !strings.HasPrefix(s, "/") || strings.HasPrefix(s, "//") {
		return false
	}
	first, _, _ := strings.Cut(strings.TrimPrefix(s, "/"), "/")
	if _, ok := localRoots[first]; ok {
		return true
	}
	_, err := os.Stat(s)
	return err == nil
}
