package locate

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/foliobuilder/internal/fspath"
	"git.home.luguber.info/inful/foliobuilder/internal/media"
)

// Query is the input shared by every strategy.
type Query struct {
	Ref        string
	BaseDir    string
	SearchRoot string
	Class      media.ExtSet
	Ignore     fspath.IgnoreSet
}

// Strategy attempts to resolve a query to an existing regular file.
type Strategy func(q Query) (string, bool)

// Locator resolves references with an ordered list of strategies.
type Locator struct {
	strategies []Strategy
	ignore     fspath.IgnoreSet
}

// New returns a Locator with the standard strategy order. A nil ignore set
// uses fspath.DefaultIgnoreDirs.
func New(ignore fspath.IgnoreSet) *Locator {
	if ignore == nil {
		ignore = fspath.NewIgnoreSet()
	}
	return &Locator{
		strategies: []Strategy{ByFileURI, ByAbsolutePath, ByRelativePath, BySiblingStem, ByRecursiveStem},
		ignore:     ignore,
	}
}

// WithStrategies returns a copy of l using strategies instead of the default
// list.
func (l *Locator) WithStrategies(strategies ...Strategy) *Locator {
	return &Locator{strategies: strategies, ignore: l.ignore}
}

// Locate resolves ref against baseDir, falling back to a search below
// searchRoot. class restricts the extensions accepted by the stem searches;
// nil accepts any. A miss is a normal outcome, not an error.
func (l *Locator) Locate(ref, baseDir, searchRoot string, class media.ExtSet) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || fspath.IsRemoteURL(ref) {
		return "", false
	}
	q := Query{Ref: ref, BaseDir: baseDir, SearchRoot: searchRoot, Class: class, Ignore: l.ignore}
	for _, s := range l.strategies {
		if p, ok := s(q); ok {
			return p, true
		}
	}
	return "", false
}

// ByFileURI decodes a file:// reference and uses it as-is.
func ByFileURI(q Query) (string, bool) {
	p, ok := fspath.DecodeFileURI(q.Ref)
	if !ok {
		return "", false
	}
	return existing(p)
}

// ByAbsolutePath accepts an absolute reference, raw or percent-decoded.
func ByAbsolutePath(q Query) (string, bool) {
	if fspath.IsFileURI(q.Ref) {
		return "", false
	}
	for _, p := range variants(q.Ref) {
		if filepath.IsAbs(p) {
			if hit, ok := existing(p); ok {
				return hit, true
			}
		}
	}
	return "", false
}

// ByRelativePath joins the reference onto the base directory, raw then
// percent-decoded.
func ByRelativePath(q Query) (string, bool) {
	if q.BaseDir == "" || fspath.IsFileURI(q.Ref) {
		return "", false
	}
	for _, p := range variants(q.Ref) {
		if filepath.IsAbs(p) {
			continue
		}
		if hit, ok := existing(filepath.Join(q.BaseDir, p)); ok {
			return hit, true
		}
	}
	return "", false
}

// BySiblingStem scans the directory the reference points into for a file with
// the same name or stem and an extension in the expected class.
func BySiblingStem(q Query) (string, bool) {
	dir, name := candidate(q)
	if dir == "" || name == "" {
		return "", false
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	m := newMatcher(name, q.Class)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m.offer(filepath.Join(dir, e.Name()), e.Name())
	}
	return m.best()
}

// ByRecursiveStem searches the whole search root, pruning ignored and hidden
// directories.
func ByRecursiveStem(q Query) (string, bool) {
	if q.SearchRoot == "" {
		return "", false
	}
	_, name := candidate(q)
	if name == "" {
		return "", false
	}
	m := newMatcher(name, q.Class)
	_ = filepath.WalkDir(q.SearchRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() && path != q.SearchRoot {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != q.SearchRoot && q.Ignore.Skip(d.Name()) {
				return fs.SkipDir
			}
			return nil
		}
		m.offer(path, d.Name())
		return nil
	})
	return m.best()
}

// candidate returns the directory the reference points into and the
// decoded base name it asks for.
func candidate(q Query) (string, string) {
	ref := q.Ref
	if p, ok := fspath.DecodeFileURI(ref); ok {
		ref = p
	} else {
		ref = filepath.FromSlash(fspath.Unescape(ref))
	}
	name := filepath.Base(ref)
	if name == "." || name == string(filepath.Separator) {
		return "", ""
	}
	dir := filepath.Dir(ref)
	if !filepath.IsAbs(ref) {
		if q.BaseDir == "" {
			return "", name
		}
		dir = filepath.Join(q.BaseDir, dir)
	}
	return dir, name
}

func variants(ref string) []string {
	raw := filepath.FromSlash(ref)
	decoded := filepath.FromSlash(fspath.Unescape(ref))
	if decoded == raw {
		return []string{raw}
	}
	return []string{raw, decoded}
}

func existing(p string) (string, bool) {
	info, err := os.Stat(p)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return filepath.Clean(p), true
}
