package folio

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"git.home.luguber.info/inful/foliobuilder/internal/fspath"
)

// Document is one discovered description document.
type Document struct {
	// Path is the file to load.
	Path string
	// Package is the enclosing .folio directory for packaged documents.
	Package string
}

// packageContentNames are the designated content files of a package directory.
var packageContentNames = []string{"content.json", "contents.json"}

// Discover walks root and returns every description document, deduplicated
// and sorted by path. Ignored and hidden directories are pruned, and package
// directories are not descended into.
func Discover(root string, ignore fspath.IgnoreSet) ([]Document, error) {
	if ignore == nil {
		ignore = fspath.NewIgnoreSet()
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("source root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source root %s is not a directory", root)
	}

	seen := make(map[string]Document)
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if path == root {
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if ignore.Skip(name) {
				return fs.SkipDir
			}
			if hasFolioSuffix(name) {
				if doc, ok := packageDocument(path); ok {
					seen[doc.Path] = doc
				}
				return fs.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || !hasFolioSuffix(name) {
			return nil
		}
		// A symlinked package directory shows up as a non-directory entry.
		if st, err := os.Stat(path); err == nil && st.IsDir() {
			if doc, ok := packageDocument(path); ok {
				seen[doc.Path] = doc
			}
			return nil
		}
		seen[path] = Document{Path: path}
		return nil
	})
	if err != nil {
		return nil, err
	}

	docs := make([]Document, 0, len(seen))
	for _, d := range seen {
		docs = append(docs, d)
	}
	slices.SortFunc(docs, func(a, b Document) int { return strings.Compare(a.Path, b.Path) })
	return docs, nil
}

func hasFolioSuffix(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".folio")
}

// packageDocument finds the designated content file of a package directory.
func packageDocument(dir string) (Document, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Document{}, false
	}
	for _, want := range packageContentNames {
		for _, e := range entries {
			if e.IsDir() || !strings.EqualFold(e.Name(), want) {
				continue
			}
			return Document{Path: filepath.Join(dir, e.Name()), Package: dir}, true
		}
	}
	return Document{}, false
}
