package locate

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"git.home.luguber.info/inful/foliobuilder/internal/media"
)

// Fold returns the comparison key for a file name: NFC-normalised and
// case-folded, so "Café.PNG" typed on one system matches "café.png"
// written by another.
func Fold(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}

func stem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

type hit struct {
	rank int
	path string
}

// matcher ranks candidates: an exact name beats a same-stem file with an
// accepted extension; ties are broken by path.
type matcher struct {
	name  string
	stem  string
	class media.ExtSet
	hits  []hit
}

func newMatcher(name string, class media.ExtSet) *matcher {
	return &matcher{name: Fold(name), stem: Fold(stem(name)), class: class}
}

func (m *matcher) offer(path, name string) {
	folded := Fold(name)
	switch {
	case folded == m.name:
		m.add(0, path)
	case Fold(stem(name)) == m.stem && m.class.Allows(filepath.Ext(name)):
		m.add(1, path)
	}
}

func (m *matcher) add(rank int, path string) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return
	}
	m.hits = append(m.hits, hit{rank: rank, path: path})
}

func (m *matcher) best() (string, bool) {
	if len(m.hits) == 0 {
		return "", false
	}
	slices.SortFunc(m.hits, func(a, b hit) int {
		if a.rank != b.rank {
			return a.rank - b.rank
		}
		return strings.Compare(a.path, b.path)
	})
	return filepath.Clean(m.hits[0].path), true
}
