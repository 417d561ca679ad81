package media

import (
	"slices"
	"strings"
)

// ExtSet is a set of lower-case extensions including the leading dot.
// A nil ExtSet admits every extension.
type ExtSet map[string]struct{}

// NewExtSet builds a set from extensions, normalising case and the leading dot.
func NewExtSet(exts ...string) ExtSet {
	s := make(ExtSet, len(exts))
	for _, e := range exts {
		s[normalizeExt(e)] = struct{}{}
	}
	return s
}

// Allows reports whether ext is a member. Nil sets allow everything.
func (s ExtSet) Allows(ext string) bool {
	if s == nil {
		return true
	}
	_, ok := s[normalizeExt(ext)]
	return ok
}

// Union returns a new set holding the members of s and other.
func (s ExtSet) Union(other ExtSet) ExtSet {
	if s == nil || other == nil {
		return nil
	}
	out := make(ExtSet, len(s)+len(other))
	for e := range s {
		out[e] = struct{}{}
	}
	for e := range other {
		out[e] = struct{}{}
	}
	return out
}

func normalizeExt(e string) string {
	e = strings.ToLower(strings.TrimSpace(e))
	if e != "" && !strings.HasPrefix(e, ".") {
		e = "." + e
	}
	return e
}

// Table holds the extension classes and type vocabulary. It is immutable once
// built; share it by pointer.
type Table struct {
	byExt        map[string]Kind
	extsByKind   map[Kind][]string
	scanOrder    []Kind
	synonyms     map[string]Kind
	placeholders map[string]struct{}
}

// KindClass pairs a kind with the extensions that identify it.
type KindClass struct {
	Kind Kind
	Exts []string
}

// NewTable builds a Table. classes also fix the order of the substring scan.
// synonyms maps lower-case declared labels to kinds; every canonical kind name
// is added automatically. placeholders are declared labels that carry no kind
// of their own ("file") and defer to the path.
func NewTable(classes []KindClass, synonyms map[string]Kind, placeholders ...string) *Table {
	t := &Table{
		byExt:        make(map[string]Kind),
		extsByKind:   make(map[Kind][]string),
		synonyms:     make(map[string]Kind),
		placeholders: make(map[string]struct{}),
	}
	for _, c := range classes {
		t.scanOrder = append(t.scanOrder, c.Kind)
		for _, e := range c.Exts {
			e = normalizeExt(e)
			if _, dup := t.byExt[e]; dup {
				continue
			}
			t.byExt[e] = c.Kind
			t.extsByKind[c.Kind] = append(t.extsByKind[c.Kind], e)
		}
		slices.Sort(t.extsByKind[c.Kind])
	}
	for _, k := range AllKinds {
		t.synonyms[string(k)] = k
	}
	for label, k := range synonyms {
		t.synonyms[strings.ToLower(label)] = k
	}
	for _, p := range placeholders {
		t.placeholders[strings.ToLower(p)] = struct{}{}
	}
	return t
}

// DefaultTable is the extension and vocabulary table used by the pipeline.
var DefaultTable = NewTable(
	[]KindClass{
		{KindImage, []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp", ".tiff", ".svg", ".heic", ".avif"}},
		{KindVideo, []string{".mov", ".mp4", ".webm", ".mkv", ".avi", ".flv", ".ogv", ".wmv", ".mpg", ".mpeg"}},
		{KindAudio, []string{".mp3", ".wav", ".aac", ".ogg", ".m4a", ".flac", ".opus"}},
		{Kind3DModel, []string{".glb", ".gltf", ".obj", ".fbx", ".stl", ".dae", ".3ds", ".ply"}},
		{KindGame, []string{".html", ".htm", ".unityweb", ".wasm"}},
		{KindText, []string{".md", ".markdown", ".txt", ".tex", ".csv", ".json", ".pdf"}},
	},
	map[string]Kind{
		"3d":    Kind3DModel,
		"url":   KindURLLink,
		"folio": KindCrossReference,
	},
	"file",
)

// KindForExt returns the kind registered for ext.
func (t *Table) KindForExt(ext string) (Kind, bool) {
	k, ok := t.byExt[normalizeExt(ext)]
	return k, ok
}

// Exts returns the extension set of the given kinds.
func (t *Table) Exts(kinds ...Kind) ExtSet {
	s := make(ExtSet)
	for _, k := range kinds {
		for _, e := range t.extsByKind[k] {
			s[e] = struct{}{}
		}
	}
	return s
}

// Synonym resolves a declared label to a kind.
func (t *Table) Synonym(label string) (Kind, bool) {
	k, ok := t.synonyms[strings.ToLower(strings.TrimSpace(label))]
	return k, ok
}

// IsPlaceholder reports whether label defers classification to the path.
func (t *Table) IsPlaceholder(label string) bool {
	_, ok := t.placeholders[strings.ToLower(strings.TrimSpace(label))]
	return ok
}

// scanTokens yields the bare extension tokens in scan order.
func (t *Table) scanTokens(yield func(Kind, string) bool) {
	for _, k := range t.scanOrder {
		for _, e := range t.extsByKind[k] {
			if !yield(k, strings.TrimPrefix(e, ".")) {
				return
			}
		}
	}
}
