package media

import (
	"net/url"
	"path/filepath"
	"strings"
)

// Strategy inspects a declared type and a path hint and either answers with a
// kind or reports no match.
type Strategy func(t *Table, declared, hint string) (Kind, bool)

// Classifier runs an ordered list of strategies over a shared Table.
type Classifier struct {
	table    *Table
	declared []Strategy
	hinted   []Strategy
}

// NewClassifier returns a classifier using the standard strategy order.
func NewClassifier(t *Table) *Classifier {
	if t == nil {
		t = DefaultTable
	}
	return &Classifier{
		table:    t,
		declared: []Strategy{ByDeclaredName, ByDeclaredExtension},
		hinted:   []Strategy{ByURLHint, ByHintExtension, ByHintSubstring},
	}
}

// Default is the classifier over DefaultTable.
var Default = NewClassifier(DefaultTable)

// Classify maps a declared type and/or path hint to a canonical kind. It never
// fails: when nothing matches the answer is KindImage.
func Classify(declared, hint string) Kind { return Default.Classify(declared, hint) }

// Table returns the table the classifier reads from.
func (c *Classifier) Table() *Table { return c.table }

// Classify maps a declared type and/or path hint to a canonical kind.
func (c *Classifier) Classify(declared, hint string) Kind {
	if k, ok := c.FromDeclared(declared); ok {
		return k
	}
	if k, ok := c.FromHint(hint); ok {
		return k
	}
	return KindImage
}

// FromDeclared applies only the declared-type strategies.
func (c *Classifier) FromDeclared(declared string) (Kind, bool) {
	return run(c.table, c.declared, declared, "")
}

// FromHint applies only the path-hint strategies.
func (c *Classifier) FromHint(hint string) (Kind, bool) {
	return run(c.table, c.hinted, "", hint)
}

// Recognized reports whether declared is either accepted as a kind or is a
// known placeholder. Empty labels are not recognized.
func (c *Classifier) Recognized(declared string) bool {
	if _, ok := c.FromDeclared(declared); ok {
		return true
	}
	return c.table.IsPlaceholder(declared)
}

func run(t *Table, strategies []Strategy, declared, hint string) (Kind, bool) {
	for _, s := range strategies {
		if k, ok := s(t, declared, hint); ok {
			return k, true
		}
	}
	return "", false
}

// ByDeclaredName matches canonical names and synonyms ("3d", "url", "folio").
func ByDeclaredName(t *Table, declared, _ string) (Kind, bool) {
	if strings.TrimSpace(declared) == "" {
		return "", false
	}
	return t.Synonym(declared)
}

// ByDeclaredExtension treats the declared type as an extension ("mov", ".glb").
func ByDeclaredExtension(t *Table, declared, _ string) (Kind, bool) {
	d := strings.TrimSpace(declared)
	if d == "" || t.IsPlaceholder(d) {
		return "", false
	}
	return t.KindForExt(d)
}

// ByURLHint classifies absolute remote URLs as links.
func ByURLHint(_ *Table, _, hint string) (Kind, bool) {
	h := strings.ToLower(strings.TrimSpace(hint))
	for _, scheme := range []string{"http://", "https://", "ftp://"} {
		if strings.HasPrefix(h, scheme) {
			return KindURLLink, true
		}
	}
	return "", false
}

// ByHintExtension uses the extension of the percent-decoded hint.
func ByHintExtension(t *Table, _, hint string) (Kind, bool) {
	h := strings.TrimSpace(hint)
	if h == "" {
		return "", false
	}
	if decoded, err := url.PathUnescape(h); err == nil {
		h = decoded
	}
	ext := filepath.Ext(h)
	if ext == "" {
		return "", false
	}
	return t.KindForExt(ext)
}

// ByHintSubstring is the last resort: any known extension token appearing
// anywhere in the hint.
func ByHintSubstring(t *Table, _, hint string) (Kind, bool) {
	h := strings.ToLower(strings.TrimSpace(hint))
	if h == "" {
		return "", false
	}
	for k, token := range t.scanTokens {
		if strings.Contains(h, token) {
			return k, true
		}
	}
	return "", false
}
