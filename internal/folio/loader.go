package folio

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"git.home.luguber.info/inful/foliobuilder/internal/fspath"
	"git.home.luguber.info/inful/foliobuilder/internal/logfields"
)

// DefaultDomain is assigned to records that declare no domain.
const DefaultDomain = "Unknown Domain"

// ErrNoRecords is returned when a document parses but holds no object records.
var ErrNoRecords = errors.New("document holds no project records")

// ParseFailure reports a document that could not be decoded.
type ParseFailure struct {
	Path     string
	Repaired bool
	Err      error
}

func (e *ParseFailure) Error() string {
	if e.Repaired {
		return fmt.Sprintf("parse %s (after lenient repair): %v", e.Path, e.Err)
	}
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseFailure) Unwrap() error { return e.Err }

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var (
	unquotedKey   = regexp.MustCompile(`(^|[{,\s])([A-Za-z0-9_\-]+)\s*:`)
	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
)

// Repair applies the lenient fixes tried once on hand-edited documents:
// byte order mark removed, bare keys quoted, trailing commas dropped.
func Repair(data []byte) []byte {
	data = bytes.TrimPrefix(data, utf8BOM)
	data = unquotedKey.ReplaceAll(data, []byte(`${1}"${2}":`))
	return trailingComma.ReplaceAll(data, []byte(`${1}`))
}

// IsDescriptionDocument reports whether name follows the naming convention of
// project description documents, which are eligible for lenient repair.
func IsDescriptionDocument(name string) bool {
	n := strings.ToLower(filepath.Base(name))
	return strings.HasSuffix(n, ".folio") ||
		n == "content.json" || n == "contents.json" ||
		strings.HasSuffix(n, "_info.json")
}

// Loader reads project documents.
type Loader struct {
	logger *slog.Logger
}

// NewLoader returns a Loader logging to logger (slog.Default when nil).
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load decodes the document at path. A document holds one record or an array
// of records; array elements that are not objects are ignored. Failures are
// returned as *ParseFailure. Base directories are resolved for every record.
func (l *Loader) Load(path string) ([]*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseFailure{Path: path, Err: err}
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	records, err := decodeRecords(data)
	if err != nil {
		if !IsDescriptionDocument(path) {
			return nil, &ParseFailure{Path: path, Err: err}
		}
		repaired, rerr := decodeRecords(Repair(data))
		if rerr != nil {
			return nil, &ParseFailure{Path: path, Repaired: true, Err: err}
		}
		l.logger.Warn("Document needed lenient repair", logfields.Path(path))
		records = repaired
	}
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	dir := filepath.Dir(path)
	for i, p := range records {
		p.Source = path
		p.Dir = dir
		p.Index = i
		p.BaseDir = ResolveBaseDir(p)
	}
	return records, nil
}

func decodeRecords(data []byte) ([]*Project, error) {
	trimmed := bytes.TrimSpace(data)
	switch {
	case bytes.HasPrefix(trimmed, []byte("[")):
		var raw []json.RawMessage
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, err
		}
		var out []*Project
		for _, r := range raw {
			p := &Project{}
			if err := json.Unmarshal(r, p); err != nil {
				continue
			}
			out = append(out, p)
		}
		return out, nil
	case bytes.HasPrefix(trimmed, []byte("{")):
		p := &Project{}
		if err := json.Unmarshal(trimmed, p); err != nil {
			return nil, err
		}
		return []*Project{p}, nil
	default:
		var v any
		if err := json.Unmarshal(trimmed, &v); err != nil {
			return nil, err
		}
		return nil, errNotObject
	}
}

// ResolveBaseDir picks the directory relative asset paths resolve against:
// an existing assetsFolder, else an existing declared package path, else the
// document's directory.
func ResolveBaseDir(p *Project) string {
	if dir, ok := assetsFolderDir(p.AssetsFolder, p.Dir); ok {
		return dir
	}
	if dir, ok := declaredPackageDir(p.FilePath); ok {
		return dir
	}
	return p.Dir
}

func assetsFolderDir(raw json.RawMessage, docDir string) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var folder string
	if err := json.Unmarshal(raw, &folder); err != nil {
		var o struct {
			Path string `json:"path"`
		}
		if err := json.Unmarshal(raw, &o); err != nil {
			return "", false
		}
		folder = o.Path
	}
	folder = strings.TrimSpace(folder)
	if folder == "" {
		return "", false
	}
	var candidates []string
	if p, ok := fspath.DecodeFileURI(folder); ok {
		candidates = []string{p}
	} else {
		candidates = []string{filepath.FromSlash(folder)}
		if d := filepath.FromSlash(fspath.Unescape(folder)); d != candidates[0] {
			candidates = append(candidates, d)
		}
	}
	for _, c := range candidates {
		if !filepath.IsAbs(c) {
			c = filepath.Join(docDir, c)
		}
		if isDir(c) {
			return filepath.Clean(c), true
		}
	}
	return "", false
}

func declaredPackageDir(filePath string) (string, bool) {
	filePath = strings.TrimSpace(filePath)
	if filePath == "" {
		return "", false
	}
	p, ok := fspath.DecodeFileURI(filePath)
	if !ok {
		p = filepath.FromSlash(fspath.Unescape(filePath))
		if !filepath.IsAbs(p) {
			return "", false
		}
	}
	if isDir(p) {
		return filepath.Clean(p), true
	}
	return "", false
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

// ApplyDefaults fills the derived identity fields of a record. rel is the
// document path relative to the source root and disambiguates generated ids.
// folderName is always derived, never taken from the document.
func (p *Project) ApplyDefaults(rel, defaultDomain string) {
	if defaultDomain == "" {
		defaultDomain = DefaultDomain
	}
	if p.Name == "" {
		p.Name = p.Title
	}
	if strings.TrimSpace(p.Domain) == "" {
		p.Domain = defaultDomain
	}
	label := p.Title
	if label == "" {
		label = p.Name
	}
	if label == "" {
		label = strings.TrimSuffix(filepath.Base(p.documentRoot()), filepath.Ext(p.documentRoot()))
	}
	if strings.TrimSpace(p.ID) == "" {
		ctx := filepath.ToSlash(rel)
		if p.Index > 0 {
			ctx = fmt.Sprintf("%s#%d", ctx, p.Index)
		}
		p.ID = UniqueID(label, ctx)
	}
	p.FolderName = Slugify(label) + "_" + Slugify(p.ID)
}

// documentRoot is the package directory for packaged documents, else the
// document file itself.
func (p *Project) documentRoot() string {
	if p.Package != "" {
		return p.Package
	}
	return p.Source
}
