// Package manifest assembles the published projects.json and the image
// hostname side file.
package manifest

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"git.home.luguber.info/inful/foliobuilder/internal/folio"
	"git.home.luguber.info/inful/foliobuilder/internal/fspath"
)

// strippedKeys never reach the published manifest, at any depth.
var strippedKeys = map[string]struct{}{
	"assetsFolder":     {},
	"requiresFollowUp": {},
}

// strippedRootKeys are removed from the top level of each record only.
var strippedRootKeys = map[string]struct{}{
	"filePath": {},
}

// Manifest is the sanitized, ordered list of published records.
type Manifest struct {
	entries   []any
	hostnames []string
}

// New sanitizes projects in order. Internal and authoring-only fields are
// dropped; everything else is passed through.
func New(projects []*folio.Project) (*Manifest, error) {
	m := &Manifest{entries: make([]any, 0, len(projects))}
	hosts := make(map[string]struct{})
	for _, p := range projects {
		raw, err := encode(p)
		if err != nil {
			return nil, fmt.Errorf("encode project %s: %w", p.ID, err)
		}
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("decode project %s: %w", p.ID, err)
		}
		if obj, ok := v.(map[string]any); ok {
			for k := range strippedRootKeys {
				delete(obj, k)
			}
		}
		v = Sanitize(v)
		collectHosts(v, hosts)
		m.entries = append(m.entries, v)
	}
	m.hostnames = make([]string, 0, len(hosts))
	for h := range hosts {
		m.hostnames = append(m.hostnames, h)
	}
	sort.Strings(m.hostnames)
	return m, nil
}

// Sanitize removes underscore-prefixed and authoring-only keys, and string
// values that are file:// URIs or local filesystem paths, from every object
// in v.
func Sanitize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			if strings.HasPrefix(k, "_") {
				delete(t, k)
				continue
			}
			if _, drop := strippedKeys[k]; drop {
				delete(t, k)
				continue
			}
			if s, ok := child.(string); ok && (fspath.IsFileURI(s) || fspath.IsLocalPath(s)) {
				delete(t, k)
				continue
			}
			t[k] = Sanitize(child)
		}
		return t
	case []any:
		for i := range t {
			t[i] = Sanitize(t[i])
		}
		return t
	default:
		return v
	}
}

// Len returns the number of records.
func (m *Manifest) Len() int { return len(m.entries) }

// Hostnames returns the sorted, IDNA-normalised hosts of every remote URL
// in the manifest.
func (m *Manifest) Hostnames() []string { return append([]string(nil), m.hostnames...) }

// ToJSON renders the manifest: one array, two-space indent, trailing
// newline, HTML characters unescaped.
func (m *Manifest) ToJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m.entries); err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	return buf.Bytes(), nil
}

// Hash is the SHA-256 of the rendered manifest.
func (m *Manifest) Hash() (string, error) {
	data, err := m.ToJSON()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", sha256.Sum256(data)), nil
}

// WriteFile renders the manifest into dir/name and returns the path.
func (m *Manifest) WriteFile(dir, name string) (string, error) {
	data, err := m.ToJSON()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}
	return path, nil
}

// FromJSON parses a rendered manifest.
func FromJSON(data []byte) ([]map[string]any, error) {
	var out []map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}
	return out, nil
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
