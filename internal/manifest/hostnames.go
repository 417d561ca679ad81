package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/idna"

	"git.home.luguber.info/inful/foliobuilder/internal/fspath"
)

// HostnameFile is the shape of image-hostnames.json.
type HostnameFile struct {
	Hostnames []string `json:"hostnames"`
}

func collectHosts(v any, into map[string]struct{}) {
	switch t := v.(type) {
	case map[string]any:
		for _, child := range t {
			collectHosts(child, into)
		}
	case []any:
		for _, child := range t {
			collectHosts(child, into)
		}
	case string:
		if h, ok := Hostname(t); ok {
			into[h] = struct{}{}
		}
	}
}

// Hostname extracts the normalised host of a remote URL: lower case,
// internationalised names in punycode.
func Hostname(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if !fspath.IsRemoteURL(raw) {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	host := strings.TrimSuffix(u.Hostname(), ".")
	if host == "" {
		return "", false
	}
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		ascii, err = idna.Punycode.ToASCII(strings.ToLower(host))
		if err != nil {
			return "", false
		}
	}
	return strings.ToLower(ascii), true
}

// WriteHostnames atomically replaces path with the hostname file.
func WriteHostnames(path string, hosts []string) error {
	if hosts == nil {
		hosts = []string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(HostnameFile{Hostnames: hosts}); err != nil {
		return fmt.Errorf("marshal hostnames: %w", err)
	}
	return WriteFileAtomic(path, buf.Bytes())
}

// WriteFileAtomic writes data to a temporary sibling of path and renames it
// into place.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
