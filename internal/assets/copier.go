// Package assets copies located media into the published tree and rewrites
// the references that point at them.
package assets

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"

	"git.home.luguber.info/inful/foliobuilder/internal/locate"
	"git.home.luguber.info/inful/foliobuilder/internal/media"
)

// ErrNotFound is returned when no strategy could locate the referenced file.
var ErrNotFound = errors.New("asset not found")

// Copier resolves references and copies them flat into a destination
// directory. It is safe for concurrent use.
type Copier struct {
	locator *locate.Locator
	files   atomic.Int64
	bytes   atomic.Int64
}

// NewCopier returns a Copier resolving through l.
func NewCopier(l *locate.Locator) *Copier {
	if l == nil {
		l = locate.New(nil)
	}
	return &Copier{locator: l}
}

// Locator exposes the locator the copier resolves through.
func (c *Copier) Locator() *locate.Locator { return c.locator }

// Copy locates ref and copies it into destDir under its own base name,
// preserving the modification time. It returns the published filename.
func (c *Copier) Copy(ref, baseDir, searchRoot, destDir string, class media.ExtSet) (string, error) {
	src, ok := c.locator.Locate(ref, baseDir, searchRoot, class)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	return c.CopyFile(src, destDir)
}

// CopyFirst tries each candidate reference in order and copies the first one
// that resolves.
func (c *Copier) CopyFirst(refs []string, baseDir, searchRoot, destDir string, class media.ExtSet) (string, error) {
	if len(refs) == 0 {
		return "", fmt.Errorf("%w: empty reference", ErrNotFound)
	}
	var firstErr error
	for _, ref := range refs {
		name, err := c.Copy(ref, baseDir, searchRoot, destDir, class)
		if err == nil {
			return name, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return "", firstErr
}

// CopyFile copies an already located file into destDir.
func (c *Copier) CopyFile(src, destDir string) (string, error) {
	info, err := os.Stat(src)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", src, err)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", destDir, err)
	}
	name := filepath.Base(src)
	dest := filepath.Join(destDir, name)
	n, err := copyContents(src, dest, info.Mode().Perm())
	if err != nil {
		_ = os.Remove(dest)
		return "", err
	}
	if err := os.Chtimes(dest, info.ModTime(), info.ModTime()); err != nil {
		return "", fmt.Errorf("preserve mtime %s: %w", dest, err)
	}
	c.files.Add(1)
	c.bytes.Add(n)
	return name, nil
}

func copyContents(src, dest string, perm os.FileMode) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm|0o200)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", dest, err)
	}
	n, err := io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("copy %s: %w", src, err)
	}
	return n, nil
}

// Stats reports how many files and bytes the copier has written.
func (c *Copier) Stats() (files, bytes int64) {
	return c.files.Load(), c.bytes.Load()
}
