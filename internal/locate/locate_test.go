package locate

import (
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/foliobuilder/internal/fspath"
	"git.home.luguber.info/inful/foliobuilder/internal/media"
)

func writeFile(t *testing.T, path string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	return path
}

func fileURI(p string) string {
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(p)}).String()
}

func TestLocateStrategies(t *testing.T) {
	root := t.TempDir()
	base := filepath.Join(root, "Alpha.folio")
	hero := writeFile(t, filepath.Join(base, "hero.png"))
	spaced := writeFile(t, filepath.Join(base, "My Shot.jpg"))
	moved := writeFile(t, filepath.Join(root, "Archive", "old.webp"))
	writeFile(t, filepath.Join(root, "node_modules", "lost.png"))
	writeFile(t, filepath.Join(root, ".cache", "hidden.png"))

	images := media.DefaultTable.Exts(media.KindImage)
	l := New(nil)

	cases := []struct {
		name  string
		ref   string
		class media.ExtSet
		want  string
	}{
		{"relative", "hero.png", images, hero},
		{"percent encoded relative", "My%20Shot.jpg", images, spaced},
		{"absolute", hero, images, hero},
		{"file uri", fileURI(spaced), images, spaced},
		{"wrong extension same stem", "hero.jpeg", images, hero},
		{"case insensitive stem", "HERO.gif", images, hero},
		{"stale absolute path from another machine", "/Users/someone/Desktop/hero.png", images, hero},
		{"moved to another folder", "old.png", images, moved},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := l.Locate(tc.ref, base, root, tc.class)
			require.True(t, ok)
			assert.Equal(t, tc.want, got)
		})
	}

	t.Run("ignored and hidden dirs are pruned", func(t *testing.T) {
		_, ok := l.Locate("lost.png", base, root, images)
		assert.False(t, ok)
		_, ok = l.Locate("hidden.png", base, root, images)
		assert.False(t, ok)
	})

	t.Run("class restricts stem matches", func(t *testing.T) {
		_, ok := l.Locate("hero.mp4", base, root, media.DefaultTable.Exts(media.KindAudio))
		assert.False(t, ok)
	})

	t.Run("remote and empty refs never match", func(t *testing.T) {
		_, ok := l.Locate("https://example.com/hero.png", base, root, nil)
		assert.False(t, ok)
		_, ok = l.Locate("  ", base, root, nil)
		assert.False(t, ok)
	})
}

func TestLocateDeterministic(t *testing.T) {
	root := t.TempDir()
	base := filepath.Join(root, "doc")
	require.NoError(t, os.MkdirAll(base, 0o755))
	b := writeFile(t, filepath.Join(root, "b", "clip.mov"))
	writeFile(t, filepath.Join(root, "c", "clip.mov"))
	exact := writeFile(t, filepath.Join(root, "z", "clip.mp4"))

	l := New(nil)
	for range 5 {
		got, ok := l.Locate("clip.mov", base, root, nil)
		require.True(t, ok)
		assert.Equal(t, b, got)
	}

	// An exact name outranks an earlier same-stem path.
	got, ok := l.Locate("clip.mp4", base, root, nil)
	require.True(t, ok)
	assert.Equal(t, exact, got)
}

func TestStrategiesArePure(t *testing.T) {
	root := t.TempDir()
	p := writeFile(t, filepath.Join(root, "a", "Café.png"))
	q := Query{Ref: "café.PNG", BaseDir: filepath.Join(root, "a"), Ignore: fspath.NewIgnoreSet()}

	_, ok := ByRelativePath(q)
	assert.False(t, ok)

	got, ok := BySiblingStem(q)
	require.True(t, ok)
	assert.Equal(t, p, got)

	_, ok = ByRecursiveStem(q)
	assert.False(t, ok, "no search root configured")
}

func TestWithStrategies(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "x.png"))
	l := New(nil).WithStrategies(ByAbsolutePath)
	_, ok := l.Locate("x.png", root, root, nil)
	assert.False(t, ok)
}
