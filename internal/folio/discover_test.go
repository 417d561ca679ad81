package folio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/foliobuilder/internal/fspath"
)

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	a := write(t, filepath.Join(root, "Design", "Alpha.folio"), `{}`)
	b := write(t, filepath.Join(root, "Beta.FOLIO"), `{}`)
	pkg := filepath.Join(root, "Gamma.folio")
	c := write(t, filepath.Join(pkg, "Contents.json"), `{}`)
	write(t, filepath.Join(pkg, "Nested.folio"), `{}`)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Empty.folio"), 0o755))
	write(t, filepath.Join(root, "node_modules", "Dep.folio"), `{}`)
	write(t, filepath.Join(root, ".trash", "Old.folio"), `{}`)
	write(t, filepath.Join(root, "public", "Built.folio"), `{}`)
	write(t, filepath.Join(root, ".Hidden.folio"), `{}`)
	write(t, filepath.Join(root, "notes.json"), `{}`)

	docs, err := Discover(root, fspath.NewIgnoreSet())
	require.NoError(t, err)

	var paths []string
	for _, d := range docs {
		paths = append(paths, d.Path)
	}
	assert.Equal(t, []string{b, a, c}, paths)
	assert.Equal(t, pkg, docs[2].Package)
	assert.Empty(t, docs[0].Package)
}

func TestDiscoverPrefersContentJSON(t *testing.T) {
	root := t.TempDir()
	pkg := filepath.Join(root, "P.folio")
	want := write(t, filepath.Join(pkg, "content.json"), `{}`)
	write(t, filepath.Join(pkg, "contents.json"), `{}`)

	docs, err := Discover(root, nil)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, want, docs[0].Path)
}

func TestDiscoverMissingRoot(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "missing"), nil)
	assert.Error(t, err)
}
