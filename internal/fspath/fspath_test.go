package fspath

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeFileURI(t *testing.T) {
	p, ok := DecodeFileURI("file:///Users/me/My%20Work/shot.png")
	assert.True(t, ok)
	assert.Equal(t, filepath.FromSlash("/Users/me/My Work/shot.png"), p)

	p, ok = DecodeFileURI("FILE://localhost/tmp/a.png")
	assert.True(t, ok)
	assert.Equal(t, filepath.FromSlash("/tmp/a.png"), p)

	_, ok = DecodeFileURI("/tmp/a.png")
	assert.False(t, ok)
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"":                           "",
		"file:///a/Other.folio/":     "/a/Other.folio",
		"/a/Other%20Project.folio//": "/a/Other Project.folio",
		"  /a/b  ":                   "/a/b",
		"/":                          "/",
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), "Normalize(%q)", in)
	}
}

func TestIsRemoteURL(t *testing.T) {
	assert.True(t, IsRemoteURL("https://cdn.example.com/x.png"))
	assert.True(t, IsRemoteURL(" HTTP://x"))
	assert.False(t, IsRemoteURL("file:///x"))
	assert.False(t, IsRemoteURL("/projects/x"))
}

func TestIgnoreSet(t *testing.T) {
	s := NewIgnoreSet()
	assert.True(t, s.Skip("node_modules"))
	assert.True(t, s.Skip(".cache"))
	assert.True(t, s.Skip("public"))
	assert.False(t, s.Skip("Projects"))
	assert.False(t, s.Skip("."))

	custom := NewIgnoreSet("drafts")
	assert.True(t, custom.Skip("drafts"))
	assert.False(t, custom.Skip("node_modules"))
}

func TestIsLocalPath(t *testing.T) {
	existing := t.TempDir()
	cases := map[string]bool{
		"/Users/someone/Pictures/pic.png": true,
		"/home/me/work/a.png":             true,
		"/Volumes/Drive/a.mov":            true,
		`C:\Users\me\a.png`:               true,
		"d:/shots/a.png":                  true,
		`\\nas\share\a.png`:               true,
		existing:                          true,
		"/projects/beta":                  false,
		"/press":                          false,
		"//cdn.example.com/a.png":         false,
		"https://example.com/a.png":       false,
		"a.png":                           false,
		"":                                false,
	}
	for in, want := range cases {
		assert.Equal(t, want, IsLocalPath(in), in)
	}
}
