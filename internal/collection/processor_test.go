package collection

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/foliobuilder/internal/assets"
	"git.home.luguber.info/inful/foliobuilder/internal/folio"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func setup(t *testing.T, doc string) (*folio.Project, *Processor, *folio.Issues, assets.Dest) {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "Alpha.folio")
	for _, f := range []string{"a.png", "clip.mp4", "clip_thumb.jpg", "model.glb", "notes.pdf", "score.flac"} {
		writeFile(t, filepath.Join(dir, f))
	}
	var pr folio.Project
	require.NoError(t, json.Unmarshal([]byte(doc), &pr))
	pr.ID = "alpha"
	pr.Dir = dir
	pr.BaseDir = dir

	issues := folio.NewIssues(nil)
	ap := assets.NewProcessor(assets.NewCopier(nil), nil, issues, root)
	dest := assets.Dest{Dir: filepath.Join(t.TempDir(), "alpha_x"), URL: "/projects/alpha_x"}
	return &pr, New(ap, nil, 2, nil), issues, dest
}

func TestProcessItems(t *testing.T) {
	pr, p, issues, dest := setup(t, `{
		"collection": {
			"shots": {"items": [
				{"label": "First Shot", "type": "image", "filePath": "a.png"},
				{"label": "First Shot", "filePath": {"pathToEdited": "clip.mp4"}, "thumbnail": "clip_thumb.jpg"},
				{"type": "sketch", "filePath": "model.glb"},
				{"type": "File", "filePath": {"path": "notes.pdf"}},
				{"type": "audio", "filePath": "missing.wav"},
				{"id": "../escape", "type": "mov", "filePath": "clip.mp4"}
			]},
			"legacy": [{"filePath": "score.flac"}]
		}
	}`)
	require.NoError(t, p.Process(context.Background(), pr, dest))

	items := pr.Collection["shots"].Items
	require.Len(t, items, 6)

	assert.Equal(t, "first_shot", items[0].ID)
	assert.Equal(t, "image", items[0].Type)
	assert.Equal(t, "a.png", items[0].FilePath.Published)
	assert.FileExists(t, filepath.Join(dest.Dir, "shots", "first_shot", "a.png"))

	assert.Regexp(t, `^first_shot_[0-9a-f]{8}$`, items[1].ID, "colliding ids are regenerated")
	assert.Equal(t, "video", items[1].Type)
	assert.Equal(t, "clip_thumb.jpg", items[1].Thumbnail.Published)
	assert.FileExists(t, filepath.Join(dest.Dir, "shots", items[1].ID, "clip_thumb.jpg"))

	assert.Equal(t, "3d-model", items[2].Type, "unrecognized type reclassified from the file")
	assert.Equal(t, "text", items[3].Type, "placeholder type derived from the file")

	assert.Equal(t, "audio", items[4].Type)
	assert.Nil(t, items[4].FilePath, "unresolved file slot is unset")

	assert.Equal(t, "escape", items[5].ID)
	assert.Equal(t, "video", items[5].Type)

	legacy := pr.Collection["legacy"]
	assert.True(t, legacy.Legacy)
	assert.Equal(t, "audio", legacy.Items[0].Type)
	assert.FileExists(t, filepath.Join(dest.Dir, "legacy", legacy.Items[0].ID, "score.flac"))

	assert.Regexp(t, `^shots_[0-9a-f]{8}$`, pr.Collection["shots"].ID)
	assert.Equal(t, 1, issues.Count(folio.IssueReclassified))
	assert.Equal(t, 1, issues.Count(folio.IssueAssetSkipped))

	for _, it := range items {
		assert.Contains(t, []string{"image", "video", "3d-model", "game", "text", "audio", "url-link", "cross-reference"}, it.Type)
	}
}

func TestProcessItemResources(t *testing.T) {
	pr, p, _, dest := setup(t, `{
		"collection": {"docs": {"items": [{
			"label": "Paper",
			"type": "text",
			"filePath": "notes.pdf",
			"resources": [{"type": "local-download", "url": "notes.pdf"}],
			"resource": {"type": "local-link", "url": "about"}
		}, {
			"label": "Other",
			"type": "Folio",
			"url": "/x/Other.folio",
			"resource": {"type": "folio", "url": "/x/Other.folio"}
		}]}}
	}`)
	require.NoError(t, p.Process(context.Background(), pr, dest))
	items := pr.Collection["docs"].Items
	assert.Equal(t, "/projects/alpha_x/docs/paper/notes.pdf", items[0].Resources[0].URL)
	assert.Equal(t, "/about", items[0].Resource.URL)
	assert.Equal(t, "cross-reference", items[1].Type)
	assert.Equal(t, "folio", items[1].Resource.Type)
}

func TestAssignItemIDs(t *testing.T) {
	items := []*folio.Item{{ID: "a"}, {ID: "a"}, {Label: "A"}, {}, {}}
	AssignItemIDs(items, "/projects/p/c")
	seen := map[string]bool{}
	for _, it := range items {
		assert.False(t, seen[it.ID], "duplicate id %s", it.ID)
		seen[it.ID] = true
	}
	assert.Equal(t, "a", items[0].ID)
	assert.Equal(t, "item", items[3].ID)
}

func TestProcessCancelled(t *testing.T) {
	pr, p, _, dest := setup(t, `{"collection": {"c": {"items": [{"filePath": "a.png"}]}}}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Process(ctx, pr, dest), context.Canceled)
}

func TestProcessClearsLegacyPath(t *testing.T) {
	pr, p, _, dest := setup(t, `{
		"collection": {"shots": {"items": [
			{"path": "/Users/someone/Pictures/pic.png"},
			{"type": "image", "path": "https://cdn.example.com/pic.png"}
		]}}
	}`)
	require.NoError(t, p.Process(context.Background(), pr, dest))

	items := pr.Collection["shots"].Items
	require.Len(t, items, 2)
	assert.Equal(t, "image", items[0].Type, "legacy path still classifies")
	assert.Empty(t, items[0].Path)
	assert.Equal(t, "https://cdn.example.com/pic.png", items[1].Path)
}
