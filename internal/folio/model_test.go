package folio

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssetRefForms(t *testing.T) {
	var bare, obj, app AssetRef
	require.NoError(t, json.Unmarshal([]byte(`"media/a.png"`), &bare))
	require.NoError(t, json.Unmarshal([]byte(`{"id":"x","path":"b.png"}`), &obj))
	require.NoError(t, json.Unmarshal([]byte(`{"pathToEdited":"e.mov","pathToOriginal":"o.mov"}`), &app))

	assert.Equal(t, "media/a.png", bare.Hint())
	assert.Equal(t, "x", obj.ID)
	assert.Equal(t, []string{"e.mov", "o.mov"}, app.Candidates())

	app.Published = "e.mov"
	out, err := json.Marshal(app)
	require.NoError(t, err)
	assert.JSONEq(t, `"e.mov"`, string(out))

	var bad AssetRef
	assert.Error(t, json.Unmarshal([]byte(`42`), &bad))
}

func TestProjectPassthrough(t *testing.T) {
	src := `{
		"title": "Alpha <beta>",
		"isPublic": true,
		"tags": ["a", "b"],
		"images": {"hero": "hero.png"},
		"resources": [{"type": "local-download", "url": "brief.pdf", "size": 12}],
		"collection": {
			"shots": {"label": "Shots", "items": [{"type": "image", "filePath": "a.png", "note": 1}]},
			"legacy": [{"filePath": {"path": "b.png"}}, "junk"]
		},
		"weird": {"nested": [1, 2, 3]}
	}`
	var p Project
	require.NoError(t, json.Unmarshal([]byte(src), &p))

	assert.Equal(t, "Alpha <beta>", p.Title)
	require.NotNil(t, p.IsPublic)
	assert.True(t, *p.IsPublic)
	assert.Equal(t, []string{"tags", "weird"}, p.Extra.Keys())
	require.Len(t, p.Resources, 1)
	assert.Contains(t, p.Resources[0].Extra, "size")

	require.Contains(t, p.Collection, "legacy")
	assert.True(t, p.Collection["legacy"].Legacy)
	assert.Len(t, p.Collection["legacy"].Items, 1, "non-object elements are ignored")
	assert.Equal(t, "Shots", p.Collection["shots"].Label)

	out, err := encodeJSON(p)
	require.NoError(t, err)
	assert.Contains(t, string(out), "Alpha <beta>", "HTML is not escaped")

	var round map[string]any
	require.NoError(t, json.Unmarshal(out, &round))
	assert.Equal(t, []any{"a", "b"}, round["tags"])
	coll := round["collection"].(map[string]any)
	_, isArray := coll["legacy"].([]any)
	assert.True(t, isArray, "legacy collections keep their shape")
}

func TestWrongShapedKnownFieldSurvives(t *testing.T) {
	var p Project
	require.NoError(t, json.Unmarshal([]byte(`{"title":"T","images":["a.png"]}`), &p))
	assert.Nil(t, p.Images)
	assert.Contains(t, p.Extra, "images")

	out, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"T","images":["a.png"]}`, string(out))
}

func TestVisible(t *testing.T) {
	yes, no := true, false
	public, private := "public", "private"
	cases := []struct {
		name string
		p    Project
		want bool
	}{
		{"no gate fields", Project{}, true},
		{"isPublic true", Project{IsPublic: &yes}, true},
		{"isPublic false", Project{IsPublic: &no}, false},
		{"visibility public", Project{Visibility: &public}, true},
		{"visibility private", Project{Visibility: &private}, false},
		{"public flag but private visibility", Project{IsPublic: &yes, Visibility: &private}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, reason := tc.p.Visible()
			assert.Equal(t, tc.want, got)
			if !got {
				assert.NotEmpty(t, reason)
			}
		})
	}
}

func TestResourceCrossReference(t *testing.T) {
	assert.True(t, (&Resource{Type: "Folio"}).IsCrossReference())
	assert.True(t, (&Resource{Category: "FOLIO"}).IsCrossReference())
	assert.True(t, (&Resource{Type: "cross-reference"}).IsCrossReference())
	assert.True(t, (&Resource{Type: " Cross-Reference "}).IsCrossReference())
	assert.True(t, (&Resource{Type: "link", Category: "cross-reference"}).IsCrossReference())
	assert.False(t, (&Resource{Type: "local-download"}).IsCrossReference())
	assert.False(t, (&Resource{Type: "image", Category: "gallery"}).IsCrossReference())
	assert.False(t, (&Resource{}).IsCrossReference())
}
