package folio

import (
	"encoding/json"
	"errors"
	"strings"

	"git.home.luguber.info/inful/foliobuilder/internal/fspath"
	"git.home.luguber.info/inful/foliobuilder/internal/media"
)

var errNotObject = errors.New("not a JSON object")

// AssetRef is an authored asset reference: a bare path, an {id, path}
// object, or the {pathToEdited, pathToOriginal} form written by the Folio
// app. Once resolved it serialises as the bare published filename.
type AssetRef struct {
	ID             string
	Path           string
	PathToEdited   string
	PathToOriginal string

	// Published is the flattened filename inside the published tree.
	Published string
}

// Ref builds a bare path reference.
func Ref(path string) *AssetRef { return &AssetRef{Path: path} }

func (r *AssetRef) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*r = AssetRef{Path: s}
		return nil
	}
	var o struct {
		ID             string `json:"id"`
		Path           string `json:"path"`
		PathToEdited   string `json:"pathToEdited"`
		PathToOriginal string `json:"pathToOriginal"`
	}
	if err := json.Unmarshal(data, &o); err != nil {
		return err
	}
	*r = AssetRef{ID: o.ID, Path: o.Path, PathToEdited: o.PathToEdited, PathToOriginal: o.PathToOriginal}
	return nil
}

func (r AssetRef) MarshalJSON() ([]byte, error) {
	if r.Published != "" {
		return encodeJSON(r.Published)
	}
	return encodeJSON(r.Hint())
}

// Candidates lists the authored paths in preference order, without blanks
// or duplicates.
func (r *AssetRef) Candidates() []string {
	if r == nil {
		return nil
	}
	var out []string
	for _, p := range []string{r.Path, r.PathToEdited, r.PathToOriginal} {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		dup := false
		for _, seen := range out {
			if seen == p {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, p)
		}
	}
	return out
}

// Hint is the first authored path, used for classification.
func (r *AssetRef) Hint() string {
	if c := r.Candidates(); len(c) > 0 {
		return c[0]
	}
	return ""
}

// IsZero reports whether the reference names no path at all.
func (r *AssetRef) IsZero() bool { return r == nil || len(r.Candidates()) == 0 }

// IsRemote reports whether the reference is an external URL kept verbatim.
func (r *AssetRef) IsRemote() bool { return fspath.IsRemoteURL(r.Hint()) }

// Resource is a downloadable or linkable attachment.
type Resource struct {
	Type     string
	URL      string
	Category string
	Label    string
	Extra    Extra
}

func (res *Resource) UnmarshalJSON(data []byte) error {
	o, err := decodeObject(data)
	if err != nil {
		return err
	}
	*res = Resource{}
	o.take("type", &res.Type)
	o.take("url", &res.URL)
	o.take("category", &res.Category)
	o.take("label", &res.Label)
	res.Extra = o.rest()
	return nil
}

func (res Resource) MarshalJSON() ([]byte, error) {
	f := fields{}
	f.str("type", res.Type)
	f.str("url", res.URL)
	f.str("category", res.Category)
	f.str("label", res.Label)
	return f.encode(res.Extra)
}

// IsCrossReference reports whether the resource points at another project.
// Either the type or the category may carry the kind ("folio" or
// "cross-reference").
func (res *Resource) IsCrossReference() bool {
	return isCrossReferenceLabel(res.Type) || isCrossReferenceLabel(res.Category)
}

func isCrossReferenceLabel(label string) bool {
	k, ok := media.DefaultTable.Synonym(label)
	return ok && k == media.KindCrossReference
}

// Item is one entry of a collection.
type Item struct {
	ID        string
	Label     string
	Type      string
	FilePath  *AssetRef
	Thumbnail *AssetRef
	URL       string
	Path      string // legacy location hint, classification only
	Images    map[string]AssetRef
	Resources []Resource
	Resource  *Resource
	Extra     Extra
}

func (it *Item) UnmarshalJSON(data []byte) error {
	o, err := decodeObject(data)
	if err != nil {
		return err
	}
	*it = Item{}
	o.take("id", &it.ID)
	o.take("label", &it.Label)
	o.take("type", &it.Type)
	o.take("filePath", &it.FilePath)
	o.take("thumbnail", &it.Thumbnail)
	o.take("url", &it.URL)
	o.take("path", &it.Path)
	o.take("images", &it.Images)
	o.take("resources", &it.Resources)
	o.take("resource", &it.Resource)
	it.Extra = o.rest()
	return nil
}

func (it Item) MarshalJSON() ([]byte, error) {
	f := fields{}
	f.str("id", it.ID)
	f.str("label", it.Label)
	f.str("type", it.Type)
	f.set("filePath", it.FilePath, it.FilePath != nil)
	f.set("thumbnail", it.Thumbnail, it.Thumbnail != nil)
	f.str("url", it.URL)
	f.str("path", it.Path)
	f.set("images", it.Images, it.Images != nil)
	f.set("resources", it.Resources, it.Resources != nil)
	f.set("resource", it.Resource, it.Resource != nil)
	return f.encode(it.Extra)
}

// Collection is a named group of items inside a project. Legacy collections
// were authored as a bare array of items and are written back the same way.
type Collection struct {
	ID        string
	Label     string
	Images    map[string]AssetRef
	Resources []Resource
	Items     []*Item
	Legacy    bool
	Extra     Extra
}

func (c *Collection) UnmarshalJSON(data []byte) error {
	*c = Collection{}
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		c.Legacy = true
		c.Items = decodeItems(raw)
		return nil
	}
	o, err := decodeObject(data)
	if err != nil {
		return err
	}
	o.take("id", &c.ID)
	o.take("label", &c.Label)
	o.take("images", &c.Images)
	o.take("resources", &c.Resources)
	var raw []json.RawMessage
	if o.take("items", &raw) {
		c.Items = decodeItems(raw)
		if c.Items == nil {
			c.Items = []*Item{}
		}
	}
	c.Extra = o.rest()
	return nil
}

func (c Collection) MarshalJSON() ([]byte, error) {
	items := c.Items
	if items == nil && c.Legacy {
		items = []*Item{}
	}
	if c.Legacy {
		return encodeJSON(items)
	}
	f := fields{}
	f.str("id", c.ID)
	f.str("label", c.Label)
	f.set("images", c.Images, c.Images != nil)
	f.set("resources", c.Resources, c.Resources != nil)
	f.set("items", items, items != nil)
	return f.encode(c.Extra)
}

// decodeItems keeps the object elements of a JSON array.
func decodeItems(raw []json.RawMessage) []*Item {
	var out []*Item
	for _, r := range raw {
		it := &Item{}
		if err := json.Unmarshal(r, it); err != nil {
			continue
		}
		out = append(out, it)
	}
	return out
}

// Project is one project description record.
type Project struct {
	ID           string
	Title        string
	Name         string
	Domain       string
	FolderName   string
	Summary      string
	IsPublic     *bool
	Visibility   *string
	FilePath     string
	AssetsFolder json.RawMessage
	Images       map[string]AssetRef
	Resources    []Resource
	Collection   map[string]*Collection
	Extra        Extra

	// Source is the document file the record was read from.
	Source string

	// Dir is the directory holding Source.
	Dir string

	// Package is the discovered .folio package directory, if any.
	Package string

	// BaseDir is the root relative asset paths resolve against. It is never
	// serialised.
	BaseDir string

	// Index is the position of the record inside its document.
	Index int
}

func (p *Project) UnmarshalJSON(data []byte) error {
	if t := strings.TrimSpace(string(data)); !strings.HasPrefix(t, "{") {
		return errNotObject
	}
	o, err := decodeObject(data)
	if err != nil {
		return err
	}
	*p = Project{}
	o.take("id", &p.ID)
	o.take("title", &p.Title)
	o.take("name", &p.Name)
	o.take("domain", &p.Domain)
	o.take("folderName", &p.FolderName)
	o.take("summary", &p.Summary)
	o.take("isPublic", &p.IsPublic)
	o.take("visibility", &p.Visibility)
	o.take("filePath", &p.FilePath)
	if raw, ok := o["assetsFolder"]; ok {
		p.AssetsFolder = raw
		delete(o, "assetsFolder")
	}
	o.take("images", &p.Images)
	o.take("resources", &p.Resources)
	o.take("collection", &p.Collection)
	p.Extra = o.rest()
	return nil
}

func (p Project) MarshalJSON() ([]byte, error) {
	f := fields{}
	f.str("id", p.ID)
	f.str("title", p.Title)
	f.str("name", p.Name)
	f.str("domain", p.Domain)
	f.str("folderName", p.FolderName)
	f.str("summary", p.Summary)
	f.set("isPublic", p.IsPublic, p.IsPublic != nil)
	f.set("visibility", p.Visibility, p.Visibility != nil)
	f.str("filePath", p.FilePath)
	f.set("assetsFolder", p.AssetsFolder, len(p.AssetsFolder) > 0)
	f.set("images", p.Images, p.Images != nil)
	f.set("resources", p.Resources, p.Resources != nil)
	f.set("collection", p.Collection, p.Collection != nil)
	return f.encode(p.Extra)
}

// DisplayName is the best human label for logs and reports.
func (p *Project) DisplayName() string {
	for _, s := range []string{p.Title, p.Name, p.ID} {
		if s != "" {
			return s
		}
	}
	return p.Source
}

// Visible applies the visibility gate. The reason names the field that
// excluded the record.
func (p *Project) Visible() (bool, string) {
	if p.IsPublic != nil && !*p.IsPublic {
		return false, "isPublic is false"
	}
	if p.Visibility != nil && *p.Visibility != "public" {
		return false, "visibility is " + *p.Visibility
	}
	return true, ""
}
