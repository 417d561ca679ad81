package assets

import (
	"path"
	"path/filepath"
	"slices"
	"strings"

	"git.home.luguber.info/inful/foliobuilder/internal/folio"
	"git.home.luguber.info/inful/foliobuilder/internal/locate"
	"git.home.luguber.info/inful/foliobuilder/internal/media"
)

const (
	typeLocalDownload = "local-download"
	typeLocalLink     = "local-link"
	thumbnailSlot     = "thumbnail"
)

// Dest is a directory inside the published tree together with the site URL
// it is served from.
type Dest struct {
	Dir string
	URL string
}

// Join descends into a child directory.
func (d Dest) Join(elem ...string) Dest {
	return Dest{
		Dir: filepath.Join(append([]string{d.Dir}, elem...)...),
		URL: path.Join(append([]string{d.URL}, elem...)...),
	}
}

// Processor rewrites the asset slots of a record into a destination.
type Processor struct {
	copier     *Copier
	table      *media.Table
	issues     *folio.Issues
	searchRoot string
}

// NewProcessor returns a Processor. searchRoot bounds the recursive fallback
// search for moved files.
func NewProcessor(c *Copier, table *media.Table, issues *folio.Issues, searchRoot string) *Processor {
	if table == nil {
		table = media.DefaultTable
	}
	if issues == nil {
		issues = folio.NewIssues(nil)
	}
	return &Processor{copier: c, table: table, issues: issues, searchRoot: searchRoot}
}

// Copier returns the underlying copier.
func (p *Processor) Copier() *Copier { return p.copier }

// SearchRoot returns the root of the recursive fallback search.
func (p *Processor) SearchRoot() string { return p.searchRoot }

// Issues returns the collector findings are recorded into.
func (p *Processor) Issues() *folio.Issues { return p.issues }

// Project processes the record-level images and resources into dest.
func (p *Processor) Project(pr *folio.Project, dest Dest) {
	id := pr.ID
	pr.Images = p.Images(id, pr.Images, pr.BaseDir, dest)
	if _, ok := pr.Images[thumbnailSlot]; !ok {
		if name, ok := p.fallbackThumbnail(pr, dest); ok {
			if pr.Images == nil {
				pr.Images = map[string]folio.AssetRef{}
			}
			pr.Images[thumbnailSlot] = folio.AssetRef{Path: name, Published: name}
		} else {
			p.issues.Add(folio.Issue{Kind: folio.IssueMissingThumbnail, Project: id, Subject: pr.Source, Detail: "Project has no thumbnail"})
		}
	}
	pr.Resources = p.Resources(id, pr.Resources, pr.BaseDir, dest)
}

// Images copies every slot of an images map. External URLs are kept as-is;
// slots that cannot be resolved are removed.
func (p *Processor) Images(project string, images map[string]folio.AssetRef, baseDir string, dest Dest) map[string]folio.AssetRef {
	if images == nil {
		return nil
	}
	class := p.table.Exts(media.KindImage)
	out := make(map[string]folio.AssetRef, len(images))
	for _, slot := range sortedKeys(images) {
		ref := images[slot]
		if ref.IsZero() {
			continue
		}
		if ref.IsRemote() {
			out[slot] = folio.AssetRef{Path: ref.Hint()}
			continue
		}
		name, err := p.copier.CopyFirst(ref.Candidates(), baseDir, p.searchRoot, dest.Dir, class)
		if err != nil {
			p.issues.Add(folio.Issue{Kind: folio.IssueAssetSkipped, Project: project, Subject: ref.Hint(), Detail: "Image slot " + slot + " skipped: " + err.Error()})
			continue
		}
		ref.Published = name
		out[slot] = ref
	}
	return out
}

// fallbackThumbnail looks for a thumbnail.* image next to the document.
func (p *Processor) fallbackThumbnail(pr *folio.Project, dest Dest) (string, bool) {
	class := p.table.Exts(media.KindImage)
	dirs := []string{pr.Dir}
	if pr.BaseDir != "" && pr.BaseDir != pr.Dir {
		dirs = append(dirs, pr.BaseDir)
	}
	for _, dir := range dirs {
		src, ok := locate.BySiblingStem(locate.Query{Ref: thumbnailSlot, BaseDir: dir, Class: class})
		if !ok || !class.Allows(filepath.Ext(src)) {
			continue
		}
		name, err := p.copier.CopyFile(src, dest.Dir)
		if err != nil {
			p.issues.Add(folio.Issue{Kind: folio.IssueAssetSkipped, Project: pr.ID, Subject: src, Detail: "Thumbnail fallback skipped: " + err.Error()})
			continue
		}
		return name, true
	}
	return "", false
}

// Resources applies the resource rules: local downloads are copied and their
// url rewritten under dest.URL, local links get a site-relative url, cross
// references and everything else pass through unchanged.
func (p *Processor) Resources(project string, resources []folio.Resource, baseDir string, dest Dest) []folio.Resource {
	if resources == nil {
		return nil
	}
	out := make([]folio.Resource, 0, len(resources))
	for _, r := range resources {
		keep := true
		switch {
		case r.IsCrossReference():
		case normalizeLocalLink(&r):
			if r.URL == "" {
				p.issues.Add(folio.Issue{Kind: folio.IssueAssetSkipped, Project: project, Subject: r.Label, Detail: "Local link without a path dropped"})
				keep = false
			}
		case strings.EqualFold(strings.TrimSpace(r.Type), typeLocalDownload):
			keep = p.download(project, &r, baseDir, dest)
		}
		if keep {
			out = append(out, r)
		}
	}
	return out
}

func (p *Processor) download(project string, r *folio.Resource, baseDir string, dest Dest) bool {
	ref := strings.TrimSpace(r.URL)
	if ref == "" {
		p.issues.Add(folio.Issue{Kind: folio.IssueAssetSkipped, Project: project, Subject: r.Label, Detail: "Download without a file dropped"})
		return false
	}
	if folio.Ref(ref).IsRemote() {
		return true
	}
	name, err := p.copier.Copy(ref, baseDir, p.searchRoot, dest.Dir, nil)
	if err != nil {
		p.issues.Add(folio.Issue{Kind: folio.IssueAssetSkipped, Project: project, Subject: ref, Detail: "Download skipped: " + err.Error()})
		return false
	}
	r.URL = dest.URL + "/" + name
	return true
}

// normalizeLocalLink rewrites "local-link" resources, including the
// "local-link:/path" shorthand in either type or url. It reports whether r
// was a local link.
func normalizeLocalLink(r *folio.Resource) bool {
	const prefix = typeLocalLink + ":"
	t := strings.TrimSpace(r.Type)
	switch {
	case strings.HasPrefix(strings.ToLower(t), prefix):
		target := strings.TrimSpace(t[len(prefix):])
		if target == "" {
			target = r.URL
		}
		r.Type = typeLocalLink
		r.URL = sitePath(target)
	case strings.EqualFold(t, typeLocalLink):
		r.Type = typeLocalLink
		r.URL = sitePath(strings.TrimPrefix(strings.TrimSpace(r.URL), prefix))
	case strings.HasPrefix(strings.ToLower(strings.TrimSpace(r.URL)), prefix):
		r.Type = typeLocalLink
		r.URL = sitePath(strings.TrimSpace(r.URL)[len(prefix):])
	default:
		return false
	}
	return true
}

func sitePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || folio.Ref(p).IsRemote() || strings.HasPrefix(p, "/") {
		return p
	}
	return "/" + p
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
