// Package crossref rewrites links between projects into site-relative
// project URLs.
package crossref

import (
	"log/slog"
	"slices"

	"git.home.luguber.info/inful/foliobuilder/internal/folio"
	"git.home.luguber.info/inful/foliobuilder/internal/fspath"
	"git.home.luguber.info/inful/foliobuilder/internal/logfields"
	"git.home.luguber.info/inful/foliobuilder/internal/media"
)

// Resolver maps package paths to project ids.
type Resolver struct {
	lookup    map[string]string
	urlPrefix string
	issues    *folio.Issues
	logger    *slog.Logger
}

// NewResolver indexes the published projects by their declared package path
// and discovered location. urlPrefix is the site path of the published tree.
func NewResolver(projects []*folio.Project, urlPrefix string, issues *folio.Issues, logger *slog.Logger) *Resolver {
	if issues == nil {
		issues = folio.NewIssues(logger)
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Resolver{lookup: make(map[string]string), urlPrefix: urlPrefix, issues: issues, logger: logger}
	for _, p := range projects {
		location := p.Package
		if location == "" {
			location = p.Source
		}
		for _, key := range []string{p.FilePath, location} {
			r.add(key, p.ID)
		}
	}
	return r
}

func (r *Resolver) add(path, id string) {
	key := fspath.Normalize(path)
	if key == "" || id == "" {
		return
	}
	if prev, ok := r.lookup[key]; ok && prev != id {
		r.logger.Warn("Package path claimed by two projects", logfields.Path(key), logfields.Project(prev), slog.String("other", id))
		return
	}
	r.lookup[key] = id
}

// Lookup returns the project id a cross-reference target points at.
func (r *Resolver) Lookup(target string) (string, bool) {
	key := fspath.Normalize(target)
	if key == "" {
		return "", false
	}
	id, ok := r.lookup[key]
	return id, ok
}

// URL returns the site URL of a project page.
func (r *Resolver) URL(id string) string { return r.urlPrefix + "/" + id }

// Resolve rewrites every cross reference inside p. Unresolvable references
// are removed and recorded.
func (r *Resolver) Resolve(p *folio.Project) {
	p.Resources = r.resources(p.ID, p.Resources)
	names := make([]string, 0, len(p.Collection))
	for name := range p.Collection {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		c := p.Collection[name]
		if c == nil {
			continue
		}
		c.Resources = r.resources(p.ID, c.Resources)
		for _, it := range c.Items {
			r.item(p.ID, it)
		}
	}
}

func (r *Resolver) resources(project string, in []folio.Resource) []folio.Resource {
	if in == nil {
		return nil
	}
	out := in[:0]
	for _, res := range in {
		if res.IsCrossReference() && !r.rewrite(project, &res) {
			continue
		}
		out = append(out, res)
	}
	return out
}

func (r *Resolver) rewrite(project string, res *folio.Resource) bool {
	id, ok := r.Lookup(res.URL)
	if !ok {
		r.miss(project, res.URL)
		return false
	}
	res.URL = r.URL(id)
	res.Type = string(media.KindLocalLink)
	return true
}

// item resolves the references of a collection item. A resolved item-level
// resource also becomes the item's link target. Items without a url only
// resolve through their resource and are never reported.
func (r *Resolver) item(project string, it *folio.Item) {
	it.Resources = r.resources(project, it.Resources)
	resolved := ""
	if it.Resource != nil && it.Resource.IsCrossReference() {
		if r.rewrite(project, it.Resource) {
			resolved = it.Resource.URL
		} else {
			it.Resource = nil
		}
	}
	if it.Type != string(media.KindCrossReference) {
		if resolved != "" && it.URL != "" {
			it.URL = resolved
		}
		return
	}
	if it.URL != "" {
		if id, ok := r.Lookup(it.URL); ok {
			it.URL = r.URL(id)
			it.Type = string(media.KindLocalLink)
			return
		}
		r.miss(project, it.URL)
		it.URL = ""
	}
	if resolved != "" {
		it.URL = resolved
		it.Type = string(media.KindLocalLink)
	}
}

func (r *Resolver) miss(project, target string) {
	r.issues.Add(folio.Issue{
		Kind:    folio.IssueUnresolvedCrossRef,
		Project: project,
		Subject: target,
		Detail:  "Unresolved cross reference",
	})
}
