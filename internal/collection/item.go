package collection

import (
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/foliobuilder/internal/assets"
	"git.home.luguber.info/inful/foliobuilder/internal/folio"
	"git.home.luguber.info/inful/foliobuilder/internal/fspath"
	"git.home.luguber.info/inful/foliobuilder/internal/logfields"
	"git.home.luguber.info/inful/foliobuilder/internal/media"
)

func (p *Processor) processItem(pr *folio.Project, collection string, it *folio.Item, dest assets.Dest) {
	table := p.classifier.Table()
	issues := p.assets.Issues()
	declared := strings.TrimSpace(it.Type)
	declaredKind, accepted := p.classifier.FromDeclared(declared)
	kind := p.classifier.Classify(declared, itemHint(it))

	if !it.FilePath.IsZero() && !it.FilePath.IsRemote() {
		class := table.Exts(kind)
		if !accepted || len(class) == 0 {
			class = nil
		}
		name, err := p.assets.Copier().CopyFirst(it.FilePath.Candidates(), pr.BaseDir, p.assets.SearchRoot(), dest.Dir, class)
		if err != nil {
			issues.Add(folio.Issue{
				Kind:    folio.IssueAssetSkipped,
				Project: pr.ID,
				Subject: it.FilePath.Hint(),
				Detail:  "Item file skipped in " + collection + "/" + it.ID + ": " + err.Error(),
			})
			it.FilePath = nil
		} else {
			it.FilePath.Published = name
		}
	} else if it.FilePath.IsZero() {
		it.FilePath = nil
	}

	if !it.Thumbnail.IsZero() && !it.Thumbnail.IsRemote() {
		class := table.Exts(media.KindImage, media.KindVideo)
		name, err := p.assets.Copier().CopyFirst(it.Thumbnail.Candidates(), pr.BaseDir, p.assets.SearchRoot(), dest.Dir, class)
		if err != nil {
			issues.Add(folio.Issue{
				Kind:    folio.IssueAssetSkipped,
				Project: pr.ID,
				Subject: it.Thumbnail.Hint(),
				Detail:  "Item thumbnail skipped in " + collection + "/" + it.ID + ": " + err.Error(),
			})
			it.Thumbnail = nil
		} else {
			it.Thumbnail.Published = name
		}
	} else if it.Thumbnail.IsZero() {
		it.Thumbnail = nil
	}

	kind = p.settleKind(pr, collection, it, declared, declaredKind, accepted, kind)
	it.Type = string(kind)
	if !fspath.IsRemoteURL(it.Path) {
		// Classification hint only; it names a source location.
		it.Path = ""
	}

	it.Images = p.assets.Images(pr.ID, it.Images, pr.BaseDir, dest)
	it.Resources = p.assets.Resources(pr.ID, it.Resources, pr.BaseDir, dest)
	if it.Resource != nil && !it.Resource.IsCrossReference() {
		if out := p.assets.Resources(pr.ID, []folio.Resource{*it.Resource}, pr.BaseDir, dest); len(out) == 1 {
			it.Resource = &out[0]
		} else {
			it.Resource = nil
		}
	}
}

// settleKind decides the final item type once the main file is resolved. A
// recognized declared type always wins; otherwise the type is derived from
// the resolved filename.
func (p *Processor) settleKind(pr *folio.Project, collection string, it *folio.Item, declared string, declaredKind media.Kind, accepted bool, kind media.Kind) media.Kind {
	var resolved string
	if it.FilePath != nil && it.FilePath.Published != "" {
		resolved = it.FilePath.Published
	}
	derived, derivedOK := media.Kind(""), false
	if resolved != "" {
		derived, derivedOK = p.classifier.FromHint(resolved)
	}

	if accepted {
		if derivedOK && derived != declaredKind && declaredKind != media.KindCrossReference && declaredKind != media.KindURLLink {
			p.logger.Warn("Declared item type does not match its file",
				logfields.Project(pr.ID),
				logfields.Collection(collection),
				logfields.Item(it.ID),
				logfields.Kind(string(declaredKind)),
				logfields.File(filepath.Base(resolved)))
		}
		return declaredKind
	}

	final := kind
	if derivedOK {
		final = derived
	}
	if declared != "" && !p.classifier.Table().IsPlaceholder(declared) {
		p.assets.Issues().Add(folio.Issue{
			Kind:    folio.IssueReclassified,
			Project: pr.ID,
			Subject: collection + "/" + it.ID,
			Detail:  "Item type " + declared + " reclassified as " + string(final),
		})
	}
	return final
}

// itemHint is the path used to classify an item: its main file, else its
// thumbnail, else the legacy path or url fields.
func itemHint(it *folio.Item) string {
	for _, h := range []string{it.FilePath.Hint(), it.Thumbnail.Hint(), it.Path, it.URL} {
		if strings.TrimSpace(h) != "" {
			return h
		}
	}
	return ""
}
