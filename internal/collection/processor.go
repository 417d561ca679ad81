// Package collection processes the nested collections of a project: ids,
// item classification and per-item asset copies.
package collection

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"git.home.luguber.info/inful/foliobuilder/internal/assets"
	"git.home.luguber.info/inful/foliobuilder/internal/folio"
	"git.home.luguber.info/inful/foliobuilder/internal/logfields"
	"git.home.luguber.info/inful/foliobuilder/internal/media"
)

// Processor walks the collections of a project.
type Processor struct {
	assets     *assets.Processor
	classifier *media.Classifier
	workers    int
	logger     *slog.Logger
}

// New returns a Processor copying through ap. workers bounds the number of
// items processed concurrently within one collection.
func New(ap *assets.Processor, classifier *media.Classifier, workers int, logger *slog.Logger) *Processor {
	if classifier == nil {
		classifier = media.Default
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{assets: ap, classifier: classifier, workers: workers, logger: logger}
}

// Process assigns ids to every collection and item of pr and copies their
// assets below dest, one directory per collection and item.
func (p *Processor) Process(ctx context.Context, pr *folio.Project, dest assets.Dest) error {
	names := make([]string, 0, len(pr.Collection))
	for name, c := range pr.Collection {
		if c != nil {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	collectionIDs := make(map[string]struct{})
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		c := pr.Collection[name]
		cdest := dest.Join(dirName(name))
		if !c.Legacy {
			c.ID = uniqueCollectionID(pr.ID, name, c.ID, cdest.URL, collectionIDs)
		}
		c.Images = p.assets.Images(pr.ID, c.Images, pr.BaseDir, cdest)
		c.Resources = p.assets.Resources(pr.ID, c.Resources, pr.BaseDir, cdest)

		c.Items = slices.DeleteFunc(c.Items, func(it *folio.Item) bool { return it == nil })
		AssignItemIDs(c.Items, cdest.URL)
		err := assets.ForEach(ctx, c.Items, p.workers, func(_ int, it *folio.Item) {
			p.processItem(pr, name, it, cdest.Join(it.ID))
		})
		if err != nil {
			return err
		}
		p.logger.Debug("Processed collection",
			logfields.Project(pr.ID),
			logfields.Collection(name),
			logfields.Count(len(c.Items)))
	}
	return nil
}

func uniqueCollectionID(projectID, name, declared, destPath string, used map[string]struct{}) string {
	id := strings.TrimSpace(declared)
	if id == "" {
		id = folio.UniqueID(name, projectID+"/"+name)
	}
	if _, taken := used[id]; taken {
		id = folio.UniqueID(name, destPath)
	}
	id = disambiguate(id, used)
	used[id] = struct{}{}
	return id
}

// AssignItemIDs gives every item an id that is unique within its collection
// and safe as a directory name. Unsafe ids are slugified, missing ids are
// derived from the item label (or type), and collisions are broken with a
// hash of the item's folder path under collectionPath.
func AssignItemIDs(items []*folio.Item, collectionPath string) {
	used := make(map[string]struct{}, len(items))
	for i, it := range items {
		id := strings.TrimSpace(it.ID)
		base := id
		if id != "" && !safeElem(id) {
			id = folio.Slugify(id)
		}
		if id == "" {
			base = it.Label
			if strings.TrimSpace(base) == "" {
				base = it.Type
			}
			if strings.TrimSpace(base) == "" {
				base = "item"
			}
			id = folio.Slugify(base)
		}
		if _, taken := used[id]; taken {
			id = folio.Slugify(base) + "_" + folio.ShortHash(fmt.Sprintf("%s/%d", collectionPath, i))
		}
		id = disambiguate(id, used)
		used[id] = struct{}{}
		it.ID = id
	}
}

func disambiguate(id string, used map[string]struct{}) string {
	if _, taken := used[id]; !taken {
		return id
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s_%d", id, n)
		if _, taken := used[candidate]; !taken {
			return candidate
		}
	}
}

// dirName maps a collection name to its directory. Names that are not a
// single safe path element are slugified.
func dirName(name string) string {
	if safeElem(name) {
		return name
	}
	return folio.Slugify(name)
}

func safeElem(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	return !strings.ContainsAny(s, `/\`)
}
