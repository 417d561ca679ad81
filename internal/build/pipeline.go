package build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"git.home.luguber.info/inful/foliobuilder/internal/assets"
	"git.home.luguber.info/inful/foliobuilder/internal/collection"
	"git.home.luguber.info/inful/foliobuilder/internal/crossref"
	"git.home.luguber.info/inful/foliobuilder/internal/folio"
	ferrors "git.home.luguber.info/inful/foliobuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/foliobuilder/internal/fspath"
	"git.home.luguber.info/inful/foliobuilder/internal/locate"
	"git.home.luguber.info/inful/foliobuilder/internal/logfields"
	"git.home.luguber.info/inful/foliobuilder/internal/manifest"
	"git.home.luguber.info/inful/foliobuilder/internal/media"
	"git.home.luguber.info/inful/foliobuilder/internal/metrics"
	"git.home.luguber.info/inful/foliobuilder/internal/observability"
)

// Stage names used for timings and metrics.
const (
	StageDiscover = "discover"
	StageLoad     = "load"
	StageAssets   = "assets"
	StageCrossRef = "crossref"
	StageManifest = "manifest"
)

// populate fills the temp root out from the documents below root. It returns
// an error only for failures that must roll the transaction back.
func (s *Service) populate(ctx context.Context, root, out string, report *Report, issues *folio.Issues) error {
	ignore := fspath.NewIgnoreSet(slices.Concat(fspath.DefaultIgnoreDirs, s.cfg.IgnoreDirs)...)

	var docs []folio.Document
	err := s.stage(ctx, report, StageDiscover, func(context.Context) error {
		var err error
		docs, err = folio.Discover(root, ignore)
		if err != nil {
			return ferrors.WrapError(fmt.Errorf("%w: %w", ErrDiscovery, err), ferrors.CategoryFileSystem, "document discovery failed").
				WithContext("root", root).
				Fatal().
				Build()
		}
		return nil
	})
	if err != nil {
		return err
	}
	report.Documents = len(docs)
	s.logger.InfoContext(ctx, "Documents discovered", logfields.Path(root), logfields.Count(len(docs)))

	var projects []*folio.Project
	err = s.stage(ctx, report, StageLoad, func(ctx context.Context) error {
		var err error
		projects, err = s.load(ctx, root, docs, issues)
		return err
	})
	if err != nil {
		return err
	}

	copier := assets.NewCopier(locate.New(ignore))
	ap := assets.NewProcessor(copier, media.DefaultTable, issues, root)
	cp := collection.New(ap, media.Default, s.cfg.CopyWorkers, s.logger)
	err = s.stage(ctx, report, StageAssets, func(ctx context.Context) error {
		for _, p := range projects {
			if err := ctx.Err(); err != nil {
				return err
			}
			dest := assets.Dest{
				Dir: filepath.Join(out, p.FolderName),
				URL: s.cfg.URLPrefix + "/" + p.FolderName,
			}
			if err := os.MkdirAll(dest.Dir, 0o755); err != nil {
				return ferrors.WrapError(err, ferrors.CategoryFileSystem, "create project directory").
					WithContext("path", dest.Dir).
					Fatal().
					Build()
			}
			ap.Project(p, dest)
			if err := cp.Process(ctx, p, dest); err != nil {
				return err
			}
			s.logger.DebugContext(ctx, "Project assets processed",
				logfields.Project(p.ID),
				logfields.Path(dest.Dir))
		}
		return nil
	})
	report.Files, report.Bytes = copier.Stats()
	if err != nil {
		return err
	}

	_ = s.stage(ctx, report, StageCrossRef, func(context.Context) error {
		resolver := crossref.NewResolver(projects, s.cfg.URLPrefix, issues, s.logger)
		for _, p := range projects {
			resolver.Resolve(p)
		}
		return nil
	})

	return s.stage(ctx, report, StageManifest, func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		m, err := manifest.New(projects)
		if err != nil {
			return ferrors.WrapError(fmt.Errorf("%w: %w", ErrManifest, err), ferrors.CategoryInternal, "manifest could not be rendered").Build()
		}
		path, err := m.WriteFile(out, s.cfg.ManifestName)
		if err != nil {
			return ferrors.WrapError(fmt.Errorf("%w: %w", ErrManifest, err), ferrors.CategoryFileSystem, "manifest could not be written").
				Fatal().
				Build()
		}
		report.Projects = m.Len()
		report.Hostnames = m.Hostnames()
		if report.Hostnames == nil {
			report.Hostnames = []string{}
		}
		if h, err := m.Hash(); err == nil {
			report.ManifestHash = h
		}
		s.logger.InfoContext(ctx, "Manifest written", logfields.Path(path), logfields.Count(m.Len()))
		return nil
	})
}

// load parses every document, applies defaults and the visibility gate, and
// returns the published records in discovery order.
func (s *Service) load(ctx context.Context, root string, docs []folio.Document, issues *folio.Issues) ([]*folio.Project, error) {
	loader := folio.NewLoader(s.logger)
	seen := make(map[string]string)
	var projects []*folio.Project

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		records, err := loader.Load(doc.Path)
		if err != nil {
			reason := err.Error()
			if errors.Is(err, folio.ErrNoRecords) {
				reason = "no valid project objects found"
			}
			issues.Add(folio.Issue{Kind: folio.IssueDocumentSkipped, Subject: doc.Path, Detail: reason})
			continue
		}

		location := doc.Path
		if doc.Package != "" {
			location = doc.Package
		}
		rel, err := filepath.Rel(root, location)
		if err != nil {
			rel = location
		}

		published := 0
		for _, p := range records {
			p.Package = doc.Package
			p.ApplyDefaults(rel, s.cfg.DefaultDomain)

			if ok, why := p.Visible(); !ok {
				issues.Add(folio.Issue{Kind: folio.IssueDocumentSkipped, Project: p.ID, Subject: doc.Path, Detail: "Excluded: " + why})
				continue
			}
			if prev, dup := seen[p.ID]; dup {
				orig := p.ID
				p.ID = folio.UniqueID(orig, fmt.Sprintf("%s#%d", filepath.ToSlash(rel), p.Index))
				p.ApplyDefaults(rel, s.cfg.DefaultDomain)
				issues.Add(folio.Issue{
					Kind:    folio.IssueDuplicateID,
					Project: p.ID,
					Subject: doc.Path,
					Detail:  fmt.Sprintf("id %q already used by %s; renamed", orig, prev),
				})
			}
			seen[p.ID] = doc.Path

			if strings.TrimSpace(p.Summary) == "" {
				issues.Add(folio.Issue{Kind: folio.IssueMissingSummary, Project: p.ID, Subject: doc.Path, Detail: "Project has no summary"})
			}
			projects = append(projects, p)
			published++
		}
		if published == 0 && len(records) > 0 {
			s.logger.DebugContext(ctx, "Document contributed no published records", logfields.Path(doc.Path))
		}
	}
	return projects, nil
}

// stage runs fn with the stage name in the log context, recording its
// duration and result.
func (s *Service) stage(ctx context.Context, report *Report, name string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(observability.WithStage(ctx, name))
	d := time.Since(start)
	report.StageDurations[name] = d.Milliseconds()
	s.recorder.ObserveStageDuration(name, d)

	result := metrics.ResultSuccess
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		result = metrics.ResultCanceled
	default:
		result = metrics.ResultFatal
	}
	s.recorder.IncStageResult(name, result)
	return err
}
