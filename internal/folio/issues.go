package folio

import (
	"log/slog"
	"sync"

	ferrors "git.home.luguber.info/inful/foliobuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/foliobuilder/internal/logfields"
)

// IssueKind groups non-fatal findings for the end-of-run summary.
type IssueKind string

const (
	IssueDocumentSkipped    IssueKind = "document_skipped"
	IssueAssetSkipped       IssueKind = "asset_skipped"
	IssueMissingThumbnail   IssueKind = "missing_thumbnail"
	IssueMissingSummary     IssueKind = "missing_summary"
	IssueReclassified       IssueKind = "reclassified"
	IssueUnresolvedCrossRef IssueKind = "unresolved_cross_reference"
	IssueDuplicateID        IssueKind = "duplicate_id"
)

// Issue is one non-fatal finding.
type Issue struct {
	Kind    IssueKind `json:"kind"`
	Project string    `json:"project,omitempty"`
	Subject string    `json:"subject,omitempty"`
	Detail  string    `json:"detail,omitempty"`
}

// Err classifies the issue: document findings skip or amend a record,
// asset findings drop a file, cross-reference findings drop a link.
func (i Issue) Err() *ferrors.ClassifiedError {
	var b *ferrors.ErrorBuilder
	switch i.Kind {
	case IssueAssetSkipped, IssueMissingThumbnail, IssueReclassified:
		b = ferrors.AssetError(i.Detail)
	case IssueUnresolvedCrossRef:
		b = ferrors.CrossRefError(i.Detail)
	default:
		b = ferrors.DocumentError(i.Detail)
	}
	if i.Project != "" {
		b = b.WithContext("project", i.Project)
	}
	if i.Subject != "" {
		b = b.WithContext("subject", i.Subject)
	}
	return b.Build()
}

// Issues collects findings from concurrent workers and logs each one as it
// arrives.
type Issues struct {
	mu     sync.Mutex
	items  []Issue
	logger *slog.Logger
}

// NewIssues returns an empty collector logging to logger (slog.Default when
// nil).
func NewIssues(logger *slog.Logger) *Issues {
	if logger == nil {
		logger = slog.Default()
	}
	return &Issues{logger: logger}
}

// Add records an issue. Safe for concurrent use.
func (s *Issues) Add(i Issue) {
	s.mu.Lock()
	s.items = append(s.items, i)
	s.mu.Unlock()
	s.logger.Warn(i.Detail,
		slog.String("issue", string(i.Kind)),
		slog.String("category", string(i.Err().Category())),
		logfields.Project(i.Project),
		logfields.Path(i.Subject))
}

// All returns a copy of the recorded issues in arrival order.
func (s *Issues) All() []Issue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Issue(nil), s.items...)
}

// Count returns the number of issues of kind k.
func (s *Issues) Count(k IssueKind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, i := range s.items {
		if i.Kind == k {
			n++
		}
	}
	return n
}

// ByKind groups the recorded issues.
func (s *Issues) ByKind() map[IssueKind][]Issue {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[IssueKind][]Issue)
	for _, i := range s.items {
		out[i.Kind] = append(out[i.Kind], i)
	}
	return out
}
