package build

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"git.home.luguber.info/inful/foliobuilder/internal/folio"
	"git.home.luguber.info/inful/foliobuilder/internal/manifest"
	"git.home.luguber.info/inful/foliobuilder/internal/publish"
)

// Outcome is the final status of a build.
type Outcome string

const (
	// OutcomeCommitted means the new tree replaced the live tree.
	OutcomeCommitted Outcome = "committed"
	// OutcomeRolledBack means the build or the swap failed after the
	// transaction began; the previous live tree is in place.
	OutcomeRolledBack Outcome = "rolled_back"
	// OutcomeAborted means the build stopped before the transaction began
	// (missing root, lock held, filesystem precondition).
	OutcomeAborted Outcome = "aborted"
)

// Report describes one build. It is persisted as build-report.json next to
// the live directory.
type Report struct {
	SchemaVersion  int                   `json:"schema_version"`
	BuildID        string                `json:"build_id"`
	Trigger        string                `json:"trigger,omitempty"`
	Root           string                `json:"root"`
	Outcome        Outcome               `json:"outcome"`
	Error          string                `json:"error,omitempty"`
	Start          time.Time             `json:"start"`
	End            time.Time             `json:"end"`
	DurationMS     int64                 `json:"duration_ms"`
	StageDurations map[string]int64      `json:"stage_durations_ms"`
	Documents      int                   `json:"documents"`
	Projects       int                   `json:"projects"`
	Skipped        int                   `json:"skipped_documents"`
	Files          int64                 `json:"files_copied"`
	Bytes          int64                 `json:"bytes_copied"`
	Hostnames      []string              `json:"hostnames"`
	ManifestHash   string                `json:"manifest_hash,omitempty"`
	Revision       *Revision             `json:"source_revision,omitempty"`
	Repair         *publish.RepairReport `json:"repair,omitempty"`
	IssueCounts    map[string]int        `json:"issue_counts"`
	Issues         []folio.Issue         `json:"issues"`
}

func newReport(buildID, trigger, root string, start time.Time) *Report {
	return &Report{
		SchemaVersion:  1,
		BuildID:        buildID,
		Trigger:        trigger,
		Root:           root,
		Start:          start,
		StageDurations: make(map[string]int64),
		Hostnames:      []string{},
		IssueCounts:    make(map[string]int),
		Issues:         []folio.Issue{},
	}
}

func (r *Report) finish(end time.Time, outcome Outcome, err error) {
	r.End = end
	r.DurationMS = end.Sub(r.Start).Milliseconds()
	r.Outcome = outcome
	if err != nil {
		r.Error = err.Error()
	}
}

func (r *Report) setIssues(issues []folio.Issue) {
	r.Issues = append([]folio.Issue{}, issues...)
	r.IssueCounts = make(map[string]int)
	for _, i := range issues {
		r.IssueCounts[string(i.Kind)]++
	}
	r.Skipped = r.IssueCounts[string(folio.IssueDocumentSkipped)]
}

// IssuesOf returns the issues of kind k in recording order.
func (r *Report) IssuesOf(k folio.IssueKind) []folio.Issue {
	var out []folio.Issue
	for _, i := range r.Issues {
		if i.Kind == k {
			out = append(out, i)
		}
	}
	return out
}

// Summary returns a human-readable single-line summary.
func (r *Report) Summary() string {
	return fmt.Sprintf("build=%s outcome=%s projects=%d documents=%d skipped=%d files=%d issues=%d duration=%s",
		r.BuildID, r.Outcome, r.Projects, r.Documents, r.Skipped, r.Files, len(r.Issues),
		(time.Duration(r.DurationMS) * time.Millisecond).String())
}

// IssueSummary renders one line per issue kind for the console, most frequent
// first.
func (r *Report) IssueSummary() []string {
	kinds := make([]string, 0, len(r.IssueCounts))
	for k := range r.IssueCounts {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool {
		if r.IssueCounts[kinds[i]] != r.IssueCounts[kinds[j]] {
			return r.IssueCounts[kinds[i]] > r.IssueCounts[kinds[j]]
		}
		return kinds[i] < kinds[j]
	})
	lines := make([]string, 0, len(kinds))
	for _, k := range kinds {
		lines = append(lines, fmt.Sprintf("%s: %d", strings.ReplaceAll(k, "_", " "), r.IssueCounts[k]))
	}
	return lines
}

// Persist writes the report atomically to path.
func (r *Report) Persist(path string) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("marshal report json: %w", err)
	}
	return manifest.WriteFileAtomic(path, buf.Bytes())
}

// LoadReport reads a persisted report.
func LoadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse report %s: %w", path, err)
	}
	return &r, nil
}
