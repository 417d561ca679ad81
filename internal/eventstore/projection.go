// Package eventstore records build history in SQLite and projects it into
// per-build summaries.
package eventstore

import (
	"context"
	"sort"
	"time"
)

const statusRunning = "running"

// BuildSummary is the read model of one build.
type BuildSummary struct {
	BuildID     string             `json:"build_id"`
	Status      string             `json:"status"` // running, or the final outcome
	Trigger     string             `json:"trigger,omitempty"`
	StartedAt   time.Time          `json:"started_at"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
	Duration    time.Duration      `json:"duration,omitempty"`
	Projects    int                `json:"projects"`
	Skipped     int                `json:"skipped"`
	Issues      map[string]int     `json:"issues,omitempty"`
	Revision    string             `json:"revision,omitempty"`
	Error       string             `json:"error,omitempty"`
	Repair      *BuildRepairedData `json:"repair,omitempty"`
}

// IssueTotal is the sum of all issue counts.
func (s *BuildSummary) IssueTotal() int {
	n := 0
	for _, c := range s.Issues {
		n += c
	}
	return n
}

// Project folds events into build summaries, newest first.
func Project(events []Event) []*BuildSummary {
	builds := map[string]*BuildSummary{}
	for _, e := range events {
		applyEvent(builds, e)
	}
	out := make([]*BuildSummary, 0, len(builds))
	for _, b := range builds {
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].BuildID > out[j].BuildID
	})
	return out
}

// History loads the last n builds from store, newest first.
func History(ctx context.Context, store *SQLiteStore, n int) ([]*BuildSummary, error) {
	if n <= 0 {
		n = 20
	}
	events, err := store.Recent(ctx, n)
	if err != nil {
		return nil, err
	}
	return Project(events), nil
}

func applyEvent(builds map[string]*BuildSummary, e Event) {
	id := e.BuildID()
	if id == "" {
		return
	}
	s, ok := builds[id]
	if !ok {
		s = &BuildSummary{BuildID: id, Status: statusRunning, StartedAt: e.Timestamp()}
		builds[id] = s
	}

	switch e.Type() {
	case TypeBuildStarted:
		s.StartedAt = e.Timestamp()
		var d BuildStartedData
		if Decode(e, &d) == nil {
			s.Trigger = d.Trigger
		}

	case TypeBuildFinished:
		at := e.Timestamp()
		s.CompletedAt = &at
		s.Duration = at.Sub(s.StartedAt)
		var d BuildFinishedData
		if Decode(e, &d) != nil {
			return
		}
		if d.Outcome != "" {
			s.Status = d.Outcome
		}
		if d.DurationMS > 0 {
			s.Duration = time.Duration(d.DurationMS) * time.Millisecond
		}
		s.Projects = d.Projects
		s.Skipped = d.Skipped
		s.Issues = d.Issues
		s.Revision = d.Revision
		s.Error = d.Error

	case TypeBuildRepaired:
		var d BuildRepairedData
		if Decode(e, &d) == nil {
			s.Repair = &d
		}
	}
}
