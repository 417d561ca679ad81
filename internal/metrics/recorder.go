package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultWarning  ResultLabel = "warning"
	ResultFatal    ResultLabel = "fatal"
	ResultCanceled ResultLabel = "canceled"
)

// BuildOutcomeLabel is the final status of a build.
type BuildOutcomeLabel string

const (
	OutcomeCommitted  BuildOutcomeLabel = "committed"
	OutcomeRolledBack BuildOutcomeLabel = "rolled_back"
	OutcomeAborted    BuildOutcomeLabel = "aborted"
	OutcomeRepaired   BuildOutcomeLabel = "repaired"
)

// Recorder defines observability hooks for build and stage metrics. All
// methods must be safe to call on the NoopRecorder.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveBuildDuration(d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	IncBuildOutcome(outcome BuildOutcomeLabel)
	SetProjectsPublished(n int)
	AddAssetsCopied(files, bytes int64)
	IncIssues(kind string, n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)         {}
func (NoopRecorder) IncStageResult(string, ResultLabel)         {}
func (NoopRecorder) IncBuildOutcome(BuildOutcomeLabel)          {}
func (NoopRecorder) SetProjectsPublished(int)                   {}
func (NoopRecorder) AddAssetsCopied(int64, int64)               {}
func (NoopRecorder) IncIssues(string, int)                      {}
