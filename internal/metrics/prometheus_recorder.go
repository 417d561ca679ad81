package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "foliobuilder"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once          sync.Once
	reg           *prom.Registry
	stageDuration *prom.HistogramVec
	buildDuration prom.Histogram
	stageResults  *prom.CounterVec
	buildOutcome  *prom.CounterVec
	lastOutcome   *prom.GaugeVec
	lastBuild     prom.Gauge
	projects      prom.Gauge
	assetFiles    prom.Counter
	assetBytes    prom.Counter
	issues        *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{reg: reg}
	pr.once.Do(func() {
		pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual build stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"})
		pr.buildDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		})
		pr.stageResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"})
		pr.buildOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"})
		pr.lastOutcome = prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "last_build_outcome",
			Help:      "1 for the outcome of the most recent build, 0 otherwise",
		}, []string{"outcome"})
		pr.lastBuild = prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "last_build_timestamp_seconds",
			Help:      "Unix time the most recent build finished",
		})
		pr.projects = prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "projects_published",
			Help:      "Projects in the most recently written manifest",
		})
		pr.assetFiles = prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "assets_copied_total",
			Help:      "Asset files copied into the published tree",
		})
		pr.assetBytes = prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "assets_copied_bytes_total",
			Help:      "Bytes of asset data copied into the published tree",
		})
		pr.issues = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_issues_total",
			Help:      "Non-fatal build issues by kind",
		}, []string{"kind"})
		reg.MustRegister(pr.stageDuration, pr.buildDuration, pr.stageResults, pr.buildOutcome,
			pr.lastOutcome, pr.lastBuild, pr.projects, pr.assetFiles, pr.assetBytes, pr.issues)
	})
	return pr
}

// Registry returns the registry the metrics are registered with.
func (p *PrometheusRecorder) Registry() *prom.Registry { return p.reg }

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil || p.stageResults == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome BuildOutcomeLabel) {
	if p == nil || p.buildOutcome == nil {
		return
	}
	p.buildOutcome.WithLabelValues(string(outcome)).Inc()
	for _, o := range []BuildOutcomeLabel{OutcomeCommitted, OutcomeRolledBack, OutcomeAborted, OutcomeRepaired} {
		v := 0.0
		if o == outcome {
			v = 1
		}
		p.lastOutcome.WithLabelValues(string(o)).Set(v)
	}
	p.lastBuild.SetToCurrentTime()
}

func (p *PrometheusRecorder) SetProjectsPublished(n int) {
	if p == nil || p.projects == nil {
		return
	}
	p.projects.Set(float64(n))
}

func (p *PrometheusRecorder) AddAssetsCopied(files, bytes int64) {
	if p == nil || p.assetFiles == nil {
		return
	}
	p.assetFiles.Add(float64(files))
	p.assetBytes.Add(float64(bytes))
}

func (p *PrometheusRecorder) IncIssues(kind string, n int) {
	if p == nil || p.issues == nil || n <= 0 {
		return
	}
	p.issues.WithLabelValues(kind).Add(float64(n))
}

// WriteTextfile writes the current metric values in the text exposition format
// to path, replacing it atomically.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	return prom.WriteToTextfile(path, p.reg)
}

var _ Recorder = (*PrometheusRecorder)(nil)
