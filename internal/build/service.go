package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/foliobuilder/internal/config"
	"git.home.luguber.info/inful/foliobuilder/internal/eventstore"
	"git.home.luguber.info/inful/foliobuilder/internal/folio"
	ferrors "git.home.luguber.info/inful/foliobuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/foliobuilder/internal/logfields"
	"git.home.luguber.info/inful/foliobuilder/internal/manifest"
	"git.home.luguber.info/inful/foliobuilder/internal/metrics"
	"git.home.luguber.info/inful/foliobuilder/internal/notify"
	"git.home.luguber.info/inful/foliobuilder/internal/observability"
	"git.home.luguber.info/inful/foliobuilder/internal/publish"
)

// BuildService is the interface the CLI and the watcher drive builds through.
type BuildService interface {
	Run(ctx context.Context, req Request) (*Report, error)
	Repair(ctx context.Context) (*publish.RepairReport, error)
}

// Request describes one build.
type Request struct {
	// Root overrides the configured source root.
	Root string
	// Trigger names what started the build: cli, watch or interval.
	Trigger string
}

// textfileWriter is implemented by recorders that can export themselves.
type textfileWriter interface {
	WriteTextfile(path string) error
}

// Service is the standard BuildService.
type Service struct {
	cfg       *config.Config
	logger    *slog.Logger
	recorder  metrics.Recorder
	history   eventstore.Store
	publisher notify.Publisher
	now       func() time.Time
	newID     func() string
}

// NewService returns a Service for cfg with metrics, history and
// notifications disabled.
func NewService(cfg *config.Config) *Service {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Service{
		cfg:       cfg,
		logger:    slog.Default(),
		recorder:  metrics.NoopRecorder{},
		publisher: notify.Noop{},
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// WithLogger sets the logger.
func (s *Service) WithLogger(l *slog.Logger) *Service {
	if l != nil {
		s.logger = l
	}
	return s
}

// WithRecorder sets the metrics recorder.
func (s *Service) WithRecorder(r metrics.Recorder) *Service {
	if r != nil {
		s.recorder = r
	}
	return s
}

// WithHistory sets the build history store.
func (s *Service) WithHistory(h eventstore.Store) *Service {
	s.history = h
	return s
}

// WithPublisher sets the notification publisher.
func (s *Service) WithPublisher(p notify.Publisher) *Service {
	if p != nil {
		s.publisher = p
	}
	return s
}

// WithClock replaces time.Now (for tests).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Config returns the configuration the service builds with.
func (s *Service) Config() *config.Config { return s.cfg }

// PublishOptions derives the transaction options from the configuration.
func (s *Service) PublishOptions(buildID string) publish.Options {
	return publish.Options{
		PublicDir:      s.cfg.PublicDir,
		LiveName:       s.cfg.LiveName,
		LockName:       s.cfg.LockName,
		SettleDelay:    s.cfg.SettleDelay,
		StaleLockAfter: s.cfg.StaleLockAfter,
		ManifestName:   s.cfg.ManifestName,
		BuildID:        buildID,
		Logger:         s.logger,
	}
}

// Run executes a complete build. The returned report is never nil; the error
// is the fatal failure, if any. Per-document and per-asset problems are
// reported as issues and never fail the build.
func (s *Service) Run(ctx context.Context, req Request) (*Report, error) {
	start := s.now()
	buildID := s.newID()
	trigger := req.Trigger
	if trigger == "" {
		trigger = "cli"
	}
	ctx = observability.WithTrigger(observability.WithBuildID(ctx, buildID), trigger)

	root := req.Root
	if root == "" {
		root = s.cfg.Root
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	report := newReport(buildID, trigger, root, start)
	issues := folio.NewIssues(s.logger)

	s.logger.InfoContext(ctx, "Build started", logfields.Path(root))
	s.recordHistory(ctx, func() (*eventstore.BaseEvent, error) {
		return eventstore.NewBuildStarted(buildID, start, eventstore.BuildStartedData{
			Root:      root,
			PublicDir: s.cfg.PublicDir,
			PID:       os.Getpid(),
			Trigger:   trigger,
		})
	})

	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		if err == nil {
			err = fmt.Errorf("%s is not a directory", root)
		}
		ferr := ferrors.WrapError(fmt.Errorf("%w: %w", ErrRootMissing, err), ferrors.CategoryNotFound, "source root not found").
			WithContext("root", root).
			Fatal().
			Build()
		return s.complete(ctx, report, issues, false, ferr)
	}

	opts := s.PublishOptions(buildID)
	if publish.NeedsRepair(opts) {
		report.Repair = s.repair(ctx, opts)
	}

	opts.OnCommit = func(ctx context.Context) { s.writeHostnames(ctx, report) }
	began := false
	err := publish.Run(ctx, opts, func(ctx context.Context, out string) error {
		began = true
		return s.populate(ctx, root, out, report, issues)
	})
	return s.complete(ctx, report, issues, began, err)
}

// complete finalises the report and runs every post-transaction side effect.
// Side-effect failures are logged and never change the outcome.
func (s *Service) complete(ctx context.Context, report *Report, issues *folio.Issues, began bool, err error) (*Report, error) {
	outcome := OutcomeCommitted
	switch {
	case err == nil:
	case began:
		outcome = OutcomeRolledBack
	default:
		outcome = OutcomeAborted
	}
	end := s.now()
	report.setIssues(issues.All())
	report.finish(end, outcome, err)
	lockHeld := errors.Is(err, publish.ErrLockHeld)

	if outcome == OutcomeCommitted {
		if report.Revision = SourceRevision(report.Root); report.Revision == nil {
			s.logger.DebugContext(ctx, "Source root is not a git checkout", logfields.Path(report.Root))
		}
	}

	// A held lock means another build owns the report and log files.
	if !lockHeld {
		reportFile := s.cfg.PublicFile(s.cfg.ReportFile)
		if perr := report.Persist(reportFile); perr != nil {
			s.logger.WarnContext(ctx, "Failed to write build report", logfields.Path(reportFile), logfields.Error(perr))
		}
		s.appendBuildLog(ctx, report)
	}

	s.recordMetrics(ctx, report)
	s.recordHistory(ctx, func() (*eventstore.BaseEvent, error) {
		return eventstore.NewBuildFinished(report.BuildID, end, eventstore.BuildFinishedData{
			Outcome:    string(report.Outcome),
			Projects:   report.Projects,
			Skipped:    report.Skipped,
			Files:      report.Files,
			Bytes:      report.Bytes,
			Issues:     report.IssueCounts,
			DurationMS: report.DurationMS,
			Revision:   revisionCommit(report.Revision),
			Error:      report.Error,
		})
	})
	if outcome == OutcomeCommitted {
		s.notify(ctx, report)
	}

	attrs := []any{
		slog.String("outcome", string(outcome)),
		logfields.Count(report.Projects),
		logfields.DurationMS(float64(report.DurationMS)),
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Build failed", append(attrs, logfields.Error(err))...)
		return report, err
	}
	s.logger.InfoContext(ctx, "Build committed", attrs...)
	return report, nil
}

// writeHostnames runs while the build lock is still held.
func (s *Service) writeHostnames(ctx context.Context, report *Report) {
	hostFile := s.cfg.PublicFile(s.cfg.HostnamesFile)
	if err := manifest.WriteHostnames(hostFile, report.Hostnames); err != nil {
		s.logger.WarnContext(ctx, "Failed to write image hostnames", logfields.Path(hostFile), logfields.Error(err))
	}
}

// Repair runs reconciliation outside of a build.
func (s *Service) Repair(ctx context.Context) (*publish.RepairReport, error) {
	id := s.newID()
	ctx = observability.WithBuildID(ctx, id)
	rep, err := publish.Repair(ctx, s.PublishOptions(id))
	if err != nil {
		return rep, s.classifyRepairError(err)
	}
	s.recordRepair(ctx, id, rep)
	s.recorder.IncBuildOutcome(metrics.OutcomeRepaired)
	s.flushMetrics(ctx)
	return rep, nil
}

func (s *Service) repair(ctx context.Context, opts publish.Options) *publish.RepairReport {
	s.logger.WarnContext(ctx, "Live directory missing; attempting repair before build")
	rep, err := publish.Repair(ctx, opts)
	if err != nil {
		s.logger.WarnContext(ctx, "Automatic repair failed", logfields.Error(err))
		return rep
	}
	s.recordRepair(ctx, opts.BuildID, rep)
	return rep
}

func (s *Service) classifyRepairError(err error) error {
	if errors.Is(err, publish.ErrLockHeld) {
		return ferrors.WrapError(err, ferrors.CategoryLock, "a build is running; not repairing").
			Fatal().UserAction().Build()
	}
	return ferrors.WrapError(err, ferrors.CategoryPublish, "repair failed").Fatal().Build()
}

func (s *Service) recordRepair(ctx context.Context, id string, rep *publish.RepairReport) {
	if rep == nil {
		return
	}
	s.recordHistory(ctx, func() (*eventstore.BaseEvent, error) {
		return eventstore.NewBuildRepaired(id, s.now(), eventstore.BuildRepairedData{
			LockRemoved: rep.LockRemoved,
			Restored:    rep.Restored,
			Removed:     rep.Removed,
		})
	})
	if rep.Restored != "" || rep.LockRemoved || len(rep.Removed) > 0 {
		line := fmt.Sprintf("REPAIR: lock_removed=%t restored=%q removed=%d", rep.LockRemoved, rep.Restored, len(rep.Removed))
		if err := publish.AppendBuildLog(s.cfg.PublicFile(s.cfg.BuildLog), s.now(), "%s", line); err != nil {
			s.logger.WarnContext(ctx, "Failed to append build log", logfields.Error(err))
		}
	}
}

func (s *Service) appendBuildLog(ctx context.Context, r *Report) {
	var line string
	switch r.Outcome {
	case OutcomeCommitted:
		line = fmt.Sprintf("SUCCESS: build %s published %d projects (%d issues)", r.BuildID, r.Projects, len(r.Issues))
	case OutcomeRolledBack:
		line = fmt.Sprintf("ERROR: build %s rolled back: %s", r.BuildID, r.Error)
	default:
		line = fmt.Sprintf("ERROR: build %s aborted: %s", r.BuildID, r.Error)
	}
	if err := publish.AppendBuildLog(s.cfg.PublicFile(s.cfg.BuildLog), r.End, "%s", line); err != nil {
		s.logger.WarnContext(ctx, "Failed to append build log", logfields.Error(err))
	}
}

func (s *Service) recordMetrics(ctx context.Context, r *Report) {
	s.recorder.ObserveBuildDuration(time.Duration(r.DurationMS) * time.Millisecond)
	s.recorder.IncBuildOutcome(metrics.BuildOutcomeLabel(r.Outcome))
	if r.Outcome == OutcomeCommitted {
		s.recorder.SetProjectsPublished(r.Projects)
	}
	s.recorder.AddAssetsCopied(r.Files, r.Bytes)
	for kind, n := range r.IssueCounts {
		s.recorder.IncIssues(kind, n)
	}
	s.flushMetrics(ctx)
}

func (s *Service) flushMetrics(ctx context.Context) {
	path := s.cfg.Metrics.Textfile
	tw, ok := s.recorder.(textfileWriter)
	if path == "" || !ok {
		return
	}
	if err := tw.WriteTextfile(path); err != nil {
		s.logger.WarnContext(ctx, "Failed to write metrics textfile", logfields.Path(path), logfields.Error(err))
	}
}

func (s *Service) recordHistory(ctx context.Context, build func() (*eventstore.BaseEvent, error)) {
	if s.history == nil {
		return
	}
	e, err := build()
	if err == nil {
		err = s.history.Append(ctx, e)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to record build history", logfields.Error(err))
	}
}

func (s *Service) notify(ctx context.Context, r *Report) {
	err := s.publisher.Publish(ctx, notify.Event{
		BuildID:      r.BuildID,
		Outcome:      string(r.Outcome),
		Projects:     r.Projects,
		ManifestHash: r.ManifestHash,
		Hostnames:    r.Hostnames,
		Revision:     revisionCommit(r.Revision),
		Timestamp:    r.End,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to publish build notification", logfields.Error(err))
	}
}

func revisionCommit(r *Revision) string {
	if r == nil {
		return ""
	}
	return r.Commit
}

var _ BuildService = (*Service)(nil)
