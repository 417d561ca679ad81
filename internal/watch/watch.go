// Package watch reruns full builds when the source tree changes or on a
// fixed interval. Builds never overlap: a trigger that arrives while a build
// runs queues exactly one follow-up build.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/foliobuilder/internal/fspath"
	"git.home.luguber.info/inful/foliobuilder/internal/logfields"
)

// Trigger names.
const (
	TriggerStart    = "start"
	TriggerWatch    = "watch"
	TriggerInterval = "interval"
)

// BuildFunc runs one full build.
type BuildFunc func(ctx context.Context, trigger string) error

// Options configures a Watcher.
type Options struct {
	// Root is the source tree to watch.
	Root string
	// Exclude lists directories whose events are ignored, typically the
	// public directory when it lives below Root.
	Exclude []string
	// Ignore prunes directories by name; nil means fspath.DefaultIgnoreDirs.
	Ignore fspath.IgnoreSet
	// Debounce is the quiet period after the last change before a build.
	Debounce time.Duration
	// Interval schedules periodic builds; zero disables them.
	Interval time.Duration
	Logger   *slog.Logger
}

// Watcher serializes builds from filesystem and interval triggers.
type Watcher struct {
	opts  Options
	build BuildFunc
	reqs  chan string

	mu    sync.Mutex
	timer *time.Timer
}

// New returns a Watcher that calls build for every coalesced trigger.
func New(opts Options, build BuildFunc) *Watcher {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Ignore == nil {
		opts.Ignore = fspath.NewIgnoreSet()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 300 * time.Millisecond
	}
	exclude := make([]string, 0, len(opts.Exclude))
	for _, ex := range opts.Exclude {
		if abs, err := filepath.Abs(ex); err == nil {
			ex = abs
		}
		exclude = append(exclude, ex)
	}
	opts.Exclude = exclude
	return &Watcher{opts: opts, build: build, reqs: make(chan string, 1)}
}

// Trigger requests a build. It never blocks; while one request is already
// queued further requests are dropped.
func (w *Watcher) Trigger(trigger string) {
	select {
	case w.reqs <- trigger:
	default:
	}
}

// debounced restarts the quiet-period timer.
func (w *Watcher) debounced() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.opts.Debounce, func() { w.Trigger(TriggerWatch) })
}

// Run builds once, then watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer func() { _ = watcher.Close() }()
	if err := w.addDirsRecursive(watcher, w.opts.Root); err != nil {
		return err
	}

	var scheduler gocron.Scheduler
	if w.opts.Interval > 0 {
		scheduler, err = w.schedule()
		if err != nil {
			return err
		}
		defer func() { _ = scheduler.Shutdown() }()
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.worker(ctx)
	}()
	w.Trigger(TriggerStart)

	w.opts.Logger.Info("Watching for changes",
		logfields.Path(w.opts.Root),
		slog.Duration("debounce", w.opts.Debounce),
		slog.Duration("interval", w.opts.Interval))

	err = w.loop(ctx, watcher)
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	wg.Wait()
	return err
}

func (w *Watcher) schedule() (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	_, err = s.NewJob(
		gocron.DurationJob(w.opts.Interval),
		gocron.NewTask(w.Trigger, TriggerInterval),
		gocron.WithName("interval-build"),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("failed to create interval build job: %w", err)
	}
	s.Start()
	return s, nil
}

// worker runs queued builds one at a time.
func (w *Watcher) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case trigger := <-w.reqs:
			start := time.Now()
			if err := w.build(ctx, trigger); err != nil {
				w.opts.Logger.Warn("Rebuild failed", slog.String("trigger", trigger), logfields.Error(err))
				continue
			}
			w.opts.Logger.Debug("Rebuild finished", slog.String("trigger", trigger), logfields.Since(start))
		}
	}
}

func (w *Watcher) loop(ctx context.Context, watcher *fsnotify.Watcher) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(watcher, ev)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.opts.Logger.Warn("Watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(watcher *fsnotify.Watcher, ev fsnotify.Event) {
	if ev.Op == fsnotify.Chmod || w.ignored(ev.Name) {
		return
	}
	if ev.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = w.addDirsRecursive(watcher, ev.Name)
		}
	}
	w.opts.Logger.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
	w.debounced()
}

func (w *Watcher) addDirsRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && (w.opts.Ignore.Skip(d.Name()) || w.excluded(path)) {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			w.opts.Logger.Warn("Watch add failed", logfields.Path(path), logfields.Error(err))
		}
		return nil
	})
}

func (w *Watcher) excluded(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	for _, ex := range w.opts.Exclude {
		if abs == ex || strings.HasPrefix(abs, ex+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// ignored reports events that never trigger a rebuild: hidden and editor
// temp files, and anything below an excluded directory.
func (w *Watcher) ignored(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "#") ||
		strings.HasSuffix(base, "~") || strings.HasSuffix(base, ".swp") || strings.HasSuffix(base, ".swx") ||
		strings.HasSuffix(base, ".tmp") {
		return true
	}
	return w.excluded(path)
}
