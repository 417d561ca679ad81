package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"git.home.luguber.info/inful/foliobuilder/internal/build"
	"git.home.luguber.info/inful/foliobuilder/internal/fspath"
	"git.home.luguber.info/inful/foliobuilder/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Root     string        `arg:"" optional:"" help:"Source root to watch (default: config root, Projects)"`
	Debounce time.Duration `help:"Quiet period after a change before rebuilding (overrides watch.debounce)"`
	Interval time.Duration `help:"Also rebuild on this interval (overrides watch.interval, 0 disables)"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root, w.Root)
	if err != nil {
		return err
	}
	if w.Debounce > 0 {
		cfg.Watch.Debounce = w.Debounce
	}
	if w.Interval > 0 {
		cfg.Watch.Interval = w.Interval
	}
	ctx, cancel := signalContext()
	defer cancel()
	svc, cleanup := newService(ctx, cfg, g.Logger)
	defer cleanup()

	ignore := fspath.NewIgnoreSet(append(append([]string{}, fspath.DefaultIgnoreDirs...), cfg.IgnoreDirs...)...)
	watcher := watch.New(watch.Options{
		Root:     cfg.Root,
		Exclude:  []string{cfg.PublicDir},
		Ignore:   ignore,
		Debounce: cfg.Watch.Debounce,
		Interval: cfg.Watch.Interval,
		Logger:   g.Logger,
	}, func(ctx context.Context, trigger string) error {
		report, err := svc.Run(ctx, build.Request{Trigger: trigger})
		printReport(os.Stdout, report)
		return err
	})
	fmt.Printf("Watching %s (Ctrl+C to stop)\n", cfg.Root)
	return watcher.Run(ctx)
}
