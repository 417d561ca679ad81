package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/foliobuilder/internal/build"
	"git.home.luguber.info/inful/foliobuilder/internal/config"
	"git.home.luguber.info/inful/foliobuilder/internal/eventstore"
	"git.home.luguber.info/inful/foliobuilder/internal/logfields"
	"git.home.luguber.info/inful/foliobuilder/internal/metrics"
	"git.home.luguber.info/inful/foliobuilder/internal/notify"
	"git.home.luguber.info/inful/foliobuilder/internal/observability"
)

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config    string           `short:"c" help:"Configuration file path" default:"foliobuilder.yaml"`
	PublicDir string           `name:"public-dir" help:"Override public_dir (directory holding the live tree)"`
	Verbose   bool             `short:"v" help:"Enable verbose logging"`
	Version   kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build      BuildCmd   `cmd:"" default:"withargs" help:"Build the published tree from the source root"`
	Repair     RepairCmd  `cmd:"" help:"Remove a stale lock and restore a missing live directory"`
	Watch      WatchCmd   `cmd:"" help:"Rebuild on source changes and on an optional interval"`
	History    HistoryCmd `cmd:"" help:"Show recent builds from the history store"`
	VersionCmd VersionCmd `cmd:"" name:"version" help:"Print version information"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(c.Verbose)})
	slog.SetDefault(slog.New(observability.NewContextHandler(handler)))
	return nil
}

// parseLogLevel honours --verbose first, then FOLIOBUILDER_LOG_LEVEL.
func parseLogLevel(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	switch strings.ToLower(strings.TrimSpace(os.Getenv("FOLIOBUILDER_LOG_LEVEL"))) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// loadConfig reads the configuration file and applies flag overrides.
func loadConfig(root *CLI, sourceRoot string) (*config.Config, error) {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return nil, err
	}
	if sourceRoot != "" {
		cfg.Root = sourceRoot
	}
	if root.PublicDir != "" {
		cfg.PublicDir = root.PublicDir
	}
	if abs, err := filepath.Abs(cfg.PublicDir); err == nil {
		cfg.PublicDir = abs
	}
	return cfg, nil
}

// newService wires the optional collaborators the configuration enables.
// The returned cleanup closes them.
func newService(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*build.Service, func()) {
	if logger == nil {
		logger = slog.Default()
	}
	svc := build.NewService(cfg).WithLogger(logger)
	var closers []func()

	if cfg.Metrics.Textfile != "" {
		svc.WithRecorder(metrics.NewPrometheusRecorder(prom.NewRegistry()))
	}
	if cfg.History.Path != "" {
		store, err := eventstore.NewSQLiteStore(cfg.History.Path)
		if err != nil {
			logger.WarnContext(ctx, "Build history disabled", logfields.Path(cfg.History.Path), logfields.Error(err))
		} else {
			svc.WithHistory(store)
			closers = append(closers, func() { _ = store.Close() })
		}
	}
	if cfg.Notify.NATSURL != "" {
		pub, err := notify.NewNATSPublisher(cfg.Notify.NATSURL, cfg.Notify.Subject, logger)
		if err != nil {
			logger.WarnContext(ctx, "Publish notifications disabled", slog.String("url", cfg.Notify.NATSURL), logfields.Error(err))
		} else {
			svc.WithPublisher(pub)
			closers = append(closers, pub.Close)
		}
	}
	return svc, func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
