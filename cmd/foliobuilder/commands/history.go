package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/foliobuilder/internal/eventstore"
	ferrors "git.home.luguber.info/inful/foliobuilder/internal/foundation/errors"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int  `short:"n" help:"Number of builds to show" default:"10"`
	JSON  bool `help:"Print JSON instead of a table"`
}

func (h *HistoryCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root, "")
	if err != nil {
		return err
	}
	if cfg.History.Path == "" {
		return ferrors.ConfigError("history.path is not configured").UserAction().Build()
	}
	store, err := eventstore.NewSQLiteStore(cfg.History.Path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := signalContext()
	defer cancel()
	builds, err := eventstore.History(ctx, store, h.Limit)
	if err != nil {
		return err
	}
	if h.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(builds)
	}
	printHistory(os.Stdout, builds)
	return nil
}

func printHistory(w io.Writer, builds []*eventstore.BuildSummary) {
	if len(builds) == 0 {
		_, _ = fmt.Fprintln(w, "No builds recorded")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "BUILD\tSTATUS\tTRIGGER\tSTARTED\tDURATION\tPROJECTS\tSKIPPED\tISSUES\tREVISION")
	for _, b := range builds {
		rev := b.Revision
		if len(rev) > 8 {
			rev = rev[:8]
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			b.BuildID, b.Status, b.Trigger, b.StartedAt.Local().Format(time.DateTime),
			b.Duration.Round(time.Millisecond), b.Projects, b.Skipped, b.IssueTotal(), rev)
	}
	_ = tw.Flush()
}
