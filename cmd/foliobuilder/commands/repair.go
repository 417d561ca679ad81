package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"git.home.luguber.info/inful/foliobuilder/internal/build"
	"git.home.luguber.info/inful/foliobuilder/internal/publish"
)

// RepairCmd implements the 'repair' command.
type RepairCmd struct{}

func (r *RepairCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root, "")
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()
	svc, cleanup := newService(ctx, cfg, g.Logger)
	defer cleanup()
	return runRepair(ctx, svc, os.Stdout)
}

func runRepair(ctx context.Context, svc build.BuildService, w io.Writer) error {
	rep, err := svc.Repair(ctx)
	printRepair(w, rep)
	return err
}

func printRepair(w io.Writer, rep *publish.RepairReport) {
	if rep == nil {
		return
	}
	changed := false
	if rep.LockRemoved {
		changed = true
		holder := ""
		if rep.Lock != nil {
			holder = " held by " + rep.Lock.String()
		}
		_, _ = fmt.Fprintf(w, "Removed stale lock%s\n", holder)
	}
	if rep.Restored != "" {
		changed = true
		_, _ = fmt.Fprintf(w, "Restored live directory from %s\n", rep.Restored)
	} else if rep.LiveMissing {
		_, _ = fmt.Fprintln(w, "Live directory is missing and nothing could restore it")
	}
	for _, p := range rep.Removed {
		changed = true
		_, _ = fmt.Fprintf(w, "Removed %s\n", p)
	}
	if !changed && !rep.LiveMissing {
		_, _ = fmt.Fprintln(w, "Nothing to repair")
	}
}
