package commands

import (
	"fmt"
	"io"
	"os"

	"git.home.luguber.info/inful/foliobuilder/internal/build"
	"git.home.luguber.info/inful/foliobuilder/internal/folio"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Root   string `arg:"" optional:"" help:"Source root to scan (default: config root, Projects)"`
	Repair bool   `help:"Only repair the live directory and exit"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root, b.Root)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()
	svc, cleanup := newService(ctx, cfg, g.Logger)
	defer cleanup()

	if b.Repair {
		return runRepair(ctx, svc, os.Stdout)
	}

	fmt.Println("Starting foliobuilder build")
	report, err := svc.Run(ctx, build.Request{Trigger: "cli"})
	printReport(os.Stdout, report)
	return err
}

// printReport writes the end-of-run summary.
func printReport(w io.Writer, r *build.Report) {
	if r == nil {
		return
	}
	skipped := ""
	if r.Skipped > 0 {
		skipped = fmt.Sprintf(" (%d skipped)", r.Skipped)
	}
	_, _ = fmt.Fprintf(w, "Build %s %s: %d projects from %d documents%s, %d files copied in %dms\n",
		r.BuildID, r.Outcome, r.Projects, r.Documents, skipped, r.Files, r.DurationMS)
	if r.Repair != nil && r.Repair.Restored != "" {
		_, _ = fmt.Fprintf(w, "Restored live directory from %s\n", r.Repair.Restored)
	}
	printIssueList(w, "Missing thumbnails", r.IssuesOf(folio.IssueMissingThumbnail))
	printIssueList(w, "Missing summaries", r.IssuesOf(folio.IssueMissingSummary))
	if lines := r.IssueSummary(); len(lines) > 0 {
		_, _ = fmt.Fprintln(w, "Issues:")
		for _, l := range lines {
			_, _ = fmt.Fprintf(w, "  %s\n", l)
		}
	}
	if r.Error != "" {
		_, _ = fmt.Fprintf(w, "Build failed: %s\n", r.Error)
	}
}

func printIssueList(w io.Writer, title string, issues []folio.Issue) {
	if len(issues) == 0 {
		return
	}
	_, _ = fmt.Fprintf(w, "%s (%d):\n", title, len(issues))
	for _, i := range issues {
		name := i.Project
		if name == "" {
			name = i.Subject
		}
		_, _ = fmt.Fprintf(w, "  - %s\n", name)
	}
}
