package commands

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/foliobuilder/internal/build"
	"git.home.luguber.info/inful/foliobuilder/internal/eventstore"
	"git.home.luguber.info/inful/foliobuilder/internal/folio"
	ferrors "git.home.luguber.info/inful/foliobuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/foliobuilder/internal/publish"
)

func quietGlobal() *Global {
	return &Global{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

// fixture writes a config file and a source tree under a temp dir.
func fixture(t *testing.T, extra string) (*CLI, string) {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Projects", "Alpha", "alpha.folio"),
		`{"id": "alpha", "title": "Alpha", "summary": "First"}`)
	writeFile(t, filepath.Join(dir, "Projects", "beta.folio"), `{"id": "beta", "title": "Beta"}`)
	cfgPath := filepath.Join(dir, "foliobuilder.yaml")
	writeFile(t, cfgPath, "root: "+filepath.Join(dir, "Projects")+"\n"+
		"public_dir: "+filepath.Join(dir, "public")+"\n"+
		"settle_delay: 1ms\n"+extra)
	return &CLI{Config: cfgPath}, dir
}

func TestParseLogLevel(t *testing.T) {
	cases := []struct {
		env     string
		verbose bool
		want    slog.Level
	}{
		{"", false, slog.LevelInfo},
		{"", true, slog.LevelDebug},
		{"error", true, slog.LevelDebug},
		{"DEBUG", false, slog.LevelDebug},
		{"warn", false, slog.LevelWarn},
		{"warning", false, slog.LevelWarn},
		{"error", false, slog.LevelError},
		{"bogus", false, slog.LevelInfo},
	}
	for _, tc := range cases {
		t.Run(tc.env, func(t *testing.T) {
			t.Setenv("FOLIOBUILDER_LOG_LEVEL", tc.env)
			assert.Equal(t, tc.want, parseLogLevel(tc.verbose))
		})
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	cli, dir := fixture(t, "")
	cli.PublicDir = filepath.Join(dir, "elsewhere")

	cfg, err := loadConfig(cli, "Other")
	require.NoError(t, err)
	assert.Equal(t, "Other", cfg.Root)
	assert.Equal(t, filepath.Join(dir, "elsewhere"), cfg.PublicDir)
	assert.Equal(t, time.Millisecond, cfg.SettleDelay)
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	_, err := loadConfig(&CLI{Config: filepath.Join(t.TempDir(), "nope.yaml")}, "")
	require.Error(t, err)
	assert.Equal(t, 2, ferrors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))
}

func TestBuildCommandPublishes(t *testing.T) {
	historyPath := filepath.Join(t.TempDir(), "history.db")
	cli, dir := fixture(t, "history:\n  path: "+historyPath+"\n")
	require.NoError(t, (&BuildCmd{}).Run(quietGlobal(), cli))

	_, err := os.Stat(filepath.Join(dir, "public", "projects", "projects.json"))
	require.NoError(t, err)
	report, err := build.LoadReport(filepath.Join(dir, "public", "build-report.json"))
	require.NoError(t, err)
	assert.Equal(t, build.OutcomeCommitted, report.Outcome)
	assert.Equal(t, 2, report.Projects)

	store, err := eventstore.NewSQLiteStore(historyPath)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	builds, err := eventstore.History(t.Context(), store, 5)
	require.NoError(t, err)
	require.Len(t, builds, 1)
	assert.Equal(t, "committed", builds[0].Status)
	assert.Equal(t, "cli", builds[0].Trigger)
}

func TestBuildCommandMissingRoot(t *testing.T) {
	cli, dir := fixture(t, "")
	err := (&BuildCmd{Root: filepath.Join(dir, "missing")}).Run(quietGlobal(), cli)
	require.Error(t, err)
	assert.Equal(t, 2, ferrors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))
}

func TestRepairCommandRestoresVariant(t *testing.T) {
	cli, dir := fixture(t, "")
	writeFile(t, filepath.Join(dir, "public", "projects 2", "projects.json"), "[]\n")

	require.NoError(t, (&RepairCmd{}).Run(quietGlobal(), cli))
	_, err := os.Stat(filepath.Join(dir, "public", "projects", "projects.json"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "public", "projects 2"))
	assert.True(t, os.IsNotExist(err))
}

func TestHistoryCommandRequiresPath(t *testing.T) {
	cli, _ := fixture(t, "")
	err := (&HistoryCmd{Limit: 5}).Run(quietGlobal(), cli)
	classified, ok := ferrors.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, ferrors.CategoryConfig, classified.Category())
}

func TestPrintReport(t *testing.T) {
	r := &build.Report{
		BuildID: "b1", Outcome: build.OutcomeCommitted, Projects: 2, Documents: 3, Skipped: 1, Files: 4, DurationMS: 12,
		IssueCounts: map[string]int{"missing_thumbnail": 2, "missing_summary": 1, "document_skipped": 1},
		Issues: []folio.Issue{
			{Kind: folio.IssueMissingThumbnail, Project: "alpha"},
			{Kind: folio.IssueMissingThumbnail, Project: "beta"},
			{Kind: folio.IssueMissingSummary, Project: "beta"},
			{Kind: folio.IssueDocumentSkipped, Subject: "broken.folio"},
		},
	}
	var buf bytes.Buffer
	printReport(&buf, r)
	out := buf.String()
	assert.Contains(t, out, "Build b1 committed: 2 projects from 3 documents (1 skipped), 4 files copied in 12ms")
	assert.Contains(t, out, "Missing thumbnails (2):\n  - alpha\n  - beta\n")
	assert.Contains(t, out, "Missing summaries (1):\n  - beta\n")
	assert.Contains(t, out, "Issues:\n  missing thumbnail: 2\n")

	buf.Reset()
	printReport(&buf, nil)
	assert.Empty(t, buf.String())
}

func TestPrintRepair(t *testing.T) {
	var buf bytes.Buffer
	printRepair(&buf, &publish.RepairReport{})
	assert.Equal(t, "Nothing to repair\n", buf.String())

	buf.Reset()
	printRepair(&buf, &publish.RepairReport{
		LockRemoved: true,
		LiveMissing: true,
		Restored:    "/pub/projects 2",
		Removed:     []string{"/pub/projects (1)"},
	})
	assert.Contains(t, buf.String(), "Removed stale lock")
	assert.Contains(t, buf.String(), "Restored live directory from /pub/projects 2")
	assert.Contains(t, buf.String(), "Removed /pub/projects (1)")
}

func TestPrintHistory(t *testing.T) {
	var buf bytes.Buffer
	printHistory(&buf, nil)
	assert.Equal(t, "No builds recorded\n", buf.String())

	buf.Reset()
	printHistory(&buf, []*eventstore.BuildSummary{{
		BuildID: "b1", Status: "committed", Trigger: "cli", StartedAt: time.Now(),
		Duration: 1500 * time.Millisecond, Projects: 3, Issues: map[string]int{"missing_summary": 2},
		Revision: "0123456789abcdef",
	}})
	assert.Contains(t, buf.String(), "BUILD")
	assert.Contains(t, buf.String(), "b1")
	assert.Contains(t, buf.String(), "1.5s")
	assert.Contains(t, buf.String(), "01234567")
	assert.NotContains(t, buf.String(), "0123456789")
}
