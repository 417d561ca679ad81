package publish

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTime(t *testing.T) time.Time {
	t.Helper()
	ts, err := time.Parse(time.DateTime, "2026-01-02 03:04:05")
	require.NoError(t, err)
	return ts
}

func touch(t *testing.T, path string, age time.Duration) {
	t.Helper()
	ts := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, ts, ts))
}

func TestReconcileRenamesNumberedVariantBack(t *testing.T) {
	opts := testOptions(t).withDefaults()
	older := filepath.Join(opts.PublicDir, "projects 2")
	newer := filepath.Join(opts.PublicDir, "projects (3)")
	writeTree(t, older, map[string]string{"projects.json": "older"})
	writeTree(t, newer, map[string]string{"projects.json": "newer"})
	touch(t, older, time.Hour)
	touch(t, newer, time.Minute)

	require.NoError(t, reconcile(opts, osOps{}, slog.Default()))
	assert.Equal(t, "newer", readFile(t, filepath.Join(opts.PublicDir, "projects", "projects.json")))
	assert.ElementsMatch(t, []string{"projects"}, dirNames(t, opts.PublicDir))
}

func TestReconcileWithoutCandidates(t *testing.T) {
	opts := testOptions(t).withDefaults()
	assert.Error(t, reconcile(opts, osOps{}, slog.Default()))
}

func TestCommitSurvivesExternalRename(t *testing.T) {
	opts := testOptions(t)
	opts.SettleDelay = 50 * time.Millisecond
	tx, err := Begin(context.Background(), opts)
	require.NoError(t, err)
	writeTree(t, tx.Root(), map[string]string{"projects.json": "new"})

	live := filepath.Join(opts.PublicDir, "projects")
	tx.ops = &renameAfterPromote{live: live, to: live + " 2"}
	require.NoError(t, tx.Commit(context.Background()))
	require.NoError(t, tx.Close())
	assert.Equal(t, "new", readFile(t, filepath.Join(live, "projects.json")))
}

// renameAfterPromote plays a sync client that renames the live directory
// right after it appears.
type renameAfterPromote struct {
	osOps
	live, to string
	done     bool
}

func (r *renameAfterPromote) Rename(a, b string) error {
	if err := os.Rename(a, b); err != nil {
		return err
	}
	if b == r.live && !r.done {
		r.done = true
		return os.Rename(r.live, r.to)
	}
	return nil
}

func writeLock(t *testing.T, opts Options, pid int, age time.Duration) {
	t.Helper()
	info := LockInfo{PID: pid, Time: time.Now().Add(-age)}
	require.NoError(t, os.WriteFile(filepath.Join(opts.PublicDir, "projects_build.lock"), []byte(info.String()+"\n"), 0o644))
}

func TestRepairAfterCrashMidSwap(t *testing.T) {
	opts := testOptions(t)
	// Crash after the live tree was moved aside and before the temp root
	// was promoted.
	backup := filepath.Join(opts.PublicDir, "projects_backup_100_1")
	partial := filepath.Join(opts.PublicDir, "projects_tmp_partial")
	writeTree(t, backup, map[string]string{"projects.json": "old"})
	writeTree(t, partial, map[string]string{"half.png": "x"})
	writeLock(t, opts, 99999999, time.Minute)
	touch(t, backup, time.Hour)

	require.True(t, NeedsRepair(opts))
	report, err := Repair(context.Background(), opts)
	require.NoError(t, err)
	assert.True(t, report.LockStale)
	assert.True(t, report.LockRemoved)
	assert.True(t, report.LiveMissing)
	assert.Equal(t, backup, report.Restored, "incomplete temp roots are never restored")
	assert.Equal(t, "old", readFile(t, filepath.Join(opts.PublicDir, "projects", "projects.json")))
	assert.False(t, NeedsRepair(opts))
}

func TestRepairPrefersNewestCompleteTree(t *testing.T) {
	opts := testOptions(t)
	complete := filepath.Join(opts.PublicDir, "projects_tmp_done")
	variant := filepath.Join(opts.PublicDir, "projects 2")
	writeTree(t, complete, map[string]string{"projects.json": "new"})
	writeTree(t, variant, map[string]string{"projects.json": "synced"})
	touch(t, variant, time.Hour)

	report, err := Repair(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, complete, report.Restored)
	assert.Equal(t, []string{variant}, report.Removed)
	assert.Equal(t, "new", readFile(t, filepath.Join(opts.PublicDir, "projects", "projects.json")))
}

func TestRepairRespectsLiveLock(t *testing.T) {
	opts := testOptions(t)
	writeLock(t, opts, os.Getpid(), time.Minute)
	writeTree(t, filepath.Join(opts.PublicDir, "projects 2"), map[string]string{"projects.json": "x"})

	report, err := Repair(context.Background(), opts)
	assert.ErrorIs(t, err, ErrLockHeld)
	assert.False(t, report.LockStale)
	assert.NoDirExists(t, filepath.Join(opts.PublicDir, "projects"))

	opts.StaleLockAfter = time.Second
	report, err = Repair(context.Background(), opts)
	require.NoError(t, err)
	assert.True(t, report.LockRemoved, "old locks are stale even when the pid is alive")
	assert.DirExists(t, filepath.Join(opts.PublicDir, "projects"))
}

func TestRepairHealthyTree(t *testing.T) {
	opts := testOptions(t)
	writeTree(t, filepath.Join(opts.PublicDir, "projects"), map[string]string{"projects.json": "ok"})
	report, err := Repair(context.Background(), opts)
	require.NoError(t, err)
	assert.False(t, report.LiveMissing)
	assert.Empty(t, report.Restored)
	assert.Nil(t, report.Lock)
}

func TestLockInfoRoundTrip(t *testing.T) {
	info := LockInfo{PID: 42, Time: mustTime(t), BuildID: "abc"}
	got := ParseLockInfo(info.String())
	assert.Equal(t, 42, got.PID)
	assert.True(t, got.Time.Equal(info.Time))
	assert.Equal(t, "abc", got.BuildID)
	assert.Equal(t, LockInfo{}, ParseLockInfo("garbage"))
	assert.Equal(t, "pid=7 time=2026-01-02T03:04:05Z", fmt.Sprint(LockInfo{PID: 7, Time: mustTime(t)}))
}

func TestStateNames(t *testing.T) {
	assert.Equal(t, "verifying", StateVerifying.String())
	assert.Equal(t, "unknown", State(99).String())
	assert.True(t, StateAborted.Terminal())
	assert.False(t, StateBuilding.Terminal())
}
