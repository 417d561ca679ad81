package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"git.home.luguber.info/inful/foliobuilder/internal/logfields"
)

type siblingKind int

const (
	siblingNumbered siblingKind = iota
	siblingBackup
	siblingTemp
)

type sibling struct {
	path    string
	kind    siblingKind
	modTime time.Time
}

// siblings lists the directories next to the live one that share its
// prefix: numbered variants made by sync clients ("projects 2",
// "projects (1)"), backups and temp roots.
func siblings(opts Options) ([]sibling, error) {
	entries, err := os.ReadDir(opts.PublicDir)
	if err != nil {
		return nil, err
	}
	numbered := regexp.MustCompile(`^` + regexp.QuoteMeta(opts.LiveName) + `(?: \d+| \(\d+\))$`)
	var out []sibling
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name := e.Name()
		var kind siblingKind
		switch {
		case numbered.MatchString(name):
			kind = siblingNumbered
		case strings.HasPrefix(name, opts.LiveName+"_backup_"):
			kind = siblingBackup
		case strings.HasPrefix(name, opts.LiveName+"_tmp_"):
			kind = siblingTemp
		default:
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, sibling{path: filepath.Join(opts.PublicDir, name), kind: kind, modTime: info.ModTime()})
	}
	return out, nil
}

// newest returns the most recently modified sibling, breaking ties by path.
func newest(sibs []sibling) (sibling, bool) {
	if len(sibs) == 0 {
		return sibling{}, false
	}
	best := slices.MaxFunc(sibs, func(a, b sibling) int {
		if c := a.modTime.Compare(b.modTime); c != 0 {
			return c
		}
		return strings.Compare(b.path, a.path)
	})
	return best, true
}

func filterKind(sibs []sibling, kinds ...siblingKind) []sibling {
	var out []sibling
	for _, s := range sibs {
		if slices.Contains(kinds, s.kind) {
			out = append(out, s)
		}
	}
	return out
}

// errLiveMissing reports a live path that vanished after the swap with no
// numbered variant to take its place.
var errLiveMissing = errors.New("live directory missing and no variant found")

// reconcile verifies the live path after a swap. A live directory renamed
// to a numbered variant is renamed back (newest variant wins); the other
// variants are removed.
func reconcile(opts Options, ops fileOps, logger *slog.Logger) error {
	live := filepath.Join(opts.PublicDir, opts.LiveName)
	sibs, err := siblings(opts)
	if err != nil {
		return err
	}
	variants := filterKind(sibs, siblingNumbered)
	if _, err := os.Stat(live); errors.Is(err, os.ErrNotExist) {
		best, ok := newest(variants)
		if !ok {
			return fmt.Errorf("%w: %s", errLiveMissing, live)
		}
		if err := ops.Rename(best.path, live); err != nil {
			return fmt.Errorf("restore %s: %w", best.path, err)
		}
		logger.Warn("Live directory was renamed externally; restored", logfields.Path(best.path))
		variants = slices.DeleteFunc(variants, func(s sibling) bool { return s.path == best.path })
	}
	var errs []error
	for _, v := range variants {
		if err := ops.RemoveAll(v.path); err != nil {
			errs = append(errs, err)
			continue
		}
		logger.Info("Removed stray live directory variant", logfields.Path(v.path))
	}
	return errors.Join(errs...)
}

// removeLeftovers deletes backups and temp roots of earlier runs. Only
// called while holding the lock, when no other temp root can be in use.
func removeLeftovers(opts Options, ops fileOps, logger *slog.Logger) []string {
	sibs, err := siblings(opts)
	if err != nil {
		logger.Warn("Failed to list leftovers", logfields.Error(err))
		return nil
	}
	var removed []string
	for _, s := range filterKind(sibs, siblingBackup, siblingTemp) {
		if err := ops.RemoveAll(s.path); err != nil {
			logger.Warn("Failed to remove leftover", logfields.Path(s.path), logfields.Error(err))
			continue
		}
		removed = append(removed, s.path)
	}
	return removed
}

// RepairReport describes what Repair found and did.
type RepairReport struct {
	Lock        *LockInfo `json:"lock,omitempty"`
	LockStale   bool      `json:"lock_stale"`
	LockRemoved bool      `json:"lock_removed"`
	LiveMissing bool      `json:"live_missing"`
	Restored    string    `json:"restored,omitempty"`
	Removed     []string  `json:"removed,omitempty"`
}

// Repair recovers the live directory outside of a transaction. A stale lock
// (dead holder, or older than StaleLockAfter) is removed; a live lock makes
// Repair leave the tree alone. When the live directory is missing, the most
// recently modified same-prefix sibling (numbered variant, backup, or a temp
// root that holds a complete manifest) is renamed into place and the other
// numbered variants are removed.
func Repair(ctx context.Context, opts Options) (*RepairReport, error) {
	opts = opts.withDefaults()
	report := &RepairReport{}
	if err := ctx.Err(); err != nil {
		return report, err
	}
	logger := opts.Logger

	lockPath := filepath.Join(opts.PublicDir, opts.LockName)
	if info, mtime, err := ReadLock(lockPath); err == nil {
		report.Lock = &info
		started := info.Time
		if started.IsZero() {
			started = mtime
		}
		report.LockStale = !processAlive(info.PID) ||
			(opts.StaleLockAfter > 0 && time.Since(started) > opts.StaleLockAfter)
		if !report.LockStale {
			logger.Warn("Build lock is held by a running process; not repairing", slog.String("holder", info.String()))
			return report, fmt.Errorf("%w: %s", ErrLockHeld, info)
		}
		if err := os.Remove(lockPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return report, fmt.Errorf("remove stale lock: %w", err)
		}
		report.LockRemoved = true
		logger.Warn("Removed stale build lock", slog.String("holder", info.String()))
	} else if !errors.Is(err, os.ErrNotExist) {
		return report, fmt.Errorf("read lock: %w", err)
	}

	live := filepath.Join(opts.PublicDir, opts.LiveName)
	sibs, err := siblings(opts)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return report, nil
		}
		return report, err
	}
	variants := filterKind(sibs, siblingNumbered)
	if _, err := os.Stat(live); errors.Is(err, os.ErrNotExist) {
		report.LiveMissing = true
		if best, ok := newest(restoreCandidates(opts, sibs)); ok {
			if err := os.Rename(best.path, live); err != nil {
				return report, fmt.Errorf("restore %s: %w", best.path, err)
			}
			report.Restored = best.path
			logger.Warn("Restored live directory", logfields.Path(best.path))
			variants = slices.DeleteFunc(variants, func(s sibling) bool { return s.path == best.path })
		}
	}
	if _, err := os.Stat(live); err != nil {
		return report, nil
	}
	for _, v := range variants {
		if err := os.RemoveAll(v.path); err != nil {
			logger.Warn("Failed to remove variant", logfields.Path(v.path), logfields.Error(err))
			continue
		}
		report.Removed = append(report.Removed, v.path)
	}
	return report, nil
}

// restoreCandidates keeps siblings that hold a complete tree. Temp roots
// count only once their manifest has been written.
func restoreCandidates(opts Options, sibs []sibling) []sibling {
	var out []sibling
	for _, s := range sibs {
		if s.kind == siblingTemp {
			if _, err := os.Stat(filepath.Join(s.path, opts.ManifestName)); err != nil {
				continue
			}
		}
		out = append(out, s)
	}
	return out
}

// NeedsRepair reports whether the live directory is missing while a
// candidate to restore it exists.
func NeedsRepair(opts Options) bool {
	opts = opts.withDefaults()
	if _, err := os.Stat(filepath.Join(opts.PublicDir, opts.LiveName)); err == nil {
		return false
	}
	sibs, err := siblings(opts)
	if err != nil {
		return false
	}
	return len(restoreCandidates(opts, sibs)) > 0
}
