package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	ferrors "git.home.luguber.info/inful/foliobuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/foliobuilder/internal/logfields"
	"git.home.luguber.info/inful/foliobuilder/internal/retry"
)

// ErrCrossDevice is returned when the live directory and its parent are on
// different filesystems, so the swap could not be a rename.
var ErrCrossDevice = errors.New("live directory and temp root are on different filesystems")

// ErrInvalidState is returned when an operation is called out of order.
var ErrInvalidState = errors.New("invalid transaction state")

// Options configures a Transaction.
type Options struct {
	// PublicDir holds the live directory, its temp roots, backups and the
	// lock marker.
	PublicDir string
	// LiveName is the live directory name, "projects" by default.
	LiveName string
	// LockName is the lock marker name, "<live>_build.lock" by default.
	LockName string
	// SettleDelay is waited after the swap before verifying the live path.
	SettleDelay time.Duration
	// StaleLockAfter lets Repair remove markers older than this even when the
	// recorded process still appears alive. Zero disables the age check.
	StaleLockAfter time.Duration
	// ManifestName marks a temp root as complete for Repair.
	ManifestName string
	// OnCommit runs after a successful Commit while the lock is still held.
	// Files written there next to the live directory never race another
	// build.
	OnCommit func(ctx context.Context)
	BuildID  string
	Logger   *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.LiveName == "" {
		o.LiveName = "projects"
	}
	if o.LockName == "" {
		o.LockName = o.LiveName + "_build.lock"
	}
	if o.ManifestName == "" {
		o.ManifestName = "projects.json"
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// fileOps is the subset of os used for the swap, replaceable in tests.
type fileOps interface {
	Rename(oldpath, newpath string) error
	RemoveAll(path string) error
}

type osOps struct{}

func (osOps) Rename(a, b string) error { return os.Rename(a, b) }
func (osOps) RemoveAll(p string) error { return os.RemoveAll(p) }

// Transaction is one locked publish of the live directory.
type Transaction struct {
	mu     sync.Mutex
	opts   Options
	ops    fileOps
	state  State
	lock   *Lock
	live   string
	temp   string
	backup string
	now    func() time.Time
}

// Begin checks the filesystem precondition, takes the lock and creates the
// temp root. On error nothing is left behind and the live tree is untouched.
func Begin(ctx context.Context, opts Options) (*Transaction, error) {
	opts = opts.withDefaults()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(opts.PublicDir, 0o755); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "create public directory").
			WithContext("path", opts.PublicDir).Fatal().Build()
	}
	tx := &Transaction{
		opts: opts,
		ops:  osOps{},
		live: filepath.Join(opts.PublicDir, opts.LiveName),
		now:  time.Now,
	}
	if err := tx.checkFilesystem(); err != nil {
		tx.state = StateAborted
		return nil, err
	}

	lock, err := AcquireLock(filepath.Join(opts.PublicDir, opts.LockName), LockInfo{
		PID:     os.Getpid(),
		Time:    tx.now(),
		BuildID: opts.BuildID,
	})
	if err != nil {
		tx.state = StateAborted
		if errors.Is(err, ErrLockHeld) {
			b := ferrors.WrapError(err, ferrors.CategoryLock, "another build is running").Fatal().UserAction()
			if info, _, rerr := ReadLock(filepath.Join(opts.PublicDir, opts.LockName)); rerr == nil {
				b = b.WithContext("holder", info.String())
			}
			return nil, b.Build()
		}
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "acquire build lock").Fatal().Build()
	}
	tx.lock = lock
	tx.state = StateLockAcquired

	temp, err := os.MkdirTemp(opts.PublicDir, opts.LiveName+"_tmp_")
	if err != nil {
		_ = lock.Release()
		tx.state = StateAborted
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "create temp root").Fatal().Build()
	}
	tx.temp = temp
	tx.state = StateBuilding
	opts.Logger.Debug("Publish transaction started",
		logfields.BuildID(opts.BuildID),
		logfields.Path(temp))
	return tx, nil
}

func (tx *Transaction) checkFilesystem() error {
	if _, err := os.Stat(tx.live); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	same, err := sameFilesystem(tx.opts.PublicDir, tx.live)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "check live filesystem").Fatal().Build()
	}
	if !same {
		return ferrors.WrapError(ErrCrossDevice, ferrors.CategoryValidation, "live directory is a mount point").
			WithContext("live", tx.live).Fatal().Build()
	}
	return nil
}

// Root is the temp directory to build into.
func (tx *Transaction) Root() string { return tx.temp }

// Live is the live directory path.
func (tx *Transaction) Live() string { return tx.live }

// Backup is the path the previous live tree was moved to during Commit, if
// any.
func (tx *Transaction) Backup() string {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.backup
}

// State returns the current state.
func (tx *Transaction) State() State {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.state
}

// Commit swaps the temp root into the live path, verifies the result after
// the settle delay, and removes leftovers. Errors before the swap completes
// roll back; reconciliation problems after it are only logged. When the live
// path has vanished by then, the backup is kept so Repair can restore it.
func (tx *Transaction) Commit(ctx context.Context) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.state != StateBuilding {
		return fmt.Errorf("%w: commit in state %s", ErrInvalidState, tx.state)
	}
	if err := ctx.Err(); err != nil {
		tx.rollbackLocked()
		return err
	}
	if err := tx.swapLocked(); err != nil {
		tx.rollbackLocked()
		return err
	}
	tx.state = StateVerifying

	if !sleepCtx(ctx, tx.opts.SettleDelay) {
		tx.opts.Logger.Warn("Settle wait interrupted; verifying now")
	}
	switch err := reconcile(tx.opts, tx.ops, tx.opts.Logger); {
	case errors.Is(err, errLiveMissing):
		// The backup and temp roots are the only restore candidates left.
		tx.opts.Logger.Error("Live directory vanished after publish; keeping backup for repair",
			logfields.Path(tx.live), logfields.Error(err))
	case err != nil:
		tx.opts.Logger.Warn("Post-publish verification incomplete", logfields.Error(err))
		tx.cleanupLocked()
	default:
		tx.cleanupLocked()
	}
	tx.state = StateCommitted
	tx.opts.Logger.Info("Published live directory", logfields.Path(tx.live), logfields.BuildID(tx.opts.BuildID))
	if tx.opts.OnCommit != nil {
		tx.opts.OnCommit(ctx)
	}
	return nil
}

// swapLocked moves the live tree aside and renames the temp root into its
// place. The old tree is never modified in place: the only fallback when it
// cannot be moved is to remove it.
func (tx *Transaction) swapLocked() error {
	if _, err := os.Stat(tx.live); err == nil {
		backup := filepath.Join(tx.opts.PublicDir, fmt.Sprintf("%s_backup_%d_%d", tx.opts.LiveName, tx.now().Unix(), os.Getpid()))
		rename := func() error { return tx.ops.Rename(tx.live, backup) }
		if rerr := retry.DefaultPolicy().Do(context.Background(), rename); rerr == nil {
			tx.backup = backup
		} else {
			tx.opts.Logger.Warn("Could not move live directory aside; removing it", logfields.Path(tx.live), logfields.Error(rerr))
			if derr := tx.ops.RemoveAll(tx.live); derr != nil {
				return ferrors.WrapError(errors.Join(rerr, derr), ferrors.CategoryPublish, "cannot move or remove live directory").
					WithContext("live", tx.live).Build()
			}
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return ferrors.WrapError(err, ferrors.CategoryPublish, "stat live directory").WithContext("live", tx.live).Build()
	}

	if err := tx.ops.Rename(tx.temp, tx.live); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryPublish, "promote temp root").
			WithContext("temp", tx.temp).WithContext("live", tx.live).Build()
	}
	tx.temp = ""
	return nil
}

// Rollback restores the backup when the live path is missing and deletes
// the temp root. It is a no-op in terminal states.
func (tx *Transaction) Rollback() {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.rollbackLocked()
}

func (tx *Transaction) rollbackLocked() {
	if tx.state.Terminal() {
		return
	}
	if tx.backup != "" {
		if _, err := os.Stat(tx.live); errors.Is(err, os.ErrNotExist) {
			if err := tx.ops.Rename(tx.backup, tx.live); err != nil {
				tx.opts.Logger.Error("Failed to restore backup", logfields.Path(tx.backup), logfields.Error(err))
			} else {
				tx.opts.Logger.Warn("Restored previous live directory", logfields.Path(tx.live))
				tx.backup = ""
			}
		}
	}
	if tx.temp != "" {
		if err := tx.ops.RemoveAll(tx.temp); err != nil {
			tx.opts.Logger.Warn("Failed to remove temp root", logfields.Path(tx.temp), logfields.Error(err))
		}
		tx.temp = ""
	}
	tx.state = StateRolledBack
}

// Close rolls back an unfinished transaction and releases the lock. It is
// safe to call in every state and more than once.
func (tx *Transaction) Close() error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.rollbackLocked()
	if tx.lock == nil {
		return nil
	}
	err := tx.lock.Release()
	tx.lock = nil
	return err
}

func (tx *Transaction) cleanupLocked() {
	if tx.backup != "" {
		if err := tx.ops.RemoveAll(tx.backup); err != nil {
			tx.opts.Logger.Warn("Failed to remove backup", logfields.Path(tx.backup), logfields.Error(err))
		} else {
			tx.backup = ""
		}
	}
	removed := removeLeftovers(tx.opts, tx.ops, tx.opts.Logger)
	if len(removed) > 0 {
		tx.opts.Logger.Debug("Removed leftovers from earlier runs", logfields.Count(len(removed)))
	}
}

// Run executes build inside a transaction and commits it when build
// succeeds. The lock is released on every path.
func Run(ctx context.Context, opts Options, build func(ctx context.Context, root string) error) (err error) {
	tx, err := Begin(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := tx.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if err := build(ctx, tx.Root()); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit(ctx)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
