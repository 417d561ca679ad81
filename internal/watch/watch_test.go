package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu       sync.Mutex
	triggers []string
	release  chan struct{}
}

func (r *recorder) build(ctx context.Context, trigger string) error {
	r.mu.Lock()
	r.triggers = append(r.triggers, trigger)
	release := r.release
	r.mu.Unlock()
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
		}
	}
	return nil
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.triggers...)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestTriggerCoalescesWhileBuilding(t *testing.T) {
	rec := &recorder{release: make(chan struct{})}
	w := New(Options{Root: t.TempDir(), Logger: quietLogger()}, rec.build)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		w.worker(ctx)
		close(done)
	}()

	w.Trigger(TriggerStart)
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, 5*time.Millisecond)

	for range 5 {
		w.Trigger(TriggerWatch)
	}
	rec.release <- struct{}{}
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 2 }, time.Second, 5*time.Millisecond)
	rec.release <- struct{}{}

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []string{TriggerStart, TriggerWatch}, rec.snapshot())

	cancel()
	<-done
}

func TestRunBuildsOnStartAndOnChange(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "alpha"), 0o755))
	rec := &recorder{}
	w := New(Options{Root: root, Debounce: 20 * time.Millisecond, Logger: quietLogger()}, rec.build)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, TriggerStart, rec.snapshot()[0])

	require.NoError(t, os.WriteFile(filepath.Join(root, "alpha", "alpha.folio"), []byte("{}"), 0o600))
	require.Eventually(t, func() bool { return len(rec.snapshot()) >= 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, TriggerWatch, rec.snapshot()[1])

	cancel()
	require.NoError(t, <-errc)
}

func TestRunIgnoresExcludedAndTempFiles(t *testing.T) {
	root := t.TempDir()
	public := filepath.Join(root, "out")
	require.NoError(t, os.MkdirAll(public, 0o755))
	rec := &recorder{}
	w := New(Options{Root: root, Exclude: []string{public}, Debounce: 20 * time.Millisecond, Logger: quietLogger()}, rec.build)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx) }()
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(public, "projects.json"), []byte("{}"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.swp"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".hidden"), []byte("x"), 0o600))
	time.Sleep(150 * time.Millisecond)
	assert.Len(t, rec.snapshot(), 1)

	cancel()
	require.NoError(t, <-errc)
}

func TestRunIntervalTrigger(t *testing.T) {
	rec := &recorder{}
	w := New(Options{Root: t.TempDir(), Interval: 50 * time.Millisecond, Logger: quietLogger()}, rec.build)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		for _, tr := range rec.snapshot() {
			if tr == TriggerInterval {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-errc)
}

func TestIgnored(t *testing.T) {
	out := t.TempDir()
	w := New(Options{Root: t.TempDir(), Exclude: []string{out}}, nil)
	assert.True(t, w.ignored(filepath.Join(out, "projects", "a.png")))
	assert.True(t, w.ignored("/src/file.txt~"))
	assert.True(t, w.ignored("/src/#draft#"))
	assert.False(t, w.ignored("/src/alpha/alpha.folio"))
}
