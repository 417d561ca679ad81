package errors

import (
	stderrors "errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(CategoryConfig, "invalid configuration").
			WithSeverity(SeverityFatal).
			WithContext("file", "foliobuilder.yaml").
			Build()

		assert.Equal(t, CategoryConfig, err.Category())
		assert.Equal(t, SeverityFatal, err.Severity())
		assert.Equal(t, "invalid configuration", err.Message())
		file, ok := err.Context().GetString("file")
		require.True(t, ok)
		assert.Equal(t, "foliobuilder.yaml", file)
	})

	t.Run("Lock errors are fatal and never retried", func(t *testing.T) {
		err := LockError("lock held").Build()
		assert.True(t, err.IsFatal())
		assert.False(t, err.CanRetry())
	})

	t.Run("Wrapped chains are detected", func(t *testing.T) {
		base := WrapError(os.ErrExist, CategoryLock, "lock held").Build()
		wrapped := fmt.Errorf("begin: %w", base)

		assert.True(t, IsClassified(wrapped))
		assert.True(t, HasCategory(wrapped, CategoryLock))
		assert.True(t, stderrors.Is(wrapped, os.ErrExist))
		assert.Equal(t, CategoryInternal, GetCategory(stderrors.New("plain")))
	})

	t.Run("WithContext copies", func(t *testing.T) {
		base := AssetError("missing").Build()
		derived := base.WithContext("file", "a.png")
		_, ok := base.Context().Get("file")
		assert.False(t, ok)
		v, ok := derived.Context().GetString("file")
		require.True(t, ok)
		assert.Equal(t, "a.png", v)
	})
}

func TestCLIErrorAdapterExitCodes(t *testing.T) {
	a := NewCLIErrorAdapter(false, nil)
	cases := []struct {
		err  error
		code int
	}{
		{nil, 0},
		{stderrors.New("plain"), 1},
		{ConfigError("bad").Build(), 2},
		{LockError("held").Build(), 3},
		{PublishError("swap").Build(), 4},
		{InternalError("bug").Build(), 10},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.code, a.ExitCodeFor(tc.err), "%v", tc.err)
	}
}

func TestCLIErrorAdapterFormat(t *testing.T) {
	quiet := NewCLIErrorAdapter(false, nil)
	err := WrapError(os.ErrExist, CategoryLock, "another build is running").Fatal().Build()
	assert.Equal(t, "Error: another build is running: file already exists", quiet.FormatError(err))

	verbose := NewCLIErrorAdapter(true, nil)
	assert.Contains(t, verbose.FormatError(err), "[lock:fatal]")
}
