package observability

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextValues(t *testing.T) {
	ctx := WithBuildID(context.Background(), "build-1")
	ctx = WithStage(ctx, "discover")
	ctx = WithTrigger(ctx, "watch")

	lc := GetContext(ctx)
	assert.Equal(t, "build-1", lc.BuildID)
	assert.Equal(t, "discover", lc.Stage)
	assert.Equal(t, "watch", lc.Trigger)
}

func TestStageOverridesPrevious(t *testing.T) {
	ctx := WithStage(context.Background(), "discover")
	ctx = WithStage(ctx, "manifest")
	assert.Equal(t, "manifest", GetContext(ctx).Stage)
}

func TestContextHandlerAddsAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewContextHandler(slog.NewTextHandler(&buf, nil))).With("component", "test")

	ctx := WithStage(WithBuildID(context.Background(), "b-42"), "assets")
	logger.InfoContext(ctx, "copied")

	out := buf.String()
	assert.Contains(t, out, "build_id=b-42")
	assert.Contains(t, out, "stage=assets")
	assert.Contains(t, out, "component=test")
}

func TestContextHandlerWithoutContext(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewContextHandler(slog.NewTextHandler(&buf, nil)))
	logger.Info("plain")
	assert.NotContains(t, buf.String(), "build_id")
}
