package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyStage      = "stage"
	KeyProject    = "project"
	KeyCollection = "collection"
	KeyItem       = "item"
	KeyPath       = "path"
	KeyFile       = "file"
	KeyKind       = "kind"
	KeyReason     = "reason"
	KeyCount      = "count"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr       { return slog.String(KeyBuildID, id) }
func Stage(name string) slog.Attr       { return slog.String(KeyStage, name) }
func Project(id string) slog.Attr       { return slog.String(KeyProject, id) }
func Collection(name string) slog.Attr  { return slog.String(KeyCollection, name) }
func Item(id string) slog.Attr          { return slog.String(KeyItem, id) }
func Path(p string) slog.Attr           { return slog.String(KeyPath, p) }
func File(f string) slog.Attr           { return slog.String(KeyFile, f) }
func Kind(k string) slog.Attr           { return slog.String(KeyKind, k) }
func Reason(r string) slog.Attr         { return slog.String(KeyReason, r) }
func Count(n int) slog.Attr             { return slog.Int(KeyCount, n) }
func DurationMS(ms float64) slog.Attr   { return slog.Float64(KeyDurationMS, ms) }
func Since(start time.Time) slog.Attr   { return DurationMS(float64(time.Since(start).Microseconds()) / 1000) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
