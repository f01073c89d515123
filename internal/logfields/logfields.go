package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyDocument   = "document"
	KeyFormat     = "format"
	KeyProfile    = "profile"
	KeyReason     = "reason"
	KeyOutputPath = "output_path"
	KeyPath       = "path"
	KeyRunID      = "run_id"
	KeyWorker     = "worker"
	KeyAttempt    = "attempt"
	KeyTool       = "tool"
	KeyDurationMS = "duration_ms"
	KeyCount      = "count"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Document(id string) slog.Attr    { return slog.String(KeyDocument, id) }
func Format(f string) slog.Attr       { return slog.String(KeyFormat, f) }
func Profile(p string) slog.Attr      { return slog.String(KeyProfile, p) }
func Reason(r string) slog.Attr       { return slog.String(KeyReason, r) }
func OutputPath(p string) slog.Attr   { return slog.String(KeyOutputPath, p) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Worker(n int) slog.Attr          { return slog.Int(KeyWorker, n) }
func Attempt(n int) slog.Attr         { return slog.Int(KeyAttempt, n) }
func Tool(name string) slog.Attr      { return slog.String(KeyTool, name) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }

// Duration converts d to a duration_ms attribute.
func Duration(d time.Duration) slog.Attr {
	return DurationMS(float64(d) / float64(time.Millisecond))
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
