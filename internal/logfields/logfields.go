package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID     = "build_id"
	KeyStage       = "stage"
	KeyDurationMS  = "duration_ms"
	KeyPath        = "path"
	KeySource      = "source"
	KeyDestination = "destination"
	KeyURL         = "url"
	KeyLayout      = "layout"
	KeyLibrary     = "library"
	KeyPlugin      = "plugin"
	KeyFilter      = "filter"
	KeyCount       = "count"
	KeyError       = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr        { return slog.String(KeyBuildID, id) }
func Stage(name string) slog.Attr        { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr    { return slog.Float64(KeyDurationMS, ms) }
func Path(p string) slog.Attr            { return slog.String(KeyPath, p) }
func Source(s string) slog.Attr          { return slog.String(KeySource, s) }
func Destination(d string) slog.Attr     { return slog.String(KeyDestination, d) }
func URL(u string) slog.Attr             { return slog.String(KeyURL, u) }
func Layout(l string) slog.Attr          { return slog.String(KeyLayout, l) }
func Library(name string) slog.Attr      { return slog.String(KeyLibrary, name) }
func Plugin(name string) slog.Attr       { return slog.String(KeyPlugin, name) }
func Filter(name string) slog.Attr       { return slog.String(KeyFilter, name) }
func Count(n int) slog.Attr              { return slog.Int(KeyCount, n) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
