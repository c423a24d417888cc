package build

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	sberrors "git.home.luguber.info/inful/sitebuilder/internal/errors"
)

// BuildOutcome is the final result of a build.
type BuildOutcome string

const (
	OutcomeSuccess  BuildOutcome = "success"
	OutcomeWarning  BuildOutcome = "warning"
	OutcomeFailed   BuildOutcome = "failed"
	OutcomeCanceled BuildOutcome = "canceled"
)

// BrokenLink is an internal link that resolves to nothing in the output.
type BrokenLink struct {
	Page        string `json:"page"`
	Destination string `json:"destination"`
}

// BuildReport captures what a build did.
type BuildReport struct {
	ID             string
	Start          time.Time
	End            time.Time
	Pages          int   // pages written
	Assets         int   // files copied by passthrough rules
	AssetBytes     int64 // bytes copied by passthrough rules
	Layouts        int
	StageDurations map[string]time.Duration
	StageErrors    map[StageName]StageErrorKind
	BrokenLinks    []BrokenLink
	Errors         []error // fatal or cancellation errors (at most one today)
	Warnings       []error
	Outcome        BuildOutcome
}

func newBuildReport() *BuildReport {
	return &BuildReport{
		ID:             uuid.NewString(),
		Start:          time.Now(),
		StageDurations: make(map[string]time.Duration),
		StageErrors:    make(map[StageName]StageErrorKind),
	}
}

func (r *BuildReport) recordError(se *StageError) {
	r.Errors = append(r.Errors, se)
	r.StageErrors[se.Stage] = se.Kind
}

func (r *BuildReport) recordWarning(se *StageError) {
	r.Warnings = append(r.Warnings, se)
	r.StageErrors[se.Stage] = se.Kind
}

func (r *BuildReport) finish() { r.End = time.Now() }

// deriveOutcome sets Outcome from recorded errors and warnings.
func (r *BuildReport) deriveOutcome() {
	if len(r.Errors) > 0 {
		for _, e := range r.Errors {
			if se, ok := e.(*StageError); ok && se.Kind == StageErrorCanceled {
				r.Outcome = OutcomeCanceled
				return
			}
		}
		r.Outcome = OutcomeFailed
		return
	}
	if len(r.Warnings) > 0 {
		r.Outcome = OutcomeWarning
		return
	}
	r.Outcome = OutcomeSuccess
}

// Duration is the wall time of the build.
func (r *BuildReport) Duration() time.Duration { return r.End.Sub(r.Start) }

// Summary returns a human-readable single-line summary.
func (r *BuildReport) Summary() string {
	return fmt.Sprintf("build=%s pages=%d assets=%d bytes=%d duration=%s errors=%d warnings=%d outcome=%s",
		r.ID, r.Pages, r.Assets, r.AssetBytes, r.Duration().Truncate(time.Millisecond), len(r.Errors), len(r.Warnings), r.Outcome)
}

type reportJSON struct {
	ID               string            `json:"id"`
	Start            time.Time         `json:"start"`
	End              time.Time         `json:"end"`
	DurationMS       int64             `json:"duration_ms"`
	Pages            int               `json:"pages"`
	Assets           int               `json:"assets"`
	AssetBytes       int64             `json:"asset_bytes"`
	Layouts          int               `json:"layouts"`
	StageDurationsMS map[string]int64  `json:"stage_durations_ms"`
	StageErrors      map[string]string `json:"stage_errors,omitempty"`
	BrokenLinks      []BrokenLink      `json:"broken_links,omitempty"`
	Errors           []string          `json:"errors,omitempty"`
	Warnings         []string          `json:"warnings,omitempty"`
	Outcome          BuildOutcome      `json:"outcome"`
}

// MarshalJSON renders errors as strings and durations in milliseconds.
func (r *BuildReport) MarshalJSON() ([]byte, error) {
	out := reportJSON{
		ID:               r.ID,
		Start:            r.Start,
		End:              r.End,
		DurationMS:       r.Duration().Milliseconds(),
		Pages:            r.Pages,
		Assets:           r.Assets,
		AssetBytes:       r.AssetBytes,
		Layouts:          r.Layouts,
		StageDurationsMS: make(map[string]int64, len(r.StageDurations)),
		BrokenLinks:      r.BrokenLinks,
		Outcome:          r.Outcome,
	}
	for k, v := range r.StageDurations {
		out.StageDurationsMS[k] = v.Milliseconds()
	}
	if len(r.StageErrors) > 0 {
		out.StageErrors = make(map[string]string, len(r.StageErrors))
		for k, v := range r.StageErrors {
			out.StageErrors[string(k)] = string(v)
		}
	}
	for _, e := range r.Errors {
		out.Errors = append(out.Errors, e.Error())
	}
	for _, w := range r.Warnings {
		out.Warnings = append(out.Warnings, w.Error())
	}
	return json.Marshal(out)
}

// Persist writes the report as indented JSON to path via a temp file and rename.
func (r *BuildReport) Persist(path string) error {
	if r.End.IsZero() {
		r.finish()
		r.deriveOutcome()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return sberrors.FileSystemError("mkdir", filepath.Dir(path), err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return sberrors.InternalError("marshal build report", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return sberrors.FileSystemError("write", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return sberrors.FileSystemError("rename", path, err)
	}
	return nil
}
