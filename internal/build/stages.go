package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
)

// StageName identifies a build stage.
type StageName string

const (
	StageValidate         StageName = "validate"
	StagePrepareOutput    StageName = "prepare_output"
	StageCopyPassthrough  StageName = "copy_passthrough"
	StageLoadLayouts      StageName = "load_layouts"
	StageCollectPages     StageName = "collect_pages"
	StageBuildCollections StageName = "build_collections"
	StageCheckLinks       StageName = "check_links"
	StageWritePages       StageName = "write_pages"
	StagePromote          StageName = "promote"
)

// Stage is a discrete unit of work in the site build.
type Stage func(ctx context.Context, bs *BuildState) error

// StageDef pairs a stage with its name.
type StageDef struct {
	Name StageName
	Fn   Stage
}

// Pipeline assembles stage definitions in order.
type Pipeline struct {
	defs []StageDef
}

// NewPipeline creates an empty pipeline.
func NewPipeline() *Pipeline { return &Pipeline{defs: make([]StageDef, 0, 8)} }

// Add appends a stage unconditionally.
func (p *Pipeline) Add(name StageName, fn Stage) *Pipeline {
	p.defs = append(p.defs, StageDef{Name: name, Fn: fn})
	return p
}

// AddIf appends a stage only if cond is true.
func (p *Pipeline) AddIf(cond bool, name StageName, fn Stage) *Pipeline {
	if cond {
		p.Add(name, fn)
	}
	return p
}

// Build returns a copy of the stage definitions.
func (p *Pipeline) Build() []StageDef {
	out := make([]StageDef, len(p.defs))
	copy(out, p.defs)
	return out
}

// StageErrorKind enumerates structured stage error categories.
type StageErrorKind string

const (
	StageErrorFatal    StageErrorKind = "fatal"    // Build must abort.
	StageErrorWarning  StageErrorKind = "warning"  // Non-fatal; record and continue.
	StageErrorCanceled StageErrorKind = "canceled" // Context cancellation.
)

// StageError is a structured error carrying a kind and the underlying cause.
type StageError struct {
	Kind  StageErrorKind
	Stage StageName
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s stage %s: %v", e.Kind, e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

func newFatalStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorFatal, Stage: stage, Err: err}
}

func newWarnStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorWarning, Stage: stage, Err: err}
}

func newCanceledStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorCanceled, Stage: stage, Err: err}
}

// checkCanceled returns a canceled stage error once ctx is done.
func checkCanceled(ctx context.Context, stage StageName) error {
	select {
	case <-ctx.Done():
		return newCanceledStageError(stage, ctx.Err())
	default:
		return nil
	}
}

// classify wraps untyped errors as fatal.
func classify(stage StageName, err error) *StageError {
	var se *StageError
	if errors.As(err, &se) {
		return se
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return newCanceledStageError(stage, err)
	}
	return newFatalStageError(stage, err)
}

func resultLabel(kind StageErrorKind) metrics.ResultLabel {
	switch kind {
	case StageErrorWarning:
		return metrics.ResultWarning
	case StageErrorCanceled:
		return metrics.ResultCanceled
	default:
		return metrics.ResultFatal
	}
}

// runStages executes stages in order, recording timing and stopping on the
// first fatal or canceled stage.
func runStages(ctx context.Context, bs *BuildState, stages []StageDef) error {
	rec := bs.Generator.recorder
	for _, st := range stages {
		if err := checkCanceled(ctx, st.Name); err != nil {
			se := classify(st.Name, err)
			bs.Report.recordError(se)
			rec.IncStageResult(string(st.Name), metrics.ResultCanceled)
			return se
		}
		t0 := time.Now()
		err := st.Fn(ctx, bs)
		dur := time.Since(t0)
		bs.Report.StageDurations[string(st.Name)] = dur
		rec.ObserveStageDuration(string(st.Name), dur)

		if err == nil {
			rec.IncStageResult(string(st.Name), metrics.ResultSuccess)
			bs.log.Debug("Stage complete", logfields.Stage(string(st.Name)), logfields.DurationMS(float64(dur.Microseconds())/1000))
			continue
		}
		se := classify(st.Name, err)
		rec.IncStageResult(string(st.Name), resultLabel(se.Kind))
		if se.Kind == StageErrorWarning {
			bs.Report.recordWarning(se)
			bs.log.Warn("Stage completed with warnings", logfields.Stage(string(st.Name)), logfields.Error(se.Err))
			continue
		}
		bs.Report.recordError(se)
		bs.log.Error("Stage failed", slog.String("kind", string(se.Kind)), logfields.Stage(string(st.Name)), logfields.Error(se.Err))
		return se
	}
	return nil
}
