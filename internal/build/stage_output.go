package build

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	sberrors "git.home.luguber.info/inful/sitebuilder/internal/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// stageValidate checks settings and directories before anything is written.
func stageValidate(_ context.Context, bs *BuildState) error {
	g := bs.Generator
	if g.settings == nil {
		return newFatalStageError(StageValidate, sberrors.InternalError("generator has no settings", nil))
	}
	if err := g.settings.Validate(g.dirs); err != nil {
		return newFatalStageError(StageValidate, err)
	}

	info, err := os.Stat(g.InputDir())
	if err != nil || !info.IsDir() {
		return newFatalStageError(StageValidate,
			sberrors.ValidationFailed("dir.input", "input directory does not exist").WithContext("path", g.InputDir()))
	}
	if contains(g.OutputDir(), g.InputDir()) || contains(g.OutputDir(), g.root) {
		return newFatalStageError(StageValidate,
			sberrors.ValidationFailed("dir.output", "output directory must not contain the input directory or project root").
				WithContext("path", g.OutputDir()))
	}

	resolved, err := g.settings.ResolvePassthrough(g.dirs.Input)
	if err != nil {
		return newFatalStageError(StageValidate, err)
	}
	bs.Passthrough = resolved
	return nil
}

// contains reports whether child is parent or lies beneath it.
func contains(parent, child string) bool {
	p, err1 := filepath.Abs(parent)
	c, err2 := filepath.Abs(child)
	if err1 != nil || err2 != nil {
		return false
	}
	rel, err := filepath.Rel(p, c)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// stagePrepareOutput creates the staging directory next to the output.
func stagePrepareOutput(_ context.Context, bs *BuildState) error {
	if err := bs.Staging.Create(); err != nil {
		return newFatalStageError(StagePrepareOutput, sberrors.FileSystemError("mkdir", bs.Generator.OutputDir(), err))
	}
	if !bs.Generator.clean {
		return nil
	}
	n, err := bs.Staging.RemoveStale()
	if err != nil {
		return newWarnStageError(StagePrepareOutput, err)
	}
	if n > 0 {
		bs.log.Info("Removed stale build directories", logfields.Count(n))
	}
	return nil
}

// stagePromote swaps the finished staging directory into place.
func stagePromote(_ context.Context, bs *BuildState) error {
	if err := bs.Staging.Promote(); err != nil {
		return newFatalStageError(StagePromote, sberrors.FileSystemError("promote", bs.Generator.OutputDir(), err))
	}
	return nil
}
