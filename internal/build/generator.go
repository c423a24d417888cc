package build

import (
	"context"
	"html/template"
	"log/slog"
	"path/filepath"

	sberrors "git.home.luguber.info/inful/sitebuilder/internal/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/registry"
	"git.home.luguber.info/inful/sitebuilder/internal/workspace"
)

// DefaultIncludesDir holds layouts, relative to the input directory.
const DefaultIncludesDir = "_includes"

// Generator builds a site from frozen settings. A Generator may run many
// builds; builds must not overlap.
type Generator struct {
	settings   *registry.Settings
	dirs       registry.BuildConfig
	root       string
	includes   string
	clean      bool
	checkLinks bool
	recorder   metrics.Recorder
	logger     *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithRoot sets the project root that the input directory, output directory
// and passthrough sources are relative to. Defaults to the working directory.
func WithRoot(root string) Option {
	return func(g *Generator) { g.root = root }
}

// WithIncludesDir sets the layouts directory name inside the input directory.
func WithIncludesDir(name string) Option {
	return func(g *Generator) {
		if name != "" {
			g.includes = name
		}
	}
}

// WithClean removes staging directories and backups left by interrupted builds.
func WithClean(clean bool) Option {
	return func(g *Generator) { g.clean = clean }
}

// WithLinkCheck toggles the internal link check stage.
func WithLinkCheck(enabled bool) Option {
	return func(g *Generator) { g.checkLinks = enabled }
}

// WithRecorder injects a metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(g *Generator) {
		if r != nil {
			g.recorder = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewGenerator creates a generator for settings and the directory mapping.
func NewGenerator(settings *registry.Settings, dirs registry.BuildConfig, opts ...Option) *Generator {
	g := &Generator{
		settings:   settings,
		dirs:       dirs,
		root:       ".",
		includes:   DefaultIncludesDir,
		checkLinks: true,
		recorder:   metrics.NoopRecorder{},
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// InputDir is the absolute-or-root-relative input directory.
func (g *Generator) InputDir() string { return filepath.Join(g.root, g.dirs.Input) }

// OutputDir is the absolute-or-root-relative output directory.
func (g *Generator) OutputDir() string { return filepath.Join(g.root, g.dirs.Output) }

// Root is the project root.
func (g *Generator) Root() string { return g.root }

// BuildState carries mutable state across the stages of one build.
type BuildState struct {
	Generator *Generator
	Report    *BuildReport
	Staging   *workspace.Manager

	Passthrough []registry.Resolved
	// Written maps output-relative file paths to what produced them.
	Written     map[string]string
	Layouts     *template.Template
	LayoutDefs  map[string]*Layout
	Pages       []*Page
	Collections map[string][]*Page

	log *slog.Logger
}

func newBuildState(g *Generator, report *BuildReport) *BuildState {
	return &BuildState{
		Generator: g,
		Report:    report,
		Staging:   workspace.NewManager(g.OutputDir()),
		Written:   make(map[string]string),
		log:       g.logger.With(logfields.BuildID(report.ID)),
	}
}

// StagePath returns the staging location of an output-relative path.
func (bs *BuildState) StagePath(rel string) string {
	return filepath.Join(bs.Staging.GetPath(), filepath.FromSlash(rel))
}

// claim records that origin writes rel, rejecting a second writer.
func (bs *BuildState) claim(rel, origin string) error {
	if prev, ok := bs.Written[rel]; ok {
		return sberrors.DestinationConflict(rel, prev, origin)
	}
	bs.Written[rel] = origin
	return nil
}

// Generate runs one build. The report is returned even when the build
// fails so callers can persist it.
func (g *Generator) Generate(ctx context.Context) (*BuildReport, error) {
	report := newBuildReport()
	bs := newBuildState(g, report)
	bs.log.Info("Starting site build", slog.String("input", g.InputDir()), slog.String("output", g.OutputDir()))

	stages := NewPipeline().
		Add(StageValidate, stageValidate).
		Add(StagePrepareOutput, stagePrepareOutput).
		Add(StageCopyPassthrough, stageCopyPassthrough).
		Add(StageLoadLayouts, stageLoadLayouts).
		Add(StageCollectPages, stageCollectPages).
		Add(StageBuildCollections, stageBuildCollections).
		AddIf(g.checkLinks, StageCheckLinks, stageCheckLinks).
		Add(StageWritePages, stageWritePages).
		Add(StagePromote, stagePromote).
		Build()

	err := runStages(ctx, bs, stages)
	if err != nil {
		if cerr := bs.Staging.Cleanup(); cerr != nil {
			bs.log.Warn("Failed to remove staging directory", logfields.Error(cerr))
		}
	}
	report.finish()
	report.deriveOutcome()
	g.recorder.ObserveBuildDuration(report.Duration())
	g.recorder.IncBuildOutcome(metrics.BuildOutcomeLabel(report.Outcome))

	if err != nil {
		return report, err
	}
	g.recorder.AddPagesRendered(report.Pages)
	g.recorder.AddAssetsCopied(report.Assets, report.AssetBytes)
	bs.log.Info("Site build completed",
		slog.String("output", g.OutputDir()),
		slog.Int("pages", report.Pages),
		slog.Int("assets", report.Assets),
		slog.Int("warnings", len(report.Warnings)),
		logfields.DurationMS(float64(report.Duration().Microseconds())/1000))
	return report, nil
}
