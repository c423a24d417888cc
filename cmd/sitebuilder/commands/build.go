package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/sitebuilder/internal/build"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Clean       bool   `help:"Remove stale staging and backup directories left by interrupted builds"`
	Report      string `name:"report" help:"Write the build report as JSON to this file" type:"path"`
	NoLinkCheck bool   `name:"no-link-check" help:"Skip the internal link check"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return RunBuild(ctx, root.Config, *b, loggerFrom(g))
}

// RunBuild configures the site once and builds it.
func RunBuild(ctx context.Context, configPath string, b BuildCmd, logger *slog.Logger) error {
	p, err := loadProject(configPath, logger)
	if err != nil {
		return err
	}
	gen := p.generator(logger,
		build.WithClean(b.Clean),
		build.WithLinkCheck(!b.NoLinkCheck))

	report, genErr := gen.Generate(ctx)
	if b.Report != "" && report != nil {
		if err := report.Persist(b.Report); err != nil {
			logger.Warn("Failed to write build report", logfields.Path(b.Report), logfields.Error(err))
		}
	}
	if genErr != nil {
		return genErr
	}
	for _, w := range report.Warnings {
		logger.Warn("Build warning", logfields.Error(w))
	}
	fmt.Printf("Built %d pages and %d assets into %s\n", report.Pages, report.Assets, gen.OutputDir())
	return nil
}
