// Package commands implements the sitebuilder subcommands.
package commands

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/sitebuilder/internal/build"
	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/registry"
	"git.home.luguber.info/inful/sitebuilder/internal/siteconfig"
)

// LogLevelEnv overrides the log level when --verbose is not given.
const LogLevelEnv = "SITEBUILDER_LOG_LEVEL"

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path (optional)" default:"sitebuilder.yaml" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build  BuildCmd  `cmd:"" help:"Build the site from the input directory"`
	Serve  ServeCmd  `cmd:"" help:"Build, serve the output and rebuild on change"`
	Init   InitCmd   `cmd:"" help:"Write an example configuration file"`
	Styles StylesCmd `cmd:"" help:"Write the CSS for a syntax-highlighting style"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply(g *Global) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(c.Verbose)}))
	slog.SetDefault(logger)
	if g != nil {
		g.Logger = logger
	}
	return nil
}

// parseLogLevel returns debug for --verbose, otherwise the level named by
// SITEBUILDER_LOG_LEVEL, otherwise info.
func parseLogLevel(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	switch strings.ToLower(strings.TrimSpace(os.Getenv(LogLevelEnv))) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// project is a configured site: the file, the frozen registrations and the
// directory mapping. The configurator runs exactly once per project.
type project struct {
	cfg      *config.Config
	settings *registry.Settings
	dirs     registry.BuildConfig
	root     string
}

// loadProject reads the configuration (or the defaults when the file does not
// exist) and runs the site configurator.
func loadProject(configPath string, logger *slog.Logger) (*project, error) {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, err
	}
	opts, err := cfg.SiteOptions()
	if err != nil {
		return nil, err
	}
	reg := registry.New(registry.WithLogger(logger))
	dirs := siteconfig.ConfigureWith(reg, opts)
	return &project{
		cfg:      cfg,
		settings: reg.Snapshot(),
		dirs:     dirs,
		root:     filepath.Dir(configPath),
	}, nil
}

func (p *project) generator(logger *slog.Logger, opts ...build.Option) *build.Generator {
	base := []build.Option{
		build.WithRoot(p.root),
		build.WithIncludesDir(p.cfg.Dir.Includes),
		build.WithLogger(logger),
	}
	return build.NewGenerator(p.settings, p.dirs, append(base, opts...)...)
}

func loggerFrom(g *Global) *slog.Logger {
	if g != nil && g.Logger != nil {
		return g.Logger
	}
	return slog.Default()
}
