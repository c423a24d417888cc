package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"git.home.luguber.info/inful/sitebuilder/internal/build"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/server"
)

// ServeCmd builds the site, serves it and rebuilds when the input changes.
type ServeCmd struct {
	Port    int    `name:"port" help:"Port to listen on (0 uses serve.port from the config)"`
	Host    string `name:"host" default:"localhost" help:"Interface to bind"`
	NoWatch bool   `name:"no-watch" help:"Serve the output without watching for changes"`
}

func (s *ServeCmd) Run(g *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	srv, err := NewServer(root.Config, *s, loggerFrom(g))
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}

// NewServer configures the site once and wires a preview server around it.
// Every rebuild reuses the same registrations.
func NewServer(configPath string, s ServeCmd, logger *slog.Logger) (*server.Server, error) {
	p, err := loadProject(configPath, logger)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewPrometheusRecorder(reg)

	gen := p.generator(logger, build.WithRecorder(recorder))

	port := s.Port
	if port == 0 {
		port = p.cfg.Serve.Port
	}
	return server.New(gen, server.Options{
		Addr:       fmt.Sprintf("%s:%d", s.Host, port),
		OutputDir:  gen.OutputDir(),
		Root:       p.root,
		ConfigFile: configPath,
		Debounce:   p.cfg.DebounceDuration(),
		Watch:      !s.NoWatch,
		Registry:   reg,
		Logger:     logger,
	}), nil
}
