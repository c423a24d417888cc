// Package server serves a built site and rebuilds it when the project changes.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/sitebuilder/internal/build"
	sberrors "git.home.luguber.info/inful/sitebuilder/internal/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
)

// DefaultDebounce is the quiet period after the last change before a rebuild starts.
const DefaultDebounce = 300 * time.Millisecond

// BuildErrorHeader is set on every response while the latest build is failing.
const BuildErrorHeader = "X-Sitebuilder-Build-Error"

// Builder runs one build of the site.
type Builder interface {
	Generate(ctx context.Context) (*build.BuildReport, error)
}

// Options configures a Server.
type Options struct {
	Addr       string
	OutputDir  string
	Root       string // project root to watch
	ConfigFile string // changes are reported, not applied
	Debounce   time.Duration
	Watch      bool
	Registry   *prometheus.Registry
	Logger     *slog.Logger
}

// Server builds the site, serves the output directory and rebuilds on change.
type Server struct {
	opts    Options
	builder Builder
	status  *buildStatus
	log     *slog.Logger

	rebuildReq chan struct{}
	trigger    func()
}

// New creates a Server. The first build happens in Run.
func New(builder Builder, opts Options) *Server {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Root == "" {
		opts.Root = "."
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Server{
		opts:    opts,
		builder: builder,
		status:  &buildStatus{},
		log:     opts.Logger,
	}
	s.rebuildReq, s.trigger = setupRebuildDebouncer(opts.Debounce)
	return s
}

// buildStatus tracks the latest build for the handler and /healthz.
type buildStatus struct {
	mu           sync.RWMutex
	lastError    error
	hasGoodBuild bool
	builds       int
	lastID       string
	lastOutcome  build.BuildOutcome
	lastFinished time.Time
}

func (bs *buildStatus) record(report *build.BuildReport, err error) {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.builds++
	bs.lastError = err
	bs.lastFinished = time.Now()
	if report != nil {
		bs.lastID = report.ID
		bs.lastOutcome = report.Outcome
	}
	if err == nil {
		bs.hasGoodBuild = true
	}
}

func (bs *buildStatus) getStatus() (hasGoodBuild bool, err error) {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	return bs.hasGoodBuild, bs.lastError
}

// Health is the /healthz payload.
type Health struct {
	Status       string    `json:"status"`
	Builds       int       `json:"builds"`
	LastBuildID  string    `json:"last_build_id,omitempty"`
	LastOutcome  string    `json:"last_outcome,omitempty"`
	LastFinished time.Time `json:"last_finished,omitzero"`
	LastError    string    `json:"last_error,omitempty"`
}

func (bs *buildStatus) health() Health {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	h := Health{
		Status:       "ok",
		Builds:       bs.builds,
		LastBuildID:  bs.lastID,
		LastOutcome:  string(bs.lastOutcome),
		LastFinished: bs.lastFinished,
	}
	switch {
	case bs.lastError != nil && bs.hasGoodBuild:
		h.Status = "degraded"
		h.LastError = bs.lastError.Error()
	case bs.lastError != nil:
		h.Status = "failing"
		h.LastError = bs.lastError.Error()
	case !bs.hasGoodBuild:
		h.Status = "starting"
	}
	return h
}

// Rebuild runs a build synchronously and records its result.
func (s *Server) Rebuild(ctx context.Context) error {
	report, err := s.builder.Generate(ctx)
	s.status.record(report, err)
	if err != nil {
		s.log.Warn("Build failed; serving previous output", logfields.Error(err))
		return err
	}
	s.log.Info("Build finished", logfields.BuildID(report.ID), slog.String("summary", report.Summary()))
	return nil
}

// Handler returns the HTTP handler: the site, /healthz and, when a registry
// is configured, /metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	if s.opts.Registry != nil {
		mux.Handle("/metrics", metrics.HTTPHandler(s.opts.Registry))
	}
	mux.Handle("/", s.siteHandler())
	return chain(s.log, mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	h := s.status.health()
	w.Header().Set("Content-Type", "application/json")
	if h.Status == "failing" || h.Status == "starting" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(h); err != nil {
		s.log.Warn("Failed to write health response", logfields.Error(err))
	}
}

func (s *Server) siteHandler() http.Handler {
	files := http.FileServer(http.Dir(s.opts.OutputDir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		good, lastErr := s.status.getStatus()
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		if lastErr != nil {
			w.Header().Set(BuildErrorHeader, sanitizeHeader(lastErr.Error()))
		}
		if !good {
			msg := "site has not been built yet"
			if lastErr != nil {
				msg = "build failed: " + lastErr.Error()
			}
			http.Error(w, msg, http.StatusServiceUnavailable)
			return
		}
		files.ServeHTTP(w, r)
	})
}

// Run performs the initial build, starts the watcher when enabled and serves
// until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return sberrors.Wrap(err, sberrors.CategoryRuntime, sberrors.SeverityFatal, "failed to listen").
			WithContext("addr", s.opts.Addr)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if err := s.Rebuild(ctx); err != nil {
		s.log.Error("Initial build failed", logfields.Error(err))
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()
	s.log.Info("Preview server listening", slog.String("addr", ln.Addr().String()),
		slog.String("url", fmt.Sprintf("http://%s", ln.Addr().String())))

	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()
	workerDone := s.startRebuildWorker(workerCtx)

	var events <-chan watchEvent
	if s.opts.Watch {
		w, werr := newWatcher(s.opts.Root, s.opts.OutputDir, s.opts.ConfigFile, s.log)
		if werr != nil {
			_ = srv.Close()
			return werr
		}
		defer func() { _ = w.Close() }()
		events = w.run(workerCtx)
	}

	for {
		select {
		case <-ctx.Done():
			stopWorker()
			<-workerDone
			return s.shutdown(srv)
		case err := <-serveErr:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return sberrors.Wrap(err, sberrors.CategoryRuntime, sberrors.SeverityFatal, "http server stopped")
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			s.handleWatchEvent(ev)
		}
	}
}

func (s *Server) handleWatchEvent(ev watchEvent) {
	if ev.config {
		s.log.Warn("Configuration file changed; restart serve to apply it", logfields.Path(ev.path))
		return
	}
	s.log.Debug("File change detected", logfields.Path(ev.path), slog.String("op", ev.op))
	s.trigger()
}

func (s *Server) shutdown(srv *http.Server) error {
	s.log.Info("Shutting down preview server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.Warn("HTTP server shutdown error", logfields.Error(err))
	}
	return nil
}

// setupRebuildDebouncer returns the request channel and a trigger that fires
// once per quiet period.
func setupRebuildDebouncer(delay time.Duration) (chan struct{}, func()) {
	var mu sync.Mutex
	var timer *time.Timer
	rebuildReq := make(chan struct{}, 1)

	trigger := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(delay, func() {
			select {
			case rebuildReq <- struct{}{}:
			default:
			}
		})
	}
	return rebuildReq, trigger
}

// startRebuildWorker runs rebuilds one at a time. rebuildReq holds at most
// one request, so changes made during a build collapse into one follow-up.
// The returned channel closes when the worker exits.
func (s *Server) startRebuildWorker(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.rebuildReq:
				s.log.Info("Change detected; rebuilding site")
				_ = s.Rebuild(ctx)
			}
		}
	}()
	return done
}

func sanitizeHeader(v string) string {
	out := make([]rune, 0, len(v))
	for _, r := range v {
		if r == '\r' || r == '\n' {
			r = ' '
		}
		out = append(out, r)
	}
	if len(out) > 512 {
		out = out[:512]
	}
	return string(out)
}
