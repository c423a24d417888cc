// Package registry is the registration surface a site configuration writes
// into: passthrough copy rules, plugins, rendering libraries and template
// filters. A Registry is written once by a configurator and then frozen into
// an immutable Settings snapshot that the build engine reads.
package registry

import (
	"log/slog"

	"github.com/yuin/goldmark"

	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// MarkdownLibrary is the library name used for .md documents.
const MarkdownLibrary = "md"

// Library renders one document body to an HTML fragment.
type Library interface {
	Render(src []byte) ([]byte, error)
}

// Amendable libraries accept extensions contributed by plugins.
type Amendable interface {
	Library
	Amend(ext goldmark.Extender)
}

// Plugin bundles registrations. Register is called once, immediately, by AddPlugin.
type Plugin interface {
	Name() string
	Register(r *Registry)
}

// BuildConfig is the directory mapping a configurator returns.
type BuildConfig struct {
	Input  string `json:"input" yaml:"input"`
	Output string `json:"output" yaml:"output"`
}

// Registry collects registrations. It is not safe for concurrent use; a
// single configurator owns it until Snapshot.
type Registry struct {
	logger      *slog.Logger
	passthrough []PassthroughRule
	plugins     []string
	libraries   map[string]Library
	amendments  map[string][]goldmark.Extender
	filters     map[string]any
	frozen      bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for registration diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		logger:     slog.Default(),
		libraries:  map[string]Library{},
		amendments: map[string][]goldmark.Extender{},
		filters:    map[string]any{},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// ignoreFrozen reports (and logs) a registration attempted after Snapshot.
func (r *Registry) ignoreFrozen(kind, name string) bool {
	if !r.frozen {
		return false
	}
	r.logger.Warn("Registration after snapshot ignored", "kind", kind, "name", name)
	return true
}

// AddPassthroughCopy copies source verbatim to the same relative path in the output.
func (r *Registry) AddPassthroughCopy(source string) {
	r.AddPassthroughCopyTo(source, "")
}

// AddPassthroughCopyTo copies source verbatim to destination (relative to the output root).
// A destination ending in "/" names a directory to copy into.
func (r *Registry) AddPassthroughCopyTo(source, destination string) {
	if r.ignoreFrozen("passthrough", source) {
		return
	}
	r.passthrough = append(r.passthrough, PassthroughRule{Source: source, Destination: destination})
	r.logger.Debug("Registered passthrough copy", logfields.Source(source), logfields.Destination(destination))
}

// AddPlugin records the plugin and lets it register its own declarations.
func (r *Registry) AddPlugin(p Plugin) {
	if p == nil || r.ignoreFrozen("plugin", p.Name()) {
		return
	}
	r.plugins = append(r.plugins, p.Name())
	p.Register(r)
	r.logger.Debug("Registered plugin", logfields.Plugin(p.Name()))
}

// SetLibrary sets the renderer for a template language. The last registration wins.
func (r *Registry) SetLibrary(name string, lib Library) {
	if r.ignoreFrozen("library", name) {
		return
	}
	if _, exists := r.libraries[name]; exists {
		r.logger.Debug("Replacing previously registered library", logfields.Library(name))
	}
	r.libraries[name] = lib
}

// AmendLibrary defers ext until Snapshot, when it is applied to whichever
// library is registered under name at that point.
func (r *Registry) AmendLibrary(name string, ext goldmark.Extender) {
	if ext == nil || r.ignoreFrozen("amendment", name) {
		return
	}
	r.amendments[name] = append(r.amendments[name], ext)
}

// AddFilter registers a template function. The last registration wins.
func (r *Registry) AddFilter(name string, fn any) {
	if r.ignoreFrozen("filter", name) {
		return
	}
	if _, exists := r.filters[name]; exists {
		r.logger.Debug("Replacing previously registered filter", logfields.Filter(name))
	}
	r.filters[name] = fn
	r.logger.Debug("Registered filter", logfields.Filter(name))
}

// Snapshot freezes the registry, applies library amendments, and returns the
// resulting immutable Settings. Later registrations are ignored.
func (r *Registry) Snapshot() *Settings {
	if !r.frozen {
		for name, exts := range r.amendments {
			lib, ok := r.libraries[name]
			if !ok {
				r.logger.Warn("Library amendments dropped: no library registered", logfields.Library(name), logfields.Count(len(exts)))
				continue
			}
			am, ok := lib.(Amendable)
			if !ok {
				r.logger.Warn("Library does not accept amendments", logfields.Library(name))
				continue
			}
			for _, ext := range exts {
				am.Amend(ext)
			}
		}
		r.frozen = true
	}
	return newSettings(r)
}
