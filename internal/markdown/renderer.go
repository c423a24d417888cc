// Package markdown builds the Markdown rendering pipeline: a goldmark engine
// configured with a fixed option set plus an ordered chain of extensions.
package markdown

import (
	"bytes"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"

	sberrors "git.home.luguber.info/inful/sitebuilder/internal/errors"
)

// Options are the base renderer switches.
type Options struct {
	HTML    bool // pass raw HTML through unescaped
	Breaks  bool // render soft line breaks as <br>
	Linkify bool // autolink bare URLs
}

// DefaultOptions enables all three switches.
func DefaultOptions() Options {
	return Options{HTML: true, Breaks: true, Linkify: true}
}

// Footnotes enables [^ref] footnote references and definitions.
var Footnotes goldmark.Extender = extension.Footnote

// Renderer is a Markdown library: base options plus extensions applied in the
// order they were added with Use. The goldmark engine is built on first use
// and rebuilt if Use is called afterwards.
type Renderer struct {
	mu     sync.Mutex
	opts   Options
	exts   []goldmark.Extender
	engine goldmark.Markdown
}

// New creates a renderer configured with opts and no extensions.
func New(opts Options) *Renderer {
	return &Renderer{opts: opts}
}

// Use appends an extension to the pipeline and returns the renderer for chaining.
func (r *Renderer) Use(ext goldmark.Extender) *Renderer {
	if ext == nil {
		return r
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exts = append(r.exts, ext)
	r.engine = nil
	return r
}

// Amend attaches an extension contributed by a plugin.
func (r *Renderer) Amend(ext goldmark.Extender) {
	r.Use(ext)
}

// Extensions reports how many extensions have been attached.
func (r *Renderer) Extensions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.exts)
}

// Options returns the base options the renderer was created with.
func (r *Renderer) Options() Options {
	return r.opts
}

// Render converts a Markdown document (front matter already removed) to HTML.
// A panic raised inside an extension is returned as a render error.
func (r *Renderer) Render(src []byte) (out []byte, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out = nil
			err = sberrors.RenderPanic(rec)
		}
	}()
	engine := r.ensureEngine()
	var buf bytes.Buffer
	if err := engine.Convert(src, &buf); err != nil {
		return nil, sberrors.Wrap(err, sberrors.CategoryRender, sberrors.SeverityFatal, "markdown conversion failed")
	}
	return buf.Bytes(), nil
}

func (r *Renderer) ensureEngine() goldmark.Markdown {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.engine == nil {
		r.engine = newEngine(r.opts, r.exts)
	}
	return r.engine
}

// newEngine maps Options onto goldmark. Tables and strikethrough are always on
// to match the markdown-it default preset the site content was written for.
func newEngine(opts Options, exts []goldmark.Extender) goldmark.Markdown {
	base := []goldmark.Extender{extension.Table, extension.Strikethrough}
	if opts.Linkify {
		base = append(base, extension.Linkify)
	}

	var rendererOptions []renderer.Option
	if opts.HTML {
		rendererOptions = append(rendererOptions, html.WithUnsafe())
	}
	if opts.Breaks {
		rendererOptions = append(rendererOptions, html.WithHardWraps())
	}

	engineOptions := []goldmark.Option{
		goldmark.WithExtensions(append(base, exts...)...),
	}
	if len(rendererOptions) > 0 {
		engineOptions = append(engineOptions, goldmark.WithRendererOptions(rendererOptions...))
	}
	return goldmark.New(engineOptions...)
}
