// Package highlight provides the syntax-highlighting plugin: fenced code
// blocks are tokenized with chroma while Markdown is rendered.
package highlight

import (
	"io"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"

	sberrors "git.home.luguber.info/inful/sitebuilder/internal/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/registry"
)

// PluginName is the name the plugin registers under.
const PluginName = "syntax-highlight"

// DefaultStyle is the chroma style used when none is configured.
const DefaultStyle = "github"

// Options configure chroma output.
type Options struct {
	Style         string
	Classes       bool // emit CSS classes instead of inline styles (pair with WriteCSS)
	LineNumbers   bool
	GuessLanguage bool // guess the lexer for fences without a language
}

// DefaultOptions uses class-based output so a generated stylesheet can theme it.
func DefaultOptions() Options {
	return Options{Style: DefaultStyle, Classes: true}
}

// Plugin amends the Markdown library with fenced-code highlighting.
type Plugin struct {
	opts Options
}

// New creates the plugin. An empty style falls back to DefaultStyle.
func New(opts Options) *Plugin {
	if opts.Style == "" {
		opts.Style = DefaultStyle
	}
	return &Plugin{opts: opts}
}

// Name implements registry.Plugin.
func (p *Plugin) Name() string { return PluginName }

// Register implements registry.Plugin. The extension is attached to whichever
// Markdown library is registered when the registry is frozen.
func (p *Plugin) Register(r *registry.Registry) {
	r.AmendLibrary(registry.MarkdownLibrary, p.Extension())
}

// Extension returns the goldmark extension configured from the plugin options.
func (p *Plugin) Extension() goldmark.Extender {
	formatOptions := []chromahtml.Option{
		chromahtml.WithClasses(p.opts.Classes),
		chromahtml.TabWidth(4),
	}
	if p.opts.LineNumbers {
		formatOptions = append(formatOptions, chromahtml.WithLineNumbers(true))
	}
	return highlighting.NewHighlighting(
		highlighting.WithStyle(p.opts.Style),
		highlighting.WithGuessLanguage(p.opts.GuessLanguage),
		highlighting.WithFormatOptions(formatOptions...),
	)
}

// WriteCSS writes the stylesheet matching class-based output for style.
func WriteCSS(w io.Writer, style string) error {
	if style == "" {
		style = DefaultStyle
	}
	s, ok := styles.Registry[style]
	if !ok {
		return sberrors.ValidationFailed("highlight.style", "unknown chroma style "+style)
	}
	formatter := chromahtml.New(chromahtml.WithClasses(true))
	if err := formatter.WriteCSS(w, s); err != nil {
		return sberrors.Wrap(err, sberrors.CategoryInternal, sberrors.SeverityFatal, "failed to write highlight stylesheet")
	}
	return nil
}

// Styles lists the available chroma style names.
func Styles() []string {
	return styles.Names()
}

// HasStyle reports whether style is a known chroma style.
func HasStyle(style string) bool {
	_, ok := styles.Registry[style]
	return ok
}
