// Package siteconfig is the site's build configuration: it registers the
// static assets, the syntax highlighter, the Markdown pipeline and the date
// filter, and returns the directory mapping.
//
// Configure registers the reference site. ConfigureWith takes the same
// registrations as data so that variants (fewer assets, no math) share one
// code path.
package siteconfig

import (
	"log/slog"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/filters"
	"git.home.luguber.info/inful/sitebuilder/internal/highlight"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/markdown"
	"git.home.luguber.info/inful/sitebuilder/internal/registry"
)

const (
	DefaultInputDir  = "src"
	DefaultOutputDir = "_site"
)

// Dates configures the PostDate filter.
type Dates struct {
	Locale   string
	Location *time.Location
}

// Options describe one configuration variant.
type Options struct {
	Assets    []registry.PassthroughRule
	Markdown  markdown.Options
	Math      bool
	Footnotes bool
	// Highlight is nil to leave fenced code unhighlighted.
	Highlight *highlight.Options
	Dates     Dates
	Dirs      registry.BuildConfig
}

// DefaultAssets is the reference asset list.
func DefaultAssets() []registry.PassthroughRule {
	return []registry.PassthroughRule{
		{Source: "./src/styles.css"},
		{Source: "./src/blog.css"},
		{Source: "./src/code.css"},
		{Source: "./src/quotes.js"},
		{Source: "./images", Destination: "img/"},
	}
}

// Defaults returns the reference variant: full asset list, math and footnotes.
func Defaults() Options {
	hl := highlight.DefaultOptions()
	return Options{
		Assets:    DefaultAssets(),
		Markdown:  markdown.DefaultOptions(),
		Math:      true,
		Footnotes: true,
		Highlight: &hl,
		Dates:     Dates{Locale: filters.DefaultLocale, Location: time.UTC},
		Dirs:      registry.BuildConfig{Input: DefaultInputDir, Output: DefaultOutputDir},
	}
}

// Configure registers the reference variant.
func Configure(r *registry.Registry) registry.BuildConfig {
	return ConfigureWith(r, Defaults())
}

// ConfigureWith registers opts on r and returns the directory mapping. It
// never fails: a missing asset is reported by the build's copy stage, and an
// unusable date locale leaves PostDate unregistered, which template parsing
// then reports.
func ConfigureWith(r *registry.Registry, opts Options) registry.BuildConfig {
	for _, a := range opts.Assets {
		if a.Destination == "" {
			r.AddPassthroughCopy(a.Source)
		} else {
			r.AddPassthroughCopyTo(a.Source, a.Destination)
		}
	}

	if opts.Highlight != nil {
		r.AddPlugin(highlight.New(*opts.Highlight))
	}

	md := markdown.New(opts.Markdown)
	if opts.Math {
		md.Use(markdown.Math)
	}
	if opts.Footnotes {
		md.Use(markdown.Footnotes)
	}
	r.SetLibrary(registry.MarkdownLibrary, md)

	if postDate, err := filters.NewPostDate(opts.Dates.Locale, opts.Dates.Location); err != nil {
		slog.Warn("PostDate filter not registered", logfields.Filter(filters.PostDateName), logfields.Error(err))
	} else {
		r.AddFilter(filters.PostDateName, postDate)
	}

	dirs := opts.Dirs
	if dirs.Input == "" {
		dirs.Input = DefaultInputDir
	}
	if dirs.Output == "" {
		dirs.Output = DefaultOutputDir
	}
	return dirs
}
