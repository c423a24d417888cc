// Package config loads sitebuilder.yaml, the optional file describing which
// assets to copy and how Markdown, highlighting and dates are set up.
package config

import (
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/filters"
	"git.home.luguber.info/inful/sitebuilder/internal/highlight"
	"git.home.luguber.info/inful/sitebuilder/internal/markdown"
	"git.home.luguber.info/inful/sitebuilder/internal/registry"
	"git.home.luguber.info/inful/sitebuilder/internal/siteconfig"
)

// DefaultPath is the configuration file looked up when none is given.
const DefaultPath = "sitebuilder.yaml"

// Config is the on-disk configuration.
type Config struct {
	Dir         DirConfig           `yaml:"dir"`
	Passthrough []PassthroughConfig `yaml:"passthrough"`
	Markdown    MarkdownConfig      `yaml:"markdown"`
	Highlight   HighlightConfig     `yaml:"highlight"`
	Dates       DatesConfig         `yaml:"dates"`
	Serve       ServeConfig         `yaml:"serve"`
}

// DirConfig maps the input and output trees.
type DirConfig struct {
	Input    string `yaml:"input"`
	Output   string `yaml:"output"`
	Includes string `yaml:"includes"` // layouts directory, relative to input
}

// PassthroughConfig is one verbatim copy rule.
type PassthroughConfig struct {
	Source      string `yaml:"source"`
	Destination string `yaml:"destination,omitempty"`
}

// MarkdownConfig toggles renderer options and extensions.
type MarkdownConfig struct {
	HTML      bool `yaml:"html"`
	Breaks    bool `yaml:"breaks"`
	Linkify   bool `yaml:"linkify"`
	Math      bool `yaml:"math"`
	Footnotes bool `yaml:"footnotes"`
}

// HighlightConfig configures the syntax-highlight plugin.
type HighlightConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Style         string `yaml:"style"`
	Classes       bool   `yaml:"classes"`
	LineNumbers   bool   `yaml:"line_numbers"`
	GuessLanguage bool   `yaml:"guess_language"`
}

// DatesConfig configures the PostDate filter.
type DatesConfig struct {
	Locale   string `yaml:"locale"`
	Timezone string `yaml:"timezone"`
}

// ServeConfig configures the preview server.
type ServeConfig struct {
	Port     int    `yaml:"port"`
	Debounce string `yaml:"debounce"` // Go duration, e.g. "300ms"
}

// Default returns the configuration used when no file exists. It describes
// the reference site.
func Default() *Config {
	ref := siteconfig.Defaults()
	cfg := &Config{
		Dir: DirConfig{
			Input:    ref.Dirs.Input,
			Output:   ref.Dirs.Output,
			Includes: DefaultIncludesDir,
		},
		Markdown: MarkdownConfig{
			HTML:      ref.Markdown.HTML,
			Breaks:    ref.Markdown.Breaks,
			Linkify:   ref.Markdown.Linkify,
			Math:      ref.Math,
			Footnotes: ref.Footnotes,
		},
		Highlight: HighlightConfig{
			Enabled: true,
			Style:   highlight.DefaultStyle,
			Classes: true,
		},
		Dates: DatesConfig{Locale: filters.DefaultLocale, Timezone: "UTC"},
		Serve: ServeConfig{Port: DefaultServePort, Debounce: DefaultDebounce},
	}
	for _, a := range ref.Assets {
		cfg.Passthrough = append(cfg.Passthrough, PassthroughConfig{Source: a.Source, Destination: a.Destination})
	}
	return cfg
}

// Dirs returns the directory mapping.
func (c *Config) Dirs() registry.BuildConfig {
	return registry.BuildConfig{Input: c.Dir.Input, Output: c.Dir.Output}
}

// DebounceDuration parses Serve.Debounce, falling back to the default.
func (c *Config) DebounceDuration() time.Duration {
	d, err := time.ParseDuration(c.Serve.Debounce)
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(DefaultDebounce)
	}
	return d
}

// SiteOptions converts the file into configurator options.
func (c *Config) SiteOptions() (siteconfig.Options, error) {
	loc, err := filters.LoadLocation(c.Dates.Timezone)
	if err != nil {
		return siteconfig.Options{}, err
	}
	opts := siteconfig.Options{
		Markdown: markdown.Options{
			HTML:    c.Markdown.HTML,
			Breaks:  c.Markdown.Breaks,
			Linkify: c.Markdown.Linkify,
		},
		Math:      c.Markdown.Math,
		Footnotes: c.Markdown.Footnotes,
		Dates:     siteconfig.Dates{Locale: c.Dates.Locale, Location: loc},
		Dirs:      c.Dirs(),
	}
	for _, p := range c.Passthrough {
		opts.Assets = append(opts.Assets, registry.PassthroughRule{Source: p.Source, Destination: p.Destination})
	}
	if c.Highlight.Enabled {
		opts.Highlight = &highlight.Options{
			Style:         c.Highlight.Style,
			Classes:       c.Highlight.Classes,
			LineNumbers:   c.Highlight.LineNumbers,
			GuessLanguage: c.Highlight.GuessLanguage,
		}
	}
	return opts, nil
}
