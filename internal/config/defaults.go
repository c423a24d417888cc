package config

import (
	"fmt"

	"git.home.luguber.info/inful/sitebuilder/internal/filters"
	"git.home.luguber.info/inful/sitebuilder/internal/highlight"
	"git.home.luguber.info/inful/sitebuilder/internal/siteconfig"
)

const (
	DefaultIncludesDir = "_includes"
	DefaultServePort   = 8080
	DefaultDebounce    = "300ms"
)

// DefaultApplier fills in values a file left empty for one configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

// DirDefaultApplier handles directory defaults.
type DirDefaultApplier struct{}

func (DirDefaultApplier) Domain() string { return "dir" }

func (DirDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Dir.Input == "" {
		cfg.Dir.Input = siteconfig.DefaultInputDir
	}
	if cfg.Dir.Output == "" {
		cfg.Dir.Output = siteconfig.DefaultOutputDir
	}
	if cfg.Dir.Includes == "" {
		cfg.Dir.Includes = DefaultIncludesDir
	}
	return nil
}

// HighlightDefaultApplier handles highlight defaults.
type HighlightDefaultApplier struct{}

func (HighlightDefaultApplier) Domain() string { return "highlight" }

func (HighlightDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Highlight.Style == "" {
		cfg.Highlight.Style = highlight.DefaultStyle
	}
	return nil
}

// DatesDefaultApplier handles date filter defaults.
type DatesDefaultApplier struct{}

func (DatesDefaultApplier) Domain() string { return "dates" }

func (DatesDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Dates.Locale == "" {
		cfg.Dates.Locale = filters.DefaultLocale
	}
	if cfg.Dates.Timezone == "" {
		cfg.Dates.Timezone = "UTC"
	}
	return nil
}

// ServeDefaultApplier handles preview server defaults.
type ServeDefaultApplier struct{}

func (ServeDefaultApplier) Domain() string { return "serve" }

func (ServeDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Serve.Port == 0 {
		cfg.Serve.Port = DefaultServePort
	}
	if cfg.Serve.Debounce == "" {
		cfg.Serve.Debounce = DefaultDebounce
	}
	return nil
}

// CompositeDefaultApplier runs every domain applier in order.
type CompositeDefaultApplier struct {
	appliers []DefaultApplier
}

// NewDefaultApplier returns the applier for all domains.
func NewDefaultApplier() *CompositeDefaultApplier {
	return &CompositeDefaultApplier{
		appliers: []DefaultApplier{
			DirDefaultApplier{},
			HighlightDefaultApplier{},
			DatesDefaultApplier{},
			ServeDefaultApplier{},
		},
	}
}

// ApplyDefaults applies defaults for all configuration domains.
func (c *CompositeDefaultApplier) ApplyDefaults(cfg *Config) error {
	for _, applier := range c.appliers {
		if err := applier.ApplyDefaults(cfg); err != nil {
			return fmt.Errorf("applying defaults for %s: %w", applier.Domain(), err)
		}
	}
	return nil
}
