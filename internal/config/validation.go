package config

import (
	"path/filepath"
	"strings"
	"time"

	sberrors "git.home.luguber.info/inful/sitebuilder/internal/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/filters"
	"git.home.luguber.info/inful/sitebuilder/internal/highlight"
)

// Validate checks values the build would otherwise reject late.
func Validate(cfg *Config) error {
	if filepath.Clean(cfg.Dir.Input) == filepath.Clean(cfg.Dir.Output) {
		return sberrors.ValidationFailed("dir.output", "output directory must differ from input directory")
	}
	if strings.ContainsAny(cfg.Dir.Includes, `/\`) || cfg.Dir.Includes == ".." {
		return sberrors.ValidationFailed("dir.includes", "includes must be a directory name inside the input directory")
	}
	for i, p := range cfg.Passthrough {
		if strings.TrimSpace(p.Source) == "" {
			return sberrors.ValidationFailed("passthrough", "entry has no source").WithContext("index", i)
		}
	}
	if cfg.Highlight.Enabled && !highlight.HasStyle(cfg.Highlight.Style) {
		return sberrors.ValidationFailed("highlight.style", "unknown chroma style "+cfg.Highlight.Style)
	}
	if _, err := filters.NewPostDateFormatter(cfg.Dates.Locale, nil); err != nil {
		return err
	}
	if _, err := filters.LoadLocation(cfg.Dates.Timezone); err != nil {
		return err
	}
	if cfg.Serve.Port < 0 || cfg.Serve.Port > 65535 {
		return sberrors.ValidationFailed("serve.port", "port out of range")
	}
	if d, err := time.ParseDuration(cfg.Serve.Debounce); err != nil || d <= 0 {
		return sberrors.ValidationFailed("serve.debounce", "invalid duration "+cfg.Serve.Debounce)
	}
	return nil
}
