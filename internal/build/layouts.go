package build

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/frontmatter"

	sberrors "git.home.luguber.info/inful/sitebuilder/internal/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

const maxLayoutDepth = 10

// Layout is a parsed template from the includes directory. A layout may name
// a parent layout in its own front matter; its output becomes the parent's
// Content.
type Layout struct {
	Name   string
	Parent string
	Data   map[string]any
}

// TemplateData is the value layouts execute against.
type TemplateData struct {
	Content     template.HTML
	Page        *Page
	Title       string
	Date        time.Time
	URL         string
	Data        map[string]any
	Layout      map[string]any
	Collections map[string][]*Page
}

// layoutName accepts layout references with or without the .html suffix.
func layoutName(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if filepath.Ext(ref) == "" {
		ref += ".html"
	}
	return ref
}

// stageLoadLayouts parses <input>/<includes>/*.html with the registered filters.
func stageLoadLayouts(_ context.Context, bs *BuildState) error {
	g := bs.Generator
	root := template.New("").Funcs(template.FuncMap(g.settings.Filters()))
	bs.Layouts = root
	bs.LayoutDefs = make(map[string]*Layout)

	dir := filepath.Join(g.InputDir(), g.includes)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		bs.log.Debug("No layouts directory", logfields.Path(dir))
		return nil
	}
	if err != nil {
		return newFatalStageError(StageLoadLayouts, sberrors.FileSystemError("readdir", dir, err))
	}

	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".html") {
			continue
		}
		name := e.Name()
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return newFatalStageError(StageLoadLayouts, sberrors.FileSystemError("read", filepath.Join(dir, name), err))
		}
		var fm map[string]any
		body, err := frontmatter.Parse(bytes.NewReader(data), &fm)
		if err != nil {
			return newFatalStageError(StageLoadLayouts, fmt.Errorf("%w: %w", ErrTemplate, sberrors.TemplateFailed(name, err)))
		}
		if _, err := root.New(name).Parse(string(body)); err != nil {
			return newFatalStageError(StageLoadLayouts, fmt.Errorf("%w: %w", ErrTemplate, sberrors.TemplateFailed(name, err)))
		}
		parent, _ := fm["layout"].(string)
		bs.LayoutDefs[name] = &Layout{Name: name, Parent: layoutName(parent), Data: fm}
	}

	for _, l := range bs.LayoutDefs {
		if l.Parent != "" && bs.LayoutDefs[l.Parent] == nil {
			return newFatalStageError(StageLoadLayouts, fmt.Errorf("%w: %w", ErrTemplate,
				sberrors.TemplateFailed(l.Name, fmt.Errorf("parent layout %q not found", l.Parent))))
		}
	}
	bs.Report.Layouts = len(bs.LayoutDefs)
	bs.log.Debug("Loaded layouts", logfields.Count(len(bs.LayoutDefs)))
	return nil
}

// renderPage wraps the page content in its layout chain.
func (bs *BuildState) renderPage(p *Page) ([]byte, error) {
	content := p.Content
	name := p.Layout
	for depth := 0; name != ""; depth++ {
		if depth >= maxLayoutDepth {
			return nil, fmt.Errorf("%w: %w", ErrTemplate,
				sberrors.TemplateFailed(name, errors.New("layout chain too deep")).WithContext("page", p.InputPath))
		}
		def := bs.LayoutDefs[name]
		if def == nil {
			return nil, fmt.Errorf("%w: %w", ErrTemplate,
				sberrors.TemplateFailed(name, errors.New("layout not found")).WithContext("page", p.InputPath))
		}
		var buf bytes.Buffer
		td := TemplateData{
			Content:     content,
			Page:        p,
			Title:       p.Title,
			Date:        p.Date,
			URL:         p.URL,
			Data:        p.Data,
			Layout:      def.Data,
			Collections: bs.Collections,
		}
		if err := bs.Layouts.ExecuteTemplate(&buf, name, td); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrTemplate,
				sberrors.TemplateFailed(name, err).WithContext("page", p.InputPath))
		}
		content = template.HTML(buf.String()) //nolint:gosec // output of our own templates
		name = def.Parent
	}
	return []byte(content), nil
}
