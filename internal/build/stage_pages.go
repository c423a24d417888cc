package build

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/adrg/frontmatter"

	sberrors "git.home.luguber.info/inful/sitebuilder/internal/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/filters"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/registry"
)

// stageCollectPages walks the input directory and renders every Markdown
// document with the "md" library. Layouts, dot files, passthrough sources and
// the output directory with its staging and backup siblings are skipped.
func stageCollectPages(ctx context.Context, bs *BuildState) error {
	g := bs.Generator
	lib, ok := g.settings.Library(registry.MarkdownLibrary)
	if !ok {
		return newFatalStageError(StageCollectPages, sberrors.ValidationFailed("library", "no markdown library registered"))
	}

	input := g.InputDir()
	skip := map[string]bool{}
	for _, res := range bs.Passthrough {
		if abs, err := filepath.Abs(bs.sourcePath(res.Rule.Source)); err == nil {
			skip[abs] = true
		}
	}
	skipped := func(p string) bool {
		if bs.Staging.Owns(p) {
			return true
		}
		abs, err := filepath.Abs(p)
		return err == nil && skip[abs]
	}

	err := filepath.WalkDir(input, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return newFatalStageError(StageCollectPages, sberrors.FileSystemError("walk", p, err))
		}
		if cerr := checkCanceled(ctx, StageCollectPages); cerr != nil {
			return cerr
		}
		if p == input {
			return nil
		}
		rel, err := filepath.Rel(input, p)
		if err != nil {
			return newFatalStageError(StageCollectPages, sberrors.FileSystemError("rel", p, err))
		}
		rel = filepath.ToSlash(rel)
		name := d.Name()

		if d.IsDir() {
			if strings.HasPrefix(name, ".") || name == "node_modules" || rel == g.includes || skipped(p) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || !strings.EqualFold(filepath.Ext(name), ".md") || skipped(p) {
			return nil
		}

		page, err := bs.loadPage(lib, p, rel)
		if err != nil {
			return newFatalStageError(StageCollectPages, err)
		}
		if page.OutputPath != "" {
			if err := bs.claim(page.OutputPath, rel); err != nil {
				return newFatalStageError(StageCollectPages, err)
			}
		}
		bs.Pages = append(bs.Pages, page)
		return nil
	})
	if err != nil {
		return err
	}
	bs.log.Debug("Collected pages", logfields.Count(len(bs.Pages)))
	return nil
}

func (bs *BuildState) loadPage(lib registry.Library, file, rel string) (*Page, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, sberrors.FileSystemError("read", file, err)
	}
	info, err := os.Stat(file)
	if err != nil {
		return nil, sberrors.FileSystemError("stat", file, err)
	}

	var fm map[string]any
	body, err := frontmatter.Parse(bytes.NewReader(data), &fm)
	if err != nil {
		return nil, sberrors.Wrap(err, sberrors.CategoryValidation, sberrors.SeverityFatal, "invalid front matter").
			WithContext("path", rel)
	}
	if fm == nil {
		fm = map[string]any{}
	}

	url, out, err := pageTarget(rel, fm["permalink"])
	if err != nil {
		return nil, err
	}

	page := &Page{
		InputPath:  rel,
		URL:        url,
		OutputPath: out,
		Title:      titleFromPath(rel),
		Date:       info.ModTime().UTC(),
		Tags:       stringList(fm["tags"]),
		Data:       fm,
		Raw:        body,
	}
	if t, ok := fm["title"].(string); ok && strings.TrimSpace(t) != "" {
		page.Title = t
	}
	if v, ok := fm["date"]; ok {
		d, err := filters.ToTime(v)
		if err != nil {
			return nil, sberrors.Wrap(err, sberrors.CategoryValidation, sberrors.SeverityFatal, "invalid page date").
				WithContext("path", rel)
		}
		page.Date = d
	}
	if l, ok := fm["layout"].(string); ok {
		page.Layout = layoutName(l)
		if page.Layout != "" && bs.LayoutDefs[page.Layout] == nil {
			return nil, fmt.Errorf("%w: %w", ErrTemplate,
				sberrors.TemplateFailed(page.Layout, fmt.Errorf("layout not found")).WithContext("page", rel))
		}
	}

	html, err := lib.Render(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRender, sberrors.RenderFailed(rel, err))
	}
	page.Content = template.HTML(html) //nolint:gosec // Markdown output, raw HTML allowed by configuration
	return page, nil
}

// stageBuildCollections groups pages into "all" plus one collection per tag,
// newest first.
func stageBuildCollections(_ context.Context, bs *BuildState) error {
	all := make([]*Page, len(bs.Pages))
	copy(all, bs.Pages)
	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].Date.Equal(all[j].Date) {
			return all[i].Date.After(all[j].Date)
		}
		return all[i].InputPath < all[j].InputPath
	})
	cols := map[string][]*Page{"all": all}
	for _, p := range all {
		for _, tag := range p.Tags {
			cols[tag] = append(cols[tag], p)
		}
	}
	bs.Collections = cols
	return nil
}

// stageWritePages applies layouts and writes each page into staging.
func stageWritePages(ctx context.Context, bs *BuildState) error {
	for _, p := range bs.Pages {
		if p.OutputPath == "" {
			continue
		}
		if err := checkCanceled(ctx, StageWritePages); err != nil {
			return err
		}
		out, err := bs.renderPage(p)
		if err != nil {
			return newFatalStageError(StageWritePages, err)
		}
		dst := bs.StagePath(p.OutputPath)
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return newFatalStageError(StageWritePages, sberrors.FileSystemError("mkdir", filepath.Dir(dst), err))
		}
		if err := os.WriteFile(dst, out, 0o644); err != nil {
			return newFatalStageError(StageWritePages, sberrors.FileSystemError("write", dst, err))
		}
		bs.Report.Pages++
		bs.log.Debug("Wrote page", logfields.Path(p.InputPath), logfields.URL(p.URL), logfields.Layout(p.Layout))
	}
	return nil
}
