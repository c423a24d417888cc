package build

import (
	"fmt"
	"html/template"
	"path"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	sberrors "git.home.luguber.info/inful/sitebuilder/internal/errors"
)

// Page is one rendered Markdown document.
type Page struct {
	InputPath  string // slash path relative to the input directory
	URL        string // empty when the page is not written
	OutputPath string // slash path relative to the output root; empty when not written
	Title      string
	Date       time.Time
	Tags       []string
	Layout     string
	Data       map[string]any
	Content    template.HTML
	Raw        []byte // Markdown body without front matter
}

var titleCaser = cases.Title(language.English)

// titleFromPath derives a title from the file name: "my-first_post.md"
// becomes "My First Post". Index files take their directory's name.
func titleFromPath(rel string) string {
	stem := strings.TrimSuffix(rel, path.Ext(rel))
	dir, base := path.Split(stem)
	if base == "index" {
		base = path.Base(strings.TrimSuffix(dir, "/"))
		if dir == "" {
			return "Home"
		}
	}
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)
	return titleCaser.String(strings.Join(strings.Fields(base), " "))
}

// pageTarget maps an input path to its URL and output file the way Eleventy
// does: index.md -> /, about.md -> /about/, posts/a.md -> /posts/a/.
// A permalink string overrides the mapping; permalink false skips writing.
func pageTarget(rel string, permalink any) (url, out string, err error) {
	if permalink != nil {
		switch v := permalink.(type) {
		case bool:
			if !v {
				return "", "", nil
			}
		case string:
			return permalinkTarget(rel, v)
		default:
			return "", "", sberrors.ValidationFailed("permalink", fmt.Sprintf("unsupported permalink %#v", permalink)).
				WithContext("path", rel)
		}
	}

	stem := strings.TrimSuffix(rel, path.Ext(rel))
	if dir, base := path.Split(stem); base == "index" {
		stem = strings.TrimSuffix(dir, "/")
	}
	if stem == "" {
		return "/", "index.html", nil
	}
	return "/" + stem + "/", stem + "/index.html", nil
}

func permalinkTarget(rel, permalink string) (url, out string, err error) {
	raw := strings.TrimSpace(permalink)
	if raw == "" {
		return "", "", sberrors.ValidationFailed("permalink", "empty permalink").WithContext("path", rel)
	}
	clean := path.Clean(strings.TrimLeft(raw, "/"))
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", "", sberrors.OutputEscape(rel, permalink)
	}
	if clean == "." {
		return "/", "index.html", nil
	}
	if strings.HasSuffix(raw, "/") {
		return "/" + clean + "/", clean + "/index.html", nil
	}
	return "/" + clean, clean, nil
}

// stringList accepts a single string or a list of strings.
func stringList(v any) []string {
	switch t := v.(type) {
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
