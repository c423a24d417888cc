package build

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/markdown"
)

// stageCheckLinks reports Markdown links to site paths that no page or
// passthrough file provides. Broken links are a warning, never fatal.
func stageCheckLinks(ctx context.Context, bs *BuildState) error {
	known := make(map[string]struct{}, len(bs.Written)*2)
	for rel := range bs.Written {
		known["/"+rel] = struct{}{}
		if rel == "index.html" || strings.HasSuffix(rel, "/index.html") {
			dir := "/" + strings.TrimSuffix(rel, "index.html")
			known[dir] = struct{}{}
			if dir != "/" {
				known[strings.TrimSuffix(dir, "/")] = struct{}{}
			}
		}
	}

	var broken []BrokenLink
	for _, p := range bs.Pages {
		if err := checkCanceled(ctx, StageCheckLinks); err != nil {
			return err
		}
		if p.URL == "" {
			continue
		}
		for _, l := range markdown.ExtractLinks(p.Raw) {
			target, ok := internalTarget(p.URL, l.Destination)
			if !ok {
				continue
			}
			if _, found := known[target]; !found {
				broken = append(broken, BrokenLink{Page: p.InputPath, Destination: l.Destination})
			}
		}
	}
	if len(broken) == 0 {
		return nil
	}
	bs.Report.BrokenLinks = broken
	for _, b := range broken {
		bs.log.Warn("Broken internal link", "page", b.Page, "destination", b.Destination)
	}
	return newWarnStageError(StageCheckLinks, fmt.Errorf("%w: %d found", ErrBrokenLinks, len(broken)))
}

// internalTarget resolves dest against the page URL. Links with a scheme or
// host, fragment-only links and empty paths are not internal.
func internalTarget(pageURL, dest string) (string, bool) {
	dest = strings.TrimSpace(dest)
	if dest == "" || strings.HasPrefix(dest, "#") {
		return "", false
	}
	u, err := url.Parse(dest)
	if err != nil || u.Scheme != "" || u.Host != "" || u.Path == "" {
		return "", false
	}
	p := u.Path
	if !strings.HasPrefix(p, "/") {
		base := pageURL
		if !strings.HasSuffix(base, "/") {
			base = strings.TrimSuffix(path.Dir(base), "/") + "/"
		}
		p = base + p
	}
	clean := path.Clean(p)
	if strings.HasSuffix(p, "/") && clean != "/" {
		clean += "/"
	}
	return clean, true
}
