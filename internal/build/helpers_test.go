package build

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"git.home.luguber.info/inful/sitebuilder/internal/registry"
	"git.home.luguber.info/inful/sitebuilder/internal/siteconfig"
)

const baseLayout = `<!doctype html>
<html><head><title>{{ .Title }}</title></head>
<body>
<time>{{ PostDate .Date }}</time>
<main>{{ .Content }}</main>
<ul class="posts">{{ range index .Collections "post" }}<li><a href="{{ .URL }}">{{ .Title }}</a></li>{{ end }}</ul>
</body></html>
`

const indexPage = "---\n" +
	"title: Home\n" +
	"layout: base\n" +
	"date: 2024-01-15\n" +
	"---\n" +
	"Euler says $e^{i\\pi} + 1 = 0$.[^1]\n\n" +
	"```go\nfunc main() {}\n```\n\n" +
	"Read [the post](/posts/hello-world/) and the [styles](styles.css).\n\n" +
	"[^1]: A footnote.\n"

const postPage = "---\n" +
	"layout: base.html\n" +
	"date: 2024-02-01T10:00:00Z\n" +
	"tags: post\n" +
	"---\n" +
	"Hello *world*.\n"

// project is a throwaway site with the reference asset layout.
type project struct {
	t    *testing.T
	root string
}

func newProject(t *testing.T) *project {
	t.Helper()
	p := &project{t: t, root: t.TempDir()}
	p.write("src/styles.css", "body { color: #333; }\n")
	p.write("src/blog.css", ".post { margin: 0; }\n")
	p.write("src/code.css", ".chroma { background: #fff; }\n")
	p.write("src/quotes.js", "console.log('quote');\n")
	p.write("images/photo.png", string([]byte{0x89, 'P', 'N', 'G', 0x00, 0xff, 0x10}))
	p.write("images/icons/star.svg", "<svg/>")
	p.write("src/_includes/base.html", baseLayout)
	p.write("src/index.md", indexPage)
	p.write("src/posts/hello-world.md", postPage)
	return p
}

func (p *project) path(rel string) string {
	return filepath.Join(p.root, filepath.FromSlash(rel))
}

func (p *project) write(rel, content string) {
	p.t.Helper()
	full := p.path(rel)
	require.NoError(p.t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(p.t, os.WriteFile(full, []byte(content), 0o644))
}

func (p *project) read(rel string) []byte {
	p.t.Helper()
	data, err := os.ReadFile(p.path(rel))
	require.NoError(p.t, err)
	return data
}

func (p *project) remove(rel string) {
	p.t.Helper()
	require.NoError(p.t, os.RemoveAll(p.path(rel)))
}

// generator configures the reference site and returns a generator for it.
func (p *project) generator(opts ...Option) *Generator {
	r := registry.New()
	dirs := siteconfig.Configure(r)
	return p.generatorWith(r.Snapshot(), dirs, opts...)
}

func (p *project) generatorWith(s *registry.Settings, dirs registry.BuildConfig, opts ...Option) *Generator {
	return NewGenerator(s, dirs, append([]Option{WithRoot(p.root)}, opts...)...)
}

func (p *project) stagingLeftovers() []string {
	p.t.Helper()
	matches, err := filepath.Glob(p.path("_site") + ".staging-*")
	require.NoError(p.t, err)
	return matches
}

func parseHTML(t *testing.T, data []byte) *html.Node {
	t.Helper()
	doc, err := html.Parse(bytes.NewReader(data))
	require.NoError(t, err)
	return doc
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && match(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
