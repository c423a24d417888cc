package build

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	sberrors "git.home.luguber.info/inful/sitebuilder/internal/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/registry"
)

func TestGenerate_RendersHighlightMathAndFootnotes(t *testing.T) {
	p := newProject(t)
	report, err := p.generator().Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, report.Outcome)
	assert.Equal(t, 2, report.Pages)

	doc := parseHTML(t, p.read("_site/index.html"))

	assert.NotEmpty(t, findAll(doc, func(n *html.Node) bool { return n.Data == "pre" && hasClass(n, "chroma") }),
		"fenced code should be highlighted")
	math := findAll(doc, func(n *html.Node) bool { return n.Data == "span" && hasClass(n, "math") })
	require.NotEmpty(t, math, "inline math should carry a math marker")
	assert.Contains(t, textOf(math[0]), `e^{i\pi}`)

	refs := findAll(doc, func(n *html.Node) bool { return n.Data == "a" && hasClass(n, "footnote-ref") })
	require.Len(t, refs, 1)
	defs := findAll(doc, func(n *html.Node) bool { return hasClass(n, "footnotes") })
	require.Len(t, defs, 1)
	target := attr(refs[0], "href")
	require.NotEmpty(t, target)
	assert.NotEmpty(t, findAll(defs[0], func(n *html.Node) bool { return "#"+attr(n, "id") == target }),
		"footnote reference should point at a definition")
}

func TestGenerate_LayoutDataAndFilters(t *testing.T) {
	p := newProject(t)
	_, err := p.generator().Generate(context.Background())
	require.NoError(t, err)

	doc := parseHTML(t, p.read("_site/index.html"))
	titles := findAll(doc, func(n *html.Node) bool { return n.Data == "title" })
	require.Len(t, titles, 1)
	assert.Equal(t, "Home", textOf(titles[0]))

	times := findAll(doc, func(n *html.Node) bool { return n.Data == "time" })
	require.Len(t, times, 1)
	assert.Equal(t, "Jan 15, 2024", textOf(times[0]))

	links := findAll(doc, func(n *html.Node) bool { return n.Data == "a" && n.Parent != nil && n.Parent.Data == "li" })
	require.Len(t, links, 1)
	assert.Equal(t, "/posts/hello-world/", attr(links[0], "href"))
	assert.Equal(t, "Hello World", textOf(links[0]))

	post := parseHTML(t, p.read("_site/posts/hello-world/index.html"))
	times = findAll(post, func(n *html.Node) bool { return n.Data == "time" })
	require.Len(t, times, 1)
	assert.Equal(t, "Feb 1, 2024", textOf(times[0]))
}

func TestGenerate_PassthroughIsByteIdentical(t *testing.T) {
	p := newProject(t)
	report, err := p.generator().Generate(context.Background())
	require.NoError(t, err)

	pairs := map[string]string{
		"src/styles.css":        "_site/styles.css",
		"src/blog.css":          "_site/blog.css",
		"src/code.css":          "_site/code.css",
		"src/quotes.js":         "_site/quotes.js",
		"images/photo.png":      "_site/img/photo.png",
		"images/icons/star.svg": "_site/img/icons/star.svg",
	}
	var total int64
	for src, dst := range pairs {
		want := p.read(src)
		assert.True(t, bytes.Equal(want, p.read(dst)), "%s differs from %s", dst, src)
		total += int64(len(want))
	}
	assert.Equal(t, len(pairs), report.Assets)
	assert.Equal(t, total, report.AssetBytes)
	assert.Empty(t, p.stagingLeftovers())
}

func TestGenerate_SourcesAreNotPages(t *testing.T) {
	p := newProject(t)
	p.write("src/.hidden.md", "# hidden\n")
	p.write("src/notes.txt", "plain text\n")
	p.write("src/_includes/partial.md", "# partial\n")
	_, err := p.generator().Generate(context.Background())
	require.NoError(t, err)

	for _, rel := range []string{"_site/.hidden/index.html", "_site/notes.txt", "_site/_includes", "_site/notes/index.html"} {
		_, err := os.Stat(p.path(rel))
		assert.True(t, os.IsNotExist(err), "%s should not exist", rel)
	}
}

func TestGenerate_InputContainingOutput(t *testing.T) {
	p := &project{t: t, root: t.TempDir()}
	p.write("index.md", "home\n")
	p.write("notes/readme.md", "notes\n")

	r := registry.New()
	r.SetLibrary(registry.MarkdownLibrary, plainMarkdown{})
	r.AddPassthroughCopy("./notes")
	dirs := registry.BuildConfig{Input: ".", Output: "_site"}

	for i := 0; i < 2; i++ {
		report, err := p.generatorWith(r.Snapshot(), dirs).Generate(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, report.Pages)
		assert.Equal(t, 1, report.Assets)
	}

	assert.Equal(t, "notes\n", string(p.read("_site/notes/readme.md")))
	assert.Equal(t, "home\n", string(p.read("_site/index.html")))
	nested, err := filepath.Glob(p.path("_site/_site*"))
	require.NoError(t, err)
	assert.Empty(t, nested)
	assert.NoDirExists(t, p.path("_site/notes/readme"))
	assert.Empty(t, p.stagingLeftovers())
}

func TestGenerate_PassthroughSkipsSymlinkedDirectories(t *testing.T) {
	p := newProject(t)
	p.write("shared/logo.svg", "<svg/>")
	if err := os.Symlink(p.path("shared"), p.path("images/shared")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	if err := os.Symlink(p.path("images/photo.png"), p.path("images/alias.png")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	report, err := p.generator().Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, report.Outcome)
	assert.Equal(t, p.read("images/photo.png"), p.read("_site/img/alias.png"))
	_, statErr := os.Lstat(p.path("_site/img/shared"))
	assert.True(t, os.IsNotExist(statErr), "symlinked directory should not be copied")
}

func TestGenerate_MissingAssetKeepsPreviousOutput(t *testing.T) {
	p := newProject(t)
	_, err := p.generator().Generate(context.Background())
	require.NoError(t, err)
	before := p.read("_site/index.html")

	p.remove("src/quotes.js")
	p.write("src/index.md", "# changed\n")
	report, err := p.generator().Generate(context.Background())
	require.Error(t, err)
	assert.True(t, sberrors.IsCategory(err, sberrors.CategoryAsset), "got %v", err)
	assert.True(t, errors.Is(err, ErrPassthrough))
	require.NotNil(t, report)
	assert.Equal(t, OutcomeFailed, report.Outcome)
	assert.Equal(t, StageErrorFatal, report.StageErrors[StageCopyPassthrough])

	assert.Equal(t, before, p.read("_site/index.html"), "previous output must be untouched")
	assert.Empty(t, p.stagingLeftovers())
}

func TestGenerate_FilterErrorFailsTemplate(t *testing.T) {
	p := newProject(t)
	_, err := p.generator().Generate(context.Background())
	require.NoError(t, err)
	before := p.read("_site/posts/hello-world/index.html")

	p.write("src/_includes/base.html", `<p>{{ PostDate .Data.published }}</p>{{ .Content }}`)
	p.write("src/posts/hello-world.md", "---\nlayout: base\npublished: someday\n---\nbody\n")
	_, err = p.generator().Generate(context.Background())
	require.Error(t, err)
	assert.True(t, sberrors.IsCategory(err, sberrors.CategoryTemplate), "got %v", err)
	assert.True(t, sberrors.IsCategory(err, sberrors.CategoryFilter), "got %v", err)
	assert.True(t, errors.Is(err, ErrTemplate))

	assert.Equal(t, before, p.read("_site/posts/hello-world/index.html"))
	assert.Empty(t, p.stagingLeftovers())
}

func TestGenerate_Conflicts(t *testing.T) {
	tests := []struct {
		name  string
		setup func(p *project)
	}{
		{"page collides with passthrough file", func(p *project) {
			p.write("src/sheet.md", "---\npermalink: /styles.css\n---\nnot css\n")
		}},
		{"two pages resolve to one file", func(p *project) {
			p.write("src/about.md", "about\n")
			p.write("src/about/index.md", "also about\n")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newProject(t)
			tt.setup(p)
			_, err := p.generator().Generate(context.Background())
			require.Error(t, err)
			assert.True(t, sberrors.IsCategory(err, sberrors.CategoryValidation), "got %v", err)
			_, statErr := os.Stat(p.path("_site"))
			assert.True(t, os.IsNotExist(statErr), "no output on first failed build")
			assert.Empty(t, p.stagingLeftovers())
		})
	}
}

func TestGenerate_RejectsEscapes(t *testing.T) {
	t.Run("permalink", func(t *testing.T) {
		p := newProject(t)
		p.write("src/evil.md", "---\npermalink: ../../evil.html\n---\nx\n")
		_, err := p.generator().Generate(context.Background())
		require.Error(t, err)
		assert.True(t, sberrors.IsCategory(err, sberrors.CategoryValidation))
		_, statErr := os.Stat(filepath.Join(filepath.Dir(p.root), "evil.html"))
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("passthrough destination", func(t *testing.T) {
		p := newProject(t)
		r := registry.New()
		r.SetLibrary(registry.MarkdownLibrary, plainMarkdown{})
		r.AddPassthroughCopyTo("./src/styles.css", "../styles.css")
		report, err := p.generatorWith(r.Snapshot(), registry.BuildConfig{Input: "src", Output: "_site"}).Generate(context.Background())
		require.Error(t, err)
		assert.True(t, sberrors.IsCategory(err, sberrors.CategoryValidation))
		assert.Equal(t, StageErrorFatal, report.StageErrors[StageValidate])
		_, statErr := os.Stat(filepath.Join(p.root, "styles.css"))
		assert.True(t, os.IsNotExist(statErr))
	})
}

func TestGenerate_OutputMustNotContainInput(t *testing.T) {
	p := newProject(t)
	r := registry.New()
	r.SetLibrary(registry.MarkdownLibrary, plainMarkdown{})
	_, err := p.generatorWith(r.Snapshot(), registry.BuildConfig{Input: "src", Output: "."}).Generate(context.Background())
	require.Error(t, err)
	assert.True(t, sberrors.IsCategory(err, sberrors.CategoryValidation))
	assert.FileExists(t, p.path("src/index.md"))
}

func TestGenerate_BrokenLinksAreWarnings(t *testing.T) {
	p := newProject(t)
	p.write("src/links.md", "[gone](/missing/) [ok](../posts/hello-world/) [ext](https://example.com) [frag](#top)\n")
	report, err := p.generator().Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeWarning, report.Outcome)
	assert.Equal(t, []BrokenLink{{Page: "links.md", Destination: "/missing/"}}, report.BrokenLinks)
	assert.FileExists(t, p.path("_site/links/index.html"))

	report, err = p.generator(WithLinkCheck(false)).Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, report.Outcome)
}

func TestGenerate_PermalinksAndNoLayout(t *testing.T) {
	p := newProject(t)
	p.write("src/feed.md", "---\npermalink: /feed.xml\n---\nfeed\n")
	p.write("src/draft.md", "---\npermalink: false\ntags: [post]\n---\ndraft\n")
	_, err := p.generator().Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "<p>feed</p>\n", string(p.read("_site/feed.xml")))
	_, statErr := os.Stat(p.path("_site/draft/index.html"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestGenerate_NestedLayouts(t *testing.T) {
	p := newProject(t)
	p.write("src/_includes/post.html", "---\nlayout: shell\nkind: article\n---\n<article class=\"{{ .Layout.kind }}\">{{ .Content }}</article>")
	p.write("src/_includes/shell.html", "<body>{{ .Content }}</body>")
	p.write("src/posts/hello-world.md", "---\nlayout: post\n---\nnested\n")
	_, err := p.generator().Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "<body><article class=\"article\"><p>nested</p>\n</article></body>", string(p.read("_site/posts/hello-world/index.html")))
}

func TestGenerate_LayoutCycle(t *testing.T) {
	p := newProject(t)
	p.write("src/_includes/a.html", "---\nlayout: b\n---\n{{ .Content }}")
	p.write("src/_includes/b.html", "---\nlayout: a\n---\n{{ .Content }}")
	p.write("src/posts/hello-world.md", "---\nlayout: a\n---\nloop\n")
	_, err := p.generator().Generate(context.Background())
	require.Error(t, err)
	assert.True(t, sberrors.IsCategory(err, sberrors.CategoryTemplate))
}

func TestGenerate_UnknownLayout(t *testing.T) {
	p := newProject(t)
	p.write("src/posts/hello-world.md", "---\nlayout: nope\n---\nx\n")
	_, err := p.generator().Generate(context.Background())
	require.Error(t, err)
	assert.True(t, sberrors.IsCategory(err, sberrors.CategoryTemplate))
}

func TestGenerate_Canceled(t *testing.T) {
	p := newProject(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := p.generator().Generate(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, OutcomeCanceled, report.Outcome)
	assert.Empty(t, p.stagingLeftovers())
}

func TestGenerate_CleanRemovesStaleDirectories(t *testing.T) {
	p := newProject(t)
	require.NoError(t, os.MkdirAll(p.path("_site.staging-old"), 0o755))
	_, err := p.generator(WithClean(true)).Generate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, p.stagingLeftovers())
}

func TestGenerate_RecordsMetrics(t *testing.T) {
	p := newProject(t)
	reg := prometheus.NewRegistry()
	rec := metrics.NewPrometheusRecorder(reg)
	_, err := p.generator(WithRecorder(rec)).Generate(context.Background())
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(reg, "sitebuilder_pages_rendered_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == "sitebuilder_pages_rendered_total" {
			assert.Equal(t, float64(2), mf.GetMetric()[0].GetCounter().GetValue())
		}
	}
}

func TestBuildReport_Persist(t *testing.T) {
	p := newProject(t)
	report, err := p.generator().Generate(context.Background())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "reports", "build.json")
	require.NoError(t, report.Persist(path))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(p.readAbs(path), &decoded))
	assert.Equal(t, report.ID, decoded["id"])
	assert.Equal(t, "success", decoded["outcome"])
	assert.EqualValues(t, 2, decoded["pages"])
	assert.Contains(t, report.Summary(), "outcome=success")
}

func (p *project) readAbs(path string) []byte {
	p.t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(p.t, err)
	return data
}

type plainMarkdown struct{}

func (plainMarkdown) Render(src []byte) ([]byte, error) { return src, nil }
