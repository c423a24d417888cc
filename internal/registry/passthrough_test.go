package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sberrors "git.home.luguber.info/inful/sitebuilder/internal/errors"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		rule    PassthroughRule
		input   string
		want    string
		intoDir bool
	}{
		{"input prefix stripped", PassthroughRule{Source: "./src/styles.css"}, "src", "styles.css", false},
		{"input prefix without dot slash", PassthroughRule{Source: "src/quotes.js"}, "./src", "quotes.js", false},
		{"outside input keeps path", PassthroughRule{Source: "./images"}, "src", "images", false},
		{"explicit directory destination", PassthroughRule{Source: "./images", Destination: "img/"}, "src", "img", true},
		{"explicit file destination", PassthroughRule{Source: "./src/icon.png", Destination: "favicon.png"}, "src", "favicon.png", false},
		{"leading slash is output relative", PassthroughRule{Source: "x.txt", Destination: "/robots.txt"}, "src", "robots.txt", false},
		{"root destination", PassthroughRule{Source: "./static", Destination: "/"}, "src", ".", true},
		{"whole input directory", PassthroughRule{Source: "./src"}, "src", ".", true},
		{"inner dot segments cleaned", PassthroughRule{Source: "src/a/../b.css"}, "src", "b.css", false},
		{"prefix match needs a separator", PassthroughRule{Source: "srcfiles/x.css"}, "src", "srcfiles/x.css", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.rule.Resolve(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Destination)
			assert.Equal(t, tt.intoDir, got.IntoDir)
		})
	}
}

func TestResolve_RejectsEscapes(t *testing.T) {
	for _, rule := range []PassthroughRule{
		{Source: "a.css", Destination: "../a.css"},
		{Source: "a.css", Destination: "img/../../a.css"},
		{Source: "../../etc/passwd"},
	} {
		_, err := rule.Resolve("src")
		require.Error(t, err, "%+v", rule)
		assert.True(t, sberrors.IsCategory(err, sberrors.CategoryValidation))
	}
}

func TestResolve_EmptySource(t *testing.T) {
	_, err := PassthroughRule{Source: "  "}.Resolve("src")
	require.Error(t, err)
}

func TestResolveDestination(t *testing.T) {
	got, err := ResolveDestination(PassthroughRule{Source: "./src/blog.css"}, "src")
	require.NoError(t, err)
	assert.Equal(t, "blog.css", got)
}
