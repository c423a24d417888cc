package logfields

import (
	"errors"
	"log/slog"
	"testing"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"BuildID", KeyBuildID, "b1", BuildID("b1")},
		{"Stage", KeyStage, "copy_passthrough", Stage("copy_passthrough")},
		{"Path", KeyPath, "/tmp/x", Path("/tmp/x")},
		{"Source", KeySource, "./src/styles.css", Source("./src/styles.css")},
		{"Destination", KeyDestination, "styles.css", Destination("styles.css")},
		{"URL", KeyURL, "/about/", URL("/about/")},
		{"Layout", KeyLayout, "post.html", Layout("post.html")},
		{"Library", KeyLibrary, "md", Library("md")},
		{"Plugin", KeyPlugin, "syntax-highlight", Plugin("syntax-highlight")},
		{"Filter", KeyFilter, "PostDate", Filter("PostDate")},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if c.attr.Key != c.attrKey {
				t.Fatalf("key mismatch: got %s want %s", c.attr.Key, c.attrKey)
			}
			if c.attr.Value.String() != c.attrVal {
				t.Fatalf("value mismatch: got %s want %s", c.attr.Value.String(), c.attrVal)
			}
		})
	}
}

func TestNumericHelpers(t *testing.T) {
	if a := Count(3); a.Key != KeyCount || a.Value.Int64() != 3 {
		t.Fatalf("unexpected count attr: %v", a)
	}
	if a := DurationMS(1.5); a.Key != KeyDurationMS || a.Value.Float64() != 1.5 {
		t.Fatalf("unexpected duration attr: %v", a)
	}
}

func TestErrorHelper(t *testing.T) {
	if a := Error(nil); a.Value.String() != "" {
		t.Fatalf("nil error should yield empty string, got %q", a.Value.String())
	}
	if a := Error(errors.New("boom")); a.Key != KeyError || a.Value.String() != "boom" {
		t.Fatalf("unexpected error attr: %v", a)
	}
}
