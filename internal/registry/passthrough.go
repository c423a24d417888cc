package registry

import (
	"path"
	"strings"

	sberrors "git.home.luguber.info/inful/sitebuilder/internal/errors"
)

// PassthroughRule declares a file or directory copied byte-for-byte into the
// output. An empty Destination keeps the source's relative path.
type PassthroughRule struct {
	Source      string `json:"source" yaml:"source"`
	Destination string `json:"destination,omitempty" yaml:"destination,omitempty"`
}

// Resolved is a rule with its destination normalized against the output root.
type Resolved struct {
	Rule PassthroughRule
	// Destination is slash-separated and relative to the output root; "." is the root itself.
	Destination string
	// IntoDir is true when the destination names a directory that a file
	// source is copied into under its own base name.
	IntoDir bool
}

// Resolve normalizes the rule's destination. Without an explicit destination
// the source path is used, with "./" and a leading input directory removed.
// Destinations that would leave the output root are rejected.
func (p PassthroughRule) Resolve(inputDir string) (Resolved, error) {
	src := cleanRel(p.Source)
	if src == "" || src == "." {
		return Resolved{}, sberrors.ValidationFailed("passthrough.source", "empty passthrough source")
	}

	var dest string
	intoDir := false
	if p.Destination != "" {
		dest = p.Destination
		intoDir = strings.HasSuffix(dest, "/") || dest == "."
	} else {
		dest = src
		in := cleanRel(inputDir)
		if in != "" && in != "." {
			if src == in {
				dest = "."
			} else if strings.HasPrefix(src, in+"/") {
				dest = strings.TrimPrefix(src, in+"/")
			}
		}
	}

	dest = cleanRel(dest)
	if dest == "" || dest == "." {
		dest = "."
		intoDir = true
	}
	if dest == ".." || strings.HasPrefix(dest, "../") {
		return Resolved{}, sberrors.OutputEscape(p.Source, p.Destination)
	}
	return Resolved{Rule: p, Destination: dest, IntoDir: intoDir}, nil
}

// cleanRel cleans a slash path and strips any leading "./" or "/" so the
// result is always relative.
func cleanRel(p string) string {
	p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
	if p == "" {
		return ""
	}
	c := path.Clean(p)
	c = strings.TrimLeft(c, "/")
	if c == "" {
		return "."
	}
	return c
}

// ResolveDestination returns the normalized output-relative destination of rule.
func ResolveDestination(rule PassthroughRule, inputDir string) (string, error) {
	res, err := rule.Resolve(inputDir)
	if err != nil {
		return "", err
	}
	return res.Destination, nil
}
