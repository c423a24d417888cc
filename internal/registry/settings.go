package registry

import (
	"reflect"
	"regexp"
	"sort"

	sberrors "git.home.luguber.info/inful/sitebuilder/internal/errors"
)

var filterNameRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Settings is the frozen result of a Registry. It is safe for concurrent reads.
type Settings struct {
	passthrough []PassthroughRule
	plugins     []string
	libraries   map[string]Library
	filters     map[string]any
}

func newSettings(r *Registry) *Settings {
	s := &Settings{
		plugins:   append([]string(nil), r.plugins...),
		libraries: make(map[string]Library, len(r.libraries)),
		filters:   make(map[string]any, len(r.filters)),
	}
	seen := map[PassthroughRule]struct{}{}
	for _, rule := range r.passthrough {
		if _, dup := seen[rule]; dup {
			continue
		}
		seen[rule] = struct{}{}
		s.passthrough = append(s.passthrough, rule)
	}
	for k, v := range r.libraries {
		s.libraries[k] = v
	}
	for k, v := range r.filters {
		s.filters[k] = v
	}
	return s
}

// Passthrough returns the passthrough rules in registration order, identical duplicates removed.
func (s *Settings) Passthrough() []PassthroughRule {
	return append([]PassthroughRule(nil), s.passthrough...)
}

// Plugins returns plugin names in registration order.
func (s *Settings) Plugins() []string {
	return append([]string(nil), s.plugins...)
}

// Library returns the library registered under name.
func (s *Settings) Library(name string) (Library, bool) {
	lib, ok := s.libraries[name]
	return lib, ok
}

// Filters returns a copy of the registered filters keyed by name.
func (s *Settings) Filters() map[string]any {
	out := make(map[string]any, len(s.filters))
	for k, v := range s.filters {
		out[k] = v
	}
	return out
}

// FilterNames returns the registered filter names, sorted.
func (s *Settings) FilterNames() []string {
	names := make([]string, 0, len(s.filters))
	for k := range s.filters {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// ResolvePassthrough resolves every rule against the input directory.
func (s *Settings) ResolvePassthrough(inputDir string) ([]Resolved, error) {
	out := make([]Resolved, 0, len(s.passthrough))
	for _, rule := range s.passthrough {
		res, err := rule.Resolve(inputDir)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

// Validate checks the settings against the directory mapping before any
// output is written: destinations are distinct and inside the output root,
// filters are callable from templates, and a Markdown library is present.
func (s *Settings) Validate(dirs BuildConfig) error {
	if dirs.Input == "" {
		return sberrors.ValidationFailed("dir.input", "input directory is empty")
	}
	if dirs.Output == "" {
		return sberrors.ValidationFailed("dir.output", "output directory is empty")
	}
	if cleanRel(dirs.Input) == cleanRel(dirs.Output) {
		return sberrors.ValidationFailed("dir.output", "output directory must differ from input directory")
	}

	resolved, err := s.ResolvePassthrough(dirs.Input)
	if err != nil {
		return err
	}
	// Exact destinations must be unique. Several rules may copy into the same
	// directory; file-level collisions there are caught while copying.
	exact := map[string]string{}
	dirsInto := map[string]string{}
	for _, r := range resolved {
		if r.IntoDir {
			if prev, ok := exact[r.Destination]; ok {
				return sberrors.DestinationConflict(r.Destination, prev, r.Rule.Source)
			}
			dirsInto[r.Destination] = r.Rule.Source
			continue
		}
		if prev, ok := exact[r.Destination]; ok {
			return sberrors.DestinationConflict(r.Destination, prev, r.Rule.Source)
		}
		if prev, ok := dirsInto[r.Destination]; ok {
			return sberrors.DestinationConflict(r.Destination, prev, r.Rule.Source)
		}
		exact[r.Destination] = r.Rule.Source
	}

	for name, fn := range s.filters {
		if !filterNameRE.MatchString(name) {
			return sberrors.ValidationFailed("filter", "invalid filter name "+name)
		}
		if err := checkFilterFunc(name, fn); err != nil {
			return err
		}
	}

	if lib, ok := s.libraries[MarkdownLibrary]; !ok || lib == nil {
		return sberrors.ValidationFailed("library", "no markdown library registered")
	}
	return nil
}

// checkFilterFunc mirrors text/template's rules for FuncMap values: a
// function returning one value, or a value and an error.
func checkFilterFunc(name string, fn any) error {
	if fn == nil {
		return sberrors.ValidationFailed("filter", name+" is nil")
	}
	t := reflect.TypeOf(fn)
	if t.Kind() != reflect.Func {
		return sberrors.ValidationFailed("filter", name+" is not a function")
	}
	switch {
	case t.NumOut() == 1:
		return nil
	case t.NumOut() == 2 && t.Out(1) == errorType:
		return nil
	default:
		return sberrors.ValidationFailed("filter", name+" must return one value or a value and an error")
	}
}
