// Package pyproject decodes the parts of a pyproject.toml that drive a
// uv → pipenv conversion: the runtime dependency list, PEP 735 dependency
// groups, and uv's index and source declarations.
package pyproject

import (
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/uvburn/pkg/errors"
	"github.com/matzehuels/uvburn/pkg/requirement"
)

// DefaultDevGroups are the dependency groups mapped to pipenv's "develop"
// section when the caller does not choose otherwise. uv installs the "dev"
// group by default.
var DefaultDevGroups = []string{"dev"}

// Project is a decoded pyproject.toml.
type Project struct {
	Metadata         Metadata         `toml:"project"`
	DependencyGroups map[string][]any `toml:"dependency-groups"`
	Tool             Tool             `toml:"tool"`
}

// Metadata is the [project] table.
type Metadata struct {
	Name           string   `toml:"name"`
	Version        string   `toml:"version"`
	Description    string   `toml:"description"`
	RequiresPython string   `toml:"requires-python"`
	Dependencies   []string `toml:"dependencies"`
}

// Tool is the [tool] table; only uv's settings are decoded.
type Tool struct {
	UV UV `toml:"uv"`
}

// UV is the [tool.uv] table.
type UV struct {
	Sources map[string]Source `toml:"sources"`
	Indices []Index           `toml:"index"`
}

// Index is a [[tool.uv.index]] declaration.
type Index struct {
	Name     string `toml:"name"`
	URL      string `toml:"url"`
	Default  bool   `toml:"default"`
	Explicit bool   `toml:"explicit"`
}

// Source is a [tool.uv.sources] override for one package.
type Source struct {
	Workspace bool   `toml:"workspace"`
	Path      string `toml:"path"`
	Editable  *bool  `toml:"editable"`
	Git       string `toml:"git"`
	Rev       string `toml:"rev"`
	Tag       string `toml:"tag"`
	Branch    string `toml:"branch"`
	Index     string `toml:"index"`
}

// Ref returns the git reference pinned by the source, preferring rev over
// tag over branch.
func (s Source) Ref() string {
	switch {
	case s.Rev != "":
		return s.Rev
	case s.Tag != "":
		return s.Tag
	default:
		return s.Branch
	}
}

// Load reads and decodes the pyproject.toml at path.
func Load(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "read %s", path)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMalformedManifest, err, "parse %s", path)
	}
	return p, nil
}

// Parse decodes pyproject.toml content and validates the index declarations.
func Parse(data []byte) (*Project, error) {
	var p Project
	if _, err := toml.Decode(string(data), &p); err != nil {
		return nil, errors.Wrap(errors.ErrCodeMalformedManifest, err, "decode pyproject.toml")
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Project) validate() error {
	seen := make(map[string]bool, len(p.Tool.UV.Indices))
	defaults := 0
	for _, idx := range p.Tool.UV.Indices {
		if idx.Name == "" {
			return errors.New(errors.ErrCodeMalformedManifest, "index with url %q has no name", idx.URL)
		}
		if seen[idx.Name] {
			return errors.New(errors.ErrCodeMalformedManifest, "index %q is declared more than once", idx.Name)
		}
		seen[idx.Name] = true
		if err := errors.ValidateURL(idx.URL); err != nil {
			return errors.Wrap(errors.ErrCodeMalformedManifest, err, "index %q", idx.Name)
		}
		if idx.Default {
			defaults++
		}
	}
	if defaults > 1 {
		return errors.New(errors.ErrCodeMalformedManifest, "more than one index is marked default")
	}
	for _, name := range slices.Sorted(maps.Keys(p.Tool.UV.Sources)) {
		if src := p.Tool.UV.Sources[name]; src.Index != "" && !seen[src.Index] {
			return errors.New(errors.ErrCodeMalformedManifest, "source for %q references undeclared index %q", name, src.Index)
		}
	}
	return nil
}

// RootSpecs parses the runtime dependency specifiers in declaration order.
func (p *Project) RootSpecs() ([]requirement.Requirement, error) {
	return parseAll(p.Metadata.Dependencies)
}

// GroupSpecs parses the specifiers of the named dependency groups, in the
// order the groups are given and then declaration order within each group.
// Groups that are not declared contribute nothing. PEP 735
// {include-group = "..."} entries are expanded in place.
func (p *Project) GroupSpecs(groups ...string) ([]requirement.Requirement, error) {
	var out []requirement.Requirement
	for _, g := range groups {
		specs, err := p.expandGroup(g, nil)
		if err != nil {
			return nil, err
		}
		reqs, err := parseAll(specs)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeMalformedManifest, err, "dependency group %q", g)
		}
		out = append(out, reqs...)
	}
	return out, nil
}

func (p *Project) expandGroup(group string, stack []string) ([]string, error) {
	if slices.Contains(stack, group) {
		return nil, errors.New(errors.ErrCodeMalformedManifest, "dependency group %q includes itself via %s", group, strings.Join(stack, " -> "))
	}
	stack = append(stack, group)

	var out []string
	for _, entry := range p.DependencyGroups[group] {
		switch v := entry.(type) {
		case string:
			out = append(out, v)
		case map[string]any:
			inc, ok := v["include-group"].(string)
			if !ok {
				return nil, errors.New(errors.ErrCodeMalformedManifest, "dependency group %q has a table entry without include-group", group)
			}
			if _, declared := p.DependencyGroups[inc]; !declared {
				return nil, errors.New(errors.ErrCodeMalformedManifest, "dependency group %q includes undeclared group %q", group, inc)
			}
			specs, err := p.expandGroup(inc, stack)
			if err != nil {
				return nil, err
			}
			out = append(out, specs...)
		default:
			return nil, errors.New(errors.ErrCodeMalformedManifest, "dependency group %q has unsupported entry %v", group, entry)
		}
	}
	return out, nil
}

// GroupNames returns the declared dependency group names, sorted.
func (p *Project) GroupNames() []string {
	return slices.Sorted(maps.Keys(p.DependencyGroups))
}

// DefaultIndex returns the index declared with default = true, if any.
func (p *Project) DefaultIndex() (Index, bool) {
	for _, idx := range p.Tool.UV.Indices {
		if idx.Default {
			return idx, true
		}
	}
	return Index{}, false
}

// IndexByURL returns the declared index whose URL matches url exactly,
// ignoring a trailing slash on either side.
func (p *Project) IndexByURL(url string) (Index, bool) {
	want := strings.TrimSuffix(url, "/")
	for _, idx := range p.Tool.UV.Indices {
		if strings.TrimSuffix(idx.URL, "/") == want {
			return idx, true
		}
	}
	return Index{}, false
}

// SourceFor returns the [tool.uv.sources] override for a package, looked up
// by normalized name.
func (p *Project) SourceFor(name string) (Source, bool) {
	key := requirement.Normalize(name)
	for _, n := range slices.Sorted(maps.Keys(p.Tool.UV.Sources)) {
		if requirement.Normalize(n) == key {
			return p.Tool.UV.Sources[n], true
		}
	}
	return Source{}, false
}

func parseAll(specs []string) ([]requirement.Requirement, error) {
	out := make([]requirement.Requirement, 0, len(specs))
	for _, s := range specs {
		r, err := requirement.Parse(s)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
