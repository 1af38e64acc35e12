package pipeline

import (
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/uvburn/pkg/classify"
	"github.com/matzehuels/uvburn/pkg/errors"
	"github.com/matzehuels/uvburn/pkg/pipfile"
	"github.com/matzehuels/uvburn/pkg/pyproject"
	"github.com/matzehuels/uvburn/pkg/requirement"
	"github.com/matzehuels/uvburn/pkg/uvlock"
)

// emitter maps classified packages and manifest specifiers to pipenv's
// models. It holds no state beyond its inputs.
type emitter struct {
	project  *pyproject.Project
	lock     *uvlock.Lock
	opts     Options
	fallback *pipfile.Source
	logger   *log.Logger
}

func newEmitter(in Input, opts Options) *emitter {
	e := &emitter{project: in.Project, lock: in.Lock, opts: opts, logger: opts.Logger}
	if idx, ok := in.Project.DefaultIndex(); ok {
		e.fallback = &pipfile.Source{Name: idx.Name, URL: idx.URL}
	} else if !opts.NoDefaultIndex {
		e.fallback = &pipfile.Source{Name: opts.DefaultIndexName, URL: opts.DefaultIndexURL}
	}
	return e
}

// =============================================================================
// Index resolution
// =============================================================================

// resolveIndex returns the index name for a registry package: the declared
// index whose URL matches the package's registry URL, otherwise the implicit
// default index.
func (e *emitter) resolveIndex(p *uvlock.Package) (string, error) {
	if idx, ok := e.project.IndexByURL(p.Registry); ok {
		return idx.Name, nil
	}
	if e.fallback != nil {
		if strings.TrimSuffix(e.fallback.URL, "/") != strings.TrimSuffix(p.Registry, "/") {
			e.logger.Debug("registry matches no declared index, using default",
				"package", p.Name, "registry", p.Registry, "index", e.fallback.Name)
		}
		return e.fallback.Name, nil
	}
	return "", errors.New(errors.ErrCodeUnresolvedIndex,
		"package %q comes from %s, which matches no declared index, and no default index is configured", p.Name, p.Registry)
}

// sources lists the implicit default index followed by the declared indices
// in declaration order.
func (e *emitter) sources() []pipfile.Source {
	var out []pipfile.Source
	add := func(name, url string) {
		if slices.ContainsFunc(out, func(s pipfile.Source) bool { return s.Name == name }) {
			return
		}
		out = append(out, pipfile.Source{Name: name, URL: e.withCredentials(name, url), VerifySSL: !e.opts.NoVerifySSL})
	}
	if e.fallback != nil {
		add(e.fallback.Name, e.fallback.URL)
	}
	for _, idx := range e.project.Tool.UV.Indices {
		add(idx.Name, idx.URL)
	}
	return out
}

// withCredentials inserts environment variable placeholders as the URL's
// userinfo when credentials exist for the index. pipenv expands them at
// install time, so the secrets themselves never reach the generated files.
func (e *emitter) withCredentials(name, url string) string {
	cred, ok := e.opts.Credentials.For(name)
	if !ok {
		return url
	}
	scheme, rest, found := strings.Cut(url, "://")
	if !found {
		return url
	}
	host, _, _ := strings.Cut(rest, "/")
	if strings.Contains(host, "@") {
		e.logger.Warn("index URL already carries credentials, leaving it unchanged", "index", name)
		return url
	}
	userinfo := "${" + UsernameVar(name) + "}"
	if cred.Password != "" {
		userinfo += ":${" + PasswordVar(name) + "}"
	}
	e.logger.Debug("using credentials for index", "index", name, "username_var", UsernameVar(name))
	return scheme + "://" + userinfo + "@" + rest
}

// =============================================================================
// Pipfile
// =============================================================================

func (e *emitter) pipfile() (*pipfile.Pipfile, error) {
	pf := pipfile.New()

	meta := e.project.Metadata
	header := "Generated by uvburn from " + meta.Name
	if meta.Version != "" {
		header += " " + meta.Version
	}
	pf.Header = []string{header}
	pf.Sources = e.sources()

	python := pipfile.PythonVersion(meta.RequiresPython)
	if python == "" {
		python = pipfile.PythonVersion(e.lock.RequiresPython)
	}
	pf.Requires = pipfile.Requires{PythonVersion: python}

	runtime, err := e.project.RootSpecs()
	if err != nil {
		return nil, err
	}
	for _, r := range runtime {
		e.addSpec(pf.Packages, r)
	}

	var groups []string
	for _, g := range e.opts.DevGroups {
		if slices.Contains(e.project.GroupNames(), g) {
			groups = append(groups, g)
		}
	}
	dev, err := e.project.GroupSpecs(groups...)
	if err != nil {
		return nil, err
	}
	for _, r := range dev {
		e.addSpec(pf.DevPackages, r)
	}
	return pf, nil
}

// addSpec converts a manifest requirement into a Pipfile entry. A package
// listed twice (e.g. once plain and once with extras, in any spelling) is
// merged under its first spelling: extras accumulate, the first version
// constraint and marker win. A requirement on the project itself, such as a
// dev group pulling in the project's own extras, is skipped.
func (e *emitter) addSpec(dst map[string]pipfile.Spec, r requirement.Requirement) {
	if r.Key() == requirement.Normalize(e.project.Metadata.Name) {
		e.logger.Debug("skipping requirement on the project itself", "requirement", r.String())
		return
	}

	spec := pipfile.Spec{Version: r.Specifier, Extras: r.Extras, Markers: r.Marker, File: r.URL}

	if src, ok := e.project.SourceFor(r.Name); ok {
		switch {
		case src.Index != "":
			spec.Index = src.Index
		case src.Workspace:
			spec.Path = "."
			if p, ok := e.lock.Lookup(r.Name); ok && p.Path != "" {
				spec.Path = p.Path
			}
			spec.Editable = src.Editable == nil || *src.Editable
			spec.File = ""
		case src.Path != "":
			spec.Path = src.Path
			spec.Editable = src.Editable != nil && *src.Editable
			spec.File = ""
		case src.Git != "":
			spec.Git = src.Git
			spec.Ref = src.Ref()
			spec.File = ""
		}
	}

	key := r.Name
	for name := range dst {
		if requirement.Normalize(name) == r.Key() {
			key = name
			break
		}
	}
	prev, ok := dst[key]
	if !ok {
		dst[key] = spec
		return
	}
	for _, x := range spec.Extras {
		if !slices.Contains(prev.Extras, x) {
			prev.Extras = append(slices.Clip(prev.Extras), x)
		}
	}
	if prev.Version == "" {
		prev.Version = spec.Version
	}
	if prev.Markers == "" {
		prev.Markers = spec.Markers
	}
	dst[key] = prev
}

// =============================================================================
// Pipfile.lock
// =============================================================================

// fill adds a lock entry for every member.
func (e *emitter) fill(dst map[string]pipfile.LockEntry, members []classify.Member) error {
	for _, m := range members {
		entry, err := e.entry(m)
		if err != nil {
			return err
		}
		dst[m.Name] = entry
	}
	return nil
}

// entry maps one classified package. Registry packages get an exact pin,
// their hashes (wheels, then sdist) and their index. Workspace packages get
// an exact pin, an empty hash list and their local path, but no index.
func (e *emitter) entry(m classify.Member) (pipfile.LockEntry, error) {
	p := m.Package
	entry := pipfile.LockEntry{
		Version: "==" + p.Version,
		Hashes:  p.Hashes(),
		Markers: m.Marker,
	}
	switch p.Kind {
	case uvlock.KindWorkspace:
		entry.Path = p.Path
		entry.Editable = p.Editable
	case uvlock.KindRegistry:
		idx, err := e.resolveIndex(p)
		if err != nil {
			return pipfile.LockEntry{}, err
		}
		entry.Index = idx
	}
	return entry, nil
}
