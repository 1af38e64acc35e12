// Package uvlock decodes uv.lock files into an immutable, validated package
// graph.
//
// A uv.lock is a flat list of [[package]] entries. Each entry is pinned to a
// single version, names its source (a registry URL or a local workspace
// path), lists its direct dependencies with optional environment markers, and
// for registry packages carries the source distribution and wheels that uv
// resolved together with their hashes.
//
// [Parse] validates the graph as it decodes: package names must be unique,
// every dependency edge must point at a package in the lock, and every
// artifact hash must be of the form "<algorithm>:<hex>". Violations are
// reported as MALFORMED_LOCK_GRAPH errors naming the offending package.
package uvlock

import (
	"os"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/uvburn/pkg/errors"
	"github.com/matzehuels/uvburn/pkg/requirement"
)

// SupportedVersion is the uv.lock schema version this package understands.
const SupportedVersion = 1

// Kind tags the source variant of a [Package].
type Kind int

const (
	// KindRegistry is a package downloaded from a package index.
	KindRegistry Kind = iota
	// KindWorkspace is a package installed from a local path, usually a
	// workspace member. It has no artifacts and no hashes.
	KindWorkspace
)

// String returns the kind name used in logs and JSON output.
func (k Kind) String() string {
	if k == KindWorkspace {
		return "workspace"
	}
	return "registry"
}

// Dependency is one outgoing edge of a package.
type Dependency struct {
	Name      string   `toml:"name"`
	Marker    string   `toml:"marker"`
	Specifier string   `toml:"specifier"`
	Editable  string   `toml:"editable"`
	Extras    []string `toml:"extra"`
}

// Artifact is a downloadable distribution file.
type Artifact struct {
	URL        string `toml:"url"`
	Hash       string `toml:"hash"`
	Size       int64  `toml:"size"`
	UploadTime string `toml:"upload-time"`
}

// Uploaded parses the artifact's upload timestamp. The zero time is returned
// when the lock does not record one.
func (a Artifact) Uploaded() (time.Time, error) {
	if a.UploadTime == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, a.UploadTime)
}

// Algorithm returns the hash algorithm prefix (e.g. "sha256").
func (a Artifact) Algorithm() string {
	alg, _, _ := strings.Cut(a.Hash, ":")
	return alg
}

// Metadata is the [package.metadata] table of a workspace package: the
// dependency specifiers it declares, as opposed to the resolved edges.
type Metadata struct {
	RequiresDist []Dependency            `toml:"requires-dist"`
	RequiresDev  map[string][]Dependency `toml:"requires-dev"`
}

// Package is a single resolved package. Exactly one of Registry or Path is
// set, selected by Kind.
type Package struct {
	Name    string
	Version string
	Kind    Kind

	Registry string // Index URL, for KindRegistry
	Path     string // Local path, for KindWorkspace
	Editable bool   // Installed in editable mode, for KindWorkspace

	Dependencies         []Dependency
	OptionalDependencies map[string][]Dependency
	DevDependencies      map[string][]Dependency

	Sdist  *Artifact
	Wheels []Artifact

	Metadata Metadata
}

// Hashes returns the hashes of all artifacts: wheels in declaration order,
// followed by the sdist hash if present. Workspace packages return an empty,
// non-nil slice.
func (p *Package) Hashes() []string {
	hashes := make([]string, 0, len(p.Wheels)+1)
	for _, w := range p.Wheels {
		hashes = append(hashes, w.Hash)
	}
	if p.Sdist != nil {
		hashes = append(hashes, p.Sdist.Hash)
	}
	return hashes
}

// Manifest is the [manifest] table listing workspace members.
type Manifest struct {
	Members []string `toml:"members"`
}

// Lock is a decoded and validated uv.lock.
type Lock struct {
	Version        int
	Revision       int
	RequiresPython string
	Manifest       Manifest
	Packages       []*Package

	byName map[string]*Package
}

// Lookup returns the package with the given name, compared after PEP 503
// normalization.
func (l *Lock) Lookup(name string) (*Package, bool) {
	p, ok := l.byName[requirement.Normalize(name)]
	return p, ok
}

// IsMember reports whether name is listed as a workspace member. This is
// independent of the package's source kind.
func (l *Lock) IsMember(name string) bool {
	key := requirement.Normalize(name)
	for _, m := range l.Manifest.Members {
		if requirement.Normalize(m) == key {
			return true
		}
	}
	return false
}

// Load reads and decodes the uv.lock at path.
func Load(path string) (*Lock, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "read %s", path)
	}
	l, err := Parse(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMalformedLockGraph, err, "parse %s", path)
	}
	return l, nil
}

// Parse decodes uv.lock content and validates the resulting graph.
func Parse(data []byte) (*Lock, error) {
	var raw lockFile
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return nil, errors.Wrap(errors.ErrCodeMalformedLockGraph, err, "decode uv.lock")
	}
	if raw.Version != SupportedVersion {
		return nil, errors.New(errors.ErrCodeMalformedLockGraph, "unsupported uv.lock version %d (want %d)", raw.Version, SupportedVersion)
	}

	l := &Lock{
		Version:        raw.Version,
		Revision:       raw.Revision,
		RequiresPython: raw.RequiresPython,
		Manifest:       raw.Manifest,
		Packages:       make([]*Package, 0, len(raw.Packages)),
		byName:         make(map[string]*Package, len(raw.Packages)),
	}
	for _, rp := range raw.Packages {
		p, err := rp.build()
		if err != nil {
			return nil, err
		}
		key := requirement.Normalize(p.Name)
		if _, dup := l.byName[key]; dup {
			return nil, errors.New(errors.ErrCodeMalformedLockGraph, "package %q appears more than once (forked resolutions are not supported)", p.Name)
		}
		l.byName[key] = p
		l.Packages = append(l.Packages, p)
	}
	if err := l.validateEdges(); err != nil {
		return nil, err
	}
	return l, nil
}

// validateEdges rejects dependency edges that point outside the lock.
func (l *Lock) validateEdges() error {
	check := func(p *Package, deps []Dependency, where string) error {
		for _, d := range deps {
			if _, ok := l.Lookup(d.Name); !ok {
				return errors.New(errors.ErrCodeMalformedLockGraph, "package %q %s references %q, which is not in the lock", p.Name, where, d.Name)
			}
		}
		return nil
	}
	for _, p := range l.Packages {
		if err := check(p, p.Dependencies, "dependencies"); err != nil {
			return err
		}
		for _, extra := range sortedKeys(p.OptionalDependencies) {
			if err := check(p, p.OptionalDependencies[extra], "optional-dependencies."+extra); err != nil {
				return err
			}
		}
		for _, group := range sortedKeys(p.DevDependencies) {
			if err := check(p, p.DevDependencies[group], "dev-dependencies."+group); err != nil {
				return err
			}
		}
	}
	return nil
}

type lockFile struct {
	Version        int          `toml:"version"`
	Revision       int          `toml:"revision"`
	RequiresPython string       `toml:"requires-python"`
	Manifest       Manifest     `toml:"manifest"`
	Packages       []rawPackage `toml:"package"`
}

type rawSource struct {
	Registry  string `toml:"registry"`
	Editable  string `toml:"editable"`
	Virtual   string `toml:"virtual"`
	Directory string `toml:"directory"`
	Path      string `toml:"path"`
	Git       string `toml:"git"`
	URL       string `toml:"url"`
}

type rawPackage struct {
	Name                 string                  `toml:"name"`
	Version              string                  `toml:"version"`
	Source               rawSource               `toml:"source"`
	Dependencies         []Dependency            `toml:"dependencies"`
	OptionalDependencies map[string][]Dependency `toml:"optional-dependencies"`
	DevDependencies      map[string][]Dependency `toml:"dev-dependencies"`
	Sdist                *Artifact               `toml:"sdist"`
	Wheels               []Artifact              `toml:"wheels"`
	Metadata             Metadata                `toml:"metadata"`
}

func (rp rawPackage) build() (*Package, error) {
	if err := errors.ValidatePythonPackageName(rp.Name); err != nil {
		return nil, errors.Wrap(errors.ErrCodeMalformedLockGraph, err, "invalid package entry")
	}
	if rp.Version == "" {
		return nil, errors.New(errors.ErrCodeMalformedLockGraph, "package %q has no version", rp.Name)
	}

	p := &Package{
		Name:                 rp.Name,
		Version:              rp.Version,
		Dependencies:         rp.Dependencies,
		OptionalDependencies: normalizeKeys(rp.OptionalDependencies),
		DevDependencies:      rp.DevDependencies,
		Sdist:                rp.Sdist,
		Wheels:               rp.Wheels,
		Metadata:             rp.Metadata,
	}

	src := rp.Source
	kinds := 0
	for _, s := range []string{src.Registry, src.Editable, src.Virtual, src.Directory, src.Path, src.Git, src.URL} {
		if s != "" {
			kinds++
		}
	}
	if kinds != 1 {
		return nil, errors.New(errors.ErrCodeMalformedLockGraph, "package %q must have exactly one source, found %d", rp.Name, kinds)
	}

	switch {
	case src.Registry != "":
		p.Kind = KindRegistry
		p.Registry = src.Registry
	case src.Editable != "":
		p.Kind = KindWorkspace
		p.Path = src.Editable
		p.Editable = true
	case src.Virtual != "":
		p.Kind = KindWorkspace
		p.Path = src.Virtual
	case src.Directory != "":
		p.Kind = KindWorkspace
		p.Path = src.Directory
	case src.Path != "":
		p.Kind = KindWorkspace
		p.Path = src.Path
	default:
		return nil, errors.New(errors.ErrCodeMalformedLockGraph, "package %q has an unsupported git or url source", rp.Name)
	}

	if p.Kind == KindWorkspace && (p.Sdist != nil || len(p.Wheels) > 0) && src.Path == "" {
		return nil, errors.New(errors.ErrCodeMalformedLockGraph, "workspace package %q must not carry artifacts", rp.Name)
	}

	for _, h := range p.Hashes() {
		if err := errors.ValidateArtifactHash(h); err != nil {
			return nil, errors.Wrap(errors.ErrCodeMalformedLockGraph, err, "package %q", rp.Name)
		}
	}
	return p, nil
}

func normalizeKeys(m map[string][]Dependency) map[string][]Dependency {
	if len(m) == 0 {
		return m
	}
	out := make(map[string][]Dependency, len(m))
	for k, v := range m {
		key := requirement.Normalize(k)
		out[key] = append(out[key], v...)
	}
	return out
}

func sortedKeys(m map[string][]Dependency) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
