// Package classify partitions a uv lock graph into pipenv's "default" and
// "develop" groups.
//
// uv.lock records a flat package list and leaves group membership implicit.
// [Classify] recovers it by breadth-first traversal: first from the runtime
// dependencies declared in pyproject.toml, then from the selected dependency
// groups. A package reached by both traversals belongs to "default" only.
// Packages reached by neither are orphans; they are reported, never emitted.
//
// # Markers
//
// A root dependency keeps the marker written in its specifier. A transitive
// package takes the marker of the edge that first discovered it, or inherits
// the marker of the package it was discovered from when that edge is
// unmarked. The first discovery in breadth-first order wins; markers from
// later paths are not merged.
package classify

import (
	"slices"

	"github.com/matzehuels/uvburn/pkg/errors"
	"github.com/matzehuels/uvburn/pkg/graph"
	"github.com/matzehuels/uvburn/pkg/requirement"
	"github.com/matzehuels/uvburn/pkg/uvlock"
)

// Metadata keys stored on graph nodes and edges by [BuildGraph].
const (
	MetaName    = "name"    // node: package name as written in the lock
	MetaVersion = "version" // node: pinned version
	MetaKind    = "kind"    // node: "registry" or "workspace"
	MetaMarker  = "marker"  // edge: environment marker
	MetaExtras  = "extras"  // edge: extras requested on the target
	MetaExtra   = "extra"   // edge: only followed when the source's extra is active
	MetaGroup   = "group"   // edge: dev-dependency group of a workspace package
)

// Group names used in pipenv lock files.
const (
	GroupDefault = "default"
	GroupDevelop = "develop"
)

// Roots are the entry points of the traversal.
type Roots struct {
	// Project is the name of the project package itself. It is the origin
	// of the lock graph and is neither emitted nor reported as an orphan.
	Project string
	Runtime []requirement.Requirement
	Dev     []requirement.Requirement
}

// Member is a package assigned to a group.
type Member struct {
	Name    string
	Marker  string
	Package *uvlock.Package
}

// Result is a classified lock graph.
type Result struct {
	Root    string
	Default []Member
	Develop []Member
	Orphans []*uvlock.Package
	Cycles  []graph.Edge
	Graph   *graph.Graph
}

// Group returns the group a package was assigned to: GroupDefault,
// GroupDevelop, or "" for orphans, the root project and unknown names.
func (r *Result) Group(name string) string {
	key := requirement.Normalize(name)
	if slices.ContainsFunc(r.Default, func(m Member) bool { return requirement.Normalize(m.Name) == key }) {
		return GroupDefault
	}
	if slices.ContainsFunc(r.Develop, func(m Member) bool { return requirement.Normalize(m.Name) == key }) {
		return GroupDevelop
	}
	return ""
}

// BuildGraph builds the adjacency graph of a lock once. Node IDs are
// normalized package names in lock declaration order.
func BuildGraph(lock *uvlock.Lock) (*graph.Graph, error) {
	g := graph.New()
	for _, p := range lock.Packages {
		err := g.AddNode(graph.Node{
			ID: requirement.Normalize(p.Name),
			Meta: graph.Metadata{
				MetaName:    p.Name,
				MetaVersion: p.Version,
				MetaKind:    p.Kind.String(),
			},
		})
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "add package %q", p.Name)
		}
	}

	for _, p := range lock.Packages {
		from := requirement.Normalize(p.Name)
		add := func(deps []uvlock.Dependency, key, value string) error {
			for _, d := range deps {
				meta := graph.Metadata{MetaMarker: d.Marker, MetaExtras: normalizeAll(d.Extras)}
				if key != "" {
					meta[key] = value
				}
				if err := g.AddEdge(graph.Edge{From: from, To: requirement.Normalize(d.Name), Meta: meta}); err != nil {
					return errors.Wrap(errors.ErrCodeMalformedLockGraph, err, "package %q depends on %q", p.Name, d.Name)
				}
			}
			return nil
		}
		if err := add(p.Dependencies, "", ""); err != nil {
			return nil, err
		}
		for _, extra := range sortedKeys(p.OptionalDependencies) {
			if err := add(p.OptionalDependencies[extra], MetaExtra, extra); err != nil {
				return nil, err
			}
		}
		for _, group := range sortedKeys(p.DevDependencies) {
			if err := add(p.DevDependencies[group], MetaGroup, group); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}

// Classify computes group membership for every package in lock.
//
// A root name missing from the lock is a MALFORMED_LOCK_GRAPH error: the
// lock was not produced from this pyproject.toml.
func Classify(lock *uvlock.Lock, roots Roots) (*Result, error) {
	g, err := BuildGraph(lock)
	if err != nil {
		return nil, err
	}

	rootID := ""
	if roots.Project != "" {
		rootID = requirement.Normalize(roots.Project)
	}

	def, err := closure(g, roots.Runtime, "runtime")
	if err != nil {
		return nil, err
	}
	dev, err := closure(g, roots.Dev, "dev group")
	if err != nil {
		return nil, err
	}

	res := &Result{Root: rootID, Cycles: g.BackEdges(), Graph: g}
	for _, id := range def.order {
		if id == rootID {
			continue
		}
		p, _ := lock.Lookup(id)
		res.Default = append(res.Default, Member{Name: p.Name, Marker: def.markers[id], Package: p})
	}
	for _, id := range dev.order {
		if id == rootID || def.markers.has(id) {
			continue
		}
		p, _ := lock.Lookup(id)
		res.Develop = append(res.Develop, Member{Name: p.Name, Marker: dev.markers[id], Package: p})
	}
	for _, p := range lock.Packages {
		id := requirement.Normalize(p.Name)
		if id == rootID || def.markers.has(id) || dev.markers.has(id) {
			continue
		}
		res.Orphans = append(res.Orphans, p)
	}
	return res, nil
}

type markerSet map[string]string

func (m markerSet) has(id string) bool {
	_, ok := m[id]
	return ok
}

type traversal struct {
	order   []string
	markers markerSet
}

type visit struct {
	id     string
	extras []string
}

// closure walks g breadth-first from roots. Every package is expanded once;
// each of its extras is expanded once more, the first time it is requested,
// so a package first reached without extras still contributes its optional
// dependencies when a later edge asks for them.
func closure(g *graph.Graph, roots []requirement.Requirement, label string) (*traversal, error) {
	t := &traversal{markers: markerSet{}}
	expanded := make(map[string]bool)
	activated := make(map[string]bool)
	var queue []visit

	discover := func(id, marker string, extras []string) {
		if !t.markers.has(id) {
			t.markers[id] = marker
			t.order = append(t.order, id)
			queue = append(queue, visit{id: id, extras: extras})
			return
		}
		var fresh []string
		for _, e := range extras {
			if !activated[id+"["+e+"]"] {
				fresh = append(fresh, e)
			}
		}
		if len(fresh) > 0 {
			queue = append(queue, visit{id: id, extras: fresh})
		}
	}

	for _, r := range roots {
		id := r.Key()
		if _, ok := g.Node(id); !ok {
			return nil, errors.New(errors.ErrCodeMalformedLockGraph, "%s dependency %q is not in uv.lock", label, r.Name)
		}
		discover(id, r.Marker, r.Extras)
	}

	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]

		follow := func(e graph.Edge) {
			marker := e.Meta.String(MetaMarker)
			if marker == "" {
				marker = t.markers[v.id]
			}
			discover(e.To, marker, e.Meta.Strings(MetaExtras))
		}

		if !expanded[v.id] {
			expanded[v.id] = true
			for _, e := range g.OutEdges(v.id) {
				if e.Meta.String(MetaExtra) == "" && e.Meta.String(MetaGroup) == "" {
					follow(e)
				}
			}
		}
		for _, extra := range v.extras {
			key := v.id + "[" + extra + "]"
			if activated[key] {
				continue
			}
			activated[key] = true
			for _, e := range g.OutEdges(v.id) {
				if e.Meta.String(MetaExtra) == extra {
					follow(e)
				}
			}
		}
	}
	return t, nil
}

func normalizeAll(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = requirement.Normalize(n)
	}
	return out
}

func sortedKeys(m map[string][]uvlock.Dependency) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
