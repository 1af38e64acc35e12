package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/uvburn/pkg/classify"
	"github.com/matzehuels/uvburn/pkg/graph"
)

// ReadJSON decodes a JSON report from r.
//
// ReadJSON returns an error if:
//   - The JSON is malformed or invalid
//   - A node has an empty or duplicate ID
//   - An edge, orphan or cycle references an unknown node ID
//
// Errors are wrapped with context describing which node or edge caused
// the problem. Use errors.Is to check for specific graph errors.
// ReadJSON does not close r.
func ReadJSON(r io.Reader) (*Report, error) {
	var rep Report
	if err := json.NewDecoder(r).Decode(&rep); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	g, err := rep.Graph()
	if err != nil {
		return nil, err
	}
	for _, id := range rep.Orphans {
		if _, ok := g.Node(id); !ok {
			return nil, fmt.Errorf("orphan %s: %w", id, graph.ErrUnknownTargetNode)
		}
	}
	for _, e := range rep.Cycles {
		if _, ok := g.Node(e.From); !ok {
			return nil, fmt.Errorf("cycle %s->%s: %w", e.From, e.To, graph.ErrUnknownSourceNode)
		}
		if _, ok := g.Node(e.To); !ok {
			return nil, fmt.Errorf("cycle %s->%s: %w", e.From, e.To, graph.ErrUnknownTargetNode)
		}
	}
	return &rep, nil
}

// Graph rebuilds the lock graph described by the report, with the same
// metadata keys [classify.BuildGraph] attaches.
func (r *Report) Graph() (*graph.Graph, error) {
	g := graph.New()
	for _, n := range r.Nodes {
		err := g.AddNode(graph.Node{ID: n.ID, Meta: graph.Metadata{
			classify.MetaName:    n.Name,
			classify.MetaVersion: n.Version,
			classify.MetaKind:    n.Kind,
		}})
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", n.ID, err)
		}
	}
	for _, e := range r.Edges {
		meta := graph.Metadata{classify.MetaMarker: e.Marker, classify.MetaExtras: e.Extras}
		if e.Extra != "" {
			meta[classify.MetaExtra] = e.Extra
		}
		if e.Group != "" {
			meta[classify.MetaGroup] = e.Group
		}
		if err := g.AddEdge(graph.Edge{From: e.From, To: e.To, Meta: meta}); err != nil {
			return nil, fmt.Errorf("edge %s->%s: %w", e.From, e.To, err)
		}
	}
	return g, nil
}

// Group returns the IDs of the nodes assigned to group, in lock order.
func (r *Report) Group(group string) []string {
	var out []string
	for _, n := range r.Nodes {
		if n.Group == group {
			out = append(out, n.ID)
		}
	}
	return out
}

// ImportJSON reads a JSON report file at path.
//
// ImportJSON returns the same validation errors as [ReadJSON], wrapped with
// the file path for context.
func ImportJSON(path string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	rep, err := ReadJSON(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rep, nil
}
