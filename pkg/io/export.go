package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/uvburn/pkg/classify"
	"github.com/matzehuels/uvburn/pkg/graph"
	"github.com/matzehuels/uvburn/pkg/requirement"
)

// Report is the serialized form of a [classify.Result].
type Report struct {
	Root    string   `json:"root,omitempty"`
	Nodes   []Node   `json:"nodes"`
	Edges   []Edge   `json:"edges"`
	Orphans []string `json:"orphans"`
	Cycles  []Edge   `json:"cycles"`
}

// Node is one package of the lock graph.
type Node struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Version string `json:"version"`
	Kind    string `json:"kind"`
	Group   string `json:"group,omitempty"`
	Marker  string `json:"marker,omitempty"`
}

// Edge is one dependency of the lock graph.
type Edge struct {
	From   string   `json:"from"`
	To     string   `json:"to"`
	Marker string   `json:"marker,omitempty"`
	Extras []string `json:"extras,omitempty"`
	Extra  string   `json:"extra,omitempty"`
	Group  string   `json:"group,omitempty"`
}

// NewReport flattens a classification into a Report.
func NewReport(res *classify.Result) *Report {
	markers := make(map[string]string, len(res.Default)+len(res.Develop))
	for _, m := range res.Default {
		markers[requirement.Normalize(m.Name)] = m.Marker
	}
	for _, m := range res.Develop {
		markers[requirement.Normalize(m.Name)] = m.Marker
	}

	out := &Report{
		Root:    res.Root,
		Nodes:   make([]Node, 0, res.Graph.NodeCount()),
		Edges:   make([]Edge, 0, res.Graph.EdgeCount()),
		Orphans: make([]string, 0, len(res.Orphans)),
		Cycles:  make([]Edge, 0, len(res.Cycles)),
	}
	for _, n := range res.Graph.Nodes() {
		out.Nodes = append(out.Nodes, Node{
			ID:      n.ID,
			Name:    n.Meta.String(classify.MetaName),
			Version: n.Meta.String(classify.MetaVersion),
			Kind:    n.Meta.String(classify.MetaKind),
			Group:   res.Group(n.ID),
			Marker:  markers[n.ID],
		})
	}
	for _, e := range res.Graph.Edges() {
		out.Edges = append(out.Edges, edgeOf(e))
	}
	for _, p := range res.Orphans {
		out.Orphans = append(out.Orphans, requirement.Normalize(p.Name))
	}
	for _, e := range res.Cycles {
		out.Cycles = append(out.Cycles, Edge{From: e.From, To: e.To})
	}
	return out
}

func edgeOf(e graph.Edge) Edge {
	return Edge{
		From:   e.From,
		To:     e.To,
		Marker: e.Meta.String(classify.MetaMarker),
		Extras: e.Meta.Strings(classify.MetaExtras),
		Extra:  e.Meta.String(classify.MetaExtra),
		Group:  e.Meta.String(classify.MetaGroup),
	}
}

// WriteJSON encodes the classification as a JSON report and writes it to w.
// The output can be re-imported with [ReadJSON].
func WriteJSON(res *classify.Result, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewReport(res)); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportJSON writes the report to a JSON file at path.
// This is a convenience wrapper around [WriteJSON] for file-based output.
func ExportJSON(res *classify.Result, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteJSON(res, f)
}
