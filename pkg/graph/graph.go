package graph

import (
	"errors"
	"slices"
)

var (
	// ErrInvalidNodeID is returned by [Graph.AddNode] when the node ID is
	// empty.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [Graph.AddNode] when a node with the
	// same ID already exists.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownSourceNode is returned by [Graph.AddEdge] when the From node
	// does not exist.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is returned by [Graph.AddEdge] when the To node
	// does not exist.
	ErrUnknownTargetNode = errors.New("unknown target node")
)

// Metadata stores arbitrary key-value pairs attached to nodes or edges.
// Metadata maps are never nil after insertion into a [Graph].
type Metadata map[string]any

// String returns the string value stored under key, or "" if the key is
// missing or holds another type.
func (m Metadata) String(key string) string {
	s, _ := m[key].(string)
	return s
}

// Strings returns the string slice stored under key, or nil.
func (m Metadata) Strings(key string) []string {
	s, _ := m[key].([]string)
	return s
}

// Node is a vertex of the graph.
type Node struct {
	ID   string   // Unique identifier
	Meta Metadata // Arbitrary key-value metadata (never nil after AddNode)
}

// Edge is a directed connection between two nodes.
type Edge struct {
	From string   // Source node ID
	To   string   // Target node ID
	Meta Metadata // Arbitrary key-value metadata (never nil after AddEdge)
}

// Graph is a directed graph that may contain cycles. Nodes and edges are kept
// in insertion order so every traversal is deterministic.
//
// The zero value is not usable; use New. Graph is not safe for concurrent
// mutation, but concurrent reads of a fully built graph are fine.
type Graph struct {
	order    []string
	nodes    map[string]*Node
	edges    []Edge
	outgoing map[string][]int // nodeID -> indices into edges
	incoming map[string][]string
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes:    make(map[string]*Node),
		outgoing: make(map[string][]int),
		incoming: make(map[string][]string),
	}
}

// AddNode adds a node. Returns ErrInvalidNodeID if the ID is empty or
// ErrDuplicateNodeID if it is already present.
func (g *Graph) AddNode(n Node) error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	if _, exists := g.nodes[n.ID]; exists {
		return ErrDuplicateNodeID
	}
	if n.Meta == nil {
		n.Meta = Metadata{}
	}
	g.nodes[n.ID] = &n
	g.order = append(g.order, n.ID)
	return nil
}

// AddEdge adds a directed edge between two existing nodes. Parallel edges
// and self-loops are allowed; they occur naturally when a package depends on
// another both directly and through an extra.
func (g *Graph) AddEdge(e Edge) error {
	if _, ok := g.nodes[e.From]; !ok {
		return ErrUnknownSourceNode
	}
	if _, ok := g.nodes[e.To]; !ok {
		return ErrUnknownTargetNode
	}
	if e.Meta == nil {
		e.Meta = Metadata{}
	}
	g.outgoing[e.From] = append(g.outgoing[e.From], len(g.edges))
	g.incoming[e.To] = append(g.incoming[e.To], e.From)
	g.edges = append(g.edges, e)
	return nil
}

// Node returns the node with the given ID.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	nodes := make([]*Node, len(g.order))
	for i, id := range g.order {
		nodes[i] = g.nodes[id]
	}
	return nodes
}

// Edges returns a copy of all edges in insertion order.
func (g *Graph) Edges() []Edge { return slices.Clone(g.edges) }

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// OutEdges returns the edges leaving id, in insertion order.
func (g *Graph) OutEdges(id string) []Edge {
	idx := g.outgoing[id]
	if len(idx) == 0 {
		return nil
	}
	out := make([]Edge, len(idx))
	for i, j := range idx {
		out[i] = g.edges[j]
	}
	return out
}

// Sources returns nodes with no incoming edges, in insertion order.
func (g *Graph) Sources() []*Node {
	var sources []*Node
	for _, id := range g.order {
		if len(g.incoming[id]) == 0 {
			sources = append(sources, g.nodes[id])
		}
	}
	return sources
}

// BackEdges returns the edges that close a directed cycle, found by a
// depth-first search with white/gray/black coloring. The search starts from
// the sources and then from any node left unvisited, both in insertion order,
// so the result is deterministic. The search is iterative and the graph is
// not modified.
func (g *Graph) BackEdges() []Edge {
	const (
		white = iota
		gray
		black
	)

	color := make(map[string]int, len(g.nodes))
	var back []Edge

	type frame struct {
		id   string
		next int // index into g.outgoing[id]
	}
	var stack []frame

	visit := func(root string) {
		color[root] = gray
		stack = append(stack[:0], frame{id: root})
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			out := g.outgoing[top.id]
			if top.next == len(out) {
				color[top.id] = black
				stack = stack[:len(stack)-1]
				continue
			}
			e := g.edges[out[top.next]]
			top.next++
			switch color[e.To] {
			case white:
				color[e.To] = gray
				stack = append(stack, frame{id: e.To})
			case gray:
				back = append(back, e)
			}
		}
	}

	for _, n := range g.Sources() {
		if color[n.ID] == white {
			visit(n.ID)
		}
	}
	for _, id := range g.order {
		if color[id] == white {
			visit(id)
		}
	}
	return back
}
