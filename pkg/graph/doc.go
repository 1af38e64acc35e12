// Package graph provides the directed package graph that a lock file is
// classified on.
//
// # Overview
//
// A uv.lock is a flat list of packages whose dependency edges form a graph
// that may contain cycles (Python packages occasionally depend on each other
// through extras). This package stores such a graph with insertion-ordered
// nodes and edges so that every traversal, and therefore every generated
// lock file, is deterministic.
//
// # Basic Usage
//
//	g := graph.New()
//	g.AddNode(graph.Node{ID: "requests"})
//	g.AddNode(graph.Node{ID: "idna"})
//	g.AddEdge(graph.Edge{From: "requests", To: "idna"})
//
//	for _, e := range g.OutEdges("requests") {
//		fmt.Println(e.To) // idna
//	}
//
// [Graph.OutEdges] returns edges in the order they were added, which is the
// order the classifier walks them. [Graph.BackEdges] reports the edges that
// close cycles without modifying the graph.
//
// # Metadata
//
// Nodes and edges carry [Metadata] maps. The classifier stores the package
// version and kind on nodes, and the environment marker, requested extras
// and activating extra on edges.
package graph
