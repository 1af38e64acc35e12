package graph_test

import (
	"fmt"

	"github.com/matzehuels/uvburn/pkg/graph"
)

func ExampleGraph_BackEdges() {
	// sphinx and its contrib plugins depend on each other
	g := graph.New()
	_ = g.AddNode(graph.Node{ID: "sphinx"})
	_ = g.AddNode(graph.Node{ID: "sphinxcontrib-applehelp"})
	_ = g.AddEdge(graph.Edge{From: "sphinx", To: "sphinxcontrib-applehelp"})
	_ = g.AddEdge(graph.Edge{From: "sphinxcontrib-applehelp", To: "sphinx"})

	for _, e := range g.BackEdges() {
		fmt.Printf("%s -> %s\n", e.From, e.To)
	}
	// Output:
	// sphinxcontrib-applehelp -> sphinx
}
