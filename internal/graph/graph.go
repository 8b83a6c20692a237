// Package graph provides loom's dependency graph: directed node-to-node build
// dependencies used to compute execution order and selection.
package graph

import (
	"encoding/gob"
	"fmt"
	"os"
	"sort"
)

// Graph represents a directed dependency graph.
// Keys are node unique ids, values are lists of dependencies (edges point to
// dependencies).
type Graph struct {
	Edges map[string][]string
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{Edges: make(map[string][]string)}
}

// AddNode ensures a node exists in the graph.
func (g *Graph) AddNode(id string) {
	if _, ok := g.Edges[id]; !ok {
		g.Edges[id] = nil
	}
}

// AddEdge records that node depends on dep. Both endpoints are created if
// absent.
func (g *Graph) AddEdge(node, dep string) {
	g.AddNode(dep)
	g.Edges[node] = append(g.Edges[node], dep)
}

// HasNode reports whether the graph contains id.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.Edges[id]
	return ok
}

// Nodes returns all node ids sorted by name.
func (g *Graph) Nodes() []string {
	nodes := make([]string, 0, len(g.Edges))
	for id := range g.Edges {
		nodes = append(nodes, id)
	}
	sort.Strings(nodes)
	return nodes
}

// Deps returns the direct dependencies of id.
func (g *Graph) Deps(id string) []string {
	return g.Edges[id]
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.Edges)
}

// Sort performs topological sort, returning nodes in dependency order.
// Dependencies appear before dependents in the result.
// Returns an error if a cycle is detected or a dependency is undefined.
//
// The nodes parameter specifies which nodes to sort. If nil, all nodes in the
// graph are sorted. When nodes is provided, only those nodes and their
// transitive dependencies are included.
func (g *Graph) Sort(nodes []string) ([]string, error) {
	if nodes == nil {
		nodes = g.Nodes()
	}

	var result []string
	visited := make(map[string]bool)
	inStack := make(map[string]bool)

	var visit func(id string) error
	visit = func(id string) error {
		if inStack[id] {
			return fmt.Errorf("circular dependency detected involving %q", id)
		}
		if visited[id] {
			return nil
		}

		deps, exists := g.Edges[id]
		if !exists {
			return fmt.Errorf("node %q not found in graph", id)
		}

		inStack[id] = true

		for _, dep := range deps {
			if err := visit(dep); err != nil {
				return err
			}
		}

		visited[id] = true
		inStack[id] = false
		result = append(result, id)

		return nil
	}

	for _, id := range nodes {
		if err := visit(id); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// Ancestors returns the transitive dependencies of id, not including id.
func (g *Graph) Ancestors(id string) []string {
	seen := make(map[string]bool)
	var walk func(string)
	walk = func(cur string) {
		for _, dep := range g.Edges[cur] {
			if !seen[dep] {
				seen[dep] = true
				walk(dep)
			}
		}
	}
	walk(id)
	return sortedKeys(seen)
}

// Descendants returns the transitive dependents of id, not including id.
func (g *Graph) Descendants(id string) []string {
	reverse := make(map[string][]string)
	for node, deps := range g.Edges {
		for _, dep := range deps {
			reverse[dep] = append(reverse[dep], node)
		}
	}

	seen := make(map[string]bool)
	var walk func(string)
	walk = func(cur string) {
		for _, dependent := range reverse[cur] {
			if !seen[dependent] {
				seen[dependent] = true
				walk(dependent)
			}
		}
	}
	walk(id)
	return sortedKeys(seen)
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// EncodeFile writes the graph to path in loom's native graph encoding.
func (g *Graph) EncodeFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create graph file: %w", err)
	}
	defer f.Close()

	if err := gob.NewEncoder(f).Encode(g); err != nil {
		return fmt.Errorf("encode graph: %w", err)
	}
	return nil
}

// DecodeFile reads a graph from path in loom's native graph encoding.
func DecodeFile(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph file: %w", err)
	}
	defer f.Close()

	var g Graph
	if err := gob.NewDecoder(f).Decode(&g); err != nil {
		return nil, fmt.Errorf("decode graph: %w", err)
	}
	if g.Edges == nil {
		g.Edges = make(map[string][]string)
	}
	return &g, nil
}
