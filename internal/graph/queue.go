package graph

import (
	"fmt"
	"sort"
)

// Queue is a node-execution queue: the selected subset of a graph arranged in
// dependency order and grouped into levels that may execute concurrently.
type Queue struct {
	order  []string
	levels [][]string
}

// NewQueue builds an execution queue over the selected node ids. Ordering
// respects only edges between selected nodes; dependencies outside the
// selection are assumed satisfied. Returns an error if the selection contains
// a cycle or a node absent from the graph.
func NewQueue(g *Graph, selected []string) (*Queue, error) {
	keep := make(map[string]bool, len(selected))
	for _, id := range selected {
		if !g.HasNode(id) {
			return nil, fmt.Errorf("node %q not found in graph", id)
		}
		keep[id] = true
	}

	// Restrict the graph to the selection so Sort does not pull in
	// unselected transitive dependencies.
	sub := New()
	for _, id := range selected {
		sub.AddNode(id)
		for _, dep := range g.Deps(id) {
			if keep[dep] {
				sub.AddEdge(id, dep)
			}
		}
	}

	ids := make([]string, len(selected))
	copy(ids, selected)
	sort.Strings(ids)

	order, err := sub.Sort(ids)
	if err != nil {
		return nil, err
	}

	// Dependency levels: a node's level is one past its deepest selected
	// dependency. Nodes on the same level have no edges between them.
	level := make(map[string]int, len(order))
	maxLevel := 0
	for _, id := range order {
		l := 0
		for _, dep := range sub.Deps(id) {
			if level[dep]+1 > l {
				l = level[dep] + 1
			}
		}
		level[id] = l
		if l > maxLevel {
			maxLevel = l
		}
	}

	levels := make([][]string, maxLevel+1)
	for _, id := range order {
		levels[level[id]] = append(levels[level[id]], id)
	}

	return &Queue{order: order, levels: levels}, nil
}

// SelectedNodes returns the queued node ids in dependency order.
func (q *Queue) SelectedNodes() []string {
	out := make([]string, len(q.order))
	copy(out, q.order)
	return out
}

// Levels returns the queued node ids grouped into dependency levels. All
// nodes in one level may run concurrently once the previous level completed.
func (q *Queue) Levels() [][]string {
	return q.levels
}

// Len returns the number of queued nodes.
func (q *Queue) Len() int {
	return len(q.order)
}
