package graph

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func linear() *Graph {
	// c -> b -> a
	g := New()
	g.AddEdge("b", "a")
	g.AddEdge("c", "b")
	return g
}

func diamond() *Graph {
	// d depends on b and c, both depend on a
	g := New()
	g.AddEdge("b", "a")
	g.AddEdge("c", "a")
	g.AddEdge("d", "b")
	g.AddEdge("d", "c")
	return g
}

func TestSort(t *testing.T) {
	t.Parallel()
	g := diamond()

	order, err := g.Sort(nil)
	if err != nil {
		t.Fatalf("Sort() error = %v", err)
	}
	if len(order) != 4 {
		t.Fatalf("Sort() returned %d nodes, want 4", len(order))
	}

	pos := make(map[string]int)
	for i, id := range order {
		pos[id] = i
	}
	for node, deps := range g.Edges {
		for _, dep := range deps {
			if pos[dep] > pos[node] {
				t.Errorf("dependency %q sorted after dependent %q: %v", dep, node, order)
			}
		}
	}
}

func TestSortSubset(t *testing.T) {
	t.Parallel()
	g := diamond()

	order, err := g.Sort([]string{"b"})
	if err != nil {
		t.Fatalf("Sort() error = %v", err)
	}
	want := []string{"a", "b"}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Errorf("Sort() mismatch (-want +got):\n%s", diff)
	}
}

func TestSortCycle(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddEdge("a", "b")
	g.AddEdge("b", "a")

	_, err := g.Sort(nil)
	if err == nil {
		t.Fatal("Sort() expected error for cycle, got nil")
	}
	if !strings.Contains(err.Error(), "circular dependency") {
		t.Errorf("error = %q, want circular dependency", err)
	}
}

func TestSortMissingNode(t *testing.T) {
	t.Parallel()
	g := linear()

	_, err := g.Sort([]string{"z"})
	if err == nil {
		t.Fatal("Sort() expected error for missing node, got nil")
	}
	if !strings.Contains(err.Error(), `"z" not found`) {
		t.Errorf("error = %q, want node not found", err)
	}
}

func TestAncestorsDescendants(t *testing.T) {
	t.Parallel()
	g := diamond()

	if diff := cmp.Diff([]string{"a", "b", "c"}, g.Ancestors("d")); diff != "" {
		t.Errorf("Ancestors(d) mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"b", "c", "d"}, g.Descendants("a")); diff != "" {
		t.Errorf("Descendants(a) mismatch (-want +got):\n%s", diff)
	}
	if got := g.Ancestors("a"); len(got) != 0 {
		t.Errorf("Ancestors(a) = %v, want empty", got)
	}
}

func TestEncodeDecodeFile(t *testing.T) {
	t.Parallel()
	g := diamond()
	path := filepath.Join(t.TempDir(), "graph.gpickle")

	if err := g.EncodeFile(path); err != nil {
		t.Fatalf("EncodeFile() error = %v", err)
	}
	got, err := DecodeFile(path)
	if err != nil {
		t.Fatalf("DecodeFile() error = %v", err)
	}
	if diff := cmp.Diff(g.Edges, got.Edges, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeFileMissing(t *testing.T) {
	t.Parallel()
	_, err := DecodeFile(filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Fatal("DecodeFile() expected error for missing file, got nil")
	}
}
