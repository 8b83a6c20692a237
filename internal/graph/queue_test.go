package graph

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewQueue(t *testing.T) {
	t.Parallel()
	g := diamond()

	q, err := NewQueue(g, []string{"a", "b", "c", "d"})
	if err != nil {
		t.Fatalf("NewQueue() error = %v", err)
	}
	if q.Len() != 4 {
		t.Errorf("Len() = %d, want 4", q.Len())
	}

	want := [][]string{{"a"}, {"b", "c"}, {"d"}}
	if diff := cmp.Diff(want, q.Levels()); diff != "" {
		t.Errorf("Levels() mismatch (-want +got):\n%s", diff)
	}
}

func TestNewQueuePartialSelection(t *testing.T) {
	t.Parallel()
	g := diamond()

	// Selecting b and d only: the a and c dependencies are outside the
	// selection and assumed satisfied.
	q, err := NewQueue(g, []string{"b", "d"})
	if err != nil {
		t.Fatalf("NewQueue() error = %v", err)
	}
	want := [][]string{{"b"}, {"d"}}
	if diff := cmp.Diff(want, q.Levels()); diff != "" {
		t.Errorf("Levels() mismatch (-want +got):\n%s", diff)
	}
}

func TestNewQueueIndependentNodes(t *testing.T) {
	t.Parallel()
	g := diamond()

	// b and c have no edge between them, so they share a level.
	q, err := NewQueue(g, []string{"b", "c"})
	if err != nil {
		t.Fatalf("NewQueue() error = %v", err)
	}
	want := [][]string{{"b", "c"}}
	if diff := cmp.Diff(want, q.Levels()); diff != "" {
		t.Errorf("Levels() mismatch (-want +got):\n%s", diff)
	}
}

func TestNewQueueMissingNode(t *testing.T) {
	t.Parallel()
	g := linear()

	_, err := NewQueue(g, []string{"a", "missing"})
	if err == nil {
		t.Fatal("NewQueue() expected error, got nil")
	}
	if !strings.Contains(err.Error(), `"missing" not found`) {
		t.Errorf("error = %q, want node not found", err)
	}
}

func TestSelectedNodesCopy(t *testing.T) {
	t.Parallel()
	g := linear()

	q, err := NewQueue(g, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("NewQueue() error = %v", err)
	}
	nodes := q.SelectedNodes()
	nodes[0] = "mutated"
	if q.SelectedNodes()[0] == "mutated" {
		t.Error("SelectedNodes() returned internal slice")
	}
}
