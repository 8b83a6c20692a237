package engine

import (
	"time"
)

// Status is a node's terminal execution status.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusSkipped Status = "skipped"
)

// NodeResult tracks execution of a single node.
type NodeResult struct {
	NodeID  string
	Status  Status
	Message string
	Elapsed time.Duration
}

// RunResult is the structured payload of one task invocation.
type RunResult struct {
	InvocationID string
	Command      string
	GeneratedAt  time.Time
	Elapsed      time.Duration
	Results      []NodeResult
	Output       []string // textual output for list/debug style tasks
}

func newRunResult(inv *Invocation, which string) *RunResult {
	return &RunResult{
		InvocationID: inv.ID.String(),
		Command:      which,
		GeneratedAt:  time.Now(),
	}
}

// Failed returns the results with an error status.
func (r *RunResult) Failed() []NodeResult {
	var out []NodeResult
	for _, nr := range r.Results {
		if nr.Status == StatusError {
			out = append(out, nr)
		}
	}
	return out
}

// Succeeded reports whether no node errored.
func (r *RunResult) Succeeded() bool {
	return len(r.Failed()) == 0
}
