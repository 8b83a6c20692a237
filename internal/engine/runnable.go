package engine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dpinedaj/loom/internal/artifacts"
	"github.com/dpinedaj/loom/internal/errors"
	"github.com/dpinedaj/loom/internal/graph"
	"github.com/dpinedaj/loom/internal/manifest"
	"github.com/dpinedaj/loom/internal/telemetry"
)

// Initializer is a runtime-initialization strategy for graph-runnable tasks.
// It must leave the task's graph, manifest, queue, flattened node list, and
// node count populated; everything after it depends on that state.
type Initializer interface {
	Initialize(t *GraphRunnable) error
}

// ParseInitializer parses the project from source and compiles the graph.
// This is the default strategy.
type ParseInitializer struct{}

// Initialize implements Initializer.
func (ParseInitializer) Initialize(t *GraphRunnable) error {
	m, g, err := parseProject(t.inv, t.rc)
	if err != nil {
		return err
	}
	t.Manifest = m
	t.Graph = g
	return t.finishInitialize()
}

// BundleInitializer loads a previously serialized graph and manifest instead
// of parsing the project, then performs the identical post-parse steps.
type BundleInitializer struct {
	Bundle artifacts.Bundle
}

// Initialize implements Initializer.
func (b BundleInitializer) Initialize(t *GraphRunnable) error {
	g, err := b.Bundle.LoadGraph()
	if err != nil {
		return err
	}
	m, err := b.Bundle.LoadManifest()
	if err != nil {
		return err
	}
	t.Graph = g
	t.Manifest = m
	return t.finishInitialize()
}

// GraphRunnable is the shared behaviour of commands that parse a project,
// build a dependency graph, and execute against a node selection.
type GraphRunnable struct {
	inv   *Invocation
	rc    *RuntimeConfig
	which string
	opts  TaskOptions

	init Initializer

	// resourceFilter restricts selection to the given resource types.
	// Empty means no restriction.
	resourceFilter []string

	// execNode overrides per-node execution. Nil means execute through the
	// active adapter. A nil-op func makes the run a no-execution walk
	// (compile, list).
	execNode func(ctx context.Context, node manifest.Executable) error

	Graph     *graph.Graph
	Manifest  *manifest.Manifest
	queue     *graph.Queue
	flattened []manifest.Executable
	numNodes  int
}

func newGraphRunnable(inv *Invocation, rc *RuntimeConfig, which string, opts TaskOptions) GraphRunnable {
	return GraphRunnable{
		inv:   inv,
		rc:    rc,
		which: which,
		opts:  opts,
		init:  ParseInitializer{},
	}
}

// Which returns the task's command name.
func (t *GraphRunnable) Which() string { return t.which }

// SetInitializer selects the runtime-initialization strategy. It must be
// called before Run.
func (t *GraphRunnable) SetInitializer(init Initializer) {
	t.init = init
}

// graphRunnable marks the family of patchable tasks and hands out the
// embedded base. Promoted through embedding by every graph-runnable task.
func (t *GraphRunnable) graphRunnable() *GraphRunnable { return t }

// Patchable is implemented by tasks of the graph-runnable family.
type Patchable interface {
	graphRunnable() *GraphRunnable
}

// AsGraphRunnable returns the graph-runnable base of a task, or false if the
// task is not of that family.
func AsGraphRunnable(task Task) (*GraphRunnable, bool) {
	p, ok := task.(Patchable)
	if !ok {
		return nil, false
	}
	return p.graphRunnable(), true
}

// RuntimeInitialize runs the selected initialization strategy.
func (t *GraphRunnable) RuntimeInitialize() error {
	return t.init.Initialize(t)
}

// finishInitialize is the post-parse portion of runtime initialization, shared
// by every strategy: derive the execution queue from the graph, flatten the
// selected identifiers into concrete nodes, and recompute the progress count.
func (t *GraphRunnable) finishInitialize() error {
	selected, err := t.selectNodes()
	if err != nil {
		return err
	}

	q, err := graph.NewQueue(t.Graph, selected)
	if err != nil {
		return err
	}
	t.queue = q

	t.flattened = t.flattened[:0]
	for _, uid := range q.SelectedNodes() {
		if node, ok := t.Manifest.Nodes[uid]; ok {
			t.flattened = append(t.flattened, node)
		} else if src, ok := t.Manifest.Sources[uid]; ok {
			t.flattened = append(t.flattened, src)
		} else {
			return errors.Consistencyf(
				"node selection returned %q, expected a node or a source", uid)
		}
	}

	t.numNodes = 0
	for _, n := range t.flattened {
		if !n.IsEphemeral() {
			t.numNodes++
		}
	}

	return nil
}

// Queue returns the derived node-execution queue.
func (t *GraphRunnable) Queue() *graph.Queue { return t.queue }

// FlattenedNodes returns the selected nodes in execution order.
func (t *GraphRunnable) FlattenedNodes() []manifest.Executable {
	return t.flattened
}

// NumNodes returns the count of selected non-ephemeral nodes, used for
// progress reporting.
func (t *GraphRunnable) NumNodes() int { return t.numNodes }

// Run initializes the task and executes the queued nodes level by level,
// bounded by the effective thread count.
func (t *GraphRunnable) Run(ctx context.Context) (*RunResult, error) {
	if err := t.RuntimeInitialize(); err != nil {
		return nil, err
	}

	exec := t.execNode
	if exec == nil {
		ad, err := t.inv.Adapters.Active()
		if err != nil {
			return nil, err
		}
		execOpts := ExecOptions{
			FullRefresh:   t.opts.FullRefresh,
			StoreFailures: t.opts.StoreFailures,
		}
		exec = func(ctx context.Context, node manifest.Executable) error {
			return ad.ExecNode(ctx, node, execOpts)
		}
	}

	result := newRunResult(t.inv, t.which)
	start := time.Now()

	byID := make(map[string]manifest.Executable, len(t.flattened))
	for _, n := range t.flattened {
		byID[n.ID()] = n
	}

	t.inv.Logger.Info("running nodes",
		zap.String("command", t.which), zap.Int("nodes", t.numNodes))

	var mu sync.Mutex
	failFast := t.inv.Flags.FailFast

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

levels:
	for _, level := range t.queue.Levels() {
		g, gctx := errgroup.WithContext(runCtx)
		g.SetLimit(t.inv.Flags.EffectiveThreads())

		for _, uid := range level {
			node := byID[uid]
			if node.IsEphemeral() {
				mu.Lock()
				result.Results = append(result.Results, NodeResult{
					NodeID: uid,
					Status: StatusSkipped,
				})
				mu.Unlock()
				continue
			}

			g.Go(func() error {
				nodeStart := time.Now()
				err := exec(gctx, node)

				nr := NodeResult{
					NodeID:  uid,
					Status:  StatusSuccess,
					Elapsed: time.Since(nodeStart),
				}
				if err != nil {
					nr.Status = StatusError
					nr.Message = err.Error()
				}
				telemetry.NodesExecuted.WithLabelValues(string(nr.Status)).Inc()

				mu.Lock()
				result.Results = append(result.Results, nr)
				mu.Unlock()

				if err != nil && failFast {
					return err
				}
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			// Fail-fast: stop scheduling further levels; the failure is
			// recorded in the results, not returned.
			break levels
		}
		if runCtx.Err() != nil {
			return result, runCtx.Err()
		}
	}

	result.Elapsed = time.Since(start)
	return result, nil
}

// InterpretResults reports whether a run result counts as success.
func (t *GraphRunnable) InterpretResults(res *RunResult) bool {
	return res != nil && res.Succeeded()
}
