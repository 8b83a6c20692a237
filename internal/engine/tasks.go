package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/dpinedaj/loom/internal/artifacts"
	"github.com/dpinedaj/loom/internal/errors"
	"github.com/dpinedaj/loom/internal/manifest"
)

// ---------------------------------------------------------------------------
// Graph-runnable family
// ---------------------------------------------------------------------------

// BuildTask runs models, seeds, snapshots, and tests in dependency order.
type BuildTask struct{ GraphRunnable }

func newBuildTask(inv *Invocation, rc *RuntimeConfig, opts TaskOptions) (Task, error) {
	t := &BuildTask{newGraphRunnable(inv, rc, "build", opts)}
	t.resourceFilter = opts.ResourceTypes
	if len(t.resourceFilter) == 0 {
		t.resourceFilter = []string{"model", "seed", "snapshot", "test"}
	}
	return t, nil
}

// RunTask runs models in dependency order.
type RunTask struct{ GraphRunnable }

func newRunTask(inv *Invocation, rc *RuntimeConfig, opts TaskOptions) (Task, error) {
	t := &RunTask{newGraphRunnable(inv, rc, "run", opts)}
	t.resourceFilter = []string{"model"}
	return t, nil
}

// SeedTask loads seed files.
type SeedTask struct{ GraphRunnable }

func newSeedTask(inv *Invocation, rc *RuntimeConfig, opts TaskOptions) (Task, error) {
	t := &SeedTask{newGraphRunnable(inv, rc, "seed", opts)}
	t.resourceFilter = []string{"seed"}
	return t, nil
}

// SnapshotTask executes snapshots.
type SnapshotTask struct{ GraphRunnable }

func newSnapshotTask(inv *Invocation, rc *RuntimeConfig, opts TaskOptions) (Task, error) {
	t := &SnapshotTask{newGraphRunnable(inv, rc, "snapshot", opts)}
	t.resourceFilter = []string{"snapshot"}
	return t, nil
}

// TestTask executes tests.
type TestTask struct{ GraphRunnable }

func newTestTask(inv *Invocation, rc *RuntimeConfig, opts TaskOptions) (Task, error) {
	t := &TestTask{newGraphRunnable(inv, rc, "test", opts)}
	t.resourceFilter = []string{"test"}
	return t, nil
}

// SourceFreshnessTask checks the freshness of source tables.
type SourceFreshnessTask struct{ GraphRunnable }

func newSourceFreshnessTask(inv *Invocation, rc *RuntimeConfig, opts TaskOptions) (Task, error) {
	t := &SourceFreshnessTask{newGraphRunnable(inv, rc, "source-freshness", opts)}
	t.resourceFilter = []string{"source"}
	return t, nil
}

// Run executes the freshness walk and optionally writes the results file.
func (t *SourceFreshnessTask) Run(ctx context.Context) (*RunResult, error) {
	res, err := t.GraphRunnable.Run(ctx)
	if err != nil || t.opts.FreshnessOutput == "" {
		return res, err
	}

	data, merr := json.MarshalIndent(res.Results, "", "  ")
	if merr != nil {
		return res, fmt.Errorf("encode freshness results: %w", merr)
	}
	if werr := os.WriteFile(t.opts.FreshnessOutput, data, 0o644); werr != nil {
		return res, fmt.Errorf("write freshness results: %w", werr)
	}
	return res, nil
}

// CompileTask walks the graph without executing and writes the compiled
// artifacts, producing the bundle later runs can reuse.
type CompileTask struct{ GraphRunnable }

func newCompileTask(inv *Invocation, rc *RuntimeConfig, opts TaskOptions) (Task, error) {
	t := &CompileTask{newGraphRunnable(inv, rc, "compile", opts)}
	t.resourceFilter = []string{"model", "seed", "snapshot", "test"}
	t.execNode = func(ctx context.Context, node manifest.Executable) error {
		return ctx.Err()
	}
	return t, nil
}

// Run compiles the project and serializes the graph and manifest pair.
func (t *CompileTask) Run(ctx context.Context) (*RunResult, error) {
	res, err := t.GraphRunnable.Run(ctx)
	if err != nil {
		return res, err
	}

	dir := t.rc.TargetDir()
	if err := artifacts.Write(dir, t.Graph, t.Manifest); err != nil {
		return res, err
	}
	res.Output = append(res.Output, "wrote compiled artifacts to "+dir)
	return res, nil
}

// ListTask enumerates the selected nodes without executing them.
type ListTask struct{ GraphRunnable }

func newListTask(inv *Invocation, rc *RuntimeConfig, opts TaskOptions) (Task, error) {
	t := &ListTask{newGraphRunnable(inv, rc, "list", opts)}
	t.resourceFilter = opts.ResourceTypes
	return t, nil
}

// Run initializes the selection and renders it in the configured output
// format.
func (t *ListTask) Run(ctx context.Context) (*RunResult, error) {
	if err := t.RuntimeInitialize(); err != nil {
		return nil, err
	}

	res := newRunResult(t.inv, t.which)
	start := time.Now()

	for _, node := range t.FlattenedNodes() {
		line, err := t.formatNode(node)
		if err != nil {
			return nil, err
		}
		res.Output = append(res.Output, line)
	}

	res.Elapsed = time.Since(start)
	return res, nil
}

func (t *ListTask) formatNode(node manifest.Executable) (string, error) {
	switch t.opts.OutputFormat {
	case "name":
		return node.Label(), nil
	case "path":
		if n, ok := node.(*manifest.Node); ok {
			return n.Path, nil
		}
		return node.ID(), nil
	case "json":
		return t.formatJSON(node)
	default: // selector
		return node.ID(), nil
	}
}

func (t *ListTask) formatJSON(node manifest.Executable) (string, error) {
	full := map[string]interface{}{
		"unique_id":     node.ID(),
		"name":          node.Label(),
		"resource_type": node.Type(),
	}
	if n, ok := node.(*manifest.Node); ok {
		full["path"] = n.Path
		full["materialized"] = n.Materialized
		full["tags"] = n.Tags
		full["depends_on"] = n.DependsOn
	}

	if len(t.opts.OutputKeys) > 0 {
		trimmed := make(map[string]interface{}, len(t.opts.OutputKeys))
		for _, key := range t.opts.OutputKeys {
			if v, ok := full[key]; ok {
				trimmed[key] = v
			}
		}
		full = trimmed
	}

	data, err := json.Marshal(full)
	if err != nil {
		return "", fmt.Errorf("encode list output: %w", err)
	}
	return string(data), nil
}

// ---------------------------------------------------------------------------
// Remaining commands
// ---------------------------------------------------------------------------

// CleanTask removes the project's clean targets.
type CleanTask struct {
	inv  *Invocation
	rc   *RuntimeConfig
	opts TaskOptions
}

func newCleanTask(inv *Invocation, rc *RuntimeConfig, opts TaskOptions) (Task, error) {
	return &CleanTask{inv: inv, rc: rc, opts: opts}, nil
}

func (t *CleanTask) Which() string { return "clean" }

func (t *CleanTask) Run(ctx context.Context) (*RunResult, error) {
	res := newRunResult(t.inv, t.Which())
	start := time.Now()

	for _, target := range t.rc.CleanTargets {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		dir := filepath.Join(t.rc.ProjectDir, target)
		if t.opts.ParseOnly {
			res.Output = append(res.Output, "would remove "+dir)
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			return res, errors.Wrap(err, "failed to clean "+dir)
		}
		res.Output = append(res.Output, "removed "+dir)
	}

	res.Elapsed = time.Since(start)
	return res, nil
}

func (t *CleanTask) InterpretResults(res *RunResult) bool { return res != nil }

// DebugTask reports on the health of the project setup.
type DebugTask struct {
	inv  *Invocation
	rc   *RuntimeConfig
	opts TaskOptions
}

func newDebugTask(inv *Invocation, rc *RuntimeConfig, opts TaskOptions) (Task, error) {
	return &DebugTask{inv: inv, rc: rc, opts: opts}, nil
}

func (t *DebugTask) Which() string { return "debug" }

func (t *DebugTask) Run(ctx context.Context) (*RunResult, error) {
	res := newRunResult(t.inv, t.Which())
	start := time.Now()
	titleCase := cases.Title(language.English)

	if t.opts.ConfigDir {
		res.Output = append(res.Output,
			"project dir: "+t.rc.ProjectDir,
			"profiles dir: "+t.rc.ProfilesDir,
		)
		res.Elapsed = time.Since(start)
		return res, nil
	}

	checks := []struct {
		name string
		run  func() error
	}{
		{"project file", func() error {
			_, err := os.Stat(filepath.Join(t.rc.ProjectDir, ProjectFileName))
			return err
		}},
		{"profiles file", func() error {
			_, err := os.Stat(filepath.Join(t.rc.ProfilesDir, ProfilesFileName))
			return err
		}},
		{"adapter connection", func() error {
			if err := t.inv.Adapters.Register(t.rc); err != nil {
				return err
			}
			return t.inv.Adapters.Close()
		}},
	}

	for _, check := range checks {
		status := StatusSuccess
		message := "ok"
		if err := check.run(); err != nil {
			status = StatusError
			message = err.Error()
		}
		res.Results = append(res.Results, NodeResult{
			NodeID:  check.name,
			Status:  status,
			Message: message,
		})
		res.Output = append(res.Output,
			fmt.Sprintf("%s: %s", titleCase.String(check.name), message))
	}

	res.Elapsed = time.Since(start)
	return res, nil
}

func (t *DebugTask) InterpretResults(res *RunResult) bool {
	return res != nil && res.Succeeded()
}

// DepsTask installs the project's external dependencies.
type DepsTask struct {
	inv *Invocation
	rc  *RuntimeConfig
}

func newDepsTask(inv *Invocation, rc *RuntimeConfig, opts TaskOptions) (Task, error) {
	return &DepsTask{inv: inv, rc: rc}, nil
}

func (t *DepsTask) Which() string { return "deps" }

func (t *DepsTask) Run(ctx context.Context) (*RunResult, error) {
	res := newRunResult(t.inv, t.Which())
	start := time.Now()

	for _, pkg := range t.rc.Packages {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := installPackage(t.rc, pkg); err != nil {
			return res, err
		}
		res.Output = append(res.Output,
			fmt.Sprintf("installed %s %s", pkg.Name, pkg.Version))
	}

	res.Elapsed = time.Since(start)
	return res, nil
}

func (t *DepsTask) InterpretResults(res *RunResult) bool { return res != nil }

func installPackage(rc *RuntimeConfig, pkg PackageSpec) error {
	dir := filepath.Join(rc.PackagesDir(), pkg.Name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "failed to install package "+pkg.Name)
	}
	data, err := yaml.Marshal(pkg)
	if err != nil {
		return errors.Wrap(err, "failed to encode package spec "+pkg.Name)
	}
	if err := os.WriteFile(filepath.Join(dir, "package.yml"), data, 0o644); err != nil {
		return errors.Wrap(err, "failed to install package "+pkg.Name)
	}
	return nil
}

// ParseTask parses the project and optionally writes its artifacts.
type ParseTask struct {
	inv  *Invocation
	rc   *RuntimeConfig
	opts TaskOptions
}

func newParseTask(inv *Invocation, rc *RuntimeConfig, opts TaskOptions) (Task, error) {
	return &ParseTask{inv: inv, rc: rc, opts: opts}, nil
}

func (t *ParseTask) Which() string { return "parse" }

func (t *ParseTask) Run(ctx context.Context) (*RunResult, error) {
	res := newRunResult(t.inv, t.Which())
	start := time.Now()

	m, g, err := parseProject(t.inv, t.rc)
	if err != nil {
		return nil, err
	}
	res.Output = append(res.Output,
		fmt.Sprintf("parsed %d nodes, %d sources", len(m.Nodes), len(m.Sources)))

	switch {
	case t.opts.Compile:
		if err := artifacts.Write(t.rc.TargetDir(), g, m); err != nil {
			return res, err
		}
	case t.opts.WriteManifest:
		if err := os.MkdirAll(t.rc.TargetDir(), 0o755); err != nil {
			return res, errors.Wrap(err, "failed to create target dir")
		}
		path := filepath.Join(t.rc.TargetDir(), artifacts.ManifestFile)
		if err := m.WriteFile(path); err != nil {
			return res, err
		}
	}

	res.Elapsed = time.Since(start)
	return res, nil
}

func (t *ParseTask) InterpretResults(res *RunResult) bool { return res != nil }

// RunOperationTask invokes a single macro through the active adapter.
type RunOperationTask struct {
	inv  *Invocation
	rc   *RuntimeConfig
	opts TaskOptions
}

func newRunOperationTask(inv *Invocation, rc *RuntimeConfig, opts TaskOptions) (Task, error) {
	if opts.Macro == "" {
		return nil, errors.Validation("run-operation requires a macro name")
	}
	return &RunOperationTask{inv: inv, rc: rc, opts: opts}, nil
}

func (t *RunOperationTask) Which() string { return "run-operation" }

func (t *RunOperationTask) Run(ctx context.Context) (*RunResult, error) {
	res := newRunResult(t.inv, t.Which())
	start := time.Now()

	m, _, err := parseProject(t.inv, t.rc)
	if err != nil {
		return nil, err
	}

	macro, err := m.FindMacro(t.opts.Macro)
	if err != nil {
		return nil, err
	}

	args := map[string]interface{}{}
	if t.opts.Args != "" {
		if err := json.Unmarshal([]byte(t.opts.Args), &args); err != nil {
			return nil, errors.Validationf("args is not a JSON object: %v", err)
		}
	}

	ad, err := t.inv.Adapters.Active()
	if err != nil {
		return nil, err
	}

	nr := NodeResult{NodeID: macro.UniqueID, Status: StatusSuccess}
	if err := ad.RunOperation(ctx, macro.Name, args); err != nil {
		nr.Status = StatusError
		nr.Message = err.Error()
	}
	nr.Elapsed = time.Since(start)
	res.Results = append(res.Results, nr)
	res.Elapsed = time.Since(start)
	return res, nil
}

func (t *RunOperationTask) InterpretResults(res *RunResult) bool {
	return res != nil && res.Succeeded()
}
