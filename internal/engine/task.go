package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/dpinedaj/loom/internal/errors"
	"github.com/dpinedaj/loom/internal/logging"
)

// Task is one executable loom command.
type Task interface {
	Which() string
	Run(ctx context.Context) (*RunResult, error)
	InterpretResults(*RunResult) bool
}

// TaskOptions carries the command-specific options a task is constructed
// with. Unused fields are ignored by tasks that do not consume them.
type TaskOptions struct {
	Select        []string
	Exclude       []string
	Models        []string
	Selectors     []string
	ResourceTypes []string

	FullRefresh   bool
	StoreFailures bool
	Show          bool

	IndirectSelection string

	OutputFormat string
	OutputKeys   []string

	Macro string
	Args  string // canonical JSON object

	ParseOnly     bool
	Compile       bool
	WriteManifest bool
	ConfigDir     bool

	FreshnessOutput string
}

// TaskType describes one registered command: its name, whether it belongs to
// the graph-runnable family, its pre-initialization hook, and its constructor.
type TaskType struct {
	Which         string
	GraphRunnable bool
	PreInit       func(inv *Invocation)
	New           func(inv *Invocation, rc *RuntimeConfig, opts TaskOptions) (Task, error)
}

// preInitLogging reconfigures the process logger from the invocation's flag
// state. Every task type runs it before construction.
func preInitLogging(inv *Invocation) {
	level := "info"
	if inv.Flags.Debug {
		level = "debug"
	}
	logging.Configure(logging.Options{Level: level, Format: inv.Flags.LogFormat})
	inv.Logger = logging.L().With(zap.String("invocation_id", inv.ID.String()))
}

var taskTypes = map[string]TaskType{
	"build":            {Which: "build", GraphRunnable: true, PreInit: preInitLogging, New: newBuildTask},
	"clean":            {Which: "clean", PreInit: preInitLogging, New: newCleanTask},
	"compile":          {Which: "compile", GraphRunnable: true, PreInit: preInitLogging, New: newCompileTask},
	"debug":            {Which: "debug", PreInit: preInitLogging, New: newDebugTask},
	"deps":             {Which: "deps", PreInit: preInitLogging, New: newDepsTask},
	"list":             {Which: "list", GraphRunnable: true, PreInit: preInitLogging, New: newListTask},
	"parse":            {Which: "parse", PreInit: preInitLogging, New: newParseTask},
	"run":              {Which: "run", GraphRunnable: true, PreInit: preInitLogging, New: newRunTask},
	"run-operation":    {Which: "run-operation", PreInit: preInitLogging, New: newRunOperationTask},
	"seed":             {Which: "seed", GraphRunnable: true, PreInit: preInitLogging, New: newSeedTask},
	"snapshot":         {Which: "snapshot", GraphRunnable: true, PreInit: preInitLogging, New: newSnapshotTask},
	"source-freshness": {Which: "source-freshness", GraphRunnable: true, PreInit: preInitLogging, New: newSourceFreshnessTask},
	"test":             {Which: "test", GraphRunnable: true, PreInit: preInitLogging, New: newTestTask},
}

// Lookup resolves a canonical command name to its task type.
func Lookup(which string) (TaskType, error) {
	tt, ok := taskTypes[which]
	if !ok {
		return TaskType{}, errors.NotFound("task", which)
	}
	return tt, nil
}

// Commands returns the canonical names of all registered commands.
func Commands() []string {
	out := make([]string, 0, len(taskTypes))
	for which := range taskTypes {
		out = append(out, which)
	}
	return out
}
