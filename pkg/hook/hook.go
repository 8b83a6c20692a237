// Package hook provides programmatic invocation of loom tasks from a
// workflow orchestrator. Callers build (or Create) a task configuration,
// then hand it to Hook.Run; a previously compiled graph and manifest bundle
// can be substituted for the parse phase via the configuration's
// CompiledTarget path.
package hook

import (
	"context"

	"go.uber.org/zap"

	"github.com/dpinedaj/loom/internal/artifacts"
	"github.com/dpinedaj/loom/internal/engine"
	"github.com/dpinedaj/loom/internal/errors"
	"github.com/dpinedaj/loom/internal/logging"
	"github.com/dpinedaj/loom/internal/telemetry"
)

// Hook runs loom tasks and provides the required configurations for each task.
type Hook struct {
	log *zap.Logger
}

// NewHook creates a Hook.
func NewHook() *Hook {
	return &Hook{log: logging.L()}
}

// Run executes the task the configuration describes and returns a success
// indicator together with the structured run result. Errors raised while
// deriving the runtime configuration, initializing, or executing the task
// propagate unchanged.
func (h *Hook) Run(ctx context.Context, cfg Config) (bool, *engine.RunResult, error) {
	inv := engine.NewInvocation()
	applyFlags(inv.Flags, cfg.base())

	rc, err := engine.LoadRuntimeConfig(inv, runtimeParams(cfg.base()))
	if err != nil {
		return false, nil, err
	}
	if cfg.base().Threads == nil {
		// The profile's thread count applies unless the caller overrode it.
		inv.Flags.Threads = rc.Threads
	}

	tt := taskTypeFor(cfg.Which())
	tt.PreInit(inv)
	inv.Logger.Debug("constructing task", zap.String("command", cfg.Which()))

	task, err := tt.New(inv, rc, cfg.taskOptions())
	if err != nil {
		return false, nil, err
	}

	if cfg.base().CompiledTarget != "" && tt.GraphRunnable {
		if err := ApplyBundleReuse(cfg, task); err != nil {
			return false, nil, err
		}
	}

	if cfg.Which() != "deps" {
		// The deps command installs the dependencies, so they may not exist
		// before it runs and this load would fail.
		if err := rc.LoadDependencies(); err != nil {
			return false, nil, err
		}
	}

	if err := inv.Adapters.Register(rc); err != nil {
		return false, nil, err
	}
	defer func() { _ = inv.Adapters.Close() }()

	telemetry.TasksStarted.WithLabelValues(cfg.Which()).Inc()

	result, err := task.Run(ctx)
	if err != nil {
		telemetry.TasksFailed.WithLabelValues(cfg.Which()).Inc()
		return false, result, err
	}

	success := task.InterpretResults(result)
	if success {
		telemetry.TasksSucceeded.WithLabelValues(cfg.Which()).Inc()
	} else {
		telemetry.TasksFailed.WithLabelValues(cfg.Which()).Inc()
	}

	return success, result, nil
}

// ApplyBundleReuse points a task at the configuration's compiled-artifact
// bundle so its initialization loads the serialized graph and manifest
// instead of parsing the project.
//
// The task must belong to the graph-runnable family and the configuration
// must carry a compiled-artifact path; either precondition failing is a
// validation error.
func ApplyBundleReuse(cfg Config, task engine.Task) error {
	gr, ok := engine.AsGraphRunnable(task)
	if !ok {
		return errors.Validationf(
			"bundle reuse requires a graph-runnable task, not %T", task)
	}
	if cfg.base().CompiledTarget == "" {
		return errors.Validation("bundle reuse requires compiled_target to be set")
	}

	gr.SetInitializer(engine.BundleInitializer{
		Bundle: artifacts.NewBundle(cfg.base().CompiledTarget),
	})
	return nil
}

// applyFlags repopulates a fresh invocation's flag state from the
// configuration. Negated options win over their positive counterparts,
// matching the engine's command line.
func applyFlags(f *engine.Flags, b *BaseConfig) {
	f.Debug = boolVal(b.Debug)
	f.WarnError = boolVal(b.WarnError)
	f.FailFast = boolVal(b.FailFast)
	f.SingleThreaded = boolVal(b.SingleThreaded)
	f.UseExperimentalParser = boolVal(b.UseExperimentalParser)
	f.LogCacheEvents = boolVal(b.LogCacheEvents)
	f.RecordTimingInfo = b.RecordTimingInfo

	if boolVal(b.NoPartialParse) {
		f.PartialParse = false
	} else if b.PartialParse != nil {
		f.PartialParse = *b.PartialParse
	}
	if boolVal(b.NoUseColors) {
		f.UseColors = false
	} else if b.UseColors != nil {
		f.UseColors = *b.UseColors
	}
	if boolVal(b.NoStaticParser) {
		f.StaticParser = false
	}
	if boolVal(b.NoVersionCheck) {
		f.VersionCheck = false
	}
	if boolVal(b.NoAnonymousUsageStats) {
		f.AnonymousUsageStats = false
	}
	if boolVal(b.NoDefer) {
		f.DeferState = false
	} else if b.Defer != nil {
		f.DeferState = *b.Defer
	}

	if b.LogFormat != "" {
		f.LogFormat = string(b.LogFormat)
	}
	f.State = b.State
	if b.Vars != "" {
		f.Vars = b.Vars
	}
	if b.Threads != nil {
		f.Threads = *b.Threads
	}
}

func runtimeParams(b *BaseConfig) engine.Params {
	return engine.Params{
		ProjectDir:  b.ProjectDir,
		ProfilesDir: b.ProfilesDir,
		Profile:     b.Profile,
		Target:      b.Target,
		Threads:     intVal(b.Threads),
		Vars:        b.Vars,
	}
}
