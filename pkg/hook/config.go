package hook

import (
	"encoding/json"

	"github.com/dpinedaj/loom/internal/engine"
	"github.com/dpinedaj/loom/internal/errors"
)

// Config is a task configuration: the typed record of options one command
// accepts. The set of implementations is closed; every leaf fixes its command
// identifier and backing task type, neither of which callers can override.
type Config interface {
	// Which returns the fixed command identifier.
	Which() string

	base() *BaseConfig
	taskOptions() engine.TaskOptions
}

func taskTypeFor(which string) engine.TaskType {
	tt, err := engine.Lookup(which)
	if err != nil {
		// The command set and the task registry are both fixed at compile
		// time; a mismatch is a programming error.
		panic(err)
	}
	return tt
}

// BaseConfig holds the options every command accepts.
type BaseConfig struct {
	RecordTimingInfo      string
	Debug                 *bool
	LogFormat             LogFormat
	WarnError             *bool
	UseExperimentalParser *bool
	NoStaticParser        *bool
	NoAnonymousUsageStats *bool
	PartialParse          *bool
	NoPartialParse        *bool
	UseColors             *bool
	NoUseColors           *bool
	NoVersionCheck        *bool
	SingleThreaded        *bool
	FailFast              *bool
	LogCacheEvents        *bool
	ProjectDir            string
	ProfilesDir           string
	Profile               string
	Target                string
	Vars                  string
	Defer                 *bool
	NoDefer               *bool
	State                 string
	Threads               *int
	CompiledTarget        string
}

func (c *BaseConfig) base() *BaseConfig { return c }

func (c *BaseConfig) taskOptions() engine.TaskOptions { return engine.TaskOptions{} }

// SetVars sets the variable overrides from either a canonical JSON string or
// a map, which is serialized to its canonical textual form immediately.
func (c *BaseConfig) SetVars(v interface{}) error {
	s, err := canonicalJSON(v)
	if err != nil {
		return errors.Validationf("vars: %v", err)
	}
	c.Vars = s
	return nil
}

func canonicalJSON(v interface{}) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case map[string]interface{}:
		data, err := json.Marshal(t)
		if err != nil {
			return "", err
		}
		return string(data), nil
	default:
		return "", errors.Newf("expected a string or a map, got %T", v)
	}
}

// SelectionConfig adds node-selection criteria for commands like run and seed.
type SelectionConfig struct {
	BaseConfig

	Exclude   []string
	Select    []string
	Selectors []string
	// Models is kept for callers still using the legacy model selectors.
	Models []string
}

func (c *SelectionConfig) taskOptions() engine.TaskOptions {
	return engine.TaskOptions{
		Select:    c.Select,
		Exclude:   c.Exclude,
		Models:    c.Models,
		Selectors: c.Selectors,
	}
}

// TableMutabilityConfig specifies whether tables should be dropped and recreated.
type TableMutabilityConfig struct {
	SelectionConfig

	FullRefresh *bool
}

func (c *TableMutabilityConfig) taskOptions() engine.TaskOptions {
	opts := c.SelectionConfig.taskOptions()
	opts.FullRefresh = boolVal(c.FullRefresh)
	return opts
}

// BuildConfig holds build task options.
type BuildConfig struct {
	TableMutabilityConfig

	IndirectSelection IndirectSelection
	ResourceTypes     []string
	Show              *bool
	StoreFailures     *bool
}

func (c *BuildConfig) Which() string { return "build" }

func (c *BuildConfig) taskOptions() engine.TaskOptions {
	opts := c.TableMutabilityConfig.taskOptions()
	opts.IndirectSelection = string(c.IndirectSelection)
	opts.ResourceTypes = c.ResourceTypes
	opts.Show = boolVal(c.Show)
	opts.StoreFailures = boolVal(c.StoreFailures)
	return opts
}

// CleanConfig holds clean task options.
type CleanConfig struct {
	BaseConfig

	ParseOnly *bool
}

func (c *CleanConfig) Which() string { return "clean" }

func (c *CleanConfig) taskOptions() engine.TaskOptions {
	return engine.TaskOptions{ParseOnly: boolVal(c.ParseOnly)}
}

// CompileConfig holds compile task options.
type CompileConfig struct {
	TableMutabilityConfig

	ParseOnly *bool
}

func (c *CompileConfig) Which() string { return "compile" }

func (c *CompileConfig) taskOptions() engine.TaskOptions {
	opts := c.TableMutabilityConfig.taskOptions()
	opts.ParseOnly = boolVal(c.ParseOnly)
	return opts
}

// DebugConfig holds debug task options.
type DebugConfig struct {
	BaseConfig

	ConfigDir *bool
}

func (c *DebugConfig) Which() string { return "debug" }

func (c *DebugConfig) taskOptions() engine.TaskOptions {
	return engine.TaskOptions{ConfigDir: boolVal(c.ConfigDir)}
}

// DepsConfig holds deps task options.
type DepsConfig struct {
	BaseConfig
}

func (c *DepsConfig) Which() string { return "deps" }

// ListConfig holds list task options.
type ListConfig struct {
	SelectionConfig

	IndirectSelection IndirectSelection
	Output            Output
	OutputKeys        []string
	ResourceTypes     []string
}

func (c *ListConfig) Which() string { return "list" }

func (c *ListConfig) taskOptions() engine.TaskOptions {
	opts := c.SelectionConfig.taskOptions()
	opts.IndirectSelection = string(c.IndirectSelection)
	opts.OutputFormat = string(c.Output)
	opts.OutputKeys = c.OutputKeys
	opts.ResourceTypes = c.ResourceTypes
	return opts
}

// ParseConfig holds parse task options.
type ParseConfig struct {
	BaseConfig

	Compile       *bool
	WriteManifest *bool
}

func (c *ParseConfig) Which() string { return "parse" }

func (c *ParseConfig) taskOptions() engine.TaskOptions {
	return engine.TaskOptions{
		Compile:       boolVal(c.Compile),
		WriteManifest: boolVal(c.WriteManifest),
	}
}

// RunConfig holds run task options.
type RunConfig struct {
	TableMutabilityConfig
}

func (c *RunConfig) Which() string { return "run" }

// RunOperationConfig holds run-operation task options.
type RunOperationConfig struct {
	BaseConfig

	Macro string
	Args  string
}

func (c *RunOperationConfig) Which() string { return "run-operation" }

func (c *RunOperationConfig) taskOptions() engine.TaskOptions {
	return engine.TaskOptions{Macro: c.Macro, Args: c.Args}
}

// SetArgs sets the macro argument payload from either a canonical JSON string
// or a map, which is serialized to its canonical textual form immediately.
func (c *RunOperationConfig) SetArgs(v interface{}) error {
	s, err := canonicalJSON(v)
	if err != nil {
		return errors.Validationf("args: %v", err)
	}
	c.Args = s
	return nil
}

// SeedConfig holds seed task options.
type SeedConfig struct {
	TableMutabilityConfig

	Show *bool
}

func (c *SeedConfig) Which() string { return "seed" }

func (c *SeedConfig) taskOptions() engine.TaskOptions {
	opts := c.TableMutabilityConfig.taskOptions()
	opts.Show = boolVal(c.Show)
	return opts
}

// SnapshotConfig holds snapshot task options.
type SnapshotConfig struct {
	SelectionConfig
}

func (c *SnapshotConfig) Which() string { return "snapshot" }

// SourceFreshnessConfig holds source-freshness task options.
type SourceFreshnessConfig struct {
	SelectionConfig

	// Output is the path the freshness results file is written to.
	Output string
}

func (c *SourceFreshnessConfig) Which() string { return "source-freshness" }

func (c *SourceFreshnessConfig) taskOptions() engine.TaskOptions {
	opts := c.SelectionConfig.taskOptions()
	opts.FreshnessOutput = c.Output
	return opts
}

// TestConfig holds test task options.
type TestConfig struct {
	SelectionConfig

	IndirectSelection IndirectSelection
	StoreFailures     *bool
}

func (c *TestConfig) Which() string { return "test" }

func (c *TestConfig) taskOptions() engine.TaskOptions {
	opts := c.SelectionConfig.taskOptions()
	opts.IndirectSelection = string(c.IndirectSelection)
	opts.StoreFailures = boolVal(c.StoreFailures)
	return opts
}

func boolVal(p *bool) bool {
	return p != nil && *p
}

func intVal(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

// Bool returns a pointer to b, for literal configuration values.
func Bool(b bool) *bool { return &b }

// Int returns a pointer to i, for literal configuration values.
func Int(i int) *int { return &i }
