package engine

// Flags is the engine-wide flag state governing downstream behaviour of task
// execution. Flags are scoped to a single Invocation: every run starts from
// DefaultFlags and repopulates from its configuration, so no state leaks
// across invocations.
type Flags struct {
	Debug                 bool
	WarnError             bool
	UseColors             bool
	PartialParse          bool
	StaticParser          bool
	UseExperimentalParser bool
	VersionCheck          bool
	FailFast              bool
	SingleThreaded        bool
	AnonymousUsageStats   bool
	LogCacheEvents        bool
	RecordTimingInfo      string
	LogFormat             string // default, text, json
	DeferState            bool
	State                 string
	Vars                  string // canonical JSON object
	Threads               int
}

// DefaultThreads is the per-run execution concurrency used when neither the
// configuration nor the profile sets one.
const DefaultThreads = 4

// DefaultFlags returns the engine's standard flag defaults.
func DefaultFlags() *Flags {
	return &Flags{
		UseColors:           true,
		PartialParse:        true,
		StaticParser:        true,
		VersionCheck:        true,
		AnonymousUsageStats: true,
		LogFormat:           "default",
		Vars:                "{}",
		Threads:             DefaultThreads,
	}
}

// EffectiveThreads returns the execution concurrency after applying the
// single-threaded override.
func (f *Flags) EffectiveThreads() int {
	if f.SingleThreaded || f.Threads < 1 {
		return 1
	}
	return f.Threads
}
