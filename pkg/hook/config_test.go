package hook

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dpinedaj/loom/internal/errors"
)

func TestSetVars(t *testing.T) {
	t.Parallel()
	var cfg RunConfig

	if err := cfg.SetVars(`{"a": 1}`); err != nil {
		t.Fatalf("SetVars(string) error = %v", err)
	}
	if cfg.Vars != `{"a": 1}` {
		t.Errorf("Vars = %q", cfg.Vars)
	}

	if err := cfg.SetVars(map[string]interface{}{"b": 2, "a": 1}); err != nil {
		t.Fatalf("SetVars(map) error = %v", err)
	}
	if cfg.Vars != `{"a":1,"b":2}` {
		t.Errorf("Vars = %q, want canonical form", cfg.Vars)
	}

	err := cfg.SetVars(42)
	if !errors.IsKind(err, errors.KindValidation) {
		t.Fatalf("SetVars(42) error = %v, want KindValidation", err)
	}
}

func TestSetArgs(t *testing.T) {
	t.Parallel()
	var cfg RunOperationConfig

	if err := cfg.SetArgs(map[string]interface{}{"role": "reporter"}); err != nil {
		t.Fatalf("SetArgs(map) error = %v", err)
	}
	if cfg.Args != `{"role":"reporter"}` {
		t.Errorf("Args = %q", cfg.Args)
	}

	err := cfg.SetArgs([]string{"nope"})
	if !errors.IsKind(err, errors.KindValidation) {
		t.Fatalf("SetArgs(slice) error = %v, want KindValidation", err)
	}
}

func TestWhichIsFixed(t *testing.T) {
	t.Parallel()
	tests := []struct {
		cfg  Config
		want string
	}{
		{&BuildConfig{}, "build"},
		{&CleanConfig{}, "clean"},
		{&CompileConfig{}, "compile"},
		{&DebugConfig{}, "debug"},
		{&DepsConfig{}, "deps"},
		{&ListConfig{}, "list"},
		{&ParseConfig{}, "parse"},
		{&RunConfig{}, "run"},
		{&RunOperationConfig{}, "run-operation"},
		{&SeedConfig{}, "seed"},
		{&SnapshotConfig{}, "snapshot"},
		{&SourceFreshnessConfig{}, "source-freshness"},
		{&TestConfig{}, "test"},
	}

	for _, tt := range tests {
		if got := tt.cfg.Which(); got != tt.want {
			t.Errorf("Which() = %q, want %q", got, tt.want)
		}
	}
}

func TestTaskOptionsPropagation(t *testing.T) {
	t.Parallel()
	cfg := BuildConfig{
		TableMutabilityConfig: TableMutabilityConfig{
			SelectionConfig: SelectionConfig{
				Select:    []string{"orders"},
				Exclude:   []string{"stg_orders"},
				Selectors: []string{"nightly"},
			},
			FullRefresh: Bool(true),
		},
		ResourceTypes: []string{"model", "seed"},
		StoreFailures: Bool(true),
	}

	opts := cfg.taskOptions()
	if diff := cmp.Diff([]string{"orders"}, opts.Select); diff != "" {
		t.Errorf("Select mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"stg_orders"}, opts.Exclude); diff != "" {
		t.Errorf("Exclude mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"nightly"}, opts.Selectors); diff != "" {
		t.Errorf("Selectors mismatch (-want +got):\n%s", diff)
	}
	if !opts.FullRefresh || !opts.StoreFailures {
		t.Errorf("FullRefresh/StoreFailures = %v/%v, want true/true", opts.FullRefresh, opts.StoreFailures)
	}
	if diff := cmp.Diff([]string{"model", "seed"}, opts.ResourceTypes); diff != "" {
		t.Errorf("ResourceTypes mismatch (-want +got):\n%s", diff)
	}
}

func TestSourceFreshnessOutputPath(t *testing.T) {
	t.Parallel()
	cfg := SourceFreshnessConfig{Output: "/tmp/sources.json"}
	if got := cfg.taskOptions().FreshnessOutput; got != "/tmp/sources.json" {
		t.Errorf("FreshnessOutput = %q", got)
	}
}

func TestBoolIntHelpers(t *testing.T) {
	t.Parallel()
	if !boolVal(Bool(true)) || boolVal(Bool(false)) || boolVal(nil) {
		t.Error("boolVal misbehaves")
	}
	if intVal(Int(7)) != 7 || intVal(nil) != 0 {
		t.Error("intVal misbehaves")
	}
}
