package hook

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dpinedaj/loom/internal/engine"
	"github.com/dpinedaj/loom/internal/errors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// writeProject lays out a runnable project against the local adapter.
func writeProject(t *testing.T) (projectDir, profilesDir string) {
	t.Helper()
	projectDir = t.TempDir()
	profilesDir = t.TempDir()

	writeFile(t, filepath.Join(projectDir, "loom_project.yml"), `
name: jaffle
profile: jaffle
`)
	writeFile(t, filepath.Join(profilesDir, "profiles.yml"), `
jaffle:
  target: dev
  outputs:
    dev:
      type: local
      schema: main
`)
	writeFile(t, filepath.Join(projectDir, "models", "stg_orders.sql"),
		"select * from {{ source('raw', 'orders') }}\n")
	writeFile(t, filepath.Join(projectDir, "models", "orders.sql"),
		"select * from {{ ref('stg_orders') }}\n")
	writeFile(t, filepath.Join(projectDir, "macros", "grants.sql"),
		"{% macro grant_select(role) %}{% endmacro %}\n")

	return projectDir, profilesDir
}

func runConfig(t *testing.T, command string, fields map[string]interface{}) Config {
	t.Helper()
	projectDir, profilesDir := writeProject(t)

	all := map[string]interface{}{
		"project_dir":  projectDir,
		"profiles_dir": profilesDir,
	}
	for k, v := range fields {
		all[k] = v
	}
	cfg, err := Create(command, all)
	if err != nil {
		t.Fatalf("Create(%q) error = %v", command, err)
	}
	return cfg
}

func TestHookRun(t *testing.T) {
	t.Parallel()
	cfg := runConfig(t, "run", nil)

	success, res, err := NewHook().Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !success {
		t.Errorf("success = false, results = %+v", res.Results)
	}
	if res.Command != "run" {
		t.Errorf("Command = %q, want run", res.Command)
	}
	if len(res.Results) != 2 {
		t.Errorf("got %d node results, want 2: %+v", len(res.Results), res.Results)
	}
}

func TestHookRunWithSelection(t *testing.T) {
	t.Parallel()
	cfg := runConfig(t, "run", map[string]interface{}{
		"select": []string{"orders"},
	})

	success, res, err := NewHook().Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !success {
		t.Errorf("success = false, results = %+v", res.Results)
	}
	if len(res.Results) != 1 || res.Results[0].NodeID != "model.jaffle.orders" {
		t.Errorf("Results = %+v", res.Results)
	}
}

func TestHookRunList(t *testing.T) {
	t.Parallel()
	cfg := runConfig(t, "list", map[string]interface{}{
		"output": "name",
	})

	success, res, err := NewHook().Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !success {
		t.Error("success = false")
	}
	if len(res.Output) == 0 {
		t.Error("list produced no output")
	}
}

func TestHookRunOperation(t *testing.T) {
	t.Parallel()
	cfg := runConfig(t, "run-operation", map[string]interface{}{
		"macro": "grant_select",
		"args":  map[string]interface{}{"role": "reporter"},
	})

	success, res, err := NewHook().Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !success {
		t.Errorf("success = false, results = %+v", res.Results)
	}
}

func TestHookRunUnknownProfile(t *testing.T) {
	t.Parallel()
	cfg := runConfig(t, "run", map[string]interface{}{
		"profile": "missing",
	})

	_, _, err := NewHook().Run(context.Background(), cfg)
	if !errors.IsKind(err, errors.KindConfig) {
		t.Fatalf("error = %v, want KindConfig", err)
	}
}

// Dependencies are only verified for commands other than deps: a project
// whose packages are not yet installed can still run deps, and anything else
// fails until it has.
func TestHookDepsSkipsDependencyCheck(t *testing.T) {
	t.Parallel()
	projectDir, profilesDir := writeProject(t)
	writeFile(t, filepath.Join(projectDir, "packages.yml"), `
packages:
  - name: loom_utils
    version: "1.1.0"
`)

	newCfg := func(command string) Config {
		cfg, err := Create(command, map[string]interface{}{
			"project_dir":  projectDir,
			"profiles_dir": profilesDir,
		})
		if err != nil {
			t.Fatal(err)
		}
		return cfg
	}

	_, _, err := NewHook().Run(context.Background(), newCfg("run"))
	if !errors.IsKind(err, errors.KindConfig) {
		t.Fatalf("run before deps: error = %v, want KindConfig", err)
	}

	success, _, err := NewHook().Run(context.Background(), newCfg("deps"))
	if err != nil {
		t.Fatalf("deps: error = %v", err)
	}
	if !success {
		t.Fatal("deps: success = false")
	}

	success, _, err = NewHook().Run(context.Background(), newCfg("run"))
	if err != nil {
		t.Fatalf("run after deps: error = %v", err)
	}
	if !success {
		t.Error("run after deps: success = false")
	}
}

// A compiled bundle substitutes for the parse phase entirely: after compiling,
// the project sources can disappear and a run pointed at the bundle still
// succeeds.
func TestHookRunFromCompiledTarget(t *testing.T) {
	t.Parallel()
	projectDir, profilesDir := writeProject(t)

	compileCfg, err := Create("compile", map[string]interface{}{
		"project_dir":  projectDir,
		"profiles_dir": profilesDir,
	})
	if err != nil {
		t.Fatal(err)
	}
	success, _, err := NewHook().Run(context.Background(), compileCfg)
	if err != nil {
		t.Fatalf("compile: error = %v", err)
	}
	if !success {
		t.Fatal("compile: success = false")
	}

	bundleDir := filepath.Join(projectDir, "target")
	if err := os.RemoveAll(filepath.Join(projectDir, "models")); err != nil {
		t.Fatal(err)
	}

	runCfg, err := Create("run", map[string]interface{}{
		"project_dir":     projectDir,
		"profiles_dir":    profilesDir,
		"compiled_target": bundleDir,
	})
	if err != nil {
		t.Fatal(err)
	}
	success, res, err := NewHook().Run(context.Background(), runCfg)
	if err != nil {
		t.Fatalf("run from bundle: error = %v", err)
	}
	if !success {
		t.Errorf("run from bundle: success = false, results = %+v", res.Results)
	}
	if len(res.Results) != 2 {
		t.Errorf("got %d node results, want 2: %+v", len(res.Results), res.Results)
	}
}

func TestApplyBundleReuseRequiresGraphRunnable(t *testing.T) {
	t.Parallel()
	projectDir, profilesDir := writeProject(t)

	inv := engine.NewInvocation()
	rc, err := engine.LoadRuntimeConfig(inv, engine.Params{
		ProjectDir:  projectDir,
		ProfilesDir: profilesDir,
	})
	if err != nil {
		t.Fatal(err)
	}

	tt, err := engine.Lookup("clean")
	if err != nil {
		t.Fatal(err)
	}
	task, err := tt.New(inv, rc, engine.TaskOptions{})
	if err != nil {
		t.Fatal(err)
	}

	cfg := &CleanConfig{}
	cfg.CompiledTarget = "/tmp/target"
	err = ApplyBundleReuse(cfg, task)
	if !errors.IsKind(err, errors.KindValidation) {
		t.Fatalf("error = %v, want KindValidation", err)
	}
}

func TestApplyBundleReuseRequiresPath(t *testing.T) {
	t.Parallel()
	projectDir, profilesDir := writeProject(t)

	inv := engine.NewInvocation()
	rc, err := engine.LoadRuntimeConfig(inv, engine.Params{
		ProjectDir:  projectDir,
		ProfilesDir: profilesDir,
	})
	if err != nil {
		t.Fatal(err)
	}

	tt, err := engine.Lookup("run")
	if err != nil {
		t.Fatal(err)
	}
	task, err := tt.New(inv, rc, engine.TaskOptions{})
	if err != nil {
		t.Fatal(err)
	}

	err = ApplyBundleReuse(&RunConfig{}, task)
	if !errors.IsKind(err, errors.KindValidation) {
		t.Fatalf("error = %v, want KindValidation", err)
	}
}
