package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dpinedaj/loom/internal/errors"
)

func TestParseArgs(t *testing.T) {
	t.Parallel()
	fields, opts, err := parseArgs([]string{
		"--project-dir", "/srv/jaffle",
		"--select", "orders+",
		"--select", "tag:nightly",
		"--exclude=stg_orders,stg_customers",
		"--threads", "3",
		"--full-refresh",
		"--vars", `{"a": 1}`,
	})
	if err != nil {
		t.Fatalf("parseArgs() error = %v", err)
	}
	if opts.quiet {
		t.Error("quiet = true without -q")
	}

	if fields["project-dir"] != "/srv/jaffle" {
		t.Errorf("project-dir = %v", fields["project-dir"])
	}
	if diff := cmp.Diff([]string{"orders+", "tag:nightly"}, fields["select"]); diff != "" {
		t.Errorf("select mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"stg_orders", "stg_customers"}, fields["exclude"]); diff != "" {
		t.Errorf("exclude mismatch (-want +got):\n%s", diff)
	}
	if fields["threads"] != 3 {
		t.Errorf("threads = %v", fields["threads"])
	}
	if fields["full-refresh"] != true {
		t.Errorf("full-refresh = %v", fields["full-refresh"])
	}
	if fields["vars"] != `{"a": 1}` {
		t.Errorf("vars = %v", fields["vars"])
	}
}

func TestParseArgsSelectorMapsToSelectors(t *testing.T) {
	t.Parallel()
	fields, _, err := parseArgs([]string{"--selector", "nightly"})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"nightly"}, fields["selectors"]); diff != "" {
		t.Errorf("selectors mismatch (-want +got):\n%s", diff)
	}
}

func TestParseArgsGlobalOptions(t *testing.T) {
	t.Parallel()
	fields, opts, err := parseArgs([]string{"-q", "--no-use-colors"})
	if err != nil {
		t.Fatal(err)
	}
	if !opts.quiet || !opts.noColor {
		t.Errorf("opts = %+v", opts)
	}
	// Quiet is CLI-only; no-use-colors also reaches the configuration.
	if _, ok := fields["quiet"]; ok {
		t.Error("quiet leaked into configuration fields")
	}
	if fields["no-use-colors"] != true {
		t.Error("no-use-colors not set in configuration fields")
	}
}

func TestParseArgsErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		args []string
	}{
		{"positional argument", []string{"orders"}},
		{"missing value", []string{"--target"}},
		{"bool with value", []string{"--full-refresh=yes"}},
		{"bad int", []string{"--threads", "four"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, _, err := parseArgs(tt.args); err == nil {
				t.Errorf("parseArgs(%v) expected error, got nil", tt.args)
			}
		})
	}
}

func writeCLIProject(t *testing.T) (projectDir, profilesDir string) {
	t.Helper()
	projectDir = t.TempDir()
	profilesDir = t.TempDir()

	write := func(path, content string) {
		t.Helper()
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	write(filepath.Join(projectDir, "loom_project.yml"), `
name: jaffle
profile: jaffle
`)
	write(filepath.Join(profilesDir, "profiles.yml"), `
jaffle:
  target: dev
  outputs:
    dev:
      type: local
      schema: main
`)
	write(filepath.Join(projectDir, "models", "orders.sql"), "select 1\n")

	return projectDir, profilesDir
}

func TestRunCommand(t *testing.T) {
	projectDir, profilesDir := writeCLIProject(t)

	code := Run([]string{
		"run",
		"--project-dir", projectDir,
		"--profiles-dir", profilesDir,
		"-q",
	})
	if code != errors.ExitSuccess {
		t.Errorf("Run() = %d, want %d", code, errors.ExitSuccess)
	}
}

func TestRunUnknownCommand(t *testing.T) {
	if code := Run([]string{"dance"}); code != errors.ExitConfigError {
		t.Errorf("Run(dance) = %d, want %d", code, errors.ExitConfigError)
	}
}

func TestRunMissingProject(t *testing.T) {
	code := Run([]string{
		"run",
		"--project-dir", t.TempDir(),
		"--profiles-dir", t.TempDir(),
	})
	if code != errors.ExitConfigError {
		t.Errorf("Run() = %d, want %d", code, errors.ExitConfigError)
	}
}

func TestRunHelpAndVersion(t *testing.T) {
	if code := Run(nil); code != errors.ExitSuccess {
		t.Errorf("Run() = %d, want success for usage", code)
	}
	if code := Run([]string{"--help"}); code != errors.ExitSuccess {
		t.Errorf("Run(--help) = %d", code)
	}
	if code := Run([]string{"version"}); code != errors.ExitSuccess {
		t.Errorf("Run(version) = %d", code)
	}
}
