package engine

import (
	"os"
	"path/filepath"
	"testing"
)

// writeTestFile writes content, creating parent directories as needed.
func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// writeTestProject lays out a small project with one source, an ephemeral
// staging model, a downstream model, a seed, a snapshot, a test, and a macro.
func writeTestProject(t *testing.T) (projectDir, profilesDir string) {
	t.Helper()
	projectDir = t.TempDir()
	profilesDir = t.TempDir()

	writeTestFile(t, filepath.Join(projectDir, ProjectFileName), `
name: jaffle
version: "1.0"
profile: jaffle
`)
	writeTestFile(t, filepath.Join(profilesDir, ProfilesFileName), `
jaffle:
  target: dev
  outputs:
    dev:
      type: local
      schema: main
      threads: 2
`)

	writeTestFile(t, filepath.Join(projectDir, "models", "stg_orders.sql"), `
{{ config(materialized='ephemeral') }}
select * from {{ source('raw', 'orders') }}
`)
	writeTestFile(t, filepath.Join(projectDir, "models", "orders.sql"), `
-- tags: nightly
{{ config(materialized='table') }}
select * from {{ ref('stg_orders') }}
`)
	writeTestFile(t, filepath.Join(projectDir, "seeds", "countries.csv"),
		"code,name\nus,United States\n")
	writeTestFile(t, filepath.Join(projectDir, "snapshots", "orders_snapshot.sql"), `
select * from {{ ref('orders') }}
`)
	writeTestFile(t, filepath.Join(projectDir, "tests", "assert_positive_total.sql"), `
select * from {{ ref('orders') }} where total < 0
`)
	writeTestFile(t, filepath.Join(projectDir, "macros", "grants.sql"), `
{% macro grant_select(role) %}
grant select on {{ role }}
{% endmacro %}
`)

	return projectDir, profilesDir
}

// loadTestConfig resolves the fixture project into a runtime configuration.
func loadTestConfig(t *testing.T) (*Invocation, *RuntimeConfig) {
	t.Helper()
	projectDir, profilesDir := writeTestProject(t)

	inv := NewInvocation()
	rc, err := LoadRuntimeConfig(inv, Params{
		ProjectDir:  projectDir,
		ProfilesDir: profilesDir,
	})
	if err != nil {
		t.Fatalf("LoadRuntimeConfig() error = %v", err)
	}
	return inv, rc
}
