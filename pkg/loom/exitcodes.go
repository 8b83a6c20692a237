// Package loom provides public constants and utilities for external tools
// integrating with loom.
package loom

// Exit codes returned by the loom CLI.
// These constants allow external tools to check exit codes symbolically
// rather than using magic numbers.
const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess = 0

	// ExitFailure indicates a runtime failure (a node errored, an adapter
	// failed, etc.).
	ExitFailure = 1

	// ExitConfigError indicates a configuration error (invalid project or
	// profile, unknown command, validation failure, etc.).
	ExitConfigError = 2

	// ExitConsistencyError indicates stale or mismatched compiled artifacts.
	ExitConsistencyError = 3
)
