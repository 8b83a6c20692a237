// Package cli provides command-line interface functionality for loom.
package cli

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dpinedaj/loom/internal/errors"
	"github.com/dpinedaj/loom/internal/output"
	"github.com/dpinedaj/loom/internal/telemetry"
	"github.com/dpinedaj/loom/pkg/hook"
)

// Version is set at build time.
var Version = "dev"

var out = output.New()

// Run executes the CLI with the given arguments and returns an exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return errors.ExitSuccess
	}

	switch args[0] {
	case "-h", "--help", "help":
		printUsage()
		return errors.ExitSuccess
	case "--version", "version":
		fmt.Printf("loom %s\n", Version)
		return errors.ExitSuccess
	}

	command := args[0]
	fields, opts, err := parseArgs(args[1:])
	if err != nil {
		out.ErrorPrefix("%v", err)
		return errors.ExitConfigError
	}
	out.SetQuiet(opts.quiet)
	if opts.noColor {
		out.SetColor(false)
	}
	if opts.metricsPort != 0 {
		telemetry.Expose(opts.metricsPort)
	}

	cfg, err := hook.Create(command, fields)
	if err != nil {
		out.ErrorPrefix("%v", err)
		return errors.GetExitCode(err)
	}

	success, res, err := hook.NewHook().Run(context.Background(), cfg)
	if err != nil {
		if res != nil {
			out.RunSummary(res, false)
		}
		out.ErrorPrefix("%v", err)
		return errors.GetExitCode(err)
	}

	out.RunSummary(res, success)
	if !success {
		return errors.ExitRuntimeError
	}
	return errors.ExitSuccess
}

// globalOptions holds flags consumed by the CLI itself rather than the task
// configuration.
type globalOptions struct {
	quiet       bool
	noColor     bool
	metricsPort int
}

// boolFlags are flags that take no value.
var boolFlags = map[string]bool{
	"debug":                    true,
	"fail-fast":                true,
	"full-refresh":             true,
	"warn-error":               true,
	"single-threaded":          true,
	"store-failures":           true,
	"show":                     true,
	"parse-only":               true,
	"compile":                  true,
	"write-manifest":           true,
	"config-dir":               true,
	"no-partial-parse":         true,
	"no-use-colors":            true,
	"no-static-parser":         true,
	"no-version-check":         true,
	"no-anonymous-usage-stats": true,
	"no-defer":                 true,
}

// repeatFlags are flags that may appear multiple times and accumulate.
// The value maps the flag to its configuration field name.
var repeatFlags = map[string]string{
	"select":        "select",
	"exclude":       "exclude",
	"selector":      "selectors",
	"models":        "models",
	"resource-type": "resource_types",
	"output-keys":   "output_keys",
}

// intFlags are flags whose value is an integer.
var intFlags = map[string]bool{
	"threads": true,
}

// parseArgs converts command-line flags into a configuration field map.
//
// Flags are parsed manually instead of with the stdlib flag package: the
// accepted field set differs per command and is validated by the
// configuration factory, repeatable flags accumulate, and both "--flag value"
// and "--flag=value" spellings are accepted.
func parseArgs(args []string) (map[string]interface{}, *globalOptions, error) {
	fields := make(map[string]interface{})
	opts := &globalOptions{}

	i := 0
	for i < len(args) {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			return nil, nil, fmt.Errorf("unexpected argument %q", arg)
		}

		name := strings.TrimLeft(arg, "-")
		value := ""
		hasValue := false
		if eq := strings.IndexByte(name, '='); eq >= 0 {
			name, value = name[:eq], name[eq+1:]
			hasValue = true
		}

		switch {
		case name == "q" || name == "quiet":
			opts.quiet = true
			i++

		case name == "metrics-port":
			if !hasValue {
				if i+1 >= len(args) {
					return nil, nil, fmt.Errorf("flag --%s requires a value", name)
				}
				value = args[i+1]
				i++
			}
			port, err := strconv.Atoi(value)
			if err != nil {
				return nil, nil, fmt.Errorf("flag --%s expects an integer, got %q", name, value)
			}
			opts.metricsPort = port
			i++

		case name == "no-use-colors":
			opts.noColor = true
			fields[name] = true
			i++

		case boolFlags[name]:
			if hasValue {
				return nil, nil, fmt.Errorf("flag --%s takes no value", name)
			}
			fields[name] = true
			i++

		case repeatFlags[name] != "":
			if !hasValue {
				if i+1 >= len(args) {
					return nil, nil, fmt.Errorf("flag --%s requires a value", name)
				}
				value = args[i+1]
				i++
			}
			field := repeatFlags[name]
			existing, _ := fields[field].([]string)
			for _, item := range strings.Split(value, ",") {
				if item = strings.TrimSpace(item); item != "" {
					existing = append(existing, item)
				}
			}
			fields[field] = existing
			i++

		case intFlags[name]:
			if !hasValue {
				if i+1 >= len(args) {
					return nil, nil, fmt.Errorf("flag --%s requires a value", name)
				}
				value = args[i+1]
				i++
			}
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, nil, fmt.Errorf("flag --%s expects an integer, got %q", name, value)
			}
			fields[name] = n
			i++

		default:
			if !hasValue {
				if i+1 >= len(args) {
					return nil, nil, fmt.Errorf("flag --%s requires a value", name)
				}
				value = args[i+1]
				i++
			}
			fields[name] = value
			i++
		}
	}

	return fields, opts, nil
}

var commandDescriptions = map[string]string{
	"build":            "run models, seeds, snapshots, and tests in dependency order",
	"clean":            "remove the project's clean targets",
	"compile":          "compile the project and write the graph and manifest bundle",
	"debug":            "check the health of the project setup",
	"deps":             "install the project's external dependencies",
	"list":             "enumerate selected nodes without executing them",
	"parse":            "parse the project and optionally write its artifacts",
	"run":              "run models in dependency order",
	"run-operation":    "invoke a single macro",
	"seed":             "load seed files",
	"snapshot":         "execute snapshots",
	"source-freshness": "check the freshness of source tables",
	"test":             "execute tests",
}

func printUsage() {
	out.HelpTitle("loom - data project orchestration")
	out.HelpUsage("loom <command> [flags]")

	commands := make([]string, 0, len(commandDescriptions))
	width := 0
	for name := range commandDescriptions {
		commands = append(commands, name)
		if len(name) > width {
			width = len(name)
		}
	}
	sort.Strings(commands)

	out.HelpSection("commands:")
	for _, name := range commands {
		out.HelpCommand(name, commandDescriptions[name], width)
	}
	out.Println("")

	out.HelpSection("common flags:")
	flags := []struct{ name, description string }{
		{"--project-dir DIR", "project directory (default .)"},
		{"--profiles-dir DIR", "profiles directory (default ~/.loom)"},
		{"--profile NAME", "profile to use instead of the project's"},
		{"--target NAME", "profile output to connect to"},
		{"--select CRITERIA", "node selection criteria (repeatable)"},
		{"--exclude CRITERIA", "nodes to exclude (repeatable)"},
		{"--selector NAME", "named selector from selectors.yml"},
		{"--threads N", "execution concurrency"},
		{"--vars JSON", "variable overrides as a JSON object"},
		{"--compiled-target DIR", "reuse a compiled graph and manifest bundle"},
		{"--fail-fast", "stop scheduling after the first failure"},
		{"--full-refresh", "drop and recreate incremental tables"},
		{"--log-format FORMAT", "default, text, or json"},
		{"--metrics-port N", "serve prometheus metrics on the given port"},
		{"--debug", "enable debug logging"},
		{"-q, --quiet", "only print errors and failures"},
	}
	flagWidth := 0
	for _, f := range flags {
		if len(f.name) > flagWidth {
			flagWidth = len(f.name)
		}
	}
	for _, f := range flags {
		out.HelpFlag(f.name, f.description, flagWidth)
	}
}
