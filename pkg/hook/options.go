package hook

import (
	"strings"

	"github.com/dpinedaj/loom/internal/errors"
)

// normalizeOption canonicalizes a free-form option string for variant lookup:
// separators become underscores and the result is upper-cased.
func normalizeOption(s string) string {
	s = strings.NewReplacer("-", "_", " ", "_").Replace(s)
	return strings.ToUpper(s)
}

// LogFormat selects how the engine renders log output.
type LogFormat string

const (
	LogFormatDefault LogFormat = "default"
	LogFormatJSON    LogFormat = "json"
	LogFormatText    LogFormat = "text"
)

var logFormats = map[string]LogFormat{
	"DEFAULT": LogFormatDefault,
	"JSON":    LogFormatJSON,
	"TEXT":    LogFormatText,
}

// ParseLogFormat converts a free-form string into a LogFormat.
func ParseLogFormat(s string) (LogFormat, error) {
	v, ok := logFormats[normalizeOption(s)]
	if !ok {
		return "", errors.Validationf("unknown log format %q", s)
	}
	return v, nil
}

// IndirectSelection controls how tests attached to selected nodes are picked up.
type IndirectSelection string

const (
	IndirectSelectionEager    IndirectSelection = "eager"
	IndirectSelectionCautious IndirectSelection = "cautious"
)

var indirectSelections = map[string]IndirectSelection{
	"EAGER":    IndirectSelectionEager,
	"CAUTIOUS": IndirectSelectionCautious,
}

// ParseIndirectSelection converts a free-form string into an IndirectSelection.
func ParseIndirectSelection(s string) (IndirectSelection, error) {
	v, ok := indirectSelections[normalizeOption(s)]
	if !ok {
		return "", errors.Validationf("unknown indirect selection %q", s)
	}
	return v, nil
}

// Output selects the rendering of list results.
type Output string

const (
	OutputJSON     Output = "json"
	OutputName     Output = "name"
	OutputPath     Output = "path"
	OutputSelector Output = "selector"
)

var outputs = map[string]Output{
	"JSON":     OutputJSON,
	"NAME":     OutputName,
	"PATH":     OutputPath,
	"SELECTOR": OutputSelector,
}

// ParseOutput converts a free-form string into an Output.
func ParseOutput(s string) (Output, error) {
	v, ok := outputs[normalizeOption(s)]
	if !ok {
		return "", errors.Validationf("unknown output %q", s)
	}
	return v, nil
}

// EqualsString reports whether the variant matches a raw string,
// case-insensitively, so a structured value and its textual form are
// interchangeable downstream.
func (o Output) EqualsString(s string) bool {
	return strings.EqualFold(string(o), s)
}
