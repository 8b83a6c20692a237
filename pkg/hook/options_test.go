package hook

import (
	"testing"

	"github.com/dpinedaj/loom/internal/errors"
)

func TestParseLogFormat(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want LogFormat
	}{
		{"json", LogFormatJSON},
		{"JSON", LogFormatJSON},
		{"text", LogFormatText},
		{"default", LogFormatDefault},
		{"DeFaUlT", LogFormatDefault},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseLogFormat(tt.in)
			if err != nil {
				t.Fatalf("ParseLogFormat(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseLogFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseLogFormatUnknown(t *testing.T) {
	t.Parallel()
	_, err := ParseLogFormat("yaml")
	if !errors.IsKind(err, errors.KindValidation) {
		t.Fatalf("error = %v, want KindValidation", err)
	}
}

func TestParseIndirectSelection(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want IndirectSelection
	}{
		{"eager", IndirectSelectionEager},
		{"EAGER", IndirectSelectionEager},
		{"cautious", IndirectSelectionCautious},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseIndirectSelection(tt.in)
			if err != nil {
				t.Fatalf("ParseIndirectSelection(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseIndirectSelection(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}

	if _, err := ParseIndirectSelection("greedy"); !errors.IsKind(err, errors.KindValidation) {
		t.Errorf("ParseIndirectSelection(greedy) error = %v, want KindValidation", err)
	}
}

func TestParseOutput(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want Output
	}{
		{"json", OutputJSON},
		{"name", OutputName},
		{"path", OutputPath},
		{"selector", OutputSelector},
		{"SELECTOR", OutputSelector},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseOutput(tt.in)
			if err != nil {
				t.Fatalf("ParseOutput(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseOutput(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}

	if _, err := ParseOutput("table"); !errors.IsKind(err, errors.KindValidation) {
		t.Errorf("ParseOutput(table) error = %v, want KindValidation", err)
	}
}

func TestNormalizeOption(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want string
	}{
		{"source-freshness", "SOURCE_FRESHNESS"},
		{"source freshness", "SOURCE_FRESHNESS"},
		{"Run-Operation", "RUN_OPERATION"},
		{"deps", "DEPS"},
	}

	for _, tt := range tests {
		if got := normalizeOption(tt.in); got != tt.want {
			t.Errorf("normalizeOption(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestOutputEqualsString(t *testing.T) {
	t.Parallel()
	if !OutputJSON.EqualsString("json") {
		t.Error(`OutputJSON.EqualsString("json") = false`)
	}
	if !OutputJSON.EqualsString("JSON") {
		t.Error(`OutputJSON.EqualsString("JSON") = false`)
	}
	if OutputJSON.EqualsString("name") {
		t.Error(`OutputJSON.EqualsString("name") = true`)
	}
}
