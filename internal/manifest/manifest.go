// Package manifest defines loom's serialized project manifest: the resolved
// nodes, sources, and macros of a parsed project together with their metadata.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dpinedaj/loom/internal/errors"
)

// SupportedSchemaVersion is the manifest schema version this build reads and writes.
const SupportedSchemaVersion = "v1"

// Manifest describes a project's resolved nodes and their metadata.
type Manifest struct {
	Metadata Metadata           `json:"metadata"`
	Nodes    map[string]*Node   `json:"nodes"`
	Sources  map[string]*Source `json:"sources"`
	Macros   map[string]*Macro  `json:"macros,omitempty"`
}

// Metadata carries provenance information for a manifest.
type Metadata struct {
	SchemaVersion string `json:"schema_version"`
	Project       string `json:"project"`
	GeneratedAt   string `json:"generated_at,omitempty"`
	InvocationID  string `json:"invocation_id,omitempty"`
}

// Node is a computable node: a model, seed, snapshot, or test.
type Node struct {
	UniqueID     string   `json:"unique_id"`
	Name         string   `json:"name"`
	ResourceType string   `json:"resource_type"`
	Package      string   `json:"package,omitempty"`
	Path         string   `json:"path,omitempty"`
	Materialized string   `json:"materialized,omitempty"`
	Schema       string   `json:"schema,omitempty"`
	Database     string   `json:"database,omitempty"`
	Alias        string   `json:"alias,omitempty"`
	DependsOn    []string `json:"depends_on,omitempty"`
	Tags         []string `json:"tags,omitempty"`
}

// ID returns the node's unique id.
func (n *Node) ID() string { return n.UniqueID }

// Label returns the node's human-readable name.
func (n *Node) Label() string { return n.Name }

// Type returns the node's resource type.
func (n *Node) Type() string { return n.ResourceType }

// IsEphemeral reports whether the node is ephemeral: inlined into its
// dependents rather than materialized, and excluded from execution counting.
func (n *Node) IsEphemeral() bool { return n.Materialized == "ephemeral" }

// HasTag reports whether the node carries the given tag.
func (n *Node) HasTag(tag string) bool {
	for _, t := range n.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Source is an external table a project reads from.
type Source struct {
	UniqueID      string   `json:"unique_id"`
	Name          string   `json:"name"`
	SourceName    string   `json:"source_name"`
	Schema        string   `json:"schema,omitempty"`
	Database      string   `json:"database,omitempty"`
	Identifier    string   `json:"identifier,omitempty"`
	LoadedAtField string   `json:"loaded_at_field,omitempty"`
	Tags          []string `json:"tags,omitempty"`
}

// ID returns the source's unique id.
func (s *Source) ID() string { return s.UniqueID }

// Label returns the source's qualified name.
func (s *Source) Label() string { return s.SourceName + "." + s.Name }

// Type returns the resource type for sources.
func (s *Source) Type() string { return "source" }

// IsEphemeral always reports false: sources are never ephemeral.
func (s *Source) IsEphemeral() bool { return false }

// Macro is a named operation that can be invoked by the run-operation command.
type Macro struct {
	UniqueID string `json:"unique_id"`
	Name     string `json:"name"`
	Package  string `json:"package,omitempty"`
	Path     string `json:"path,omitempty"`
}

// Executable is the common behaviour of manifest entries that can be placed
// on an execution queue. Implemented by Node and Source.
type Executable interface {
	ID() string
	Label() string
	Type() string
	IsEphemeral() bool
}

// FromMap converts generic structured data into a Manifest. This is the
// manifest deserialization contract: loaders first decode JSON into a generic
// map, then convert through this function.
func FromMap(m map[string]interface{}) (*Manifest, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode manifest data: %w", err)
	}

	var out Manifest
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode manifest data: %w", err)
	}

	if out.Metadata.SchemaVersion == "" {
		out.Metadata.SchemaVersion = SupportedSchemaVersion
	}
	if out.Metadata.SchemaVersion != SupportedSchemaVersion {
		return nil, errors.Configf(
			"manifest schema_version %q not supported (want %q)",
			out.Metadata.SchemaVersion, SupportedSchemaVersion,
		)
	}
	if out.Nodes == nil {
		out.Nodes = make(map[string]*Node)
	}
	if out.Sources == nil {
		out.Sources = make(map[string]*Source)
	}

	return &out, nil
}

// Load reads a manifest file, validates it against the embedded schema, and
// converts it through the deserialization contract.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest file: %w", err)
	}

	if err := Validate(data); err != nil {
		return nil, err
	}

	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest file: %w", err)
	}

	return FromMap(m)
}

// WriteFile serializes the manifest to path.
func (mf *Manifest) WriteFile(path string) error {
	data, err := json.MarshalIndent(mf, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// FindMacro returns the macro with the given name, searching by bare name
// and by unique id.
func (mf *Manifest) FindMacro(name string) (*Macro, error) {
	if mc, ok := mf.Macros[name]; ok {
		return mc, nil
	}
	for _, mc := range mf.Macros {
		if mc.Name == name {
			return mc, nil
		}
	}
	return nil, errors.NotFound("macro", name)
}
