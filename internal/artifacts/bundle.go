// Package artifacts handles compiled-artifact bundles: the serialized
// graph+manifest pair a parse/compile phase writes and a later run reuses.
package artifacts

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dpinedaj/loom/internal/graph"
	"github.com/dpinedaj/loom/internal/manifest"
)

// File names inside a bundle directory. The layout is fixed: exactly these
// two files under a single base path.
const (
	GraphFile    = "graph.gpickle"
	ManifestFile = "manifest.json"
)

// Bundle is an on-disk compiled-artifact bundle. Bundles are produced by an
// earlier run and consumed read-only by later runs.
type Bundle struct {
	Dir string
}

// NewBundle returns a bundle rooted at dir.
func NewBundle(dir string) Bundle {
	return Bundle{Dir: dir}
}

// GraphPath returns the path of the serialized graph.
func (b Bundle) GraphPath() string {
	return filepath.Join(b.Dir, GraphFile)
}

// ManifestPath returns the path of the serialized manifest.
func (b Bundle) ManifestPath() string {
	return filepath.Join(b.Dir, ManifestFile)
}

// LoadGraph deserializes the bundle's dependency graph.
func (b Bundle) LoadGraph() (*graph.Graph, error) {
	return graph.DecodeFile(b.GraphPath())
}

// LoadManifest deserializes the bundle's manifest through the manifest
// deserialization contract.
func (b Bundle) LoadManifest() (*manifest.Manifest, error) {
	return manifest.Load(b.ManifestPath())
}

// Write serializes a graph and manifest pair into dir, creating it if needed.
func Write(dir string, g *graph.Graph, m *manifest.Manifest) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create bundle dir: %w", err)
	}

	b := NewBundle(dir)
	if err := g.EncodeFile(b.GraphPath()); err != nil {
		return err
	}
	return m.WriteFile(b.ManifestPath())
}
