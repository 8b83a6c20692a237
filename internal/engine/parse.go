package engine

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/dpinedaj/loom/internal/errors"
	"github.com/dpinedaj/loom/internal/graph"
	"github.com/dpinedaj/loom/internal/manifest"
)

var (
	refRe          = regexp.MustCompile(`\{\{\s*ref\(\s*['"]([^'"]+)['"]\s*\)\s*\}\}`)
	sourceRe       = regexp.MustCompile(`\{\{\s*source\(\s*['"]([^'"]+)['"]\s*,\s*['"]([^'"]+)['"]\s*\)\s*\}\}`)
	materializedRe = regexp.MustCompile(`config\(\s*materialized\s*=\s*['"]([a-z]+)['"]`)
	tagsRe         = regexp.MustCompile(`(?m)^--\s*tags:\s*(.+)$`)
	macroRe        = regexp.MustCompile(`\{%\s*macro\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(`)
)

type parsedFile struct {
	node *manifest.Node
	refs []string // referenced model names, resolved to uids after the scan
}

// parseProject scans the project's source tree and produces a manifest and
// dependency graph. This is the parse/compile phase that compiled-artifact
// reuse short-circuits.
func parseProject(inv *Invocation, rc *RuntimeConfig) (*manifest.Manifest, *graph.Graph, error) {
	m := &manifest.Manifest{
		Metadata: manifest.Metadata{
			SchemaVersion: manifest.SupportedSchemaVersion,
			Project:       rc.ProjectName,
			GeneratedAt:   time.Now().UTC().Format(time.RFC3339),
			InvocationID:  inv.ID.String(),
		},
		Nodes:   make(map[string]*manifest.Node),
		Sources: make(map[string]*manifest.Source),
		Macros:  make(map[string]*manifest.Macro),
	}

	var parsed []parsedFile
	byName := make(map[string]string) // model/seed/snapshot name -> uid

	scan := func(paths []string, resourceType, ext string) error {
		for _, p := range paths {
			root := filepath.Join(rc.ProjectDir, p)
			err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if d.IsDir() || !strings.HasSuffix(d.Name(), ext) {
					return nil
				}
				pf, err := parseNodeFile(m, rc, path, resourceType)
				if err != nil {
					return err
				}
				uid := pf.node.UniqueID
				if _, dup := m.Nodes[uid]; dup {
					return errors.Configf("duplicate resource %q at %s", uid, path)
				}
				m.Nodes[uid] = pf.node
				if resourceType != "test" {
					byName[pf.node.Name] = uid
				}
				parsed = append(parsed, pf)
				return nil
			})
			if err != nil && !os.IsNotExist(err) {
				return errors.Wrap(err, "failed to scan "+p)
			}
		}
		return nil
	}

	if err := scan(rc.ModelPaths, "model", ".sql"); err != nil {
		return nil, nil, err
	}
	if err := scan(rc.SeedPaths, "seed", ".csv"); err != nil {
		return nil, nil, err
	}
	if err := scan(rc.SnapshotPaths, "snapshot", ".sql"); err != nil {
		return nil, nil, err
	}
	if err := scan(rc.TestPaths, "test", ".sql"); err != nil {
		return nil, nil, err
	}
	if err := scanMacros(m, rc); err != nil {
		return nil, nil, err
	}

	g := graph.New()
	for uid := range m.Nodes {
		g.AddNode(uid)
	}
	for uid := range m.Sources {
		g.AddNode(uid)
	}

	// Resolve ref() names to uids now that every node is known.
	for _, pf := range parsed {
		for _, ref := range pf.refs {
			dep, ok := byName[ref]
			if !ok {
				return nil, nil, errors.Configf(
					"%s references unknown resource %q", pf.node.UniqueID, ref)
			}
			pf.node.DependsOn = append(pf.node.DependsOn, dep)
		}
		for _, dep := range pf.node.DependsOn {
			g.AddEdge(pf.node.UniqueID, dep)
		}
	}

	return m, g, nil
}

func parseNodeFile(m *manifest.Manifest, rc *RuntimeConfig, path, resourceType string) (parsedFile, error) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	uid := resourceType + "." + rc.ProjectName + "." + name

	node := &manifest.Node{
		UniqueID:     uid,
		Name:         name,
		ResourceType: resourceType,
		Package:      rc.ProjectName,
		Path:         path,
		Schema:       rc.Credentials.Schema,
		Database:     rc.Credentials.Database,
	}
	if resourceType == "seed" {
		// Seeds carry no refs or config.
		return parsedFile{node: node}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return parsedFile{}, errors.Wrap(err, "failed to read "+path)
	}
	text := string(data)

	if mm := materializedRe.FindStringSubmatch(text); mm != nil {
		node.Materialized = mm[1]
	}
	if tm := tagsRe.FindStringSubmatch(text); tm != nil {
		for _, tag := range strings.Split(tm[1], ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				node.Tags = append(node.Tags, tag)
			}
		}
	}

	var refs []string
	for _, rm := range refRe.FindAllStringSubmatch(text, -1) {
		refs = append(refs, rm[1])
	}
	for _, sm := range sourceRe.FindAllStringSubmatch(text, -1) {
		src := registerSource(m, rc, sm[1], sm[2])
		node.DependsOn = append(node.DependsOn, src)
	}

	return parsedFile{node: node, refs: refs}, nil
}

func registerSource(m *manifest.Manifest, rc *RuntimeConfig, sourceName, name string) string {
	uid := "source." + rc.ProjectName + "." + sourceName + "." + name
	if _, ok := m.Sources[uid]; !ok {
		m.Sources[uid] = &manifest.Source{
			UniqueID:   uid,
			Name:       name,
			SourceName: sourceName,
			Schema:     rc.Credentials.Schema,
			Database:   rc.Credentials.Database,
			Identifier: name,
		}
	}
	return uid
}

func scanMacros(m *manifest.Manifest, rc *RuntimeConfig) error {
	for _, p := range rc.MacroPaths {
		root := filepath.Join(rc.ProjectDir, p)
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(d.Name(), ".sql") {
				return nil
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			for _, mm := range macroRe.FindAllStringSubmatch(string(data), -1) {
				uid := "macro." + rc.ProjectName + "." + mm[1]
				m.Macros[uid] = &manifest.Macro{
					UniqueID: uid,
					Name:     mm[1],
					Package:  rc.ProjectName,
					Path:     path,
				}
			}
			return nil
		})
		if err != nil && !os.IsNotExist(err) {
			return errors.Wrap(err, "failed to scan "+p)
		}
	}
	return nil
}
