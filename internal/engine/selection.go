package engine

import (
	"sort"
	"strings"

	"github.com/dpinedaj/loom/internal/errors"
)

// selectNodes derives the set of graph node ids to run from the task's
// selection criteria. With no criteria the whole graph is selected. Criteria
// match by node name, unique id, or tag: prefix; a leading or trailing +
// includes ancestors or descendants. Named selectors expand to their saved
// criteria. Exclusions are subtracted last.
func (t *GraphRunnable) selectNodes() ([]string, error) {
	include := t.opts.Select
	if len(include) == 0 {
		include = t.opts.Models
	}
	exclude := t.opts.Exclude

	for _, name := range t.opts.Selectors {
		def, ok := t.rc.Selectors[name]
		if !ok {
			return nil, errors.NotFound("selector", name)
		}
		include = append(include, def.Select...)
		exclude = append(exclude, def.Exclude...)
	}

	selected := make(map[string]bool)
	if len(include) == 0 {
		for _, uid := range t.Graph.Nodes() {
			selected[uid] = true
		}
	} else {
		for _, criterion := range include {
			for _, uid := range t.expandCriterion(criterion) {
				selected[uid] = true
			}
		}
	}

	for _, criterion := range exclude {
		for _, uid := range t.expandCriterion(criterion) {
			delete(selected, uid)
		}
	}

	t.applyResourceFilter(selected)

	out := make([]string, 0, len(selected))
	for uid := range selected {
		out = append(out, uid)
	}
	sort.Strings(out)
	return out, nil
}

// expandCriterion resolves one selection criterion to graph node ids.
func (t *GraphRunnable) expandCriterion(criterion string) []string {
	withAncestors := strings.HasPrefix(criterion, "+")
	withDescendants := strings.HasSuffix(criterion, "+")
	criterion = strings.Trim(criterion, "+")

	var base []string
	if tag, ok := strings.CutPrefix(criterion, "tag:"); ok {
		for uid, node := range t.Manifest.Nodes {
			if t.Graph.HasNode(uid) && node.HasTag(tag) {
				base = append(base, uid)
			}
		}
	} else {
		for _, uid := range t.Graph.Nodes() {
			if uid == criterion {
				base = append(base, uid)
				continue
			}
			if node, ok := t.Manifest.Nodes[uid]; ok && node.Name == criterion {
				base = append(base, uid)
			}
		}
	}

	out := append([]string(nil), base...)
	for _, uid := range base {
		if withAncestors {
			out = append(out, t.Graph.Ancestors(uid)...)
		}
		if withDescendants {
			out = append(out, t.Graph.Descendants(uid)...)
		}
	}
	return out
}

// applyResourceFilter drops selected nodes whose resource type is not in the
// task's filter. Ids absent from the manifest pass through so that the
// flatten step can report the inconsistency.
func (t *GraphRunnable) applyResourceFilter(selected map[string]bool) {
	if len(t.resourceFilter) == 0 {
		return
	}
	allow := make(map[string]bool, len(t.resourceFilter))
	for _, rt := range t.resourceFilter {
		allow[rt] = true
	}

	for uid := range selected {
		if node, ok := t.Manifest.Nodes[uid]; ok {
			if !allow[node.ResourceType] {
				delete(selected, uid)
			}
			continue
		}
		if _, ok := t.Manifest.Sources[uid]; ok {
			if !allow["source"] {
				delete(selected, uid)
			}
		}
	}
}
