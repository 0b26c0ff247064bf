package bggohcl

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclwrite"
)

// TraversalKey generates a stable, canonical string representation for an hcl.Traversal,
// suitable for use as a map key.
func TraversalKey(t hcl.Traversal) string {
	// e.g., unit.browser_worker.artifact
	return string(hclwrite.TokensForTraversal(t).Bytes())
}

// AttrPath returns the attribute names of a traversal made only of a root
// name and attribute steps, e.g. ["unit", "browser_worker", "artifact"].
// ok is false for traversals that index or splat.
func AttrPath(t hcl.Traversal) (path []string, ok bool) {
	for _, step := range t {
		switch s := step.(type) {
		case hcl.TraverseRoot:
			path = append(path, s.Name)
		case hcl.TraverseAttr:
			path = append(path, s.Name)
		default:
			return nil, false
		}
	}
	return path, len(path) > 0
}
