package litrun

import (
	"fmt"
	"path/filepath"
	"strings"
)

// RunbookExt is the extension of documents picked up when walking a directory
const RunbookExt = ".run.md"

// ResolveDocumentWorkspace determines the workspace of a document found while
// walking root, nested under the base workspace by its relative path
//
// root/guides/setup.run.md with base out resolves to out/guides/setup
func ResolveDocumentWorkspace(base, root, docPath string) (string, error) {
	rel, err := filepath.Rel(root, docPath)
	if err != nil {
		return "", fmt.Errorf("resolving document path: %w", err)
	}
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("document %s is outside %s", docPath, root)
	}

	name := strings.TrimSuffix(rel, RunbookExt)
	if name == rel {
		name = strings.TrimSuffix(rel, filepath.Ext(rel))
	}
	return filepath.Join(base, name), nil
}

// WorkspacesOverlap reports whether a and b are the same directory or one
// contains the other
func WorkspacesOverlap(a, b string) bool {
	a, b = filepath.Clean(a), filepath.Clean(b)
	if a == b {
		return true
	}
	for _, pair := range [][2]string{{a, b}, {b, a}} {
		rel, err := filepath.Rel(pair[0], pair[1])
		if err == nil && filepath.IsLocal(rel) {
			return true
		}
	}
	return false
}
