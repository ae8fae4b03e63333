package schema

import (
	"path"
	"sort"
	"strings"
)

// Document is a loaded schema document: a canonical identity, a root
// node, and the root's local definitions. Never mutated after load.
type Document struct {
	// Path is the canonical identity: slash-separated, relative to the
	// schema root directory.
	Path string
	// Component is the first path segment, the convention for grouping
	// a component's schemas under a component-named root.
	Component string
	// Root is the document's root node.
	Root *Node
}

// Definition returns the local definition with the given name.
func (d *Document) Definition(name string) (*Node, bool) {
	if d.Root == nil || d.Root.Defs == nil {
		return nil, false
	}
	return d.Root.Defs.Get(name)
}

// DefinitionNames returns local definition names in declaration order.
func (d *Document) DefinitionNames() []string {
	if d.Root == nil {
		return nil
	}
	return d.Root.Defs.Keys()
}

// Set is the immutable document set produced by the Loader, indexed by
// canonical path. It is safe for concurrent reads.
type Set struct {
	docs map[string]*Document
}

// Get returns the document with the given canonical path.
func (s *Set) Get(path string) (*Document, bool) {
	d, ok := s.docs[path]
	return d, ok
}

// Paths returns every canonical path in the set, sorted.
func (s *Set) Paths() []string {
	paths := make([]string, 0, len(s.docs))
	for p := range s.docs {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Len returns the number of documents in the set.
func (s *Set) Len() int {
	return len(s.docs)
}

// CanonicalRef resolves a referenced document path against the document
// that contains the reference. Both inputs and the result are canonical
// slash-separated paths relative to the schema root.
func CanonicalRef(fromDoc, refPath string) string {
	if strings.HasPrefix(refPath, "/") {
		return path.Clean(strings.TrimPrefix(refPath, "/"))
	}
	return path.Clean(path.Join(path.Dir(fromDoc), refPath))
}

// componentOf derives the component name from a canonical document path.
// Documents at the root of the schema tree belong to the empty component.
func componentOf(docPath string) string {
	if i := strings.IndexByte(docPath, '/'); i > 0 {
		return docPath[:i]
	}
	return ""
}
