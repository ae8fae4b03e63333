package schema

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	json "github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/delorenj/holyfields/internal/errors"
)

// SplitRef splits a reference expression into its document part and
// fragment part. A fragment-only reference ("#/$defs/X") has an empty
// document part; a bare document reference has an empty fragment.
func SplitRef(ref string) (docPart, fragment string) {
	if i := strings.IndexByte(ref, '#'); i >= 0 {
		return ref[:i], strings.TrimPrefix(ref[i:], "#")
	}
	return ref, ""
}

// Discover returns the canonical paths of every schema document under
// dir, sorted. The convention is one component per top-level directory,
// each schema named *.schema.json.
func Discover(dir string) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(dir), "**/*.schema.json")
	if err != nil {
		return nil, errors.Wrap(errors.KindDocumentNotFound, err, "discovering schemas under %s", dir)
	}
	sort.Strings(matches)
	return matches, nil
}

// Loader reads schema documents from a root directory and memoizes them
// by canonical path. A document referenced from multiple places is
// loaded once and shared by reference.
type Loader struct {
	dir string

	mu   sync.Mutex
	docs map[string]*Document
}

// NewLoader creates a Loader rooted at the given schema directory.
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir, docs: make(map[string]*Document)}
}

// Load returns the document set containing every root document plus the
// transitive closure of documents they reference. Independent documents
// in the same closure wave are read concurrently; workers bounds the
// parallelism.
func (l *Loader) Load(ctx context.Context, roots []string, workers int) (*Set, error) {
	if workers < 1 {
		workers = 1
	}

	frontier := make([]string, 0, len(roots))
	seen := make(map[string]bool, len(roots))
	for _, r := range roots {
		p := filepath.ToSlash(filepath.Clean(r))
		if !seen[p] {
			seen[p] = true
			frontier = append(frontier, p)
		}
	}
	sort.Strings(frontier)

	for len(frontier) > 0 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for _, docPath := range frontier {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				_, err := l.loadOne(docPath)
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		var next []string
		for _, docPath := range frontier {
			doc, _ := l.get(docPath)
			refs, err := referencedDocuments(doc)
			if err != nil {
				return nil, err
			}
			for _, ref := range refs {
				if !seen[ref] {
					seen[ref] = true
					next = append(next, ref)
				}
			}
		}
		sort.Strings(next)
		frontier = next
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	docs := make(map[string]*Document, len(l.docs))
	for p, d := range l.docs {
		docs[p] = d
	}
	return &Set{docs: docs}, nil
}

func (l *Loader) get(path string) (*Document, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	d, ok := l.docs[path]
	return d, ok
}

// loadOne reads and parses a single document, memoizing by canonical
// path. Safe for concurrent use.
func (l *Loader) loadOne(docPath string) (*Document, error) {
	if d, ok := l.get(docPath); ok {
		return d, nil
	}

	data, err := os.ReadFile(filepath.Join(l.dir, filepath.FromSlash(docPath)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.At(errors.KindDocumentNotFound, []string{docPath}, "schema document %s does not exist", docPath)
		}
		return nil, &errors.PipelineError{
			Kind:    errors.KindDocumentNotFound,
			Message: "reading schema document",
			Chain:   []string{docPath},
			Cause:   err,
		}
	}

	var root Node
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, &errors.PipelineError{
			Kind:    errors.KindParseError,
			Message: "malformed schema document",
			Chain:   []string{docPath},
			Cause:   err,
		}
	}

	doc := &Document{
		Path:      docPath,
		Component: componentOf(docPath),
		Root:      &root,
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.docs[docPath]; ok {
		return existing, nil
	}
	l.docs[docPath] = doc
	return doc, nil
}

// referencedDocuments collects the canonical paths of every document a
// document references, sorted and deduplicated.
func referencedDocuments(doc *Document) ([]string, error) {
	set := make(map[string]bool)
	err := Walk(doc.Root, func(n *Node) error {
		if !n.IsRef() {
			return nil
		}
		docPart, _ := SplitRef(n.Ref)
		if docPart == "" {
			return nil
		}
		set[CanonicalRef(doc.Path, docPart)] = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}
