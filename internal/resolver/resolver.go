package resolver

import (
	"context"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/delorenj/holyfields/internal/errors"
	"github.com/delorenj/holyfields/internal/schema"
)

// Target is the concrete node a reference resolves to, together with
// the document that owns it. Chained references are flattened: Target
// is never itself a reference.
type Target struct {
	Doc  *schema.Document
	Node *schema.Node
}

// Graph is the resolved view of a document set. It is immutable once
// built and safe for concurrent reads.
type Graph struct {
	set     *schema.Set
	targets map[*schema.Node]Target
}

// Set returns the underlying document set.
func (g *Graph) Set() *schema.Set {
	return g.set
}

// Deref follows a node's reference (if any) to its concrete target.
// Non-reference nodes deref to themselves.
func (g *Graph) Deref(doc *schema.Document, n *schema.Node) (*schema.Document, *schema.Node) {
	if !n.IsRef() {
		return doc, n
	}
	t := g.targets[n]
	return t.Doc, t.Node
}

type visitState uint8

const (
	stateVisiting visitState = iota + 1
	stateDone
)

// docResolver performs a depth-first expansion of one document,
// recording a target for every reference node it encounters. A node
// found on the expansion stack again through a reference edge is a
// cycle.
type docResolver struct {
	set     *schema.Set
	states  map[*schema.Node]visitState
	targets map[*schema.Node]Target
	chain   []string
}

// Resolve resolves every reference in the document set. Documents are
// resolved concurrently (workers bounds parallelism) and the per-document
// results merged by a single collector.
func Resolve(ctx context.Context, set *schema.Set, workers int) (*Graph, error) {
	if workers < 1 {
		workers = 1
	}
	paths := set.Paths()

	var (
		mu     sync.Mutex
		merged = make(map[*schema.Node]Target)
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, docPath := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			doc, _ := set.Get(docPath)
			r := &docResolver{
				set:     set,
				states:  make(map[*schema.Node]visitState),
				targets: make(map[*schema.Node]Target),
			}
			if err := r.visit(doc, doc.Root, doc.Path+"#"); err != nil {
				return err
			}
			mu.Lock()
			for n, t := range r.targets {
				merged[n] = t
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Graph{set: set, targets: merged}, nil
}

// visit expands a node: structural children first, then the reference
// edge if the node is a reference. step is the display location used in
// error chains.
func (r *docResolver) visit(doc *schema.Document, n *schema.Node, step string) error {
	if n == nil {
		return nil
	}
	switch r.states[n] {
	case stateDone:
		return nil
	case stateVisiting:
		return errors.At(errors.KindCyclicReference, appendChain(r.chain, step), "reference cycle detected")
	}
	r.states[n] = stateVisiting
	r.chain = append(r.chain, step)

	if n.IsRef() {
		targetDoc, targetNode, err := r.lookup(doc, n)
		if err != nil {
			return err
		}
		if err := r.visit(targetDoc, targetNode, refDisplay(doc, n.Ref)); err != nil {
			return err
		}
		// Flatten chains so Deref lands on a concrete node.
		final := Target{Doc: targetDoc, Node: targetNode}
		if targetNode.IsRef() {
			final = r.targets[targetNode]
		}
		r.targets[n] = final
	}

	for _, key := range n.Properties.Keys() {
		child, _ := n.Properties.Get(key)
		if err := r.visit(doc, child, step+"/properties/"+key); err != nil {
			return err
		}
	}
	if err := r.visit(doc, n.Items, step+"/items"); err != nil {
		return err
	}
	for i, base := range n.AllOf {
		if err := r.visit(doc, base, step+"/allOf/"+strconv.Itoa(i)); err != nil {
			return err
		}
	}
	for _, key := range n.Defs.Keys() {
		child, _ := n.Defs.Get(key)
		if err := r.visit(doc, child, step+"/$defs/"+key); err != nil {
			return err
		}
	}

	r.chain = r.chain[:len(r.chain)-1]
	r.states[n] = stateDone
	return nil
}

// lookup locates the document and node a reference expression points
// at, without following further references.
func (r *docResolver) lookup(doc *schema.Document, n *schema.Node) (*schema.Document, *schema.Node, error) {
	docPart, fragment := schema.SplitRef(n.Ref)
	targetDoc := doc
	if docPart != "" {
		canonical := schema.CanonicalRef(doc.Path, docPart)
		var ok bool
		targetDoc, ok = r.set.Get(canonical)
		if !ok {
			return nil, nil, errors.At(errors.KindDocumentNotFound, appendChain(r.chain, refDisplay(doc, n.Ref)),
				"referenced document %s is not in the loaded set", canonical)
		}
	}
	targetNode, err := walkFragment(targetDoc, fragment)
	if err != nil {
		var perr *errors.PipelineError
		if ok := asPipelineError(err, &perr); ok {
			return nil, nil, &errors.PipelineError{
				Kind:    perr.Kind,
				Message: perr.Message,
				Chain:   appendChain(r.chain, perr.Chain...),
				Cause:   perr.Cause,
			}
		}
		return nil, nil, err
	}
	return targetDoc, targetNode, nil
}

func refDisplay(doc *schema.Document, ref string) string {
	docPart, fragment := schema.SplitRef(ref)
	if docPart == "" {
		return doc.Path + "#" + fragment
	}
	return schema.CanonicalRef(doc.Path, docPart) + "#" + fragment
}

func appendChain(chain []string, steps ...string) []string {
	out := make([]string, 0, len(chain)+len(steps))
	out = append(out, chain...)
	out = append(out, steps...)
	return out
}

func asPipelineError(err error, target **errors.PipelineError) bool {
	pe, ok := err.(*errors.PipelineError)
	if ok {
		*target = pe
	}
	return ok
}
