// Package resolver resolves every reference expression in a document
// set to a direct node pointer, failing fast on dangling references and
// reference cycles. Resolution never falls back silently: a reference
// resolves to exactly one node or the pipeline stops.
package resolver

import (
	"strconv"
	"strings"

	"github.com/delorenj/holyfields/internal/errors"
	"github.com/delorenj/holyfields/internal/schema"
)

// walkFragment walks a JSON Pointer fragment ("/$defs/Foo/properties/bar")
// through a document's node tree to the leaf node.
func walkFragment(doc *schema.Document, fragment string) (*schema.Node, error) {
	node := doc.Root
	if fragment == "" || fragment == "/" {
		return node, nil
	}
	segments := strings.Split(strings.TrimPrefix(fragment, "/"), "/")
	for i := 0; i < len(segments); i++ {
		seg := unescapePointer(segments[i])
		switch seg {
		case "$defs", "properties":
			if i+1 >= len(segments) {
				return nil, fragmentErr(doc, fragment, "pointer ends at %q without a key", seg)
			}
			key := unescapePointer(segments[i+1])
			var (
				child *schema.Node
				ok    bool
			)
			if seg == "$defs" {
				child, ok = node.Defs.Get(key)
			} else {
				child, ok = node.Properties.Get(key)
			}
			if !ok {
				return nil, fragmentErr(doc, fragment, "no %s entry named %q", seg, key)
			}
			node = child
			i++
		case "items":
			if node.Items == nil {
				return nil, fragmentErr(doc, fragment, "node has no items")
			}
			node = node.Items
		case "allOf":
			if i+1 >= len(segments) {
				return nil, fragmentErr(doc, fragment, "pointer ends at allOf without an index")
			}
			idx, err := strconv.Atoi(segments[i+1])
			if err != nil || idx < 0 || idx >= len(node.AllOf) {
				return nil, fragmentErr(doc, fragment, "allOf index %q out of range", segments[i+1])
			}
			node = node.AllOf[idx]
			i++
		default:
			return nil, fragmentErr(doc, fragment, "unsupported pointer segment %q", seg)
		}
	}
	return node, nil
}

func fragmentErr(doc *schema.Document, fragment, format string, args ...any) *errors.PipelineError {
	return errors.At(errors.KindFragmentNotFound, []string{doc.Path + "#" + fragment}, format, args...)
}

// unescapePointer applies RFC 6901 unescaping (~1 then ~0).
func unescapePointer(s string) string {
	s = strings.ReplaceAll(s, "~1", "/")
	return strings.ReplaceAll(s, "~0", "~")
}
