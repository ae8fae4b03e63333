// Package compose applies extension semantics to schema nodes: a
// derived node's allOf bases are merged into a single ordered field
// list, with fields declared on the derived node always taking
// precedence over same-named inherited fields. Overridden fields keep
// the base-declared position, so a discriminator declared generically
// on a base and narrowed to a literal on a derived node stays a single,
// stably ordered field.
package compose

import (
	"github.com/delorenj/holyfields/internal/errors"
	"github.com/delorenj/holyfields/internal/resolver"
	"github.com/delorenj/holyfields/internal/schema"
)

// Field is one merged field: the declaration that won precedence plus
// the document that declared it, which anchors later reference
// resolution for the field's own subtree.
type Field struct {
	Name     string
	Node     *schema.Node
	Doc      *schema.Document
	Required bool
}

// Object is the merged view of a derived node: its complete ordered
// field list after composition.
type Object struct {
	Doc  *schema.Document
	Node *schema.Node

	Title            string
	Description      string
	RoutingKey       string
	ForbidAdditional bool
	Fields           []Field
}

// Field returns the merged field with the given name.
func (o *Object) Field(name string) (Field, bool) {
	for _, f := range o.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Merge composes a node with its allOf bases. Bases are merged left to
// right; a same-named field from a later base replaces the earlier
// declaration in place; the derived node's own fields are applied last
// and always win. Constraints are replaced, never merged: a derived
// declaration narrows by restating the field in full.
func Merge(g *resolver.Graph, doc *schema.Document, n *schema.Node) (*Object, error) {
	doc, n = g.Deref(doc, n)

	obj := &Object{
		Doc:              doc,
		Node:             n,
		Title:            n.Title,
		Description:      n.Description,
		RoutingKey:       n.RoutingKey,
		ForbidAdditional: n.ForbidsAdditional(),
	}

	// Base fields, left to right.
	for _, baseNode := range n.AllOf {
		base, err := Merge(g, doc, baseNode)
		if err != nil {
			return nil, err
		}
		for _, f := range base.Fields {
			if err := obj.apply(g, f, doc.Path); err != nil {
				return nil, err
			}
		}
		if obj.Description == "" {
			obj.Description = base.Description
		}
		if obj.RoutingKey == "" {
			obj.RoutingKey = base.RoutingKey
		}
		if base.ForbidAdditional {
			obj.ForbidAdditional = true
		}
	}

	// Derived fields last: append or override in place.
	required := n.RequiredSet()
	for _, name := range n.Properties.Keys() {
		child, _ := n.Properties.Get(name)
		f := Field{Name: name, Node: child, Doc: doc, Required: required[name]}
		if err := obj.apply(g, f, doc.Path); err != nil {
			return nil, err
		}
	}

	return obj, nil
}

// apply inserts or overrides a field. Overrides keep the existing
// position; requiredness is the union of base and override, since the
// extension model has no way to un-require an inherited field.
func (o *Object) apply(g *resolver.Graph, f Field, at string) error {
	for i := range o.Fields {
		if o.Fields[i].Name != f.Name {
			continue
		}
		if err := checkOverride(g, o.Fields[i], f, at); err != nil {
			return err
		}
		f.Required = f.Required || o.Fields[i].Required
		o.Fields[i] = f
		return nil
	}
	o.Fields = append(o.Fields, f)
	return nil
}

// checkOverride rejects overrides that change a field's fundamental
// type, e.g. a base string field redeclared as a number. Narrowing
// within a type (enum, const, tighter bounds) is allowed.
func checkOverride(g *resolver.Graph, base, override Field, at string) error {
	baseType := fundamentalType(g, base.Doc, base.Node)
	overrideType := fundamentalType(g, override.Doc, override.Node)
	if baseType == "" || overrideType == "" || baseType == overrideType {
		return nil
	}
	return errors.At(errors.KindCompositionConflict,
		[]string{at, "field " + override.Name},
		"override changes fundamental type from %s to %s", baseType, overrideType)
}

// fundamentalType reports a node's JSON type family, following
// references and inferring from const/enum when the type keyword is
// absent. Returns "" when the type cannot be determined.
func fundamentalType(g *resolver.Graph, doc *schema.Document, n *schema.Node) string {
	doc, n = g.Deref(doc, n)
	if types, _ := n.Types.NonNull(); len(types) == 1 {
		return types[0]
	}
	if n.Const != nil {
		return jsonTypeOf(n.Const)
	}
	if len(n.Enum) > 0 {
		t := jsonTypeOf(n.Enum[0])
		for _, v := range n.Enum[1:] {
			if jsonTypeOf(v) != t {
				return ""
			}
		}
		return t
	}
	if n.Properties.Len() > 0 || len(n.AllOf) > 0 {
		return "object"
	}
	return ""
}

func jsonTypeOf(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, int, int64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return ""
	}
}
