package ir

import (
	"regexp"

	"github.com/delorenj/holyfields/internal/compose"
	"github.com/delorenj/holyfields/internal/errors"
	"github.com/delorenj/holyfields/internal/resolver"
	"github.com/delorenj/holyfields/internal/schema"
)

// Builder translates a resolved document set into the IR. The graph is
// read-only; the builder owns the entities it produces.
type Builder struct {
	graph    *resolver.Graph
	versions map[string]string

	// shared maps a schema node that backs an independently
	// referenceable entity (a document root or an exported object
	// $def) to that entity, so references to it become entity
	// references instead of duplicated nested types. nodes is the
	// reverse mapping.
	shared map[*schema.Node]*Entity
	nodes  map[*Entity]*schema.Node

	// defNames records the declared name of every $def node, so types
	// inlined from a named definition (enums in particular) keep their
	// name in the IR.
	defNames map[*schema.Node]string
}

// NewBuilder creates a Builder over a resolved graph. versions maps a
// component name to its opaque version label; the builder attaches the
// label without interpreting it.
func NewBuilder(graph *resolver.Graph, versions map[string]string) *Builder {
	return &Builder{
		graph:    graph,
		versions: versions,
		shared:   make(map[*schema.Node]*Entity),
		nodes:    make(map[*Entity]*schema.Node),
		defNames: make(map[*schema.Node]string),
	}
}

// Build produces the IR module for the whole document set. Entities are
// registered first so cross-document references resolve to shared
// entities, then filled in (document path, entity name) order.
func (b *Builder) Build() (*Module, error) {
	set := b.graph.Set()
	mod := &Module{}

	// Pass 1: register every independently referenceable entity.
	for _, docPath := range set.Paths() {
		doc, _ := set.Get(docPath)
		if doc.Root.IsObject() && !doc.Root.IsRef() {
			e := b.register(doc, doc.Root, EntityName(doc.Root.Title, doc.Path))
			mod.Entities = append(mod.Entities, e)
		}
		for _, name := range doc.DefinitionNames() {
			def, _ := doc.Definition(name)
			b.defNames[def] = Pascal(name)
			if def.IsObject() && !def.IsRef() {
				e := b.register(doc, def, Pascal(name))
				mod.Entities = append(mod.Entities, e)
			}
		}
	}
	mod.Sort()

	// Pass 2: compose and translate fields.
	for _, e := range mod.Entities {
		doc, _ := set.Get(e.Document)
		node := b.nodes[e]
		merged, err := compose.Merge(b.graph, doc, node)
		if err != nil {
			return nil, err
		}
		if e.Description == "" {
			e.Description = merged.Description
		}
		if e.RoutingKey == "" {
			e.RoutingKey = merged.RoutingKey
		}
		for _, mf := range merged.Fields {
			field, err := b.buildField(e, mf)
			if err != nil {
				return nil, err
			}
			e.Fields = append(e.Fields, field)
		}
	}

	return mod, nil
}

func (b *Builder) register(doc *schema.Document, node *schema.Node, name string) *Entity {
	e := &Entity{
		Name:        name,
		Description: node.Description,
		Document:    doc.Path,
		Component:   doc.Component,
		Version:     b.versions[doc.Component],
		RoutingKey:  node.RoutingKey,
	}
	b.shared[node] = e
	b.nodes[e] = node
	return e
}

// buildField translates one merged field into an IR field.
func (b *Builder) buildField(owner *Entity, mf compose.Field) (Field, error) {
	doc, node := b.graph.Deref(mf.Doc, mf.Node)

	field := Field{
		Name:        mf.Name,
		Description: node.Description,
		Required:    mf.Required,
		Examples:    node.Examples,
	}

	types, nullable := node.Types.NonNull()
	if nullable {
		// type-or-null is uniformly an optional field.
		field.Required = false
	}

	typ, err := b.buildType(owner, doc, node, types, mf.Name)
	if err != nil {
		return Field{}, err
	}
	field.Type = typ
	field.Constraints = constraintsOf(node)
	if p := field.Constraints.Pattern; p != "" {
		if _, err := regexp.Compile(p); err != nil {
			return Field{}, b.unsupported(owner, mf.Name, "pattern does not compile: "+err.Error())
		}
	}
	return field, nil
}

// buildType maps a schema node to a semantic type. The node has
// already been dereferenced.
func (b *Builder) buildType(owner *Entity, doc *schema.Document, node *schema.Node, types schema.TypeSet, fieldName string) (Type, error) {
	if node.Const != nil {
		lit, ok := node.Const.(string)
		if !ok {
			return Type{}, b.unsupported(owner, fieldName, "const values must be strings")
		}
		return Type{Kind: KindLiteral, Literal: lit}, nil
	}
	if len(node.Enum) > 0 {
		members := make([]string, 0, len(node.Enum))
		for _, v := range node.Enum {
			s, ok := v.(string)
			if !ok {
				return Type{}, b.unsupported(owner, fieldName, "enum members must be strings")
			}
			members = append(members, s)
		}
		return Type{Kind: KindEnum, Enum: members, EnumName: b.defNames[node]}, nil
	}

	if len(types) > 1 {
		return Type{}, b.unsupported(owner, fieldName, "polymorphic type unions cannot be represented")
	}

	typeName := ""
	if len(types) == 1 {
		typeName = types[0]
	} else if node.IsObject() {
		typeName = "object"
	}

	switch typeName {
	case "string":
		return Type{Kind: KindString}, nil
	case "integer":
		return Type{Kind: KindInt}, nil
	case "number":
		return Type{Kind: KindFloat}, nil
	case "boolean":
		return Type{Kind: KindBool}, nil
	case "array":
		if node.Items == nil {
			return Type{}, b.unsupported(owner, fieldName, "arrays must declare an item schema")
		}
		itemDoc, itemNode := b.graph.Deref(doc, node.Items)
		itemTypes, _ := itemNode.Types.NonNull()
		elem, err := b.buildType(owner, itemDoc, itemNode, itemTypes, fieldName+"[]")
		if err != nil {
			return Type{}, err
		}
		elem.Constraints = constraintsOf(itemNode)
		if p := elem.Constraints.Pattern; p != "" {
			if _, err := regexp.Compile(p); err != nil {
				return Type{}, b.unsupported(owner, fieldName+"[]", "pattern does not compile: "+err.Error())
			}
		}
		return Type{Kind: KindArray, Elem: &elem}, nil
	case "object":
		if shared, ok := b.shared[node]; ok && shared != owner {
			return Type{Kind: KindObject, Entity: shared}, nil
		}
		nested, err := b.buildNested(owner, doc, node, fieldName)
		if err != nil {
			return Type{}, err
		}
		return Type{Kind: KindObject, Entity: nested}, nil
	default:
		return Type{}, b.unsupported(owner, fieldName, "node declares no representable type")
	}
}

// buildNested translates an inline object into a locally-scoped entity
// owned by its parent.
func (b *Builder) buildNested(owner *Entity, doc *schema.Document, node *schema.Node, fieldName string) (*Entity, error) {
	nested := &Entity{
		Name:        owner.Name + Pascal(fieldName),
		Description: node.Description,
		Document:    owner.Document,
		Component:   owner.Component,
		Version:     owner.Version,
	}
	merged, err := compose.Merge(b.graph, doc, node)
	if err != nil {
		return nil, err
	}
	for _, mf := range merged.Fields {
		field, err := b.buildField(nested, mf)
		if err != nil {
			return nil, err
		}
		nested.Fields = append(nested.Fields, field)
	}
	owner.Nested = append(owner.Nested, nested)
	return nested, nil
}

func (b *Builder) unsupported(owner *Entity, fieldName, msg string) error {
	return errors.At(errors.KindUnsupportedConstruct,
		[]string{owner.Document, owner.Name, "field " + fieldName}, "%s", msg)
}

// constraintsOf extracts the constraint set from a schema node.
func constraintsOf(node *schema.Node) Constraints {
	return Constraints{
		MinLength:        node.MinLength,
		MaxLength:        node.MaxLength,
		Pattern:          node.Pattern,
		Format:           node.Format,
		Minimum:          node.Minimum,
		Maximum:          node.Maximum,
		ExclusiveMinimum: node.ExclusiveMinimum,
		ExclusiveMaximum: node.ExclusiveMaximum,
		MinItems:         node.MinItems,
		MaxItems:         node.MaxItems,
		UniqueItems:      node.UniqueItems,
	}
}
