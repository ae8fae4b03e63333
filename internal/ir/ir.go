// Package ir defines the canonical, language-neutral type model the
// emitters consume, and the builder that produces it from resolved,
// composed schema documents. Entities form a tree, never a cycle; the
// resolver guarantees cyclic references were rejected before the
// builder runs.
package ir

import "sort"

// Kind classifies a field type.
type Kind int

const (
	// KindString is a plain string field.
	KindString Kind = iota
	// KindInt is an integer field.
	KindInt
	// KindFloat is a floating-point field.
	KindFloat
	// KindBool is a boolean field.
	KindBool
	// KindEnum is a string field restricted to a fixed value set.
	KindEnum
	// KindLiteral is a discriminator field fixed to a single value.
	KindLiteral
	// KindObject is a nested or shared entity reference.
	KindObject
	// KindArray is an array field.
	KindArray
)

// String returns the string representation of a Kind.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindEnum:
		return "enum"
	case KindLiteral:
		return "literal"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// Type is a field's semantic type.
type Type struct {
	Kind    Kind
	Entity  *Entity  // KindObject: the referenced entity
	Elem    *Type    // KindArray: element type
	Enum    []string // KindEnum: members in declaration order
	// EnumName carries the $defs name when the enum was declared as a
	// named definition, so emitters can render a named enum type
	// instead of an anonymous one.
	EnumName string
	Literal  string // KindLiteral: the fixed value
	// Constraints restricts values of this type when it appears as an
	// array element; the builder fills it from the item schema. A
	// field's own constraints live on Field.Constraints.
	Constraints Constraints
}

// Constraints are the value restrictions attached to a field. Every
// emitter must enforce them identically.
type Constraints struct {
	MinLength        *int
	MaxLength        *int
	Pattern          string
	Format           string
	Minimum          *float64
	Maximum          *float64
	ExclusiveMinimum *float64
	ExclusiveMaximum *float64
	MinItems         *int
	MaxItems         *int
	UniqueItems      bool
}

// ConstraintKind names one enforceable constraint for verification.
type ConstraintKind string

const (
	ConstraintMinLength        ConstraintKind = "minLength"
	ConstraintMaxLength        ConstraintKind = "maxLength"
	ConstraintPattern          ConstraintKind = "pattern"
	ConstraintFormat           ConstraintKind = "format"
	ConstraintMinimum          ConstraintKind = "minimum"
	ConstraintMaximum          ConstraintKind = "maximum"
	ConstraintExclusiveMinimum ConstraintKind = "exclusiveMinimum"
	ConstraintExclusiveMaximum ConstraintKind = "exclusiveMaximum"
	ConstraintMinItems         ConstraintKind = "minItems"
	ConstraintMaxItems         ConstraintKind = "maxItems"
	ConstraintUniqueItems      ConstraintKind = "uniqueItems"
	ConstraintEnum             ConstraintKind = "enum"
	ConstraintLiteral          ConstraintKind = "const"
	ConstraintRequired         ConstraintKind = "required"
)

// Field is one entity field: name, semantic type, optionality, and
// constraints.
type Field struct {
	Name        string
	Description string
	Type        Type
	// Required reports whether the field must be present. A field the
	// source spelled as type-or-null is uniformly optional here,
	// regardless of how the schema spelled it.
	Required    bool
	Constraints Constraints
	Examples    []any
}

// ConstraintKinds lists the constraints present on the field, in a
// stable order, for per-constraint verification.
func (f *Field) ConstraintKinds() []ConstraintKind {
	return constraintKinds(f.Constraints, f.Type.Kind)
}

// ConstraintKinds lists the constraints enforceable on values of this
// type, used when verifying array elements.
func (t *Type) ConstraintKinds() []ConstraintKind {
	return constraintKinds(t.Constraints, t.Kind)
}

func constraintKinds(c Constraints, kind Kind) []ConstraintKind {
	var kinds []ConstraintKind
	if c.MinLength != nil {
		kinds = append(kinds, ConstraintMinLength)
	}
	if c.MaxLength != nil {
		kinds = append(kinds, ConstraintMaxLength)
	}
	if c.Pattern != "" {
		kinds = append(kinds, ConstraintPattern)
	}
	if c.Format != "" {
		kinds = append(kinds, ConstraintFormat)
	}
	if c.Minimum != nil {
		kinds = append(kinds, ConstraintMinimum)
	}
	if c.Maximum != nil {
		kinds = append(kinds, ConstraintMaximum)
	}
	if c.ExclusiveMinimum != nil {
		kinds = append(kinds, ConstraintExclusiveMinimum)
	}
	if c.ExclusiveMaximum != nil {
		kinds = append(kinds, ConstraintExclusiveMaximum)
	}
	if c.MinItems != nil {
		kinds = append(kinds, ConstraintMinItems)
	}
	if c.MaxItems != nil {
		kinds = append(kinds, ConstraintMaxItems)
	}
	if c.UniqueItems {
		kinds = append(kinds, ConstraintUniqueItems)
	}
	if kind == KindEnum {
		kinds = append(kinds, ConstraintEnum)
	}
	if kind == KindLiteral {
		kinds = append(kinds, ConstraintLiteral)
	}
	return kinds
}

// Entity is a named record type: an ordered field sequence plus
// locally-scoped nested entities.
type Entity struct {
	Name        string
	Description string
	Document    string // canonical path of the source document
	Component   string
	Version     string // opaque component version label
	RoutingKey  string
	Fields      []Field
	Nested      []*Entity
}

// Field returns the field with the given name.
func (e *Entity) Field(name string) (*Field, bool) {
	for i := range e.Fields {
		if e.Fields[i].Name == name {
			return &e.Fields[i], true
		}
	}
	return nil, false
}

// Module is the complete IR for one compilation run.
type Module struct {
	Entities []*Entity
}

// Sort orders entities by (document path, entity name), the stable key
// every downstream consumer relies on for deterministic output.
func (m *Module) Sort() {
	sort.Slice(m.Entities, func(i, j int) bool {
		a, b := m.Entities[i], m.Entities[j]
		if a.Document != b.Document {
			return a.Document < b.Document
		}
		return a.Name < b.Name
	})
}

// Entity returns the top-level entity with the given name.
func (m *Module) Entity(name string) (*Entity, bool) {
	for _, e := range m.Entities {
		if e.Name == name {
			return e, true
		}
	}
	return nil, false
}
