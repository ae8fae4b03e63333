// Package golang emits Go struct bindings: one file per entity in a
// single generated package, each with a strict decoder and a Validate
// method that reports every violated field, plus an index file naming
// all generated entities.
package golang

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/delorenj/holyfields/internal/emit"
	"github.com/delorenj/holyfields/internal/errors"
	"github.com/delorenj/holyfields/internal/ir"
)

func init() {
	emit.Register("go", func() emit.Emitter { return &Emitter{} })
}

// Emitter renders Go bindings.
type Emitter struct{}

// Name returns the target identifier.
func (e *Emitter) Name() string { return "go" }

// Binding returns the runtime twin of the emitted Go binding.
func (e *Emitter) Binding(entity *ir.Entity) emit.Binding {
	return &binding{entity: entity}
}

// PackageName is the package emitted Go bindings live in.
const PackageName = "contracts"

// Emit renders every entity file, the shared error types, and the
// index file.
func (e *Emitter) Emit(mod *ir.Module) (*emit.Output, error) {
	out := &emit.Output{Target: "go"}
	names := make([]string, 0, len(mod.Entities))
	for _, entity := range mod.Entities {
		content, err := renderFile(entity)
		if err != nil {
			return nil, err
		}
		out.Files = append(out.Files, emit.File{Path: goPath(entity), Content: content})
		names = append(names, entity.Name)
	}
	out.Files = append(out.Files, emit.File{Path: "errors.go", Content: renderSupport()})
	out.Files = append(out.Files, emit.File{Path: "index.go", Content: renderIndex(names)})
	return out, nil
}

func goPath(e *ir.Entity) string {
	name := ir.SnakeCase(e.Name) + ".go"
	if e.Component == "" {
		return name
	}
	return strings.ReplaceAll(e.Component, "-", "_") + "_" + name
}

func renderIndex(names []string) []byte {
	sort.Strings(names)
	var b strings.Builder
	b.WriteString("// Code generated by holyfields. DO NOT EDIT.\n\n")
	fmt.Fprintf(&b, "package %s\n\n", PackageName)
	b.WriteString("// Entities enumerates every generated entity in this package.\nvar Entities = []string{\n")
	for _, n := range names {
		fmt.Fprintf(&b, "\t%q,\n", n)
	}
	b.WriteString("}\n")
	return []byte(b.String())
}

// renderSupport emits the shared violation types every Validate method
// reports with, plus the format helpers.
func renderSupport() []byte {
	return []byte(`// Code generated by holyfields. DO NOT EDIT.

package ` + PackageName + `

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FieldError is a single constraint violation.
type FieldError struct {
	Path    string
	Code    string
	Message string
}

// ValidationError reports every violated field, not just the first.
type ValidationError struct {
	Fields []FieldError
}

// Error summarizes the violations.
func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s at %s", f.Code, f.Path))
	}
	return strings.Join(parts, "; ")
}

func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

func isRFC3339(s string) bool {
	_, err := time.Parse(time.RFC3339, s)
	return err == nil
}

// hasDuplicates reports whether two items share the same JSON encoding.
func hasDuplicates[T any](items []T) bool {
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		enc, err := json.Marshal(item)
		if err != nil {
			continue
		}
		if _, dup := seen[string(enc)]; dup {
			return true
		}
		seen[string(enc)] = struct{}{}
	}
	return false
}
`)
}

func renderFile(entity *ir.Entity) ([]byte, error) {
	g := &gen{imports: map[string]bool{}}
	if err := g.entity(entity); err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString("// Code generated by holyfields. DO NOT EDIT.\n")
	fmt.Fprintf(&b, "// Source: %s", entity.Document)
	if entity.Version != "" {
		fmt.Fprintf(&b, " (version %s)", entity.Version)
	}
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "package %s\n\n", PackageName)
	if len(g.imports) > 0 {
		b.WriteString("import (\n")
		for _, imp := range sortedKeys(g.imports) {
			fmt.Fprintf(&b, "\t%q\n", imp)
		}
		b.WriteString(")\n\n")
	}
	b.WriteString(g.body.String())
	return []byte(b.String()), nil
}

type gen struct {
	body    strings.Builder
	imports map[string]bool
	emitted map[string]bool
}

// entity renders enum types, nested structs, the entity struct, its
// decoder, and its Validate method.
func (g *gen) entity(entity *ir.Entity) error {
	if g.emitted == nil {
		g.emitted = map[string]bool{}
	}
	if g.emitted[entity.Name] {
		return nil
	}
	g.emitted[entity.Name] = true

	for i := range entity.Fields {
		g.enumType(entity, &entity.Fields[i])
	}
	for _, nested := range entity.Nested {
		if err := g.entity(nested); err != nil {
			return err
		}
	}

	doc := entity.Description
	if doc == "" {
		doc = entity.Name + " is a generated event payload."
	}
	fmt.Fprintf(&g.body, "// %s %s\n", entity.Name, lowerDocTail(doc))
	fmt.Fprintf(&g.body, "type %s struct {\n", entity.Name)
	for i := range entity.Fields {
		f := &entity.Fields[i]
		goType, err := g.goType(entity, f, &f.Type)
		if err != nil {
			return err
		}
		tag := f.Name
		if !f.Required {
			// Optional slices stay nil-able without a pointer wrapper.
			if f.Type.Kind != ir.KindArray {
				goType = "*" + goType
			}
			tag += ",omitempty"
		}
		fmt.Fprintf(&g.body, "\t%s %s `json:%q`\n", ir.Pascal(f.Name), goType, tag)
	}
	g.body.WriteString("}\n\n")

	g.decoder(entity)
	g.validate(entity)

	if entity.RoutingKey != "" {
		fmt.Fprintf(&g.body, "// RoutingKey returns the broker routing key for this event.\nfunc (%s) RoutingKey() string { return %q }\n\n", entity.Name, entity.RoutingKey)
	}
	return nil
}

func (g *gen) decoder(entity *ir.Entity) {
	g.imports["bytes"] = true
	g.imports["encoding/json"] = true
	fmt.Fprintf(&g.body, `// Decode%[1]s parses and validates a %[1]s payload. Unknown fields
// are rejected, absent required fields are reported explicitly, and
// every constraint violation is reported.
func Decode%[1]s(data []byte) (*%[1]s, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if fields := checkRequired%[1]s(raw, ""); len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var v %[1]s
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return &v, nil
}

`, entity.Name)
	g.requiredCheck(entity)
}

// requiredCheck renders the presence pass Decode runs before the
// strict decoder: required keys must exist and must not be null, in
// nested objects and array elements too. A null value counts as
// absent everywhere.
func (g *gen) requiredCheck(entity *ir.Entity) {
	fmt.Fprintf(&g.body, "func checkRequired%s(raw map[string]json.RawMessage, path string) []FieldError {\n", entity.Name)
	g.body.WriteString("\tvar fields []FieldError\n")

	var required []string
	for i := range entity.Fields {
		if entity.Fields[i].Required {
			required = append(required, entity.Fields[i].Name)
		}
	}
	if len(required) > 0 {
		quoted := make([]string, len(required))
		for i, name := range required {
			quoted[i] = strconv.Quote(name)
		}
		fmt.Fprintf(&g.body, "\tfor _, name := range []string{%s} {\n", strings.Join(quoted, ", "))
		g.body.WriteString("\t\tif r, ok := raw[name]; !ok || string(r) == \"null\" {\n")
		g.body.WriteString("\t\t\tfields = append(fields, FieldError{Path: path + \"/\" + name, Code: \"required\", Message: \"missing required field\"})\n")
		g.body.WriteString("\t\t}\n\t}\n")
	}

	for i := range entity.Fields {
		f := &entity.Fields[i]
		switch {
		case f.Type.Kind == ir.KindObject:
			fmt.Fprintf(&g.body, "\tif r, ok := raw[%q]; ok && string(r) != \"null\" {\n", f.Name)
			g.body.WriteString("\t\tvar nested map[string]json.RawMessage\n")
			g.body.WriteString("\t\tif err := json.Unmarshal(r, &nested); err == nil {\n")
			fmt.Fprintf(&g.body, "\t\t\tfields = append(fields, checkRequired%s(nested, path+%q)...)\n", f.Type.Entity.Name, "/"+f.Name)
			g.body.WriteString("\t\t}\n\t}\n")
		case f.Type.Kind == ir.KindArray && f.Type.Elem.Kind == ir.KindObject:
			g.imports["fmt"] = true
			fmt.Fprintf(&g.body, "\tif r, ok := raw[%q]; ok && string(r) != \"null\" {\n", f.Name)
			g.body.WriteString("\t\tvar elems []json.RawMessage\n")
			g.body.WriteString("\t\tif err := json.Unmarshal(r, &elems); err == nil {\n")
			g.body.WriteString("\t\t\tfor i, er := range elems {\n")
			g.body.WriteString("\t\t\t\tvar nested map[string]json.RawMessage\n")
			g.body.WriteString("\t\t\t\tif err := json.Unmarshal(er, &nested); err == nil {\n")
			fmt.Fprintf(&g.body, "\t\t\t\t\tfields = append(fields, checkRequired%s(nested, fmt.Sprintf(%q, path, i))...)\n", f.Type.Elem.Entity.Name, "%s/"+f.Name+"/%d")
			g.body.WriteString("\t\t\t\t}\n\t\t\t}\n\t\t}\n\t}\n")
		}
	}

	g.body.WriteString("\treturn fields\n}\n\n")
}

// validate renders the Validate method, one block per constrained
// field.
func (g *gen) validate(entity *ir.Entity) {
	fmt.Fprintf(&g.body, "// Validate checks every field constraint, returning a\n// *ValidationError naming each violated field.\nfunc (v *%s) Validate() error {\n\tvar fields []FieldError\n", entity.Name)
	for i := range entity.Fields {
		g.fieldChecks(entity, &entity.Fields[i])
	}
	g.body.WriteString("\tif len(fields) > 0 {\n\t\treturn &ValidationError{Fields: fields}\n\t}\n\treturn nil\n}\n\n")
}

func (g *gen) fieldChecks(entity *ir.Entity, f *ir.Field) {
	accessor := "v." + ir.Pascal(f.Name)
	indent := "\t"
	if !f.Required {
		fmt.Fprintf(&g.body, "\tif %s != nil {\n", accessor)
		if f.Type.Kind != ir.KindArray {
			accessor = "(*" + accessor + ")"
		}
		indent = "\t\t"
	}
	g.valueChecks(&f.Type, f.Constraints, accessor, pathRef{format: "/" + f.Name}, indent)
	if !f.Required {
		g.body.WriteString("\t}\n")
	}
}

// pathRef is the issue path of a checked value as a Go expression:
// a string literal for fields, a fmt.Sprintf call once an array index
// enters the path.
type pathRef struct {
	format string
	args   []string
}

func (p pathRef) expr() string {
	if len(p.args) == 0 {
		return strconv.Quote(p.format)
	}
	return fmt.Sprintf("fmt.Sprintf(%q, %s)", p.format, strings.Join(p.args, ", "))
}

func (p pathRef) index(idx string) pathRef {
	args := make([]string, 0, len(p.args)+1)
	args = append(args, p.args...)
	return pathRef{format: p.format + "/%d", args: append(args, idx)}
}

// hasValueChecks reports whether Validate has anything to render for a
// value of this type, deciding whether array elements need a loop.
func hasValueChecks(typ *ir.Type) bool {
	if typ.Kind == ir.KindObject {
		return true
	}
	if len(typ.ConstraintKinds()) > 0 {
		return true
	}
	if typ.Kind == ir.KindArray {
		return hasValueChecks(typ.Elem)
	}
	return false
}

// valueChecks renders the constraint checks for one value. The
// constraints argument is the field's own set at the top level and the
// item schema's set for array elements.
func (g *gen) valueChecks(typ *ir.Type, c ir.Constraints, accessor string, path pathRef, indent string) {
	emitCheck := func(cond, code, format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		fmt.Fprintf(&g.body, "%sif %s {\n%s\tfields = append(fields, FieldError{Path: %s, Code: %q, Message: %q})\n%s}\n",
			indent, cond, indent, path.expr(), code, msg, indent)
	}

	switch typ.Kind {
	case ir.KindString:
		switch c.Format {
		case "uuid":
			emitCheck(fmt.Sprintf("!isUUID(%s)", accessor), "invalid_format", "must be a valid uuid")
		case "date-time":
			emitCheck(fmt.Sprintf("!isRFC3339(%s)", accessor), "invalid_format", "must be a valid RFC 3339 timestamp")
		}
		if c.MinLength != nil {
			g.imports["unicode/utf8"] = true
			emitCheck(fmt.Sprintf("utf8.RuneCountInString(%s) < %d", accessor, *c.MinLength), "too_short", "must have at least %d characters", *c.MinLength)
		}
		if c.MaxLength != nil {
			g.imports["unicode/utf8"] = true
			emitCheck(fmt.Sprintf("utf8.RuneCountInString(%s) > %d", accessor, *c.MaxLength), "too_long", "must have at most %d characters", *c.MaxLength)
		}
		if c.Pattern != "" {
			g.imports["regexp"] = true
			emitCheck(fmt.Sprintf("!regexp.MustCompile(%q).MatchString(%s)", c.Pattern, accessor), "pattern", "must match %s", c.Pattern)
		}
	case ir.KindInt, ir.KindFloat:
		if c.Minimum != nil {
			emitCheck(fmt.Sprintf("%s < %s", accessor, formatNum(typ, *c.Minimum)), "too_small", "must be >= %v", *c.Minimum)
		}
		if c.ExclusiveMinimum != nil {
			emitCheck(fmt.Sprintf("%s <= %s", accessor, formatNum(typ, *c.ExclusiveMinimum)), "too_small", "must be > %v", *c.ExclusiveMinimum)
		}
		if c.Maximum != nil {
			emitCheck(fmt.Sprintf("%s > %s", accessor, formatNum(typ, *c.Maximum)), "too_big", "must be <= %v", *c.Maximum)
		}
		if c.ExclusiveMaximum != nil {
			emitCheck(fmt.Sprintf("%s >= %s", accessor, formatNum(typ, *c.ExclusiveMaximum)), "too_big", "must be < %v", *c.ExclusiveMaximum)
		}
	case ir.KindLiteral:
		emitCheck(fmt.Sprintf("%s != %q", accessor, typ.Literal), "invalid_const", "must be %q", typ.Literal)
	case ir.KindEnum:
		emitCheck(fmt.Sprintf("!%s.valid()", accessor), "invalid_enum", "not a valid enumeration member")
	case ir.KindObject:
		fmt.Fprintf(&g.body, "%sif err := %s.Validate(); err != nil {\n%s\tif verr, ok := err.(*ValidationError); ok {\n%s\t\tfor _, fe := range verr.Fields {\n%s\t\t\tfields = append(fields, FieldError{Path: %s + fe.Path, Code: fe.Code, Message: fe.Message})\n%s\t\t}\n%s\t}\n%s}\n",
			indent, accessor, indent, indent, indent, path.expr(), indent, indent, indent)
	case ir.KindArray:
		if c.MinItems != nil {
			emitCheck(fmt.Sprintf("len(%s) < %d", accessor, *c.MinItems), "too_short", "must have at least %d items", *c.MinItems)
		}
		if c.MaxItems != nil {
			emitCheck(fmt.Sprintf("len(%s) > %d", accessor, *c.MaxItems), "too_long", "must have at most %d items", *c.MaxItems)
		}
		if c.UniqueItems {
			emitCheck(fmt.Sprintf("hasDuplicates(%s)", accessor), "not_unique", "items must be unique")
		}
		if hasValueChecks(typ.Elem) {
			g.imports["fmt"] = true
			idx, item := "i", "item"
			if depth := len(path.args); depth > 0 {
				idx = fmt.Sprintf("i%d", depth+1)
				item = fmt.Sprintf("item%d", depth+1)
			}
			fmt.Fprintf(&g.body, "%sfor %s, %s := range %s {\n", indent, idx, item, accessor)
			g.valueChecks(typ.Elem, typ.Elem.Constraints, item, path.index(idx), indent+"\t")
			fmt.Fprintf(&g.body, "%s}\n", indent)
		}
	}
}

func (g *gen) enumType(entity *ir.Entity, f *ir.Field) {
	typ := &f.Type
	if typ.Kind == ir.KindArray {
		typ = typ.Elem
	}
	if typ.Kind != ir.KindEnum {
		return
	}
	name := typ.EnumName
	if name == "" {
		name = entity.Name + ir.Pascal(f.Name)
	}
	if g.emitted[name] {
		return
	}
	g.emitted[name] = true

	fmt.Fprintf(&g.body, "// %s is the valid value set for %s.\ntype %s string\n\nconst (\n", name, f.Name, name)
	for _, member := range typ.Enum {
		fmt.Fprintf(&g.body, "\t%s%s %s = %q\n", name, ir.Pascal(member), name, member)
	}
	g.body.WriteString(")\n\n")
	fmt.Fprintf(&g.body, "func (v %s) valid() bool {\n\tswitch v {\n\tcase ", name)
	refs := make([]string, 0, len(typ.Enum))
	for _, member := range typ.Enum {
		refs = append(refs, name+ir.Pascal(member))
	}
	fmt.Fprintf(&g.body, "%s:\n\t\treturn true\n\t}\n\treturn false\n}\n\n", strings.Join(refs, ", "))
}

func (g *gen) goType(entity *ir.Entity, f *ir.Field, typ *ir.Type) (string, error) {
	switch typ.Kind {
	case ir.KindString, ir.KindLiteral:
		return "string", nil
	case ir.KindInt:
		return "int64", nil
	case ir.KindFloat:
		return "float64", nil
	case ir.KindBool:
		return "bool", nil
	case ir.KindEnum:
		if typ.EnumName != "" {
			return typ.EnumName, nil
		}
		return entity.Name + ir.Pascal(f.Name), nil
	case ir.KindObject:
		return typ.Entity.Name, nil
	case ir.KindArray:
		elem, err := g.goType(entity, f, typ.Elem)
		if err != nil {
			return "", err
		}
		return "[]" + elem, nil
	default:
		return "", errors.At(errors.KindEmissionFailure,
			[]string{entity.Document, entity.Name, "field " + f.Name},
			"go target cannot render type %s", typ.Kind)
	}
}

func formatNum(typ *ir.Type, f float64) string {
	if typ.Kind == ir.KindInt && f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func lowerDocTail(doc string) string {
	if doc == "" {
		return ""
	}
	return strings.ToLower(doc[:1]) + doc[1:]
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
