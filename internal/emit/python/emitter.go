// Package python emits Pydantic model bindings: one module per entity,
// enum classes for named value sets, constrained types (constr, conint,
// confloat, conlist) for every field constraint, and a package
// __init__ barrel enumerating all generated entities.
package python

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
	emit.Register("python", func() emit.Emitter { return &Emitter{} })
}

// Emitter renders Python bindings.
type Emitter struct{}

// Name returns the target identifier.
func (e *Emitter) Name() string { return "python" }

// Binding returns the runtime twin of the emitted Pydantic model.
func (e *Emitter) Binding(entity *ir.Entity) emit.Binding {
	return &binding{entity: entity}
}

// Emit renders every entity module plus the package barrel.
func (e *Emitter) Emit(mod *ir.Module) (*emit.Output, error) {
	out := &emit.Output{Target: "python"}
	components := make(map[string][]*ir.Entity)

	for _, entity := range mod.Entities {
		content, err := renderModule(entity)
		if err != nil {
			return nil, err
		}
		out.Files = append(out.Files, emit.File{Path: modulePath(entity), Content: content})
		components[entity.Component] = append(components[entity.Component], entity)
	}

	// Component packages need their own __init__.
	names := make([]string, 0, len(components))
	for component := range components {
		if component != "" {
			names = append(names, component)
		}
	}
	sort.Strings(names)
	for _, component := range names {
		out.Files = append(out.Files, emit.File{
			Path:    component + "/__init__.py",
			Content: renderInit(components[component], false),
		})
	}
	out.Files = append(out.Files, emit.File{Path: "__init__.py", Content: renderInit(mod.Entities, true)})
	return out, nil
}

// modulePath is the emitted module file for an entity, mirroring the
// entity namespace.
func modulePath(e *ir.Entity) string {
	name := ir.SnakeCase(e.Name) + ".py"
	if e.Component == "" {
		return name
	}
	return e.Component + "/" + name
}

func moduleImport(e *ir.Entity) string {
	name := ir.SnakeCase(e.Name)
	if e.Component == "" {
		return name
	}
	return e.Component + "." + name
}

// renderInit renders an __init__.py barrel re-exporting entities. The
// root barrel enumerates every generated entity for the target.
func renderInit(entities []*ir.Entity, root bool) []byte {
	sorted := make([]*ir.Entity, len(entities))
	copy(sorted, entities)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var b strings.Builder
	b.WriteString("\"\"\"Generated event contract bindings. DO NOT EDIT MANUALLY.\"\"\"\n\n")
	names := make([]string, 0, len(sorted))
	for _, e := range sorted {
		ref := "." + ir.SnakeCase(e.Name)
		if root && e.Component != "" {
			ref = "." + e.Component + "." + ir.SnakeCase(e.Name)
		}
		fmt.Fprintf(&b, "from %s import %s\n", ref, e.Name)
		names = append(names, e.Name)
	}
	b.WriteString("\n__all__ = [\n")
	for _, n := range names {
		fmt.Fprintf(&b, "    %q,\n", n)
	}
	b.WriteString("]\n")
	return []byte(b.String())
}

// renderModule renders one entity module: enums first, then nested
// classes depth-first, then the entity class itself.
func renderModule(entity *ir.Entity) ([]byte, error) {
	r := &renderer{
		imports: map[string]map[string]bool{},
		seen:    map[string]bool{},
	}
	if err := r.renderEntity(entity); err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\"\"\"%s model.\n\nDO NOT EDIT MANUALLY. Generated from JSON Schema.\nSchema: %s\n", entity.Name, entity.Document)
	if entity.Version != "" {
		fmt.Fprintf(&b, "Version: %s\n", entity.Version)
	}
	b.WriteString("\"\"\"\n\n")
	b.WriteString(r.renderImports(entity))
	b.WriteString(r.body.String())
	return []byte(b.String()), nil
}

type renderer struct {
	body strings.Builder
	// imports maps a module to the names imported from it.
	imports map[string]map[string]bool
	// relative holds cross-module entity imports (import line text).
	relative []string
	seen     map[string]bool
}

func (r *renderer) need(module string, names ...string) {
	set, ok := r.imports[module]
	if !ok {
		set = map[string]bool{}
		r.imports[module] = set
	}
	for _, n := range names {
		set[n] = true
	}
}

func (r *renderer) renderImports(entity *ir.Entity) string {
	var b strings.Builder
	// Standard library first, then pydantic, then sibling modules.
	for _, module := range []string{"datetime", "enum", "typing", "uuid"} {
		if set, ok := r.imports[module]; ok {
			fmt.Fprintf(&b, "from %s import %s\n", module, joinSorted(set))
		}
	}
	if set, ok := r.imports["pydantic"]; ok {
		fmt.Fprintf(&b, "from pydantic import %s\n", joinSorted(set))
	}
	rel := dedupeSorted(r.relative)
	for _, line := range rel {
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")
	return b.String()
}

func joinSorted(set map[string]bool) string {
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func dedupeSorted(in []string) []string {
	sort.Strings(in)
	out := in[:0]
	var prev string
	for _, s := range in {
		if s != prev {
			out = append(out, s)
		}
		prev = s
	}
	return out
}

// renderEntity emits enum classes and nested classes needed by the
// entity, then the entity class.
func (r *renderer) renderEntity(entity *ir.Entity) error {
	if r.seen[entity.Name] {
		return nil
	}
	r.seen[entity.Name] = true

	// Enums referenced by this entity's fields, in field order.
	for i := range entity.Fields {
		r.renderEnums(entity, &entity.Fields[i])
	}
	// Nested entities before their parent.
	for _, nested := range entity.Nested {
		if err := r.renderEntity(nested); err != nil {
			return err
		}
	}

	r.need("pydantic", "BaseModel", "Field")
	fmt.Fprintf(&r.body, "class %s(BaseModel):\n", entity.Name)
	doc := entity.Description
	if doc == "" {
		doc = entity.Name + " payload."
	}
	fmt.Fprintf(&r.body, "    \"\"\"%s\"\"\"\n\n", escapeDocstring(doc))

	for i := range entity.Fields {
		line, err := r.fieldLine(entity, &entity.Fields[i])
		if err != nil {
			return err
		}
		r.body.WriteString(line)
	}
	if len(entity.Fields) == 0 {
		r.body.WriteString("    pass\n")
	}

	r.body.WriteString("\n    class Config:\n        extra = \"forbid\"\n")

	if entity.RoutingKey != "" {
		r.body.WriteString("\n    @classmethod\n    def get_routing_key(cls) -> str:\n")
		fmt.Fprintf(&r.body, "        return %q\n", entity.RoutingKey)
	}
	r.body.WriteString("\n\n")
	return nil
}

// renderEnums emits enum classes for a field (including array element
// enums), once per enum name.
func (r *renderer) renderEnums(entity *ir.Entity, f *ir.Field) {
	typ := &f.Type
	if typ.Kind == ir.KindArray {
		typ = typ.Elem
	}
	if typ.Kind != ir.KindEnum {
		return
	}
	name := enumClassName(entity, f, typ)
	if r.seen[name] {
		return
	}
	r.seen[name] = true

	r.need("enum", "Enum")
	fmt.Fprintf(&r.body, "class %s(str, Enum):\n", name)
	fmt.Fprintf(&r.body, "    \"\"\"Valid %s values.\"\"\"\n\n", f.Name)
	for _, member := range typ.Enum {
		fmt.Fprintf(&r.body, "    %s = %q\n", enumMemberName(member), member)
	}
	r.body.WriteString("\n\n")
}

func enumClassName(entity *ir.Entity, f *ir.Field, typ *ir.Type) string {
	if typ.EnumName != "" {
		return typ.EnumName
	}
	return entity.Name + ir.Pascal(f.Name)
}

// enumMemberName maps an enum value to a Python member identifier:
// "large-v2" becomes LARGE_V2.
func enumMemberName(value string) string {
	var b strings.Builder
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - 32)
		case (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name := b.String()
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		name = "V_" + name
	}
	return name
}

// fieldLine renders one field declaration with its constrained type
// and Field() metadata.
func (r *renderer) fieldLine(entity *ir.Entity, f *ir.Field) (string, error) {
	typ, err := r.pyType(entity, f, &f.Type, f.Constraints)
	if err != nil {
		return "", err
	}

	defaultArg := "..."
	if !f.Required {
		r.need("typing", "Optional")
		typ = "Optional[" + typ + "]"
		defaultArg = "None"
	}

	args := []string{defaultArg}
	if f.Description != "" {
		args = append(args, fmt.Sprintf("description=%q", f.Description))
	}
	return fmt.Sprintf("    %s: %s = Field(%s)\n", f.Name, typ, strings.Join(args, ", ")), nil
}

// pyType chooses the native Python construct for an IR type, handling
// format keywords with native types rather than post-generation fixes.
// The constraints argument is the field's own set at the top level and
// the item schema's set for array elements.
func (r *renderer) pyType(entity *ir.Entity, f *ir.Field, typ *ir.Type, c ir.Constraints) (string, error) {
	switch typ.Kind {
	case ir.KindString:
		switch c.Format {
		case "uuid":
			r.need("uuid", "UUID")
			return "UUID", nil
		case "date-time":
			r.need("datetime", "datetime")
			return "datetime", nil
		}
		var args []string
		if c.MinLength != nil {
			args = append(args, "min_length="+strconv.Itoa(*c.MinLength))
		}
		if c.MaxLength != nil {
			args = append(args, "max_length="+strconv.Itoa(*c.MaxLength))
		}
		if c.Pattern != "" {
			args = append(args, fmt.Sprintf("pattern=r%q", c.Pattern))
		}
		if len(args) == 0 {
			return "str", nil
		}
		r.need("pydantic", "constr")
		return "constr(" + strings.Join(args, ", ") + ")", nil
	case ir.KindInt:
		args := numericArgs(c)
		if len(args) == 0 {
			return "int", nil
		}
		r.need("pydantic", "conint")
		return "conint(" + strings.Join(args, ", ") + ")", nil
	case ir.KindFloat:
		args := numericArgs(c)
		if len(args) == 0 {
			return "float", nil
		}
		r.need("pydantic", "confloat")
		return "confloat(" + strings.Join(args, ", ") + ")", nil
	case ir.KindBool:
		return "bool", nil
	case ir.KindLiteral:
		r.need("typing", "Literal")
		return fmt.Sprintf("Literal[%q]", typ.Literal), nil
	case ir.KindEnum:
		return enumClassName(entity, f, typ), nil
	case ir.KindObject:
		r.importEntity(entity, typ.Entity)
		return typ.Entity.Name, nil
	case ir.KindArray:
		elem, err := r.pyType(entity, f, typ.Elem, typ.Elem.Constraints)
		if err != nil {
			return "", err
		}
		var args []string
		if c.MinItems != nil {
			args = append(args, "min_items="+strconv.Itoa(*c.MinItems))
		}
		if c.MaxItems != nil {
			args = append(args, "max_items="+strconv.Itoa(*c.MaxItems))
		}
		if c.UniqueItems {
			args = append(args, "unique_items=True")
		}
		if len(args) == 0 {
			return "list[" + elem + "]", nil
		}
		r.need("pydantic", "conlist")
		return fmt.Sprintf("conlist(%s, %s)", elem, strings.Join(args, ", ")), nil
	default:
		return "", errors.At(errors.KindEmissionFailure,
			[]string{entity.Document, entity.Name, "field " + f.Name},
			"python target cannot render type %s", typ.Kind)
	}
}

// importEntity records an import when a field references an entity
// defined in another module. Nested entities live in the same module
// and need no import.
func (r *renderer) importEntity(from *ir.Entity, target *ir.Entity) {
	if isLocal(from, target) {
		return
	}
	var line string
	switch {
	case target.Component == from.Component:
		line = fmt.Sprintf("from .%s import %s", ir.SnakeCase(target.Name), target.Name)
	default:
		line = fmt.Sprintf("from ..%s import %s", moduleImport(target), target.Name)
	}
	r.relative = append(r.relative, line)
}

// isLocal reports whether target is within owner's nested entity tree.
func isLocal(owner, target *ir.Entity) bool {
	if owner == target {
		return true
	}
	for _, nested := range owner.Nested {
		if isLocal(nested, target) {
			return true
		}
	}
	return false
}

func numericArgs(c ir.Constraints) []string {
	var args []string
	if c.Minimum != nil {
		args = append(args, "ge="+formatFloat(*c.Minimum))
	}
	if c.ExclusiveMinimum != nil {
		args = append(args, "gt="+formatFloat(*c.ExclusiveMinimum))
	}
	if c.Maximum != nil {
		args = append(args, "le="+formatFloat(*c.Maximum))
	}
	if c.ExclusiveMaximum != nil {
		args = append(args, "lt="+formatFloat(*c.ExclusiveMaximum))
	}
	return args
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func escapeDocstring(s string) string {
	return strings.ReplaceAll(s, `"""`, `\"\"\"`)
}
