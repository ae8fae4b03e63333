// Package typescript emits Zod schema bindings: one module per entity
// exporting the schema object and its inferred type, plus an index
// barrel re-exporting every generated entity.
package typescript

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
	emit.Register("typescript", func() emit.Emitter { return &Emitter{} })
}

// Emitter renders TypeScript bindings.
type Emitter struct{}

// Name returns the target identifier.
func (e *Emitter) Name() string { return "typescript" }

// Binding returns the runtime twin of the emitted Zod schema.
func (e *Emitter) Binding(entity *ir.Entity) emit.Binding {
	return newBinding(entity)
}

// Emit renders every entity module plus the index barrel.
func (e *Emitter) Emit(mod *ir.Module) (*emit.Output, error) {
	out := &emit.Output{Target: "typescript"}
	for _, entity := range mod.Entities {
		content, err := renderModule(entity)
		if err != nil {
			return nil, err
		}
		out.Files = append(out.Files, emit.File{Path: tsPath(entity), Content: content})
	}
	out.Files = append(out.Files, emit.File{Path: "index.ts", Content: renderIndex(mod)})
	return out, nil
}

func tsPath(e *ir.Entity) string {
	name := ir.SnakeCase(e.Name) + ".ts"
	if e.Component == "" {
		return name
	}
	return e.Component + "/" + name
}

func renderIndex(mod *ir.Module) []byte {
	paths := make([]string, 0, len(mod.Entities))
	for _, e := range mod.Entities {
		paths = append(paths, strings.TrimSuffix(tsPath(e), ".ts"))
	}
	sort.Strings(paths)
	var b strings.Builder
	b.WriteString("// Generated event contract bindings. DO NOT EDIT MANUALLY.\n\n")
	for _, p := range paths {
		fmt.Fprintf(&b, "export * from \"./%s\";\n", p)
	}
	return []byte(b.String())
}

func renderModule(entity *ir.Entity) ([]byte, error) {
	w := &writer{imports: map[string]bool{}}
	if err := w.entitySchema(entity); err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "// %s binding. DO NOT EDIT MANUALLY. Generated from %s", entity.Name, entity.Document)
	if entity.Version != "" {
		fmt.Fprintf(&b, " (version %s)", entity.Version)
	}
	b.WriteString(".\n\nimport { z } from \"zod\";\n")
	for _, line := range sortedKeys(w.imports) {
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")
	b.WriteString(w.body.String())
	return []byte(b.String()), nil
}

type writer struct {
	body    strings.Builder
	imports map[string]bool
	emitted map[string]bool
}

// entitySchema renders nested schemas depth-first, then the entity
// schema and its inferred type.
func (w *writer) entitySchema(entity *ir.Entity) error {
	if w.emitted == nil {
		w.emitted = map[string]bool{}
	}
	if w.emitted[entity.Name] {
		return nil
	}
	w.emitted[entity.Name] = true

	for _, nested := range entity.Nested {
		if err := w.entitySchema(nested); err != nil {
			return err
		}
	}

	if entity.Description != "" {
		fmt.Fprintf(&w.body, "/** %s */\n", entity.Description)
	}
	fmt.Fprintf(&w.body, "export const %sSchema = z\n  .object({\n", entity.Name)
	for i := range entity.Fields {
		expr, err := w.fieldExpr(entity, &entity.Fields[i])
		if err != nil {
			return err
		}
		fmt.Fprintf(&w.body, "    %s: %s,\n", entity.Fields[i].Name, expr)
	}
	w.body.WriteString("  })\n  .strict();\n\n")
	fmt.Fprintf(&w.body, "export type %s = z.infer<typeof %sSchema>;\n\n", entity.Name, entity.Name)

	if entity.RoutingKey != "" {
		fmt.Fprintf(&w.body, "export const %sRoutingKey = %q;\n\n", lowerFirst(entity.Name), entity.RoutingKey)
	}
	return nil
}

func (w *writer) fieldExpr(entity *ir.Entity, f *ir.Field) (string, error) {
	expr, err := w.typeExpr(entity, f, &f.Type, f.Constraints)
	if err != nil {
		return "", err
	}
	if !f.Required {
		expr += ".nullish()"
	}
	if f.Description != "" {
		expr += fmt.Sprintf(".describe(%q)", f.Description)
	}
	return expr, nil
}

// typeExpr chooses the native Zod construct for an IR type. Format
// keywords map to Zod's own validators; there is no post-generation
// patching. The constraints argument is the field's own set at the top
// level and the item schema's set for array elements.
func (w *writer) typeExpr(entity *ir.Entity, f *ir.Field, typ *ir.Type, c ir.Constraints) (string, error) {
	switch typ.Kind {
	case ir.KindString:
		expr := "z.string()"
		switch c.Format {
		case "uuid":
			expr += ".uuid()"
		case "date-time":
			expr += ".datetime({ offset: true })"
		}
		if c.MinLength != nil {
			expr += ".min(" + strconv.Itoa(*c.MinLength) + ")"
		}
		if c.MaxLength != nil {
			expr += ".max(" + strconv.Itoa(*c.MaxLength) + ")"
		}
		if c.Pattern != "" {
			expr += ".regex(" + regexLiteral(c.Pattern) + ")"
		}
		return expr, nil
	case ir.KindInt:
		return "z.number().int()" + numericChain(c), nil
	case ir.KindFloat:
		return "z.number()" + numericChain(c), nil
	case ir.KindBool:
		return "z.boolean()", nil
	case ir.KindLiteral:
		return fmt.Sprintf("z.literal(%q)", typ.Literal), nil
	case ir.KindEnum:
		members := make([]string, len(typ.Enum))
		for i, m := range typ.Enum {
			members[i] = strconv.Quote(m)
		}
		return "z.enum([" + strings.Join(members, ", ") + "])", nil
	case ir.KindObject:
		w.importEntity(entity, typ.Entity)
		return typ.Entity.Name + "Schema", nil
	case ir.KindArray:
		elem, err := w.typeExpr(entity, f, typ.Elem, typ.Elem.Constraints)
		if err != nil {
			return "", err
		}
		expr := "z.array(" + elem + ")"
		if c.MinItems != nil {
			expr += ".min(" + strconv.Itoa(*c.MinItems) + ")"
		}
		if c.MaxItems != nil {
			expr += ".max(" + strconv.Itoa(*c.MaxItems) + ")"
		}
		if c.UniqueItems {
			expr += ".refine((xs) => new Set(xs.map((x) => JSON.stringify(x))).size === xs.length, { message: \"items must be unique\" })"
		}
		return expr, nil
	default:
		return "", errors.At(errors.KindEmissionFailure,
			[]string{entity.Document, entity.Name, "field " + f.Name},
			"typescript target cannot render type %s", typ.Kind)
	}
}

func (w *writer) importEntity(from, target *ir.Entity) {
	if isLocal(from, target) {
		return
	}
	rel := ir.SnakeCase(target.Name)
	if target.Component == from.Component {
		rel = "./" + rel
	} else if target.Component == "" {
		rel = "../" + rel
	} else if from.Component == "" {
		rel = "./" + target.Component + "/" + rel
	} else {
		rel = "../" + target.Component + "/" + rel
	}
	w.imports[fmt.Sprintf("import { %sSchema } from %q;", target.Name, rel)] = true
}

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

func numericChain(c ir.Constraints) string {
	var b strings.Builder
	if c.Minimum != nil {
		b.WriteString(".gte(" + formatFloat(*c.Minimum) + ")")
	}
	if c.ExclusiveMinimum != nil {
		b.WriteString(".gt(" + formatFloat(*c.ExclusiveMinimum) + ")")
	}
	if c.Maximum != nil {
		b.WriteString(".lte(" + formatFloat(*c.Maximum) + ")")
	}
	if c.ExclusiveMaximum != nil {
		b.WriteString(".lt(" + formatFloat(*c.ExclusiveMaximum) + ")")
	}
	return b.String()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func regexLiteral(pattern string) string {
	return "/" + strings.ReplaceAll(pattern, "/", `\/`) + "/"
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
