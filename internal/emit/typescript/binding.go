package typescript

import (
	"fmt"
	"math"
	"regexp"
	"time"
	"unicode/utf8"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/delorenj/holyfields/internal/emit"
	"github.com/delorenj/holyfields/internal/ir"
)

// binding is the runtime twin of the emitted Zod schema. Like Zod it
// compiles the schema into a checker tree once, then runs payloads
// through it collecting every issue.
type binding struct {
	check checkFn
}

// checkFn validates one value, appending issues, and returns the
// canonical decoded form.
type checkFn func(value any, path string, iss *emit.Issues) (any, bool)

func newBinding(entity *ir.Entity) *binding {
	return &binding{check: compileObject(entity)}
}

// Decode runs the payload through the compiled checker.
func (b *binding) Decode(data []byte) (map[string]any, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, emit.Issues{{Path: "/", Code: emit.CodeParseError, Message: err.Error()}}
	}
	var iss emit.Issues
	decoded, ok := b.check(raw, "", &iss)
	if !ok || len(iss) > 0 {
		return nil, iss.Sorted()
	}
	return decoded.(map[string]any), nil
}

// compileObject compiles a strict object checker: unknown keys are
// rejected, required fields enforced, null treated as absent for
// optional fields.
func compileObject(entity *ir.Entity) checkFn {
	type fieldChecker struct {
		name     string
		required bool
		check    checkFn
	}
	checkers := make([]fieldChecker, 0, len(entity.Fields))
	known := make(map[string]bool, len(entity.Fields))
	for i := range entity.Fields {
		f := &entity.Fields[i]
		checkers = append(checkers, fieldChecker{
			name:     f.Name,
			required: f.Required,
			check:    compileType(&f.Type, f.Constraints),
		})
		known[f.Name] = true
	}

	return func(value any, path string, iss *emit.Issues) (any, bool) {
		obj, isObj := value.(map[string]any)
		if !isObj {
			report(iss, path+orRoot(path), emit.CodeInvalidType, "Expected object")
			return nil, false
		}
		ok := true
		for key := range obj {
			if !known[key] {
				report(iss, path+"/"+key, emit.CodeUnknownKey, "Unrecognized key")
				ok = false
			}
		}
		decoded := make(map[string]any, len(checkers))
		for _, fc := range checkers {
			fieldPath := path + "/" + fc.name
			v, present := obj[fc.name]
			if !present || v == nil {
				if fc.required {
					report(iss, fieldPath, emit.CodeRequired, "Required")
					ok = false
				}
				continue
			}
			out, fieldOK := fc.check(v, fieldPath, iss)
			if fieldOK {
				decoded[fc.name] = out
			} else {
				ok = false
			}
		}
		return decoded, ok
	}
}

// compileType compiles the checker for one type. The constraints
// argument is the field's own set at the top level and the item
// schema's set for array elements.
func compileType(typ *ir.Type, c ir.Constraints) checkFn {
	switch typ.Kind {
	case ir.KindString:
		return compileString(c)
	case ir.KindInt:
		return compileNumber(c, true)
	case ir.KindFloat:
		return compileNumber(c, false)
	case ir.KindBool:
		return func(value any, path string, iss *emit.Issues) (any, bool) {
			v, ok := value.(bool)
			if !ok {
				report(iss, path, emit.CodeInvalidType, "Expected boolean")
				return nil, false
			}
			return v, true
		}
	case ir.KindLiteral:
		want := typ.Literal
		return func(value any, path string, iss *emit.Issues) (any, bool) {
			s, ok := value.(string)
			if !ok {
				report(iss, path, emit.CodeInvalidType, "Expected string")
				return nil, false
			}
			if s != want {
				report(iss, path, emit.CodeInvalidConst, fmt.Sprintf("Invalid literal value, expected %q", want))
				return nil, false
			}
			return s, true
		}
	case ir.KindEnum:
		members := make(map[string]bool, len(typ.Enum))
		for _, m := range typ.Enum {
			members[m] = true
		}
		return func(value any, path string, iss *emit.Issues) (any, bool) {
			s, ok := value.(string)
			if !ok {
				report(iss, path, emit.CodeInvalidType, "Expected string")
				return nil, false
			}
			if !members[s] {
				report(iss, path, emit.CodeInvalidEnum, "Invalid enum value")
				return nil, false
			}
			return s, true
		}
	case ir.KindObject:
		return compileObject(typ.Entity)
	case ir.KindArray:
		return compileArray(typ, c)
	default:
		return func(value any, path string, iss *emit.Issues) (any, bool) {
			report(iss, path, emit.CodeInvalidType, "Unsupported type")
			return nil, false
		}
	}
}

func compileString(c ir.Constraints) checkFn {
	var re *regexp.Regexp
	if c.Pattern != "" {
		re = regexp.MustCompile(c.Pattern)
	}
	return func(value any, path string, iss *emit.Issues) (any, bool) {
		s, isStr := value.(string)
		if !isStr {
			report(iss, path, emit.CodeInvalidType, "Expected string")
			return nil, false
		}
		ok := true
		switch c.Format {
		case "uuid":
			if _, err := uuid.Parse(s); err != nil {
				report(iss, path, emit.CodeInvalidFormat, "Invalid uuid")
				ok = false
			}
		case "date-time":
			if _, err := time.Parse(time.RFC3339, s); err != nil {
				report(iss, path, emit.CodeInvalidFormat, "Invalid datetime")
				ok = false
			}
		}
		n := utf8.RuneCountInString(s)
		if c.MinLength != nil && n < *c.MinLength {
			report(iss, path, emit.CodeTooShort, fmt.Sprintf("String must contain at least %d character(s)", *c.MinLength))
			ok = false
		}
		if c.MaxLength != nil && n > *c.MaxLength {
			report(iss, path, emit.CodeTooLong, fmt.Sprintf("String must contain at most %d character(s)", *c.MaxLength))
			ok = false
		}
		if re != nil && !re.MatchString(s) {
			report(iss, path, emit.CodePattern, "Invalid")
			ok = false
		}
		return s, ok
	}
}

func compileNumber(c ir.Constraints, integer bool) checkFn {
	return func(value any, path string, iss *emit.Issues) (any, bool) {
		f, isNum := value.(float64)
		if !isNum {
			report(iss, path, emit.CodeInvalidType, "Expected number")
			return nil, false
		}
		if integer && f != math.Trunc(f) {
			report(iss, path, emit.CodeInvalidType, "Expected integer")
			return nil, false
		}
		ok := true
		if c.Minimum != nil && f < *c.Minimum {
			report(iss, path, emit.CodeTooSmall, fmt.Sprintf("Number must be greater than or equal to %v", *c.Minimum))
			ok = false
		}
		if c.ExclusiveMinimum != nil && f <= *c.ExclusiveMinimum {
			report(iss, path, emit.CodeTooSmall, fmt.Sprintf("Number must be greater than %v", *c.ExclusiveMinimum))
			ok = false
		}
		if c.Maximum != nil && f > *c.Maximum {
			report(iss, path, emit.CodeTooBig, fmt.Sprintf("Number must be less than or equal to %v", *c.Maximum))
			ok = false
		}
		if c.ExclusiveMaximum != nil && f >= *c.ExclusiveMaximum {
			report(iss, path, emit.CodeTooBig, fmt.Sprintf("Number must be less than %v", *c.ExclusiveMaximum))
			ok = false
		}
		return f, ok
	}
}

func compileArray(typ *ir.Type, c ir.Constraints) checkFn {
	elem := compileType(typ.Elem, typ.Elem.Constraints)
	return func(value any, path string, iss *emit.Issues) (any, bool) {
		items, isArr := value.([]any)
		if !isArr {
			report(iss, path, emit.CodeInvalidType, "Expected array")
			return nil, false
		}
		ok := true
		if c.MinItems != nil && len(items) < *c.MinItems {
			report(iss, path, emit.CodeTooShort, fmt.Sprintf("Array must contain at least %d element(s)", *c.MinItems))
			ok = false
		}
		if c.MaxItems != nil && len(items) > *c.MaxItems {
			report(iss, path, emit.CodeTooLong, fmt.Sprintf("Array must contain at most %d element(s)", *c.MaxItems))
			ok = false
		}
		if c.UniqueItems && !allUnique(items) {
			report(iss, path, emit.CodeNotUnique, "items must be unique")
			ok = false
		}
		out := make([]any, 0, len(items))
		for i, item := range items {
			decoded, itemOK := elem(item, fmt.Sprintf("%s/%d", path, i), iss)
			if itemOK {
				out = append(out, decoded)
			} else {
				ok = false
			}
		}
		return out, ok
	}
}

func allUnique(items []any) bool {
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		enc, err := json.Marshal(item)
		if err != nil {
			continue
		}
		if seen[string(enc)] {
			return false
		}
		seen[string(enc)] = true
	}
	return true
}

func report(iss *emit.Issues, path, code, message string) {
	*iss = append(*iss, emit.Issue{Path: path, Code: code, Message: message})
}

func orRoot(path string) string {
	if path == "" {
		return "/"
	}
	return ""
}
