package golang

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"
	"unicode/utf8"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/delorenj/holyfields/internal/emit"
	"github.com/delorenj/holyfields/internal/ir"
)

// binding is the runtime twin of the emitted Go binding, which decodes
// with unknown fields disallowed and then validates. The twin runs the
// same two phases: a structural pass that checks shape and types, then
// a constraint pass over everything the first pass accepted.
type binding struct {
	entity *ir.Entity
}

// Decode parses and validates a payload as Decode<Entity> does.
func (b *binding) Decode(data []byte) (map[string]any, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, emit.Issues{{Path: "/", Code: emit.CodeParseError, Message: err.Error()}}
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, emit.Issues{{Path: "/", Code: emit.CodeInvalidType, Message: "payload must be an object"}}
	}

	var iss emit.Issues
	decoded := decodePhase(b.entity, obj, "", &iss)
	validatePhase(b.entity, decoded, "", &iss)
	if len(iss) > 0 {
		return nil, iss.Sorted()
	}
	return decoded, nil
}

// decodePhase mirrors the strict json.Decoder: unknown keys, missing
// required fields, and type mismatches. Fields that fail here are left
// out of the decoded map so the constraint phase skips them.
func decodePhase(entity *ir.Entity, obj map[string]any, path string, iss *emit.Issues) map[string]any {
	known := make(map[string]*ir.Field, len(entity.Fields))
	for i := range entity.Fields {
		known[entity.Fields[i].Name] = &entity.Fields[i]
	}
	for key := range obj {
		if known[key] == nil {
			*iss = append(*iss, emit.Issue{Path: path + "/" + key, Code: emit.CodeUnknownKey, Message: "unknown field"})
		}
	}

	decoded := make(map[string]any, len(entity.Fields))
	for i := range entity.Fields {
		f := &entity.Fields[i]
		fieldPath := path + "/" + f.Name
		value, present := obj[f.Name]
		if !present || value == nil {
			if f.Required {
				*iss = append(*iss, emit.Issue{Path: fieldPath, Code: emit.CodeRequired, Message: "missing required field"})
			}
			continue
		}
		if out, ok := decodeValue(&f.Type, value, fieldPath, iss); ok {
			decoded[f.Name] = out
		}
	}
	return decoded
}

// decodeValue performs the type checks of the structural pass.
func decodeValue(typ *ir.Type, value any, path string, iss *emit.Issues) (any, bool) {
	fail := func(msg string) (any, bool) {
		*iss = append(*iss, emit.Issue{Path: path, Code: emit.CodeInvalidType, Message: msg})
		return nil, false
	}
	switch typ.Kind {
	case ir.KindString, ir.KindLiteral, ir.KindEnum:
		s, ok := value.(string)
		if !ok {
			return fail("cannot unmarshal into string")
		}
		return s, true
	case ir.KindInt:
		f, ok := value.(float64)
		if !ok || f != math.Trunc(f) {
			return fail("cannot unmarshal into int64")
		}
		return f, true
	case ir.KindFloat:
		f, ok := value.(float64)
		if !ok {
			return fail("cannot unmarshal into float64")
		}
		return f, true
	case ir.KindBool:
		v, ok := value.(bool)
		if !ok {
			return fail("cannot unmarshal into bool")
		}
		return v, true
	case ir.KindObject:
		obj, ok := value.(map[string]any)
		if !ok {
			return fail("cannot unmarshal into struct")
		}
		before := len(*iss)
		decoded := decodePhase(typ.Entity, obj, path, iss)
		return decoded, len(*iss) == before
	case ir.KindArray:
		items, ok := value.([]any)
		if !ok {
			return fail("cannot unmarshal into slice")
		}
		out := make([]any, 0, len(items))
		allOK := true
		for i, item := range items {
			decoded, ok := decodeValue(typ.Elem, item, path+"/"+strconv.Itoa(i), iss)
			if ok {
				out = append(out, decoded)
			} else {
				allOK = false
			}
		}
		return out, allOK
	default:
		return fail("unsupported type")
	}
}

// validatePhase mirrors the generated Validate method: every
// constraint on every decoded field, all violations collected.
func validatePhase(entity *ir.Entity, decoded map[string]any, path string, iss *emit.Issues) {
	for i := range entity.Fields {
		f := &entity.Fields[i]
		value, present := decoded[f.Name]
		if !present {
			continue
		}
		validateValue(&f.Type, f.Constraints, value, path+"/"+f.Name, iss)
	}
}

// validateValue checks one value against a type. The constraints
// argument is the field's own set at the top level and the item
// schema's set for array elements.
func validateValue(typ *ir.Type, c ir.Constraints, value any, path string, iss *emit.Issues) {
	violate := func(code, format string, args ...any) {
		*iss = append(*iss, emit.Issue{Path: path, Code: code, Message: fmt.Sprintf(format, args...)})
	}

	switch typ.Kind {
	case ir.KindString:
		s := value.(string)
		switch c.Format {
		case "uuid":
			if _, err := uuid.Parse(s); err != nil {
				violate(emit.CodeInvalidFormat, "must be a valid uuid")
			}
		case "date-time":
			if _, err := time.Parse(time.RFC3339, s); err != nil {
				violate(emit.CodeInvalidFormat, "must be a valid RFC 3339 timestamp")
			}
		}
		n := utf8.RuneCountInString(s)
		if c.MinLength != nil && n < *c.MinLength {
			violate(emit.CodeTooShort, "must have at least %d characters", *c.MinLength)
		}
		if c.MaxLength != nil && n > *c.MaxLength {
			violate(emit.CodeTooLong, "must have at most %d characters", *c.MaxLength)
		}
		if c.Pattern != "" {
			if re, err := regexp.Compile(c.Pattern); err == nil && !re.MatchString(s) {
				violate(emit.CodePattern, "must match %s", c.Pattern)
			}
		}
	case ir.KindInt, ir.KindFloat:
		n := value.(float64)
		if c.Minimum != nil && n < *c.Minimum {
			violate(emit.CodeTooSmall, "must be >= %v", *c.Minimum)
		}
		if c.ExclusiveMinimum != nil && n <= *c.ExclusiveMinimum {
			violate(emit.CodeTooSmall, "must be > %v", *c.ExclusiveMinimum)
		}
		if c.Maximum != nil && n > *c.Maximum {
			violate(emit.CodeTooBig, "must be <= %v", *c.Maximum)
		}
		if c.ExclusiveMaximum != nil && n >= *c.ExclusiveMaximum {
			violate(emit.CodeTooBig, "must be < %v", *c.ExclusiveMaximum)
		}
	case ir.KindLiteral:
		if value.(string) != typ.Literal {
			violate(emit.CodeInvalidConst, "must be %q", typ.Literal)
		}
	case ir.KindEnum:
		s := value.(string)
		valid := false
		for _, member := range typ.Enum {
			if s == member {
				valid = true
				break
			}
		}
		if !valid {
			violate(emit.CodeInvalidEnum, "not a valid enumeration member")
		}
	case ir.KindObject:
		validatePhase(typ.Entity, value.(map[string]any), path, iss)
	case ir.KindArray:
		items := value.([]any)
		if c.MinItems != nil && len(items) < *c.MinItems {
			violate(emit.CodeTooShort, "must have at least %d items", *c.MinItems)
		}
		if c.MaxItems != nil && len(items) > *c.MaxItems {
			violate(emit.CodeTooLong, "must have at most %d items", *c.MaxItems)
		}
		if c.UniqueItems {
			seen := make(map[string]bool, len(items))
			for _, item := range items {
				enc, err := json.Marshal(item)
				if err != nil {
					continue
				}
				if seen[string(enc)] {
					violate(emit.CodeNotUnique, "items must be unique")
					break
				}
				seen[string(enc)] = true
			}
		}
		for i, item := range items {
			validateValue(typ.Elem, typ.Elem.Constraints, item, path+"/"+strconv.Itoa(i), iss)
		}
	}
}
