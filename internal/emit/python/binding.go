package python

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

// binding is the runtime twin of the emitted Pydantic model. Pydantic
// validates field by field, collecting every violation before raising,
// with extra keys forbidden; this mirrors that behavior.
type binding struct {
	entity *ir.Entity
}

// Decode parses and validates a payload exactly as the generated model
// constructor does.
func (b *binding) Decode(data []byte) (map[string]any, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, emit.Issues{{Path: "/", Code: emit.CodeParseError, Message: err.Error()}}
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, emit.Issues{{Path: "/", Code: emit.CodeInvalidType, Message: "payload must be an object"}}
	}
	var issues emit.Issues
	decoded := b.validateModel(b.entity, obj, "", &issues)
	if len(issues) > 0 {
		return nil, issues.Sorted()
	}
	return decoded, nil
}

// validateModel mirrors BaseModel validation: unknown keys first, then
// each declared field in declaration order.
func (b *binding) validateModel(entity *ir.Entity, obj map[string]any, path string, issues *emit.Issues) map[string]any {
	known := make(map[string]bool, len(entity.Fields))
	for i := range entity.Fields {
		known[entity.Fields[i].Name] = true
	}
	for key := range obj {
		if !known[key] {
			add(issues, path+"/"+key, emit.CodeUnknownKey, "extra fields not permitted")
		}
	}

	decoded := make(map[string]any, len(entity.Fields))
	for i := range entity.Fields {
		field := &entity.Fields[i]
		fieldPath := path + "/" + field.Name
		value, present := obj[field.Name]
		if !present || value == nil {
			if field.Required {
				add(issues, fieldPath, emit.CodeRequired, "field required")
			}
			continue
		}
		out, ok := b.validateValue(&field.Type, field.Constraints, value, fieldPath, issues)
		if ok {
			decoded[field.Name] = out
		}
	}
	return decoded
}

// validateValue checks one value against a type, returning the
// canonical decoded form. The constraints argument is the field's own
// set at the top level and the item schema's set for array elements.
func (b *binding) validateValue(typ *ir.Type, c ir.Constraints, value any, path string, issues *emit.Issues) (any, bool) {
	switch typ.Kind {
	case ir.KindString:
		s, ok := value.(string)
		if !ok {
			add(issues, path, emit.CodeInvalidType, "str type expected")
			return nil, false
		}
		return s, b.checkString(c, s, path, issues)
	case ir.KindInt:
		f, ok := value.(float64)
		if !ok || f != math.Trunc(f) {
			add(issues, path, emit.CodeInvalidType, "value is not a valid integer")
			return nil, false
		}
		return f, b.checkNumber(c, f, path, issues)
	case ir.KindFloat:
		f, ok := value.(float64)
		if !ok {
			add(issues, path, emit.CodeInvalidType, "value is not a valid float")
			return nil, false
		}
		return f, b.checkNumber(c, f, path, issues)
	case ir.KindBool:
		v, ok := value.(bool)
		if !ok {
			add(issues, path, emit.CodeInvalidType, "value is not a valid boolean")
			return nil, false
		}
		return v, true
	case ir.KindLiteral:
		s, ok := value.(string)
		if !ok {
			add(issues, path, emit.CodeInvalidType, "str type expected")
			return nil, false
		}
		if s != typ.Literal {
			add(issues, path, emit.CodeInvalidConst, fmt.Sprintf("unexpected value; permitted: %q", typ.Literal))
			return nil, false
		}
		return s, true
	case ir.KindEnum:
		s, ok := value.(string)
		if !ok {
			add(issues, path, emit.CodeInvalidType, "str type expected")
			return nil, false
		}
		for _, member := range typ.Enum {
			if s == member {
				return s, true
			}
		}
		add(issues, path, emit.CodeInvalidEnum, "value is not a valid enumeration member")
		return nil, false
	case ir.KindObject:
		obj, ok := value.(map[string]any)
		if !ok {
			add(issues, path, emit.CodeInvalidType, "value is not a valid dict")
			return nil, false
		}
		before := len(*issues)
		decoded := b.validateModel(typ.Entity, obj, path, issues)
		return decoded, len(*issues) == before
	case ir.KindArray:
		items, ok := value.([]any)
		if !ok {
			add(issues, path, emit.CodeInvalidType, "value is not a valid list")
			return nil, false
		}
		valid := b.checkItems(c, items, path, issues)
		out := make([]any, 0, len(items))
		for i, item := range items {
			decoded, ok := b.validateValue(typ.Elem, typ.Elem.Constraints, item, fmt.Sprintf("%s/%d", path, i), issues)
			if ok {
				out = append(out, decoded)
			} else {
				valid = false
			}
		}
		return out, valid
	default:
		add(issues, path, emit.CodeInvalidType, "unrenderable type")
		return nil, false
	}
}

func (b *binding) checkString(c ir.Constraints, s, path string, issues *emit.Issues) bool {
	ok := true
	switch c.Format {
	case "uuid":
		if _, err := uuid.Parse(s); err != nil {
			add(issues, path, emit.CodeInvalidFormat, "value is not a valid uuid")
			ok = false
		}
	case "date-time":
		if _, err := time.Parse(time.RFC3339, s); err != nil {
			add(issues, path, emit.CodeInvalidFormat, "invalid datetime format")
			ok = false
		}
	}
	length := utf8.RuneCountInString(s)
	if c.MinLength != nil && length < *c.MinLength {
		add(issues, path, emit.CodeTooShort, fmt.Sprintf("ensure this value has at least %d characters", *c.MinLength))
		ok = false
	}
	if c.MaxLength != nil && length > *c.MaxLength {
		add(issues, path, emit.CodeTooLong, fmt.Sprintf("ensure this value has at most %d characters", *c.MaxLength))
		ok = false
	}
	if c.Pattern != "" {
		re, err := regexp.Compile(c.Pattern)
		if err != nil || !re.MatchString(s) {
			add(issues, path, emit.CodePattern, "string does not match regex")
			ok = false
		}
	}
	return ok
}

func (b *binding) checkNumber(c ir.Constraints, f float64, path string, issues *emit.Issues) bool {
	ok := true
	if c.Minimum != nil && f < *c.Minimum {
		add(issues, path, emit.CodeTooSmall, fmt.Sprintf("ensure this value is greater than or equal to %v", *c.Minimum))
		ok = false
	}
	if c.ExclusiveMinimum != nil && f <= *c.ExclusiveMinimum {
		add(issues, path, emit.CodeTooSmall, fmt.Sprintf("ensure this value is greater than %v", *c.ExclusiveMinimum))
		ok = false
	}
	if c.Maximum != nil && f > *c.Maximum {
		add(issues, path, emit.CodeTooBig, fmt.Sprintf("ensure this value is less than or equal to %v", *c.Maximum))
		ok = false
	}
	if c.ExclusiveMaximum != nil && f >= *c.ExclusiveMaximum {
		add(issues, path, emit.CodeTooBig, fmt.Sprintf("ensure this value is less than %v", *c.ExclusiveMaximum))
		ok = false
	}
	return ok
}

func (b *binding) checkItems(c ir.Constraints, items []any, path string, issues *emit.Issues) bool {
	ok := true
	if c.MinItems != nil && len(items) < *c.MinItems {
		add(issues, path, emit.CodeTooShort, fmt.Sprintf("ensure this value has at least %d items", *c.MinItems))
		ok = false
	}
	if c.MaxItems != nil && len(items) > *c.MaxItems {
		add(issues, path, emit.CodeTooLong, fmt.Sprintf("ensure this value has at most %d items", *c.MaxItems))
		ok = false
	}
	if c.UniqueItems {
		seen := make(map[string]bool, len(items))
		for _, item := range items {
			enc, err := json.Marshal(item)
			if err != nil {
				continue
			}
			if seen[string(enc)] {
				add(issues, path, emit.CodeNotUnique, "the list has duplicated items")
				ok = false
				break
			}
			seen[string(enc)] = true
		}
	}
	return ok
}

func add(issues *emit.Issues, path, code, message string) {
	*issues = append(*issues, emit.Issue{Path: path, Code: code, Message: message})
}
