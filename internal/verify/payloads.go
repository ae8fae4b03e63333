// Package verify proves cross-target agreement: it synthesizes valid
// and constraint-violating payloads per entity, runs every payload
// through every target's binding, and asserts all targets agree on
// accept/reject and on decoded values.
package verify

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/delorenj/holyfields/internal/ir"
)

// Payload is one synthesized test payload for an entity.
type Payload struct {
	// Name describes the payload for reporting, e.g. "maximal-valid"
	// or "violates-maxLength-/topic".
	Name string
	Data []byte
	// WantReject marks payloads every target must reject.
	WantReject bool
	// FieldPath is the field a violating payload targets; rejecting
	// targets must name it in their issues.
	FieldPath string
	// Constraint is the single constraint the payload violates.
	Constraint ir.ConstraintKind
}

// Synthesize produces the payload set for an entity: one maximal valid
// payload with every optional field populated and every constraint
// satisfied at its boundary, one missing-required payload per required
// field, one unknown-key payload, and one payload per constraint that
// violates exactly that constraint.
func Synthesize(e *ir.Entity) ([]Payload, error) {
	maximal := maximalValue(e)

	valid, err := json.Marshal(maximal)
	if err != nil {
		return nil, fmt.Errorf("encoding maximal payload for %s: %w", e.Name, err)
	}
	payloads := []Payload{{Name: "maximal-valid", Data: valid}}

	violations, err := violatingPayloads(e, maximal, "")
	if err != nil {
		return nil, err
	}
	payloads = append(payloads, violations...)

	// Unknown keys are rejected by every target.
	withExtra := cloneMap(maximal)
	withExtra["unexpected_key"] = "surprise"
	extra, err := json.Marshal(withExtra)
	if err != nil {
		return nil, err
	}
	payloads = append(payloads, Payload{
		Name:       "unknown-key",
		Data:       extra,
		WantReject: true,
		FieldPath:  "/unexpected_key",
	})
	return payloads, nil
}

// violatingPayloads walks the entity's fields (including nested
// entities) producing one payload per constraint.
func violatingPayloads(root *ir.Entity, maximal map[string]any, prefix string) ([]Payload, error) {
	entity := root
	var payloads []Payload

	var walk func(e *ir.Entity, prefix string) error
	walk = func(e *ir.Entity, prefix string) error {
		for i := range e.Fields {
			f := &e.Fields[i]
			path := prefix + "/" + f.Name

			if f.Required {
				data, err := mutatedPayload(maximal, path, nil, true)
				if err != nil {
					return err
				}
				payloads = append(payloads, Payload{
					Name:       "missing-required" + path,
					Data:       data,
					WantReject: true,
					FieldPath:  path,
					Constraint: ir.ConstraintRequired,
				})
			}

			for _, kind := range f.ConstraintKinds() {
				bad, ok := violatingValue(f, kind)
				if !ok {
					continue
				}
				data, err := mutatedPayload(maximal, path, bad, false)
				if err != nil {
					return err
				}
				payloads = append(payloads, Payload{
					Name:       fmt.Sprintf("violates-%s%s", kind, path),
					Data:       data,
					WantReject: true,
					FieldPath:  path,
					Constraint: kind,
				})
			}

			// Item-schema constraints get their own payloads: a single
			// bad element at index zero, padded with valid elements up
			// to the array's minimum length.
			if f.Type.Kind == ir.KindArray {
				elem := f.Type.Elem
				for _, kind := range elem.ConstraintKinds() {
					bad, ok := violatingScalar(elem.Constraints, kind)
					if !ok {
						continue
					}
					items := []any{bad}
					count := 1
					if f.Constraints.MinItems != nil && *f.Constraints.MinItems > count {
						count = *f.Constraints.MinItems
					}
					for i := 1; i < count; i++ {
						items = append(items, elementValue(elem, i, count, f.Constraints.UniqueItems))
					}
					data, err := mutatedPayload(maximal, path, items, false)
					if err != nil {
						return err
					}
					payloads = append(payloads, Payload{
						Name:       fmt.Sprintf("violates-%s%s/0", kind, path),
						Data:       data,
						WantReject: true,
						FieldPath:  path + "/0",
						Constraint: kind,
					})
				}
			}

			if f.Type.Kind == ir.KindObject {
				if err := walk(f.Type.Entity, path); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := walk(entity, prefix); err != nil {
		return nil, err
	}
	return payloads, nil
}

// maximalValue builds the canonical valid value for an entity with
// every optional field populated.
func maximalValue(e *ir.Entity) map[string]any {
	out := make(map[string]any, len(e.Fields))
	for i := range e.Fields {
		f := &e.Fields[i]
		out[f.Name] = fieldValue(f, &f.Type)
	}
	return out
}

// fieldValue synthesizes a valid value at constraint boundaries. The
// first declared example is preferred when it satisfies the field.
func fieldValue(f *ir.Field, typ *ir.Type) any {
	if len(f.Examples) > 0 && typ == &f.Type {
		if ex := f.Examples[0]; exampleFits(f, typ, ex) {
			return ex
		}
	}
	return typeValue(typ, f.Constraints)
}

// typeValue synthesizes a valid value for one type. The constraints
// argument is the field's own set at the top level and the item
// schema's set for array elements.
func typeValue(typ *ir.Type, c ir.Constraints) any {
	switch typ.Kind {
	case ir.KindString:
		return stringValue(c)
	case ir.KindInt:
		return float64(int64(numericValue(c, true)))
	case ir.KindFloat:
		return numericValue(c, false)
	case ir.KindBool:
		return true
	case ir.KindLiteral:
		return typ.Literal
	case ir.KindEnum:
		return typ.Enum[0]
	case ir.KindObject:
		return maximalValue(typ.Entity)
	case ir.KindArray:
		count := 1
		if c.MinItems != nil && *c.MinItems > count {
			count = *c.MinItems
		}
		items := make([]any, 0, count)
		for i := 0; i < count; i++ {
			items = append(items, elementValue(typ.Elem, i, count, c.UniqueItems))
		}
		return items
	default:
		return nil
	}
}

// elementValue synthesizes the i-th of count array elements, distinct
// per index when uniqueness is required and always within the item
// schema's own constraints.
func elementValue(elem *ir.Type, i, count int, unique bool) any {
	ec := elem.Constraints
	switch elem.Kind {
	case ir.KindEnum:
		return elem.Enum[i%len(elem.Enum)]
	case ir.KindString:
		s := stringValue(ec)
		if unique && i > 0 {
			return uniqueStringValue(ec, s, i)
		}
		return s
	case ir.KindInt:
		if unique {
			return math.Trunc(numericElement(ec, i, count, true))
		}
		return float64(int64(numericValue(ec, true)))
	case ir.KindFloat:
		if unique {
			return numericElement(ec, i, count, false)
		}
		return numericValue(ec, false)
	default:
		return typeValue(elem, ec)
	}
}

// uniqueStringValue derives a distinct valid string for index i. A
// numeric suffix is preferred; when it breaks a length or pattern
// constraint the last rune varies instead, and format strings vary an
// inner digit so the format survives.
func uniqueStringValue(c ir.Constraints, base string, i int) string {
	switch c.Format {
	case "uuid", "date-time":
		r := []rune(base)
		if len(r) >= 2 {
			r[len(r)-2] = rune('0' + i%10)
		}
		return string(r)
	}
	if candidate := fmt.Sprintf("%s-%d", base, i); stringFits(c, candidate) {
		return candidate
	}
	r := []rune(base)
	if len(r) == 0 {
		return base
	}
	r[len(r)-1] = rune('a' + i%26)
	if s := string(r); stringFits(c, s) {
		return s
	}
	return fmt.Sprintf("%s-%d", base, i)
}

func stringFits(c ir.Constraints, s string) bool {
	if !lengthFits(c, s) {
		return false
	}
	if c.Pattern != "" && !regexp.MustCompile(c.Pattern).MatchString(s) {
		return false
	}
	return true
}

func stringValue(c ir.Constraints) string {
	switch c.Format {
	case "uuid":
		return "550e8400-e29b-41d4-a716-446655440000"
	case "date-time":
		return "2024-01-01T00:00:00Z"
	}
	if c.Pattern != "" {
		re := regexp.MustCompile(c.Pattern)
		for _, candidate := range []string{"en", "en-US", "a", "abc", "x1", "0", "A", "test", "2024-01-01"} {
			if re.MatchString(candidate) && lengthFits(c, candidate) {
				return candidate
			}
		}
	}
	n := 4
	if c.MinLength != nil {
		n = *c.MinLength
	} else if c.MaxLength != nil && *c.MaxLength < n {
		n = *c.MaxLength
	}
	if n < 1 && c.MaxLength == nil {
		n = 1
	}
	return strings.Repeat("a", n)
}

func lengthFits(c ir.Constraints, s string) bool {
	if c.MinLength != nil && len(s) < *c.MinLength {
		return false
	}
	if c.MaxLength != nil && len(s) > *c.MaxLength {
		return false
	}
	return true
}

// numericValue picks a valid number at a declared boundary. Exclusive
// lower bounds on floats take the midpoint of the declared span so
// ranges narrower than one unit still get a valid value.
func numericValue(c ir.Constraints, integer bool) float64 {
	switch {
	case c.Minimum != nil:
		return *c.Minimum
	case c.ExclusiveMinimum != nil:
		lo := *c.ExclusiveMinimum
		if !integer {
			if hi, ok := upperBound(c); ok {
				return lo + (hi-lo)/2
			}
		}
		return lo + 1
	case c.Maximum != nil:
		return *c.Maximum
	case c.ExclusiveMaximum != nil:
		return *c.ExclusiveMaximum - 1
	default:
		return 42
	}
}

// numericElement spreads count distinct values across the declared
// span so no element escapes the bounds.
func numericElement(c ir.Constraints, i, count int, integer bool) float64 {
	if count < 2 {
		return numericValue(c, integer)
	}
	lo, hasLo := lowerBound(c)
	hi, hasHi := upperBound(c)
	switch {
	case hasLo && hasHi:
		if integer {
			start := math.Ceil(lo)
			if c.ExclusiveMinimum != nil && start == lo {
				start++
			}
			step := math.Floor((hi - lo) / float64(count+1))
			if step < 1 {
				step = 1
			}
			return start + float64(i)*step
		}
		return lo + (hi-lo)*float64(i+1)/float64(count+1)
	case hasHi:
		return numericValue(c, integer) - float64(i)
	default:
		return numericValue(c, integer) + float64(i)
	}
}

func lowerBound(c ir.Constraints) (float64, bool) {
	if c.Minimum != nil {
		return *c.Minimum, true
	}
	if c.ExclusiveMinimum != nil {
		return *c.ExclusiveMinimum, true
	}
	return 0, false
}

func upperBound(c ir.Constraints) (float64, bool) {
	if c.Maximum != nil {
		return *c.Maximum, true
	}
	if c.ExclusiveMaximum != nil {
		return *c.ExclusiveMaximum, true
	}
	return 0, false
}

// violatingValue produces a value violating exactly the given field
// constraint. Returns false when no clean violation can be built.
func violatingValue(f *ir.Field, kind ir.ConstraintKind) (any, bool) {
	c := f.Constraints
	switch kind {
	case ir.ConstraintMinItems:
		if *c.MinItems == 0 {
			return nil, false
		}
		return makeItems(f, *c.MinItems-1), true
	case ir.ConstraintMaxItems:
		return makeItems(f, *c.MaxItems+1), true
	case ir.ConstraintUniqueItems:
		one := elementValue(f.Type.Elem, 0, 1, false)
		return []any{one, one}, true
	default:
		return violatingScalar(c, kind)
	}
}

// violatingScalar produces a scalar violating exactly the given
// constraint, shared between field payloads and array element
// payloads.
func violatingScalar(c ir.Constraints, kind ir.ConstraintKind) (any, bool) {
	switch kind {
	case ir.ConstraintMinLength:
		if *c.MinLength == 0 {
			return nil, false
		}
		return strings.Repeat("a", *c.MinLength-1), true
	case ir.ConstraintMaxLength:
		return strings.Repeat("a", *c.MaxLength+1), true
	case ir.ConstraintPattern:
		re := regexp.MustCompile(c.Pattern)
		for _, candidate := range []string{"INVALID ###", "zzzz-9999", "!!!", " ", "ZZ"} {
			if !re.MatchString(candidate) {
				return candidate, true
			}
		}
		return nil, false
	case ir.ConstraintFormat:
		switch c.Format {
		case "uuid":
			return "not-a-uuid", true
		case "date-time":
			return "not-a-timestamp", true
		}
		return nil, false
	case ir.ConstraintMinimum:
		return *c.Minimum - 1, true
	case ir.ConstraintExclusiveMinimum:
		return *c.ExclusiveMinimum, true
	case ir.ConstraintMaximum:
		return *c.Maximum + 1, true
	case ir.ConstraintExclusiveMaximum:
		return *c.ExclusiveMaximum, true
	case ir.ConstraintEnum:
		return "zz-not-a-member", true
	case ir.ConstraintLiteral:
		return "wrong", true
	default:
		return nil, false
	}
}

func makeItems(f *ir.Field, count int) []any {
	items := make([]any, 0, count)
	for i := 0; i < count; i++ {
		items = append(items, elementValue(f.Type.Elem, i, count, f.Constraints.UniqueItems))
	}
	return items
}

// exampleFits checks a declared example against the field's own
// constraints before trusting it as the valid sample.
func exampleFits(f *ir.Field, typ *ir.Type, ex any) bool {
	s, ok := ex.(string)
	if !ok || typ.Kind != ir.KindString {
		return false
	}
	c := f.Constraints
	if c.Format != "" {
		return false
	}
	if !lengthFits(c, s) {
		return false
	}
	if c.Pattern != "" && !regexp.MustCompile(c.Pattern).MatchString(s) {
		return false
	}
	return true
}

// mutatedPayload deep-copies the maximal payload and either replaces
// or removes the value at the slash path.
func mutatedPayload(maximal map[string]any, path string, value any, remove bool) ([]byte, error) {
	clone := cloneMap(maximal)
	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
	cur := clone
	for _, seg := range segments[:len(segments)-1] {
		next, ok := cur[seg].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("payload mutation: %s is not an object", seg)
		}
		cur = next
	}
	last := segments[len(segments)-1]
	if remove {
		delete(cur, last)
	} else {
		cur[last] = value
	}
	return json.Marshal(clone)
}

func cloneMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		switch t := v.(type) {
		case map[string]any:
			out[k] = cloneMap(t)
		case []any:
			items := make([]any, len(t))
			for i, item := range t {
				if m, ok := item.(map[string]any); ok {
					items[i] = cloneMap(m)
				} else {
					items[i] = item
				}
			}
			out[k] = items
		default:
			out[k] = v
		}
	}
	return out
}
