// Package schema provides the JSON Schema document model and the loader
// that materializes a root document plus the transitive closure of every
// document it references. Documents are immutable once loaded and are
// memoized by canonical path so identity-based cycle detection downstream
// stays sound.
package schema

import (
	"bytes"
	"fmt"

	json "github.com/goccy/go-json"
)

// TypeSet holds the value of a "type" keyword, which JSON Schema allows
// to be either a single string or an array of strings.
type TypeSet []string

// UnmarshalJSON accepts both the string and array spellings.
func (ts *TypeSet) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*ts = TypeSet{s}
		return nil
	}
	var ss []string
	if err := json.Unmarshal(data, &ss); err != nil {
		return err
	}
	*ts = TypeSet(ss)
	return nil
}

// Contains reports whether the set includes the given type name.
func (ts TypeSet) Contains(name string) bool {
	for _, t := range ts {
		if t == name {
			return true
		}
	}
	return false
}

// NonNull returns the set with "null" removed. The second return reports
// whether "null" was present, which marks the field as nullable.
func (ts TypeSet) NonNull() (TypeSet, bool) {
	out := make(TypeSet, 0, len(ts))
	nullable := false
	for _, t := range ts {
		if t == "null" {
			nullable = true
			continue
		}
		out = append(out, t)
	}
	return out, nullable
}

// Properties is an ordered property map. JSON object key order is
// significant here: composition and emission preserve declaration order,
// so a plain Go map would destroy the contract.
type Properties struct {
	keys  []string
	nodes map[string]*Node
}

// Keys returns property names in declaration order.
func (p *Properties) Keys() []string {
	if p == nil {
		return nil
	}
	return p.keys
}

// Get returns the node for a property name.
func (p *Properties) Get(name string) (*Node, bool) {
	if p == nil {
		return nil, false
	}
	n, ok := p.nodes[name]
	return n, ok
}

// Len returns the number of properties.
func (p *Properties) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

// UnmarshalJSON decodes a properties object preserving key order.
func (p *Properties) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("properties: expected object, got %v", tok)
	}
	p.keys = nil
	p.nodes = make(map[string]*Node)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("properties: expected key, got %v", tok)
		}
		var node Node
		if err := dec.Decode(&node); err != nil {
			return fmt.Errorf("properties %q: %w", key, err)
		}
		if _, dup := p.nodes[key]; dup {
			return fmt.Errorf("properties: duplicate key %q", key)
		}
		p.keys = append(p.keys, key)
		p.nodes[key] = &node
	}
	_, err = dec.Token() // closing brace
	return err
}

// Node is a single schema node. Only the keywords the pipeline consumes
// are modeled; everything else is ignored on parse.
type Node struct {
	Ref         string     `json:"$ref"`
	ID          string     `json:"$id"`
	Types       TypeSet    `json:"type"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Properties  *Properties `json:"properties"`
	Required    []string   `json:"required"`
	AllOf       []*Node    `json:"allOf"`
	Defs        *Properties `json:"$defs"`
	Enum        []any      `json:"enum"`
	Const       any        `json:"const"`
	Items       *Node      `json:"items"`

	MinLength        *int     `json:"minLength"`
	MaxLength        *int     `json:"maxLength"`
	Pattern          string   `json:"pattern"`
	Format           string   `json:"format"`
	Minimum          *float64 `json:"minimum"`
	Maximum          *float64 `json:"maximum"`
	ExclusiveMinimum *float64 `json:"exclusiveMinimum"`
	ExclusiveMaximum *float64 `json:"exclusiveMaximum"`
	MinItems         *int     `json:"minItems"`
	MaxItems         *int     `json:"maxItems"`
	UniqueItems      bool     `json:"uniqueItems"`

	AdditionalProperties json.RawMessage `json:"additionalProperties"`
	Examples             []any           `json:"examples"`
	RoutingKey           string          `json:"x-routing-key"`
}

// IsRef reports whether this node is a pure reference.
func (n *Node) IsRef() bool {
	return n != nil && n.Ref != ""
}

// IsObject reports whether the node declares an object type or has
// object-shaped keywords.
func (n *Node) IsObject() bool {
	if n == nil {
		return false
	}
	return n.Types.Contains("object") || n.Properties.Len() > 0 || len(n.AllOf) > 0
}

// ForbidsAdditional reports whether additionalProperties is the literal
// false. The schema form of additionalProperties is not interpreted.
func (n *Node) ForbidsAdditional() bool {
	return bytes.Equal(bytes.TrimSpace(n.AdditionalProperties), []byte("false"))
}

// RequiredSet returns the required property names as a set.
func (n *Node) RequiredSet() map[string]bool {
	set := make(map[string]bool, len(n.Required))
	for _, name := range n.Required {
		set[name] = true
	}
	return set
}

// Walk visits n and every child node in a stable order: properties in
// declaration order, then items, then allOf members, then $defs. The
// walk stops at the first error.
func Walk(n *Node, fn func(*Node) error) error {
	if n == nil {
		return nil
	}
	if err := fn(n); err != nil {
		return err
	}
	for _, key := range n.Properties.Keys() {
		child, _ := n.Properties.Get(key)
		if err := Walk(child, fn); err != nil {
			return err
		}
	}
	if err := Walk(n.Items, fn); err != nil {
		return err
	}
	for _, base := range n.AllOf {
		if err := Walk(base, fn); err != nil {
			return err
		}
	}
	for _, key := range n.Defs.Keys() {
		child, _ := n.Defs.Get(key)
		if err := Walk(child, fn); err != nil {
			return err
		}
	}
	return nil
}
