package compose_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/delorenj/holyfields/internal/compose"
	"github.com/delorenj/holyfields/internal/errors"
	"github.com/delorenj/holyfields/internal/resolver"
	"github.com/delorenj/holyfields/internal/schema"
	"github.com/delorenj/holyfields/internal/testutil"
)

func resolveFixture(t *testing.T, files map[string]string, root string) (*resolver.Graph, *schema.Document) {
	t.Helper()
	dir := testutil.WriteSchemaTree(t, files)
	set, err := schema.NewLoader(dir).Load(context.Background(), []string{root}, 4)
	require.NoError(t, err)
	graph, err := resolver.Resolve(context.Background(), set, 4)
	require.NoError(t, err)
	doc, ok := set.Get(root)
	require.True(t, ok)
	return graph, doc
}

func fieldNames(obj *compose.Object) []string {
	names := make([]string, 0, len(obj.Fields))
	for _, f := range obj.Fields {
		names = append(names, f.Name)
	}
	return names
}

func TestMerge_DerivedFieldsAppendAfterBase(t *testing.T) {
	t.Parallel()

	graph, doc := resolveFixture(t, testutil.EventFixture(), "messaging/transcript_created.schema.json")
	obj, err := compose.Merge(graph, doc, doc.Root)
	require.NoError(t, err)

	// Base envelope fields first in base order, then the derived
	// fields in declaration order. event_type is overridden in place.
	assert.Equal(t, []string{
		"event_id", "event_type", "timestamp",
		"topic", "status", "language", "audio", "tags",
	}, fieldNames(obj))
}

func TestMerge_DerivedAlwaysWins(t *testing.T) {
	t.Parallel()

	graph, doc := resolveFixture(t, testutil.EventFixture(), "messaging/transcript_created.schema.json")
	obj, err := compose.Merge(graph, doc, doc.Root)
	require.NoError(t, err)

	eventType, ok := obj.Field("event_type")
	require.True(t, ok)
	// The derived const declaration replaces the generic base string.
	assert.Equal(t, "transcript.created", eventType.Node.Const)
	// Requiredness is inherited from the base even though the derived
	// declaration does not restate it.
	assert.True(t, eventType.Required)
}

func TestMerge_BasesLeftToRight(t *testing.T) {
	t.Parallel()

	graph, doc := resolveFixture(t, map[string]string{
		"derived.schema.json": `{
			"title": "Derived",
			"type": "object",
			"allOf": [{"$ref": "first.schema.json"}, {"$ref": "second.schema.json"}]
		}`,
		"first.schema.json": `{
			"title": "First",
			"type": "object",
			"properties": {
				"shared": {"type": "string", "maxLength": 10},
				"only_first": {"type": "string"}
			}
		}`,
		"second.schema.json": `{
			"title": "Second",
			"type": "object",
			"properties": {
				"shared": {"type": "string", "maxLength": 5},
				"only_second": {"type": "string"}
			}
		}`,
	}, "derived.schema.json")

	obj, err := compose.Merge(graph, doc, doc.Root)
	require.NoError(t, err)

	// The later base wins for same-named fields but keeps the earlier
	// declaration position.
	assert.Equal(t, []string{"shared", "only_first", "only_second"}, fieldNames(obj))
	shared, _ := obj.Field("shared")
	require.NotNil(t, shared.Node.MaxLength)
	assert.Equal(t, 5, *shared.Node.MaxLength)
}

func TestMerge_MetadataInheritance(t *testing.T) {
	t.Parallel()

	graph, doc := resolveFixture(t, testutil.EventFixture(), "messaging/transcript_created.schema.json")
	obj, err := compose.Merge(graph, doc, doc.Root)
	require.NoError(t, err)

	// The derived routing key shadows the base one.
	assert.Equal(t, "transcript.created", obj.RoutingKey)
	assert.True(t, obj.ForbidAdditional)
	assert.Equal(t, "TranscriptCreated", obj.Title)
}

func TestMerge_RequiredUnion(t *testing.T) {
	t.Parallel()

	graph, doc := resolveFixture(t, map[string]string{
		"derived.schema.json": `{
			"title": "Derived",
			"type": "object",
			"allOf": [{"$ref": "base.schema.json"}],
			"properties": {
				"a": {"type": "string", "minLength": 1}
			}
		}`,
		"base.schema.json": `{
			"title": "Base",
			"type": "object",
			"properties": {
				"a": {"type": "string"},
				"b": {"type": "string"}
			},
			"required": ["a"]
		}`,
	}, "derived.schema.json")

	obj, err := compose.Merge(graph, doc, doc.Root)
	require.NoError(t, err)

	a, _ := obj.Field("a")
	assert.True(t, a.Required, "base requiredness survives an override")
	b, _ := obj.Field("b")
	assert.False(t, b.Required)
}

func TestMerge_TypeChangeRejected(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		derivedField string
	}{
		"string to integer": {derivedField: `{"type": "integer"}`},
		"string to object":  {derivedField: `{"type": "object", "properties": {"x": {"type": "string"}}}`},
		"string to number const": {
			derivedField: `{"const": 5}`,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			graph, doc := resolveFixture(t, map[string]string{
				"derived.schema.json": `{
					"title": "Derived",
					"type": "object",
					"allOf": [{"$ref": "base.schema.json"}],
					"properties": {"field": ` + tt.derivedField + `}
				}`,
				"base.schema.json": `{
					"title": "Base",
					"type": "object",
					"properties": {"field": {"type": "string"}}
				}`,
			}, "derived.schema.json")

			_, err := compose.Merge(graph, doc, doc.Root)
			require.Error(t, err)
			perr, ok := err.(*errors.PipelineError)
			require.True(t, ok)
			assert.Equal(t, errors.KindCompositionConflict, perr.Kind)
			assert.Contains(t, perr.Chain, "field field")
		})
	}
}

func TestMerge_NarrowingWithinTypeAllowed(t *testing.T) {
	t.Parallel()

	graph, doc := resolveFixture(t, map[string]string{
		"derived.schema.json": `{
			"title": "Derived",
			"type": "object",
			"allOf": [{"$ref": "base.schema.json"}],
			"properties": {
				"kind": {"const": "special"},
				"level": {"type": "string", "enum": ["low", "high"]}
			}
		}`,
		"base.schema.json": `{
			"title": "Base",
			"type": "object",
			"properties": {
				"kind": {"type": "string"},
				"level": {"type": "string"}
			}
		}`,
	}, "derived.schema.json")

	_, err := compose.Merge(graph, doc, doc.Root)
	assert.NoError(t, err)
}
