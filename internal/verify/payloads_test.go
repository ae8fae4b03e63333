package verify

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/delorenj/holyfields/internal/ir"
	"github.com/delorenj/holyfields/internal/testutil"
)

func transcriptEntity(t *testing.T) *ir.Entity {
	t.Helper()
	mod := testutil.EventModule(t)
	entity, ok := mod.Entity("TranscriptCreated")
	require.True(t, ok)
	return entity
}

func payloadNames(payloads []Payload) []string {
	names := make([]string, 0, len(payloads))
	for _, p := range payloads {
		names = append(names, p.Name)
	}
	return names
}

func findPayload(t *testing.T, payloads []Payload, name string) Payload {
	t.Helper()
	for _, p := range payloads {
		if p.Name == name {
			return p
		}
	}
	t.Fatalf("no payload named %s in %v", name, payloadNames(payloads))
	return Payload{}
}

func TestSynthesize_MaximalPayload(t *testing.T) {
	t.Parallel()

	payloads, err := Synthesize(transcriptEntity(t))
	require.NoError(t, err)

	maximal := payloads[0]
	assert.Equal(t, "maximal-valid", maximal.Name)
	assert.False(t, maximal.WantReject)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(maximal.Data, &decoded))

	// Every field is populated, optionals included.
	assert.Len(t, decoded, 8)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", decoded["event_id"])
	assert.Equal(t, "transcript.created", decoded["event_type"])
	assert.Equal(t, "2024-01-01T00:00:00Z", decoded["timestamp"])
	assert.Equal(t, "pending", decoded["status"])
	assert.Equal(t, "en", decoded["language"])

	audio, ok := decoded["audio"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(0), audio["duration_seconds"])
	assert.Equal(t, float64(8000), audio["sample_rate"])
	assert.Equal(t, float64(1), audio["channels"])
}

func TestSynthesize_PayloadSet(t *testing.T) {
	t.Parallel()

	payloads, err := Synthesize(transcriptEntity(t))
	require.NoError(t, err)

	names := payloadNames(payloads)
	assert.Subset(t, names, []string{
		"maximal-valid",
		"missing-required/event_id",
		"missing-required/event_type",
		"missing-required/timestamp",
		"missing-required/topic",
		"missing-required/status",
		"missing-required/audio/duration_seconds",
		"missing-required/audio/sample_rate",
		"violates-format/event_id",
		"violates-format/timestamp",
		"violates-const/event_type",
		"violates-enum/status",
		"violates-minLength/topic",
		"violates-maxLength/topic",
		"violates-pattern/language",
		"violates-maxItems/tags",
		"violates-uniqueItems/tags",
		"violates-minLength/tags/0",
		"violates-minimum/audio/duration_seconds",
		"violates-exclusiveMaximum/audio/duration_seconds",
		"violates-minimum/audio/sample_rate",
		"violates-maximum/audio/sample_rate",
		"unknown-key",
	})

	for _, p := range payloads[1:] {
		assert.True(t, p.WantReject, "payload %s must be a rejection case", p.Name)
		assert.NotEmpty(t, p.FieldPath, "payload %s must name its field", p.Name)
	}
}

func TestSynthesize_MutationsAreIsolated(t *testing.T) {
	t.Parallel()

	payloads, err := Synthesize(transcriptEntity(t))
	require.NoError(t, err)

	tests := map[string]struct {
		payload string
		check   func(t *testing.T, decoded map[string]any)
	}{
		"missing required removes only the field": {
			payload: "missing-required/event_id",
			check: func(t *testing.T, decoded map[string]any) {
				_, present := decoded["event_id"]
				assert.False(t, present)
				assert.Equal(t, "transcript.created", decoded["event_type"])
			},
		},
		"nested removal keeps siblings": {
			payload: "missing-required/audio/duration_seconds",
			check: func(t *testing.T, decoded map[string]any) {
				audio := decoded["audio"].(map[string]any)
				_, present := audio["duration_seconds"]
				assert.False(t, present)
				assert.Equal(t, float64(8000), audio["sample_rate"])
			},
		},
		"length violation replaces only the field": {
			payload: "violates-minLength/topic",
			check: func(t *testing.T, decoded map[string]any) {
				assert.Equal(t, "", decoded["topic"])
				assert.Equal(t, "pending", decoded["status"])
			},
		},
		"exclusive maximum lands on the bound": {
			payload: "violates-exclusiveMaximum/audio/duration_seconds",
			check: func(t *testing.T, decoded map[string]any) {
				audio := decoded["audio"].(map[string]any)
				assert.Equal(t, float64(86400), audio["duration_seconds"])
			},
		},
		"unique violation is a duplicate pair": {
			payload: "violates-uniqueItems/tags",
			check: func(t *testing.T, decoded map[string]any) {
				tags := decoded["tags"].([]any)
				require.Len(t, tags, 2)
				assert.Equal(t, tags[0], tags[1])
			},
		},
		"max items overflows by one": {
			payload: "violates-maxItems/tags",
			check: func(t *testing.T, decoded map[string]any) {
				assert.Len(t, decoded["tags"].([]any), 11)
			},
		},
		"item violation targets index zero": {
			payload: "violates-minLength/tags/0",
			check: func(t *testing.T, decoded map[string]any) {
				tags := decoded["tags"].([]any)
				require.Len(t, tags, 1)
				assert.Equal(t, "", tags[0])
			},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			p := findPayload(t, payloads, tc.payload)
			var decoded map[string]any
			require.NoError(t, json.Unmarshal(p.Data, &decoded))
			tc.check(t, decoded)
		})
	}
}

func TestSynthesize_ItemViolationPath(t *testing.T) {
	t.Parallel()

	payloads, err := Synthesize(transcriptEntity(t))
	require.NoError(t, err)

	p := findPayload(t, payloads, "violates-minLength/tags/0")
	assert.True(t, p.WantReject)
	assert.Equal(t, "/tags/0", p.FieldPath)
	assert.Equal(t, ir.ConstraintMinLength, p.Constraint)
}

func TestSynthesize_UniqueElementsWhenRequired(t *testing.T) {
	t.Parallel()

	payloads, err := Synthesize(transcriptEntity(t))
	require.NoError(t, err)

	p := findPayload(t, payloads, "violates-maxItems/tags")
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(p.Data, &decoded))

	tags := decoded["tags"].([]any)
	seen := map[any]bool{}
	for _, tag := range tags {
		assert.False(t, seen[tag], "duplicate element %v", tag)
		seen[tag] = true
	}
}
