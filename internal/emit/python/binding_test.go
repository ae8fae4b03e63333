package python

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/delorenj/holyfields/internal/emit"
	"github.com/delorenj/holyfields/internal/testutil"
)

func transcriptBinding(t *testing.T) emit.Binding {
	t.Helper()
	mod := testutil.EventModule(t)
	entity, ok := mod.Entity("TranscriptCreated")
	require.True(t, ok)
	return (&Emitter{}).Binding(entity)
}

func transcriptPayload() map[string]any {
	return map[string]any{
		"event_id":   "550e8400-e29b-41d4-a716-446655440000",
		"event_type": "transcript.created",
		"timestamp":  "2024-01-01T00:00:00Z",
		"topic":      "standup",
		"status":     "completed",
		"language":   "en-US",
		"audio": map[string]any{
			"duration_seconds": 12.5,
			"sample_rate":      16000,
			"channels":         2,
		},
		"tags": []any{"daily", "eng"},
	}
}

func decodePayload(t *testing.T, b emit.Binding, payload map[string]any) (map[string]any, error) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return b.Decode(data)
}

func requireIssue(t *testing.T, err error, path, code string) {
	t.Helper()
	require.Error(t, err)
	issues, ok := emit.AsIssues(err)
	require.True(t, ok, "expected validation issues, got %v", err)
	for _, issue := range issues {
		if issue.Path == path && issue.Code == code {
			return
		}
	}
	t.Fatalf("no issue %s at %s in %v", code, path, issues)
}

func TestBinding_AcceptsValidPayload(t *testing.T) {
	t.Parallel()

	b := transcriptBinding(t)
	decoded, err := decodePayload(t, b, transcriptPayload())
	require.NoError(t, err)

	assert.Equal(t, "transcript.created", decoded["event_type"])
	assert.Equal(t, "completed", decoded["status"])
	audio, ok := decoded["audio"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 12.5, audio["duration_seconds"])
	assert.Equal(t, float64(16000), audio["sample_rate"])
	assert.Equal(t, []any{"daily", "eng"}, decoded["tags"])
}

func TestBinding_NullOptionalIsAbsent(t *testing.T) {
	t.Parallel()

	b := transcriptBinding(t)
	payload := transcriptPayload()
	payload["language"] = nil
	delete(payload, "audio")
	decoded, err := decodePayload(t, b, payload)
	require.NoError(t, err)

	_, present := decoded["language"]
	assert.False(t, present)
	_, present = decoded["audio"]
	assert.False(t, present)
}

func TestBinding_RejectsViolations(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		mutate   func(map[string]any)
		wantPath string
		wantCode string
	}{
		"unknown key": {
			mutate:   func(p map[string]any) { p["extra"] = true },
			wantPath: "/extra",
			wantCode: emit.CodeUnknownKey,
		},
		"missing required": {
			mutate:   func(p map[string]any) { delete(p, "event_id") },
			wantPath: "/event_id",
			wantCode: emit.CodeRequired,
		},
		"null required": {
			mutate:   func(p map[string]any) { p["timestamp"] = nil },
			wantPath: "/timestamp",
			wantCode: emit.CodeRequired,
		},
		"invalid uuid": {
			mutate:   func(p map[string]any) { p["event_id"] = "not-a-uuid" },
			wantPath: "/event_id",
			wantCode: emit.CodeInvalidFormat,
		},
		"invalid timestamp": {
			mutate:   func(p map[string]any) { p["timestamp"] = "yesterday" },
			wantPath: "/timestamp",
			wantCode: emit.CodeInvalidFormat,
		},
		"wrong const": {
			mutate:   func(p map[string]any) { p["event_type"] = "transcript.deleted" },
			wantPath: "/event_type",
			wantCode: emit.CodeInvalidConst,
		},
		"invalid enum": {
			mutate:   func(p map[string]any) { p["status"] = "archived" },
			wantPath: "/status",
			wantCode: emit.CodeInvalidEnum,
		},
		"empty topic": {
			mutate:   func(p map[string]any) { p["topic"] = "" },
			wantPath: "/topic",
			wantCode: emit.CodeTooShort,
		},
		"pattern mismatch": {
			mutate:   func(p map[string]any) { p["language"] = "english" },
			wantPath: "/language",
			wantCode: emit.CodePattern,
		},
		"duplicate tags": {
			mutate:   func(p map[string]any) { p["tags"] = []any{"x", "x"} },
			wantPath: "/tags",
			wantCode: emit.CodeNotUnique,
		},
		"non-string tag": {
			mutate: func(p map[string]any) {
				p["tags"] = []any{float64(1)}
			},
			wantPath: "/tags/0",
			wantCode: emit.CodeInvalidType,
		},
		"empty tag element": {
			mutate:   func(p map[string]any) { p["tags"] = []any{""} },
			wantPath: "/tags/0",
			wantCode: emit.CodeTooShort,
		},
		"nested too small": {
			mutate: func(p map[string]any) {
				p["audio"].(map[string]any)["sample_rate"] = 100
			},
			wantPath: "/audio/sample_rate",
			wantCode: emit.CodeTooSmall,
		},
		"nested exclusive maximum": {
			mutate: func(p map[string]any) {
				p["audio"].(map[string]any)["duration_seconds"] = 86400
			},
			wantPath: "/audio/duration_seconds",
			wantCode: emit.CodeTooBig,
		},
		"nested non-integer": {
			mutate: func(p map[string]any) {
				p["audio"].(map[string]any)["sample_rate"] = 0.5
			},
			wantPath: "/audio/sample_rate",
			wantCode: emit.CodeInvalidType,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			b := transcriptBinding(t)
			payload := transcriptPayload()
			tc.mutate(payload)
			_, err := decodePayload(t, b, payload)
			requireIssue(t, err, tc.wantPath, tc.wantCode)
		})
	}
}

func TestBinding_MalformedJSON(t *testing.T) {
	t.Parallel()

	b := transcriptBinding(t)
	_, err := b.Decode([]byte("{"))
	requireIssue(t, err, "/", emit.CodeParseError)

	_, err = b.Decode([]byte(`"not an object"`))
	requireIssue(t, err, "/", emit.CodeInvalidType)
}
