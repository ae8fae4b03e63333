package python

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/delorenj/holyfields/internal/emit"
	"github.com/delorenj/holyfields/internal/testutil"
)

func emitFixture(t *testing.T) *emit.Output {
	t.Helper()
	mod := testutil.EventModule(t)
	out, err := (&Emitter{}).Emit(mod)
	require.NoError(t, err)
	return out
}

func fileContent(t *testing.T, out *emit.Output, path string) string {
	t.Helper()
	for _, f := range out.Files {
		if f.Path == path {
			return string(f.Content)
		}
	}
	t.Fatalf("no emitted file %s", path)
	return ""
}

func TestEmit_FileLayout(t *testing.T) {
	t.Parallel()

	out := emitFixture(t)

	paths := make([]string, 0, len(out.Files))
	for _, f := range out.Files {
		paths = append(paths, f.Path)
	}
	assert.ElementsMatch(t, []string{
		"common/audio_metadata.py",
		"common/__init__.py",
		"messaging/base_event.py",
		"messaging/transcript_created.py",
		"messaging/__init__.py",
		"__init__.py",
	}, paths)
}

func TestEmit_DerivedEventModule(t *testing.T) {
	t.Parallel()

	out := emitFixture(t)
	content := fileContent(t, out, "messaging/transcript_created.py")

	assert.Contains(t, content, "DO NOT EDIT MANUALLY")
	assert.Contains(t, content, "Schema: messaging/transcript_created.schema.json")
	assert.Contains(t, content, "Version: 1.2.0")

	assert.Contains(t, content, "class TranscriptCreated(BaseModel):")
	assert.Contains(t, content, "class TranscriptStatus(str, Enum):")
	assert.Contains(t, content, "    PENDING = \"pending\"")

	// The narrowed discriminator and constrained fields.
	assert.Contains(t, content, "event_type: Literal[\"transcript.created\"] = Field(...)")
	assert.Contains(t, content, "topic: constr(min_length=1, max_length=100) = Field(...)")
	assert.Contains(t, content, "event_id: UUID = Field(")
	assert.Contains(t, content, "timestamp: datetime = Field(")
	assert.Contains(t, content, `language: Optional[constr(pattern=r"^[a-z]{2}(-[A-Z]{2})?$")] = Field(None`)
	assert.Contains(t, content, "conlist(constr(min_length=1), max_items=10, unique_items=True)")

	// Cross-component entity reference.
	assert.Contains(t, content, "from ..common.audio_metadata import AudioMetadata")
	assert.Contains(t, content, "audio: Optional[AudioMetadata] = Field(None")

	// Strict model plus the routing key accessor.
	assert.Contains(t, content, "extra = \"forbid\"")
	assert.Contains(t, content, "def get_routing_key(cls) -> str:")
	assert.Contains(t, content, "return \"transcript.created\"")
}

func TestEmit_EnumMemberNames(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		value string
		want  string
	}{
		"kebab":         {value: "large-v2", want: "LARGE_V2"},
		"dotted":        {value: "transcript.created", want: "TRANSCRIPT_CREATED"},
		"plain":         {value: "pending", want: "PENDING"},
		"leading digit": {value: "16khz", want: "V_16KHZ"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, enumMemberName(tt.value))
		})
	}
}

func TestEmit_RootBarrel(t *testing.T) {
	t.Parallel()

	out := emitFixture(t)
	content := fileContent(t, out, "__init__.py")

	assert.Contains(t, content, "from .common.audio_metadata import AudioMetadata")
	assert.Contains(t, content, "from .messaging.base_event import BaseEvent")
	assert.Contains(t, content, "from .messaging.transcript_created import TranscriptCreated")
	assert.Contains(t, content, "__all__ = [")
	assert.Contains(t, content, "\"TranscriptCreated\",")
}

func TestEmit_Deterministic(t *testing.T) {
	t.Parallel()

	first, second := emitFixture(t), emitFixture(t)
	require.Equal(t, len(first.Files), len(second.Files))
	for i := range first.Files {
		assert.Equal(t, first.Files[i].Path, second.Files[i].Path)
		assert.Equal(t, string(first.Files[i].Content), string(second.Files[i].Content))
	}
}
