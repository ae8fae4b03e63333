package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntityName(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		title   string
		docPath string
		want    string
	}{
		"title wins":          {title: "Voice Transcription Event", docPath: "x/y.schema.json", want: "VoiceTranscriptionEvent"},
		"dotted title":        {title: "transcription.v1", docPath: "x/y.schema.json", want: "TranscriptionV1"},
		"filename fallback":   {title: "", docPath: "messaging/transcript_created.schema.json", want: "TranscriptCreated"},
		"plain json filename": {title: "", docPath: "audio.json", want: "Audio"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, EntityName(tt.title, tt.docPath))
		})
	}
}

func TestPascal(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		input string
		want  string
	}{
		"snake":        {input: "audio_metadata", want: "AudioMetadata"},
		"kebab":        {input: "transcript-created", want: "TranscriptCreated"},
		"spaces":       {input: "Base Event", want: "BaseEvent"},
		"already":      {input: "BaseEvent", want: "BaseEvent"},
		"punctuation":  {input: "what?!", want: "What"},
		"empty":        {input: "", want: ""},
		"digit suffix": {input: "large-v2", want: "LargeV2"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Pascal(tt.input))
		})
	}
}

func TestSnakeCase(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		input string
		want  string
	}{
		"pascal":     {input: "TranscriptCreated", want: "transcript_created"},
		"camel":      {input: "audioMetadata", want: "audio_metadata"},
		"lower":      {input: "topic", want: "topic"},
		"single cap": {input: "A", want: "a"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, SnakeCase(tt.input))
		})
	}
}
