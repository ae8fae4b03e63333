package testutil

// EventFixture returns a small but representative schema tree: a common
// document carrying shared $defs, a base event contract, and a derived
// event that narrows the base via allOf. It exercises cross-document
// references, named enums, pattern defs, formats, array constraints,
// and routing keys.
func EventFixture() map[string]string {
	return map[string]string{
		"common/types.schema.json": `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "title": "AudioMetadata",
  "description": "Technical properties of a processed audio stream.",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "duration_seconds": {"type": "number", "minimum": 0, "exclusiveMaximum": 86400},
    "sample_rate": {"type": "integer", "minimum": 8000, "maximum": 192000},
    "channels": {"type": "integer", "minimum": 1, "maximum": 8}
  },
  "required": ["duration_seconds", "sample_rate"],
  "$defs": {
    "LanguageCode": {
      "type": "string",
      "pattern": "^[a-z]{2}(-[A-Z]{2})?$"
    },
    "TranscriptStatus": {
      "type": "string",
      "enum": ["pending", "processing", "completed", "failed"]
    }
  }
}
`,
		"messaging/base_event.schema.json": `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "title": "BaseEvent",
  "description": "Envelope fields common to every event.",
  "type": "object",
  "additionalProperties": false,
  "x-routing-key": "events.base",
  "properties": {
    "event_id": {"type": "string", "format": "uuid"},
    "event_type": {"type": "string"},
    "timestamp": {"type": "string", "format": "date-time"}
  },
  "required": ["event_id", "event_type", "timestamp"]
}
`,
		"messaging/transcript_created.schema.json": `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "title": "TranscriptCreated",
  "description": "Published when a transcript has been produced for an audio stream.",
  "type": "object",
  "additionalProperties": false,
  "x-routing-key": "transcript.created",
  "allOf": [{"$ref": "base_event.schema.json"}],
  "properties": {
    "event_type": {"const": "transcript.created"},
    "topic": {"type": "string", "minLength": 1, "maxLength": 100},
    "status": {"$ref": "../common/types.schema.json#/$defs/TranscriptStatus"},
    "language": {"$ref": "../common/types.schema.json#/$defs/LanguageCode"},
    "audio": {"$ref": "../common/types.schema.json"},
    "tags": {
      "type": "array",
      "items": {"type": "string", "minLength": 1},
      "maxItems": 10,
      "uniqueItems": true
    }
  },
  "required": ["topic", "status"]
}
`,
	}
}

// VersionsFixture is a components manifest matching EventFixture.
const VersionsFixture = `components:
  common: "0.3.0"
  messaging: "1.2.0"
`
