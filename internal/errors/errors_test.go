package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind_String(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		kind Kind
		want string
	}{
		"document not found":    {kind: KindDocumentNotFound, want: "DocumentNotFound"},
		"parse error":           {kind: KindParseError, want: "ParseError"},
		"fragment not found":    {kind: KindFragmentNotFound, want: "FragmentNotFound"},
		"cyclic reference":      {kind: KindCyclicReference, want: "CyclicReference"},
		"composition conflict":  {kind: KindCompositionConflict, want: "CompositionConflict"},
		"unsupported construct": {kind: KindUnsupportedConstruct, want: "UnsupportedConstruct"},
		"emission failure":      {kind: KindEmissionFailure, want: "EmissionFailure"},
		"verification mismatch": {kind: KindVerificationMismatch, want: "VerificationMismatch"},
		"unknown":               {kind: Kind(99), want: "Unknown"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.kind.String())
		})
	}
}

func TestPipelineError_Error(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		err  *PipelineError
		want string
	}{
		"message only": {
			err:  New(KindParseError, "malformed document"),
			want: "ParseError: malformed document",
		},
		"with chain": {
			err:  At(KindFragmentNotFound, []string{"a.schema.json", "#/$defs/Missing"}, "no such fragment"),
			want: "FragmentNotFound: no such fragment (at a.schema.json -> #/$defs/Missing)",
		},
		"with cause": {
			err:  Wrap(KindDocumentNotFound, fmt.Errorf("permission denied"), "reading document"),
			want: "DocumentNotFound: reading document: permission denied",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestPipelineError_Unwrap(t *testing.T) {
	t.Parallel()

	cause := fmt.Errorf("io failure")
	err := Wrap(KindDocumentNotFound, cause, "reading document")
	assert.Equal(t, cause, err.Unwrap())

	assert.Nil(t, New(KindParseError, "malformed").Unwrap())
}

func TestPipelineError_WithStep(t *testing.T) {
	t.Parallel()

	original := At(KindCyclicReference, []string{"a.schema.json#"}, "cycle detected")
	extended := original.WithStep("resolve")

	require.Equal(t, []string{"a.schema.json#", "resolve"}, extended.Chain)
	// The original error is immutable.
	assert.Equal(t, []string{"a.schema.json#"}, original.Chain)
	assert.Equal(t, original.Kind, extended.Kind)
	assert.Equal(t, original.Message, extended.Message)
}
