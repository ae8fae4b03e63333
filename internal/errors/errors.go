// Package errors defines the fatal error taxonomy for the compilation
// pipeline. Every error carries the causal chain (document, reference,
// field) that produced it so a failure can be traced back to a schema
// location without re-running the pipeline.
package errors

import (
	"fmt"
	"strings"
)

// Kind classifies a pipeline failure. All kinds are fatal to the run
// that produced them; none are retried.
type Kind int

const (
	// KindDocumentNotFound indicates a referenced schema document could not be read.
	KindDocumentNotFound Kind = iota
	// KindParseError indicates a schema document contained malformed syntax.
	KindParseError
	// KindFragmentNotFound indicates a reference fragment did not resolve to a node.
	KindFragmentNotFound
	// KindCyclicReference indicates reference resolution found a cycle.
	KindCyclicReference
	// KindCompositionConflict indicates a derived field changed a base field's fundamental type.
	KindCompositionConflict
	// KindUnsupportedConstruct indicates a schema feature the IR cannot represent.
	KindUnsupportedConstruct
	// KindEmissionFailure indicates a target could not render an IR construct.
	KindEmissionFailure
	// KindVerificationMismatch indicates targets disagreed on a payload's validity or decoded value.
	KindVerificationMismatch
)

// String returns the string representation of a Kind.
func (k Kind) String() string {
	switch k {
	case KindDocumentNotFound:
		return "DocumentNotFound"
	case KindParseError:
		return "ParseError"
	case KindFragmentNotFound:
		return "FragmentNotFound"
	case KindCyclicReference:
		return "CyclicReference"
	case KindCompositionConflict:
		return "CompositionConflict"
	case KindUnsupportedConstruct:
		return "UnsupportedConstruct"
	case KindEmissionFailure:
		return "EmissionFailure"
	case KindVerificationMismatch:
		return "VerificationMismatch"
	default:
		return "Unknown"
	}
}

// PipelineError is the error type surfaced by every pipeline stage.
type PipelineError struct {
	Kind    Kind
	Message string
	Chain   []string // outermost first: document, then reference/field steps
	Cause   error
}

// Error formats the error with its full causal chain.
func (e *PipelineError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Kind, e.Message)
	if len(e.Chain) > 0 {
		fmt.Fprintf(&b, " (at %s)", strings.Join(e.Chain, " -> "))
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap returns the underlying cause, if any.
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// WithStep returns a copy of the error with one more step appended to the
// causal chain. The receiver is not modified; errors are immutable once
// raised so concurrent stages can share them.
func (e *PipelineError) WithStep(step string) *PipelineError {
	chain := make([]string, 0, len(e.Chain)+1)
	chain = append(chain, e.Chain...)
	chain = append(chain, step)
	return &PipelineError{Kind: e.Kind, Message: e.Message, Chain: chain, Cause: e.Cause}
}

// New creates a PipelineError with the given kind and message.
func New(kind Kind, format string, args ...any) *PipelineError {
	return &PipelineError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a PipelineError wrapping an underlying cause.
func Wrap(kind Kind, cause error, format string, args ...any) *PipelineError {
	return &PipelineError{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// At creates a PipelineError with an initial causal chain.
func At(kind Kind, chain []string, format string, args ...any) *PipelineError {
	return &PipelineError{Kind: kind, Message: fmt.Sprintf(format, args...), Chain: chain}
}
