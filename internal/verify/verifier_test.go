package verify

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/delorenj/holyfields/internal/emit"
	"github.com/delorenj/holyfields/internal/emit/golang"
	"github.com/delorenj/holyfields/internal/emit/python"
	"github.com/delorenj/holyfields/internal/emit/typescript"
	"github.com/delorenj/holyfields/internal/ir"
	"github.com/delorenj/holyfields/internal/testutil"
)

func allEmitters() []emit.Emitter {
	return []emit.Emitter{&python.Emitter{}, &typescript.Emitter{}, &golang.Emitter{}}
}

func TestVerifier_AllTargetsAgree(t *testing.T) {
	t.Parallel()

	mod := testutil.EventModule(t)
	report, err := New(allEmitters(), 4).Run(context.Background(), mod)
	require.NoError(t, err)

	assert.Empty(t, report.Mismatches())
	assert.NotEmpty(t, report.RunID)
	assert.Greater(t, report.Payloads(), len(mod.Entities))
	assert.Contains(t, report.Summary(), "all targets agree")
}

func TestVerifier_ResultsAreSorted(t *testing.T) {
	t.Parallel()

	mod := testutil.EventModule(t)
	report, err := New(allEmitters(), 2).Run(context.Background(), mod)
	require.NoError(t, err)

	require.Len(t, report.Results, 3)
	assert.Equal(t, "AudioMetadata", report.Results[0].Entity)
	assert.Equal(t, "BaseEvent", report.Results[1].Entity)
	assert.Equal(t, "TranscriptCreated", report.Results[2].Entity)
	assert.Equal(t, "common/types.schema.json", report.Results[0].Document)
}

func TestVerifier_EveryPayloadHasAllTargets(t *testing.T) {
	t.Parallel()

	mod := testutil.EventModule(t)
	report, err := New(allEmitters(), 1).Run(context.Background(), mod)
	require.NoError(t, err)

	for _, result := range report.Results {
		require.NotEmpty(t, result.Payloads)
		for _, po := range result.Payloads {
			assert.Len(t, po.Targets, 3, "%s %s", result.Entity, po.Payload)
		}
	}
}

// lenientEmitter accepts everything, simulating a target whose binding
// has drifted from the shared validation semantics.
type lenientEmitter struct{}

func (lenientEmitter) Name() string { return "lenient" }

func (lenientEmitter) Emit(*ir.Module) (*emit.Output, error) {
	return &emit.Output{Target: "lenient"}, nil
}

func (lenientEmitter) Binding(*ir.Entity) emit.Binding { return lenientBinding{} }

type lenientBinding struct{}

func (lenientBinding) Decode([]byte) (map[string]any, error) { return map[string]any{}, nil }

func TestVerifier_ReportsDisagreement(t *testing.T) {
	t.Parallel()

	mod := testutil.EventModule(t)
	emitters := []emit.Emitter{&golang.Emitter{}, lenientEmitter{}}
	report, err := New(emitters, 2).Run(context.Background(), mod)
	require.NoError(t, err)

	mismatches := report.Mismatches()
	require.NotEmpty(t, mismatches)

	// The lenient target accepts payloads the real one rejects.
	found := false
	for _, m := range mismatches {
		if strings.Contains(m, "lenient") && strings.Contains(m, "accepted") {
			found = true
			break
		}
	}
	assert.True(t, found, "expected a lenient-accepted mismatch in %v", mismatches)
	assert.Contains(t, report.Summary(), "mismatches")
}

func TestVerifier_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mod := testutil.EventModule(t)
	_, err := New(allEmitters(), 1).Run(ctx, mod)
	require.ErrorIs(t, err, context.Canceled)
}
