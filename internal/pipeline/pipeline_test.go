package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/delorenj/holyfields/internal/component"
	apperrors "github.com/delorenj/holyfields/internal/errors"
	"github.com/delorenj/holyfields/internal/progress"
	"github.com/delorenj/holyfields/internal/testutil"

	_ "github.com/delorenj/holyfields/internal/emit/golang"
	_ "github.com/delorenj/holyfields/internal/emit/python"
	_ "github.com/delorenj/holyfields/internal/emit/typescript"
)

func fixtureOptions(t *testing.T, outDir string) Options {
	t.Helper()
	return Options{
		SchemaDir: testutil.WriteSchemaTree(t, testutil.EventFixture()),
		OutDir:    outDir,
		Workers:   4,
		Versions:  component.Versions{"common": "0.3.0", "messaging": "1.2.0"},
		Verify:    true,
	}
}

func TestRun_FullPipeline(t *testing.T) {
	t.Parallel()

	outDir := t.TempDir()
	p := New(fixtureOptions(t, outDir), nil, nil)
	result, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, result.Module.Entities, 3)
	require.Len(t, result.Outputs, 3)

	// Targets are emitted in sorted name order.
	assert.Equal(t, "go", result.Outputs[0].Target)
	assert.Equal(t, "python", result.Outputs[1].Target)
	assert.Equal(t, "typescript", result.Outputs[2].Target)

	require.NotNil(t, result.Report)
	assert.Empty(t, result.Report.Mismatches())

	for _, artifact := range []string{
		"go/index.go",
		"go/messaging_transcript_created.go",
		"python/__init__.py",
		"python/messaging/transcript_created.py",
		"typescript/index.ts",
		"typescript/messaging/transcript_created.ts",
	} {
		_, err := os.Stat(filepath.Join(outDir, artifact))
		assert.NoError(t, err, artifact)
	}
}

func TestRun_InMemoryOnly(t *testing.T) {
	t.Parallel()

	p := New(fixtureOptions(t, ""), nil, nil)
	result, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Outputs, 3)
	for _, out := range result.Outputs {
		assert.NotEmpty(t, out.Files)
	}
}

func TestRun_SkipVerify(t *testing.T) {
	t.Parallel()

	opts := fixtureOptions(t, "")
	opts.Verify = false
	result, err := New(opts, nil, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Nil(t, result.Report)
}

func TestRun_TargetSubset(t *testing.T) {
	t.Parallel()

	opts := fixtureOptions(t, "")
	opts.Targets = []string{"typescript", "go"}
	result, err := New(opts, nil, nil).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Outputs, 2)
	assert.Equal(t, "go", result.Outputs[0].Target)
	assert.Equal(t, "typescript", result.Outputs[1].Target)
}

func TestRun_UnknownTarget(t *testing.T) {
	t.Parallel()

	opts := fixtureOptions(t, "")
	opts.Targets = []string{"cobol"}
	_, err := New(opts, nil, nil).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cobol")
}

func TestRun_NoSchemas(t *testing.T) {
	t.Parallel()

	opts := Options{SchemaDir: t.TempDir(), Workers: 1}
	_, err := New(opts, nil, nil).Run(context.Background())
	require.Error(t, err)

	var pe *apperrors.PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, apperrors.KindDocumentNotFound, pe.Kind)
	assert.Contains(t, pe.Chain, "discover")
}

func TestRun_Deterministic(t *testing.T) {
	t.Parallel()

	opts := fixtureOptions(t, "")
	first, err := New(opts, nil, nil).Run(context.Background())
	require.NoError(t, err)
	second, err := New(opts, nil, nil).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, second.Outputs, len(first.Outputs))
	for i := range first.Outputs {
		a, b := first.Outputs[i], second.Outputs[i]
		require.Len(t, b.Files, len(a.Files))
		for j := range a.Files {
			assert.Equal(t, a.Files[j].Path, b.Files[j].Path)
			assert.Equal(t, string(a.Files[j].Content), string(b.Files[j].Content))
		}
	}
}

// stageRecorder captures the display lifecycle for assertions.
type stageRecorder struct {
	started   []string
	completed []string
	failed    []string
}

func (r *stageRecorder) StartStage(info progress.StageInfo) error {
	r.started = append(r.started, info.Name)
	return nil
}

func (r *stageRecorder) CompleteStage(info progress.StageInfo) error {
	r.completed = append(r.completed, info.Name)
	return nil
}

func (r *stageRecorder) FailStage(info progress.StageInfo, err error) error {
	r.failed = append(r.failed, info.Name)
	return nil
}

func TestRun_StageLifecycle(t *testing.T) {
	t.Parallel()

	rec := &stageRecorder{}
	_, err := New(fixtureOptions(t, ""), nil, rec).Run(context.Background())
	require.NoError(t, err)

	want := []string{"discover", "load", "resolve", "build", "emit", "verify"}
	assert.Equal(t, want, rec.started)
	assert.Equal(t, want, rec.completed)
	assert.Empty(t, rec.failed)
}

func TestRun_FailureReachesDisplay(t *testing.T) {
	t.Parallel()

	rec := &stageRecorder{}
	opts := Options{SchemaDir: t.TempDir(), Workers: 1}
	_, err := New(opts, nil, rec).Run(context.Background())
	require.Error(t, err)

	assert.Equal(t, []string{"discover"}, rec.started)
	assert.Empty(t, rec.completed)
	assert.Equal(t, []string{"discover"}, rec.failed)
}
