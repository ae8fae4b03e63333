// Package pipeline orchestrates the compile stages: discover, load,
// resolve, build, emit, verify. Stage outputs are handed forward
// immutably; the first fatal error cancels in-flight work and aborts
// the run.
package pipeline

import (
	"context"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/delorenj/holyfields/internal/component"
	"github.com/delorenj/holyfields/internal/emit"
	"github.com/delorenj/holyfields/internal/errors"
	"github.com/delorenj/holyfields/internal/ir"
	"github.com/delorenj/holyfields/internal/progress"
	"github.com/delorenj/holyfields/internal/resolver"
	"github.com/delorenj/holyfields/internal/schema"
	"github.com/delorenj/holyfields/internal/verify"
)

// Display receives stage lifecycle events. *progress.ProgressDisplay
// satisfies it; tests pass a recorder.
type Display interface {
	StartStage(progress.StageInfo) error
	CompleteStage(progress.StageInfo) error
	FailStage(progress.StageInfo, error) error
}

// nopDisplay swallows stage events when no display is attached.
type nopDisplay struct{}

func (nopDisplay) StartStage(progress.StageInfo) error       { return nil }
func (nopDisplay) CompleteStage(progress.StageInfo) error    { return nil }
func (nopDisplay) FailStage(progress.StageInfo, error) error { return nil }

// Options configure a pipeline run.
type Options struct {
	// SchemaDir is the root scanned for *.schema.json documents.
	SchemaDir string
	// OutDir is where per-target artifact trees are written. Empty
	// means emit in memory only (used by check).
	OutDir string
	// Targets selects emitters by registered name. Empty means all.
	Targets []string
	// Workers caps parallelism within each stage.
	Workers int
	// Versions maps component names to contract versions.
	Versions component.Versions
	// Verify enables the cross-target agreement stage.
	Verify bool
}

// Result is the outcome of a successful run.
type Result struct {
	Module  *ir.Module
	Outputs []*emit.Output
	Report  *verify.Report
}

// Pipeline wires the stages together.
type Pipeline struct {
	opts    Options
	log     *zap.Logger
	display Display
}

func New(opts Options, log *zap.Logger, display Display) *Pipeline {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if display == nil {
		display = nopDisplay{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{opts: opts, log: log, display: display}
}

// stage names in execution order. Verify is skipped when disabled but
// still counted, so the [N/6] counters stay stable across modes.
var stageNames = []string{"discover", "load", "resolve", "build", "emit", "verify"}

func (p *Pipeline) stageInfo(name string) progress.StageInfo {
	number := 1
	for i, n := range stageNames {
		if n == name {
			number = i + 1
			break
		}
	}
	return progress.StageInfo{Name: name, Number: number, TotalStages: len(stageNames)}
}

// runStage wraps fn with display events and error annotation.
func runStage[T any](p *Pipeline, name string, fn func() (T, error)) (T, error) {
	info := p.stageInfo(name)
	_ = p.display.StartStage(info)
	out, err := fn()
	if err != nil {
		_ = p.display.FailStage(info, err)
		if pe, ok := err.(*errors.PipelineError); ok {
			return out, pe.WithStep(name)
		}
		return out, err
	}
	_ = p.display.CompleteStage(info)
	return out, nil
}

// Run executes every stage and returns the aggregate result.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	roots, err := runStage(p, "discover", func() ([]string, error) {
		return p.discover()
	})
	if err != nil {
		return nil, err
	}
	p.log.Info("discovered schema documents", zap.Int("count", len(roots)))

	set, err := runStage(p, "load", func() (*schema.Set, error) {
		return schema.NewLoader(p.opts.SchemaDir).Load(ctx, roots, p.opts.Workers)
	})
	if err != nil {
		return nil, err
	}

	graph, err := runStage(p, "resolve", func() (*resolver.Graph, error) {
		return resolver.Resolve(ctx, set, p.opts.Workers)
	})
	if err != nil {
		return nil, err
	}

	mod, err := runStage(p, "build", func() (*ir.Module, error) {
		return ir.NewBuilder(graph, p.opts.Versions).Build()
	})
	if err != nil {
		return nil, err
	}
	p.log.Info("built intermediate representation", zap.Int("entities", len(mod.Entities)))

	emitters, err := p.emitters()
	if err != nil {
		return nil, err
	}

	outputs, err := runStage(p, "emit", func() ([]*emit.Output, error) {
		return p.emitAll(ctx, emitters, mod)
	})
	if err != nil {
		return nil, err
	}

	result := &Result{Module: mod, Outputs: outputs}
	if !p.opts.Verify {
		return result, nil
	}

	report, err := runStage(p, "verify", func() (*verify.Report, error) {
		report, err := verify.New(emitters, p.opts.Workers).Run(ctx, mod)
		if err != nil {
			return nil, err
		}
		if mismatches := report.Mismatches(); len(mismatches) > 0 {
			return report, errors.New(errors.KindVerificationMismatch,
				"%d cross-target mismatches, first: %s", len(mismatches), mismatches[0])
		}
		return report, nil
	})
	result.Report = report
	if err != nil {
		return result, err
	}
	return result, nil
}

func (p *Pipeline) discover() ([]string, error) {
	roots, err := schema.Discover(p.opts.SchemaDir)
	if err != nil {
		return nil, err
	}
	if len(roots) == 0 {
		return nil, errors.New(errors.KindDocumentNotFound,
			"no *.schema.json documents under %s", p.opts.SchemaDir)
	}
	return roots, nil
}

// emitters resolves the configured target names against the registry,
// defaulting to every registered target, in sorted order.
func (p *Pipeline) emitters() ([]emit.Emitter, error) {
	names := p.opts.Targets
	if len(names) == 0 {
		names = emit.Targets()
	}
	sorted := make([]string, len(names))
	copy(sorted, names)
	sort.Strings(sorted)

	out := make([]emit.Emitter, 0, len(sorted))
	for _, name := range sorted {
		e, err := emit.New(name)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// emitAll runs every emitter in parallel and, when an output directory
// is configured, writes each target's tree atomically per file.
func (p *Pipeline) emitAll(ctx context.Context, emitters []emit.Emitter, mod *ir.Module) ([]*emit.Output, error) {
	outputs := make([]*emit.Output, len(emitters))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for i, e := range emitters {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := e.Emit(mod)
			if err != nil {
				return err
			}
			if p.opts.OutDir != "" {
				if err := emit.WriteOutput(p.opts.OutDir, out); err != nil {
					return errors.Wrap(errors.KindEmissionFailure, err,
						"writing %s output", e.Name())
				}
			}
			p.log.Info("emitted target",
				zap.String("target", e.Name()),
				zap.Int("files", len(out.Files)))
			outputs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outputs, nil
}
