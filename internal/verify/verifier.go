package verify

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/sync/errgroup"

	"github.com/delorenj/holyfields/internal/emit"
	"github.com/delorenj/holyfields/internal/ir"
)

// Verifier runs synthesized payloads against every target's binding
// and checks that all targets agree.
type Verifier struct {
	emitters []emit.Emitter
	workers  int
}

// New builds a verifier over the given emitters. Entities are verified
// in parallel, up to workers at a time.
func New(emitters []emit.Emitter, workers int) *Verifier {
	if workers < 1 {
		workers = 1
	}
	return &Verifier{emitters: emitters, workers: workers}
}

// Run verifies every entity in the module. The returned report always
// covers all entities that were checked before the context was
// cancelled; mismatches are findings in the report, not errors.
func (v *Verifier) Run(ctx context.Context, mod *ir.Module) (*Report, error) {
	report := NewReport()

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(v.workers)

	for i := range mod.Entities {
		entity := mod.Entities[i]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			result, err := v.verifyEntity(entity)
			if err != nil {
				return err
			}
			mu.Lock()
			report.Results = append(report.Results, result)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(report.Results, func(i, j int) bool {
		a, b := report.Results[i], report.Results[j]
		if a.Document != b.Document {
			return a.Document < b.Document
		}
		return a.Entity < b.Entity
	})
	return report, nil
}

// verifyEntity feeds every synthesized payload through every target's
// binding and records disagreements.
func (v *Verifier) verifyEntity(entity *ir.Entity) (EntityResult, error) {
	result := EntityResult{Entity: entity.Name, Document: entity.Document}

	payloads, err := Synthesize(entity)
	if err != nil {
		return result, err
	}

	bindings := make(map[string]emit.Binding, len(v.emitters))
	for _, e := range v.emitters {
		bindings[e.Name()] = e.Binding(entity)
	}

	for _, p := range payloads {
		outcome := PayloadOutcome{Payload: p.Name, WantReject: p.WantReject}
		decoded := map[string]map[string]any{}

		for _, e := range v.emitters {
			target := e.Name()
			value, err := bindings[target].Decode(p.Data)
			to := TargetOutcome{Target: target}
			if err != nil {
				to.Rejected = true
				to.Issues = issuePaths(err)
			} else {
				decoded[target] = value
			}
			outcome.Targets = append(outcome.Targets, to)
		}

		outcome.Mismatches = diagnose(p, outcome.Targets, decoded)
		result.Payloads = append(result.Payloads, outcome)
	}
	return result, nil
}

// diagnose compares the per-target outcomes for one payload. Every
// target must land on the same side of accept/reject, a rejection must
// name the violated field, and accepted payloads must decode to
// identical values.
func diagnose(p Payload, targets []TargetOutcome, decoded map[string]map[string]any) []string {
	var mismatches []string

	for _, to := range targets {
		if to.Rejected != p.WantReject {
			verb := "accepted"
			if to.Rejected {
				verb = "rejected"
			}
			mismatches = append(mismatches, fmt.Sprintf("%s %s payload %q", to.Target, verb, p.Name))
			continue
		}
		if p.WantReject && p.FieldPath != "" && !containsPath(to.Issues, p.FieldPath) {
			mismatches = append(mismatches,
				fmt.Sprintf("%s rejected %q without naming %s (got %v)", to.Target, p.Name, p.FieldPath, to.Issues))
		}
	}

	if !p.WantReject && len(decoded) > 1 {
		reference := targets[0].Target
		base, ok := decoded[reference]
		if ok {
			for _, to := range targets[1:] {
				other, ok := decoded[to.Target]
				if !ok {
					continue
				}
				if diff := cmp.Diff(base, other); diff != "" {
					mismatches = append(mismatches,
						fmt.Sprintf("%s decoded %q differently than %s:\n%s", to.Target, p.Name, reference, diff))
				}
			}
		}
	}
	return mismatches
}

func containsPath(paths []string, want string) bool {
	for _, p := range paths {
		if p == want {
			return true
		}
	}
	return false
}

func issuePaths(err error) []string {
	issues, ok := emit.AsIssues(err)
	if !ok {
		return []string{err.Error()}
	}
	return issues.Paths()
}
