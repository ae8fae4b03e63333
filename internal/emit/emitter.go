// Package emit defines the target emitter contract and the
// deterministic artifact writer. An emitter translates the IR into one
// language's typed, runtime-validated bindings; emitting the same IR
// twice must produce byte-identical output. Emitters own correctness at
// emission time: a target-specific gap is handled by choosing an
// equivalent native construct, never by patching already-emitted text.
package emit

import (
	"sort"

	"github.com/delorenj/holyfields/internal/ir"
)

// File is one emitted file, with a path relative to the target's
// output root.
type File struct {
	Path    string
	Content []byte
}

// Output is the complete artifact set for one target: one declaration
// file per entity plus an index file enumerating every generated
// entity.
type Output struct {
	Target string
	Files  []File
}

// sortFiles orders files by path, the stable output order.
func (o *Output) sortFiles() {
	sort.Slice(o.Files, func(i, j int) bool { return o.Files[i].Path < o.Files[j].Path })
}

// Emitter is one output language backend.
type Emitter interface {
	// Name is the target language identifier (e.g. "python").
	Name() string
	// Emit renders the whole module. The result is deterministic.
	Emit(mod *ir.Module) (*Output, error)
	// Binding returns the runtime twin of the emitted binding for one
	// entity: it must accept, reject, and decode payloads exactly as
	// the emitted code does, so the verifier can prove cross-target
	// agreement without invoking the target toolchain.
	Binding(e *ir.Entity) Binding
}

// Binding validates and decodes payloads for a single entity.
type Binding interface {
	// Decode parses a payload, enforcing every constraint. On failure
	// the returned error is an Issues value enumerating every violated
	// field, not just the first. On success the decoded field values
	// are returned in canonical form (string, float64, bool, []any,
	// map[string]any) with absent optional fields omitted.
	Decode(data []byte) (map[string]any, error)
}
