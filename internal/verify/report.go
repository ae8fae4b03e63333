package verify

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

// TargetOutcome is one target's verdict on one payload.
type TargetOutcome struct {
	Target   string   `json:"target"`
	Rejected bool     `json:"rejected"`
	Issues   []string `json:"issues,omitempty"`
}

// PayloadOutcome collects every target's verdict on one payload plus
// any cross-target mismatches found.
type PayloadOutcome struct {
	Payload    string          `json:"payload"`
	WantReject bool            `json:"want_reject"`
	Targets    []TargetOutcome `json:"targets"`
	Mismatches []string        `json:"mismatches,omitempty"`
}

// EntityResult is the verification outcome for one entity.
type EntityResult struct {
	Entity   string           `json:"entity"`
	Document string           `json:"document"`
	Payloads []PayloadOutcome `json:"payloads"`
}

// Report is the full verification record for one run.
type Report struct {
	RunID   string         `json:"run_id"`
	Results []EntityResult `json:"results"`
}

func NewReport() *Report {
	return &Report{RunID: uuid.NewString()}
}

// Mismatches flattens every recorded disagreement, prefixed by entity
// and payload name.
func (r *Report) Mismatches() []string {
	var out []string
	for _, er := range r.Results {
		for _, po := range er.Payloads {
			for _, m := range po.Mismatches {
				out = append(out, fmt.Sprintf("%s: %s", er.Entity, m))
			}
		}
	}
	return out
}

// Payloads counts the payloads exercised across all entities.
func (r *Report) Payloads() int {
	n := 0
	for _, er := range r.Results {
		n += len(er.Payloads)
	}
	return n
}

// Summary renders a short human-readable digest.
func (r *Report) Summary() string {
	mismatches := r.Mismatches()
	var b strings.Builder
	fmt.Fprintf(&b, "verification run %s: %d entities, %d payloads", r.RunID, len(r.Results), r.Payloads())
	if len(mismatches) == 0 {
		b.WriteString(", all targets agree")
		return b.String()
	}
	fmt.Fprintf(&b, ", %d mismatches:", len(mismatches))
	for _, m := range mismatches {
		b.WriteString("\n  ")
		b.WriteString(m)
	}
	return b.String()
}

// Encode renders the report as indented JSON for file output.
func (r *Report) Encode() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
