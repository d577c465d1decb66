package harness

import (
	"github.com/roach88/wsm/internal/ir"
	"github.com/roach88/wsm/internal/workspace"
)

// TraceEvent records the outcome of one step. Keys are step, op, as,
// target, entity, id, version, source, fields, error, entities and clock;
// keys without a value are omitted.
type TraceEvent = ir.Object

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every step behaved as declared and every assertion
	// held.
	Pass bool `json:"pass"`

	// Trace has one event per step, in step order.
	Trace []TraceEvent `json:"trace"`

	// Errors lists step and assertion failures.
	Errors []string `json:"errors,omitempty"`

	// Storage is the storage after the last step.
	Storage *workspace.MutableStorage `json:"-"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) addTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
