package harness

import (
	"github.com/roach88/keel/internal/event"
	"github.com/roach88/keel/internal/val"
)

// TraceEvent is one settled flow invocation in the execution trace.
type TraceEvent struct {
	Op     string
	Caller val.Addr
	Args   val.Map
	Status string // "ok" or the fault code
	Result val.Value
	Seq    int64 // ledger sequence of the invocation
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success: every expect clause and
	// assertion held.
	Pass bool

	// Trace contains the settled flow invocations in order. Genesis
	// invocations are not traced; they establish state.
	Trace []TraceEvent

	// Events contains every event published during the run, genesis
	// included.
	Events []event.Event

	// Errors contains expect and assertion failures. Empty if Pass.
	Errors []string
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Events: []event.Event{},
		Errors: []string{},
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
