package contract

import (
	"github.com/roach88/keel/internal/fault"
	"github.com/roach88/keel/internal/host"
	"github.com/roach88/keel/internal/lifecycle"
	"github.com/roach88/keel/internal/val"
)

// InvocationRecord is the journal-facing summary of one external
// invocation, successful or failed. Failed invocations are recorded too:
// replay re-executes them and they deterministically fail the same way.
type InvocationRecord struct {
	Token     string
	Op        string
	Caller    val.Addr
	Args      val.Map
	LedgerSeq int64
	Status    string // "ok" or the fault code
	Result    val.Value
}

// Recorder receives every external invocation after it settles.
// Implemented by the journal.
type Recorder interface {
	RecordInvocation(rec InvocationRecord) error
}

// Dispatcher executes operations against the environment, one at a time.
//
// All mutations happen through Invoke on a single logical thread: each
// external call runs to completion (or failure) before the next is
// observed. There is no queue and no background goroutine - the caller
// that owns the Dispatcher provides the serialization, exactly as the
// execution environment guarantees one transaction at a time.
//
// Per external invocation the dispatcher:
//  1. advances the ledger sequence (one invocation = one ledger step)
//  2. stamps a transaction token for correlation
//  3. applies lifecycle gates for mutating operations
//  4. holds the reentrancy guard around guarded operations
//  5. records the settled invocation in the journal
type Dispatcher struct {
	env      *host.Env
	reg      *Registry
	life     *lifecycle.Machine
	tokens   host.TxTokenGenerator
	recorder Recorder
	quota    stepQuota
	depth    int
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithMaxSteps overrides the per-invocation step quota.
// Use WithMaxSteps(2) for testing quota enforcement.
func WithMaxSteps(n int) Option {
	return func(d *Dispatcher) {
		d.quota.maxSteps = n
	}
}

// WithRecorder attaches a journal recorder.
func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) {
		d.recorder = r
	}
}

// New creates a dispatcher over the registry's operation table.
func New(env *host.Env, reg *Registry, life *lifecycle.Machine, tokens host.TxTokenGenerator, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		env:    env,
		reg:    reg,
		life:   life,
		tokens: tokens,
		quota:  stepQuota{maxSteps: DefaultMaxSteps},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Invoke executes one external invocation and returns its typed result or
// error. The error is always a fault code from the core taxonomy; on any
// error no partial mutation is visible to the next invocation.
func (d *Dispatcher) Invoke(caller val.Addr, op string, args val.Map) (val.Value, error) {
	ledgerSeq := d.env.Clock.AdvanceLedger(1)
	token := d.tokens.Generate()
	d.quota.reset()
	d.depth = 0

	d.env.Log.Debug("invoke", "op", op, "caller", string(caller), "tx", token, "ledger", ledgerSeq)

	result, err := d.execute(caller, op, args)

	rec := InvocationRecord{
		Token:     token,
		Op:        op,
		Caller:    caller,
		Args:      args,
		LedgerSeq: ledgerSeq,
		Status:    "ok",
		Result:    result,
	}
	if err != nil {
		rec.Status = string(fault.CodeOf(err))
		if rec.Status == "" {
			rec.Status = "error"
		}
		rec.Result = nil
		d.env.Log.Debug("invoke failed", "op", op, "tx", token, "code", rec.Status)
	}
	if d.recorder != nil {
		if rerr := d.recorder.RecordInvocation(rec); rerr != nil {
			// A journal failure outranks the operation outcome: without
			// the record the store and the journal would diverge.
			return nil, rerr
		}
	}
	return result, err
}

// invokeNested is the Ctx.Invoke entry point for handler-to-handler
// calls. Nested calls share the invocation's quota and guard but are not
// journaled individually - the journal replays top-level invocations and
// the nesting re-derives itself.
func (d *Dispatcher) invokeNested(caller val.Addr, op string, args val.Map) (val.Value, error) {
	return d.execute(caller, op, args)
}

func (d *Dispatcher) execute(caller val.Addr, op string, args val.Map) (val.Value, error) {
	if err := d.quota.check(op); err != nil {
		return nil, err
	}

	o, ok := d.reg.Lookup(op)
	if !ok {
		return nil, fault.New(fault.CodeNotFound, "unknown operation %q", op)
	}

	if o.Mutating {
		if err := d.life.WhenNotStopped(); err != nil {
			return nil, err
		}
		if err := d.life.WhenNotPaused(); err != nil {
			return nil, err
		}
	}

	if o.Guarded {
		release, err := d.life.AcquireGuard()
		if err != nil {
			return nil, err
		}
		defer release()
	}

	d.depth++
	defer func() { d.depth-- }()

	if args == nil {
		args = val.Map{}
	}
	return o.Handler(&Ctx{Env: d.env, Caller: caller, Args: args, disp: d})
}

// Depth returns the current nesting depth. Diagnostic read for tests.
func (d *Dispatcher) Depth() int {
	return d.depth
}
