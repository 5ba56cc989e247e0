package contract

import (
	"github.com/roach88/keel/internal/fault"
	"github.com/roach88/keel/internal/host"
	"github.com/roach88/keel/internal/val"
)

// Ctx carries everything a handler may touch: the environment handle, the
// authenticated caller, and the parsed arguments. Handlers reach nested
// operations through Ctx.Invoke so the guard and step quota see every
// hop.
type Ctx struct {
	Env    *host.Env
	Caller val.Addr
	Args   val.Map

	disp *Dispatcher
}

// Invoke dispatches a nested operation under the same caller. The nested
// call runs inside the current invocation: it consumes step quota, passes
// through the reentrancy guard, and does not advance the ledger sequence.
func (c *Ctx) Invoke(op string, args val.Map) (val.Value, error) {
	return c.disp.invokeNested(c.Caller, op, args)
}

// Handler is one callable contract operation.
type Handler func(c *Ctx) (val.Value, error)

// Op describes a registered operation. This is the explicit function
// table the caller-facing layer is built from - name, flags, handler,
// nothing implicit.
type Op struct {
	// Name is the operation identifier, e.g. "token.transfer".
	Name string

	// Guarded operations acquire the reentrancy guard for their whole
	// execution.
	Guarded bool

	// Mutating operations are blocked while the lifecycle state forbids
	// writes. Read-only operations stay available when paused.
	Mutating bool

	Handler Handler
}

// Registry holds operations in declaration order. The order never changes
// after registration, so listings and journal dumps are stable.
type Registry struct {
	ops   []Op
	index map[string]int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Register appends an operation. Duplicate names are rejected - one name,
// one handler, no overriding.
func (r *Registry) Register(op Op) error {
	if op.Name == "" || op.Handler == nil {
		return fault.New(fault.CodeNotFound, "operation needs a name and a handler")
	}
	if _, exists := r.index[op.Name]; exists {
		return fault.New(fault.CodeSerialization, "operation %q already registered", op.Name)
	}
	r.index[op.Name] = len(r.ops)
	r.ops = append(r.ops, op)
	return nil
}

// MustRegister is Register for static operation tables built at startup.
func (r *Registry) MustRegister(op Op) {
	if err := r.Register(op); err != nil {
		panic(err)
	}
}

// Ops returns the operations in declaration order.
func (r *Registry) Ops() []Op {
	out := make([]Op, len(r.ops))
	copy(out, r.ops)
	return out
}

// Lookup resolves an operation by name.
func (r *Registry) Lookup(name string) (Op, bool) {
	i, ok := r.index[name]
	if !ok {
		return Op{}, false
	}
	return r.ops[i], true
}
