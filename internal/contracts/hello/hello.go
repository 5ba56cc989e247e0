// Package hello is the canonical smoke-test contract: it greets and
// touches no state.
package hello

import (
	"github.com/roach88/keel/internal/contract"
	"github.com/roach88/keel/internal/fault"
	"github.com/roach88/keel/internal/val"
)

// Register installs the hello operation into reg.
func Register(reg *contract.Registry) {
	reg.MustRegister(contract.Op{
		Name:    "hello.hello",
		Handler: greet,
	})
}

// greet returns ["Hello", to].
func greet(c *contract.Ctx) (val.Value, error) {
	to, ok := val.AsSym(c.Args["to"])
	if !ok {
		return nil, fault.NewOp(fault.CodeNotFound, "hello.hello", "missing string argument 'to'")
	}
	return val.Vec{val.Str("Hello"), val.Str(to)}, nil
}
