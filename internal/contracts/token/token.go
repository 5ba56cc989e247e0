// Package token is the caller-facing token contract: the explicit
// operation table binding the accounting, access control, and lifecycle
// modules together.
package token

import (
	"github.com/roach88/keel/internal/contract"
	"github.com/roach88/keel/internal/fault"
	"github.com/roach88/keel/internal/host"
	"github.com/roach88/keel/internal/ledger"
	"github.com/roach88/keel/internal/lifecycle"
	"github.com/roach88/keel/internal/rbac"
	"github.com/roach88/keel/internal/val"
)

// Token wires the core modules for one token instance.
type Token struct {
	Roles  *rbac.Roles
	Ledger *ledger.Ledger
	Life   *lifecycle.Machine
}

// New builds the module graph over env.
func New(env *host.Env) *Token {
	roles := rbac.New(env)
	life := lifecycle.New(env, roles)
	return &Token{
		Roles:  roles,
		Life:   life,
		Ledger: ledger.New(env, roles, life),
	}
}

// Register installs the token operation table into reg.
//
// The lifecycle control operations register as non-Mutating on purpose:
// they gate and authorize themselves through the state machine, and
// unpause/emergency_reset must remain callable while the dispatcher
// would otherwise refuse mutating work.
func (t *Token) Register(reg *contract.Registry) {
	reg.MustRegister(contract.Op{Name: "token.initialize", Mutating: true, Handler: t.initialize})
	reg.MustRegister(contract.Op{Name: "token.mint", Guarded: true, Mutating: true, Handler: t.mint})
	reg.MustRegister(contract.Op{Name: "token.burn", Guarded: true, Mutating: true, Handler: t.burn})
	reg.MustRegister(contract.Op{Name: "token.transfer", Guarded: true, Mutating: true, Handler: t.transfer})
	reg.MustRegister(contract.Op{Name: "token.balance", Handler: t.balance})
	reg.MustRegister(contract.Op{Name: "token.supply", Handler: t.supply})
	reg.MustRegister(contract.Op{Name: "token.metadata", Handler: t.metadata})
	reg.MustRegister(contract.Op{Name: "token.grant_role", Mutating: true, Handler: t.grantRole})
	reg.MustRegister(contract.Op{Name: "token.revoke_role", Mutating: true, Handler: t.revokeRole})
	reg.MustRegister(contract.Op{Name: "token.pause", Handler: t.pause})
	reg.MustRegister(contract.Op{Name: "token.unpause", Handler: t.unpause})
	reg.MustRegister(contract.Op{Name: "token.emergency_stop", Handler: t.emergencyStop})
	reg.MustRegister(contract.Op{Name: "token.emergency_reset", Handler: t.emergencyReset})
}

func (t *Token) initialize(c *contract.Ctx) (val.Value, error) {
	admin, err := argAddr(c.Args, "admin", "token.initialize")
	if err != nil {
		return nil, err
	}
	name, ok := val.AsSym(c.Args["name"])
	if !ok {
		return nil, fault.NewOp(fault.CodeNotFound, "token.initialize", "missing string argument 'name'")
	}
	symbol, ok := val.AsSym(c.Args["symbol"])
	if !ok {
		return nil, fault.NewOp(fault.CodeNotFound, "token.initialize", "missing string argument 'symbol'")
	}
	decimals, ok := val.AsI64(c.Args["decimals"])
	if !ok || decimals < 0 {
		return nil, fault.NewOp(fault.CodeInvalidAmount, "token.initialize", "'decimals' must be a non-negative integer")
	}

	// Re-initialization is refused before anything else - metadata must
	// not be rewritable by re-running initialize, and a fresh instance is
	// what the budget prefight below assumes.
	if _, ok, err := t.Roles.Owner(); err != nil {
		return nil, err
	} else if ok {
		return nil, fault.NewOp(fault.CodeUnauthorized, "token.initialize", "owner already set")
	}

	// Genesis spans the owner bootstrap and the metadata write. All three
	// entries are new, so reserve them up front: a budget exhaustion must
	// not commit an owner without metadata.
	need := rbac.BootstrapCost + 1
	if free := c.Env.Store.Free(); need > free {
		return nil, fault.NewOp(fault.CodeStorageFull, "token.initialize", "initialize needs %d new entries, %d free", need, free)
	}

	if err := t.Roles.Bootstrap(admin); err != nil {
		return nil, err
	}
	if err := t.setMetadata(c.Env, Metadata{Name: string(name), Symbol: string(symbol), Decimals: decimals}); err != nil {
		return nil, err
	}
	return val.Bool(true), nil
}

func (t *Token) mint(c *contract.Ctx) (val.Value, error) {
	to, err := argAddr(c.Args, "to", "token.mint")
	if err != nil {
		return nil, err
	}
	amount, err := argAmount(c.Args, "token.mint")
	if err != nil {
		return nil, err
	}
	newBalance, err := t.Ledger.Mint(c.Caller, to, amount)
	if err != nil {
		return nil, err
	}
	return val.I64(newBalance), nil
}

func (t *Token) burn(c *contract.Ctx) (val.Value, error) {
	from, err := argAddr(c.Args, "from", "token.burn")
	if err != nil {
		return nil, err
	}
	amount, err := argAmount(c.Args, "token.burn")
	if err != nil {
		return nil, err
	}
	newBalance, err := t.Ledger.Burn(c.Caller, from, amount)
	if err != nil {
		return nil, err
	}
	return val.I64(newBalance), nil
}

// transfer moves units from the authenticated caller to 'to'. The source
// is never taken from the arguments - the dispatch layer already
// established who is calling.
func (t *Token) transfer(c *contract.Ctx) (val.Value, error) {
	to, err := argAddr(c.Args, "to", "token.transfer")
	if err != nil {
		return nil, err
	}
	amount, err := argAmount(c.Args, "token.transfer")
	if err != nil {
		return nil, err
	}
	if err := t.Ledger.Transfer(c.Caller, to, amount); err != nil {
		return nil, err
	}
	return val.Bool(true), nil
}

func (t *Token) balance(c *contract.Ctx) (val.Value, error) {
	who, err := argAddr(c.Args, "who", "token.balance")
	if err != nil {
		return nil, err
	}
	b, err := t.Ledger.BalanceOf(who)
	if err != nil {
		return nil, err
	}
	return val.I64(b), nil
}

func (t *Token) supply(c *contract.Ctx) (val.Value, error) {
	s, err := t.Ledger.TotalSupply()
	if err != nil {
		return nil, err
	}
	return val.I64(s), nil
}

func (t *Token) grantRole(c *contract.Ctx) (val.Value, error) {
	subject, role, err := argRoleBinding(c.Args, "token.grant_role")
	if err != nil {
		return nil, err
	}
	if err := t.Roles.Grant(c.Caller, subject, role); err != nil {
		return nil, err
	}
	return val.Bool(true), nil
}

func (t *Token) revokeRole(c *contract.Ctx) (val.Value, error) {
	subject, role, err := argRoleBinding(c.Args, "token.revoke_role")
	if err != nil {
		return nil, err
	}
	if err := t.Roles.Revoke(c.Caller, subject, role); err != nil {
		return nil, err
	}
	return val.Bool(true), nil
}

func (t *Token) pause(c *contract.Ctx) (val.Value, error) {
	if err := t.Life.Pause(c.Caller); err != nil {
		return nil, err
	}
	return val.Bool(true), nil
}

func (t *Token) unpause(c *contract.Ctx) (val.Value, error) {
	if err := t.Life.Unpause(c.Caller); err != nil {
		return nil, err
	}
	return val.Bool(true), nil
}

func (t *Token) emergencyStop(c *contract.Ctx) (val.Value, error) {
	if err := t.Life.EmergencyStop(c.Caller); err != nil {
		return nil, err
	}
	return val.Bool(true), nil
}

func (t *Token) emergencyReset(c *contract.Ctx) (val.Value, error) {
	if err := t.Life.EmergencyReset(c.Caller); err != nil {
		return nil, err
	}
	return val.Bool(true), nil
}

func argAddr(args val.Map, name, op string) (val.Addr, error) {
	addr, ok := val.AsAddr(args[name])
	if !ok || addr == "" {
		return "", fault.NewOp(fault.CodeNotFound, op, "missing address argument %q", name)
	}
	return addr, nil
}

func argAmount(args val.Map, op string) (int64, error) {
	amount, ok := val.AsI64(args["amount"])
	if !ok {
		return 0, fault.NewOp(fault.CodeInvalidAmount, op, "missing integer argument \"amount\"")
	}
	return amount, nil
}

func argRoleBinding(args val.Map, op string) (val.Addr, rbac.Role, error) {
	subject, err := argAddr(args, "subject", op)
	if err != nil {
		return "", "", err
	}
	roleName, ok := val.AsSym(args["role"])
	if !ok {
		return "", "", fault.NewOp(fault.CodeNotFound, op, "missing string argument \"role\"")
	}
	role, err := rbac.ParseRole(string(roleName))
	if err != nil {
		return "", "", err
	}
	return subject, role, nil
}
