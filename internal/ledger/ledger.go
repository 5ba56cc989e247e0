package ledger

import (
	"github.com/roach88/keel/internal/fault"
	"github.com/roach88/keel/internal/host"
	"github.com/roach88/keel/internal/lifecycle"
	"github.com/roach88/keel/internal/rbac"
	"github.com/roach88/keel/internal/storage"
	"github.com/roach88/keel/internal/val"
)

// Storage layout. Balances and the supply counter live in the Persistent
// tier so they survive logic upgrades.
const (
	nsBalance val.Sym = "BALANCE"
	nsSupply  val.Sym = "TOTAL_SUPPLY"
)

// Event topics.
const (
	TopicMint     = "mint"
	TopicBurn     = "burn"
	TopicTransfer = "transfer"
)

// Ledger is the balance accounting module. Every operation follows the
// checks-effects-interactions discipline: validate amount, lifecycle and
// authorization first, read and verify balances next, run all arithmetic
// checked, and only then mutate - balances and TotalSupply move as a
// single logical step with no external call in between. The event publish
// is the final interaction, after the mutation commits.
//
// Conservation invariant: sum of all balances equals TotalSupply after
// every operation.
type Ledger struct {
	env   *host.Env
	roles *rbac.Roles
	life  *lifecycle.Machine
}

// New creates the accounting module over env.
func New(env *host.Env, roles *rbac.Roles, life *lifecycle.Machine) *Ledger {
	return &Ledger{env: env, roles: roles, life: life}
}

func balanceKey(who val.Addr) storage.Key {
	return storage.NewKey(nsBalance, who)
}

func supplyKey() storage.Key {
	return storage.NewKey(nsSupply)
}

// BalanceOf returns who's balance. An absent key means balance zero -
// this is the documented default, not an error.
func (l *Ledger) BalanceOf(who val.Addr) (int64, error) {
	return l.readAmount(balanceKey(who))
}

// TotalSupply returns the tracked total supply. Absent means zero (no
// mint has happened yet).
func (l *Ledger) TotalSupply() (int64, error) {
	return l.readAmount(supplyKey())
}

func (l *Ledger) readAmount(key storage.Key) (int64, error) {
	v, ok, err := l.env.Store.Get(storage.TierPersistent, key)
	if err != nil || !ok {
		return 0, err
	}
	n, ok := val.AsI64(v)
	if !ok {
		return 0, fault.New(fault.CodeSerialization, "key %s holds a non-integer value", key)
	}
	return n, nil
}

// Mint creates amount new units for to and returns to's new balance.
// Requires the Minter role; supply and balance update atomically.
func (l *Ledger) Mint(caller, to val.Addr, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fault.NewOp(fault.CodeInvalidAmount, "mint", "amount must be positive, got %d", amount)
	}
	if err := l.gate(); err != nil {
		return 0, err
	}
	if err := l.roles.Require(caller, rbac.RoleMinter); err != nil {
		return 0, err
	}

	balance, err := l.BalanceOf(to)
	if err != nil {
		return 0, err
	}
	supply, err := l.TotalSupply()
	if err != nil {
		return 0, err
	}

	newBalance, err := checkedAdd(balance, amount)
	if err != nil {
		return 0, err
	}
	newSupply, err := checkedAdd(supply, amount)
	if err != nil {
		return 0, err
	}

	if err := l.reserve(balanceKey(to), supplyKey()); err != nil {
		return 0, err
	}
	if err := l.env.Store.Set(storage.TierPersistent, balanceKey(to), val.I64(newBalance)); err != nil {
		return 0, err
	}
	if err := l.env.Store.Set(storage.TierPersistent, supplyKey(), val.I64(newSupply)); err != nil {
		return 0, err
	}

	if err := l.env.Events.Publish(TopicMint, val.Map{
		"to":     to,
		"amount": val.I64(amount),
		"by":     caller,
	}); err != nil {
		return 0, err
	}
	l.env.Log.Debug("mint", "to", string(to), "amount", amount, "supply", newSupply)
	return newBalance, nil
}

// Burn destroys amount units held by from and returns from's new balance.
// Requires the Minter role.
func (l *Ledger) Burn(caller, from val.Addr, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fault.NewOp(fault.CodeInvalidAmount, "burn", "amount must be positive, got %d", amount)
	}
	if err := l.gate(); err != nil {
		return 0, err
	}
	if err := l.roles.Require(caller, rbac.RoleMinter); err != nil {
		return 0, err
	}

	balance, err := l.BalanceOf(from)
	if err != nil {
		return 0, err
	}
	if balance < amount {
		return 0, fault.NewOp(fault.CodeInsufficientBalance, "burn", "balance %d < amount %d", balance, amount)
	}
	supply, err := l.TotalSupply()
	if err != nil {
		return 0, err
	}

	newBalance, err := checkedSub(balance, amount)
	if err != nil {
		return 0, err
	}
	newSupply, err := checkedSub(supply, amount)
	if err != nil {
		return 0, err
	}

	if err := l.env.Store.Set(storage.TierPersistent, balanceKey(from), val.I64(newBalance)); err != nil {
		return 0, err
	}
	if err := l.env.Store.Set(storage.TierPersistent, supplyKey(), val.I64(newSupply)); err != nil {
		return 0, err
	}

	if err := l.env.Events.Publish(TopicBurn, val.Map{
		"from":   from,
		"amount": val.I64(amount),
		"by":     caller,
	}); err != nil {
		return 0, err
	}
	l.env.Log.Debug("burn", "from", string(from), "amount", amount, "supply", newSupply)
	return newBalance, nil
}

// Transfer moves amount units from from to to. No role is required - the
// dispatch layer has already authenticated from as the caller. A
// self-transfer still validates the amount and the balance, then commits
// no balance change.
func (l *Ledger) Transfer(from, to val.Addr, amount int64) error {
	if amount <= 0 {
		return fault.NewOp(fault.CodeInvalidAmount, "transfer", "amount must be positive, got %d", amount)
	}
	if err := l.gate(); err != nil {
		return err
	}

	fromBalance, err := l.BalanceOf(from)
	if err != nil {
		return err
	}
	if fromBalance < amount {
		return fault.NewOp(fault.CodeInsufficientBalance, "transfer", "balance %d < amount %d", fromBalance, amount)
	}

	if from != to {
		toBalance, err := l.BalanceOf(to)
		if err != nil {
			return err
		}
		newTo, err := checkedAdd(toBalance, amount)
		if err != nil {
			return err
		}
		newFrom, err := checkedSub(fromBalance, amount)
		if err != nil {
			return err
		}

		if err := l.reserve(balanceKey(to)); err != nil {
			return err
		}
		if err := l.env.Store.Set(storage.TierPersistent, balanceKey(to), val.I64(newTo)); err != nil {
			return err
		}
		if err := l.env.Store.Set(storage.TierPersistent, balanceKey(from), val.I64(newFrom)); err != nil {
			return err
		}
	}

	if err := l.env.Events.Publish(TopicTransfer, val.Map{
		"from":   from,
		"to":     to,
		"amount": val.I64(amount),
	}); err != nil {
		return err
	}
	l.env.Log.Debug("transfer", "from", string(from), "to", string(to), "amount", amount)
	return nil
}

// Balances returns every (principal, balance) pair in deterministic
// (sorted encoded key) order. Read-only view for the CLI and for
// conservation checks in tests.
func (l *Ledger) Balances() (map[val.Addr]int64, error) {
	prefix, err := storage.EncodedPrefix(nsBalance)
	if err != nil {
		return nil, err
	}

	out := make(map[val.Addr]int64)
	var scanErr error
	l.env.Store.Range(storage.TierPersistent, prefix, func(encodedKey string, v val.Value) bool {
		parts, err := val.UnmarshalValue([]byte(encodedKey))
		if err != nil {
			scanErr = err
			return false
		}
		vec, ok := parts.(val.Vec)
		if !ok || len(vec) != 2 {
			scanErr = fault.New(fault.CodeSerialization, "malformed balance key %s", encodedKey)
			return false
		}
		who, ok := val.AsAddr(vec[1])
		if !ok {
			scanErr = fault.New(fault.CodeSerialization, "balance key without address: %s", encodedKey)
			return false
		}
		n, ok := val.AsI64(v)
		if !ok {
			scanErr = fault.New(fault.CodeSerialization, "balance of %s is not an integer", who)
			return false
		}
		out[who] = n
		return true
	})
	return out, scanErr
}

// gate applies the lifecycle preconditions shared by every state-mutating
// operation. Both checks run before any mutation.
func (l *Ledger) gate() error {
	if err := l.life.WhenNotStopped(); err != nil {
		return err
	}
	return l.life.WhenNotPaused()
}

// reserve fails with STORAGE_FULL up front when the write set would need
// more new entries than the budget has left. Keeps multi-key mutations
// all-or-nothing.
func (l *Ledger) reserve(keys ...storage.Key) error {
	need := 0
	for _, k := range keys {
		ok, err := l.env.Store.Has(storage.TierPersistent, k)
		if err != nil {
			return err
		}
		if !ok {
			need++
		}
	}
	if need > l.env.Store.Free() {
		return fault.New(fault.CodeStorageFull, "write needs %d new entries, %d free", need, l.env.Store.Free())
	}
	return nil
}
