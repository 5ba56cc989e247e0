package rbac

import (
	"github.com/roach88/keel/internal/fault"
	"github.com/roach88/keel/internal/host"
	"github.com/roach88/keel/internal/storage"
	"github.com/roach88/keel/internal/val"
)

// Storage layout. Role bindings live in the Persistent tier so they
// survive logic upgrades; the OWNER key is a single-value index keeping
// the at-most-one-Owner invariant O(1) to enforce.
const (
	nsRole  val.Sym = "ROLE"
	nsOwner val.Sym = "OWNER"
)

// Event topics.
const (
	TopicRoleGranted = "role_granted"
	TopicRoleRevoked = "role_revoked"
)

// Roles is the access control module. All state lives in the storage
// engine; Roles itself holds no mutable copy.
type Roles struct {
	env *host.Env
}

// New creates the access control module over env.
func New(env *host.Env) *Roles {
	return &Roles{env: env}
}

func roleKey(subject val.Addr, role Role) storage.Key {
	return storage.NewKey(nsRole, subject, val.Sym(role))
}

// BootstrapCost is the number of new storage entries Bootstrap creates:
// the owner's role binding plus the OWNER index. Callers composing
// Bootstrap with further writes add it to their own budget prefight.
const BootstrapCost = 2

// Bootstrap installs the initial Owner. Fails with UNAUTHORIZED if an
// Owner already exists - ownership is set once and then only transferred.
func (r *Roles) Bootstrap(owner val.Addr) error {
	if _, ok, err := r.Owner(); err != nil {
		return err
	} else if ok {
		return fault.New(fault.CodeUnauthorized, "owner already set")
	}

	// Both writes are new entries; fail up front so a budget exhaustion
	// cannot leave the role binding without its index.
	if free := r.env.Store.Free(); BootstrapCost > free {
		return fault.New(fault.CodeStorageFull, "bootstrap needs %d new entries, %d free", BootstrapCost, free)
	}

	if err := r.env.Store.Set(storage.TierPersistent, roleKey(owner, RoleOwner), val.Bool(true)); err != nil {
		return err
	}
	if err := r.env.Store.Set(storage.TierPersistent, storage.NewKey(nsOwner), owner); err != nil {
		return err
	}
	return r.env.Events.Publish(TopicRoleGranted, val.Map{
		"subject": owner,
		"role":    val.Sym(RoleOwner),
	})
}

// Owner resolves the current Owner principal.
func (r *Roles) Owner() (val.Addr, bool, error) {
	v, ok, err := r.env.Store.Get(storage.TierPersistent, storage.NewKey(nsOwner))
	if err != nil || !ok {
		return "", false, err
	}
	addr, ok := val.AsAddr(v)
	if !ok {
		return "", false, fault.New(fault.CodeSerialization, "OWNER key holds a non-address value")
	}
	return addr, true, nil
}

// Has reports whether subject holds role. A pure read; absent binding
// means false, never an error.
func (r *Roles) Has(subject val.Addr, role Role) (bool, error) {
	return r.env.Store.Has(storage.TierPersistent, roleKey(subject, role))
}

// Require returns UNAUTHORIZED unless caller holds role. The Owner
// satisfies every requirement; lower roles satisfy only their own.
//
// Require is a pure read used as the precondition guard by every
// privileged operation - it must run, and be checked, before any state
// mutation in that operation.
func (r *Roles) Require(caller val.Addr, role Role) error {
	ok, err := r.Has(caller, role)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if role != RoleOwner {
		isOwner, err := r.Has(caller, RoleOwner)
		if err != nil {
			return err
		}
		if isOwner {
			return nil
		}
	}
	return fault.New(fault.CodeUnauthorized, "caller %s lacks role %q", caller, role)
}

// Grant binds role to subject. The caller must hold authority to
// administer the role per the fixed hierarchy (Owner for EmergencyAdmin
// and for ownership transfer, EmergencyAdmin or above for Pauser/Minter).
// On UNAUTHORIZED nothing is mutated.
//
// Granting Owner transfers ownership: the previous Owner's binding is
// removed in the same step, keeping the at-most-one-Owner invariant.
func (r *Roles) Grant(caller, subject val.Addr, role Role) error {
	if err := r.requireAdmin(caller, role); err != nil {
		return err
	}

	if role == RoleOwner {
		return r.transferOwner(caller, subject)
	}

	if err := r.env.Store.Set(storage.TierPersistent, roleKey(subject, role), val.Bool(true)); err != nil {
		return err
	}
	return r.env.Events.Publish(TopicRoleGranted, val.Map{
		"subject": subject,
		"role":    val.Sym(role),
		"by":      caller,
	})
}

// Revoke removes role from subject under the same authority rule as
// Grant. Revoking Owner is refused - ownership moves only by transfer, so
// the instance is never left without an administrator.
func (r *Roles) Revoke(caller, subject val.Addr, role Role) error {
	if role == RoleOwner {
		return fault.New(fault.CodeUnauthorized, "ownership is transferred, never revoked")
	}
	if err := r.requireAdmin(caller, role); err != nil {
		return err
	}

	ok, err := r.Has(subject, role)
	if err != nil {
		return err
	}
	if !ok {
		return fault.New(fault.CodeNotFound, "%s does not hold role %q", subject, role)
	}

	if err := r.env.Store.Remove(storage.TierPersistent, roleKey(subject, role)); err != nil {
		return err
	}
	return r.env.Events.Publish(TopicRoleRevoked, val.Map{
		"subject": subject,
		"role":    val.Sym(role),
		"by":      caller,
	})
}

// requireAdmin checks that caller's best-held role reaches the authority
// needed to administer role.
func (r *Roles) requireAdmin(caller val.Addr, role Role) error {
	need := role.adminAuthority()
	for _, held := range []Role{RoleOwner, RoleEmergencyAdmin, RolePauser, RoleMinter} {
		if held.authority() < need {
			break
		}
		ok, err := r.Has(caller, held)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return fault.New(fault.CodeUnauthorized, "caller %s may not administer role %q", caller, role)
}

// transferOwner moves ownership from caller to subject. Write ordering
// puts the only fallible mutation first so a storage failure leaves state
// untouched.
func (r *Roles) transferOwner(caller, subject val.Addr) error {
	if err := r.env.Store.Set(storage.TierPersistent, roleKey(subject, RoleOwner), val.Bool(true)); err != nil {
		return err
	}
	if err := r.env.Store.Set(storage.TierPersistent, storage.NewKey(nsOwner), subject); err != nil {
		return err
	}
	if caller != subject {
		if err := r.env.Store.Remove(storage.TierPersistent, roleKey(caller, RoleOwner)); err != nil {
			return err
		}
	}
	return r.env.Events.Publish(TopicRoleGranted, val.Map{
		"subject": subject,
		"role":    val.Sym(RoleOwner),
		"by":      caller,
	})
}
