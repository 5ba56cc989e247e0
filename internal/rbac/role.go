package rbac

import (
	"github.com/roach88/keel/internal/fault"
)

// Role is an enumerated capability bound to a principal.
type Role string

const (
	// RoleOwner is the root capability. At most one Owner exists per
	// contract instance; ownership moves only by transfer.
	RoleOwner Role = "owner"

	// RoleEmergencyAdmin may trigger and clear the emergency stop, and
	// may administer the operational roles below it.
	RoleEmergencyAdmin Role = "emergency_admin"

	// RolePauser may pause and unpause state-changing operations.
	RolePauser Role = "pauser"

	// RoleMinter may mint and burn ledger units.
	RoleMinter Role = "minter"
)

// ParseRole validates a role name from external input.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleOwner, RoleEmergencyAdmin, RolePauser, RoleMinter:
		return Role(s), nil
	default:
		return "", fault.New(fault.CodeNotFound, "unknown role %q", s)
	}
}

// authority returns the role's rank in the fixed hierarchy:
// Owner > EmergencyAdmin > Pauser/Minter.
func (r Role) authority() int {
	switch r {
	case RoleOwner:
		return 3
	case RoleEmergencyAdmin:
		return 2
	case RolePauser, RoleMinter:
		return 1
	default:
		return 0
	}
}

// adminAuthority returns the authority required to grant or revoke r.
// Administering a role takes strictly higher authority than holding it,
// except Owner which only the Owner itself can move.
func (r Role) adminAuthority() int {
	if r == RoleOwner {
		return RoleOwner.authority()
	}
	return r.authority() + 1
}
