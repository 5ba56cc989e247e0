package lifecycle

import (
	"github.com/roach88/keel/internal/fault"
	"github.com/roach88/keel/internal/host"
	"github.com/roach88/keel/internal/rbac"
	"github.com/roach88/keel/internal/storage"
	"github.com/roach88/keel/internal/val"
)

// State is the lifecycle state of the contract instance.
type State string

const (
	// StateActive accepts all operations.
	StateActive State = "active"

	// StatePaused blocks state-changing ledger operations until a Pauser
	// unpauses.
	StatePaused State = "paused"

	// StateEmergencyStopped blocks state-changing operations until an
	// EmergencyAdmin explicitly resets. Never clears automatically.
	StateEmergencyStopped State = "emergency_stopped"
)

// Storage layout. The flags live in the Persistent tier so the lifecycle
// state survives upgrades; the reentrancy guard lives in the Instance tier
// because it must never outlive the instance (a guard stuck true across
// invocations would brick every guarded operation).
const (
	nsPaused    val.Sym = "PAUSED"
	nsEmergency val.Sym = "EMERGENCY_STOP"
	nsGuard     val.Sym = "REENTRANCY_GUARD"
)

// Event topics.
const (
	TopicPaused         = "paused"
	TopicUnpaused       = "unpaused"
	TopicEmergencyStop  = "emergency_stop"
	TopicEmergencyReset = "emergency_reset"
)

// Machine is the lifecycle and guard state machine. Transitions:
//
//	Active ⇄ Paused              (Pauser role)
//	Active/Paused → EmergencyStopped   (EmergencyAdmin role)
//	EmergencyStopped → Active          (EmergencyAdmin role, never automatic)
//
// Resetting an emergency stop returns to Active and clears any pause that
// was in effect when the stop was triggered.
type Machine struct {
	env   *host.Env
	roles *rbac.Roles
}

// New creates the lifecycle machine over env, authorizing transitions
// through roles.
func New(env *host.Env, roles *rbac.Roles) *Machine {
	return &Machine{env: env, roles: roles}
}

func (m *Machine) flag(ns val.Sym) (bool, error) {
	v, ok, err := m.env.Store.Get(storage.TierPersistent, storage.NewKey(ns))
	if err != nil || !ok {
		return false, err
	}
	b, _ := val.AsBool(v)
	return b, nil
}

// State returns the current lifecycle state. Emergency stop dominates
// pause.
func (m *Machine) State() (State, error) {
	if stopped, err := m.flag(nsEmergency); err != nil {
		return "", err
	} else if stopped {
		return StateEmergencyStopped, nil
	}
	if paused, err := m.flag(nsPaused); err != nil {
		return "", err
	} else if paused {
		return StatePaused, nil
	}
	return StateActive, nil
}

// WhenNotPaused returns CONTRACT_PAUSED if the instance is paused.
// Called by every state-mutating ledger operation before any mutation.
func (m *Machine) WhenNotPaused() error {
	paused, err := m.flag(nsPaused)
	if err != nil {
		return err
	}
	if paused {
		return fault.New(fault.CodeContractPaused, "contract is paused")
	}
	return nil
}

// WhenNotStopped returns EMERGENCY_STOP_ACTIVE if the emergency stop is in
// effect.
func (m *Machine) WhenNotStopped() error {
	stopped, err := m.flag(nsEmergency)
	if err != nil {
		return err
	}
	if stopped {
		return fault.New(fault.CodeEmergencyStopActive, "emergency stop is active")
	}
	return nil
}

// Pause moves Active → Paused. Requires the Pauser role. Pausing an
// already-paused or emergency-stopped instance is an error, not a no-op,
// so callers learn the transition did not happen.
func (m *Machine) Pause(caller val.Addr) error {
	if err := m.roles.Require(caller, rbac.RolePauser); err != nil {
		return err
	}
	if err := m.WhenNotStopped(); err != nil {
		return err
	}
	if err := m.WhenNotPaused(); err != nil {
		return err
	}

	if err := m.env.Store.Set(storage.TierPersistent, storage.NewKey(nsPaused), val.Bool(true)); err != nil {
		return err
	}
	return m.env.Events.Publish(TopicPaused, val.Map{"by": caller})
}

// Unpause moves Paused → Active. Requires the Pauser role.
func (m *Machine) Unpause(caller val.Addr) error {
	if err := m.roles.Require(caller, rbac.RolePauser); err != nil {
		return err
	}
	if err := m.WhenNotStopped(); err != nil {
		return err
	}
	paused, err := m.flag(nsPaused)
	if err != nil {
		return err
	}
	if !paused {
		return fault.New(fault.CodeNotFound, "contract is not paused")
	}

	if err := m.env.Store.Remove(storage.TierPersistent, storage.NewKey(nsPaused)); err != nil {
		return err
	}
	return m.env.Events.Publish(TopicUnpaused, val.Map{"by": caller})
}

// EmergencyStop moves Active or Paused → EmergencyStopped. Requires the
// EmergencyAdmin role.
func (m *Machine) EmergencyStop(caller val.Addr) error {
	if err := m.roles.Require(caller, rbac.RoleEmergencyAdmin); err != nil {
		return err
	}
	if err := m.WhenNotStopped(); err != nil {
		return err
	}

	if err := m.env.Store.Set(storage.TierPersistent, storage.NewKey(nsEmergency), val.Bool(true)); err != nil {
		return err
	}
	return m.env.Events.Publish(TopicEmergencyStop, val.Map{"by": caller})
}

// EmergencyReset moves EmergencyStopped → Active. Requires the
// EmergencyAdmin role; the stop never clears by itself. Any pause in
// effect when the stop was triggered is cleared too.
func (m *Machine) EmergencyReset(caller val.Addr) error {
	if err := m.roles.Require(caller, rbac.RoleEmergencyAdmin); err != nil {
		return err
	}
	stopped, err := m.flag(nsEmergency)
	if err != nil {
		return err
	}
	if !stopped {
		return fault.New(fault.CodeNotFound, "emergency stop is not active")
	}

	if err := m.env.Store.Remove(storage.TierPersistent, storage.NewKey(nsEmergency)); err != nil {
		return err
	}
	if err := m.env.Store.Remove(storage.TierPersistent, storage.NewKey(nsPaused)); err != nil {
		return err
	}
	return m.env.Events.Publish(TopicEmergencyReset, val.Map{"by": caller})
}
