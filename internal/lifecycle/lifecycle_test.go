package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/keel/internal/fault"
	"github.com/roach88/keel/internal/host"
	"github.com/roach88/keel/internal/rbac"
	"github.com/roach88/keel/internal/val"
)

const (
	owner  = val.Addr("GOWNER")
	pauser = val.Addr("GPAUSER")
	admin  = val.Addr("GADMIN")
	nobody = val.Addr("GNOBODY")
)

func newMachine(t *testing.T) (*Machine, *host.Env) {
	t.Helper()
	env := host.NewEnv()
	roles := rbac.New(env)
	require.NoError(t, roles.Bootstrap(owner))
	require.NoError(t, roles.Grant(owner, pauser, rbac.RolePauser))
	require.NoError(t, roles.Grant(owner, admin, rbac.RoleEmergencyAdmin))
	return New(env, roles), env
}

func TestMachine_StartsActive(t *testing.T) {
	m, _ := newMachine(t)

	state, err := m.State()
	require.NoError(t, err)
	assert.Equal(t, StateActive, state)
	assert.NoError(t, m.WhenNotPaused())
	assert.NoError(t, m.WhenNotStopped())
}

func TestPauseUnpause(t *testing.T) {
	m, _ := newMachine(t)

	require.NoError(t, m.Pause(pauser))

	state, err := m.State()
	require.NoError(t, err)
	assert.Equal(t, StatePaused, state)
	assert.True(t, fault.Is(m.WhenNotPaused(), fault.CodeContractPaused))

	// Double pause is a failed transition
	err = m.Pause(pauser)
	assert.True(t, fault.Is(err, fault.CodeContractPaused))

	require.NoError(t, m.Unpause(pauser))
	state, err = m.State()
	require.NoError(t, err)
	assert.Equal(t, StateActive, state)

	// Unpausing an active instance reports NOT_FOUND
	err = m.Unpause(pauser)
	assert.True(t, fault.Is(err, fault.CodeNotFound))
}

func TestPause_Unauthorized(t *testing.T) {
	m, _ := newMachine(t)

	err := m.Pause(nobody)
	assert.True(t, fault.IsUnauthorized(err))

	// A minter-less admin can't pause either: EmergencyAdmin does not
	// imply Pauser for routine pausing
	err = m.Pause(admin)
	assert.True(t, fault.IsUnauthorized(err))

	state, err := m.State()
	require.NoError(t, err)
	assert.Equal(t, StateActive, state, "failed pause must not change state")
}

func TestEmergencyStop(t *testing.T) {
	m, _ := newMachine(t)

	require.NoError(t, m.EmergencyStop(admin))

	state, err := m.State()
	require.NoError(t, err)
	assert.Equal(t, StateEmergencyStopped, state)
	assert.True(t, fault.Is(m.WhenNotStopped(), fault.CodeEmergencyStopActive))

	// Pause and unpause are blocked while stopped
	err = m.Pause(pauser)
	assert.True(t, fault.Is(err, fault.CodeEmergencyStopActive))
	err = m.Unpause(pauser)
	assert.True(t, fault.Is(err, fault.CodeEmergencyStopActive))

	// Only an explicit reset clears the stop
	require.NoError(t, m.EmergencyReset(admin))
	state, err = m.State()
	require.NoError(t, err)
	assert.Equal(t, StateActive, state)
}

func TestEmergencyStop_FromPausedClearsPauseOnReset(t *testing.T) {
	m, _ := newMachine(t)

	require.NoError(t, m.Pause(pauser))
	require.NoError(t, m.EmergencyStop(admin))
	require.NoError(t, m.EmergencyReset(admin))

	state, err := m.State()
	require.NoError(t, err)
	assert.Equal(t, StateActive, state, "reset returns to Active, not Paused")
}

func TestEmergencyStop_Unauthorized(t *testing.T) {
	m, _ := newMachine(t)

	err := m.EmergencyStop(pauser)
	assert.True(t, fault.IsUnauthorized(err), "Pauser may not trigger the stop")

	require.NoError(t, m.EmergencyStop(admin))
	err = m.EmergencyReset(pauser)
	assert.True(t, fault.IsUnauthorized(err), "Pauser may not reset the stop")
}

func TestLifecycleEvents(t *testing.T) {
	m, env := newMachine(t)
	before := env.Events.Len()

	require.NoError(t, m.Pause(pauser))
	require.NoError(t, m.Unpause(pauser))
	require.NoError(t, m.EmergencyStop(admin))
	require.NoError(t, m.EmergencyReset(admin))

	events := env.Events.Events()[before:]
	require.Len(t, events, 4)
	assert.Equal(t, TopicPaused, events[0].Topic)
	assert.Equal(t, TopicUnpaused, events[1].Topic)
	assert.Equal(t, TopicEmergencyStop, events[2].Topic)
	assert.Equal(t, TopicEmergencyReset, events[3].Topic)
}

func TestGuard_AcquireRelease(t *testing.T) {
	m, _ := newMachine(t)

	release, err := m.AcquireGuard()
	require.NoError(t, err)

	held, err := m.GuardHeld()
	require.NoError(t, err)
	assert.True(t, held)

	// Re-entry while held fails with no mutation
	_, err = m.AcquireGuard()
	assert.True(t, fault.IsReentrancy(err))

	release()
	held, err = m.GuardHeld()
	require.NoError(t, err)
	assert.False(t, held, "release must clear the flag")

	// Guard is reusable after release
	release2, err := m.AcquireGuard()
	require.NoError(t, err)
	release2()
}

func TestGuard_ClearedOnErrorPath(t *testing.T) {
	m, _ := newMachine(t)

	// Simulate a guarded operation failing mid-way
	func() {
		release, err := m.AcquireGuard()
		require.NoError(t, err)
		defer release()
		// operation body errors here and returns
	}()

	held, err := m.GuardHeld()
	require.NoError(t, err)
	assert.False(t, held, "guard must never survive an exit path")
}
