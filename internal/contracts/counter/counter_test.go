package counter_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/keel/internal/contract"
	"github.com/roach88/keel/internal/contracts/counter"
	"github.com/roach88/keel/internal/fault"
	"github.com/roach88/keel/internal/host"
	"github.com/roach88/keel/internal/lifecycle"
	"github.com/roach88/keel/internal/rbac"
	"github.com/roach88/keel/internal/val"
)

func newDispatcher(env *host.Env) (*contract.Dispatcher, *lifecycle.Machine) {
	reg := contract.NewRegistry()
	counter.Register(reg)
	life := lifecycle.New(env, rbac.New(env))
	return contract.New(env, reg, life, host.UUIDv7Generator{}), life
}

func TestIncrement_StartsAtZero(t *testing.T) {
	env := host.NewEnv()
	disp, _ := newDispatcher(env)

	for want := int64(1); want <= 3; want++ {
		got, err := disp.Invoke("GCALLER", "counter.increment", nil)
		require.NoError(t, err)
		require.Equal(t, val.I64(want), got)
	}

	got, err := disp.Invoke("GCALLER", "counter.get", nil)
	require.NoError(t, err)
	require.Equal(t, val.I64(3), got)
}

func TestGet_AbsentCounterIsZero(t *testing.T) {
	env := host.NewEnv()
	disp, _ := newDispatcher(env)

	got, err := disp.Invoke("GCALLER", "counter.get", nil)
	require.NoError(t, err)
	require.Equal(t, val.I64(0), got)
}

func TestIncrement_SurvivesLedgerAdvance(t *testing.T) {
	env := host.NewEnv()
	disp, _ := newDispatcher(env)

	_, err := disp.Invoke("GCALLER", "counter.increment", nil)
	require.NoError(t, err)

	// The counter lives in the Instance tier, so it does not expire no
	// matter how far the ledger moves.
	env.Clock.AdvanceLedger(10_000)

	got, err := disp.Invoke("GCALLER", "counter.get", nil)
	require.NoError(t, err)
	require.Equal(t, val.I64(1), got)
}

func TestIncrement_BlockedWhilePaused(t *testing.T) {
	env := host.NewEnv()
	disp, life := newDispatcher(env)

	roles := rbac.New(env)
	require.NoError(t, roles.Bootstrap("GOWNER"))
	require.NoError(t, life.Pause("GOWNER"))

	_, err := disp.Invoke("GCALLER", "counter.increment", nil)
	require.True(t, fault.Is(err, fault.CodeContractPaused))

	// Reads stay available.
	got, err := disp.Invoke("GCALLER", "counter.get", nil)
	require.NoError(t, err)
	require.Equal(t, val.I64(0), got)
}
