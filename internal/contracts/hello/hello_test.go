package hello_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/keel/internal/contract"
	"github.com/roach88/keel/internal/contracts/hello"
	"github.com/roach88/keel/internal/fault"
	"github.com/roach88/keel/internal/host"
	"github.com/roach88/keel/internal/lifecycle"
	"github.com/roach88/keel/internal/rbac"
	"github.com/roach88/keel/internal/val"
)

func newDispatcher(env *host.Env) *contract.Dispatcher {
	reg := contract.NewRegistry()
	hello.Register(reg)
	life := lifecycle.New(env, rbac.New(env))
	return contract.New(env, reg, life, host.UUIDv7Generator{})
}

func TestHello_Greets(t *testing.T) {
	disp := newDispatcher(host.NewEnv())

	got, err := disp.Invoke("GCALLER", "hello.hello", val.Map{"to": val.Str("Dev")})
	require.NoError(t, err)
	require.Equal(t, val.Vec{val.Str("Hello"), val.Str("Dev")}, got)
}

func TestHello_MissingRecipient(t *testing.T) {
	disp := newDispatcher(host.NewEnv())

	_, err := disp.Invoke("GCALLER", "hello.hello", nil)
	require.True(t, fault.Is(err, fault.CodeNotFound))
}

func TestHello_TouchesNoState(t *testing.T) {
	env := host.NewEnv()
	disp := newDispatcher(env)

	_, err := disp.Invoke("GCALLER", "hello.hello", val.Map{"to": val.Str("Dev")})
	require.NoError(t, err)
	require.Equal(t, 0, env.Events.Len())
}
