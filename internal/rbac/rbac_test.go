package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/keel/internal/fault"
	"github.com/roach88/keel/internal/host"
	"github.com/roach88/keel/internal/storage"
	"github.com/roach88/keel/internal/val"
)

const (
	alice = val.Addr("GALICE")
	bob   = val.Addr("GBOB")
	carol = val.Addr("GCAROL")
)

func newRoles(t *testing.T) (*Roles, *host.Env) {
	t.Helper()
	env := host.NewEnv()
	r := New(env)
	require.NoError(t, r.Bootstrap(alice))
	return r, env
}

func TestBootstrap_SetsOwnerOnce(t *testing.T) {
	r, _ := newRoles(t)

	owner, ok, err := r.Owner()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, alice, owner)

	err = r.Bootstrap(bob)
	assert.True(t, fault.IsUnauthorized(err), "second bootstrap must fail")

	owner, _, err = r.Owner()
	require.NoError(t, err)
	assert.Equal(t, alice, owner, "failed bootstrap must not change the owner")
}

func TestBootstrap_StorageFullIsAtomic(t *testing.T) {
	// One free slot cannot hold the role binding and the OWNER index, so
	// bootstrap must refuse up front instead of committing half of them.
	env := host.NewEnv(host.WithStorageOptions(storage.WithMaxEntries(1)))
	r := New(env)

	err := r.Bootstrap(alice)
	assert.True(t, fault.Is(err, fault.CodeStorageFull))

	_, ok, err := r.Owner()
	require.NoError(t, err)
	assert.False(t, ok, "failed bootstrap must leave no owner behind")

	has, err := r.Has(alice, RoleOwner)
	require.NoError(t, err)
	assert.False(t, has, "failed bootstrap must leave no role binding behind")
	assert.Empty(t, env.Events.Events())
}

func TestGrant_OwnerGrantsAnyRole(t *testing.T) {
	r, _ := newRoles(t)

	for _, role := range []Role{RoleEmergencyAdmin, RolePauser, RoleMinter} {
		require.NoError(t, r.Grant(alice, bob, role))
		ok, err := r.Has(bob, role)
		require.NoError(t, err)
		assert.True(t, ok, "bob should hold %q", role)
	}
}

func TestGrant_HierarchyEnforced(t *testing.T) {
	r, _ := newRoles(t)
	require.NoError(t, r.Grant(alice, bob, RoleEmergencyAdmin))
	require.NoError(t, r.Grant(alice, carol, RoleMinter))

	// EmergencyAdmin may administer Pauser/Minter
	require.NoError(t, r.Grant(bob, carol, RolePauser))

	// ...but not EmergencyAdmin or Owner
	err := r.Grant(bob, carol, RoleEmergencyAdmin)
	assert.True(t, fault.IsUnauthorized(err))
	err = r.Grant(bob, carol, RoleOwner)
	assert.True(t, fault.IsUnauthorized(err))

	// A Minter administers nothing
	err = r.Grant(carol, bob, RoleMinter)
	assert.True(t, fault.IsUnauthorized(err))
}

func TestGrant_UnauthorizedLeavesStateUnchanged(t *testing.T) {
	r, _ := newRoles(t)

	err := r.Grant(bob, carol, RoleMinter)
	require.True(t, fault.IsUnauthorized(err))

	ok, err := r.Has(carol, RoleMinter)
	require.NoError(t, err)
	assert.False(t, ok, "failed grant must not bind the role")
}

func TestGrant_OwnerTransfer(t *testing.T) {
	r, _ := newRoles(t)

	require.NoError(t, r.Grant(alice, bob, RoleOwner))

	owner, _, err := r.Owner()
	require.NoError(t, err)
	assert.Equal(t, bob, owner)

	// At most one Owner: alice's binding is gone
	ok, err := r.Has(alice, RoleOwner)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = r.Has(bob, RoleOwner)
	require.NoError(t, err)
	assert.True(t, ok)

	// Old owner lost all authority
	err = r.Grant(alice, carol, RoleMinter)
	assert.True(t, fault.IsUnauthorized(err))
}

func TestRevoke(t *testing.T) {
	r, _ := newRoles(t)
	require.NoError(t, r.Grant(alice, bob, RoleMinter))

	require.NoError(t, r.Revoke(alice, bob, RoleMinter))

	ok, err := r.Has(bob, RoleMinter)
	require.NoError(t, err)
	assert.False(t, ok)

	// Revoking an unheld role reports NOT_FOUND
	err = r.Revoke(alice, bob, RoleMinter)
	assert.True(t, fault.Is(err, fault.CodeNotFound))
}

func TestRevoke_OwnerRefused(t *testing.T) {
	r, _ := newRoles(t)

	err := r.Revoke(alice, alice, RoleOwner)
	assert.True(t, fault.IsUnauthorized(err))

	owner, _, err := r.Owner()
	require.NoError(t, err)
	assert.Equal(t, alice, owner)
}

func TestRequire(t *testing.T) {
	r, _ := newRoles(t)
	require.NoError(t, r.Grant(alice, bob, RolePauser))

	// Exact role passes
	assert.NoError(t, r.Require(bob, RolePauser))

	// Owner passes any requirement
	assert.NoError(t, r.Require(alice, RoleMinter))
	assert.NoError(t, r.Require(alice, RoleOwner))

	// Pauser does not imply Minter
	err := r.Require(bob, RoleMinter)
	assert.True(t, fault.IsUnauthorized(err))

	// Unknown principal fails everything
	err = r.Require(carol, RolePauser)
	assert.True(t, fault.IsUnauthorized(err))
}

func TestEvents_GrantRevokePublish(t *testing.T) {
	r, env := newRoles(t)

	require.NoError(t, r.Grant(alice, bob, RoleMinter))
	require.NoError(t, r.Revoke(alice, bob, RoleMinter))

	events := env.Events.Events()
	require.Len(t, events, 3) // bootstrap grant + grant + revoke
	assert.Equal(t, TopicRoleGranted, events[0].Topic)
	assert.Equal(t, TopicRoleGranted, events[1].Topic)
	assert.Equal(t, TopicRoleRevoked, events[2].Topic)

	payload, ok := events[1].Payload.(val.Map)
	require.True(t, ok)
	assert.Equal(t, bob, payload["subject"])
	assert.Equal(t, val.Sym(RoleMinter), payload["role"])
	assert.Equal(t, alice, payload["by"])
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole("minter")
	require.NoError(t, err)
	assert.Equal(t, RoleMinter, role)

	_, err = ParseRole("superuser")
	assert.True(t, fault.Is(err, fault.CodeNotFound))
}
