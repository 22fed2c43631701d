package datastore

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/safetrack/safetrack/internal/inspection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleRepositoryGrantAndRevoke(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	repo := NewRoleRepository(m, time.Minute)
	ctx := t.Context()

	roles, err := repo.Roles(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, roles)

	require.NoError(t, repo.Grant(ctx, "alice", inspection.RoleSupervisor))
	require.NoError(t, repo.Grant(ctx, "alice", inspection.RoleSupervisor), "granting twice is a no-op")
	require.NoError(t, repo.Grant(ctx, "alice", inspection.RoleAuditor))

	roles, err = repo.Roles(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []inspection.Role{inspection.RoleAuditor, inspection.RoleSupervisor}, roles)

	ok, err := repo.HasAnyRole(ctx, "alice", inspection.DefaultElevatedRoles...)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, repo.Revoke(ctx, "alice", inspection.RoleSupervisor))
	ok, err = repo.ForUser("alice").HasAnyRole(ctx, inspection.DefaultElevatedRoles...)
	require.NoError(t, err)
	assert.False(t, ok, "revoke invalidates the cache")
}

func TestRoleRepositoryRejectsUnknownRole(t *testing.T) {
	t.Parallel()

	repo := NewRoleRepository(newTestManager(t), time.Minute)
	err := repo.Grant(t.Context(), "alice", inspection.Role("operator-in-chief"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestRoleRepositoryCachesLookups(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	repo := NewRoleRepository(m, time.Minute)
	ctx := t.Context()
	require.NoError(t, repo.Grant(ctx, "bob", inspection.RoleAdmin))

	_, err := repo.Roles(ctx, "bob")
	require.NoError(t, err)

	// A grant written behind the repository's back stays invisible until the entry expires.
	other := NewRoleRepository(m, 0)
	require.NoError(t, other.Grant(ctx, "bob", inspection.RoleAuditor))

	roles, err := repo.Roles(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, []inspection.Role{inspection.RoleAdmin}, roles)

	roles, err = other.Roles(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, roles, 2)

	const want = `
# HELP datastore_cache_operations_total Total number of cache lookups
# TYPE datastore_cache_operations_total counter
datastore_cache_operations_total{cache_type="roles",operation="cache_get",result="hit"} 1
datastore_cache_operations_total{cache_type="roles",operation="cache_get",result="miss"} 1
`
	require.NoError(t, testutil.CollectAndCompare(m.Metrics(), strings.NewReader(want), "datastore_cache_operations_total"))
}

func TestRoleRepositoryCachedSliceIsCopied(t *testing.T) {
	t.Parallel()

	repo := NewRoleRepository(newTestManager(t), time.Minute)
	ctx := t.Context()
	require.NoError(t, repo.Grant(ctx, "carol", inspection.RoleOperario))

	roles, err := repo.Roles(ctx, "carol")
	require.NoError(t, err)
	roles[0] = inspection.RoleAdmin

	again, err := repo.Roles(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, []inspection.Role{inspection.RoleOperario}, again)
}
