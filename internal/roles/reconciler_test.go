package roles

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureRoleIdempotent(t *testing.T) {
	ctx := context.Background()
	registry := NewInMemoryRegistry()
	reconciler := NewReconciler(registry)

	first, err := reconciler.EnsureRole(ctx, "c1", "verified")
	require.NoError(t, err)
	second, err := reconciler.EnsureRole(ctx, "c1", "verified")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, registry.RolesCreated())
}

func TestGrantIdempotent(t *testing.T) {
	ctx := context.Background()
	registry := NewInMemoryRegistry()
	reconciler := NewReconciler(registry)

	require.NoError(t, reconciler.Grant(ctx, "c1", "u1", "verified"))
	require.NoError(t, reconciler.Grant(ctx, "c1", "u1", "verified"))

	role, err := registry.GetRole(ctx, "c1", "verified")
	require.NoError(t, err)
	held, err := registry.HasRole(ctx, "c1", "u1", role)
	require.NoError(t, err)
	assert.True(t, held)
	assert.Equal(t, 1, registry.RolesCreated())
}

func TestRevoke(t *testing.T) {
	ctx := context.Background()
	registry := NewInMemoryRegistry()
	reconciler := NewReconciler(registry)

	t.Run("missing role is a no-op", func(t *testing.T) {
		require.NoError(t, reconciler.Revoke(ctx, "c1", "u1", "ghost"))
		assert.Equal(t, 0, registry.RolesCreated())
	})

	t.Run("role not held is a no-op", func(t *testing.T) {
		_, err := reconciler.EnsureRole(ctx, "c1", "unverified")
		require.NoError(t, err)
		require.NoError(t, reconciler.Revoke(ctx, "c1", "u1", "unverified"))
	})

	t.Run("removes a held role", func(t *testing.T) {
		require.NoError(t, reconciler.Grant(ctx, "c1", "u1", "unverified"))
		require.NoError(t, reconciler.Revoke(ctx, "c1", "u1", "unverified"))

		role, err := registry.GetRole(ctx, "c1", "unverified")
		require.NoError(t, err)
		held, err := registry.HasRole(ctx, "c1", "u1", role)
		require.NoError(t, err)
		assert.False(t, held)
	})
}
