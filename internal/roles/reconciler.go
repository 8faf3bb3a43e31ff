package roles

import (
	"context"
	"errors"
	"fmt"
)

// Reconciler idempotently ensures roles exist and that membership matches the
// requested state. Calling any operation twice yields the same outcome as
// calling it once.
type Reconciler struct {
	registry RoleRegistry
}

func NewReconciler(registry RoleRegistry) *Reconciler {
	return &Reconciler{registry: registry}
}

// EnsureRole returns the named role, creating it if absent.
func (r *Reconciler) EnsureRole(ctx context.Context, communityID, name string) (RoleRef, error) {
	role, err := r.registry.GetRole(ctx, communityID, name)
	if err == nil {
		return role, nil
	}
	if !errors.Is(err, ErrRoleNotFound) {
		return RoleRef{}, fmt.Errorf("get role %q: %w", name, err)
	}
	role, err = r.registry.CreateRole(ctx, communityID, name)
	if err != nil {
		return RoleRef{}, fmt.Errorf("create role %q: %w", name, err)
	}
	return role, nil
}

// Grant adds the named role to the user, creating the role first if needed.
// A no-op when the user already holds it.
func (r *Reconciler) Grant(ctx context.Context, communityID, userID, name string) error {
	role, err := r.EnsureRole(ctx, communityID, name)
	if err != nil {
		return err
	}
	held, err := r.registry.HasRole(ctx, communityID, userID, role)
	if err != nil {
		return fmt.Errorf("check role %q: %w", name, err)
	}
	if held {
		return nil
	}
	if err := r.registry.AddRole(ctx, communityID, userID, role); err != nil {
		return fmt.Errorf("grant role %q: %w", name, err)
	}
	return nil
}

// Revoke removes the named role from the user. A no-op when the role does not
// exist or the user does not hold it.
func (r *Reconciler) Revoke(ctx context.Context, communityID, userID, name string) error {
	role, err := r.registry.GetRole(ctx, communityID, name)
	if errors.Is(err, ErrRoleNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get role %q: %w", name, err)
	}
	held, err := r.registry.HasRole(ctx, communityID, userID, role)
	if err != nil {
		return fmt.Errorf("check role %q: %w", name, err)
	}
	if !held {
		return nil
	}
	if err := r.registry.RemoveRole(ctx, communityID, userID, role); err != nil {
		return fmt.Errorf("revoke role %q: %w", name, err)
	}
	return nil
}
