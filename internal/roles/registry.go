// Package roles aligns a user's platform role membership with their
// verification state. It never drives state itself; the verification service
// requests reconciliation as a side effect of transitions.
package roles

import (
	"context"

	"vouch/pkg/platform/sentinel"
)

// ErrRoleNotFound is returned by registries when a named role does not exist
// on a community.
var ErrRoleNotFound = sentinel.ErrNotFound

// RoleRef identifies a role on the chat platform.
type RoleRef struct {
	ID   string
	Name string
}

// RoleRegistry is the chat-platform role surface. Implementations wrap the
// platform client; the in-memory one backs tests and local runs.
type RoleRegistry interface {
	GetRole(ctx context.Context, communityID, name string) (RoleRef, error)
	CreateRole(ctx context.Context, communityID, name string) (RoleRef, error)
	AddRole(ctx context.Context, communityID, userID string, role RoleRef) error
	RemoveRole(ctx context.Context, communityID, userID string, role RoleRef) error
	HasRole(ctx context.Context, communityID, userID string, role RoleRef) (bool, error)
}
