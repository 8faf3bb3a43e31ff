package store

import (
	"context"

	"vouch/internal/identity"
	"vouch/pkg/platform/sentinel"
)

var (
	// ErrNotFound keeps storage-specific lookups consistent across the
	// in-memory and PostgreSQL implementations.
	ErrNotFound = sentinel.ErrNotFound
)

// Store is the durable relation holding per-(user, community) verification
// records and per-community configuration. Pure data access; no policy.
//
// Every operation is a single atomic statement. CreateCommunity and
// CreateIdentity are idempotent no-ops on a pre-existing row so that
// check-then-create races between concurrent events stay benign.
type Store interface {
	GetCommunity(ctx context.Context, id string) (identity.Community, error)
	CreateCommunity(ctx context.Context, community identity.Community) error
	SetVerifyOnJoin(ctx context.Context, communityID string, enabled bool) error
	SetVerifiedRole(ctx context.Context, communityID, role string) error
	SetAllowedDomains(ctx context.Context, communityID string, domains []string) error

	GetIdentity(ctx context.Context, communityID, userID string) (identity.Identity, error)
	CreateIdentity(ctx context.Context, record identity.Identity) error
	ListIdentitiesForUser(ctx context.Context, userID string) ([]identity.Identity, error)
	FindVerifiedIdentity(ctx context.Context, communityID, email string) (identity.Identity, error)
	FindIdentitiesByPendingCode(ctx context.Context, userID string, code int) ([]identity.Identity, error)

	SetPending(ctx context.Context, communityID, userID, email string, code int) error
	SetVerified(ctx context.Context, communityID, userID string) error
}
