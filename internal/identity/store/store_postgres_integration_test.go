//go:build integration

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"vouch/internal/identity"
	"vouch/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	store *Postgres
	ctx   context.Context
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	pg := containers.NewPostgresContainer(s.T())
	s.store = NewPostgres(pg.DB)
	s.Require().NoError(s.store.EnsureSchema(s.ctx))
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) TestCommunityLifecycle() {
	s.Run("returns ErrNotFound for unknown community", func() {
		_, err := s.store.GetCommunity(s.ctx, "pg-missing")
		s.Require().ErrorIs(err, ErrNotFound)
	})

	s.Run("creates and configures a community", func() {
		s.Require().NoError(s.store.CreateCommunity(s.ctx, identity.NewCommunity("pg-c1")))
		s.Require().NoError(s.store.SetVerifyOnJoin(s.ctx, "pg-c1", true))
		s.Require().NoError(s.store.SetVerifiedRole(s.ctx, "pg-c1", "member"))
		s.Require().NoError(s.store.SetAllowedDomains(s.ctx, "pg-c1", []string{"x.com", "y.com"}))

		found, err := s.store.GetCommunity(s.ctx, "pg-c1")
		s.Require().NoError(err)
		s.True(found.VerifyOnJoin)
		s.Equal("member", found.VerifiedRole)
		s.Equal([]string{"x.com", "y.com"}, found.AllowedDomains)
	})

	s.Run("duplicate create keeps the existing row", func() {
		s.Require().NoError(s.store.CreateCommunity(s.ctx, identity.NewCommunity("pg-c2")))
		s.Require().NoError(s.store.SetVerifiedRole(s.ctx, "pg-c2", "member"))

		s.Require().NoError(s.store.CreateCommunity(s.ctx, identity.NewCommunity("pg-c2")))

		found, err := s.store.GetCommunity(s.ctx, "pg-c2")
		s.Require().NoError(err)
		s.Equal("member", found.VerifiedRole)
	})

	s.Run("config setters require an existing row", func() {
		s.Require().ErrorIs(s.store.SetVerifyOnJoin(s.ctx, "pg-missing", true), ErrNotFound)
	})
}

func (s *PostgresStoreSuite) TestIdentityLifecycle() {
	newIdentity := func(userID, communityID string) identity.Identity {
		return identity.Identity{UserID: userID, CommunityID: communityID}
	}

	s.Run("pending then verified", func() {
		s.Require().NoError(s.store.CreateIdentity(s.ctx, newIdentity("pg-u1", "pg-c1")))
		s.Require().NoError(s.store.SetPending(s.ctx, "pg-c1", "pg-u1", "a@x.com", 123456))

		found, err := s.store.GetIdentity(s.ctx, "pg-c1", "pg-u1")
		s.Require().NoError(err)
		s.True(found.Pending())
		s.Equal(123456, found.PendingCode)

		// Pending rows are not verified claims.
		_, err = s.store.FindVerifiedIdentity(s.ctx, "pg-c1", "a@x.com")
		s.Require().ErrorIs(err, ErrNotFound)

		s.Require().NoError(s.store.SetVerified(s.ctx, "pg-c1", "pg-u1"))
		claimed, err := s.store.FindVerifiedIdentity(s.ctx, "pg-c1", "a@x.com")
		s.Require().NoError(err)
		s.Equal("pg-u1", claimed.UserID)
		s.Equal(identity.StatusVerified, claimed.Status)
	})

	s.Run("duplicate create keeps the existing row", func() {
		s.Require().NoError(s.store.CreateIdentity(s.ctx, newIdentity("pg-u2", "pg-c1")))
		s.Require().NoError(s.store.SetPending(s.ctx, "pg-c1", "pg-u2", "b@x.com", 222222))

		s.Require().NoError(s.store.CreateIdentity(s.ctx, newIdentity("pg-u2", "pg-c1")))

		found, err := s.store.GetIdentity(s.ctx, "pg-c1", "pg-u2")
		s.Require().NoError(err)
		s.Equal("b@x.com", found.Email)
	})

	s.Run("pending code lookup is scoped to the user", func() {
		s.Require().NoError(s.store.CreateIdentity(s.ctx, newIdentity("pg-u3", "pg-c1")))
		s.Require().NoError(s.store.CreateIdentity(s.ctx, newIdentity("pg-u3", "pg-c2")))
		s.Require().NoError(s.store.CreateIdentity(s.ctx, newIdentity("pg-u4", "pg-c1")))
		s.Require().NoError(s.store.SetPending(s.ctx, "pg-c1", "pg-u3", "c@x.com", 333333))
		s.Require().NoError(s.store.SetPending(s.ctx, "pg-c2", "pg-u3", "c@x.com", 333333))
		s.Require().NoError(s.store.SetPending(s.ctx, "pg-c1", "pg-u4", "d@x.com", 333333))

		records, err := s.store.FindIdentitiesByPendingCode(s.ctx, "pg-u3", 333333)
		s.Require().NoError(err)
		s.Len(records, 2)
		for _, record := range records {
			s.Equal("pg-u3", record.UserID)
		}
	})

	s.Run("lists identities across communities", func() {
		records, err := s.store.ListIdentitiesForUser(s.ctx, "pg-u3")
		s.Require().NoError(err)
		s.Len(records, 2)
	})

	s.Run("updates require an existing row", func() {
		s.Require().ErrorIs(s.store.SetPending(s.ctx, "pg-c9", "pg-u9", "a@x.com", 1), ErrNotFound)
		s.Require().ErrorIs(s.store.SetVerified(s.ctx, "pg-c9", "pg-u9"), ErrNotFound)
	})
}
