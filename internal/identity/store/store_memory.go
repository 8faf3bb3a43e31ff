package store

import (
	"context"
	"sync"

	"vouch/internal/identity"
)

// InMemory keeps the single-process deployment and tests lightweight. It
// intentionally favors clarity over performance.
type InMemory struct {
	mu          sync.RWMutex
	communities map[string]identity.Community
	identities  map[identityKey]identity.Identity
}

type identityKey struct {
	communityID string
	userID      string
}

func NewInMemory() *InMemory {
	return &InMemory{
		communities: make(map[string]identity.Community),
		identities:  make(map[identityKey]identity.Identity),
	}
}

func (s *InMemory) GetCommunity(_ context.Context, id string) (identity.Community, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.communities[id]; ok {
		return c, nil
	}
	return identity.Community{}, ErrNotFound
}

func (s *InMemory) CreateCommunity(_ context.Context, community identity.Community) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.communities[community.ID]; ok {
		return nil
	}
	s.communities[community.ID] = community
	return nil
}

func (s *InMemory) SetVerifyOnJoin(_ context.Context, communityID string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.communities[communityID]
	if !ok {
		return ErrNotFound
	}
	c.VerifyOnJoin = enabled
	s.communities[communityID] = c
	return nil
}

func (s *InMemory) SetVerifiedRole(_ context.Context, communityID, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.communities[communityID]
	if !ok {
		return ErrNotFound
	}
	c.VerifiedRole = role
	s.communities[communityID] = c
	return nil
}

func (s *InMemory) SetAllowedDomains(_ context.Context, communityID string, domains []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.communities[communityID]
	if !ok {
		return ErrNotFound
	}
	c.AllowedDomains = append([]string(nil), domains...)
	s.communities[communityID] = c
	return nil
}

func (s *InMemory) GetIdentity(_ context.Context, communityID, userID string) (identity.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if record, ok := s.identities[identityKey{communityID, userID}]; ok {
		return record, nil
	}
	return identity.Identity{}, ErrNotFound
}

func (s *InMemory) CreateIdentity(_ context.Context, record identity.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := identityKey{record.CommunityID, record.UserID}
	if _, ok := s.identities[key]; ok {
		return nil
	}
	s.identities[key] = record
	return nil
}

func (s *InMemory) ListIdentitiesForUser(_ context.Context, userID string) ([]identity.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var records []identity.Identity
	for _, record := range s.identities {
		if record.UserID == userID {
			records = append(records, record)
		}
	}
	return records, nil
}

func (s *InMemory) FindVerifiedIdentity(_ context.Context, communityID, email string) (identity.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, record := range s.identities {
		if record.CommunityID == communityID && record.Email == email && record.Status == identity.StatusVerified {
			return record, nil
		}
	}
	return identity.Identity{}, ErrNotFound
}

func (s *InMemory) FindIdentitiesByPendingCode(_ context.Context, userID string, code int) ([]identity.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var records []identity.Identity
	for _, record := range s.identities {
		if record.UserID == userID && record.PendingCode == code {
			records = append(records, record)
		}
	}
	return records, nil
}

func (s *InMemory) SetPending(_ context.Context, communityID, userID, email string, code int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := identityKey{communityID, userID}
	record, ok := s.identities[key]
	if !ok {
		return ErrNotFound
	}
	record.Email = email
	record.PendingCode = code
	s.identities[key] = record
	return nil
}

func (s *InMemory) SetVerified(_ context.Context, communityID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := identityKey{communityID, userID}
	record, ok := s.identities[key]
	if !ok {
		return ErrNotFound
	}
	record.Status = identity.StatusVerified
	s.identities[key] = record
	return nil
}
