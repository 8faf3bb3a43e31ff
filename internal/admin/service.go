// Package admin exposes the community configuration operations reserved for
// workspace administrators, plus the unprivileged status report. Privilege
// itself is asserted by the caller (platform permissions or the admin API's
// token); this service only mutates configuration.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"vouch/internal/audit"
	"vouch/internal/identity"
	"vouch/internal/identity/store"
	"vouch/internal/roles"
)

// Service mutates per-community configuration through the identity store.
// Every operation registers the community on first sight, matching the
// auto-heal behavior of the event handlers.
type Service struct {
	store      store.Store
	reconciler *roles.Reconciler
	audit      audit.Publisher
	logger     *slog.Logger
}

func NewService(st store.Store, reconciler *roles.Reconciler, publisher audit.Publisher, logger *slog.Logger) *Service {
	if publisher == nil {
		publisher = audit.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, reconciler: reconciler, audit: publisher, logger: logger}
}

// StatusReport summarizes a community's verification configuration.
type StatusReport struct {
	CommunityID    string   `json:"community_id"`
	VerifyOnJoin   bool     `json:"verify_on_join"`
	VerifiedRole   string   `json:"verified_role"`
	AllowedDomains []string `json:"allowed_domains,omitempty"`
}

// SetVerifiedRole changes the role granted on verification and makes sure a
// role with that name exists on the platform.
func (s *Service) SetVerifiedRole(ctx context.Context, communityID, role string) error {
	if role == "" {
		return fmt.Errorf("role name is required")
	}
	if _, err := s.ensureCommunity(ctx, communityID); err != nil {
		return err
	}
	if err := s.store.SetVerifiedRole(ctx, communityID, role); err != nil {
		return fmt.Errorf("set verified role: %w", err)
	}
	if _, err := s.reconciler.EnsureRole(ctx, communityID, role); err != nil {
		// Config is committed; the role will be created on the next grant.
		s.logger.ErrorContext(ctx, "verified role creation failed",
			"community_id", communityID, "role", role, "error", err)
	}
	s.emitConfig(ctx, communityID, "verified_role="+role)
	return nil
}

// EnableOnJoin turns on the join-time verification prompt.
func (s *Service) EnableOnJoin(ctx context.Context, communityID string) error {
	return s.setOnJoin(ctx, communityID, true)
}

// DisableOnJoin turns off the join-time verification prompt.
func (s *Service) DisableOnJoin(ctx context.Context, communityID string) error {
	return s.setOnJoin(ctx, communityID, false)
}

func (s *Service) setOnJoin(ctx context.Context, communityID string, enabled bool) error {
	if _, err := s.ensureCommunity(ctx, communityID); err != nil {
		return err
	}
	if err := s.store.SetVerifyOnJoin(ctx, communityID, enabled); err != nil {
		return fmt.Errorf("set verify on join: %w", err)
	}
	s.emitConfig(ctx, communityID, fmt.Sprintf("verify_on_join=%t", enabled))
	return nil
}

// AddDomain appends a domain to the community allow-list. Duplicate adds are
// no-ops.
func (s *Service) AddDomain(ctx context.Context, communityID, domain string) error {
	if domain == "" {
		return fmt.Errorf("domain is required")
	}
	community, err := s.ensureCommunity(ctx, communityID)
	if err != nil {
		return err
	}
	for _, existing := range community.AllowedDomains {
		if existing == domain {
			return nil
		}
	}
	domains := append(append([]string(nil), community.AllowedDomains...), domain)
	if err := s.store.SetAllowedDomains(ctx, communityID, domains); err != nil {
		return fmt.Errorf("add domain: %w", err)
	}
	s.emitConfig(ctx, communityID, "add_domain="+domain)
	return nil
}

// RemoveDomain drops a domain from the allow-list. Removing an absent domain
// is a no-op.
func (s *Service) RemoveDomain(ctx context.Context, communityID, domain string) error {
	community, err := s.ensureCommunity(ctx, communityID)
	if err != nil {
		return err
	}
	domains := make([]string, 0, len(community.AllowedDomains))
	for _, existing := range community.AllowedDomains {
		if existing != domain {
			domains = append(domains, existing)
		}
	}
	if len(domains) == len(community.AllowedDomains) {
		return nil
	}
	if err := s.store.SetAllowedDomains(ctx, communityID, domains); err != nil {
		return fmt.Errorf("remove domain: %w", err)
	}
	s.emitConfig(ctx, communityID, "remove_domain="+domain)
	return nil
}

// Status reports the community configuration. No privilege required.
func (s *Service) Status(ctx context.Context, communityID string) (StatusReport, error) {
	community, err := s.ensureCommunity(ctx, communityID)
	if err != nil {
		return StatusReport{}, err
	}
	return StatusReport{
		CommunityID:    community.ID,
		VerifyOnJoin:   community.VerifyOnJoin,
		VerifiedRole:   community.VerifiedRole,
		AllowedDomains: community.AllowedDomains,
	}, nil
}

func (s *Service) ensureCommunity(ctx context.Context, communityID string) (identity.Community, error) {
	community, err := s.store.GetCommunity(ctx, communityID)
	if err == nil {
		return community, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return identity.Community{}, fmt.Errorf("get community: %w", err)
	}
	if err := s.store.CreateCommunity(ctx, identity.NewCommunity(communityID)); err != nil {
		return identity.Community{}, fmt.Errorf("create community: %w", err)
	}
	community, err = s.store.GetCommunity(ctx, communityID)
	if err != nil {
		return identity.Community{}, fmt.Errorf("get community: %w", err)
	}
	return community, nil
}

func (s *Service) emitConfig(ctx context.Context, communityID, detail string) {
	event := audit.NewEvent(audit.KindConfigChanged)
	event.CommunityID = communityID
	event.Detail = detail
	s.audit.Emit(ctx, event)
}
