// Package verify holds the verification state machine: it consumes inbound
// join and message events, consults eligibility and the identity store,
// drives state transitions, and returns the side effects each transition
// requires as a command list.
package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"vouch/internal/audit"
	"vouch/internal/eligibility"
	"vouch/internal/identity"
	"vouch/internal/identity/store"
	"vouch/internal/platform/metrics"
)

// Service is the orchestrator. Decision steps are pure given store reads; all
// platform side effects leave through the returned command lists.
type Service struct {
	store   store.Store
	checker eligibility.Checker
	codes   CodeIssuer
	audit   audit.Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger
	tracer  trace.Tracer
}

// Option configures the Service.
type Option func(*Service)

// WithCodeIssuer overrides the code source; tests inject deterministic codes.
func WithCodeIssuer(issuer CodeIssuer) Option {
	return func(s *Service) {
		if issuer != nil {
			s.codes = issuer
		}
	}
}

// WithAudit sets the audit sink.
func WithAudit(publisher audit.Publisher) Option {
	return func(s *Service) {
		if publisher != nil {
			s.audit = publisher
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewService(st store.Store, checker eligibility.Checker, opts ...Option) *Service {
	s := &Service{
		store:   st,
		checker: checker,
		codes:   RandomCodeIssuer{},
		audit:   audit.Nop{},
		logger:  slog.Default(),
		tracer:  otel.Tracer("vouch/internal/verify"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HandleJoin processes a member joining a community. Unknown communities are
// registered with defaults; when verification on join is enabled the member
// is prompted, and already-verified members get their role re-granted so
// membership self-heals after manual removal.
func (s *Service) HandleJoin(ctx context.Context, communityID, userID string) ([]Command, error) {
	ctx, span := s.tracer.Start(ctx, "verify.HandleJoin")
	defer span.End()
	defer s.metrics.ObserveHandle("join", time.Now())

	community, err := s.communityConfig(ctx, communityID)
	if err != nil {
		return nil, err
	}
	if !community.VerifyOnJoin {
		return nil, nil
	}
	return s.promptOrHeal(ctx, community, userID)
}

// RequestVerification is the user-initiated re-prompt. Unlike HandleJoin it
// ignores the on-join flag.
func (s *Service) RequestVerification(ctx context.Context, communityID, userID string) ([]Command, error) {
	ctx, span := s.tracer.Start(ctx, "verify.RequestVerification")
	defer span.End()

	community, err := s.communityConfig(ctx, communityID)
	if err != nil {
		return nil, err
	}
	return s.promptOrHeal(ctx, community, userID)
}

func (s *Service) promptOrHeal(ctx context.Context, community identity.Community, userID string) ([]Command, error) {
	record, err := s.store.GetIdentity(ctx, community.ID, userID)
	if errors.Is(err, store.ErrNotFound) {
		created := identity.Identity{UserID: userID, CommunityID: community.ID}
		if err := s.store.CreateIdentity(ctx, created); err != nil {
			return nil, fmt.Errorf("create identity: %w", err)
		}
		s.emit(ctx, audit.KindPrompted, userID, community.ID, "", "")
		return []Command{PromptVerification{CommunityID: community.ID, UserID: userID}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get identity: %w", err)
	}
	if record.Status == identity.StatusUnverified {
		s.emit(ctx, audit.KindPrompted, userID, community.ID, "", "")
		return []Command{PromptVerification{CommunityID: community.ID, UserID: userID}}, nil
	}
	// Verified member rejoined: reconcile the role instead of re-prompting.
	return []Command{GrantRole{CommunityID: community.ID, UserID: userID, Role: community.VerifiedRole}}, nil
}

// HandleCommunityMessage registers unseen communities. Command parsing is the
// transport's concern; admin operations arrive through the admin service.
func (s *Service) HandleCommunityMessage(ctx context.Context, communityID, userID, text string) ([]Command, error) {
	_, err := s.communityConfig(ctx, communityID)
	return nil, err
}

// HandleDirectMessage routes a private message: a six-digit numeric body is a
// code submission, a syntactically valid email is an email submission, and
// anything else is free text.
func (s *Service) HandleDirectMessage(ctx context.Context, userID, text string) ([]Command, error) {
	ctx, span := s.tracer.Start(ctx, "verify.HandleDirectMessage")
	defer span.End()
	defer s.metrics.ObserveHandle("direct_message", time.Now())

	text = strings.TrimSpace(text)
	if code, ok := ParseCode(text); ok {
		return s.handleCode(ctx, userID, code)
	}
	if eligibility.ValidSyntax(text) {
		return s.handleEmail(ctx, userID, text)
	}
	return s.handleFreeText(ctx, userID, text)
}

// handleEmail fans one submission out across every community where the
// sender is unverified and the address is both eligible and unclaimed. All
// target communities receive the same single code, and one email is sent.
func (s *Service) handleEmail(ctx context.Context, userID, email string) ([]Command, error) {
	identities, err := s.store.ListIdentitiesForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	if len(identities) == 0 {
		return []Command{SendNotice{UserID: userID, Text: noticeNoCommunity}}, nil
	}

	var targets []identity.Community
	for _, record := range identities {
		if record.Status != identity.StatusUnverified {
			continue
		}
		community, err := s.communityConfig(ctx, record.CommunityID)
		if err != nil {
			// Failures stay local to one (user, community) pair.
			s.logger.ErrorContext(ctx, "community config load failed",
				"community_id", record.CommunityID, "error", err)
			continue
		}
		if s.emailClaimed(ctx, community.ID, email) {
			continue
		}
		eligible, err := s.checker.Eligible(ctx, email, community)
		if err != nil {
			s.logger.ErrorContext(ctx, "eligibility check failed",
				"community_id", community.ID, "error", err)
			continue
		}
		if eligible {
			targets = append(targets, community)
		}
	}

	if len(targets) == 0 {
		return []Command{SendNotice{UserID: userID, Text: noticeInvalidEmail}}, nil
	}

	code, err := s.codes.Issue()
	if err != nil {
		return nil, err
	}
	for _, community := range targets {
		if err := s.store.SetPending(ctx, community.ID, userID, email, code); err != nil {
			s.logger.ErrorContext(ctx, "set pending failed",
				"community_id", community.ID, "user_id", userID, "error", err)
			continue
		}
		s.emit(ctx, audit.KindCodeIssued, userID, community.ID, email, "")
	}
	s.metrics.IncCodesIssued()

	return []Command{SendCodeEmail{UserID: userID, Email: email, Code: code}}, nil
}

// handleCode verifies every pending identity of the sender whose code
// matches, guarding against addresses claimed by another account since the
// code was issued. A non-matching code changes no state.
func (s *Service) handleCode(ctx context.Context, userID string, code int) ([]Command, error) {
	matches, err := s.store.FindIdentitiesByPendingCode(ctx, userID, code)
	if err != nil {
		return nil, fmt.Errorf("find identities by code: %w", err)
	}

	var survivors []identity.Identity
	for _, record := range matches {
		if record.Status != identity.StatusUnverified {
			continue
		}
		if s.emailClaimed(ctx, record.CommunityID, record.Email) {
			continue
		}
		survivors = append(survivors, record)
	}

	if len(survivors) == 0 {
		s.metrics.IncCodeMismatches()
		s.emit(ctx, audit.KindCodeMismatch, userID, "", "", fmt.Sprintf("code %06d", code))
		return []Command{SendNotice{UserID: userID, Text: noticeIncorrectCode}}, nil
	}

	var commands []Command
	verified := 0
	for _, record := range survivors {
		if err := s.store.SetVerified(ctx, record.CommunityID, record.UserID); err != nil {
			s.logger.ErrorContext(ctx, "set verified failed",
				"community_id", record.CommunityID, "user_id", userID, "error", err)
			continue
		}
		verified++
		community, err := s.communityConfig(ctx, record.CommunityID)
		if err != nil {
			s.logger.ErrorContext(ctx, "community config load failed",
				"community_id", record.CommunityID, "error", err)
			continue
		}
		commands = append(commands,
			GrantRole{CommunityID: community.ID, UserID: userID, Role: community.VerifiedRole},
			RevokeRole{CommunityID: community.ID, UserID: userID, Role: identity.UnverifiedRole},
			AnnounceVerified{CommunityID: community.ID, UserID: userID},
		)
		s.emit(ctx, audit.KindVerified, userID, community.ID, record.Email, "")
	}
	s.metrics.AddVerifications(verified)
	return commands, nil
}

// handleFreeText updates the nickname of a verified user in every community
// where they are verified, except for the skip token. Unverified users who
// reach this path submitted something that was not a valid email.
func (s *Service) handleFreeText(ctx context.Context, userID, text string) ([]Command, error) {
	identities, err := s.store.ListIdentitiesForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}

	var commands []Command
	anyVerified := false
	for _, record := range identities {
		if record.Status != identity.StatusVerified {
			continue
		}
		anyVerified = true
		if text == "" || text == SkipToken {
			continue
		}
		commands = append(commands, Rename{CommunityID: record.CommunityID, UserID: userID, Prefix: text})
	}
	if anyVerified {
		return commands, nil
	}
	if len(identities) > 0 {
		return []Command{SendNotice{UserID: userID, Text: noticeInvalidEmail}}, nil
	}
	return nil, nil
}

// emailClaimed reports whether the address is already verified in the
// community. Lookup failures are logged and treated as unclaimed so one bad
// read cannot block an entire fan-out.
func (s *Service) emailClaimed(ctx context.Context, communityID, email string) bool {
	_, err := s.store.FindVerifiedIdentity(ctx, communityID, email)
	if err == nil {
		return true
	}
	if !errors.Is(err, store.ErrNotFound) {
		s.logger.ErrorContext(ctx, "verified identity lookup failed",
			"community_id", communityID, "error", err)
	}
	return false
}

// communityConfig loads the community, lazily creating a default row on first
// sight. The create is an idempotent no-op under a concurrent duplicate, so
// the re-read always observes a row.
func (s *Service) communityConfig(ctx context.Context, communityID string) (identity.Community, error) {
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

func (s *Service) emit(ctx context.Context, kind audit.Kind, userID, communityID, email, detail string) {
	event := audit.NewEvent(kind)
	event.UserID = userID
	event.CommunityID = communityID
	event.Email = email
	event.Detail = detail
	s.audit.Emit(ctx, event)
}
