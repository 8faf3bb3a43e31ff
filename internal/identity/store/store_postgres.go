package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"vouch/internal/identity"
)

// Postgres persists communities and identities in PostgreSQL. Every mutation
// is a single INSERT/UPDATE so the per-statement atomicity of the database is
// the concurrency safety net; no external locking is layered on top.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// EnsureSchema creates the backing tables if they do not exist.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS communities (
			community_id    TEXT PRIMARY KEY,
			verify_on_join  BOOLEAN NOT NULL DEFAULT FALSE,
			verified_role   TEXT NOT NULL,
			allowed_domains TEXT[] NOT NULL DEFAULT '{}'
		);
		CREATE TABLE IF NOT EXISTS identities (
			user_id      TEXT NOT NULL,
			community_id TEXT NOT NULL,
			email        TEXT NOT NULL DEFAULT '',
			pending_code INTEGER NOT NULL DEFAULT 0,
			verified     BOOLEAN NOT NULL DEFAULT FALSE,
			PRIMARY KEY (user_id, community_id)
		);
		CREATE INDEX IF NOT EXISTS identities_user_idx ON identities (user_id);
		CREATE INDEX IF NOT EXISTS identities_email_idx ON identities (community_id, email) WHERE verified;
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *Postgres) GetCommunity(ctx context.Context, id string) (identity.Community, error) {
	var c identity.Community
	err := s.db.QueryRowContext(ctx, `
		SELECT community_id, verify_on_join, verified_role, allowed_domains
		FROM communities WHERE community_id = $1`, id,
	).Scan(&c.ID, &c.VerifyOnJoin, &c.VerifiedRole, pq.Array(&c.AllowedDomains))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return identity.Community{}, ErrNotFound
		}
		return identity.Community{}, fmt.Errorf("get community: %w", err)
	}
	return c, nil
}

// CreateCommunity inserts a community row, silently keeping any existing row.
func (s *Postgres) CreateCommunity(ctx context.Context, community identity.Community) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO communities (community_id, verify_on_join, verified_role, allowed_domains)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (community_id) DO NOTHING`,
		community.ID, community.VerifyOnJoin, community.VerifiedRole, pq.Array(community.AllowedDomains),
	)
	if err != nil {
		return fmt.Errorf("create community: %w", err)
	}
	return nil
}

func (s *Postgres) SetVerifyOnJoin(ctx context.Context, communityID string, enabled bool) error {
	return s.updateCommunity(ctx, communityID,
		`UPDATE communities SET verify_on_join = $2 WHERE community_id = $1`, enabled)
}

func (s *Postgres) SetVerifiedRole(ctx context.Context, communityID, role string) error {
	return s.updateCommunity(ctx, communityID,
		`UPDATE communities SET verified_role = $2 WHERE community_id = $1`, role)
}

func (s *Postgres) SetAllowedDomains(ctx context.Context, communityID string, domains []string) error {
	return s.updateCommunity(ctx, communityID,
		`UPDATE communities SET allowed_domains = $2 WHERE community_id = $1`, pq.Array(domains))
}

func (s *Postgres) updateCommunity(ctx context.Context, communityID, query string, value any) error {
	res, err := s.db.ExecContext(ctx, query, communityID, value)
	if err != nil {
		return fmt.Errorf("update community: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update community: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) GetIdentity(ctx context.Context, communityID, userID string) (identity.Identity, error) {
	record, err := s.scanIdentity(s.db.QueryRowContext(ctx, `
		SELECT user_id, community_id, email, pending_code, verified
		FROM identities WHERE community_id = $1 AND user_id = $2`, communityID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return identity.Identity{}, ErrNotFound
		}
		return identity.Identity{}, fmt.Errorf("get identity: %w", err)
	}
	return record, nil
}

// CreateIdentity inserts an identity row, silently keeping any existing row.
func (s *Postgres) CreateIdentity(ctx context.Context, record identity.Identity) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO identities (user_id, community_id, email, pending_code, verified)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, community_id) DO NOTHING`,
		record.UserID, record.CommunityID, record.Email, record.PendingCode,
		record.Status == identity.StatusVerified,
	)
	if err != nil {
		return fmt.Errorf("create identity: %w", err)
	}
	return nil
}

func (s *Postgres) ListIdentitiesForUser(ctx context.Context, userID string) ([]identity.Identity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, community_id, email, pending_code, verified
		FROM identities WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	return collectIdentities(rows)
}

func (s *Postgres) FindVerifiedIdentity(ctx context.Context, communityID, email string) (identity.Identity, error) {
	record, err := s.scanIdentity(s.db.QueryRowContext(ctx, `
		SELECT user_id, community_id, email, pending_code, verified
		FROM identities WHERE community_id = $1 AND email = $2 AND verified`, communityID, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return identity.Identity{}, ErrNotFound
		}
		return identity.Identity{}, fmt.Errorf("find verified identity: %w", err)
	}
	return record, nil
}

func (s *Postgres) FindIdentitiesByPendingCode(ctx context.Context, userID string, code int) ([]identity.Identity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, community_id, email, pending_code, verified
		FROM identities WHERE user_id = $1 AND pending_code = $2`, userID, code)
	if err != nil {
		return nil, fmt.Errorf("find identities by code: %w", err)
	}
	return collectIdentities(rows)
}

func (s *Postgres) SetPending(ctx context.Context, communityID, userID, email string, code int) error {
	return s.updateIdentity(ctx, `
		UPDATE identities SET email = $3, pending_code = $4
		WHERE community_id = $1 AND user_id = $2`, communityID, userID, email, code)
}

func (s *Postgres) SetVerified(ctx context.Context, communityID, userID string) error {
	return s.updateIdentity(ctx, `
		UPDATE identities SET verified = TRUE
		WHERE community_id = $1 AND user_id = $2`, communityID, userID)
}

func (s *Postgres) updateIdentity(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update identity: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update identity: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Postgres) scanIdentity(row rowScanner) (identity.Identity, error) {
	var record identity.Identity
	var verified bool
	if err := row.Scan(&record.UserID, &record.CommunityID, &record.Email, &record.PendingCode, &verified); err != nil {
		return identity.Identity{}, err
	}
	if verified {
		record.Status = identity.StatusVerified
	}
	return record, nil
}

func collectIdentities(rows *sql.Rows) ([]identity.Identity, error) {
	defer rows.Close()
	var records []identity.Identity
	for rows.Next() {
		var record identity.Identity
		var verified bool
		if err := rows.Scan(&record.UserID, &record.CommunityID, &record.Email, &record.PendingCode, &verified); err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		if verified {
			record.Status = identity.StatusVerified
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	return records, nil
}
