package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/identity-service/internal/domain"
)

// CredentialRepository defines persistence access for credentials.
//
// Token consumption (ConsumeVerificationToken, ConsumeResetToken) is a single
// conditional UPDATE: the token match, expiry check, state change, and token
// clearing happen in one statement, so a token can never be consumed twice.
type CredentialRepository interface {
	Create(ctx context.Context, cred *domain.Credential) error
	GetByID(ctx context.Context, id string) (*domain.Credential, error)
	GetByEmail(ctx context.Context, email string) (*domain.Credential, error)
	SetResetToken(ctx context.Context, id, token string, expiresAt time.Time) error
	ConsumeVerificationToken(ctx context.Context, token string) (*domain.Credential, error)
	ConsumeResetToken(ctx context.Context, token, passwordHash string) (*domain.Credential, error)
}

type credentialRepository struct {
	pool *pgxpool.Pool
}

// NewCredentialRepository returns a Postgres-backed implementation.
func NewCredentialRepository(pool *pgxpool.Pool) CredentialRepository {
	return &credentialRepository{pool: pool}
}

func (r *credentialRepository) Create(ctx context.Context, cred *domain.Credential) error {
	const query = `
        INSERT INTO credentials (email, password_hash, is_verified, reset_token, reset_token_expires_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		cred.Email,
		cred.PasswordHash,
		cred.IsVerified,
		cred.ResetToken,
		cred.ResetTokenExpiresAt,
	).Scan(&cred.ID, &cred.CreatedAt, &cred.UpdatedAt)
}

func (r *credentialRepository) GetByID(ctx context.Context, id string) (*domain.Credential, error) {
	const query = `
        SELECT id, email, password_hash, is_verified, reset_token, reset_token_expires_at, created_at, updated_at
        FROM credentials WHERE id=$1`

	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

func (r *credentialRepository) GetByEmail(ctx context.Context, email string) (*domain.Credential, error) {
	// Exact, case-sensitive match; the unique index on email carries the
	// same semantics.
	const query = `
        SELECT id, email, password_hash, is_verified, reset_token, reset_token_expires_at, created_at, updated_at
        FROM credentials WHERE email=$1`

	return r.scanOne(r.pool.QueryRow(ctx, query, email))
}

func (r *credentialRepository) SetResetToken(ctx context.Context, id, token string, expiresAt time.Time) error {
	// Overwrites any prior unconsumed token.
	const query = `
        UPDATE credentials
        SET reset_token=$1, reset_token_expires_at=$2, updated_at=NOW()
        WHERE id=$3`

	cmd, err := r.pool.Exec(ctx, query, token, expiresAt, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *credentialRepository) ConsumeVerificationToken(ctx context.Context, token string) (*domain.Credential, error) {
	// Expiry exactly equal to NOW() does not match.
	const query = `
        UPDATE credentials
        SET is_verified=TRUE, reset_token=NULL, reset_token_expires_at=NULL, updated_at=NOW()
        WHERE reset_token=$1 AND reset_token_expires_at > NOW()
        RETURNING id, email, password_hash, is_verified, reset_token, reset_token_expires_at, created_at, updated_at`

	return r.scanOne(r.pool.QueryRow(ctx, query, token))
}

func (r *credentialRepository) ConsumeResetToken(ctx context.Context, token, passwordHash string) (*domain.Credential, error) {
	const query = `
        UPDATE credentials
        SET password_hash=$2, reset_token=NULL, reset_token_expires_at=NULL, updated_at=NOW()
        WHERE reset_token=$1 AND reset_token_expires_at > NOW()
        RETURNING id, email, password_hash, is_verified, reset_token, reset_token_expires_at, created_at, updated_at`

	return r.scanOne(r.pool.QueryRow(ctx, query, token, passwordHash))
}

func (r *credentialRepository) scanOne(row pgx.Row) (*domain.Credential, error) {
	var cred domain.Credential
	if err := row.Scan(
		&cred.ID,
		&cred.Email,
		&cred.PasswordHash,
		&cred.IsVerified,
		&cred.ResetToken,
		&cred.ResetTokenExpiresAt,
		&cred.CreatedAt,
		&cred.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &cred, nil
}
