package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/identity-service/internal/domain"
)

const profileColumns = `id, auth_id, first_name, last_name, email, is_active, last_login, created_at, updated_at`

// ProfileRepository defines persistence access for profiles.
type ProfileRepository interface {
	Create(ctx context.Context, profile *domain.Profile) error
	Update(ctx context.Context, profile *domain.Profile) error
	GetByID(ctx context.Context, id string) (*domain.Profile, error)
	GetByAuthID(ctx context.Context, authID string) (*domain.Profile, error)
	GetByEmail(ctx context.Context, email string) (*domain.Profile, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Profile, int64, error)
	Delete(ctx context.Context, id string) error
	DeleteByAuthID(ctx context.Context, authID string) error
	SearchByName(ctx context.Context, name string, limit int) ([]*domain.Profile, error)
	Stats(ctx context.Context, recentSince time.Time) (*domain.ProfileStats, error)
	Exists(ctx context.Context, id string) (bool, error)
	ExistsByAuthID(ctx context.Context, authID string) (bool, error)
	EmailTakenByOther(ctx context.Context, email, excludeID string) (bool, error)
	TouchLastLogin(ctx context.Context, authID string) error
}

type profileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository returns a Postgres-backed implementation.
func NewProfileRepository(pool *pgxpool.Pool) ProfileRepository {
	return &profileRepository{pool: pool}
}

func (r *profileRepository) Create(ctx context.Context, profile *domain.Profile) error {
	const query = `
        INSERT INTO profiles (auth_id, first_name, last_name, email, is_active)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		profile.AuthID,
		profile.FirstName,
		profile.LastName,
		profile.Email,
		profile.IsActive,
	).Scan(&profile.ID, &profile.CreatedAt, &profile.UpdatedAt)
}

func (r *profileRepository) Update(ctx context.Context, profile *domain.Profile) error {
	const query = `
        UPDATE profiles SET first_name=$1, last_name=$2, email=$3, is_active=$4, updated_at=NOW()
        WHERE id=$5
        RETURNING updated_at`

	return r.pool.QueryRow(ctx, query,
		profile.FirstName,
		profile.LastName,
		profile.Email,
		profile.IsActive,
		profile.ID,
	).Scan(&profile.UpdatedAt)
}

func (r *profileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	const query = `SELECT ` + profileColumns + ` FROM profiles WHERE id=$1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

func (r *profileRepository) GetByAuthID(ctx context.Context, authID string) (*domain.Profile, error) {
	const query = `SELECT ` + profileColumns + ` FROM profiles WHERE auth_id=$1`
	return r.scanOne(r.pool.QueryRow(ctx, query, authID))
}

func (r *profileRepository) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	const query = `SELECT ` + profileColumns + ` FROM profiles WHERE email=$1`
	return r.scanOne(r.pool.QueryRow(ctx, query, email))
}

func (r *profileRepository) List(ctx context.Context, limit, offset int) ([]*domain.Profile, int64, error) {
	const query = `
        SELECT ` + profileColumns + ` FROM profiles
        ORDER BY created_at DESC
        LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	profiles := make([]*domain.Profile, 0)
	for rows.Next() {
		profile, err := r.scanOne(rows)
		if err != nil {
			return nil, 0, err
		}
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&total); err != nil {
		return nil, 0, err
	}
	return profiles, total, nil
}

func (r *profileRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM profiles WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *profileRepository) DeleteByAuthID(ctx context.Context, authID string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM profiles WHERE auth_id=$1`, authID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *profileRepository) SearchByName(ctx context.Context, name string, limit int) ([]*domain.Profile, error) {
	const query = `
        SELECT ` + profileColumns + ` FROM profiles
        WHERE first_name ILIKE '%' || $1 || '%' OR last_name ILIKE '%' || $1 || '%'
        ORDER BY first_name, last_name
        LIMIT $2`

	rows, err := r.pool.Query(ctx, query, name, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles := make([]*domain.Profile, 0)
	for rows.Next() {
		profile, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	return profiles, rows.Err()
}

func (r *profileRepository) Stats(ctx context.Context, recentSince time.Time) (*domain.ProfileStats, error) {
	const query = `
        SELECT COUNT(*), COUNT(*) FILTER (WHERE created_at >= $1)
        FROM profiles`

	var stats domain.ProfileStats
	if err := r.pool.QueryRow(ctx, query, recentSince).Scan(&stats.TotalProfiles, &stats.RecentProfiles); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *profileRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM profiles WHERE id=$1)`, id).Scan(&exists)
	return exists, err
}

func (r *profileRepository) ExistsByAuthID(ctx context.Context, authID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM profiles WHERE auth_id=$1)`, authID).Scan(&exists)
	return exists, err
}

func (r *profileRepository) EmailTakenByOther(ctx context.Context, email, excludeID string) (bool, error) {
	var taken bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM profiles WHERE email=$1 AND id<>$2)`,
		email, excludeID,
	).Scan(&taken)
	return taken, err
}

func (r *profileRepository) TouchLastLogin(ctx context.Context, authID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE profiles SET last_login=NOW(), updated_at=NOW() WHERE auth_id=$1`,
		authID,
	)
	return err
}

func (r *profileRepository) scanOne(row pgx.Row) (*domain.Profile, error) {
	var profile domain.Profile
	if err := row.Scan(
		&profile.ID,
		&profile.AuthID,
		&profile.FirstName,
		&profile.LastName,
		&profile.Email,
		&profile.IsActive,
		&profile.LastLogin,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &profile, nil
}
