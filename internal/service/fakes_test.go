package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/identity-service/internal/domain"
)

// fakeCredentialRepo mimics the Postgres credential repository, including the
// unique index conflict on email and the conditional-update token consumption.
type fakeCredentialRepo struct {
	mu    sync.Mutex
	byID  map[string]*domain.Credential
	calls struct {
		setResetToken int
	}
}

func newFakeCredentialRepo() *fakeCredentialRepo {
	return &fakeCredentialRepo{byID: map[string]*domain.Credential{}}
}

func uniqueViolationErr() error {
	return &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
}

func (f *fakeCredentialRepo) Create(_ context.Context, cred *domain.Credential) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.Email == cred.Email {
			return uniqueViolationErr()
		}
	}
	cred.ID = uuid.NewString()
	cred.CreatedAt = time.Now()
	cred.UpdatedAt = cred.CreatedAt
	clone := *cred
	f.byID[cred.ID] = &clone
	return nil
}

func (f *fakeCredentialRepo) GetByID(_ context.Context, id string) (*domain.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cred, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *cred
	return &clone, nil
}

func (f *fakeCredentialRepo) GetByEmail(_ context.Context, email string) (*domain.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, cred := range f.byID {
		if cred.Email == email { // exact, case sensitive
			clone := *cred
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeCredentialRepo) SetResetToken(_ context.Context, id, token string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cred, ok := f.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	f.calls.setResetToken++
	cred.ResetToken = &token
	cred.ResetTokenExpiresAt = &expiresAt
	cred.UpdatedAt = time.Now()
	return nil
}

func (f *fakeCredentialRepo) ConsumeVerificationToken(_ context.Context, token string) (*domain.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cred := f.findByLiveToken(token)
	if cred == nil {
		return nil, pgx.ErrNoRows
	}
	cred.IsVerified = true
	cred.ResetToken = nil
	cred.ResetTokenExpiresAt = nil
	cred.UpdatedAt = time.Now()
	clone := *cred
	return &clone, nil
}

func (f *fakeCredentialRepo) ConsumeResetToken(_ context.Context, token, passwordHash string) (*domain.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cred := f.findByLiveToken(token)
	if cred == nil {
		return nil, pgx.ErrNoRows
	}
	cred.PasswordHash = passwordHash
	cred.ResetToken = nil
	cred.ResetTokenExpiresAt = nil
	cred.UpdatedAt = time.Now()
	clone := *cred
	return &clone, nil
}

// findByLiveToken matches the SQL predicate: token equal and expiry strictly
// in the future. Caller holds the lock.
func (f *fakeCredentialRepo) findByLiveToken(token string) *domain.Credential {
	if token == "" {
		return nil
	}
	now := time.Now()
	for _, cred := range f.byID {
		if cred.ResetToken != nil && *cred.ResetToken == token &&
			cred.ResetTokenExpiresAt != nil && cred.ResetTokenExpiresAt.After(now) {
			return cred
		}
	}
	return nil
}

// expireToken backdates the stored token expiry for a credential.
func (f *fakeCredentialRepo) expireToken(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cred, ok := f.byID[id]; ok && cred.ResetTokenExpiresAt != nil {
		past := time.Now().Add(-time.Second)
		cred.ResetTokenExpiresAt = &past
	}
}

// fakeProfileRepo mimics the Postgres profile repository with its unique
// indexes on auth_id and email.
type fakeProfileRepo struct {
	mu   sync.Mutex
	byID map[string]*domain.Profile
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{byID: map[string]*domain.Profile{}}
}

func (f *fakeProfileRepo) Create(_ context.Context, profile *domain.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.AuthID == profile.AuthID || existing.Email == profile.Email {
			return uniqueViolationErr()
		}
	}
	profile.ID = uuid.NewString()
	profile.CreatedAt = time.Now()
	profile.UpdatedAt = profile.CreatedAt
	clone := *profile
	f.byID[profile.ID] = &clone
	return nil
}

func (f *fakeProfileRepo) Update(_ context.Context, profile *domain.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.byID[profile.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	for id, other := range f.byID {
		if id != profile.ID && other.Email == profile.Email {
			return uniqueViolationErr()
		}
	}
	stored.FirstName = profile.FirstName
	stored.LastName = profile.LastName
	stored.Email = profile.Email
	stored.IsActive = profile.IsActive
	stored.UpdatedAt = time.Now()
	return nil
}

func (f *fakeProfileRepo) GetByID(_ context.Context, id string) (*domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	profile, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *profile
	return &clone, nil
}

func (f *fakeProfileRepo) GetByAuthID(_ context.Context, authID string) (*domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, profile := range f.byID {
		if profile.AuthID == authID {
			clone := *profile
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeProfileRepo) GetByEmail(_ context.Context, email string) (*domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, profile := range f.byID {
		if profile.Email == email {
			clone := *profile
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeProfileRepo) List(_ context.Context, limit, offset int) ([]*domain.Profile, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := make([]*domain.Profile, 0, len(f.byID))
	for _, profile := range f.byID {
		clone := *profile
		all = append(all, &clone)
	}
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (f *fakeProfileRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeProfileRepo) DeleteByAuthID(_ context.Context, authID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, profile := range f.byID {
		if profile.AuthID == authID {
			delete(f.byID, id)
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (f *fakeProfileRepo) SearchByName(_ context.Context, name string, limit int) ([]*domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	needle := strings.ToLower(name)
	var matches []*domain.Profile
	for _, profile := range f.byID {
		if strings.Contains(strings.ToLower(profile.FirstName), needle) ||
			strings.Contains(strings.ToLower(profile.LastName), needle) {
			clone := *profile
			matches = append(matches, &clone)
		}
		if len(matches) >= limit {
			break
		}
	}
	return matches, nil
}

func (f *fakeProfileRepo) Stats(_ context.Context, recentSince time.Time) (*domain.ProfileStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := &domain.ProfileStats{}
	for _, profile := range f.byID {
		stats.TotalProfiles++
		if profile.CreatedAt.After(recentSince) {
			stats.RecentProfiles++
		}
	}
	return stats, nil
}

func (f *fakeProfileRepo) Exists(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.byID[id]
	return ok, nil
}

func (f *fakeProfileRepo) ExistsByAuthID(_ context.Context, authID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, profile := range f.byID {
		if profile.AuthID == authID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeProfileRepo) EmailTakenByOther(_ context.Context, email, excludeID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, profile := range f.byID {
		if id != excludeID && profile.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeProfileRepo) TouchLastLogin(_ context.Context, authID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, profile := range f.byID {
		if profile.AuthID == authID {
			now := time.Now()
			profile.LastLogin = &now
			return nil
		}
	}
	return pgx.ErrNoRows
}
