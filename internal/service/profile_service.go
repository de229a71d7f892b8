package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/identity-service/internal/domain"
	"github.com/spec-kit/identity-service/internal/events"
	"github.com/spec-kit/identity-service/internal/repository"
	apperrors "github.com/spec-kit/identity-service/pkg/util/errorutil"
)

const (
	nameMinLen         = 2
	nameMaxLen         = 50
	defaultSearchLimit = 10
	defaultListLimit   = 50
	maxListLimit       = 200
	recentWindow       = 7 * 24 * time.Hour
)

// ProfileService orchestrates profile creation, lookup, and update, keyed by
// the owning credential reference. The credential owns email truth; the
// profile's lowercased copy exists only as a lookup key and is never synced
// back onto the credential.
type ProfileService struct {
	profiles   repository.ProfileRepository
	dispatcher events.Dispatcher
	validate   *validator.Validate
}

// ProfileUpdate lists the mutable profile fields; nil means unchanged.
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	Email     *string
	IsActive  *bool
}

// NewProfileService builds the service.
func NewProfileService(profiles repository.ProfileRepository, dispatcher events.Dispatcher) *ProfileService {
	return &ProfileService{
		profiles:   profiles,
		dispatcher: dispatcher,
		validate:   validator.New(),
	}
}

// Create adds a profile for an existing credential. At most one profile may
// reference a credential; the unique indexes on auth_id and email settle any
// race the pre-checks miss.
func (s *ProfileService) Create(ctx context.Context, authID, firstName, lastName, email string) (*domain.Profile, error) {
	if err := validateID("auth ID", authID); err != nil {
		return nil, err
	}

	profile := &domain.Profile{
		AuthID:    authID,
		FirstName: strings.TrimSpace(firstName),
		LastName:  strings.TrimSpace(lastName),
		Email:     strings.ToLower(strings.TrimSpace(email)),
		IsActive:  true,
	}
	if err := s.validateFields(profile.FirstName, profile.LastName, profile.Email); err != nil {
		return nil, err
	}

	exists, err := s.profiles.ExistsByAuthID(ctx, authID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if exists {
		return nil, apperrors.NewAlreadyExists("profile already exists for this credential", map[string]any{"auth_id": authID})
	}

	if err := s.profiles.Create(ctx, profile); err != nil {
		if apperrors.IsUniqueViolation(err) {
			return nil, apperrors.NewAlreadyExists("profile with this credential or email already exists", nil)
		}
		return nil, apperrors.MapError(err)
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.NewEvent(events.EventProfileCreated, authID, events.ProfileCreatedPayload{
			ProfileID: profile.ID,
			Email:     profile.Email,
		}))
	}

	return profile, nil
}

// FindAll returns a page of profiles plus the total count.
func (s *ProfileService) FindAll(ctx context.Context, limit, offset int) ([]*domain.Profile, int64, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	profiles, total, err := s.profiles.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, apperrors.MapError(err)
	}
	return profiles, total, nil
}

// FindOne returns a profile by id.
func (s *ProfileService) FindOne(ctx context.Context, id string) (*domain.Profile, error) {
	if err := validateID("profile ID", id); err != nil {
		return nil, err
	}
	profile, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("profile", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return profile, nil
}

// FindByAuthRef returns the profile owned by the given credential.
func (s *ProfileService) FindByAuthRef(ctx context.Context, authID string) (*domain.Profile, error) {
	if err := validateID("auth ID", authID); err != nil {
		return nil, err
	}
	profile, err := s.profiles.GetByAuthID(ctx, authID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("profile", map[string]any{"auth_id": authID})
		}
		return nil, apperrors.MapError(err)
	}
	return profile, nil
}

// FindByEmail returns the profile with the given denormalized email.
func (s *ProfileService) FindByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if err := s.validate.Var(normalized, "required,email"); err != nil {
		return nil, apperrors.NewValidationError("invalid email format", map[string]any{"email": email})
	}
	profile, err := s.profiles.GetByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("profile", map[string]any{"email": normalized})
		}
		return nil, apperrors.MapError(err)
	}
	return profile, nil
}

// Update applies a partial update to a profile by id. An email change
// re-checks cross-profile uniqueness before committing.
func (s *ProfileService) Update(ctx context.Context, id string, update ProfileUpdate) (*domain.Profile, error) {
	if err := validateID("profile ID", id); err != nil {
		return nil, err
	}
	profile, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("profile", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return s.applyUpdate(ctx, profile, update)
}

// UpdateByAuthRef applies a partial update to the profile owned by authID.
func (s *ProfileService) UpdateByAuthRef(ctx context.Context, authID string, update ProfileUpdate) (*domain.Profile, error) {
	if err := validateID("auth ID", authID); err != nil {
		return nil, err
	}
	profile, err := s.profiles.GetByAuthID(ctx, authID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("profile", map[string]any{"auth_id": authID})
		}
		return nil, apperrors.MapError(err)
	}
	return s.applyUpdate(ctx, profile, update)
}

// Delete removes a profile. The owning credential is untouched; there is no
// cascade in either direction.
func (s *ProfileService) Delete(ctx context.Context, id string) error {
	if err := validateID("profile ID", id); err != nil {
		return err
	}
	if err := s.profiles.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("profile", map[string]any{"id": id})
		}
		return apperrors.MapError(err)
	}
	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.NewEvent(events.EventProfileDeleted, "", events.ProfileDeletedPayload{ProfileID: id}))
	}
	return nil
}

// DeleteByAuthRef removes the profile owned by authID.
func (s *ProfileService) DeleteByAuthRef(ctx context.Context, authID string) error {
	if err := validateID("auth ID", authID); err != nil {
		return err
	}
	if err := s.profiles.DeleteByAuthID(ctx, authID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("profile", map[string]any{"auth_id": authID})
		}
		return apperrors.MapError(err)
	}
	return nil
}

// SearchByPartialName finds profiles whose first or last name contains the
// given fragment, case-insensitively.
func (s *ProfileService) SearchByPartialName(ctx context.Context, name string, limit int) ([]*domain.Profile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("search name is required", nil)
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	profiles, err := s.profiles.SearchByName(ctx, name, limit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return profiles, nil
}

// GetStats returns total and recently created profile counts.
func (s *ProfileService) GetStats(ctx context.Context) (*domain.ProfileStats, error) {
	stats, err := s.profiles.Stats(ctx, time.Now().Add(-recentWindow))
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return stats, nil
}

// Exists reports whether a profile id exists. Malformed ids and store
// failures read as false, never as an error.
func (s *ProfileService) Exists(ctx context.Context, id string) bool {
	if _, err := uuid.Parse(id); err != nil {
		return false
	}
	exists, err := s.profiles.Exists(ctx, id)
	if err != nil {
		return false
	}
	return exists
}

// ExistsByAuthRef reports whether a credential has a profile.
func (s *ProfileService) ExistsByAuthRef(ctx context.Context, authID string) bool {
	if _, err := uuid.Parse(authID); err != nil {
		return false
	}
	exists, err := s.profiles.ExistsByAuthID(ctx, authID)
	if err != nil {
		return false
	}
	return exists
}

func (s *ProfileService) applyUpdate(ctx context.Context, profile *domain.Profile, update ProfileUpdate) (*domain.Profile, error) {
	if update.FirstName != nil {
		profile.FirstName = strings.TrimSpace(*update.FirstName)
	}
	if update.LastName != nil {
		profile.LastName = strings.TrimSpace(*update.LastName)
	}
	if update.Email != nil {
		newEmail := strings.ToLower(strings.TrimSpace(*update.Email))
		if newEmail != profile.Email {
			taken, err := s.profiles.EmailTakenByOther(ctx, newEmail, profile.ID)
			if err != nil {
				return nil, apperrors.MapError(err)
			}
			if taken {
				return nil, apperrors.NewAlreadyExists("email is already in use", map[string]any{"email": newEmail})
			}
		}
		profile.Email = newEmail
	}
	if update.IsActive != nil {
		profile.IsActive = *update.IsActive
	}

	if err := s.validateFields(profile.FirstName, profile.LastName, profile.Email); err != nil {
		return nil, err
	}

	if err := s.profiles.Update(ctx, profile); err != nil {
		if apperrors.IsUniqueViolation(err) {
			return nil, apperrors.NewAlreadyExists("email is already in use", nil)
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("profile", map[string]any{"id": profile.ID})
		}
		return nil, apperrors.MapError(err)
	}
	return profile, nil
}

func (s *ProfileService) validateFields(firstName, lastName, email string) error {
	details := map[string]any{}
	if len(firstName) < nameMinLen || len(firstName) > nameMaxLen {
		details["first_name"] = "must be between 2 and 50 characters"
	}
	if len(lastName) < nameMinLen || len(lastName) > nameMaxLen {
		details["last_name"] = "must be between 2 and 50 characters"
	}
	if err := s.validate.Var(email, "required,email"); err != nil {
		details["email"] = "must be a valid email address"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("validation failed", details)
	}
	return nil
}

func validateID(field, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperrors.NewValidationError("invalid "+field+" format", map[string]any{"value": id})
	}
	return nil
}
