package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/identity-service/pkg/util/errorutil"
)

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

func newTestProfileService(t *testing.T) (*ProfileService, *fakeProfileRepo) {
	t.Helper()
	repo := newFakeProfileRepo()
	return NewProfileService(repo, nil), repo
}

func TestProfileCreateNormalizes(t *testing.T) {
	svc, _ := newTestProfileService(t)
	authID := uuid.NewString()

	profile, err := svc.Create(context.Background(), authID, "  Ada ", " Lovelace ", " Ada@Example.COM ")
	require.NoError(t, err)
	assert.NotEmpty(t, profile.ID)
	assert.Equal(t, authID, profile.AuthID)
	assert.Equal(t, "Ada", profile.FirstName)
	assert.Equal(t, "Lovelace", profile.LastName)
	assert.Equal(t, "ada@example.com", profile.Email)
	assert.True(t, profile.IsActive)
}

func TestProfileCreateRejectsBadInput(t *testing.T) {
	svc, _ := newTestProfileService(t)
	ctx := context.Background()
	authID := uuid.NewString()

	_, err := svc.Create(ctx, "not-a-uuid", "Ada", "Lovelace", "ada@example.com")
	requireDomainCode(t, err, apperrors.CodeValidationFailed)

	_, err = svc.Create(ctx, authID, "A", "Lovelace", "ada@example.com")
	requireDomainCode(t, err, apperrors.CodeValidationFailed)

	_, err = svc.Create(ctx, authID, "Ada", "Lovelace", "not-an-email")
	requireDomainCode(t, err, apperrors.CodeValidationFailed)
}

func TestProfileCreateOnePerCredential(t *testing.T) {
	svc, _ := newTestProfileService(t)
	ctx := context.Background()
	authID := uuid.NewString()

	_, err := svc.Create(ctx, authID, "Ada", "Lovelace", "ada@example.com")
	require.NoError(t, err)

	_, err = svc.Create(ctx, authID, "Ada", "Again", "ada2@example.com")
	requireDomainCode(t, err, apperrors.CodeAlreadyExists)
}

func TestProfileCreateDuplicateEmail(t *testing.T) {
	svc, _ := newTestProfileService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, uuid.NewString(), "Ada", "Lovelace", "ada@example.com")
	require.NoError(t, err)

	_, err = svc.Create(ctx, uuid.NewString(), "Grace", "Hopper", "ada@example.com")
	requireDomainCode(t, err, apperrors.CodeAlreadyExists)
}

func TestProfileLookups(t *testing.T) {
	svc, _ := newTestProfileService(t)
	ctx := context.Background()
	authID := uuid.NewString()

	created, err := svc.Create(ctx, authID, "Ada", "Lovelace", "ada@example.com")
	require.NoError(t, err)

	byID, err := svc.FindOne(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, byID.ID)

	byAuth, err := svc.FindByAuthRef(ctx, authID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, byAuth.ID)

	// Lookup normalizes case before matching the stored lowercase key.
	byEmail, err := svc.FindByEmail(ctx, "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	_, err = svc.FindOne(ctx, uuid.NewString())
	requireDomainCode(t, err, apperrors.CodeNotFound)

	_, err = svc.FindOne(ctx, "not-a-uuid")
	requireDomainCode(t, err, apperrors.CodeValidationFailed)

	_, err = svc.FindByEmail(ctx, "not-an-email")
	requireDomainCode(t, err, apperrors.CodeValidationFailed)
}

func TestProfileFindAll(t *testing.T) {
	svc, _ := newTestProfileService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, uuid.NewString(), "Name", "Number", uuid.NewString()[:8]+"@example.com")
		require.NoError(t, err)
	}

	profiles, total, err := svc.FindAll(ctx, 2, 0)
	require.NoError(t, err)
	assert.Len(t, profiles, 2)
	assert.EqualValues(t, 3, total)

	// Out-of-range arguments fall back to defaults instead of failing.
	profiles, total, err = svc.FindAll(ctx, -1, -5)
	require.NoError(t, err)
	assert.Len(t, profiles, 3)
	assert.EqualValues(t, 3, total)
}

func TestProfileUpdate(t *testing.T) {
	svc, _ := newTestProfileService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, uuid.NewString(), "Ada", "Lovelace", "ada@example.com")
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, ProfileUpdate{
		FirstName: strPtr("Augusta"),
		IsActive:  boolPtr(false),
	})
	require.NoError(t, err)
	assert.Equal(t, "Augusta", updated.FirstName)
	assert.Equal(t, "Lovelace", updated.LastName)
	assert.False(t, updated.IsActive)

	// Email changes are normalized like creation.
	updated, err = svc.Update(ctx, created.ID, ProfileUpdate{Email: strPtr(" Augusta@Example.com ")})
	require.NoError(t, err)
	assert.Equal(t, "augusta@example.com", updated.Email)
}

func TestProfileUpdateEmailConflict(t *testing.T) {
	svc, _ := newTestProfileService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, uuid.NewString(), "Ada", "Lovelace", "ada@example.com")
	require.NoError(t, err)
	_, err = svc.Create(ctx, uuid.NewString(), "Grace", "Hopper", "grace@example.com")
	require.NoError(t, err)

	_, err = svc.Update(ctx, first.ID, ProfileUpdate{Email: strPtr("grace@example.com")})
	requireDomainCode(t, err, apperrors.CodeAlreadyExists)

	// Re-submitting the profile's own email is not a conflict.
	_, err = svc.Update(ctx, first.ID, ProfileUpdate{Email: strPtr("ada@example.com")})
	require.NoError(t, err)
}

func TestProfileUpdateByAuthRef(t *testing.T) {
	svc, _ := newTestProfileService(t)
	ctx := context.Background()
	authID := uuid.NewString()

	_, err := svc.Create(ctx, authID, "Ada", "Lovelace", "ada@example.com")
	require.NoError(t, err)

	updated, err := svc.UpdateByAuthRef(ctx, authID, ProfileUpdate{LastName: strPtr("Byron")})
	require.NoError(t, err)
	assert.Equal(t, "Byron", updated.LastName)

	_, err = svc.UpdateByAuthRef(ctx, uuid.NewString(), ProfileUpdate{LastName: strPtr("Byron")})
	requireDomainCode(t, err, apperrors.CodeNotFound)
}

func TestProfileDelete(t *testing.T) {
	svc, _ := newTestProfileService(t)
	ctx := context.Background()
	authID := uuid.NewString()

	created, err := svc.Create(ctx, authID, "Ada", "Lovelace", "ada@example.com")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))
	err = svc.Delete(ctx, created.ID)
	requireDomainCode(t, err, apperrors.CodeNotFound)

	// By auth reference.
	second, err := svc.Create(ctx, authID, "Ada", "Lovelace", "ada@example.com")
	require.NoError(t, err)
	require.NoError(t, svc.DeleteByAuthRef(ctx, authID))
	assert.False(t, svc.Exists(ctx, second.ID))
}

func TestProfileSearchByPartialName(t *testing.T) {
	svc, _ := newTestProfileService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, uuid.NewString(), "Ada", "Lovelace", "ada@example.com")
	require.NoError(t, err)
	_, err = svc.Create(ctx, uuid.NewString(), "Grace", "Hopper", "grace@example.com")
	require.NoError(t, err)

	matches, err := svc.SearchByPartialName(ctx, "love", 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Lovelace", matches[0].LastName)

	matches, err = svc.SearchByPartialName(ctx, "zzz", 10)
	require.NoError(t, err)
	assert.Empty(t, matches)

	_, err = svc.SearchByPartialName(ctx, "   ", 10)
	requireDomainCode(t, err, apperrors.CodeValidationFailed)
}

func TestProfileStats(t *testing.T) {
	svc, _ := newTestProfileService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, uuid.NewString(), "Ada", "Lovelace", "ada@example.com")
	require.NoError(t, err)
	_, err = svc.Create(ctx, uuid.NewString(), "Grace", "Hopper", "grace@example.com")
	require.NoError(t, err)

	stats, err := svc.GetStats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.TotalProfiles)
	assert.EqualValues(t, 2, stats.RecentProfiles)
}

func TestProfileExists(t *testing.T) {
	svc, _ := newTestProfileService(t)
	ctx := context.Background()
	authID := uuid.NewString()

	created, err := svc.Create(ctx, authID, "Ada", "Lovelace", "ada@example.com")
	require.NoError(t, err)

	assert.True(t, svc.Exists(ctx, created.ID))
	assert.True(t, svc.ExistsByAuthRef(ctx, authID))
	assert.False(t, svc.Exists(ctx, uuid.NewString()))
	assert.False(t, svc.Exists(ctx, "not-a-uuid"))
	assert.False(t, svc.ExistsByAuthRef(ctx, uuid.NewString()))
}
