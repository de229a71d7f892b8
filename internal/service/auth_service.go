package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/identity-service/internal/auth"
	"github.com/spec-kit/identity-service/internal/config"
	"github.com/spec-kit/identity-service/internal/domain"
	"github.com/spec-kit/identity-service/internal/events"
	"github.com/spec-kit/identity-service/internal/repository"
	apperrors "github.com/spec-kit/identity-service/pkg/util/errorutil"
)

// opaqueTokenBytes gives verification/reset tokens 256 bits of entropy.
const opaqueTokenBytes = 32

// Login failure messages. Unknown email and wrong password share one message
// so callers cannot tell which failed; an unverified account is reported
// distinctly.
const (
	msgInvalidCredentials = "Invalid credentials"
	msgEmailNotVerified   = "Email not verified"
)

// AuthService is the credential lifecycle manager: registration, email
// verification, login, password reset, and bearer token validation/refresh.
//
// RefreshToken does not invalidate the token it was called with; with no
// revocation store the old token stays valid until its own expiry. Known weak
// point of the contract, kept as-is.
type AuthService struct {
	credentials repository.CredentialRepository
	profiles    repository.ProfileRepository
	tokenMgr    *auth.TokenManager
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	bcryptCost  int
	verifyTTL   time.Duration
	resetTTL    time.Duration
}

// AuthDependencies encapsulates collaborator requirements for the auth service.
type AuthDependencies struct {
	CredentialRepo repository.CredentialRepository
	ProfileRepo    repository.ProfileRepository
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
}

// LoginResult bundles the issued token with the credential summary.
type LoginResult struct {
	AccessToken string                   `json:"access_token"`
	ExpiresAt   time.Time                `json:"expires_at"`
	AuthUser    domain.CredentialSummary `json:"auth_user"`
}

// RegisterResult carries the created credential and its raw verification
// token; delivery of the token is an external collaborator's job.
type RegisterResult struct {
	Credential        domain.CredentialSummary `json:"credential"`
	VerificationToken string                   `json:"verification_token"`
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		credentials: deps.CredentialRepo,
		profiles:    deps.ProfileRepo,
		tokenMgr:    auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL()),
		dispatcher:  deps.Dispatcher,
		logger:      deps.Logger,
		bcryptCost:  cfg.Auth.BcryptCost,
		verifyTTL:   cfg.Auth.VerificationTokenTTL(),
		resetTTL:    cfg.Auth.ResetTokenTTL(),
	}
}

// Register creates an unverified credential and returns the raw verification
// token. The pre-insert existence check matches the email exactly (case
// sensitive); the unique index on email is the authoritative duplicate signal
// when two registrations race past the check.
func (s *AuthService) Register(ctx context.Context, email, password string) (*RegisterResult, error) {
	if _, err := s.credentials.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewAlreadyExists("Email already exists", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	verificationToken, err := auth.GenerateOpaqueToken(opaqueTokenBytes)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	expiresAt := time.Now().Add(s.verifyTTL)

	cred := &domain.Credential{
		Email:               email,
		PasswordHash:        hash,
		IsVerified:          false,
		ResetToken:          &verificationToken,
		ResetTokenExpiresAt: &expiresAt,
	}
	if err := s.credentials.Create(ctx, cred); err != nil {
		if apperrors.IsUniqueViolation(err) {
			return nil, apperrors.NewAlreadyExists("Email already exists", nil)
		}
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.NewEvent(events.EventCredentialRegistered, cred.ID, events.CredentialRegisteredPayload{
		Email:             cred.Email,
		VerificationToken: verificationToken,
		TokenExpiresAt:    expiresAt,
	}))

	return &RegisterResult{Credential: cred.Summary(), VerificationToken: verificationToken}, nil
}

// VerifyEmail consumes a verification token: the verified flag flip and the
// token clear are one persisted update, so a second call with the same token
// finds nothing.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*domain.VerificationResult, error) {
	cred, err := s.credentials.ConsumeVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("Invalid or expired verification token")
		}
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.NewEvent(events.EventEmailVerified, cred.ID, events.EmailVerifiedPayload{
		Email: cred.Email,
	}))

	return &domain.VerificationResult{
		AuthID:     cred.ID,
		Email:      cred.Email,
		IsVerified: cred.IsVerified,
	}, nil
}

// Login authenticates a credential and issues a bearer token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	cred, err := s.credentials.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized(msgInvalidCredentials)
		}
		return nil, apperrors.MapError(err)
	}

	if err := auth.ComparePassword(cred.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized(msgInvalidCredentials)
	}

	if !cred.IsVerified {
		return nil, apperrors.NewUnauthorized(msgEmailNotVerified)
	}

	token, expiresAt, err := s.tokenMgr.GenerateToken(cred.ID, cred.Email)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	// Best effort; a missing profile is not a login failure.
	if err := s.profiles.TouchLastLogin(ctx, cred.ID); err != nil {
		s.logger.Warn("touch last_login failed", zap.String("auth_id", cred.ID), zap.Error(err))
	}

	return &LoginResult{AccessToken: token, ExpiresAt: expiresAt, AuthUser: cred.Summary()}, nil
}

// ForgotPassword stores a fresh reset token when the email exists. The
// response shape is identical either way so callers cannot enumerate
// accounts; only the token field differs.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (string, error) {
	cred, err := s.credentials.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", apperrors.MapError(err)
	}

	resetToken, err := auth.GenerateOpaqueToken(opaqueTokenBytes)
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}
	expiresAt := time.Now().Add(s.resetTTL)

	if err := s.credentials.SetResetToken(ctx, cred.ID, resetToken, expiresAt); err != nil {
		return "", apperrors.MapError(err)
	}

	s.publish(ctx, events.NewEvent(events.EventPasswordResetRequested, cred.ID, events.PasswordResetRequestedPayload{
		Email:          cred.Email,
		ResetToken:     resetToken,
		TokenExpiresAt: expiresAt,
	}))

	return resetToken, nil
}

// ResetPassword consumes a reset token and stores the new password hash in
// the same persisted update.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	cred, err := s.credentials.ConsumeResetToken(ctx, token, hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnauthorized("Invalid or expired reset token")
		}
		return apperrors.MapError(err)
	}

	s.publish(ctx, events.NewEvent(events.EventPasswordChanged, cred.ID, events.PasswordChangedPayload{
		Email: cred.Email,
	}))

	return nil
}

// ValidateUser checks email+password and returns the credential summary.
// Unlike Login it does not require a verified email and issues no token.
func (s *AuthService) ValidateUser(ctx context.Context, email, password string) (*domain.CredentialSummary, error) {
	cred, err := s.credentials.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized(msgInvalidCredentials)
		}
		return nil, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(cred.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized(msgInvalidCredentials)
	}
	summary := cred.Summary()
	return &summary, nil
}

// ValidateToken verifies signature and expiry and confirms the subject
// credential still exists and is verified. Malformed and expired tokens are
// logged distinctly for diagnostics but both surface as Unauthorized.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (*domain.TokenClaims, error) {
	claims, err := s.tokenMgr.ParseToken(token)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			s.logger.Debug("token rejected: expired")
		} else {
			s.logger.Debug("token rejected: malformed signature or claims")
		}
		return nil, apperrors.NewUnauthorized("Invalid token")
	}

	cred, err := s.credentials.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("Invalid token")
		}
		return nil, apperrors.MapError(err)
	}
	if !cred.IsVerified {
		return nil, apperrors.NewUnauthorized("Invalid token")
	}

	domainClaims := claims.DomainClaims()
	return &domainClaims, nil
}

// RefreshToken issues a fresh token for the subject of a still-valid token.
func (s *AuthService) RefreshToken(ctx context.Context, oldToken string) (*LoginResult, error) {
	claims, err := s.tokenMgr.ParseToken(oldToken)
	if err != nil {
		return nil, apperrors.NewUnauthorized("Cannot refresh token")
	}

	cred, err := s.credentials.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("Cannot refresh token")
		}
		return nil, apperrors.MapError(err)
	}
	if !cred.IsVerified {
		return nil, apperrors.NewUnauthorized("Cannot refresh token")
	}

	token, expiresAt, err := s.tokenMgr.GenerateToken(cred.ID, cred.Email)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &LoginResult{AccessToken: token, ExpiresAt: expiresAt, AuthUser: cred.Summary()}, nil
}

// FindByEmail looks up a credential summary by exact email.
func (s *AuthService) FindByEmail(ctx context.Context, email string) (*domain.CredentialSummary, error) {
	cred, err := s.credentials.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("credential", map[string]any{"email": email})
		}
		return nil, apperrors.MapError(err)
	}
	summary := cred.Summary()
	return &summary, nil
}

// FindByID looks up a credential summary by id. The id is checked before the
// query: a malformed uuid would otherwise fail inside Postgres (22P02) and
// read as an internal error instead of bad input.
func (s *AuthService) FindByID(ctx context.Context, id string) (*domain.CredentialSummary, error) {
	if err := validateID("credential ID", id); err != nil {
		return nil, err
	}
	cred, err := s.credentials.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("credential", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}
	summary := cred.Summary()
	return &summary, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}
