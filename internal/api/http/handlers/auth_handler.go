package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/identity-service/internal/api/dto"
	"github.com/spec-kit/identity-service/internal/observability"
	"github.com/spec-kit/identity-service/internal/service"
)

// AuthHandler exposes the credential lifecycle endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	result, err := h.auth.Register(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(dto.OK("Auth credentials created successfully", result))
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	result, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		observability.LoginAttemptsTotal.WithLabelValues("failure").Inc()
		return err
	}
	observability.LoginAttemptsTotal.WithLabelValues("success").Inc()
	observability.TokensIssuedTotal.WithLabelValues("login").Inc()

	return c.JSON(dto.OK("Login successful", result))
}

// VerifyEmail handles POST /auth/verify-email.
func (h *AuthHandler) VerifyEmail(c *fiber.Ctx) error {
	var req dto.VerifyEmailRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	result, err := h.auth.VerifyEmail(c.UserContext(), req.Token)
	if err != nil {
		return err
	}

	return c.JSON(dto.OK("Email verified successfully", result))
}

// ForgotPassword handles POST /auth/forgot-password. The response shape is
// the same whether or not the email exists; only the token field differs.
func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req dto.ForgotPasswordRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	token, err := h.auth.ForgotPassword(c.UserContext(), req.Email)
	if err != nil {
		return err
	}

	if token == "" {
		return c.JSON(dto.OK("If the email exists, a reset link has been sent", nil))
	}
	return c.JSON(dto.OK("Password reset token generated", fiber.Map{"reset_token": token}))
}

// ResetPassword handles POST /auth/reset-password.
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req dto.ResetPasswordRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	if err := h.auth.ResetPassword(c.UserContext(), req.Token, req.NewPassword); err != nil {
		return err
	}

	return c.JSON(dto.OK("Password reset successfully", nil))
}

// ValidateUser handles POST /auth/validate-user.
func (h *AuthHandler) ValidateUser(c *fiber.Ctx) error {
	var req dto.ValidateUserRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	summary, err := h.auth.ValidateUser(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(dto.OK("Credentials are valid", summary))
}

// ValidateToken handles POST /auth/validate-token.
func (h *AuthHandler) ValidateToken(c *fiber.Ctx) error {
	var req dto.TokenRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	claims, err := h.auth.ValidateToken(c.UserContext(), req.Token)
	if err != nil {
		return err
	}

	return c.JSON(dto.OK("Token is valid", claims))
}

// RefreshToken handles POST /auth/refresh-token.
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	var req dto.TokenRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	result, err := h.auth.RefreshToken(c.UserContext(), req.Token)
	if err != nil {
		return err
	}
	observability.TokensIssuedTotal.WithLabelValues("refresh").Inc()

	return c.JSON(dto.OK("Token refreshed successfully", result))
}
