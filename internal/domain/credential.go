package domain

import "time"

// Credential is the authentication record for one login identity.
// The password hash never leaves the service boundary.
type Credential struct {
	ID                  string
	Email               string
	PasswordHash        string
	IsVerified          bool
	ResetToken          *string
	ResetTokenExpiresAt *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// CredentialSummary is the outward-facing view of a credential.
type CredentialSummary struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
}

// Summary strips the password hash and token state for responses.
func (c *Credential) Summary() CredentialSummary {
	return CredentialSummary{
		ID:         c.ID,
		Email:      c.Email,
		IsVerified: c.IsVerified,
		CreatedAt:  c.CreatedAt,
	}
}
